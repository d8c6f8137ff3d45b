package tools

import (
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAITools renders the catalog in OpenAI function-calling format
func (c *Catalog) OpenAITools() []openai.Tool {
	result := make([]openai.Tool, 0, len(c.definitions))
	for _, def := range c.definitions {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters.Map(),
			},
		})
	}
	return result
}

func sortedKeys(m map[string]PropertySchema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
