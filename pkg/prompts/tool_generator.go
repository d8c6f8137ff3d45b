package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soypete/calchat/pkg/tools"
)

// ToolPromptGenerator generates the operations section of the system prompt
// from catalog definitions.
type ToolPromptGenerator struct {
	catalog *tools.Catalog
}

// NewToolPromptGenerator creates a new tool prompt generator
func NewToolPromptGenerator(catalog *tools.Catalog) *ToolPromptGenerator {
	return &ToolPromptGenerator{catalog: catalog}
}

// GenerateToolSection lists every operation in catalog order with its
// arguments. Required arguments come first.
func (g *ToolPromptGenerator) GenerateToolSection() string {
	if g.catalog == nil {
		return "No operations available."
	}
	defs := g.catalog.Definitions()
	if len(defs) == 0 {
		return "No operations available."
	}

	sections := make([]string, 0, len(defs))
	for _, def := range defs {
		sections = append(sections, g.FormatTool(def))
	}
	return strings.Join(sections, "\n")
}

// FormatTool creates a one-line description for a single operation
func (g *ToolPromptGenerator) FormatTool(def tools.Definition) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- %s: %s", def.Name, firstSentence(def.Description)))

	args := argumentList(def.Parameters)
	if len(args) > 0 {
		sb.WriteString(fmt.Sprintf(" Arguments: %s.", strings.Join(args, ", ")))
	}
	return sb.String()
}

func argumentList(params tools.ParameterSchema) []string {
	names := make([]string, 0, len(params.Properties))
	for name := range params.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := params.IsRequired(names[i]), params.IsRequired(names[j])
		if ri != rj {
			return ri
		}
		return names[i] < names[j]
	})

	out := make([]string, len(names))
	for i, name := range names {
		if params.IsRequired(name) {
			out[i] = name
		} else {
			out[i] = name + " (optional)"
		}
	}
	return out
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
