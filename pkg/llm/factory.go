package llm

import (
	"fmt"

	"github.com/soypete/calchat/pkg/config"
)

// NewPlanner creates a planner from the model configuration
func NewPlanner(modelCfg config.ModelConfig) (Planner, error) {
	switch modelCfg.Type {
	case "openai":
		return NewOpenAIPlanner(OpenAIConfig{
			APIKey:      modelCfg.APIKey,
			BaseURL:     modelCfg.BaseURL,
			Model:       modelCfg.ModelName,
			Temperature: modelCfg.Temperature,
			Timeout:     modelCfg.Timeout,
		}), nil
	case "ollama", "llamacpp":
		apiKey := modelCfg.APIKey
		if apiKey == "" {
			apiKey = modelCfg.Type
		}
		return NewOpenAIPlanner(OpenAIConfig{
			APIKey:      apiKey,
			BaseURL:     modelCfg.BaseURL,
			Model:       modelCfg.ModelName,
			Temperature: modelCfg.Temperature,
			Timeout:     modelCfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s (supported: openai, ollama, llamacpp)", modelCfg.Type)
	}
}
