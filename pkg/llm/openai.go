package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/soypete/calchat/pkg/conversation"
	"github.com/soypete/calchat/pkg/tools"
)

// OpenAIPlanner plans with any OpenAI-compatible chat completions API
// (OpenAI, Ollama, llama-server)
type OpenAIPlanner struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig configures an OpenAIPlanner
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // Optional, defaults to the OpenAI API
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// NewOpenAIPlanner creates a planner backed by go-openai
func NewOpenAIPlanner(cfg OpenAIConfig) *OpenAIPlanner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIPlanner{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}
}

// PlanNextStep sends the conversation and the catalog with tool choice "auto"
func (p *OpenAIPlanner) PlanNextStep(ctx context.Context, messages []conversation.Turn, catalog *tools.Catalog) (Decision, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: p.temperature,
	}
	if catalog != nil {
		req.Tools = catalog.OpenAITools()
		req.ToolChoice = "auto"
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Decision{}, errors.Wrap(err, "planner request failed")
	}
	if len(resp.Choices) == 0 {
		return Decision{}, errors.New("planner returned no choices")
	}

	log.Debug().
		Str("model", p.model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("duration", time.Since(start)).
		Msg("Planner responded")

	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func toOpenAIMessages(turns []conversation.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		msg := openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
		switch turn.Role {
		case conversation.RoleTool:
			msg.ToolCallID = turn.ToolCallID
			msg.Name = turn.ToolName
		case conversation.RoleAssistant:
			for _, call := range turn.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: argumentsString(call.Arguments),
					},
				})
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) Decision {
	if len(msg.ToolCalls) == 0 {
		return Answer(msg.Content)
	}

	calls := make([]conversation.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.New().String()
		}
		calls = append(calls, conversation.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return Decision{Text: msg.Content, ToolCalls: calls}
}

func argumentsString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
