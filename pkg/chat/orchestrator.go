// Package chat runs the function-calling loop between the planner and the
// calendar operations for one user message.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/soypete/calchat/pkg/config"
	"github.com/soypete/calchat/pkg/conversation"
	"github.com/soypete/calchat/pkg/executor"
	"github.com/soypete/calchat/pkg/llm"
	"github.com/soypete/calchat/pkg/metrics"
	"github.com/soypete/calchat/pkg/prompts"
	"github.com/soypete/calchat/pkg/tools"
)

// Chat results recorded in calchat_chat_requests_total
const (
	ResultAnswered     = "answered"
	ResultMaxRounds    = "max_rounds"
	ResultPlannerError = "planner_error"
	ResultCancelled    = "cancelled"
)

// ErrMaxRoundsExceeded is returned when the planner still requests
// operations in the last allowed round. Those operations are not run.
var ErrMaxRoundsExceeded = errors.New("maximum planning rounds exceeded")

// ToolExecutor runs one named operation and always returns an envelope
type ToolExecutor interface {
	Execute(ctx context.Context, name string, raw json.RawMessage) executor.Result
}

// SystemPrompter renders the system instruction for a chat call
type SystemPrompter interface {
	SystemPrompt(userEmail string) string
}

// Orchestrator drives the planner and executor for each chat call.
// It holds no per-conversation state and is safe for concurrent use.
type Orchestrator struct {
	planner        llm.Planner
	executor       ToolExecutor
	catalog        *tools.Catalog
	prompts        SystemPrompter
	maxRounds      int
	plannerTimeout time.Duration
	maxParallel    int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPrompter replaces the default system prompt manager
func WithPrompter(p SystemPrompter) Option {
	return func(o *Orchestrator) {
		o.prompts = p
	}
}

// NewOrchestrator creates an orchestrator from the limits in cfg
func NewOrchestrator(cfg *config.Config, planner llm.Planner, exec ToolExecutor, catalog *tools.Catalog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		planner:        planner,
		executor:       exec,
		catalog:        catalog,
		maxRounds:      cfg.Limits.MaxRounds,
		plannerTimeout: cfg.Limits.PlannerTimeout,
		maxParallel:    cfg.Limits.MaxParallelTools,
	}
	if o.maxRounds <= 0 {
		o.maxRounds = 10
	}
	if o.maxParallel <= 0 {
		o.maxParallel = 1
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.prompts == nil {
		o.prompts = prompts.NewManager(catalog)
	}
	return o
}

// Chat answers userMessage in the context of history. The returned history
// is a new copy: history + the user turn + the assistant turn. Intermediate
// tool turns stay internal. On error the caller keeps its own history.
func (o *Orchestrator) Chat(ctx context.Context, userMessage string, history conversation.History, userEmail string) (string, conversation.History, error) {
	requestID := uuid.New().String()
	logger := log.With().Str("request_id", requestID).Logger()
	ctx = executor.WithCallContext(ctx, executor.CallContext{UserEmail: userEmail, RequestID: requestID})

	prior := history.Sanitize()
	messages := make([]conversation.Turn, 0, len(prior)+4)
	messages = append(messages, conversation.System(o.prompts.SystemPrompt(userEmail)))
	messages = append(messages, prior...)
	messages = append(messages, conversation.User(userMessage))

	for round := 1; round <= o.maxRounds; round++ {
		decision, err := o.plan(ctx, messages)
		if err != nil {
			result := ResultPlannerError
			if ctx.Err() != nil {
				result = ResultCancelled
			}
			metrics.ChatRequestsTotal.WithLabelValues(result).Inc()
			logger.Error().Err(err).Int("round", round).Msg("Planner failed")
			return "", nil, errors.Wrapf(err, "planning round %d", round)
		}

		if decision.IsAnswer() {
			metrics.ChatRequestsTotal.WithLabelValues(ResultAnswered).Inc()
			metrics.PlannerRounds.Observe(float64(round))
			logger.Info().Int("rounds", round).Msg("Chat answered")
			return decision.Text, prior.With(conversation.User(userMessage), conversation.Assistant(decision.Text)), nil
		}

		if round == o.maxRounds {
			break
		}

		logger.Debug().Int("round", round).Int("tool_calls", len(decision.ToolCalls)).Msg("Planner requested operations")
		messages = append(messages, conversation.ToolRequests(decision.Text, decision.ToolCalls))
		messages = append(messages, o.runTools(ctx, decision.ToolCalls)...)
	}

	metrics.ChatRequestsTotal.WithLabelValues(ResultMaxRounds).Inc()
	metrics.PlannerRounds.Observe(float64(o.maxRounds))
	logger.Warn().Int("max_rounds", o.maxRounds).Msg("Planner exceeded round cap")
	return "", nil, errors.Wrapf(ErrMaxRoundsExceeded, "no answer after %d rounds", o.maxRounds)
}

func (o *Orchestrator) plan(ctx context.Context, messages []conversation.Turn) (llm.Decision, error) {
	if err := ctx.Err(); err != nil {
		return llm.Decision{}, err
	}
	planCtx := ctx
	if o.plannerTimeout > 0 {
		var cancel context.CancelFunc
		planCtx, cancel = context.WithTimeout(ctx, o.plannerTimeout)
		defer cancel()
	}
	return o.planner.PlanNextStep(planCtx, messages, o.catalog)
}

// runTools executes calls and returns one tool turn per call, in call order
func (o *Orchestrator) runTools(ctx context.Context, calls []conversation.ToolCall) []conversation.Turn {
	turns := make([]conversation.Turn, len(calls))
	run := func(i int) {
		call := calls[i]
		result := o.executor.Execute(ctx, call.Name, call.Arguments)
		turns[i] = conversation.ToolResult(call.ID, call.Name, result.String())
	}

	if o.maxParallel == 1 || len(calls) == 1 {
		for i := range calls {
			run(i)
		}
		return turns
	}

	var g errgroup.Group
	g.SetLimit(o.maxParallel)
	for i := range calls {
		i := i
		g.Go(func() error {
			run(i)
			return nil
		})
	}
	_ = g.Wait()
	return turns
}
