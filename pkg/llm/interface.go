package llm

import (
	"context"

	"github.com/soypete/calchat/pkg/conversation"
	"github.com/soypete/calchat/pkg/tools"
)

// Planner decides the next step of a conversation: answer the user or
// request one or more operations. It is stateless; all state is in messages.
type Planner interface {
	PlanNextStep(ctx context.Context, messages []conversation.Turn, catalog *tools.Catalog) (Decision, error)
}

// Decision is either a final answer or a list of tool requests
type Decision struct {
	// Text is the answer, or optional commentary accompanying tool requests
	Text string

	// ToolCalls is empty for an answer
	ToolCalls []conversation.ToolCall
}

// Answer builds a final-text decision
func Answer(text string) Decision {
	return Decision{Text: text}
}

// ToolRequests builds a decision requesting operations
func ToolRequests(calls ...conversation.ToolCall) Decision {
	return Decision{ToolCalls: calls}
}

// IsAnswer reports whether the planner is done
func (d Decision) IsAnswer() bool {
	return len(d.ToolCalls) == 0
}
