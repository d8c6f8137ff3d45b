package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/soypete/calchat/pkg/conversation"
	"github.com/soypete/calchat/pkg/llm"
	"github.com/soypete/calchat/pkg/tools"
)

// ScriptedPlanner is a programmable planner for testing.
// Each PlanNextStep call pops the next queued decision or error.
type ScriptedPlanner struct {
	mu sync.Mutex

	// Decisions is the queue of decisions to return.
	Decisions []llm.Decision

	// Errors is parallel to Decisions; a non-nil entry is returned instead.
	Errors []error

	// Calls records every request for verification.
	Calls []PlanCall

	// Repeat, if set, is returned once the queue is exhausted.
	Repeat *llm.Decision

	current int
	nextID  int
}

// PlanCall records a single call to PlanNextStep.
type PlanCall struct {
	Messages  []conversation.Turn
	Timestamp time.Time
}

// NewScriptedPlanner creates an empty scripted planner.
func NewScriptedPlanner() *ScriptedPlanner {
	return &ScriptedPlanner{}
}

// AddAnswer queues a final answer.
func (p *ScriptedPlanner) AddAnswer(text string) *ScriptedPlanner {
	return p.add(llm.Answer(text), nil)
}

// AddToolCall queues a single tool request.
func (p *ScriptedPlanner) AddToolCall(name string, args map[string]interface{}) *ScriptedPlanner {
	return p.AddToolCalls(Call(name, args))
}

// AddToolCalls queues several tool requests issued in one round.
// Calls without an id get a sequential one.
func (p *ScriptedPlanner) AddToolCalls(calls ...conversation.ToolCall) *ScriptedPlanner {
	p.mu.Lock()
	for i := range calls {
		if calls[i].ID == "" {
			p.nextID++
			calls[i].ID = fmt.Sprintf("call_%d", p.nextID)
		}
	}
	p.mu.Unlock()
	return p.add(llm.ToolRequests(calls...), nil)
}

// AddError queues a planner failure.
func (p *ScriptedPlanner) AddError(err error) *ScriptedPlanner {
	return p.add(llm.Decision{}, err)
}

// AlwaysRequest makes the planner request the same operation forever.
func (p *ScriptedPlanner) AlwaysRequest(name string, args map[string]interface{}) *ScriptedPlanner {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := llm.ToolRequests(Call(name, args))
	d.ToolCalls[0].ID = "call_loop"
	p.Repeat = &d
	return p
}

func (p *ScriptedPlanner) add(d llm.Decision, err error) *ScriptedPlanner {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Decisions = append(p.Decisions, d)
	p.Errors = append(p.Errors, err)
	return p
}

// PlanNextStep implements llm.Planner.
func (p *ScriptedPlanner) PlanNextStep(ctx context.Context, messages []conversation.Turn, catalog *tools.Catalog) (llm.Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]conversation.Turn, len(messages))
	copy(snapshot, messages)
	p.Calls = append(p.Calls, PlanCall{Messages: snapshot, Timestamp: time.Now()})

	if err := ctx.Err(); err != nil {
		return llm.Decision{}, err
	}

	if p.current >= len(p.Decisions) {
		if p.Repeat != nil {
			return *p.Repeat, nil
		}
		return llm.Decision{}, fmt.Errorf("scripted planner: no more decisions queued (call %d)", p.current)
	}

	d := p.Decisions[p.current]
	err := p.Errors[p.current]
	p.current++

	if err != nil {
		return llm.Decision{}, err
	}
	return d, nil
}

// CallCount returns the number of PlanNextStep calls made.
func (p *ScriptedPlanner) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// LastMessages returns the messages of the most recent call.
func (p *ScriptedPlanner) LastMessages() []conversation.Turn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return nil
	}
	return p.Calls[len(p.Calls)-1].Messages
}

// Call builds a tool call with JSON-encoded arguments.
func Call(name string, args map[string]interface{}) conversation.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return conversation.ToolCall{Name: name, Arguments: raw}
}
