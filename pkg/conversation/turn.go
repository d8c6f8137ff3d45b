// Package conversation holds the role-tagged turns exchanged between the
// user, the planner and the operation executor.
package conversation

import (
	"bytes"
	"encoding/json"
)

// Role tags the speaker of a turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one message in a conversation
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a planner-issued request to run one operation
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// UnmarshalJSON accepts arguments either as a JSON object or as the
// string-encoded object OpenAI-compatible servers emit.
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	type Alias ToolCall

	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(tc),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(tc.Arguments)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		tc.Arguments = json.RawMessage(inner)
	}

	return nil
}

// User builds a user turn
func User(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// Assistant builds a plain-text assistant turn
func Assistant(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// System builds a system turn
func System(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

// ToolResult builds a tool turn answering the call with the given id
func ToolResult(callID, name, content string) Turn {
	return Turn{Role: RoleTool, Content: content, ToolCallID: callID, ToolName: name}
}

// ToolRequests builds the assistant turn that carries the planner's tool calls
func ToolRequests(content string, calls []ToolCall) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// IsCallerVisible reports whether a turn may appear in caller-owned history
func (t Turn) IsCallerVisible() bool {
	return (t.Role == RoleUser || t.Role == RoleAssistant) && len(t.ToolCalls) == 0
}
