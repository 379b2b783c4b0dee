// Package turn normalizes one model response into the primitives the call
// matcher consumes, and defines the conversation messages of a transcript.
package turn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reasons reported by chat-completion providers.
const (
	FinishToolCalls = "tool_calls"
	FinishStop      = "stop"
)

// ToolCall is one complete function invocation emitted by the model.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Arguments is the decoded argument object. Nil when ParseError is set.
	Arguments map[string]any `json:"arguments,omitempty"`

	// RawArguments is the argument string exactly as the model produced it.
	RawArguments string `json:"raw_arguments,omitempty"`

	// ParseError describes why RawArguments is not a JSON object.
	ParseError string `json:"parse_error,omitempty"`
}

// Turn is one normalized model response unit.
type Turn struct {
	Role         string     `json:"role"`
	Content      *string    `json:"content,omitempty"`
	FinishReason string     `json:"finish_reason"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
}

// Text returns the content or "" when there is none.
func (t Turn) Text() string {
	if t.Content == nil {
		return ""
	}
	return *t.Content
}

// Message converts the turn into the assistant message appended to a transcript.
func (t Turn) Message() Message {
	msg := Message{Role: t.Role, Content: t.Content}
	if len(t.ToolCalls) > 0 {
		msg.ToolCalls = make([]ToolCall, len(t.ToolCalls))
		copy(msg.ToolCalls, t.ToolCalls)
	}
	return msg
}

// NewToolCall builds a ToolCall from a raw argument string.
func NewToolCall(id, name, rawArguments string) ToolCall {
	tc := ToolCall{ID: id, Name: name, RawArguments: rawArguments}
	args, err := ParseArguments(rawArguments)
	if err != nil {
		tc.ParseError = err.Error()
		return tc
	}
	tc.Arguments = args
	return tc
}

// ParseArguments decodes a tool-call argument string into a JSON object.
// Numbers are kept as json.Number. An empty or blank string means no arguments.
func ParseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("arguments contain trailing data after the JSON object")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object, got %T", v)
	}
	return obj, nil
}

// Message is one entry of the conversation transcript.
type Message struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Text returns the message content or "" when there is none.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// SystemMessage builds a system prompt message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: &content}
}

// UserMessage builds a user prompt message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: &content}
}

// ToolResultMessage builds the synthetic tool response for a matched call.
func ToolResultMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: &content, ToolCallID: callID, Name: name}
}

// String returns a pointer to s, for building turns and messages.
func String(s string) *string {
	return &s
}
