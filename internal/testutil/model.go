package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/callbench/internal/judge"
	"github.com/roach88/callbench/internal/provider"
	"github.com/roach88/callbench/internal/turn"
)

// Reply configures one model turn in a scripted sequence.
type Reply struct {
	Turn turn.Turn
	Err  error
}

// ScriptedModel replays canned turns in order and records every request.
// It implements provider.Model.
type ScriptedModel struct {
	mu       sync.Mutex
	index    int
	replies  []Reply
	requests []provider.Request
}

// NewScriptedModel creates a model that returns replies in order.
func NewScriptedModel(replies ...Reply) *ScriptedModel {
	cloned := make([]Reply, len(replies))
	copy(cloned, replies)
	return &ScriptedModel{replies: cloned}
}

var _ provider.Model = (*ScriptedModel)(nil)

// Complete returns the next scripted turn. Past the end it fails.
func (m *ScriptedModel) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.Messages = append([]turn.Message(nil), req.Messages...)
	m.requests = append(m.requests, req)

	if err := ctx.Err(); err != nil {
		return provider.Response{}, err
	}
	if m.index >= len(m.replies) {
		return provider.Response{}, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	current := m.replies[m.index]
	m.index++
	if current.Err != nil {
		return provider.Response{}, current.Err
	}

	t := current.Turn
	if t.Role == "" {
		t.Role = turn.RoleAssistant
	}
	raw := fmt.Sprintf(`{"step":%d}`, m.index)
	return provider.Response{Turn: t, Raw: []byte(raw)}, nil
}

// Requests returns a copy of the requests received so far.
func (m *ScriptedModel) Requests() []provider.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.Request(nil), m.requests...)
}

// Steps returns how many replies were consumed.
func (m *ScriptedModel) Steps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// ScriptedModels hands each test case its own ScriptedModel, keyed by the
// case prompt, so parallel runs stay isolated.
type ScriptedModels struct {
	mu     sync.Mutex
	models map[string]*ScriptedModel
}

// NewScriptedModels creates an empty set.
func NewScriptedModels() *ScriptedModels {
	return &ScriptedModels{models: make(map[string]*ScriptedModel)}
}

// Add scripts the replies for the case whose user prompt is prompt.
func (s *ScriptedModels) Add(prompt string, replies ...Reply) *ScriptedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := NewScriptedModel(replies...)
	s.models[prompt] = m
	return m
}

var _ provider.Model = (*ScriptedModels)(nil)

// Complete routes the request by its first user message.
func (s *ScriptedModels) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	prompt := ""
	for _, msg := range req.Messages {
		if msg.Role == turn.RoleUser {
			prompt = msg.Text()
			break
		}
	}

	s.mu.Lock()
	m, ok := s.models[prompt]
	s.mu.Unlock()
	if !ok {
		return provider.Response{}, fmt.Errorf("no scripted model for prompt %q", prompt)
	}
	return m.Complete(ctx, req)
}

// StaticJudge returns the same decision for every request and records them.
type StaticJudge struct {
	mu       sync.Mutex
	Decision judge.Decision
	Err      error
	requests []judge.Request
}

var _ judge.Judge = (*StaticJudge)(nil)

// Judge implements judge.Judge.
func (j *StaticJudge) Judge(_ context.Context, req judge.Request) (judge.Decision, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.requests = append(j.requests, req)
	return j.Decision, j.Err
}

// Requests returns the requests received so far.
func (j *StaticJudge) Requests() []judge.Request {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]judge.Request(nil), j.requests...)
}

// ToolTurn builds an assistant turn that calls tools.
func ToolTurn(calls ...turn.ToolCall) turn.Turn {
	return turn.Turn{Role: turn.RoleAssistant, FinishReason: turn.FinishToolCalls, ToolCalls: calls}
}

// StopTurn builds a final assistant turn. Empty content means no content.
func StopTurn(content string) turn.Turn {
	t := turn.Turn{Role: turn.RoleAssistant, FinishReason: turn.FinishStop}
	if content != "" {
		t.Content = turn.String(content)
	}
	return t
}

// Call builds a produced tool call from a raw argument string.
func Call(id, name, args string) turn.ToolCall {
	return turn.NewToolCall(id, name, args)
}
