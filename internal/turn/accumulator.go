package turn

import (
	"sort"
	"strings"
)

// ToolCallDelta is a partial tool call carried by one streaming chunk.
// The first delta for an index usually carries the id and name; later ones
// carry argument fragments only.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Chunk is one streaming delta of a model response.
type Chunk struct {
	Role         string
	Content      string
	FinishReason string
	ToolCalls    []ToolCallDelta
}

type partialCall struct {
	id   string
	name string
	args strings.Builder
}

// Accumulator reassembles streaming chunks into one complete Turn.
// It is not safe for concurrent use; one accumulator serves one response.
type Accumulator struct {
	role         string
	content      strings.Builder
	hasContent   bool
	finishReason string
	calls        map[int]*partialCall
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{calls: make(map[int]*partialCall)}
}

// Add folds one chunk into the accumulated response.
func (a *Accumulator) Add(c Chunk) {
	if c.Role != "" && a.role == "" {
		a.role = c.Role
	}
	if c.Content != "" {
		a.content.WriteString(c.Content)
		a.hasContent = true
	}
	if c.FinishReason != "" {
		a.finishReason = c.FinishReason
	}

	for _, d := range c.ToolCalls {
		pc, ok := a.calls[d.Index]
		if !ok {
			pc = &partialCall{}
			a.calls[d.Index] = pc
		}
		if d.ID != "" && pc.id == "" {
			pc.id = d.ID
		}
		if d.Name != "" && pc.name == "" {
			pc.name = d.Name
		}
		pc.args.WriteString(d.Arguments)
	}
}

// Turn finalizes the accumulated chunks, one ToolCall per index in
// ascending index order. Role defaults to assistant when no chunk set one.
func (a *Accumulator) Turn() Turn {
	t := Turn{Role: a.role, FinishReason: a.finishReason}
	if t.Role == "" {
		t.Role = RoleAssistant
	}
	if a.hasContent {
		t.Content = String(a.content.String())
	}

	indices := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		pc := a.calls[idx]
		t.ToolCalls = append(t.ToolCalls, NewToolCall(pc.id, pc.name, pc.args.String()))
	}
	return t
}
