package turn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_ContentOnly(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Chunk{Role: RoleAssistant, Content: "Hel"})
	acc.Add(Chunk{Content: "lo"})
	acc.Add(Chunk{FinishReason: FinishStop})

	tr := acc.Turn()
	assert.Equal(t, RoleAssistant, tr.Role)
	assert.Equal(t, "Hello", tr.Text())
	assert.Equal(t, FinishStop, tr.FinishReason)
	assert.Empty(t, tr.ToolCalls)
}

func TestAccumulator_FragmentedToolCalls(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Chunk{Role: RoleAssistant, ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_a", Name: "get_weather"}}})
	acc.Add(Chunk{ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `{"ci`}}})
	acc.Add(Chunk{ToolCalls: []ToolCallDelta{{Index: 1, ID: "call_b", Name: "get_time", Arguments: `{}`}}})
	acc.Add(Chunk{ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `ty": "Paris"}`}}})
	acc.Add(Chunk{FinishReason: FinishToolCalls})

	tr := acc.Turn()
	assert.Nil(t, tr.Content)
	assert.Equal(t, FinishToolCalls, tr.FinishReason)
	require.Len(t, tr.ToolCalls, 2)

	first := tr.ToolCalls[0]
	assert.Equal(t, "call_a", first.ID)
	assert.Equal(t, "get_weather", first.Name)
	assert.Equal(t, `{"city": "Paris"}`, first.RawArguments)
	assert.Equal(t, map[string]any{"city": "Paris"}, first.Arguments)
	assert.Empty(t, first.ParseError)

	second := tr.ToolCalls[1]
	assert.Equal(t, "call_b", second.ID)
	assert.Empty(t, second.Arguments)
}

func TestAccumulator_IndexOrderNotArrivalOrder(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Chunk{ToolCalls: []ToolCallDelta{{Index: 2, ID: "c", Name: "third", Arguments: `{"n": 3}`}}})
	acc.Add(Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "a", Name: "first", Arguments: `{"n": 1}`}}})

	tr := acc.Turn()
	require.Len(t, tr.ToolCalls, 2)
	assert.Equal(t, "first", tr.ToolCalls[0].Name)
	assert.Equal(t, "third", tr.ToolCalls[1].Name)
	assert.Equal(t, json.Number("3"), tr.ToolCalls[1].Arguments["n"])
}

func TestAccumulator_FirstIDAndNameWin(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "f"}}})
	acc.Add(Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_2", Name: "g", Arguments: `{}`}}})

	tr := acc.Turn()
	require.Len(t, tr.ToolCalls, 1)
	assert.Equal(t, "call_1", tr.ToolCalls[0].ID)
	assert.Equal(t, "f", tr.ToolCalls[0].Name)
}

func TestAccumulator_IncompleteArguments(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "c1", Name: "f", Arguments: `{"x": `}}})

	tr := acc.Turn()
	require.Len(t, tr.ToolCalls, 1)
	assert.NotEmpty(t, tr.ToolCalls[0].ParseError)
	assert.Equal(t, RoleAssistant, tr.Role, "role defaults to assistant")
}

func TestAccumulator_LastFinishReasonWins(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Chunk{FinishReason: FinishToolCalls})
	acc.Add(Chunk{Content: "x"})
	acc.Add(Chunk{FinishReason: FinishStop})

	assert.Equal(t, FinishStop, acc.Turn().FinishReason)
}
