package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/callbench/internal/judge"
	"github.com/roach88/callbench/internal/provider"
	"github.com/roach88/callbench/internal/turn"
)

func request(prompt string) provider.Request {
	return provider.Request{
		Model:    "m",
		Messages: []turn.Message{turn.SystemMessage("s"), turn.UserMessage(prompt)},
	}
}

func TestScriptedModel_ReplaysInOrder(t *testing.T) {
	m := NewScriptedModel(
		Reply{Turn: ToolTurn(Call("c1", "f", `{"x":1}`))},
		Reply{Turn: StopTurn("done")},
	)

	first, err := m.Complete(context.Background(), request("p"))
	require.NoError(t, err)
	assert.Equal(t, turn.RoleAssistant, first.Turn.Role)
	assert.Equal(t, turn.FinishToolCalls, first.Turn.FinishReason)
	require.Len(t, first.Turn.ToolCalls, 1)
	assert.Equal(t, "c1", first.Turn.ToolCalls[0].ID)
	assert.JSONEq(t, `{"step":1}`, string(first.Raw))

	second, err := m.Complete(context.Background(), request("p"))
	require.NoError(t, err)
	assert.Equal(t, "done", second.Turn.Text())
	assert.Equal(t, 2, m.Steps())
}

func TestScriptedModel_Exhausted(t *testing.T) {
	m := NewScriptedModel()
	_, err := m.Complete(context.Background(), request("p"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script exhausted at step 1")
}

func TestScriptedModel_ReturnsScriptedError(t *testing.T) {
	boom := errors.New("boom")
	m := NewScriptedModel(Reply{Err: boom})

	_, err := m.Complete(context.Background(), request("p"))
	assert.ErrorIs(t, err, boom)
}

func TestScriptedModel_RecordsRequestSnapshots(t *testing.T) {
	m := NewScriptedModel(Reply{Turn: StopTurn("")})
	req := request("p")

	_, err := m.Complete(context.Background(), req)
	require.NoError(t, err)
	req.Messages[1] = turn.UserMessage("mutated")

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "p", reqs[0].Messages[1].Text())
}

func TestScriptedModel_CanceledContext(t *testing.T) {
	m := NewScriptedModel(Reply{Turn: StopTurn("")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, request("p"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Steps())
}

func TestScriptedModels_RoutesByPrompt(t *testing.T) {
	models := NewScriptedModels()
	a := models.Add("a", Reply{Turn: StopTurn("from a")})
	models.Add("b", Reply{Turn: StopTurn("from b")})

	resp, err := models.Complete(context.Background(), request("b"))
	require.NoError(t, err)
	assert.Equal(t, "from b", resp.Turn.Text())
	assert.Equal(t, 0, a.Steps())

	_, err = models.Complete(context.Background(), request("missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no scripted model for prompt "missing"`)
}

func TestStaticJudge_RecordsRequests(t *testing.T) {
	j := &StaticJudge{Decision: judge.Decision{Correct: true, Reasoning: "fine"}}

	d, err := j.Judge(context.Background(), judge.Request{FinalAnswer: "x", FinalAnswerShould: "y"})
	require.NoError(t, err)
	assert.True(t, d.Correct)
	require.Len(t, j.Requests(), 1)
	assert.Equal(t, "y", j.Requests()[0].FinalAnswerShould)
}

func TestStopTurn_EmptyContentIsNil(t *testing.T) {
	assert.Nil(t, StopTurn("").Content)
	assert.Equal(t, turn.FinishStop, StopTurn("").FinishReason)
}
