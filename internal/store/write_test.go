package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/callbench/internal/verdict"
)

var started = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-1", "gpt-test", started)

	require.NoError(t, s.WriteRun(ctx, run))
	require.NoError(t, s.WriteRun(ctx, run))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWriteVerdict_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteVerdict(context.Background(), "missing", 0, passingVerdict("a.json-0", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write verdict a.json-0")
}

func TestWriteVerdict_StoresFlatColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "m", started)))

	v := failingVerdict("a.json-0", verdict.KindUnmatchedGroupCall, "parallel")
	require.NoError(t, s.WriteVerdict(ctx, "run-1", 0, v))

	var (
		pass       int
		kind       string
		message    string
		categories string
	)
	err := s.db.QueryRow("SELECT pass, kind, message, categories FROM verdicts WHERE run_id = ? AND seq = 0", "run-1").
		Scan(&pass, &kind, &message, &categories)
	require.NoError(t, err)
	assert.Equal(t, 0, pass)
	assert.Equal(t, "UnmatchedGroupCall", kind)
	assert.Equal(t, "boom", message)
	assert.Equal(t, `["parallel"]`, categories)
}

func TestWriteVerdict_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "m", started)))

	require.NoError(t, s.WriteVerdict(ctx, "run-1", 0, passingVerdict("first", "x")))
	require.NoError(t, s.WriteVerdict(ctx, "run-1", 0, passingVerdict("second", "x")))

	verdicts, err := s.ReadVerdicts(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.Equal(t, "first", verdicts[0].TestID)
}

func TestWriteResults_Transactional(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-1", "m", started)

	bad := passingVerdict("bad", "x")
	bad.Failure = &verdict.Failure{Kind: verdict.KindTransportError, Message: "x", Expected: func() {}}

	err := s.WriteResults(ctx, run, []verdict.Verdict{passingVerdict("ok", "x"), bad})
	require.Error(t, err)

	_, err = s.ReadRun(ctx, "run-1")
	assert.True(t, errors.Is(err, ErrNotFound), "run should have been rolled back, got %v", err)
}

func TestWriteResults_WritesAll(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-1", "m", started)

	err := s.WriteResults(ctx, run, []verdict.Verdict{
		passingVerdict("a.json-0", "x"),
		failingVerdict("a.json-1", verdict.KindMissingCallID, "y"),
	})
	require.NoError(t, err)

	verdicts, err := s.ReadVerdicts(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, verdicts, 2)
	assert.Equal(t, "a.json-0", verdicts[0].TestID)
	assert.Equal(t, "a.json-1", verdicts[1].TestID)
}
