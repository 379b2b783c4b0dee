package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/callbench/internal/turn"
	"github.com/roach88/callbench/internal/verdict"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id, model string, startedAt time.Time) Run {
	return Run{ID: id, Model: model, Suite: "tests/baseline", StartedAt: startedAt}
}

// passingVerdict creates a passing verdict with a small transcript.
func passingVerdict(testID string, categories ...string) verdict.Verdict {
	return verdict.Verdict{
		TestID:     testID,
		Categories: categories,
		Pass:       true,
		CaseDigest: "digest-" + testID,
		Diagnostics: verdict.Diagnostics{
			Messages: []turn.Message{turn.UserMessage("hi")},
			Actual:   []turn.ToolCall{turn.NewToolCall("c1", "f", `{"n":1}`)},
		},
	}
}

// failingVerdict creates a verdict failed with kind.
func failingVerdict(testID string, kind verdict.Kind, categories ...string) verdict.Verdict {
	v := passingVerdict(testID, categories...)
	f := verdict.Newf(kind, 2, "boom")
	f.Expected = "get_weather"
	v.Fail(f)
	return v
}
