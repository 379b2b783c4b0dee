package runner

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/callbench/internal/canon"
	"github.com/roach88/callbench/internal/turn"
	"github.com/roach88/callbench/internal/verdict"
)

// TranscriptSnapshot is the golden-file view of a verdict: the outcome and
// the conversation, without raw provider payloads.
type TranscriptSnapshot struct {
	TestID   string         `json:"test_id"`
	Pass     bool           `json:"pass"`
	Kind     verdict.Kind   `json:"kind,omitempty"`
	Messages []turn.Message `json:"messages"`
}

// Snapshot renders v as indented canonical JSON.
func Snapshot(v verdict.Verdict) ([]byte, error) {
	data, err := canon.Marshal(TranscriptSnapshot{
		TestID:   v.TestID,
		Pass:     v.Pass,
		Kind:     v.Kind(),
		Messages: v.Diagnostics.Messages,
	})
	if err != nil {
		return nil, err
	}
	return canon.Indent(data)
}

// AssertGolden compares the transcript of v against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/runner -update
func AssertGolden(t *testing.T, name string, v verdict.Verdict) {
	t.Helper()

	data, err := Snapshot(v)
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
