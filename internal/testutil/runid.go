package testutil

// FixedRunIDGenerator returns the same run id every time, so stored runs and
// golden snapshots are byte-identical across test executions.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id.
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
//
// Implements runner.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
