package runner

import "github.com/google/uuid"

// RunIDGenerator creates run identifiers.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 run ids.
//
// UUIDv7 sorts by creation time, so the latest run of a results store is
// also the greatest id.
type UUIDv7Generator struct{}

// Generate returns a fresh UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
