// Package provider sends benchmark conversations to an OpenAI-compatible
// chat completions endpoint and normalizes the replies into turns.
package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/roach88/callbench/internal/suite"
	"github.com/roach88/callbench/internal/turn"
)

// ErrNoChoices is returned when a response carries no choices.
var ErrNoChoices = errors.New("provider: response has no choices")

// Request is one model invocation.
type Request struct {
	Model     string
	Messages  []turn.Message
	Functions []suite.Function
}

// Response is one normalized model reply.
type Response struct {
	Turn turn.Turn

	// Raw is the provider payload: the completion object, or an array of
	// chunks when streaming.
	Raw json.RawMessage
}

// Model produces one turn per call.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
