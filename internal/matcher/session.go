package matcher

import (
	"github.com/roach88/callbench/internal/script"
	"github.com/roach88/callbench/internal/turn"
	"github.com/roach88/callbench/internal/verdict"
)

// Session owns the state of one matching session.
// It is not safe for concurrent use; turns must be stepped in emission order.
type Session struct {
	state State
	opts  Options
}

// NewSession starts a session over a working copy of s.
func NewSession(s *script.Script, transcript []turn.Message, opts Options) *Session {
	return &Session{state: NewState(s, transcript), opts: opts}
}

// Step advances the session by one turn.
func (s *Session) Step(t turn.Turn) Outcome {
	next, out := Advance(s.state, t, s.opts)
	s.state = next
	return out
}

// Done reports whether the session reached a terminal phase.
func (s *Session) Done() bool {
	return s.state.Phase.Done()
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	return s.state.Phase
}

// Failure returns the violated contract, or nil.
func (s *Session) Failure() *verdict.Failure {
	return s.state.Failure
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []turn.Message {
	return append([]turn.Message(nil), s.state.Transcript...)
}

// Answers returns a copy of the accumulated free-text fragments.
func (s *Session) Answers() []string {
	return append([]string(nil), s.state.Answers...)
}

// State returns a snapshot of the session state.
func (s *Session) State() State {
	return s.state.clone()
}
