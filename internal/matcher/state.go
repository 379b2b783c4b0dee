package matcher

import (
	"fmt"

	"github.com/roach88/callbench/internal/script"
	"github.com/roach88/callbench/internal/turn"
	"github.com/roach88/callbench/internal/verdict"
)

// Phase is the state machine position of a session.
type Phase int

const (
	// PhaseAwaitingTurn waits for the next model turn.
	PhaseAwaitingTurn Phase = iota

	// PhaseMatchingCalls pairs produced calls against the script.
	PhaseMatchingCalls

	// PhaseAdvancing is a turn that was fully absorbed with script left over.
	PhaseAdvancing

	// PhaseTerminated is a satisfied script.
	PhaseTerminated

	// PhaseFailed is a violated contract.
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingTurn:
		return "awaiting_turn"
	case PhaseMatchingCalls:
		return "matching_calls"
	case PhaseAdvancing:
		return "advancing"
	case PhaseTerminated:
		return "terminated"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Done reports whether the phase is terminal.
func (p Phase) Done() bool {
	return p == PhaseTerminated || p == PhaseFailed
}

// State is the cursor over one matching session.
//
// Remaining is the working copy of the script. Group nodes in it are never
// mutated in place; consuming a member replaces the node, so copies of a
// State taken before a transition stay valid.
type State struct {
	Remaining  []script.Node
	CallIndex  int
	Answers    []string
	Transcript []turn.Message
	Phase      Phase
	Failure    *verdict.Failure
}

// NewState starts a session over a working copy of s.
// The transcript seeds the conversation, usually the system and user prompts.
func NewState(s *script.Script, transcript []turn.Message) State {
	seed := make([]turn.Message, len(transcript))
	copy(seed, transcript)
	return State{
		Remaining:  s.Nodes(),
		CallIndex:  1,
		Transcript: seed,
		Phase:      PhaseAwaitingTurn,
	}
}

func (s State) clone() State {
	cp := s
	cp.Remaining = append([]script.Node(nil), s.Remaining...)
	cp.Answers = append([]string(nil), s.Answers...)
	cp.Transcript = append([]turn.Message(nil), s.Transcript...)
	return cp
}

// volumeCap is the largest number of calls one turn may still produce:
// every required single call plus every unmatched group member.
func volumeCap(nodes []script.Node) int {
	n := 0
	for _, node := range nodes {
		switch v := node.(type) {
		case *script.Call:
			if !v.IsSentinel() && !v.Optional {
				n++
			}
		case *script.Group:
			n += len(v.AnyOrder)
		}
	}
	return n
}

// hasCalls reports whether any node can still absorb a produced call.
func hasCalls(nodes []script.Node) bool {
	for _, node := range nodes {
		switch v := node.(type) {
		case *script.Call:
			if !v.IsSentinel() {
				return true
			}
		case *script.Group:
			return true
		}
	}
	return false
}

// outstanding returns the required atomic calls left in nodes.
func outstanding(nodes []script.Node) []*script.Call {
	var calls []*script.Call
	for _, node := range nodes {
		switch v := node.(type) {
		case *script.Call:
			if !v.IsSentinel() && !v.Optional {
				calls = append(calls, v)
			}
		case *script.Group:
			for _, m := range v.AnyOrder {
				if !m.Optional {
					calls = append(calls, m)
				}
			}
		}
	}
	return calls
}
