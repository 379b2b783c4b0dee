package matcher

import (
	"github.com/roach88/callbench/internal/script"
	"github.com/roach88/callbench/internal/turn"
	"github.com/roach88/callbench/internal/verdict"
)

// Options configures matching.
type Options struct {
	// ArgumentPolicy defaults to PolicyStrict.
	ArgumentPolicy ArgumentPolicy
}

func (o Options) policy() ArgumentPolicy {
	if o.ArgumentPolicy == "" {
		return PolicyStrict
	}
	return o.ArgumentPolicy
}

// Match records one produced call absorbed by the script.
type Match struct {
	CallIndex int           `json:"call_index"`
	Expected  *script.Call  `json:"expected"`
	Actual    turn.ToolCall `json:"actual"`
}

// Outcome is the result of one transition.
type Outcome struct {
	Phase   Phase
	Failure *verdict.Failure
	Matches []Match
}

// Advance applies one model turn to st and returns the next state.
// st is not modified. A state that is already terminal is returned as is.
func Advance(st State, t turn.Turn, opts Options) (State, Outcome) {
	if st.Phase.Done() {
		return st, Outcome{Phase: st.Phase, Failure: st.Failure}
	}

	next := st.clone()
	next.Phase = PhaseMatchingCalls
	out := Outcome{}

	fail := func(f *verdict.Failure) (State, Outcome) {
		next.Phase = PhaseFailed
		next.Failure = f
		out.Phase = PhaseFailed
		out.Failure = f
		return next, out
	}

	if t.Role != turn.RoleAssistant {
		f := verdict.Newf(verdict.KindProtocolViolation, next.CallIndex,
			"turn role is %q, want %q", t.Role, turn.RoleAssistant)
		f.Actual = t.Role
		return fail(f)
	}

	next.Transcript = append(next.Transcript, t.Message())
	if text := t.Text(); text != "" {
		next.Answers = append(next.Answers, text)
	}

	produced := len(t.ToolCalls)
	if limit := volumeCap(next.Remaining); produced > limit {
		f := verdict.Newf(verdict.KindUnexpectedCallVolume, next.CallIndex,
			"turn produced %d tool calls but the script can absorb at most %d", produced, limit)
		f.Expected = limit
		f.Actual = t.ToolCalls
		return fail(f)
	}

	if !hasCalls(next.Remaining) || produced == 0 {
		if t.FinishReason != turn.FinishStop {
			f := verdict.Newf(verdict.KindUnexpectedContinuation, next.CallIndex,
				"finish reason is %q with %d tool calls, want %q", t.FinishReason, produced, turn.FinishStop)
			f.Expected = turn.FinishStop
			f.Actual = t.FinishReason
			return fail(f)
		}
		return finalize(next, out)
	}

	policy := opts.policy()
	for i, call := range t.ToolCalls {
		if call.ID == "" {
			f := verdict.Newf(verdict.KindMissingCallID, next.CallIndex,
				"tool call %q has no id", call.Name)
			f.Actual = call
			return fail(f)
		}

		m, f := pair(&next, call, policy)
		if f != nil {
			if f.Kind == verdict.KindExtraUnconsumedCalls {
				f.Actual = t.ToolCalls[i:]
			}
			return fail(f)
		}

		next.Transcript = append(next.Transcript,
			turn.ToolResultMessage(call.ID, m.Expected.Name, m.Expected.Result))
		out.Matches = append(out.Matches, m)
		next.CallIndex++
	}

	// Advancing is reported for the turn; the session itself waits for the next one
	next.Phase = PhaseAwaitingTurn
	out.Phase = PhaseAdvancing
	return next, out
}

// pair consumes the script node that absorbs call, discarding optional
// nodes that do not match it.
func pair(st *State, call turn.ToolCall, policy ArgumentPolicy) (Match, *verdict.Failure) {
	for {
		if len(st.Remaining) == 0 {
			return Match{}, verdict.Newf(verdict.KindExtraUnconsumedCalls, st.CallIndex,
				"tool call %q has no expected call left to pair with", call.Name)
		}

		switch node := st.Remaining[0].(type) {
		case *script.Group:
			idx := findMember(node, call, policy)
			if idx < 0 {
				if allOptional(node) {
					st.Remaining = st.Remaining[1:]
					continue
				}
				f := verdict.Newf(verdict.KindUnmatchedGroupCall, st.CallIndex,
					"tool call %q matches no remaining any_order member", call.Name)
				f.Expected = node.AnyOrder
				f.Actual = call
				return Match{}, f
			}

			expected := node.AnyOrder[idx]
			rest := make([]*script.Call, 0, len(node.AnyOrder)-1)
			rest = append(rest, node.AnyOrder[:idx]...)
			rest = append(rest, node.AnyOrder[idx+1:]...)
			if len(rest) > 0 {
				st.Remaining[0] = &script.Group{AnyOrder: rest}
			} else {
				st.Remaining = st.Remaining[1:]
			}
			return Match{CallIndex: st.CallIndex, Expected: expected, Actual: call}, nil

		case *script.Call:
			if node.IsSentinel() {
				f := verdict.Newf(verdict.KindUnexpectedContinuation, st.CallIndex,
					"expected the model to stop, got tool call %q", call.Name)
				f.Expected = turn.FinishStop
				f.Actual = call
				return Match{}, f
			}

			if !callEqual(node, call, policy) {
				if node.Optional {
					st.Remaining = st.Remaining[1:]
					continue
				}
				return Match{}, mismatch(st.CallIndex, node, call)
			}

			st.Remaining = st.Remaining[1:]
			return Match{CallIndex: st.CallIndex, Expected: node, Actual: call}, nil

		default:
			panic("matcher: unknown script node type")
		}
	}
}

func mismatch(callIndex int, expected *script.Call, call turn.ToolCall) *verdict.Failure {
	var f *verdict.Failure
	switch {
	case call.Name != expected.Name:
		f = verdict.Newf(verdict.KindUnexpectedFunctionOrArguments, callIndex,
			"expected function %q, got %q", expected.Name, call.Name)
	case call.ParseError != "":
		f = verdict.Newf(verdict.KindUnexpectedFunctionOrArguments, callIndex,
			"arguments of %q could not be parsed: %s", call.Name, call.ParseError)
	default:
		f = verdict.Newf(verdict.KindUnexpectedFunctionOrArguments, callIndex,
			"arguments of %q do not match", call.Name)
	}
	f.Expected = expected
	f.Actual = call
	return f
}

func callEqual(expected *script.Call, call turn.ToolCall, policy ArgumentPolicy) bool {
	if call.ParseError != "" || expected.Name != call.Name {
		return false
	}
	return Equal(expected.Arguments, call.Arguments, policy)
}

func findMember(g *script.Group, call turn.ToolCall, policy ArgumentPolicy) int {
	for i, m := range g.AnyOrder {
		if callEqual(m, call, policy) {
			return i
		}
	}
	return -1
}

func allOptional(g *script.Group) bool {
	for _, m := range g.AnyOrder {
		if !m.Optional {
			return false
		}
	}
	return true
}

// finalize terminates the session, failing it when required calls are left.
func finalize(st State, out Outcome) (State, Outcome) {
	if left := outstanding(st.Remaining); len(left) > 0 {
		f := verdict.Newf(verdict.KindIncompleteRequiredCalls, st.CallIndex,
			"model stopped with %d required calls outstanding, next %q", len(left), left[0].Name)
		f.Expected = left
		st.Phase = PhaseFailed
		st.Failure = f
		out.Phase = PhaseFailed
		out.Failure = f
		return st, out
	}

	st.Phase = PhaseTerminated
	out.Phase = PhaseTerminated
	return st, out
}
