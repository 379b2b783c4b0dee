// Package matcher reconciles an expected-call script against the turns a
// model produces, one turn at a time.
//
// The matcher is a state machine:
//
//	AwaitingTurn → MatchingCalls → (Advancing | Terminated | Failed)
//
// Advance is the single transition function. It takes a State and one
// normalized turn and returns the next State plus an Outcome; it never
// mutates its input and never performs I/O, so every transition can be
// tested without a model. Session wraps Advance for callers that drive a
// conversation.
//
// Per turn, in order:
//  1. The turn's role must be assistant (ProtocolViolation).
//  2. The model's message joins the transcript; non-empty content is kept as an answer.
//  3. The turn may not carry more calls than the script can absorb (UnexpectedCallVolume).
//  4. With no call-bearing nodes left, or no calls in the turn, the finish
//     reason must be stop (UnexpectedContinuation); the session then terminates
//     and outstanding required calls fail it (IncompleteRequiredCalls).
//  5. Otherwise each produced call is paired against the front of the script.
//
// Within one turn a partially consumed any-order group stays at the front
// of the script, so it gets first claim on every later call of that turn.
// A call that matches none of its members fails with UnmatchedGroupCall
// unless every remaining member is optional, in which case the group is
// dropped and the call is paired with the next node.
package matcher
