// Package verdict defines the failure taxonomy and the per-test result record
// produced by a benchmark session.
package verdict

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/callbench/internal/turn"
)

// Kind identifies the violated contract.
type Kind string

const (
	// KindValidationError is a malformed test case, detected before any model call.
	KindValidationError Kind = "ValidationError"

	// KindProtocolViolation is a turn with a role other than assistant.
	KindProtocolViolation Kind = "ProtocolViolation"

	// KindUnexpectedCallVolume is a turn with more calls than the script can absorb.
	KindUnexpectedCallVolume Kind = "UnexpectedCallVolume"

	// KindExtraUnconsumedCalls is a produced call left over after pairing.
	KindExtraUnconsumedCalls Kind = "ExtraUnconsumedCalls"

	// KindUnmatchedGroupCall is a call that matches no remaining member of an any-order group.
	KindUnmatchedGroupCall Kind = "UnmatchedGroupCall"

	// KindUnexpectedFunctionOrArguments is a name or argument mismatch against a single call.
	KindUnexpectedFunctionOrArguments Kind = "UnexpectedFunctionOrArguments"

	// KindMissingCallID is a produced call without an identifier.
	KindMissingCallID Kind = "MissingCallId"

	// KindUnexpectedContinuation is a model that kept calling tools when it should
	// have stopped, or stopped calling tools without the stop signal.
	KindUnexpectedContinuation Kind = "UnexpectedContinuation"

	// KindIncompleteRequiredCalls is a model that stopped with mandatory calls outstanding.
	KindIncompleteRequiredCalls Kind = "IncompleteRequiredCalls"

	// KindJudgeContractViolation is a malformed judge response.
	KindJudgeContractViolation Kind = "JudgeContractViolation"

	// KindFinalAnswerRejected is a judge ruling that the final answer is incorrect.
	KindFinalAnswerRejected Kind = "FinalAnswerRejected"

	// KindTransportError is a model or judge call that aborted the session.
	KindTransportError Kind = "TransportError"
)

// Failure is a violated contract with enough context to be reported as is.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// CallIndex is the 1-based diagnostic counter at the point of failure.
	CallIndex int `json:"call_index,omitempty"`

	// Expected and Actual hold the compared values, when there were any.
	Expected any `json:"expected,omitempty"`
	Actual   any `json:"actual,omitempty"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.CallIndex > 0 {
		return fmt.Sprintf("%s: %s (call %d)", f.Kind, f.Message, f.CallIndex)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Newf creates a Failure with a formatted message.
func Newf(kind Kind, callIndex int, format string, args ...any) *Failure {
	return &Failure{Kind: kind, CallIndex: callIndex, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a Failure of the given kind around err.
func Wrap(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Message: err.Error(), Err: err}
}

// KindOf returns the Kind of the first Failure in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Is reports whether err carries a Failure of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Diagnostics is the transcript attached to a verdict.
type Diagnostics struct {
	// Functions is the declared function list sent with every request.
	Functions json.RawMessage `json:"functions,omitempty"`

	// Messages is the conversation as sent to the model, plus the final turn.
	Messages []turn.Message `json:"messages,omitempty"`

	// Responses holds the raw provider responses, one per turn.
	Responses []json.RawMessage `json:"responses,omitempty"`

	// Expected is the declared expected-call script.
	Expected json.RawMessage `json:"expected,omitempty"`

	// Actual is every tool call the model produced, in emission order.
	Actual []turn.ToolCall `json:"actual,omitempty"`
}

// Verdict is the outcome of one test case against one model.
type Verdict struct {
	TestID     string   `json:"test_id"`
	Model      string   `json:"model"`
	Categories []string `json:"categories"`
	Pass       bool     `json:"pass"`

	// Failure is nil when Pass is true.
	Failure *Failure `json:"failure,omitempty"`

	// JudgeReasoning is the judge's explanation, when a judge ran.
	JudgeReasoning string `json:"judge_reasoning,omitempty"`

	// CaseDigest identifies the test case content the verdict was produced for.
	CaseDigest string `json:"case_digest,omitempty"`

	Diagnostics Diagnostics `json:"diagnostics"`
}

// Fail marks the verdict failed with f.
func (v *Verdict) Fail(f *Failure) {
	v.Pass = false
	v.Failure = f
}

// Kind returns the failure kind, or "" for a passing verdict.
func (v Verdict) Kind() Kind {
	if v.Failure == nil {
		return ""
	}
	return v.Failure.Kind
}
