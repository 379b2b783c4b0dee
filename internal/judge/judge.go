// Package judge delegates free-text answer evaluation to a secondary model.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/template"

	"github.com/roach88/callbench/internal/verdict"
)

// Request is what the judge rules on.
type Request struct {
	FinalAnswer       string `json:"final_answer"`
	FinalAnswerShould string `json:"final_answer_should"`
}

// Decision is the judge's ruling.
type Decision struct {
	Correct   bool   `json:"correct"`
	Reasoning string `json:"reasoning"`

	// Skipped is set when there was no criterion to judge against.
	Skipped bool `json:"-"`
}

// Judge rules on a final answer.
type Judge interface {
	Judge(ctx context.Context, req Request) (Decision, error)
}

// Completer sends one prompt to a model and returns its text reply.
// The reply is expected to be a JSON object.
type Completer interface {
	CompleteText(ctx context.Context, model, prompt string) (string, error)
}

// Join concatenates answer fragments in order, one per line.
func Join(answers []string) string {
	return strings.Join(answers, "\n")
}

var promptTemplate = template.Must(template.New("judge").Parse(`You are grading the final answer of an AI assistant that used tools to answer a user.

Decide whether the final answer satisfies the acceptance criterion. Judge only
the final answer against the criterion; ignore style unless the criterion asks for it.

Acceptance criterion:
{{.FinalAnswerShould}}

Final answer:
{{.FinalAnswer}}

Respond with a single JSON object and nothing else:
{"correct": true or false, "reasoning": "one or two sentences explaining the decision"}
`))

// Prompt renders the fixed judge instruction for req.
func Prompt(req Request) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("render judge prompt: %w", err)
	}
	return buf.String(), nil
}

// LLM is a Judge backed by a chat model.
type LLM struct {
	completer Completer
	model     string
	logger    *slog.Logger
}

// Option configures an LLM judge.
type Option func(*LLM)

// WithLogger sets the logger. Discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(j *LLM) { j.logger = l }
}

// NewLLM creates a judge that asks model through c.
func NewLLM(c Completer, model string, opts ...Option) *LLM {
	j := &LLM{
		completer: c,
		model:     model,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Judge implements Judge. An empty criterion is not sent to the model and passes.
func (j *LLM) Judge(ctx context.Context, req Request) (Decision, error) {
	if strings.TrimSpace(req.FinalAnswerShould) == "" {
		return Decision{Correct: true, Skipped: true}, nil
	}

	prompt, err := Prompt(req)
	if err != nil {
		return Decision{}, err
	}

	reply, err := j.completer.CompleteText(ctx, j.model, prompt)
	if err != nil {
		return Decision{}, verdict.Wrap(verdict.KindTransportError, fmt.Errorf("judge: %w", err))
	}

	d, err := ParseDecision(reply)
	if err != nil {
		j.logger.Debug("judge reply rejected", "model", j.model, "reply", reply, "error", err)
		return Decision{}, err
	}
	j.logger.Debug("judge decided", "model", j.model, "correct", d.Correct)
	return d, nil
}

// ParseDecision decodes the judge's two-field JSON contract.
// Invalid JSON or a missing or mistyped field is a JudgeContractViolation.
func ParseDecision(reply string) (Decision, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &fields); err != nil {
		return Decision{}, contractViolation(reply, "reply is not a JSON object: %v", err)
	}

	rawCorrect, ok := fields["correct"]
	if !ok || string(rawCorrect) == "null" {
		return Decision{}, contractViolation(reply, `reply is missing "correct"`)
	}
	rawReasoning, ok := fields["reasoning"]
	if !ok || string(rawReasoning) == "null" {
		return Decision{}, contractViolation(reply, `reply is missing "reasoning"`)
	}

	var d Decision
	if err := json.Unmarshal(rawCorrect, &d.Correct); err != nil {
		return Decision{}, contractViolation(reply, `"correct" must be a boolean`)
	}
	if err := json.Unmarshal(rawReasoning, &d.Reasoning); err != nil {
		return Decision{}, contractViolation(reply, `"reasoning" must be a string`)
	}
	return d, nil
}

func contractViolation(reply, format string, args ...any) *verdict.Failure {
	f := verdict.Newf(verdict.KindJudgeContractViolation, 0, format, args...)
	f.Actual = reply
	return f
}
