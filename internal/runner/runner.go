package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/callbench/internal/judge"
	"github.com/roach88/callbench/internal/matcher"
	"github.com/roach88/callbench/internal/provider"
	"github.com/roach88/callbench/internal/suite"
	"github.com/roach88/callbench/internal/turn"
	"github.com/roach88/callbench/internal/verdict"
)

// Options tune how sessions are driven.
type Options struct {
	// ModelName is sent with every request and recorded on verdicts.
	ModelName string

	// Delay is slept between consecutive turns of one session.
	Delay time.Duration

	// Concurrency bounds how many cases RunSuite runs at once. Values
	// below 1 mean sequential.
	Concurrency int

	// ArgumentPolicy selects how call arguments are compared.
	ArgumentPolicy matcher.ArgumentPolicy
}

// Clock supplies wall-clock time for run records.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Runner drives sessions for one model under test.
// It is safe for concurrent use when its Model and Judge are.
type Runner struct {
	model  provider.Model
	judge  judge.Judge
	opts   Options
	logger *slog.Logger
	ids    RunIDGenerator
	clock  Clock
}

// Option configures a Runner.
type Option func(*Runner)

// WithJudge sets the judge for cases with a final-answer criterion.
func WithJudge(j judge.Judge) Option {
	return func(r *Runner) { r.judge = j }
}

// WithLogger sets the logger. Discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRunIDGenerator overrides the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(r *Runner) { r.ids = g }
}

// WithClock overrides the system clock.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// New creates a runner for model.
func New(model provider.Model, opts Options, options ...Option) *Runner {
	r := &Runner{
		model:  model,
		opts:   opts,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:    UUIDv7Generator{},
		clock:  systemClock{},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Run drives one case to its verdict.
func (r *Runner) Run(ctx context.Context, c *suite.Case) verdict.Verdict {
	v := verdict.Verdict{
		TestID:     c.ID,
		Model:      r.opts.ModelName,
		Categories: c.Categories,
		Pass:       true,
		CaseDigest: c.Digest,
	}
	v.Diagnostics.Expected = c.ExpectedRaw

	if c.Script == nil {
		v.Fail(verdict.Newf(verdict.KindValidationError, 0, "test case has no expected-call script"))
		return v
	}

	functions, err := json.Marshal(c.Functions)
	if err != nil {
		v.Fail(verdict.Wrap(verdict.KindValidationError, fmt.Errorf("encode available functions: %w", err)))
		return v
	}
	v.Diagnostics.Functions = functions

	log := r.logger.With("test_id", c.ID)
	sess := matcher.NewSession(c.Script, Seed(c), matcher.Options{ArgumentPolicy: r.opts.ArgumentPolicy})

	for step := 1; !sess.Done(); step++ {
		if step > 1 {
			if err := sleep(ctx, r.opts.Delay); err != nil {
				v.Fail(verdict.Wrap(verdict.KindTransportError, fmt.Errorf("session aborted before turn %d: %w", step, err)))
				break
			}
		}

		resp, err := r.model.Complete(ctx, provider.Request{
			Model:     r.opts.ModelName,
			Messages:  sess.Transcript(),
			Functions: c.Functions,
		})
		if err != nil {
			log.Warn("model call failed", "turn", step, "error", err)
			v.Fail(verdict.Wrap(verdict.KindTransportError, fmt.Errorf("model call for turn %d: %w", step, err)))
			break
		}

		if len(resp.Raw) > 0 {
			v.Diagnostics.Responses = append(v.Diagnostics.Responses, resp.Raw)
		}
		v.Diagnostics.Actual = append(v.Diagnostics.Actual, resp.Turn.ToolCalls...)

		out := sess.Step(resp.Turn)
		log.Debug("turn processed",
			"turn", step,
			"finish_reason", resp.Turn.FinishReason,
			"tool_calls", len(resp.Turn.ToolCalls),
			"matched", len(out.Matches),
			"phase", out.Phase.String(),
		)
	}

	v.Diagnostics.Messages = sess.Transcript()
	if v.Failure != nil {
		return v
	}
	if f := sess.Failure(); f != nil {
		log.Info("session failed", "kind", f.Kind, "message", f.Message)
		v.Fail(f)
		return v
	}

	if c.FinalAnswerShould != "" {
		r.judgeAnswer(ctx, log, c, sess.Answers(), &v)
	}
	return v
}

func (r *Runner) judgeAnswer(ctx context.Context, log *slog.Logger, c *suite.Case, answers []string, v *verdict.Verdict) {
	if r.judge == nil {
		log.Warn("final answer criterion set but no judge configured; skipping")
		return
	}

	d, err := r.judge.Judge(ctx, judge.Request{
		FinalAnswer:       judge.Join(answers),
		FinalAnswerShould: c.FinalAnswerShould,
	})
	if err != nil {
		var f *verdict.Failure
		if !errors.As(err, &f) {
			f = verdict.Wrap(verdict.KindTransportError, fmt.Errorf("judge: %w", err))
		}
		v.Fail(f)
		return
	}

	v.JudgeReasoning = d.Reasoning
	if !d.Correct {
		f := verdict.Newf(verdict.KindFinalAnswerRejected, 0, "judge rejected the final answer: %s", d.Reasoning)
		f.Expected = c.FinalAnswerShould
		f.Actual = judge.Join(answers)
		v.Fail(f)
	}
}

// Seed returns the opening transcript of a case: the system prompt when
// present, then the user prompt.
func Seed(c *suite.Case) []turn.Message {
	var msgs []turn.Message
	if c.SystemPrompt != "" {
		msgs = append(msgs, turn.SystemMessage(c.SystemPrompt))
	}
	return append(msgs, turn.UserMessage(c.Prompt))
}

// LoadErrorVerdict reports a case that could not be loaded. The model is
// never called for it.
func (r *Runner) LoadErrorVerdict(e *suite.LoadError) verdict.Verdict {
	v := verdict.Verdict{
		TestID:     e.ID,
		Model:      r.opts.ModelName,
		Categories: e.Categories,
	}
	v.Fail(verdict.Wrap(verdict.KindValidationError, e.Err))
	return v
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
