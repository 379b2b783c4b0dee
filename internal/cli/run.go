package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/callbench/internal/config"
	"github.com/roach88/callbench/internal/judge"
	"github.com/roach88/callbench/internal/provider"
	"github.com/roach88/callbench/internal/report"
	"github.com/roach88/callbench/internal/runner"
	"github.com/roach88/callbench/internal/store"
	"github.com/roach88/callbench/internal/suite"
	"github.com/roach88/callbench/internal/verdict"
)

// ModelFactory builds the model under test and the completer backing the
// judge. A nil completer disables judging.
type ModelFactory func(cfg *config.Config, logger *slog.Logger) (provider.Model, judge.Completer)

func openAIFactory(cfg *config.Config, logger *slog.Logger) (provider.Model, judge.Completer) {
	p := provider.NewOpenAI(provider.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Stream:     cfg.Stream,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.Timeout,
	}, logger)
	return p, p
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter     string   // test id glob
	Categories []string // keep only these categories
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	RunID     string            `json:"run_id"`
	Model     string            `json:"model"`
	Suite     string            `json:"suite"`
	StartedAt time.Time         `json:"started_at"`
	Verdicts  []verdict.Verdict `json:"verdicts"`
	Summary   report.Summary    `json:"summary"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite-dir>",
		Short: "Run a benchmark suite against a model",
		Long: `Run every test case of a suite directory against an OpenAI-compatible model.

Settings come from flags, then BENCHMARK_* environment variables
(BENCHMARK_API_KEY, BENCHMARK_BASE_URL, BENCHMARK_MODEL, ...), then --config.

Exit codes:
  0 - All tests passed
  1 - One or more tests failed
  2 - Command error (invalid configuration, missing directory, etc.)

Examples:
  callbench run tests/baseline --model gpt-4o-mini
  callbench run tests/baseline --filter "weather.json-*" --stream
  callbench run tests/baseline --category parallel --db results.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(opts, args[0], cmd)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter tests by id glob, e.g. \"weather.json-*\"")
	cmd.Flags().StringSliceVar(&opts.Categories, "category", nil, "only run tests in these categories")

	return cmd
}

func runBenchmark(opts *RunOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.Logger()

	cfg, err := config.Load(cmd.Flags(), opts.ConfigFile)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	s, err := loadSuite(dir, suite.Filter{IDPattern: opts.Filter, Categories: opts.Categories})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "failed to load suite", err)
	}
	f.VerboseLog("Loaded %d test case(s) and %d load error(s) from %s", len(s.Cases), len(s.Errors), dir)

	if s.Len() == 0 {
		if f.IsJSON() {
			return f.Success(RunResult{Model: cfg.Model, Suite: dir, Verdicts: []verdict.Verdict{}, Summary: report.Summarize(nil)})
		}
		fmt.Fprintln(f.Writer, "No test cases found.")
		return nil
	}

	factory := opts.NewModel
	if factory == nil {
		factory = openAIFactory
	}
	model, completer := factory(cfg, logger)

	runnerOpts := []runner.Option{runner.WithLogger(logger)}
	if completer != nil {
		runnerOpts = append(runnerOpts, runner.WithJudge(judge.NewLLM(completer, cfg.JudgeModel, judge.WithLogger(logger))))
	}
	r := runner.New(model, runner.Options{
		ModelName:      cfg.Model,
		Delay:          cfg.Delay,
		Concurrency:    cfg.Concurrency,
		ArgumentPolicy: cfg.ArgumentPolicy,
	}, runnerOpts...)

	ctx := commandContext(cmd)
	run := r.RunSuite(ctx, s.Cases, s.Errors)
	run.Suite = dir

	if cfg.DB != "" {
		if err := persistRun(ctx, cfg.DB, run); err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to store results", err)
		}
		f.VerboseLog("Stored run %s in %s", run.ID, cfg.DB)
	}

	summary := report.Summarize(run.Verdicts)
	if f.IsJSON() {
		if err := f.Success(RunResult{
			RunID:     run.ID,
			Model:     run.Model,
			Suite:     run.Suite,
			StartedAt: run.StartedAt,
			Verdicts:  run.Verdicts,
			Summary:   summary,
		}); err != nil {
			return err
		}
	} else if err := outputRunText(f, run, summary); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d tests failed", summary.Failed, summary.Total))
	}
	return nil
}

func loadSuite(dir string, filter suite.Filter) (*suite.Suite, error) {
	s, err := suite.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return filter.Apply(s)
}

func persistRun(ctx context.Context, path string, run *runner.Run) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.WriteResults(ctx, store.Run{
		ID:        run.ID,
		Model:     run.Model,
		Suite:     run.Suite,
		StartedAt: run.StartedAt,
	}, run.Verdicts)
}

func outputRunText(f *OutputFormatter, run *runner.Run, summary report.Summary) error {
	w := f.Writer
	for _, v := range run.Verdicts {
		if v.Pass {
			fmt.Fprintf(w, "✓ %s\n", v.TestID)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", v.TestID)
		fmt.Fprintf(w, "  %s\n", v.Failure.Error())
		if v.JudgeReasoning != "" && v.Kind() != verdict.KindFinalAnswerRejected {
			fmt.Fprintf(w, "  judge: %s\n", v.JudgeReasoning)
		}
		if f.Verbose {
			dumpDiagnostics(f, v)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Benchmark Summary (%s, run %s)\n", run.Model, run.ID)
	return summary.WriteText(w)
}

// dumpDiagnostics writes the transcript and raw responses of a failed test
// to the diagnostic writer.
func dumpDiagnostics(f *OutputFormatter, v verdict.Verdict) {
	data, err := json.MarshalIndent(v.Diagnostics, "  ", "  ")
	if err != nil {
		f.VerboseLog("  diagnostics unavailable: %v", err)
		return
	}
	f.VerboseLog("  diagnostics: %s", data)
}
