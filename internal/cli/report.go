package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/callbench/internal/report"
	"github.com/roach88/callbench/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	DatabasePath string
	RunID        string
	Model        string
}

// ReportResult is the JSON payload of the report command.
type ReportResult struct {
	RunID     string         `json:"run_id"`
	Model     string         `json:"model"`
	Suite     string         `json:"suite"`
	StartedAt time.Time      `json:"started_at"`
	Summary   report.Summary `json:"summary"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a stored run",
		Long: `Print the passed/total tally of a run from the results database.

Without --run, the latest run is reported, optionally restricted to --model.

Examples:
  callbench report --db results.db
  callbench report --db results.db --model gpt-4o-mini
  callbench report --db results.db --run 0190b6b2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DatabasePath, "db", "", "path to the results database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "report the latest run of this model")
	_ = cmd.MarkFlagRequired("db")
	cmd.MarkFlagsMutuallyExclusive("run", "model")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	st, err := store.Open(opts.DatabasePath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open results database", err)
	}
	defer st.Close()

	var run store.Run
	if opts.RunID != "" {
		run, err = st.ReadRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx, opts.Model)
	}
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "no matching run found", nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	verdicts, err := st.ReadVerdicts(ctx, run.ID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read verdicts", err)
	}
	summary := report.Summarize(verdicts)

	if f.IsJSON() {
		return f.Success(ReportResult{
			RunID:     run.ID,
			Model:     run.Model,
			Suite:     run.Suite,
			StartedAt: run.StartedAt,
			Summary:   summary,
		})
	}

	fmt.Fprintf(f.Writer, "Run %s (%s, %s, %s)\n", run.ID, run.Model, run.Suite, run.StartedAt.Format(time.RFC3339))
	return summary.WriteText(f.Writer)
}
