package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/callbench/internal/suite"
)

// ValidationIssue is one problem found in a suite.
type ValidationIssue struct {
	TestID  string `json:"test_id"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Cases  int               `json:"cases"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Filter string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <suite-dir>",
		Short: "Validate a suite without calling a model",
		Long: `Load every test case of a suite directory and lint it.

Checks each case against the suite schema, validates its expected-call
script, and verifies that every expected call names a declared function
with arguments that satisfy the function's JSON Schema.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter tests by id glob")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	s, err := loadSuite(dir, suite.Filter{IDPattern: opts.Filter})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "failed to load suite", err)
	}
	f.VerboseLog("Loaded %d test case(s) from %s", len(s.Cases), dir)

	result := ValidationResult{Cases: s.Len(), Errors: []ValidationIssue{}}
	for _, e := range s.Errors {
		result.Errors = append(result.Errors, ValidationIssue{TestID: e.ID, Message: e.Err.Error()})
	}
	for _, issue := range suite.LintSuite(s) {
		msg := issue.Message
		if issue.Call != "" {
			msg = fmt.Sprintf("%s: %s", issue.Call, issue.Message)
		}
		result.Errors = append(result.Errors, ValidationIssue{TestID: issue.TestID, Message: msg})
	}
	result.Valid = len(result.Errors) == 0

	if f.IsJSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(f.Writer, "✓ All %d test case(s) valid\n", result.Cases)
	} else {
		for _, issue := range result.Errors {
			fmt.Fprintf(f.Writer, "✗ %s\n", issue.TestID)
			fmt.Fprintf(f.Writer, "  %s\n", issue.Message)
		}
		fmt.Fprintf(f.Writer, "\n%d problem(s) in %d test case(s)\n", len(result.Errors), result.Cases)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("suite has %d problem(s)", len(result.Errors)))
	}
	return nil
}
