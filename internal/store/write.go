package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/callbench/internal/verdict"
)

// Run is a stored suite run.
type Run struct {
	ID        string
	Model     string
	Suite     string
	StartedAt time.Time
}

// timeLayout is fixed width so started_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	return writeRun(ctx, s.db, run)
}

// WriteVerdict inserts the verdict at position seq of run runID.
// The run must exist (foreign key constraint). Writing the same
// (runID, seq) twice is silently ignored.
func (s *Store) WriteVerdict(ctx context.Context, runID string, seq int, v verdict.Verdict) error {
	return writeVerdict(ctx, s.db, runID, seq, v)
}

// WriteResults stores a run and all of its verdicts in one transaction.
// Verdict seq is the slice position.
func (s *Store) WriteResults(ctx context.Context, run Run, verdicts []verdict.Verdict) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err := writeRun(ctx, tx, run); err != nil {
		return err
	}
	for i, v := range verdicts {
		if err := writeVerdict(ctx, tx, run.ID, i, v); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

func writeRun(ctx context.Context, ex execer, run Run) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO runs (id, model, suite, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Model,
		run.Suite,
		run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

func writeVerdict(ctx context.Context, ex execer, runID string, seq int, v verdict.Verdict) error {
	categories, err := marshalCategories(v.Categories)
	if err != nil {
		return fmt.Errorf("write verdict %s: %w", v.TestID, err)
	}
	failure, err := marshalFailure(v.Failure)
	if err != nil {
		return fmt.Errorf("write verdict %s: %w", v.TestID, err)
	}
	diagnostics, err := marshalDiagnostics(v.Diagnostics)
	if err != nil {
		return fmt.Errorf("write verdict %s: %w", v.TestID, err)
	}

	var kind, message string
	if v.Failure != nil {
		kind = string(v.Failure.Kind)
		message = v.Failure.Message
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO verdicts
		(run_id, seq, test_id, pass, kind, message, categories, case_digest, judge_reasoning, failure, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		seq,
		v.TestID,
		v.Pass,
		kind,
		message,
		categories,
		v.CaseDigest,
		v.JudgeReasoning,
		failure,
		diagnostics,
	)
	if err != nil {
		return fmt.Errorf("write verdict %s: %w", v.TestID, err)
	}
	return nil
}
