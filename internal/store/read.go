package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/callbench/internal/verdict"
)

// ReadRun returns the run with the given id, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model, suite, started_at
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// LatestRun returns the most recently started run of model, or of any
// model when model is empty. Ties on started_at resolve to the greatest id.
func (s *Store) LatestRun(ctx context.Context, model string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model, suite, started_at
		FROM runs
		WHERE ? = '' OR model = ?
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, model, model)
	return scanRun(row)
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, suite, started_at
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadVerdicts returns the verdicts of run runID ordered by seq.
// Returns an empty slice (not nil) if the run has no verdicts.
func (s *Store) ReadVerdicts(ctx context.Context, runID string) ([]verdict.Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.test_id, r.model, v.pass, v.categories, v.case_digest, v.judge_reasoning, v.failure, v.diagnostics
		FROM verdicts v
		JOIN runs r ON v.run_id = r.id
		WHERE v.run_id = ?
		ORDER BY v.seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := []verdict.Verdict{}
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return verdicts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		startedAt string
	)
	if err := row.Scan(&run.ID, &run.Model, &run.Suite, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at of run %s: %w", run.ID, err)
	}
	run.StartedAt = t
	return run, nil
}

func scanVerdict(row scanner) (verdict.Verdict, error) {
	var (
		v           verdict.Verdict
		categories  string
		failure     sql.NullString
		diagnostics string
	)
	if err := row.Scan(&v.TestID, &v.Model, &v.Pass, &categories, &v.CaseDigest, &v.JudgeReasoning, &failure, &diagnostics); err != nil {
		return verdict.Verdict{}, fmt.Errorf("scan verdict: %w", err)
	}

	var err error
	if v.Categories, err = unmarshalCategories(categories); err != nil {
		return verdict.Verdict{}, fmt.Errorf("verdict %s: %w", v.TestID, err)
	}
	if v.Failure, err = unmarshalFailure(failure); err != nil {
		return verdict.Verdict{}, fmt.Errorf("verdict %s: %w", v.TestID, err)
	}
	if v.Diagnostics, err = unmarshalDiagnostics(diagnostics); err != nil {
		return verdict.Verdict{}, fmt.Errorf("verdict %s: %w", v.TestID, err)
	}
	return v, nil
}
