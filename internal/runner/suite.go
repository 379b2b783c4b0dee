package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/roach88/callbench/internal/suite"
	"github.com/roach88/callbench/internal/verdict"
)

// Run is the outcome of one suite run.
type Run struct {
	ID        string
	Model     string
	Suite     string
	StartedAt time.Time
	Verdicts  []verdict.Verdict
}

// Passed returns how many verdicts passed.
func (r *Run) Passed() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Pass {
			n++
		}
	}
	return n
}

type entry struct {
	file  string
	index int
	c     *suite.Case
	err   *suite.LoadError
}

// RunSuite runs every case and reports every load error, returning one
// verdict per entry ordered by file then index. Cases run in parallel up to
// Options.Concurrency; cases not started before ctx is done fail with
// TransportError.
func (r *Runner) RunSuite(ctx context.Context, cases []*suite.Case, loadErrors []*suite.LoadError) *Run {
	run := &Run{
		ID:        r.ids.Generate(),
		Model:     r.opts.ModelName,
		StartedAt: r.clock.Now(),
	}

	entries := make([]entry, 0, len(cases)+len(loadErrors))
	for _, c := range cases {
		entries = append(entries, entry{file: c.File, index: c.Index, c: c})
	}
	for _, e := range loadErrors {
		entries = append(entries, entry{file: e.File, index: e.Index, err: e})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].file != entries[j].file {
			return entries[i].file < entries[j].file
		}
		return entries[i].index < entries[j].index
	})

	limit := int64(r.opts.Concurrency)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	r.logger.Info("suite run starting", "run_id", run.ID, "model", run.Model, "cases", len(cases), "load_errors", len(loadErrors), "concurrency", limit)

	run.Verdicts = make([]verdict.Verdict, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		if e.err != nil {
			run.Verdicts[i] = r.LoadErrorVerdict(e.err)
			continue
		}

		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			run.Verdicts[i] = r.abortedVerdict(e.c, err)
			continue
		}
		wg.Add(1)
		go func(i int, c *suite.Case) {
			defer wg.Done()
			defer sem.Release(1)
			run.Verdicts[i] = r.Run(ctx, c)
		}(i, e.c)
	}
	wg.Wait()

	r.logger.Info("suite run finished", "run_id", run.ID, "passed", run.Passed(), "total", len(run.Verdicts))
	return run
}

func (r *Runner) abortedVerdict(c *suite.Case, err error) verdict.Verdict {
	v := verdict.Verdict{
		TestID:     c.ID,
		Model:      r.opts.ModelName,
		Categories: c.Categories,
		CaseDigest: c.Digest,
	}
	v.Fail(verdict.Wrap(verdict.KindTransportError, fmt.Errorf("session not started: %w", err)))
	return v
}
