// Package store provides SQLite-backed durable storage for benchmark results.
//
// The store is append-only and holds two tables:
//   - runs: one row per suite run (id, model, suite, started_at)
//   - verdicts: one row per test case of a run, keyed by (run_id, seq)
//
// # Patterns
//
// Ordering: verdicts are always read ORDER BY seq ASC, the position of the
// case in the run, so a stored run reads back in suite order.
//
// Idempotency: writes use ON CONFLICT DO NOTHING; writing the same run or
// verdict twice is a no-op.
//
// JSON columns (categories, failure, diagnostics) hold canonical JSON from
// internal/canon, so identical verdicts store identical bytes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
