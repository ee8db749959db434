// Package history persists run and task outcomes to a local SQLite database.
//
// The store is written by the command layer from the scheduler's event
// stream; the scheduler itself never touches it. SQLite has no bulk-load API
// like Postgres COPY, but run history is terminal-event volume (one row per
// task), so plain prepared INSERTs inside the driver's implicit transactions
// are plenty.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver; no cgo toolchain required
)

// Store is a SQLite-backed run-history store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history: path must not be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	job         TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	tasks       INTEGER NOT NULL,
	concurrency INTEGER NOT NULL,
	completed   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	cancelled   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS task_events (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	task_id     INTEGER NOT NULL,
	input       TEXT NOT NULL,
	output      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	err_kind    TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS task_events_run ON task_events(run_id);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("history: ensure schema: %w", err)
	}
	return nil
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, runID, job string, tasks, concurrency int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, job, started_at, tasks, concurrency) VALUES (?, ?, ?, ?, ?)`,
		runID, job, time.Now().UTC().Format(time.RFC3339), tasks, concurrency,
	)
	if err != nil {
		return fmt.Errorf("history: begin run: %w", err)
	}
	return nil
}

// TaskOutcome is one terminal event as persisted per task.
type TaskOutcome struct {
	TaskID      int64
	Input       string
	Output      string
	Outcome     string // "completed" | "failed" | "cancelled"
	ErrKind     string
	Message     string
	Fingerprint string
}

// RecordTask appends one terminal task event for the run.
func (s *Store) RecordTask(ctx context.Context, runID string, o TaskOutcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_events (run_id, task_id, input, output, outcome, err_kind, message, fingerprint, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.TaskID, o.Input, o.Output, o.Outcome, o.ErrKind, o.Message, o.Fingerprint,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("history: record task: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time and outcome tallies.
func (s *Store) FinishRun(ctx context.Context, runID string, completed, failed, cancelled int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, completed = ?, failed = ?, cancelled = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), completed, failed, cancelled, runID,
	)
	if err != nil {
		return fmt.Errorf("history: finish run: %w", err)
	}
	return nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID          string
	Job         string
	StartedAt   string
	FinishedAt  string
	Tasks       int
	Concurrency int
	Completed   int
	Failed      int
	Cancelled   int
}

// Runs returns the most recent runs, newest first, up to limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job, started_at, COALESCE(finished_at, ''), tasks, concurrency, completed, failed, cancelled
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Job, &r.StartedAt, &r.FinishedAt,
			&r.Tasks, &r.Concurrency, &r.Completed, &r.Failed, &r.Cancelled); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
