package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all hpcq tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pending_jobs (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		job_name   TEXT NOT NULL,
		total_time INTEGER NOT NULL,
		priority   INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		algorithm   TEXT NOT NULL,
		job_count   INTEGER NOT NULL DEFAULT 0,
		started_at  TEXT NOT NULL,
		finished_at TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS trace_entries (
		run_id          TEXT NOT NULL,
		seq             INTEGER NOT NULL,
		student_id      TEXT NOT NULL,
		job_name        TEXT NOT NULL,
		time_granted    INTEGER NOT NULL,
		remaining_after INTEGER NOT NULL,
		cycle           INTEGER NOT NULL,
		algorithm       TEXT NOT NULL,
		at              TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,

	`CREATE TABLE IF NOT EXISTS completed_jobs (
		job_id       TEXT NOT NULL,
		run_id       TEXT NOT NULL,
		student_id   TEXT NOT NULL,
		job_name     TEXT NOT NULL,
		total_time   INTEGER NOT NULL,
		priority     INTEGER NOT NULL,
		algorithm    TEXT NOT NULL,
		completed_at TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_jobs_position ON pending_jobs(position)`,
	`CREATE INDEX IF NOT EXISTS idx_completed_jobs_run_id ON completed_jobs(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_completed_jobs_student_id ON completed_jobs(student_id)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
