package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/me/hpcq/pkg/model"

	_ "github.com/lib/pq"
)

// pgSchema contains the DDL for the Postgres variant of the store.
var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS pending_jobs (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		job_name   TEXT NOT NULL,
		total_time INTEGER NOT NULL,
		priority   INTEGER NOT NULL,
		position   INTEGER NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		algorithm   TEXT NOT NULL,
		job_count   INTEGER NOT NULL DEFAULT 0,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ
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
		at              TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,

	`CREATE TABLE IF NOT EXISTS completed_jobs (
		entry_no     BIGSERIAL PRIMARY KEY,
		job_id       TEXT NOT NULL,
		run_id       TEXT NOT NULL,
		student_id   TEXT NOT NULL,
		job_name     TEXT NOT NULL,
		total_time   INTEGER NOT NULL,
		priority     INTEGER NOT NULL,
		algorithm    TEXT NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_completed_jobs_run_id ON completed_jobs(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_completed_jobs_student_id ON completed_jobs(student_id)`,
}

// PostgresStore implements Store using Postgres via sqlx.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore connects to Postgres with the given connection string.
func NewPostgresStore(ctx context.Context, conn string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", conn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	for _, stmt := range pgSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- Pending queue ---

func (s *PostgresStore) AppendJob(ctx context.Context, job *model.JobRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "pending_jobs", "id", job.ID)

	var position int
	err := s.db.GetContext(ctx, &position,
		`INSERT INTO pending_jobs (id, student_id, job_name, total_time, priority, position, created_at)
		 VALUES ($1, $2, $3, $4, $5,
		         (SELECT COALESCE(MAX(position), 0) + 1 FROM pending_jobs), $6)
		 RETURNING position`,
		job.ID, job.StudentID, job.JobName, job.TotalTime, job.Priority, job.CreatedAt,
	)
	if err != nil {
		return err
	}
	job.Position = position
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*model.JobRecord, error) {
	s.logger.Debug("sql", "op", "select", "table", "pending_jobs")

	var jobs []*model.JobRecord
	err := s.db.SelectContext(ctx, &jobs,
		`SELECT id, student_id, job_name, total_time, priority, position, created_at
		 FROM pending_jobs ORDER BY position`)
	return jobs, err
}

func (s *PostgresStore) ReplacePending(ctx context.Context, jobs []*model.JobRecord) error {
	s.logger.Debug("sql", "op", "replace", "table", "pending_jobs", "count", len(jobs))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_jobs`); err != nil {
		return err
	}
	for i, job := range jobs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pending_jobs (id, student_id, job_name, total_time, priority, position, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			job.ID, job.StudentID, job.JobName, job.TotalTime, job.Priority, i+1, job.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, algorithm, job_count, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Algorithm.String(), run.JobCount, run.StartedAt,
	)
	return err
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET job_count = $1, finished_at = $2 WHERE id = $3`,
		run.JobCount, run.FinishedAt, run.ID,
	)
	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	var run model.Run
	err := s.db.GetContext(ctx, &run,
		`SELECT id, algorithm, job_count, started_at, finished_at FROM runs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs")
	opts.Clamp()

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM runs`); err != nil {
		return nil, 0, err
	}

	var runs []*model.Run
	err := s.db.SelectContext(ctx, &runs,
		`SELECT id, algorithm, job_count, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`, opts.Limit, opts.Offset)
	return runs, total, err
}

// --- Ledgers ---

func (s *PostgresStore) AppendTrace(ctx context.Context, entry *model.TraceEntry) error {
	s.logger.Debug("sql", "op", "insert", "table", "trace_entries", "run_id", entry.RunID, "seq", entry.Seq)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trace_entries (run_id, seq, student_id, job_name, time_granted, remaining_after, cycle, algorithm, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.RunID, entry.Seq, entry.StudentID, entry.JobName, entry.TimeGranted,
		entry.RemainingAfter, entry.Cycle, entry.Algorithm.String(), entry.At,
	)
	return err
}

func (s *PostgresStore) ListTrace(ctx context.Context, runID string) ([]*model.TraceEntry, error) {
	s.logger.Debug("sql", "op", "select", "table", "trace_entries", "run_id", runID)

	var entries []*model.TraceEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT run_id, seq, student_id, job_name, time_granted, remaining_after, cycle, algorithm, at
		 FROM trace_entries WHERE run_id = $1 ORDER BY seq`, runID)
	return entries, err
}

func (s *PostgresStore) AppendCompleted(ctx context.Context, rec *model.CompletedRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "completed_jobs", "job_id", rec.JobID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO completed_jobs (job_id, run_id, student_id, job_name, total_time, priority, algorithm, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.JobID, rec.RunID, rec.StudentID, rec.JobName, rec.TotalTime, rec.Priority,
		rec.Algorithm.String(), rec.CompletedAt,
	)
	return err
}

func (s *PostgresStore) ListCompleted(ctx context.Context, opts model.ListOptions) ([]*model.CompletedRecord, int, error) {
	s.logger.Debug("sql", "op", "select", "table", "completed_jobs")
	opts.Clamp()

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM completed_jobs`); err != nil {
		return nil, 0, err
	}

	var recs []*model.CompletedRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT job_id, run_id, student_id, job_name, total_time, priority, algorithm, completed_at
		 FROM completed_jobs ORDER BY entry_no LIMIT $1 OFFSET $2`, opts.Limit, opts.Offset)
	return recs, total, err
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*SQLiteStore)(nil)
