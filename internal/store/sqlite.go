package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/hpcq/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Pending queue ---

// AppendJob inserts a job at the tail of the pending queue and assigns its
// queue position on the record.
func (s *SQLiteStore) AppendJob(ctx context.Context, job *model.JobRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "pending_jobs", "id", job.ID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM pending_jobs`,
	).Scan(&next); err != nil {
		return fmt.Errorf("next position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO pending_jobs (id, student_id, job_name, total_time, priority, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.StudentID, job.JobName, job.TotalTime, job.Priority, next,
		job.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	job.Position = next
	return nil
}

// ListPending returns the full pending queue in position order.
func (s *SQLiteStore) ListPending(ctx context.Context) ([]*model.JobRecord, error) {
	s.logger.Debug("sql", "op", "select", "table", "pending_jobs")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, job_name, total_time, priority, position, created_at
		 FROM pending_jobs ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.JobRecord
	for rows.Next() {
		var job model.JobRecord
		var createdAt string
		if err := rows.Scan(&job.ID, &job.StudentID, &job.JobName, &job.TotalTime,
			&job.Priority, &job.Position, &createdAt); err != nil {
			return nil, err
		}
		job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// ReplacePending atomically replaces the whole pending queue. Positions are
// reassigned from the given order; a nil or empty slice clears the queue.
func (s *SQLiteStore) ReplacePending(ctx context.Context, jobs []*model.JobRecord) error {
	s.logger.Debug("sql", "op", "replace", "table", "pending_jobs", "count", len(jobs))

	tx, err := s.db.BeginTx(ctx, nil)
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
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.StudentID, job.JobName, job.TotalTime, job.Priority, i+1,
			job.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, algorithm, job_count, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Algorithm.String(), run.JobCount, run.StartedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID)

	var finished *string
	if run.FinishedAt != nil {
		f := run.FinishedAt.Format(time.RFC3339Nano)
		finished = &f
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET job_count = ?, finished_at = ? WHERE id = ?`,
		run.JobCount, finished, run.ID,
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, algorithm, job_count, started_at, finished_at FROM runs WHERE id = ?`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs")
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, algorithm, job_count, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func scanRun(scan func(...any) error) (*model.Run, error) {
	var run model.Run
	var algorithm, startedAt string
	var finishedAt *string
	if err := scan(&run.ID, &algorithm, &run.JobCount, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Algorithm = model.Algorithm(algorithm)
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt != nil {
		t, _ := time.Parse(time.RFC3339Nano, *finishedAt)
		run.FinishedAt = &t
	}
	return &run, nil
}

// --- Ledgers ---

func (s *SQLiteStore) AppendTrace(ctx context.Context, entry *model.TraceEntry) error {
	s.logger.Debug("sql", "op", "insert", "table", "trace_entries", "run_id", entry.RunID, "seq", entry.Seq)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trace_entries (run_id, seq, student_id, job_name, time_granted, remaining_after, cycle, algorithm, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Seq, entry.StudentID, entry.JobName, entry.TimeGranted,
		entry.RemainingAfter, entry.Cycle, entry.Algorithm.String(), entry.At.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) ListTrace(ctx context.Context, runID string) ([]*model.TraceEntry, error) {
	s.logger.Debug("sql", "op", "select", "table", "trace_entries", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, student_id, job_name, time_granted, remaining_after, cycle, algorithm, at
		 FROM trace_entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.TraceEntry
	for rows.Next() {
		var entry model.TraceEntry
		var algorithm, at string
		if err := rows.Scan(&entry.RunID, &entry.Seq, &entry.StudentID, &entry.JobName,
			&entry.TimeGranted, &entry.RemainingAfter, &entry.Cycle, &algorithm, &at); err != nil {
			return nil, err
		}
		entry.Algorithm = model.Algorithm(algorithm)
		entry.At, _ = time.Parse(time.RFC3339Nano, at)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) AppendCompleted(ctx context.Context, rec *model.CompletedRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "completed_jobs", "job_id", rec.JobID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO completed_jobs (job_id, run_id, student_id, job_name, total_time, priority, algorithm, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID, rec.RunID, rec.StudentID, rec.JobName, rec.TotalTime, rec.Priority,
		rec.Algorithm.String(), rec.CompletedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListCompleted returns ledger records in append order, newest runs last.
func (s *SQLiteStore) ListCompleted(ctx context.Context, opts model.ListOptions) ([]*model.CompletedRecord, int, error) {
	s.logger.Debug("sql", "op", "select", "table", "completed_jobs")
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM completed_jobs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, run_id, student_id, job_name, total_time, priority, algorithm, completed_at
		 FROM completed_jobs ORDER BY rowid LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []*model.CompletedRecord
	for rows.Next() {
		var rec model.CompletedRecord
		var algorithm, completedAt string
		if err := rows.Scan(&rec.JobID, &rec.RunID, &rec.StudentID, &rec.JobName,
			&rec.TotalTime, &rec.Priority, &algorithm, &completedAt); err != nil {
			return nil, 0, err
		}
		rec.Algorithm = model.Algorithm(algorithm)
		rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)
		recs = append(recs, &rec)
	}
	return recs, total, rows.Err()
}
