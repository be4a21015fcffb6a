package store

import (
	"context"

	"github.com/me/hpcq/pkg/model"
)

// Store defines the persistence layer for hpcq entities: the pending queue,
// the run log, and the append-only trace/completion ledgers.
type Store interface {
	// Pending queue. The queue is a single-writer resource: jobs are
	// appended on submission and the whole set is replaced (cleared)
	// around a scheduling run.
	AppendJob(ctx context.Context, job *model.JobRecord) error
	ListPending(ctx context.Context) ([]*model.JobRecord, error)
	ReplacePending(ctx context.Context, jobs []*model.JobRecord) error

	// Run bookkeeping
	CreateRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)

	// Ledgers (append-only)
	AppendTrace(ctx context.Context, entry *model.TraceEntry) error
	ListTrace(ctx context.Context, runID string) ([]*model.TraceEntry, error)
	AppendCompleted(ctx context.Context, rec *model.CompletedRecord) error
	ListCompleted(ctx context.Context, opts model.ListOptions) ([]*model.CompletedRecord, int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
