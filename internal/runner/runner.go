package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/me/hpcq/internal/engine"
	"github.com/me/hpcq/internal/store"
	"github.com/me/hpcq/pkg/model"
)

// Runner drains the pending queue through the scheduling engine and records
// the outcome: load pending, run the chosen discipline, append every trace
// entry and completed record to the ledger, then clear the queue. A drain is
// all-or-nothing at the queue level: the engine completes every job it is
// given, so the queue is always fully replaced with empty afterwards.
type Runner struct {
	store  store.Store
	engine *engine.Engine
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Runner.
func New(st store.Store, eng *engine.Engine, logger *slog.Logger) *Runner {
	return &Runner{
		store:  st,
		engine: eng,
		logger: logger.With("component", "runner"),
		now:    time.Now,
	}
}

// DrainReport summarizes one scheduling run for the API and CLI layers.
//
// LedgerError carries a collaborator-reported persistence failure. It is
// non-fatal: the scheduling decisions are final and the queue has been
// drained; the operator may retry the write from the in-memory result.
type DrainReport struct {
	RunID         string          `json:"run_id,omitempty"`
	Algorithm     model.Algorithm `json:"algorithm"`
	JobsScheduled int             `json:"jobs_scheduled"`
	TraceEntries  int             `json:"trace_entries"`
	LedgerError   string          `json:"ledger_error,omitempty"`
}

// Drain executes one full scheduling run. An empty pending queue is a
// defined no-op: the report shows zero jobs and no run is recorded.
func (r *Runner) Drain(ctx context.Context, alg model.Algorithm) (*DrainReport, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, alg)
	}

	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending: %w", err)
	}
	if len(pending) == 0 {
		r.logger.Info("drain skipped, queue empty", "algorithm", alg)
		return &DrainReport{Algorithm: alg}, nil
	}

	run := &model.Run{
		ID:        "run_" + uuid.New().String(),
		Algorithm: alg,
		JobCount:  len(pending),
		StartedAt: r.now().UTC(),
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	result, err := r.engine.Run(pending, alg)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	// Ledger writes happen in emission order. A failure does not roll back
	// the computed schedule; the first error is surfaced on the report.
	var ledgerErr error
	for _, entry := range result.Trace {
		entry.RunID = run.ID
		if err := r.store.AppendTrace(ctx, entry); err != nil && ledgerErr == nil {
			ledgerErr = fmt.Errorf("append trace %d: %w", entry.Seq, err)
		}
	}
	for _, rec := range result.Completed {
		rec.RunID = run.ID
		if err := r.store.AppendCompleted(ctx, rec); err != nil && ledgerErr == nil {
			ledgerErr = fmt.Errorf("append completed %s: %w", rec.JobID, err)
		}
	}
	if ledgerErr != nil {
		r.logger.Error("ledger write failed", "run_id", run.ID, "error", ledgerErr)
	}

	// Full drain: every given job is now completed, so the queue empties
	// regardless of ledger trouble.
	if err := r.store.ReplacePending(ctx, nil); err != nil {
		return nil, fmt.Errorf("clear pending: %w", err)
	}

	finished := r.now().UTC()
	run.FinishedAt = &finished
	if err := r.store.FinishRun(ctx, run); err != nil {
		r.logger.Error("finish run", "run_id", run.ID, "error", err)
	}

	report := &DrainReport{
		RunID:         run.ID,
		Algorithm:     alg,
		JobsScheduled: len(result.Completed),
		TraceEntries:  len(result.Trace),
	}
	if ledgerErr != nil {
		report.LedgerError = ledgerErr.Error()
	}

	r.logger.Info("queue drained",
		"run_id", run.ID,
		"algorithm", alg,
		"jobs", report.JobsScheduled,
		"trace_entries", report.TraceEntries,
	)
	return report, nil
}
