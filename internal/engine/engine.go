package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/me/hpcq/pkg/model"
)

// DefaultQuantum is the fixed Round Robin time slice in seconds.
const DefaultQuantum = 5

// Config holds engine configuration.
type Config struct {
	// Quantum is the maximum time slice granted per Round Robin visit.
	Quantum int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Quantum: DefaultQuantum}
}

// Result is the outcome of a scheduling run: the ordered execution trace
// and the completion set. Completed ordering is strategy-defined: finish
// order for Round Robin, sorted order for Priority.
type Result struct {
	Trace     []*model.TraceEntry
	Completed []*model.CompletedRecord
}

// Engine computes a full drain of a pending job set with a chosen
// discipline. It performs no I/O and never mutates its input; remaining
// time lives in private working state for the duration of one Run call.
type Engine struct {
	quantum int
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Engine. A non-positive quantum falls back to the default.
func New(cfg Config, logger *slog.Logger) *Engine {
	q := cfg.Quantum
	if q <= 0 {
		q = DefaultQuantum
	}
	return &Engine{
		quantum: q,
		logger:  logger.With("component", "engine"),
		now:     time.Now,
	}
}

// Run schedules every job in pending to completion under the chosen
// algorithm. An empty pending set is a defined no-op, not an error.
// Entries in the result carry no RunID; the caller assigns one before
// handing them to the ledger.
func (e *Engine) Run(pending []*model.JobRecord, alg model.Algorithm) (*Result, error) {
	switch alg {
	case model.AlgorithmRoundRobin:
		return e.runRoundRobin(pending), nil
	case model.AlgorithmPriority:
		return e.runPriority(pending), nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, alg)
	}
}

func (e *Engine) completedRecord(job *model.JobRecord, alg model.Algorithm) *model.CompletedRecord {
	return &model.CompletedRecord{
		JobID:       job.ID,
		StudentID:   job.StudentID,
		JobName:     job.JobName,
		TotalTime:   job.TotalTime,
		Priority:    job.Priority,
		Algorithm:   alg,
		CompletedAt: e.now().UTC(),
	}
}
