package model

import (
	"fmt"
	"time"
)

// Priority bounds for job requests. 10 is the highest priority.
const (
	MinPriority = 1
	MaxPriority = 10
)

// JobRecord is a pending computational job request submitted by a student.
//
// TotalTime is the requested execution time in seconds. Position is the
// job's slot in the pending queue and is assigned by the store on append;
// it defines the Round Robin visitation order.
type JobRecord struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	JobName   string    `json:"job_name" db:"job_name"`
	TotalTime int       `json:"total_time" db:"total_time"`
	Priority  int       `json:"priority" db:"priority"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate checks the submission invariants and returns one FieldError per
// violation. A nil result means the record is admissible. The scheduling
// engine does not re-validate; this is the single construction boundary.
func (j *JobRecord) Validate() []FieldError {
	var errs []FieldError
	if j.StudentID == "" {
		errs = append(errs, FieldError{Field: "student_id", Message: "student_id is required"})
	}
	if j.JobName == "" {
		errs = append(errs, FieldError{Field: "job_name", Message: "job_name is required"})
	}
	if j.TotalTime <= 0 {
		errs = append(errs, FieldError{Field: "total_time", Message: "total_time must be a positive number of seconds"})
	}
	if j.Priority < MinPriority || j.Priority > MaxPriority {
		errs = append(errs, FieldError{
			Field:   "priority",
			Message: fmt.Sprintf("priority must be between %d and %d", MinPriority, MaxPriority),
		})
	}
	return errs
}

// TraceEntry is one atomic scheduling decision: the engine granted
// TimeGranted seconds to a job, leaving RemainingAfter seconds.
//
// For Round Robin runs Cycle is the 1-based cycle number in which the slice
// was granted; for Priority runs it is the job's 1-based dispatch rank.
// Seq is the emission order within the run; RunID is assigned by the runner
// before the entry reaches the ledger.
type TraceEntry struct {
	RunID          string    `json:"run_id" db:"run_id"`
	Seq            int       `json:"seq" db:"seq"`
	StudentID      string    `json:"student_id" db:"student_id"`
	JobName        string    `json:"job_name" db:"job_name"`
	TimeGranted    int       `json:"time_granted" db:"time_granted"`
	RemainingAfter int       `json:"remaining_after" db:"remaining_after"`
	Cycle          int       `json:"cycle" db:"cycle"`
	Algorithm      Algorithm `json:"algorithm" db:"algorithm"`
	At             time.Time `json:"at" db:"at"`
}

// CompletedRecord is a drained job in the append-only completion ledger.
type CompletedRecord struct {
	JobID       string    `json:"job_id" db:"job_id"`
	RunID       string    `json:"run_id" db:"run_id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	JobName     string    `json:"job_name" db:"job_name"`
	TotalTime   int       `json:"total_time" db:"total_time"`
	Priority    int       `json:"priority" db:"priority"`
	Algorithm   Algorithm `json:"algorithm" db:"algorithm"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// Run records one full drain of the pending queue.
type Run struct {
	ID         string     `json:"id" db:"id"`
	Algorithm  Algorithm  `json:"algorithm" db:"algorithm"`
	JobCount   int        `json:"job_count" db:"job_count"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
