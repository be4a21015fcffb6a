package engine

import (
	"sort"

	"github.com/me/hpcq/pkg/model"
)

// runPriority sorts the pending set by priority descending and dispatches
// each job to completion in one decision. The sort must be stable: jobs
// with equal priority keep their queue order. Non-preemptive, no quantum.
func (e *Engine) runPriority(pending []*model.JobRecord) *Result {
	order := make([]*model.JobRecord, len(pending))
	copy(order, pending)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Priority > order[j].Priority
	})

	res := &Result{}
	for rank, job := range order {
		res.Trace = append(res.Trace, &model.TraceEntry{
			Seq:            rank + 1,
			StudentID:      job.StudentID,
			JobName:        job.JobName,
			TimeGranted:    job.TotalTime,
			RemainingAfter: 0,
			Cycle:          rank + 1,
			Algorithm:      model.AlgorithmPriority,
			At:             e.now().UTC(),
		})
		e.logger.Debug("job dispatched",
			"student_id", job.StudentID,
			"job_name", job.JobName,
			"rank", rank+1,
			"priority", job.Priority,
			"granted", job.TotalTime,
		)
		res.Completed = append(res.Completed, e.completedRecord(job, model.AlgorithmPriority))
	}

	return res
}
