package engine

import "github.com/me/hpcq/pkg/model"

// runRoundRobin cycles over the pending set in queue order, granting each
// unfinished job min(quantum, remaining) seconds per visit. A job joins the
// completion set the moment its remaining time reaches zero, so Completed
// is in finish order, not input order. Terminates because every visited
// job's remaining time strictly decreases.
func (e *Engine) runRoundRobin(pending []*model.JobRecord) *Result {
	res := &Result{}

	remaining := make([]int, len(pending))
	active := 0
	for i, job := range pending {
		remaining[i] = job.TotalTime
		if remaining[i] > 0 {
			active++
		}
	}

	seq := 0
	for cycle := 1; active > 0; cycle++ {
		for i, job := range pending {
			if remaining[i] == 0 {
				continue
			}

			grant := e.quantum
			if remaining[i] < grant {
				grant = remaining[i]
			}
			remaining[i] -= grant

			seq++
			res.Trace = append(res.Trace, &model.TraceEntry{
				Seq:            seq,
				StudentID:      job.StudentID,
				JobName:        job.JobName,
				TimeGranted:    grant,
				RemainingAfter: remaining[i],
				Cycle:          cycle,
				Algorithm:      model.AlgorithmRoundRobin,
				At:             e.now().UTC(),
			})
			e.logger.Debug("slice granted",
				"student_id", job.StudentID,
				"job_name", job.JobName,
				"cycle", cycle,
				"granted", grant,
				"remaining", remaining[i],
			)

			if remaining[i] == 0 {
				active--
				res.Completed = append(res.Completed, e.completedRecord(job, model.AlgorithmRoundRobin))
			}
		}
	}

	return res
}
