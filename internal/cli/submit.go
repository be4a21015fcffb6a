package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/me/hpcq/pkg/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// jobRequest mirrors the POST /api/v1/jobs body; also the YAML batch format.
type jobRequest struct {
	StudentID string `json:"student_id" yaml:"student_id"`
	JobName   string `json:"job_name" yaml:"job_name"`
	TotalTime int    `json:"total_time" yaml:"total_time"`
	Priority  int    `json:"priority" yaml:"priority"`
}

func newSubmitCmd() *cobra.Command {
	var req jobRequest
	var batchFile string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job request to the pending queue",
		Long: "Submit a single job via flags, or a batch of jobs from a YAML file.\n" +
			"The batch file is a list of entries with student_id, job_name, total_time, priority.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchFile != "" {
				return submitBatch(batchFile)
			}
			return submitOne(req)
		},
	}

	cmd.Flags().StringVarP(&req.StudentID, "student", "s", "", "Student ID")
	cmd.Flags().StringVarP(&req.JobName, "name", "n", "", "Job name")
	cmd.Flags().IntVarP(&req.TotalTime, "time", "t", 0, "Execution time in seconds")
	cmd.Flags().IntVarP(&req.Priority, "priority", "p", 5, fmt.Sprintf("Priority (%d-%d, %d highest)", model.MinPriority, model.MaxPriority, model.MaxPriority))
	cmd.Flags().StringVarP(&batchFile, "file", "f", "", "YAML batch file with job requests")
	return cmd
}

func submitOne(req jobRequest) error {
	resp, err := client.Post("/api/v1/jobs/", req)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}

	var job model.JobRecord
	if err := json.Unmarshal(resp.Data, &job); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	fmt.Printf("Job queued: %s (%s/%s, %ds, priority %d, queue position %d)\n",
		job.ID, job.StudentID, job.JobName, job.TotalTime, job.Priority, job.Position)
	return nil
}

func submitBatch(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}

	var reqs []jobRequest
	if err := yaml.Unmarshal(data, &reqs); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}
	logger.Debug("parsed batch file", "path", path, "jobs", len(reqs))

	for i, req := range reqs {
		if err := submitOne(req); err != nil {
			return fmt.Errorf("batch entry %d: %w", i+1, err)
		}
	}
	fmt.Printf("%d job(s) queued.\n", len(reqs))
	return nil
}
