package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/me/hpcq/pkg/model"
	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List the pending job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/jobs/")
			if err != nil {
				return fmt.Errorf("list queue: %w", err)
			}

			var jobs []model.JobRecord
			if err := json.Unmarshal(resp.Data, &jobs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(jobs) == 0 {
				fmt.Println("Queue is empty.")
				return nil
			}

			fmt.Printf("%-4s  %-12s  %-24s  %6s  %8s  %s\n", "POS", "STUDENT", "JOB", "TIME", "PRIORITY", "SUBMITTED")
			fmt.Printf("%-4s  %-12s  %-24s  %6s  %8s  %s\n", "---", "-------", "---", "----", "--------", "---------")
			for _, job := range jobs {
				fmt.Printf("%-4d  %-12s  %-24s  %5ds  %8d  %s\n",
					job.Position, job.StudentID, job.JobName, job.TotalTime, job.Priority,
					humanize.Time(job.CreatedAt))
			}
			return nil
		},
	}
}
