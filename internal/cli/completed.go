package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/me/hpcq/pkg/model"
	"github.com/spf13/cobra"
)

func newCompletedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completed",
		Short: "List the completed-job ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/completed")
			if err != nil {
				return fmt.Errorf("list completed: %w", err)
			}

			var recs []model.CompletedRecord
			if err := json.Unmarshal(resp.Data, &recs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(recs) == 0 {
				fmt.Println("No completed jobs.")
				return nil
			}

			fmt.Printf("%-12s  %-24s  %6s  %8s  %-12s  %s\n", "STUDENT", "JOB", "TIME", "PRIORITY", "ALGORITHM", "COMPLETED")
			fmt.Printf("%-12s  %-24s  %6s  %8s  %-12s  %s\n", "-------", "---", "----", "--------", "---------", "---------")
			for _, rec := range recs {
				fmt.Printf("%-12s  %-24s  %5ds  %8d  %-12s  %s\n",
					rec.StudentID, rec.JobName, rec.TotalTime, rec.Priority, rec.Algorithm,
					humanize.Time(rec.CompletedAt))
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Printf("\n(%d of %d shown)\n", len(recs), resp.Pagination.Total)
			}
			return nil
		},
	}
}
