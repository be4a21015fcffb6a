package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/me/hpcq/pkg/model"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List scheduling runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/runs/")
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			var runs []model.Run
			if err := json.Unmarshal(resp.Data, &runs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}

			fmt.Printf("%-42s  %-12s  %5s  %s\n", "ID", "ALGORITHM", "JOBS", "STARTED")
			fmt.Printf("%-42s  %-12s  %5s  %s\n", "---", "---------", "----", "-------")
			for _, run := range runs {
				fmt.Printf("%-42s  %-12s  %5d  %s\n",
					run.ID, run.Algorithm, run.JobCount, humanize.Time(run.StartedAt))
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Printf("\n(%d of %d shown)\n", len(runs), resp.Pagination.Total)
			}
			return nil
		},
	}
}
