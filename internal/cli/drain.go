package cli

import (
	"encoding/json"
	"fmt"

	"github.com/me/hpcq/internal/runner"
	"github.com/spf13/cobra"
)

func newDrainCmd() *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Drain the pending queue with a scheduling algorithm",
		Long: "Run the scheduler over the whole pending queue. Every queued job is\n" +
			"executed to completion and moved to the completed-job ledger.",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/runs/", map[string]any{"algorithm": algorithm})
			if err != nil {
				return fmt.Errorf("drain: %w", err)
			}

			var report runner.DrainReport
			if err := json.Unmarshal(resp.Data, &report); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if report.RunID == "" {
				fmt.Println("Queue is empty; nothing to schedule.")
				return nil
			}

			fmt.Printf("Run %s complete (%s): %d job(s) scheduled, %d trace entries.\n",
				report.RunID, report.Algorithm, report.JobsScheduled, report.TraceEntries)
			if report.LedgerError != "" {
				fmt.Printf("Warning: ledger write failed: %s\n", report.LedgerError)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "rr", "Scheduling algorithm: rr (round robin) or priority")
	return cmd
}
