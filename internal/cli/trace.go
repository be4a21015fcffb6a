package cli

import (
	"encoding/json"
	"fmt"

	"github.com/me/hpcq/pkg/model"
	"github.com/spf13/cobra"
)

func newTraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show the execution trace of a scheduling run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			resp, err := client.Get("/api/v1/runs/" + runID + "/trace")
			if err != nil {
				return fmt.Errorf("get trace: %w", err)
			}

			var trace []model.TraceEntry
			if err := json.Unmarshal(resp.Data, &trace); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(trace) == 0 {
				fmt.Println("No trace entries for this run.")
				return nil
			}

			cycleLabel := "CYCLE"
			if trace[0].Algorithm == model.AlgorithmPriority {
				cycleLabel = "RANK"
			}
			fmt.Printf("%-4s  %-6s  %-12s  %-24s  %8s  %10s\n", "SEQ", cycleLabel, "STUDENT", "JOB", "GRANTED", "REMAINING")
			fmt.Printf("%-4s  %-6s  %-12s  %-24s  %8s  %10s\n", "---", "-----", "-------", "---", "-------", "---------")
			for _, entry := range trace {
				fmt.Printf("%-4d  %-6d  %-12s  %-24s  %7ds  %9ds\n",
					entry.Seq, entry.Cycle, entry.StudentID, entry.JobName,
					entry.TimeGranted, entry.RemainingAfter)
			}
			return nil
		},
	}
}
