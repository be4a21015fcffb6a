package cli

import (
	"log/slog"
	"os"

	"github.com/me/hpcq/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking HPCQ_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("HPCQ_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the hpcq CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hpcq",
		Short: "hpcq is a shared-facility batch job queue",
		Long:  "hpcq submits computational job requests and drains the queue with Round Robin or Priority scheduling.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "hpcq server URL (or HPCQ_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newSubmitCmd(),
		newQueueCmd(),
		newDrainCmd(),
		newRunsCmd(),
		newTraceCmd(),
		newCompletedCmd(),
	)

	return root
}
