package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "hirefactory",
	Short: "hirefactory: a five-stage recruitment pipeline",
	Long: `hirefactory turns a free-text recruitment request into a candidate record,
an interview schedule, a compensation proposal and a compliance review.

Each request runs Interpret, Coordinate, Research, Execute and Review in order.
Records live in SQLite (~/.hirefactory/recruitment.db) or PostgreSQL; completed
runs are archived as JSON under ~/.hirefactory/runs.`,
	SilenceUsage: true,
}

// Execute runs the command tree until completion or an interrupt signal.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to hirefactory.yaml (default: ./hirefactory.yaml, ~/.hirefactory/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print stage progress to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(candidateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(templatesCmd)
}
