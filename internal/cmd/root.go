// Package cmd wires the scrunner command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/compmat-es/scrunner/internal/observability"
)

// Build metadata, injected via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var (
	flagLogLevel    string
	flagLogFile     string
	flagMetricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "scrunner",
	Short: "Supervise a solver job: run, watch, analyse, report",
	Long: `scrunner supervises a scientific solver run on a cluster node.

It launches the solver, polls the output artifact for liveness, posts
status updates to the backend, classifies completion, and derives the
analysis artifacts the frontend renders.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags win over environment; config.Load resolves the rest of
		// the environment later, once logging is up.
		level := firstOf(flagLogLevel, os.Getenv("SCRUNNER_LOG_LEVEL"), "info")
		file := firstOf(flagLogFile, os.Getenv("SCRUNNER_LOG_FILE"), "runner.log")
		return observability.Init(observability.Options{
			Level:   level,
			File:    file,
			Console: true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		observability.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Log file path (default runner.log)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Listen address for /metrics and /healthz (disabled when empty)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scrunner %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
