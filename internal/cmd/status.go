package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compmat-es/scrunner/internal/config"
	"github.com/compmat-es/scrunner/pkg/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Send a single status update to the backend",
	Long: `Send one status update for the configured project. An operational
escape hatch for marking a job by hand when the supervised run was
interrupted.

Example:
  scrunner status --status failed`,
	RunE: runStatus,
}

var statusValue string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusValue, "status", "", "Status to send: running|completed|failed (required)")
	_ = statusCmd.MarkFlagRequired("status")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st := status.Status(statusValue)
	switch st {
	case status.StatusRunning, status.StatusCompleted, status.StatusFailed:
	default:
		return fmt.Errorf("unknown status %q", statusValue)
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}

	reporter := status.NewReporter(cfg.BackendURL, cfg.Token)
	return reporter.Send(cmd.Context(), status.Update{ProjectID: cfg.ProjectID, Status: st})
}
