package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/compmat-es/scrunner/internal/observability"
	"github.com/compmat-es/scrunner/pkg/analysis"
	"github.com/compmat-es/scrunner/pkg/project"
)

var analyseCmd = &cobra.Command{
	Use:   "analyse",
	Short: "Run the analysis tasks against artifacts already on disk",
	Long: `Run only the analysis dispatch for a finished job, deriving the
frontend JSON artifacts from the solver output in the working directory.

Useful for re-deriving artifacts after a parser fix without re-running
the computation.

Example:
  scrunner analyse --project-type single_point
  scrunner analyse --project-type geometry_optimization --dir /scratch/job`,
	RunE: runAnalyse,
}

var (
	analyseProjectType string
	analyseDir         string
	analyseParallel    bool
)

func init() {
	rootCmd.AddCommand(analyseCmd)

	analyseCmd.Flags().StringVar(&analyseProjectType, "project-type", "", "Project type (required)")
	analyseCmd.Flags().StringVar(&analyseDir, "dir", ".", "Job working directory")
	analyseCmd.Flags().BoolVar(&analyseParallel, "parallel", false, "Run independent tasks concurrently")

	_ = analyseCmd.MarkFlagRequired("project-type")
}

func runAnalyse(cmd *cobra.Command, args []string) error {
	pt, err := project.Parse(analyseProjectType)
	if err != nil {
		return err
	}

	var opts []analysis.Option
	if analyseParallel {
		opts = append(opts, analysis.WithParallel(runtime.NumCPU()))
	}

	failed := analysis.NewDispatcher(opts...).Dispatch(cmd.Context(), pt, analyseDir)
	if len(failed) > 0 {
		observability.Logger.Warn("analysis finished with failed tasks", zap.Strings("tasks", failed))
		return fmt.Errorf("analysis tasks failed: %v", failed)
	}
	return nil
}
