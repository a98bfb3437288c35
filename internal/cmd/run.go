package cmd

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/compmat-es/scrunner/internal/config"
	"github.com/compmat-es/scrunner/internal/observability"
	"github.com/compmat-es/scrunner/internal/server"
	"github.com/compmat-es/scrunner/pkg/analysis"
	"github.com/compmat-es/scrunner/pkg/manifest"
	"github.com/compmat-es/scrunner/pkg/project"
	"github.com/compmat-es/scrunner/pkg/status"
	"github.com/compmat-es/scrunner/pkg/supervisor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run and supervise a solver job",
	Long: `Run a supervised solver job: launch the solver, watch its output
artifact for liveness, post running updates, classify completion, run the
analysis tasks, and post the terminal status.

Example:
  scrunner run --manifest run.yaml
  scrunner run --manifest run.yaml --parallel-analysis`,
	RunE: runRun,
}

var (
	runManifestPath string
	runProjectType  string
	runParallel     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runManifestPath, "manifest", "m", "", "Path to run manifest (required)")
	runCmd.Flags().StringVar(&runProjectType, "project-type", "", "Override the manifest's project type")
	runCmd.Flags().BoolVar(&runParallel, "parallel-analysis", false, "Run independent analysis tasks concurrently")

	_ = runCmd.MarkFlagRequired("manifest")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := manifest.Load(runManifestPath)
	if err != nil {
		observability.Logger.Error("invalid run manifest",
			zap.String("path", runManifestPath), zap.Error(err))
		return err
	}
	if runProjectType != "" {
		pt, err := project.Parse(runProjectType)
		if err != nil {
			return err
		}
		m.ProjectType = string(pt)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if m.ProjectID == "" {
		m.ProjectID = cfg.ProjectID
	}

	srvDone := startMetricsServer(ctx, cfg)
	defer func() { <-srvDone }()

	reporter := status.NewReporter(cfg.BackendURL, cfg.Token)

	var opts []analysis.Option
	if runParallel {
		opts = append(opts, analysis.WithParallel(runtime.NumCPU()))
	}

	desc := supervisor.JobDescriptor{
		ProjectID:      m.ProjectID,
		ProjectType:    m.Type(),
		SolverCommand:  m.Solver.Command,
		SolverArgs:     m.Solver.Args,
		Workdir:        m.Workdir,
		OutputPath:     m.OutputPath,
		PollInterval:   durationOr(m.PollInterval, cfg.PollInterval),
		GracePeriod:    durationOr(m.GracePeriod, cfg.GracePeriod),
		ReportInterval: durationOr(m.ReportInterval, cfg.PollInterval),
	}

	// The run itself cannot fail the process: a failed computation is
	// reported through the status channel and the artifacts on disk.
	result := supervisor.New(reporter, analysis.NewDispatcher(opts...)).Run(ctx, desc)
	observability.Logger.Info("supervised run finished",
		zap.String("outcome", string(result.Outcome)),
		zap.String("reason", result.Reason))
	return nil
}

// startMetricsServer serves /metrics when an address is configured. The
// returned channel closes once the server has stopped (immediately when
// none was started).
func startMetricsServer(ctx context.Context, cfg *config.Config) <-chan struct{} {
	done := make(chan struct{})

	addr := flagMetricsAddr
	if addr == "" {
		addr = cfg.MetricsAddr
	}
	if addr == "" {
		close(done)
		return done
	}

	srv := server.New(addr, Version)
	go func() {
		defer close(done)
		if err := srv.Start(ctx); err != nil {
			observability.Logger.Warn("metrics server failed", zap.Error(err))
		}
	}()
	return done
}

func durationOr(d manifest.Duration, fallback time.Duration) time.Duration {
	if d > 0 {
		return d.Std()
	}
	return fallback
}
