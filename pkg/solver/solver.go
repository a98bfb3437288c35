// Package solver launches the external computation process and wires
// its streams to the run's artifact contract.
package solver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/compmat-es/scrunner/internal/metrics"
	"github.com/compmat-es/scrunner/internal/observability"
)

// Config describes one solver invocation.
type Config struct {
	// Command is the solver executable; Args its arguments.
	Command string
	Args    []string

	// Workdir is where the solver runs and artifacts accumulate.
	Workdir string

	// OutputPath receives the solver's stdout. Relative paths are
	// resolved against Workdir.
	OutputPath string
}

// Run executes the solver to completion. Stdout goes to the output
// artifact, stderr to the structured run log. The exit error is
// returned unmodified so the caller can classify it.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Command == "" {
		return fmt.Errorf("no solver command configured")
	}

	outPath := cfg.OutputPath
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(cfg.Workdir, outPath)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output artifact: %w", err)
	}
	defer out.Close()

	log := observability.Logger.Named("solver")
	stderr := &zapio.Writer{Log: log, Level: zap.WarnLevel}
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Workdir
	cmd.Stdout = out
	cmd.Stderr = stderr
	cmd.Env = os.Environ()

	log.Info("starting solver",
		zap.String("command", cfg.Command),
		zap.Strings("args", cfg.Args),
		zap.String("workdir", cfg.Workdir))

	metrics.SolverRunning.Set(1)
	defer metrics.SolverRunning.Set(0)

	if err := cmd.Run(); err != nil {
		return err
	}
	return out.Sync()
}
