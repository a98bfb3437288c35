// Package supervisor orchestrates one solver run end to end: launch,
// liveness reporting, completion classification, analysis, and the
// terminal status update.
package supervisor

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/compmat-es/scrunner/internal/metrics"
	"github.com/compmat-es/scrunner/internal/observability"
	"github.com/compmat-es/scrunner/pkg/analysis"
	"github.com/compmat-es/scrunner/pkg/completion"
	"github.com/compmat-es/scrunner/pkg/project"
	"github.com/compmat-es/scrunner/pkg/solver"
	"github.com/compmat-es/scrunner/pkg/status"
	"github.com/compmat-es/scrunner/pkg/watcher"
)

// JobDescriptor is the immutable description of one supervised job.
type JobDescriptor struct {
	ProjectID   string
	ProjectType project.Type

	// SolverCommand and SolverArgs form the external computation.
	SolverCommand string
	SolverArgs    []string

	// Workdir is where the solver runs and artifacts live.
	Workdir string

	// OutputPath is the solver output artifact, relative to Workdir
	// unless absolute.
	OutputPath string

	// PollInterval is the watcher's liveness poll period.
	PollInterval time.Duration

	// GracePeriod is waited after solver exit before the watcher stops,
	// letting a final write be observed. Defaults to 2s.
	GracePeriod time.Duration

	// ReportInterval is slept between analysis and the terminal status
	// post so the backend never sees completed before the last running.
	ReportInterval time.Duration
}

func (d JobDescriptor) outputPath() string {
	if filepath.IsAbs(d.OutputPath) {
		return d.OutputPath
	}
	return filepath.Join(d.Workdir, d.OutputPath)
}

// Supervisor drives supervised runs.
type Supervisor struct {
	reporter   watcher.Sender
	dispatcher *analysis.Dispatcher
	sleep      func(context.Context, time.Duration)
	log        *zap.Logger
}

// New creates a Supervisor posting through reporter and analysing
// through dispatcher.
func New(reporter watcher.Sender, dispatcher *analysis.Dispatcher) *Supervisor {
	return &Supervisor{
		reporter:   reporter,
		dispatcher: dispatcher,
		sleep:      sleepCtx,
		log:        observability.Logger.Named("supervisor"),
	}
}

// Run supervises one job to its terminal status. It always returns the
// job's classification rather than an error: a failed computation is a
// normal outcome, not a supervisor failure. Cancellation of ctx tears
// the whole run down.
func (s *Supervisor) Run(ctx context.Context, desc JobDescriptor) completion.Result {
	if desc.GracePeriod <= 0 {
		desc.GracePeriod = 2 * time.Second
	}

	s.log.Info("supervising job",
		zap.String("project_id", desc.ProjectID),
		zap.String("project_type", string(desc.ProjectType)),
		zap.String("workdir", desc.Workdir))

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	w := watcher.New(watcher.Config{
		Path:      desc.outputPath(),
		ProjectID: desc.ProjectID,
		Interval:  desc.PollInterval,
	}, s.reporter)

	var g errgroup.Group
	g.Go(func() error {
		return w.Watch(watchCtx)
	})

	// The solver gets no deadline of its own; scientific runs are
	// unbounded and only external cancellation ends them early.
	solverErr := solver.Run(ctx, solver.Config{
		Command:    desc.SolverCommand,
		Args:       desc.SolverArgs,
		Workdir:    desc.Workdir,
		OutputPath: desc.OutputPath,
	})

	// Let the watcher observe writes that raced with solver exit.
	s.sleep(ctx, desc.GracePeriod)
	stopWatch()
	_ = g.Wait()

	if solverErr != nil {
		s.log.Warn("solver exited with error", zap.Error(solverErr))
	}

	result := completion.Detect(desc.ProjectType, desc.Workdir, desc.outputPath())
	if solverErr != nil && result.Succeeded() {
		// A non-zero exit overrides an accidental sentinel.
		result = completion.Result{
			Outcome: completion.Failure,
			Reason:  "solver exited with error: " + solverErr.Error(),
		}
	}

	if result.Succeeded() {
		if failed := s.dispatcher.Dispatch(ctx, desc.ProjectType, desc.Workdir); len(failed) > 0 {
			s.log.Warn("analysis finished with failed tasks", zap.Strings("tasks", failed))
		}
		s.sleep(ctx, desc.ReportInterval)
		s.post(ctx, desc.ProjectID, status.StatusCompleted)
		metrics.JobOutcomes.WithLabelValues(string(completion.Success)).Inc()
	} else {
		s.log.Warn("job failed, skipping analysis", zap.String("reason", result.Reason))
		s.post(ctx, desc.ProjectID, status.StatusFailed)
		metrics.JobOutcomes.WithLabelValues(string(completion.Failure)).Inc()
	}

	s.log.Info("job finished",
		zap.String("project_id", desc.ProjectID),
		zap.String("outcome", string(result.Outcome)))
	return result
}

// post sends the terminal status. Delivery errors are already logged
// and counted by the reporter; the run's outcome does not depend on the
// backend hearing about it.
func (s *Supervisor) post(ctx context.Context, projectID string, st status.Status) {
	_ = s.reporter.Send(ctx, status.Update{ProjectID: projectID, Status: st})
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
