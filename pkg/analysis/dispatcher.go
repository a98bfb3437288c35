// Package analysis runs the post-processing task list for a completed
// job. Each project type maps to an ordered list of tasks; a failing
// task is logged and counted but never stops the remaining tasks, so a
// corrupt optional artifact cannot suppress the artifacts that are
// still derivable.
package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/compmat-es/scrunner/internal/metrics"
	"github.com/compmat-es/scrunner/internal/observability"
	"github.com/compmat-es/scrunner/pkg/analysis/singlepoint"
	"github.com/compmat-es/scrunner/pkg/analysis/trajectory"
	"github.com/compmat-es/scrunner/pkg/artifacts"
	"github.com/compmat-es/scrunner/pkg/project"
)

// Task is one named post-processing step operating on the job directory.
type Task struct {
	Name string
	Run  func(dir string) error
}

// Dispatcher executes the analysis task list for a project type.
type Dispatcher struct {
	parallel int
	log      *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithParallel runs up to n independent tasks concurrently. The tasks
// touch disjoint files except for the summary extraction, whose output
// the grid profiles merge, so that one still runs first.
func WithParallel(n int) Option {
	return func(d *Dispatcher) {
		if n > 1 {
			d.parallel = n
		}
	}
}

// NewDispatcher returns a Dispatcher with the default task registry.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{log: observability.Logger.Named("analysis")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tasks returns the ordered task list for a project type. Molecular
// dynamics intentionally has no post-processing; the solver's own
// output is the deliverable.
func Tasks(pt project.Type) []Task {
	switch pt {
	case project.GeometryOptimization:
		return []Task{{Name: "trajectory", Run: trajectory.Process}}
	case project.MolecularDynamics:
		return nil
	default:
		return []Task{
			{Name: "summary", Run: singlepoint.ExtractSummary},
			{Name: "bands", Run: singlepoint.ExtractBands},
			{Name: "dos", Run: singlepoint.ProcessDOS},
			{Name: "rho_grid", Run: singlepoint.ProcessRhoGrid},
			{Name: "potential_grid", Run: singlepoint.ProcessPotentialGrid},
			{Name: "pdos", Run: pdosIfPresent},
		}
	}
}

// pdosIfPresent skips the PDOS task cleanly when the solver was not
// asked to emit projected DOS. A present but corrupt artifact still
// fails the task.
func pdosIfPresent(dir string) error {
	if _, ok := artifacts.FindPDOS(dir); !ok {
		return nil
	}
	return singlepoint.ProcessPDOS(dir)
}

// Dispatch runs every task for the project type against dir and returns
// the names of the tasks that failed. The error list is informational;
// partial analysis output is still a successful dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, pt project.Type, dir string) []string {
	tasks := Tasks(pt)
	if len(tasks) == 0 {
		d.log.Info("no analysis tasks for project type", zap.String("project_type", string(pt)))
		return nil
	}

	if d.parallel > 1 {
		return d.dispatchParallel(ctx, tasks, dir)
	}

	var failed []string
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		if err := d.runTask(task, dir); err != nil {
			failed = append(failed, task.Name)
		}
	}
	return failed
}

// dispatchParallel runs the first task alone (later tasks read its
// output) and the rest concurrently.
func (d *Dispatcher) dispatchParallel(ctx context.Context, tasks []Task, dir string) []string {
	var failed []string
	if err := d.runTask(tasks[0], dir); err != nil {
		failed = append(failed, tasks[0].Name)
	}

	results := make([]error, len(tasks))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)
	for i, task := range tasks[1:] {
		i, task := i+1, task
		g.Go(func() error {
			results[i] = d.runTask(task, dir)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range results {
		if err != nil {
			failed = append(failed, tasks[i].Name)
		}
	}
	return failed
}

func (d *Dispatcher) runTask(task Task, dir string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
		if err != nil {
			metrics.AnalysisTasks.WithLabelValues(task.Name, metrics.ResultError).Inc()
			d.log.Error("analysis task failed", zap.String("task", task.Name), zap.Error(err))
			return
		}
		metrics.AnalysisTasks.WithLabelValues(task.Name, metrics.ResultOK).Inc()
		d.log.Info("analysis task completed", zap.String("task", task.Name))
	}()
	return task.Run(dir)
}
