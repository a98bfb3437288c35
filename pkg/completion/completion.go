// Package completion classifies the final state of a solver run from its
// on-disk artifacts.
//
// Detection never returns an error: every failure path resolves to a
// FAILURE outcome with a human-readable reason, and the supervisor
// decides what to do with it.
package completion

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/compmat-es/scrunner/internal/observability"
	"github.com/compmat-es/scrunner/pkg/artifacts"
	"github.com/compmat-es/scrunner/pkg/project"
)

// SentinelLine is the exact final line a successful solver run writes to
// its output log.
const SentinelLine = "Job completed"

// Outcome is the binary classification of a finished job.
type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

// Result is the classification of one finished job.
type Result struct {
	Outcome Outcome
	Reason  string
}

// Succeeded reports whether the job completed successfully.
func (r Result) Succeeded() bool {
	return r.Outcome == Success
}

// policy inspects artifacts under dir and classifies the run.
// outputPath is the solver output log; policies that rely on other
// artifacts ignore it.
type policy func(dir, outputPath string) Result

// policies maps each project type to its completion check. The table is
// the single routing point; MD deliberately shares the single-point
// sentinel policy because the solver defines no dedicated MD artifact.
var policies = map[project.Type]policy{
	project.SinglePoint:          sentinelPolicy,
	project.MolecularDynamics:    sentinelPolicy,
	project.GeometryOptimization: trajectoryPolicy,
}

// Detect classifies the finished job of the given type using the
// artifacts under dir. outputPath is the solver output log path.
func Detect(pt project.Type, dir, outputPath string) Result {
	log := observability.Logger.Named("completion")

	p, ok := policies[pt]
	if !ok {
		r := Result{Outcome: Failure, Reason: fmt.Sprintf("no completion policy for project type %q", pt)}
		log.Error("completion check failed", zap.String("project_type", string(pt)), zap.String("reason", r.Reason))
		return r
	}

	r := p(dir, outputPath)
	if r.Succeeded() {
		log.Info("job classified successful", zap.String("project_type", string(pt)))
	} else {
		log.Warn("job classified failed",
			zap.String("project_type", string(pt)),
			zap.String("reason", r.Reason))
	}
	return r
}

// sentinelPolicy succeeds iff the last non-blank line of the output log
// is exactly the sentinel.
func sentinelPolicy(dir, outputPath string) Result {
	if outputPath == "" {
		outputPath = filepath.Join(dir, artifacts.SolverOutput)
	}

	f, err := os.Open(outputPath)
	if err != nil {
		return Result{Outcome: Failure, Reason: fmt.Sprintf("open output log: %v", err)}
	}
	defer f.Close()

	var last string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return Result{Outcome: Failure, Reason: fmt.Sprintf("read output log %s: %v", outputPath, err)}
	}

	if last == "" {
		return Result{Outcome: Failure, Reason: fmt.Sprintf("output log %s has no non-blank lines", outputPath)}
	}
	if last != SentinelLine {
		return Result{Outcome: Failure, Reason: fmt.Sprintf("output log ends with %q, want %q", last, SentinelLine)}
	}
	return Result{Outcome: Success}
}

// trajectoryPolicy succeeds iff the trajectory artifact exists with
// non-zero size. This is a weaker, existence-based heuristic: the
// optimizer writes the trajectory incrementally and leaves no sentinel.
func trajectoryPolicy(dir, _ string) Result {
	path := filepath.Join(dir, artifacts.TrajectoryFile)
	info, err := os.Stat(path)
	if err != nil {
		return Result{Outcome: Failure, Reason: fmt.Sprintf("trajectory artifact: %v", err)}
	}
	if info.Size() == 0 {
		return Result{Outcome: Failure, Reason: fmt.Sprintf("trajectory artifact %s is empty", path)}
	}
	return Result{Outcome: Success}
}
