// Package trajectory turns a geometry-optimization trajectory into the
// trajectory_analysis.json artifact: per-step energy, net-force
// magnitude, and atomic positions.
package trajectory

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/compmat-es/scrunner/pkg/analysis/asejson"
	"github.com/compmat-es/scrunner/pkg/artifacts"
)

// snapshot is one optimizer step as recorded in the trajectory file.
type snapshot struct {
	Energy    float64          `json:"energy"`
	Forces    *asejson.NDArray `json:"forces"`
	Positions *asejson.NDArray `json:"positions"`
}

// Step is one entry of the trajectory_analysis.json steps list. Steps
// are numbered from 1 to match the optimizer's own iteration count.
type Step struct {
	Step           int          `json:"step"`
	Energy         float64      `json:"energy"`
	ForceMagnitude float64      `json:"force_magnitude"`
	Positions      [][3]float64 `json:"positions"`
}

// Analysis is the trajectory_analysis.json payload.
type Analysis struct {
	Steps []Step `json:"steps"`
}

// Process reads geometry_optimization.traj from dir and writes
// trajectory_analysis.json next to it.
func Process(dir string) error {
	path := filepath.Join(dir, artifacts.TrajectoryFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read trajectory: %w", err)
	}

	var snapshots []snapshot
	if err := json.Unmarshal(b, &snapshots); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("%s holds no steps", path)
	}

	out := Analysis{Steps: make([]Step, 0, len(snapshots))}
	for i, snap := range snapshots {
		step := Step{Step: i + 1, Energy: snap.Energy}

		if snap.Positions != nil {
			pos, err := snap.Positions.Vectors()
			if err != nil {
				return fmt.Errorf("step %d positions: %w", i+1, err)
			}
			step.Positions = pos
		}

		if snap.Forces != nil {
			forces, err := snap.Forces.Vectors()
			if err != nil {
				return fmt.Errorf("step %d forces: %w", i+1, err)
			}
			step.ForceMagnitude = netForce(forces)
		}

		out.Steps = append(out.Steps, step)
	}

	return writeJSON(filepath.Join(dir, artifacts.TrajectoryAnalysis), out)
}

// netForce is the magnitude of the vector sum of the per-atom forces,
// the residual the optimizer drives toward zero.
func netForce(forces [][3]float64) float64 {
	var sum [3]float64
	for _, f := range forces {
		sum[0] += f[0]
		sum[1] += f[1]
		sum[2] += f[2]
	}
	return math.Sqrt(sum[0]*sum[0] + sum[1]*sum[1] + sum[2]*sum[2])
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
