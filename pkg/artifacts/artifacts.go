// Package artifacts defines the on-disk artifact contract shared between
// the solver, the completion check, and the analysis tasks.
//
// Filenames are fixed and consumed downstream by the web frontend; they
// must not change without a coordinated backend release.
package artifacts

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Artifacts written by the solver.
const (
	SolverOutput   = "siesta.out"
	Results        = "calc_results_task.json"
	DOSTable       = "siesta.DOS"
	RhoGrid        = "Rho.grid.nc"
	PotentialGrid  = "ElectrostaticPotential.grid.nc"
	PDOSPattern    = "*.PDOS.xml"
	TrajectoryFile = "geometry_optimization.traj"
)

// Artifacts written by analysis tasks.
const (
	GeneralInfo        = "general_info.json"
	BandPlot           = "band_structure_plot.json"
	DOSJSON            = "DOS.json"
	RhoGridJSON        = "Rho_grid.json"
	PotentialGridJSON  = "ElectrostaticPotential_grid.json"
	PDOSJSON           = "pdos_data.json"
	TrajectoryAnalysis = "trajectory_analysis.json"
)

// Exists reports whether the named artifact exists under dir.
func Exists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}

// FindPDOS locates the PDOS XML artifact under dir, if any.
//
// The solver names the file after its system label (typically
// siesta.PDOS.xml), so discovery is by glob rather than a fixed name.
// When several match, the lexicographically first is returned so the
// choice is deterministic.
func FindPDOS(dir string) (string, bool) {
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, PDOSPattern))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}
