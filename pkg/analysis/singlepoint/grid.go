package singlepoint

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/compmat-es/scrunner/internal/observability"
	"github.com/compmat-es/scrunner/pkg/artifacts"
	"github.com/compmat-es/scrunner/pkg/netcdf"
)

// GridProfile is the payload of Rho_grid.json and
// ElectrostaticPotential_grid.json: cell geometry plus per-axis averaged
// field profiles. The scalar summary fields from general_info.json are
// merged in so the frontend can render each grid page standalone.
type GridProfile struct {
	N1   int `json:"n1"`
	N2   int `json:"n2"`
	N3   int `json:"n3"`
	Spin int `json:"spin"`

	Cell       [][]float64 `json:"cell"`
	Orthogonal bool        `json:"orthogonal"`

	FaceAB float64 `json:"face_ab"`
	FaceAC float64 `json:"face_ac"`
	FaceBC float64 `json:"face_bc"`

	DiffA float64 `json:"diff_a"`
	DiffB float64 `json:"diff_b"`
	DiffC float64 `json:"diff_c"`

	Volume     float64 `json:"volume"`
	DiffVolume float64 `json:"diff_volume"`

	AGrid []float64 `json:"a_grid"`
	BGrid []float64 `json:"b_grid"`
	CGrid []float64 `json:"c_grid"`

	AAverage []float64 `json:"a_average"`
	BAverage []float64 `json:"b_average"`
	CAverage []float64 `json:"c_average"`

	// Summary is merged verbatim from general_info.json when present.
	Summary map[string]any `json:"-"`
}

// MarshalJSON flattens the merged summary fields into the top-level
// object, preserving the artifact contract of the source system.
func (g GridProfile) MarshalJSON() ([]byte, error) {
	type alias GridProfile
	b, err := json.Marshal(alias(g))
	if err != nil {
		return nil, err
	}
	if len(g.Summary) == 0 {
		return b, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range g.Summary {
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// ProcessRhoGrid parses the charge-density grid artifact into
// Rho_grid.json. The integrated total charge is logged as a sanity
// check on the grid normalization.
func ProcessRhoGrid(dir string) error {
	profile, total, err := processGrid(filepath.Join(dir, artifacts.RhoGrid), dir)
	if err != nil {
		return err
	}
	observability.Logger.Named("analysis").Info("charge density grid processed",
		zap.Float64("total_charge", total))
	return writeJSON(filepath.Join(dir, artifacts.RhoGridJSON), profile)
}

// ProcessPotentialGrid parses the electrostatic-potential grid artifact
// into ElectrostaticPotential_grid.json.
func ProcessPotentialGrid(dir string) error {
	profile, _, err := processGrid(filepath.Join(dir, artifacts.PotentialGrid), dir)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, artifacts.PotentialGridJSON), profile)
}

// processGrid reads one grid artifact and derives geometry and averaged
// profiles. The returned total is diff_volume × Σ grid, meaningful for
// the charge density only.
func processGrid(gridPath, dir string) (*GridProfile, float64, error) {
	f, err := netcdf.Open(gridPath)
	if err != nil {
		return nil, 0, err
	}

	cellVar, ok := f.Var("cell")
	if !ok {
		return nil, 0, fmt.Errorf("%s: no cell variable", gridPath)
	}
	cellVals, err := cellVar.Floats()
	if err != nil {
		return nil, 0, err
	}
	if len(cellVals) != 9 {
		return nil, 0, fmt.Errorf("%s: cell has %d values, want 9", gridPath, len(cellVals))
	}
	var cell [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cell[i][j] = cellVals[3*i+j]
		}
	}

	gridVar, ok := f.Var("gridfunc")
	if !ok {
		return nil, 0, fmt.Errorf("%s: no gridfunc variable", gridPath)
	}
	shape := gridVar.Shape()
	if len(shape) != 4 {
		return nil, 0, fmt.Errorf("%s: gridfunc is %d-dimensional, want 4", gridPath, len(shape))
	}
	nSpin, n1, n2, n3 := shape[0], shape[1], shape[2], shape[3]
	grid, err := gridVar.Floats()
	if err != nil {
		return nil, 0, err
	}

	dotAB := dot(cell[0], cell[1])
	dotAC := dot(cell[0], cell[2])
	dotBC := dot(cell[1], cell[2])

	lenA, lenB, lenC := norm(cell[0]), norm(cell[1]), norm(cell[2])
	volume := dot(cross(cell[0], cell[1]), cell[2])
	diffVolume := volume / float64(n1*n2*n3)

	profile := &GridProfile{
		N1:         n1,
		N2:         n2,
		N3:         n3,
		Spin:       nSpin,
		Cell:       cellRows(cell),
		Orthogonal: dotAB == 0 && dotAC == 0 && dotBC == 0,
		FaceAB:     norm(cross(cell[0], cell[1])),
		FaceAC:     norm(cross(cell[0], cell[2])),
		FaceBC:     norm(cross(cell[1], cell[2])),
		DiffA:      lenA / float64(n1),
		DiffB:      lenB / float64(n2),
		DiffC:      lenC / float64(n3),
		Volume:     volume,
		DiffVolume: diffVolume,
		AGrid:      linspaceOpen(lenA, n1),
		BGrid:      linspaceOpen(lenB, n2),
		CGrid:      linspaceOpen(lenC, n3),
	}

	// Axis-averaged profiles of the first spin component.
	// TODO: emit per-spin profiles once the frontend can plot them.
	first := grid[:n1*n2*n3]
	profile.AAverage = axisAverage(first, n1, n2, n3, 0)
	profile.BAverage = axisAverage(first, n1, n2, n3, 1)
	profile.CAverage = axisAverage(first, n1, n2, n3, 2)

	if summary, err := loadSummaryMap(dir); err == nil {
		profile.Summary = summary
	}

	total := 0.0
	for _, v := range grid {
		total += v
	}
	return profile, diffVolume * total, nil
}

// axisAverage averages the (n1,n2,n3) row-major volume over the two axes
// other than axis, producing a 1-D profile along axis.
func axisAverage(grid []float64, n1, n2, n3, axis int) []float64 {
	var size int
	switch axis {
	case 0:
		size = n1
	case 1:
		size = n2
	default:
		size = n3
	}
	sums := make([]float64, size)
	for i := 0; i < n1; i++ {
		for j := 0; j < n2; j++ {
			base := (i*n2 + j) * n3
			for k := 0; k < n3; k++ {
				v := grid[base+k]
				switch axis {
				case 0:
					sums[i] += v
				case 1:
					sums[j] += v
				default:
					sums[k] += v
				}
			}
		}
	}
	count := float64(n1*n2*n3) / float64(size)
	for i := range sums {
		sums[i] /= count
	}
	return sums
}

// linspaceOpen returns n evenly spaced samples over [0, length), the
// half-open sampling the periodic grid uses.
func linspaceOpen(length float64, n int) []float64 {
	out := make([]float64, n)
	step := length / float64(n)
	for i := range out {
		out[i] = float64(i) * step
	}
	return out
}

func loadSummaryMap(dir string) (map[string]any, error) {
	b, err := os.ReadFile(filepath.Join(dir, artifacts.GeneralInfo))
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func cellRows(cell [3][3]float64) [][]float64 {
	out := make([][]float64, 3)
	for i := range out {
		out[i] = []float64{cell[i][0], cell[i][1], cell[i][2]}
	}
	return out
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm(a [3]float64) float64 {
	return math.Sqrt(dot(a, a))
}
