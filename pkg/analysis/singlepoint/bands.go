package singlepoint

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/compmat-es/scrunner/pkg/analysis/asejson"
	"github.com/compmat-es/scrunner/pkg/artifacts"
)

// kPathJumpThreshold marks discontinuities in the k-path: a step between
// consecutive k-points longer than this (in reciprocal path units) is a
// jump between disconnected segments and contributes zero path length.
const kPathJumpThreshold = 0.2

type bandStructure struct {
	Reference float64          `json:"reference"`
	Energies  *asejson.NDArray `json:"energies"`
	Path      bandPath         `json:"path"`
}

type bandPath struct {
	KPts          *asejson.NDArray            `json:"kpts"`
	SpecialPoints map[string]*asejson.NDArray `json:"special_points"`
	LabelSeq      string                      `json:"labelseq"`
}

// BandPlot is the band_structure_plot.json payload: everything the
// frontend needs to draw the band structure without touching the raw
// results artifact.
type BandPlot struct {
	FermiEnergy    float64       `json:"efermi"`
	KPath          []float64     `json:"kpath"`
	NSpin          int           `json:"nspin"`
	NKPoints       int           `json:"nkpoints"`
	NBands         int           `json:"nbands"`
	NSpecialPoints int           `json:"nspk"`
	Bands          [][][]float64 `json:"bandmatrix"`
	XTicks         []float64     `json:"xticks"`
	XTickLabels    []string      `json:"xticklabels"`
}

// ExtractBands renders the band-structure block of the results artifact
// into a plot-ready JSON file. Runs whose parameters requested no band
// path have no bandstructure block; that is reported as an error so the
// dispatcher can log and skip.
func ExtractBands(dir string) error {
	res, err := loadResults(dir)
	if err != nil {
		return err
	}
	if res.BandStructure == nil {
		return fmt.Errorf("results artifact has no bandstructure block")
	}

	plot, err := buildBandPlot(res.BandStructure)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, artifacts.BandPlot), plot)
}

func buildBandPlot(bs *bandStructure) (*BandPlot, error) {
	if bs.Energies == nil || len(bs.Energies.Shape) != 3 {
		return nil, fmt.Errorf("band energies are not a 3-d array")
	}
	nSpin, nK, nBands := bs.Energies.Shape[0], bs.Energies.Shape[1], bs.Energies.Shape[2]

	if bs.Path.KPts == nil {
		return nil, fmt.Errorf("band path has no k-points")
	}
	kVectors, err := bs.Path.KPts.Vectors()
	if err != nil {
		return nil, fmt.Errorf("band path k-points: %w", err)
	}
	if len(kVectors) != nK {
		return nil, fmt.Errorf("band path has %d k-points, energies have %d", len(kVectors), nK)
	}

	kPath := accumulateKPath(kVectors)

	// Energies shifted to the Fermi reference, [spin][k][band].
	bands := make([][][]float64, nSpin)
	for s := 0; s < nSpin; s++ {
		bands[s] = make([][]float64, nK)
		for k := 0; k < nK; k++ {
			row := make([]float64, nBands)
			for b := 0; b < nBands; b++ {
				row[b] = bs.Energies.At(s, k, b) - bs.Reference
			}
			bands[s][k] = row
		}
	}

	ticks, labels := specialPointTicks(bs.Path, kVectors, kPath)

	return &BandPlot{
		FermiEnergy:    bs.Reference,
		KPath:          kPath,
		NSpin:          nSpin,
		NKPoints:       nK,
		NBands:         nBands,
		NSpecialPoints: len(ticks),
		Bands:          bands,
		XTicks:         ticks,
		XTickLabels:    labels,
	}, nil
}

// accumulateKPath derives the 1-D plot coordinate by accumulating
// inter-k-point distances, snapping steps beyond the jump threshold to
// zero so disconnected path segments sit flush against each other.
func accumulateKPath(kVectors [][3]float64) []float64 {
	kPath := make([]float64, len(kVectors))
	for i := 1; i < len(kVectors); i++ {
		d := dist3(kVectors[i], kVectors[i-1])
		if d > kPathJumpThreshold {
			d = 0
		}
		kPath[i] = kPath[i-1] + d
	}
	return kPath
}

// specialPointTicks locates each named special point on the accumulated
// path and pairs it with its label. Labels separated by a comma in the
// label sequence share a tick at a path discontinuity ("X,K").
func specialPointTicks(path bandPath, kVectors [][3]float64, kPath []float64) ([]float64, []string) {
	type hit struct {
		index int
		name  string
	}
	var hits []hit
	for name, sp := range path.SpecialPoints {
		if sp == nil || len(sp.Data) != 3 {
			continue
		}
		want := [3]float64{sp.Data[0], sp.Data[1], sp.Data[2]}
		for ik, kv := range kVectors {
			if kv == want {
				hits = append(hits, hit{index: ik, name: name})
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })

	// Collapse runs of adjacent indices: a segment endpoint repeats the
	// k-point, one tick per location is enough.
	var indices []int
	for i, h := range hits {
		if i == 0 || h.index-hits[i-1].index > 1 {
			indices = append(indices, h.index)
		}
	}

	labels := mergeJumpLabels(path.LabelSeq)

	ticks := make([]float64, 0, len(indices))
	for _, idx := range indices {
		ticks = append(ticks, kPath[idx])
	}
	if len(labels) != len(ticks) {
		// Label sequence and located points disagree; fall back to the
		// located point names so the ticks stay usable.
		labels = labels[:0]
		for _, idx := range indices {
			for _, h := range hits {
				if h.index == idx {
					labels = append(labels, h.name)
					break
				}
			}
		}
	}
	return ticks, labels
}

// mergeJumpLabels splits a label sequence like "GXWK,LG" into per-tick
// labels, merging the pair around each comma into one "K,L" tick.
func mergeJumpLabels(seq string) []string {
	var labels []string
	for i := 0; i < len(seq); i++ {
		c := seq[i]
		if c == ',' {
			continue
		}
		if i+1 < len(seq) && seq[i+1] == ',' && i+2 < len(seq) {
			labels = append(labels, string(c)+","+string(seq[i+2]))
			i += 2
			continue
		}
		labels = append(labels, string(c))
	}
	return labels
}

func dist3(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
