// Package singlepoint implements the post-processing tasks for
// single-point calculations: scalar summary extraction, band structure,
// DOS, PDOS, and grid profiles.
//
// Every task reads fixed-name artifacts from a run directory and writes
// one JSON artifact back into it. Tasks are independent: they share no
// state beyond the files on disk.
package singlepoint

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/compmat-es/scrunner/pkg/analysis/asejson"
	"github.com/compmat-es/scrunner/pkg/artifacts"
)

// results is the subset of the solver results artifact the summary and
// band tasks consume.
type results struct {
	Energy        float64          `json:"energy"`
	FermiEnergy   float64          `json:"fermi_energy"`
	Eigenvalues   *asejson.NDArray `json:"eigenvalues"`
	BandStructure *bandStructure   `json:"bandstructure"`
}

func loadResults(dir string) (*results, error) {
	path := filepath.Join(dir, artifacts.Results)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results artifact: %w", err)
	}
	var r results
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &r, nil
}

// Summary is the general_info.json payload.
type Summary struct {
	NSpin       int     `json:"n_spin"`
	NKPoints    int     `json:"n_k"`
	NEigen      int     `json:"n_eig"`
	FermiEnergy float64 `json:"fermi_energy"`
	Energy      float64 `json:"energy"`

	NumberOfElectrons *float64 `json:"number_of_electrons"`
	TotalForce        *float64 `json:"total_force"`
	NOccupied         *float64 `json:"n_occupied"`
}

// ExtractSummary collects selected scalar results from the results
// artifact and the raw output log into general_info.json.
//
// The output log contributes the electron count and the norm of the
// total force; the results artifact contributes energies and the
// eigenvalue grid shape. Occupied-state count is derived when both
// sources are complete.
func ExtractSummary(dir string) error {
	res, err := loadResults(dir)
	if err != nil {
		return err
	}
	if res.Eigenvalues == nil || len(res.Eigenvalues.Shape) != 3 {
		return fmt.Errorf("results artifact has no 3-d eigenvalue array")
	}

	s := Summary{
		NSpin:       res.Eigenvalues.Shape[0],
		NKPoints:    res.Eigenvalues.Shape[1],
		NEigen:      res.Eigenvalues.Shape[2],
		FermiEnergy: res.FermiEnergy,
		Energy:      res.Energy,
	}

	electrons, force, err := scanOutputLog(filepath.Join(dir, artifacts.SolverOutput))
	if err != nil {
		return err
	}
	s.NumberOfElectrons = electrons
	s.TotalForce = force

	if electrons != nil {
		occ := float64(s.NSpin) * (*electrons / 2)
		s.NOccupied = &occ
	}

	return writeJSON(filepath.Join(dir, artifacts.GeneralInfo), s)
}

// scanOutputLog pulls the electron count and the last total-force line
// out of the raw solver output. Either value may be absent; that is not
// an error, the summary just omits it.
func scanOutputLog(path string) (electrons, force *float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open output log: %w", err)
	}
	defer f.Close()

	var lastTot string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, "Total number of electrons:"):
			fields := strings.Fields(line)
			if v, perr := strconv.ParseFloat(fields[len(fields)-1], 64); perr == nil {
				electrons = &v
			}
		case strings.HasPrefix(line, "   Tot   "):
			lastTot = line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read output log %s: %w", path, err)
	}

	if lastTot != "" {
		fields := strings.Fields(lastTot)
		if len(fields) == 4 {
			x, ex := strconv.ParseFloat(fields[1], 64)
			y, ey := strconv.ParseFloat(fields[2], 64)
			z, ez := strconv.ParseFloat(fields[3], 64)
			if ex == nil && ey == nil && ez == nil {
				v := math.Round(math.Sqrt(x*x+y*y+z*z)*1e6) / 1e6
				force = &v
			}
		}
	}

	return electrons, force, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
