package singlepoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/compmat-es/scrunner/pkg/artifacts"
)

// DOSCurves is the DOS.json payload: spin-resolved density-of-states
// curves with their running trapezoidal integrals.
type DOSCurves struct {
	FermiEnergy float64   `json:"fermi_energy"`
	Energy      []float64 `json:"energy"`
	TotalDOS    []float64 `json:"total_dos"`
	SpinUp      []float64 `json:"spin_up"`
	SpinDown    []float64 `json:"spin_down"`
	Difference  []float64 `json:"difference"`

	CumulativeSpinUp     []float64 `json:"cumulative_spin_up"`
	CumulativeSpinDown   []float64 `json:"cumulative_spin_down"`
	CumulativeTotalDOS   []float64 `json:"cumulative_total_dos"`
	CumulativeDifference []float64 `json:"cumulative_difference"`

	Metadata DOSMetadata `json:"metadata"`
}

// DOSMetadata carries the unit and spin conventions of the curves.
type DOSMetadata struct {
	Units         map[string]string `json:"units"`
	SpinPolarized bool              `json:"spin_polarized"`
}

// ProcessDOS converts the solver's DOS table into cumulative and
// differential spin-resolved curves via trapezoidal integration,
// written to DOS.json.
//
// The table has an energy column followed by one DOS column (non-spin)
// or two (spin up, spin down); spin polarization is inferred from the
// column count. The Fermi energy comes from the results artifact.
func ProcessDOS(dir string) error {
	res, err := loadResults(dir)
	if err != nil {
		return err
	}

	energy, columns, err := readDOSTable(filepath.Join(dir, artifacts.DOSTable))
	if err != nil {
		return err
	}
	if len(energy) < 2 {
		return fmt.Errorf("DOS table has %d rows, need at least 2", len(energy))
	}

	curves := DOSCurves{
		FermiEnergy: res.FermiEnergy,
		Energy:      energy,
		Metadata: DOSMetadata{
			Units:         map[string]string{"energy": "eV", "dos": "states/eV"},
			SpinPolarized: len(columns) >= 2,
		},
		SpinUp:               []float64{},
		SpinDown:             []float64{},
		Difference:           []float64{},
		CumulativeSpinUp:     []float64{},
		CumulativeSpinDown:   []float64{},
		CumulativeDifference: []float64{},
	}

	if curves.Metadata.SpinPolarized {
		up, down := columns[0], columns[1]
		n := len(up)
		total := make([]float64, n)
		diff := make([]float64, n)
		for i := 0; i < n; i++ {
			total[i] = up[i] + down[i]
			diff[i] = up[i] - down[i]
		}
		curves.SpinUp = up
		curves.SpinDown = down
		curves.TotalDOS = total
		curves.Difference = diff
		curves.CumulativeSpinUp = cumulativeTrapezoid(energy, up)
		curves.CumulativeSpinDown = cumulativeTrapezoid(energy, down)
		curves.CumulativeTotalDOS = cumulativeTrapezoid(energy, total)
		curves.CumulativeDifference = cumulativeTrapezoid(energy, diff)
	} else {
		curves.TotalDOS = columns[0]
		curves.CumulativeTotalDOS = cumulativeTrapezoid(energy, columns[0])
	}

	return writeJSON(filepath.Join(dir, artifacts.DOSJSON), curves)
}

// readDOSTable parses the whitespace-separated DOS table into the energy
// column and the remaining value columns. Blank lines and '#' comments
// are skipped. Rows must be rectangular.
func readDOSTable(path string) (energy []float64, columns [][]float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open DOS table: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("DOS table row %q has fewer than 2 columns", line)
		}
		if columns == nil {
			columns = make([][]float64, len(fields)-1)
		} else if len(fields)-1 != len(columns) {
			return nil, nil, fmt.Errorf("DOS table row %q has %d columns, want %d", line, len(fields), len(columns)+1)
		}

		e, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("DOS table energy %q: %w", fields[0], err)
		}
		energy = append(energy, e)
		for i, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("DOS table value %q: %w", field, err)
			}
			columns[i] = append(columns[i], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read DOS table %s: %w", path, err)
	}
	if len(energy) == 0 {
		return nil, nil, fmt.Errorf("DOS table %s is empty", path)
	}
	return energy, columns, nil
}

// cumulativeTrapezoid integrates y over x with the trapezoidal rule,
// returning the running integral (same length as the input, starting at
// zero).
func cumulativeTrapezoid(x, y []float64) []float64 {
	out := make([]float64, len(y))
	for i := 1; i < len(y); i++ {
		out[i] = out[i-1] + (x[i]-x[i-1])*(y[i]+y[i-1])/2
	}
	return out
}
