package singlepoint

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/compmat-es/scrunner/pkg/artifacts"
)

// pdosXML mirrors the solver's projected-DOS XML artifact.
type pdosXML struct {
	XMLName      xml.Name     `xml:"pdos"`
	NSpin        int          `xml:"nspin"`
	NOrbitals    int          `xml:"norbitals"`
	FermiEnergy  *float64     `xml:"fermi_energy"`
	EnergyValues string       `xml:"energy_values"`
	Orbitals     []orbitalXML `xml:"orbital"`
}

type orbitalXML struct {
	Index     int    `xml:"index,attr"`
	AtomIndex int    `xml:"atom_index,attr"`
	Species   string `xml:"species,attr"`
	Position  string `xml:"position,attr"`
	N         int    `xml:"n,attr"`
	L         int    `xml:"l,attr"`
	M         int    `xml:"m,attr"`
	Z         int    `xml:"z,attr"`
	Data      string `xml:"data"`
}

// Orbital is one orbital's projected DOS series in pdos_data.json.
type Orbital struct {
	Index     int       `json:"index"`
	AtomIndex int       `json:"atom_index"`
	Species   string    `json:"species"`
	Position  string    `json:"position"`
	N         int       `json:"n"`
	L         int       `json:"l"`
	M         int       `json:"m"`
	Z         int       `json:"z"`
	Values    []float64 `json:"values"`
}

// PDOS is the pdos_data.json payload.
type PDOS struct {
	NSpin        int       `json:"nspin"`
	FermiEnergy  *float64  `json:"fermi_energy"`
	EnergyValues []float64 `json:"energy_values"`
	Orbitals     []Orbital `json:"orbitals"`
}

// ProcessPDOS parses the projected-DOS XML artifact into pdos_data.json.
//
// Each orbital's sample count must equal nspin × len(energy_values); a
// mismatch fails this task (and only this task) so a truncated artifact
// never produces a silently misaligned JSON.
func ProcessPDOS(dir string) error {
	path, ok := artifacts.FindPDOS(dir)
	if !ok {
		return fmt.Errorf("no PDOS artifact in %s", dir)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read PDOS artifact: %w", err)
	}

	var doc pdosXML
	if err := xml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.NSpin < 1 {
		return fmt.Errorf("%s: nspin %d out of range", path, doc.NSpin)
	}

	energies, err := parseFloatSeries(doc.EnergyValues)
	if err != nil {
		return fmt.Errorf("%s: energy_values: %w", path, err)
	}
	if len(energies) == 0 {
		return fmt.Errorf("%s: empty energy grid", path)
	}

	out := PDOS{
		NSpin:        doc.NSpin,
		FermiEnergy:  doc.FermiEnergy,
		EnergyValues: energies,
		Orbitals:     make([]Orbital, 0, len(doc.Orbitals)),
	}

	want := doc.NSpin * len(energies)
	for _, orb := range doc.Orbitals {
		values, err := parseFloatSeries(orb.Data)
		if err != nil {
			return fmt.Errorf("%s: orbital %d data: %w", path, orb.Index, err)
		}
		if len(values) != want {
			return fmt.Errorf("%s: orbital %d (%s) has %d samples, want nspin×grid = %d",
				path, orb.Index, orb.Species, len(values), want)
		}
		out.Orbitals = append(out.Orbitals, Orbital{
			Index:     orb.Index,
			AtomIndex: orb.AtomIndex,
			Species:   orb.Species,
			Position:  strings.TrimSpace(orb.Position),
			N:         orb.N,
			L:         orb.L,
			M:         orb.M,
			Z:         orb.Z,
			Values:    values,
		})
	}

	return writeJSON(filepath.Join(dir, artifacts.PDOSJSON), out)
}

// parseFloatSeries splits whitespace-separated numbers (the layout the
// solver uses inside XML text nodes, spanning many lines).
func parseFloatSeries(text string) ([]float64, error) {
	fields := strings.Fields(text)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}
