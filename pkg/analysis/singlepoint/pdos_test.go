package singlepoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compmat-es/scrunner/pkg/artifacts"
)

const pdosFixture = `<pdos>
  <nspin>1</nspin>
  <norbitals>2</norbitals>
  <fermi_energy>-3.2</fermi_energy>
  <energy_values>
    -1.0 0.0 1.0
  </energy_values>
  <orbital index="1" atom_index="1" species="Si" position=" 0.0 0.0 0.0 " n="3" l="0" m="0" z="1">
    <data>
      0.1 0.2 0.3
    </data>
  </orbital>
  <orbital index="2" atom_index="1" species="Si" position=" 0.0 0.0 0.0 " n="3" l="1" m="-1" z="1">
    <data>
      0.4 0.5 0.6
    </data>
  </orbital>
</pdos>
`

func TestProcessPDOS(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "siesta.PDOS.xml", pdosFixture)

	require.NoError(t, ProcessPDOS(dir))

	b, err := os.ReadFile(filepath.Join(dir, artifacts.PDOSJSON))
	require.NoError(t, err)
	var out PDOS
	require.NoError(t, json.Unmarshal(b, &out))

	assert.Equal(t, 1, out.NSpin)
	require.NotNil(t, out.FermiEnergy)
	assert.Equal(t, -3.2, *out.FermiEnergy)
	assert.Equal(t, []float64{-1, 0, 1}, out.EnergyValues)

	require.Len(t, out.Orbitals, 2)
	first := out.Orbitals[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "Si", first.Species)
	assert.Equal(t, "0.0 0.0 0.0", first.Position)
	assert.Equal(t, 3, first.N)
	assert.Equal(t, 0, first.L)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, first.Values)
	assert.Equal(t, []float64{0.4, 0.5, 0.6}, out.Orbitals[1].Values)
}

func TestProcessPDOSSpinPolarizedSampleCount(t *testing.T) {
	// nspin=2 doubles the expected samples per orbital.
	doc := `<pdos>
  <nspin>2</nspin>
  <norbitals>1</norbitals>
  <energy_values>-1.0 1.0</energy_values>
  <orbital index="1" atom_index="1" species="Fe" position="0 0 0" n="3" l="2" m="0" z="1">
    <data>0.1 0.2 0.3 0.4</data>
  </orbital>
</pdos>
`
	dir := t.TempDir()
	writeFixture(t, dir, "calc.PDOS.xml", doc)

	require.NoError(t, ProcessPDOS(dir))

	b, err := os.ReadFile(filepath.Join(dir, artifacts.PDOSJSON))
	require.NoError(t, err)
	var out PDOS
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, 2, out.NSpin)
	assert.Nil(t, out.FermiEnergy)
	assert.Len(t, out.Orbitals[0].Values, 4)
}

func TestProcessPDOSSampleCountMismatch(t *testing.T) {
	doc := `<pdos>
  <nspin>1</nspin>
  <norbitals>1</norbitals>
  <energy_values>-1.0 0.0 1.0</energy_values>
  <orbital index="1" atom_index="1" species="Si" position="0 0 0" n="3" l="0" m="0" z="1">
    <data>0.1 0.2</data>
  </orbital>
</pdos>
`
	dir := t.TempDir()
	writeFixture(t, dir, "siesta.PDOS.xml", doc)

	err := ProcessPDOS(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orbital 1")

	assert.NoFileExists(t, filepath.Join(dir, artifacts.PDOSJSON))
}

func TestProcessPDOSMissingArtifact(t *testing.T) {
	assert.Error(t, ProcessPDOS(t.TempDir()))
}

func TestProcessPDOSMalformedXML(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "siesta.PDOS.xml", "<pdos><nspin>1</nspin>")
	assert.Error(t, ProcessPDOS(dir))
}
