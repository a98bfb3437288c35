package trajectory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compmat-es/scrunner/pkg/artifacts"
)

const trajFixture = `[
  {
    "energy": -100.0,
    "forces": [[3.0, 0.0, 0.0], [0.0, 4.0, 0.0]],
    "positions": [[0.0, 0.0, 0.0], [1.0, 1.0, 1.0]]
  },
  {
    "energy": -101.5,
    "forces": {"__ndarray__": [[2, 3], "float64", [0.1, 0.0, 0.0, -0.1, 0.0, 0.0]]},
    "positions": {"__ndarray__": [[2, 3], "float64", [0.0, 0.0, 0.0, 1.1, 1.0, 1.0]]}
  }
]`

func writeTraj(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifacts.TrajectoryFile), []byte(content), 0644))
}

func readAnalysis(t *testing.T, dir string) Analysis {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, artifacts.TrajectoryAnalysis))
	require.NoError(t, err)
	var a Analysis
	require.NoError(t, json.Unmarshal(b, &a))
	return a
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	writeTraj(t, dir, trajFixture)

	require.NoError(t, Process(dir))
	a := readAnalysis(t, dir)
	require.Len(t, a.Steps, 2)

	first := a.Steps[0]
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, -100.0, first.Energy)
	// Net force (3,4,0): magnitude 5.
	assert.InDelta(t, 5.0, first.ForceMagnitude, 1e-12)
	require.Len(t, first.Positions, 2)
	assert.Equal(t, [3]float64{1, 1, 1}, first.Positions[1])

	second := a.Steps[1]
	assert.Equal(t, 2, second.Step)
	assert.Equal(t, -101.5, second.Energy)
	// Per-atom forces cancel.
	assert.InDelta(t, 0.0, second.ForceMagnitude, 1e-12)
	assert.Equal(t, [3]float64{1.1, 1, 1}, second.Positions[1])
}

func TestProcessMissingFile(t *testing.T) {
	assert.Error(t, Process(t.TempDir()))
}

func TestProcessEmptyTrajectory(t *testing.T) {
	dir := t.TempDir()
	writeTraj(t, dir, "[]")
	assert.Error(t, Process(dir))
}

func TestProcessMalformedStep(t *testing.T) {
	dir := t.TempDir()
	writeTraj(t, dir, `[{"energy": 0, "forces": [[1, 2]], "positions": [[0, 0, 0]]}]`)
	err := Process(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
}
