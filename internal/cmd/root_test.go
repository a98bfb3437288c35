package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	logFile := filepath.Join(t.TempDir(), "runner.log")
	args = append(args, "--log-file", logFile)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	_, err := execute(t, "version")
	assert.NoError(t, err)
}

func TestAnalyseRequiresProjectType(t *testing.T) {
	_, err := execute(t, "analyse")
	assert.Error(t, err)
}

func TestAnalyseRejectsUnknownProjectType(t *testing.T) {
	_, err := execute(t, "analyse", "--project-type", "quantum_leap", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown project type")
}

func TestAnalyseGeometryOptimization(t *testing.T) {
	dir := t.TempDir()
	traj := `[{"energy": -1.0, "forces": [[0, 0, 1]], "positions": [[0, 0, 0]]}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geometry_optimization.traj"), []byte(traj), 0644))

	_, err := execute(t, "analyse", "--project-type", "geometry_optimization", "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "trajectory_analysis.json"))
}

func TestAnalyseMolecularDynamicsIsNoOp(t *testing.T) {
	_, err := execute(t, "analyse", "--project-type", "md", "--dir", t.TempDir())
	assert.NoError(t, err)
}

func TestRunRequiresManifest(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestStatusRejectsUnknownValue(t *testing.T) {
	_, err := execute(t, "status", "--status", "paused")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}
