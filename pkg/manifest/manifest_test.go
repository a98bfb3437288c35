package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compmat-es/scrunner/pkg/project"
)

const yamlManifest = `
project_id: abc-123
project_type: geometry_optimization
solver:
  command: siesta
  args: ["-fdf", "input.fdf"]
workdir: /scratch/job
poll_interval: 5s
`

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlManifest), 0644))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc-123", m.ProjectID)
	assert.Equal(t, project.GeometryOptimization, m.Type())
	assert.Equal(t, "siesta", m.Solver.Command)
	assert.Equal(t, []string{"-fdf", "input.fdf"}, m.Solver.Args)
	assert.Equal(t, "/scratch/job", m.Workdir)
	assert.Equal(t, 5*time.Second, m.PollInterval.Std())

	// Defaults filled in for omitted fields.
	assert.Equal(t, "siesta.out", m.OutputPath)
	assert.Equal(t, 2*time.Second, m.GracePeriod.Std())
}

func TestLoadJSON(t *testing.T) {
	doc := `{
  "project_id": "abc-123",
  "solver": {"command": "siesta"},
  "grace_period": "500ms"
}`
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, project.SinglePoint, m.Type(), "project type defaults to single_point")
	assert.Equal(t, 500*time.Millisecond, m.GracePeriod.Std())
}

func TestLoadUnknownExtensionTriesYAMLThenJSON(t *testing.T) {
	m, err := LoadFromBytes([]byte("solver:\n  command: siesta\n"), "run.conf")
	require.NoError(t, err)
	assert.Equal(t, "siesta", m.Solver.Command)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromBytes([]byte("solver:\n  command: siesta\nbogus: 1\n"), "run.yaml")
	assert.Error(t, err)

	_, err = LoadFromBytes([]byte(`{"solver": {"command": "siesta"}, "bogus": 1}`), "run.json")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadEmptyFile(t *testing.T) {
	_, err := LoadFromBytes(nil, "run.yaml")
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	m := &Manifest{
		ProjectType:  "quantum_leap",
		PollInterval: Duration(-time.Second),
	}

	err := m.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 3)

	fields := []string{verrs[0].Field, verrs[1].Field, verrs[2].Field}
	assert.ElementsMatch(t, []string{"project_type", "solver.command", "poll_interval"}, fields)
}

func TestLoadInvalidDuration(t *testing.T) {
	_, err := LoadFromBytes([]byte("solver:\n  command: siesta\npoll_interval: fast\n"), "run.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration")
}

func TestValidateDefaults(t *testing.T) {
	m := &Manifest{Solver: Solver{Command: "siesta"}}
	m.ApplyDefaults()
	assert.NoError(t, m.Validate())
}
