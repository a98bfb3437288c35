package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SolverOutput), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	assert.True(t, Exists(dir, SolverOutput))
	assert.False(t, Exists(dir, Results))
	assert.False(t, Exists(dir, "subdir"), "directories are not artifacts")
}

func TestFindPDOS(t *testing.T) {
	dir := t.TempDir()

	_, ok := FindPDOS(dir)
	assert.False(t, ok, "empty dir has no PDOS artifact")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "siesta.PDOS.xml"), []byte("<pdos/>"), 0644))
	path, ok := FindPDOS(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "siesta.PDOS.xml"), path)

	// Deterministic pick when several labels match.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graphene.PDOS.xml"), []byte("<pdos/>"), 0644))
	path, ok = FindPDOS(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "graphene.PDOS.xml"), path)
}
