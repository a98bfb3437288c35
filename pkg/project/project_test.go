package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Type
		wantErr bool
	}{
		{"single point", "single_point", SinglePoint, false},
		{"md", "md", MolecularDynamics, false},
		{"geometry optimization", "geometry_optimization", GeometryOptimization, false},
		{"uppercase", "SINGLE_POINT", SinglePoint, false},
		{"whitespace", "  md  ", MolecularDynamics, false},
		{"empty", "", "", true},
		{"unknown", "phonon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValid(t *testing.T) {
	for _, pt := range All() {
		assert.True(t, pt.Valid(), "expected %s to be valid", pt)
	}
	assert.False(t, Type("relax").Valid())
	assert.False(t, Type("").Valid())
}
