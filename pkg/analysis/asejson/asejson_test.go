package asejson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalTagged(t *testing.T) {
	raw := `{"__ndarray__": [[2, 3], "float64", [1, 2, 3, 4, 5, 6]]}`
	var a NDArray
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	assert.Equal(t, []int{2, 3}, a.Shape)
	assert.Equal(t, "float64", a.Dtype)
	assert.Equal(t, 6, a.Len())
	assert.Equal(t, 6.0, a.At(1, 2))
	assert.Equal(t, 4.0, a.At(1, 0))
}

func TestUnmarshalTaggedNestedData(t *testing.T) {
	raw := `{"__ndarray__": [[2, 2], "float64", [[1, 2], [3, 4]]]}`
	var a NDArray
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	assert.Equal(t, []float64{1, 2, 3, 4}, a.Data)
}

func TestUnmarshalPlainArray(t *testing.T) {
	var a NDArray
	require.NoError(t, json.Unmarshal([]byte(`[0.5, 0.5, 0.0]`), &a))
	assert.Equal(t, []int{3}, a.Shape)
	assert.Equal(t, []float64{0.5, 0.5, 0}, a.Data)
}

func TestUnmarshalShapeMismatch(t *testing.T) {
	raw := `{"__ndarray__": [[2, 2], "float64", [1, 2, 3]]}`
	var a NDArray
	assert.Error(t, json.Unmarshal([]byte(raw), &a))
}

func TestVectors(t *testing.T) {
	a := NDArray{Shape: []int{2, 3}, Data: []float64{1, 2, 3, 4, 5, 6}}
	vs, err := a.Vectors()
	require.NoError(t, err)
	assert.Equal(t, [][3]float64{{1, 2, 3}, {4, 5, 6}}, vs)

	bad := NDArray{Shape: []int{4}, Data: []float64{1, 2, 3, 4}}
	_, err = bad.Vectors()
	assert.Error(t, err)
}
