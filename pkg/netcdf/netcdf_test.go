package netcdf

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cdfBuilder assembles a classic CDF-1 byte stream for tests.
type cdfBuilder struct {
	dims []Dim
	vars []cdfVar
}

type cdfVar struct {
	name   string
	dimIDs []int
	typ    Type
	data   []float64
}

func writeInt32(buf *bytes.Buffer, v int32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeName(buf *bytes.Buffer, name string) {
	writeInt32(buf, int32(len(name)))
	buf.WriteString(name)
	for pad := (4 - len(name)%4) % 4; pad > 0; pad-- {
		buf.WriteByte(0)
	}
}

func (b *cdfBuilder) encode(t *testing.T) []byte {
	t.Helper()

	var header bytes.Buffer
	header.WriteString("CDF\x01")
	writeInt32(&header, 0) // numrecs

	if len(b.dims) == 0 {
		writeInt32(&header, 0)
		writeInt32(&header, 0)
	} else {
		writeInt32(&header, tagDimension)
		writeInt32(&header, int32(len(b.dims)))
		for _, d := range b.dims {
			writeName(&header, d.Name)
			writeInt32(&header, int32(d.Len))
		}
	}

	// One global attribute to exercise the skip path.
	writeInt32(&header, tagAttribute)
	writeInt32(&header, 1)
	writeName(&header, "title")
	writeInt32(&header, int32(TypeChar))
	writeInt32(&header, 4)
	header.WriteString("test")

	var varMeta []bytes.Buffer
	if len(b.vars) == 0 {
		writeInt32(&header, 0)
		writeInt32(&header, 0)
	} else {
		writeInt32(&header, tagVariable)
		writeInt32(&header, int32(len(b.vars)))
		for _, v := range b.vars {
			var m bytes.Buffer
			writeName(&m, v.name)
			writeInt32(&m, int32(len(v.dimIDs)))
			for _, id := range v.dimIDs {
				writeInt32(&m, int32(id))
			}
			writeInt32(&m, 0) // no attributes
			writeInt32(&m, 0)
			writeInt32(&m, int32(v.typ))
			n := 1
			for _, id := range v.dimIDs {
				n *= b.dims[id].Len
			}
			vsize := (n*v.typ.size() + 3) &^ 3
			writeInt32(&m, int32(vsize))
			// begin patched below
			varMeta = append(varMeta, m)
		}
	}

	headerLen := header.Len()
	for _, m := range varMeta {
		headerLen += m.Len() + 4 // +4 for the begin word
	}

	var data bytes.Buffer
	begins := make([]int32, len(b.vars))
	for i, v := range b.vars {
		begins[i] = int32(headerLen + data.Len())
		for _, x := range v.data {
			switch v.typ {
			case TypeDouble:
				_ = binary.Write(&data, binary.BigEndian, math.Float64bits(x))
			case TypeFloat:
				_ = binary.Write(&data, binary.BigEndian, math.Float32bits(float32(x)))
			case TypeInt:
				writeInt32(&data, int32(x))
			case TypeShort:
				_ = binary.Write(&data, binary.BigEndian, int16(x))
			case TypeByte, TypeChar:
				data.WriteByte(byte(int8(x)))
			}
		}
		for data.Len()%4 != 0 {
			data.WriteByte(0)
		}
	}

	out := header
	for i, m := range varMeta {
		out.Write(m.Bytes())
		writeInt32(&out, begins[i])
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

func TestParseDimensionsAndVariables(t *testing.T) {
	b := &cdfBuilder{
		dims: []Dim{{Name: "n1", Len: 2}, {Name: "n2", Len: 3}},
		vars: []cdfVar{
			{name: "grid", dimIDs: []int{0, 1}, typ: TypeDouble, data: []float64{1, 2, 3, 4, 5, 6}},
			{name: "count", dimIDs: []int{0}, typ: TypeInt, data: []float64{7, 8}},
		},
	}

	f, err := Parse(b.encode(t))
	require.NoError(t, err)

	n1, ok := f.Dim("n1")
	require.True(t, ok)
	assert.Equal(t, 2, n1)
	_, ok = f.Dim("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"grid", "count"}, f.VarNames())

	grid, ok := f.Var("grid")
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, grid.Shape())
	vals, err := grid.Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, vals)

	count, ok := f.Var("count")
	require.True(t, ok)
	vals, err = count.Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8}, vals)
}

func TestParseFloatAndShortTypes(t *testing.T) {
	b := &cdfBuilder{
		dims: []Dim{{Name: "n", Len: 3}},
		vars: []cdfVar{
			{name: "f", dimIDs: []int{0}, typ: TypeFloat, data: []float64{0.5, -1.5, 2}},
			{name: "s", dimIDs: []int{0}, typ: TypeShort, data: []float64{-3, 0, 12}},
		},
	}

	f, err := Parse(b.encode(t))
	require.NoError(t, err)

	fv, _ := f.Var("f")
	vals, err := fv.Floats()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, -1.5, 2}, vals, 1e-6)

	sv, _ := f.Var("s")
	vals, err = sv.Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{-3, 0, 12}, vals)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not a netcdf file"))
	assert.Error(t, err)

	_, err = Parse([]byte{'C', 'D', 'F', 5, 0, 0, 0, 0})
	assert.Error(t, err, "HDF5-based NetCDF-4 is out of scope")

	_, err = Parse(nil)
	assert.Error(t, err)
}

func TestParseTruncatedData(t *testing.T) {
	b := &cdfBuilder{
		dims: []Dim{{Name: "n", Len: 4}},
		vars: []cdfVar{{name: "v", dimIDs: []int{0}, typ: TypeDouble, data: []float64{1, 2, 3, 4}}},
	}
	raw := b.encode(t)

	f, err := Parse(raw[:len(raw)-8])
	require.NoError(t, err, "header itself is intact")
	v, _ := f.Var("v")
	_, err = v.Floats()
	assert.Error(t, err)
}
