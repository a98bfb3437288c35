// Package netcdf reads classic-format (CDF-1/CDF-2) NetCDF files.
//
// The solver writes its 3-D grid artifacts in the classic format, and the
// analysis tasks only need fixed-size numeric variables from them, so the
// reader covers exactly that subset: header parsing, dimensions, and
// whole-variable reads of non-record variables. Attributes are skipped,
// record variables are rejected.
package netcdf

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Type is a classic NetCDF external data type.
type Type int32

const (
	TypeByte   Type = 1
	TypeChar   Type = 2
	TypeShort  Type = 3
	TypeInt    Type = 4
	TypeFloat  Type = 5
	TypeDouble Type = 6
)

func (t Type) size() int {
	switch t {
	case TypeByte, TypeChar:
		return 1
	case TypeShort:
		return 2
	case TypeInt, TypeFloat:
		return 4
	case TypeDouble:
		return 8
	}
	return 0
}

// Header list tags.
const (
	tagDimension = 0x0A
	tagVariable  = 0x0B
	tagAttribute = 0x0C
)

// Dim is a named dimension.
type Dim struct {
	Name string
	Len  int
}

// Var is a variable described by the file header.
type Var struct {
	Name string
	Type Type
	Dims []Dim

	begin int64
	file  *File
}

// File is a parsed classic NetCDF file, held fully in memory. Grid
// artifacts are tens of megabytes at most, and every variable is read
// anyway.
type File struct {
	Dims []Dim
	vars map[string]*Var
	// order preserves header declaration order for deterministic output.
	order []string
	data  []byte
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("netcdf: truncated header (want %d bytes, have %d)", n, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) int32() (int32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *reader) int64() (int64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// name reads a length-prefixed name padded to a 4-byte boundary.
func (r *reader) name() (string, error) {
	n, err := r.int32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("netcdf: negative name length")
	}
	padded := (int(n) + 3) &^ 3
	b, err := r.bytes(padded)
	if err != nil {
		return "", err
	}
	return string(b[:n]), nil
}

// Open parses the named classic NetCDF file.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("netcdf: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a classic NetCDF file from raw bytes.
func Parse(data []byte) (*File, error) {
	if len(data) < 8 || data[0] != 'C' || data[1] != 'D' || data[2] != 'F' {
		return nil, fmt.Errorf("netcdf: not a classic NetCDF file")
	}
	version := data[3]
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("netcdf: unsupported format version %d (classic CDF-1/CDF-2 only)", version)
	}

	r := &reader{buf: data, off: 4}
	if _, err := r.int32(); err != nil { // numrecs, unused without record vars
		return nil, err
	}

	f := &File{vars: make(map[string]*Var), data: data}

	// dim_list
	dimCount, err := readListHeader(r, tagDimension)
	if err != nil {
		return nil, fmt.Errorf("netcdf: dimension list: %w", err)
	}
	for i := 0; i < dimCount; i++ {
		name, err := r.name()
		if err != nil {
			return nil, fmt.Errorf("netcdf: dimension name: %w", err)
		}
		length, err := r.int32()
		if err != nil {
			return nil, fmt.Errorf("netcdf: dimension length: %w", err)
		}
		f.Dims = append(f.Dims, Dim{Name: name, Len: int(length)})
	}

	// gatt_list
	if err := skipAttributes(r); err != nil {
		return nil, fmt.Errorf("netcdf: global attributes: %w", err)
	}

	// var_list
	varCount, err := readListHeader(r, tagVariable)
	if err != nil {
		return nil, fmt.Errorf("netcdf: variable list: %w", err)
	}
	for i := 0; i < varCount; i++ {
		v := &Var{file: f}
		if v.Name, err = r.name(); err != nil {
			return nil, fmt.Errorf("netcdf: variable name: %w", err)
		}
		ndims, err := r.int32()
		if err != nil {
			return nil, err
		}
		for d := int32(0); d < ndims; d++ {
			dimID, err := r.int32()
			if err != nil {
				return nil, err
			}
			if int(dimID) < 0 || int(dimID) >= len(f.Dims) {
				return nil, fmt.Errorf("netcdf: variable %s references unknown dimension %d", v.Name, dimID)
			}
			v.Dims = append(v.Dims, f.Dims[dimID])
		}
		if err := skipAttributes(r); err != nil {
			return nil, fmt.Errorf("netcdf: attributes of %s: %w", v.Name, err)
		}
		typ, err := r.int32()
		if err != nil {
			return nil, err
		}
		v.Type = Type(typ)
		if v.Type.size() == 0 {
			return nil, fmt.Errorf("netcdf: variable %s has unsupported type %d", v.Name, typ)
		}
		if _, err := r.int32(); err != nil { // vsize, recomputed from shape
			return nil, err
		}
		if version == 1 {
			begin, err := r.int32()
			if err != nil {
				return nil, err
			}
			v.begin = int64(begin)
		} else {
			if v.begin, err = r.int64(); err != nil {
				return nil, err
			}
		}
		f.vars[v.Name] = v
		f.order = append(f.order, v.Name)
	}

	return f, nil
}

// readListHeader reads a (tag, count) pair. An absent list is encoded as
// two zero words.
func readListHeader(r *reader, wantTag int32) (int, error) {
	tag, err := r.int32()
	if err != nil {
		return 0, err
	}
	count, err := r.int32()
	if err != nil {
		return 0, err
	}
	if tag == 0 && count == 0 {
		return 0, nil
	}
	if tag != wantTag {
		return 0, fmt.Errorf("unexpected list tag 0x%02X (want 0x%02X)", tag, wantTag)
	}
	return int(count), nil
}

func skipAttributes(r *reader) error {
	count, err := readListHeader(r, tagAttribute)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if _, err := r.name(); err != nil {
			return err
		}
		typ, err := r.int32()
		if err != nil {
			return err
		}
		nelems, err := r.int32()
		if err != nil {
			return err
		}
		size := Type(typ).size()
		if size == 0 {
			return fmt.Errorf("attribute with unsupported type %d", typ)
		}
		padded := (int(nelems)*size + 3) &^ 3
		if _, err := r.bytes(padded); err != nil {
			return err
		}
	}
	return nil
}

// Var looks up a variable by name.
func (f *File) Var(name string) (*Var, bool) {
	v, ok := f.vars[name]
	return v, ok
}

// VarNames returns variable names in header order.
func (f *File) VarNames() []string {
	return append([]string(nil), f.order...)
}

// Dim looks up a dimension length by name.
func (f *File) Dim(name string) (int, bool) {
	for _, d := range f.Dims {
		if d.Name == name {
			return d.Len, true
		}
	}
	return 0, false
}

// Shape returns the variable's dimension lengths in declaration order.
func (v *Var) Shape() []int {
	out := make([]int, len(v.Dims))
	for i, d := range v.Dims {
		out[i] = d.Len
	}
	return out
}

// Len returns the total element count.
func (v *Var) Len() int {
	n := 1
	for _, d := range v.Dims {
		if d.Len == 0 {
			return 0 // record dimension; unsupported
		}
		n *= d.Len
	}
	return n
}

// Floats reads the whole variable as float64 values in row-major order.
func (v *Var) Floats() ([]float64, error) {
	n := v.Len()
	if n == 0 && len(v.Dims) > 0 {
		return nil, fmt.Errorf("netcdf: record variable %s is not supported", v.Name)
	}
	size := v.Type.size()
	end := v.begin + int64(n*size)
	if v.begin < 0 || end > int64(len(v.file.data)) {
		return nil, fmt.Errorf("netcdf: variable %s data extends past end of file", v.Name)
	}
	raw := v.file.data[v.begin:end]

	out := make([]float64, n)
	switch v.Type {
	case TypeByte, TypeChar:
		for i := 0; i < n; i++ {
			out[i] = float64(int8(raw[i]))
		}
	case TypeShort:
		for i := 0; i < n; i++ {
			out[i] = float64(int16(binary.BigEndian.Uint16(raw[2*i:])))
		}
	case TypeInt:
		for i := 0; i < n; i++ {
			out[i] = float64(int32(binary.BigEndian.Uint32(raw[4*i:])))
		}
	case TypeFloat:
		for i := 0; i < n; i++ {
			out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:])))
		}
	case TypeDouble:
		for i := 0; i < n; i++ {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[8*i:]))
		}
	default:
		return nil, fmt.Errorf("netcdf: unsupported type %d", v.Type)
	}
	return out, nil
}
