// Package asejson decodes the ndarray-in-JSON encoding the solver uses
// for its results artifact.
//
// Arrays appear as {"__ndarray__": [shape, dtype, data]} where shape is
// a list of dimensions, dtype a numpy-style type name, and data the
// flattened values in row-major order. Nested plain lists also occur and
// are flattened on decode.
package asejson

import (
	"encoding/json"
	"fmt"
)

// NDArray is a dense row-major array with an explicit shape.
type NDArray struct {
	Shape []int
	Dtype string
	Data  []float64
}

// Len returns the total number of elements implied by the shape.
func (a *NDArray) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// At returns the element at the given row-major indices.
func (a *NDArray) At(idx ...int) float64 {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("asejson: %d indices for %d-dimensional array", len(idx), len(a.Shape)))
	}
	flat := 0
	for i, ix := range idx {
		if ix < 0 || ix >= a.Shape[i] {
			panic(fmt.Sprintf("asejson: index %d out of range for axis %d (size %d)", ix, i, a.Shape[i]))
		}
		flat = flat*a.Shape[i] + ix
	}
	return a.Data[flat]
}

// UnmarshalJSON accepts either the tagged {"__ndarray__": ...} form or a
// plain (possibly nested) JSON array.
func (a *NDArray) UnmarshalJSON(b []byte) error {
	var tagged struct {
		NDArray []json.RawMessage `json:"__ndarray__"`
	}
	if err := json.Unmarshal(b, &tagged); err == nil && tagged.NDArray != nil {
		if len(tagged.NDArray) < 3 {
			return fmt.Errorf("asejson: __ndarray__ needs [shape, dtype, data], got %d elements", len(tagged.NDArray))
		}
		if err := json.Unmarshal(tagged.NDArray[0], &a.Shape); err != nil {
			return fmt.Errorf("asejson: decode shape: %w", err)
		}
		if err := json.Unmarshal(tagged.NDArray[1], &a.Dtype); err != nil {
			return fmt.Errorf("asejson: decode dtype: %w", err)
		}
		data, err := flatten(tagged.NDArray[2])
		if err != nil {
			return fmt.Errorf("asejson: decode data: %w", err)
		}
		a.Data = data
		if want := a.Len(); want != len(a.Data) {
			return fmt.Errorf("asejson: shape %v implies %d elements, data has %d", a.Shape, want, len(a.Data))
		}
		return nil
	}

	// Plain nested array: infer a flat shape.
	data, err := flatten(b)
	if err != nil {
		return fmt.Errorf("asejson: decode array: %w", err)
	}
	a.Shape = []int{len(data)}
	a.Data = data
	return nil
}

// flatten walks arbitrarily nested JSON arrays of numbers in order.
func flatten(raw json.RawMessage) ([]float64, error) {
	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return []float64{scalar}, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("element is neither number nor array")
	}
	out := make([]float64, 0, len(list))
	for _, el := range list {
		vals, err := flatten(el)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

// Vectors reinterprets a flat (n*3) or shaped (n,3) array as 3-vectors.
func (a *NDArray) Vectors() ([][3]float64, error) {
	if len(a.Data)%3 != 0 {
		return nil, fmt.Errorf("asejson: %d values do not form 3-vectors", len(a.Data))
	}
	out := make([][3]float64, len(a.Data)/3)
	for i := range out {
		out[i] = [3]float64{a.Data[3*i], a.Data[3*i+1], a.Data[3*i+2]}
	}
	return out, nil
}
