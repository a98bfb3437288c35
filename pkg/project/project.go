// Package project defines the closed set of project types the runner
// supervises and the parsing of their wire representation.
package project

import (
	"fmt"
	"strings"
)

// Type identifies the kind of calculation a job runs.
//
// NOTE: These values appear in run manifests and in the backend contract
// and are part of the stable external interface.
type Type string

const (
	SinglePoint          Type = "single_point"
	MolecularDynamics    Type = "md"
	GeometryOptimization Type = "geometry_optimization"
)

// All returns every supported project type in declaration order.
func All() []Type {
	return []Type{SinglePoint, MolecularDynamics, GeometryOptimization}
}

// Parse converts a string into a Type. Matching is case-insensitive and
// tolerant of surrounding whitespace.
func Parse(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case SinglePoint:
		return SinglePoint, nil
	case MolecularDynamics:
		return MolecularDynamics, nil
	case GeometryOptimization:
		return GeometryOptimization, nil
	default:
		return "", fmt.Errorf("unknown project type: %q", s)
	}
}

// Valid reports whether t is one of the supported project types.
func (t Type) Valid() bool {
	switch t {
	case SinglePoint, MolecularDynamics, GeometryOptimization:
		return true
	}
	return false
}

func (t Type) String() string {
	return string(t)
}
