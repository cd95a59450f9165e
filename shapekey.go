// Package shapekey transfers, mirrors and composes blend shapes (shape keys)
// between meshes held by a host application.
//
// The host is reached through MeshStore and RuleStore. Operations read point
// sets fresh on every call and write results back as named shapes.
package shapekey

import (
	"errors"
	"fmt"

	"github.com/soypat/shapekey/compose"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrConfiguration is returned when an operation cannot run with the
	// given meshes and options. Nothing is written.
	ErrConfiguration = errors.New("shapekey: invalid configuration")
	// ErrTopologyMismatch is returned by a standard transfer between meshes
	// with different vertex counts. Nothing is written.
	ErrTopologyMismatch = errors.New("shapekey: vertex counts differ, use smart transfer")
)

// TargetError is a failure confined to one shape of a multi shape operation.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("shape %q: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// MeshStore is the host storage of meshes and their shapes.
// Shape coordinates are absolute.
type MeshStore interface {
	compose.Store
	Target(mesh, name string) ([]r3.Vec, error)
	// ActiveTarget returns the name of the shape selected in the host.
	ActiveTarget(mesh string) (string, error)
	// CreateTarget adds a shape and returns its name, which may differ from
	// name if it was taken.
	CreateTarget(mesh, name string, points []r3.Vec) (string, error)
	// UVPerVertex returns one UV coordinate per vertex or nil if the mesh
	// has no UV layer.
	UVPerVertex(mesh string) ([]r2.Vec, error)
	Faces(mesh string) ([][]int, error)
}

// RuleStore persists composition rules per mesh.
type RuleStore interface {
	Rules(mesh string) ([]compose.Rule, error)
	SetRules(mesh string, rules []compose.Rule) error
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// isBasis reports whether name is not one of the shapes of mesh, as is the
// case for the basis.
func isBasis(store MeshStore, mesh, name string) (bool, error) {
	names, err := store.TargetNames(mesh)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return false, nil
		}
	}
	return true, nil
}
