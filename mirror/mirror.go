// Package mirror discovers symmetric vertex pairs of a basis point
// set and reflects shape deltas across them.
package mirror

import (
	"errors"

	"github.com/soypat/shapekey/spatial"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultTolerance is the maximum distance between a reflected vertex
// and its partner in mesh local units.
const DefaultTolerance = 1e-4

// ErrLength is returned when a shape does not have one point per basis vertex.
var ErrLength = errors.New("mirror: shape and basis lengths differ")

// Pairing maps every vertex of a basis to its mirrored counterpart.
type Pairing struct {
	Axis Axis
	// Mirror holds the partner of each vertex, -1 for vertices
	// without a partner. Seam vertices map to themselves.
	// Mirror[Mirror[i]] == i for every paired i.
	Mirror []int
	// Seam vertices lie on the mirror plane and pair with themselves.
	Seam []int
	// Asymmetric vertices are left without a partner: none within
	// tolerance, or every candidate was claimed by another vertex.
	Asymmetric []int
}

// Resolve builds the mirror pairing of basis across axis. A vertex pairs with
// the basis vertex nearest to its reflection if that distance is within tol.
// Pairs are claimed in index order. A vertex whose nearest reflected vertex
// already belongs to another pair stays open to be claimed by a later vertex
// and is asymmetric if none does.
func Resolve(basis []r3.Vec, axis Axis, tol float64) Pairing {
	return ResolveIndex(spatial.New(basis), basis, axis, tol)
}

// ResolveIndex is Resolve with a prebuilt index over basis.
func ResolveIndex(idx *spatial.Index, basis []r3.Vec, axis Axis, tol float64) Pairing {
	p := Pairing{
		Axis:   axis,
		Mirror: make([]int, len(basis)),
	}
	for i := range p.Mirror {
		p.Mirror[i] = -1
	}
	for i, v := range basis {
		if p.Mirror[i] != -1 {
			continue // claimed by an earlier vertex.
		}
		j, dist, ok := idx.Nearest(axis.Reflect(v))
		switch {
		case !ok || dist > tol || p.Mirror[j] != -1:
			// Unpaired for now, a later vertex may still claim it.
		case j == i:
			p.Mirror[i] = i
			p.Seam = append(p.Seam, i)
		default:
			p.Mirror[i] = j
			p.Mirror[j] = i
		}
	}
	for i, j := range p.Mirror {
		if j == -1 {
			p.Asymmetric = append(p.Asymmetric, i)
		}
	}
	return p
}

// Paired returns the amount of vertices with a partner other than themselves.
func (p Pairing) Paired() int {
	n := 0
	for i, j := range p.Mirror {
		if j >= 0 && j != i {
			n++
		}
	}
	return n
}

// IsSeam reports whether vertex i pairs with itself.
func (p Pairing) IsSeam(i int) bool { return p.Mirror[i] == i }

// MirrorShape returns the shape whose delta is the reflection of shape's delta.
// A paired vertex A takes basis[A] plus the reflected delta of its partner B.
// Seam vertices take the mean of their delta and its reflection so they stay
// symmetric. Asymmetric vertices are reset to basis.
func (p Pairing) MirrorShape(basis, shape []r3.Vec) ([]r3.Vec, error) {
	if len(basis) != len(p.Mirror) || len(shape) != len(basis) {
		return nil, ErrLength
	}
	out := make([]r3.Vec, len(basis))
	for i, j := range p.Mirror {
		switch {
		case j < 0:
			out[i] = basis[i]
		case p.IsSeam(i):
			out[i] = r3.Add(basis[i], p.seamDelta(r3.Sub(shape[i], basis[i])))
		default:
			out[i] = r3.Add(basis[i], p.Axis.Reflect(r3.Sub(shape[j], basis[j])))
		}
	}
	return out, nil
}

// Symmetrize copies the reflected delta of vertices in the half-space Axis
// points to onto their partners on the opposite side. Vertices without a
// partner and the source half keep their shape.
func (p Pairing) Symmetrize(basis, shape []r3.Vec) ([]r3.Vec, error) {
	if len(basis) != len(p.Mirror) || len(shape) != len(basis) {
		return nil, ErrLength
	}
	out := make([]r3.Vec, len(shape))
	copy(out, shape)
	for src, dst := range p.Mirror {
		if dst < 0 || !p.Axis.onSourceSide(basis[src]) {
			continue
		}
		delta := r3.Sub(shape[src], basis[src])
		if p.IsSeam(src) {
			out[dst] = r3.Add(basis[dst], p.seamDelta(delta))
			continue
		}
		if p.Axis.onSourceSide(basis[dst]) && p.Axis.Coord(basis[dst]) != 0 {
			continue // partner also on the source side.
		}
		out[dst] = r3.Add(basis[dst], p.Axis.Reflect(delta))
	}
	return out, nil
}

func (p Pairing) seamDelta(d r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(d, p.Axis.Reflect(d)))
}
