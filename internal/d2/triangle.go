package d2

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Triangle is a 2D triangle, usually in UV space.
type Triangle [3]r2.Vec

// Centroid returns the mean of the triangle's vertices.
func (t Triangle) Centroid() r2.Vec {
	return r2.Scale(1./3., r2.Add(r2.Add(t[0], t[1]), t[2]))
}

// Bounds returns the axis aligned bounding box of the triangle.
func (t Triangle) Bounds() Box {
	b := Box{Min: t[0], Max: t[0]}
	return b.Include(t[1]).Include(t[2])
}

// Barycentric returns the barycentric coordinates of p with respect
// to the triangle's vertices such that p = w[0]*t[0] + w[1]*t[1] + w[2]*t[2]
// and the weights sum to 1. ok is false for degenerate triangles.
func (t Triangle) Barycentric(p r2.Vec) (w [3]float64, ok bool) {
	e0 := r2.Sub(t[1], t[0])
	e1 := r2.Sub(t[2], t[0])
	den := cross(e0, e1)
	if math.Abs(den) < 1e-14 {
		return w, false
	}
	q := r2.Sub(p, t[0])
	w[1] = cross(q, e1) / den
	w[2] = cross(e0, q) / den
	w[0] = 1 - w[1] - w[2]
	return w, true
}

// Contains reports whether p lies inside the triangle or on its edges,
// returning the barycentric weights of p when it does. tol relaxes
// the edge test to absorb floating point error.
func (t Triangle) Contains(p r2.Vec, tol float64) (w [3]float64, ok bool) {
	w, ok = t.Barycentric(p)
	if !ok {
		return w, false
	}
	for _, c := range w {
		if c < -tol {
			return w, false
		}
	}
	return w, true
}
