package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// R3 vector routines shared by the mapping engines.
// Point sets are stored as []r3.Vec and most functions here
// operate element wise on vectors or in bulk over sets.

func Elem(sides float64) r3.Vec {
	return r3.Vec{
		X: sides,
		Y: sides,
		Z: sides,
	}
}

func EqualWithin(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// Max returns the largest component of a.
func Max(a r3.Vec) float64 {
	return math.Max(a.Z, math.Max(a.X, a.Y))
}

func MulElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{
		X: a.X * b.X,
		Y: a.Y * b.Y,
		Z: a.Z * b.Z,
	}
}

// DivElemOr divides a by b element wise. Components of b whose
// magnitude is not above tol yield the corresponding component of or.
func DivElemOr(a, b, or r3.Vec, tol float64) r3.Vec {
	div := func(x, y, z float64) float64 {
		if y > tol || y < -tol {
			return x / y
		}
		return z
	}
	return r3.Vec{
		X: div(a.X, b.X, or.X),
		Y: div(a.Y, b.Y, or.Y),
		Z: div(a.Z, b.Z, or.Z),
	}
}

// Set is an ordered set of points, one per mesh vertex.
type Set []r3.Vec

// Min return the minimum components of a set of vectors.
func (a Set) Min() r3.Vec {
	vmin := a[0]
	for _, v := range a[1:] {
		vmin = MinElem(vmin, v)
	}
	return vmin
}

// Max return the maximum components of a set of vectors.
func (a Set) Max() r3.Vec {
	vmax := a[0]
	for _, v := range a[1:] {
		vmax = MaxElem(vmax, v)
	}
	return vmax
}

// Mean returns the centroid of the set. Empty sets return the zero vector.
func (a Set) Mean() r3.Vec {
	if len(a) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, v := range a {
		sum = r3.Add(sum, v)
	}
	return r3.Scale(1/float64(len(a)), sum)
}

// Bounds returns the bounding box of the set. Empty sets return the zero box.
func (a Set) Bounds() Box {
	if len(a) == 0 {
		return Box{}
	}
	return Box{Min: a.Min(), Max: a.Max()}
}

// Sub returns a-b element wise. Both sets must be of equal length.
func (a Set) Sub(b Set) Set {
	if len(a) != len(b) {
		panic("d3: set length mismatch")
	}
	out := make(Set, len(a))
	for i := range a {
		out[i] = r3.Sub(a[i], b[i])
	}
	return out
}

// Clone returns a copy of a.
func (a Set) Clone() Set {
	out := make(Set, len(a))
	copy(out, a)
	return out
}
