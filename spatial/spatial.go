// Package spatial implements nearest neighbour queries over
// point sets using a balanced k-d tree.
package spatial

import (
	"math"
	"sort"

	"github.com/soypat/shapekey/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Neighbor is the result of a nearest neighbour query.
type Neighbor struct {
	// Index of the point in the set the Index was built from.
	Index int
	// Dist is the euclidean distance from the query to the point.
	Dist float64
}

// Index is an immutable k-d tree over a set of 3D points. Queries
// return the position of points in the originating slice.
type Index struct {
	tree kdtree.Tree
	n    int
}

// New builds a balanced k-d tree over points. The slice is copied
// so it may be modified after the call. An empty set yields an empty
// Index whose queries report no match.
func New(points []r3.Vec) *Index {
	set := make(pointSet, len(points))
	for i, p := range points {
		set[i] = indexedPoint{P: p, Index: i}
	}
	idx := &Index{n: len(points)}
	if len(set) == 0 {
		return idx
	}
	idx.tree = *kdtree.New(set, true)
	return idx
}

// NewUV builds an Index over 2D points which are placed
// on the z=0 plane.
func NewUV(points []r2.Vec) *Index {
	p3 := make([]r3.Vec, len(points))
	for i, p := range points {
		p3[i] = r3.Vec{X: p.X, Y: p.Y}
	}
	return New(p3)
}

// Len returns the amount of points in the index.
func (idx *Index) Len() int { return idx.n }

// Nearest returns the closest point to q. ok is false if the index is empty.
func (idx *Index) Nearest(q r3.Vec) (index int, dist float64, ok bool) {
	if idx.n == 0 {
		return -1, math.Inf(1), false
	}
	got, dist2 := idx.tree.Nearest(&indexedPoint{P: q})
	if got == nil {
		return -1, math.Inf(1), false
	}
	return got.(*indexedPoint).Index, math.Sqrt(dist2), true
}

// NearestUV is Nearest for a query in the UV plane.
func (idx *Index) NearestUV(q r2.Vec) (index int, dist float64, ok bool) {
	return idx.Nearest(r3.Vec{X: q.X, Y: q.Y})
}

// KNearest returns up to k closest points to q sorted by ascending distance.
// Points at equal distance are ordered by index. The result is empty
// if the index is empty or k < 1.
func (idx *Index) KNearest(q r3.Vec, k int) []Neighbor {
	if idx.n == 0 || k < 1 {
		return nil
	}
	keep := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keep, &indexedPoint{P: q})
	out := make([]Neighbor, 0, len(keep.Heap))
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue // Sentinel left in heap when fewer than k points exist.
		}
		out = append(out, Neighbor{
			Index: c.Comparable.(*indexedPoint).Index,
			Dist:  math.Sqrt(c.Dist),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dist == out[j].Dist {
			return out[i].Index < out[j].Index
		}
		return out[i].Dist < out[j].Dist
	})
	return out
}

// KNearestUV is KNearest for a query in the UV plane.
func (idx *Index) KNearestUV(q r2.Vec, k int) []Neighbor {
	return idx.KNearest(r3.Vec{X: q.X, Y: q.Y}, k)
}

type indexedPoint struct {
	P     r3.Vec
	Index int
}

func (p *indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*indexedPoint)
	switch d {
	case 0:
		return p.P.X - q.P.X
	case 1:
		return p.P.Y - q.P.Y
	case 2:
		return p.P.Z - q.P.Z
	}
	panic("unreachable")
}

func (p *indexedPoint) Dims() int { return 3 }

// Distance returns the squared distance between points.
func (p *indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(*indexedPoint)
	return r3.Norm2(r3.Sub(p.P, q.P))
}

type pointSet []indexedPoint

// Index returns the ith element of the list of points.
func (s pointSet) Index(i int) kdtree.Comparable { return &s[i] }

// Len returns the length of the list.
func (s pointSet) Len() int { return len(s) }

// Pivot partitions the list based on the dimension specified.
func (s pointSet) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: int(d), points: s}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (s pointSet) Slice(start, end int) kdtree.Interface {
	return s[start:end]
}

// Bounds implements the kdtree.Bounder interface and expects
// a calculation based on current points which may be modified
// by kdtree.New()
func (s pointSet) Bounds() *kdtree.Bounding {
	min := indexedPoint{P: d3.Elem(math.MaxFloat64)}
	max := indexedPoint{P: d3.Elem(-math.MaxFloat64)}
	for _, p := range s {
		min.P = d3.MinElem(min.P, p.P)
		max.P = d3.MaxElem(max.P, p.P)
	}
	return &kdtree.Bounding{
		Min: &min,
		Max: &max,
	}
}

type kdPlane struct {
	dim    int
	points []indexedPoint
}

func (p kdPlane) Less(i, j int) bool {
	return p.points[i].Compare(&p.points[j], kdtree.Dim(p.dim)) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p kdPlane) Len() int {
	return len(p.points)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
