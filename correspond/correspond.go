// Package correspond builds vertex correspondences between two meshes
// of possibly different topology so per-vertex data can be carried
// from one to the other.
package correspond

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/shapekey/internal/d3"
	"github.com/soypat/shapekey/spatial"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNoUV is returned by UV mapping when a mesh lacks UV coordinates.
	ErrNoUV = errors.New("correspond: mesh has no UV coordinates")
	// ErrUVLength is returned when per vertex UVs do not match the vertex count.
	ErrUVLength = errors.New("correspond: UV count differs from vertex count")
)

// minExtent is the smallest bounding box side for which scale
// normalization is meaningful.
const minExtent = 1e-6

// Mesh is the mapper's view of a mesh.
type Mesh struct {
	// Points is the basis position of each vertex.
	Points []r3.Vec
	// UV is the averaged UV coordinate of each vertex, nil if
	// the mesh has no UV layer. Only used by ModeUV.
	UV []r2.Vec
	// Faces lists the vertex indices of each polygon. Only used
	// by ModeUV on the source mesh.
	Faces [][]int
}

// Interp is an interpolated match: the target vertex is a weighted
// blend of several source vertices. Weights sum to 1.
type Interp struct {
	Target  int
	Sources []int
	Weights []float64
}

// Correspondence maps each target vertex to source vertices. Every
// target index is either directly mapped, interpolated or unmapped.
type Correspondence struct {
	// Direct holds the source index of each directly matched target
	// vertex and -1 elsewhere. len(Direct) is the target vertex count.
	Direct []int
	// Interp holds interpolated matches in ascending target order.
	Interp []Interp
	// Unmapped lists target vertices no source vertex contributes to.
	Unmapped []int
	// Normalized is true if positions were scale normalized before matching.
	Normalized bool
}

func newCorrespondence(n int) *Correspondence {
	c := &Correspondence{Direct: make([]int, n)}
	for i := range c.Direct {
		c.Direct[i] = -1
	}
	return c
}

// Len returns the amount of target vertices.
func (c *Correspondence) Len() int { return len(c.Direct) }

// DirectCount returns the amount of directly matched target vertices.
func (c *Correspondence) DirectCount() int {
	return len(c.Direct) - len(c.Interp) - len(c.Unmapped)
}

// Empty reports whether no target vertex has a source.
func (c *Correspondence) Empty() bool {
	return len(c.Unmapped) == len(c.Direct)
}

func (c *Correspondence) addInterp(target int, sources []int, weights []float64) {
	floats.Scale(1/floats.Sum(weights), weights)
	c.Interp = append(c.Interp, Interp{Target: target, Sources: sources, Weights: weights})
}

// Validate checks every target index appears in exactly one of the
// direct, interpolated or unmapped sets and that interpolation weights
// are normalized.
func (c *Correspondence) Validate(sourceLen int) error {
	seen := make([]bool, len(c.Direct))
	for t, s := range c.Direct {
		if s < 0 {
			continue
		}
		if s >= sourceLen {
			return fmt.Errorf("target %d maps to out of range source %d", t, s)
		}
		seen[t] = true
	}
	mark := func(t int) error {
		if t < 0 || t >= len(seen) {
			return fmt.Errorf("target index %d out of range", t)
		}
		if seen[t] {
			return fmt.Errorf("target %d mapped more than once", t)
		}
		seen[t] = true
		return nil
	}
	for _, in := range c.Interp {
		if err := mark(in.Target); err != nil {
			return err
		}
		if len(in.Sources) == 0 || len(in.Sources) != len(in.Weights) {
			return fmt.Errorf("target %d has malformed interpolation", in.Target)
		}
		for _, s := range in.Sources {
			if s < 0 || s >= sourceLen {
				return fmt.Errorf("target %d interpolates out of range source %d", in.Target, s)
			}
		}
		if sum := floats.Sum(in.Weights); math.Abs(sum-1) > 1e-6 {
			return fmt.Errorf("target %d weights sum to %g", in.Target, sum)
		}
	}
	for _, t := range c.Unmapped {
		if err := mark(t); err != nil {
			return err
		}
	}
	for t, ok := range seen {
		if !ok {
			return fmt.Errorf("target %d not mapped", t)
		}
	}
	return nil
}

// Mapper builds correspondences according to its Config.
type Mapper struct {
	cfg Config
}

// NewMapper returns a Mapper after validating cfg.
func NewMapper(cfg Config) (*Mapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{cfg: cfg}, nil
}

// Map builds the correspondence from target vertices of dst to source vertices of src.
func (m *Mapper) Map(src, dst Mesh) (*Correspondence, error) {
	switch m.cfg.Mode {
	case ModeIndex:
		return ByIndex(len(src.Points), len(dst.Points)), nil
	case ModeUV:
		return ByUV(src, dst, m.cfg)
	}
	return ByPosition(src.Points, dst.Points, m.cfg), nil
}

// ByIndex maps target vertex i to source vertex i for every i below
// both vertex counts. Remaining target vertices are unmapped.
func ByIndex(sourceLen, targetLen int) *Correspondence {
	c := newCorrespondence(targetLen)
	for i := range c.Direct {
		if i < sourceLen {
			c.Direct[i] = i
		} else {
			c.Unmapped = append(c.Unmapped, i)
		}
	}
	return c
}

// ByPosition maps each target vertex to the nearest source vertex if it lies
// within cfg.Threshold. Other target vertices blend their cfg.Neighbors nearest
// source vertices with gaussian weights exp(-4(d/dmax)²); weights under a tenth
// of the largest are discarded.
func ByPosition(src, dst []r3.Vec, cfg Config) *Correspondence {
	c := newCorrespondence(len(dst))
	if cfg.ScaleNormalize {
		nsrc, okSrc := normalize(src)
		ndst, okDst := normalize(dst)
		if okSrc && okDst {
			src, dst = nsrc, ndst
			c.Normalized = true
		}
	}
	idx := spatial.New(src)
	var far []int
	for t, q := range dst {
		s, dist, ok := idx.Nearest(q)
		if ok && dist <= cfg.Threshold {
			c.Direct[t] = s
		} else {
			far = append(far, t)
		}
	}
	for _, t := range far {
		neighbors := idx.KNearest(dst[t], cfg.Neighbors)
		if len(neighbors) == 0 {
			c.Unmapped = append(c.Unmapped, t)
			continue
		}
		sources, weights := gaussianWeights(neighbors)
		c.addInterp(t, sources, weights)
	}
	return c
}

func gaussianWeights(neighbors []spatial.Neighbor) (sources []int, weights []float64) {
	maxDist := neighbors[len(neighbors)-1].Dist + 1e-6
	all := make([]float64, len(neighbors))
	for i, n := range neighbors {
		nd := n.Dist / maxDist
		all[i] = math.Exp(-4 * nd * nd)
	}
	cut := 0.1 * floats.Max(all)
	for i, w := range all {
		if w > cut {
			sources = append(sources, neighbors[i].Index)
			weights = append(weights, w)
		}
	}
	return sources, weights
}

// normalize centers points on their mean and divides by the largest side of their
// bounding box. ok is false for degenerate sets where the largest side is near zero.
func normalize(points []r3.Vec) (out []r3.Vec, ok bool) {
	set := d3.Set(points)
	extent := set.Bounds().Extent()
	if extent <= minExtent {
		return nil, false
	}
	center := set.Mean()
	out = make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = r3.Scale(1/extent, r3.Sub(p, center))
	}
	return out, true
}
