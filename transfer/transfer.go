// Package transfer carries shape deformations from a source mesh onto
// a target mesh through a vertex correspondence.
package transfer

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/shapekey/correspond"
	"github.com/soypat/shapekey/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrEmptyCorrespondence is returned when no target vertex has a source.
	ErrEmptyCorrespondence = errors.New("transfer: correspondence maps no vertices")
	// ErrLength is returned when point sets do not match the correspondence.
	ErrLength = errors.New("transfer: point set length mismatch")
)

// minExtent is the smallest source bounding box side a scale factor is computed for.
const minExtent = 1e-6

// Mode selects what is carried across the correspondence.
type Mode int

const (
	// ModeDelta transplants the source displacement onto the target basis.
	ModeDelta Mode = iota
	// ModeAbsolute copies the source shape's absolute coordinates.
	ModeAbsolute
)

// Options configures Apply.
type Options struct {
	Mode Mode
	// Normalize multiplies source deltas by Scale component wise.
	// Only used in ModeDelta.
	Normalize bool
	// Scale is the per axis scale factor, usually from ScaleFactors.
	Scale r3.Vec
}

// ScaleFactors returns the per axis ratio of the target basis bounding box
// size to the source one. Axes where the source is flat get a factor of 1.
func ScaleFactors(srcBasis, dstBasis []r3.Vec) r3.Vec {
	srcSize := d3.Set(srcBasis).Bounds().Size()
	dstSize := d3.Set(dstBasis).Bounds().Size()
	return d3.DivElemOr(dstSize, srcSize, d3.Elem(1), minExtent)
}

// SuggestNormalize reports whether the two bases differ enough in scale that
// scale normalization should be enabled: either is flat, or their largest
// bounding box sides differ by more than 5%.
func SuggestNormalize(srcBasis, dstBasis []r3.Vec) bool {
	s := d3.Set(srcBasis).Bounds().Extent()
	t := d3.Set(dstBasis).Bounds().Extent()
	return s == 0 || t == 0 || math.Abs(1-s/t) > 0.05
}

// Damping returns the attenuation factor applied to an interpolated
// displacement sum. Sums shorter than 1 are left untouched.
//
//	min(1, 1/(|sum|/2 + 0.5))
func Damping(sum r3.Vec) float64 {
	return math.Min(1, 1/(r3.Norm(sum)/2+0.5))
}

// Apply returns the target shape produced by carrying the source shape across c.
//
// In ModeDelta a direct target t→s gets dstBasis[t] + delta[s] and an interpolated
// target gets dstBasis[t] plus the damped weighted sum of its sources' deltas,
// where delta = srcShape - srcBasis, optionally scaled by opts.Scale.
// In ModeAbsolute targets take the (weighted) source shape coordinates.
// Unmapped target vertices keep their basis position.
func Apply(c *correspond.Correspondence, dstBasis, srcBasis, srcShape []r3.Vec, opts Options) ([]r3.Vec, error) {
	if len(dstBasis) != c.Len() {
		return nil, fmt.Errorf("%w: target basis has %d points, correspondence %d", ErrLength, len(dstBasis), c.Len())
	}
	if len(srcShape) != len(srcBasis) {
		return nil, fmt.Errorf("%w: source shape has %d points, basis %d", ErrLength, len(srcShape), len(srcBasis))
	}
	if c.Empty() {
		return nil, ErrEmptyCorrespondence
	}
	if err := c.Validate(len(srcBasis)); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	out := d3.Set(dstBasis).Clone()
	if opts.Mode == ModeAbsolute {
		applyAbsolute(out, c, srcShape)
		return out, nil
	}
	delta := d3.Set(srcShape).Sub(srcBasis)
	if opts.Normalize {
		for i := range delta {
			delta[i] = d3.MulElem(delta[i], opts.Scale)
		}
	}
	for t, s := range c.Direct {
		if s >= 0 {
			out[t] = r3.Add(dstBasis[t], delta[s])
		}
	}
	for _, in := range c.Interp {
		sum := weightedSum(delta, in)
		out[in.Target] = r3.Add(dstBasis[in.Target], r3.Scale(Damping(sum), sum))
	}
	return out, nil
}

func applyAbsolute(out []r3.Vec, c *correspond.Correspondence, srcShape []r3.Vec) {
	for t, s := range c.Direct {
		if s >= 0 {
			out[t] = srcShape[s]
		}
	}
	for _, in := range c.Interp {
		out[in.Target] = weightedSum(srcShape, in)
	}
}

func weightedSum(v []r3.Vec, in correspond.Interp) r3.Vec {
	var sum r3.Vec
	for i, s := range in.Sources {
		sum = r3.Add(sum, r3.Scale(in.Weights[i], v[s]))
	}
	return sum
}
