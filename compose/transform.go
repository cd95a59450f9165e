package compose

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/shapekey/mirror"
	"gonum.org/v1/gonum/spatial/r3"
)

// CenterBand is the half width of the band around X=0 where the
// hemisphere transforms blend the mix and basis half and half.
const CenterBand = 0.001

var errNoPairing = errors.New("compose: mirror transform requires a pairing")

// Transform applies t to the weighted mix of a rule. basis and mix are absolute
// coordinates with one point per vertex. pairing is only used by Mirror and
// must be resolved across X.
func Transform(t Type, basis, mix []r3.Vec, pairing *mirror.Pairing) ([]r3.Vec, error) {
	if len(basis) != len(mix) {
		return nil, fmt.Errorf("compose: basis has %d points, mix %d", len(basis), len(mix))
	}
	switch t {
	case Copy:
		out := make([]r3.Vec, len(mix))
		copy(out, mix)
		return out, nil
	case Mirror:
		if pairing == nil {
			return nil, errNoPairing
		}
		return pairing.MirrorShape(basis, mix)
	case PlusX:
		return hemisphere(basis, mix, true), nil
	case MinusX:
		return hemisphere(basis, mix, false), nil
	case Invert:
		out := make([]r3.Vec, len(mix))
		for i := range mix {
			out[i] = r3.Sub(basis[i], r3.Sub(mix[i], basis[i]))
		}
		return out, nil
	}
	return nil, fmt.Errorf("compose: invalid rule type %d", int(t))
}

// hemisphere keeps the mix on one side of X=0 and the basis on the other.
// Vertices within CenterBand of X=0 get the midpoint of basis and mix.
func hemisphere(basis, mix []r3.Vec, positive bool) []r3.Vec {
	out := make([]r3.Vec, len(mix))
	for i, b := range basis {
		switch {
		case math.Abs(b.X) <= CenterBand:
			out[i] = r3.Add(b, r3.Scale(0.5, r3.Sub(mix[i], b)))
		case (b.X > 0) == positive:
			out[i] = mix[i]
		default:
			out[i] = b
		}
	}
	return out
}
