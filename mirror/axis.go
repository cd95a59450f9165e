package mirror

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Axis selects the reflection plane normal and, for directional
// operations such as Symmetrize, which half-space is the source.
type Axis int

const (
	PosX Axis = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
)

var axisNames = [...]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}

func (a Axis) valid() bool { return a >= PosX && a <= NegZ }

// String returns the axis in signed letter form, i.e. "+X".
func (a Axis) String() string {
	if !a.valid() {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisNames[a]
}

// MarshalText implements encoding.TextMarshaler.
func (a Axis) MarshalText() ([]byte, error) {
	if !a.valid() {
		return nil, fmt.Errorf("invalid axis %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A bare
// letter such as "X" is read as the positive axis.
func (a *Axis) UnmarshalText(b []byte) error {
	s := string(b)
	switch s {
	case "X", "x":
		s = "+X"
	case "Y", "y":
		s = "+Y"
	case "Z", "z":
		s = "+Z"
	}
	for i, name := range axisNames {
		if name == s {
			*a = Axis(i)
			return nil
		}
	}
	return fmt.Errorf("unknown axis %q", string(b))
}

// Dim returns the component index the axis acts on: 0, 1 or 2.
func (a Axis) Dim() int { return int(a) / 2 }

// Positive reports whether the axis points in the positive direction.
func (a Axis) Positive() bool { return int(a)%2 == 0 }

// Coord returns the component of v along the axis dimension.
func (a Axis) Coord(v r3.Vec) float64 {
	switch a.Dim() {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

// Reflect negates the component of v along the axis dimension.
func (a Axis) Reflect(v r3.Vec) r3.Vec {
	switch a.Dim() {
	case 0:
		v.X = -v.X
	case 1:
		v.Y = -v.Y
	default:
		v.Z = -v.Z
	}
	return v
}

// onSourceSide reports whether v lies in the half-space the axis points to,
// mirror plane included.
func (a Axis) onSourceSide(v r3.Vec) bool {
	c := a.Coord(v)
	if a.Positive() {
		return c >= 0
	}
	return c <= 0
}
