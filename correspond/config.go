package correspond

import (
	"errors"
	"fmt"
)

// Mode selects how target vertices are matched to source vertices.
type Mode int

const (
	// ModePosition matches vertices by their basis position.
	ModePosition Mode = iota
	// ModeUV matches vertices by their averaged UV coordinate.
	ModeUV
	// ModeIndex matches vertex i to vertex i.
	ModeIndex
)

var modeNames = [...]string{"POSITION", "UV", "INDEX"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeNames) {
		return nil, fmt.Errorf("invalid mapping mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	for i, name := range modeNames {
		if name == string(b) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mapping mode %q", string(b))
}

// Config configures a Mapper.
type Config struct {
	Mode Mode `toml:"mode"`
	// Threshold is the maximum position distance for a direct match.
	// The comparison is inclusive.
	Threshold float64 `toml:"threshold"`
	// UVThreshold is the maximum UV distance for a direct match in ModeUV.
	UVThreshold float64 `toml:"uv_threshold"`
	// ScaleNormalize centers both point sets and divides them by their
	// largest bounding box side before matching in ModePosition.
	ScaleNormalize bool `toml:"scale_normalize"`
	// Neighbors is the amount of source vertices blended for an
	// interpolated match in ModePosition.
	Neighbors int `toml:"neighbors"`
	// UVNeighbors is the amount of source vertices blended when
	// no enclosing UV triangle is found.
	UVNeighbors int `toml:"uv_neighbors"`
	// TriangleCandidates is the amount of nearest triangle centroids
	// tested for UV containment.
	TriangleCandidates int `toml:"triangle_candidates"`
}

// DefaultConfig returns the mapper defaults.
func DefaultConfig() Config {
	return Config{
		Mode:               ModePosition,
		Threshold:          0.004,
		UVThreshold:        0.0001,
		Neighbors:          8,
		UVNeighbors:        4,
		TriangleCandidates: 10,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Mode < ModePosition || c.Mode > ModeIndex:
		return fmt.Errorf("invalid mapping mode %d", int(c.Mode))
	case c.Threshold < 0 || c.UVThreshold < 0:
		return errors.New("negative match threshold")
	case c.Neighbors < 1 || c.UVNeighbors < 1:
		return errors.New("neighbor count must be positive")
	case c.TriangleCandidates < 1:
		return errors.New("triangle candidate count must be positive")
	}
	return nil
}
