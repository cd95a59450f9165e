package shapekey

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/shapekey/compose"
	"github.com/soypat/shapekey/correspond"
	"github.com/soypat/shapekey/mirror"
)

// Config holds the settings shared by all operations.
type Config struct {
	Mapper correspond.Config `toml:"mapper"`
	// MirrorTolerance is the maximum distance between a vertex's reflection
	// and its partner.
	MirrorTolerance float64          `toml:"mirror_tolerance"`
	Ordering        compose.Ordering `toml:"ordering"`
	// Logger receives operation logs. Nil uses slog.Default.
	Logger *slog.Logger `toml:"-"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Mapper:          correspond.DefaultConfig(),
		MirrorTolerance: mirror.DefaultTolerance,
		Ordering:        compose.OrderTopological,
	}
}

// LoadConfig decodes a TOML document over DefaultConfig. Unknown keys are an error.
//
//	mirror_tolerance = 0.0001
//	ordering = "topological"
//
//	[mapper]
//	mode = "UV"
//	threshold = 0.004
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cfg is usable.
func (cfg Config) Validate() error {
	if err := cfg.Mapper.Validate(); err != nil {
		return fmt.Errorf("%w: mapper: %v", ErrConfiguration, err)
	}
	if cfg.MirrorTolerance < 0 {
		return configErr("negative mirror tolerance %g", cfg.MirrorTolerance)
	}
	return nil
}

func (cfg Config) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.Default()
	}
	return cfg.Logger
}

func (cfg Config) mirrorTolerance() float64 {
	if cfg.MirrorTolerance == 0 {
		return mirror.DefaultTolerance
	}
	return cfg.MirrorTolerance
}
