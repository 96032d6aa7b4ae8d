package validate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"newnan/cbfirewall/pkg/firewall/scanner"
)

const (
	// DefaultCoordinateRange is the default maximum absolute coordinate or offset.
	DefaultCoordinateRange = 1000.0

	// WorldBorderLimit is the hard world border; no absolute coordinate may exceed it.
	WorldBorderLimit = 30_000_000.0
)

// CoordinateConfig configures a Coordinate validator.
type CoordinateConfig struct {
	// MaxRange bounds absolute values and relative/local offsets.
	MaxRange float64

	// AllowRelative permits "~" coordinates.
	AllowRelative bool

	// AllowLocal permits "^" coordinates.
	AllowLocal bool

	// Count is the number of consecutive coordinates to validate.
	// Zero means 3.
	Count int
}

// DefaultCoordinateConfig returns a three-axis config with relative and local
// coordinates allowed and a range of ±1000.
func DefaultCoordinateConfig() CoordinateConfig {
	return CoordinateConfig{
		MaxRange:      DefaultCoordinateRange,
		AllowRelative: true,
		AllowLocal:    true,
		Count:         3,
	}
}

// Coordinate validates a fixed number of consecutive coordinate tokens.
type Coordinate struct {
	*Base
	cfg CoordinateConfig
}

// NewCoordinate creates a Coordinate validator.
func NewCoordinate(cfg CoordinateConfig) *Coordinate {
	if cfg.Count <= 0 {
		cfg.Count = 3
	}
	return &Coordinate{
		Base: NewBase("CoordinateValidator", "Validates coordinate parameters"),
		cfg:  cfg,
	}
}

// As2D returns a validator with the same rules for two coordinates.
func (c *Coordinate) As2D() *Coordinate {
	cfg := c.cfg
	cfg.Count = 2
	return NewCoordinate(cfg)
}

// As1D returns a validator with the same rules for a single coordinate.
func (c *Coordinate) As1D() *Coordinate {
	cfg := c.cfg
	cfg.Count = 1
	return NewCoordinate(cfg)
}

// AsStrict returns a validator that only accepts absolute coordinates.
func (c *Coordinate) AsStrict() *Coordinate {
	cfg := c.cfg
	cfg.AllowRelative = false
	cfg.AllowLocal = false
	return NewCoordinate(cfg)
}

// Validate implements Validator.
func (c *Coordinate) Validate(ctx context.Context, sc *scanner.Scanner) bool {
	return c.Run(ctx, sc, func(_ context.Context, sc *scanner.Scanner) bool {
		for i := 0; i < c.cfg.Count; i++ {
			tok, ok := sc.Next()
			if !ok || !c.isSafe(tok) {
				return false
			}
		}
		return true
	})
}

// ValidateRange checks a pre-split list of coordinates without a scanner.
func (c *Coordinate) ValidateRange(coords []string) bool {
	if len(coords) != c.cfg.Count {
		return false
	}
	for _, coord := range coords {
		if !c.isSafe(coord) {
			return false
		}
	}
	return true
}

// CalculateDistance returns the euclidean distance between two absolute
// three-axis positions. ok is false if either position is relative, local,
// malformed or not exactly three values.
func (c *Coordinate) CalculateDistance(a, b []string) (float64, bool) {
	if len(a) != 3 || len(b) != 3 {
		return 0, false
	}
	var sum float64
	for i := 0; i < 3; i++ {
		va, ok := parseNumber(a[i])
		if !ok {
			return 0, false
		}
		vb, ok := parseNumber(b[i])
		if !ok {
			return 0, false
		}
		d := va - vb
		sum += d * d
	}
	return math.Sqrt(sum), true
}

// MaxRange returns the configured range.
func (c *Coordinate) MaxRange() float64 { return c.cfg.MaxRange }

// RelativeAllowed reports whether "~" coordinates are accepted.
func (c *Coordinate) RelativeAllowed() bool { return c.cfg.AllowRelative }

// LocalAllowed reports whether "^" coordinates are accepted.
func (c *Coordinate) LocalAllowed() bool { return c.cfg.AllowLocal }

// Count returns the number of coordinates validated per call.
func (c *Coordinate) Count() int { return c.cfg.Count }

// Description implements Validator.
func (c *Coordinate) Description() string {
	return fmt.Sprintf("Coordinate validator: range=±%g, relative=%t, local=%t, count=%d",
		c.cfg.MaxRange, c.cfg.AllowRelative, c.cfg.AllowLocal, c.cfg.Count)
}

func (c *Coordinate) isSafe(coord string) bool {
	switch {
	case strings.HasPrefix(coord, "~"):
		return c.cfg.AllowRelative && c.offsetInRange(coord[1:])
	case strings.HasPrefix(coord, "^"):
		return c.cfg.AllowLocal && c.offsetInRange(coord[1:])
	default:
		v, ok := parseNumber(coord)
		if !ok {
			return false
		}
		v = math.Abs(v)
		return v <= c.cfg.MaxRange && v <= WorldBorderLimit
	}
}

func (c *Coordinate) offsetInRange(offset string) bool {
	if offset == "" {
		return true
	}
	v, ok := parseNumber(offset)
	if !ok {
		return false
	}
	return math.Abs(v) <= c.cfg.MaxRange
}
