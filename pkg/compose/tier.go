package compose

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidThresholds is returned unless 0 <= Medium <= High <= 1.
var ErrInvalidThresholds = errors.New("compose: tier thresholds must satisfy 0 <= medium <= high <= 1")

// Tier is the color band a relevance score falls into.
type Tier int

const (
	Low Tier = iota
	Medium
	High
)

func (t Tier) String() string {
	switch t {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Thresholds are the lower bounds of the High and Medium tiers.
type Thresholds struct {
	High   float64 `json:"high" toml:"high"`
	Medium float64 `json:"medium" toml:"medium"`
}

// DefaultThresholds puts scores >= 0.7 in High and >= 0.4 in Medium.
var DefaultThresholds = Thresholds{High: 0.7, Medium: 0.4}

// Validate checks the threshold ordering.
func (th Thresholds) Validate() error {
	if th.Medium < 0 || th.High > 1 || th.Medium > th.High {
		return fmt.Errorf("%w: high=%.2f medium=%.2f", ErrInvalidThresholds, th.High, th.Medium)
	}
	return nil
}

// TierFor maps a score onto a tier.
func TierFor(score float64, th Thresholds) Tier {
	switch {
	case score >= th.High:
		return High
	case score >= th.Medium:
		return Medium
	default:
		return Low
	}
}

// Palette assigns a color to each tier.
type Palette struct {
	High   colorful.Color
	Medium colorful.Color
	Low    colorful.Color
}

// DefaultPalette is green, yellow, red from high to low.
var DefaultPalette = Palette{
	High:   colorful.Color{R: 0, G: 1, B: 0},
	Medium: colorful.Color{R: 1, G: 1, B: 0},
	Low:    colorful.Color{R: 1, G: 0, B: 0},
}

// ParsePalette builds a palette from hex colors such as "#00ff00".
func ParsePalette(high, medium, low string) (Palette, error) {
	var p Palette
	var err error
	if p.High, err = colorful.Hex(high); err != nil {
		return Palette{}, fmt.Errorf("high tier color: %w", err)
	}
	if p.Medium, err = colorful.Hex(medium); err != nil {
		return Palette{}, fmt.Errorf("medium tier color: %w", err)
	}
	if p.Low, err = colorful.Hex(low); err != nil {
		return Palette{}, fmt.Errorf("low tier color: %w", err)
	}
	return p, nil
}

// Color returns the tier's color.
func (p Palette) Color(t Tier) color.RGBA {
	c := p.Low
	switch t {
	case High:
		c = p.High
	case Medium:
		c = p.Medium
	}
	return toRGBA(c)
}

// Gradient blends continuously from Low at score 0 through Medium at the
// Medium threshold to High at the High threshold and above.
func (p Palette) Gradient(score float64, th Thresholds) color.RGBA {
	switch {
	case score >= th.High:
		return toRGBA(p.High)
	case score <= 0:
		return toRGBA(p.Low)
	case score < th.Medium:
		return toRGBA(p.Low.BlendHcl(p.Medium, score/th.Medium).Clamped())
	case th.High == th.Medium:
		return toRGBA(p.High)
	default:
		t := (score - th.Medium) / (th.High - th.Medium)
		return toRGBA(p.Medium.BlendHcl(p.High, t).Clamped())
	}
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
