package compose

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/placement"
)

// ErrInvalidShrink is returned when ShrinkFactor is set outside (0, 1).
var ErrInvalidShrink = errors.New("compose: shrink factor must be in (0, 1)")

// SceneOptions parameterise the scene composer.
type SceneOptions struct {
	MaxAttempts int
	// Spacing is the minimum clearance between two units.
	Spacing int
	// ShrinkFactor, when non-zero, retries a unit that could not be placed at
	// its size scaled by ShrinkFactor, up to MaxShrinks times.
	ShrinkFactor float64
	MaxShrinks   int
}

// DefaultSceneOptions returns 100 attempts per unit and 30px spacing with
// shrinking disabled.
func DefaultSceneOptions() SceneOptions {
	return SceneOptions{MaxAttempts: 100, Spacing: 30}
}

// UnitPlacement records where one unit landed.
type UnitPlacement struct {
	// Index is the unit's position in the Compose input.
	Index int           `json:"index"`
	Rect  geometry.Rect `json:"rect"`
	// Scale is 1 unless the unit was shrunk to fit.
	Scale    float64 `json:"scale"`
	Attempts int     `json:"attempts"`
}

// Scene is the layout of one synthetic image.
type Scene struct {
	ID         string           `json:"id"`
	Surface    geometry.Surface `json:"surface"`
	Placements []UnitPlacement  `json:"placements"`
	// Dropped lists the indices of units that could not be placed.
	Dropped []int `json:"dropped,omitempty"`
}

// SceneComposer scatters units over a canvas without overlap.
type SceneComposer struct {
	opts SceneOptions
}

// NewSceneComposer validates the options and returns a composer.
func NewSceneComposer(opts SceneOptions) (*SceneComposer, error) {
	if opts.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w: got %d", placement.ErrInvalidAttempts, opts.MaxAttempts)
	}
	if opts.Spacing < 0 {
		return nil, fmt.Errorf("compose: spacing must not be negative, got %d", opts.Spacing)
	}
	if opts.ShrinkFactor != 0 && (opts.ShrinkFactor <= 0 || opts.ShrinkFactor >= 1) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidShrink, opts.ShrinkFactor)
	}
	return &SceneComposer{opts: opts}, nil
}

// Compose places each unit size in turn using random positions drawn from
// rng. A unit that cannot be placed is shrunk and retried when shrinking is
// enabled, otherwise it is dropped. Placed units never overlap.
func (c *SceneComposer) Compose(s geometry.Surface, units []geometry.Size, rng *rand.Rand) (Scene, error) {
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	if rng == nil {
		return Scene{}, placement.ErrNoRandSource
	}

	scene := Scene{ID: uuid.NewString(), Surface: s}
	opts := placement.Options{MaxAttempts: c.opts.MaxAttempts, Rand: rng}
	occ := placement.NewOccupancy()

	for i, size := range units {
		if err := size.Validate(); err != nil {
			return Scene{}, fmt.Errorf("unit %d: %w", i, err)
		}

		scale := 1.0
		placed := false
		attempts := 0
		for try := 0; try <= c.shrinks(); try++ {
			if try > 0 {
				scale *= c.opts.ShrinkFactor
			}
			res, next, err := placement.Resolve(placement.Request{
				Size:     size.Scale(scale),
				Strategy: placement.Random,
				Fallback: placement.Drop,
				Margin:   c.opts.Spacing,
			}, occ, s, opts)
			if err != nil {
				return Scene{}, fmt.Errorf("unit %d: %w", i, err)
			}
			attempts += res.Attempts
			if res.Placed {
				occ = next
				scene.Placements = append(scene.Placements, UnitPlacement{
					Index:    i,
					Rect:     res.Rect,
					Scale:    scale,
					Attempts: attempts,
				})
				placed = true
				break
			}
		}
		if !placed {
			scene.Dropped = append(scene.Dropped, i)
		}
	}
	return scene, nil
}

func (c *SceneComposer) shrinks() int {
	if c.opts.ShrinkFactor == 0 {
		return 0
	}
	return max(0, c.opts.MaxShrinks)
}
