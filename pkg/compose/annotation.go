// Package compose drives the placement engine for whole images: the
// annotation composer lays callouts out around detected markers in rank
// order, and the scene composer scatters person units over a blank canvas.
package compose

import (
	"fmt"

	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/placement"
	"github.com/menta2k/marker-annotator/pkg/textlayout"
	"github.com/menta2k/marker-annotator/pkg/types"
)

// MissingBio is shown when a profile has no bio.
const MissingBio = "Bio not available."

// AnnotationOptions parameterise the annotation composer.
type AnnotationOptions struct {
	MaxAttempts int
	MaxChars    int
	Metrics     textlayout.Metrics
	Offsets     []placement.Offset
	Gap         int
	Margin      int
	Thresholds  Thresholds
	// ReserveAllMarkers seeds the occupancy with every marker box before the
	// first callout is placed. Otherwise each marker box is reserved when its
	// own profile comes up in rank order.
	ReserveAllMarkers bool
}

// DefaultAnnotationOptions mirror the renderer's 7x13 face with 5px padding
// and a 250px block budget.
func DefaultAnnotationOptions() AnnotationOptions {
	m := textlayout.Metrics{CharWidth: 7, LineHeight: 13, Padding: 5}
	return AnnotationOptions{
		MaxAttempts: 20,
		MaxChars:    m.MaxCharsForWidth(250),
		Metrics:     m,
		Offsets:     placement.DefaultOffsets,
		Gap:         5,
		Thresholds:  DefaultThresholds,
	}
}

// Annotation is one placed callout.
type Annotation struct {
	Profile types.RankedProfile
	// Rank is the zero-based position in the ranked input.
	Rank      int
	Tier      Tier
	Block     textlayout.TextBlock
	Placement placement.Result
}

// Rect is the area reserved for the callout block.
func (a Annotation) Rect() geometry.Rect {
	return a.Placement.Rect
}

// AnnotationComposer places one callout per ranked profile.
type AnnotationComposer struct {
	opts AnnotationOptions
}

// NewAnnotationComposer validates the options and returns a composer.
func NewAnnotationComposer(opts AnnotationOptions) (*AnnotationComposer, error) {
	if opts.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w: got %d", placement.ErrInvalidAttempts, opts.MaxAttempts)
	}
	if opts.MaxChars <= 0 {
		return nil, fmt.Errorf("%w: got %d", textlayout.ErrInvalidWidth, opts.MaxChars)
	}
	if err := opts.Metrics.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return &AnnotationComposer{opts: opts}, nil
}

// CalloutLines returns the paragraphs shown for a profile.
func CalloutLines(p types.Profile) []string {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	bio := p.Bio
	if bio == "" {
		bio = MissingBio
	}
	return []string{
		"Name: " + name,
		fmt.Sprintf("Score: %.2f", p.Relevance),
		"Bio: " + bio,
	}
}

// Compose folds over ranked in order. Each step reserves the profile's
// marker box, lays out its text block, and resolves it next to the marker
// against everything placed so far; the accepted block is added before the
// next profile is considered. Exactly one Annotation is returned per input,
// in the same order. Placements that could not avoid overlap are forced and
// flagged Degraded.
func (c *AnnotationComposer) Compose(s geometry.Surface, ranked []types.RankedProfile) ([]Annotation, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	occ := placement.NewOccupancy()
	if c.opts.ReserveAllMarkers {
		for _, p := range ranked {
			occ = occ.With(geometry.Clamp(p.Marker, s))
		}
	}

	opts := placement.Options{
		MaxAttempts: c.opts.MaxAttempts,
		Offsets:     c.opts.Offsets,
		Gap:         c.opts.Gap,
	}

	out := make([]Annotation, 0, len(ranked))
	for i, p := range ranked {
		marker := p.Marker
		if !c.opts.ReserveAllMarkers {
			occ = occ.With(geometry.Clamp(marker, s))
		}

		block, err := textlayout.LayoutLines(CalloutLines(p.Profile), c.opts.MaxChars, c.opts.Metrics)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.ID, err)
		}

		var res placement.Result
		res, occ, err = placement.Resolve(placement.Request{
			Size:     block.Size(),
			Anchor:   &marker,
			Strategy: placement.AnchorRelative,
			Fallback: placement.Force,
			Margin:   c.opts.Margin,
		}, occ, s, opts)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.ID, err)
		}

		out = append(out, Annotation{
			Profile:   p,
			Rank:      i,
			Tier:      TierFor(p.Relevance, c.opts.Thresholds),
			Block:     block,
			Placement: res,
		})
	}
	return out, nil
}

// Degraded counts annotations that were forced into place.
func Degraded(anns []Annotation) int {
	n := 0
	for _, a := range anns {
		if a.Placement.Degraded {
			n++
		}
	}
	return n
}
