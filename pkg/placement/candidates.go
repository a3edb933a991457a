package placement

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/menta2k/marker-annotator/pkg/geometry"
)

// Offset names a position relative to an anchor rectangle.
type Offset int

// Offsets understood by the anchor-relative strategy.
const (
	Right Offset = iota
	Below
	Left
	Above
	BelowRight
	AboveRight
	BelowLeft
	AboveLeft
	BelowCentered
	AboveCentered
)

var offsetNames = map[Offset]string{
	Right:         "right",
	Below:         "below",
	Left:          "left",
	Above:         "above",
	BelowRight:    "below-right",
	AboveRight:    "above-right",
	BelowLeft:     "below-left",
	AboveLeft:     "above-left",
	BelowCentered: "below-centered",
	AboveCentered: "above-centered",
}

// DefaultOffsets is the preference order used when none is configured:
// the four sides first, then the diagonals.
var DefaultOffsets = []Offset{Right, Below, Left, Above, BelowRight, AboveRight, BelowLeft, AboveLeft}

func (o Offset) String() string {
	if name, ok := offsetNames[o]; ok {
		return name
	}
	return fmt.Sprintf("offset(%d)", int(o))
}

// ParseOffset parses an offset name such as "right" or "below-left".
func ParseOffset(s string) (Offset, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")
	for o, name := range offsetNames {
		if name == key {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown offset %q", s)
}

// ParseOffsets parses a list of offset names, preserving order.
func ParseOffsets(names []string) ([]Offset, error) {
	out := make([]Offset, 0, len(names))
	for _, n := range names {
		o, err := ParseOffset(n)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Candidate is a proposed placement.
type Candidate struct {
	Rect   geometry.Rect
	Offset Offset
}

// offsetOrigin returns the unclamped top-left corner for a block of the given
// size placed at o relative to anchor, separated by gap.
func offsetOrigin(o Offset, anchor geometry.Rect, size geometry.Size, gap int) (int, int) {
	right := anchor.Right() + gap
	left := anchor.X - size.W - gap
	below := anchor.Bottom() + gap
	above := anchor.Y - size.H - gap
	centered := anchor.X + anchor.W/2 - size.W/2

	switch o {
	case Below:
		return anchor.X, below
	case Left:
		return left, anchor.Y
	case Above:
		return anchor.X, above
	case BelowRight:
		return right, below
	case AboveRight:
		return right, above
	case BelowLeft:
		return left, below
	case AboveLeft:
		return left, above
	case BelowCentered:
		return centered, below
	case AboveCentered:
		return centered, above
	default:
		return right, anchor.Y
	}
}

// AnchorCandidates returns one candidate per offset, in order, each clamped to
// lie within the surface.
func AnchorCandidates(anchor geometry.Rect, size geometry.Size, s geometry.Surface, offsets []Offset, gap int) []Candidate {
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	out := make([]Candidate, 0, len(offsets))
	for _, o := range offsets {
		x, y := offsetOrigin(o, anchor, size, gap)
		out = append(out, Candidate{
			Rect:   geometry.Clamp(geometry.At(x, y, size), s),
			Offset: o,
		})
	}
	return out
}

// RandomCandidate draws a uniformly random position at which a rectangle of
// the given size lies entirely inside the surface. It returns false when the
// size cannot fit at all.
func RandomCandidate(rng *rand.Rand, size geometry.Size, s geometry.Surface) (geometry.Rect, bool) {
	if !s.Fits(size) {
		return geometry.Rect{}, false
	}
	x := rng.IntN(s.W - size.W + 1)
	y := rng.IntN(s.H - size.H + 1)
	return geometry.At(x, y, size), true
}
