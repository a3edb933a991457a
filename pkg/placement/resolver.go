// Package placement implements the collision-aware placement engine: it
// proposes positions for a rectangle of known size on a bounded surface,
// rejects those that leave the surface or overlap already-placed rectangles,
// and falls back deterministically when a bounded number of attempts runs out.
//
// Two strategies are supported. Random samples uniform positions and is used
// to scatter person units over a blank canvas. AnchorRelative walks a fixed,
// ordered list of offsets around an anchor (a detected marker) so that the
// closest acceptable spot wins.
//
// The engine holds no state between calls. The caller passes the current
// Occupancy in and receives the updated one back, and supplies the random
// source, which makes every session replayable from a seed.
package placement

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/menta2k/marker-annotator/pkg/geometry"
)

var (
	// ErrMissingAnchor is returned when AnchorRelative is requested without an anchor.
	ErrMissingAnchor = errors.New("placement: anchor-relative strategy requires an anchor")

	// ErrUnexpectedAnchor is returned when an anchor is supplied to the random strategy.
	ErrUnexpectedAnchor = errors.New("placement: anchor is only valid for the anchor-relative strategy")

	// ErrInvalidAttempts is returned when MaxAttempts is not positive.
	ErrInvalidAttempts = errors.New("placement: max attempts must be positive")

	// ErrNoRandSource is returned when the random strategy has no random source.
	ErrNoRandSource = errors.New("placement: random strategy requires a random source")

	// ErrUnknownStrategy is returned for an unrecognised strategy value.
	ErrUnknownStrategy = errors.New("placement: unknown strategy")
)

// Strategy selects how candidates are generated.
type Strategy int

const (
	// Random draws independent uniform positions.
	Random Strategy = iota
	// AnchorRelative tries fixed offsets around an anchor in preference order.
	AnchorRelative
)

func (s Strategy) String() string {
	switch s {
	case Random:
		return "random"
	case AnchorRelative:
		return "anchor-relative"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Fallback selects what happens when no candidate is collision-free.
type Fallback int

const (
	// FallbackDefault picks Drop for Random and Force for AnchorRelative.
	FallbackDefault Fallback = iota
	// Drop places nothing and leaves the occupancy unchanged.
	Drop
	// Force accepts the last generated candidate even though it collides.
	Force
)

func (f Fallback) resolve(s Strategy) Fallback {
	if f != FallbackDefault {
		return f
	}
	if s == AnchorRelative {
		return Force
	}
	return Drop
}

// Request describes one rectangle to place.
type Request struct {
	Size     geometry.Size
	Anchor   *geometry.Rect
	Strategy Strategy
	Fallback Fallback
	// Margin is the minimum clearance kept around the candidate when testing
	// it against occupied rectangles.
	Margin int
}

// Options bound and parameterise a Resolve call.
type Options struct {
	MaxAttempts int
	// Rand is required by the random strategy.
	Rand *rand.Rand
	// Offsets overrides DefaultOffsets for the anchor-relative strategy.
	Offsets []Offset
	// Gap separates an anchor-relative candidate from its anchor.
	Gap int
}

// Result is the outcome of a Resolve call.
type Result struct {
	Rect geometry.Rect
	// Placed is false only when the Drop fallback was applied.
	Placed bool
	// Degraded is true when no collision-free candidate was found.
	Degraded bool
	// Attempts is the number of candidates evaluated.
	Attempts int
	// Offset is the anchor offset of Rect; meaningless for Random.
	Offset Offset
}

// Validate checks the request's contract.
func (r Request) Validate() error {
	if err := r.Size.Validate(); err != nil {
		return err
	}
	switch r.Strategy {
	case Random:
		if r.Anchor != nil {
			return ErrUnexpectedAnchor
		}
	case AnchorRelative:
		if r.Anchor == nil {
			return ErrMissingAnchor
		}
		if err := r.Anchor.Size().Validate(); err != nil {
			return fmt.Errorf("anchor: %w", err)
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnknownStrategy, r.Strategy)
	}
	return nil
}

// Resolve places one rectangle on the surface.
//
// Candidates are generated per the request strategy, at most opts.MaxAttempts
// of them. The first one inside the surface that does not collide with occ is
// accepted and appended to the returned occupancy. When none qualifies the
// fallback policy decides: Drop returns Placed=false with occ unchanged, Force
// returns the last generated candidate clamped into the surface and appends it.
// Either way Degraded is set.
//
// Contract violations (bad sizes, anchor mismatch, non-positive attempts,
// missing random source) are returned as errors and occ is returned unchanged.
func Resolve(req Request, occ Occupancy, s geometry.Surface, opts Options) (Result, Occupancy, error) {
	if err := s.Validate(); err != nil {
		return Result{}, occ, err
	}
	if err := req.Validate(); err != nil {
		return Result{}, occ, err
	}
	if opts.MaxAttempts <= 0 {
		return Result{}, occ, fmt.Errorf("%w: got %d", ErrInvalidAttempts, opts.MaxAttempts)
	}

	var next func(i int) (Candidate, bool)
	switch req.Strategy {
	case Random:
		if opts.Rand == nil {
			return Result{}, occ, ErrNoRandSource
		}
		next = func(int) (Candidate, bool) {
			r, ok := RandomCandidate(opts.Rand, req.Size, s)
			return Candidate{Rect: r}, ok
		}
	case AnchorRelative:
		candidates := AnchorCandidates(*req.Anchor, req.Size, s, opts.Offsets, opts.Gap)
		next = func(i int) (Candidate, bool) {
			if i >= len(candidates) {
				return Candidate{}, false
			}
			return candidates[i], true
		}
	}

	var (
		last     Candidate
		haveLast bool
		attempts int
	)
	for i := 0; i < opts.MaxAttempts; i++ {
		c, ok := next(i)
		if !ok {
			break
		}
		attempts++
		last, haveLast = c, true
		if geometry.Within(c.Rect, s) && !occ.Collides(c.Rect, req.Margin) {
			return Result{Rect: c.Rect, Placed: true, Attempts: attempts, Offset: c.Offset}, occ.With(c.Rect), nil
		}
	}

	if req.Fallback.resolve(req.Strategy) == Drop {
		return Result{Degraded: true, Attempts: attempts}, occ, nil
	}

	if !haveLast {
		last = Candidate{Rect: geometry.At(0, 0, req.Size)}
		if len(opts.Offsets) > 0 {
			last.Offset = opts.Offsets[0]
		}
	}
	forced := geometry.Clamp(last.Rect, s)
	return Result{
		Rect:     forced,
		Placed:   true,
		Degraded: true,
		Attempts: attempts,
		Offset:   last.Offset,
	}, occ.With(forced), nil
}
