package placement

import "github.com/menta2k/marker-annotator/pkg/geometry"

// Occupancy is the ordered set of rectangles already accepted on one surface.
//
// It is a value: With returns a new Occupancy and never mutates the receiver,
// so a driver threads it through successive Resolve calls and discards it when
// the image is done.
type Occupancy struct {
	rects []geometry.Rect
}

// NewOccupancy returns an occupancy seeded with the given rectangles.
func NewOccupancy(rects ...geometry.Rect) Occupancy {
	if len(rects) == 0 {
		return Occupancy{}
	}
	return Occupancy{rects: append([]geometry.Rect(nil), rects...)}
}

// With returns a copy of o with r appended.
func (o Occupancy) With(r geometry.Rect) Occupancy {
	next := make([]geometry.Rect, len(o.rects), len(o.rects)+1)
	copy(next, o.rects)
	return Occupancy{rects: append(next, r)}
}

// Collides reports whether r, grown by margin on every side, intersects any
// occupied rectangle.
func (o Occupancy) Collides(r geometry.Rect, margin int) bool {
	probe := r
	if margin > 0 {
		probe = r.Inflate(margin)
	}
	for _, occupied := range o.rects {
		if geometry.Intersects(probe, occupied) {
			return true
		}
	}
	return false
}

// Rects returns a copy of the occupied rectangles in insertion order.
func (o Occupancy) Rects() []geometry.Rect {
	return append([]geometry.Rect(nil), o.rects...)
}

// Len returns the number of occupied rectangles.
func (o Occupancy) Len() int {
	return len(o.rects)
}
