// Package geometry provides the axis-aligned rectangle primitives shared by
// the placement engine, the drivers and the renderer.
//
// All coordinates are integer pixels with (0,0) at the top-left corner of the
// surface; X grows rightward and Y grows downward. A Rect is described by its
// top-left corner and its size, so its right edge is X+W (exclusive).
package geometry

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidSize is returned when a width or height is not strictly positive.
	ErrInvalidSize = errors.New("geometry: width and height must be positive")

	// ErrInvalidSurface is returned when a surface has a non-positive dimension.
	ErrInvalidSurface = errors.New("geometry: surface dimensions must be positive")
)

// Size is a width/height pair.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Validate reports ErrInvalidSize unless both dimensions are positive.
func (s Size) Validate() error {
	if s.W <= 0 || s.H <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidSize, s.W, s.H)
	}
	return nil
}

// Scale returns the size multiplied by f, truncated, never below 1x1.
func (s Size) Scale(f float64) Size {
	return Size{W: max(1, int(float64(s.W)*f)), H: max(1, int(float64(s.H)*f))}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Surface is the bounded region every placement must stay within.
type Surface struct {
	W int `json:"width"`
	H int `json:"height"`
}

// Validate reports ErrInvalidSurface unless both dimensions are positive.
func (s Surface) Validate() error {
	if s.W <= 0 || s.H <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidSurface, s.W, s.H)
	}
	return nil
}

// Fits reports whether a rectangle of the given size can lie inside the surface.
func (s Surface) Fits(size Size) bool {
	return size.W <= s.W && size.H <= s.H
}

// Rect returns the rectangle covering the whole surface.
func (s Surface) Rect() Rect {
	return Rect{W: s.W, H: s.H}
}

// SurfaceOf returns the surface matching an image's bounds.
func SurfaceOf(img image.Image) Surface {
	b := img.Bounds()
	return Surface{W: b.Dx(), H: b.Dy()}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// R is shorthand for Rect{x, y, w, h}.
func R(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// At returns a rectangle of the given size with its top-left corner at (x, y).
func At(x, y int, size Size) Rect {
	return Rect{X: x, Y: y, W: size.W, H: size.H}
}

// FromImage converts an image.Rectangle.
func FromImage(r image.Rectangle) Rect {
	r = r.Canon()
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Bounds converts the rectangle to an image.Rectangle.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}

// Right is the exclusive right edge.
func (r Rect) Right() int { return r.X + r.W }

// Bottom is the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.H }

// Center returns the center point, rounded down.
func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Area returns W*H.
func (r Rect) Area() int {
	return r.W * r.H
}

// Valid reports whether the rectangle has positive dimensions.
func (r Rect) Valid() bool {
	return r.W > 0 && r.H > 0
}

// Inflate grows the rectangle by m on every side. A negative m shrinks it.
func (r Rect) Inflate(m int) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, W: r.W + 2*m, H: r.H + 2*m}
}

// Translate moves the rectangle by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// Intersects reports whether the open interiors of a and b overlap on both
// axes. Rectangles that only share an edge do not intersect.
func Intersects(a, b Rect) bool {
	return a.X < b.Right() && b.X < a.Right() &&
		a.Y < b.Bottom() && b.Y < a.Bottom()
}

// Within reports whether r lies entirely inside the surface.
func Within(r Rect, s Surface) bool {
	return r.X >= 0 && r.Y >= 0 && r.Right() <= s.W && r.Bottom() <= s.H
}

// Clamp shifts r so that it lies inside the surface. A rectangle larger than
// the surface along an axis is shrunk to the surface size on that axis.
func Clamp(r Rect, s Surface) Rect {
	r.W = min(r.W, s.W)
	r.H = min(r.H, s.H)
	r.X = clampInt(r.X, 0, s.W-r.W)
	r.Y = clampInt(r.Y, 0, s.H-r.H)
	return r
}

// Union returns the smallest rectangle covering both a and b.
func Union(a, b Rect) Rect {
	x0, y0 := min(a.X, b.X), min(a.Y, b.Y)
	x1, y1 := max(a.Right(), b.Right()), max(a.Bottom(), b.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
