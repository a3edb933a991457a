// Package marker finds QR markers in images and produces marker images for
// profile identifiers.
package marker

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/makiuchi-d/gozxing"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"

	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/types"
)

// finderInset is the distance from a finder pattern centre to the symbol's
// outer edge, as a fraction of the distance between finder centres, for a
// version 1 symbol (3.5 of 14 modules).
const finderInset = 0.25

// Detector decodes every QR marker in an image.
type Detector struct {
	// TryHarder trades speed for accuracy on small or skewed markers.
	TryHarder bool
	// Inset overrides finderInset when positive.
	Inset float64
}

// NewDetector returns a detector with TryHarder enabled.
func NewDetector() *Detector {
	return &Detector{TryHarder: true}
}

// Detect returns one Detection per decodable marker, ordered top to bottom
// then left to right. Markers whose payload is empty or not valid UTF-8 are
// skipped. An image without markers yields an empty slice and no error.
func (d *Detector) Detect(img image.Image) ([]types.Detection, error) {
	if img == nil {
		return nil, errors.New("marker: nil image")
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to binarize image: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{}
	if d.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	results, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, hints)
	if err != nil {
		if _, ok := err.(gozxing.NotFoundException); ok {
			return []types.Detection{}, nil
		}
		return nil, fmt.Errorf("failed to decode markers: %w", err)
	}

	surface := geometry.SurfaceOf(img)
	detections := make([]types.Detection, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, res := range results {
		id := strings.TrimSpace(res.GetText())
		if id == "" || !utf8.ValidString(id) || seen[id] {
			continue
		}
		box, ok := d.boxFromPoints(res.GetResultPoints())
		if !ok {
			continue
		}
		seen[id] = true
		detections = append(detections, types.Detection{ID: id, Box: geometry.Clamp(box, surface)})
	}

	SortByAppearance(detections)
	return detections, nil
}

// boxFromPoints bounds the finder pattern centres and grows the box out to
// the symbol's edge.
func (d *Detector) boxFromPoints(points []gozxing.ResultPoint) (geometry.Rect, bool) {
	if len(points) < 3 {
		return geometry.Rect{}, false
	}
	// The first three points are the finder patterns; any further point is
	// an alignment pattern and lies inside their hull.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points[:3] {
		minX = math.Min(minX, p.GetX())
		minY = math.Min(minY, p.GetY())
		maxX = math.Max(maxX, p.GetX())
		maxY = math.Max(maxY, p.GetY())
	}

	inset := finderInset
	if d.Inset > 0 {
		inset = d.Inset
	}
	padX := (maxX - minX) * inset
	padY := (maxY - minY) * inset
	x0 := int(math.Floor(minX - padX))
	y0 := int(math.Floor(minY - padY))
	x1 := int(math.Ceil(maxX + padX))
	y1 := int(math.Ceil(maxY + padY))
	if x1 <= x0 || y1 <= y0 {
		return geometry.Rect{}, false
	}
	return geometry.R(x0, y0, x1-x0, y1-y0), true
}

// SortByAppearance orders detections top to bottom, then left to right.
func SortByAppearance(ds []types.Detection) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Box.Y != ds[j].Box.Y {
			return ds[i].Box.Y < ds[j].Box.Y
		}
		return ds[i].Box.X < ds[j].Box.X
	})
}
