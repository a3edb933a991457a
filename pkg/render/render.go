// Package render draws placed annotations onto an image: a tier-colored
// outline around each marker and a filled text block with the callout lines.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/marker-annotator/pkg/compose"
	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/textlayout"
)

// Options controls the look of rendered annotations.
type Options struct {
	Face        font.Face
	Palette     compose.Palette
	Thresholds  compose.Thresholds
	TextColor   color.Color
	BlockColor  color.Color
	MarkerWidth int
	// Gradient colors markers continuously by score instead of by tier.
	Gradient bool
	// ShowCrowding outlines forced (degraded) blocks in their tier color.
	ShowCrowding bool
}

// DefaultOptions renders with the 7x13 bitmap face, black text on an
// off-white block and a 2px marker outline.
func DefaultOptions() Options {
	return Options{
		Face:         basicfont.Face7x13,
		Palette:      compose.DefaultPalette,
		Thresholds:   compose.DefaultThresholds,
		TextColor:    color.Black,
		BlockColor:   color.NRGBA{R: 240, G: 250, B: 250, A: 255},
		MarkerWidth:  2,
		ShowCrowding: true,
	}
}

// GoRegularFace returns the Go Regular face at size points.
func GoRegularFace(size float64) (font.Face, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}
	return face, nil
}

// Annotator draws annotations.
type Annotator struct {
	opts Options
}

// NewAnnotator returns an annotator, filling unset options from DefaultOptions.
func NewAnnotator(opts Options) *Annotator {
	def := DefaultOptions()
	if opts.Face == nil {
		opts.Face = def.Face
	}
	if opts.TextColor == nil {
		opts.TextColor = def.TextColor
	}
	if opts.BlockColor == nil {
		opts.BlockColor = def.BlockColor
	}
	if opts.MarkerWidth <= 0 {
		opts.MarkerWidth = def.MarkerWidth
	}
	if opts.Palette == (compose.Palette{}) {
		opts.Palette = def.Palette
	}
	if opts.Thresholds == (compose.Thresholds{}) {
		opts.Thresholds = def.Thresholds
	}
	return &Annotator{opts: opts}
}

// Metrics returns the layout metrics of the annotator's face.
func (a *Annotator) Metrics(padding int) textlayout.Metrics {
	return textlayout.MetricsForFace(a.opts.Face, padding)
}

// Draw returns a copy of img with every annotation drawn in order, so
// lower-ranked blocks paint over higher-ranked ones only where a forced
// placement overlaps.
func (a *Annotator) Draw(img image.Image, anns []compose.Annotation) *image.NRGBA {
	out := imaging.Clone(img)
	for _, ann := range anns {
		c := a.markerColor(ann)
		drawBox(out, ann.Profile.Marker, c, a.opts.MarkerWidth)
		a.drawBlock(out, ann)
		if a.opts.ShowCrowding && ann.Placement.Degraded {
			drawBox(out, ann.Rect(), c, 1)
		}
	}
	return out
}

func (a *Annotator) markerColor(ann compose.Annotation) color.NRGBA {
	var c color.RGBA
	if a.opts.Gradient {
		c = a.opts.Palette.Gradient(ann.Profile.Relevance, a.opts.Thresholds)
	} else {
		c = a.opts.Palette.Color(ann.Tier)
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func (a *Annotator) drawBlock(img *image.NRGBA, ann compose.Annotation) {
	r := ann.Rect().Bounds().Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.NewUniform(a.opts.BlockColor), image.Point{}, draw.Src)

	m := ann.Block.Metrics
	ascent := a.opts.Face.Metrics().Ascent.Ceil()
	// Glyphs wider than the average advance stay inside the block.
	d := &font.Drawer{
		Dst:  img.SubImage(r).(*image.NRGBA),
		Src:  image.NewUniform(a.opts.TextColor),
		Face: a.opts.Face,
	}
	x := ann.Rect().X + m.Padding
	for i, line := range ann.Block.Lines {
		y := ann.Rect().Y + m.Padding + i*m.LineHeight + ascent
		d.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
		d.DrawString(line)
	}
}

func drawBox(img *image.NRGBA, r geometry.Rect, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := r.X, r.Y, r.Right(), r.Bottom()
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	x0, x1 = max(0, min(x0, x1)), min(img.Bounds().Dx(), max(x0, x1))
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	y0, y1 = max(0, min(y0, y1)), min(img.Bounds().Dy(), max(y0, y1))
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
