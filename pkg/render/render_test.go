package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/menta2k/marker-annotator/pkg/compose"
	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/placement"
	"github.com/menta2k/marker-annotator/pkg/textlayout"
	"github.com/menta2k/marker-annotator/pkg/types"
)

func sampleAnnotations(t *testing.T, s geometry.Surface) []compose.Annotation {
	t.Helper()
	c, err := compose.NewAnnotationComposer(compose.DefaultAnnotationOptions())
	if err != nil {
		t.Fatal(err)
	}
	anns, err := c.Compose(s, []types.RankedProfile{
		{Profile: types.Profile{ID: "a", Name: "Alice", Bio: "Builds robots.", Relevance: 0.9}, Marker: geometry.R(20, 20, 40, 40)},
		{Profile: types.Profile{ID: "b", Name: "Bob", Bio: "Paints.", Relevance: 0.1}, Marker: geometry.R(20, 200, 40, 40)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return anns
}

func TestDrawMarkerOutlineAndBlock(t *testing.T) {
	s := geometry.Surface{W: 400, H: 300}
	src := imaging.New(s.W, s.H, color.NRGBA{0, 0, 0, 255})
	anns := sampleAnnotations(t, s)

	a := NewAnnotator(DefaultOptions())
	out := a.Draw(src, anns)

	high := compose.DefaultPalette.Color(compose.High)
	if got := out.NRGBAAt(20, 30); got.R != high.R || got.G != high.G || got.B != high.B {
		t.Errorf("marker outline at (20,30) = %v, want tier color %v", got, high)
	}
	low := compose.DefaultPalette.Color(compose.Low)
	if got := out.NRGBAAt(59, 220); got.R != low.R || got.G != low.G || got.B != low.B {
		t.Errorf("marker outline at (59,220) = %v, want tier color %v", got, low)
	}

	// Top-left padding pixel of the first block carries the block color.
	r := anns[0].Rect()
	want := DefaultOptions().BlockColor.(color.NRGBA)
	if got := out.NRGBAAt(r.X+1, r.Y+1); got != want {
		t.Errorf("block background = %v, want %v", got, want)
	}

	dark := 0
	inner := image.Rect(r.X+5, r.Y+5, r.Right()-5, r.Bottom()-5)
	for y := inner.Min.Y; y < inner.Max.Y; y++ {
		for x := inner.Min.X; x < inner.Max.X; x++ {
			if c := out.NRGBAAt(x, y); c.R < 100 && c.G < 100 && c.B < 100 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("expected text pixels inside the block")
	}

	if got := src.NRGBAAt(20, 30); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Error("Draw modified its input")
	}
}

func TestDrawClipsAtEdges(t *testing.T) {
	img := imaging.New(50, 50, color.White)
	ann := compose.Annotation{Profile: types.RankedProfile{Marker: geometry.R(40, 40, 30, 30)}}
	out := NewAnnotator(Options{}).Draw(img, []compose.Annotation{ann})
	if out.Bounds().Dx() != 50 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
}

func TestNewAnnotatorFillsDefaults(t *testing.T) {
	a := NewAnnotator(Options{})
	if a.opts.Face == nil || a.opts.MarkerWidth != 2 || a.opts.Palette != compose.DefaultPalette {
		t.Errorf("defaults not applied: %+v", a.opts)
	}
	m := a.Metrics(5)
	if m.CharWidth != 7 || m.LineHeight != 13 || m.Padding != 5 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestGoRegularFace(t *testing.T) {
	face, err := GoRegularFace(14)
	if err != nil {
		t.Fatalf("GoRegularFace failed: %v", err)
	}
	defer face.Close()
	m := NewAnnotator(Options{Face: face}).Metrics(4)
	if m.CharWidth <= 0 || m.LineHeight < 14 {
		t.Errorf("unexpected metrics %+v", m)
	}
}

func TestDrawKeepsWideTextInsideBlock(t *testing.T) {
	face, err := GoRegularFace(14)
	if err != nil {
		t.Fatal(err)
	}
	defer face.Close()

	bg := color.NRGBA{0, 0, 255, 255}
	img := imaging.New(400, 100, bg)
	a := NewAnnotator(Options{Face: face})
	m := a.Metrics(2)

	block := textlayout.TextBlock{Lines: []string{"WWWWWWWWWW"}, MaxChars: 4, Metrics: m}
	ann := compose.Annotation{
		Profile:   types.RankedProfile{Marker: geometry.R(0, 0, 10, 10)},
		Block:     block,
		Placement: placement.Result{Rect: geometry.At(20, 20, block.Size()), Placed: true},
	}
	out := a.Draw(img, []compose.Annotation{ann})

	r := ann.Rect()
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.Right(); x < 400; x++ {
			if got := out.NRGBAAt(x, y); got != bg {
				t.Fatalf("pixel (%d,%d) right of the block = %v, want background", x, y, got)
			}
		}
	}
}
