package processing

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/menta2k/marker-annotator/pkg/compose"
	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/types"
)

// createTestImage returns a solid image of the given size.
func createTestImage(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

func TestBuildPersonUnit(t *testing.T) {
	p := NewProcessor()
	black := createTestImage(40, 40, color.NRGBA{0, 0, 0, 255})

	tests := []struct {
		name       string
		photo      image.Image
		wantSize   geometry.Size
		wantMarker geometry.Rect
	}{
		{"portrait", createTestImage(100, 150, color.NRGBA{200, 100, 50, 255}), geometry.Size{W: 160, H: 240}, geometry.R(40, 144, 80, 80)},
		{"square clamps to bottom", createTestImage(100, 100, color.NRGBA{200, 100, 50, 255}), geometry.Size{W: 160, H: 160}, geometry.R(40, 80, 80, 80)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := p.BuildPersonUnit(tt.photo, black, 80, 2.0)
			if err != nil {
				t.Fatalf("BuildPersonUnit failed: %v", err)
			}
			if unit.Size() != tt.wantSize {
				t.Errorf("size = %v, want %v", unit.Size(), tt.wantSize)
			}
			if unit.Marker != tt.wantMarker {
				t.Errorf("marker = %v, want %v", unit.Marker, tt.wantMarker)
			}
			c := unit.Image.NRGBAAt(unit.Marker.X+10, unit.Marker.Y+10)
			if c.R != 0 || c.G != 0 || c.B != 0 {
				t.Errorf("marker not pasted, found %v", c)
			}
		})
	}
}

func TestBuildPersonUnitRejectsWidePhoto(t *testing.T) {
	p := NewProcessor()
	wide := createTestImage(400, 100, color.NRGBA{255, 255, 255, 255})
	if _, err := p.BuildPersonUnit(wide, wide, 80, 2.0); err == nil {
		t.Error("expected error when the marker is taller than the scaled photo")
	}
	if _, err := p.BuildPersonUnit(wide, wide, 0, 2.0); err == nil {
		t.Error("expected error for zero marker size")
	}
}

func TestComposeCanvas(t *testing.T) {
	p := NewProcessor()
	red := PersonUnit{Image: createTestImage(100, 100, color.NRGBA{255, 0, 0, 255}), Marker: geometry.R(10, 60, 20, 20)}
	blue := PersonUnit{Image: createTestImage(100, 100, color.NRGBA{0, 0, 255, 255}), Marker: geometry.R(10, 60, 20, 20)}

	scene := compose.Scene{
		Surface: geometry.Surface{W: 400, H: 300},
		Placements: []compose.UnitPlacement{
			{Index: 0, Rect: geometry.R(10, 20, 100, 100), Scale: 1},
			{Index: 1, Rect: geometry.R(200, 150, 50, 50), Scale: 0.5},
		},
	}
	canvas, detections, err := p.ComposeCanvas(scene, []PersonUnit{red, blue}, []string{"r", "b"}, color.NRGBA{240, 240, 240, 255})
	if err != nil {
		t.Fatalf("ComposeCanvas failed: %v", err)
	}
	if b := canvas.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("canvas bounds %v", b)
	}
	if c := canvas.NRGBAAt(50, 50); c.R != 255 || c.B != 0 {
		t.Errorf("red unit missing, got %v", c)
	}
	if c := canvas.NRGBAAt(220, 170); c.B != 255 || c.R != 0 {
		t.Errorf("blue unit missing, got %v", c)
	}
	if c := canvas.NRGBAAt(300, 10); c.R != 240 {
		t.Errorf("background not filled, got %v", c)
	}

	want := []types.Detection{
		{ID: "r", Box: geometry.R(20, 80, 20, 20)},
		{ID: "b", Box: geometry.R(205, 180, 10, 10)},
	}
	if len(detections) != len(want) {
		t.Fatalf("detections = %v", detections)
	}
	for i := range want {
		if detections[i] != want[i] {
			t.Errorf("detection %d = %v, want %v", i, detections[i], want[i])
		}
	}

	scene.Placements[0].Index = 5
	if _, _, err := p.ComposeCanvas(scene, []PersonUnit{red}, nil, color.White); err == nil {
		t.Error("expected error for a missing unit")
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(32, 24, color.NRGBA{10, 200, 30, 255})
	dir := t.TempDir()

	for _, name := range []string{"out.png", "out.jpg", "nested/out.webp"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := p.SaveImage(img, path, types.EncodeOptions{Quality: 90, Lossless: true}); err != nil {
				t.Fatalf("SaveImage failed: %v", err)
			}
			loaded, err := p.LoadImageSmart(path)
			if err != nil {
				t.Fatalf("LoadImage failed: %v", err)
			}
			if b := loaded.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
				t.Errorf("loaded bounds %v", b)
			}
		})
	}

	if _, err := p.LoadImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadImageFromURL(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, createTestImage(8, 8, color.NRGBA{1, 2, 3, 255}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(buf.Bytes())
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor()
	img, err := p.LoadImageSmart(srv.URL + "/img.png")
	if err != nil {
		t.Fatalf("LoadImageFromURL failed: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	if _, err := p.LoadImageFromURL(srv.URL + "/page"); err == nil {
		t.Error("expected error for non-image content")
	}
	if _, err := p.LoadImageFromURL(srv.URL + "/missing"); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := p.LoadImageFromURL("ftp://example.com/a.png"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}
