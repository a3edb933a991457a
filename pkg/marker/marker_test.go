package marker

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/types"
)

// createScene pastes one marker per id onto a light canvas at the given points.
func createScene(t *testing.T, w, h int, ids []string, at []image.Point, size int) image.Image {
	t.Helper()
	canvas := imaging.New(w, h, color.NRGBA{240, 240, 240, 255})
	for i, id := range ids {
		code, err := Encode(id, size)
		if err != nil {
			t.Fatalf("Encode(%q) failed: %v", id, err)
		}
		canvas = imaging.Paste(canvas, code, at[i])
	}
	return canvas
}

func TestDetectSingleMarker(t *testing.T) {
	img := createScene(t, 600, 400, []string{"profile-1"}, []image.Point{{X: 200, Y: 100}}, 200)

	got, err := NewDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(got))
	}
	if got[0].ID != "profile-1" {
		t.Errorf("decoded %q", got[0].ID)
	}
	pasted := geometry.R(200, 100, 200, 200)
	if !geometry.Intersects(got[0].Box, pasted) {
		t.Errorf("box %v does not cover the pasted marker %v", got[0].Box, pasted)
	}
	if !geometry.Within(got[0].Box, geometry.Surface{W: 600, H: 400}) {
		t.Errorf("box %v outside image", got[0].Box)
	}
	if geometry.Union(got[0].Box, pasted) != pasted {
		t.Errorf("box %v reaches beyond the pasted marker %v", got[0].Box, pasted)
	}
}

func TestDetectOrdersByAppearance(t *testing.T) {
	img := createScene(t, 800, 600,
		[]string{"lower", "upper-right", "upper-left"},
		[]image.Point{{X: 300, Y: 350}, {X: 500, Y: 40}, {X: 60, Y: 40}},
		180)

	got, err := NewDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 detections, got %v", got)
	}
	want := []string{"upper-left", "upper-right", "lower"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("detection %d = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestDetectNoMarkers(t *testing.T) {
	img := imaging.New(320, 240, color.NRGBA{255, 255, 255, 255})
	got, err := NewDetector().Detect(img)
	if err != nil {
		t.Fatalf("expected no error for a blank image, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no detections, got %v", got)
	}
}

func TestSortByAppearance(t *testing.T) {
	ds := []types.Detection{
		{ID: "c", Box: geometry.R(10, 50, 5, 5)},
		{ID: "b", Box: geometry.R(40, 10, 5, 5)},
		{ID: "a", Box: geometry.R(5, 10, 5, 5)},
	}
	SortByAppearance(ds)
	if ds[0].ID != "a" || ds[1].ID != "b" || ds[2].ID != "c" {
		t.Errorf("unexpected order %v", ds)
	}
}

func TestEncodeAndWriteCodes(t *testing.T) {
	img, err := Encode("abc", 120)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 120 {
		t.Errorf("unexpected marker size %v", b)
	}
	if _, err := Encode("", 120); err == nil {
		t.Error("expected error for empty id")
	}

	dir := filepath.Join(t.TempDir(), "codes")
	paths, err := WriteCodes([]string{"one", "two"}, dir, 0)
	if err != nil {
		t.Fatalf("WriteCodes failed: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[1]) != "two.png" {
		t.Errorf("unexpected paths %v", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing marker file: %v", err)
		}
	}
}
