package marker

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of generated marker images.
const DefaultSize = 256

// Encode renders id as a square QR marker of the given edge length,
// including the quiet zone.
func Encode(id string, size int) (image.Image, error) {
	if id == "" {
		return nil, fmt.Errorf("marker: empty id")
	}
	if size <= 0 {
		size = DefaultSize
	}
	q, err := qrcode.New(id, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q: %w", id, err)
	}
	return q.Image(size), nil
}

// WriteCodes writes one "<id>.png" marker per id into dir, creating dir if
// needed, and returns the written paths in input order.
func WriteCodes(ids []string, dir string, size int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create marker directory: %w", err)
	}
	if size <= 0 {
		size = DefaultSize
	}

	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return paths, fmt.Errorf("marker: empty id")
		}
		path := filepath.Join(dir, id+".png")
		if err := qrcode.WriteFile(id, qrcode.Medium, size, path); err != nil {
			return paths, fmt.Errorf("failed to write marker %s: %w", id, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
