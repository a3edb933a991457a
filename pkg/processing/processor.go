package processing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/marker-annotator/pkg/compose"
	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/types"
)

// ErrUnitCount is returned when a scene and its unit images disagree.
var ErrUnitCount = errors.New("processing: scene references a unit that was not supplied")

// Processor handles image loading, saving and scene assembly
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "marker-annotator/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return p.decodeImageFromBytes(imageData)
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("image: unknown format for %s", path)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// SaveImage writes img to path, creating the parent directory. The format
// comes from opts.Extension, or from the path's extension when that is empty.
func (p *Processor) SaveImage(img image.Image, path string, opts types.EncodeOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(opts.Extension), ".")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = 90
	}

	switch format {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// PersonUnit is a photo with a marker pasted onto it.
type PersonUnit struct {
	Image *image.NRGBA
	// Marker is the pasted marker's box in unit coordinates.
	Marker geometry.Rect
}

// Size returns the unit's dimensions.
func (u PersonUnit) Size() geometry.Size {
	return geometry.FromImage(u.Image.Bounds()).Size()
}

// BuildPersonUnit scales photo to scale times the marker width, keeping its
// aspect ratio, and pastes the marker resized to markerSize square,
// horizontally centred with its top at 60% of the photo height. The marker
// is kept inside the photo.
func (p *Processor) BuildPersonUnit(photo, marker image.Image, markerSize int, scale float64) (PersonUnit, error) {
	if markerSize <= 0 || scale <= 0 {
		return PersonUnit{}, fmt.Errorf("processing: invalid unit parameters size=%d scale=%g", markerSize, scale)
	}
	pb := photo.Bounds()
	if pb.Dx() <= 0 || pb.Dy() <= 0 {
		return PersonUnit{}, fmt.Errorf("processing: empty photo")
	}

	width := int(float64(markerSize) * scale)
	height := max(1, int(float64(width)*float64(pb.Dy())/float64(pb.Dx())))
	unit := imaging.Resize(photo, width, height, imaging.Lanczos)

	code := imaging.Resize(marker, markerSize, markerSize, imaging.NearestNeighbor)

	box := geometry.R((width-markerSize)/2, int(float64(height)*0.60), markerSize, markerSize)
	box = geometry.Clamp(box, geometry.Surface{W: width, H: height})
	if box.Size() != (geometry.Size{W: markerSize, H: markerSize}) {
		return PersonUnit{}, fmt.Errorf("processing: marker %dpx does not fit a %dx%d photo", markerSize, width, height)
	}

	unit = imaging.Overlay(unit, code, image.Pt(box.X, box.Y), 1.0)
	return PersonUnit{Image: unit, Marker: box}, nil
}

// ComposeCanvas paints the scene's placed units onto a canvas filled with bg.
// units is indexed like the scene's input; a shrunk placement is resized to
// its rectangle. The returned detections give each placed marker's box in
// canvas coordinates, paired with ids by unit index.
func (p *Processor) ComposeCanvas(scene compose.Scene, units []PersonUnit, ids []string, bg color.Color) (*image.NRGBA, []types.Detection, error) {
	if err := scene.Surface.Validate(); err != nil {
		return nil, nil, err
	}
	canvas := imaging.New(scene.Surface.W, scene.Surface.H, bg)
	detections := make([]types.Detection, 0, len(scene.Placements))

	for _, pl := range scene.Placements {
		if pl.Index < 0 || pl.Index >= len(units) {
			return nil, nil, fmt.Errorf("%w: index %d", ErrUnitCount, pl.Index)
		}
		u := units[pl.Index]
		img := image.Image(u.Image)
		marker := u.Marker
		if u.Size() != pl.Rect.Size() {
			img = imaging.Resize(u.Image, pl.Rect.W, pl.Rect.H, imaging.Lanczos)
			marker = geometry.R(
				int(float64(marker.X)*pl.Scale),
				int(float64(marker.Y)*pl.Scale),
				max(1, int(float64(marker.W)*pl.Scale)),
				max(1, int(float64(marker.H)*pl.Scale)),
			)
		}
		canvas = imaging.Paste(canvas, img, image.Pt(pl.Rect.X, pl.Rect.Y))

		if pl.Index < len(ids) {
			detections = append(detections, types.Detection{
				ID:  ids[pl.Index],
				Box: marker.Translate(pl.Rect.X, pl.Rect.Y),
			})
		}
	}
	return canvas, detections, nil
}
