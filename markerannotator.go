// Package markerannotator annotates group photos in which people wear QR
// markers, and composes synthetic test scenes of such photos.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		markerannotator "github.com/menta2k/marker-annotator"
//		"github.com/menta2k/marker-annotator/pkg/profiles"
//	)
//
//	func main() {
//		store, err := profiles.LoadFile("data/profile_relevance.json")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		annotator, err := markerannotator.New(store)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := annotator.AnnotateFile("group.jpg", "annotated_group.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("annotated %d of %d markers", len(result.Annotations), len(result.Detections))
//	}
//
// An image goes through four stages:
//
// 1. Marker (pkg/marker): decodes every QR marker and its bounding box
// 2. Profiles (pkg/profiles): resolves marker IDs and ranks them by relevance
// 3. Compose (pkg/compose): places one callout per ranked profile around its
// marker without overlapping earlier callouts or markers
// 4. Render (pkg/render): draws tier-colored marker outlines and the callouts
//
// Callouts that could not avoid every overlap are still drawn and counted as
// degraded. Batch processes images in parallel; a failing image is recorded
// and the rest of the batch continues.
package markerannotator

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/marker-annotator/internal/config"
	"github.com/menta2k/marker-annotator/internal/utils"
	"github.com/menta2k/marker-annotator/pkg/compose"
	"github.com/menta2k/marker-annotator/pkg/geometry"
	"github.com/menta2k/marker-annotator/pkg/marker"
	"github.com/menta2k/marker-annotator/pkg/processing"
	"github.com/menta2k/marker-annotator/pkg/profiles"
	"github.com/menta2k/marker-annotator/pkg/render"
	"github.com/menta2k/marker-annotator/pkg/types"
)

// Version of the marker annotator library
const Version = "1.0.0"

// Annotator runs the detect, rank, compose and render pipeline
type Annotator struct {
	cfg       *config.Config
	store     profiles.Store
	detector  *marker.Detector
	composer  *compose.AnnotationComposer
	renderer  *render.Annotator
	processor *processing.Processor
	logger    *log.Logger

	// opentype faces are not safe for concurrent use
	drawMu sync.Mutex
}

// New creates an Annotator with the default configuration
func New(store profiles.Store) (*Annotator, error) {
	return NewWithConfig(store, config.Default())
}

// NewWithConfig creates an Annotator from cfg, which must validate
func NewWithConfig(store profiles.Store, cfg *config.Config) (*Annotator, error) {
	if store == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.AnnotationOptions(renderer.Metrics(cfg.Text.Padding))
	if err != nil {
		return nil, err
	}
	composer, err := compose.NewAnnotationComposer(opts)
	if err != nil {
		return nil, err
	}

	return &Annotator{
		cfg:       cfg,
		store:     store,
		detector:  marker.NewDetector(),
		composer:  composer,
		renderer:  renderer,
		processor: processing.NewProcessor(),
		logger:    log.Default(),
	}, nil
}

func newRenderer(cfg *config.Config) (*render.Annotator, error) {
	palette, err := cfg.Palette()
	if err != nil {
		return nil, err
	}
	opts := render.DefaultOptions()
	opts.Palette = palette
	opts.Thresholds = cfg.Thresholds()
	opts.Gradient = cfg.Tiers.Gradient
	if cfg.Text.Font == "goregular" {
		face, err := render.GoRegularFace(cfg.Text.FontSize)
		if err != nil {
			return nil, err
		}
		opts.Face = face
	}
	return render.NewAnnotator(opts), nil
}

// SetLogger replaces the logger used for batch progress
func (a *Annotator) SetLogger(l *log.Logger) {
	a.logger = l
}

// Result is the outcome of annotating one image
type Result struct {
	Source      string               `json:"source,omitempty"`
	Output      string               `json:"output,omitempty"`
	Detections  []types.Detection    `json:"detections"`
	Ranking     profiles.Ranking     `json:"ranking"`
	Annotations []compose.Annotation `json:"-"`
	Image       *image.NRGBA         `json:"-"`
}

// Degraded counts callouts that were forced into an overlapping position
func (r Result) Degraded() int {
	return compose.Degraded(r.Annotations)
}

// AnnotateImage detects markers in img, ranks the known ones and draws a
// callout for each. An image without known markers yields an unannotated copy.
func (a *Annotator) AnnotateImage(img image.Image) (Result, error) {
	detections, err := a.detector.Detect(img)
	if err != nil {
		return Result{}, fmt.Errorf("marker detection failed: %w", err)
	}

	ranking := profiles.Rank(detections, a.store, a.cfg.Ranking.TopK)

	annotations, err := a.composer.Compose(geometry.SurfaceOf(img), ranking.Profiles)
	if err != nil {
		return Result{}, fmt.Errorf("annotation layout failed: %w", err)
	}

	a.drawMu.Lock()
	out := a.renderer.Draw(img, annotations)
	a.drawMu.Unlock()

	return Result{
		Detections:  detections,
		Ranking:     ranking,
		Annotations: annotations,
		Image:       out,
	}, nil
}

// AnnotateFile annotates the image at inputPath, a file or URL, and writes it
// to outputPath. Nothing is written when no marker resolves to a profile.
func (a *Annotator) AnnotateFile(inputPath, outputPath string) (Result, error) {
	img, err := a.processor.LoadImageSmart(inputPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load image: %w", err)
	}

	result, err := a.AnnotateImage(img)
	if err != nil {
		return Result{}, err
	}
	result.Source = inputPath

	if len(result.Annotations) == 0 {
		return result, nil
	}

	enc := types.EncodeOptions{
		Quality:   a.cfg.Output.Quality,
		Lossless:  a.cfg.Output.Lossless,
		Extension: a.cfg.Output.Format,
	}
	if err := a.processor.SaveImage(result.Image, outputPath, enc); err != nil {
		return Result{}, fmt.Errorf("failed to save annotated image: %w", err)
	}
	result.Output = outputPath
	return result, nil
}

// Failure records an image a batch could not annotate
type Failure struct {
	Input string
	Err   error
}

// BatchResult collects per-image outcomes in input order
type BatchResult struct {
	Results []Result
	Failed  []Failure
}

// Batch annotates inputs into outDir with up to workers images in flight.
// Each image is an independent session: one failing image is recorded in
// Failed and the others continue. Only cancellation of ctx ends the batch
// early, and its error is returned.
func (a *Annotator) Batch(ctx context.Context, inputs []string, outDir string, workers int) (BatchResult, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]*Result, len(inputs))
	failures := make([]error, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := utils.GenerateOutputFilename(input, outDir, a.cfg.Output.Prefix, a.cfg.Output.Format)
			res, err := a.AnnotateFile(input, out)
			if err != nil {
				a.logger.Error("image failed", "input", input, "err", err)
				failures[i] = err
				return nil
			}
			a.logger.Debug("image annotated",
				"input", input,
				"markers", len(res.Detections),
				"annotated", len(res.Annotations),
				"degraded", res.Degraded(),
				"unknown", len(res.Ranking.Unknown))
			results[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return collect(results, failures, inputs), err
	}
	if err := ctx.Err(); err != nil {
		return collect(results, failures, inputs), err
	}
	return collect(results, failures, inputs), nil
}

func collect(results []*Result, failures []error, inputs []string) BatchResult {
	var br BatchResult
	for i := range inputs {
		switch {
		case results[i] != nil:
			br.Results = append(br.Results, *results[i])
		case failures[i] != nil:
			br.Failed = append(br.Failed, Failure{Input: inputs[i], Err: failures[i]})
		}
	}
	return br
}

// SceneResult is one composed synthetic scene
type SceneResult struct {
	Scene      compose.Scene     `json:"scene"`
	Detections []types.Detection `json:"markers"`
	Image      *image.NRGBA      `json:"-"`
}

// ComposeScene scatters units over a canvas sized by the scene
// configuration. ids[i] is the marker payload pasted on units[i]; the
// returned detections give each placed marker's box on the canvas.
func ComposeScene(cfg *config.Config, units []processing.PersonUnit, ids []string, rng *rand.Rand) (SceneResult, error) {
	if len(ids) != len(units) {
		return SceneResult{}, fmt.Errorf("%w: %d units, %d ids", processing.ErrUnitCount, len(units), len(ids))
	}
	composer, err := compose.NewSceneComposer(cfg.SceneOptions())
	if err != nil {
		return SceneResult{}, err
	}
	bg, err := cfg.Background()
	if err != nil {
		return SceneResult{}, err
	}

	sizes := make([]geometry.Size, len(units))
	for i, u := range units {
		sizes[i] = u.Size()
	}

	scene, err := composer.Compose(geometry.Surface{W: cfg.Scene.Width, H: cfg.Scene.Height}, sizes, rng)
	if err != nil {
		return SceneResult{}, err
	}

	canvas, detections, err := processing.NewProcessor().ComposeCanvas(scene, units, ids, bg)
	if err != nil {
		return SceneResult{}, err
	}
	return SceneResult{Scene: scene, Detections: detections, Image: canvas}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
