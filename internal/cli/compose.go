package cli

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"

	markerannotator "github.com/menta2k/marker-annotator"
	"github.com/menta2k/marker-annotator/internal/config"
	"github.com/menta2k/marker-annotator/internal/utils"
	"github.com/menta2k/marker-annotator/pkg/processing"
	"github.com/menta2k/marker-annotator/pkg/types"
)

// Placeholder photo size used when no person photos are available.
const (
	placeholderWidth  = 240
	placeholderHeight = 360
)

func (c *CLI) composeCommand() *cobra.Command {
	var (
		count    int
		seed     uint64
		outDir   string
		manifest bool
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Generate synthetic group scenes from person photos and QR codes",
		Long: `compose pairs random person photos with random QR codes, pastes each code
onto its photo and scatters the units over a blank canvas without overlap.
Units that cannot be placed are dropped. Without photos, plain colored
placeholders stand in for people.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("count") {
				cfg.Scene.Count = count
			}
			if cmd.Flags().Changed("seed") {
				cfg.Scene.Seed = seed
			}
			if outDir != "" {
				cfg.Paths.SampleImages = outDir
			}
			if cmd.Flags().Changed("manifest") {
				cfg.Output.Manifest = manifest
			}
			return c.runCompose(cmd, cfg)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of scenes to generate")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, 0 picks one from the clock")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory for scenes")
	cmd.Flags().BoolVar(&manifest, "manifest", false, "write a JSON layout next to each scene")

	return cmd
}

func (c *CLI) runCompose(cmd *cobra.Command, cfg *config.Config) error {
	logger := loggerFromContext(cmd.Context())
	out := printer{w: cmd.OutOrStdout()}
	proc := processing.NewProcessor()

	codes, err := utils.ListImageFiles(cfg.Paths.QRCodes)
	if err != nil || len(codes) == 0 {
		return fmt.Errorf("no QR codes in %s (run `%s prepare` first)", cfg.Paths.QRCodes, appName)
	}
	photos, err := utils.ListImageFiles(cfg.Paths.Photos)
	if err != nil || len(photos) == 0 {
		logger.Warn("no person photos, using placeholders", "dir", cfg.Paths.Photos)
		photos = nil
	}

	seed := cfg.Scene.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger.Debug("scene seed", "seed", seed)
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))

	if err := utils.EnsureDir(cfg.Paths.SampleImages); err != nil {
		return err
	}

	for i := 0; i < cfg.Scene.Count; i++ {
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		n := cfg.Scene.MinUnits + rng.IntN(cfg.Scene.MaxUnits-cfg.Scene.MinUnits+1)
		n = min(n, len(codes))
		if photos != nil {
			n = min(n, len(photos))
		}

		codePicks := rng.Perm(len(codes))[:n]
		var photoPicks []int
		if photos != nil {
			photoPicks = rng.Perm(len(photos))[:n]
		}

		units := make([]processing.PersonUnit, 0, n)
		ids := make([]string, 0, n)
		for k, ci := range codePicks {
			code, err := proc.LoadImage(codes[ci])
			if err != nil {
				return fmt.Errorf("failed to load QR code: %w", err)
			}
			var photo image.Image
			if photoPicks != nil {
				if photo, err = proc.LoadImage(photos[photoPicks[k]]); err != nil {
					return fmt.Errorf("failed to load photo: %w", err)
				}
			} else {
				photo = placeholderPhoto(rng)
			}
			unit, err := proc.BuildPersonUnit(photo, code, cfg.Scene.MarkerSize, cfg.Scene.PhotoScale)
			if err != nil {
				logger.Warn("skipping person unit", "code", codes[ci], "err", err)
				continue
			}
			units = append(units, unit)
			ids = append(ids, strings.TrimSuffix(filepath.Base(codes[ci]), filepath.Ext(codes[ci])))
		}

		res, err := markerannotator.ComposeScene(cfg, units, ids, rng)
		if err != nil {
			return err
		}
		for _, idx := range res.Scene.Dropped {
			logger.Warn("could not place unit without overlap", "scene", i+1, "marker", ids[idx])
		}

		path := filepath.Join(cfg.Paths.SampleImages, fmt.Sprintf("scene_%02d.png", i+1))
		if err := proc.SaveImage(res.Image, path, types.EncodeOptions{}); err != nil {
			return err
		}
		out.success("scene %d: %d of %d people placed", i+1, len(res.Scene.Placements), len(units))
		out.file(path)

		if cfg.Output.Manifest {
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode manifest: %w", err)
			}
			mpath := strings.TrimSuffix(path, ".png") + ".json"
			if err := os.WriteFile(mpath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write manifest: %w", err)
			}
			out.file(mpath)
		}
	}
	return nil
}

// placeholderPhoto is a pastel rectangle standing in for a person.
func placeholderPhoto(rng *rand.Rand) image.Image {
	c := colorful.Hcl(rng.Float64()*360, 0.35, 0.8).Clamped()
	r, g, b := c.RGB255()
	return imaging.New(placeholderWidth, placeholderHeight, color.NRGBA{R: r, G: g, B: b, A: 255})
}
