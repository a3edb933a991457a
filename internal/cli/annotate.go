package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	markerannotator "github.com/menta2k/marker-annotator"
	"github.com/menta2k/marker-annotator/internal/config"
	"github.com/menta2k/marker-annotator/internal/utils"
	"github.com/menta2k/marker-annotator/pkg/profiles"
)

// annotateOpts holds the flags of the annotate command. Zero values keep
// the configured setting.
type annotateOpts struct {
	outDir   string
	profiles string
	format   string
	workers  int
	topK     int
	reserve  bool
	gradient bool
}

func (c *CLI) annotateCommand() *cobra.Command {
	var opts annotateOpts

	cmd := &cobra.Command{
		Use:   "annotate [image|dir|url]...",
		Short: "Draw ranked profile callouts next to the QR markers in photos",
		Long: `annotate detects QR markers, resolves them against the profile store and
draws a callout for the most relevant people. Without arguments the
configured input path is used, falling back to the sample image directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runAnnotate(cmd, cfg, args)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory")
	cmd.Flags().StringVarP(&opts.profiles, "profiles", "p", "", "profile/relevance JSON file")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: jpg|png|webp (default: keep input format)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "images processed in parallel")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "profiles annotated per image, 0 for all")
	cmd.Flags().BoolVar(&opts.reserve, "reserve-markers", false, "keep every callout off every marker from the start")
	cmd.Flags().BoolVar(&opts.gradient, "gradient", false, "color markers on a continuous score gradient")

	return cmd
}

func (o annotateOpts) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.outDir != "" {
		cfg.Paths.OutputDir = o.outDir
	}
	if o.profiles != "" {
		cfg.Paths.Profiles = o.profiles
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.workers > 0 {
		cfg.Output.Workers = o.workers
	}
	if cmd.Flags().Changed("top-k") {
		cfg.Ranking.TopK = o.topK
	}
	if cmd.Flags().Changed("reserve-markers") {
		cfg.Placement.ReserveAllMarkers = o.reserve
	}
	if cmd.Flags().Changed("gradient") {
		cfg.Tiers.Gradient = o.gradient
	}
}

func (c *CLI) runAnnotate(cmd *cobra.Command, cfg *config.Config, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := printer{w: cmd.OutOrStdout()}

	inputs, err := collectInputs(args, cfg)
	if err != nil {
		return err
	}

	store, err := profiles.LoadFile(cfg.Paths.Profiles)
	if err != nil {
		return fmt.Errorf("%w (run `%s prepare` first)", err, appName)
	}
	if store.Len() == 0 {
		return fmt.Errorf("no profiles in %s (run `%s prepare` first)", cfg.Paths.Profiles, appName)
	}
	if store.Skipped > 0 {
		logger.Warn("skipped profiles without an id", "count", store.Skipped)
	}
	logger.Info("loaded profiles", "count", store.Len(), "path", cfg.Paths.Profiles)

	annotator, err := markerannotator.NewWithConfig(store, cfg)
	if err != nil {
		return err
	}
	annotator.SetLogger(logger)

	prog := newProgress(logger)
	batch, err := annotator.Batch(ctx, inputs, cfg.Paths.OutputDir, cfg.Output.Workers)
	if err != nil && ctx.Err() == nil {
		return err
	}
	prog.done("batch finished", "images", len(inputs), "failed", len(batch.Failed))

	for _, res := range batch.Results {
		printResult(out, res, cfg)
	}
	for _, f := range batch.Failed {
		out.failure("%s: %v", f.Input, f.Err)
	}
	if err != nil {
		return err
	}
	if len(batch.Failed) > 0 {
		return fmt.Errorf("%d of %d images failed", len(batch.Failed), len(inputs))
	}
	return nil
}

func printResult(out printer, res markerannotator.Result, cfg *config.Config) {
	switch {
	case len(res.Detections) == 0:
		out.warning("%s: no markers detected", res.Source)
		return
	case len(res.Annotations) == 0:
		out.warning("%s: no detected marker matches a profile", res.Source)
		return
	}

	out.success("%s", res.Source)
	out.ranked(res.Ranking.Profiles, cfg.Thresholds())
	out.stats(
		"markers", len(res.Detections),
		"unknown", len(res.Ranking.Unknown),
		"not shown", res.Ranking.Truncated,
		"crowded", res.Degraded(),
	)
	if res.Output != "" {
		out.file(res.Output)
	}
}

// collectInputs expands arguments into image paths. URLs pass through.
func collectInputs(args []string, cfg *config.Config) ([]string, error) {
	if len(args) == 0 {
		return utils.ResolveInputs(cfg.Paths.Input, cfg.Paths.SampleImages)
	}
	var inputs []string
	for _, arg := range args {
		if isURL(arg) {
			inputs = append(inputs, arg)
			continue
		}
		files, err := utils.ResolveInputs(arg, "")
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, files...)
	}
	return inputs, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
