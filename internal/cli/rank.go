package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/marker-annotator/pkg/marker"
	"github.com/menta2k/marker-annotator/pkg/processing"
	"github.com/menta2k/marker-annotator/pkg/profiles"
)

func (c *CLI) rankCommand() *cobra.Command {
	var topK int
	var profilesPath string

	cmd := &cobra.Command{
		Use:   "rank [image|url]",
		Short: "List the markers in an image ranked by relevance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("top-k") {
				cfg.Ranking.TopK = topK
			}
			if profilesPath != "" {
				cfg.Paths.Profiles = profilesPath
			}

			store, err := profiles.LoadFile(cfg.Paths.Profiles)
			if err != nil {
				return err
			}
			img, err := processing.NewProcessor().LoadImageSmart(args[0])
			if err != nil {
				return fmt.Errorf("failed to load image: %w", err)
			}
			detections, err := marker.NewDetector().Detect(img)
			if err != nil {
				return err
			}

			out := printer{w: cmd.OutOrStdout()}
			out.title(args[0])
			if len(detections) == 0 {
				out.warning("no markers detected")
				return nil
			}
			ranking := profiles.Rank(detections, store, cfg.Ranking.TopK)
			out.ranked(ranking.Profiles, cfg.Thresholds())
			for _, id := range ranking.Unknown {
				out.keyValue("unknown", id)
			}
			out.stats("markers", len(detections), "not shown", ranking.Truncated)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "profiles listed, 0 for all")
	cmd.Flags().StringVarP(&profilesPath, "profiles", "p", "", "profile/relevance JSON file")

	return cmd
}
