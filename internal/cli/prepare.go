package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/marker-annotator/internal/config"
	"github.com/menta2k/marker-annotator/pkg/client"
	"github.com/menta2k/marker-annotator/pkg/llamacpp"
	"github.com/menta2k/marker-annotator/pkg/marker"
	"github.com/menta2k/marker-annotator/pkg/ollama"
	"github.com/menta2k/marker-annotator/pkg/profilegen"
	"github.com/menta2k/marker-annotator/pkg/profiles"
	"github.com/menta2k/marker-annotator/pkg/types"
)

func (c *CLI) prepareCommand() *cobra.Command {
	var gen config.GenerationConfig
	var bio string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Generate profiles, score their relevance and write their QR codes",
		Long: `prepare asks a chat model for themed attendee profiles, scores each one
against the organizer bio, and writes the base profiles, the merged
profile/relevance store and one QR code per profile. When the model fails,
placeholder profiles and zero scores are used so the pipeline stays usable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("count") {
				cfg.Generation.NumProfiles = gen.NumProfiles
			}
			if flags.Changed("theme") {
				cfg.Generation.Theme = gen.Theme
			}
			if flags.Changed("backend") {
				cfg.Generation.Backend = gen.Backend
			}
			if flags.Changed("url") {
				cfg.Generation.URL = gen.URL
			}
			if flags.Changed("model") {
				cfg.Generation.Model = gen.Model
			}
			if flags.Changed("placeholders") {
				cfg.Generation.Placeholders = gen.Placeholders
			}
			if bio != "" {
				cfg.Ranking.UserBio = bio
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Generation.NumProfiles < 1 {
				return fmt.Errorf("profile count must be positive")
			}
			return c.runPrepare(cmd, cfg)
		},
	}

	cmd.Flags().IntVarP(&gen.NumProfiles, "count", "n", 0, "number of profiles to generate")
	cmd.Flags().StringVar(&gen.Theme, "theme", "", "event theme the profiles fit")
	cmd.Flags().StringVar(&gen.Backend, "backend", "", "chat backend: ollama or llamacpp")
	cmd.Flags().StringVar(&gen.URL, "url", "", "chat server URL")
	cmd.Flags().StringVarP(&gen.Model, "model", "m", "", "model name")
	cmd.Flags().BoolVar(&gen.Placeholders, "placeholders", false, "skip the model and write placeholder profiles")
	cmd.Flags().StringVar(&bio, "bio", "", "organizer bio to score relevance against")

	return cmd
}

func newChatClient(gen config.GenerationConfig) (client.ChatClient, error) {
	switch gen.Backend {
	case "ollama":
		return ollama.NewClient(gen.URL)
	case "llamacpp":
		return llamacpp.NewClient(gen.URL, gen.APIKey)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", gen.Backend)
	}
}

func (c *CLI) runPrepare(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := printer{w: cmd.OutOrStdout()}
	n := cfg.Generation.NumProfiles

	var chat client.ChatClient
	if !cfg.Generation.Placeholders {
		var err error
		if chat, err = newChatClient(cfg.Generation); err != nil {
			return err
		}
	}
	gen := profilegen.NewGenerator(chat, cfg.Generation.Model)

	var base []types.Profile
	if cfg.Generation.Placeholders {
		base = gen.PlaceholderProfiles(n)
	} else {
		prog := newProgress(logger)
		var err error
		base, err = gen.GenerateProfiles(ctx, n, cfg.Generation.Theme)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("profile generation failed, using placeholders", "err", err)
			base = gen.PlaceholderProfiles(n)
		} else {
			prog.done("generated profiles", "count", len(base), "model", cfg.Generation.Model)
		}
	}
	if err := profiles.SaveFile(cfg.Paths.BaseProfiles, base); err != nil {
		return err
	}
	out.success("%d base profiles", len(base))
	out.file(cfg.Paths.BaseProfiles)

	var scores []profilegen.Score
	if cfg.Generation.Placeholders {
		scores = profilegen.PlaceholderScores(base, "Relevance not scored.")
	} else {
		prog := newProgress(logger)
		var err error
		scores, err = gen.ScoreRelevance(ctx, cfg.Ranking.UserBio, base)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("relevance scoring failed, using zero scores", "err", err)
			scores = profilegen.PlaceholderScores(base, fmt.Sprintf("Relevance scoring failed: %v", err))
		} else {
			prog.done("scored relevance", "count", len(scores))
		}
	}

	merged := profilegen.Merge(base, scores)
	if err := profiles.SaveFile(cfg.Paths.Profiles, merged); err != nil {
		return err
	}
	out.success("%d profiles with relevance", len(merged))
	out.file(cfg.Paths.Profiles)

	ids := make([]string, 0, len(merged))
	for _, p := range merged {
		ids = append(ids, p.ID)
	}
	paths, err := marker.WriteCodes(ids, cfg.Paths.QRCodes, marker.DefaultSize)
	if err != nil {
		return err
	}
	out.success("%d QR codes", len(paths))
	out.file(cfg.Paths.QRCodes)
	return nil
}
