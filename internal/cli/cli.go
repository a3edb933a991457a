// Package cli implements the marker-annotator command-line interface.
//
// # Commands
//
//   - annotate: detect markers in photos and draw ranked profile callouts
//   - compose: generate synthetic group scenes from photos and QR codes
//   - prepare: generate profiles with a chat model and write their QR codes
//   - rank: print the ranked profiles for one image without drawing
//   - config: write or show the configuration file
//
// Every command accepts --config (JSON or TOML) and --verbose.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	markerannotator "github.com/menta2k/marker-annotator"
	"github.com/menta2k/marker-annotator/internal/config"
	"github.com/menta2k/marker-annotator/internal/utils"
)

const appName = "marker-annotator"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a CLI that logs to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Annotate QR-marked group photos with ranked profile callouts",
		Long:         `marker-annotator finds QR markers in group photos, ranks the people they identify by relevance, and places a callout beside each marker without covering other markers or callouts.`,
		Version:      markerannotator.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "configuration file (.json or .toml)")

	root.AddCommand(c.annotateCommand())
	root.AddCommand(c.composeCommand())
	root.AddCommand(c.prepareCommand())
	root.AddCommand(c.rankCommand())
	root.AddCommand(c.configCommand())

	return root
}

// loadConfig reads --config, or the default config file when it exists,
// falling back to built-in defaults.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		if def := config.GetConfigPath(); utils.FileExists(def) {
			path = def
		}
	}
	if path == "" {
		c.Logger.Debug("using built-in configuration")
		return config.Default(), nil
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Logger.Debug("loaded configuration", "path", path)
	return cfg, nil
}
