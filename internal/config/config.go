package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/menta2k/marker-annotator/pkg/compose"
	"github.com/menta2k/marker-annotator/pkg/placement"
	"github.com/menta2k/marker-annotator/pkg/textlayout"
)

// Config holds the application configuration
type Config struct {
	Paths      PathsConfig      `json:"paths" toml:"paths"`
	Ranking    RankingConfig    `json:"ranking" toml:"ranking"`
	Placement  PlacementConfig  `json:"placement" toml:"placement"`
	Text       TextConfig       `json:"text" toml:"text"`
	Tiers      TiersConfig      `json:"tiers" toml:"tiers"`
	Scene      SceneConfig      `json:"scene" toml:"scene"`
	Generation GenerationConfig `json:"generation" toml:"generation"`
	Output     OutputConfig     `json:"output" toml:"output"`
}

// PathsConfig locates the data the commands read and write
type PathsConfig struct {
	Profiles     string `json:"profiles" toml:"profiles"`
	BaseProfiles string `json:"base_profiles" toml:"base_profiles"`
	QRCodes      string `json:"qr_codes" toml:"qr_codes"`
	Photos       string `json:"photos" toml:"photos"`
	Input        string `json:"input" toml:"input"`
	SampleImages string `json:"sample_images" toml:"sample_images"`
	OutputDir    string `json:"output_dir" toml:"output_dir"`
}

// RankingConfig holds configuration for profile ranking
type RankingConfig struct {
	TopK    int    `json:"top_k" toml:"top_k"`
	UserBio string `json:"user_bio" toml:"user_bio"`
}

// PlacementConfig holds configuration for callout placement
type PlacementConfig struct {
	MaxAttempts       int      `json:"max_attempts" toml:"max_attempts"`
	Gap               int      `json:"gap" toml:"gap"`
	Margin            int      `json:"margin" toml:"margin"`
	Offsets           []string `json:"offsets" toml:"offsets"`
	ReserveAllMarkers bool     `json:"reserve_all_markers" toml:"reserve_all_markers"`
}

// TextConfig holds configuration for callout text
type TextConfig struct {
	MaxWidth int `json:"max_width" toml:"max_width"`
	Padding  int `json:"padding" toml:"padding"`
	// Font is "basic" for the 7x13 bitmap face or "goregular".
	Font     string  `json:"font" toml:"font"`
	FontSize float64 `json:"font_size" toml:"font_size"`
}

// TiersConfig holds score thresholds and tier colors
type TiersConfig struct {
	High     float64 `json:"high" toml:"high"`
	Medium   float64 `json:"medium" toml:"medium"`
	Colors   Colors  `json:"colors" toml:"colors"`
	Gradient bool    `json:"gradient" toml:"gradient"`
}

// Colors are hex tier colors
type Colors struct {
	High   string `json:"high" toml:"high"`
	Medium string `json:"medium" toml:"medium"`
	Low    string `json:"low" toml:"low"`
}

// SceneConfig holds configuration for synthetic scene generation
type SceneConfig struct {
	Width        int     `json:"width" toml:"width"`
	Height       int     `json:"height" toml:"height"`
	Background   string  `json:"background" toml:"background"`
	Count        int     `json:"count" toml:"count"`
	MinUnits     int     `json:"min_units" toml:"min_units"`
	MaxUnits     int     `json:"max_units" toml:"max_units"`
	MarkerSize   int     `json:"marker_size" toml:"marker_size"`
	PhotoScale   float64 `json:"photo_scale" toml:"photo_scale"`
	Spacing      int     `json:"spacing" toml:"spacing"`
	MaxAttempts  int     `json:"max_attempts" toml:"max_attempts"`
	ShrinkFactor float64 `json:"shrink_factor" toml:"shrink_factor"`
	MaxShrinks   int     `json:"max_shrinks" toml:"max_shrinks"`
	Seed         uint64  `json:"seed" toml:"seed"`
}

// GenerationConfig holds configuration for LLM profile generation
type GenerationConfig struct {
	Backend      string `json:"backend" toml:"backend"`
	URL          string `json:"url" toml:"url"`
	Model        string `json:"model" toml:"model"`
	APIKey       string `json:"api_key,omitempty" toml:"api_key"`
	NumProfiles  int    `json:"num_profiles" toml:"num_profiles"`
	Theme        string `json:"theme" toml:"theme"`
	Placeholders bool   `json:"placeholders" toml:"placeholders"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format   string `json:"format" toml:"format"`
	Quality  int    `json:"quality" toml:"quality"`
	Lossless bool   `json:"lossless" toml:"lossless"`
	Prefix   string `json:"prefix" toml:"prefix"`
	Workers  int    `json:"workers" toml:"workers"`
	Manifest bool   `json:"manifest" toml:"manifest"`
}

// DefaultUserBio is the organizer bio profiles are scored against.
const DefaultUserBio = "Computer Science sophomore seeking a Software Engineering internship. " +
	"Proficient in Python, Java and C++, with web development experience from personal projects. " +
	"Strong interest in machine learning and data analysis."

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Profiles:     "data/profile_relevance.json",
			BaseProfiles: "data/base_profiles.json",
			QRCodes:      "data/qr_codes",
			Photos:       "data/photos",
			Input:        "assets/sample_group.jpg",
			SampleImages: "assets/sample_test_images",
			OutputDir:    "assets/annotated_images",
		},
		Ranking: RankingConfig{
			TopK:    3,
			UserBio: DefaultUserBio,
		},
		Placement: PlacementConfig{
			MaxAttempts: 20,
			Gap:         5,
			Offsets:     []string{"right", "below", "left", "above", "below-right", "above-right", "below-left", "above-left"},
		},
		Text: TextConfig{
			MaxWidth: 250,
			Padding:  5,
			Font:     "basic",
			FontSize: 13,
		},
		Tiers: TiersConfig{
			High:   compose.DefaultThresholds.High,
			Medium: compose.DefaultThresholds.Medium,
			Colors: Colors{High: "#00ff00", Medium: "#ffff00", Low: "#ff0000"},
		},
		Scene: SceneConfig{
			Width:        1200,
			Height:       700,
			Background:   "#f0f0f0",
			Count:        5,
			MinUnits:     2,
			MaxUnits:     6,
			MarkerSize:   80,
			PhotoScale:   2.0,
			Spacing:      30,
			MaxAttempts:  100,
			ShrinkFactor: 0.8,
		},
		Generation: GenerationConfig{
			Backend:     "ollama",
			URL:         "http://localhost:11434",
			Model:       "llama3.1",
			NumProfiles: 20,
			Theme:       "tech career fair",
		},
		Output: OutputConfig{
			Format:  "",
			Quality: 90,
			Prefix:  "annotated_",
			Workers: 4,
		},
	}
}

// LoadFromFile loads configuration from a JSON or TOML file, chosen by
// extension. Values in the file override the defaults; absent keys keep them.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isTOML(filename) {
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or TOML file, chosen by extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(filename) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Ranking.TopK < 0 {
		return fmt.Errorf("ranking.top_k must not be negative")
	}

	if c.Placement.MaxAttempts < 1 {
		return fmt.Errorf("placement.max_attempts must be positive")
	}

	if c.Placement.Gap < 0 || c.Placement.Margin < 0 {
		return fmt.Errorf("placement.gap and placement.margin must not be negative")
	}

	if _, err := placement.ParseOffsets(c.Placement.Offsets); err != nil {
		return fmt.Errorf("placement.offsets: %w", err)
	}

	if c.Text.Padding < 0 {
		return fmt.Errorf("text.padding must not be negative")
	}

	if c.Text.MaxWidth <= 2*c.Text.Padding {
		return fmt.Errorf("text.max_width must exceed twice the padding")
	}

	switch c.Text.Font {
	case "basic":
	case "goregular":
		if c.Text.FontSize <= 0 {
			return fmt.Errorf("text.font_size must be positive")
		}
	default:
		return fmt.Errorf("text.font must be basic or goregular, got %q", c.Text.Font)
	}

	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("tiers: %w", err)
	}

	if _, err := c.Palette(); err != nil {
		return fmt.Errorf("tiers.colors: %w", err)
	}

	if c.Scene.Width < 1 || c.Scene.Height < 1 {
		return fmt.Errorf("scene.width and scene.height must be positive")
	}

	if _, err := c.Background(); err != nil {
		return fmt.Errorf("scene.background: %w", err)
	}

	if c.Scene.MinUnits < 1 || c.Scene.MaxUnits < c.Scene.MinUnits {
		return fmt.Errorf("scene.min_units must be positive and not exceed scene.max_units")
	}

	if c.Scene.MarkerSize < 1 || c.Scene.PhotoScale < 1 {
		return fmt.Errorf("scene.marker_size must be positive and scene.photo_scale at least 1")
	}

	if c.Scene.MaxAttempts < 1 {
		return fmt.Errorf("scene.max_attempts must be positive")
	}

	if c.Scene.MaxShrinks < 0 {
		return fmt.Errorf("scene.max_shrinks must not be negative")
	}

	if (c.Scene.MaxShrinks > 0 || c.Scene.ShrinkFactor != 0) && (c.Scene.ShrinkFactor <= 0 || c.Scene.ShrinkFactor >= 1) {
		return fmt.Errorf("scene.shrink_factor must be between 0 and 1")
	}

	switch c.Generation.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("generation.backend must be ollama or llamacpp, got %q", c.Generation.Backend)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	switch strings.ToLower(c.Output.Format) {
	case "", "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be jpg, png or webp, got %q", c.Output.Format)
	}

	return nil
}

// Thresholds returns the tier thresholds
func (c *Config) Thresholds() compose.Thresholds {
	return compose.Thresholds{High: c.Tiers.High, Medium: c.Tiers.Medium}
}

// Palette parses the tier colors
func (c *Config) Palette() (compose.Palette, error) {
	return compose.ParsePalette(c.Tiers.Colors.High, c.Tiers.Colors.Medium, c.Tiers.Colors.Low)
}

// AnnotationOptions converts the placement and text sections into composer
// options for a face with the given metrics.
func (c *Config) AnnotationOptions(m textlayout.Metrics) (compose.AnnotationOptions, error) {
	offsets, err := placement.ParseOffsets(c.Placement.Offsets)
	if err != nil {
		return compose.AnnotationOptions{}, err
	}
	return compose.AnnotationOptions{
		MaxAttempts:       c.Placement.MaxAttempts,
		MaxChars:          m.MaxCharsForWidth(c.Text.MaxWidth),
		Metrics:           m,
		Offsets:           offsets,
		Gap:               c.Placement.Gap,
		Margin:            c.Placement.Margin,
		Thresholds:        c.Thresholds(),
		ReserveAllMarkers: c.Placement.ReserveAllMarkers,
	}, nil
}

// Background parses the scene canvas color
func (c *Config) Background() (color.Color, error) {
	bg, err := colorful.Hex(c.Scene.Background)
	if err != nil {
		return nil, err
	}
	r, g, b := bg.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// SceneOptions converts the scene section into composer options
func (c *Config) SceneOptions() compose.SceneOptions {
	return compose.SceneOptions{
		MaxAttempts:  c.Scene.MaxAttempts,
		Spacing:      c.Scene.Spacing,
		ShrinkFactor: c.Scene.ShrinkFactor,
		MaxShrinks:   c.Scene.MaxShrinks,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "marker-annotator", "config.json")
}

func isTOML(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".toml")
}
