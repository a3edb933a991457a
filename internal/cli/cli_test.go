package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/menta2k/marker-annotator/internal/config"
	"github.com/menta2k/marker-annotator/pkg/profiles"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Error("debug message written at info level")
	}
	l.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("info message missing: %q", buf.String())
	}
}

func TestLoggerContext(t *testing.T) {
	l := newLogger(&bytes.Buffer{}, log.DebugLevel)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Error("logger not carried by context")
	}
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("expected default logger without one attached")
	}
}

// writeTestConfig points every path into dir and returns the config file.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Profiles = filepath.Join(dir, "data", "profile_relevance.json")
	cfg.Paths.BaseProfiles = filepath.Join(dir, "data", "base_profiles.json")
	cfg.Paths.QRCodes = filepath.Join(dir, "data", "qr_codes")
	cfg.Paths.Photos = filepath.Join(dir, "data", "photos")
	cfg.Paths.Input = filepath.Join(dir, "missing.jpg")
	cfg.Paths.SampleImages = filepath.Join(dir, "scenes")
	cfg.Paths.OutputDir = filepath.Join(dir, "annotated")
	cfg.Scene.Seed = 11
	cfg.Scene.Count = 2
	cfg.Scene.MarkerSize = 148
	path := filepath.Join(dir, "config.toml")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestPipelineCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	run(t, "prepare", "--config", cfgPath, "--placeholders", "--count", "4")
	store, err := profiles.LoadFile(filepath.Join(dir, "data", "profile_relevance.json"))
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != 4 {
		t.Fatalf("expected 4 profiles, got %d", store.Len())
	}
	codes, _ := filepath.Glob(filepath.Join(dir, "data", "qr_codes", "*.png"))
	if len(codes) != 4 {
		t.Fatalf("expected 4 QR codes, got %d", len(codes))
	}

	out := run(t, "compose", "--config", cfgPath, "--manifest")
	for _, name := range []string{"scene_01.png", "scene_01.json", "scene_02.png"} {
		if _, err := os.Stat(filepath.Join(dir, "scenes", name)); err != nil {
			t.Errorf("%s missing: %v\n%s", name, err, out)
		}
	}

	run(t, "annotate", "--config", cfgPath, "--workers", "2")
	run(t, "rank", "--config", cfgPath, filepath.Join(dir, "scenes", "scene_01.png"))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker.toml")
	run(t, "config", "init", path)
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config invalid: %v", err)
	}

	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"config", "init", path})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Error("expected error when the file exists without --force")
	}

	out := run(t, "config", "show", "--config", path)
	if !strings.Contains(out, `"top_k": 3`) {
		t.Errorf("show output missing defaults: %s", out)
	}
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	os.WriteFile(img, []byte("x"), 0o644)

	got, err := collectInputs([]string{"https://example.com/group.jpg", dir}, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "https://example.com/group.jpg" || got[1] != img {
		t.Errorf("inputs = %v", got)
	}
}
