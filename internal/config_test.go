package internal

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/tiedye/internal/testutil"
	pkgconfig "github.com/starford/tiedye/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token err = %v", err)
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidationErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"port":          func(c *Config) { c.App.HTTP.Port = 0 },
		"body outside":  func(c *Config) { c.Garment.Body.W = 900 },
		"empty body":    func(c *Config) { c.Garment.Body.H = 0 },
		"max layers":    func(c *Config) { c.Simulation.MaxLayers = 0 },
		"brush order":   func(c *Config) { c.Simulation.Brush.Min = 50; c.Simulation.Brush.Max = 10 },
		"brush default": func(c *Config) { c.Simulation.Brush.Default = 500 },
		"color":         func(c *Config) { c.Simulation.DefaultColor = "pink" },
		"absorption":    func(c *Config) { c.Simulation.AbsorptionRate = 2 },
		"intensity":     func(c *Config) { c.Simulation.DefaultIntensity = 101 },
		"delay":         func(c *Config) { c.Simulation.UnfoldDelay = -time.Second },
		"gallery path":  func(c *Config) { c.Gallery.Path = "" },
		"sqlite path":   func(c *Config) { c.Gallery.SQLite.Path = "" },
		"thumbnail":     func(c *Config) { c.Gallery.ThumbnailSize = 4 },
		"presets path":  func(c *Config) { c.Presets.Path = "" },
		"auth":          func(c *Config) { c.Auth.Mode = "magic" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("TIEDYE_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9090
simulation:
  max_layers: 16
  unfold_delay: 50ms
  seed: 42
  default_color: "#112233"
auth:
  mode: token
  token: ${TIEDYE_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token = %q, want expanded env", cfg.Auth.Token)
	}
	if cfg.Garment.Width != 800 {
		t.Errorf("defaults lost: width = %d", cfg.Garment.Width)
	}

	scfg, err := cfg.Studio()
	if err != nil {
		t.Fatal(err)
	}
	if scfg.MaxLayers != 16 || scfg.UnfoldDelay != 50*time.Millisecond || scfg.Seed != 42 {
		t.Errorf("studio config = %+v", scfg)
	}
	if got := scfg.Dye.Color.Hex(); got != "#112233" {
		t.Errorf("dye color = %s", got)
	}
	if scfg.Garment.Body != cfg.Garment.Body {
		t.Errorf("garment body = %+v", scfg.Garment.Body)
	}
}

func TestRenderRecipe(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteRecipe(t, dir, "wheel.yaml", `
name: wheel
folds:
  - kind: spiral
    rotations: 1
dyes:
  - color: "#aa00ff"
    points: [{x: 460, y: 400}]
`)
	cfg := NewDefaultConfig()
	cfg.Simulation.Seed = 9

	var buf bytes.Buffer
	res, err := Render(context.Background(), cfg, path, true, &buf, testutil.Logger())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Recipe != "wheel" || res.Recorded != 1 || res.Marks != 4 || !res.Unfolded {
		t.Errorf("result = %+v", res)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 800 {
		t.Errorf("size = %v", b)
	}

	if _, err := Render(context.Background(), cfg, filepath.Join(dir, "missing.yaml"), false, &buf, testutil.Logger()); err == nil {
		t.Error("missing recipe rendered")
	}
}
