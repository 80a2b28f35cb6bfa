package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tiedye/internal/dye"
	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/gallery"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/preset"
	"github.com/starford/tiedye/internal/studio"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Garment    GarmentConfig     `yaml:"garment"`
	Simulation SimulationConfig  `yaml:"simulation"`
	Gallery    GalleryConfig     `yaml:"gallery"`
	Presets    PresetsConfig     `yaml:"presets"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Garment.Validate(); err != nil {
		return fmt.Errorf("garment: %w", err)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.Gallery.Validate(); err != nil {
		return fmt.Errorf("gallery: %w", err)
	}
	if err := c.Presets.Validate(); err != nil {
		return fmt.Errorf("presets: %w", err)
	}
	return c.Auth.Validate()
}

// Studio converts the garment and simulation sections into session
// settings.
func (c *Config) Studio() (studio.Config, error) {
	color, err := pigment.ParseHex(c.Simulation.DefaultColor)
	if err != nil {
		return studio.Config{}, err
	}
	d := dye.DefaultConfig()
	d.MinBrush = c.Simulation.Brush.Min
	d.MaxBrush = c.Simulation.Brush.Max
	d.Brush = c.Simulation.Brush.Default
	d.Intensity = c.Simulation.DefaultIntensity
	d.Color = color
	d.BleedRate = c.Simulation.BleedRate
	d.AbsorptionRate = c.Simulation.AbsorptionRate

	return studio.Config{
		Garment: geom.Garment{
			Body:        c.Garment.Body,
			LeftSleeve:  c.Garment.LeftSleeve,
			RightSleeve: c.Garment.RightSleeve,
		},
		Width:       c.Garment.Width,
		Height:      c.Garment.Height,
		MaxLayers:   c.Simulation.MaxLayers,
		RedoLimit:   c.Simulation.RedoLimit,
		Dye:         d,
		UnfoldDelay: c.Simulation.UnfoldDelay,
		Seed:        c.Simulation.Seed,
	}, nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// GarmentConfig holds the drawing surface size and the shirt geometry in
// surface pixels.
type GarmentConfig struct {
	Width       int       `yaml:"width"`
	Height      int       `yaml:"height"`
	Body        geom.Rect `yaml:"body"`
	LeftSleeve  geom.Rect `yaml:"left_sleeve"`
	RightSleeve geom.Rect `yaml:"right_sleeve"`
}

// Validate validates the garment configuration.
func (c *GarmentConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(16), validation.Max(8192)),
		validation.Field(&c.Height, validation.Required, validation.Min(16), validation.Max(8192)),
	); err != nil {
		return err
	}
	if c.Body.W <= 0 || c.Body.H <= 0 {
		return fmt.Errorf("body must have a positive size")
	}
	if c.Body.X < 0 || c.Body.Y < 0 || c.Body.X+c.Body.W > float64(c.Width) || c.Body.Y+c.Body.H > float64(c.Height) {
		return fmt.Errorf("body %+v does not fit the %dx%d surface", c.Body, c.Width, c.Height)
	}
	return nil
}

// BrushConfig bounds the brush radius.
type BrushConfig struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default"`
}

// SimulationConfig holds folding and dyeing parameters.
type SimulationConfig struct {
	MaxLayers        int           `yaml:"max_layers"`
	RedoLimit        int           `yaml:"redo_limit"`
	Brush            BrushConfig   `yaml:"brush"`
	DefaultIntensity float64       `yaml:"default_intensity"`
	DefaultColor     string        `yaml:"default_color"`
	BleedRate        float64       `yaml:"bleed_rate"`
	AbsorptionRate   float64       `yaml:"absorption_rate"`
	UnfoldDelay      time.Duration `yaml:"unfold_delay"`
	// Seed fixes the random source of every session. Zero seeds from the
	// clock.
	Seed            uint64        `yaml:"seed"`
	MaxSessions     int           `yaml:"max_sessions"`
	PreviewThrottle time.Duration `yaml:"preview_throttle"`
}

// Validate validates the simulation configuration.
func (c *SimulationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxLayers, validation.Required, validation.Min(1)),
		validation.Field(&c.RedoLimit, validation.Min(0)),
		validation.Field(&c.DefaultIntensity, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&c.DefaultColor, validation.Required, validation.By(func(v any) error {
			_, err := pigment.ParseHex(v.(string))
			return err
		})),
		validation.Field(&c.BleedRate, validation.Min(0.0)),
		validation.Field(&c.AbsorptionRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.UnfoldDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxSessions, validation.Required, validation.Min(1)),
		validation.Field(&c.PreviewThrottle, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	b := c.Brush
	if b.Min <= 0 || b.Max < b.Min {
		return fmt.Errorf("brush: need 0 < min <= max, got %v..%v", b.Min, b.Max)
	}
	if b.Default < b.Min || b.Default > b.Max {
		return fmt.Errorf("brush: default %v outside %v..%v", b.Default, b.Min, b.Max)
	}
	return nil
}

// GalleryConfig holds the exported pattern store.
type GalleryConfig struct {
	Path          string       `yaml:"path"`
	SQLite        SQLiteConfig `yaml:"sqlite"`
	ThumbnailSize int          `yaml:"thumbnail_size"`
}

// Validate validates the gallery configuration.
func (c *GalleryConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ThumbnailSize, validation.Required, validation.Min(16), validation.Max(2048)),
	); err != nil {
		return err
	}
	return c.SQLite.Validate()
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PresetsConfig holds the recipe directory.
type PresetsConfig struct {
	Path     string        `yaml:"path"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
	// Writable allows recipe imports into Path.
	Writable bool `yaml:"writable"`
}

// Validate validates the presets configuration.
func (c *PresetsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	g := geom.DefaultGarment()
	d := dye.DefaultConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Garment: GarmentConfig{
			Width:       800,
			Height:      800,
			Body:        g.Body,
			LeftSleeve:  g.LeftSleeve,
			RightSleeve: g.RightSleeve,
		},
		Simulation: SimulationConfig{
			MaxLayers:        fold.DefaultMaxLayers,
			RedoLimit:        fold.DefaultRedoLimit,
			Brush:            BrushConfig{Min: d.MinBrush, Max: d.MaxBrush, Default: d.Brush},
			DefaultIntensity: d.Intensity,
			DefaultColor:     d.Color.Hex(),
			BleedRate:        d.BleedRate,
			AbsorptionRate:   d.AbsorptionRate,
			UnfoldDelay:      300 * time.Millisecond,
			MaxSessions:      studio.DefaultMaxSessions,
			PreviewThrottle:  250 * time.Millisecond,
		},
		Gallery: GalleryConfig{
			Path:          "./gallery",
			SQLite:        SQLiteConfig{Path: "./tiedye.db"},
			ThumbnailSize: gallery.DefaultThumbnailSize,
		},
		Presets: PresetsConfig{
			Path:     "./presets",
			Watch:    true,
			Debounce: preset.DefaultDebounce,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
