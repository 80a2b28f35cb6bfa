// Package preset loads named fold-and-dye recipes from a directory and keeps
// them current while the directory changes.
package preset

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/pigment"
)

// Recipe is a named sequence of folds followed by dye strokes.
type Recipe struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Folds       []FoldStep  `yaml:"folds" json:"folds"`
	Dyes        []DyeStroke `yaml:"dyes" json:"dyes"`
	Unfold      bool        `yaml:"unfold" json:"unfold"`

	// Source is the file the recipe was read from.
	Source string `yaml:"-" json:"-"`
}

// FoldStep is one fold of a recipe.
type FoldStep struct {
	Kind        fold.Kind `yaml:"kind" json:"kind"`
	fold.Params `yaml:",inline"`
}

// DyeStroke is one continuous stroke. Zero intensity or radius keep the
// session's current brush.
type DyeStroke struct {
	Color     string       `yaml:"color" json:"color"`
	Intensity float64      `yaml:"intensity" json:"intensity,omitempty"`
	Radius    float64      `yaml:"radius" json:"radius,omitempty"`
	Points    []geom.Point `yaml:"points" json:"points"`
}

// Validate implements validation.Validatable.
func (r Recipe) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Folds),
		validation.Field(&r.Dyes),
	)
}

// Validate implements validation.Validatable.
func (s FoldStep) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Kind, validation.Required,
			validation.In(fold.Accordion, fold.Spiral, fold.Crumple, fold.Diagonal)),
		validation.Field(&s.FoldCount, validation.Min(0), validation.Max(fold.DefaultMaxLayers)),
		validation.Field(&s.Rotations, validation.Min(0.0), validation.Max(float64(fold.DefaultMaxLayers)/2)),
		validation.Field(&s.AnchorCount, validation.Min(0), validation.Max(fold.DefaultMaxLayers)),
		validation.Field(&s.Anchors, validation.Length(0, fold.DefaultMaxLayers)),
		validation.Field(&s.Direction, validation.In(fold.Horizontal, fold.Vertical)),
	)
}

// Validate implements validation.Validatable.
func (s DyeStroke) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Color, validation.Required, validation.By(hexColor)),
		validation.Field(&s.Intensity, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&s.Radius, validation.Min(0.0)),
		validation.Field(&s.Points, validation.Required),
	)
}

func hexColor(v any) error {
	s, _ := v.(string)
	if _, err := pigment.ParseHex(s); err != nil {
		return errors.New("must be a #rrggbb color")
	}
	return nil
}

// ParsedColor returns the stroke color.
func (s DyeStroke) ParsedColor() (pigment.Color, error) {
	return pigment.ParseHex(s.Color)
}

// IsRecipeFile reports whether path has a recipe extension.
func IsRecipeFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".md":
		return true
	}
	return false
}

// Parse decodes and validates a recipe. Markdown files carry the recipe in
// YAML frontmatter; the body becomes the description and its first H1 the
// default name. Plain YAML recipes without a name are named after the file.
func Parse(path string, data []byte) (Recipe, error) {
	var (
		r    Recipe
		body string
	)
	block := data
	if strings.EqualFold(filepath.Ext(path), ".md") {
		fm, rest, ok := splitFrontmatter(data)
		if !ok {
			return Recipe{}, fmt.Errorf("preset: %s: missing frontmatter", path)
		}
		block, body = fm, rest
	}
	if err := yaml.Unmarshal(block, &r); err != nil {
		return Recipe{}, fmt.Errorf("preset: %s: %w", path, err)
	}

	if r.Name == "" {
		r.Name = heading(body)
	}
	if r.Name == "" {
		r.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if r.Description == "" {
		r.Description = strings.TrimSpace(body)
	}
	for i := range r.Folds {
		r.Folds[i].Kind = fold.Kind(strings.ToLower(strings.TrimSpace(string(r.Folds[i].Kind))))
	}
	r.Source = path

	if err := r.Validate(); err != nil {
		return Recipe{}, fmt.Errorf("preset: %s: %w", path, err)
	}
	return r, nil
}

// splitFrontmatter separates the YAML block between leading --- delimiters
// from the Markdown body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return rest[:idx], body, true
}

func heading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
