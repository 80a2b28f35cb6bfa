package preset

import (
	"strings"
	"testing"

	"github.com/starford/tiedye/internal/fold"
)

const bullseye = `name: Bullseye
description: one spiral, two rings
folds:
  - kind: Spiral
    rotations: 2
dyes:
  - color: "#d6267a"
    intensity: 80
    radius: 25
    points:
      - {x: 400, y: 400}
      - {x: 420, y: 400}
unfold: true
`

func TestParseYAML(t *testing.T) {
	r, err := Parse("presets/bullseye.yaml", []byte(bullseye))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Name != "Bullseye" || !r.Unfold {
		t.Errorf("recipe = %+v", r)
	}
	if len(r.Folds) != 1 || r.Folds[0].Kind != fold.Spiral || r.Folds[0].Rotations != 2 {
		t.Errorf("folds = %+v", r.Folds)
	}
	if len(r.Dyes) != 1 || len(r.Dyes[0].Points) != 2 {
		t.Fatalf("dyes = %+v", r.Dyes)
	}
	c, err := r.Dyes[0].ParsedColor()
	if err != nil || c.Hex() != "#d6267a" {
		t.Errorf("color = %v, %v", c, err)
	}
	if r.Source != "presets/bullseye.yaml" {
		t.Errorf("source = %q", r.Source)
	}
}

func TestParseNameFromFile(t *testing.T) {
	r, err := Parse("dir/stripes.yml", []byte("folds:\n  - kind: accordion\n    fold_count: 3\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Name != "stripes" {
		t.Errorf("name = %q, want stripes", r.Name)
	}
	if r.Folds[0].FoldCount != 3 {
		t.Errorf("fold_count = %d", r.Folds[0].FoldCount)
	}
}

func TestParseMarkdown(t *testing.T) {
	input := "---\nfolds:\n  - kind: diagonal\n    angle_degrees: 45\n---\n# Crossed\nA single diagonal fold.\n"
	r, err := Parse("crossed.md", []byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Name != "Crossed" {
		t.Errorf("name = %q, want Crossed", r.Name)
	}
	if !strings.Contains(r.Description, "single diagonal") {
		t.Errorf("description = %q", r.Description)
	}
	if r.Folds[0].AngleDegrees != 45 {
		t.Errorf("angle = %v", r.Folds[0].AngleDegrees)
	}

	if _, err := Parse("bare.md", []byte("# no frontmatter\n")); err == nil {
		t.Error("expected error for markdown without frontmatter")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown kind":  "folds:\n  - kind: twist\n",
		"bad color":     "dyes:\n  - color: pink\n    points: [{x: 1, y: 1}]\n",
		"no points":     "dyes:\n  - color: \"#fff\"\n",
		"intensity":     "dyes:\n  - color: \"#ffffff\"\n    intensity: 140\n    points: [{x: 1, y: 1}]\n",
		"direction":     "folds:\n  - kind: accordion\n    direction: sideways\n",
		"invalid yaml":  "folds: [",
		"negative rots": "folds:\n  - kind: spiral\n    rotations: -1\n",
		"huge rots":     "folds:\n  - kind: spiral\n    rotations: 2500\n",
		"huge count":    "folds:\n  - kind: accordion\n    fold_count: 2000000\n",
	}
	for name, in := range cases {
		if _, err := Parse("x.yaml", []byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestIsRecipeFile(t *testing.T) {
	for path, want := range map[string]bool{
		"a.yaml": true, "b.YML": true, "c.md": true, "d.txt": false, "e": false,
	} {
		if got := IsRecipeFile(path); got != want {
			t.Errorf("IsRecipeFile(%q) = %v, want %v", path, got, want)
		}
	}
}
