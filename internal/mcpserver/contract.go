package mcpserver

// RecipeFormat describes the recipe files that import_recipe accepts and
// the preset directory loads.
const RecipeFormat = `# Tie-Dye Recipe Format

A recipe resets a session, applies folds oldest first, then records dye
strokes. Files end in .yaml, .yml or .md.

## YAML

` + "```" + `yaml
name: sunburst                # optional, defaults to the file name
description: Spiral with two rings
folds:
  - kind: spiral              # accordion | spiral | crumple | diagonal
    rotations: 2              # spiral turns, minimum 1
    center: {x: 400, y: 400}  # optional, defaults to the garment center
  - kind: accordion
    direction: horizontal     # horizontal | vertical
    fold_count: 3
  - kind: crumple
    anchor_count: 4           # or anchors: [{x: 300, y: 300}, ...]
  - kind: diagonal
    angle_degrees: 45
dyes:
  - color: "#3366ff"          # REQUIRED, #rrggbb
    intensity: 80             # optional, 0-100
    radius: 25                # optional, 5-100
    points:                   # REQUIRED, garment pixels
      - {x: 450, y: 400}
      - {x: 470, y: 400}
unfold: true                  # render the final pattern after dyeing
` + "```" + `

## Markdown

The same keys go in YAML frontmatter between ` + "`---`" + ` fences. The
first ` + "`# Heading`" + ` names the recipe when ` + "`name`" + ` is absent and the
body becomes the description.

## Rules

1. The default garment body spans x 250-550 and y 200-600. Points off the
   garment are skipped.
2. Folds beyond the layer cap make the whole recipe fail.
3. Recipe names are unique across the preset directory.
`
