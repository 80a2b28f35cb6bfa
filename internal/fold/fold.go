// Package fold models fold operations on the virtual garment and the
// undoable stack they are applied to.
package fold

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/geom"
)

// Kind is one of the four supported fold families.
type Kind string

// Fold families.
const (
	Accordion Kind = "accordion"
	Spiral    Kind = "spiral"
	Crumple   Kind = "crumple"
	Diagonal  Kind = "diagonal"
)

// Kinds lists every fold family.
var Kinds = []Kind{Accordion, Spiral, Crumple, Diagonal}

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("fold: %q: %w", s, apperr.ErrInvalidFoldKind)
}

// Direction orients accordion creases.
type Direction string

// Accordion directions.
const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// DefaultAnchorCount is the number of random crumple anchors when neither
// anchors nor a count are supplied.
const DefaultAnchorCount = 5

// Params carries family-specific fold parameters. Fields that do not apply
// to the requested kind are ignored.
type Params struct {
	Direction    Direction    `json:"direction,omitempty" yaml:"direction"`
	FoldCount    int          `json:"fold_count,omitempty" yaml:"fold_count"`
	Center       *geom.Point  `json:"center,omitempty" yaml:"center"`
	Rotations    float64      `json:"rotations,omitempty" yaml:"rotations"`
	Anchors      []geom.Point `json:"anchors,omitempty" yaml:"anchors"`
	AnchorCount  int          `json:"anchor_count,omitempty" yaml:"anchor_count"`
	AngleDegrees float64      `json:"angle_degrees,omitempty" yaml:"angle_degrees"`
}

// Multiplier returns the layer multiplier of a fold of kind built from p,
// without building it. Unknown kinds report 1.
func (p Params) Multiplier(kind Kind) int {
	switch kind {
	case Accordion:
		return max(p.FoldCount, 1)
	case Spiral:
		r := math.Max(p.Rotations, 1)
		if !(r <= math.MaxInt32/2) {
			return math.MaxInt32
		}
		return max(int(math.Round(r*2)), 1)
	case Crumple:
		if len(p.Anchors) > 0 {
			return len(p.Anchors)
		}
		if p.AnchorCount <= 0 {
			return DefaultAnchorCount
		}
		return p.AnchorCount
	case Diagonal:
		return 2
	}
	return 1
}

// Fold is one applied fold. It never changes after Build returns it.
type Fold struct {
	Kind       Kind `json:"kind"`
	Multiplier int  `json:"layer_multiplier"`

	// Accordion.
	Direction   Direction      `json:"direction,omitempty"`
	FoldCount   int            `json:"fold_count,omitempty"`
	CreaseLines []geom.Segment `json:"crease_lines,omitempty"`

	// Spiral.
	Center    geom.Point `json:"center"`
	Rotations float64    `json:"rotations,omitempty"`

	// Crumple.
	Anchors []geom.Point `json:"anchors,omitempty"`

	// Diagonal.
	AngleDegrees float64 `json:"angle_degrees,omitempty"`
}

// Clone returns a deep copy of f.
func (f Fold) Clone() Fold {
	if f.CreaseLines != nil {
		f.CreaseLines = append([]geom.Segment(nil), f.CreaseLines...)
	}
	if f.Anchors != nil {
		f.Anchors = append([]geom.Point(nil), f.Anchors...)
	}
	return f
}

// Angle returns the diagonal angle in radians.
func (f Fold) Angle() float64 {
	return f.AngleDegrees * math.Pi / 180
}

// Build constructs a Fold of the given kind on garment g. Crumple anchors
// that are not supplied are drawn from rnd.
func Build(kind Kind, p Params, g geom.Garment, rnd *rand.Rand) (Fold, error) {
	switch kind {
	case Accordion:
		return buildAccordion(p, g.Body)
	case Spiral:
		return buildSpiral(p, g), nil
	case Crumple:
		return buildCrumple(p, g.Body, rnd), nil
	case Diagonal:
		return Fold{
			Kind:         Diagonal,
			Multiplier:   2,
			Center:       g.Center(),
			AngleDegrees: p.AngleDegrees,
		}, nil
	}
	return Fold{}, fmt.Errorf("fold: build %q: %w", kind, apperr.ErrInvalidFoldKind)
}

func buildAccordion(p Params, body geom.Rect) (Fold, error) {
	dir := p.Direction
	if dir == "" {
		dir = Horizontal
	}
	if dir != Horizontal && dir != Vertical {
		return Fold{}, fmt.Errorf("fold: accordion direction %q: %w", dir, apperr.ErrInvalidFoldKind)
	}
	n := p.Multiplier(Accordion)
	return Fold{
		Kind:        Accordion,
		Multiplier:  n,
		Direction:   dir,
		FoldCount:   n,
		CreaseLines: creaseLines(dir, n, body),
		Center:      body.Center(),
	}, nil
}

// creaseLines places n lines at multiples of extent/(n+1) from the top
// (horizontal) or left (vertical) edge of body. No line sits on an edge.
func creaseLines(dir Direction, n int, body geom.Rect) []geom.Segment {
	lines := make([]geom.Segment, 0, n)
	if dir == Horizontal {
		spacing := body.H / float64(n+1)
		for i := 1; i <= n; i++ {
			y := body.Y + spacing*float64(i)
			lines = append(lines, geom.Segment{
				From: geom.Point{X: body.X, Y: y},
				To:   geom.Point{X: body.X + body.W, Y: y},
			})
		}
		return lines
	}
	spacing := body.W / float64(n+1)
	for i := 1; i <= n; i++ {
		x := body.X + spacing*float64(i)
		lines = append(lines, geom.Segment{
			From: geom.Point{X: x, Y: body.Y},
			To:   geom.Point{X: x, Y: body.Y + body.H},
		})
	}
	return lines
}

func buildSpiral(p Params, g geom.Garment) Fold {
	center := g.Center()
	if p.Center != nil {
		center = *p.Center
	}
	rotations := math.Max(p.Rotations, 1)
	return Fold{
		Kind:       Spiral,
		Multiplier: p.Multiplier(Spiral),
		Center:     center,
		Rotations:  rotations,
	}
}

func buildCrumple(p Params, body geom.Rect, rnd *rand.Rand) Fold {
	anchors := append([]geom.Point(nil), p.Anchors...)
	if len(anchors) == 0 {
		n := p.AnchorCount
		if n <= 0 {
			n = DefaultAnchorCount
		}
		anchors = make([]geom.Point, n)
		for i := range anchors {
			anchors[i] = geom.Point{
				X: body.X + rnd.Float64()*body.W,
				Y: body.Y + rnd.Float64()*body.H,
			}
		}
	}
	return Fold{
		Kind:       Crumple,
		Multiplier: max(len(anchors), 1),
		Center:     body.Center(),
		Anchors:    anchors,
	}
}
