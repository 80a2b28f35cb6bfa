// Package surface defines the drawing sink the simulation core renders into
// and provides its raster and recording implementations.
package surface

import (
	"fmt"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/pigment"
)

// Layer names a logical drawing surface.
type Layer string

// The three layers the core draws into.
const (
	Folds Layer = "folds"
	Dye   Layer = "dye"
	Final Layer = "final"
)

// Layers lists every layer in compositing order.
var Layers = []Layer{Folds, Dye, Final}

// ParseLayer validates a layer name.
func ParseLayer(s string) (Layer, error) {
	for _, l := range Layers {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("surface: layer %q: %w", s, apperr.ErrUnknownLayer)
}

// Stop is one color stop of a radial gradient. Offset runs from 0 at the
// center to 1 at the rim.
type Stop struct {
	Offset float64       `json:"offset"`
	Color  pigment.Color `json:"color"`
	Alpha  float64       `json:"alpha"`
}

// Sink is an addressable set of drawing layers. Implementations return
// apperr.ErrUnknownLayer for layers they do not hold.
type Sink interface {
	// DrawRadial fills a disc with a radial gradient.
	DrawRadial(layer Layer, center geom.Point, radius float64, stops []Stop) error
	// StrokeLine draws a straight line.
	StrokeLine(layer Layer, seg geom.Segment, c pigment.Color, alpha, width float64) error
	// Clear erases a layer to transparent.
	Clear(layer Layer) error
	// Copy replaces dst with the content of src.
	Copy(dst, src Layer) error
}

// Footprint returns the stops of a dye disc: alpha at the center, half of
// it at 70% of the radius and nothing at the rim.
func Footprint(c pigment.Color, alpha float64) []Stop {
	alpha = clamp01(alpha)
	return []Stop{
		{Offset: 0, Color: c, Alpha: alpha},
		{Offset: 0.7, Color: c, Alpha: alpha * 0.5},
		{Offset: 1, Color: c, Alpha: 0},
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
