// Package pigment implements dye colors and subtractive (CMY complement)
// color mixing.
package pigment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is an RGB triple with channels in [0,255].
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// White is the undyed cloth color.
var White = Color{R: 255, G: 255, B: 255}

// RGB builds a Color from integer channels, clamping each to [0,255].
func RGB(r, g, b int) Color {
	return Color{R: clampChannel(r), G: clampChannel(g), B: clampChannel(b)}
}

func clampChannel(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// ParseHex parses "#rrggbb" or "rrggbb" (and the 3-digit short forms).
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("pigment: invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("pigment: invalid hex color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex formats c as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Floats returns the channels scaled to [0,1].
func (c Color) Floats() (r, g, b float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

// cmy is a color in complement space, each channel in [0,1].
type cmy struct{ c, m, y float64 }

func toCMY(col Color) cmy {
	r, g, b := col.Floats()
	return cmy{c: 1 - r, m: 1 - g, y: 1 - b}
}

func (k cmy) color() Color {
	return Color{
		R: toByte((1 - k.c) * 255),
		G: toByte((1 - k.m) * 255),
		B: toByte((1 - k.y) * 255),
	}
}

func toByte(v float64) uint8 {
	return clampChannel(int(math.Round(v)))
}

// Mix blends a toward b by ratio t in subtractive space. t is clamped to
// [0,1]; Mix(a, b, 0) == a and Mix(a, b, 1) == b.
func Mix(a, b Color, t float64) Color {
	t = math.Max(0, math.Min(1, t))
	ka, kb := toCMY(a), toCMY(b)
	return cmy{
		c: ka.c + (kb.c-ka.c)*t,
		m: ka.m + (kb.m-ka.m)*t,
		y: ka.y + (kb.y-ka.y)*t,
	}.color()
}
