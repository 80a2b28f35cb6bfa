// Package dye records dye applications against the current fold
// configuration and renders their footprint and bleed.
package dye

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/notify"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/surface"
)

// Bleed constants.
const (
	BleedPoints        = 8
	MinBleedIntensity  = 5.0
	bleedRadiusFactor  = 0.5
	bleedAlphaFactor   = 0.3
	maxIntensity       = 100.0
	minBleedDistFactor = 0.5
)

// Config holds the brush bounds and diffusion rates.
type Config struct {
	MinBrush       float64
	MaxBrush       float64
	Brush          float64
	Intensity      float64
	Color          pigment.Color
	BleedRate      float64
	AbsorptionRate float64
}

// DefaultConfig returns the stock brush and diffusion settings.
func DefaultConfig() Config {
	return Config{
		MinBrush:       5,
		MaxBrush:       100,
		Brush:          30,
		Intensity:      70,
		Color:          pigment.RGB(214, 38, 122),
		BleedRate:      1.5,
		AbsorptionRate: 0.7,
	}
}

// Point is one recorded dye application. It never changes once recorded.
type Point struct {
	Position   geom.Point    `json:"position"`
	Color      pigment.Color `json:"color"`
	Intensity  float64       `json:"intensity"`
	Radius     float64       `json:"radius"`
	LayerCount int           `json:"layer_count"`
	Seq        uint64        `json:"seq"`
}

// EffectiveIntensity attenuates the recorded intensity by the square root
// of the number of cloth layers the dye had to penetrate.
func (p Point) EffectiveIntensity() float64 {
	return p.Intensity / math.Sqrt(float64(max(p.LayerCount, 1)))
}

// Bleed is one rendered satellite around a dye point.
type Bleed struct {
	Position geom.Point    `json:"position"`
	Radius   float64       `json:"radius"`
	Alpha    float64       `json:"alpha"`
	Color    pigment.Color `json:"color"`
}

// Applied is the payload of a dye.applied notification.
type Applied struct {
	Point Point   `json:"point"`
	Bleed []Bleed `json:"bleed"`
}

// Occupier tests whether a point lies on the garment.
type Occupier interface {
	Occupiable(p geom.Point) bool
}

// LayerCounter reports the current number of cloth layers.
type LayerCounter interface {
	EffectiveLayerCount() int
}

// Model holds the ordered dye points of one garment and the current brush.
// A Model is owned by a single goroutine.
type Model struct {
	notify.Bus

	cfg     Config
	garment Occupier
	layers  LayerCounter
	sink    surface.Sink
	rnd     *rand.Rand

	brush     float64
	intensity float64
	color     pigment.Color

	applying bool
	points   []Point
	seq      uint64
}

// NewModel returns an empty model that draws into sink's dye layer.
func NewModel(cfg Config, garment Occupier, layers LayerCounter, sink surface.Sink, rnd *rand.Rand) *Model {
	if cfg.MaxBrush < cfg.MinBrush {
		cfg.MinBrush, cfg.MaxBrush = cfg.MaxBrush, cfg.MinBrush
	}
	m := &Model{
		cfg:     cfg,
		garment: garment,
		layers:  layers,
		sink:    sink,
		rnd:     rnd,
		color:   cfg.Color,
	}
	m.SetBrushSize(cfg.Brush)
	m.SetIntensity(cfg.Intensity)
	return m
}

// SetBrushSize clamps v to the configured bounds and makes it the default
// radius. It returns the stored value.
func (m *Model) SetBrushSize(v float64) float64 {
	m.brush = math.Max(m.cfg.MinBrush, math.Min(m.cfg.MaxBrush, v))
	return m.brush
}

// SetIntensity clamps v to [0,100] and makes it the default intensity.
func (m *Model) SetIntensity(v float64) float64 {
	m.intensity = clampIntensity(v)
	return m.intensity
}

// SetColor makes c the default dye color.
func (m *Model) SetColor(c pigment.Color) {
	m.color = c
}

// Brush returns the current radius, intensity and color.
func (m *Model) Brush() (radius, intensity float64, color pigment.Color) {
	return m.brush, m.intensity, m.color
}

func clampIntensity(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(maxIntensity, v))
}

// Applying reports whether a stroke is in progress.
func (m *Model) Applying() bool { return m.applying }

// BeginStroke starts a stroke at (x, y). Off-garment points are ignored and
// report false. A point whose drawing fails is not recorded.
func (m *Model) BeginStroke(x, y float64) (bool, error) {
	p := geom.Point{X: x, Y: y}
	if !m.garment.Occupiable(p) {
		return false, nil
	}
	if err := m.record(p); err != nil {
		return false, err
	}
	m.applying = true
	return true, nil
}

// ContinueStroke records another point while a stroke is in progress.
// Off-garment points are skipped without ending the stroke.
func (m *Model) ContinueStroke(x, y float64) (bool, error) {
	if !m.applying {
		return false, nil
	}
	p := geom.Point{X: x, Y: y}
	if !m.garment.Occupiable(p) {
		return false, nil
	}
	if err := m.record(p); err != nil {
		return false, err
	}
	return true, nil
}

// EndStroke finishes the current stroke.
func (m *Model) EndStroke() {
	m.applying = false
}

// Clear discards every dye point and erases the dye layer.
func (m *Model) Clear() error {
	m.points = nil
	if err := m.sink.Clear(surface.Dye); err != nil {
		return fmt.Errorf("dye: clear: %w", err)
	}
	m.Publish(notify.DyeCleared, nil)
	return nil
}

// Points returns a snapshot of the recorded points in application order.
func (m *Model) Points() []Point {
	return append([]Point{}, m.points...)
}

// Len returns the number of recorded points.
func (m *Model) Len() int { return len(m.points) }

func (m *Model) record(pos geom.Point) error {
	p := Point{
		Position:   pos,
		Color:      m.color,
		Intensity:  m.intensity,
		Radius:     m.brush,
		LayerCount: max(m.layers.EffectiveLayerCount(), 1),
		Seq:        m.seq + 1,
	}

	alpha := p.EffectiveIntensity() / maxIntensity
	if err := m.sink.DrawRadial(surface.Dye, p.Position, p.Radius, surface.Footprint(p.Color, alpha)); err != nil {
		return fmt.Errorf("dye: draw point: %w", err)
	}

	bleed := m.bleed(p)
	for _, b := range bleed {
		if err := m.sink.DrawRadial(surface.Dye, b.Position, b.Radius, surface.Footprint(b.Color, b.Alpha)); err != nil {
			return fmt.Errorf("dye: draw bleed: %w", err)
		}
	}

	m.seq = p.Seq
	m.points = append(m.points, p)
	m.Publish(notify.DyeApplied, Applied{Point: p, Bleed: bleed})
	return nil
}

// bleed spreads BleedPoints satellites evenly around p at a random distance
// in [0.5, 1] x radius x BleedRate. Weak dye does not spread.
func (m *Model) bleed(p Point) []Bleed {
	if p.Intensity*m.cfg.AbsorptionRate < MinBleedIntensity {
		return nil
	}
	reach := p.Radius * m.cfg.BleedRate
	alpha := p.EffectiveIntensity() * m.cfg.AbsorptionRate / maxIntensity * bleedAlphaFactor

	out := make([]Bleed, BleedPoints)
	for i := range out {
		angle := 2 * math.Pi * float64(i) / BleedPoints
		dist := (minBleedDistFactor + m.rnd.Float64()*(1-minBleedDistFactor)) * reach
		sin, cos := math.Sincos(angle)
		out[i] = Bleed{
			Position: geom.Point{X: p.Position.X + cos*dist, Y: p.Position.Y + sin*dist},
			Radius:   p.Radius * bleedRadiusFactor,
			Alpha:    alpha,
			Color:    p.Color,
		}
	}
	return out
}

// MixAt returns the dye color at (x, y). A point covers the position when
// it lies strictly inside its radius. The first covering point sets the
// color; later ones are folded in pairwise with subtractive mixing, each
// weighted by intensity x (1 - distance/radius). Uncovered cloth is white.
func (m *Model) MixAt(x, y float64) pigment.Color {
	q := geom.Point{X: x, Y: y}
	out := pigment.White
	var acc float64
	found := false
	for _, p := range m.points {
		if p.Radius <= 0 {
			continue
		}
		d := p.Position.Dist(q)
		if d >= p.Radius {
			continue
		}
		w := p.Intensity * (1 - d/p.Radius)
		if !found {
			out, acc, found = p.Color, w, true
			continue
		}
		if w <= 0 {
			continue
		}
		out = pigment.Mix(out, p.Color, w/(acc+w))
		acc += w
	}
	return out
}
