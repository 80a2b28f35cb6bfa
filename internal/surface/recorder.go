package surface

import (
	"fmt"
	"sync"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/pigment"
)

// Op identifies a recorded draw call.
type Op string

// Recorded operations.
const (
	OpRadial Op = "radial"
	OpLine   Op = "line"
)

// Call is one recorded draw call.
type Call struct {
	Op      Op
	Center  geom.Point
	Radius  float64
	Stops   []Stop
	Segment geom.Segment
	Color   pigment.Color
	Alpha   float64
	Width   float64
}

// Recorder is a Sink that keeps the draw calls of each layer instead of
// rasterizing them. Two layers with equal call lists render identically.
type Recorder struct {
	mu     sync.Mutex
	layers map[Layer][]Call
}

var _ Sink = (*Recorder)(nil)

// NewRecorder returns a Recorder holding the standard layers.
func NewRecorder() *Recorder {
	r := &Recorder{layers: make(map[Layer][]Call, len(Layers))}
	for _, l := range Layers {
		r.layers[l] = nil
	}
	return r
}

func (r *Recorder) append(l Layer, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls, ok := r.layers[l]
	if !ok {
		return fmt.Errorf("surface: recorder %q: %w", l, apperr.ErrUnknownLayer)
	}
	r.layers[l] = append(calls, c)
	return nil
}

// DrawRadial implements Sink.
func (r *Recorder) DrawRadial(l Layer, center geom.Point, radius float64, stops []Stop) error {
	return r.append(l, Call{
		Op:     OpRadial,
		Center: center,
		Radius: radius,
		Stops:  append([]Stop(nil), stops...),
	})
}

// StrokeLine implements Sink.
func (r *Recorder) StrokeLine(l Layer, seg geom.Segment, c pigment.Color, alpha, width float64) error {
	return r.append(l, Call{Op: OpLine, Segment: seg, Color: c, Alpha: alpha, Width: width})
}

// Clear implements Sink.
func (r *Recorder) Clear(l Layer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.layers[l]; !ok {
		return fmt.Errorf("surface: recorder %q: %w", l, apperr.ErrUnknownLayer)
	}
	r.layers[l] = nil
	return nil
}

// Copy implements Sink.
func (r *Recorder) Copy(dst, src Layer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls, ok := r.layers[src]
	if !ok {
		return fmt.Errorf("surface: recorder %q: %w", src, apperr.ErrUnknownLayer)
	}
	if _, ok := r.layers[dst]; !ok {
		return fmt.Errorf("surface: recorder %q: %w", dst, apperr.ErrUnknownLayer)
	}
	r.layers[dst] = append([]Call(nil), calls...)
	return nil
}

// Calls returns a copy of the calls recorded on l.
func (r *Recorder) Calls(l Layer) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.layers[l]...)
}
