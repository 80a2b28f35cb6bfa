// Package unfold replays a fold stack in reverse over the recorded dye to
// produce the final symmetric pattern.
package unfold

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/dye"
	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/notify"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/surface"
)

const (
	// RenderFactor scales recorded intensity when drawing the final layer.
	RenderFactor = 0.6
	// CrumpleFade scales the intensity of crumple copies.
	CrumpleFade = 0.7
	// CrumpleJitter bounds the per-axis offset of crumple copies in pixels.
	CrumpleJitter = 20.0
	// SpiralCopiesPerRotation is the number of rotated copies per turn.
	SpiralCopiesPerRotation = 4
)

// Mark is one dye disc of the unfolded pattern.
type Mark struct {
	Position  geom.Point    `json:"position"`
	Color     pigment.Color `json:"color"`
	Intensity float64       `json:"intensity"`
	Radius    float64       `json:"radius"`
}

// Pattern is the result of one unfold.
type Pattern struct {
	Marks []Mark `json:"marks"`
	Steps int    `json:"steps"`
	// Copied is set when the stack was empty and the final layer is a copy
	// of the dye layer.
	Copied bool `json:"copied"`
}

// Step is the payload of unfold.step.
type Step struct {
	Index int       `json:"index"`
	Total int       `json:"total"`
	Fold  fold.Fold `json:"fold"`
	Marks int       `json:"marks"`
}

// Option configures an Unfolder.
type Option func(*Unfolder)

// WithDelay paces the replay with d between folds.
func WithDelay(d time.Duration) Option {
	return func(u *Unfolder) {
		if d >= 0 {
			u.delay = d
		}
	}
}

// Unfolder renders unfolded patterns into a sink's final layer.
type Unfolder struct {
	notify.Bus

	sink    surface.Sink
	rnd     *rand.Rand
	delay   time.Duration
	running atomic.Bool
}

// NewUnfolder returns an Unfolder drawing into sink. rnd drives crumple
// jitter.
func NewUnfolder(sink surface.Sink, rnd *rand.Rand, opts ...Option) *Unfolder {
	u := &Unfolder{sink: sink, rnd: rnd}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Running reports whether an unfold is in progress.
func (u *Unfolder) Running() bool { return u.running.Load() }

// Generate processes folds newest to oldest, expanding the dye points by
// each fold's transform and redrawing the final layer after every step.
// A second call while one is running fails with apperr.ErrUnfoldInProgress.
// Cancellation is honored between folds.
func (u *Unfolder) Generate(ctx context.Context, folds []fold.Fold, points []dye.Point) (Pattern, error) {
	if !u.running.CompareAndSwap(false, true) {
		return Pattern{}, apperr.ErrUnfoldInProgress
	}
	defer u.running.Store(false)

	u.Publish(notify.UnfoldStarted, len(folds))

	marks := make([]Mark, len(points))
	for i, p := range points {
		marks[i] = Mark{Position: p.Position, Color: p.Color, Intensity: p.Intensity, Radius: p.Radius}
	}

	if len(folds) == 0 {
		if err := u.sink.Copy(surface.Final, surface.Dye); err != nil {
			return Pattern{}, fmt.Errorf("unfold: copy dye: %w", err)
		}
		pat := Pattern{Marks: marks, Copied: true}
		u.Publish(notify.UnfoldComplete, pat)
		return pat, nil
	}

	for step := 0; step < len(folds); step++ {
		if err := ctx.Err(); err != nil {
			return Pattern{}, err
		}
		if step > 0 {
			if err := u.wait(ctx); err != nil {
				return Pattern{}, err
			}
		}

		f := folds[len(folds)-1-step]
		marks = u.Transform(f, marks)
		if err := u.render(marks); err != nil {
			return Pattern{}, err
		}
		u.Publish(notify.UnfoldStep, Step{Index: step, Total: len(folds), Fold: f.Clone(), Marks: len(marks)})
	}

	pat := Pattern{Marks: marks, Steps: len(folds)}
	u.Publish(notify.UnfoldComplete, pat)
	return pat, nil
}

func (u *Unfolder) wait(ctx context.Context) error {
	if u.delay <= 0 {
		return nil
	}
	t := time.NewTimer(u.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (u *Unfolder) render(marks []Mark) error {
	if err := u.sink.Clear(surface.Final); err != nil {
		return fmt.Errorf("unfold: clear final: %w", err)
	}
	for _, m := range marks {
		alpha := m.Intensity * RenderFactor / 100
		if err := u.sink.DrawRadial(surface.Final, m.Position, m.Radius, surface.Footprint(m.Color, alpha)); err != nil {
			return fmt.Errorf("unfold: draw: %w", err)
		}
	}
	return nil
}

// Transform returns marks expanded by the unfold transform of f. Every
// original mark is kept and comes first in its group.
func (u *Unfolder) Transform(f fold.Fold, marks []Mark) []Mark {
	switch f.Kind {
	case fold.Accordion:
		return accordion(f, marks)
	case fold.Spiral:
		return spiral(f, marks)
	case fold.Crumple:
		return u.crumple(f, marks)
	case fold.Diagonal:
		return diagonal(f, marks)
	}
	return append([]Mark(nil), marks...)
}

// accordion mirrors each mark across every crease line.
func accordion(f fold.Fold, marks []Mark) []Mark {
	out := make([]Mark, 0, len(marks)*(len(f.CreaseLines)+1))
	for _, m := range marks {
		out = append(out, m)
		for _, line := range f.CreaseLines {
			c := m
			if f.Direction == fold.Vertical {
				c.Position.X = 2*line.From.X - m.Position.X
			} else {
				c.Position.Y = 2*line.From.Y - m.Position.Y
			}
			out = append(out, c)
		}
	}
	return out
}

// spiral rotates each mark round(rotations x 4) times about the center.
func spiral(f fold.Fold, marks []Mark) []Mark {
	n := max(int(math.Round(f.Rotations*SpiralCopiesPerRotation)), 1)
	step := 2 * math.Pi / float64(n)
	out := make([]Mark, 0, len(marks)*n)
	for _, m := range marks {
		out = append(out, m)
		for k := 1; k < n; k++ {
			c := m
			c.Position = m.Position.Rotate(f.Center, step*float64(k))
			out = append(out, c)
		}
	}
	return out
}

// crumple scatters one faded copy per anchor around each mark.
func (u *Unfolder) crumple(f fold.Fold, marks []Mark) []Mark {
	out := make([]Mark, 0, len(marks)*(len(f.Anchors)+1))
	for _, m := range marks {
		out = append(out, m)
		for range f.Anchors {
			c := m
			c.Position.X += (u.rnd.Float64()*2 - 1) * CrumpleJitter
			c.Position.Y += (u.rnd.Float64()*2 - 1) * CrumpleJitter
			c.Intensity *= CrumpleFade
			out = append(out, c)
		}
	}
	return out
}

// diagonal reflects each mark across the line through the fold center.
func diagonal(f fold.Fold, marks []Mark) []Mark {
	out := make([]Mark, 0, len(marks)*2)
	for _, m := range marks {
		c := m
		c.Position = m.Position.Reflect(f.Center, f.Angle())
		out = append(out, m, c)
	}
	return out
}
