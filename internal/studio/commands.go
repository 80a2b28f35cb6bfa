package studio

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/preset"
	"github.com/starford/tiedye/internal/surface"
	"github.com/starford/tiedye/internal/unfold"
)

// Command is one user action on a session.
type Command interface {
	Name() string
	run(s *Session) (any, error)
}

// ApplyFold pushes a fold. It returns the fold.Fold that was applied.
type ApplyFold struct {
	Kind   fold.Kind
	Params fold.Params
}

func (ApplyFold) Name() string { return "apply_fold" }

func (c ApplyFold) run(s *Session) (any, error) {
	f, err := s.stack.Apply(c.Kind, c.Params)
	if err != nil {
		if s.metrics != nil && isMaxLayers(err) {
			s.metrics.FoldsRejected.Inc()
		}
		return nil, err
	}
	return f, nil
}

func isMaxLayers(err error) bool {
	return errors.Is(err, apperr.ErrMaxLayersReached)
}

// UndoFold pops the newest fold. It returns whether anything changed.
type UndoFold struct{}

func (UndoFold) Name() string { return "undo_fold" }

func (UndoFold) run(s *Session) (any, error) { return s.stack.Undo(), nil }

// RedoFold restores the most recently undone fold. It returns whether
// anything changed.
type RedoFold struct{}

func (RedoFold) Name() string { return "redo_fold" }

func (RedoFold) run(s *Session) (any, error) { return s.stack.Redo(), nil }

// ClearFolds empties the fold stack and its redo buffer.
type ClearFolds struct{}

func (ClearFolds) Name() string { return "clear_folds" }

func (ClearFolds) run(s *Session) (any, error) {
	s.stack.Clear()
	return nil, nil
}

// SetBrush sets the brush radius. It returns the clamped value.
type SetBrush struct{ Radius float64 }

func (SetBrush) Name() string { return "set_brush" }

func (c SetBrush) run(s *Session) (any, error) { return s.dye.SetBrushSize(c.Radius), nil }

// SetIntensity sets the dye intensity. It returns the clamped value.
type SetIntensity struct{ Value float64 }

func (SetIntensity) Name() string { return "set_intensity" }

func (c SetIntensity) run(s *Session) (any, error) { return s.dye.SetIntensity(c.Value), nil }

// SetColor sets the dye color.
type SetColor struct{ Color pigment.Color }

func (SetColor) Name() string { return "set_color" }

func (c SetColor) run(s *Session) (any, error) {
	s.dye.SetColor(c.Color)
	return c.Color, nil
}

// BeginStroke starts a stroke. It returns whether a point was recorded.
type BeginStroke struct{ X, Y float64 }

func (BeginStroke) Name() string { return "begin_stroke" }

func (c BeginStroke) run(s *Session) (any, error) { return s.dye.BeginStroke(c.X, c.Y) }

// ContinueStroke extends the current stroke. It returns whether a point was
// recorded.
type ContinueStroke struct{ X, Y float64 }

func (ContinueStroke) Name() string { return "continue_stroke" }

func (c ContinueStroke) run(s *Session) (any, error) { return s.dye.ContinueStroke(c.X, c.Y) }

// EndStroke finishes the current stroke.
type EndStroke struct{}

func (EndStroke) Name() string { return "end_stroke" }

func (EndStroke) run(s *Session) (any, error) {
	s.dye.EndStroke()
	return nil, nil
}

// Stroke records a whole stroke at once. Non-nil brush fields override the
// current brush first and stay in effect afterwards. It returns the number
// of recorded points.
type Stroke struct {
	Points    []geom.Point
	Color     *pigment.Color
	Intensity *float64
	Radius    *float64
}

func (Stroke) Name() string { return "stroke" }

func (c Stroke) run(s *Session) (any, error) {
	return s.stroke(c)
}

func (s *Session) stroke(c Stroke) (int, error) {
	if c.Color != nil {
		s.dye.SetColor(*c.Color)
	}
	if c.Intensity != nil {
		s.dye.SetIntensity(*c.Intensity)
	}
	if c.Radius != nil {
		s.dye.SetBrushSize(*c.Radius)
	}
	defer s.dye.EndStroke()

	n := 0
	for _, p := range c.Points {
		var (
			ok  bool
			err error
		)
		if s.dye.Applying() {
			ok, err = s.dye.ContinueStroke(p.X, p.Y)
		} else {
			// Leading off-garment points are skipped until the stroke enters.
			ok, err = s.dye.BeginStroke(p.X, p.Y)
		}
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// ClearDye discards every dye point.
type ClearDye struct{}

func (ClearDye) Name() string { return "clear_dye" }

func (ClearDye) run(s *Session) (any, error) { return nil, s.dye.Clear() }

// Reset clears folds, dye and the final layer and restores the default
// brush.
type Reset struct{}

func (Reset) Name() string { return "reset" }

func (Reset) run(s *Session) (any, error) { return nil, s.reset() }

func (s *Session) reset() error {
	s.dye.EndStroke()
	s.stack.Clear()
	if err := s.dye.Clear(); err != nil {
		return err
	}
	if err := s.canvas.Clear(surface.Final); err != nil {
		return fmt.Errorf("studio: clear final: %w", err)
	}
	s.dye.SetBrushSize(s.cfg.Dye.Brush)
	s.dye.SetIntensity(s.cfg.Dye.Intensity)
	s.dye.SetColor(s.cfg.Dye.Color)
	s.invalidate()
	return nil
}

// ApplyPreset resets the session and replays a recipe's folds and strokes.
// It returns the number of recorded dye points.
type ApplyPreset struct{ Recipe preset.Recipe }

func (ApplyPreset) Name() string { return "apply_preset" }

func (c ApplyPreset) run(s *Session) (any, error) {
	if err := s.reset(); err != nil {
		return nil, err
	}
	for i, step := range c.Recipe.Folds {
		if _, err := s.stack.Apply(step.Kind, step.Params); err != nil {
			return nil, fmt.Errorf("studio: preset %q fold %d: %w", c.Recipe.Name, i, err)
		}
	}
	total := 0
	for i, d := range c.Recipe.Dyes {
		col, err := d.ParsedColor()
		if err != nil {
			return nil, fmt.Errorf("studio: preset %q stroke %d: %w", c.Recipe.Name, i, err)
		}
		st := Stroke{Points: d.Points, Color: &col}
		if d.Intensity > 0 {
			st.Intensity = &d.Intensity
		}
		if d.Radius > 0 {
			st.Radius = &d.Radius
		}
		n, err := s.stroke(st)
		if err != nil {
			return nil, err
		}
		total += n
	}
	return total, nil
}

// ApplyRecipe dispatches ApplyPreset and, when the recipe asks for it,
// unfolds the result. The pattern is nil when no unfold ran.
func (s *Session) ApplyRecipe(ctx context.Context, r preset.Recipe) (int, *unfold.Pattern, error) {
	res, err := s.Dispatch(ApplyPreset{Recipe: r})
	if err != nil {
		return 0, nil, err
	}
	n := res.(int)
	if !r.Unfold {
		return n, nil, nil
	}
	pat, err := s.Unfold(ctx)
	if err != nil {
		return n, nil, err
	}
	return n, &pat, nil
}
