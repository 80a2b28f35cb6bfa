package fold

import (
	"fmt"
	"math/rand/v2"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/notify"
)

// Defaults for a Stack.
const (
	DefaultMaxLayers = 32
	DefaultRedoLimit = 20
)

// Layer is one visualized cloth layer. Opacity decreases with Index.
type Layer struct {
	Index   int     `json:"index"`
	Opacity float64 `json:"opacity"`
	Offset  float64 `json:"offset"`
}

// Change is the payload of every fold notification.
type Change struct {
	Fold       Fold    `json:"fold"`
	Layers     []Layer `json:"layers"`
	LayerCount int     `json:"layer_count"`
}

// Option configures a Stack.
type Option func(*Stack)

// WithMaxLayers caps the effective layer count.
func WithMaxLayers(n int) Option {
	return func(s *Stack) {
		if n >= 1 {
			s.maxLayers = n
		}
	}
}

// WithRedoLimit bounds the redo buffer.
func WithRedoLimit(n int) Option {
	return func(s *Stack) {
		if n >= 1 {
			s.redoLimit = n
		}
	}
}

// Stack is the ordered sequence of applied folds plus a bounded redo buffer.
// The last fold is the innermost, most recent one.
//
// Apply does not clear the redo buffer: only Undo fills it and only Redo and
// Clear drain it, so a redo after a fresh Apply replays a stale fold.
//
// A Stack is owned by a single goroutine.
type Stack struct {
	notify.Bus

	garment   geom.Garment
	rnd       *rand.Rand
	maxLayers int
	redoLimit int

	folds  []Fold
	redo   []Fold
	layers []Layer
}

// NewStack returns an empty stack for garment g. rnd seeds crumple anchors.
func NewStack(g geom.Garment, rnd *rand.Rand, opts ...Option) *Stack {
	s := &Stack{
		garment:   g,
		rnd:       rnd,
		maxLayers: DefaultMaxLayers,
		redoLimit: DefaultRedoLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxLayers returns the configured layer cap.
func (s *Stack) MaxLayers() int { return s.maxLayers }

// Apply builds a fold and pushes it. It fails with apperr.ErrMaxLayersReached
// once the cap has been reached, and with apperr.ErrInvalidFoldParams when
// the fold alone would multiply the layers past the cap.
func (s *Stack) Apply(kind Kind, p Params) (Fold, error) {
	if s.EffectiveLayerCount() >= s.maxLayers {
		return Fold{}, apperr.ErrMaxLayersReached
	}
	if m := p.Multiplier(kind); m > s.maxLayers {
		return Fold{}, fmt.Errorf("fold: %s multiplier %d exceeds %d layers: %w", kind, m, s.maxLayers, apperr.ErrInvalidFoldParams)
	}
	f, err := Build(kind, p, s.garment, s.rnd)
	if err != nil {
		return Fold{}, err
	}
	s.folds = append(s.folds, f)
	s.recompute()
	s.Publish(notify.FoldApplied, s.change(f))
	return f.Clone(), nil
}

// Undo moves the most recent fold onto the redo buffer.
func (s *Stack) Undo() bool {
	if len(s.folds) == 0 {
		return false
	}
	f := s.folds[len(s.folds)-1]
	s.folds = s.folds[:len(s.folds)-1]
	s.redo = append(s.redo, f)
	if len(s.redo) > s.redoLimit {
		s.redo = append([]Fold(nil), s.redo[len(s.redo)-s.redoLimit:]...)
	}
	s.recompute()
	s.Publish(notify.FoldUndone, s.change(f))
	return true
}

// Redo moves the most recently undone fold back onto the stack.
func (s *Stack) Redo() bool {
	if len(s.redo) == 0 {
		return false
	}
	f := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.folds = append(s.folds, f)
	s.recompute()
	s.Publish(notify.FoldRedone, s.change(f))
	return true
}

// Clear empties the stack and the redo buffer.
func (s *Stack) Clear() {
	s.folds = nil
	s.redo = nil
	s.layers = nil
	s.Publish(notify.FoldsCleared, Change{LayerCount: 1, Layers: []Layer{}})
}

// Folds returns a snapshot of the applied folds, oldest first.
func (s *Stack) Folds() []Fold {
	out := make([]Fold, len(s.folds))
	for i, f := range s.folds {
		out[i] = f.Clone()
	}
	return out
}

// Len returns the number of applied folds.
func (s *Stack) Len() int { return len(s.folds) }

// RedoDepth returns the number of folds waiting in the redo buffer.
func (s *Stack) RedoDepth() int { return len(s.redo) }

// Layers returns a snapshot of the visualized layers.
func (s *Stack) Layers() []Layer {
	return append([]Layer{}, s.layers...)
}

// EffectiveLayerCount is the product of every fold's multiplier, clamped to
// the layer cap. It is 1 for an empty stack.
func (s *Stack) EffectiveLayerCount() int {
	n := 1
	for _, f := range s.folds {
		n *= max(f.Multiplier, 1)
		if n >= s.maxLayers {
			return s.maxLayers
		}
	}
	return n
}

func (s *Stack) recompute() {
	if len(s.folds) == 0 {
		s.layers = nil
		return
	}
	s.layers = buildLayers(min(s.EffectiveLayerCount(), s.maxLayers))
}

// buildLayers returns n layers fading from full opacity toward 0.3.
func buildLayers(n int) []Layer {
	layers := make([]Layer, n)
	for i := range layers {
		layers[i] = Layer{
			Index:   i,
			Opacity: 1 - 0.7*float64(i)/float64(n),
			Offset:  float64(i) * 3,
		}
	}
	return layers
}

func (s *Stack) change(f Fold) Change {
	return Change{
		Fold:       f.Clone(),
		Layers:     s.Layers(),
		LayerCount: s.EffectiveLayerCount(),
	}
}
