// Package service coordinates sessions, recipes and the gallery for the
// HTTP and MCP front ends.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/gallery"
	"github.com/starford/tiedye/internal/metrics"
	"github.com/starford/tiedye/internal/preset"
	"github.com/starford/tiedye/internal/studio"
)

// Service is the application layer shared by every front end.
type Service struct {
	sessions *studio.Manager
	presets  *preset.Library
	gallery  *gallery.Store
	metrics  *metrics.Metrics
	recipes  *gallery.Files
}

// Option configures a Service.
type Option func(*Service)

// WithRecipeDir enables recipe imports into files.
func WithRecipeDir(files *gallery.Files) Option {
	return func(s *Service) { s.recipes = files }
}

// New creates a service. m may be nil.
func New(sessions *studio.Manager, presets *preset.Library, g *gallery.Store, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{sessions: sessions, presets: presets, gallery: g, metrics: m}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gallery returns the pattern store.
func (s *Service) Gallery() *gallery.Store { return s.gallery }

// CreateSession starts a session and returns its initial state.
func (s *Service) CreateSession(_ context.Context) (studio.State, error) {
	sess, err := s.sessions.Create()
	if err != nil {
		return studio.State{}, err
	}
	return sess.State(), nil
}

// Session returns a live session.
func (s *Service) Session(_ context.Context, id string) (*studio.Session, error) {
	return s.sessions.Get(id)
}

// DeleteSession ends a session.
func (s *Service) DeleteSession(_ context.Context, id string) error {
	return s.sessions.Delete(id)
}

// ListSessions returns every live session.
func (s *Service) ListSessions(_ context.Context) []studio.Summary {
	return s.sessions.List()
}

// Dispatch runs a command on a session and returns its result together
// with the resulting state.
func (s *Service) Dispatch(ctx context.Context, id string, cmd studio.Command) (any, studio.State, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, studio.State{}, err
	}
	res, err := sess.Dispatch(cmd)
	if err != nil {
		return nil, studio.State{}, err
	}
	return res, sess.State(), nil
}

// Unfold runs the unfolder of a session.
func (s *Service) Unfold(ctx context.Context, id string) (studio.PatternSummary, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return studio.PatternSummary{}, err
	}
	pat, err := sess.Unfold(ctx)
	if err != nil {
		return studio.PatternSummary{}, err
	}
	return studio.PatternSummary{Marks: len(pat.Marks), Steps: pat.Steps, Copied: pat.Copied}, nil
}

// Presets returns every loaded recipe.
func (s *Service) Presets(_ context.Context) []preset.Recipe {
	return s.presets.List()
}

// ImportRecipe validates a recipe file, writes it into the recipe
// directory and loads it. Existing files are never overwritten.
func (s *Service) ImportRecipe(_ context.Context, filename string, data []byte) (preset.Recipe, error) {
	if s.recipes == nil {
		return preset.Recipe{}, fmt.Errorf("import recipe: %w", apperr.ErrReadOnly)
	}
	filename = filepath.Base(filename)
	if !preset.IsRecipeFile(filename) {
		return preset.Recipe{}, fmt.Errorf("import recipe %q: %w: want .yaml, .yml or .md", filename, apperr.ErrInvalidRecipe)
	}
	r, err := preset.Parse(filename, data)
	if err != nil {
		return preset.Recipe{}, fmt.Errorf("%w: %v", apperr.ErrInvalidRecipe, err)
	}
	if _, err := s.presets.Get(r.Name); err == nil {
		return preset.Recipe{}, fmt.Errorf("import recipe %q: %w", r.Name, apperr.ErrAlreadyExists)
	}
	if s.recipes.Exists(filename) {
		return preset.Recipe{}, fmt.Errorf("import recipe %s: %w", filename, apperr.ErrAlreadyExists)
	}
	if err := s.recipes.Write(filename, data); err != nil {
		return preset.Recipe{}, fmt.Errorf("import recipe %s: %w", filename, err)
	}
	return s.presets.LoadFile(filepath.Join(s.recipes.Root(), filename))
}

// PresetResult describes the outcome of applying a recipe.
type PresetResult struct {
	Recipe   string                 `json:"recipe"`
	Recorded int                    `json:"recorded"`
	Pattern  *studio.PatternSummary `json:"pattern,omitempty"`
	State    studio.State           `json:"state"`
}

// ApplyPreset resets a session to the named recipe.
func (s *Service) ApplyPreset(ctx context.Context, id, name string) (PresetResult, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return PresetResult{}, err
	}
	r, err := s.presets.Get(name)
	if err != nil {
		return PresetResult{}, err
	}
	n, pat, err := sess.ApplyRecipe(ctx, r)
	if err != nil {
		return PresetResult{}, err
	}
	res := PresetResult{Recipe: r.Name, Recorded: n, State: sess.State()}
	if pat != nil {
		res.Pattern = &studio.PatternSummary{Marks: len(pat.Marks), Steps: pat.Steps, Copied: pat.Copied}
	}
	return res, nil
}

// Export saves the session's current composite to the gallery.
func (s *Service) Export(ctx context.Context, id, title string) (gallery.Pattern, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return gallery.Pattern{}, err
	}
	img, err := sess.Composite()
	if err != nil {
		return gallery.Pattern{}, err
	}
	st := sess.State()
	p, err := s.gallery.Save(ctx, gallery.SaveRequest{
		Title:      title,
		SessionID:  id,
		Folds:      FoldSummary(st.Folds),
		LayerCount: st.LayerCount,
		DyeCount:   st.DyePoints,
		Image:      img,
	})
	if err != nil {
		return gallery.Pattern{}, fmt.Errorf("export %s: %w", id, err)
	}
	if s.metrics != nil {
		s.metrics.PatternsSaved.Inc()
	}
	return p, nil
}

// FoldSummary describes a fold sequence as "kind xN" entries, oldest first.
func FoldSummary(folds []fold.Fold) string {
	if len(folds) == 0 {
		return "unfolded"
	}
	parts := make([]string, len(folds))
	for i, f := range folds {
		parts[i] = fmt.Sprintf("%s x%d", f.Kind, f.Multiplier)
	}
	return strings.Join(parts, ", ")
}
