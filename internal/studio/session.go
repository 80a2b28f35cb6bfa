// Package studio runs simulation sessions: one fold stack, dye model,
// unfolder and raster canvas per session, driven by explicit commands.
package studio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/dye"
	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/metrics"
	"github.com/starford/tiedye/internal/notify"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/surface"
	"github.com/starford/tiedye/internal/unfold"
)

// Config describes the garment and simulation parameters of new sessions.
type Config struct {
	Garment     geom.Garment
	Width       int
	Height      int
	MaxLayers   int
	RedoLimit   int
	Dye         dye.Config
	UnfoldDelay time.Duration
	// Seed makes sessions reproducible. Zero seeds from the clock.
	Seed uint64
}

// DefaultConfig returns the stock 800x800 shirt setup.
func DefaultConfig() Config {
	return Config{
		Garment:     geom.DefaultGarment(),
		Width:       800,
		Height:      800,
		MaxLayers:   fold.DefaultMaxLayers,
		RedoLimit:   fold.DefaultRedoLimit,
		Dye:         dye.DefaultConfig(),
		UnfoldDelay: 300 * time.Millisecond,
	}
}

// EventSink receives every notification of every session.
type EventSink interface {
	PublishSessionEvent(sessionID, kind string, data any)
}

var (
	clothColor      = pigment.White
	backgroundColor = pigment.RGB(236, 236, 236)
	creaseColor     = pigment.RGB(90, 90, 110)
)

// Session is one simulation. Commands are serialized; an unfold runs
// outside the command lock on a snapshot of folds and dye.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	cfg      Config
	canvas   *surface.Canvas
	stack    *fold.Stack
	dye      *dye.Model
	unfolder *unfold.Unfolder
	pattern  *unfold.Pattern
	revision uint64
	logger   *slog.Logger
	metrics  *metrics.Metrics
	events   EventSink
	unsub    []func()
}

// NewSession builds a session. events and m may be nil.
func NewSession(id string, cfg Config, logger *slog.Logger, events EventSink, m *metrics.Metrics) *Session {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	// The unfolder runs concurrently with commands and gets its own source.
	cmdRand := rand.New(rand.NewPCG(seed, 1))
	unfoldRand := rand.New(rand.NewPCG(seed, 2))

	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		cfg:       cfg,
		canvas:    surface.NewCanvas(cfg.Width, cfg.Height),
		logger:    logger.With(slog.String("session", id)),
		metrics:   m,
		events:    events,
	}
	s.stack = fold.NewStack(cfg.Garment, cmdRand,
		fold.WithMaxLayers(cfg.MaxLayers),
		fold.WithRedoLimit(cfg.RedoLimit))
	s.dye = dye.NewModel(cfg.Dye, cfg.Garment, s.stack, s.canvas, cmdRand)
	s.unfolder = unfold.NewUnfolder(s.canvas, unfoldRand, unfold.WithDelay(cfg.UnfoldDelay))

	s.unsub = append(s.unsub,
		s.stack.SubscribeAll(s.onFoldEvent),
		s.stack.SubscribeAll(s.forward),
		s.dye.SubscribeAll(s.onDyeEvent),
		s.dye.SubscribeAll(s.forward),
		s.unfolder.SubscribeAll(s.forward),
	)
	return s
}

// Close detaches the session from its sinks and releases the canvas.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.unsub {
		u()
	}
	s.unsub = nil
	return s.canvas.Close()
}

// Garment returns the session's garment geometry.
func (s *Session) Garment() geom.Garment { return s.cfg.Garment }

// Dispatch runs one command under the session lock.
func (s *Session) Dispatch(cmd Command) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := cmd.run(s)
	if err != nil {
		s.logger.Debug("studio: command rejected",
			slog.String("command", cmd.Name()),
			slog.String("error", err.Error()))
		return nil, err
	}
	s.logger.Debug("studio: command", slog.String("command", cmd.Name()))
	return res, nil
}

// Unfold replays the current folds over the current dye into the final
// layer. A second call while one is running fails with
// apperr.ErrUnfoldInProgress. When a fold or dye command lands during the
// replay, the result is returned but not kept as the session's pattern.
func (s *Session) Unfold(ctx context.Context) (unfold.Pattern, error) {
	s.mu.Lock()
	folds := s.stack.Folds()
	points := s.dye.Points()
	rev := s.revision
	s.mu.Unlock()

	start := time.Now()
	pat, err := s.unfolder.Generate(ctx, folds, points)
	s.recordUnfold(err, time.Since(start))
	if err != nil {
		return unfold.Pattern{}, err
	}

	s.mu.Lock()
	current := s.revision == rev
	if current {
		s.pattern = &pat
	}
	s.mu.Unlock()
	if !current {
		s.logger.Debug("studio: unfold superseded by edits", slog.Int("marks", len(pat.Marks)))
		return pat, nil
	}
	s.logger.Info("studio: unfolded",
		slog.Int("folds", len(folds)),
		slog.Int("dye_points", len(points)),
		slog.Int("marks", len(pat.Marks)))
	return pat, nil
}

func (s *Session) recordUnfold(err error, d time.Duration) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrUnfoldInProgress):
		result = "busy"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = "canceled"
	default:
		result = "error"
	}
	s.metrics.RecordUnfold(result, d.Seconds())
}

// MixAt returns the dye color at (x, y).
func (s *Session) MixAt(x, y float64) pigment.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dye.MixAt(x, y)
}

// EncodeLayer writes one raw layer as PNG.
func (s *Session) EncodeLayer(l surface.Layer, w io.Writer) error {
	return s.canvas.EncodePNG(l, w)
}

// Composite flattens the garment with its dye and folds, or with the
// unfolded pattern once there is one.
func (s *Session) Composite() (image.Image, error) {
	s.mu.Lock()
	unfolded := s.pattern != nil
	s.mu.Unlock()

	layers := []surface.Layer{surface.Dye, surface.Folds}
	if unfolded {
		layers = []surface.Layer{surface.Final}
	}
	img, err := s.canvas.Composite(s.cfg.Garment, clothColor, backgroundColor, layers...)
	if err != nil {
		return nil, fmt.Errorf("studio: composite: %w", err)
	}
	return img, nil
}

// EncodeComposite writes the composite as PNG.
func (s *Session) EncodeComposite(w io.Writer) error {
	img, err := s.Composite()
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// forward relays core notifications to the event sink and metrics.
func (s *Session) forward(ev notify.Event) {
	if s.metrics != nil {
		switch ev.Kind {
		case notify.FoldApplied, notify.FoldUndone, notify.FoldRedone:
			if c, ok := ev.Payload.(fold.Change); ok {
				s.metrics.RecordFold(string(c.Fold.Kind), foldOps[ev.Kind])
			}
		case notify.DyeApplied:
			s.metrics.DyePointsTotal.Inc()
		}
	}
	if s.events == nil {
		return
	}
	data := ev.Payload
	if pat, ok := data.(unfold.Pattern); ok {
		data = patternSummary(pat)
	}
	s.events.PublishSessionEvent(s.ID, string(ev.Kind), data)
}

var foldOps = map[notify.Kind]string{
	notify.FoldApplied: "apply",
	notify.FoldUndone:  "undo",
	notify.FoldRedone:  "redo",
}

// PatternSummary describes an unfolded pattern without its marks.
type PatternSummary struct {
	Marks  int  `json:"marks"`
	Steps  int  `json:"steps"`
	Copied bool `json:"copied"`
}

func patternSummary(p unfold.Pattern) PatternSummary {
	return PatternSummary{Marks: len(p.Marks), Steps: p.Steps, Copied: p.Copied}
}

// onDyeEvent drops the unfolded pattern, which no longer matches the dye.
// It runs under the command lock.
func (s *Session) onDyeEvent(notify.Event) {
	s.invalidate()
}

// invalidate drops the current pattern. Unfolds started before the call
// will not publish their result as current.
func (s *Session) invalidate() {
	s.pattern = nil
	s.revision++
}

// onFoldEvent redraws the folds layer. It runs under the command lock.
func (s *Session) onFoldEvent(notify.Event) {
	s.invalidate()
	if err := s.drawFolds(); err != nil {
		s.logger.Error("studio: redraw folds", slog.String("error", err.Error()))
	}
}

func (s *Session) drawFolds() error {
	if err := s.canvas.Clear(surface.Folds); err != nil {
		return err
	}
	body := s.cfg.Garment.Body
	for _, f := range s.stack.Folds() {
		switch f.Kind {
		case fold.Accordion:
			for _, line := range f.CreaseLines {
				if err := s.canvas.StrokeLine(surface.Folds, line, creaseColor, 0.6, 2); err != nil {
					return err
				}
			}
		case fold.Spiral:
			if err := s.canvas.DrawRadial(surface.Folds, f.Center, body.W/4, surface.Footprint(creaseColor, 0.35)); err != nil {
				return err
			}
		case fold.Crumple:
			for _, a := range f.Anchors {
				if err := s.canvas.DrawRadial(surface.Folds, a, 12, surface.Footprint(creaseColor, 0.5)); err != nil {
					return err
				}
			}
		case fold.Diagonal:
			reach := body.W + body.H
			from := geom.Point{X: f.Center.X - reach, Y: f.Center.Y}.Rotate(f.Center, f.Angle())
			to := geom.Point{X: f.Center.X + reach, Y: f.Center.Y}.Rotate(f.Center, f.Angle())
			if err := s.canvas.StrokeLine(surface.Folds, geom.Segment{From: from, To: to}, creaseColor, 0.6, 2); err != nil {
				return err
			}
		}
	}
	return nil
}

// State is a JSON snapshot of a session.
type State struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Folds       []fold.Fold     `json:"folds"`
	Layers      []fold.Layer    `json:"layers"`
	LayerCount  int             `json:"layer_count"`
	MaxLayers   int             `json:"max_layers"`
	RedoDepth   int             `json:"redo_depth"`
	Brush       Brush           `json:"brush"`
	Applying    bool            `json:"applying"`
	DyePoints   int             `json:"dye_points"`
	Unfolding   bool            `json:"unfolding"`
	Pattern     *PatternSummary `json:"pattern,omitempty"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	GarmentBody geom.Rect       `json:"garment_body"`
}

// Brush is the current dye brush.
type Brush struct {
	Radius    float64 `json:"radius"`
	Intensity float64 `json:"intensity"`
	Color     string  `json:"color"`
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	radius, intensity, color := s.dye.Brush()
	st := State{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		Folds:       s.stack.Folds(),
		Layers:      s.stack.Layers(),
		LayerCount:  s.stack.EffectiveLayerCount(),
		MaxLayers:   s.stack.MaxLayers(),
		RedoDepth:   s.stack.RedoDepth(),
		Brush:       Brush{Radius: radius, Intensity: intensity, Color: color.Hex()},
		Applying:    s.dye.Applying(),
		DyePoints:   s.dye.Len(),
		Unfolding:   s.unfolder.Running(),
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
		GarmentBody: s.cfg.Garment.Body,
	}
	if s.pattern != nil {
		sum := patternSummary(*s.pattern)
		st.Pattern = &sum
	}
	return st
}

// Points returns a snapshot of the recorded dye points.
func (s *Session) Points() []dye.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dye.Points()
}
