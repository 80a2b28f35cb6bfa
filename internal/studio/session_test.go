package studio

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/metrics"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/preset"
	"github.com/starford/tiedye/internal/surface"
)

type recordedEvent struct {
	session string
	kind    string
	data    any
}

type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *eventLog) PublishSessionEvent(sessionID, kind string, data any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{session: sessionID, kind: kind, data: data})
}

func (l *eventLog) kinds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.kind
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.UnfoldDelay = 0
	return cfg
}

func newTestSession(t *testing.T) (*Session, *eventLog) {
	t.Helper()
	events := &eventLog{}
	s := NewSession("s1", testConfig(), testLogger(), events, metrics.New())
	t.Cleanup(func() { s.Close() })
	return s, events
}

func mustDispatch(t *testing.T, s *Session, cmd Command) any {
	t.Helper()
	res, err := s.Dispatch(cmd)
	if err != nil {
		t.Fatalf("%s: %v", cmd.Name(), err)
	}
	return res
}

func TestApplyFoldUpdatesStateAndFoldsLayer(t *testing.T) {
	s, events := newTestSession(t)
	res := mustDispatch(t, s, ApplyFold{Kind: fold.Accordion, Params: fold.Params{FoldCount: 3}})
	f, ok := res.(fold.Fold)
	if !ok || len(f.CreaseLines) != 3 {
		t.Fatalf("result = %#v", res)
	}

	st := s.State()
	if st.LayerCount != 3 || len(st.Layers) != 3 || len(st.Folds) != 1 {
		t.Errorf("state = %+v", st)
	}

	var buf bytes.Buffer
	if err := s.EncodeLayer(surface.Folds, &buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	// First crease of the 400px body sits at y = 200 + 100.
	if _, _, _, a := img.At(400, 300).RGBA(); a == 0 {
		t.Error("crease line not drawn on folds layer")
	}

	if got := events.kinds(); len(got) != 1 || got[0] != "fold.applied" {
		t.Errorf("events = %v", got)
	}
}

func TestApplyFoldRejectedAtCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLayers = 4
	s := NewSession("cap", cfg, testLogger(), nil, metrics.New())
	defer s.Close()

	mustDispatch(t, s, ApplyFold{Kind: fold.Accordion, Params: fold.Params{FoldCount: 4}})
	_, err := s.Dispatch(ApplyFold{Kind: fold.Diagonal})
	if !errors.Is(err, apperr.ErrMaxLayersReached) {
		t.Fatalf("err = %v, want ErrMaxLayersReached", err)
	}
	if st := s.State(); len(st.Folds) != 1 {
		t.Errorf("folds = %d, want 1", len(st.Folds))
	}
}

func TestUndoRedoCommands(t *testing.T) {
	s, _ := newTestSession(t)
	if mustDispatch(t, s, UndoFold{}).(bool) {
		t.Error("undo on empty stack reported a change")
	}
	mustDispatch(t, s, ApplyFold{Kind: fold.Diagonal, Params: fold.Params{AngleDegrees: 30}})
	if !mustDispatch(t, s, UndoFold{}).(bool) {
		t.Fatal("undo failed")
	}
	if st := s.State(); st.RedoDepth != 1 || st.LayerCount != 1 {
		t.Errorf("after undo: %+v", st)
	}
	if !mustDispatch(t, s, RedoFold{}).(bool) {
		t.Fatal("redo failed")
	}
	if st := s.State(); len(st.Folds) != 1 || st.Folds[0].AngleDegrees != 30 {
		t.Errorf("after redo: %+v", st.Folds)
	}
	mustDispatch(t, s, ClearFolds{})
	if st := s.State(); len(st.Folds) != 0 || st.RedoDepth != 0 || len(st.Layers) != 0 {
		t.Errorf("after clear: %+v", st)
	}
}

func TestStrokeSkipsOffGarmentPoints(t *testing.T) {
	s, _ := newTestSession(t)
	blue := pigment.RGB(0, 0, 255)
	radius := 20.0
	n := mustDispatch(t, s, Stroke{
		Points: []geom.Point{{X: 10, Y: 10}, {X: 300, Y: 300}, {X: 5, Y: 700}, {X: 320, Y: 300}},
		Color:  &blue,
		Radius: &radius,
	}).(int)
	if n != 2 {
		t.Fatalf("recorded = %d, want 2", n)
	}
	st := s.State()
	if st.Applying {
		t.Error("stroke left the brush applying")
	}
	if st.Brush.Color != "#0000ff" || st.Brush.Radius != 20 {
		t.Errorf("brush = %+v", st.Brush)
	}
	if got := s.MixAt(300, 300); got == pigment.White {
		t.Error("dyed point mixes to white")
	}
}

func TestBrushCommandsClamp(t *testing.T) {
	s, _ := newTestSession(t)
	if got := mustDispatch(t, s, SetBrush{Radius: 500}).(float64); got != 100 {
		t.Errorf("brush = %v, want 100", got)
	}
	if got := mustDispatch(t, s, SetIntensity{Value: -3}).(float64); got != 0 {
		t.Errorf("intensity = %v, want 0", got)
	}
	mustDispatch(t, s, SetColor{Color: pigment.RGB(1, 2, 3)})
	if got := s.State().Brush.Color; got != "#010203" {
		t.Errorf("color = %q", got)
	}
}

func TestManualStrokeCommands(t *testing.T) {
	s, _ := newTestSession(t)
	if ok := mustDispatch(t, s, BeginStroke{X: 400, Y: 400}).(bool); !ok {
		t.Fatal("begin not recorded")
	}
	mustDispatch(t, s, ContinueStroke{X: 410, Y: 400})
	mustDispatch(t, s, EndStroke{})
	if ok := mustDispatch(t, s, ContinueStroke{X: 420, Y: 400}).(bool); ok {
		t.Error("continue after end recorded")
	}
	if got := s.State().DyePoints; got != 2 {
		t.Errorf("dye points = %d, want 2", got)
	}
	mustDispatch(t, s, ClearDye{})
	if got := len(s.Points()); got != 0 {
		t.Errorf("points after clear = %d", got)
	}
}

func TestUnfoldProducesPattern(t *testing.T) {
	s, events := newTestSession(t)
	mustDispatch(t, s, ApplyFold{Kind: fold.Spiral, Params: fold.Params{Rotations: 2}})
	mustDispatch(t, s, Stroke{Points: []geom.Point{{X: 450, Y: 400}}})

	pat, err := s.Unfold(context.Background())
	if err != nil {
		t.Fatalf("Unfold: %v", err)
	}
	if len(pat.Marks) != 8 || pat.Steps != 1 {
		t.Errorf("pattern = %d marks, %d steps", len(pat.Marks), pat.Steps)
	}
	st := s.State()
	if st.Pattern == nil || st.Pattern.Marks != 8 {
		t.Fatalf("state pattern = %+v", st.Pattern)
	}

	var buf bytes.Buffer
	if err := s.EncodeComposite(&buf); err != nil {
		t.Fatalf("EncodeComposite: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("composite is not a PNG: %v", err)
	}

	kinds := events.kinds()
	if kinds[len(kinds)-1] != "unfold.complete" {
		t.Errorf("last event = %q, want unfold.complete", kinds[len(kinds)-1])
	}
	events.mu.Lock()
	last := events.events[len(events.events)-1]
	events.mu.Unlock()
	if sum, ok := last.data.(PatternSummary); !ok || sum.Marks != 8 {
		t.Errorf("complete payload = %#v", last.data)
	}

	// New dye invalidates the pattern.
	mustDispatch(t, s, Stroke{Points: []geom.Point{{X: 300, Y: 500}}})
	if s.State().Pattern != nil {
		t.Error("pattern survived a new stroke")
	}
}

func TestEditDuringUnfoldDropsPattern(t *testing.T) {
	cfg := testConfig()
	cfg.UnfoldDelay = 200 * time.Millisecond
	s := NewSession("s1", cfg, testLogger(), nil, nil)
	t.Cleanup(func() { s.Close() })

	mustDispatch(t, s, ApplyFold{Kind: fold.Diagonal, Params: fold.Params{AngleDegrees: 45}})
	mustDispatch(t, s, ApplyFold{Kind: fold.Diagonal, Params: fold.Params{AngleDegrees: 0}})
	mustDispatch(t, s, Stroke{Points: []geom.Point{{X: 400, Y: 400}}})

	type result struct {
		marks int
		err   error
	}
	done := make(chan result, 1)
	go func() {
		pat, err := s.Unfold(context.Background())
		done <- result{len(pat.Marks), err}
	}()

	deadline := time.Now().Add(time.Second)
	for !s.unfolder.Running() {
		if time.Now().After(deadline) {
			t.Fatal("unfold never started")
		}
		time.Sleep(time.Millisecond)
	}
	mustDispatch(t, s, Stroke{Points: []geom.Point{{X: 350, Y: 450}}})

	res := <-done
	if res.err != nil {
		t.Fatalf("Unfold: %v", res.err)
	}
	if res.marks != 4 {
		t.Errorf("marks = %d, want 4", res.marks)
	}
	st := s.State()
	if st.DyePoints != 2 {
		t.Errorf("dye points = %d, want 2", st.DyePoints)
	}
	if st.Pattern != nil {
		t.Errorf("pattern = %+v, want none after a stroke during the unfold", st.Pattern)
	}

	if _, err := s.Unfold(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st := s.State(); st.Pattern == nil || st.Pattern.Marks != 8 {
		t.Errorf("pattern after fresh unfold = %+v, want 8 marks", st.Pattern)
	}
}

func TestUnfoldEmptyStackCopiesDye(t *testing.T) {
	s, _ := newTestSession(t)
	mustDispatch(t, s, Stroke{Points: []geom.Point{{X: 400, Y: 400}}})
	pat, err := s.Unfold(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !pat.Copied || len(pat.Marks) != 1 {
		t.Errorf("pattern = %+v", pat)
	}
}

func TestApplyRecipe(t *testing.T) {
	s, _ := newTestSession(t)
	mustDispatch(t, s, ApplyFold{Kind: fold.Diagonal})

	r := preset.Recipe{
		Name: "rings",
		Folds: []preset.FoldStep{
			{Kind: fold.Accordion, Params: fold.Params{Direction: fold.Vertical, FoldCount: 2}},
		},
		Dyes: []preset.DyeStroke{
			{Color: "#00ff00", Intensity: 90, Radius: 15, Points: []geom.Point{{X: 300, Y: 300}, {X: 310, Y: 300}}},
		},
		Unfold: true,
	}
	n, pat, err := s.ApplyRecipe(context.Background(), r)
	if err != nil {
		t.Fatalf("ApplyRecipe: %v", err)
	}
	if n != 2 {
		t.Errorf("recorded = %d, want 2", n)
	}
	if pat == nil || len(pat.Marks) != 6 {
		t.Fatalf("pattern = %+v", pat)
	}
	st := s.State()
	if len(st.Folds) != 1 || st.Folds[0].Kind != fold.Accordion {
		t.Errorf("folds = %+v, want the recipe's only", st.Folds)
	}
	if st.Brush.Color != "#00ff00" || st.Brush.Intensity != 90 {
		t.Errorf("brush = %+v", st.Brush)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	s, _ := newTestSession(t)
	mustDispatch(t, s, ApplyFold{Kind: fold.Crumple})
	mustDispatch(t, s, SetBrush{Radius: 80})
	mustDispatch(t, s, Stroke{Points: []geom.Point{{X: 400, Y: 400}}})
	mustDispatch(t, s, Reset{})

	st := s.State()
	def := testConfig().Dye
	if len(st.Folds) != 0 || st.DyePoints != 0 || st.Pattern != nil {
		t.Errorf("state after reset = %+v", st)
	}
	if st.Brush.Radius != def.Brush || st.Brush.Intensity != def.Intensity || st.Brush.Color != def.Color.Hex() {
		t.Errorf("brush = %+v", st.Brush)
	}
}

func TestDispatchConcurrent(t *testing.T) {
	s, _ := newTestSession(t)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			x := 300 + float64(i)*10
			_, _ = s.Dispatch(Stroke{Points: []geom.Point{{X: x, Y: 400}}})
			_ = s.State()
			_ = s.MixAt(x, 400)
		}()
	}
	wg.Wait()
	if got := s.State().DyePoints; got != 8 {
		t.Errorf("dye points = %d, want 8", got)
	}
}
