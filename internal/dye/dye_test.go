package dye

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/notify"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/surface"
)

type fixedLayers int

func (n fixedLayers) EffectiveLayerCount() int { return int(n) }

// brokenSink fails every draw while fail is set.
type brokenSink struct {
	*surface.Recorder
	fail bool
}

var errDraw = errors.New("draw failed")

func (s *brokenSink) DrawRadial(l surface.Layer, c geom.Point, r float64, stops []surface.Stop) error {
	if s.fail {
		return errDraw
	}
	return s.Recorder.DrawRadial(l, c, r, stops)
}

func newTestModel(layers int) (*Model, *surface.Recorder) {
	rec := surface.NewRecorder()
	m := NewModel(DefaultConfig(), geom.DefaultGarment(), fixedLayers(layers), rec, rand.New(rand.NewPCG(7, 11)))
	return m, rec
}

func TestEffectiveIntensity(t *testing.T) {
	m, _ := newTestModel(4)
	m.SetIntensity(80)
	m.SetBrushSize(30)
	if ok, err := m.BeginStroke(400, 400); !ok || err != nil {
		t.Fatalf("BeginStroke = %v, %v", ok, err)
	}
	p := m.Points()[0]
	if p.LayerCount != 4 {
		t.Errorf("layer count = %d, want 4", p.LayerCount)
	}
	if got := p.EffectiveIntensity(); got != 40 {
		t.Errorf("effective intensity = %v, want 40", got)
	}
	if p.Radius != 30 || p.Intensity != 80 {
		t.Errorf("point = %+v", p)
	}
}

func TestBeginStrokeOffGarmentIgnored(t *testing.T) {
	m, rec := newTestModel(1)
	ok, err := m.BeginStroke(5, 5)
	if ok || err != nil {
		t.Fatalf("BeginStroke off garment = %v, %v", ok, err)
	}
	if m.Applying() {
		t.Error("model applying after off-garment begin")
	}
	if m.Len() != 0 || len(rec.Calls(surface.Dye)) != 0 {
		t.Error("off-garment begin recorded something")
	}
}

func TestStrokeSkipsOffGarmentAndReenters(t *testing.T) {
	m, _ := newTestModel(1)
	_, _ = m.BeginStroke(400, 400)
	if ok, _ := m.ContinueStroke(5, 5); ok {
		t.Error("off-garment continue recorded")
	}
	if !m.Applying() {
		t.Fatal("off-garment continue ended the stroke")
	}
	if ok, _ := m.ContinueStroke(410, 410); !ok {
		t.Error("re-entry not recorded")
	}
	m.EndStroke()
	m.EndStroke()
	if ok, _ := m.ContinueStroke(420, 420); ok {
		t.Error("continue after end recorded")
	}
	if m.Len() != 2 {
		t.Errorf("points = %d, want 2", m.Len())
	}
	pts := m.Points()
	if pts[0].Seq >= pts[1].Seq {
		t.Errorf("sequence not increasing: %d, %d", pts[0].Seq, pts[1].Seq)
	}
}

func TestContinueWithoutBegin(t *testing.T) {
	m, _ := newTestModel(1)
	if ok, _ := m.ContinueStroke(400, 400); ok {
		t.Error("continue without begin recorded")
	}
}

func TestClampBrushAndIntensity(t *testing.T) {
	m, _ := newTestModel(1)
	if got := m.SetBrushSize(1000); got != 100 {
		t.Errorf("brush = %v, want 100", got)
	}
	if got := m.SetBrushSize(-2); got != 5 {
		t.Errorf("brush = %v, want 5", got)
	}
	if got := m.SetIntensity(140); got != 100 {
		t.Errorf("intensity = %v, want 100", got)
	}
	if got := m.SetIntensity(-1); got != 0 {
		t.Errorf("intensity = %v, want 0", got)
	}
	if got := m.SetIntensity(math.NaN()); got != 0 {
		t.Errorf("intensity NaN = %v, want 0", got)
	}
}

func TestBleedSatellites(t *testing.T) {
	m, rec := newTestModel(1)
	m.SetIntensity(60)
	m.SetBrushSize(20)

	var applied Applied
	m.Subscribe(notify.DyeApplied, func(ev notify.Event) { applied = ev.Payload.(Applied) })
	_, _ = m.BeginStroke(400, 400)

	if len(applied.Bleed) != BleedPoints {
		t.Fatalf("bleed = %d, want %d", len(applied.Bleed), BleedPoints)
	}
	reach := 20 * DefaultConfig().BleedRate
	for i, b := range applied.Bleed {
		d := b.Position.Dist(geom.Point{X: 400, Y: 400})
		if d < 0.5*reach-1e-9 || d > reach+1e-9 {
			t.Errorf("bleed %d distance %v outside [%v,%v]", i, d, 0.5*reach, reach)
		}
		wantAngle := 2 * math.Pi * float64(i) / BleedPoints
		gotAngle := math.Atan2(b.Position.Y-400, b.Position.X-400)
		if gotAngle < 0 {
			gotAngle += 2 * math.Pi
		}
		if math.Abs(gotAngle-wantAngle) > 1e-6 {
			t.Errorf("bleed %d angle = %v, want %v", i, gotAngle, wantAngle)
		}
		if b.Radius != 10 {
			t.Errorf("bleed radius = %v, want 10", b.Radius)
		}
		wantAlpha := 60 * DefaultConfig().AbsorptionRate / 100 * 0.3
		if math.Abs(b.Alpha-wantAlpha) > 1e-9 {
			t.Errorf("bleed alpha = %v, want %v", b.Alpha, wantAlpha)
		}
	}
	if got := len(rec.Calls(surface.Dye)); got != 1+BleedPoints {
		t.Errorf("dye draw calls = %d, want %d", got, 1+BleedPoints)
	}
}

func TestBleedSkippedForWeakDye(t *testing.T) {
	m, rec := newTestModel(1)
	// 7 x 0.7 = 4.9, below the spread threshold.
	m.SetIntensity(7)
	_, _ = m.BeginStroke(400, 400)
	if got := len(rec.Calls(surface.Dye)); got != 1 {
		t.Errorf("draw calls = %d, want 1 (no bleed)", got)
	}

	// 8 x 0.7 = 5.6 spreads.
	m.SetIntensity(8)
	_, _ = m.ContinueStroke(410, 400)
	if got := len(rec.Calls(surface.Dye)); got != 2+BleedPoints {
		t.Errorf("draw calls = %d, want %d", got, 2+BleedPoints)
	}
}

func TestBleedDeterministicWithSeed(t *testing.T) {
	run := func() []Bleed {
		m, _ := newTestModel(1)
		var out []Bleed
		m.Subscribe(notify.DyeApplied, func(ev notify.Event) { out = ev.Payload.(Applied).Bleed })
		_, _ = m.BeginStroke(400, 400)
		return out
	}
	if !reflect.DeepEqual(run(), run()) {
		t.Error("same seed produced different bleed")
	}
}

func TestFootprintAlphaUsesEffectiveIntensity(t *testing.T) {
	m, rec := newTestModel(4)
	m.SetIntensity(80)
	_, _ = m.BeginStroke(400, 400)
	call := rec.Calls(surface.Dye)[0]
	if call.Stops[0].Alpha != 0.4 {
		t.Errorf("center alpha = %v, want 0.4", call.Stops[0].Alpha)
	}
}

func TestMixAtUncoveredIsWhite(t *testing.T) {
	m, _ := newTestModel(1)
	if got := m.MixAt(400, 400); got != pigment.White {
		t.Errorf("empty model mix = %v", got)
	}
	m.SetBrushSize(10)
	_, _ = m.BeginStroke(300, 300)
	if got := m.MixAt(500, 500); got != pigment.White {
		t.Errorf("uncovered mix = %v, want white", got)
	}
	if got := m.MixAt(310, 300); got != pigment.White {
		t.Errorf("rim mix = %v, want white", got)
	}
}

func TestMixAtZeroIntensityCovers(t *testing.T) {
	m, _ := newTestModel(1)
	red := pigment.RGB(255, 0, 0)
	blue := pigment.RGB(0, 0, 255)
	m.SetBrushSize(40)
	m.SetColor(red)
	m.SetIntensity(0)
	_, _ = m.BeginStroke(400, 400)
	m.EndStroke()

	if got := m.MixAt(405, 400); got != red {
		t.Errorf("zero-intensity cover mix = %v, want red", got)
	}
	if got := m.MixAt(440, 400); got != pigment.White {
		t.Errorf("rim mix = %v, want white", got)
	}

	m.SetColor(blue)
	m.SetIntensity(100)
	_, _ = m.BeginStroke(400, 400)
	if got := m.MixAt(400, 400); got != blue {
		t.Errorf("weighted over zero-weight mix = %v, want blue", got)
	}
}

func TestMixAtSingleAndOverlap(t *testing.T) {
	m, _ := newTestModel(1)
	red := pigment.RGB(255, 0, 0)
	blue := pigment.RGB(0, 0, 255)
	m.SetBrushSize(50)
	m.SetIntensity(100)

	m.SetColor(red)
	_, _ = m.BeginStroke(400, 400)
	if got := m.MixAt(400, 400); got != red {
		t.Errorf("single mix = %v, want red", got)
	}

	m.SetColor(blue)
	_, _ = m.ContinueStroke(410, 400)
	m.EndStroke()

	// Equidistant from both centers: equal weights, 50/50 subtractive mix.
	got := m.MixAt(405, 400)
	want := pigment.Mix(red, blue, 0.5)
	if got != want {
		t.Errorf("overlap mix = %v, want %v", got, want)
	}
}

func TestClear(t *testing.T) {
	m, rec := newTestModel(1)
	_, _ = m.BeginStroke(400, 400)

	cleared := false
	m.Subscribe(notify.DyeCleared, func(notify.Event) { cleared = true })
	if err := m.Clear(); err != nil {
		t.Fatal(err)
	}
	if !cleared {
		t.Error("dye.cleared not published")
	}
	if len(m.Points()) != 0 || len(rec.Calls(surface.Dye)) != 0 {
		t.Error("clear left state behind")
	}
}

func TestFailedDrawRecordsNothing(t *testing.T) {
	sink := &brokenSink{Recorder: surface.NewRecorder(), fail: true}
	m := NewModel(DefaultConfig(), geom.DefaultGarment(), fixedLayers(1), sink, rand.New(rand.NewPCG(7, 11)))
	applied := 0
	m.Subscribe(notify.DyeApplied, func(notify.Event) { applied++ })

	ok, err := m.BeginStroke(400, 400)
	if !errors.Is(err, errDraw) || ok {
		t.Fatalf("BeginStroke = %v, %v, want false, draw error", ok, err)
	}
	if m.Len() != 0 || applied != 0 || m.Applying() {
		t.Fatalf("len = %d, applied = %d, applying = %v after failed draw", m.Len(), applied, m.Applying())
	}

	sink.fail = false
	if _, err := m.BeginStroke(400, 400); err != nil {
		t.Fatal(err)
	}
	pts := m.Points()
	if len(pts) != 1 || pts[0].Seq != 1 || applied != 1 {
		t.Errorf("points = %+v, applied = %d, want one point with seq 1", pts, applied)
	}
}

func TestPointsSnapshot(t *testing.T) {
	m, _ := newTestModel(1)
	_, _ = m.BeginStroke(400, 400)
	pts := m.Points()
	pts[0].Intensity = -1
	if m.Points()[0].Intensity == -1 {
		t.Error("snapshot aliases internal state")
	}
}
