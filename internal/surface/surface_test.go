package surface

import (
	"bytes"
	"errors"
	"image/png"
	"reflect"
	"testing"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/pigment"
)

func TestFootprint(t *testing.T) {
	red := pigment.RGB(255, 0, 0)
	stops := Footprint(red, 0.8)
	if len(stops) != 3 {
		t.Fatalf("stops = %d, want 3", len(stops))
	}
	if stops[0].Offset != 0 || stops[0].Alpha != 0.8 {
		t.Errorf("center stop = %+v", stops[0])
	}
	if stops[1].Offset != 0.7 || stops[1].Alpha != 0.4 {
		t.Errorf("mid stop = %+v", stops[1])
	}
	if stops[2].Offset != 1 || stops[2].Alpha != 0 {
		t.Errorf("rim stop = %+v", stops[2])
	}
	if got := Footprint(red, 3)[0].Alpha; got != 1 {
		t.Errorf("alpha not clamped: %v", got)
	}
}

func TestParseLayer(t *testing.T) {
	if l, err := ParseLayer("final"); err != nil || l != Final {
		t.Errorf("ParseLayer(final) = %q, %v", l, err)
	}
	if _, err := ParseLayer("overlay"); !errors.Is(err, apperr.ErrUnknownLayer) {
		t.Errorf("err = %v, want ErrUnknownLayer", err)
	}
}

func TestRecorderCopyAndClear(t *testing.T) {
	r := NewRecorder()
	blue := pigment.RGB(0, 0, 255)
	_ = r.DrawRadial(Dye, geom.Point{X: 10, Y: 10}, 5, Footprint(blue, 1))
	_ = r.StrokeLine(Dye, geom.Segment{To: geom.Point{X: 3, Y: 4}}, blue, 1, 2)

	if err := r.Copy(Final, Dye); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if !reflect.DeepEqual(r.Calls(Final), r.Calls(Dye)) {
		t.Error("final differs from dye after copy")
	}

	if err := r.Clear(Dye); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(r.Calls(Dye)) != 0 {
		t.Error("dye not cleared")
	}
	if len(r.Calls(Final)) != 2 {
		t.Error("clearing dye touched final")
	}
}

func TestRecorderUnknownLayer(t *testing.T) {
	r := NewRecorder()
	if err := r.Clear("nope"); !errors.Is(err, apperr.ErrUnknownLayer) {
		t.Errorf("Clear err = %v", err)
	}
	if err := r.DrawRadial("nope", geom.Point{}, 1, nil); !errors.Is(err, apperr.ErrUnknownLayer) {
		t.Errorf("DrawRadial err = %v", err)
	}
	if err := r.Copy(Final, "nope"); !errors.Is(err, apperr.ErrUnknownLayer) {
		t.Errorf("Copy err = %v", err)
	}
}

func TestCanvasDrawAndCopy(t *testing.T) {
	c := NewCanvas(100, 100)
	defer c.Close()

	red := pigment.RGB(255, 0, 0)
	if err := c.DrawRadial(Dye, geom.Point{X: 50, Y: 50}, 20, Footprint(red, 1)); err != nil {
		t.Fatalf("DrawRadial: %v", err)
	}

	img, err := c.Image(Dye)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := img.At(50, 50).RGBA(); a == 0 {
		t.Error("center pixel is transparent")
	}
	if _, _, _, a := img.At(5, 5).RGBA(); a != 0 {
		t.Error("pixel outside disc is painted")
	}

	if err := c.Copy(Final, Dye); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	final, _ := c.Image(Final)
	if _, _, _, a := final.At(50, 50).RGBA(); a == 0 {
		t.Error("copy did not carry the disc")
	}

	if err := c.Clear(Dye); err != nil {
		t.Fatal(err)
	}
	img, _ = c.Image(Dye)
	if _, _, _, a := img.At(50, 50).RGBA(); a != 0 {
		t.Error("clear left pixels behind")
	}
}

func TestCanvasEncodeAndComposite(t *testing.T) {
	c := NewCanvas(80, 60)
	defer c.Close()

	var buf bytes.Buffer
	if err := c.EncodePNG(Final, &buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("bounds = %v", b)
	}

	g := geom.Garment{Body: geom.Rect{X: 10, Y: 10, W: 20, H: 20}}
	black := pigment.RGB(0, 0, 0)
	out, err := c.Composite(g, pigment.White, black, Dye, Final)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if r, _, _, _ := out.At(20, 20).RGBA(); r>>8 < 250 {
		t.Errorf("garment pixel red = %d, want white", r>>8)
	}
	if r, _, _, _ := out.At(70, 50).RGBA(); r>>8 > 5 {
		t.Errorf("background pixel red = %d, want black", r>>8)
	}

	if _, err := c.Composite(g, pigment.White, black, "nope"); !errors.Is(err, apperr.ErrUnknownLayer) {
		t.Errorf("err = %v", err)
	}
}
