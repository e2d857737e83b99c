package render

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decay(n int) (times, flux []float64) {
	times = make([]float64, n)
	flux = make([]float64, n)
	for i := range n {
		times[i] = float64(i) * 1e-6
		flux[i] = math.Exp(-times[i]/40e-3) * math.Sin(2*math.Pi*50e3*times[i])
	}
	return times, flux
}

func TestFluxPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figs", "flux.png")
	times, flux := decay(500)

	if err := FluxPNG(path, times, flux); err != nil {
		t.Fatalf("FluxPNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("not a png: %v", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		t.Errorf("empty image %v", b)
	}
}

func TestSpectrumPNG_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.png")
	if err := SpectrumPNG(path, []float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if err := SpectrumPNG(path, nil, nil); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestWritePNG(t *testing.T) {
	times, flux := decay(10)
	p, err := linePlot("t", "x", "y", times, flux, 1)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, p); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("missing png signature")
	}
}

func TestASCII(t *testing.T) {
	_, flux := decay(200)
	out := ASCII(flux, "flux", 8, 60)
	if !strings.Contains(out, "flux") {
		t.Error("caption missing")
	}
	if lines := strings.Count(out, "\n"); lines < 8 {
		t.Errorf("expected at least 8 lines, got %d", lines)
	}
	if ASCII(nil, "x", 8, 60) != "" {
		t.Error("empty series should render nothing")
	}
}

func TestASCIIMulti(t *testing.T) {
	a := []float64{0, 1, 0, -1}
	b := []float64{1, 0, -1, 0}
	if out := ASCIIMulti([][]float64{a, b}, "m", 5, 20); out == "" {
		t.Error("expected chart")
	}
}
