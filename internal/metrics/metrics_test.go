package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/fidsim/internal/probe"
)

func TestCenterNormDrift(t *testing.T) {
	m := NewCenterNormDrift()
	m.Observe(probe.Snapshot{CenterMy: 1})
	if m.Value() != 0 {
		t.Errorf("expected zero drift, got %g", m.Value())
	}

	m.Observe(probe.Snapshot{CenterMx: 0.6, CenterMz: 0.8 * 1.01})
	m.Observe(probe.Snapshot{CenterMx: 1})
	want := math.Hypot(0.6, 0.808) - 1
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("expected drift %g, got %g", want, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected reset to clear drift")
	}
}

func TestMeanTransverse(t *testing.T) {
	m := NewMeanTransverse()
	m.Observe(probe.Snapshot{MeanMx: 0.1})
	m.Observe(probe.Snapshot{MeanMx: 0.3, MeanMz: 0.4, MeanMy: 0.9})

	if math.Abs(m.Value()-0.5) > 1e-12 {
		t.Errorf("expected 0.5, got %g", m.Value())
	}
}

func TestBounded(t *testing.T) {
	tests := []struct {
		name  string
		snaps []probe.Snapshot
		want  float64
	}{
		{"empty", nil, 1},
		{"inside", []probe.Snapshot{{MeanMy: 1}, {CenterMx: -1}}, 1},
		{"one outside", []probe.Snapshot{{MeanMy: 1}, {CenterMz: 1.1}}, 0.5},
		{"nan", []probe.Snapshot{{MeanMx: math.NaN()}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBounded(1e-6)
			for _, s := range tt.snaps {
				b.Observe(s)
			}
			if b.Value() != tt.want {
				t.Errorf("Value() = %g, want %g", b.Value(), tt.want)
			}
		})
	}
}

func TestObserveAll(t *testing.T) {
	history := []probe.Snapshot{{CenterMy: 1, MeanMy: 1}, {CenterMx: 1, MeanMx: 1}}
	values := ObserveAll(history, Defaults())

	if len(values) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(values))
	}
	if values["mean_transverse"] != 1 {
		t.Errorf("mean_transverse = %g", values["mean_transverse"])
	}
	if values["bounded"] != 1 {
		t.Errorf("bounded = %g", values["bounded"])
	}
}
