package metrics

import (
	"math"

	"github.com/san-kum/fidsim/internal/probe"
)

// Bounded is the fraction of snapshots whose components all stay within
// [-1-tol, 1+tol]. Relative magnetization is bounded by the physics, so
// anything less than 1 flags a diverging integration.
type Bounded struct {
	name       string
	tolerance  float64
	violations int
	samples    int
}

func NewBounded(tolerance float64) *Bounded {
	return &Bounded{
		name:      "bounded",
		tolerance: tolerance,
	}
}

func (b *Bounded) Name() string {
	return b.name
}

func (b *Bounded) Observe(s probe.Snapshot) {
	b.samples++
	for _, v := range []float64{s.MeanMx, s.MeanMy, s.MeanMz, s.CenterMx, s.CenterMy, s.CenterMz} {
		if math.Abs(v) > 1+b.tolerance || math.IsNaN(v) {
			b.violations++
			break
		}
	}
}

func (b *Bounded) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounded) Reset() {
	b.violations = 0
	b.samples = 0
}
