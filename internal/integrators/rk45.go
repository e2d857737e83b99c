package integrators

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fidsim/internal/dynamo"
)

// Dormand-Prince 5(4) tableau. The last row of dpA is the fifth-order
// solution, so its stage is evaluated at the new point and reused for the
// error estimate.
var (
	dpA = [6][]float64{
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpC = [6]float64{1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	// fifth- minus fourth-order weights
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(sys dynamo.System, x dynamo.State, t, h float64) dynamo.State {
	next, _, _ := r.StepAdaptive(sys, x, t, h, 1e-6, 1e-9)
	return next
}

// StepAdaptive takes one Dormand-Prince step of size h. The returned error
// is the RMS of the embedded error estimate scaled by atol + rtol*|x|; the
// step should be rejected when it exceeds 1.
func (r *RK45) StepAdaptive(sys dynamo.System, x dynamo.State, t, h, rtol, atol float64) (dynamo.State, float64, float64) {
	n := len(x)

	var k [7]dynamo.State
	k[0] = sys.Derive(x, t)

	stage := make(dynamo.State, n)
	for s, row := range dpA {
		copy(stage, x)
		for j, a := range row {
			if a != 0 {
				floats.AddScaled(stage, h*a, k[j])
			}
		}
		k[s+1] = sys.Derive(stage, t+dpC[s]*h)
	}
	next := stage

	sumSq := 0.0
	for i := range n {
		est := 0.0
		for j, e := range dpE {
			est += e * k[j][i]
		}
		scale := atol + rtol*math.Max(math.Abs(x[i]), math.Abs(next[i]))
		q := h * est / scale
		sumSq += q * q
	}
	errNorm := 0.0
	if n > 0 {
		errNorm = math.Sqrt(sumSq / float64(n))
	}

	var hNew float64
	switch {
	case math.IsNaN(errNorm):
		hNew = h * r.minScale
	case errNorm > 1:
		hNew = h * math.Max(r.minScale, r.safety*math.Pow(errNorm, -0.25))
	case errNorm > 0:
		hNew = h * math.Min(r.maxScale, r.safety*math.Pow(errNorm, -0.2))
	default:
		hNew = h * r.maxScale
	}

	return next, errNorm, hNew
}
