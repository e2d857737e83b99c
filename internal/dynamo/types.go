package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// State is a flat ODE state vector. Ensemble states pack one component per
// block: [x_0..x_n-1, y_0..y_n-1, z_0..z_n-1].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	return floats.Norm(s, 2)
}

// AddScaledTo stores s + alpha·k in dst and returns it. dst must have the
// length of s.
func (s State) AddScaledTo(dst State, alpha float64, k State) State {
	floats.AddScaledTo(dst, s, alpha, k)
	return dst
}

// Split3 returns the three equal component blocks of s as views.
func (s State) Split3() (x, y, z []float64) {
	n := len(s) / 3
	return s[:n:n], s[n : 2*n : 2*n], s[2*n:]
}

// Join3 packs three equal-length component slices into a new State.
func Join3(x, y, z []float64) State {
	n := len(x)
	s := make(State, 3*n)
	copy(s, x)
	copy(s[n:], y)
	copy(s[2*n:], z)
	return s
}

// System is a first-order ODE dX/dt = Derive(X, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(sys System, x State, t, h float64) State
}

// AdaptiveIntegrator takes a trial step and reports the scaled error
// estimate (<= 1 means acceptable) together with a proposed next step.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, h, rtol, atol float64) (State, float64, float64)
}
