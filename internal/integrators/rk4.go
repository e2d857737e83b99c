package integrators

import "github.com/san-kum/fidsim/internal/dynamo"

// rk4Nodes are the classical Runge-Kutta stage offsets after the first.
var rk4Nodes = [3]float64{0.5, 0.5, 1}

// RK4 is the classical fixed-step fourth-order method. Stage buffers are
// reused between calls, so an RK4 must not be shared across goroutines.
type RK4 struct {
	k   [4]dynamo.State
	tmp dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) grow(n int) {
	if len(r.tmp) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.tmp = make(dynamo.State, n)
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, h float64) dynamo.State {
	r.grow(len(x))

	copy(r.k[0], sys.Derive(x, t))
	for s, c := range rk4Nodes {
		x.AddScaledTo(r.tmp, c*h, r.k[s])
		copy(r.k[s+1], sys.Derive(r.tmp, t+c*h))
	}

	out := x.Clone()
	h6 := h / 6
	for i := range out {
		out[i] += h6 * (r.k[0][i] + 2*r.k[1][i] + 2*r.k[2][i] + r.k[3][i])
	}
	return out
}
