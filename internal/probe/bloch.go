package probe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/integrators"
	"github.com/san-kum/fidsim/internal/units"
)

// Snapshot records the ensemble during a numerical excitation. Mean values
// are over all cells, Center values belong to the cell nearest the origin.
type Snapshot struct {
	T                            float64
	MeanMx, MeanMy, MeanMz       float64
	CenterMx, CenterMy, CenterMz float64
}

// blochSystem is dM/dt = γ·M×B − R(M) for every cell, with relative
// magnetization stored as [Mx..., My..., Mz...].
type blochSystem struct {
	n     int
	gamma float64
	s     pulse

	b0x, b0y, b0z []float64
	b1x, b1y, b1z []float64
	selfScale     []float64 // µ0·M_i
	invT1, invT2  float64
}

func (b *blochSystem) StateDim() int { return 3 * b.n }

func (b *blochSystem) Derive(m dynamo.State, t float64) dynamo.State {
	mx, my, mz := m.Split3()
	dm := make(dynamo.State, 3*b.n)
	dmx, dmy, dmz := dm.Split3()

	rf := 0.0
	if b.s.rf {
		rf = math.Sin(b.s.omegaRF * t)
	}

	for i := range b.n {
		bx, by, bz := b.b0x[i], b.b0y[i], b.b0z[i]
		if b.s.selfField {
			bx += b.selfScale[i] * mx[i]
			by += b.selfScale[i] * my[i]
			bz += b.selfScale[i] * mz[i]
		}
		if rf != 0 {
			bx += rf * b.b1x[i]
			by += rf * b.b1y[i]
			bz += rf * b.b1z[i]
		}

		dmx[i] = b.gamma * (my[i]*bz - mz[i]*by)
		dmy[i] = b.gamma * (mz[i]*bx - mx[i]*bz)
		dmz[i] = b.gamma * (mx[i]*by - my[i]*bx)

		if b.s.relaxation {
			dmx[i] -= mx[i] * b.invT2
			dmy[i] -= (my[i] - 1) * b.invT1
			dmz[i] -= mz[i] * b.invT2
		}
	}
	return dm
}

// BlochRun steps a numerical excitation one accepted integrator step at a
// time. Commit transfers the final state to the probe.
type BlochRun struct {
	p        *Probe
	solver   *integrators.Solver
	duration float64
	history  []Snapshot
	done     bool
}

// NewBlochRun prepares a numerical excitation with coil c. The coil field is
// computed first if c is not already the probe's coil.
func (p *Probe) NewBlochRun(c RFCoil, opts ...RFOption) (*BlochRun, error) {
	s, err := p.resolvePulse(c, opts)
	if err != nil {
		return nil, err
	}
	if err := p.ensureRFField(c); err != nil {
		return nil, err
	}

	y0, err := p.initialState(s)
	if err != nil {
		return nil, err
	}

	mat := p.cfg.Material
	sys := &blochSystem{
		n:         p.n,
		gamma:     mat.GyromagneticRatio,
		s:         s,
		b0x:       p.b0x,
		b0y:       p.b0y,
		b0z:       p.b0z,
		b1x:       p.b1x,
		b1y:       p.b1y,
		b1z:       p.b1z,
		selfScale: make([]float64, p.n),
	}
	for i := range p.n {
		sys.selfScale[i] = units.Mu0 * p.magnetization[i]
	}
	if s.relaxation {
		if !(mat.T1 > 0) || !(mat.T2 > 0) {
			return nil, dynamo.InvalidParam("relaxation", [2]float64{mat.T1, mat.T2}, "T1 and T2 must be positive")
		}
		sys.invT1, sys.invT2 = 1/mat.T1, 1/mat.T2
	}

	solver, err := integrators.NewSolver(sys, y0, 0, s.duration, s.solver)
	if err != nil {
		return nil, err
	}

	r := &BlochRun{p: p, solver: solver, duration: s.duration}
	r.record()
	return r, nil
}

func (p *Probe) initialState(s pulse) (dynamo.State, error) {
	if s.initial[0] != nil {
		return dynamo.Join3(s.initial[0], s.initial[1], s.initial[2]), nil
	}

	y0 := make(dynamo.State, 3*p.n)
	mx, my, mz := y0.Split3()
	for i := range p.n {
		if p.b0[i] == 0 {
			return nil, fmt.Errorf("%w: cell %d has zero static field", dynamo.ErrNumericalInstability, i)
		}
		mx[i] = p.b0x[i] / p.b0[i]
		my[i] = p.b0y[i] / p.b0[i]
		mz[i] = p.b0z[i] / p.b0[i]
	}
	return y0, nil
}

func (r *BlochRun) record() {
	mx, my, mz := r.solver.Y().Split3()
	c := r.p.center

	r.history = append(r.history, Snapshot{
		T:        r.solver.T(),
		MeanMx:   stat.Mean(mx, nil),
		MeanMy:   stat.Mean(my, nil),
		MeanMz:   stat.Mean(mz, nil),
		CenterMx: mx[c],
		CenterMy: my[c],
		CenterMz: mz[c],
	})
}

// Step advances by one accepted step and returns the new snapshot.
func (r *BlochRun) Step() (Snapshot, error) {
	if r.Done() {
		return r.Last(), nil
	}
	if err := r.solver.Step(); err != nil {
		return r.Last(), fmt.Errorf("bloch integration: %w", err)
	}
	r.record()
	return r.Last(), nil
}

// Done reports whether the pulse has been integrated to its end.
func (r *BlochRun) Done() bool {
	return r.solver.Status() == integrators.Finished
}

// Failed reports whether the integrator gave up.
func (r *BlochRun) Failed() bool {
	return r.solver.Status() == integrators.Failed
}

func (r *BlochRun) Last() Snapshot      { return r.history[len(r.history)-1] }
func (r *BlochRun) History() []Snapshot { return r.history }
func (r *BlochRun) Duration() float64   { return r.duration }
func (r *BlochRun) Steps() int          { return r.solver.Steps() }

// Progress is the integrated fraction of the pulse.
func (r *BlochRun) Progress() float64 {
	return r.solver.T() / r.duration
}

// Commit writes the final magnetization to the probe. It fails unless the
// integration reached the end of the pulse.
func (r *BlochRun) Commit() error {
	if !r.Done() {
		if err := r.solver.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: integration stopped at t=%g of %g", dynamo.ErrNumericalInstability, r.solver.T(), r.duration)
	}
	if r.done {
		return nil
	}

	r.p.setMu(r.solver.Y().Clone().Split3())
	r.done = true
	return nil
}
