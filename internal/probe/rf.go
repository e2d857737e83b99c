package probe

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/integrators"
	"github.com/san-kum/fidsim/internal/units"
)

const (
	// DefaultRFFrequency drives the numerical excitation.
	DefaultRFFrequency = 61.79 * units.MHz

	// DefaultMaxStep resolves the RF period with roughly ten steps.
	DefaultMaxStep = 0.1 * units.NS
)

// Mode selects how an RF pulse is applied.
type Mode int

const (
	ClosedForm Mode = iota
	Numerical
)

func (m Mode) String() string {
	switch m {
	case ClosedForm:
		return "closed-form"
	case Numerical:
		return "numerical"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "closed-form" (or "") and "numerical".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "closed-form", "closed":
		return ClosedForm, nil
	case "numerical", "bloch":
		return Numerical, nil
	}
	return ClosedForm, dynamo.InvalidParam("mode", s, "must be closed-form or numerical")
}

type pulse struct {
	duration    float64
	hasDuration bool
	omegaRF     float64
	rf          bool
	relaxation  bool
	selfField   bool
	solver      integrators.Options
	initial     [3][]float64
	err         error
}

func defaultPulse() pulse {
	opts := integrators.DefaultOptions()
	opts.MaxStep = DefaultMaxStep
	return pulse{
		omegaRF:   units.TwoPi * DefaultRFFrequency,
		rf:        true,
		selfField: true,
		solver:    opts,
	}
}

// RFOption configures an excitation.
type RFOption func(*pulse)

// WithDuration sets the pulse length in seconds. Without it the nominal
// π/2 time of the coil is used.
func WithDuration(d float64) RFOption {
	return func(p *pulse) {
		if !(d > 0) || math.IsInf(d, 0) {
			p.err = dynamo.InvalidParam("duration", d, "must be positive and finite")
			return
		}
		p.duration, p.hasDuration = d, true
	}
}

// WithRFFrequency sets the drive frequency in Hz.
func WithRFFrequency(f float64) RFOption {
	return func(p *pulse) {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			p.err = dynamo.InvalidParam("rf_frequency", f, "must be finite")
			return
		}
		p.omegaRF, p.rf = units.TwoPi*f, true
	}
}

// WithoutRF turns the drive off so the cells precess freely.
func WithoutRF() RFOption {
	return func(p *pulse) { p.rf = false }
}

// WithRelaxation adds the T1 and T2 terms, assuming B0 along y.
func WithRelaxation() RFOption {
	return func(p *pulse) { p.relaxation = true }
}

// WithoutSelfField drops the µ0·M feedback of a cell on itself.
func WithoutSelfField() RFOption {
	return func(p *pulse) { p.selfField = false }
}

func WithMaxStep(h float64) RFOption {
	return func(p *pulse) {
		if !(h > 0) {
			p.err = dynamo.InvalidParam("max_step", h, "must be positive")
			return
		}
		p.solver.MaxStep = h
	}
}

func WithTolerance(rtol, atol float64) RFOption {
	return func(p *pulse) {
		if !(rtol > 0) || !(atol > 0) {
			p.err = dynamo.InvalidParam("tolerance", [2]float64{rtol, atol}, "must be positive")
			return
		}
		p.solver.RelTol, p.solver.AbsTol = rtol, atol
	}
}

// WithMethod selects "rk45" (adaptive) or "rk4" (fixed step of MaxStep).
func WithMethod(method string) RFOption {
	return func(p *pulse) { p.solver.Method = method }
}

// WithInitialCondition starts the Bloch integration from the given
// relative magnetization per cell instead of the B0 direction.
func WithInitialCondition(mx, my, mz []float64) RFOption {
	return func(p *pulse) {
		p.initial = [3][]float64{mx, my, mz}
	}
}

func (p *Probe) resolvePulse(c RFCoil, opts []RFOption) (pulse, error) {
	s := defaultPulse()
	for _, opt := range opts {
		opt(&s)
	}
	if s.err != nil {
		return s, s.err
	}
	if c == nil {
		return s, dynamo.InvalidParam("coil", nil, "an RF coil is required")
	}
	if s.initial[0] != nil || s.initial[1] != nil || s.initial[2] != nil {
		for k, v := range s.initial {
			if len(v) != p.n {
				return s, fmt.Errorf("%w: initial condition component %d has %d entries, want %d",
					dynamo.ErrInvalidParameter, k, len(v), p.n)
			}
		}
	}

	if !s.hasDuration {
		t90, err := p.T90(c)
		if err != nil {
			return s, err
		}
		s.duration = t90
	}
	return s, nil
}

// ComputeRFField evaluates the coil field at every cell and makes c the
// probe's coil.
func (p *Probe) ComputeRFField(c RFCoil) error {
	if c == nil {
		return dynamo.InvalidParam("coil", nil, "an RF coil is required")
	}
	p.b1x, p.b1y, p.b1z, p.b1 = p.evaluate(c)
	p.coil = c
	return nil
}

func (p *Probe) ensureRFField(c RFCoil) error {
	if sameCoil(p.coil, c) {
		return nil
	}
	return p.ComputeRFField(c)
}

// sameCoil reports whether a and b are the same coil. Coils of a type that
// cannot be compared are never the same, so their field is recomputed.
func sameCoil(a, b RFCoil) bool {
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.ValueOf(a).Comparable() {
		return false
	}
	return a == b
}

// T90 is the nominal π/2 pulse length of c: the rotating-frame B1 is half
// the linear RF field at the probe centre.
func (p *Probe) T90(c RFCoil) (float64, error) {
	b1 := r3.Norm(c.Evaluate(0, 0, 0)) / 2
	if b1 == 0 {
		return 0, fmt.Errorf("%w: coil field vanishes at the probe centre", dynamo.ErrNumericalInstability)
	}
	return (math.Pi / 2) / (p.cfg.Material.GyromagneticRatio * b1), nil
}

// ApplyRF tips every cell with the closed-form approximation
// µx = µz = sin(γ|B1|t/2), µy = cos(γ|B1|t/2), which ignores the detuning
// between the drive and each cell's Larmor frequency.
func (p *Probe) ApplyRF(c RFCoil, opts ...RFOption) error {
	s, err := p.resolvePulse(c, opts)
	if err != nil {
		return err
	}
	if err := p.ensureRFField(c); err != nil {
		return err
	}

	gamma := p.cfg.Material.GyromagneticRatio
	mux := make([]float64, p.n)
	muy := make([]float64, p.n)
	muz := make([]float64, p.n)
	for i := range p.n {
		sin, cos := math.Sincos(gamma * p.b1[i] / 2 * s.duration)
		mux[i], muy[i], muz[i] = sin, cos, sin
	}
	p.setMu(mux, muy, muz)
	return nil
}

func (p *Probe) setMu(mux, muy, muz []float64) {
	p.mux, p.muy, p.muz = mux, muy, muz
	p.muT = make([]float64, p.n)
	for i := range p.n {
		p.muT[i] = math.Hypot(mux[i], muz[i])
	}
	p.phase = Excited
}

// ApplyRFNumerical integrates the Bloch equation over the pulse and returns
// the trajectory recorded at t=0 and after every accepted step. On failure
// the magnetization is left untouched.
func (p *Probe) ApplyRFNumerical(ctx context.Context, c RFCoil, opts ...RFOption) ([]Snapshot, error) {
	run, err := p.NewBlochRun(c, opts...)
	if err != nil {
		return nil, err
	}

	for !run.Done() {
		select {
		case <-ctx.Done():
			return run.History(), ctx.Err()
		default:
		}
		if _, err := run.Step(); err != nil {
			return run.History(), err
		}
	}

	if err := run.Commit(); err != nil {
		return run.History(), err
	}
	return run.History(), nil
}

// Excite applies a pulse in the given mode. The closed form records no
// trajectory.
func (p *Probe) Excite(ctx context.Context, mode Mode, c RFCoil, opts ...RFOption) ([]Snapshot, error) {
	switch mode {
	case ClosedForm:
		return nil, p.ApplyRF(c, opts...)
	case Numerical:
		return p.ApplyRFNumerical(ctx, c, opts...)
	}
	return nil, dynamo.InvalidParam("mode", mode, "unknown excitation mode")
}
