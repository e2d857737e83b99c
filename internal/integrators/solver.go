package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/fidsim/internal/dynamo"
)

const (
	MethodRK45 = "rk45"
	MethodRK4  = "rk4"
)

type Status int

const (
	Running Status = iota
	Finished
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Options configures a Solver. MaxStep bounds every step, adaptive or not;
// FirstStep of zero lets the solver pick one, which for fixed-step RK4 is
// MaxStep when that is finite.
type Options struct {
	Method    string
	RelTol    float64
	AbsTol    float64
	MaxStep   float64
	FirstStep float64
}

func DefaultOptions() Options {
	return Options{
		Method:  MethodRK45,
		RelTol:  1e-6,
		AbsTol:  1e-9,
		MaxStep: math.Inf(1),
	}
}

// Solver advances an ODE from t0 towards tBound one accepted step at a time.
type Solver struct {
	sys    dynamo.System
	opts   Options
	rk45   *RK45
	rk4    *RK4
	y      dynamo.State
	t      float64
	tBound float64
	h      float64

	status   Status
	err      error
	steps    int
	rejected int
}

func NewSolver(sys dynamo.System, y0 dynamo.State, t0, tBound float64, opts Options) (*Solver, error) {
	if opts.Method == "" {
		opts.Method = MethodRK45
	}
	if opts.MaxStep == 0 {
		opts.MaxStep = math.Inf(1)
	}

	switch {
	case opts.Method != MethodRK45 && opts.Method != MethodRK4:
		return nil, dynamo.InvalidParam("method", opts.Method, "must be rk45 or rk4")
	case !(tBound > t0):
		return nil, dynamo.InvalidParam("t_bound", tBound, "must be greater than t0")
	case opts.MaxStep < 0:
		return nil, dynamo.InvalidParam("max_step", opts.MaxStep, "must be positive")
	case opts.Method == MethodRK45 && (opts.RelTol <= 0 || opts.AbsTol <= 0):
		return nil, dynamo.InvalidParam("tolerance", [2]float64{opts.RelTol, opts.AbsTol}, "must be positive")
	case len(y0) != sys.StateDim():
		return nil, fmt.Errorf("%w: state has %d entries, system expects %d", dynamo.ErrInvalidParameter, len(y0), sys.StateDim())
	}

	h := opts.FirstStep
	switch {
	case h > 0:
	case opts.Method == MethodRK4 && !math.IsInf(opts.MaxStep, 1):
		h = opts.MaxStep
	default:
		h = (tBound - t0) / 100
	}
	h = math.Min(h, opts.MaxStep)

	return &Solver{
		sys:    sys,
		opts:   opts,
		rk45:   NewRK45(),
		rk4:    NewRK4(),
		y:      y0.Clone(),
		t:      t0,
		tBound: tBound,
		h:      h,
		status: Running,
	}, nil
}

func (s *Solver) T() float64        { return s.t }
func (s *Solver) Y() dynamo.State   { return s.y }
func (s *Solver) Status() Status    { return s.status }
func (s *Solver) Err() error        { return s.err }
func (s *Solver) Steps() int        { return s.steps }
func (s *Solver) Rejected() int     { return s.rejected }
func (s *Solver) StepSize() float64 { return s.h }

// Step advances by one accepted step. Once the solver has finished or
// failed, Step returns the terminal error (nil when finished).
func (s *Solver) Step() error {
	if s.status != Running {
		return s.err
	}

	for {
		remaining := s.tBound - s.t
		minStep := 10 * (math.Nextafter(math.Abs(s.t), math.Inf(1)) - math.Abs(s.t))

		h := math.Min(math.Min(s.h, s.opts.MaxStep), remaining)
		if h < minStep {
			return s.fail(dynamo.ErrStepTooSmall)
		}

		var yNew dynamo.State
		if s.opts.Method == MethodRK4 {
			yNew = s.rk4.Step(s.sys, s.y, s.t, h)
		} else {
			var errNorm, hNew float64
			yNew, errNorm, hNew = s.rk45.StepAdaptive(s.sys, s.y, s.t, h, s.opts.RelTol, s.opts.AbsTol)
			s.h = hNew
			if !(errNorm <= 1) {
				s.rejected++
				continue
			}
		}

		if !yNew.IsValid() {
			return s.fail(fmt.Errorf("%w: non-finite state", dynamo.ErrNumericalInstability))
		}

		s.y = yNew
		s.steps++
		if h >= remaining || s.tBound-(s.t+h) < minStep {
			s.t = s.tBound
			s.status = Finished
		} else {
			s.t += h
		}
		return nil
	}
}

func (s *Solver) fail(err error) error {
	s.status = Failed
	s.err = &dynamo.SimulationError{Step: s.steps, Time: s.t, Wrapped: err}
	return s.err
}

// Integrate runs a Solver to completion, calling observe with the initial
// state and after every accepted step.
func Integrate(ctx context.Context, sys dynamo.System, y0 dynamo.State, t0, tBound float64, opts Options, observe func(t float64, y dynamo.State)) (dynamo.State, error) {
	s, err := NewSolver(sys, y0, t0, tBound, opts)
	if err != nil {
		return nil, err
	}

	if observe != nil {
		observe(s.T(), s.Y())
	}

	for s.Status() == Running {
		select {
		case <-ctx.Done():
			return s.Y(), ctx.Err()
		default:
		}

		if err := s.Step(); err != nil {
			return s.Y(), err
		}
		if observe != nil {
			observe(s.T(), s.Y())
		}
	}

	return s.Y(), nil
}
