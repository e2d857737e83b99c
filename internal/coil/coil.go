// Package coil models helical RF and pickup coils.
//
// The field of a coil is the Biot–Savart integral over its helical wire,
// evaluated with composite Simpson's rule on a fixed sampling of the helix
// phase. With the default 10 001 samples the on-axis field of the preset
// coils agrees with the closed-form solenoid result to better than 1e-9
// relative; points on the wire itself are not supported.
package coil

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/flux"
	"github.com/san-kum/fidsim/internal/units"
)

// DefaultSamples is the number of helix points used for quadrature.
const DefaultSamples = 10001

// Coil is a uniform helix of Turns loops (possibly fractional) centred on
// the origin and wound counter-clockwise about +z, so a positive current
// produces a positive on-axis Bz.
type Coil struct {
	turns   float64
	length  float64
	radius  float64
	current float64
	samples int

	phi []float64
	pos []r3.Vec
	dl  []r3.Vec // d(position)/dφ
}

type Option func(*Coil)

// WithSamples overrides the number of quadrature points. Values below 3
// are ignored.
func WithSamples(n int) Option {
	return func(c *Coil) {
		if n >= 3 {
			c.samples = n
		}
	}
}

// New builds a coil. Length and diameter are in metres, current in amperes.
func New(turns, length, diameter, current float64, opts ...Option) (*Coil, error) {
	switch {
	case !(turns > 0):
		return nil, dynamo.InvalidParam("turns", turns, "must be positive")
	case !(length > 0):
		return nil, dynamo.InvalidParam("length", length, "must be positive")
	case !(diameter > 0):
		return nil, dynamo.InvalidParam("diameter", diameter, "must be positive")
	case math.IsNaN(current) || math.IsInf(current, 0):
		return nil, dynamo.InvalidParam("current", current, "must be finite")
	}

	c := &Coil{
		turns:   turns,
		length:  length,
		radius:  diameter / 2,
		current: current,
		samples: DefaultSamples,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sampleHelix()
	return c, nil
}

func (c *Coil) sampleHelix() {
	c.phi = make([]float64, c.samples)
	floats.Span(c.phi, 0, units.TwoPi*c.turns)

	c.pos = make([]r3.Vec, c.samples)
	c.dl = make([]r3.Vec, c.samples)
	pitch := c.length / (units.TwoPi * c.turns)
	for i, p := range c.phi {
		s, co := math.Sincos(p)
		c.pos[i] = r3.Vec{
			X: c.radius * co,
			Y: c.radius * s,
			Z: c.length / 2 * (p/(math.Pi*c.turns) - 1),
		}
		c.dl[i] = r3.Vec{X: -c.radius * s, Y: c.radius * co, Z: pitch}
	}
}

func (c *Coil) Turns() float64   { return c.turns }
func (c *Coil) Length() float64  { return c.length }
func (c *Coil) Radius() float64  { return c.radius }
func (c *Coil) Current() float64 { return c.current }
func (c *Coil) Samples() int     { return c.samples }

// FieldAt returns the field at (x, y, z) for the coil's own current.
func (c *Coil) FieldAt(x, y, z float64) r3.Vec {
	return c.FieldAtCurrent(x, y, z, c.current)
}

// FieldAtCurrent returns the field at (x, y, z) for the given current.
func (c *Coil) FieldAtCurrent(x, y, z, current float64) r3.Vec {
	p := r3.Vec{X: x, Y: y, Z: z}
	fx := make([]float64, c.samples)
	fy := make([]float64, c.samples)
	fz := make([]float64, c.samples)

	for i := range c.samples {
		d := r3.Sub(p, c.pos[i])
		r := r3.Norm(d)
		v := r3.Scale(1/(r*r*r), r3.Cross(c.dl[i], d))
		fx[i], fy[i], fz[i] = v.X, v.Y, v.Z
	}

	k := units.Mu0 / (4 * math.Pi) * current
	return r3.Vec{
		X: k * integrate.Simpsons(c.phi, fx),
		Y: k * integrate.Simpsons(c.phi, fy),
		Z: k * integrate.Simpsons(c.phi, fz),
	}
}

// Evaluate makes a Coil a field.Source.
func (c *Coil) Evaluate(x, y, z float64) r3.Vec {
	return c.FieldAt(x, y, z)
}

// SolenoidBz is the closed-form on-axis field of an ideal solenoid with
// the same turns, length, radius and current.
func (c *Coil) SolenoidBz(z float64) float64 {
	n := c.turns / c.length
	h := c.length / 2
	r2 := c.radius * c.radius
	return units.Mu0 * n * c.current / 2 *
		((z+h)/math.Sqrt(r2+(z+h)*(z+h)) - (z-h)/math.Sqrt(r2+(z-h)*(z-h)))
}

// FluxSource exposes the driven cell ensemble of an excited probe.
type FluxSource interface {
	FluxEnsemble() (flux.Ensemble, error)
}

// coupledSource is a FluxSource whose ensemble already carries the field of
// the coil that excited it.
type coupledSource interface {
	CoupledTo(field.Source) bool
}

// PickupFlux returns the EMF this coil picks up from src at each time. Each
// cell couples through this coil's own field at its position; the field
// cached by src is reused only when this coil excited it.
func (c *Coil) PickupFlux(src FluxSource, times []float64, opts flux.Options) ([]float64, error) {
	e, err := src.FluxEnsemble()
	if err != nil {
		return nil, err
	}
	if cs, ok := src.(coupledSource); !ok || !cs.CoupledTo(c) {
		if e, err = e.Recouple(c, opts.Workers); err != nil {
			return nil, err
		}
	}
	return flux.Compute(e, c.FluxCoil(), times, opts)
}

// FluxCoil returns the pickup geometry used by package flux.
func (c *Coil) FluxCoil() flux.Coil {
	return flux.Coil{Turns: c.turns, Radius: c.radius}
}
