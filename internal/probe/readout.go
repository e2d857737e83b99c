package probe

import (
	"slices"

	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/flux"
)

// FluxEnsemble returns a copy of the driven cell state for flux read-out
// and moves the probe to the ReadOut phase.
func (p *Probe) FluxEnsemble() (flux.Ensemble, error) {
	if p.phase == Constructed || p.coil == nil {
		return flux.Ensemble{}, dynamo.ErrNotExcited
	}
	p.phase = ReadOut

	return flux.Ensemble{
		X:             slices.Clone(p.x),
		Y:             slices.Clone(p.y),
		Z:             slices.Clone(p.z),
		MuT:           slices.Clone(p.muT),
		B0:            slices.Clone(p.b0),
		B1x:           slices.Clone(p.b1x),
		B1z:           slices.Clone(p.b1z),
		B1:            slices.Clone(p.b1),
		Magnetization: slices.Clone(p.magnetization),
		Gamma:         p.cfg.Material.GyromagneticRatio,
		T2:            p.cfg.Material.T2,
	}, nil
}

// CoupledTo reports whether src is the coil whose field the probe holds.
func (p *Probe) CoupledTo(src field.Source) bool {
	c, ok := src.(RFCoil)
	return ok && sameCoil(p.coil, c)
}

// ReadOutFlux returns the EMF induced in the probe's own coil at each time.
// It does not change the magnetization and may be repeated.
func (p *Probe) ReadOutFlux(times []float64, opts flux.Options) ([]float64, error) {
	e, err := p.FluxEnsemble()
	if err != nil {
		return nil, err
	}
	return flux.Compute(e, flux.Coil{Turns: p.coil.Turns(), Radius: p.coil.Radius()}, times, opts)
}
