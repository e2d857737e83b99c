// Package probe simulates the free induction decay of an NMR probe.
//
// A Probe is an ensemble of point-like cells placed uniformly at random in
// a cylinder. Each cell carries its static field, its thermal polarization
// and, once an RF coil is known, the coil field at its position. Excitation
// tips the cell magnetization either with a closed-form approximation or
// by integrating the Bloch equation; the read-out then sums the precessing
// cells into the EMF of the pickup coil.
//
// A probe moves through three phases:
//
//	Constructed --excite--> Excited --read out--> ReadOut
//	                           ^                     |
//	                           +------re-excite------+
//
// A Probe is not safe for concurrent use.
package probe

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/units"
)

type Phase int

const (
	Constructed Phase = iota
	Excited
	ReadOut
)

func (p Phase) String() string {
	switch p {
	case Constructed:
		return "constructed"
	case Excited:
		return "excited"
	case ReadOut:
		return "read-out"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// RFCoil is a coil that drives the excitation and picks up the signal.
// The cached coil field is reused only for the same comparable coil value;
// any other coil is evaluated afresh.
type RFCoil interface {
	field.Source
	Turns() float64
	Radius() float64
}

// Cell is a snapshot of one ensemble member.
type Cell struct {
	Position      r3.Vec
	B0            r3.Vec
	Polarization  float64
	Magnetization float64 // A/m at equilibrium
	DipoleMoment  float64 // A·m²
	B1            r3.Vec
	Mu            r3.Vec // relative magnetization after excitation
	MuT           float64
}

type Probe struct {
	cfg     Config
	src     field.Source
	n       int
	seed    uint64
	workers int
	center  int
	phase   Phase

	x, y, z            []float64
	b0x, b0y, b0z, b0  []float64
	polarization       []float64
	magnetization      []float64
	dipoleMoment       []float64
	coil               RFCoil
	b1x, b1y, b1z, b1  []float64
	mux, muy, muz, muT []float64
}

type Option func(*Probe)

// WithWorkers bounds the goroutines used for per-cell field evaluation.
// Results do not depend on the worker count.
func WithWorkers(n int) Option {
	return func(p *Probe) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New places nCells cells with a generator seeded by seed and evaluates
// their static field and equilibrium polarization.
func New(cfg Config, src field.Source, nCells int, seed uint64, opts ...Option) (*Probe, error) {
	if nCells < 1 {
		return nil, dynamo.InvalidParam("cells", nCells, "need at least one cell")
	}
	if src == nil {
		return nil, dynamo.InvalidParam("field", nil, "a static field source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Probe{
		cfg:     cfg,
		src:     src,
		n:       nCells,
		seed:    seed,
		workers: runtime.GOMAXPROCS(0),
		phase:   Constructed,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.placeCells()
	p.computeStaticField()
	p.computeEquilibrium()
	return p, nil
}

func (p *Probe) placeCells() {
	rng := rand.New(rand.NewPCG(p.seed, 0))
	r := p.cfg.Radius()

	p.x = make([]float64, p.n)
	p.y = make([]float64, p.n)
	p.z = make([]float64, p.n)

	radii := make([]float64, p.n)
	for i := range radii {
		radii[i] = math.Sqrt(rng.Float64() * r * r)
	}
	for i := range p.n {
		s, c := math.Sincos(units.TwoPi * rng.Float64())
		p.x[i] = radii[i] * s
		p.y[i] = radii[i] * c
	}
	for i := range p.z {
		p.z[i] = p.cfg.Length * (rng.Float64() - 0.5)
	}

	best := math.Inf(1)
	for i := range p.n {
		d := p.x[i]*p.x[i] + p.y[i]*p.y[i] + p.z[i]*p.z[i]
		if d < best {
			best, p.center = d, i
		}
	}
}

func (p *Probe) computeStaticField() {
	p.b0x, p.b0y, p.b0z, p.b0 = p.evaluate(p.src)
}

func (p *Probe) evaluate(src field.Source) (bx, by, bz, mag []float64) {
	bx = make([]float64, p.n)
	by = make([]float64, p.n)
	bz = make([]float64, p.n)
	mag = make([]float64, p.n)

	dynamo.ParallelFor(p.n, 16, p.workers, func(start, end int) {
		for i := start; i < end; i++ {
			b := src.Evaluate(p.x[i], p.y[i], p.z[i])
			bx[i], by[i], bz[i] = b.X, b.Y, b.Z
			mag[i] = r3.Norm(b)
		}
	})
	return bx, by, bz, mag
}

func (p *Probe) computeEquilibrium() {
	mu := p.cfg.Material.MagneticMoment()
	density := p.cfg.Material.NumberDensity()
	kT := units.KB * p.cfg.Temperature
	cellVolume := p.cfg.Volume() / float64(p.n)

	p.polarization = make([]float64, p.n)
	p.magnetization = make([]float64, p.n)
	p.dipoleMoment = make([]float64, p.n)
	for i := range p.n {
		p.polarization[i] = Polarization(mu, p.b0[i], kT)
		p.magnetization[i] = mu * density * p.polarization[i]
		p.dipoleMoment[i] = p.magnetization[i] * cellVolume
	}
}

// Polarization is the Boltzmann polarization tanh(µB/kT) of spin-1/2
// moments µ in a field B at thermal energy kT. It saturates at ±1 instead
// of overflowing.
func Polarization(mu, b, kT float64) float64 {
	return math.Tanh(mu * b / kT)
}

func (p *Probe) Config() Config       { return p.cfg }
func (p *Probe) NCells() int          { return p.n }
func (p *Probe) Seed() uint64         { return p.seed }
func (p *Probe) Phase() Phase         { return p.phase }
func (p *Probe) HasRFField() bool     { return p.coil != nil }
func (p *Probe) Coil() RFCoil         { return p.coil }
func (p *Probe) Source() field.Source { return p.src }

// CenterIndex is the cell closest to the origin.
func (p *Probe) CenterIndex() int {
	return p.center
}

// Cells returns a copy of the per-cell state.
func (p *Probe) Cells() []Cell {
	cells := make([]Cell, p.n)
	for i := range cells {
		c := Cell{
			Position:      r3.Vec{X: p.x[i], Y: p.y[i], Z: p.z[i]},
			B0:            r3.Vec{X: p.b0x[i], Y: p.b0y[i], Z: p.b0z[i]},
			Polarization:  p.polarization[i],
			Magnetization: p.magnetization[i],
			DipoleMoment:  p.dipoleMoment[i],
		}
		if p.coil != nil {
			c.B1 = r3.Vec{X: p.b1x[i], Y: p.b1y[i], Z: p.b1z[i]}
		}
		if p.phase != Constructed {
			c.Mu = r3.Vec{X: p.mux[i], Y: p.muy[i], Z: p.muz[i]}
			c.MuT = p.muT[i]
		}
		cells[i] = c
	}
	return cells
}

// MeanB0 is the ensemble mean of the static field magnitude.
func (p *Probe) MeanB0() float64 {
	return stat.Mean(p.b0, nil)
}
