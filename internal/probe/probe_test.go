package probe_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fidsim/internal/analysis"
	"github.com/san-kum/fidsim/internal/coil"
	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/flux"
	"github.com/san-kum/fidsim/internal/probe"
	"github.com/san-kum/fidsim/internal/units"
)

// uniformCoil is an RF coil with a homogeneous field.
type uniformCoil struct {
	b      r3.Vec
	turns  float64
	radius float64
}

func (c *uniformCoil) Evaluate(_, _, _ float64) r3.Vec { return c.b }
func (c *uniformCoil) Turns() float64                  { return c.turns }
func (c *uniformCoil) Radius() float64                 { return c.radius }

// sliceCoil is a value-type coil that cannot be compared with ==.
type sliceCoil struct {
	b []float64
}

func (c sliceCoil) Evaluate(_, _, _ float64) r3.Vec { return r3.Vec{X: c.b[0], Y: c.b[1], Z: c.b[2]} }
func (c sliceCoil) Turns() float64                  { return 30 }
func (c sliceCoil) Radius() float64                 { return 2.3 * units.MM }

func paramName(err error) string {
	var pe *dynamo.ParameterError
	if errors.As(err, &pe) {
		return pe.Param
	}
	return ""
}

var _ = Describe("Construction", func() {
	magnet := field.NewStorageRing()

	It("rejects invalid parameters naming the parameter", func() {
		bad := probe.FixedProbe
		bad.Length = 0
		_, err := probe.New(bad, magnet, 10, 1)
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(paramName(err)).To(Equal("length"))

		bad = probe.FixedProbe
		bad.Diameter = -1
		_, err = probe.New(bad, magnet, 10, 1)
		Expect(paramName(err)).To(Equal("diameter"))

		bad = probe.FixedProbe
		bad.Temperature = 0
		_, err = probe.New(bad, magnet, 10, 1)
		Expect(paramName(err)).To(Equal("temperature"))

		_, err = probe.New(probe.FixedProbe, magnet, 0, 1)
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(paramName(err)).To(Equal("cells"))

		_, err = probe.New(probe.FixedProbe, nil, 10, 1)
		Expect(paramName(err)).To(Equal("field"))
	})

	It("places cells deterministically inside the cylinder", func() {
		a, err := probe.New(probe.PlungingProbe, magnet, 500, 12345)
		Expect(err).NotTo(HaveOccurred())
		b, err := probe.New(probe.PlungingProbe, magnet, 500, 12345, probe.WithWorkers(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Cells()).To(Equal(b.Cells()))

		r := probe.PlungingProbe.Radius()
		l := probe.PlungingProbe.Length
		for _, c := range a.Cells() {
			Expect(math.Hypot(c.Position.X, c.Position.Y)).To(BeNumerically("<=", r))
			Expect(c.Position.Z).To(BeNumerically(">=", -l/2))
			Expect(c.Position.Z).To(BeNumerically("<=", l/2))
			Expect(c.Polarization).To(BeNumerically(">", 0))
			Expect(c.Polarization).To(BeNumerically("<", 1))
		}

		other, _ := probe.New(probe.PlungingProbe, magnet, 500, 54321)
		Expect(other.Cells()).NotTo(Equal(a.Cells()))
	})

	It("collapses a single cell onto the axis as the radius vanishes", func() {
		cfg := probe.FixedProbe
		cfg.Diameter = 1e-12
		p, err := probe.New(cfg, magnet, 1, 7)
		Expect(err).NotTo(HaveOccurred())

		c := p.Cells()[0]
		Expect(math.Abs(c.Position.X)).To(BeNumerically("<=", 0.5e-12))
		Expect(math.Abs(c.Position.Y)).To(BeNumerically("<=", 0.5e-12))
		Expect(math.Abs(c.Position.Z)).To(BeNumerically("<=", cfg.Length/2))
		Expect(p.CenterIndex()).To(Equal(0))
	})

	It("derives magnetization and dipole moments from the material", func() {
		p, err := probe.New(probe.FixedProbe, magnet, 100, 3)
		Expect(err).NotTo(HaveOccurred())

		m := probe.FixedProbe.Material
		kT := units.KB * probe.FixedProbe.Temperature
		for _, c := range p.Cells() {
			pol := math.Tanh(m.MagneticMoment() * r3.Norm(c.B0) / kT)
			Expect(c.Polarization).To(BeNumerically("~", pol, 1e-12*pol))
			Expect(c.Magnetization).To(BeNumerically("~", m.MagneticMoment()*m.NumberDensity()*pol, 1e-9*c.Magnetization))
			Expect(c.DipoleMoment).To(BeNumerically("~", c.Magnetization*probe.FixedProbe.Volume()/100, 1e-9*c.DipoleMoment))
		}
	})

	It("starts in the constructed phase", func() {
		p, _ := probe.New(probe.FixedProbe, magnet, 10, 1)
		Expect(p.Phase()).To(Equal(probe.Constructed))
		Expect(p.HasRFField()).To(BeFalse())
		Expect(p.NCells()).To(Equal(10))
	})
})

var _ = Describe("Polarization", func() {
	It("matches the Boltzmann ratio for moderate arguments", func() {
		for _, x := range []float64{1e-3, 0.1, 0.5, 1, 3, 10} {
			ratio := (math.Exp(x) - math.Exp(-x)) / (math.Exp(x) + math.Exp(-x))
			Expect(probe.Polarization(x, 1, 1)).To(BeNumerically("~", ratio, 1e-12*ratio))
		}
	})

	It("stays finite for large arguments", func() {
		for _, x := range []float64{50, 400, 1e6} {
			p := probe.Polarization(x, 1, 1)
			Expect(math.IsNaN(p)).To(BeFalse())
			Expect(p).To(BeNumerically("~", 1, 1e-15))
			Expect(probe.Polarization(-x, 1, 1)).To(BeNumerically("~", -1, 1e-15))
		}
	})
})

var _ = Describe("Closed-form excitation", func() {
	var (
		p  *probe.Probe
		rf *uniformCoil
	)

	BeforeEach(func() {
		var err error
		p, err = probe.New(probe.FixedProbe, field.NewStorageRing(), 50, 9)
		Expect(err).NotTo(HaveOccurred())
		rf = &uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 30, radius: 2.3 * units.MM}
	})

	It("computes the nominal π/2 time from the centre field", func() {
		t90, err := p.T90(rf)
		Expect(err).NotTo(HaveOccurred())
		want := (math.Pi / 2) / (probe.FixedProbe.Material.GyromagneticRatio * 0.5e-3)
		Expect(t90).To(BeNumerically("~", want, 1e-15*want))
	})

	It("tips every cell by π/2 in a uniform coil field", func() {
		Expect(p.ApplyRF(rf)).To(Succeed())
		Expect(p.Phase()).To(Equal(probe.Excited))
		Expect(p.HasRFField()).To(BeTrue())

		for _, c := range p.Cells() {
			Expect(c.Mu.X).To(BeNumerically("~", 1, 1e-12))
			Expect(c.Mu.Y).To(BeNumerically("~", 0, 1e-12))
			Expect(c.Mu.Z).To(BeNumerically("~", 1, 1e-12))
			Expect(c.MuT).To(BeNumerically("~", math.Sqrt2, 1e-12))
		}
	})

	It("honours an explicit duration", func() {
		t90, _ := p.T90(rf)
		Expect(p.ApplyRF(rf, probe.WithDuration(2*t90))).To(Succeed())
		c := p.Cells()[0]
		Expect(c.Mu.X).To(BeNumerically("~", 0, 1e-9))
		Expect(c.Mu.Y).To(BeNumerically("~", -1, 1e-9))
	})

	It("rejects non-positive durations", func() {
		for _, d := range []float64{0, -1e-6} {
			err := p.ApplyRF(rf, probe.WithDuration(d))
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(paramName(err)).To(Equal("duration"))
		}
		Expect(p.Phase()).To(Equal(probe.Constructed))
	})

	It("fails when the coil field vanishes at the centre", func() {
		err := p.ApplyRF(&uniformCoil{turns: 1, radius: 1})
		Expect(err).To(MatchError(dynamo.ErrNumericalInstability))
	})

	It("recomputes the coil field when the coil changes", func() {
		Expect(p.ApplyRF(rf)).To(Succeed())
		other := &uniformCoil{b: r3.Vec{X: 2e-3}, turns: 30, radius: 2.3 * units.MM}
		Expect(p.ApplyRF(other)).To(Succeed())
		Expect(p.Coil()).To(BeIdenticalTo(other))
		Expect(p.Cells()[0].B1).To(Equal(r3.Vec{X: 2e-3}))
	})

	It("re-excites with coils that cannot be compared", func() {
		Expect(p.ApplyRF(sliceCoil{b: []float64{0, 0, 1e-3}})).To(Succeed())
		Expect(p.ApplyRF(sliceCoil{b: []float64{0, 0, 1e-3}})).To(Succeed())
		Expect(p.ApplyRF(sliceCoil{b: []float64{2e-3, 0, 0}})).To(Succeed())
		Expect(p.Cells()[0].B1).To(Equal(r3.Vec{X: 2e-3}))
		Expect(p.CoupledTo(sliceCoil{b: []float64{2e-3, 0, 0}})).To(BeFalse())
	})
})

var _ = Describe("Read-out", func() {
	var p *probe.Probe

	BeforeEach(func() {
		var err error
		p, err = probe.New(probe.FixedProbe, field.NewStorageRing(), 20, 11)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an excitation", func() {
		_, err := p.ReadOutFlux([]float64{0}, flux.Options{})
		Expect(err).To(MatchError(dynamo.ErrNotExcited))
	})

	It("moves to the read-out phase and back on re-excitation", func() {
		rf := coil.FixedProbeCoil()
		Expect(p.ApplyRF(rf)).To(Succeed())

		times := make([]float64, 64)
		floats.Span(times, 0, 10*units.US)
		first, err := p.ReadOutFlux(times, flux.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Phase()).To(Equal(probe.ReadOut))

		again, err := p.ReadOutFlux(times, flux.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal(first))

		Expect(p.ApplyRF(rf)).To(Succeed())
		Expect(p.Phase()).To(Equal(probe.Excited))
	})

	It("matches the coil pickup bit for bit", func() {
		rf := coil.FixedProbeCoil()
		Expect(p.ApplyRF(rf)).To(Succeed())

		times := make([]float64, 500)
		floats.Span(times, 0, units.MS)
		for _, opts := range []flux.Options{
			{},
			{MixDown: 61.74 * units.MHz},
			{MixDown: 61.74 * units.MHz, Normalization: flux.PerCell, MaxOps: 100},
		} {
			own, err := p.ReadOutFlux(times, opts)
			Expect(err).NotTo(HaveOccurred())
			picked, err := rf.PickupFlux(p, times, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(picked).To(Equal(own))
		}
	})

	It("reads out through another coil's own field", func() {
		fixed, plunging := coil.FixedProbeCoil(), coil.PlungingProbeCoil()
		Expect(p.ApplyRF(fixed)).To(Succeed())
		Expect(p.CoupledTo(fixed)).To(BeTrue())
		Expect(p.CoupledTo(plunging)).To(BeFalse())

		times := make([]float64, 200)
		floats.Span(times, 0, 100*units.US)
		opts := flux.Options{MixDown: 61.74 * units.MHz}

		e, err := p.FluxEnsemble()
		Expect(err).NotTo(HaveOccurred())
		coupled, err := e.Recouple(plunging, 0)
		Expect(err).NotTo(HaveOccurred())
		c0 := p.Cells()[0].Position
		Expect(coupled.B1x[0]).To(Equal(plunging.FieldAt(c0.X, c0.Y, c0.Z).X))
		want, err := flux.Compute(coupled, plunging.FluxCoil(), times, opts)
		Expect(err).NotTo(HaveOccurred())

		got, err := plunging.PickupFlux(p, times, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))

		own, err := fixed.PickupFlux(p, times, opts)
		Expect(err).NotTo(HaveOccurred())
		scale := (plunging.Turns() * plunging.Radius() * plunging.Radius()) /
			(fixed.Turns() * fixed.Radius() * fixed.Radius())
		rescaled := make([]float64, len(own))
		floats.ScaleTo(rescaled, scale, own)
		Expect(floats.EqualApprox(got, rescaled, 1e-6*floats.Norm(rescaled, math.Inf(1)))).To(BeFalse())
	})

	It("beats down to DC when mixing with the Larmor frequency", func() {
		cfg := probe.FixedProbe
		single, err := probe.New(cfg, field.NewMultipole(1.45), 1, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(single.ApplyRF(&uniformCoil{b: r3.Vec{X: 1e-3}, turns: 30, radius: 2.3 * units.MM})).To(Succeed())

		larmor := cfg.Material.GyromagneticRatio * single.MeanB0() / units.TwoPi
		const dt = 1 * units.US
		times := make([]float64, 2000)
		floats.Span(times, 0, float64(len(times)-1)*dt)

		onResonance, err := single.ReadOutFlux(times, flux.Options{MixDown: larmor})
		Expect(err).NotTo(HaveOccurred())
		freqs, amp := analysis.Spectrum(onResonance, dt)
		Expect(freqs[floats.MaxIdx(amp)]).To(Equal(0.0))

		offset, err := single.ReadOutFlux(times, flux.Options{MixDown: larmor - 10*units.KHz})
		Expect(err).NotTo(HaveOccurred())
		bin := 1 / (float64(len(times)) * dt)
		Expect(analysis.DominantFrequency(offset, dt)).To(BeNumerically("~", 10*units.KHz, bin))
	})

	It("reports a zero static field as a numerical instability", func() {
		zero, err := probe.New(probe.FixedProbe, field.Uniform{}, 3, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(zero.ApplyRF(&uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 1, radius: 1e-3})).To(Succeed())
		_, err = zero.ReadOutFlux([]float64{0, 1e-6}, flux.Options{})
		Expect(err).To(MatchError(dynamo.ErrNumericalInstability))
	})
})

var _ = Describe("Numerical excitation", func() {
	const b0 = 1.45

	var (
		p     *probe.Probe
		gamma float64
		ctx   context.Context
	)

	BeforeEach(func() {
		var err error
		p, err = probe.New(probe.FixedProbe, field.Uniform{Y: b0}, 4, 21)
		Expect(err).NotTo(HaveOccurred())
		gamma = probe.FixedProbe.Material.GyromagneticRatio
		ctx = context.Background()
	})

	It("reproduces free precession about B0", func() {
		rf := &uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 1, radius: 1e-3}
		ones := []float64{1, 1, 1, 1}
		zeros := []float64{0, 0, 0, 0}
		const d = 2 * units.NS

		history, err := p.ApplyRFNumerical(ctx, rf,
			probe.WithoutRF(),
			probe.WithoutSelfField(),
			probe.WithDuration(d),
			probe.WithInitialCondition(ones, zeros, zeros),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(history[0].T).To(Equal(0.0))
		Expect(history[0].CenterMx).To(Equal(1.0))
		Expect(history[len(history)-1].T).To(Equal(d))
		Expect(len(history)).To(BeNumerically(">=", 20))

		angle := gamma * b0 * d
		for _, c := range p.Cells() {
			Expect(c.Mu.X).To(BeNumerically("~", math.Cos(angle), 1e-4))
			Expect(c.Mu.Y).To(BeNumerically("~", 0, 1e-9))
			Expect(c.Mu.Z).To(BeNumerically("~", math.Sin(angle), 1e-4))
		}
	})

	It("leaves cells aligned with B0 at rest without a drive", func() {
		rf := &uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 1, radius: 1e-3}
		history, err := p.ApplyRFNumerical(ctx, rf, probe.WithoutRF(), probe.WithDuration(units.NS))
		Expect(err).NotTo(HaveOccurred())

		last := history[len(history)-1]
		Expect(last.MeanMy).To(BeNumerically("~", 1, 1e-12))
		Expect(last.MeanMx).To(BeNumerically("~", 0, 1e-12))
	})

	It("tips the magnetization into the transverse plane on resonance", func() {
		rf := &uniformCoil{b: r3.Vec{Z: 0.05}, turns: 1, radius: 1e-3}
		larmor := gamma * b0 / units.TwoPi

		run, err := p.NewBlochRun(rf, probe.WithRFFrequency(larmor))
		Expect(err).NotTo(HaveOccurred())
		for !run.Done() {
			_, err := run.Step()
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(run.Progress()).To(BeNumerically("~", 1, 1e-12))
		Expect(p.Phase()).To(Equal(probe.Constructed))
		Expect(run.Commit()).To(Succeed())
		Expect(p.Phase()).To(Equal(probe.Excited))

		last := run.Last()
		Expect(math.Abs(last.MeanMy)).To(BeNumerically("<", 0.1))
		norm := math.Sqrt(last.CenterMx*last.CenterMx + last.CenterMy*last.CenterMy + last.CenterMz*last.CenterMz)
		Expect(norm).To(BeNumerically("~", 1, 1e-3))

		final := p.Cells()[p.CenterIndex()].Mu
		Expect(final.X).To(Equal(last.CenterMx))
		Expect(final.Z).To(Equal(last.CenterMz))
	})

	It("applies relaxation towards equilibrium", func() {
		fast := probe.FixedProbe
		fast.Material.T1 = 1 * units.NS
		fast.Material.T2 = 1 * units.NS
		q, err := probe.New(fast, field.Uniform{Y: b0}, 2, 1)
		Expect(err).NotTo(HaveOccurred())

		rf := &uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 1, radius: 1e-3}
		history, err := q.ApplyRFNumerical(ctx, rf,
			probe.WithoutRF(),
			probe.WithRelaxation(),
			probe.WithDuration(20*units.NS),
			probe.WithInitialCondition([]float64{1, 1}, []float64{0, 0}, []float64{0, 0}),
		)
		Expect(err).NotTo(HaveOccurred())

		last := history[len(history)-1]
		Expect(math.Hypot(last.MeanMx, last.MeanMz)).To(BeNumerically("<", 1e-6))
		Expect(last.MeanMy).To(BeNumerically("~", 1, 1e-6))
	})

	It("rejects initial conditions of the wrong shape", func() {
		rf := &uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 1, radius: 1e-3}
		_, err := p.ApplyRFNumerical(ctx, rf, probe.WithInitialCondition([]float64{1}, []float64{0}, []float64{0}))
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("fails on cells without a static field", func() {
		zero, _ := probe.New(probe.FixedProbe, field.Uniform{}, 2, 1)
		rf := &uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 1, radius: 1e-3}
		_, err := zero.ApplyRFNumerical(ctx, rf, probe.WithDuration(units.NS))
		Expect(err).To(MatchError(dynamo.ErrNumericalInstability))
		Expect(zero.Phase()).To(Equal(probe.Constructed))
	})

	It("stops on cancellation without touching the magnetization", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		rf := &uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 1, radius: 1e-3}
		history, err := p.ApplyRFNumerical(cancelled, rf, probe.WithDuration(units.NS))
		Expect(err).To(MatchError(context.Canceled))
		Expect(history).To(HaveLen(1))
		Expect(p.Phase()).To(Equal(probe.Constructed))
	})

	It("dispatches on the excitation mode", func() {
		rf := &uniformCoil{b: r3.Vec{Z: 1e-3}, turns: 1, radius: 1e-3}
		history, err := p.Excite(ctx, probe.ClosedForm, rf)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(BeNil())

		history, err = p.Excite(ctx, probe.Numerical, rf, probe.WithDuration(0.5*units.NS), probe.WithMethod("rk4"))
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(6))

		mode, err := probe.ParseMode("bloch")
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(probe.Numerical))
	})
})
