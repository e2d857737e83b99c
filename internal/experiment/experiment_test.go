package experiment_test

import (
	"context"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fidsim/internal/analysis"
	"github.com/san-kum/fidsim/internal/config"
	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/experiment"
	"github.com/san-kum/fidsim/internal/noise"
	"github.com/san-kum/fidsim/internal/units"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Cells = 20
	cfg.Readout.Duration = 1 * units.MS
	cfg.Readout.SampleRate = 1 * units.MHz
	return cfg
}

func run(cfg *config.Config) *experiment.Result {
	exp := experiment.New(cfg)
	exp.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	Expect(exp.Setup()).To(Succeed())
	res, err := exp.Run(context.Background())
	Expect(err).NotTo(HaveOccurred())
	return res
}

var _ = Describe("Registry", func() {
	r := experiment.NewRegistry()

	It("lists the probe and coil presets", func() {
		Expect(r.ListProbes()).To(Equal([]string{"fixed", "plunging"}))
		Expect(r.ListCoils()).To(Equal([]string{"fixed", "plunging"}))
	})

	It("rejects unknown names", func() {
		_, err := r.GetProbe("sphere")
		Expect(err).To(HaveOccurred())
		_, err = r.GetCoil("saddle")
		Expect(err).To(HaveOccurred())
		_, err = r.GetMagnet("cyclotron", 1, nil)
		Expect(err).To(HaveOccurred())
	})

	It("applies relative multipoles to the magnet", func() {
		m, err := r.GetMagnet(experiment.MagnetName, 1.45, map[int]float64{4: 1e-6})
		Expect(err).NotTo(HaveOccurred())
		s, _ := m.Strength(4)
		Expect(s).To(BeNumerically("~", 1e-6*1.45/units.CM, 1e-18))

		_, err = r.GetMagnet(experiment.MagnetName, 1.45, map[int]float64{30: 1})
		Expect(err).To(MatchError(dynamo.ErrInvalidIndex))
	})
})

var _ = Describe("Experiment", func() {
	It("refuses to run before setup", func() {
		_, err := experiment.New(smallConfig()).Run(context.Background())
		Expect(err).To(MatchError(experiment.ErrNotSetup))
	})

	It("reports invalid configurations", func() {
		cfg := smallConfig()
		cfg.Cells = 0
		Expect(experiment.New(cfg).Setup()).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("produces a reproducible closed-form FID", func() {
		a := run(smallConfig())
		b := run(smallConfig())

		Expect(a.Times).To(HaveLen(1001))
		Expect(a.Flux).To(HaveLen(1001))
		Expect(a.Flux).To(Equal(b.Flux))
		Expect(a.T90).To(BeNumerically(">", 0))
		Expect(a.Trajectory).To(BeEmpty())
		Expect(a.Metrics).To(BeNil())
	})

	It("mixes the Larmor frequency down to the beat frequency", func() {
		res := run(smallConfig())

		// 1.45 T in petroleum jelly precesses at 61.79 MHz; mixed with
		// 61.74 MHz the beat sits at 50 kHz.
		f := analysis.DominantFrequency(res.Flux, res.Times[1]-res.Times[0])
		Expect(f).To(BeNumerically("~", 50*units.KHz, 2*units.KHz))
	})

	It("adds seeded noise without moving the cells", func() {
		clean := run(smallConfig())

		cfg := smallConfig()
		cfg.Noise = noise.Noise{White: noise.Float(1e-12)}
		noisy := run(cfg)
		again := run(cfg)

		Expect(noisy.Flux).To(Equal(again.Flux))
		Expect(noisy.Flux).NotTo(Equal(clean.Flux))
		Expect(noisy.T90).To(Equal(clean.T90))
	})

	It("records a trajectory and metrics for numerical excitation", func() {
		cfg := smallConfig()
		cfg.Cells = 4
		cfg.Excitation.Mode = "numerical"
		cfg.Excitation.Duration = 1 * units.NS

		res := run(cfg)
		Expect(len(res.Trajectory)).To(BeNumerically(">=", 11))
		Expect(res.Trajectory[len(res.Trajectory)-1].T).To(Equal(1 * units.NS))
		Expect(res.Metrics).To(HaveKey("center_norm_drift"))
		Expect(res.Metrics["center_norm_drift"]).To(BeNumerically("<", 1e-6))
		Expect(res.Metrics["bounded"]).To(Equal(1.0))
	})

	It("exposes a stepwise Bloch run", func() {
		cfg := smallConfig()
		cfg.Cells = 2
		cfg.Excitation.Duration = 0.3 * units.NS

		exp := experiment.New(cfg)
		Expect(exp.Setup()).To(Succeed())
		br, err := exp.NewBlochRun()
		Expect(err).NotTo(HaveOccurred())
		for !br.Done() {
			_, err := br.Step()
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(br.Commit()).To(Succeed())
		Expect(exp.Probe().Phase().String()).To(Equal("excited"))
	})
})
