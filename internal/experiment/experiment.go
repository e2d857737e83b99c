// Package experiment wires a configuration into a magnet, an RF coil and a
// probe, and runs excitation followed by read-out.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/san-kum/fidsim/internal/coil"
	"github.com/san-kum/fidsim/internal/config"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/metrics"
	"github.com/san-kum/fidsim/internal/probe"
)

// MagnetName is the only magnet model: the storage ring multipole field.
const MagnetName = "storage-ring"

var ErrNotSetup = errors.New("experiment not set up")

type Result struct {
	Times      []float64
	Flux       []float64
	Trajectory []probe.Snapshot
	T90        float64
	Metrics    map[string]float64
	Elapsed    time.Duration
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *slog.Logger

	magnet *field.Multipole
	coil   *coil.Coil
	probe  *probe.Probe
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
}

// SetLogger replaces the default logger.
func (e *Experiment) SetLogger(l *slog.Logger) {
	e.logger = l
}

// Setup validates the configuration and builds the magnet, the coil and the
// probe ensemble.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	magnet, err := e.registry.GetMagnet(MagnetName, e.cfg.Magnet.B0, e.cfg.Magnet.Multipoles)
	if err != nil {
		return err
	}
	rf, err := e.registry.GetCoil(e.cfg.CoilName())
	if err != nil {
		return err
	}
	pcfg, err := e.registry.GetProbe(e.cfg.Probe)
	if err != nil {
		return err
	}

	start := time.Now()
	var opts []probe.Option
	if e.cfg.Workers > 0 {
		opts = append(opts, probe.WithWorkers(e.cfg.Workers))
	}
	p, err := probe.New(pcfg, magnet, e.cfg.Cells, e.cfg.Seed, opts...)
	if err != nil {
		return err
	}

	e.magnet, e.coil, e.probe = magnet, rf, p
	e.logger.Debug("probe constructed",
		"probe", pcfg.Name,
		"material", pcfg.Material.Name,
		"cells", e.cfg.Cells,
		"seed", e.cfg.Seed,
		"mean_b0", p.MeanB0(),
		"elapsed", time.Since(start))
	return nil
}

// Run excites the probe and reads out the flux. Noise is drawn from its own
// generator seeded with seed+1, so it never disturbs the cell placement.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.probe == nil {
		return nil, ErrNotSetup
	}
	start := time.Now()

	mode, err := probe.ParseMode(e.cfg.Excitation.Mode)
	if err != nil {
		return nil, err
	}
	t90, err := e.probe.T90(e.coil)
	if err != nil {
		return nil, err
	}

	history, err := e.probe.Excite(ctx, mode, e.coil, e.cfg.Excitation.RFOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%s excitation: %w", mode, err)
	}
	e.logger.Debug("probe excited", "mode", mode.String(), "t90", t90, "snapshots", len(history))

	times := e.cfg.Readout.Times()
	opts, err := e.cfg.Readout.FluxOptions(e.cfg.Workers)
	if err != nil {
		return nil, err
	}
	emf, err := e.probe.ReadOutFlux(times, opts)
	if err != nil {
		return nil, fmt.Errorf("read-out: %w", err)
	}

	if e.cfg.Noise.Enabled() {
		rng := rand.New(rand.NewPCG(e.cfg.Seed+1, 0))
		emf = e.cfg.Noise.Add(emf, times, rng)
	}

	res := &Result{
		Times:      times,
		Flux:       emf,
		Trajectory: history,
		T90:        t90,
		Elapsed:    time.Since(start),
	}
	if len(history) > 0 {
		res.Metrics = metrics.ObserveAll(history, metrics.Defaults())
	}

	e.logger.Info("simulation complete",
		"probe", e.cfg.Probe,
		"mode", mode.String(),
		"samples", len(times),
		"elapsed", res.Elapsed)
	return res, nil
}

// NewBlochRun prepares a stepwise numerical excitation with the configured
// pulse, for live display.
func (e *Experiment) NewBlochRun() (*probe.BlochRun, error) {
	if e.probe == nil {
		return nil, ErrNotSetup
	}
	return e.probe.NewBlochRun(e.coil, e.cfg.Excitation.RFOptions()...)
}

func (e *Experiment) Config() *config.Config   { return e.cfg }
func (e *Experiment) Magnet() *field.Multipole { return e.magnet }
func (e *Experiment) Coil() *coil.Coil         { return e.coil }
func (e *Experiment) Probe() *probe.Probe      { return e.probe }
