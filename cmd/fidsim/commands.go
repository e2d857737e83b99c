package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fidsim/internal/analysis"
	"github.com/san-kum/fidsim/internal/catalog"
	"github.com/san-kum/fidsim/internal/config"
	"github.com/san-kum/fidsim/internal/experiment"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/noise"
	"github.com/san-kum/fidsim/internal/render"
	"github.com/san-kum/fidsim/internal/storage"
	"github.com/san-kum/fidsim/internal/units"
	"github.com/san-kum/fidsim/internal/viz"
)

// liveCells keeps the live view responsive when no cell count was asked for.
const liveCells = 50

// buildConfig starts from a preset or config file (the file wins) and
// applies every flag the user set explicitly.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("probe") {
		cfg.Probe = probeName
	}
	if f.Changed("coil") {
		cfg.Excitation.Coil = coilName
	}
	if f.Changed("cells") {
		cfg.Cells = cells
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	if f.Changed("b0") {
		cfg.Magnet.B0 = b0 * units.Tesla
	}
	if f.Changed("mode") {
		cfg.Excitation.Mode = mode
	}
	if f.Changed("pulse") {
		cfg.Excitation.Duration = pulseNS * units.NS
	}
	if f.Changed("no-rf") {
		cfg.Excitation.DisableRF = noRF
	}
	if f.Changed("relaxation") {
		cfg.Excitation.Relaxation = relaxation
	}
	if f.Changed("method") {
		cfg.Excitation.Method = method
	}
	if f.Changed("time") {
		cfg.Readout.Duration = readoutMS * units.MS
	}
	if f.Changed("rate") {
		cfg.Readout.SampleRate = sampleKHz * units.KHz
	}
	if f.Changed("mix-down") {
		cfg.Readout.MixDown = mixDownMHz * units.MHz
	}
	if f.Changed("normalization") {
		cfg.Readout.Normalization = normalization
	}
	if f.Changed("white-noise") {
		if whiteNoise > 0 {
			cfg.Noise.White = noise.Float(whiteNoise)
		} else {
			cfg.Noise.White = nil
		}
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}
	exp := experiment.New(cfg)
	exp.SetLogger(slog.Default())
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp, nil
}

func openCatalog() (*catalog.DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return catalog.Open(filepath.Join(dataDir, catalog.DefaultFile))
}

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s probe: %d cells, %s excitation...\n", cfg.Probe, cfg.Cells, cfg.Excitation.Mode)
	res, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	meta, err := st.Save(cfg, res)
	if err != nil {
		return err
	}
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Record(meta); err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", res.Elapsed)
	fmt.Printf("run id: %s\n", meta.ID)
	fmt.Printf("t90: %.3f µs\n", res.T90/units.US)
	fmt.Printf("samples: %d\n", len(res.Flux))
	if len(res.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		names := make([]string, 0, len(res.Metrics))
		for name := range res.Metrics {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Printf("  %s: %.6g\n", name, res.Metrics[name])
		}
	}
	if preview {
		fmt.Println()
		fmt.Println(render.ASCII(res.Flux, "flux vs time", 10, 80))
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("cells") && preset == "" && configFile == "" {
		cfg.Cells = liveCells
	}

	exp := experiment.New(cfg)
	exp.SetLogger(slog.Default())
	if err := exp.Setup(); err != nil {
		return err
	}
	run, err := exp.NewBlochRun()
	if err != nil {
		return err
	}

	m, err := viz.Live(run, cfg.Probe+" probe")
	if err != nil {
		return err
	}
	if !m.Committed() {
		fmt.Println("stopped before the end of the pulse")
		return nil
	}

	last := run.Last()
	fmt.Printf("pulse complete after %d steps\n", run.Steps())
	fmt.Printf("mean M: (%+.5f, %+.5f, %+.5f)\n", last.MeanMx, last.MeanMy, last.MeanMz)
	return nil
}

func showT90(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}

	p, c := exp.Probe(), exp.Coil()
	t90, err := p.T90(c)
	if err != nil {
		return err
	}

	pcfg := p.Config()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "probe\t%s\n", pcfg.Name)
	fmt.Fprintf(w, "material\t%s\n", pcfg.Material)
	fmt.Fprintf(w, "temperature\t%.2f K\n", pcfg.Temperature/units.K)
	fmt.Fprintf(w, "coil\t%g turns, r=%.3f mm, L=%.1f mm, I=%.2f A\n",
		c.Turns(), c.Radius()/units.MM, c.Length()/units.MM, c.Current()/units.A)
	fmt.Fprintf(w, "cells\t%d\n", p.NCells())
	fmt.Fprintf(w, "mean |B0|\t%.9f T\n", p.MeanB0()/units.Tesla)
	fmt.Fprintf(w, "t90\t%.4f µs\n", t90/units.US)
	return w.Flush()
}

func showField(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	magnet, err := registry.GetMagnet(experiment.MagnetName, cfg.Magnet.B0, cfg.Magnet.Multipoles)
	if err != nil {
		return err
	}
	rf, err := registry.GetCoil(cfg.CoilName())
	if err != nil {
		return err
	}

	x, y, z := xMM*units.MM, yMM*units.MM, zMM*units.MM
	b := magnet.Evaluate(x, y, z)
	b1 := rf.FieldAt(x, y, z)

	fmt.Printf("position: (%.3f, %.3f, %.3f) mm\n\n", xMM, yMM, zMM)
	fmt.Printf("magnet   B = (%.9f, %.9f, %.9f) T\n", b.X/units.Tesla, b.Y/units.Tesla, b.Z/units.Tesla)
	fmt.Printf("%-8s B = (%.6g, %.6g, %.6g) T\n", cfg.CoilName(), b1.X/units.Tesla, b1.Y/units.Tesla, b1.Z/units.Tesla)

	if len(cfg.Magnet.Multipoles) > 0 {
		fmt.Println("\nmultipoles:")
		indices := make([]int, 0, len(cfg.Magnet.Multipoles))
		for i := range cfg.Magnet.Multipoles {
			indices = append(indices, i)
		}
		slices.Sort(indices)
		for _, i := range indices {
			desc, err := field.DescribeStrength(i, cfg.Magnet.Multipoles[i])
			if err != nil {
				return err
			}
			fmt.Printf("  [%2d] %s\n", i, desc)
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	if reindex {
		runs, err := storage.New(dataDir).List()
		if err != nil {
			return err
		}
		for i := range runs {
			if err := db.Record(&runs[i]); err != nil {
				return err
			}
		}
		slog.Info("catalog rebuilt", "runs", len(runs))
	}

	entries, err := db.List(probeFilter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBE\tMODE\tCELLS\tSAMPLES\tT90 (µs)\tNOISE\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.3f\t%v\t%s\n",
			e.ID, e.Probe, e.Mode, e.Cells, e.Samples, e.T90/units.US, e.Noise,
			e.Created.Local().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	times, flux, err := st.LoadFlux(runID)
	if err != nil {
		return err
	}
	if len(flux) == 0 {
		return fmt.Errorf("run %s has no samples", runID)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("probe: %s (%s)\n", meta.Probe, meta.Material)
	fmt.Printf("samples: %d\n\n", len(flux))
	fmt.Println(render.ASCII(flux, "flux vs time", 10, 80))

	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(traj) > 1 {
		mx := make([]float64, len(traj))
		my := make([]float64, len(traj))
		mz := make([]float64, len(traj))
		for i, s := range traj {
			mx[i], my[i], mz[i] = s.MeanMx, s.MeanMy, s.MeanMz
		}
		fmt.Println()
		fmt.Println(render.ASCIIMulti([][]float64{mx, my, mz}, "excitation: mean Mx, My, Mz", 10, 80))
	}

	if pngPath != "" {
		if err := render.FluxPNG(pngPath, times, flux); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", pngPath)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	times, flux, err := storage.New(dataDir).LoadFlux(runID)
	if err != nil {
		return err
	}
	if len(flux) < 2 {
		return fmt.Errorf("run %s has too few samples for analysis", runID)
	}

	dt := times[1] - times[0]
	freqs, amp := analysis.Spectrum(flux, dt)

	fmt.Printf("samples: %d, dt: %.3f µs, resolution: %.3f Hz\n", len(flux), dt/units.US, freqs[1]/units.Hz)
	fmt.Printf("dominant frequency: %.3f kHz\n", analysis.DominantFrequency(flux, dt)/units.KHz)
	fmt.Printf("zero-crossing frequency: %.3f kHz\n", analysis.ZeroCrossingFrequency(times, flux)/units.KHz)
	fmt.Printf("decay time (envelope fit): %.3f ms\n\n", analysis.EstimateT2(times, flux)/units.MS)

	fmt.Println(render.ASCII(amp[1:], "amplitude spectrum", 15, 80))

	if pngPath != "" {
		if err := render.SpectrumPNG(pngPath, freqs, amp); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", pngPath)
	}
	return nil
}

func output() (io.Writer, func() error, error) {
	if outPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportCSV(args[0], w); err != nil {
		done()
		return err
	}
	return done()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(args[0], w); err != nil {
		done()
		return err
	}
	return done()
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		if outPath != "" {
			return config.Save(outPath, cfg)
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROBE\tCELLS\tMODE\tREADOUT\tMULTIPOLES\tNOISE")
	for _, name := range config.ListPresets() {
		cfg := config.Presets[name]
		var poles []string
		for i, v := range cfg.Magnet.Multipoles {
			poles = append(poles, fmt.Sprintf("%d:%gppm", i, v/units.PPM))
		}
		slices.Sort(poles)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%g ms @ %g kHz\t%s\t%v\n",
			name, cfg.Probe, cfg.Cells, cfg.Excitation.Mode,
			cfg.Readout.Duration/units.MS, cfg.Readout.SampleRate/units.KHz,
			strings.Join(poles, " "), cfg.Noise.Enabled())
	}
	return w.Flush()
}
