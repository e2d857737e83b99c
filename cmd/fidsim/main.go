package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/fidsim/internal/config"
	"github.com/san-kum/fidsim/internal/units"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string

	probeName     string
	coilName      string
	cells         int
	seed          uint64
	workers       int
	b0            float64
	mode          string
	pulseNS       float64
	noRF          bool
	relaxation    bool
	method        string
	readoutMS     float64
	sampleKHz     float64
	mixDownMHz    float64
	normalization string
	whiteNoise    float64
	preview       bool

	probeFilter string
	reindex     bool
	pngPath     string
	outPath     string
	xMM         float64
	yMM         float64
	zMM         float64
)

// main registers the commands, installs the slog handler and exits with
// status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "fidsim",
		Short:         "pulsed NMR free induction decay simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fidsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate an FID and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimulationFlags(runCmd)
	runCmd.Flags().BoolVar(&preview, "preview", false, "print an ascii chart of the signal")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "integrate the Bloch equations with a live view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimulationFlags(liveCmd)

	t90Cmd := &cobra.Command{
		Use:   "t90",
		Short: "print the π/2 pulse time of a probe",
		Args:  cobra.NoArgs,
		RunE:  showT90,
	}
	addSimulationFlags(t90Cmd)

	fieldCmd := &cobra.Command{
		Use:   "field",
		Short: "evaluate the magnet field at a point",
		Args:  cobra.NoArgs,
		RunE:  showField,
	}
	addSimulationFlags(fieldCmd)
	fieldCmd.Flags().Float64Var(&xMM, "x", 0, "x position (mm)")
	fieldCmd.Flags().Float64Var(&yMM, "y", 0, "y position (mm)")
	fieldCmd.Flags().Float64Var(&zMM, "z", 0, "z position (mm)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&probeFilter, "probe", "", "only runs of this probe")
	listCmd.Flags().BoolVar(&reindex, "reindex", false, "rebuild the catalog from the run directories")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's signal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&pngPath, "png", "", "also write a PNG figure")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and decay analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&pngPath, "png", "", "also write the spectrum as a PNG figure")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run's signal as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a whole run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or write one as a YAML config",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}
	presetsCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the named preset to this file")

	rootCmd.AddCommand(runCmd, liveCmd, t90Cmd, fieldCmd, listCmd, plotCmd, analyzeCmd,
		exportCSVCmd, exportJSONCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimulationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "start from a preset configuration")
	f.StringVar(&probeName, "probe", config.DefaultProbe, "probe preset (fixed, plunging)")
	f.StringVar(&coilName, "coil", "", "RF coil preset (default: the probe's own)")
	f.IntVar(&cells, "cells", config.DefaultCells, "number of cells")
	f.Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	f.IntVar(&workers, "workers", 0, "parallel workers (0: sequential)")
	f.Float64Var(&b0, "b0", config.DefaultB0, "main field (T)")
	f.StringVar(&mode, "mode", "closed-form", "excitation: closed-form or numerical")
	f.Float64Var(&pulseNS, "pulse", 0, "pulse duration (ns, 0: π/2 time)")
	f.BoolVar(&noRF, "no-rf", false, "switch the RF field off during the pulse")
	f.BoolVar(&relaxation, "relaxation", false, "include T1/T2 relaxation in the Bloch equations")
	f.StringVar(&method, "method", "rk45", "Bloch integrator: rk45 or rk4")
	f.Float64Var(&readoutMS, "time", config.DefaultDuration/units.MS, "read-out duration (ms)")
	f.Float64Var(&sampleKHz, "rate", config.DefaultSampleRate/units.KHz, "sample rate (kHz)")
	f.Float64Var(&mixDownMHz, "mix-down", config.DefaultMixDown/units.MHz, "mix-down frequency (MHz)")
	f.StringVar(&normalization, "normalization", "average", "coil field normalization: average or per-cell")
	f.Float64Var(&whiteNoise, "white-noise", 0, "white noise sigma (0: none)")
}
