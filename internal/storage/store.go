// Package storage keeps simulation runs on disk, one directory per run
// holding metadata.json, flux.csv and, for numerical excitations,
// trajectory.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/fidsim/internal/config"
	"github.com/san-kum/fidsim/internal/experiment"
	"github.com/san-kum/fidsim/internal/probe"
)

const (
	metadataFile   = "metadata.json"
	fluxFile       = "flux.csv"
	trajectoryFile = "trajectory.csv"
)

var ErrRunNotFound = errors.New("run not found")

var trajectoryHeader = []string{"time", "mean_mx", "mean_my", "mean_mz", "center_mx", "center_my", "center_mz"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Probe       string             `json:"probe"`
	Coil        string             `json:"coil"`
	Material    string             `json:"material"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        uint64             `json:"seed"`
	Cells       int                `json:"cells"`
	Mode        string             `json:"mode"`
	B0          float64            `json:"b0"`
	MixDown     float64            `json:"mix_down"`
	SampleRate  float64            `json:"sample_rate"`
	Duration    float64            `json:"duration"`
	Samples     int                `json:"samples"`
	T90         float64            `json:"t90"`
	Noise       bool               `json:"noise"`
	ElapsedSecs float64            `json:"elapsed_secs"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// NewRunID returns "<probe>_<first 8 hex digits of a random UUID>".
func NewRunID(probeName string) string {
	return fmt.Sprintf("%s_%s", probeName, uuid.NewString()[:8])
}

// Save writes a finished run and returns its metadata.
func (s *Store) Save(cfg *config.Config, res *experiment.Result) (*RunMetadata, error) {
	if len(res.Times) != len(res.Flux) {
		return nil, fmt.Errorf("result has %d times but %d flux samples", len(res.Times), len(res.Flux))
	}

	pcfg, _ := probe.Preset(cfg.Probe)
	meta := &RunMetadata{
		ID:          NewRunID(cfg.Probe),
		Probe:       cfg.Probe,
		Coil:        cfg.CoilName(),
		Material:    pcfg.Material.Name,
		Timestamp:   time.Now().UTC(),
		Seed:        cfg.Seed,
		Cells:       cfg.Cells,
		Mode:        cfg.Excitation.Mode,
		B0:          cfg.Magnet.B0,
		MixDown:     cfg.Readout.MixDown,
		SampleRate:  cfg.Readout.SampleRate,
		Duration:    cfg.Readout.Duration,
		Samples:     len(res.Times),
		T90:         res.T90,
		Noise:       cfg.Noise.Enabled(),
		ElapsedSecs: res.Elapsed.Seconds(),
		Metrics:     res.Metrics,
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return nil, err
	}

	fluxRows := make([][]string, len(res.Times))
	for i := range res.Times {
		fluxRows[i] = []string{formatFloat(res.Times[i]), formatFloat(res.Flux[i])}
	}
	if err := writeCSV(filepath.Join(runDir, fluxFile), []string{"time", "flux"}, fluxRows); err != nil {
		return nil, err
	}

	if len(res.Trajectory) > 0 {
		rows := make([][]string, len(res.Trajectory))
		for i, snap := range res.Trajectory {
			rows[i] = []string{
				formatFloat(snap.T),
				formatFloat(snap.MeanMx), formatFloat(snap.MeanMy), formatFloat(snap.MeanMz),
				formatFloat(snap.CenterMx), formatFloat(snap.CenterMy), formatFloat(snap.CenterMz),
			}
		}
		if err := writeCSV(filepath.Join(runDir, trajectoryFile), trajectoryHeader, rows); err != nil {
			return nil, err
		}
	}

	slog.Debug("run saved", "id", meta.ID, "dir", runDir, "samples", meta.Samples)
	return meta, nil
}

// List returns every readable run, newest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			slog.Debug("skipping run directory", "dir", entry.Name(), "err", err)
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadFlux reads back the sampled read-out signal.
func (s *Store) LoadFlux(runID string) (times, flux []float64, err error) {
	rows, err := readCSV(filepath.Join(s.baseDir, runID, fluxFile), 2)
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}

	times = make([]float64, len(rows))
	flux = make([]float64, len(rows))
	for i, row := range rows {
		times[i], flux[i] = row[0], row[1]
	}
	return times, flux, nil
}

// LoadTrajectory reads back the excitation snapshots. A run without a
// numerical excitation has none.
func (s *Store) LoadTrajectory(runID string) ([]probe.Snapshot, error) {
	path := filepath.Join(s.baseDir, runID, trajectoryFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	rows, err := readCSV(path, len(trajectoryHeader))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	snaps := make([]probe.Snapshot, len(rows))
	for i, r := range rows {
		snaps[i] = probe.Snapshot{
			T:        r[0],
			MeanMx:   r[1],
			MeanMy:   r[2],
			MeanMz:   r[3],
			CenterMx: r[4],
			CenterMy: r[5],
			CenterMz: r[6],
		}
	}
	return snaps, nil
}

type ExportData struct {
	Metadata   RunMetadata      `json:"metadata"`
	Times      []float64        `json:"times"`
	Flux       []float64        `json:"flux"`
	Trajectory []probe.Snapshot `json:"trajectory,omitempty"`
}

// ExportJSON writes a whole run as one indented JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	times, flux, err := s.LoadFlux(runID)
	if err != nil {
		return err
	}
	traj, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{
		Metadata:   *meta,
		Times:      times,
		Flux:       flux,
		Trajectory: traj,
	})
}

// ExportCSV copies the run's flux.csv to w.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	f, err := os.Open(filepath.Join(s.baseDir, runID, fluxFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

// readCSV parses every row after the header into exactly width floats.
func readCSV(path string, width int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = width

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, nil
	}

	out := make([][]float64, 0, len(records)-1)
	for line, record := range records[1:] {
		row := make([]float64, width)
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line+2, err)
			}
			row[j] = v
		}
		out = append(out, row)
	}
	return out, nil
}
