// Package config holds the YAML run configuration of a simulation.
//
// All physical values are SI: tesla, seconds, hertz.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fidsim/internal/coil"
	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/flux"
	"github.com/san-kum/fidsim/internal/integrators"
	"github.com/san-kum/fidsim/internal/noise"
	"github.com/san-kum/fidsim/internal/probe"
	"github.com/san-kum/fidsim/internal/units"
)

const (
	DefaultProbe      = "fixed"
	DefaultCells      = 1000
	DefaultSeed       = 12345
	DefaultB0         = 1.45 * units.Tesla
	DefaultMixDown    = 61.74 * units.MHz
	DefaultDuration   = 10 * units.MS
	DefaultSampleRate = 1 * units.MHz
)

type Config struct {
	Probe      string           `yaml:"probe"`
	Cells      int              `yaml:"cells"`
	Seed       uint64           `yaml:"seed"`
	Workers    int              `yaml:"workers,omitempty"`
	Magnet     MagnetConfig     `yaml:"magnet"`
	Excitation ExcitationConfig `yaml:"excitation"`
	Readout    ReadoutConfig    `yaml:"readout"`
	Noise      noise.Noise      `yaml:"noise,omitempty"`
}

type MagnetConfig struct {
	B0 float64 `yaml:"b0"`
	// Multipoles maps a multipole index to its strength relative to B0 at
	// 1 cm.
	Multipoles map[int]float64 `yaml:"multipoles,omitempty"`
}

type ExcitationConfig struct {
	Mode        string  `yaml:"mode"`
	Coil        string  `yaml:"coil,omitempty"`
	Duration    float64 `yaml:"duration,omitempty"` // 0 selects the π/2 time
	RFFrequency float64 `yaml:"rf_frequency"`       // Hz, ignored with disable_rf
	DisableRF   bool    `yaml:"disable_rf,omitempty"`
	Relaxation  bool    `yaml:"relaxation,omitempty"`
	SelfField   *bool   `yaml:"self_field,omitempty"`
	MaxStep     float64 `yaml:"max_step"`
	Method      string  `yaml:"method"`
}

type ReadoutConfig struct {
	Duration      float64 `yaml:"duration"`
	SampleRate    float64 `yaml:"sample_rate"`
	MixDown       float64 `yaml:"mix_down"`
	Normalization string  `yaml:"normalization"`
	MaxOps        int     `yaml:"max_ops,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Probe: DefaultProbe,
		Cells: DefaultCells,
		Seed:  DefaultSeed,
		Magnet: MagnetConfig{
			B0: DefaultB0,
		},
		Excitation: ExcitationConfig{
			Mode:        probe.ClosedForm.String(),
			RFFrequency: probe.DefaultRFFrequency,
			MaxStep:     probe.DefaultMaxStep,
			Method:      integrators.MethodRK45,
		},
		Readout: ReadoutConfig{
			Duration:      DefaultDuration,
			SampleRate:    DefaultSampleRate,
			MixDown:       DefaultMixDown,
			Normalization: flux.Average.String(),
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Magnet.Multipoles != nil {
		out.Magnet.Multipoles = make(map[int]float64, len(c.Magnet.Multipoles))
		for k, v := range c.Magnet.Multipoles {
			out.Magnet.Multipoles[k] = v
		}
	}
	if c.Excitation.SelfField != nil {
		v := *c.Excitation.SelfField
		out.Excitation.SelfField = &v
	}
	return &out
}

// CoilName is the RF coil preset, defaulting to the probe's own coil.
func (c *Config) CoilName() string {
	if c.Excitation.Coil != "" {
		return c.Excitation.Coil
	}
	return c.Probe
}

// Validate checks every value against its valid range.
func (c *Config) Validate() error {
	if _, ok := probe.Preset(c.Probe); !ok {
		return dynamo.InvalidParam("probe", c.Probe, "unknown probe preset")
	}
	if _, ok := coil.Preset(c.CoilName()); !ok {
		return dynamo.InvalidParam("coil", c.CoilName(), "unknown coil preset")
	}
	if c.Cells < 1 {
		return dynamo.InvalidParam("cells", c.Cells, "need at least one cell")
	}
	if !(c.Magnet.B0 > 0) {
		return dynamo.InvalidParam("magnet.b0", c.Magnet.B0, "must be positive")
	}
	for i := range c.Magnet.Multipoles {
		if _, err := field.Order(i); err != nil {
			return err
		}
	}

	if _, err := probe.ParseMode(c.Excitation.Mode); err != nil {
		return err
	}
	if c.Excitation.Duration < 0 {
		return dynamo.InvalidParam("excitation.duration", c.Excitation.Duration, "must be positive, or zero for the π/2 time")
	}
	if !c.Excitation.DisableRF && !(c.Excitation.RFFrequency > 0) {
		return dynamo.InvalidParam("excitation.rf_frequency", c.Excitation.RFFrequency, "must be positive unless disable_rf is set")
	}
	if !(c.Excitation.MaxStep > 0) {
		return dynamo.InvalidParam("excitation.max_step", c.Excitation.MaxStep, "must be positive")
	}
	switch c.Excitation.Method {
	case integrators.MethodRK45, integrators.MethodRK4:
	default:
		return dynamo.InvalidParam("excitation.method", c.Excitation.Method, "must be rk45 or rk4")
	}

	if !(c.Readout.Duration > 0) {
		return dynamo.InvalidParam("readout.duration", c.Readout.Duration, "must be positive")
	}
	if !(c.Readout.SampleRate > 0) {
		return dynamo.InvalidParam("readout.sample_rate", c.Readout.SampleRate, "must be positive")
	}
	if _, err := flux.ParseNormalization(c.Readout.Normalization); err != nil {
		return err
	}
	if c.Readout.MaxOps < 0 {
		return dynamo.InvalidParam("readout.max_ops", c.Readout.MaxOps, "must not be negative")
	}
	return nil
}

// Times returns the read-out sample times 0, 1/rate, ... up to Duration.
func (r ReadoutConfig) Times() []float64 {
	n := int(math.Floor(r.Duration*r.SampleRate+1e-9)) + 1
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) / r.SampleRate
	}
	return times
}

// FluxOptions converts the read-out settings for package flux.
func (r ReadoutConfig) FluxOptions(workers int) (flux.Options, error) {
	norm, err := flux.ParseNormalization(r.Normalization)
	if err != nil {
		return flux.Options{}, err
	}
	return flux.Options{
		MixDown:       r.MixDown,
		Normalization: norm,
		MaxOps:        r.MaxOps,
		Workers:       workers,
	}, nil
}

// RFOptions converts the excitation settings for package probe.
func (e ExcitationConfig) RFOptions() []probe.RFOption {
	var opts []probe.RFOption
	if e.Duration > 0 {
		opts = append(opts, probe.WithDuration(e.Duration))
	}
	if e.DisableRF {
		opts = append(opts, probe.WithoutRF())
	} else if e.RFFrequency > 0 {
		opts = append(opts, probe.WithRFFrequency(e.RFFrequency))
	}
	if e.Relaxation {
		opts = append(opts, probe.WithRelaxation())
	}
	if e.SelfField != nil && !*e.SelfField {
		opts = append(opts, probe.WithoutSelfField())
	}
	if e.MaxStep > 0 {
		opts = append(opts, probe.WithMaxStep(e.MaxStep))
	}
	if e.Method != "" {
		opts = append(opts, probe.WithMethod(e.Method))
	}
	return opts
}
