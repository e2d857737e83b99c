package config

import (
	"slices"

	"github.com/san-kum/fidsim/internal/noise"
	"github.com/san-kum/fidsim/internal/units"
)

func withDefaults(f func(c *Config)) *Config {
	c := DefaultConfig()
	f(c)
	return c
}

var Presets = map[string]*Config{
	"fixed": DefaultConfig(),
	"fixed-gradient": withDefaults(func(c *Config) {
		c.Magnet.Multipoles = map[int]float64{4: 20 * units.PPM, 9: 5 * units.PPM}
		c.Noise = noise.Noise{White: noise.Float(1e-9)}
	}),
	"plunging": withDefaults(func(c *Config) {
		c.Probe = "plunging"
		c.Readout.Duration = 50 * units.MS
		c.Readout.SampleRate = 200 * units.KHz
	}),
	"plunging-bloch": withDefaults(func(c *Config) {
		c.Probe = "plunging"
		c.Cells = 10
		c.Excitation.Mode = "numerical"
		c.Readout.Duration = 50 * units.MS
		c.Readout.SampleRate = 200 * units.KHz
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
