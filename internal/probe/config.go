package probe

import (
	"math"

	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/material"
	"github.com/san-kum/fidsim/internal/units"
)

// Config is the physical description of a cylindrical probe sample.
type Config struct {
	Name        string
	Length      float64 // m
	Diameter    float64 // m
	Material    material.Material
	Temperature float64 // K
}

// FixedProbe is a petroleum-jelly probe mounted in the magnet.
var FixedProbe = Config{
	Name:        "fixed",
	Length:      30 * units.MM,
	Diameter:    1.5 * units.MM,
	Material:    material.PetroleumJelly,
	Temperature: units.Celsius(26.85),
}

// PlungingProbe is the water calibration probe.
var PlungingProbe = Config{
	Name:        "plunging",
	Length:      228.6 * units.MM,
	Diameter:    4.2065 * units.MM,
	Material:    material.Water,
	Temperature: units.Celsius(26.85),
}

var presets = map[string]Config{
	FixedProbe.Name:    FixedProbe,
	PlungingProbe.Name: PlungingProbe,
}

// Preset returns the probe configuration registered under name.
func Preset(name string) (Config, bool) {
	c, ok := presets[name]
	return c, ok
}

func (c Config) Radius() float64 {
	return c.Diameter / 2
}

// Volume of the sample cylinder.
func (c Config) Volume() float64 {
	return c.Length * math.Pi * c.Radius() * c.Radius()
}

// Validate reports the first parameter outside its valid range.
func (c Config) Validate() error {
	switch {
	case !(c.Length > 0):
		return dynamo.InvalidParam("length", c.Length, "must be positive")
	case !(c.Diameter > 0):
		return dynamo.InvalidParam("diameter", c.Diameter, "must be positive")
	case !(c.Temperature > 0):
		return dynamo.InvalidParam("temperature", c.Temperature, "must be positive (kelvin)")
	case !(c.Material.GyromagneticRatio > 0):
		return dynamo.InvalidParam("gyromagnetic_ratio", c.Material.GyromagneticRatio, "must be positive")
	}
	return nil
}
