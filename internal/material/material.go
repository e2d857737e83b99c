// Package material holds the physical constants of NMR sample substances.
package material

import (
	"fmt"
	"strings"

	"github.com/san-kum/fidsim/internal/units"
)

// Material describes a sample substance. Zero fields are unknown and are
// left out of String.
type Material struct {
	Name              string
	Formula           string
	Density           float64 // kg/m³
	MolarMass         float64 // kg/mol
	T1                float64 // s
	T2                float64 // s
	GyromagneticRatio float64 // rad/(s·T)
}

// MagneticMoment returns the spin-1/2 nuclear moment γħ/2 in J/T.
func (m Material) MagneticMoment() float64 {
	return m.GyromagneticRatio * units.Hbar / 2
}

// NumberDensity returns the number of molecules per m³.
func (m Material) NumberDensity() float64 {
	if m.MolarMass == 0 {
		return 0
	}
	return m.Density / m.MolarMass * units.Avogadro
}

func (m Material) String() string {
	var info []string
	if m.Formula != "" {
		info = append(info, m.Formula)
	}
	if m.Density != 0 {
		info = append(info, fmt.Sprintf("%f g/cm^3", m.Density/(units.G/(units.CM*units.CM*units.CM))))
	}
	if m.MolarMass != 0 {
		info = append(info, fmt.Sprintf("%f g/mol", m.MolarMass/(units.G/units.Mol)))
	}
	if m.T1 != 0 {
		info = append(info, fmt.Sprintf("T1=%f ms", m.T1/units.MS))
	}
	if m.T2 != 0 {
		info = append(info, fmt.Sprintf("T2=%f ms", m.T2/units.MS))
	}
	if m.GyromagneticRatio != 0 {
		info = append(info, fmt.Sprintf("%f Hz/T", m.GyromagneticRatio/(units.Hz/units.Tesla)))
	}
	return m.Name + "(" + strings.Join(info, ", ") + ")"
}

// PetroleumJelly is the fixed-probe sample.
var PetroleumJelly = Material{
	Name:              "Petroleum Jelly",
	Formula:           "C40H46N4O10",
	Density:           0.848 * units.G / (units.CM * units.CM * units.CM),
	MolarMass:         742.8 * units.G / units.Mol,
	T1:                1 * units.S,
	T2:                40 * units.MS,
	GyromagneticRatio: units.TwoPi * 61.79 * units.MHz / (1.45 * units.Tesla),
}

// Water is the ultra-pure ASTM type 1 water of the plunging probe.
var Water = Material{
	Name:              "Ultra-Pure ASTM Type 1 Water",
	Formula:           "H2O",
	Density:           997 * units.KG / (units.M * units.M * units.M),
	MolarMass:         18.01528 * units.G / units.Mol,
	T1:                3 * units.S,
	T2:                3 * units.S,
	GyromagneticRatio: ProtonGyromagneticRatio(300 * units.K),
}

var presets = map[string]Material{
	"petroleum-jelly": PetroleumJelly,
	"water":           Water,
}

// Lookup returns the preset material registered under name.
func Lookup(name string) (Material, bool) {
	m, ok := presets[name]
	return m, ok
}
