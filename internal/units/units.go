// Package units fixes the SI unit system used throughout the simulator.
//
// Every quantity is a plain float64 in SI base units. The scale factors
// below convert human-friendly literals at the boundary, e.g. 30*units.MM
// is 0.03 (metres) and 61.79*units.MHz is 6.179e7 (hertz).
package units

import "math"

// Physical constants (CODATA 2018).
const (
	Mu0      = 1.25663706212e-6 // vacuum permeability, T·m/A
	KB       = 1.380649e-23     // Boltzmann constant, J/K
	Hbar     = 1.054571817e-34  // reduced Planck constant, J·s
	Avogadro = 6.02214076e23    // 1/mol
	GammaP   = 2.6752218744e8   // free proton gyromagnetic ratio, rad/(s·T)
	T0       = -273.15          // 0 °C offset relative to kelvin
	TwoPi    = 2 * math.Pi
)

// Scale factors.
const (
	M  = 1.0
	CM = 1e-2
	MM = 1e-3

	S  = 1.0
	MS = 1e-3
	US = 1e-6
	NS = 1e-9

	Hz  = 1.0
	KHz = 1e3
	MHz = 1e6

	Tesla = 1.0
	MT    = 1e-3
	UT    = 1e-6

	A = 1.0
	K = 1.0

	G   = 1e-3
	KG  = 1.0
	Mol = 1.0

	Pc  = 1e-2
	PPM = 1e-6
	PPB = 1e-9
	PPT = 1e-12
	PPQ = 1e-15
)

// Celsius converts a temperature in °C to kelvin.
func Celsius(c float64) float64 {
	return c - T0
}
