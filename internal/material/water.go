package material

import "github.com/san-kum/fidsim/internal/units"

// Temperature-dependent corrections for protons in a spherical water sample.
// All temperatures are in kelvin.

// ShieldingH2O is the diamagnetic shielding of protons in water.
func ShieldingH2O(t float64) float64 {
	return 25691e-9 - 10.36e-9*(t-units.Celsius(25))
}

// SusceptibilityH2O is the volume magnetic susceptibility of water.
func SusceptibilityH2O(t float64) float64 {
	d := t - units.Celsius(20)
	return -9049e-9 * (1 + 1.39e-4*d - 1.27e-7*d*d + 8.09e-10*d*d*d)
}

// BulkShapeCorrection is the susceptibility shift of a cylindrical sample
// relative to a sphere.
func BulkShapeCorrection(t float64) float64 {
	return (0.49991537 - 1.0/3) * SusceptibilityH2O(t)
}

// ProtonGyromagneticRatio is the effective proton γ measured in water at t.
func ProtonGyromagneticRatio(t float64) float64 {
	return units.GammaP * (1 - ShieldingH2O(t) - BulkShapeCorrection(t) + 5.5*units.PPB)
}
