package coil

import "github.com/san-kum/fidsim/internal/units"

// FixedProbeCoil is the RF coil wound around a fixed probe.
func FixedProbeCoil() *Coil {
	return mustNew(30, 15*units.MM, 4.6*units.MM, 0.7*units.A)
}

// PlungingProbeCoil is the RF coil of the plunging probe; its diameter is
// measured to the centre of the 0.97 mm wire.
func PlungingProbeCoil() *Coil {
	return mustNew(5.5, 10*units.MM, 15.065*units.MM+0.97*units.MM/2, 0.7*units.A)
}

var presets = map[string]func() *Coil{
	"fixed":    FixedProbeCoil,
	"plunging": PlungingProbeCoil,
}

// Preset returns a new coil for a registered preset name.
func Preset(name string) (*Coil, bool) {
	f, ok := presets[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

func mustNew(turns, length, diameter, current float64) *Coil {
	c, err := New(turns, length, diameter, current)
	if err != nil {
		panic(err)
	}
	return c
}
