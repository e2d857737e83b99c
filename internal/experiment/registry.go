package experiment

import (
	"fmt"
	"slices"

	"github.com/san-kum/fidsim/internal/coil"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/probe"
)

type Registry struct {
	probes  map[string]probe.Config
	coils   map[string]func() *coil.Coil
	magnets map[string]func(b0 float64) *field.Multipole
}

func NewRegistry() *Registry {
	r := &Registry{
		probes:  make(map[string]probe.Config),
		coils:   make(map[string]func() *coil.Coil),
		magnets: make(map[string]func(float64) *field.Multipole),
	}

	r.probes["fixed"] = probe.FixedProbe
	r.probes["plunging"] = probe.PlungingProbe

	r.coils["fixed"] = coil.FixedProbeCoil
	r.coils["plunging"] = coil.PlungingProbeCoil

	r.magnets["storage-ring"] = field.NewMultipole

	return r
}

func (r *Registry) GetProbe(name string) (probe.Config, error) {
	cfg, ok := r.probes[name]
	if !ok {
		return probe.Config{}, fmt.Errorf("unknown probe: %s", name)
	}
	return cfg, nil
}

func (r *Registry) GetCoil(name string) (*coil.Coil, error) {
	fn, ok := r.coils[name]
	if !ok {
		return nil, fmt.Errorf("unknown coil: %s", name)
	}
	return fn(), nil
}

// GetMagnet builds the named magnet with main field b0 and applies the
// relative multipole strengths in index order.
func (r *Registry) GetMagnet(name string, b0 float64, multipoles map[int]float64) (*field.Multipole, error) {
	fn, ok := r.magnets[name]
	if !ok {
		return nil, fmt.Errorf("unknown magnet: %s", name)
	}
	m := fn(b0)

	indices := make([]int, 0, len(multipoles))
	for i := range multipoles {
		indices = append(indices, i)
	}
	slices.Sort(indices)
	for _, i := range indices {
		if err := m.SetStrengthAt1cm(i, multipoles[i]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (r *Registry) ListProbes() []string {
	return sortedKeys(r.probes)
}

func (r *Registry) ListCoils() []string {
	return sortedKeys(r.coils)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
