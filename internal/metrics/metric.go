// Package metrics summarises Bloch trajectories.
package metrics

import "github.com/san-kum/fidsim/internal/probe"

// Metric observes every snapshot of a numerical excitation.
type Metric interface {
	Name() string
	Observe(s probe.Snapshot)
	Value() float64
	Reset()
}

// Defaults returns a fresh set of the standard trajectory metrics.
func Defaults() []Metric {
	return []Metric{
		NewCenterNormDrift(),
		NewMeanTransverse(),
		NewBounded(1e-6),
	}
}

// ObserveAll feeds a trajectory to every metric and returns their values
// keyed by name.
func ObserveAll(history []probe.Snapshot, ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for _, s := range history {
			m.Observe(s)
		}
		out[m.Name()] = m.Value()
	}
	return out
}
