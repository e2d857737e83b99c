// Package noise generates additive noise and drift for sampled signals.
package noise

import (
	"math"
	"math/rand/v2"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/fidsim/internal/analysis"
)

// Noise combines independent noise terms. A nil field disables its term;
// colored noise needs both FreqPower and FreqScale, exponential drift
// both DriftExp and DriftExpTime.
type Noise struct {
	White        *float64 `yaml:"white,omitempty" json:"white,omitempty"`
	FreqPower    *float64 `yaml:"freq_power,omitempty" json:"freq_power,omitempty"`
	FreqScale    *float64 `yaml:"freq_scale,omitempty" json:"freq_scale,omitempty"`
	DriftLinear  *float64 `yaml:"drift_linear,omitempty" json:"drift_linear,omitempty"`
	DriftExp     *float64 `yaml:"drift_exp,omitempty" json:"drift_exp,omitempty"`
	DriftExpTime *float64 `yaml:"drift_exp_time,omitempty" json:"drift_exp_time,omitempty"`
}

// Float returns a pointer to v, for building Noise literals.
func Float(v float64) *float64 {
	return &v
}

// Enabled reports whether any term is active.
func (n Noise) Enabled() bool {
	return n.colored() || n.White != nil || n.DriftLinear != nil || n.exponential()
}

func (n Noise) colored() bool     { return n.FreqPower != nil && n.FreqScale != nil }
func (n Noise) exponential() bool { return n.DriftExp != nil && n.DriftExpTime != nil }

// Generate returns the noise at each time. Colored noise is drawn before
// white noise, so a seeded rng reproduces the same series. Colored noise
// assumes uniform sampling.
func (n Noise) Generate(times []float64, rng *rand.Rand) []float64 {
	out := make([]float64, len(times))

	if n.colored() && len(times) > 1 {
		for i, v := range n.coloredNoise(times, rng) {
			out[i] += v
		}
	}

	if n.White != nil {
		g := distuv.Normal{Mu: 0, Sigma: *n.White, Src: rng}
		for i := range out {
			out[i] += g.Rand()
		}
	}

	if n.DriftLinear != nil {
		for i, t := range times {
			out[i] += t * *n.DriftLinear
		}
	}

	if n.exponential() {
		for i, t := range times {
			out[i] += *n.DriftExp * math.Exp(-t / *n.DriftExpTime)
		}
	}

	return out
}

// coloredNoise shapes white noise to a |f|^power power spectral density.
func (n Noise) coloredNoise(times []float64, rng *rand.Rand) []float64 {
	g := distuv.Normal{Mu: 0, Sigma: *n.FreqScale, Src: rng}
	white := make([]float64, len(times))
	for i := range white {
		white[i] = g.Rand()
	}

	spec := fft.FFTReal(white)
	freqs := analysis.FFTFreq(len(times), times[1]-times[0])
	for i, f := range freqs {
		if f == 0 {
			spec[i] = 0
			continue
		}
		spec[i] *= complex(math.Pow(math.Abs(f), *n.FreqPower/2), 0)
	}

	shaped := fft.IFFT(spec)
	out := make([]float64, len(shaped))
	for i, v := range shaped {
		out[i] = real(v)
	}
	return out
}

// Add returns signal plus noise generated on times. Both must have the
// same length.
func (n Noise) Add(signal, times []float64, rng *rand.Rand) []float64 {
	out := n.Generate(times, rng)
	for i := range out {
		out[i] += signal[i]
	}
	return out
}
