package noise

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func grid(n int, dt float64) []float64 {
	times := make([]float64, n)
	floats.Span(times, 0, float64(n-1)*dt)
	return times
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestGenerate_Disabled(t *testing.T) {
	times := grid(128, 1e-6)
	out := Noise{}.Generate(times, seeded(1))

	require.Len(t, out, len(times))
	for _, v := range out {
		require.Zero(t, v)
	}
	assert.False(t, Noise{}.Enabled())
}

func TestGenerate_PartialTermsIgnored(t *testing.T) {
	// colored needs both power and scale, exponential both amplitude and time
	n := Noise{FreqPower: Float(1), DriftExp: Float(2)}
	out := n.Generate(grid(16, 1), seeded(1))

	assert.False(t, n.Enabled())
	for _, v := range out {
		assert.Zero(t, v)
	}
}

func TestGenerate_WhiteDeterministic(t *testing.T) {
	n := Noise{White: Float(0.5)}
	times := grid(4096, 1e-6)

	a := n.Generate(times, seeded(42))
	b := n.Generate(times, seeded(42))
	require.Equal(t, a, b)

	c := n.Generate(times, seeded(43))
	assert.NotEqual(t, a, c)

	assert.InDelta(t, 0, stat.Mean(a, nil), 0.05)
	assert.InDelta(t, 0.5, stat.StdDev(a, nil), 0.05)
}

func TestGenerate_Drifts(t *testing.T) {
	n := Noise{DriftLinear: Float(2), DriftExp: Float(3), DriftExpTime: Float(0.5)}
	times := []float64{0, 0.5, 1}
	out := n.Generate(times, seeded(1))

	for i, tt := range times {
		want := 2*tt + 3*math.Exp(-tt/0.5)
		assert.InDelta(t, want, out[i], 1e-12)
	}
}

func TestGenerate_ColoredHasNoDC(t *testing.T) {
	n := Noise{FreqPower: Float(-1), FreqScale: Float(1)}
	times := grid(1000, 1e-3)

	a := n.Generate(times, seeded(7))
	b := n.Generate(times, seeded(7))
	require.Equal(t, a, b)

	assert.InDelta(t, 0, floats.Sum(a), 1e-9)
	assert.Greater(t, stat.StdDev(a, nil), 0.0)
}

func TestAdd(t *testing.T) {
	n := Noise{DriftLinear: Float(1)}
	times := []float64{0, 1, 2}
	signal := []float64{10, 10, 10}

	assert.Equal(t, []float64{10, 11, 12}, n.Add(signal, times, seeded(1)))
}
