// Package flux computes the EMF a precessing cell ensemble induces in a
// pickup coil.
//
// After a pulse every cell precesses about its local static field B0 with
// transverse amplitude µT and decays with T2. Faraday's law gives, per cell,
//
//	EMF_i(t) = M_i·A_i·[B1x_i·cos(ω_i·t − φ_i) + B1z_i·sin(ω_i·t − φ_i)]·e^(−t/T2)
//
// with A_i = µT_i·√((γB0_i)² + 1/T2²), φ_i = atan(1/(T2·γ·B0_i)) and
// ω_i = γ·B0_i − 2π·f_mix. The coil field B1 weights each cell by how well
// it couples to the coil; it is normalised either by the ensemble mean or
// per cell. The total is scaled by N·µ0·πr²/N_cells.
//
// Times are processed in chunks of at most MaxOps cell-time products, and
// each sample is summed over the cells in a fixed order, so the result does
// not depend on the chunk size.
package flux

import (
	"fmt"
	"iter"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/field"
	"github.com/san-kum/fidsim/internal/units"
)

// DefaultMaxOps bounds the cell-time products evaluated per chunk.
const DefaultMaxOps = 10_000_000

type Normalization int

const (
	// Average divides by the ensemble mean of |B1|.
	Average Normalization = iota
	// PerCell divides each cell's coupling by its own |B1|.
	PerCell
)

func (n Normalization) String() string {
	switch n {
	case Average:
		return "average"
	case PerCell:
		return "per-cell"
	}
	return fmt.Sprintf("Normalization(%d)", int(n))
}

// ParseNormalization accepts "average" (or "") and "per-cell".
func ParseNormalization(s string) (Normalization, error) {
	switch s {
	case "", "average":
		return Average, nil
	case "per-cell", "percell":
		return PerCell, nil
	}
	return Average, dynamo.InvalidParam("normalization", s, "must be average or per-cell")
}

// Ensemble is the driven state of a probe's cells, index-aligned. The
// coupling terms B1x, B1z and B1 are the pickup coil's field at each cell;
// X, Y and Z locate the cells so another coil can be coupled with Recouple.
type Ensemble struct {
	X             []float64
	Y             []float64
	Z             []float64
	MuT           []float64
	B0            []float64
	B1x           []float64
	B1z           []float64
	B1            []float64
	Magnetization []float64

	Gamma float64
	T2    float64
}

// Len returns the number of cells.
func (e Ensemble) Len() int {
	return len(e.B0)
}

// Recouple returns a copy of e whose coupling terms are the field of src at
// every cell position.
func (e Ensemble) Recouple(src field.Source, workers int) (Ensemble, error) {
	n := e.Len()
	if len(e.X) != n || len(e.Y) != n || len(e.Z) != n {
		return Ensemble{}, fmt.Errorf("%w: ensemble carries no cell positions", dynamo.ErrInvalidParameter)
	}

	out := e
	out.B1x = make([]float64, n)
	out.B1z = make([]float64, n)
	out.B1 = make([]float64, n)
	dynamo.ParallelFor(n, 16, workers, func(start, end int) {
		for i := start; i < end; i++ {
			b := src.Evaluate(e.X[i], e.Y[i], e.Z[i])
			out.B1x[i], out.B1z[i] = b.X, b.Z
			out.B1[i] = r3.Norm(b)
		}
	})
	return out, nil
}

// Coil is the pickup geometry.
type Coil struct {
	Turns  float64
	Radius float64
}

type Options struct {
	MixDown       float64 // Hz
	Normalization Normalization
	MaxOps        int
	Workers       int
}

func (e Ensemble) validate() error {
	n := e.Len()
	if n == 0 {
		return dynamo.InvalidParam("cells", 0, "ensemble is empty")
	}
	for name, s := range map[string][]float64{
		"mu_t":          e.MuT,
		"b1x":           e.B1x,
		"b1z":           e.B1z,
		"b1":            e.B1,
		"magnetization": e.Magnetization,
	} {
		if len(s) != n {
			return fmt.Errorf("%w: %s has %d entries, want %d", dynamo.ErrInvalidParameter, name, len(s), n)
		}
	}
	if !(e.T2 > 0) {
		return dynamo.InvalidParam("t2", e.T2, "must be positive")
	}
	return nil
}

// Chunks yields [start, end) windows covering [0, n) in order.
func Chunks(n, size int) iter.Seq2[int, int] {
	if size < 1 {
		size = 1
	}
	return func(yield func(int, int) bool) {
		for start := 0; start < n; start += size {
			if !yield(start, min(start+size, n)) {
				return
			}
		}
	}
}

// ChunkSize returns the number of time samples per chunk for nCells cells.
func ChunkSize(nCells, maxOps int) int {
	if maxOps <= 0 {
		maxOps = DefaultMaxOps
	}
	return max(1, maxOps/max(1, nCells))
}

// Compute evaluates the induced EMF at every time in times.
func Compute(e Ensemble, c Coil, times []float64, opts Options) ([]float64, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	n := e.Len()

	norm := 0.0
	if opts.Normalization == Average {
		norm = stat.Mean(e.B1, nil)
		if norm == 0 {
			return nil, fmt.Errorf("%w: mean coil field is zero", dynamo.ErrNumericalInstability)
		}
	}

	weight := make([]float64, n)
	phase := make([]float64, n)
	omega := make([]float64, n)
	mix := units.TwoPi * opts.MixDown
	invT2 := 1 / e.T2

	for i := range n {
		larmor := e.Gamma * e.B0[i]
		if larmor == 0 {
			return nil, fmt.Errorf("%w: cell %d has zero static field", dynamo.ErrNumericalInstability, i)
		}
		amp := e.MuT[i] * math.Sqrt(larmor*larmor+invT2*invT2)

		w := e.Magnetization[i] * amp
		if opts.Normalization == PerCell {
			if e.B1[i] == 0 {
				return nil, fmt.Errorf("%w: cell %d has zero coil field", dynamo.ErrNumericalInstability, i)
			}
			w /= e.B1[i]
		} else {
			w /= norm
		}

		weight[i] = w
		phase[i] = math.Atan(1 / (e.T2 * larmor))
		omega[i] = larmor - mix
	}

	prefactor := c.Turns * units.Mu0 * math.Pi * c.Radius * c.Radius / float64(n)
	out := make([]float64, len(times))

	eval := func(start, end int) {
		for i := range n {
			w, bx, bz := weight[i], e.B1x[i], e.B1z[i]
			for k := start; k < end; k++ {
				arg := omega[i]*times[k] - phase[i]
				s, co := math.Sincos(arg)
				out[k] += w * (bx*co + bz*s)
			}
		}
		for k := start; k < end; k++ {
			out[k] *= prefactor * math.Exp(-times[k]*invT2)
		}
	}

	size := ChunkSize(n, opts.MaxOps)
	if opts.Workers > 1 {
		var windows [][2]int
		for s, end := range Chunks(len(times), size) {
			windows = append(windows, [2]int{s, end})
		}
		dynamo.ParallelFor(len(windows), 1, opts.Workers, func(lo, hi int) {
			for _, w := range windows[lo:hi] {
				eval(w[0], w[1])
			}
		})
		return out, nil
	}

	for start, end := range Chunks(len(times), size) {
		eval(start, end)
	}
	return out, nil
}
