// Package field models static magnetic fields.
//
// A [Source] is anything that yields a field vector at a point. The
// storage-ring magnet is described by [Multipole], a weighted sum of 24
// fixed polynomial basis fields; RF coils in package coil satisfy the same
// interface, so probes consume both identically.
package field

import "gonum.org/v1/gonum/spatial/r3"

// Source evaluates a magnetic field (tesla) at a point (metres).
type Source interface {
	Evaluate(x, y, z float64) r3.Vec
}

// SourceFunc adapts a plain function to a Source.
type SourceFunc func(x, y, z float64) r3.Vec

func (f SourceFunc) Evaluate(x, y, z float64) r3.Vec {
	return f(x, y, z)
}

// Uniform is a homogeneous field.
type Uniform r3.Vec

func (u Uniform) Evaluate(_, _, _ float64) r3.Vec {
	return r3.Vec(u)
}
