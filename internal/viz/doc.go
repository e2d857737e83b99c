// Package viz shows a numerical RF excitation live in the terminal.
//
// [Model] is a Bubble Tea model that steps a [probe.BlochRun] a few
// integrator steps per frame. It draws the centre cell's transverse
// magnetization on a Braille [Canvas] and the ensemble means with
// asciigraph.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	+/-   - More/fewer steps per frame
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
