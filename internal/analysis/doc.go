// Package analysis extracts frequencies and decay constants from FID
// traces.
//
//   - [Spectrum]: single-sided amplitude spectrum of a sampled signal
//   - [DominantFrequency]: location of the largest non-DC spectral peak
//   - [ZeroCrossingFrequency]: frequency from interpolated zero crossings
//   - [EstimateT2]: exponential decay constant of the signal envelope
//
// # Spectra
//
// Transforms go through go-dsp and accept any length:
//
//	freqs, amp := analysis.Spectrum(flux, dt)
//	f := analysis.DominantFrequency(flux, dt)
package analysis
