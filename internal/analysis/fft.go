package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT returns the discrete Fourier transform of data.
func FFT(data []float64) []complex128 {
	return fft.FFTReal(data)
}

// FFTFreq returns the sample frequencies of an n-point transform with
// sample spacing d, in the usual order: 0, positive, then negative.
func FFTFreq(n int, d float64) []float64 {
	freqs := make([]float64, n)
	if n == 0 {
		return freqs
	}
	scale := 1 / (float64(n) * d)
	half := (n-1)/2 + 1
	for i := range half {
		freqs[i] = float64(i) * scale
	}
	for i := half; i < n; i++ {
		freqs[i] = float64(i-n) * scale
	}
	return freqs
}

// PowerSpectrum returns |X_k| for the non-negative frequency bins.
func PowerSpectrum(data []float64) []float64 {
	x := FFT(data)
	ps := make([]float64, len(x)/2+len(x)%2)

	for i := range ps {
		ps[i] = cmplx.Abs(x[i])
	}

	return ps
}

// Spectrum returns the non-negative frequencies and the normalised
// amplitude 2|X_k|/n of a signal sampled every dt.
func Spectrum(signal []float64, dt float64) (freqs, amp []float64) {
	n := len(signal)
	if n == 0 {
		return nil, nil
	}
	ps := PowerSpectrum(signal)
	all := FFTFreq(n, dt)

	freqs = all[:len(ps)]
	amp = make([]float64, len(ps))
	for i, v := range ps {
		amp[i] = 2 * v / float64(n)
	}
	amp[0] /= 2
	return freqs, amp
}

// DominantFrequency returns the frequency of the largest spectral bin,
// DC excluded unless the signal has a single bin.
func DominantFrequency(signal []float64, dt float64) float64 {
	freqs, amp := Spectrum(signal, dt)
	if len(amp) < 2 {
		return 0
	}
	best := 1
	for i := 2; i < len(amp); i++ {
		if amp[i] > amp[best] {
			best = i
		}
	}
	return freqs[best]
}
