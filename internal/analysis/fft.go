package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT zero-pads data to the next power of two and returns its discrete
// Fourier transform.
func FFT(data []float64) []complex128 {
	buf := make([]float64, nextPow2(len(data)))
	copy(buf, data)
	return fft.FFTReal(buf)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PowerSpectrum returns the magnitudes of the non-negative frequency bins.
func PowerSpectrum(data []float64) []float64 {
	bins := FFT(data)
	ps := make([]float64, len(bins)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(bins[i])
	}
	return ps
}

// DominantFrequency is the frequency in Hz of the strongest non-DC bin of a
// series sampled every dt seconds. The mean is removed first. Returns 0 for
// series too short to resolve any oscillation.
func DominantFrequency(series []float64, dt float64) float64 {
	if len(series) < 4 || dt <= 0 {
		return 0
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	centered := make([]float64, len(series))
	for i, v := range series {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	if ps[best] < 1e-12 {
		return 0
	}
	return float64(best) / (float64(nextPow2(len(series))) * dt)
}
