package analysis

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// minSamples is the shortest series with a frequency bin besides zero.
const minSamples = 4

var (
	ErrTooShort = errors.New("analysis: series too short for a spectrum")
	ErrFlat     = errors.New("analysis: series has no oscillation")
)

// Spectrum returns the amplitude of each frequency bin 0..n/2 of samples
// after removing their mean.
func Spectrum(samples []float64) ([]float64, error) {
	if len(samples) < minSamples {
		return nil, ErrTooShort
	}
	mean := stat.Mean(samples, nil)
	centred := make([]float64, len(samples))
	for i, v := range samples {
		centred[i] = v - mean
	}

	fft := fourier.NewFFT(len(centred))
	coeffs := fft.Coefficients(nil, centred)
	amp := make([]float64, len(coeffs))
	scale := 2 / float64(len(samples))
	for i, c := range coeffs {
		amp[i] = scale * cmplx.Abs(c)
	}
	return amp, nil
}

// DominantFrequency returns the frequency, in cycles per unit time, of the
// largest spectral peak of samples taken every dt.
func DominantFrequency(samples []float64, dt float64) (float64, error) {
	amp, err := Spectrum(samples)
	if err != nil {
		return 0, err
	}
	k := floats.MaxIdx(amp[1:]) + 1
	if amp[k] == 0 {
		return 0, ErrFlat
	}
	return fourier.NewFFT(len(samples)).Freq(k) / dt, nil
}

// Frequencies returns the frequency of each bin of Spectrum for n samples
// taken every dt.
func Frequencies(n int, dt float64) []float64 {
	fft := fourier.NewFFT(n)
	freqs := make([]float64, n/2+1)
	for i := range freqs {
		freqs[i] = fft.Freq(i) / dt
	}
	return freqs
}
