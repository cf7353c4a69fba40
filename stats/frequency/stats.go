// Package frequency provides descriptors of one-sided magnitude spectra.
//
// Spectra run from DC (bin 0) to Nyquist, so the frequency of bin i is
//
//	f_i = i * sampleRate / (2 * (len(magnitude) - 1))
package frequency

import (
	"math"

	"github.com/tphakala/simd/f64"
)

// binFreq returns the frequency in Hz of a given bin index.
func binFreq(i int, sampleRate float64, binCount int) float64 {
	return float64(i) * sampleRate / float64(2*(binCount-1))
}

// Centroid returns the spectral centroid in Hz.
//
//	centroid = sum(f_i * |X_i|) / sum(|X_i|)
func Centroid(magnitude []float64, sampleRate float64) float64 {
	n := len(magnitude)
	if n < 2 {
		return 0
	}
	sum := f64.Sum(magnitude)
	if sum == 0 {
		return 0
	}
	var weighted float64
	for i, v := range magnitude {
		weighted += binFreq(i, sampleRate, n) * v
	}
	return weighted / sum
}

// Flatness returns the spectral flatness (Wiener entropy) in 0..1:
//
//	Flatness = exp(mean(log(|X_i|))) / mean(|X_i|)
//
// The DC bin is excluded. A spectrum with any zero bin, or no energy, has
// flatness 0.
func Flatness(magnitude []float64) float64 {
	n := len(magnitude)
	if n < 2 {
		return 0
	}
	bins := magnitude[1:]
	meanLin := f64.Sum(bins) / float64(len(bins))
	if meanLin == 0 {
		return 0
	}
	var sumLog float64
	for _, v := range bins {
		if v <= 0 {
			return 0
		}
		sumLog += math.Log(v)
	}
	return math.Exp(sumLog/float64(len(bins))) / meanLin
}

// Similarity returns the cosine similarity of two spectra of equal length.
// ok is false when either spectrum has no energy, in which case the
// similarity is undefined.
func Similarity(a, b []float64) (sim float64, ok bool) {
	n := min(len(a), len(b))
	if n == 0 {
		return 0, false
	}
	a, b = a[:n], b[:n]
	ea := f64.DotProduct(a, a)
	eb := f64.DotProduct(b, b)
	if ea <= 0 || eb <= 0 {
		return 0, false
	}
	return f64.DotProduct(a, b) / math.Sqrt(ea*eb), true
}
