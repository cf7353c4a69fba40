// Package time provides time-domain signal statistics used to check rendered
// audio: levels, peaks and sample-to-sample slopes.
package time

import "math"

// RMS returns the root-mean-square of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sumSq float64
	for _, x := range signal {
		sumSq += x * x
	}
	return math.Sqrt(sumSq / float64(len(signal)))
}

// DC returns the mean of the signal.
func DC(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	// Kahan summation.
	var sum, c float64
	for _, x := range signal {
		y := x - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}
	return sum / float64(len(signal))
}

// Peak returns the largest absolute sample.
func Peak(signal []float64) float64 {
	var peak float64
	for _, x := range signal {
		peak = max(peak, math.Abs(x))
	}
	return peak
}

// CrestFactor returns peak / RMS, or 0 for silence.
func CrestFactor(signal []float64) float64 {
	r := RMS(signal)
	if r == 0 {
		return 0
	}
	return Peak(signal) / r
}

// MaxAbsDelta returns the largest |x[i] - x[i-1]|.
func MaxAbsDelta(signal []float64) float64 {
	var d float64
	for i := 1; i < len(signal); i++ {
		d = max(d, math.Abs(signal[i]-signal[i-1]))
	}
	return d
}

// MeanAbsDelta returns the mean of |x[i] - x[i-1]|, a measure of the typical
// slope of the signal.
func MeanAbsDelta(signal []float64) float64 {
	if len(signal) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(signal); i++ {
		sum += math.Abs(signal[i] - signal[i-1])
	}
	return sum / float64(len(signal)-1)
}

// BlockRMS writes the RMS of consecutive blocks of size samples into dst and
// returns the number of blocks written. A trailing partial block is ignored.
func BlockRMS(dst, signal []float64, size int) int {
	if size <= 0 {
		return 0
	}
	n := min(len(dst), len(signal)/size)
	for b := 0; b < n; b++ {
		dst[b] = RMS(signal[b*size : (b+1)*size])
	}
	return n
}
