package fdn

import (
	"math"
)

// minLineGain keeps per-pass gains representable for very short decays.
const minLineGain = 1e-30

// minNormalization is the output gain floor reached in sustain mode.
const minNormalization = 0.02

// LineGain returns the per-pass gain of a line of delaySamples so that
// repeated passes decay by 60 dB after rt60 seconds:
//
//	g = 10^(-3 * delaySamples / (fs * rt60))
//
// An infinite rt60 is sustain and returns 1.
func LineGain(delaySamples, rt60, sampleRate float64) float64 {
	if math.IsInf(rt60, 1) {
		return 1
	}
	if rt60 <= 0 {
		return minLineGain
	}
	return max(pow10(-3*delaySamples/(sampleRate*rt60)), minLineGain)
}

// NormalizationGain returns an output gain that keeps the steady-state
// loudness of a network roughly constant across decay times and diffusion.
//
// A recirculating loop with per-pass energy gain g² builds up power
// 1/(1-g²) for stationary input, so the gain is sqrt(1-g²) with
// g² = 10^(-6*meanDelay/rt60). Diffusion adds energy through extra taps and
// is compensated by 1/sqrt(1 + comp*diffusion). Sustain mode (infinite rt60)
// is floored instead of reaching zero.
func NormalizationGain(meanDelaySeconds, rt60, diffusion, comp float64) float64 {
	var g float64
	switch {
	case math.IsInf(rt60, 1):
		g = minNormalization
	case rt60 <= 0 || meanDelaySeconds <= 0:
		g = 1
	default:
		g2 := pow10(-6 * meanDelaySeconds / rt60)
		g = max(sqrt(1-g2), minNormalization)
	}
	d := max(diffusion, 0)
	return g / sqrt(1+max(comp, 0)*d)
}
