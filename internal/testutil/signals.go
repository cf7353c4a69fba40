// Package testutil holds deterministic test signals and numeric assertions
// shared by the package tests.
package testutil

import (
	"math"

	"github.com/cwbudde/algo-reverb/dsp/rng"
)

// DeterministicSine generates a sine wave starting at phase 0.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates uniform white noise in [-amplitude, amplitude)
// from a fixed seed.
func DeterministicNoise(seed uint64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	r := rng.New(seed)
	for i := range out {
		out[i] = r.Uniform(-amplitude, amplitude)
	}
	return out
}

// Impulse generates a unit impulse at pos.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// AlternatingCharacter switches between two spectrally distinct signals every
// segment samples: a dark tone cluster (110, 220 and 330 Hz) and bright
// white noise. The first segment is the tone cluster.
func AlternatingCharacter(sampleRate float64, segment, segments int, seed uint64) []float64 {
	out := make([]float64, segment*segments)
	noise := rng.New(seed)
	for s := 0; s < segments; s++ {
		block := out[s*segment : (s+1)*segment]
		if s%2 == 0 {
			for i := range block {
				t := float64(s*segment+i) / sampleRate
				block[i] = 0.3*math.Sin(2*math.Pi*110*t) +
					0.2*math.Sin(2*math.Pi*220*t) +
					0.1*math.Sin(2*math.Pi*330*t)
			}
			continue
		}
		for i := range block {
			block[i] = noise.Uniform(-0.5, 0.5)
		}
	}
	return out
}
