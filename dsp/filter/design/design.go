package design

import (
	"math"

	"github.com/cwbudde/algo-reverb/dsp/filter/biquad"
)

const defaultQ = 1 / math.Sqrt2

// rbj holds the bilinear-transform terms of the Audio EQ Cookbook.
type rbj struct {
	cos, alpha float64
	amp        float64 // sqrt of the linear gain
}

// prewarp returns the cookbook terms, or false when freq is not strictly
// between DC and Nyquist. Invalid q falls back to Butterworth.
func prewarp(freq, q, gainDB, sampleRate float64) (rbj, bool) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) ||
		!(freq > 0) || freq >= sampleRate/2 || math.IsInf(freq, 0) {
		return rbj{}, false
	}
	if !(q > 0) || math.IsInf(q, 0) {
		q = defaultQ
	}
	w0 := 2 * math.Pi * freq / sampleRate
	return rbj{
		cos:   math.Cos(w0),
		alpha: math.Sin(w0) / (2 * q),
		amp:   math.Pow(10, gainDB/40),
	}, true
}

// Lowpass is a second-order lowpass at freq Hz.
func Lowpass(freq, q, sampleRate float64) biquad.Coefficients {
	r, ok := prewarp(freq, q, 0, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}
	b := (1 - r.cos) / 2
	return normalize(b, 2*b, b, 1+r.alpha, -2*r.cos, 1-r.alpha)
}

// Highpass is a second-order highpass at freq Hz.
func Highpass(freq, q, sampleRate float64) biquad.Coefficients {
	r, ok := prewarp(freq, q, 0, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}
	b := (1 + r.cos) / 2
	return normalize(b, -2*b, b, 1+r.alpha, -2*r.cos, 1-r.alpha)
}

// Peak is a bell boosting or cutting gainDB around freq Hz.
func Peak(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	r, ok := prewarp(freq, q, gainDB, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}
	return normalize(
		1+r.alpha*r.amp, -2*r.cos, 1-r.alpha*r.amp,
		1+r.alpha/r.amp, -2*r.cos, 1-r.alpha/r.amp,
	)
}

// LowShelf applies gainDB below freq Hz.
func LowShelf(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	return shelf(freq, gainDB, q, sampleRate, 1)
}

// HighShelf applies gainDB above freq Hz.
func HighShelf(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	return shelf(freq, gainDB, q, sampleRate, -1)
}

// shelf evaluates the cookbook shelf; side is +1 for low, -1 for high.
func shelf(freq, gainDB, q, sampleRate, side float64) biquad.Coefficients {
	r, ok := prewarp(freq, q, gainDB, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}
	a := r.amp
	c := side * r.cos
	beta := 2 * math.Sqrt(a) * r.alpha
	return normalize(
		a*((a+1)-(a-1)*c+beta), side*2*a*((a-1)-(a+1)*c), a*((a+1)-(a-1)*c-beta),
		(a+1)+(a-1)*c+beta, -side*2*((a-1)+(a+1)*c), (a+1)+(a-1)*c-beta,
	)
}

// ButterworthLP returns an order-N Butterworth lowpass as a cascade. Odd
// orders end with a first-order section.
func ButterworthLP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	return butterworth(freq, order, sampleRate, Lowpass, firstOrder(false))
}

// ButterworthHP returns an order-N Butterworth highpass as a cascade.
func ButterworthHP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	return butterworth(freq, order, sampleRate, Highpass, firstOrder(true))
}

func butterworth(freq float64, order int, sampleRate float64,
	second func(freq, q, sampleRate float64) biquad.Coefficients,
	first func(freq, sampleRate float64) biquad.Coefficients,
) []biquad.Coefficients {
	if order <= 0 {
		return nil
	}
	out := make([]biquad.Coefficients, 0, (order+1)/2)
	// Pole pairs from the least to the most resonant.
	for i := order/2 - 1; i >= 0; i-- {
		theta := math.Pi * float64(2*i+1) / float64(2*order)
		out = append(out, second(freq, 1/(2*math.Sin(theta)), sampleRate))
	}
	if order%2 == 1 {
		out = append(out, first(freq, sampleRate))
	}
	return out
}

func firstOrder(highpass bool) func(freq, sampleRate float64) biquad.Coefficients {
	return func(freq, sampleRate float64) biquad.Coefficients {
		if _, ok := prewarp(freq, defaultQ, 0, sampleRate); !ok {
			return biquad.Coefficients{}
		}
		k := math.Tan(math.Pi * freq / sampleRate)
		n := 1 / (1 + k)
		if highpass {
			return biquad.Coefficients{B0: n, B1: -n, A1: (k - 1) * n}
		}
		return biquad.Coefficients{B0: k * n, B1: k * n, A1: (k - 1) * n}
	}
}

func normalize(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return biquad.Coefficients{}
	}
	return biquad.Coefficients{B0: b0 / a0, B1: b1 / a0, B2: b2 / a0, A1: a1 / a0, A2: a2 / a0}
}
