//go:build fastmath

package fdn

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

// pow10 computes 10^x as e^(x*ln10) using fast approximation.
func pow10(x float64) float64 {
	return approx.FastExp(x * math.Ln10)
}

// sqrt computes sqrt(x) using fast approximation.
func sqrt(x float64) float64 {
	return approx.FastSqrt(x)
}
