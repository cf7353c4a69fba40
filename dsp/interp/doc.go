// Package interp provides interpolation primitives used by delay-based DSP
// blocks: odd-order Lagrange interpolation with coefficients precomputed per
// fractional step, so the per-sample cost is a short dot product.
package interp
