package interp

import "fmt"

// DefaultTableResolution is the number of fractional steps per sample used when
// a caller does not choose one.
const DefaultTableResolution = 1024

// LagrangeTable holds Lagrange interpolation coefficients for a fixed odd order,
// one row per fractional step in [0, 1].
//
// Row r interpolates at fraction r/resolution between points 0 and 1 of a
// window that spans offsets -(order-1)/2 ... (order+1)/2.
type LagrangeTable struct {
	order      int
	taps       int
	resolution int
	coeffs     []float64
}

// NewLagrangeTable builds a coefficient table. order must be odd in [1, 7]
// and resolution >= 1.
func NewLagrangeTable(order, resolution int) (*LagrangeTable, error) {
	if order < 1 || order > 7 || order%2 == 0 {
		return nil, fmt.Errorf("lagrange order must be odd in [1, 7]: %d", order)
	}
	if resolution < 1 {
		return nil, fmt.Errorf("lagrange table resolution must be >= 1: %d", resolution)
	}

	taps := order + 1
	t := &LagrangeTable{
		order:      order,
		taps:       taps,
		resolution: resolution,
		coeffs:     make([]float64, (resolution+1)*taps),
	}

	first := -(order - 1) / 2
	for r := 0; r <= resolution; r++ {
		frac := float64(r) / float64(resolution)
		row := t.coeffs[r*taps : (r+1)*taps]
		for k := 0; k < taps; k++ {
			xk := float64(first + k)
			h := 1.0
			for m := 0; m < taps; m++ {
				if m == k {
					continue
				}
				xm := float64(first + m)
				h *= (frac - xm) / (xk - xm)
			}
			row[k] = h
		}
	}

	return t, nil
}

// Order returns the polynomial order.
func (t *LagrangeTable) Order() int { return t.order }

// Taps returns the number of points in the interpolation window.
func (t *LagrangeTable) Taps() int { return t.taps }

// Before returns how many window points precede point 0.
func (t *LagrangeTable) Before() int { return (t.order - 1) / 2 }

// After returns how many window points follow point 0.
func (t *LagrangeTable) After() int { return (t.order + 1) / 2 }

// Resolution returns the number of fractional steps per sample.
func (t *LagrangeTable) Resolution() int { return t.resolution }

// Coefficients returns the row nearest to frac, clamped to [0, 1].
// The returned slice aliases the table and must not be modified.
func (t *LagrangeTable) Coefficients(frac float64) []float64 {
	r := int(frac*float64(t.resolution) + 0.5)
	if r < 0 {
		r = 0
	} else if r > t.resolution {
		r = t.resolution
	}
	return t.coeffs[r*t.taps : (r+1)*t.taps]
}

// Interpolate evaluates the window samples at frac. samples must hold Taps()
// values ordered by increasing offset.
func (t *LagrangeTable) Interpolate(samples []float64, frac float64) float64 {
	c := t.Coefficients(frac)
	var sum float64
	for k, h := range c {
		sum += h * samples[k]
	}
	return sum
}
