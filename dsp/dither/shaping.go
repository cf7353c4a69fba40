package dither

import (
	"fmt"
	"strings"
)

// Shaping identifies an FIR error-feedback noise-shaping filter.
type Shaping int

const (
	ShapingNone Shaping = iota // flat error spectrum
	ShapingEFB                 // simple error feedback, 1st order
	Shaping2SC                 // simple 2nd-order highpass
	Shaping3FC                 // F-weighted, 3rd order
	Shaping9FC                 // F-weighted, 9th order

	shapingCount
)

var shapingNames = [shapingCount]string{"none", "efb", "2sc", "3fc", "9fc"}

var shapingCoeffs = [shapingCount][]float64{
	ShapingNone: nil,
	ShapingEFB:  {1},
	Shaping2SC:  {1.0, -0.5},
	Shaping3FC:  {1.623, -0.982, 0.109},
	Shaping9FC: {
		2.412, -3.370, 3.937, -4.174, 3.353,
		-2.205, 1.281, -0.569, 0.0847,
	},
}

func (s Shaping) String() string {
	if s.Valid() {
		return shapingNames[s]
	}
	return fmt.Sprintf("Shaping(%d)", s)
}

// Valid reports whether s is a known filter.
func (s Shaping) Valid() bool { return s >= 0 && s < shapingCount }

// Coefficients returns a copy of the filter taps, nil for ShapingNone.
func (s Shaping) Coefficients() []float64 {
	if !s.Valid() || len(shapingCoeffs[s]) == 0 {
		return nil
	}
	return append([]float64(nil), shapingCoeffs[s]...)
}

// ParseShaping returns the Shaping whose String is name.
func ParseShaping(name string) (Shaping, error) {
	for s, n := range shapingNames {
		if strings.EqualFold(n, name) {
			return Shaping(s), nil
		}
	}
	return ShapingNone, fmt.Errorf("dither: unknown shaping: %q", name)
}
