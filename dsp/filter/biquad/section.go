package biquad

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-reverb/dsp/core"
)

// Coefficients of H(z) = (B0 + B1 z^-1 + B2 z^-2) / (1 + A1 z^-1 + A2 z^-2).
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Identity returns pass-through coefficients.
func Identity() Coefficients { return Coefficients{B0: 1} }

// IsIdentity reports whether c passes its input unchanged.
func (c Coefficients) IsIdentity() bool { return c == Identity() }

// Response evaluates H at freq Hz.
func (c Coefficients) Response(freq, sampleRate float64) complex128 {
	z1 := cmplx.Rect(1, -2*math.Pi*freq/sampleRate)
	z2 := z1 * z1
	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return num / den
}

// MagnitudeDB returns |H| at freq Hz in decibels.
func (c Coefficients) MagnitudeDB(freq, sampleRate float64) float64 {
	return 20 * math.Log10(cmplx.Abs(c.Response(freq, sampleRate)))
}

// Section is one biquad with state. The zero value outputs silence; set
// Coefficients before use.
type Section struct {
	Coefficients

	s1, s2 float64
}

// NewSection returns a cleared section running c.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// ProcessSample filters one sample.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.s1
	s.s1 = s.B1*x - s.A1*y + s.s2
	s.s2 = s.B2*x - s.A2*y
	return y
}

// ProcessBlock filters buf in place.
func (s *Section) ProcessBlock(buf []float64) {
	c := s.Coefficients
	s1, s2 := s.s1, s.s2
	for i, x := range buf {
		y := c.B0*x + s1
		s1 = c.B1*x - c.A1*y + s2
		s2 = c.B2*x - c.A2*y
		buf[i] = y
	}
	s.s1, s.s2 = core.FlushDenormals(s1), core.FlushDenormals(s2)
}

// Reset clears the state.
func (s *Section) Reset() { s.s1, s.s2 = 0, 0 }
