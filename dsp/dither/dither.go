// Package dither quantizes floating-point audio to integer PCM with optional
// dither noise and error-feedback noise shaping.
package dither

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-reverb/dsp/rng"
)

// Type selects the probability distribution of the dither noise.
type Type int

const (
	// None rounds to the nearest step.
	None Type = iota
	// Rectangular adds uniform noise of one step peak.
	Rectangular
	// Triangular adds TPDF noise, the sum of two uniform draws.
	Triangular

	typeCount
)

var typeNames = [typeCount]string{"none", "rect", "tpdf"}

func (t Type) String() string {
	if t >= 0 && t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ParseType returns the Type whose String is name.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return Type(t), nil
		}
	}
	return None, fmt.Errorf("dither: unknown type: %q", name)
}

// Quantizer converts samples in [-1, 1) to integers of a fixed bit depth.
// It is not safe for concurrent use; use one per channel.
type Quantizer struct {
	bitDepth  int
	typ       Type
	amplitude float64
	rng       *rng.Source
	seed      uint64

	coeffs  []float64
	history []float64
	pos     int

	scale  float64
	lo, hi float64
}

// Option configures a Quantizer.
type Option func(*Quantizer) error

// WithType sets the dither noise distribution (default Triangular).
func WithType(t Type) Option {
	return func(q *Quantizer) error {
		if t < 0 || t >= typeCount {
			return fmt.Errorf("dither: invalid type: %d", t)
		}
		q.typ = t
		return nil
	}
}

// WithAmplitude scales the dither noise, in steps (default 1).
func WithAmplitude(amp float64) Option {
	return func(q *Quantizer) error {
		if amp < 0 || math.IsNaN(amp) || math.IsInf(amp, 0) {
			return fmt.Errorf("dither: amplitude must be >= 0 and finite: %f", amp)
		}
		q.amplitude = amp
		return nil
	}
}

// WithShaping selects the noise-shaping filter (default ShapingNone).
func WithShaping(s Shaping) Option {
	return func(q *Quantizer) error {
		if !s.Valid() {
			return fmt.Errorf("dither: invalid shaping: %d", s)
		}
		q.coeffs = s.Coefficients()
		return nil
	}
}

// WithSeed seeds the noise source, making the output reproducible.
func WithSeed(seed uint64) Option {
	return func(q *Quantizer) error {
		q.seed = seed
		return nil
	}
}

// NewQuantizer creates a quantizer for bitDepth in [8, 32].
func NewQuantizer(bitDepth int, opts ...Option) (*Quantizer, error) {
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("dither: bit depth must be in [8, 32]: %d", bitDepth)
	}
	q := &Quantizer{
		bitDepth:  bitDepth,
		typ:       Triangular,
		amplitude: 1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	q.rng = rng.New(q.seed)
	q.history = make([]float64, len(q.coeffs))
	q.scale = math.Exp2(float64(bitDepth - 1))
	q.lo, q.hi = -q.scale, q.scale-1
	return q, nil
}

// BitDepth returns the target bit depth.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// Type returns the dither noise distribution.
func (q *Quantizer) Type() Type { return q.typ }

// Quantize converts one sample. Results are limited to the bit depth.
func (q *Quantizer) Quantize(x float64) int {
	shaped := x * q.scale
	order := len(q.coeffs)
	for i := 0; i < order; i++ {
		shaped -= q.coeffs[i] * q.history[(order+q.pos-i)%order]
	}

	v := shaped
	switch q.typ {
	case Rectangular:
		v += q.amplitude * (2*q.rng.Float64() - 1)
	case Triangular:
		v += q.amplitude * (q.rng.Float64() - q.rng.Float64())
	}
	result := math.Min(q.hi, math.Max(q.lo, math.Round(v)))

	if order > 0 {
		q.pos = (q.pos + 1) % order
		q.history[q.pos] = result - shaped
	}
	return int(result)
}

// QuantizeInto quantizes src into dst[0], dst[stride], dst[2*stride], ...
// which lets callers write one channel of an interleaved buffer.
func (q *Quantizer) QuantizeInto(dst []int, src []float64, stride int) {
	if stride < 1 || len(src) > 0 && (len(src)-1)*stride >= len(dst) {
		panic(fmt.Sprintf("dither: destination too short for %d samples at stride %d", len(src), stride))
	}
	for i, v := range src {
		dst[i*stride] = q.Quantize(v)
	}
}

// Reset clears the shaping history and restarts the noise sequence.
func (q *Quantizer) Reset() {
	clear(q.history)
	q.pos = 0
	q.rng.Reseed(q.seed)
}
