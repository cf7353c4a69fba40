package diffuse

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"

	"github.com/cwbudde/algo-reverb/dsp/rng"
)

// ErrWindowTooShort is returned when a window cannot hold one tap per cell.
var ErrWindowTooShort = errors.New("diffuse: window shorter than tap count")

// PatternConfig describes a velvet-noise impulse response.
type PatternConfig struct {
	// Taps is the number of signed taps spread over the window.
	Taps int
	// WindowMs is the span covered by the taps, in milliseconds.
	WindowMs float64
	// DecayDB is the attenuation reached at the end of the window.
	DecayDB float64
	// IncludeDry adds a positive tap at position 0.
	IncludeDry bool
}

// DefaultPatternConfig returns an 8-tap, 40 ms pattern decaying by 30 dB.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{Taps: 8, WindowMs: 40, DecayDB: 30}
}

// Validate checks the configuration independent of sample rate.
func (c PatternConfig) Validate() error {
	if c.Taps < 1 {
		return fmt.Errorf("diffuser taps must be >= 1: %d", c.Taps)
	}
	if !(c.WindowMs > 0) || math.IsInf(c.WindowMs, 0) {
		return fmt.Errorf("diffuser window must be > 0 ms: %f", c.WindowMs)
	}
	if c.DecayDB < 0 || math.IsNaN(c.DecayDB) || math.IsInf(c.DecayDB, 0) {
		return fmt.Errorf("diffuser decay must be >= 0 dB: %f", c.DecayDB)
	}
	return nil
}

// WindowSamples returns the window length at sampleRate.
func (c PatternConfig) WindowSamples(sampleRate float64) int {
	return int(math.Round(c.WindowMs * sampleRate / 1000))
}

// TotalTaps returns Taps plus the dry tap when enabled.
func (c PatternConfig) TotalTaps() int {
	if c.IncludeDry {
		return c.Taps + 1
	}
	return c.Taps
}

// Pattern is a sparse impulse response. Positions are in samples, 0 being the
// current input sample; Positions and Gains have equal length.
type Pattern struct {
	Positions []int
	Gains     []float64
}

// Len returns the number of taps.
func (p *Pattern) Len() int { return len(p.Positions) }

// Span returns one past the largest tap position.
func (p *Pattern) Span() int {
	span := 0
	for _, pos := range p.Positions {
		if pos+1 > span {
			span = pos + 1
		}
	}
	return span
}

// Energy returns the sum of squared tap gains.
func (p *Pattern) Energy() float64 {
	if len(p.Gains) == 0 {
		return 0
	}
	return f64.DotProduct(p.Gains, p.Gains)
}

// Generate returns a new pattern for cfg at sampleRate.
func Generate(cfg PatternConfig, sampleRate float64, r *rng.Source) (*Pattern, error) {
	n := cfg.TotalTaps()
	p := &Pattern{
		Positions: make([]int, 0, n),
		Gains:     make([]float64, 0, n),
	}
	if err := GenerateInto(p, cfg, sampleRate, r); err != nil {
		return nil, err
	}
	return p, nil
}

// GenerateInto regenerates p in place. It allocates only when p's slices are
// shorter than cfg.TotalTaps().
//
// Each tap sits at a random offset inside its own cell of width
// window/Taps. Signs are split evenly between + and - and shuffled, the
// magnitude falls exponentially to -DecayDB at the window end, and the
// result is scaled to unit energy.
func GenerateInto(p *Pattern, cfg PatternConfig, sampleRate float64, r *rng.Source) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !(sampleRate > 0) {
		return fmt.Errorf("diffuser sample rate must be > 0: %f", sampleRate)
	}

	window := cfg.WindowSamples(sampleRate)
	start := 0
	if cfg.IncludeDry {
		start = 1
	}
	usable := window - start
	if usable < cfg.Taps {
		return fmt.Errorf("%w: %d samples for %d taps", ErrWindowTooShort, usable, cfg.Taps)
	}

	n := cfg.TotalTaps()
	p.Positions = growInts(p.Positions, n)
	p.Gains = growFloats(p.Gains, n)

	i := 0
	if cfg.IncludeDry {
		p.Positions[0] = 0
		p.Gains[0] = 1
		i = 1
	}

	taps := p.Gains[i:]
	for k := range taps {
		if k < cfg.Taps/2 {
			taps[k] = 1
		} else {
			taps[k] = -1
		}
	}
	for k := len(taps) - 1; k > 0; k-- {
		j := r.IntN(k + 1)
		taps[k], taps[j] = taps[j], taps[k]
	}

	cell := float64(usable) / float64(cfg.Taps)
	slope := -cfg.DecayDB / 20 / float64(window)
	prev := start - 1
	for k := 0; k < cfg.Taps; k++ {
		pos := start + int(math.Floor((float64(k)+r.Float64())*cell))
		// Positions stay strictly increasing and leave room for the remaining taps.
		pos = max(pos, prev+1)
		pos = min(pos, window-cfg.Taps+k)
		prev = pos
		p.Positions[i+k] = pos
		p.Gains[i+k] *= math.Pow(10, slope*float64(pos))
	}

	energy := f64.DotProduct(p.Gains, p.Gains)
	f64.Scale(p.Gains, p.Gains, 1/math.Sqrt(energy))
	return nil
}

func growInts(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	return s[:n]
}

func growFloats(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
