package reverb

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-reverb/dsp/delay"
	"github.com/cwbudde/algo-reverb/dsp/smooth"
)

const (
	// MaxStrideDeviation is the read stride offset from 1 at full depth,
	// about 17 cents.
	MaxStrideDeviation = 0.01

	pitchMinDelayMs = 5.0
	pitchMaxDelayMs = 40.0
	pitchFadeMs     = 5.0
	pitchRampMs     = 50.0
	pitchMaxBlend   = math.Sqrt2 / 2
)

// PitchModulator blends a slowly pitch-shifted copy into a stereo stream:
// the left copy is read slightly fast (pitched up), the right slightly slow.
// The blend keeps a² + b² = 1 so the level is unchanged for uncorrelated
// copies.
type PitchModulator struct {
	heads [2]*delay.Modulated
	depth float64
	blend smooth.Ramp
	ramp  int

	shifted [2][]float64
}

// NewPitchModulator returns a bypassed modulator for blocks of up to
// maxBlock samples.
func NewPitchModulator(sampleRate float64, maxBlock int) (*PitchModulator, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("pitch modulator sample rate must be > 0: %f", sampleRate)
	}
	if maxBlock <= 0 {
		return nil, fmt.Errorf("pitch modulator block size must be > 0: %d", maxBlock)
	}

	minDelay := math.Max(4, pitchMinDelayMs*sampleRate/1000)
	maxDelay := math.Max(minDelay+8, pitchMaxDelayMs*sampleRate/1000)
	fade := max(1, int(pitchFadeMs*sampleRate/1000))
	capacity := int(math.Ceil(maxDelay)) + 4

	p := &PitchModulator{
		blend: smooth.NewRamp(0),
		ramp:  int(pitchRampMs * sampleRate / 1000),
	}
	for ch := range p.heads {
		head, err := delay.NewModulated(capacity, fade, delay.WithOrder(3))
		if err != nil {
			return nil, err
		}
		if err := head.SetRange(minDelay, maxDelay); err != nil {
			return nil, err
		}
		// Start the heads at opposite ends so they reverse at different times.
		start := minDelay
		if ch == 0 {
			start = maxDelay
		}
		if err := head.SetDelay(start); err != nil {
			return nil, err
		}
		p.heads[ch] = head
		p.shifted[ch] = make([]float64, maxBlock)
	}
	return p, nil
}

// SetDepth sets the modulation depth in [0, 1]. Depth 0 bypasses once the
// blend has ramped out.
func (p *PitchModulator) SetDepth(depth float64) error {
	if depth < 0 || depth > 1 || math.IsNaN(depth) {
		return fmt.Errorf("pitch modulation depth must be in [0, 1]: %f", depth)
	}
	p.depth = depth
	p.setStrides()
	p.blend.SetTarget(depth*pitchMaxBlend, p.ramp)
	return nil
}

func (p *PitchModulator) setStrides() {
	dev := p.depth * MaxStrideDeviation
	// Strides stay inside (0, 2) for any depth in range.
	_ = p.heads[0].SetStride(1 + dev)
	_ = p.heads[1].SetStride(1 - dev)
}

// Depth returns the configured depth.
func (p *PitchModulator) Depth() float64 { return p.depth }

// Bypassed reports whether Process currently leaves the signal untouched.
func (p *PitchModulator) Bypassed() bool {
	return p.blend.Value() == 0 && !p.blend.IsInTransition()
}

// Process modulates l and r in place. Both must have the same length, no
// longer than the block size given at construction.
func (p *PitchModulator) Process(l, r []float64) {
	n := len(l)
	if len(r) != n || n > len(p.shifted[0]) {
		panic(fmt.Sprintf("pitch modulator: bad block lengths %d, %d", len(l), len(r)))
	}
	// The heads run while bypassed so their history is valid when the blend
	// comes back.
	p.heads[0].Process(l, p.shifted[0][:n])
	p.heads[1].Process(r, p.shifted[1][:n])
	if p.Bypassed() {
		return
	}

	sl, sr := p.shifted[0][:n], p.shifted[1][:n]
	for i := 0; i < n; i++ {
		b := p.blend.Next()
		a := math.Sqrt(1 - b*b)
		l[i] = a*l[i] + b*sl[i]
		r[i] = a*r[i] + b*sr[i]
	}
}

// Reset clears the delay history and restarts the heads. Depth is kept and
// the blend jumps to its target.
func (p *PitchModulator) Reset() {
	p.setStrides()
	for ch, head := range p.heads {
		head.Reset()
		lo, hi := head.Range()
		if ch == 0 {
			_ = head.SetDelay(hi)
		} else {
			_ = head.SetDelay(lo)
		}
	}
	p.blend.Jump(p.blend.Target())
}
