package diffuse

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-reverb/dsp/delay"
	"github.com/cwbudde/algo-reverb/dsp/rng"
	"github.com/cwbudde/algo-reverb/dsp/smooth"
)

// Diffuser convolves a mono stream with a velvet-noise pattern.
//
// Process must be called from a single goroutine. Stage may be called from
// any goroutine; the staged pattern is crossfaded in over the configured fade
// length. A pattern staged while a crossfade runs waits for it to finish, and
// only the latest of several such patterns is kept.
type Diffuser struct {
	line      *delay.Line
	maxWindow int
	maxTaps   int

	// own holds preallocated storage used by Rerandomize.
	own    [2]Pattern
	active *Pattern
	prev   *Pattern

	pending atomic.Pointer[Pattern]

	fadeLen int
	fadePos int
	fading  bool
}

// New returns a diffuser whose patterns may span up to maxWindowSamples and
// hold up to maxTaps taps. The initial pattern is a single unit tap at 0.
func New(maxWindowSamples, maxTaps, fadeSamples int) (*Diffuser, error) {
	if maxWindowSamples < 1 {
		return nil, fmt.Errorf("diffuser window must be >= 1 sample: %d", maxWindowSamples)
	}
	if maxTaps < 1 {
		return nil, fmt.Errorf("diffuser max taps must be >= 1: %d", maxTaps)
	}
	if fadeSamples < 0 {
		return nil, fmt.Errorf("diffuser fade must be >= 0: %d", fadeSamples)
	}
	line, err := delay.New(max(maxWindowSamples+1, 3), delay.WithOrder(1))
	if err != nil {
		return nil, err
	}
	d := &Diffuser{
		line:      line,
		maxWindow: maxWindowSamples,
		maxTaps:   maxTaps,
		fadeLen:   fadeSamples,
	}
	for i := range d.own {
		d.own[i] = Pattern{
			Positions: make([]int, 1, maxTaps),
			Gains:     make([]float64, 1, maxTaps),
		}
	}
	d.own[0].Gains[0] = 1
	d.active = &d.own[0]
	return d, nil
}

// MaxWindow returns the largest pattern span the diffuser accepts.
func (d *Diffuser) MaxWindow() int { return d.maxWindow }

// MaxTaps returns the largest tap count the diffuser accepts.
func (d *Diffuser) MaxTaps() int { return d.maxTaps }

// Pattern returns the pattern currently fading in or playing. A pattern
// still queued behind a running crossfade is not reported.
func (d *Diffuser) Pattern() *Pattern { return d.active }

// IsFading reports whether a crossfade between patterns is running.
func (d *Diffuser) IsFading() bool { return d.fading }

// Stage queues p to replace the active pattern. The diffuser keeps a
// reference to p; callers must not modify it afterwards.
func (d *Diffuser) Stage(p *Pattern) error {
	if err := d.check(p); err != nil {
		return err
	}
	d.pending.Store(p)
	return nil
}

// Rerandomize regenerates the pattern into spare storage and swaps it in
// immediately, dropping any crossfade. It does not allocate when cfg fits the
// diffuser's limits, and is meant for streams that are currently silent.
func (d *Diffuser) Rerandomize(cfg PatternConfig, sampleRate float64, r *rng.Source) error {
	if cfg.TotalTaps() > d.maxTaps {
		return fmt.Errorf("diffuser taps exceed capacity %d: %d", d.maxTaps, cfg.TotalTaps())
	}
	if w := cfg.WindowSamples(sampleRate); w > d.maxWindow {
		return fmt.Errorf("diffuser window exceeds capacity %d: %d", d.maxWindow, w)
	}
	spare := &d.own[0]
	if d.active == spare {
		spare = &d.own[1]
	}
	if err := GenerateInto(spare, cfg, sampleRate, r); err != nil {
		return err
	}
	d.pending.Store(nil)
	d.active = spare
	d.prev = nil
	d.fading = false
	return nil
}

// Process diffuses in into out. in and out may alias.
func (d *Diffuser) Process(in, out []float64) {
	if !d.fading {
		d.takePending()
	}

	n := min(len(in), len(out))
	for i := 0; i < n; i++ {
		d.line.Write(in[i])
		y := d.convolve(d.active)
		if d.fading {
			gOut, gIn := smooth.EqualPower(float64(d.fadePos) / float64(d.fadeLen))
			y = gIn*y + gOut*d.convolve(d.prev)
			d.fadePos++
			if d.fadePos >= d.fadeLen {
				d.fading = false
				d.prev = nil
				d.takePending()
			}
		}
		out[i] = y
	}
}

// Reset clears the history and ends any crossfade.
func (d *Diffuser) Reset() {
	d.line.Reset()
	d.fading = false
	d.prev = nil
}

func (d *Diffuser) takePending() {
	if p := d.pending.Swap(nil); p != nil {
		d.swap(p)
	}
}

// swap must only run while no crossfade is in progress.
func (d *Diffuser) swap(p *Pattern) {
	if d.fadeLen == 0 {
		d.active = p
		return
	}
	d.prev = d.active
	d.active = p
	d.fadePos = 0
	d.fading = true
}

func (d *Diffuser) convolve(p *Pattern) float64 {
	var acc float64
	for k, pos := range p.Positions {
		acc += p.Gains[k] * d.line.Read(pos+1)
	}
	return acc
}

func (d *Diffuser) check(p *Pattern) error {
	if p == nil {
		return fmt.Errorf("diffuser pattern must not be nil")
	}
	if len(p.Positions) != len(p.Gains) || len(p.Positions) == 0 {
		return fmt.Errorf("diffuser pattern must have matching non-empty taps: %d positions, %d gains",
			len(p.Positions), len(p.Gains))
	}
	if len(p.Positions) > d.maxTaps {
		return fmt.Errorf("diffuser taps exceed capacity %d: %d", d.maxTaps, len(p.Positions))
	}
	for _, pos := range p.Positions {
		if pos < 0 || pos >= d.maxWindow {
			return fmt.Errorf("diffuser tap position out of range [0, %d): %d", d.maxWindow, pos)
		}
	}
	return nil
}
