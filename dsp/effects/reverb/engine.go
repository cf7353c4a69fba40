package reverb

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-reverb/dsp/core"
	"github.com/cwbudde/algo-reverb/dsp/rng"
	"github.com/cwbudde/algo-reverb/dsp/smooth"
)

// ErrDestroyed is returned by every Engine method after Destroy.
var ErrDestroyed = errors.New("reverb: engine destroyed")

// Stats is a snapshot of the engine's counters.
type Stats struct {
	ActiveUnit int
	Rotations  uint64
	// Deferred counts rotations that had to wait for an Inactive unit.
	Deferred      uint64
	SilentWindows uint64
	NoWetWindows  uint64
	// NaNBlocks counts ProcessStereo calls whose input held NaN or Inf.
	NaNBlocks uint64
	Samples   uint64
	// LastScore is the most recent trigger score, NaN before the first.
	LastScore float64
}

// Engine is the stereo reverb: an Orchestrator of reverb units followed by a
// smoothed dry/wet mix.
//
// Setters may be called from any goroutine. They validate, then publish a
// new Params snapshot that the audio goroutine swaps in at the start of its
// next chunk. ProcessStereo splits requests into chunks of at most
// BlockSize samples and never allocates.
type Engine struct {
	cfg  Config
	orch *Orchestrator

	mu      sync.Mutex
	params  Params
	control *rng.Source

	staged    atomic.Pointer[Params]
	destroyed atomic.Bool

	nanBlocks atomic.Uint64
	samples   atomic.Uint64

	wet       smooth.Ramp
	smoothing int

	dryL, dryR []float64
	wetL, wetR []float64
	diff, mix  []float64
}

// NewEngine creates an engine with numDelays lines per unit spanning
// [minDelayS, maxDelayS], diffusers of up to diffusionTaps taps and a
// processing chunk of blockSize samples. Options adjust everything else.
func NewEngine(sampleRate float64, numDelays int, minDelayS, maxDelayS float64, diffusionTaps, blockSize int, opts ...Option) (*Engine, error) {
	cfg := DefaultConfig()
	cfg.SampleRate = sampleRate
	cfg.BlockSize = blockSize
	cfg.NumDelays = numDelays
	cfg.MinDelay = minDelayS
	cfg.MaxDelay = maxDelayS
	cfg.DiffusionTaps = diffusionTaps
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return NewEngineFromConfig(cfg)
}

// NewEngineFromConfig creates an engine from a complete configuration.
func NewEngineFromConfig(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orch, err := NewOrchestrator(cfg, rng.New(rand.Uint64()))
	if err != nil {
		return nil, err
	}
	bs := cfg.BlockSize
	return &Engine{
		cfg:       cfg,
		orch:      orch,
		params:    cfg.Params,
		control:   rng.New(^cfg.Seed),
		wet:       smooth.NewRamp(cfg.Params.WetMix),
		smoothing: cfg.samples(cfg.Smoothing),
		dryL:      make([]float64, bs),
		dryR:      make([]float64, bs),
		wetL:      make([]float64, bs),
		wetR:      make([]float64, bs),
		diff:      make([]float64, bs),
		mix:       make([]float64, bs),
	}, nil
}

// Config returns the construction-time configuration.
func (e *Engine) Config() Config { return e.cfg }

// Params returns the most recently accepted settings.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Orchestrator exposes the unit orchestrator. Its accessors belong to the
// audio goroutine.
func (e *Engine) Orchestrator() *Orchestrator { return e.orch }

// update validates a modified copy of the params, runs stage with the lock
// held and publishes the copy.
func (e *Engine) update(modify func(*Params), stage func(Params) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed.Load() {
		return ErrDestroyed
	}
	p := e.params
	modify(&p)
	if err := p.Validate(e.cfg.SampleRate); err != nil {
		return err
	}
	if stage != nil {
		if err := stage(p); err != nil {
			return err
		}
	}
	e.params = p
	e.staged.Store(&p)
	return nil
}

// SetRT60Decay sets the reverb time in seconds; math.Inf(1) sustains.
func (e *Engine) SetRT60Decay(seconds float64) error {
	return e.update(func(p *Params) { p.RT60 = seconds }, nil)
}

// SetDiffusion sets the diffusion amount in [0, 1]. New diffuser patterns
// crossfade in on every unit.
func (e *Engine) SetDiffusion(amount float64) error {
	return e.update(func(p *Params) { p.Diffusion = amount }, func(p Params) error {
		for i := 0; i < e.orch.Units(); i++ {
			if err := e.orch.Unit(i).stageDiffusion(p.Diffusion, e.control); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetDelayPitchModDepth sets the pitch modulation depth in [0, 1].
func (e *Engine) SetDelayPitchModDepth(depth float64) error {
	return e.update(func(p *Params) { p.PitchModDepth = depth }, nil)
}

// SetWetMix sets the wet proportion in [0, 1].
func (e *Engine) SetWetMix(wet float64) error {
	return e.update(func(p *Params) { p.WetMix = wet }, nil)
}

// SetDecayShape makes lows decay lowMult and highs highMult times as long
// as the RT60, split at crossoverHz.
func (e *Engine) SetDecayShape(lowMult, highMult, crossoverHz float64) error {
	return e.update(func(p *Params) {
		p.DecayLow = lowMult
		p.DecayHigh = highMult
		p.DecayCrossover = crossoverHz
	}, nil)
}

// SetTone sets the wet low and high cut in Hz; 0 disables either.
func (e *Engine) SetTone(lowCut, highCut float64) error {
	return e.update(func(p *Params) {
		p.LowCut = lowCut
		p.HighCut = highCut
	}, func(p Params) error {
		for i := 0; i < e.orch.Units(); i++ {
			if err := e.orch.Unit(i).SetTone(p.LowCut, p.HighCut); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetEvolution enables or disables analysis-driven unit rotation.
func (e *Engine) SetEvolution(on bool) error {
	return e.update(func(p *Params) { p.Evolution = on }, nil)
}

// SetMaxDelay changes the longest delay line in seconds. Storage for the
// new range is allocated here; every unit installs it the next time it is
// activated or deactivated, and a rotation is requested so the change is
// heard without a cut.
func (e *Engine) SetMaxDelay(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed.Load() {
		return ErrDestroyed
	}
	if err := e.cfg.network(seconds, e.cfg.Seed).Validate(); err != nil {
		return err
	}
	for i := 0; i < e.orch.Units(); i++ {
		if err := e.orch.Unit(i).stageMaxDelay(seconds); err != nil {
			return err
		}
	}
	e.orch.Rotate()
	return nil
}

// Rotate forces a unit rotation at the next opportunity.
func (e *Engine) Rotate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed.Load() {
		return ErrDestroyed
	}
	e.orch.Rotate()
	return nil
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{
		NaNBlocks: e.nanBlocks.Load(),
		Samples:   e.samples.Load(),
		LastScore: math.NaN(),
	}
	if o := e.orch; o != nil {
		s.ActiveUnit = int(o.activeIndex.Load())
		s.Rotations = o.rotations.Load()
		s.Deferred = o.deferred.Load()
		s.SilentWindows = o.silent.Load()
		s.NoWetWindows = o.noWet.Load()
		s.LastScore = math.Float64frombits(o.lastScore.Load())
	}
	return s
}

// ProcessStereo renders numSamples of output. Outputs may alias inputs.
// Input holding NaN or Inf yields silence for the whole call and never
// reaches the feedback loop. With offlineRendering set, renders of the same
// input by identically configured engines are bit-identical.
func (e *Engine) ProcessStereo(inL, inR, outL, outR []float64, numSamples int, offlineRendering bool) error {
	if len(inL) < numSamples || len(inR) < numSamples || len(outL) < numSamples || len(outR) < numSamples {
		panic(fmt.Sprintf("reverb: buffers shorter than %d samples", numSamples))
	}
	outL, outR = outL[:numSamples], outR[:numSamples]
	if e.destroyed.Load() {
		core.Zero(outL)
		core.Zero(outR)
		return ErrDestroyed
	}
	inL, inR = inL[:numSamples], inR[:numSamples]
	if core.HasNonFinite(inL) || core.HasNonFinite(inR) {
		core.Zero(outL)
		core.Zero(outR)
		e.nanBlocks.Add(1)
		return nil
	}

	bs := e.cfg.BlockSize
	for start := 0; start < numSamples; start += bs {
		end := min(start+bs, numSamples)
		e.process(inL[start:end], inR[start:end], outL[start:end], outR[start:end], offlineRendering)
	}
	e.samples.Add(uint64(numSamples))
	return nil
}

func (e *Engine) process(inL, inR, outL, outR []float64, offline bool) {
	if p := e.staged.Swap(nil); p != nil {
		e.orch.setParams(*p)
		e.wet.SetTarget(p.WetMix, e.smoothing)
	}

	n := len(inL)
	dryL, dryR := e.dryL[:n], e.dryR[:n]
	wetL, wetR := e.wetL[:n], e.wetR[:n]
	copy(dryL, inL)
	copy(dryR, inR)

	e.orch.Process(dryL, dryR, wetL, wetR, offline)

	w := e.mix[:n]
	e.wet.Fill(w)
	e.blend(outL, dryL, wetL, w)
	e.blend(outR, dryR, wetR, w)
}

// blend writes dry + w*(wet - dry) into out.
func (e *Engine) blend(out, dry, wet, w []float64) {
	diff := e.diff[:len(out)]
	vecmath.ScaleBlock(diff, dry, -1)
	vecmath.AddBlockInPlace(diff, wet)
	vecmath.MulAddBlock(out, w, diff, dry)
}

// Destroy releases the units and buffers. It must not run concurrently with
// ProcessStereo; afterwards every method returns ErrDestroyed.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed.Swap(true) {
		return
	}
	e.orch = nil
	e.dryL, e.dryR = nil, nil
	e.wetL, e.wetR = nil, nil
	e.diff, e.mix = nil, nil
}
