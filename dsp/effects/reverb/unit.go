package reverb

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-reverb/dsp/diffuse"
	"github.com/cwbudde/algo-reverb/dsp/effects/reverb/fdn"
	"github.com/cwbudde/algo-reverb/dsp/filter/tone"
	"github.com/cwbudde/algo-reverb/dsp/mix"
	"github.com/cwbudde/algo-reverb/dsp/rng"
	"github.com/cwbudde/algo-reverb/dsp/smooth"
)

const (
	inputLowCut    = 20.0
	inputHighCut   = 16000.0
	toneOrder      = 2
	diffuserDecay  = 24.0
	panDepth       = 0.2
	panRateIn      = 0.07
	panRateOut     = 0.11
	seedMultiplier = 0x9e3779b97f4a7c15

	// The network RT60 moves once per block; decay changes ramp over this
	// many smoothing periods.
	decayRampScale = 4
)

// panLFO slowly rotates the stereo image by up to depth radians.
type panLFO struct {
	phase float64
	inc   float64
	depth float64
	start float64
}

func (p *panLFO) process(l, r []float64) {
	for i := range l {
		s, c := math.Sincos(p.depth * math.Sin(2*math.Pi*p.phase))
		x, y := l[i], r[i]
		l[i] = c*x - s*y
		r[i] = s*x + c*y
		p.phase += p.inc
		if p.phase >= 1 {
			p.phase--
		}
	}
}

// Unit is one complete reverberation voice: input tone, diffusers, mixer,
// feedback network, pitch modulator, output tone and level normalisation,
// followed by a lifecycle gain driven by the Orchestrator.
//
// Everything except SetTone, stageDiffusion and stageMaxDelay belongs to the
// audio goroutine.
type Unit struct {
	index    int
	fs       float64
	maxBlock int
	comp     float64

	maxTaps     int
	maxWindowMs float64

	inTone    *tone.Stereo
	outTone   *tone.Stereo
	diffusers []*diffuse.Diffuser
	mixer     *mix.Mixer
	net       *fdn.Network
	pitch     *PitchModulator
	rng       *rng.Source

	diffusion float64
	diffCfg   diffuse.PatternConfig
	rt60      float64

	decay smooth.Ramp
	norm  smooth.Ramp
	input smooth.Ramp
	level smooth.Ramp

	normDirty bool
	normJump  bool

	panIn, panOut panLFO
	offline       bool

	fadeIn    int
	outFade   int
	smoothing int
	decayRamp int
	fading    bool
	tail      int

	staged atomic.Pointer[fdn.Structure]

	l, r  []float64
	lanes [][]float64
	gain  []float64
}

func newUnit(cfg Config, index int, entropy *rng.Source) (*Unit, error) {
	fs := cfg.SampleRate
	seed := cfg.Seed + uint64(index)*seedMultiplier
	p := cfg.Params

	net, err := fdn.New(cfg.network(cfg.MaxDelay, seed))
	if err != nil {
		return nil, err
	}
	if err := net.SetRT60Decay(p.RT60); err != nil {
		return nil, err
	}
	if err := net.SetDecayShape(p.DecayLow, p.DecayHigh, p.DecayCrossover); err != nil {
		return nil, err
	}

	inTone, err := tone.NewStereo(fs, 2)
	if err != nil {
		return nil, err
	}
	if err := inTone.SetHighpass(inputLowCut, toneOrder, 0); err != nil {
		return nil, err
	}
	if err := inTone.SetLowpass(math.Min(inputHighCut, 0.45*fs), toneOrder, 1); err != nil {
		return nil, err
	}
	outTone, err := tone.NewStereo(fs, 2)
	if err != nil {
		return nil, err
	}

	mixer, err := mix.NewMixer(cfg.DiffuserLanes)
	if err != nil {
		return nil, err
	}
	pitch, err := NewPitchModulator(fs, cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	if err := pitch.SetDepth(p.PitchModDepth); err != nil {
		return nil, err
	}
	pitch.Reset()

	u := &Unit{
		index:       index,
		fs:          fs,
		maxBlock:    cfg.BlockSize,
		comp:        cfg.NormalizationComp,
		maxTaps:     cfg.DiffusionTaps,
		maxWindowMs: cfg.DiffusionWindowMs,
		inTone:      inTone,
		outTone:     outTone,
		mixer:       mixer,
		net:         net,
		pitch:       pitch,
		rng:         rng.New(seed),
		rt60:        p.RT60,
		decay:       smooth.NewRamp(p.RT60),
		fadeIn:      cfg.samples(cfg.FadeIn),
		outFade:     cfg.samples(cfg.OutputFade),
		smoothing:   cfg.samples(cfg.Smoothing),
		decayRamp:   cfg.samples(decayRampScale * cfg.Smoothing),
		l:           make([]float64, cfg.BlockSize),
		r:           make([]float64, cfg.BlockSize),
		gain:        make([]float64, cfg.BlockSize),
	}
	if err := u.SetTone(p.LowCut, p.HighCut); err != nil {
		return nil, err
	}

	maxWindow := int(math.Ceil(cfg.DiffusionWindowMs*fs/1000)) + 1
	u.diffusion = p.Diffusion
	u.diffCfg = u.patternConfig(p.Diffusion)
	u.diffusers = make([]*diffuse.Diffuser, cfg.DiffuserLanes)
	u.lanes = make([][]float64, cfg.DiffuserLanes)
	for k := range u.diffusers {
		d, err := diffuse.New(maxWindow, cfg.DiffusionTaps, 2*u.smoothing)
		if err != nil {
			return nil, err
		}
		if err := d.Rerandomize(u.diffCfg, fs, u.rng); err != nil {
			return nil, err
		}
		u.diffusers[k] = d
		u.lanes[k] = make([]float64, cfg.BlockSize)
	}
	u.norm = smooth.NewRamp(u.normalization())

	// Offline renders start every LFO at a phase fixed by the unit index;
	// live ones start at a random phase.
	spread := 1.0 + 0.13*float64(index)
	u.panIn = panLFO{inc: panRateIn * spread / fs, depth: panDepth, start: float64(index) / float64(cfg.Units)}
	u.panOut = panLFO{inc: panRateOut * spread / fs, depth: panDepth, start: 0.5 + u.panIn.start/2}
	u.panIn.phase = entropy.Float64()
	u.panOut.phase = entropy.Float64()
	return u, nil
}

// patternConfig maps a diffusion amount onto a velvet-noise pattern. Zero
// diffusion is a single tap.
func (u *Unit) patternConfig(diffusion float64) diffuse.PatternConfig {
	windowMs := u.maxWindowMs * (0.25 + 0.75*diffusion)
	window := int(math.Round(windowMs * u.fs / 1000))
	taps := max(1, int(math.Round(diffusion*float64(u.maxTaps))))
	return diffuse.PatternConfig{
		Taps:     max(1, min(taps, window)),
		WindowMs: windowMs,
		DecayDB:  diffuserDecay,
	}
}

func (u *Unit) normalization() float64 {
	return fdn.NormalizationGain(u.net.MeanDelaySeconds(), u.rt60, u.diffusion, u.comp)
}

// Index returns the unit's position in the orchestrator.
func (u *Unit) Index() int { return u.index }

// Network exposes the unit's feedback delay network.
func (u *Unit) Network() *fdn.Network { return u.net }

// Level returns the current lifecycle gain.
func (u *Unit) Level() float64 { return u.level.Value() }

// DecayTime returns the RT60 currently applied to the network, which moves
// toward a shorter value while the unit fades.
func (u *Unit) DecayTime() float64 { return u.decay.Value() }

// Diffusion returns the diffusion amount the unit renders with.
func (u *Unit) Diffusion() float64 { return u.diffusion }

// SetTone sets the output low and high cut in Hz; 0 disables either. Safe
// from any goroutine.
func (u *Unit) SetTone(lowCut, highCut float64) error {
	var err error
	if lowCut > 0 {
		err = u.outTone.SetHighpass(lowCut, toneOrder, 0)
	} else {
		err = u.outTone.Bypass(0)
	}
	if err != nil {
		return err
	}
	if highCut > 0 {
		return u.outTone.SetLowpass(highCut, toneOrder, 1)
	}
	return u.outTone.Bypass(1)
}

// stageDiffusion generates fresh patterns for diffusion and hands them to the
// diffusers, which crossfade to them once any running crossfade ends. It allocates and
// is called from the control goroutine with its own random source.
func (u *Unit) stageDiffusion(diffusion float64, r *rng.Source) error {
	cfg := u.patternConfig(diffusion)
	for _, d := range u.diffusers {
		p, err := diffuse.Generate(cfg, u.fs, r)
		if err != nil {
			return err
		}
		if err := d.Stage(p); err != nil {
			return err
		}
	}
	return nil
}

// stageMaxDelay prepares storage for a new maximum delay. It is installed
// the next time the unit is activated or deactivated.
func (u *Unit) stageMaxDelay(seconds float64) error {
	st, err := u.net.PrepareMaxDelay(seconds)
	if err != nil {
		return err
	}
	u.staged.Store(st)
	return nil
}

func (u *Unit) applyStaged() {
	if st := u.staged.Swap(nil); st != nil {
		// Prepared by the same network, so the line count matches.
		_ = u.net.StageStructure(st)
		u.normDirty = true
		u.normJump = true
	}
}

func (u *Unit) setParams(p Params) {
	if p.Diffusion != u.diffusion {
		u.diffusion = p.Diffusion
		u.diffCfg = u.patternConfig(p.Diffusion)
		u.normDirty = true
	}
	if p.RT60 != u.rt60 {
		u.rt60 = p.RT60
		u.normDirty = true
		if !u.fading {
			u.retargetDecay(p.RT60, u.decayRamp)
		}
	}
	// Validated with the params.
	_ = u.pitch.SetDepth(p.PitchModDepth)
	if low, high, xo := u.net.DecayShape(); low != p.DecayLow || high != p.DecayHigh || xo != p.DecayCrossover {
		_ = u.net.SetDecayShape(p.DecayLow, p.DecayHigh, p.DecayCrossover)
	}
}

// retargetDecay moves the network RT60 toward target. Sustain cannot be
// interpolated, so changes to or from it are immediate.
func (u *Unit) retargetDecay(target float64, samples int) {
	if math.IsInf(target, 1) || math.IsInf(u.decay.Value(), 1) || samples <= 0 {
		u.decay.Jump(target)
		_ = u.net.SetRT60Decay(target)
		return
	}
	u.decay.SetTarget(target, samples)
}

// activate makes the unit authoritative: input and output fade in over
// fade samples, or at once when fade is 0.
func (u *Unit) activate(fade int) {
	u.applyStaged()
	u.fading = false
	u.tail = 0
	u.retargetDecay(u.rt60, 0)
	u.input.SetTarget(1, fade)
	u.level.SetTarget(1, fade)
}

// beginFade stops feeding the unit and shortens its decay toward rt60. The
// output fades to silence once the tail has had rt60 seconds to decay.
func (u *Unit) beginFade(rt60 float64) {
	target := math.Min(rt60, u.rt60)
	u.fading = true
	u.input.SetTarget(0, u.fadeIn)
	u.retargetDecay(target, u.decayRamp)
	u.tail = max(u.fadeIn, u.decayRamp) + int(target*u.fs)
}

// done reports whether a fading unit has reached silence.
func (u *Unit) done() bool {
	return u.fading && u.tail <= 0 && !u.level.IsInTransition() && u.level.Value() == 0
}

// deactivate silences the unit and re-randomises its line lengths and
// diffusion texture from its own random source. It does not allocate.
func (u *Unit) deactivate() {
	u.fading = false
	u.tail = 0
	u.input.Jump(0)
	u.level.Jump(0)

	u.applyStaged()
	u.net.StageRelength(u.rng.Uint64())
	for _, d := range u.diffusers {
		d.Reset()
		// The config is derived from validated limits.
		_ = d.Rerandomize(u.diffCfg, u.fs, u.rng)
	}
	u.pitch.Reset()
	u.inTone.Reset()
	u.outTone.Reset()
	u.decay.Jump(u.rt60)
	_ = u.net.SetRT60Decay(u.rt60)
	u.normDirty = true
	u.normJump = true
	if u.offline {
		u.resetLFOs()
	}
}

func (u *Unit) resetLFOs() {
	u.panIn.phase = u.panIn.start
	u.panOut.phase = u.panOut.start
}

// ProcessStereo renders numSamples of wet signal from the dry input. With
// offlineRendering set, the first call resets the modulation LFOs to fixed
// phases so identical inputs render bit-identically. Inputs and outputs
// must not alias.
func (u *Unit) ProcessStereo(inL, inR, outL, outR []float64, numSamples int, offlineRendering bool) {
	if len(inL) < numSamples || len(inR) < numSamples || len(outL) < numSamples || len(outR) < numSamples {
		panic(fmt.Sprintf("reverb unit: buffers shorter than %d samples", numSamples))
	}
	if offlineRendering && !u.offline {
		u.resetLFOs()
	}
	u.offline = offlineRendering
	for start := 0; start < numSamples; start += u.maxBlock {
		end := min(start+u.maxBlock, numSamples)
		u.process(inL[start:end], inR[start:end], outL[start:end], outR[start:end])
	}
}

func (u *Unit) process(inL, inR, outL, outR []float64) {
	n := len(inL)
	l, r, g := u.l[:n], u.r[:n], u.gain[:n]

	u.inTone.Process(inL, inR, l, r)
	u.input.Fill(g)
	vecmath.MulBlockInPlace(l, g)
	vecmath.MulBlockInPlace(r, g)
	u.panIn.process(l, r)

	for k, d := range u.diffusers {
		src := l
		if k%2 == 1 {
			src = r
		}
		d.Process(src, u.lanes[k][:n])
	}
	u.mixer.ProcessBlock(u.lanes, n)

	if u.decay.IsInTransition() {
		u.decay.Advance(n)
		_ = u.net.SetRT60Decay(u.decay.Value())
	}
	u.net.ProcessMultiChannelInput(u.lanes, outL, outR)

	// Staged structures are live now, so the mean delay is current.
	if u.normDirty {
		if u.normJump {
			u.norm.Jump(u.normalization())
		} else {
			u.norm.SetTarget(u.normalization(), u.smoothing)
		}
		u.normDirty = false
		u.normJump = false
	}

	u.pitch.Process(outL, outR)
	u.outTone.Process(outL, outR, outL, outR)

	u.norm.Fill(g)
	vecmath.MulBlockInPlace(outL, g)
	vecmath.MulBlockInPlace(outR, g)
	u.panOut.process(outL, outR)
	u.level.Fill(g)
	vecmath.MulBlockInPlace(outL, g)
	vecmath.MulBlockInPlace(outR, g)

	if u.fading && u.tail > 0 {
		u.tail -= n
		if u.tail <= 0 {
			u.level.SetTarget(0, u.outFade)
		}
	}
}
