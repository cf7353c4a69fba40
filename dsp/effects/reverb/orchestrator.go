package reverb

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-reverb/dsp/buffer"
	"github.com/cwbudde/algo-reverb/dsp/core"
	"github.com/cwbudde/algo-reverb/dsp/rng"
	"github.com/cwbudde/algo-reverb/dsp/spectrum"
	"github.com/cwbudde/algo-reverb/stats/frequency"
)

const transitionLogSize = 64

// UnitState is the lifecycle state of a unit inside the Orchestrator.
type UnitState uint8

const (
	// Inactive units are silent and not processed.
	Inactive UnitState = iota
	// Active is the single unit receiving input.
	Active
	// Fading units receive no new input while their tail dies out.
	Fading
)

func (s UnitState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Fading:
		return "fading"
	default:
		return "unknown"
	}
}

// Cause records why a transition happened.
type Cause uint8

const (
	CauseStart Cause = iota
	CauseTrigger
	CauseForced
	CauseDecayed
)

func (c Cause) String() string {
	switch c {
	case CauseStart:
		return "start"
	case CauseTrigger:
		return "trigger"
	case CauseForced:
		return "forced"
	case CauseDecayed:
		return "decayed"
	default:
		return "unknown"
	}
}

// Transition is one entry of the orchestrator's transition log.
type Transition struct {
	// Sample is the stream position at which the transition happened.
	Sample int64
	Unit   int
	From   UnitState
	To     UnitState
	Cause  Cause
	// Score is the trigger score, NaN for transitions not caused by it.
	Score float64
	// FadeRT60 is the decay time given to a unit entering Fading.
	FadeRT60 float64
}

type slot struct {
	unit  *Unit
	state UnitState
}

type rotation struct {
	cause    Cause
	strength float64
	score    float64
}

// Orchestrator runs several Units, exactly one of them Active, and rotates
// the Active role when the spectrum of the wet signal stops matching the
// dry input.
//
// Every analysis window of Trigger.FFTSize samples, the smoothed magnitude
// spectra of the dry input and the Active unit's output are compared by
// cosine similarity, corrected for the spectral flatness of the input. A
// score inside [BandLow, BandHigh] for Debounce consecutive windows fires a
// rotation: the Active unit starts Fading with a decay time that is shorter
// the lower the score, and the next Inactive unit in round-robin order is
// faded in. Without an Inactive unit the rotation waits.
//
// Process, Transitions and the accessors belong to the audio goroutine.
// Rotate and the counters behind Stats are safe from any goroutine.
type Orchestrator struct {
	trig     TriggerConfig
	maxBlock int
	fadeIn   int

	slots  []slot
	active int

	analyzer  *spectrum.Analyzer
	dryRing   *buffer.Ring
	wetRing   *buffer.Ring
	frame     []float64
	mag       []float64
	drySmooth []float64
	wetSmooth []float64
	dryFresh  bool
	wetFresh  bool

	evolution bool
	inBand    int
	pending   bool
	next      rotation
	forced    atomic.Bool

	clock   int64
	log     [transitionLogSize]Transition
	logHead int
	logLen  int

	rotations   atomic.Uint64
	deferred    atomic.Uint64
	silent      atomic.Uint64
	noWet       atomic.Uint64
	lastScore   atomic.Uint64
	activeIndex atomic.Int32

	tmpL, tmpR []float64
	dryMono    []float64
	wetMono    []float64
}

// NewOrchestrator builds cfg.Units units and activates the first one.
// entropy seeds the live-mode modulation phases.
func NewOrchestrator(cfg Config, entropy *rng.Source) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	analyzer, err := spectrum.NewAnalyzer(cfg.Trigger.FFTSize)
	if err != nil {
		return nil, err
	}
	dryRing, err := buffer.NewRing(cfg.Trigger.FFTSize)
	if err != nil {
		return nil, err
	}
	wetRing, err := buffer.NewRing(cfg.Trigger.FFTSize)
	if err != nil {
		return nil, err
	}

	bins := analyzer.Bins()
	o := &Orchestrator{
		trig:      cfg.Trigger,
		maxBlock:  cfg.BlockSize,
		fadeIn:    cfg.samples(cfg.FadeIn),
		slots:     make([]slot, cfg.Units),
		analyzer:  analyzer,
		dryRing:   dryRing,
		wetRing:   wetRing,
		frame:     make([]float64, cfg.Trigger.FFTSize),
		mag:       make([]float64, bins),
		drySmooth: make([]float64, bins),
		wetSmooth: make([]float64, bins),
		dryFresh:  true,
		wetFresh:  true,
		evolution: cfg.Params.Evolution,
		tmpL:      make([]float64, cfg.BlockSize),
		tmpR:      make([]float64, cfg.BlockSize),
		dryMono:   make([]float64, cfg.BlockSize),
		wetMono:   make([]float64, cfg.BlockSize),
	}
	for i := range o.slots {
		u, err := newUnit(cfg, i, entropy)
		if err != nil {
			return nil, err
		}
		o.slots[i].unit = u
	}
	o.lastScore.Store(math.Float64bits(math.NaN()))

	o.slots[0].unit.activate(0)
	o.setState(0, Active, CauseStart, math.NaN(), 0)
	return o, nil
}

// Units returns the number of units.
func (o *Orchestrator) Units() int { return len(o.slots) }

// Unit returns unit i.
func (o *Orchestrator) Unit(i int) *Unit { return o.slots[i].unit }

// State returns the lifecycle state of unit i.
func (o *Orchestrator) State(i int) UnitState { return o.slots[i].state }

// ActiveUnit returns the index of the Active unit.
func (o *Orchestrator) ActiveUnit() int { return o.active }

// Evolution reports whether analysis-driven rotation is enabled.
func (o *Orchestrator) Evolution() bool { return o.evolution }

// Rotate requests a rotation at the next opportunity regardless of the
// trigger. It is safe from any goroutine.
func (o *Orchestrator) Rotate() { o.forced.Store(true) }

// Transitions appends the logged transitions, oldest first, to dst[:0].
// Only the most recent entries are kept.
func (o *Orchestrator) Transitions(dst []Transition) []Transition {
	dst = dst[:0]
	start := o.logHead - o.logLen
	if start < 0 {
		start += transitionLogSize
	}
	for i := 0; i < o.logLen; i++ {
		dst = append(dst, o.log[(start+i)%transitionLogSize])
	}
	return dst
}

func (o *Orchestrator) setParams(p Params) {
	for i := range o.slots {
		o.slots[i].unit.setParams(p)
	}
	if p.Evolution != o.evolution {
		o.evolution = p.Evolution
		o.resetAnalysis()
	}
}

func (o *Orchestrator) resetAnalysis() {
	o.dryRing.Reset()
	o.wetRing.Reset()
	o.dryFresh = true
	o.wetFresh = true
	o.inBand = 0
}

// Process renders the summed wet output of all non-Inactive units for one
// block of at most the configured block size. Inputs and outputs must not
// alias.
func (o *Orchestrator) Process(inL, inR, outL, outR []float64, offlineRendering bool) {
	n := len(inL)
	outL, outR = outL[:n], outR[:n]
	tmpL, tmpR := o.tmpL[:n], o.tmpR[:n]
	core.Zero(outL)
	core.Zero(outR)

	for i := range o.slots {
		s := &o.slots[i]
		if s.state == Inactive {
			continue
		}
		s.unit.ProcessStereo(inL, inR, tmpL, tmpR, n, offlineRendering)
		vecmath.AddBlockInPlace(outL, tmpL)
		vecmath.AddBlockInPlace(outR, tmpR)
		if i == o.active && o.evolution {
			vecmath.AddMulBlock(o.wetMono[:n], tmpL, tmpR, 0.5)
		}
	}
	o.clock += int64(n)

	for i := range o.slots {
		s := &o.slots[i]
		if s.state == Fading && s.unit.done() {
			s.unit.deactivate()
			o.setState(i, Inactive, CauseDecayed, math.NaN(), 0)
		}
	}

	if o.forced.Swap(false) {
		o.request(rotation{cause: CauseForced, strength: 1, score: math.NaN()})
	}

	if !o.evolution {
		if o.pending {
			o.tryRotate()
		}
		return
	}
	vecmath.AddMulBlock(o.dryMono[:n], inL, inR, 0.5)
	o.feed(o.dryMono[:n], o.wetMono[:n])
}

// feed pushes mono dry and wet samples into the analysis rings and analyses
// every complete window. Pending rotations are retried only at window
// boundaries, so rotations stay at least Debounce windows apart.
func (o *Orchestrator) feed(dry, wet []float64) {
	for len(dry) > 0 {
		k := o.dryRing.Produce(dry)
		o.wetRing.Produce(wet[:k])
		dry, wet = dry[k:], wet[k:]
		if o.dryRing.Free() == 0 {
			o.analyze()
		}
	}
}

func (o *Orchestrator) analyze() {
	o.dryRing.Consume(o.frame)
	silent := math.Sqrt(core.MeanSquare(o.frame)) < o.trig.SilenceThreshold
	if !silent {
		// Frame and spectrum sizes match the analyzer.
		_ = o.analyzer.MagnitudeInto(o.mag, o.frame)
		o.smooth(o.drySmooth, &o.dryFresh)
	}
	o.wetRing.Consume(o.frame)

	if silent {
		o.silent.Add(1)
		o.retry()
		return
	}
	_ = o.analyzer.MagnitudeInto(o.mag, o.frame)
	o.smooth(o.wetSmooth, &o.wetFresh)

	sim, ok := frequency.Similarity(o.drySmooth, o.wetSmooth)
	if !ok {
		o.noWet.Add(1)
		o.retry()
		return
	}
	correction := o.trig.ComplexityWeight * (frequency.Flatness(o.drySmooth) - o.trig.ComplexityReference)
	score := core.Clamp(sim-correction, 0, 1)
	o.lastScore.Store(math.Float64bits(score))

	if o.pending {
		o.tryRotate()
		return
	}
	if score >= o.trig.BandLow && score <= o.trig.BandHigh {
		o.inBand++
	} else {
		o.inBand = 0
	}
	if o.inBand >= o.trig.Debounce {
		strength := 1.0
		if width := o.trig.BandHigh - o.trig.BandLow; width > 0 {
			strength = (o.trig.BandHigh - score) / width
		}
		o.request(rotation{cause: CauseTrigger, strength: strength, score: score})
	}
}

// smooth folds o.mag into an exponentially smoothed spectrum.
func (o *Orchestrator) smooth(dst []float64, fresh *bool) {
	if *fresh {
		copy(dst, o.mag)
		*fresh = false
		return
	}
	a := o.trig.Smoothing
	for i, v := range o.mag {
		dst[i] = a*dst[i] + (1-a)*v
	}
}

func (o *Orchestrator) retry() {
	if o.pending {
		o.tryRotate()
	}
}

func (o *Orchestrator) request(r rotation) {
	// A forced rotation replaces a deferred trigger, never the reverse.
	if o.pending && o.next.cause == CauseForced && r.cause != CauseForced {
		return
	}
	o.next = r
	if !o.pending {
		o.pending = true
		if !o.tryRotate() {
			o.deferred.Add(1)
		}
		return
	}
	o.tryRotate()
}

// tryRotate performs the pending rotation if an Inactive unit exists.
func (o *Orchestrator) tryRotate() bool {
	units := len(o.slots)
	next := -1
	for k := 1; k < units; k++ {
		i := (o.active + k) % units
		if o.slots[i].state == Inactive {
			next = i
			break
		}
	}
	if next < 0 {
		return false
	}

	r := o.next
	fadeRT60 := o.trig.FadeRT60Max - core.Clamp(r.strength, 0, 1)*(o.trig.FadeRT60Max-o.trig.FadeRT60Min)
	old := o.active
	o.slots[old].unit.beginFade(fadeRT60)
	o.setState(old, Fading, r.cause, r.score, fadeRT60)
	o.slots[next].unit.activate(o.fadeIn)
	o.setState(next, Active, r.cause, r.score, 0)

	o.active = next
	o.pending = false
	o.inBand = 0
	o.wetFresh = true
	o.rotations.Add(1)
	return true
}

func (o *Orchestrator) setState(i int, to UnitState, cause Cause, score, fadeRT60 float64) {
	s := &o.slots[i]
	o.log[o.logHead] = Transition{
		Sample:   o.clock,
		Unit:     i,
		From:     s.state,
		To:       to,
		Cause:    cause,
		Score:    score,
		FadeRT60: fadeRT60,
	}
	o.logHead = (o.logHead + 1) % transitionLogSize
	o.logLen = min(o.logLen+1, transitionLogSize)
	s.state = to
	if to == Active {
		o.activeIndex.Store(int32(i))
	}
}
