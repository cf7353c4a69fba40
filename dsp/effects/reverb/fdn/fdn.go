package fdn

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-reverb/dsp/core"
	"github.com/cwbudde/algo-reverb/dsp/filter/decay"
	"github.com/cwbudde/algo-reverb/dsp/rng"
)

const (
	defaultRT60      = 1.5
	defaultCrossover = 4000.0
)

// layout assigns each line a region of the shared arena.
type layout struct {
	lengths []int
	offsets []int
	cursors []int
	signs   []float64
}

func newLayout(lines int) layout {
	return layout{
		lengths: make([]int, lines),
		offsets: make([]int, lines),
		cursors: make([]int, lines),
		signs:   make([]float64, lines),
	}
}

// Structure is the storage and line layout for one maximum delay. The spare
// layout lets lines be re-randomised without allocating.
type Structure struct {
	minLen, maxLen int
	arena          []float64
	active, spare  layout
}

func newStructure(lines, minLen, maxLen int) *Structure {
	return &Structure{
		minLen: minLen,
		maxLen: maxLen,
		arena:  make([]float64, lines*maxLen),
		active: newLayout(lines),
		spare:  newLayout(lines),
	}
}

// Network is a feedback delay network: numDelays lines recirculated through
// a block-orthogonal matrix with per-line frequency-dependent decay.
//
// The arena holds numDelays lines of the maximum length rather than the sum
// of the current lengths, so StageRelength can lay out new lengths in the
// same storage without allocating. Only the regions of the active lengths
// are read and written.
//
// Process, ProcessMultiChannelInput, Reset and the Set* methods belong to
// the audio goroutine. StageMaxDelay and StageRelength may be called from any
// goroutine; they take effect at the start of the next Process call.
type Network struct {
	cfg    Config
	lines  int
	matrix *blockMatrix
	bank   *decay.Bank
	rng    *rng.Source

	st      *Structure
	pending atomic.Pointer[Structure]

	relength     atomic.Bool
	relengthSeed atomic.Uint64

	rt60      float64
	lowMult   float64
	highMult  float64
	crossover float64

	dc, nyq []float64

	taps   []float64
	mixed  []float64
	inGain []float64
	stereo [2][]float64
}

// New builds a network from cfg. Storage for numDelays lines of the maximum
// length is allocated here and reused for the life of the network.
func New(cfg Config) (*Network, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := newBlockMatrix(cfg.NumDelays, cfg.BlockSize, cfg.FeedbackShift, cfg.MatrixGain)
	if err != nil {
		return nil, err
	}
	bank, err := decay.NewBank(cfg.NumDelays)
	if err != nil {
		return nil, err
	}

	lines := cfg.NumDelays
	n := &Network{
		cfg:       cfg,
		lines:     lines,
		matrix:    m,
		bank:      bank,
		rng:       rng.New(cfg.Seed),
		rt60:      defaultRT60,
		lowMult:   1,
		highMult:  1,
		crossover: min(defaultCrossover, cfg.SampleRate/4),
		dc:        make([]float64, lines),
		nyq:       make([]float64, lines),
		taps:      make([]float64, lines),
		mixed:     make([]float64, lines),
		inGain:    make([]float64, lines),
	}

	lo, hi := cfg.sampleRange(cfg.MaxDelay)
	st := newStructure(lines, lo, hi)
	if err := fillLayout(&st.active, lines, lo, hi, n.rng); err != nil {
		return nil, err
	}
	n.st = st
	n.updateDecay()
	return n, nil
}

// fillLayout randomises lengths and signs and packs the lines into the arena.
func fillLayout(l *layout, lines, minLen, maxLen int, r *rng.Source) error {
	if err := RandomDelayLengths(lines, minLen, maxLen, r, l.lengths); err != nil {
		return err
	}
	off := 0
	for i, length := range l.lengths {
		l.offsets[i] = off
		l.cursors[i] = 0
		off += length
	}
	balancedSigns(l.signs, r)
	return nil
}

// balancedSigns assigns half of each channel's lines a negative sign.
func balancedSigns(signs []float64, r *rng.Source) {
	for ch := 0; ch < 2; ch++ {
		count := 0
		for i := ch; i < len(signs); i += 2 {
			signs[i] = 1
			count++
		}
		neg := 0
		for i := ch; i < len(signs) && neg < count/2; i += 2 {
			signs[i] = -1
			neg++
		}
		// Shuffle within the channel.
		for k := count - 1; k > 0; k-- {
			j := r.IntN(k + 1)
			a, b := ch+2*k, ch+2*j
			signs[a], signs[b] = signs[b], signs[a]
		}
	}
}

// NumDelays returns the number of lines.
func (n *Network) NumDelays() int { return n.lines }

// SampleRate returns the processing sample rate.
func (n *Network) SampleRate() float64 { return n.cfg.SampleRate }

// RT60 returns the broadband decay time in seconds.
func (n *Network) RT60() float64 { return n.rt60 }

// MaxDelaySamples returns the longest line length the storage can hold.
func (n *Network) MaxDelaySamples() int { return n.st.maxLen }

// DelayLengths returns the current line lengths in samples.
func (n *Network) DelayLengths() []int { return n.st.active.lengths }

// Signs returns the output sign of each line.
func (n *Network) Signs() []float64 { return n.st.active.signs }

// MeanDelaySeconds returns the mean line length in seconds.
func (n *Network) MeanDelaySeconds() float64 {
	var sum float64
	for _, l := range n.st.active.lengths {
		sum += float64(l)
	}
	return sum / float64(n.lines) / n.cfg.SampleRate
}

// SetRT60Decay sets the broadband decay time. Each line gets the per-pass
// gain 10^(-3*d/rt60) for its length d in seconds, so all lines decay at
// the same rate in time. math.Inf(1) selects sustain.
func (n *Network) SetRT60Decay(seconds float64) error {
	if math.IsNaN(seconds) || seconds <= 0 || math.IsInf(seconds, -1) {
		return fmt.Errorf("fdn RT60 must be > 0: %f", seconds)
	}
	n.rt60 = seconds
	n.updateDecay()
	return nil
}

// SetDecayShape makes lows decay lowMult times and highs highMult times as
// long as the broadband RT60, meeting at crossoverHz.
func (n *Network) SetDecayShape(lowMult, highMult, crossoverHz float64) error {
	if !(lowMult > 0) || math.IsInf(lowMult, 0) {
		return fmt.Errorf("fdn low decay multiplier must be > 0: %f", lowMult)
	}
	if !(highMult > 0) || math.IsInf(highMult, 0) {
		return fmt.Errorf("fdn high decay multiplier must be > 0: %f", highMult)
	}
	if !(crossoverHz > 0) || crossoverHz >= n.cfg.SampleRate/2 {
		return fmt.Errorf("fdn decay crossover must be in (0, %f): %f", n.cfg.SampleRate/2, crossoverHz)
	}
	n.lowMult = lowMult
	n.highMult = highMult
	n.crossover = crossoverHz
	n.updateDecay()
	return nil
}

// DecayShape returns the low and high multipliers and the crossover.
func (n *Network) DecayShape() (lowMult, highMult, crossoverHz float64) {
	return n.lowMult, n.highMult, n.crossover
}

// LoopGainBound returns an upper bound on the gain around any feedback
// cycle: the matrix gain times the largest per-line filter magnitude. It is
// below 1 for every finite RT60.
func (n *Network) LoopGainBound() float64 {
	var g float64
	for i := range n.dc {
		g = max(g, n.dc[i], n.nyq[i])
	}
	return g * n.matrix.gain
}

func (n *Network) updateDecay() {
	fs := n.cfg.SampleRate
	for i, l := range n.st.active.lengths {
		d := float64(l)
		n.dc[i] = LineGain(d, n.rt60*n.lowMult, fs)
		n.nyq[i] = LineGain(d, n.rt60*n.highMult, fs)
	}
	// Inputs were validated, so the bank accepts them.
	if n.lowMult == n.highMult {
		_ = n.bank.SetBroadband(n.dc)
		return
	}
	_ = n.bank.SetGains(n.dc, n.nyq, n.crossover, fs)
}

// PrepareMaxDelay builds storage and a fresh layout for a new maximum delay
// in seconds. It allocates and must not be called from the audio goroutine.
func (n *Network) PrepareMaxDelay(seconds float64) (*Structure, error) {
	cfg := n.cfg
	cfg.MaxDelay = seconds
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lo, hi := cfg.sampleRange(seconds)
	st := newStructure(n.lines, lo, hi)
	r := rng.New(cfg.Seed ^ uint64(hi)<<32)
	if err := fillLayout(&st.active, n.lines, lo, hi, r); err != nil {
		return nil, err
	}
	return st, nil
}

// StageStructure queues st for the next block boundary. st must come from
// PrepareMaxDelay on a network with the same line count.
func (n *Network) StageStructure(st *Structure) error {
	if st == nil || len(st.active.lengths) != n.lines {
		return fmt.Errorf("fdn structure does not match %d lines", n.lines)
	}
	n.pending.Store(st)
	return nil
}

// StageMaxDelay prepares and stages a new maximum delay in seconds.
func (n *Network) StageMaxDelay(seconds float64) error {
	st, err := n.PrepareMaxDelay(seconds)
	if err != nil {
		return err
	}
	return n.StageStructure(st)
}

// MaxDelay returns the maximum delay of a prepared structure in samples.
func (st *Structure) MaxDelay() int { return st.maxLen }

// StageRelength queues new random line lengths and signs drawn from seed.
// They are applied at the next block boundary without allocating, and the
// line contents are cleared.
func (n *Network) StageRelength(seed uint64) {
	n.relengthSeed.Store(seed)
	n.relength.Store(true)
}

// applyStaged swaps in pending structure changes. It runs at the top of
// every Process call.
func (n *Network) applyStaged() {
	if st := n.pending.Swap(nil); st != nil {
		n.st = st
		n.bank.Reset()
		n.updateDecay()
	}
	if n.relength.Swap(false) {
		st := n.st
		n.rng.Reseed(n.relengthSeed.Load())
		// The range was validated when st was built.
		_ = fillLayout(&st.spare, n.lines, st.minLen, st.maxLen, n.rng)
		st.active, st.spare = st.spare, st.active
		clear(st.arena)
		n.bank.Reset()
		n.updateDecay()
	}
}

// Reset clears every line and filter.
func (n *Network) Reset() {
	clear(n.st.arena)
	for i := range n.st.active.cursors {
		n.st.active.cursors[i] = 0
	}
	n.bank.Reset()
}

// Process runs the network on a stereo block: inL feeds the even lines and
// inR the odd lines. Outputs are the signed sums of the even and odd lines.
// All slices must have the same length; inputs and outputs may alias.
func (n *Network) Process(inL, inR, outL, outR []float64) {
	n.stereo[0], n.stereo[1] = inL, inR
	n.ProcessMultiChannelInput(n.stereo[:], outL, outR)
	n.stereo[0], n.stereo[1] = nil, nil
}

// ProcessMultiChannelInput runs the network with one input lane per group
// of lines: lane k feeds lines k, k+len(lanes), k+2*len(lanes), ... with a
// gain of 1/sqrt(lines fed), which keeps the injected energy equal to the
// lane energy. Every lane must hold at least len(outL) samples.
func (n *Network) ProcessMultiChannelInput(lanes [][]float64, outL, outR []float64) {
	count := len(outL)
	if len(outR) != count {
		panic(fmt.Sprintf("fdn: output lengths differ: %d, %d", count, len(outR)))
	}
	if len(lanes) == 0 || len(lanes) > n.lines {
		panic(fmt.Sprintf("fdn: lane count must be in [1, %d]: %d", n.lines, len(lanes)))
	}
	for _, lane := range lanes {
		if len(lane) < count {
			panic(fmt.Sprintf("fdn: input lane shorter than output: %d < %d", len(lane), count))
		}
	}

	n.applyStaged()

	numLanes := len(lanes)
	for k := 0; k < numLanes; k++ {
		fed := (n.lines - k + numLanes - 1) / numLanes
		g := 1 / math.Sqrt(float64(fed))
		for i := k; i < n.lines; i += numLanes {
			n.inGain[i] = g
		}
	}

	st := n.st
	lay := &st.active
	arena := st.arena
	outScale := 1 / math.Sqrt(float64(n.lines/2))

	for t := 0; t < count; t++ {
		for i := 0; i < n.lines; i++ {
			n.taps[i] = arena[lay.offsets[i]+lay.cursors[i]]
		}

		n.bank.Process(n.taps)

		var l, r float64
		for i := 0; i < n.lines; i += 2 {
			l += lay.signs[i] * n.taps[i]
			r += lay.signs[i+1] * n.taps[i+1]
		}

		n.matrix.apply(n.mixed, n.taps)

		for i := 0; i < n.lines; i++ {
			v := n.mixed[i] + n.inGain[i]*lanes[i%numLanes][t]
			pos := lay.offsets[i] + lay.cursors[i]
			arena[pos] = core.FlushDenormals(v)
			lay.cursors[i]++
			if lay.cursors[i] == lay.lengths[i] {
				lay.cursors[i] = 0
			}
		}

		outL[t] = l * outScale
		outR[t] = r * outScale
	}

	n.bank.Flush()
}
