package reverb

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-reverb/dsp/core"
	"github.com/cwbudde/algo-reverb/dsp/effects/reverb/fdn"
	"github.com/cwbudde/algo-reverb/internal/testutil"
	timestats "github.com/cwbudde/algo-reverb/stats/time"
)

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := smallConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngineFromConfig(cfg)
	require.NoError(t, err)
	return e
}

func render(t *testing.T, e *Engine, inL, inR []float64, offline bool) ([]float64, []float64) {
	t.Helper()
	outL := make([]float64, len(inL))
	outR := make([]float64, len(inR))
	require.NoError(t, e.ProcessStereo(inL, inR, outL, outR, len(inL), offline))
	return outL, outR
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(48000, 16, 0.02, 0.8, 16, 256)
	require.NoError(t, err)

	_, err = NewEngine(48000, 7, 0.02, 0.8, 16, 256)
	assert.True(t, errors.Is(err, fdn.ErrOddDelayCount))

	_, err = NewEngine(48000, 16, 0.5, 0.2, 16, 256)
	assert.True(t, errors.Is(err, fdn.ErrDelayRange))

	tests := []struct {
		name string
		opts []Option
	}{
		{"one unit", []Option{WithUnits(1)}},
		{"lanes", []Option{WithDiffuserLanes(6)}},
		{"trigger", []Option{WithTrigger(TriggerConfig{})}},
		{"params", []Option{WithParams(Params{})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(48000, 16, 0.02, 0.8, 16, 256, tt.opts...)
			assert.Error(t, err)
		})
	}

	_, err = NewEngine(0, 16, 0.02, 0.8, 16, 256)
	assert.Error(t, err)
	_, err = NewEngine(48000, 16, 0.02, 0.8, 0, 256)
	assert.Error(t, err)
}

func TestEngineSetters(t *testing.T) {
	e := newTestEngine(t, nil)

	require.NoError(t, e.SetRT60Decay(2.5))
	require.NoError(t, e.SetDiffusion(0.9))
	require.NoError(t, e.SetDelayPitchModDepth(0.4))
	require.NoError(t, e.SetWetMix(0.7))
	require.NoError(t, e.SetDecayShape(1.5, 0.4, 2000))
	require.NoError(t, e.SetTone(80, 9000))
	require.NoError(t, e.SetEvolution(false))
	require.NoError(t, e.SetRT60Decay(math.Inf(1)))

	p := e.Params()
	assert.True(t, math.IsInf(p.RT60, 1))
	assert.Equal(t, 0.9, p.Diffusion)
	assert.Equal(t, 0.4, p.PitchModDepth)
	assert.Equal(t, 0.7, p.WetMix)
	assert.Equal(t, 1.5, p.DecayLow)
	assert.Equal(t, 0.4, p.DecayHigh)
	assert.Equal(t, 2000.0, p.DecayCrossover)
	assert.Equal(t, 80.0, p.LowCut)
	assert.Equal(t, 9000.0, p.HighCut)
	assert.False(t, p.Evolution)

	invalid := []error{
		e.SetRT60Decay(0),
		e.SetRT60Decay(-1),
		e.SetRT60Decay(math.NaN()),
		e.SetDiffusion(1.1),
		e.SetDiffusion(math.NaN()),
		e.SetDelayPitchModDepth(-0.1),
		e.SetWetMix(2),
		e.SetDecayShape(0, 1, 1000),
		e.SetDecayShape(1, 1, 30000),
		e.SetTone(-5, 0),
	}
	for i, err := range invalid {
		assert.Error(t, err, "case %d", i)
	}
	assert.Equal(t, p, e.Params(), "rejected values leave the params untouched")
}

func TestEngineParamsReachUnits(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.SetRT60Decay(1.2))
	require.NoError(t, e.SetDelayPitchModDepth(0.6))

	bs := e.Config().BlockSize
	in := make([]float64, bs)
	render(t, e, in, in, true)

	o := e.Orchestrator()
	for i := 0; i < o.Units(); i++ {
		u := o.Unit(i)
		assert.Equal(t, 1.2, u.rt60)
		assert.Equal(t, 0.6, u.pitch.Depth())
	}
}

func TestEngineNaNInputIsSilenced(t *testing.T) {
	e := newTestEngine(t, nil)
	bs := e.Config().BlockSize
	in := testutil.DeterministicNoise(1, 0.5, 4*bs)
	render(t, e, in, in, true)

	bad := testutil.DeterministicNoise(2, 0.5, bs)
	bad[17] = math.NaN()
	outL, outR := render(t, e, bad, bad, true)
	assert.Zero(t, timestats.Peak(outL))
	assert.Zero(t, timestats.Peak(outR))

	bad[17] = math.Inf(-1)
	render(t, e, in[:bs], bad, true)
	assert.Equal(t, uint64(2), e.Stats().NaNBlocks)

	// The loop was never fed the bad samples.
	outL, outR = render(t, e, in, in, true)
	testutil.RequireFinite(t, outL)
	testutil.RequireFinite(t, outR)
	assert.Equal(t, uint64(8*bs), e.Stats().Samples, "rejected calls are not counted")
}

func TestEngineDestroy(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Destroy()
	e.Destroy()

	in := testutil.DeterministicNoise(3, 0.5, 64)
	outL := make([]float64, 64)
	outR := make([]float64, 64)
	for i := range outL {
		outL[i], outR[i] = 1, 1
	}
	err := e.ProcessStereo(in, in, outL, outR, 64, false)
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.Zero(t, timestats.Peak(outL))
	assert.Zero(t, timestats.Peak(outR))

	assert.ErrorIs(t, e.SetRT60Decay(1), ErrDestroyed)
	assert.ErrorIs(t, e.SetDiffusion(0.5), ErrDestroyed)
	assert.ErrorIs(t, e.SetWetMix(0.5), ErrDestroyed)
	assert.ErrorIs(t, e.SetMaxDelay(0.04), ErrDestroyed)
	assert.ErrorIs(t, e.Rotate(), ErrDestroyed)
	assert.Nil(t, e.Orchestrator())
	assert.True(t, math.IsNaN(e.Stats().LastScore))
}

func TestEngineShortBuffersPanic(t *testing.T) {
	e := newTestEngine(t, nil)
	buf := make([]float64, 10)
	assert.Panics(t, func() {
		_ = e.ProcessStereo(buf, buf, buf, buf[:5], 10, false)
	})
}

func TestEngineOfflineIsBitIdentical(t *testing.T) {
	cfg := func(c *Config) { c.Params.PitchModDepth = 0.5 }
	fs := 48000.0
	inL := testutil.AlternatingCharacter(fs, 12000, 8, 4)
	inR := testutil.DeterministicNoise(5, 0.3, len(inL))

	a := newTestEngine(t, cfg)
	b := newTestEngine(t, cfg)
	aL, aR := render(t, a, inL, inR, true)
	bL, bR := render(t, b, inL, inR, true)
	testutil.RequireBitIdentical(t, aL, bL)
	testutil.RequireBitIdentical(t, aR, bR)
	require.Positive(t, a.Stats().Rotations, "rotations are part of the deterministic render")
	assert.Equal(t, a.Stats().Rotations, b.Stats().Rotations)
}

func TestEngineDryOnlyAtZeroWet(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.Params.WetMix = 0 })
	in := testutil.DeterministicNoise(6, 0.5, 5000)
	inR := testutil.DeterministicSine(300, 48000, 0.5, 5000)
	outL, outR := render(t, e, in, inR, true)
	testutil.RequireBitIdentical(t, in, outL)
	testutil.RequireBitIdentical(t, inR, outR)
}

func TestEngineInPlace(t *testing.T) {
	in := testutil.DeterministicNoise(7, 0.5, 6000)
	inR := testutil.DeterministicNoise(8, 0.5, 6000)

	wantL, wantR := render(t, newTestEngine(t, nil), in, inR, true)

	bufL := append([]float64(nil), in...)
	bufR := append([]float64(nil), inR...)
	e := newTestEngine(t, nil)
	require.NoError(t, e.ProcessStereo(bufL, bufR, bufL, bufR, len(bufL), true))
	testutil.RequireBitIdentical(t, wantL, bufL)
	testutil.RequireBitIdentical(t, wantR, bufR)
}

func TestEngineChunkInvariance(t *testing.T) {
	noEvolution := func(c *Config) { c.Params.Evolution = false }
	in := testutil.DeterministicNoise(9, 0.5, 9000)
	inR := testutil.DeterministicNoise(10, 0.5, 9000)

	wantL, wantR := render(t, newTestEngine(t, noEvolution), in, inR, true)

	e := newTestEngine(t, noEvolution)
	gotL := make([]float64, len(in))
	gotR := make([]float64, len(in))
	sizes := []int{1, 37, 256, 300, 1000, 5}
	for start, k := 0, 0; start < len(in); k++ {
		end := min(start+sizes[k%len(sizes)], len(in))
		require.NoError(t, e.ProcessStereo(in[start:end], inR[start:end], gotL[start:end], gotR[start:end], end-start, true))
		start = end
	}
	testutil.RequireSliceNearlyEqual(t, wantL, gotL, 1e-9)
	testutil.RequireSliceNearlyEqual(t, wantR, gotR, 1e-9)
}

func TestEngineProcessDoesNotAllocate(t *testing.T) {
	e := newTestEngine(t, nil)
	n := 1000
	in := testutil.DeterministicNoise(11, 0.5, n)
	outL := make([]float64, n)
	outR := make([]float64, n)
	require.NoError(t, e.SetWetMix(0.5))
	require.NoError(t, e.ProcessStereo(in, in, outL, outR, n, false))

	allocs := testing.AllocsPerRun(20, func() {
		_ = e.ProcessStereo(in, in, outL, outR, n, false)
	})
	assert.Zero(t, allocs)
}

func TestEngineMaxDelayChange(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.Params.Evolution = false })
	require.Error(t, e.SetMaxDelay(0.004))
	require.NoError(t, e.SetMaxDelay(0.03))

	fs := int(e.Config().SampleRate)
	in := testutil.DeterministicNoise(12, 0.5, 2*fs)
	outL, outR := render(t, e, in, in, true)
	testutil.RequireFinite(t, outL)
	testutil.RequireFinite(t, outR)

	o := e.Orchestrator()
	assert.NotEqual(t, 0, o.ActiveUnit(), "the change forces a rotation")
	assert.Equal(t, 1440, o.Unit(o.ActiveUnit()).Network().MaxDelaySamples())
	assert.Equal(t, Inactive, o.State(0))
	for _, l := range o.Unit(o.ActiveUnit()).Network().DelayLengths() {
		assert.LessOrEqual(t, l, 1440)
	}
}

func TestEngineConcurrentSetters(t *testing.T) {
	e := newTestEngine(t, nil)
	bs := e.Config().BlockSize
	in := testutil.DeterministicNoise(13, 0.5, bs)
	outL := make([]float64, bs)
	outR := make([]float64, bs)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = e.SetRT60Decay(0.3 + float64(i%10)*0.1)
			_ = e.SetDiffusion(float64(i%11) / 10)
			_ = e.SetWetMix(float64(i%5) / 4)
			_ = e.Rotate()
		}
	}()
	for i := 0; i < 400; i++ {
		require.NoError(t, e.ProcessStereo(in, in, outL, outR, bs, false))
	}
	wg.Wait()
	testutil.RequireFinite(t, outL)
	testutil.RequireFinite(t, outR)
}

// TestEngineNoClicks drives a steady tone through rotations and parameter
// changes and checks that no block has a sample step far above the local
// average step size.
func TestEngineNoClicks(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.Params.PitchModDepth = 0
		c.Params.WetMix = 0.5
	})
	fs := int(e.Config().SampleRate)
	n := 3 * fs
	in := testutil.DeterministicSine(440, float64(fs), 0.5, n)
	outL := make([]float64, n)
	outR := make([]float64, n)

	changes := map[int]func(){
		fs:         func() { require.NoError(t, e.SetRT60Decay(1.2)) },
		3 * fs / 2: func() { require.NoError(t, e.SetDiffusion(0.9)) },
		2 * fs:     func() { require.NoError(t, e.SetWetMix(0.7)) },
	}
	const chunk = 480
	for start := 0; start < n; start += chunk {
		if change, ok := changes[start]; ok {
			change()
		}
		require.NoError(t, e.ProcessStereo(in[start:], in[start:], outL[start:], outR[start:], chunk, true))
	}
	require.Positive(t, e.Stats().Rotations)

	assertNoStepBursts(t, outL, fs/2, 28*fs/10, chunk)
	assertNoStepBursts(t, outR, fs/2, 28*fs/10, chunk)
}

// TestEngineDiffusionTogglingNoClicks restages diffusion faster than the
// diffuser crossfade completes.
func TestEngineDiffusionTogglingNoClicks(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.Params.PitchModDepth = 0
		c.Params.WetMix = 0.5
	})
	fs := int(e.Config().SampleRate)
	n := 3 * fs
	in := testutil.DeterministicSine(440, float64(fs), 0.5, n)
	outL := make([]float64, n)
	outR := make([]float64, n)

	const chunk = 480
	toggle := fs / 50
	for start, i := 0, 0; start < n; start += chunk {
		if start >= fs/2 && start < 2*fs && start%toggle == 0 {
			amount := 0.2
			if i%2 == 0 {
				amount = 0.9
			}
			require.NoError(t, e.SetDiffusion(amount))
			i++
		}
		require.NoError(t, e.ProcessStereo(in[start:], in[start:], outL[start:], outR[start:], chunk, true))
	}
	assertNoStepBursts(t, outL, fs/2, 28*fs/10, chunk)
	assertNoStepBursts(t, outR, fs/2, 28*fs/10, chunk)
}

// assertNoStepBursts checks that no chunk in [from, to) has a sample step far
// above the average step of its neighbourhood.
func assertNoStepBursts(t *testing.T, out []float64, from, to, chunk int) {
	t.Helper()
	delta := make([]float64, len(out))
	for i := 1; i < len(out); i++ {
		delta[i] = math.Abs(out[i] - out[i-1])
	}
	const window = 4800
	for start := from; start+chunk <= to; start += chunk {
		var peak float64
		for _, d := range delta[start : start+chunk] {
			peak = math.Max(peak, d)
		}
		var sum float64
		for _, d := range delta[max(0, start-window):min(len(delta), start+chunk+window)] {
			sum += d
		}
		mean := sum / float64(chunk+2*window)
		require.LessOrEqual(t, peak, 6*mean, "step burst in block at %d", start)
	}
}

func TestEngineOptions(t *testing.T) {
	e, err := NewEngine(44100, 8, 0.01, 0.1, 8, 512,
		WithSeed(42),
		WithUnits(4),
		WithDiffuserLanes(8),
		WithMatrix(4, 1),
		WithProcessorOptions(core.WithBlockSize(128)),
	)
	require.NoError(t, err)
	cfg := e.Config()
	assert.Equal(t, 44100.0, cfg.SampleRate)
	assert.Equal(t, 128, cfg.BlockSize)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 4, e.Orchestrator().Units())
	assert.Equal(t, 8, cfg.DiffuserLanes)
	assert.Equal(t, 4, cfg.MatrixBlockSize)
	assert.Equal(t, 1, cfg.FeedbackShift)

	in := testutil.DeterministicNoise(14, 0.5, 1000)
	outL, outR := render(t, e, in, in, true)
	testutil.RequireFinite(t, outL)
	testutil.RequireFinite(t, outR)
}

func TestEngineUncoupledBlocks(t *testing.T) {
	e, err := NewEngine(48000, 16, 0.02, 0.8, 16, 512, WithUncoupledBlocks())
	require.NoError(t, err)
	assert.True(t, e.Config().UncoupledBlocks)
	assert.Zero(t, e.Config().FeedbackShift)

	in := testutil.DeterministicNoise(15, 0.5, 4800)
	outL, outR := render(t, e, in, in, true)
	testutil.RequireFinite(t, outL)
	testutil.RequireFinite(t, outR)

	_, err = NewEngine(48000, 16, 0.02, 0.8, 16, 512, WithUncoupledBlocks(), WithMatrix(4, 2))
	require.Error(t, err)
}
