package diffuse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-reverb/dsp/rng"
)

func impulseResponse(t *testing.T, d *Diffuser, n int) []float64 {
	t.Helper()
	in := make([]float64, n)
	in[0] = 1
	out := make([]float64, n)
	d.Process(in, out)
	return out
}

func TestDiffuserImpulseMatchesPattern(t *testing.T) {
	d, err := New(2400, 16, 0)
	require.NoError(t, err)
	p, err := Generate(PatternConfig{Taps: 12, WindowMs: 40, DecayDB: 30}, 48000, rng.New(7))
	require.NoError(t, err)
	require.NoError(t, d.Stage(p))

	ir := impulseResponse(t, d, 2400)
	want := make([]float64, 2400)
	for k, pos := range p.Positions {
		want[pos] += p.Gains[k]
	}
	assert.InDeltaSlice(t, want, ir, 1e-15)

	var energy float64
	for _, v := range ir {
		energy += v * v
	}
	assert.InDelta(t, 1, energy, 1e-12)
}

func TestDiffuserDefaultIsIdentity(t *testing.T) {
	d, err := New(64, 4, 16)
	require.NoError(t, err)
	in := []float64{0.5, -0.25, 1, 0}
	out := make([]float64, 4)
	d.Process(in, out)
	assert.Equal(t, in, out)
}

func TestDiffuserStageValidation(t *testing.T) {
	d, err := New(100, 4, 10)
	require.NoError(t, err)
	assert.Error(t, d.Stage(nil))
	assert.Error(t, d.Stage(&Pattern{Positions: []int{0, 100}, Gains: []float64{1, 1}}))
	assert.Error(t, d.Stage(&Pattern{Positions: []int{0, 1, 2, 3, 4}, Gains: []float64{1, 1, 1, 1, 1}}))
	assert.Error(t, d.Stage(&Pattern{Positions: []int{0}, Gains: []float64{1, 1}}))
}

func TestDiffuserCrossfadeIsSmooth(t *testing.T) {
	const fs = 48000.0
	cfg := PatternConfig{Taps: 8, WindowMs: 10, DecayDB: 20}
	d, err := New(cfg.WindowSamples(fs), 8, 2048)
	require.NoError(t, err)
	first, err := Generate(cfg, fs, rng.New(1))
	require.NoError(t, err)
	require.NoError(t, d.Rerandomize(cfg, fs, rng.New(1)))
	assert.Equal(t, first.Positions, d.Pattern().Positions)

	// Constant input: the output settles on the pattern's tap sum and the
	// crossfade must glide between the two sums.
	n := 8192
	in := make([]float64, n)
	for i := range in {
		in[i] = 1
	}
	out := make([]float64, n)
	d.Process(in[:4096], out[:4096])

	second, err := Generate(cfg, fs, rng.New(2))
	require.NoError(t, err)
	require.NoError(t, d.Stage(second))
	d.Process(in[4096:], out[4096:])
	assert.False(t, d.IsFading())

	sum := func(p *Pattern) float64 {
		var s float64
		for _, g := range p.Gains {
			s += g
		}
		return s
	}
	assert.InDelta(t, sum(first), out[4095], 1e-12)
	assert.InDelta(t, sum(second), out[n-1], 1e-12)

	var across float64
	for i := 4096; i < 4096+2048; i++ {
		across = math.Max(across, math.Abs(out[i]-out[i-1]))
	}
	assert.Less(t, across, 0.01)
}

func TestDiffuserRestageWaitsForCrossfade(t *testing.T) {
	const fade = 2048
	d, err := New(8, 2, fade)
	require.NoError(t, err)
	mid := &Pattern{Positions: []int{0, 3}, Gains: []float64{-0.6, -0.8}}
	last := &Pattern{Positions: []int{2, 5}, Gains: []float64{0.8, 0.6}}

	n := 64 + 3*fade
	in := make([]float64, n)
	for i := range in {
		in[i] = 1
	}
	out := make([]float64, n)
	d.Process(in[:64], out[:64])
	require.NoError(t, d.Stage(mid))
	d.Process(in[64:64+fade/3], out[64:64+fade/3])
	require.True(t, d.IsFading())

	// Restaging a third of the way in must not abandon the running fade.
	require.NoError(t, d.Stage(last))
	d.Process(in[64+fade/3:], out[64+fade/3:])
	assert.False(t, d.IsFading())
	assert.Same(t, last, d.Pattern())

	assert.InDelta(t, 1, out[63], 1e-12)
	assert.InDelta(t, -1.4, out[64+fade], 1e-9, "first fade must complete")
	assert.InDelta(t, 1.4, out[n-1], 1e-12)

	var step float64
	for i := 1; i < n; i++ {
		step = math.Max(step, math.Abs(out[i]-out[i-1]))
	}
	assert.Less(t, step, 0.01)
}

func TestDiffuserRestageKeepsLatest(t *testing.T) {
	d, err := New(8, 1, 16)
	require.NoError(t, err)
	a := &Pattern{Positions: []int{1}, Gains: []float64{1}}
	b := &Pattern{Positions: []int{2}, Gains: []float64{1}}
	c := &Pattern{Positions: []int{3}, Gains: []float64{1}}
	buf := make([]float64, 4)
	require.NoError(t, d.Stage(a))
	d.Process(buf, buf)
	require.NoError(t, d.Stage(b))
	require.NoError(t, d.Stage(c))
	d.Process(buf, buf)
	assert.Same(t, a, d.Pattern(), "queued patterns wait for the fade")
	d.Process(make([]float64, 12), make([]float64, 12))
	assert.Same(t, c, d.Pattern())
	assert.True(t, d.IsFading())
}

func TestDiffuserRerandomizeNoAlloc(t *testing.T) {
	cfg := PatternConfig{Taps: 8, WindowMs: 10, DecayDB: 20}
	d, err := New(480, 8, 64)
	require.NoError(t, err)
	r := rng.New(3)
	require.NoError(t, d.Rerandomize(cfg, 48000, r))
	allocs := testing.AllocsPerRun(20, func() {
		_ = d.Rerandomize(cfg, 48000, r)
	})
	assert.Zero(t, allocs)

	assert.Error(t, d.Rerandomize(PatternConfig{Taps: 16, WindowMs: 10}, 48000, r))
	assert.Error(t, d.Rerandomize(PatternConfig{Taps: 4, WindowMs: 100}, 48000, r))
}

func TestDiffuserReset(t *testing.T) {
	d, err := New(16, 2, 0)
	require.NoError(t, err)
	require.NoError(t, d.Stage(&Pattern{Positions: []int{0, 5}, Gains: []float64{0.6, 0.8}}))
	out := make([]float64, 3)
	d.Process([]float64{1, 1, 1}, out)
	d.Reset()
	out2 := make([]float64, 8)
	d.Process(make([]float64, 8), out2)
	assert.Equal(t, make([]float64, 8), out2)
}
