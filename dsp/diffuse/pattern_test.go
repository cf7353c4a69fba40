package diffuse

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-reverb/dsp/rng"
)

func TestGenerateUnitEnergy(t *testing.T) {
	r := rng.New(1)
	for _, taps := range []int{1, 2, 3, 7, 8, 16, 33, 64} {
		for _, decay := range []float64{0, 6, 30, 60, 120} {
			for _, dry := range []bool{false, true} {
				cfg := PatternConfig{Taps: taps, WindowMs: 50, DecayDB: decay, IncludeDry: dry}
				p, err := Generate(cfg, 48000, r)
				require.NoError(t, err)
				assert.InDelta(t, 1, p.Energy(), 1e-12, "taps=%d decay=%g dry=%v", taps, decay, dry)
			}
		}
	}
}

func TestGenerateStructure(t *testing.T) {
	cfg := PatternConfig{Taps: 16, WindowMs: 20, DecayDB: 40}
	p, err := Generate(cfg, 48000, rng.New(9))
	require.NoError(t, err)
	require.Equal(t, 16, p.Len())

	window := cfg.WindowSamples(48000)
	pos, neg := 0, 0
	for k := range p.Positions {
		assert.GreaterOrEqual(t, p.Positions[k], 0)
		assert.Less(t, p.Positions[k], window)
		if k > 0 {
			assert.Greater(t, p.Positions[k], p.Positions[k-1], "positions strictly increasing")
		}
		if p.Gains[k] > 0 {
			pos++
		} else {
			neg++
		}
	}
	assert.Equal(t, 8, pos)
	assert.Equal(t, 8, neg)

	// Later taps are never louder than earlier ones.
	for k := 1; k < p.Len(); k++ {
		assert.LessOrEqual(t, math.Abs(p.Gains[k]), math.Abs(p.Gains[k-1])+1e-15)
	}
}

func TestGenerateDryTap(t *testing.T) {
	p, err := Generate(PatternConfig{Taps: 4, WindowMs: 10, DecayDB: 20, IncludeDry: true}, 48000, rng.New(3))
	require.NoError(t, err)
	require.Equal(t, 5, p.Len())
	assert.Equal(t, 0, p.Positions[0])
	assert.Greater(t, p.Gains[0], 0.0)
	for _, pos := range p.Positions[1:] {
		assert.Greater(t, pos, 0)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultPatternConfig()
	a, err := Generate(cfg, 44100, rng.New(42))
	require.NoError(t, err)
	b, err := Generate(cfg, 44100, rng.New(42))
	require.NoError(t, err)
	assert.Equal(t, a.Positions, b.Positions)
	assert.Equal(t, a.Gains, b.Gains)
}

func TestGenerateDenseWindow(t *testing.T) {
	// One sample per tap: every position must be used exactly once.
	cfg := PatternConfig{Taps: 48, WindowMs: 1, DecayDB: 10}
	p, err := Generate(cfg, 48000, rng.New(5))
	require.NoError(t, err)
	for k, pos := range p.Positions {
		assert.Equal(t, k, pos)
	}
}

func TestGenerateErrors(t *testing.T) {
	r := rng.New(1)
	_, err := Generate(PatternConfig{Taps: 0, WindowMs: 10}, 48000, r)
	assert.Error(t, err)
	_, err = Generate(PatternConfig{Taps: 4, WindowMs: 0}, 48000, r)
	assert.Error(t, err)
	_, err = Generate(PatternConfig{Taps: 4, WindowMs: 10, DecayDB: -1}, 48000, r)
	assert.Error(t, err)
	_, err = Generate(PatternConfig{Taps: 100, WindowMs: 1}, 48000, r)
	assert.True(t, errors.Is(err, ErrWindowTooShort))
}

func TestGenerateIntoReusesStorage(t *testing.T) {
	cfg := PatternConfig{Taps: 8, WindowMs: 30, DecayDB: 20}
	p, err := Generate(cfg, 48000, rng.New(1))
	require.NoError(t, err)
	r := rng.New(2)
	allocs := testing.AllocsPerRun(50, func() {
		_ = GenerateInto(p, cfg, 48000, r)
	})
	assert.Zero(t, allocs)
}
