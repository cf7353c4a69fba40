package dither

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-reverb/internal/testutil"
)

func TestNewQuantizerValidation(t *testing.T) {
	_, err := NewQuantizer(4)
	assert.Error(t, err)
	_, err = NewQuantizer(33)
	assert.Error(t, err)
	_, err = NewQuantizer(16, WithType(Type(7)))
	assert.Error(t, err)
	_, err = NewQuantizer(16, WithAmplitude(-1))
	assert.Error(t, err)
	_, err = NewQuantizer(16, WithShaping(Shaping(-1)))
	assert.Error(t, err)

	q, err := NewQuantizer(24, nil)
	require.NoError(t, err)
	assert.Equal(t, 24, q.BitDepth())
	assert.Equal(t, Triangular, q.Type())
}

func TestQuantizeWithoutDitherRounds(t *testing.T) {
	q, err := NewQuantizer(16, WithType(None))
	require.NoError(t, err)

	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{1.0 / 32768 * 0.4, 0},
		{1.0 / 32768 * 0.6, 1},
		{1, 32767},
		{2, 32767},
		{-1, -32768},
		{-3, -32768},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, q.Quantize(tt.in), "input %g", tt.in)
	}
}

func TestTriangularDitherIsBoundedAndUnbiased(t *testing.T) {
	q, err := NewQuantizer(16, WithSeed(3))
	require.NoError(t, err)

	const n = 100000
	in := testutil.DeterministicSine(997, 48000, 0.25, n)
	var sum float64
	for _, x := range in {
		e := float64(q.Quantize(x)) - x*32768
		require.LessOrEqual(t, math.Abs(e), 1.5)
		sum += e
	}
	assert.InDelta(t, 0, sum/n, 0.01)
}

func TestDitherIsReproducible(t *testing.T) {
	in := testutil.DeterministicNoise(1, 0.5, 1000)
	run := func(q *Quantizer) []int {
		out := make([]int, 2*len(in))
		q.QuantizeInto(out, in, 2)
		return out
	}
	a, err := NewQuantizer(16, WithSeed(9), WithShaping(Shaping9FC))
	require.NoError(t, err)
	b, err := NewQuantizer(16, WithSeed(9), WithShaping(Shaping9FC))
	require.NoError(t, err)

	first := run(a)
	assert.Equal(t, first, run(b))
	for i := 1; i < len(first); i += 2 {
		require.Zero(t, first[i], "odd slots belong to the other channel")
	}

	a.Reset()
	assert.Equal(t, first, run(a))
}

func TestErrorFeedbackTelescopes(t *testing.T) {
	q, err := NewQuantizer(16, WithSeed(5), WithShaping(ShapingEFB))
	require.NoError(t, err)

	// First-order feedback makes the output error a first difference, so
	// its running sum stays within one step's error.
	in := testutil.DeterministicNoise(2, 0.25, 50000)
	var sum float64
	for _, x := range in {
		sum += float64(q.Quantize(x)) - x*32768
		require.LessOrEqual(t, math.Abs(sum), 1.5)
	}
}

func TestQuantizeIntoPanicsOnShortDestination(t *testing.T) {
	q, err := NewQuantizer(16)
	require.NoError(t, err)
	assert.Panics(t, func() { q.QuantizeInto(make([]int, 3), make([]float64, 3), 2) })
	assert.Panics(t, func() { q.QuantizeInto(make([]int, 3), make([]float64, 3), 0) })
}

func TestParseNames(t *testing.T) {
	for typ := None; typ < typeCount; typ++ {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	for s := ShapingNone; s < shapingCount; s++ {
		got, err := ParseShaping(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseType("gauss")
	assert.Error(t, err)
	_, err = ParseShaping("sbm")
	assert.Error(t, err)
	typ, err := ParseType("TPDF")
	require.NoError(t, err)
	assert.Equal(t, Triangular, typ)
	assert.Nil(t, ShapingNone.Coefficients())
	assert.Len(t, Shaping9FC.Coefficients(), 9)
}
