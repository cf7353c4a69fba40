package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 2, 64, 1 << 20} {
		assert.True(t, IsPowerOfTwo(n), n)
	}
	for _, n := range []int{-4, 0, 3, 24} {
		assert.False(t, IsPowerOfTwo(n), n)
	}
}

func TestFlushDenormals(t *testing.T) {
	assert.Zero(t, FlushDenormals(1e-35))
	assert.Zero(t, FlushDenormals(-1e-35))
	assert.Equal(t, 1e-10, FlushDenormals(1e-10))
}

func TestBufferHelpers(t *testing.T) {
	assert.False(t, HasNonFinite([]float64{0, -1, 1e300}))
	assert.True(t, HasNonFinite([]float64{0, math.NaN()}))
	assert.True(t, HasNonFinite([]float64{math.Inf(-1)}))

	assert.Zero(t, MeanSquare(nil))
	assert.Equal(t, 1.0, MeanSquare([]float64{1, -1, 1, -1}))

	buf := []float64{1, 2, 3}
	Zero(buf)
	assert.Equal(t, []float64{0, 0, 0}, buf)
}

func TestProcessorConfig(t *testing.T) {
	cfg := DefaultProcessorConfig().Apply(WithSampleRate(96000), WithBlockSize(128))
	assert.Equal(t, ProcessorConfig{SampleRate: 96000, BlockSize: 128}, cfg)
	assert.NoError(t, cfg.Validate())

	// Invalid values leave the defaults alone.
	assert.Equal(t, DefaultProcessorConfig(), DefaultProcessorConfig().Apply(WithSampleRate(0), WithBlockSize(-1)))

	assert.Error(t, ProcessorConfig{SampleRate: 0, BlockSize: 1}.Validate())
	assert.Error(t, ProcessorConfig{SampleRate: 48000}.Validate())
}
