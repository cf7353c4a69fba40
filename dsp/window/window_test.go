package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHannSymmetric(t *testing.T) {
	w, err := Hann(9)
	require.NoError(t, err)
	assert.InDelta(t, 0, w[0], 1e-12)
	assert.InDelta(t, 0, w[8], 1e-12)
	assert.InDelta(t, 1, w[4], 1e-12)
	for i := range w {
		assert.InDelta(t, w[i], w[len(w)-1-i], 1e-12)
	}
}

func TestHannPeriodic(t *testing.T) {
	w, err := Hann(1024, WithPeriodic())
	require.NoError(t, err)
	assert.InDelta(t, 0, w[0], 1e-12)
	assert.InDelta(t, 1, w[512], 1e-12)
	// The sample after the last one would be w[0] again.
	assert.InDelta(t, w[1], w[1023], 1e-12)

	g, err := CoherentGain(w)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, g, 1e-12)
}

func TestValidation(t *testing.T) {
	_, err := Hann(0)
	assert.Error(t, err)
	_, err = CoherentGain(nil)
	assert.Error(t, err)

	w, err := Hann(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, w)
}
