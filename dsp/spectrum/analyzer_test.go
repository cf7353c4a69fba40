package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalyzerValidation(t *testing.T) {
	for _, n := range []int{0, 8, 100, 1000} {
		_, err := NewAnalyzer(n)
		assert.Error(t, err, "size %d", n)
	}
}

func TestAnalyzerSinePeak(t *testing.T) {
	const size = 1024
	a, err := NewAnalyzer(size)
	require.NoError(t, err)
	require.Equal(t, size/2+1, a.Bins())

	const bin = 64
	frame := make([]float64, size)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * bin * float64(i) / size)
	}
	mag := make([]float64, a.Bins())
	require.NoError(t, a.MagnitudeInto(mag, frame))

	peak := 0
	for k := range mag {
		if mag[k] > mag[peak] {
			peak = k
		}
	}
	assert.Equal(t, bin, peak)
	assert.InDelta(t, 1.0, mag[bin], 1e-9)
	assert.Less(t, mag[bin+4], 1e-9)

	pow := make([]float64, a.Bins())
	require.NoError(t, a.PowerInto(pow, frame))
	assert.InDelta(t, 1.0, pow[bin], 1e-9)
}

func TestAnalyzerRejectsWrongLengths(t *testing.T) {
	a, err := NewAnalyzer(64)
	require.NoError(t, err)
	assert.Error(t, a.MagnitudeInto(make([]float64, a.Bins()), make([]float64, 32)))
	assert.Error(t, a.MagnitudeInto(make([]float64, 4), make([]float64, 64)))
}
