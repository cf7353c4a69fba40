package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingValidation(t *testing.T) {
	_, err := NewRing(0)
	require.Error(t, err)
}

func TestRingProduceConsumeWraps(t *testing.T) {
	r, err := NewRing(5)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Produce([]float64{1, 2, 3}))
	dst := make([]float64, 2)
	assert.Equal(t, 2, r.Consume(dst))
	assert.Equal(t, []float64{1, 2}, dst)

	// Head wraps past the end of the backing array.
	assert.Equal(t, 4, r.Produce([]float64{4, 5, 6, 7, 8}))
	assert.Equal(t, 5, r.Available())
	assert.Equal(t, 0, r.Free())

	out := make([]float64, 8)
	n := r.Consume(out)
	assert.Equal(t, 5, n)
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, out[:n])
	assert.Equal(t, r.Head(), r.Tail())
}

func TestRingPeekAndDiscard(t *testing.T) {
	r, err := NewRing(4)
	require.NoError(t, err)
	r.Produce([]float64{1, 2, 3})

	dst := make([]float64, 2)
	assert.Equal(t, 2, r.Peek(dst))
	assert.Equal(t, []float64{1, 2}, dst)
	assert.Equal(t, 3, r.Available())

	assert.Equal(t, 1, r.Discard(1))
	assert.Equal(t, 2, r.Discard(10))
	assert.Equal(t, 0, r.Available())
	assert.Equal(t, 0, r.Discard(-1))
}

func TestRingReset(t *testing.T) {
	r, err := NewRing(4)
	require.NoError(t, err)
	r.Produce([]float64{1, 2})
	r.Reset()
	assert.Equal(t, 0, r.Available())
	assert.Equal(t, 4, r.Free())
	assert.Equal(t, 0, r.Head())
}
