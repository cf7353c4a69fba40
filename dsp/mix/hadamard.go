// Package mix provides energy-preserving lane mixers built on the fast
// Walsh-Hadamard transform.
//
// Every transform here is orthonormal: the L2 norm of the lanes is unchanged,
// and applying the same transform twice returns the input.
package mix

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-reverb/dsp/core"
)

const invSqrt2 = 1 / math.Sqrt2

// Hadamard applies the orthonormal Hadamard transform to x in place.
// len(x) must be a power of two; sizes up to four use closed forms and larger
// sizes recurse by halving.
func Hadamard(x []float64) {
	switch len(x) {
	case 0, 1:
		return
	case 2:
		a, b := x[0], x[1]
		x[0] = (a + b) * invSqrt2
		x[1] = (a - b) * invSqrt2
		return
	case 4:
		Hadamard4((*[4]float64)(x))
		return
	}

	hadamardRecursive(x)
	scale := 1 / math.Sqrt(float64(len(x)))
	for i := range x {
		x[i] *= scale
	}
}

// hadamardRecursive applies the unnormalised butterfly: combine the halves,
// then transform each half.
func hadamardRecursive(x []float64) {
	n := len(x)
	if n == 1 {
		return
	}
	h := n / 2
	for i := 0; i < h; i++ {
		a, b := x[i], x[i+h]
		x[i] = a + b
		x[i+h] = a - b
	}
	hadamardRecursive(x[:h])
	hadamardRecursive(x[h:])
}

// Hadamard4 applies the orthonormal 4-point transform.
func Hadamard4(v *[4]float64) {
	s01 := v[0] + v[1]
	d01 := v[0] - v[1]
	s23 := v[2] + v[3]
	d23 := v[2] - v[3]
	v[0] = 0.5 * (s01 + s23)
	v[1] = 0.5 * (d01 + d23)
	v[2] = 0.5 * (s01 - s23)
	v[3] = 0.5 * (d01 - d23)
}

// Hadamard2 applies the orthonormal 2-point transform.
func Hadamard2(v *[2]float64) {
	a, b := v[0], v[1]
	v[0] = (a + b) * invSqrt2
	v[1] = (a - b) * invSqrt2
}

// Hadamard8 applies the orthonormal 8-point transform.
func Hadamard8(v *[8]float64) {
	for i := 0; i < 4; i++ {
		a, b := v[i], v[i+4]
		v[i] = a + b
		v[i+4] = a - b
	}
	lo := (*[4]float64)(v[:4])
	hi := (*[4]float64)(v[4:])
	Hadamard4(lo)
	Hadamard4(hi)
	for i := range v {
		v[i] *= invSqrt2
	}
}

// Mixer mixes a fixed number of lanes sample by sample.
type Mixer struct {
	lanes int
	frame []float64
}

// NewMixer returns a mixer for n lanes; n must be a power of two >= 4.
func NewMixer(n int) (*Mixer, error) {
	if n < 4 || !core.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("mixer lanes must be a power of two >= 4: %d", n)
	}
	return &Mixer{lanes: n, frame: make([]float64, n)}, nil
}

// Lanes returns the lane count.
func (m *Mixer) Lanes() int { return m.lanes }

// Process mixes one frame of lanes in place. len(frame) must equal Lanes().
func (m *Mixer) Process(frame []float64) {
	Hadamard(frame[:m.lanes])
}

// ProcessBlock mixes n samples of per-lane blocks in place: for every sample
// index t the values lanes[0][t] ... lanes[L-1][t] are transformed together.
func (m *Mixer) ProcessBlock(lanes [][]float64, n int) {
	for t := 0; t < n; t++ {
		for k := 0; k < m.lanes; k++ {
			m.frame[k] = lanes[k][t]
		}
		Hadamard(m.frame)
		for k := 0; k < m.lanes; k++ {
			lanes[k][t] = m.frame[k]
		}
	}
}
