package fdn

import (
	"fmt"

	"github.com/cwbudde/algo-reverb/dsp/mix"
)

// blockMatrix is an orthogonal feedback matrix: a Hadamard rotation inside
// each block of lines followed by a cyclic shift of the line index, which
// carries energy from one block into the next. A zero shift keeps the blocks
// apart.
type blockMatrix struct {
	lines     int
	blockSize int
	shift     int
	gain      float64

	// src[i] is the rotated lane that line i reads from.
	src []int
}

func newBlockMatrix(lines, blockSize, shift int, gain float64) (*blockMatrix, error) {
	switch blockSize {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("fdn matrix block size must be 1, 2, 4 or 8: %d", blockSize)
	}
	if lines%blockSize != 0 {
		return nil, fmt.Errorf("fdn matrix block size %d must divide line count %d", blockSize, lines)
	}
	if gain <= 0 || gain > 1 {
		return nil, fmt.Errorf("fdn matrix gain must be in (0, 1]: %f", gain)
	}

	shift %= lines
	if shift < 0 {
		shift += lines
	}
	// Shift 0 leaves the blocks uncoupled. Any other shift must carry lines
	// out of their block; with blocks of one every shift does.
	if shift != 0 && blockSize > 1 && shift%blockSize == 0 {
		return nil, fmt.Errorf("fdn matrix shift %d never leaves its block of %d", shift, blockSize)
	}

	m := &blockMatrix{
		lines:     lines,
		blockSize: blockSize,
		shift:     shift,
		gain:      gain,
		src:       make([]int, lines),
	}
	for i := range m.src {
		m.src[i] = (i + shift) % lines
	}
	return m, nil
}

// defaultShift returns the shift used when none is configured: half a block,
// or one line for blocks of one and two.
func defaultShift(blockSize int) int {
	if blockSize <= 2 {
		return 1
	}
	return blockSize / 2
}

// rotate applies the in-block rotation to x in place.
func (m *blockMatrix) rotate(x []float64) {
	switch m.blockSize {
	case 2:
		for b := 0; b < m.lines; b += 2 {
			mix.Hadamard2((*[2]float64)(x[b : b+2]))
		}
	case 4:
		for b := 0; b < m.lines; b += 4 {
			mix.Hadamard4((*[4]float64)(x[b : b+4]))
		}
	case 8:
		for b := 0; b < m.lines; b += 8 {
			mix.Hadamard8((*[8]float64)(x[b : b+8]))
		}
	}
}

// apply rotates x and writes the shifted, scaled result to dst. dst and x
// must not alias.
func (m *blockMatrix) apply(dst, x []float64) {
	m.rotate(x)
	for i, s := range m.src {
		dst[i] = x[s] * m.gain
	}
}
