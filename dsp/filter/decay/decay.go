// Package decay implements per-line frequency-dependent attenuation for
// feedback delay networks: one first-order shelving filter per line whose
// DC and Nyquist gains set how fast lows and highs die away.
package decay

import (
	"fmt"
	"math"
)

// Vec4 is a group of four lanes processed together.
type Vec4 [4]float64

type block struct {
	b0, b1, a1 Vec4
	z          Vec4
}

// Bank holds one shelving filter per line, grouped in blocks of four.
type Bank struct {
	lines  int
	blocks []block
}

// NewBank returns a bank of pass-through filters for lines lines.
func NewBank(lines int) (*Bank, error) {
	if lines <= 0 {
		return nil, fmt.Errorf("decay bank lines must be > 0: %d", lines)
	}
	b := &Bank{lines: lines, blocks: make([]block, (lines+3)/4)}
	for i := range b.blocks {
		b.blocks[i].b0 = Vec4{1, 1, 1, 1}
	}
	return b, nil
}

// Lines returns the number of filtered lines.
func (b *Bank) Lines() int { return b.lines }

// Shelf returns first-order coefficients (b0, b1, a1) with gain dc at 0 Hz
// and nyq at Nyquist, crossing at the geometric mean gain at crossoverHz.
//
//	H(s) = nyq * (s + K*sqrt(r)) / (s + K/sqrt(r)),  r = dc/nyq
//
// mapped through the bilinear transform with K = tan(pi*fc/fs).
func Shelf(dc, nyq, crossoverHz, sampleRate float64) (b0, b1, a1 float64) {
	if dc == nyq {
		return dc, 0, 0
	}
	k := math.Tan(math.Pi * crossoverHz / sampleRate)
	sr := math.Sqrt(dc / nyq)
	kn := k * sr
	kd := k / sr
	a0 := 1 + kd
	b0 = nyq * (1 + kn) / a0
	b1 = nyq * (kn - 1) / a0
	a1 = (kd - 1) / a0
	return b0, b1, a1
}

// SetGains configures line i with DC gain dc[i] and Nyquist gain nyq[i].
// Gains must be positive; the crossover must lie inside (0, fs/2).
func (b *Bank) SetGains(dc, nyq []float64, crossoverHz, sampleRate float64) error {
	if len(dc) != b.lines || len(nyq) != b.lines {
		return fmt.Errorf("decay gains must have %d entries: %d, %d", b.lines, len(dc), len(nyq))
	}
	if crossoverHz <= 0 || crossoverHz >= sampleRate/2 || math.IsNaN(crossoverHz) {
		return fmt.Errorf("decay crossover must be in (0, %f): %f", sampleRate/2, crossoverHz)
	}
	for i := 0; i < b.lines; i++ {
		if !(dc[i] > 0) || !(nyq[i] > 0) || math.IsInf(dc[i], 0) || math.IsInf(nyq[i], 0) {
			return fmt.Errorf("decay gains must be positive and finite at line %d: %f, %f", i, dc[i], nyq[i])
		}
	}
	for i := 0; i < b.lines; i++ {
		b0, b1, a1 := Shelf(dc[i], nyq[i], crossoverHz, sampleRate)
		blk := &b.blocks[i/4]
		blk.b0[i%4] = b0
		blk.b1[i%4] = b1
		blk.a1[i%4] = a1
	}
	return nil
}

// SetBroadband configures every line as a frequency-independent gain.
func (b *Bank) SetBroadband(gains []float64) error {
	if len(gains) != b.lines {
		return fmt.Errorf("decay gains must have %d entries: %d", b.lines, len(gains))
	}
	for i, g := range gains {
		blk := &b.blocks[i/4]
		blk.b0[i%4] = g
		blk.b1[i%4] = 0
		blk.a1[i%4] = 0
	}
	return nil
}

// Process filters x in place, one sample per line. len(x) must equal Lines().
func (b *Bank) Process(x []float64) {
	full := b.lines / 4
	for bi := 0; bi < full; bi++ {
		blk := &b.blocks[bi]
		v := (*Vec4)(x[bi*4 : bi*4+4])
		for j := 0; j < 4; j++ {
			in := v[j]
			y := blk.b0[j]*in + blk.z[j]
			blk.z[j] = blk.b1[j]*in - blk.a1[j]*y
			v[j] = y
		}
	}
	for i := full * 4; i < b.lines; i++ {
		blk := &b.blocks[i/4]
		j := i % 4
		in := x[i]
		y := blk.b0[j]*in + blk.z[j]
		blk.z[j] = blk.b1[j]*in - blk.a1[j]*y
		x[i] = y
	}
}

// Reset clears every filter state.
func (b *Bank) Reset() {
	for i := range b.blocks {
		b.blocks[i].z = Vec4{}
	}
}

// Flush zeroes denormal-range states.
func (b *Bank) Flush() {
	for i := range b.blocks {
		for j := range b.blocks[i].z {
			if z := b.blocks[i].z[j]; z > -1e-30 && z < 1e-30 {
				b.blocks[i].z[j] = 0
			}
		}
	}
}
