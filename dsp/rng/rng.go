// Package rng provides the seedable pseudo-random source used wherever the
// reverb randomises structure: delay lengths, tap positions, output signs.
//
// A Source never allocates after construction and replays the same sequence
// for the same seed, so offline renders are reproducible.
package rng

import "math/rand/v2"

// Source is a deterministic PCG generator.
type Source struct {
	pcg  *rand.PCG
	rand *rand.Rand
}

// New returns a Source seeded with seed.
func New(seed uint64) *Source {
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Source{pcg: pcg, rand: rand.New(pcg)}
}

// Reseed restarts the sequence from seed.
func (s *Source) Reseed(seed uint64) {
	s.pcg.Seed(seed, seed^0x9e3779b97f4a7c15)
}

// Uint64 returns the next raw 64-bit value.
func (s *Source) Uint64() uint64 {
	return s.rand.Uint64()
}

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 {
	return s.rand.Float64()
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (s *Source) IntN(n int) int {
	return s.rand.IntN(n)
}

// Range returns an integer in the inclusive range [lo, hi].
func (s *Source) Range(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rand.IntN(hi-lo+1)
}

// Uniform returns a value in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rand.Float64()
}

// Sign returns +1 or -1 with equal probability.
func (s *Source) Sign() float64 {
	if s.rand.Uint64()&1 == 0 {
		return 1
	}
	return -1
}

// Shuffle permutes n elements through swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rand.Shuffle(n, swap)
}
