package fdn

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cwbudde/algo-reverb/dsp/rng"
)

var (
	// ErrOddDelayCount is returned when a network is asked for an odd number
	// of delay lines.
	ErrOddDelayCount = errors.New("fdn: delay line count must be even")
	// ErrDelayRange is returned when a delay range cannot hold the requested
	// number of distinct integer lengths.
	ErrDelayRange = errors.New("fdn: delay range too narrow")
)

// RandomDelayLengths fills dst[:n] with n distinct delay lengths in
// [minLen, maxLen], ordered for stereo use: even indices feed the left
// channel, odd indices the right, and both channels get the same mix of
// short and long lines.
//
// minLen and maxLen are always part of the set. The remaining lengths start
// at the midpoint and are spread by random pairwise shifts that keep the sum
// unchanged, so the mean stays at (minLen+maxLen)/2. dst must have length >= n.
func RandomDelayLengths(n, minLen, maxLen int, r *rng.Source, dst []int) error {
	if n < 2 || n%2 != 0 {
		return fmt.Errorf("%w: %d", ErrOddDelayCount, n)
	}
	if minLen < 1 || maxLen-minLen < n {
		return fmt.Errorf("%w: [%d, %d] for %d lines", ErrDelayRange, minLen, maxLen, n)
	}
	if len(dst) < n {
		return fmt.Errorf("fdn length buffer too short: %d < %d", len(dst), n)
	}

	v := dst[:n]
	mid := (minLen + maxLen) / 2
	v[0] = minLen
	v[1] = maxLen

	// Interior values leave the midpoint in mirrored pairs. The range holds
	// at least (n-2)/2 such pairs, so the fallback scan always succeeds.
	maxShift := min(mid-minLen, maxLen-mid) - 1
	for i := 2; i < n; i += 2 {
		v[i], v[i+1] = mid, mid
		s := 0
		for attempt := 0; attempt < 8 && s == 0; attempt++ {
			c := r.Range(1, maxShift)
			if free(v[:i], mid-c) && free(v[:i], mid+c) {
				s = c
			}
		}
		for c := 1; s == 0 && c <= maxShift; c++ {
			if free(v[:i], mid-c) && free(v[:i], mid+c) {
				s = c
			}
		}
		v[i], v[i+1] = mid-s, mid+s
	}

	// Spread the interior with mean-preserving moves.
	if n > 3 {
		span := max(1, (maxLen-minLen)/2)
		for iter := 0; iter < 8*n; iter++ {
			i := 2 + r.IntN(n-2)
			j := 2 + r.IntN(n-2)
			if i == j {
				continue
			}
			s := r.Range(1, span)
			a, b := v[i]+s, v[j]-s
			if a >= maxLen || b <= minLen || a == b {
				continue
			}
			if !freeExcept(v, a, i, j) || !freeExcept(v, b, i, j) {
				continue
			}
			v[i], v[j] = a, b
		}
	}

	slices.Sort(v)
	interleave(v)
	return nil
}

// interleave reorders sorted lengths into L/R pairs, alternating which channel
// gets the shorter line of each pair.
func interleave(v []int) {
	for p := 0; p+1 < len(v); p += 2 {
		if (p/2)%2 == 1 {
			v[p], v[p+1] = v[p+1], v[p]
		}
	}
}

func free(v []int, x int) bool {
	return !slices.Contains(v, x)
}

func freeExcept(v []int, x, i, j int) bool {
	for k, y := range v {
		if k != i && k != j && y == x {
			return false
		}
	}
	return true
}
