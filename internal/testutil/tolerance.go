package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireSliceNearlyEqual stops the test at the first sample where got and
// want differ by more than eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range got {
		if math.Abs(got[i]-want[i]) > eps {
			require.InDeltaf(t, want[i], got[i], eps, "sample %d", i)
		}
	}
}

// RequireFinite stops the test at the first NaN or infinity.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			require.FailNowf(t, "non-finite sample", "sample %d = %v", i, v)
		}
	}
}

// RequireBitIdentical stops the test unless got and want match bit for bit.
func RequireBitIdentical(t *testing.T, got, want []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range got {
		if math.Float64bits(got[i]) != math.Float64bits(want[i]) {
			require.FailNowf(t, "samples differ", "sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// MaxAbsDiff returns max |a[i] - b[i]|.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d, nil
}
