package core

// Zero clears buf.
func Zero(buf []float64) { clear(buf) }

// HasNonFinite reports whether buf holds a NaN or an infinity.
func HasNonFinite(buf []float64) bool {
	for _, v := range buf {
		if !IsFinite(v) {
			return true
		}
	}
	return false
}

// MeanSquare returns the mean power of buf, 0 when empty.
func MeanSquare(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, v := range buf {
		sum += v * v
	}
	return sum / float64(len(buf))
}
