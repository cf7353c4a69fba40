package window

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

var errEmpty = errors.New("window: no coefficients")

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic selects the periodic form, which tiles without a repeated
// endpoint and is the one to use ahead of an FFT.
func WithPeriodic() Option {
	return func(c *config) { c.periodic = true }
}

// Hann returns size raised-cosine coefficients. The default symmetric form
// is zero at both ends.
func Hann(size int, opts ...Option) ([]float64, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be > 0: %d", size)
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	period := float64(size - 1)
	if cfg.periodic {
		period = float64(size)
	}
	w := make([]float64, size)
	if size == 1 {
		w[0] = 1
		return w, nil
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/period)
	}
	return w, nil
}

// CoherentGain is the mean coefficient: the amplitude a windowed full-scale
// sinusoid keeps.
func CoherentGain(w []float64) (float64, error) {
	if len(w) == 0 {
		return 0, errEmpty
	}
	return vecmath.Sum(w) / float64(len(w)), nil
}
