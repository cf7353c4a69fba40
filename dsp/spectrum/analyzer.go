package spectrum

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-reverb/dsp/core"
	"github.com/cwbudde/algo-reverb/dsp/window"
)

// Analyzer computes Hann-windowed one-sided magnitude spectra of fixed-size
// frames. All scratch memory is allocated by NewAnalyzer, so MagnitudeInto
// can run on a real-time thread.
type Analyzer struct {
	size   int
	bins   int
	plan   *algofft.Plan[complex128]
	window []float64
	scale  float64

	frame []float64
	in    []complex128
	out   []complex128
	re    []float64
	im    []float64
}

// NewAnalyzer creates an analyzer for frames of size samples. size must be a
// power of two >= 16.
func NewAnalyzer(size int) (*Analyzer, error) {
	if size < 16 || !core.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("spectrum analyzer size must be a power of two >= 16: %d", size)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum analyzer plan: %w", err)
	}

	win, err := window.Hann(size, window.WithPeriodic())
	if err != nil {
		return nil, err
	}
	gain, err := window.CoherentGain(win)
	if err != nil {
		return nil, err
	}

	bins := size/2 + 1
	return &Analyzer{
		size:   size,
		bins:   bins,
		plan:   plan,
		window: win,
		// A full-scale sinusoid centred on a bin reads as amplitude 1.
		scale: 2 / (float64(size) * gain),
		frame: make([]float64, size),
		in:    make([]complex128, size),
		out:   make([]complex128, size),
		re:    make([]float64, bins),
		im:    make([]float64, bins),
	}, nil
}

// Size returns the frame length.
func (a *Analyzer) Size() int { return a.size }

// Bins returns the number of one-sided bins, Size()/2 + 1.
func (a *Analyzer) Bins() int { return a.bins }

// MagnitudeInto writes the one-sided magnitude spectrum of frame into dst.
// len(frame) must equal Size() and len(dst) must be at least Bins().
func (a *Analyzer) MagnitudeInto(dst, frame []float64) error {
	if err := a.transform(dst, frame); err != nil {
		return err
	}
	vecmath.Magnitude(dst[:a.bins], a.re, a.im)
	return nil
}

// PowerInto writes the one-sided power spectrum of frame into dst.
func (a *Analyzer) PowerInto(dst, frame []float64) error {
	if err := a.transform(dst, frame); err != nil {
		return err
	}
	vecmath.Power(dst[:a.bins], a.re, a.im)
	return nil
}

func (a *Analyzer) transform(dst, frame []float64) error {
	if len(frame) != a.size {
		return fmt.Errorf("spectrum analyzer frame must have %d samples: %d", a.size, len(frame))
	}
	if len(dst) < a.bins {
		return fmt.Errorf("spectrum analyzer dst must hold %d bins: %d", a.bins, len(dst))
	}

	vecmath.MulBlock(a.frame, frame, a.window)
	for i, v := range a.frame {
		a.in[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.out, a.in); err != nil {
		return fmt.Errorf("spectrum analyzer forward: %w", err)
	}
	for k := 0; k < a.bins; k++ {
		a.re[k] = real(a.out[k]) * a.scale
		a.im[k] = imag(a.out[k]) * a.scale
	}
	return nil
}
