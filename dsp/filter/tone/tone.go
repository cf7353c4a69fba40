// Package tone provides multi-stage mono and stereo filters whose stages are
// reconfigured from a control context and picked up by the audio context at
// the next block boundary without resetting filter state.
package tone

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-reverb/dsp/filter/biquad"
	"github.com/cwbudde/algo-reverb/dsp/filter/design"
)

// MaxOrder is the highest Butterworth order a lowpass or highpass stage accepts.
const MaxOrder = 8

const sectionsPerStage = (MaxOrder + 1) / 2

// cascade holds the stage configuration shared by Mono and Stereo. Each stage
// holds up to MaxOrder/2 biquad sections per channel; unused sections pass
// through.
type cascade struct {
	sampleRate float64
	stages     int

	chans [][]biquad.Section

	mu      sync.Mutex
	pending []biquad.Coefficients
	dirty   atomic.Bool
}

// Stereo is a cascade of filter stages applied identically to two channels.
type Stereo struct {
	cascade
}

// Mono is a cascade of filter stages on a single channel.
type Mono struct {
	cascade
}

// NewStereo returns a stereo filter with the given number of stages, all bypassed.
func NewStereo(sampleRate float64, stages int) (*Stereo, error) {
	s := &Stereo{}
	if err := s.init(sampleRate, stages, 2); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMono returns a single-channel filter with the given number of stages,
// all bypassed.
func NewMono(sampleRate float64, stages int) (*Mono, error) {
	m := &Mono{}
	if err := m.init(sampleRate, stages, 1); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *cascade) init(sampleRate float64, stages, channels int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("tone sample rate must be > 0: %f", sampleRate)
	}
	if stages <= 0 {
		return fmt.Errorf("tone stages must be > 0: %d", stages)
	}

	n := stages * sectionsPerStage
	s.sampleRate = sampleRate
	s.stages = stages
	s.pending = make([]biquad.Coefficients, n)
	s.chans = make([][]biquad.Section, channels)
	for ch := range s.chans {
		s.chans[ch] = make([]biquad.Section, n)
	}
	for i := range s.pending {
		s.pending[i] = biquad.Identity()
		for ch := range s.chans {
			s.chans[ch][i].Coefficients = s.pending[i]
		}
	}
	return nil
}

// Stages returns the number of stages.
func (s *cascade) Stages() int { return s.stages }

// SetLowShelf configures stage as a low shelf.
func (s *cascade) SetLowShelf(freq, gainDB, q float64, stage int) error {
	if err := s.validate(freq, gainDB, stage); err != nil {
		return err
	}
	s.stage(stage, design.LowShelf(freq, gainDB, q, s.sampleRate))
	return nil
}

// SetHighShelf configures stage as a high shelf.
func (s *cascade) SetHighShelf(freq, gainDB, q float64, stage int) error {
	if err := s.validate(freq, gainDB, stage); err != nil {
		return err
	}
	s.stage(stage, design.HighShelf(freq, gainDB, q, s.sampleRate))
	return nil
}

// SetBell configures stage as a peaking bell.
func (s *cascade) SetBell(freq, gainDB, q float64, stage int) error {
	if err := s.validate(freq, gainDB, stage); err != nil {
		return err
	}
	s.stage(stage, design.Peak(freq, gainDB, q, s.sampleRate))
	return nil
}

// SetLowpass configures stage as a Butterworth lowpass of the given order.
func (s *cascade) SetLowpass(freq float64, order, stage int) error {
	if err := s.validateOrder(freq, order, stage); err != nil {
		return err
	}
	s.stage(stage, design.ButterworthLP(freq, order, s.sampleRate)...)
	return nil
}

// SetHighpass configures stage as a Butterworth highpass of the given order.
func (s *cascade) SetHighpass(freq float64, order, stage int) error {
	if err := s.validateOrder(freq, order, stage); err != nil {
		return err
	}
	s.stage(stage, design.ButterworthHP(freq, order, s.sampleRate)...)
	return nil
}

// Bypass turns stage into a pass-through.
func (s *cascade) Bypass(stage int) error {
	if stage < 0 || stage >= s.stages {
		return fmt.Errorf("tone stage must be in [0, %d): %d", s.stages, stage)
	}
	s.stage(stage)
	return nil
}

// Process filters both channels. Coefficient changes staged since the last
// call take effect at the start of this block. Input and output may alias.
func (s *Stereo) Process(inL, inR, outL, outR []float64) {
	n := len(inL)
	copy(outL[:n], inL)
	copy(outR[:n], inR[:n])
	s.run(outL[:n], outR[:n])
}

// Process filters in into out with the same block-boundary update rule as
// Stereo. in and out may alias.
func (m *Mono) Process(in, out []float64) {
	n := len(in)
	copy(out[:n], in)
	m.run(out[:n], nil)
}

// run filters a in place through the first channel and, for stereo, b
// through the second.
func (s *cascade) run(a, b []float64) {
	if s.dirty.Load() {
		s.apply()
	}
	for i := range s.chans[0] {
		if s.chans[0][i].IsIdentity() {
			continue
		}
		s.chans[0][i].ProcessBlock(a)
		if len(s.chans) > 1 {
			s.chans[1][i].ProcessBlock(b)
		}
	}
}

// Reset clears filter state on every channel.
func (s *cascade) Reset() {
	if s.dirty.Load() {
		s.apply()
	}
	for _, sections := range s.chans {
		for i := range sections {
			sections[i].Reset()
		}
	}
}

// MagnitudeDB returns the magnitude response of the staged configuration.
func (s *cascade) MagnitudeDB(freq float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	db := 0.0
	for i := range s.pending {
		db += s.pending[i].MagnitudeDB(freq, s.sampleRate)
	}
	return db
}

func (s *cascade) stage(stage int, coeffs ...biquad.Coefficients) {
	s.mu.Lock()
	base := stage * sectionsPerStage
	for i := 0; i < sectionsPerStage; i++ {
		if i < len(coeffs) {
			s.pending[base+i] = coeffs[i]
		} else {
			s.pending[base+i] = biquad.Identity()
		}
	}
	s.mu.Unlock()
	s.dirty.Store(true)
}

func (s *cascade) apply() {
	// TryLock keeps the audio path from blocking on a concurrent setter; the
	// flag stays set and the next block retries.
	if !s.mu.TryLock() {
		return
	}
	s.dirty.Store(false)
	for _, sections := range s.chans {
		for i := range s.pending {
			sections[i].Coefficients = s.pending[i]
		}
	}
	s.mu.Unlock()
}

func (s *cascade) validate(freq, gainDB float64, stage int) error {
	if stage < 0 || stage >= s.stages {
		return fmt.Errorf("tone stage must be in [0, %d): %d", s.stages, stage)
	}
	if freq <= 0 || freq >= s.sampleRate/2 || math.IsNaN(freq) {
		return fmt.Errorf("tone frequency must be in (0, %f): %f", s.sampleRate/2, freq)
	}
	if math.IsNaN(gainDB) || math.IsInf(gainDB, 0) {
		return fmt.Errorf("tone gain must be finite: %f", gainDB)
	}
	return nil
}

func (s *cascade) validateOrder(freq float64, order, stage int) error {
	if order < 1 || order > MaxOrder {
		return fmt.Errorf("tone filter order must be in [1, %d]: %d", MaxOrder, order)
	}
	return s.validate(freq, 0, stage)
}
