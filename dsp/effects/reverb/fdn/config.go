package fdn

import (
	"fmt"
	"math"
)

// Config describes the structure of a Network.
type Config struct {
	SampleRate float64
	// NumDelays is the number of delay lines; it must be even.
	NumDelays int
	// MinDelay and MaxDelay bound the line lengths, in seconds.
	MinDelay float64
	MaxDelay float64
	// BlockSize is the width of the in-block Hadamard rotation: 1, 2, 4 or 8.
	// Zero selects 4 when it divides NumDelays and 2 otherwise.
	BlockSize int
	// FeedbackShift is the cyclic line shift applied after the rotation.
	// Zero selects half a block (one line for blocks of one or two) unless
	// Uncoupled is set.
	FeedbackShift int
	// Uncoupled drops the shift so every block recirculates on its own.
	// FeedbackShift must then be zero.
	Uncoupled bool
	// MatrixGain scales the feedback matrix, in (0, 1]. Zero means 1.
	MatrixGain float64
	Seed       uint64
}

// DefaultConfig returns a 16-line network spanning 20 to 800 ms at 48 kHz.
func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		NumDelays:  16,
		MinDelay:   0.02,
		MaxDelay:   0.8,
		BlockSize:  4,
		MatrixGain: 1,
		Seed:       1,
	}
}

func (c Config) withDefaults() Config {
	if c.MatrixGain == 0 {
		c.MatrixGain = 1
	}
	if c.BlockSize == 0 {
		c.BlockSize = 2
		if c.NumDelays%4 == 0 {
			c.BlockSize = 4
		}
	}
	if c.FeedbackShift == 0 && !c.Uncoupled && c.NumDelays > c.BlockSize {
		c.FeedbackShift = defaultShift(c.BlockSize)
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.SampleRate <= 0 || math.IsNaN(c.SampleRate) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("fdn sample rate must be > 0: %f", c.SampleRate)
	}
	if c.NumDelays < 2 || c.NumDelays%2 != 0 {
		return fmt.Errorf("%w: %d", ErrOddDelayCount, c.NumDelays)
	}
	if !(c.MinDelay > 0) || !(c.MaxDelay > c.MinDelay) || math.IsInf(c.MaxDelay, 0) {
		return fmt.Errorf("%w: [%f, %f] s", ErrDelayRange, c.MinDelay, c.MaxDelay)
	}
	if c.Uncoupled && c.FeedbackShift != 0 {
		return fmt.Errorf("fdn feedback shift must be 0 for uncoupled blocks: %d", c.FeedbackShift)
	}
	lo, hi := c.sampleRange(c.MaxDelay)
	if lo < 1 || hi-lo < c.NumDelays {
		return fmt.Errorf("%w: [%d, %d] samples for %d lines", ErrDelayRange, lo, hi, c.NumDelays)
	}
	return nil
}

func (c Config) sampleRange(maxDelay float64) (int, int) {
	return int(math.Round(c.MinDelay * c.SampleRate)), int(math.Round(maxDelay * c.SampleRate))
}
