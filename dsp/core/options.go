package core

import "fmt"

// ProcessorConfig is the sample rate and the largest chunk a processor
// handles in one pass. Longer requests are split into chunks of BlockSize.
type ProcessorConfig struct {
	SampleRate float64
	BlockSize  int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig is 48 kHz with 256-sample chunks.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{SampleRate: 48000, BlockSize: 256}
}

// WithSampleRate sets the sample rate. Non-positive values are ignored.
func WithSampleRate(fs float64) ProcessorOption {
	return func(c *ProcessorConfig) {
		if fs > 0 {
			c.SampleRate = fs
		}
	}
}

// WithBlockSize sets the chunk length. Non-positive values are ignored.
func WithBlockSize(n int) ProcessorOption {
	return func(c *ProcessorConfig) {
		if n > 0 {
			c.BlockSize = n
		}
	}
}

// Apply runs opts over a copy of c.
func (c ProcessorConfig) Apply(opts ...ProcessorOption) ProcessorConfig {
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// Validate reports the first invalid field.
func (c ProcessorConfig) Validate() error {
	if c.SampleRate <= 0 || !IsFinite(c.SampleRate) {
		return fmt.Errorf("sample rate must be > 0: %f", c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be > 0: %d", c.BlockSize)
	}
	return nil
}
