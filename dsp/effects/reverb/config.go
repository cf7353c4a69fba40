package reverb

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-reverb/dsp/core"
	"github.com/cwbudde/algo-reverb/dsp/effects/reverb/fdn"
)

// TriggerConfig calibrates the spectral-correlation rotation trigger. The
// values are empirical and meant to be tuned per material.
type TriggerConfig struct {
	// FFTSize is the analysis window and hop in samples, a power of two.
	FFTSize int
	// Smoothing is the exponential smoothing of successive magnitude
	// spectra, in [0, 1). Larger values average over more windows.
	Smoothing float64
	// BandLow and BandHigh bound the score range that counts toward a
	// rotation.
	BandLow  float64
	BandHigh float64
	// Debounce is the number of consecutive in-band windows needed to rotate.
	Debounce int
	// SilenceThreshold is the dry RMS below which a window is skipped.
	SilenceThreshold float64
	// ComplexityWeight scales the spectral-flatness correction subtracted
	// from the raw similarity; ComplexityReference is the flatness at which
	// the correction is zero.
	ComplexityWeight    float64
	ComplexityReference float64
	// FadeRT60Min and FadeRT60Max bound the decay time of a fading unit. A
	// strong trigger fades at FadeRT60Min.
	FadeRT60Min float64
	FadeRT60Max float64
}

// DefaultTriggerConfig returns the stock trigger calibration.
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		FFTSize:             4096,
		Smoothing:           0.75,
		BandLow:             0.2,
		BandHigh:            0.65,
		Debounce:            4,
		SilenceThreshold:    1e-4,
		ComplexityWeight:    0.5,
		ComplexityReference: 0.25,
		FadeRT60Min:         0.4,
		FadeRT60Max:         3,
	}
}

// Validate reports the first invalid field.
func (c TriggerConfig) Validate() error {
	if c.FFTSize < 16 || !core.IsPowerOfTwo(c.FFTSize) {
		return fmt.Errorf("trigger FFT size must be a power of two >= 16: %d", c.FFTSize)
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 || math.IsNaN(c.Smoothing) {
		return fmt.Errorf("trigger smoothing must be in [0, 1): %f", c.Smoothing)
	}
	if !(c.BandLow >= 0) || !(c.BandHigh >= c.BandLow) || c.BandHigh > 1 {
		return fmt.Errorf("trigger band must satisfy 0 <= low <= high <= 1: [%f, %f]", c.BandLow, c.BandHigh)
	}
	if c.Debounce < 1 {
		return fmt.Errorf("trigger debounce must be >= 1: %d", c.Debounce)
	}
	if !(c.SilenceThreshold > 0) || math.IsInf(c.SilenceThreshold, 0) {
		return fmt.Errorf("trigger silence threshold must be > 0: %f", c.SilenceThreshold)
	}
	if c.ComplexityWeight < 0 || !core.IsFinite(c.ComplexityWeight) || !core.IsFinite(c.ComplexityReference) {
		return fmt.Errorf("trigger complexity correction must be finite and non-negative: %f, %f",
			c.ComplexityWeight, c.ComplexityReference)
	}
	if !(c.FadeRT60Min > 0) || !(c.FadeRT60Max >= c.FadeRT60Min) || math.IsInf(c.FadeRT60Max, 0) {
		return fmt.Errorf("trigger fade RT60 must satisfy 0 < min <= max: [%f, %f]", c.FadeRT60Min, c.FadeRT60Max)
	}
	return nil
}

// Params are the continuously adjustable engine settings.
type Params struct {
	RT60          float64
	Diffusion     float64
	PitchModDepth float64
	WetMix        float64

	// DecayLow and DecayHigh multiply the RT60 below and above
	// DecayCrossover.
	DecayLow       float64
	DecayHigh      float64
	DecayCrossover float64

	// LowCut and HighCut shape the wet output; 0 disables a filter.
	LowCut  float64
	HighCut float64

	Evolution bool
}

// DefaultParams returns a medium hall.
func DefaultParams() Params {
	return Params{
		RT60:           1.5,
		Diffusion:      0.6,
		PitchModDepth:  0.3,
		WetMix:         0.35,
		DecayLow:       1.2,
		DecayHigh:      0.5,
		DecayCrossover: 3000,
		Evolution:      true,
	}
}

// Validate checks p against a sample rate.
func (p Params) Validate(sampleRate float64) error {
	if math.IsNaN(p.RT60) || p.RT60 <= 0 || math.IsInf(p.RT60, -1) {
		return fmt.Errorf("reverb RT60 must be > 0: %f", p.RT60)
	}
	if err := unitInterval("diffusion", p.Diffusion); err != nil {
		return err
	}
	if err := unitInterval("pitch modulation depth", p.PitchModDepth); err != nil {
		return err
	}
	if err := unitInterval("wet mix", p.WetMix); err != nil {
		return err
	}
	if !(p.DecayLow > 0) || !(p.DecayHigh > 0) || math.IsInf(p.DecayLow, 0) || math.IsInf(p.DecayHigh, 0) {
		return fmt.Errorf("reverb decay multipliers must be > 0: %f, %f", p.DecayLow, p.DecayHigh)
	}
	nyquist := sampleRate / 2
	if !(p.DecayCrossover > 0) || p.DecayCrossover >= nyquist {
		return fmt.Errorf("reverb decay crossover must be in (0, %f): %f", nyquist, p.DecayCrossover)
	}
	if p.LowCut < 0 || p.LowCut >= nyquist || math.IsNaN(p.LowCut) {
		return fmt.Errorf("reverb low cut must be in [0, %f): %f", nyquist, p.LowCut)
	}
	if p.HighCut < 0 || p.HighCut >= nyquist || math.IsNaN(p.HighCut) {
		return fmt.Errorf("reverb high cut must be in [0, %f): %f", nyquist, p.HighCut)
	}
	if p.LowCut > 0 && p.HighCut > 0 && p.LowCut >= p.HighCut {
		return fmt.Errorf("reverb low cut must be below high cut: %f >= %f", p.LowCut, p.HighCut)
	}
	return nil
}

func unitInterval(name string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("reverb %s must be in [0, 1]: %f", name, v)
	}
	return nil
}

// Config describes an Engine. Structural fields are fixed at construction;
// Params holds the initial values of the adjustable settings.
type Config struct {
	core.ProcessorConfig

	NumDelays int
	MinDelay  float64
	MaxDelay  float64

	// DiffusionTaps is the tap count of each diffuser at full diffusion.
	DiffusionTaps int
	// DiffusionWindowMs is the diffuser span at full diffusion.
	DiffusionWindowMs float64
	// DiffuserLanes is the number of parallel diffusers, a power of two in
	// [4, NumDelays].
	DiffuserLanes int

	MatrixBlockSize int
	FeedbackShift   int
	// UncoupledBlocks keeps every Hadamard block recirculating on its own.
	UncoupledBlocks bool

	Units int
	Seed  uint64

	// FadeIn is the activation fade, OutputFade the final fade of a decayed
	// unit and Smoothing the parameter ramp, all in seconds.
	FadeIn     float64
	OutputFade float64
	Smoothing  float64

	// NormalizationComp scales how much diffusion lowers the output gain.
	NormalizationComp float64

	Trigger TriggerConfig
	Params  Params
}

// DefaultConfig returns a three-unit, 16-line engine at 48 kHz.
func DefaultConfig() Config {
	return Config{
		ProcessorConfig:   core.DefaultProcessorConfig(),
		NumDelays:         16,
		MinDelay:          0.02,
		MaxDelay:          0.8,
		DiffusionTaps:     16,
		DiffusionWindowMs: 60,
		DiffuserLanes:     4,
		Units:             3,
		Seed:              1,
		FadeIn:            0.05,
		OutputFade:        0.02,
		Smoothing:         0.05,
		NormalizationComp: 0.5,
		Trigger:           DefaultTriggerConfig(),
		Params:            DefaultParams(),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if err := c.ProcessorConfig.Validate(); err != nil {
		return err
	}
	if err := c.network(c.MaxDelay, c.Seed).Validate(); err != nil {
		return err
	}
	if c.DiffusionTaps < 1 {
		return fmt.Errorf("reverb diffusion taps must be >= 1: %d", c.DiffusionTaps)
	}
	if !(c.DiffusionWindowMs > 0) || math.IsInf(c.DiffusionWindowMs, 0) {
		return fmt.Errorf("reverb diffusion window must be > 0 ms: %f", c.DiffusionWindowMs)
	}
	if int(c.DiffusionWindowMs*c.SampleRate/1000) < c.DiffusionTaps+1 {
		return fmt.Errorf("reverb diffusion window too short for %d taps: %f ms", c.DiffusionTaps, c.DiffusionWindowMs)
	}
	if c.DiffuserLanes < 4 || !core.IsPowerOfTwo(c.DiffuserLanes) || c.DiffuserLanes > c.NumDelays {
		return fmt.Errorf("reverb diffuser lanes must be a power of two in [4, %d]: %d", c.NumDelays, c.DiffuserLanes)
	}
	if c.Units < 2 {
		return fmt.Errorf("reverb units must be >= 2: %d", c.Units)
	}
	for _, v := range []struct {
		name  string
		value float64
	}{{"fade in", c.FadeIn}, {"output fade", c.OutputFade}, {"smoothing", c.Smoothing}} {
		if !(v.value > 0) || math.IsInf(v.value, 0) {
			return fmt.Errorf("reverb %s must be > 0 s: %f", v.name, v.value)
		}
	}
	if c.NormalizationComp < 0 || !core.IsFinite(c.NormalizationComp) {
		return fmt.Errorf("reverb normalization compensation must be >= 0: %f", c.NormalizationComp)
	}
	if err := c.Trigger.Validate(); err != nil {
		return err
	}
	return c.Params.Validate(c.SampleRate)
}

func (c Config) network(maxDelay float64, seed uint64) fdn.Config {
	return fdn.Config{
		SampleRate:    c.SampleRate,
		NumDelays:     c.NumDelays,
		MinDelay:      c.MinDelay,
		MaxDelay:      maxDelay,
		BlockSize:     c.MatrixBlockSize,
		FeedbackShift: c.FeedbackShift,
		Uncoupled:     c.UncoupledBlocks,
		Seed:          seed,
	}
}

func (c Config) samples(seconds float64) int {
	return max(1, int(math.Round(seconds*c.SampleRate)))
}

// Option mutates a Config.
type Option func(*Config)

// WithSeed fixes the random seed for delay lengths, signs and diffusion.
func WithSeed(seed uint64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithUnits sets the number of reverb units the orchestrator rotates through.
func WithUnits(units int) Option {
	return func(c *Config) { c.Units = units }
}

// WithTrigger replaces the rotation trigger calibration.
func WithTrigger(t TriggerConfig) Option {
	return func(c *Config) { c.Trigger = t }
}

// WithParams sets the initial adjustable settings.
func WithParams(p Params) Option {
	return func(c *Config) { c.Params = p }
}

// WithMatrix sets the feedback matrix block size and cross-block shift.
func WithMatrix(blockSize, shift int) Option {
	return func(c *Config) {
		c.MatrixBlockSize = blockSize
		c.FeedbackShift = shift
	}
}

// WithUncoupledBlocks drops the cross-block shift from the feedback matrix.
func WithUncoupledBlocks() Option {
	return func(c *Config) {
		c.UncoupledBlocks = true
		c.FeedbackShift = 0
	}
}

// WithDiffuserLanes sets the number of parallel diffusers.
func WithDiffuserLanes(lanes int) Option {
	return func(c *Config) { c.DiffuserLanes = lanes }
}

// WithProcessorOptions applies core processor options.
func WithProcessorOptions(opts ...core.ProcessorOption) Option {
	return func(c *Config) { c.ProcessorConfig = c.ProcessorConfig.Apply(opts...) }
}
