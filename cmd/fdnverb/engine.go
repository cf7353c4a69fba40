package main

import (
	"log"

	"github.com/cwbudde/algo-reverb/dsp/effects/reverb"
)

// EngineFlags configure the reverb engine. Defaults match
// reverb.DefaultConfig.
type EngineFlags struct {
	RT60      float64 `name:"rt60" default:"1.5" help:"Reverb time in seconds."`
	Diffusion float64 `default:"0.6" help:"Diffusion amount in [0, 1]."`
	ModDepth  float64 `name:"mod-depth" default:"0.3" help:"Pitch modulation depth in [0, 1]."`
	Wet       float64 `default:"0.35" help:"Wet mix in [0, 1]."`

	DecayLow  float64 `name:"decay-low" default:"1.2" help:"Low band decay multiplier."`
	DecayHigh float64 `name:"decay-high" default:"0.5" help:"High band decay multiplier."`
	Crossover float64 `default:"3000" help:"Decay crossover in Hz."`
	LowCut    float64 `name:"low-cut" default:"0" help:"Wet low cut in Hz, 0 disables."`
	HighCut   float64 `name:"high-cut" default:"0" help:"Wet high cut in Hz, 0 disables."`

	Delays   int     `default:"16" help:"Delay lines per unit (even)."`
	MinDelay float64 `name:"min-delay" default:"0.02" help:"Shortest delay line in seconds."`
	MaxDelay float64 `name:"max-delay" default:"0.8" help:"Longest delay line in seconds."`
	Taps     int     `default:"16" help:"Maximum diffuser taps."`
	Block    int     `default:"256" help:"Processing block size in samples."`
	Units    int     `default:"3" help:"Number of reverb units."`
	Seed     uint64  `default:"1" help:"Seed for delay lengths and diffusion patterns."`
	NoEvolve bool    `name:"no-evolve" help:"Keep one unit active for the whole render."`
}

func (f EngineFlags) params(wet float64) reverb.Params {
	p := reverb.DefaultParams()
	p.RT60 = f.RT60
	p.Diffusion = f.Diffusion
	p.PitchModDepth = f.ModDepth
	p.WetMix = wet
	p.DecayLow = f.DecayLow
	p.DecayHigh = f.DecayHigh
	p.DecayCrossover = f.Crossover
	p.LowCut = f.LowCut
	p.HighCut = f.HighCut
	p.Evolution = !f.NoEvolve
	return p
}

// newEngine builds an engine for sampleRate with the wet mix overridden.
func (f EngineFlags) newEngine(sampleRate, wet float64, verbose bool) (*reverb.Engine, error) {
	e, err := reverb.NewEngine(sampleRate, f.Delays, f.MinDelay, f.MaxDelay, f.Taps, f.Block,
		reverb.WithSeed(f.Seed),
		reverb.WithUnits(f.Units),
		reverb.WithParams(f.params(wet)),
	)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg := e.Config()
		log.Printf("Engine: %d units x %d lines, delays %.3f-%.3f s, %d taps, block %d",
			cfg.Units, cfg.NumDelays, cfg.MinDelay, cfg.MaxDelay, cfg.DiffusionTaps, cfg.BlockSize)
		log.Printf("Params: rt60 %.2f s, diffusion %.2f, mod %.2f, wet %.2f, evolution %t",
			f.RT60, f.Diffusion, f.ModDepth, wet, !f.NoEvolve)
	}
	return e, nil
}
