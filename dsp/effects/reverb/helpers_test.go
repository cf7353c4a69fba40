package reverb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// smallConfig is a fast configuration for tests: 8 short lines and a
// trigger that fires on every analysed window.
func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.NumDelays = 8
	cfg.MinDelay = 0.005
	cfg.MaxDelay = 0.05
	cfg.DiffusionTaps = 8
	cfg.DiffusionWindowMs = 20
	cfg.Params.RT60 = 0.5
	cfg.Trigger.FFTSize = 1024
	cfg.Trigger.BandLow = 0
	cfg.Trigger.BandHigh = 1
	cfg.Trigger.Debounce = 2
	cfg.Trigger.FadeRT60Min = 0.1
	cfg.Trigger.FadeRT60Max = 0.2
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(cfg, testEntropy())
	require.NoError(t, err)
	return o
}

// runOrchestrator processes in block-sized chunks, calling check after each.
func runOrchestrator(o *Orchestrator, inL, inR []float64, offline bool, check func()) (outL, outR []float64) {
	n := len(inL)
	outL = make([]float64, n)
	outR = make([]float64, n)
	for start := 0; start < n; start += o.maxBlock {
		end := min(start+o.maxBlock, n)
		o.Process(inL[start:end], inR[start:end], outL[start:end], outR[start:end], offline)
		if check != nil {
			check()
		}
	}
	return outL, outR
}
