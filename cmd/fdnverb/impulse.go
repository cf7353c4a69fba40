package main

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/cwbudde/algo-reverb/dsp/effects/reverb"
	"github.com/cwbudde/algo-reverb/internal/cli"
	"github.com/cwbudde/algo-reverb/measure/ir"
)

// ImpulseCmd renders the wet response to a left-channel impulse.
type ImpulseCmd struct {
	EngineFlags `embed:""`

	SampleRate int     `name:"rate" default:"48000" help:"Sample rate in Hz."`
	Length     float64 `default:"4" help:"Response length in seconds."`
	Out        string  `type:"path" help:"Write the response to this WAV file (24-bit stereo)."`
}

// impulseReport is the analysis of a rendered response.
type impulseReport struct {
	metrics  ir.Metrics
	crossing int
	stats    reverb.Stats
}

// Run implements the impulse command.
func (c *ImpulseCmd) Run(g *Globals) error {
	if !(c.Length > 0) {
		return fmt.Errorf("length must be > 0 s: %f", c.Length)
	}
	fs := float64(c.SampleRate)
	e, err := c.newEngine(fs, 1, g.Verbose)
	if err != nil {
		return err
	}
	defer e.Destroy()

	left, right, err := renderImpulse(e, int(c.Length*fs))
	if err != nil {
		return err
	}
	rep, err := analyzeImpulse(left, fs, c.RT60)
	if err != nil {
		return err
	}
	rep.stats = e.Stats()

	if c.Out != "" {
		if err := writeWAV(c.Out, left, right, c.SampleRate, 24, noDither); err != nil {
			return err
		}
		if g.Verbose {
			log.Printf("Wrote %s", c.Out)
		}
	}

	crossing := "not reached"
	if rep.crossing >= 0 {
		crossing = fmt.Sprintf("%d samples (%.3f s)", rep.crossing, float64(rep.crossing)/fs)
	}
	cli.PrintReport(os.Stdout, "Impulse response", []cli.Field{
		cli.F("Target RT60", "%.3f s", c.RT60),
		cli.F("RT60", "%.3f s", rep.metrics.RT60),
		cli.F("EDT", "%.3f s", rep.metrics.EDT),
		cli.F("T20 / T30", "%.3f s / %.3f s", rep.metrics.T20, rep.metrics.T30),
		cli.F("Centre time", "%.1f ms", 1000*rep.metrics.CenterTime),
		{Key: "-60 dB crossing", Value: crossing},
		cli.F("Rotations", "%d", rep.stats.Rotations),
	})
	return nil
}

// renderImpulse feeds a unit impulse into the left input followed by
// silence, offline and fully wet.
func renderImpulse(e *reverb.Engine, length int) (left, right []float64, err error) {
	if length < 1 {
		return nil, nil, fmt.Errorf("impulse length must be >= 1 sample: %d", length)
	}
	inL := make([]float64, length)
	inR := make([]float64, length)
	inL[0] = 1
	left = make([]float64, length)
	right = make([]float64, length)
	for start := 0; start < length; start += renderChunk {
		end := min(start+renderChunk, length)
		if err := e.ProcessStereo(inL[start:end], inR[start:end], left[start:end], right[start:end], end-start, true); err != nil {
			return nil, nil, err
		}
	}
	return left, right, nil
}

// analyzeImpulse measures decay metrics and the -60 dB envelope crossing,
// which is -1 when the response ends first.
func analyzeImpulse(response []float64, fs, rt60 float64) (impulseReport, error) {
	var rep impulseReport
	m, err := ir.NewAnalyzer(fs).Analyze(response)
	if err != nil {
		return rep, err
	}
	rep.metrics = m

	window := envelopeWindow(rt60, fs)
	rep.crossing, err = ir.EnvelopeCrossing(response, window, 60)
	return rep, err
}

// envelopeWindow is short enough to follow the decay and long enough to
// smooth the noise-like tail.
func envelopeWindow(rt60, fs float64) int {
	if math.IsInf(rt60, 1) {
		return int(0.2 * fs)
	}
	return max(1, int(math.Min(0.2*fs, rt60*fs/8)))
}
