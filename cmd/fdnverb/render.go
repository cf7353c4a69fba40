package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwbudde/algo-reverb/dsp/dither"
	"github.com/cwbudde/algo-reverb/dsp/effects/reverb"
	"github.com/cwbudde/algo-reverb/internal/cli"
	"github.com/cwbudde/algo-reverb/internal/ui"
	"github.com/cwbudde/algo-reverb/measure/loudness"
)

const (
	// renderChunk is the request size handed to the engine.
	renderChunk = 4096
	// progressEvery is the number of chunks between progress reports.
	progressEvery = 16
)

var errCanceled = errors.New("render canceled")

// RenderCmd bounces a WAV file through the engine offline.
type RenderCmd struct {
	EngineFlags `embed:""`

	Tail     float64 `default:"3" help:"Seconds of tail appended after the input."`
	Progress bool    `help:"Show a progress view while rendering."`
	Dither   string  `default:"tpdf" enum:"none,rect,tpdf" help:"Output dither noise (none, rect, tpdf)."`
	Shaping  string  `default:"none" enum:"none,efb,2sc,3fc,9fc" help:"Output noise shaping filter."`

	Input  string `arg:"" type:"existingfile" help:"Input WAV file (mono or stereo PCM)."`
	Output string `arg:"" type:"path" help:"Output WAV file (stereo, input bit depth)."`
}

// Run implements the render command.
func (c *RenderCmd) Run(g *Globals) error {
	if c.Tail < 0 {
		return fmt.Errorf("tail must be >= 0 s: %f", c.Tail)
	}
	d, err := c.ditherSpec()
	if err != nil {
		return err
	}
	in, err := readWAV(c.Input)
	if err != nil {
		return err
	}
	if g.Verbose {
		log.Printf("Input: %s (%d Hz, %d channels, %d-bit, %d frames)",
			c.Input, in.sampleRate, in.channels, in.bitDepth, len(in.left))
	}

	e, err := c.newEngine(float64(in.sampleRate), c.Wet, g.Verbose)
	if err != nil {
		return err
	}
	defer e.Destroy()

	total := len(in.left) + int(c.Tail*float64(in.sampleRate))
	outL := make([]float64, total)
	outR := make([]float64, total)

	start := time.Now()
	if c.Progress {
		err = renderWithProgress(e, in, outL, outR, filepath.Base(c.Input))
	} else {
		err = renderStereo(e, in, outL, outR, func(done int, st reverb.Stats) bool {
			if g.Verbose {
				log.Printf("%5.1f%% active unit %d, %d rotations", 100*float64(done)/float64(total), st.ActiveUnit, st.Rotations)
			}
			return true
		})
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := writeWAV(c.Output, outL, outR, in.sampleRate, in.bitDepth, d); err != nil {
		return err
	}

	st := e.Stats()
	seconds := float64(total) / float64(in.sampleRate)
	cli.PrintReport(os.Stdout, "Rendered "+filepath.Base(c.Input)+" -> "+filepath.Base(c.Output), []cli.Field{
		cli.F("Duration", "%.2f s (%.2f s tail)", seconds, c.Tail),
		cli.F("Speed", "%.1fx realtime", seconds/elapsed.Seconds()),
		cli.F("Rotations", "%d (%d deferred)", st.Rotations, st.Deferred),
		cli.F("Skipped windows", "%d silent, %d without wet", st.SilentWindows, st.NoWetWindows),
		cli.F("NaN blocks", "%d", st.NaNBlocks),
		loudnessField("Input loudness", float64(in.sampleRate), in.left, in.right),
		loudnessField("Output loudness", float64(in.sampleRate), outL, outR),
	})
	return nil
}

// loudnessField formats the integrated loudness and sample peak of a stereo
// signal for the render report.
func loudnessField(key string, fs float64, left, right []float64) cli.Field {
	res, err := loudness.Measure(fs, left, right)
	if err != nil {
		return cli.F(key, "n/a (%v)", err)
	}
	return cli.F(key, "%.1f LUFS, peak %.1f dBFS", res.Integrated, res.Peak)
}

func (c *RenderCmd) ditherSpec() (ditherSpec, error) {
	typ, err := dither.ParseType(c.Dither)
	if err != nil {
		return ditherSpec{}, err
	}
	shaping, err := dither.ParseShaping(c.Shaping)
	if err != nil {
		return ditherSpec{}, err
	}
	return ditherSpec{typ: typ, shaping: shaping, seed: c.Seed}, nil
}

// renderStereo processes in followed by silence into outL and outR in
// renderChunk requests. report runs every progressEvery chunks; returning
// false cancels the render.
func renderStereo(e *reverb.Engine, in *stereoAudio, outL, outR []float64, report func(done int, st reverb.Stats) bool) error {
	total := len(outL)
	silence := make([]float64, renderChunk)
	for start, chunk := 0, 0; start < total; chunk++ {
		end := min(start+renderChunk, total)
		n := end - start
		inL, inR := silence[:n], silence[:n]
		if start < len(in.left) {
			// Chunks straddling the end of the input are padded with silence.
			avail := min(end, len(in.left)) - start
			if avail < n {
				copy(outL[start:end], in.left[start:start+avail])
				copy(outR[start:end], in.right[start:start+avail])
				clear(outL[start+avail : end])
				clear(outR[start+avail : end])
				inL, inR = outL[start:end], outR[start:end]
			} else {
				inL, inR = in.left[start:end], in.right[start:end]
			}
		}
		if err := e.ProcessStereo(inL, inR, outL[start:end], outR[start:end], n, true); err != nil {
			return err
		}
		start = end
		if chunk%progressEvery == progressEvery-1 || start == total {
			if !report(start, e.Stats()) {
				return errCanceled
			}
		}
	}
	return nil
}

func renderWithProgress(e *reverb.Engine, in *stereoAudio, outL, outR []float64, title string) error {
	total := len(outL)
	p := tea.NewProgram(ui.NewModel("Rendering "+title, total), tea.WithOutput(os.Stderr))

	canceled := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		err := renderStereo(e, in, outL, outR, func(done int, st reverb.Stats) bool {
			p.Send(ui.ProgressMsg{Done: done, Total: total, Stats: st})
			select {
			case <-canceled:
				return false
			default:
				return true
			}
		})
		p.Send(ui.DoneMsg{Err: err})
	}()

	final, err := p.Run()
	// The engine must be idle before the caller destroys it.
	close(canceled)
	<-finished
	if err != nil {
		return fmt.Errorf("progress view: %w", err)
	}
	m, ok := final.(ui.Model)
	if !ok {
		return fmt.Errorf("progress view returned %T", final)
	}
	if m.Canceled {
		return errCanceled
	}
	return m.Err
}
