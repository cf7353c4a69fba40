package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-reverb/dsp/dither"
)

const (
	wavFormatPCM = 1
	stereo       = 2
)

var errUnsupportedWAV = errors.New("unsupported WAV format")

// stereoAudio is a decoded file as two float channels in [-1, 1).
type stereoAudio struct {
	left, right []float64
	sampleRate  int
	bitDepth    int
	channels    int
}

func fullScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}

// readWAV decodes a mono or stereo integer PCM file. Mono input is copied
// to both channels.
func readWAV(path string) (*stereoAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: audio format %d", errUnsupportedWAV, dec.WavAudioFormat)
	}
	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if channels < 1 || channels > stereo {
		return nil, fmt.Errorf("%w: %d channels", errUnsupportedWAV, channels)
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit", errUnsupportedWAV, bitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	frames := len(buf.Data) / channels
	a := &stereoAudio{
		left:       make([]float64, frames),
		right:      make([]float64, frames),
		sampleRate: int(dec.SampleRate),
		bitDepth:   bitDepth,
		channels:   channels,
	}
	inv := 1 / fullScale(bitDepth)
	for i := 0; i < frames; i++ {
		a.left[i] = float64(buf.Data[i*channels]) * inv
		a.right[i] = float64(buf.Data[i*channels+channels-1]) * inv
	}
	return a, nil
}

// ditherSpec selects how floats are quantized on output.
type ditherSpec struct {
	typ     dither.Type
	shaping dither.Shaping
	seed    uint64
}

var noDither = ditherSpec{typ: dither.None}

func (d ditherSpec) quantizer(bitDepth int, channel uint64) (*dither.Quantizer, error) {
	return dither.NewQuantizer(bitDepth,
		dither.WithType(d.typ),
		dither.WithShaping(d.shaping),
		dither.WithSeed(d.seed+channel),
	)
}

// writeWAV encodes left and right as interleaved stereo PCM, clipping to
// full scale.
func writeWAV(path string, left, right []float64, sampleRate, bitDepth int, d ditherSpec) (err error) {
	if len(left) != len(right) {
		return fmt.Errorf("channel lengths differ: %d, %d", len(left), len(right))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	ql, err := d.quantizer(bitDepth, 0)
	if err != nil {
		return err
	}
	qr, err := d.quantizer(bitDepth, 1)
	if err != nil {
		return err
	}
	data := make([]int, 2*len(left))
	ql.QuantizeInto(data, left, stereo)
	qr.QuantizeInto(data[1:], right, stereo)

	enc := wav.NewEncoder(f, sampleRate, bitDepth, stereo, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: stereo, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return nil
}
