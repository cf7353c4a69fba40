package loudness

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-reverb/internal/testutil"
)

const sineLUFS = -3.031

func TestMeasureSine(t *testing.T) {
	fs := 48000.0
	sig := testutil.DeterministicSine(1000, fs, 1.0, int(4*fs))

	mono, err := Measure(fs, sig)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if math.Abs(mono.Integrated-sineLUFS) > 0.2 {
		t.Errorf("integrated = %.3f LUFS, want %.3f", mono.Integrated, sineLUFS)
	}
	if math.Abs(mono.MaxMomentary-mono.Integrated) > 0.05 {
		t.Errorf("steady sine: max momentary %.3f != integrated %.3f", mono.MaxMomentary, mono.Integrated)
	}
	if math.Abs(mono.Peak) > 0.01 {
		t.Errorf("peak = %.3f dBFS, want 0", mono.Peak)
	}

	stereo, err := Measure(fs, sig, sig)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	// Channel powers add.
	if d := stereo.Integrated - mono.Integrated; math.Abs(d-10*math.Log10(2)) > 1e-9 {
		t.Errorf("stereo - mono = %.4f dB, want 3.0103", d)
	}
}

func TestMeasureGatesSilence(t *testing.T) {
	fs := 48000.0
	sig := testutil.DeterministicSine(1000, fs, 1.0, int(8*fs))
	// Blocks straddling the cut pass both gates and pull the result down
	// by about 0.17 dB.
	for i := int(4 * fs); i < len(sig); i++ {
		sig[i] = 0
	}
	res, err := Measure(fs, sig)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if math.Abs(res.Integrated-sineLUFS) > 0.3 {
		t.Errorf("integrated = %.3f LUFS, silence should be gated out", res.Integrated)
	}

	silent, err := Measure(fs, make([]float64, int(fs)))
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if !math.IsInf(silent.Integrated, -1) || !math.IsInf(silent.MaxMomentary, -1) {
		t.Errorf("silence = %v, want -Inf", silent)
	}
}

func TestMeasureQuieterSignal(t *testing.T) {
	fs := 44100.0
	loud, err := Measure(fs, testutil.DeterministicSine(1000, fs, 1.0, int(2*fs)))
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	quiet, err := Measure(fs, testutil.DeterministicSine(1000, fs, 0.1, int(2*fs)))
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if d := loud.Integrated - quiet.Integrated; math.Abs(d-20) > 1e-6 {
		t.Errorf("level difference = %.4f dB, want 20", d)
	}
}

func TestMeasureErrors(t *testing.T) {
	fs := 48000.0
	tests := []struct {
		name     string
		fs       float64
		channels [][]float64
		want     error
	}{
		{"sample rate", 0, [][]float64{make([]float64, 48000)}, ErrInvalidSampleRate},
		{"no channels", fs, nil, ErrNoChannels},
		{"too short", fs, [][]float64{make([]float64, 1000)}, ErrTooShort},
	}
	for _, tt := range tests {
		if _, err := Measure(tt.fs, tt.channels...); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
	if _, err := Measure(fs, make([]float64, 48000), make([]float64, 47999)); err == nil {
		t.Error("mismatched channel lengths accepted")
	}
}
