package ir

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Errors returned by IR analysis functions.
var (
	ErrEmptyIR           = errors.New("ir: impulse response is empty")
	ErrInvalidSampleRate = errors.New("ir: sample rate must be positive")
	ErrInvalidWindow     = errors.New("ir: window must be positive")
	ErrNoDecay           = errors.New("ir: insufficient decay for RT calculation")
)

// floorDB is the level reported for windows or tails with no energy.
const floorDB = -300.0

// Metrics holds impulse response analysis results.
type Metrics struct {
	RT60       float64 // reverberation time in seconds (T30, or T20 when T30 is unavailable)
	EDT        float64 // early decay time in seconds (0 to -10 dB)
	T20        float64 // RT from the -5 to -25 dB slope
	T30        float64 // RT from the -5 to -35 dB slope
	CenterTime float64 // energy centroid in seconds
	PeakIndex  int     // sample index of the absolute maximum
}

// Analyzer computes decay metrics from impulse responses.
type Analyzer struct {
	SampleRate float64
}

// NewAnalyzer creates an analyzer for the given sample rate.
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{SampleRate: sampleRate}
}

// Analyze computes all metrics, starting from the IR peak.
func (a *Analyzer) Analyze(ir []float64) (Metrics, error) {
	if len(ir) == 0 {
		return Metrics{}, ErrEmptyIR
	}
	if a.SampleRate <= 0 {
		return Metrics{}, ErrInvalidSampleRate
	}

	peak := findPeak(ir)
	tail := ir[peak:]
	curve := schroeder(tail)

	m := Metrics{
		PeakIndex:  peak,
		CenterTime: a.centerTime(tail),
		EDT:        a.reverbTime(curve, 0, -10),
		T20:        a.reverbTime(curve, -5, -25),
		T30:        a.reverbTime(curve, -5, -35),
	}
	if m.T30 > 0 {
		m.RT60 = m.T30
	} else {
		m.RT60 = m.T20
	}
	return m, nil
}

// RT60 returns T30, falling back to T20, measured from the IR peak.
func (a *Analyzer) RT60(ir []float64) (float64, error) {
	m, err := a.Analyze(ir)
	if err != nil {
		return 0, err
	}
	if m.RT60 <= 0 {
		return 0, ErrNoDecay
	}
	return m.RT60, nil
}

// SchroederIntegral returns the backward-integrated energy decay in dB:
//
//	S(t) = 10*log10( sum_{k>=t} h²[k] / sum_k h²[k] )
func (a *Analyzer) SchroederIntegral(ir []float64) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}
	return schroeder(ir), nil
}

func schroeder(ir []float64) []float64 {
	out := make([]float64, len(ir))
	var acc float64
	for i := len(ir) - 1; i >= 0; i-- {
		acc += ir[i] * ir[i]
		out[i] = acc
	}
	total := out[0]
	if total <= 0 {
		return out
	}
	for i, e := range out {
		out[i] = energyDB(e / total)
	}
	return out
}

// reverbTime fits a line to the Schroeder curve between startDB and endDB
// and extrapolates it to -60 dB. It returns 0 when the curve never reaches
// endDB or does not fall.
func (a *Analyzer) reverbTime(curve []float64, startDB, endDB float64) float64 {
	start, end := -1, -1
	for i, v := range curve {
		if start < 0 && v <= startDB {
			start = i
		}
		if start >= 0 && v <= endDB {
			end = i
			break
		}
	}
	if start < 0 || end-start < 2 {
		return 0
	}

	xs := make([]float64, end-start+1)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, curve[start:end+1], nil, false)
	if !(slope < 0) {
		return 0
	}
	return -60 / (slope * a.SampleRate)
}

// CenterTime returns the energy centroid of ir in seconds.
func (a *Analyzer) CenterTime(ir []float64) (float64, error) {
	if len(ir) == 0 {
		return 0, ErrEmptyIR
	}
	if a.SampleRate <= 0 {
		return 0, ErrInvalidSampleRate
	}
	return a.centerTime(ir), nil
}

func (a *Analyzer) centerTime(ir []float64) float64 {
	var num, den float64
	for i, v := range ir {
		e := v * v
		num += float64(i) * e
		den += e
	}
	if den <= 0 {
		return 0
	}
	return num / den / a.SampleRate
}

// Envelope returns the RMS level of ir in dB over a window centred on each
// sample. Windows are truncated at the edges.
func Envelope(ir []float64, window int) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}
	if window < 1 {
		return nil, ErrInvalidWindow
	}

	cum := make([]float64, len(ir)+1)
	for i, v := range ir {
		cum[i+1] = cum[i] + v*v
	}
	half := window / 2
	env := make([]float64, len(ir))
	for i := range env {
		lo := max(0, i-half)
		hi := min(len(ir), i+window-half)
		env[i] = energyDB((cum[hi] - cum[lo]) / float64(hi-lo))
	}
	return env, nil
}

// EnvelopeCrossing returns the first index after the envelope peak at which
// the windowed RMS level has fallen dropDB below the peak, or -1 when it never
// does.
func EnvelopeCrossing(ir []float64, window int, dropDB float64) (int, error) {
	env, err := Envelope(ir, window)
	if err != nil {
		return 0, err
	}
	peak := 0
	for i, v := range env {
		if v > env[peak] {
			peak = i
		}
	}
	threshold := env[peak] - dropDB
	for i := peak; i < len(env); i++ {
		if env[i] <= threshold {
			return i, nil
		}
	}
	return -1, nil
}

func findPeak(ir []float64) int {
	idx := 0
	var peak float64
	for i, v := range ir {
		if av := math.Abs(v); av > peak {
			peak = av
			idx = i
		}
	}
	return idx
}

func energyDB(ratio float64) float64 {
	if ratio <= 0 {
		return floorDB
	}
	return 10 * math.Log10(ratio)
}
