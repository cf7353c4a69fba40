// Package loudness measures programme loudness of rendered audio following
// ITU-R BS.1770: K-weighting, 400 ms blocks with 75 % overlap, and the
// absolute and relative gates of EBU R128.
package loudness

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-reverb/dsp/filter/biquad"
	"github.com/cwbudde/algo-reverb/dsp/filter/design"
)

const (
	// K-weighting approximated by an RBJ high shelf and highpass.
	kShelfFreq = 1500.0
	kShelfGain = 4.0
	kHPFFreq   = 38.0

	blockDuration = 0.4
	blockStep     = 0.1

	absoluteGate = -70.0
	relativeGate = -10.0

	lufsOffset = -0.691
)

var (
	ErrInvalidSampleRate = errors.New("loudness: sample rate must be positive")
	ErrNoChannels        = errors.New("loudness: no channels")
	ErrTooShort          = errors.New("loudness: signal shorter than one 400 ms block")
)

// Result is the loudness of a complete signal.
type Result struct {
	// Integrated is the gated programme loudness in LUFS, -Inf when every
	// block is below the absolute gate.
	Integrated float64
	// MaxMomentary is the loudest 400 ms block in LUFS.
	MaxMomentary float64
	// Peak is the sample peak over all channels in dBFS.
	Peak float64
}

// Measure computes the loudness of equally long channels at sampleRate.
// Every channel is weighted 1, as for left and right.
func Measure(sampleRate float64, channels ...[]float64) (Result, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return Result{}, ErrInvalidSampleRate
	}
	if len(channels) == 0 {
		return Result{}, ErrNoChannels
	}
	n := len(channels[0])
	for _, ch := range channels[1:] {
		if len(ch) != n {
			return Result{}, fmt.Errorf("loudness: channel lengths differ: %d, %d", n, len(ch))
		}
	}
	blockLen := int(math.Round(blockDuration * sampleRate))
	step := max(1, int(math.Round(blockStep*sampleRate)))
	if n < blockLen || blockLen < 1 {
		return Result{}, ErrTooShort
	}

	q := 1 / math.Sqrt2
	weighting := []biquad.Coefficients{
		design.HighShelf(kShelfFreq, kShelfGain, q, sampleRate),
		design.Highpass(kHPFFreq, q, sampleRate),
	}

	// Running sum of the K-weighted power of all channels.
	cum := make([]float64, n+1)
	buf := make([]float64, n)
	var peak float64
	for _, ch := range channels {
		peak = math.Max(peak, vecmath.MaxAbs(ch))
		copy(buf, ch)
		biquad.NewChain(weighting...).ProcessBlock(buf)
		vecmath.MulBlockInPlace(buf, buf)
		for i, p := range buf {
			cum[i+1] += p
		}
	}
	for i := 1; i <= n; i++ {
		cum[i] += cum[i-1]
	}

	blocks := make([]float64, 0, (n-blockLen)/step+1)
	for start := 0; start+blockLen <= n; start += step {
		blocks = append(blocks, (cum[start+blockLen]-cum[start])/float64(blockLen))
	}

	res := Result{
		MaxMomentary: math.Inf(-1),
		Peak:         20 * math.Log10(peak),
	}
	for _, z := range blocks {
		res.MaxMomentary = math.Max(res.MaxMomentary, toLUFS(z))
	}
	res.Integrated = gatedLoudness(blocks)
	return res, nil
}

func gatedLoudness(blocks []float64) float64 {
	mean, ok := gatedMean(blocks, absoluteGate)
	if !ok {
		return math.Inf(-1)
	}
	mean, ok = gatedMean(blocks, toLUFS(mean)+relativeGate)
	if !ok {
		return math.Inf(-1)
	}
	return toLUFS(mean)
}

// gatedMean averages the block powers louder than threshold LUFS.
func gatedMean(blocks []float64, threshold float64) (float64, bool) {
	var sum float64
	count := 0
	for _, z := range blocks {
		if toLUFS(z) > threshold {
			sum += z
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func toLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return math.Inf(-1)
	}
	return lufsOffset + 10*math.Log10(meanSquare)
}
