package delay

import (
	"fmt"
	"math"
)

type fadeStage uint8

const (
	fadeIdle fadeStage = iota
	fadeOut
	fadeIn
)

// Modulated is a read head that moves through a Line at a configurable stride
// relative to the write head. A stride above 1 shortens the delay and raises
// pitch, a stride below 1 lengthens it and lowers pitch.
//
// The delay is kept inside [min, max]: when the ramp would leave the range,
// the head fades out, mirrors its stride around 1 while silent, and fades back in.
type Modulated struct {
	line *Line

	delay    float64
	stride   float64
	minDelay float64
	maxDelay float64

	// Fractional part of the absolute read position, used by ConsumedFor.
	readPhase float64

	fadeLen int
	fadePos int
	stage   fadeStage
	gain    float64
}

// NewModulated returns a modulated reader over a line of capacity samples.
// fadeSamples sets the length of each half of a reversal fade.
func NewModulated(capacity, fadeSamples int, opts ...Option) (*Modulated, error) {
	if fadeSamples < 1 {
		return nil, fmt.Errorf("modulated delay fade must be >= 1: %d", fadeSamples)
	}
	line, err := New(capacity, opts...)
	if err != nil {
		return nil, err
	}
	lo, hi := line.ValidRange()
	return &Modulated{
		line:     line,
		delay:    lo,
		stride:   1,
		minDelay: lo,
		maxDelay: hi,
		fadeLen:  fadeSamples,
		gain:     1,
	}, nil
}

// Line exposes the underlying delay line.
func (m *Modulated) Line() *Line { return m.line }

// SetRange restricts the delay to [minDelay, maxDelay]. Both bounds must be
// readable by the line.
func (m *Modulated) SetRange(minDelay, maxDelay float64) error {
	if minDelay >= maxDelay {
		return fmt.Errorf("modulated delay range must satisfy min < max: [%f, %f]", minDelay, maxDelay)
	}
	if err := m.line.CheckDelay(minDelay); err != nil {
		return err
	}
	if err := m.line.CheckDelay(maxDelay); err != nil {
		return err
	}
	m.minDelay = minDelay
	m.maxDelay = maxDelay
	m.delay = math.Min(math.Max(m.delay, minDelay), maxDelay)
	return nil
}

// Range returns the active delay bounds.
func (m *Modulated) Range() (float64, float64) { return m.minDelay, m.maxDelay }

// SetDelay moves the read head to delay, which must lie inside the range.
func (m *Modulated) SetDelay(delay float64) error {
	if math.IsNaN(delay) || delay < m.minDelay || delay > m.maxDelay {
		return fmt.Errorf("%w: %f not in [%f, %f]", ErrDelayOutOfRange, delay, m.minDelay, m.maxDelay)
	}
	m.delay = delay
	return nil
}

// Delay returns the current delay in samples.
func (m *Modulated) Delay() float64 { return m.delay }

// SetStride sets read samples per written sample, in (0, 2).
func (m *Modulated) SetStride(stride float64) error {
	if stride <= 0 || stride >= 2 || math.IsNaN(stride) {
		return fmt.Errorf("modulated delay stride must be in (0, 2): %f", stride)
	}
	m.stride = stride
	return nil
}

// Stride returns the current stride, including any reversal applied so far.
func (m *Modulated) Stride() float64 { return m.stride }

// ConsumedFor returns how many input samples the read head passes over while
// producing n outputs at the current stride.
func (m *Modulated) ConsumedFor(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(m.readPhase + float64(n)*m.stride))
}

// Process writes in through the line and reads the modulated head into out.
// in and out may alias.
func (m *Modulated) Process(in, out []float64) {
	n := len(in)
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		m.line.Write(in[i])
		out[i] = m.line.ReadFractional(m.delay) * m.gain
		m.advance()
	}
}

// Reset clears the line and restores an idle head at the minimum delay.
func (m *Modulated) Reset() {
	m.line.Reset()
	m.delay = m.minDelay
	m.readPhase = 0
	m.stage = fadeIdle
	m.fadePos = 0
	m.gain = 1
}

func (m *Modulated) advance() {
	rate := 1 - m.stride

	switch m.stage {
	case fadeIdle:
		if rate != 0 {
			var dist float64
			if rate > 0 {
				dist = m.maxDelay - m.delay
			} else {
				dist = m.delay - m.minDelay
			}
			if dist <= math.Abs(rate)*float64(m.fadeLen+1) {
				m.stage = fadeOut
				m.fadePos = 0
			}
		}
	case fadeOut:
		m.fadePos++
		m.gain = 1 - float64(m.fadePos)/float64(m.fadeLen)
		if m.fadePos >= m.fadeLen {
			m.gain = 0
			m.stride = 2 - m.stride
			rate = -rate
			m.stage = fadeIn
			m.fadePos = 0
		}
	case fadeIn:
		m.fadePos++
		m.gain = float64(m.fadePos) / float64(m.fadeLen)
		if m.fadePos >= m.fadeLen {
			m.gain = 1
			m.stage = fadeIdle
		}
	}

	m.delay += rate
	if m.delay < m.minDelay {
		m.delay = m.minDelay
	} else if m.delay > m.maxDelay {
		m.delay = m.maxDelay
	}

	m.readPhase += m.stride
	m.readPhase -= math.Floor(m.readPhase)
}
