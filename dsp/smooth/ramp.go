// Package smooth provides sample-accurate parameter ramps and crossfade laws.
package smooth

import "math"

// Ramp moves linearly from its current value to a target over a fixed number
// of samples. The zero value is a ramp resting at 0.
type Ramp struct {
	current   float64
	target    float64
	step      float64
	remaining int
}

// NewRamp returns a ramp resting at initial.
func NewRamp(initial float64) Ramp {
	return Ramp{current: initial, target: initial}
}

// SetTarget starts a ramp toward target lasting samples. samples <= 0 jumps.
func (r *Ramp) SetTarget(target float64, samples int) {
	if samples <= 0 {
		r.Jump(target)
		return
	}
	if target == r.target && r.remaining == 0 {
		return
	}
	r.target = target
	r.remaining = samples
	r.step = (target - r.current) / float64(samples)
}

// Jump sets the value immediately and ends any ramp.
func (r *Ramp) Jump(value float64) {
	r.current = value
	r.target = value
	r.step = 0
	r.remaining = 0
}

// Value returns the current value without advancing.
func (r *Ramp) Value() float64 { return r.current }

// Target returns the value the ramp is heading to.
func (r *Ramp) Target() float64 { return r.target }

// IsInTransition reports whether the ramp still has samples to travel.
func (r *Ramp) IsInTransition() bool { return r.remaining > 0 }

// Remaining returns the number of samples left in the current transition.
func (r *Ramp) Remaining() int { return r.remaining }

// Next advances one sample and returns the new value.
func (r *Ramp) Next() float64 {
	if r.remaining == 0 {
		return r.current
	}
	r.remaining--
	if r.remaining == 0 {
		r.current = r.target
	} else {
		r.current += r.step
	}
	return r.current
}

// Advance moves n samples forward without producing values.
func (r *Ramp) Advance(n int) {
	if r.remaining == 0 || n <= 0 {
		return
	}
	if n >= r.remaining {
		r.current = r.target
		r.remaining = 0
		return
	}
	r.current += r.step * float64(n)
	r.remaining -= n
}

// Fill writes successive ramp values into dst.
func (r *Ramp) Fill(dst []float64) {
	if r.remaining == 0 {
		for i := range dst {
			dst[i] = r.current
		}
		return
	}
	for i := range dst {
		dst[i] = r.Next()
	}
}

// Apply multiplies buf by successive ramp values.
func (r *Ramp) Apply(buf []float64) {
	if r.remaining == 0 {
		if r.current == 1 {
			return
		}
		for i := range buf {
			buf[i] *= r.current
		}
		return
	}
	for i := range buf {
		buf[i] *= r.Next()
	}
}

// EqualPower maps a crossfade position x in [0, 1] to outgoing and incoming
// gains whose squares sum to one.
func EqualPower(x float64) (out, in float64) {
	if x <= 0 {
		return 1, 0
	}
	if x >= 1 {
		return 0, 1
	}
	return math.Cos(x * math.Pi / 2), math.Sin(x * math.Pi / 2)
}
