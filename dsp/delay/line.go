package delay

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-reverb/dsp/interp"
)

// ErrDelayOutOfRange is returned when a requested delay cannot be served by
// the line's capacity and interpolation window.
var ErrDelayOutOfRange = errors.New("delay: delay outside valid range")

// Line is a circular delay line with table-driven Lagrange fractional reads.
type Line struct {
	buffer   []float64
	writePos int
	table    *interp.LagrangeTable
	window   []float64
}

// Option configures a Line.
type Option func(*lineConfig)

type lineConfig struct {
	order      int
	resolution int
	table      *interp.LagrangeTable
}

// WithOrder sets the Lagrange interpolation order (odd, 1..7). Default 3.
func WithOrder(order int) Option {
	return func(c *lineConfig) { c.order = order }
}

// WithTableResolution sets the number of fractional steps per sample.
func WithTableResolution(resolution int) Option {
	return func(c *lineConfig) { c.resolution = resolution }
}

// WithTable shares a prebuilt coefficient table between lines.
func WithTable(table *interp.LagrangeTable) Option {
	return func(c *lineConfig) { c.table = table }
}

// New returns a delay line holding size samples.
func New(size int, opts ...Option) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}

	cfg := lineConfig{order: 3, resolution: interp.DefaultTableResolution}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	table := cfg.table
	if table == nil {
		var err error
		table, err = interp.NewLagrangeTable(cfg.order, cfg.resolution)
		if err != nil {
			return nil, err
		}
	}
	if size < table.Taps()+1 {
		return nil, fmt.Errorf("delay size must be >= %d for order %d: %d", table.Taps()+1, table.Order(), size)
	}

	return &Line{
		buffer: make([]float64, size),
		table:  table,
		window: make([]float64, table.Taps()),
	}, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write appends one sample, overwriting the oldest.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the sample written delay writes ago; 1 is the newest sample
// and Len() the oldest.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := d.writePos - delay
	if readPos < 0 {
		readPos += size
	}
	return d.buffer[readPos]
}

// ValidRange returns the smallest and largest fractional delay that keep the
// whole interpolation window inside the written history.
func (d *Line) ValidRange() (float64, float64) {
	return float64(1 + d.table.Before()), float64(len(d.buffer) - d.table.After())
}

// CheckDelay reports ErrDelayOutOfRange when delay cannot be read.
func (d *Line) CheckDelay(delay float64) error {
	lo, hi := d.ValidRange()
	if math.IsNaN(delay) || delay < lo || delay > hi {
		return fmt.Errorf("%w: %f not in [%f, %f]", ErrDelayOutOfRange, delay, lo, hi)
	}
	return nil
}

// ReadFractional reads a fractional delay through the Lagrange table. The
// delay is clamped to ValidRange; callers validate ranges up front with
// CheckDelay.
func (d *Line) ReadFractional(delay float64) float64 {
	lo, hi := d.ValidRange()
	if delay < lo {
		delay = lo
	} else if delay > hi {
		delay = hi
	}

	p := int(delay)
	frac := delay - float64(p)
	first := p - d.table.Before()
	for k := range d.window {
		d.window[k] = d.Read(first + k)
	}

	// Window offsets grow toward older samples, which matches increasing delay.
	return d.table.Interpolate(d.window, frac)
}

// Reset clears line state.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}
