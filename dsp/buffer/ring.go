package buffer

import "fmt"

// Ring is a fixed-capacity FIFO of samples. Produce appends at the head,
// Consume removes from the tail. It never grows: writes beyond the free space
// are truncated and reported through the returned count.
type Ring struct {
	data  []float64
	head  int
	tail  int
	count int
}

// NewRing returns an empty ring holding up to capacity samples.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be > 0: %d", capacity)
	}
	return &Ring{data: make([]float64, capacity)}, nil
}

// Cap returns the capacity in samples.
func (r *Ring) Cap() int { return len(r.data) }

// Available returns the number of samples ready to consume.
func (r *Ring) Available() int { return r.count }

// Free returns the number of samples that can be produced.
func (r *Ring) Free() int { return len(r.data) - r.count }

// Head returns the index the next produced sample is written to.
func (r *Ring) Head() int { return r.head }

// Tail returns the index the next consumed sample is read from.
func (r *Ring) Tail() int { return r.tail }

// Produce appends as many samples from src as fit and returns how many were written.
func (r *Ring) Produce(src []float64) int {
	n := min(len(src), r.Free())
	first := min(n, len(r.data)-r.head)
	copy(r.data[r.head:], src[:first])
	copy(r.data, src[first:n])
	r.head = (r.head + n) % len(r.data)
	r.count += n
	return n
}

// Peek copies up to len(dst) samples from the tail without consuming them.
func (r *Ring) Peek(dst []float64) int {
	n := min(len(dst), r.count)
	first := min(n, len(r.data)-r.tail)
	copy(dst, r.data[r.tail:r.tail+first])
	copy(dst[first:n], r.data)
	return n
}

// Consume moves up to len(dst) samples from the tail into dst.
func (r *Ring) Consume(dst []float64) int {
	n := r.Peek(dst)
	r.Discard(n)
	return n
}

// Discard drops up to n samples from the tail and returns how many were dropped.
func (r *Ring) Discard(n int) int {
	n = min(max(n, 0), r.count)
	r.tail = (r.tail + n) % len(r.data)
	r.count -= n
	return n
}

// Reset empties the ring.
func (r *Ring) Reset() {
	r.head, r.tail, r.count = 0, 0, 0
}
