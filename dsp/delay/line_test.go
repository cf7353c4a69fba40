package delay

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-reverb/dsp/interp"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for size=0")
	}
	if _, err := New(-1); err == nil {
		t.Fatal("expected error for size=-1")
	}
	if _, err := New(4); err == nil {
		t.Fatal("expected error for size smaller than the cubic window")
	}
	if _, err := New(16, WithOrder(4)); err == nil {
		t.Fatal("expected error for even order")
	}
}

func TestReadWrite(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 8; i++ {
		d.Write(float64(i))
	}

	for delay := 1; delay <= 8; delay++ {
		want := float64(9 - delay)
		if got := d.Read(delay); got != want {
			t.Fatalf("Read(%d) = %v, want %v", delay, got, want)
		}
	}
}

func TestValidRange(t *testing.T) {
	d, err := New(32)
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := d.ValidRange()
	if lo != 2 || hi != 30 {
		t.Fatalf("ValidRange() = [%v, %v], want [2, 30]", lo, hi)
	}
	if err := d.CheckDelay(1.5); !errors.Is(err, ErrDelayOutOfRange) {
		t.Fatalf("CheckDelay(1.5) = %v, want ErrDelayOutOfRange", err)
	}
	if err := d.CheckDelay(30.5); !errors.Is(err, ErrDelayOutOfRange) {
		t.Fatalf("CheckDelay(30.5) = %v, want ErrDelayOutOfRange", err)
	}
	if err := d.CheckDelay(17.25); err != nil {
		t.Fatalf("CheckDelay(17.25) = %v", err)
	}
}

func TestReadFractionalOnRamp(t *testing.T) {
	d, err := New(64)
	if err != nil {
		t.Fatal(err)
	}
	// Sample written k writes ago holds -k, so a delay of x reads -x.
	for i := 64; i >= 1; i-- {
		d.Write(-float64(i - 1))
	}
	for _, delay := range []float64{2, 2.5, 10.125, 31.75, 62} {
		want := -(delay - 1)
		if got := d.ReadFractional(delay); !approxEqual(got, want, 1e-3) {
			t.Fatalf("ReadFractional(%v) = %v, want %v", delay, got, want)
		}
	}
}

func TestReadFractionalIntegerMatchesRead(t *testing.T) {
	d, err := New(32, WithOrder(5))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 32; i++ {
		d.Write(math.Sin(float64(i) * 0.7))
	}
	for delay := 3; delay <= 29; delay++ {
		if got, want := d.ReadFractional(float64(delay)), d.Read(delay); !approxEqual(got, want, 1e-12) {
			t.Fatalf("delay %d: fractional %v, integer %v", delay, got, want)
		}
	}
}

func TestSharedTable(t *testing.T) {
	tab, err := interp.NewLagrangeTable(3, 128)
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(16, WithTable(tab))
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(16, WithTable(tab))
	if err != nil {
		t.Fatal(err)
	}
	if a.table != b.table {
		t.Fatal("expected lines to share the coefficient table")
	}
}

func TestReset(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatal(err)
	}
	d.Write(1)
	d.Write(2)
	d.Reset()
	for delay := 1; delay <= 8; delay++ {
		if d.Read(delay) != 0 {
			t.Fatalf("Read(%d) after Reset = %v", delay, d.Read(delay))
		}
	}
}
