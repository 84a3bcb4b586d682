package fray

import (
	"errors"
	"math"
	"testing"
)

func TestProbeDistance_Hit(t *testing.T) {
	dev := newFakeDevice()
	dev.probeVal = 3.25
	r, err := New(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()
	if err := r.SetScene(testScene()); err != nil {
		t.Fatal(err)
	}

	dist, ok, err := r.ProbeDistance(0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || dist != 3.25 {
		t.Errorf("ProbeDistance = (%v, %v), want (3.25, true)", dist, ok)
	}
}

func TestProbeDistance_Miss(t *testing.T) {
	misses := []float32{
		float32(math.NaN()),
		float32(math.Inf(1)),
		0,
		-2,
	}
	for _, v := range misses {
		dev := newFakeDevice()
		dev.probeVal = v
		r, err := New(dev)
		if err != nil {
			t.Fatal(err)
		}
		if err := r.SetScene(testScene()); err != nil {
			t.Fatal(err)
		}
		_, ok, err := r.ProbeDistance(0.5, 0.5)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Errorf("ProbeDistance with readback %v: ok = true, want false", v)
		}
		r.Destroy()
	}
}

func TestProbeDistance_NoScene(t *testing.T) {
	dev := newFakeDevice()
	r, err := New(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	if _, _, err := r.ProbeDistance(0.5, 0.5); !errors.Is(err, ErrNoScene) {
		t.Errorf("error = %v, want ErrNoScene", err)
	}
}

// Probing must not disturb the accumulation: no extra passes, no subframe
// change, no target churn.
func TestProbeDistance_DoesNotDisturbAccumulation(t *testing.T) {
	dev := newFakeDevice()
	clock := newFakeClock()
	r, err := newTestRenderer(dev, clock)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	for i := 0; i < 3; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	accums, clears, sub := len(dev.accums), dev.clears, r.Subframe()

	if _, _, err := r.ProbeDistance(0.25, 0.75); err != nil {
		t.Fatal(err)
	}
	if len(dev.accums) != accums || dev.clears != clears {
		t.Error("probe issued accumulation work")
	}
	if r.Subframe() != sub {
		t.Errorf("Subframe() = %d after probe, want %d", r.Subframe(), sub)
	}

	// The next tick continues accumulating instead of resetting.
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	if got := r.Subframe(); got != sub+1 {
		t.Errorf("Subframe() = %d after post-probe tick, want %d", got, sub+1)
	}
}
