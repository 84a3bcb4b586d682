package fray

import (
	"runtime"
	"time"
)

// Defaults for the scheduler's tunable constants.
const (
	// defaultInteractionWindow is the debounce interval after the last
	// input event during which rendering favors responsiveness.
	defaultInteractionWindow = 350 * time.Millisecond

	// defaultScaleEpsilon is the smallest resolution-scale change that
	// forces a reset.
	defaultScaleEpsilon = 1e-3
)

// Option configures a Renderer at construction time.
type Option func(*Renderer)

// WithStatusFunc sets the telemetry callback. It is invoked from Tick at
// most twice per second.
func WithStatusFunc(fn func(Status)) Option {
	return func(r *Renderer) { r.statusFn = fn }
}

// WithInteractionWindow overrides the interaction debounce window.
func WithInteractionWindow(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.interactionWindow = d
		}
	}
}

// WithScaleEpsilon overrides the resolution-scale change threshold below
// which a scale change does not force a reset.
func WithScaleEpsilon(eps float64) Option {
	return func(r *Renderer) {
		if eps > 0 {
			r.scaleEpsilon = eps
		}
	}
}

// WithClock injects the time source used for interaction debouncing and
// status throttling. Tests use a manual clock; the default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithYield sets the cooperative yield hook invoked between offline export
// iterations. A host binds it to its frame-scheduling primitive; the
// default yields to the Go scheduler.
func WithYield(fn func()) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.yield = fn
		}
	}
}

func defaultYield() { runtime.Gosched() }
