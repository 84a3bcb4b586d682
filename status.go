package fray

import "time"

// Status is the renderer's observable telemetry. It is derived state,
// recomputed at emission time and never consulted by the scheduler.
type Status struct {
	// FPS is the rolling frame rate since the previous emission.
	FPS float64

	// Subframe is the number of completed accumulation subframes.
	Subframe int

	// MaxSubframes mirrors the configured bound (0 = unbounded).
	MaxSubframes int

	// TileIndex is the current tile cursor.
	TileIndex int

	// TileCount mirrors the configured tile grid dimension.
	TileCount int

	// ResolutionScale is the scale in effect for the current targets.
	ResolutionScale float64

	// Width and Height are the current target pixel dimensions.
	Width, Height int
}

// ExportProgress is the progress payload emitted during an offline export.
type ExportProgress struct {
	// Fraction is completed subframes over requested subframes, in [0,1].
	Fraction float64

	// Subframe is the number of completed subframes.
	Subframe int

	// TotalSubframes is the requested subframe count.
	TotalSubframes int

	// TileIndex and TileCount describe the tile cursor position.
	TileIndex int
	TileCount int
}

// statusInterval throttles status emission to at most 2 Hz.
const statusInterval = 500 * time.Millisecond

// statusTracker counts frames between throttled emissions and derives a
// rolling fps from the elapsed wall time.
type statusTracker struct {
	lastEmit time.Time
	frames   int
}

// frame records one completed tick.
func (t *statusTracker) frame() { t.frames++ }

// emit reports whether an emission is due at now, and if so returns the
// fps over the window and resets the counter.
func (t *statusTracker) emit(now time.Time) (fps float64, ok bool) {
	if t.lastEmit.IsZero() {
		t.lastEmit = now
		t.frames = 0
		return 0, false
	}
	elapsed := now.Sub(t.lastEmit)
	if elapsed < statusInterval {
		return 0, false
	}
	fps = float64(t.frames) / elapsed.Seconds()
	t.lastEmit = now
	t.frames = 0
	return fps, true
}
