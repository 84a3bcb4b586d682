package fray

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func exportRenderer(t *testing.T, dev *fakeDevice, opts ...Option) *Renderer {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	r, err := New(dev, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Destroy)
	if err := r.SetScene(testScene()); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRenderStill_Converges(t *testing.T) {
	dev := newFakeDevice()
	r := exportRenderer(t, dev)

	img, err := r.RenderStill(context.Background(), StillOptions{
		Width: 4, Height: 4, Subframes: 8,
	})
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("image size = %dx%d, want 4x4", b.Dx(), b.Dy())
	}
	if len(dev.accums) != 8 {
		t.Errorf("accumulation passes = %d, want 8", len(dev.accums))
	}
	// The fake accumulates sampleValue(seed) per pass; after normalization
	// the mean over seeds 1..8 lands in every pixel.
	var want float32
	for seed := uint32(1); seed <= 8; seed++ {
		want += sampleValue(seed)
	}
	want /= 8
	if got := img.Pix[0]; got != byte(want*255+0.5) {
		t.Errorf("pixel value = %d, want %d", got, byte(want*255+0.5))
	}
}

func TestRenderStill_Deterministic(t *testing.T) {
	opts := StillOptions{Width: 6, Height: 4, Subframes: 5, TimeSeconds: 2.5}

	render := func() []byte {
		dev := newFakeDevice()
		r := exportRenderer(t, dev)
		img, err := r.RenderStill(context.Background(), opts)
		if err != nil {
			t.Fatal(err)
		}
		return img.Pix
	}

	a, b := render(), render()
	if !bytes.Equal(a, b) {
		t.Error("two identical exports produced different images")
	}
}

// An export after live interaction matches a fresh export: RenderStill
// resets the seed and interaction state.
func TestRenderStill_IndependentOfPriorLiveState(t *testing.T) {
	opts := StillOptions{Width: 6, Height: 4, Subframes: 5}

	devA := newFakeDevice()
	rA := exportRenderer(t, devA)
	imgA, err := rA.RenderStill(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	devB := newFakeDevice()
	rB := exportRenderer(t, devB)
	if err := rB.SetDisplaySize(8, 8, 2); err != nil {
		t.Fatal(err)
	}
	if err := rB.Start(); err != nil {
		t.Fatal(err)
	}
	rB.NotifyInteraction()
	for i := 0; i < 3; i++ {
		if err := rB.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	rB.Stop()
	imgB, err := rB.RenderStill(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(imgA.Pix, imgB.Pix) {
		t.Error("export after live ticks differs from fresh export")
	}
}

// A live run that already converged past the export's subframe budget must
// not short-circuit the export into returning the stale display buffer.
func TestRenderStill_AfterConvergedLive(t *testing.T) {
	dev := newFakeDevice()
	r := exportRenderer(t, dev)

	if err := r.SetDisplaySize(8, 8, 1); err != nil {
		t.Fatal(err)
	}
	s := r.Settings()
	s.MaxSubframes = 6
	if err := r.SetSettings(s); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	r.Stop()
	if r.subframe < 5 {
		t.Fatalf("live subframe = %d after 8 ticks, want >= 5", r.subframe)
	}

	liveAccums := len(dev.accums)
	img, err := r.RenderStill(context.Background(), StillOptions{Width: 4, Height: 4, Subframes: 5})
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("image size = %dx%d, want 4x4", b.Dx(), b.Dy())
	}
	if got := len(dev.accums) - liveAccums; got != 5 {
		t.Errorf("export accumulation passes = %d, want 5", got)
	}
}

// A second export on the same renderer re-converges from scratch and
// reproduces the first byte for byte.
func TestRenderStill_BackToBack(t *testing.T) {
	dev := newFakeDevice()
	r := exportRenderer(t, dev)
	opts := StillOptions{Width: 4, Height: 4, Subframes: 3}

	first, err := r.RenderStill(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	mid := len(dev.accums)

	second, err := r.RenderStill(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(dev.accums) - mid; got != 3 {
		t.Errorf("second export accumulation passes = %d, want 3", got)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("back-to-back exports produced different images")
	}
}

// With a constant per-pass contribution the converged image is independent
// of the tile schedule: tiled exports match the untiled one exactly.
func TestRenderStill_TilingInvariant(t *testing.T) {
	opts := StillOptions{Width: 6, Height: 6, Subframes: 4}

	render := func(tileCount, tilesPerFrame int) []byte {
		dev := newFakeDevice()
		dev.constVal = 0.5
		r := exportRenderer(t, dev)
		s := r.Settings()
		s.TileCount = tileCount
		s.TilesPerFrame = tilesPerFrame
		if err := r.SetSettings(s); err != nil {
			t.Fatal(err)
		}
		img, err := r.RenderStill(context.Background(), opts)
		if err != nil {
			t.Fatal(err)
		}
		return img.Pix
	}

	base := render(1, 1)
	for _, tc := range []struct{ count, perFrame int }{{2, 1}, {2, 4}, {3, 2}} {
		if got := render(tc.count, tc.perFrame); !bytes.Equal(base, got) {
			t.Errorf("TileCount=%d TilesPerFrame=%d image differs from untiled", tc.count, tc.perFrame)
		}
	}
}

func TestRenderStill_Cancellation(t *testing.T) {
	dev := newFakeDevice()
	r := exportRenderer(t, dev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img, err := r.RenderStill(ctx, StillOptions{Width: 4, Height: 4, Subframes: 100})
	if !errors.Is(err, ErrExportCancelled) {
		t.Fatalf("error = %v, want ErrExportCancelled", err)
	}
	if img != nil {
		t.Error("cancelled export returned a partial image")
	}
	if len(dev.accums) != 0 {
		t.Errorf("accumulation passes = %d after pre-cancelled export, want 0", len(dev.accums))
	}
}

func TestRenderStill_BusyWhileLive(t *testing.T) {
	dev := newFakeDevice()
	r := exportRenderer(t, dev)

	if err := r.SetDisplaySize(8, 8, 1); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	_, err := r.RenderStill(context.Background(), StillOptions{Width: 4, Height: 4, Subframes: 1})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("error = %v, want ErrBusy", err)
	}
}

func TestRenderStill_NoScene(t *testing.T) {
	dev := newFakeDevice()
	r, err := New(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	_, err = r.RenderStill(context.Background(), StillOptions{Width: 4, Height: 4, Subframes: 1})
	if !errors.Is(err, ErrNoScene) {
		t.Errorf("error = %v, want ErrNoScene", err)
	}
}

func TestRenderStill_InvalidDimensions(t *testing.T) {
	dev := newFakeDevice()
	r := exportRenderer(t, dev)

	_, err := r.RenderStill(context.Background(), StillOptions{Width: 0, Height: 4, Subframes: 1})
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("error = %v, want ErrInvalidDimensions", err)
	}
}

func TestRenderStill_ProgressAndYieldCadence(t *testing.T) {
	dev := newFakeDevice()
	yields := 0
	r := exportRenderer(t, dev, WithYield(func() { yields++ }))

	var progress []ExportProgress
	_, err := r.RenderStill(context.Background(), StillOptions{
		Width: 4, Height: 4, Subframes: 4,
		Progress: func(p ExportProgress) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatal(err)
	}
	// With a progress callback, every iteration reports and yields.
	if len(progress) != 4 {
		t.Fatalf("progress callbacks = %d, want 4", len(progress))
	}
	if yields != 4 {
		t.Errorf("yields = %d with progress, want 4", yields)
	}
	last := progress[len(progress)-1]
	if last.Fraction != 1 || last.Subframe != 4 || last.TotalSubframes != 4 {
		t.Errorf("final progress = %+v, want fraction 1, 4/4", last)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i].Fraction < progress[i-1].Fraction {
			t.Error("progress fraction decreased")
		}
	}

	// Without a callback, every other iteration yields.
	yields = 0
	if _, err := r.RenderStill(context.Background(), StillOptions{Width: 4, Height: 4, Subframes: 4}); err != nil {
		t.Fatal(err)
	}
	if yields != 2 {
		t.Errorf("yields = %d without progress, want 2", yields)
	}
}

func TestRenderStill_Supersample(t *testing.T) {
	dev := newFakeDevice()
	r := exportRenderer(t, dev)

	img, err := r.RenderStill(context.Background(), StillOptions{
		Width: 4, Height: 4, Subframes: 2, Supersample: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("image size = %dx%d, want 4x4 after downscale", b.Dx(), b.Dy())
	}
	// Rendering happened at 8x8.
	if w, h := dev.targets[0].Size(); w != 8 || h != 8 {
		t.Errorf("render target size = %dx%d, want 8x8", w, h)
	}
}

// The export borrows the live geometry and settings and restores them.
func TestRenderStill_RestoresLiveState(t *testing.T) {
	dev := newFakeDevice()
	r := exportRenderer(t, dev)

	if err := r.SetDisplaySize(8, 6, 2); err != nil {
		t.Fatal(err)
	}
	s := r.Settings()
	s.MaxSubframes = 99
	if err := r.SetSettings(s); err != nil {
		t.Fatal(err)
	}

	if _, err := r.RenderStill(context.Background(), StillOptions{Width: 4, Height: 4, Subframes: 2}); err != nil {
		t.Fatal(err)
	}
	if r.dispW != 8 || r.dispH != 6 || r.density != 2 {
		t.Errorf("display geometry = %dx%d@%v after export, want 8x6@2", r.dispW, r.dispH, r.density)
	}
	if got := r.Settings().MaxSubframes; got != 99 {
		t.Errorf("MaxSubframes = %d after export, want 99", got)
	}
	if !r.dirty {
		t.Error("renderer not marked dirty after export")
	}
	if r.exporting {
		t.Error("exporting flag still set")
	}
}
