package fray

import (
	"context"
	"fmt"
	"image"
	"time"
)

// StillOptions parameterizes an offline export.
type StillOptions struct {
	// Width and Height are the output dimensions in pixels.
	Width, Height int

	// Subframes is how many accumulated samples to converge to. Must be
	// at least 1.
	Subframes int

	// TimeSeconds is the animation time rendered, for frame exports of
	// animated scenes.
	TimeSeconds float64

	// Supersample renders at an integer multiple of the output size and
	// downscales with a Catmull-Rom kernel. 0 or 1 disables it.
	Supersample int

	// Progress, when non-nil, is invoked once per export iteration.
	Progress func(ExportProgress)
}

// RenderStill renders a finished image headlessly: it forces resolution
// scale to 1, bounds accumulation at Subframes, resets, and drives the same
// per-tick logic as the live loop to convergence.
//
// The renderer must not be in the live loop (ErrBusy otherwise). Between
// iterations control yields to the host's scheduling point, every iteration
// when Progress is set and every other iteration when not. ctx is polled
// before each iteration; cancellation fails with an error matching
// ErrExportCancelled, never a partial image.
//
// Output is deterministic for fixed inputs: the frame seed restarts at 1,
// so replaying identical subframe and tile parameters reproduces the image
// bit for bit.
func (r *Renderer) RenderStill(ctx context.Context, opts StillOptions) (*image.RGBA, error) {
	if r.destroyed {
		return nil, ErrDestroyed
	}
	if r.started || r.exporting {
		return nil, ErrBusy
	}
	if r.sceneProg == nil {
		return nil, ErrNoScene
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, opts.Width, opts.Height)
	}
	if opts.Subframes < 1 {
		opts.Subframes = 1
	}
	ss := opts.Supersample
	if ss < 1 {
		ss = 1
	}

	// Hijack the live geometry and settings for the export, restoring them
	// afterwards. The restored state is marked dirty so a later live loop
	// starts from a fresh accumulation.
	savedSettings := r.settings
	savedW, savedH, savedDensity := r.dispW, r.dispH, r.density
	savedInteraction := r.lastInteraction
	defer func() {
		r.settings = savedSettings
		r.dispW, r.dispH, r.density = savedW, savedH, savedDensity
		r.lastInteraction = savedInteraction
		r.exporting = false
		r.dirty = true
	}()
	r.exporting = true

	r.dispW, r.dispH, r.density = opts.Width*ss, opts.Height*ss, 1
	r.settings.MaxSubframes = opts.Subframes
	r.lastInteraction = time.Time{}
	r.interacting = false
	r.lastScale = 1
	r.frameSeed = 1
	// Reset the counters here, not just the dirty flag: the loop condition
	// below reads r.subframe before step applies the dirty reset, and a
	// prior run may have left it at or past opts.Subframes.
	r.subframe = 0
	r.tileIndex = 0
	r.dirty = true

	tc := r.settings.TileCount
	for iter := 0; r.subframe < opts.Subframes; iter++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrExportCancelled, ctx.Err())
		default:
		}

		if err := r.step(r.now(), opts.TimeSeconds); err != nil {
			return nil, err
		}

		if opts.Progress != nil {
			opts.Progress(ExportProgress{
				Fraction:       fraction(r.subframe, opts.Subframes),
				Subframe:       r.subframe,
				TotalSubframes: opts.Subframes,
				TileIndex:      r.tileIndex,
				TileCount:      tc,
			})
			r.yield()
		} else if iter%2 == 1 {
			r.yield()
		}
	}

	img, err := r.captureImage()
	if err != nil {
		return nil, err
	}
	if ss > 1 {
		img = scaleImage(img, opts.Width, opts.Height)
	}
	return img, nil
}

func fraction(done, total int) float64 {
	if total <= 0 {
		return 1
	}
	f := float64(done) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}
