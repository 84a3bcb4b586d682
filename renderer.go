package fray

import (
	"fmt"
	"math"
	"time"
)

// frameSeedBound is the exclusive upper bound for the per-pass sampling
// seed. The seed wraps back to 1, never 0, so shaders can treat 0 as
// "no seed".
const frameSeedBound = 1 << 24

// Renderer drives a progressive accumulation render: it owns the ping-pong
// target pair, the scene/probe program pair, and the per-tick scheduling
// that trades convergence for responsiveness during interaction.
//
// Renderer is single-threaded by contract: all updates and ticks come from
// the one goroutine that drives the host's display callback. The offline
// RenderStill path runs on the same goroutine and is mutually exclusive
// with the live loop.
type Renderer struct {
	dev Device

	// Tunables, fixed at construction.
	interactionWindow time.Duration
	scaleEpsilon      float64
	now               func() time.Time
	yield             func()
	statusFn          func(Status)

	// Scene and programs. sceneProg/probeProg are nil until the first
	// successful SetScene; they are replaced only as a pair.
	scene     *SceneState
	sceneProg Program
	probeProg Program

	settings Settings
	camera   Camera

	// Display geometry. Pixel resolution is logical size times density.
	dispW, dispH int
	density      float64

	// Ping-pong target pair. read holds the most recently completed sum;
	// write is accumulated into and swapped after each full pass.
	read, write Target
	tgtW, tgtH  int

	// Scheduler state.
	dirty           bool
	subframe        int
	tileIndex       int
	interacting     bool
	lastInteraction time.Time
	lastScale       float64
	frameSeed       uint32

	// Animation clock for the live loop.
	startTime time.Time

	started   bool
	exporting bool
	destroyed bool

	status statusTracker
}

// New creates a renderer on the given device. The device is owned by the
// caller; Destroy releases only resources the renderer itself allocated.
func New(dev Device, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	r := &Renderer{
		dev:               dev,
		interactionWindow: defaultInteractionWindow,
		scaleEpsilon:      defaultScaleEpsilon,
		now:               time.Now,
		yield:             defaultYield,
		settings:          DefaultSettings(),
		camera:            DefaultCamera(),
		density:           1,
		lastScale:         1,
		frameSeed:         1,
		dirty:             true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetScene builds the scene and probe programs from s and installs them.
// On build failure the previous pair keeps running untouched and the error
// carries the parsed, line-mapped diagnostics.
func (r *Renderer) SetScene(s SceneState) error {
	if r.destroyed {
		return ErrDestroyed
	}
	next := s.clone()
	sceneProg, probeProg, err := r.buildPrograms(next)
	if err != nil {
		return err
	}
	r.destroyPrograms()
	r.scene = next
	r.sceneProg = sceneProg
	r.probeProg = probeProg
	r.dirty = true
	Logger().Info("scene installed", "integrator", next.Integrator, "uniforms", len(next.Uniforms))
	return nil
}

// UpdateUniformValues updates declared uniforms. Every entry is validated
// against the declared kind before any is applied; a mismatch returns a
// *UniformError and leaves the table unchanged.
func (r *Renderer) UpdateUniformValues(values map[string]Value) error {
	if r.destroyed {
		return ErrDestroyed
	}
	if r.scene == nil {
		return ErrNoScene
	}
	if err := checkValues(r.scene.Uniforms, values); err != nil {
		return err
	}
	for name, v := range values {
		r.scene.Uniforms[name] = v
	}
	r.invalidate()
	return nil
}

// UpdateIntegratorOptions updates the integrator's tunables. Declared
// options are kind-checked like uniforms; unknown names are added, since
// the option set is open-ended.
func (r *Renderer) UpdateIntegratorOptions(values map[string]Value) error {
	if r.destroyed {
		return ErrDestroyed
	}
	if r.scene == nil {
		return ErrNoScene
	}
	for name, v := range values {
		if cur, ok := r.scene.IntegratorOptions[name]; ok && cur.Kind() != v.Kind() {
			return &UniformError{Name: name, Declared: cur.Kind(), Got: v.Kind()}
		}
	}
	if r.scene.IntegratorOptions == nil {
		r.scene.IntegratorOptions = make(map[string]Value, len(values))
	}
	for name, v := range values {
		r.scene.IntegratorOptions[name] = v
	}
	r.invalidate()
	return nil
}

// SetSettings validates, clamps, and installs new settings. A call with
// settings identical to the current ones is a no-op and does not reset
// accumulation.
func (r *Renderer) SetSettings(s Settings) error {
	if r.destroyed {
		return ErrDestroyed
	}
	s = s.clamp()
	if s.Equal(r.settings) {
		return nil
	}
	r.settings = s
	r.dirty = true
	return nil
}

// Settings returns the current clamped settings.
func (r *Renderer) Settings() Settings { return r.settings }

// SetCamera installs a new viewpoint. Camera is a value type, so the
// renderer's copy is independent of the caller's.
func (r *Renderer) SetCamera(c Camera) {
	if r.destroyed {
		return
	}
	r.camera = c
	r.invalidate()
}

// Camera returns the current viewpoint.
func (r *Renderer) Camera() Camera { return r.camera }

// SetDisplaySize sets the canvas logical size and pixel density. The pixel
// resolution is the product, rounded; targets resize lazily on the next
// tick and force a fresh accumulation.
func (r *Renderer) SetDisplaySize(width, height int, pixelDensity float64) error {
	if r.destroyed {
		return ErrDestroyed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if pixelDensity <= 0 {
		pixelDensity = 1
	}
	r.dispW, r.dispH, r.density = width, height, pixelDensity
	return nil
}

// NotifyInteraction marks the current time as the last input event,
// opening (or extending) the interaction window.
func (r *Renderer) NotifyInteraction() {
	if r.destroyed {
		return
	}
	r.lastInteraction = r.now()
}

// Start enters the live loop: ticks become valid and the animation clock
// restarts.
func (r *Renderer) Start() error {
	if r.destroyed {
		return ErrDestroyed
	}
	if r.exporting {
		return ErrBusy
	}
	if r.started {
		return nil
	}
	r.started = true
	r.startTime = r.now()
	r.dirty = true
	return nil
}

// Stop leaves the live loop. Accumulated state is kept; a later Start
// begins a fresh accumulation.
func (r *Renderer) Stop() {
	r.started = false
}

// Subframe returns the number of completed accumulation subframes.
func (r *Renderer) Subframe() int { return r.subframe }

// Tick runs one scheduler step: consult the interaction window, reset or
// seed if dirty, execute the tick's accumulation passes, then the display
// pass, then a throttled status emission. Call once per host display
// callback.
func (r *Renderer) Tick() error {
	if r.destroyed {
		return ErrDestroyed
	}
	if r.exporting {
		return ErrBusy
	}
	if !r.started {
		return nil
	}
	now := r.now()
	if err := r.step(now, now.Sub(r.startTime).Seconds()); err != nil {
		return err
	}
	r.emitStatus(now)
	return nil
}

// step is the per-tick state machine, shared by the live loop and the
// offline export path.
func (r *Renderer) step(now time.Time, timeSec float64) error {
	if r.sceneProg == nil {
		return nil
	}

	interacting := !r.lastInteraction.IsZero() && now.Sub(r.lastInteraction) < r.interactionWindow
	if r.interacting && !interacting {
		// Leaving the interaction window: settle with a fresh
		// full-resolution accumulation.
		r.dirty = true
	}
	r.interacting = interacting

	scale := 1.0
	if interacting {
		scale = r.settings.InteractionScale
	}
	if math.Abs(scale-r.lastScale) > r.scaleEpsilon {
		r.dirty = true
	}
	r.lastScale = scale

	pw, ph := r.pixelSize(scale)
	resized, err := r.ensureTargets(pw, ph)
	if err != nil {
		return err
	}
	if resized {
		r.dirty = true
	}

	tc := r.settings.TileCount
	seeded := false
	if r.dirty {
		r.dirty = false
		r.subframe = 0
		r.tileIndex = 0
		if tc <= 1 {
			if err := r.dev.ClearTarget(r.read); err != nil {
				return fmt.Errorf("fray: clear read target: %w", err)
			}
			if err := r.dev.ClearTarget(r.write); err != nil {
				return fmt.Errorf("fray: clear write target: %w", err)
			}
		} else {
			// Seeding pass: one full, unscissored accumulation so tiled
			// updates never composite against an empty buffer.
			if err := r.accumulate(r.write, r.read, nil, timeSec); err != nil {
				return err
			}
			r.swapTargets()
			if !interacting {
				r.subframe = 1
			}
			seeded = true
		}
	}

	if !seeded && r.accumulating() {
		switch {
		case interacting && tc > 1:
			if err := r.previewTiles(pw, ph, timeSec); err != nil {
				return err
			}
		case tc <= 1:
			if err := r.accumulate(r.write, r.read, nil, timeSec); err != nil {
				return err
			}
			r.swapTargets()
			r.subframe++
		default:
			if err := r.steadyTiles(pw, ph, timeSec); err != nil {
				return err
			}
		}
	}

	return r.display()
}

// accumulating reports whether more subframes are wanted.
func (r *Renderer) accumulating() bool {
	return r.settings.MaxSubframes == 0 || r.subframe < r.settings.MaxSubframes
}

// previewTiles runs up to TilesPerFrame cheap preview passes. Each writes
// directly into the read target under a scissor, with the write target as
// backbuffer input, and leaves the subframe counter alone.
func (r *Renderer) previewTiles(pw, ph int, timeSec float64) error {
	tc := r.settings.TileCount
	total := tc * tc
	for i := 0; i < r.settings.TilesPerFrame; i++ {
		rect := TileBounds(r.tileIndex, tc, pw, ph)
		if rect.Width > 0 && rect.Height > 0 {
			if err := r.accumulate(r.read, r.write, &rect, timeSec); err != nil {
				return err
			}
		}
		r.tileIndex = (r.tileIndex + 1) % total
	}
	return nil
}

// steadyTiles runs up to TilesPerFrame committed tile passes: blit the read
// sum into write, accumulate one scissored tile into write, swap, advance
// the cursor. A cursor wrap completes one subframe.
func (r *Renderer) steadyTiles(pw, ph int, timeSec float64) error {
	tc := r.settings.TileCount
	total := tc * tc
	for i := 0; i < r.settings.TilesPerFrame && r.accumulating(); i++ {
		// Zero-area tiles (count close to the dimension) contribute nothing;
		// advance the cursor without a pass.
		rect := TileBounds(r.tileIndex, tc, pw, ph)
		if rect.Width > 0 && rect.Height > 0 {
			if err := r.dev.CopyTarget(r.write, r.read); err != nil {
				return fmt.Errorf("fray: blit read to write: %w", err)
			}
			if err := r.accumulate(r.write, r.read, &rect, timeSec); err != nil {
				return err
			}
			r.swapTargets()
		}
		r.tileIndex++
		if r.tileIndex >= total {
			r.tileIndex = 0
			r.subframe++
		}
	}
	return nil
}

// accumulate executes one accumulation pass and advances the frame seed.
func (r *Renderer) accumulate(dst, src Target, scissor *TileRect, timeSec float64) error {
	op := AccumulateOp{
		Target:   dst,
		Source:   src,
		Program:  r.sceneProg,
		Scissor:  scissor,
		Camera:   r.camera,
		Uniforms: r.scene.Uniforms,
		Options:  r.scene.IntegratorOptions,
		Seed:     r.frameSeed,
		Subframe: r.subframe,
		Time:     timeSec,
	}
	r.frameSeed++
	if r.frameSeed >= frameSeedBound {
		r.frameSeed = 1
	}
	if err := r.dev.Accumulate(op); err != nil {
		return fmt.Errorf("fray: accumulation pass: %w", err)
	}
	return nil
}

// display runs the normalize/tone-map pass at the canvas pixel size.
func (r *Renderer) display() error {
	cw, ch := r.pixelSize(1)
	op := DisplayOp{Source: r.read, Width: cw, Height: ch, Post: r.settings.Post}
	if err := r.dev.Display(op); err != nil {
		return fmt.Errorf("fray: display pass: %w", err)
	}
	return nil
}

// invalidate handles a high-frequency state change (camera, uniforms,
// integrator options). With tiling enabled it only refreshes the
// interaction timestamp, rolling the subframe counter back from the
// maximum so accumulation resumes, which avoids a full reset storm during
// continuous dragging. Without tiling it is a hard reset.
func (r *Renderer) invalidate() {
	if r.settings.TileCount > 1 {
		r.lastInteraction = r.now()
		if r.settings.MaxSubframes > 0 && r.subframe >= r.settings.MaxSubframes {
			r.subframe = 0
		}
		return
	}
	r.dirty = true
}

// pixelSize returns the target pixel dimensions for a resolution scale.
func (r *Renderer) pixelSize(scale float64) (int, int) {
	w := int(math.Round(float64(r.dispW) * r.density * scale))
	h := int(math.Round(float64(r.dispH) * r.density * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// emitStatus records the finished tick and, at most twice per second,
// recomputes fps and invokes the status callback.
func (r *Renderer) emitStatus(now time.Time) {
	r.status.frame()
	if r.statusFn == nil {
		return
	}
	fps, ok := r.status.emit(now)
	if !ok {
		return
	}
	r.statusFn(Status{
		FPS:             fps,
		Subframe:        r.subframe,
		MaxSubframes:    r.settings.MaxSubframes,
		TileIndex:       r.tileIndex,
		TileCount:       r.settings.TileCount,
		ResolutionScale: r.lastScale,
		Width:           r.tgtW,
		Height:          r.tgtH,
	})
}

// destroyPrograms releases the current program pair, if any.
func (r *Renderer) destroyPrograms() {
	if r.probeProg != nil {
		r.probeProg.Destroy()
		r.probeProg = nil
	}
	if r.sceneProg != nil {
		r.sceneProg.Destroy()
		r.sceneProg = nil
	}
}

// Destroy releases every GPU resource the renderer allocated: the program
// pair and the target pair. Idempotent. The device itself stays alive; its
// owner destroys it.
func (r *Renderer) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	r.started = false
	r.destroyPrograms()
	r.destroyTargets()
	r.scene = nil
}
