package fray

import (
	"fmt"
	"time"
)

// fakeTarget is an in-memory accumulation buffer: RGB sum plus sample
// count per pixel, mirroring the GPU target semantics.
type fakeTarget struct {
	w, h      int
	pix       [][4]float32
	destroyed bool
}

func newFakeTarget(w, h int) *fakeTarget {
	return &fakeTarget{w: w, h: h, pix: make([][4]float32, w*h)}
}

func (t *fakeTarget) Size() (int, int) { return t.w, t.h }
func (t *fakeTarget) Destroy()         { t.destroyed = true }

type fakeProgram struct {
	id        int
	destroyed bool
}

func (p *fakeProgram) Destroy() { p.destroyed = true }

// fakeDevice emulates the GPU arithmetic on the CPU: an accumulation pass
// adds a seed-derived contribution to every covered pixel and bumps the
// sample count, the display pass normalizes by the count. Deterministic,
// so exports can be compared byte for byte.
type fakeDevice struct {
	maxSize int

	// Error injection.
	buildErrs []error // popped one per BuildProgram call; nil entries succeed
	accumErr  error
	probeErr  error

	probeVal float32

	// constVal, when nonzero, replaces the seed-derived contribution so
	// every pass deposits the same value regardless of tile schedule.
	constVal float32

	// Call records.
	programs []*fakeProgram
	targets  []*fakeTarget
	accums   []AccumulateOp
	clears   int
	copies   int
	displays int
	probes   int

	lastDisplay  DisplayOp
	dispPix      []byte
	dispW, dispH int

	destroyed bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{maxSize: 4096, probeVal: 1}
}

var _ Device = (*fakeDevice)(nil)

func (d *fakeDevice) MaxTargetSize() int { return d.maxSize }

func (d *fakeDevice) CreateTarget(w, h int) (Target, error) {
	if w <= 0 || h <= 0 || w > d.maxSize || h > d.maxSize {
		return nil, fmt.Errorf("fake: bad target size %dx%d", w, h)
	}
	t := newFakeTarget(w, h)
	d.targets = append(d.targets, t)
	return t, nil
}

func (d *fakeDevice) BuildProgram(src ShaderSource) (Program, error) {
	if len(d.buildErrs) > 0 {
		err := d.buildErrs[0]
		d.buildErrs = d.buildErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	p := &fakeProgram{id: len(d.programs)}
	d.programs = append(d.programs, p)
	return p, nil
}

func (d *fakeDevice) ClearTarget(ft Target) error {
	t := ft.(*fakeTarget)
	for i := range t.pix {
		t.pix[i] = [4]float32{}
	}
	d.clears++
	return nil
}

func (d *fakeDevice) CopyTarget(dst, src Target) error {
	a, b := dst.(*fakeTarget), src.(*fakeTarget)
	if a.w != b.w || a.h != b.h {
		return fmt.Errorf("fake: copy size mismatch %dx%d vs %dx%d", a.w, a.h, b.w, b.h)
	}
	copy(a.pix, b.pix)
	d.copies++
	return nil
}

// sampleValue is the deterministic per-pass contribution for a seed.
func sampleValue(seed uint32) float32 { return float32(seed%16) / 16 }

func (d *fakeDevice) Accumulate(op AccumulateOp) error {
	if d.accumErr != nil {
		return d.accumErr
	}
	d.accums = append(d.accums, op)
	dst, src := op.Target.(*fakeTarget), op.Source.(*fakeTarget)
	x0, y0, x1, y1 := 0, 0, dst.w, dst.h
	if s := op.Scissor; s != nil {
		x0, y0, x1, y1 = s.X, s.Y, s.X+s.Width, s.Y+s.Height
	}
	c := sampleValue(op.Seed)
	if d.constVal != 0 {
		c = d.constVal
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := y*dst.w + x
			p := src.pix[i]
			dst.pix[i] = [4]float32{p[0] + c, p[1] + c, p[2] + c, p[3] + 1}
		}
	}
	return nil
}

func (d *fakeDevice) Display(op DisplayOp) error {
	src := op.Source.(*fakeTarget)
	d.displays++
	d.lastDisplay = op
	d.dispW, d.dispH = op.Width, op.Height
	d.dispPix = make([]byte, op.Width*op.Height*4)
	for y := 0; y < op.Height; y++ {
		sy := y * src.h / op.Height
		for x := 0; x < op.Width; x++ {
			sx := x * src.w / op.Width
			p := src.pix[sy*src.w+sx]
			a := p[3]
			if a < 1e-4 {
				a = 1e-4
			}
			o := (y*op.Width + x) * 4
			for c := 0; c < 3; c++ {
				v := p[c] / a
				if v < 0 {
					v = 0
				}
				if v > 1 {
					v = 1
				}
				d.dispPix[o+c] = byte(v*255 + 0.5)
			}
			d.dispPix[o+3] = 255
		}
	}
	return nil
}

func (d *fakeDevice) Probe(op ProbeOp) (float32, error) {
	d.probes++
	if d.probeErr != nil {
		return 0, d.probeErr
	}
	return d.probeVal, nil
}

func (d *fakeDevice) ReadDisplay() ([]byte, int, int, error) {
	if d.dispPix == nil {
		return nil, 0, 0, fmt.Errorf("fake: no display rendered")
	}
	pix := make([]byte, len(d.dispPix))
	copy(pix, d.dispPix)
	return pix, d.dispW, d.dispH, nil
}

func (d *fakeDevice) Destroy() { d.destroyed = true }

// liveTargets counts targets that have been created but not destroyed.
func (d *fakeDevice) liveTargets() int {
	n := 0
	for _, t := range d.targets {
		if !t.destroyed {
			n++
		}
	}
	return n
}

// livePrograms counts programs that have been created but not destroyed.
func (d *fakeDevice) livePrograms() int {
	n := 0
	for _, p := range d.programs {
		if !p.destroyed {
			n++
		}
	}
	return n
}

// fakeClock is a manual time source.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testScene is a minimal valid scene.
func testScene() SceneState {
	return SceneState{
		Scene:      ShaderSource{FragmentSource: "fn fs_main() {}"},
		Probe:      ShaderSource{FragmentSource: "fn fs_main() {}"},
		Integrator: "path",
		Uniforms: map[string]Value{
			"radius": Float(1.5),
			"steps":  Int(64),
		},
		IntegratorOptions: map[string]Value{
			"de_epsilon": Float(0.001),
		},
	}
}

// newTestRenderer builds a started renderer on a fake device with a manual
// clock and a loaded scene.
func newTestRenderer(dev *fakeDevice, clock *fakeClock, opts ...Option) (*Renderer, error) {
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	r, err := New(dev, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.SetScene(testScene()); err != nil {
		return nil, err
	}
	if err := r.SetDisplaySize(8, 8, 1); err != nil {
		return nil, err
	}
	if err := r.Start(); err != nil {
		return nil, err
	}
	return r, nil
}
