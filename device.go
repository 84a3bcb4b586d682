package fray

// Target is one GPU accumulation buffer. Its RGB channels hold an
// unnormalized running sum of sample contributions and its alpha channel
// holds the sample count; the display pass normalizes at read time.
type Target interface {
	// Size returns the target dimensions in pixels.
	Size() (width, height int)

	// Destroy releases the target's GPU resources. Safe to call once.
	Destroy()
}

// Program is a compiled, linked GPU program pair (vertex + fragment).
type Program interface {
	// Destroy releases the program's GPU resources. Safe to call once.
	Destroy()
}

// AccumulateOp describes one accumulation pass: the program samples Source
// as the previous sum, adds one sample's contribution, and writes the new
// sum into Target. With a non-nil Scissor, writes are restricted to that
// rectangle and Target keeps its prior content elsewhere.
type AccumulateOp struct {
	Target  Target
	Source  Target
	Program Program

	// Scissor restricts writes to a sub-rectangle; nil means the full target.
	Scissor *TileRect

	Camera   Camera
	Uniforms map[string]Value
	Options  map[string]Value

	// Seed is the per-pass stochastic sampling seed.
	Seed uint32

	// Subframe is the zero-based index of the subframe being accumulated.
	Subframe int

	// Time is the animation time in seconds.
	Time float64
}

// DisplayOp describes the post-process pass: normalize Source by its sample
// count, tone-map, and present at Width x Height.
type DisplayOp struct {
	Source Target

	// Width and Height are the canvas pixel dimensions. When they differ
	// from the source size (interaction scale), the device stretches.
	Width, Height int

	Post PostProcess
}

// ProbeOp describes a single-pixel focus probe pass at a viewport-relative
// coordinate. It must not touch any accumulation target.
type ProbeOp struct {
	Program  Program
	Camera   Camera
	Uniforms map[string]Value
	Options  map[string]Value

	// X and Y are viewport-relative in [0,1].
	X, Y float64

	// Time is the animation time in seconds.
	Time float64
}

// Device is the GPU abstraction the renderer drives. The production
// implementation is gpu.Backend; tests substitute an in-memory fake.
//
// A Device returned by a constructor is fully usable; missing required GPU
// capabilities fail construction, never degrade.
type Device interface {
	// MaxTargetSize returns the device's largest allowed target dimension.
	MaxTargetSize() int

	// CreateTarget allocates a float accumulation target. Dimensions beyond
	// MaxTargetSize fail with an error.
	CreateTarget(width, height int) (Target, error)

	// BuildProgram compiles and links a program from src. On compile failure
	// the returned error is a *BuildError carrying the stage and raw log;
	// its Diagnostics are filled in by the caller, which owns the line map.
	BuildProgram(src ShaderSource) (Program, error)

	// ClearTarget resets a target to transparent black (sum 0, count 0).
	ClearTarget(t Target) error

	// CopyTarget copies src into dst. Both must have identical dimensions.
	CopyTarget(dst, src Target) error

	// Accumulate executes one accumulation pass.
	Accumulate(op AccumulateOp) error

	// Display executes the normalize/tone-map pass into the display surface.
	Display(op DisplayOp) error

	// Probe executes a 1x1 probe pass and returns the read-back distance.
	Probe(op ProbeOp) (float32, error)

	// ReadDisplay returns the most recent display pass output as tightly
	// packed RGBA bytes in top-to-bottom row order.
	ReadDisplay() (pix []byte, width, height int, err error)

	// Destroy releases all device resources. Safe to call multiple times.
	Destroy()
}
