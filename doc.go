// Package fray is a progressive GPU accumulation renderer for
// shader-defined scenes.
//
// # Overview
//
// fray converges a physically-based image over many frames by accumulating
// one stochastic sample per pass into a float target (RGB = running sum,
// alpha = sample count) and normalizing at display time. During user
// interaction it trades convergence for responsiveness: reduced resolution
// and cheap tiled preview passes. The same scheduler runs headless to
// produce deterministic high-quality exports.
//
// The renderer does not decide what is rendered. Scene geometry and shading
// live in externally composed WGSL programs; fray decides when, at what
// resolution, in what partial order, and how many samples are combined,
// and it manages the GPU buffers this requires.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/fray"
//	    "github.com/gogpu/fray/gpu"
//	)
//
//	backend, err := gpu.New()
//	// handle err
//	defer backend.Destroy()
//
//	r, err := fray.New(backend)
//	// handle err
//	defer r.Destroy()
//
//	r.SetDisplaySize(1280, 720, 1)
//	err = r.SetScene(scene) // externally composed WGSL sources
//	r.Start()
//	// per display callback:
//	err = r.Tick()
//
// Headless export:
//
//	img, err := r.RenderStill(ctx, fray.StillOptions{
//	    Width: 1920, Height: 1080, Subframes: 256,
//	})
//
// # Architecture
//
// The root package holds the scheduler, the ping-pong target pool, the
// program manager with diagnostic mapping, the tile planner, the focus
// probe, and the export controller, all against the narrow Device
// interface. Package gpu implements Device on gogpu/wgpu.
//
// # Concurrency
//
// A Renderer is single-threaded and cooperative: all updates and ticks
// come from the goroutine driving the host's display callback. Offline
// export runs on the same goroutine and is mutually exclusive with the
// live loop.
package fray

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
