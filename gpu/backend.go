// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/fray"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Common errors returned by backend construction.
var (
	// ErrNoBackend is returned when no GPU backend is compiled in or usable.
	ErrNoBackend = errors.New("gpu: no GPU backend available")

	// ErrNoAdapter is returned when adapter enumeration finds nothing.
	ErrNoAdapter = errors.New("gpu: no GPU adapters found")

	// ErrBadProvider is returned when a shared-device provider does not
	// expose HAL types.
	ErrBadProvider = errors.New("gpu: provider does not expose HAL types")

	// ErrDestroyed is returned when operating on a destroyed backend.
	ErrDestroyed = errors.New("gpu: backend is destroyed")
)

// Option configures a Backend.
type Option func(*config)

type config struct {
	provider gpucontext.DeviceProvider
}

// WithProvider shares a GPU device from an external host (e.g. a gogpu
// window) instead of creating a standalone one. The provider must also
// expose HalDevice() any and HalQueue() any returning wgpu/hal types, as
// gpucontext.HalProvider does. The backend does not destroy shared
// resources on Destroy.
func WithProvider(provider gpucontext.DeviceProvider) Option {
	return func(c *config) { c.provider = provider }
}

// Backend implements fray.Device on a wgpu HAL device.
//
// All methods are synchronous single-encoder submissions: encode, submit,
// wait for the submission to complete. This matches fray's cooperative
// single-threaded model; a Backend must not be shared across goroutines.
type Backend struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	externalDevice bool
	maxTextureSize int

	// Lazily created pipelines shared across passes.
	blit    *blitPipeline
	display *displayPipeline

	// Display pass output, recreated on size change.
	displayTex  hal.Texture
	displayView hal.TextureView
	displayW    int
	displayH    int

	// Probe pass output, 1x1, created on first probe. probeSrc is a 1x1
	// dummy backbuffer so probe programs satisfy the scene binding layout.
	probeTex     hal.Texture
	probeView    hal.TextureView
	probeSrcTex  hal.Texture
	probeSrcView hal.TextureView

	destroyed bool
}

// Interface compliance check.
var _ fray.Device = (*Backend)(nil)

// New creates a backend. Without options it opens a standalone Vulkan
// device, preferring discrete over integrated adapters. Missing GPU
// capability is fatal here; there is no degraded mode.
func New(opts ...Option) (*Backend, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Backend{}
	limits := gputypes.DefaultLimits()
	b.maxTextureSize = int(limits.MaxTextureDimension2D)

	if cfg.provider != nil {
		if err := b.adoptProvider(cfg.provider); err != nil {
			return nil, err
		}
		return b, nil
	}
	if err := b.initStandalone(); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// adoptProvider wires a shared device from an external host.
func (b *Backend) adoptProvider(provider gpucontext.DeviceProvider) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return ErrBadProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("%w: HalDevice is not hal.Device", ErrBadProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("%w: HalQueue is not hal.Queue", ErrBadProvider)
	}
	b.device = device
	b.queue = queue
	b.externalDevice = true
	fray.Logger().Debug("gpu: using shared device from provider")
	return nil
}

// initStandalone creates an owned Vulkan device.
func (b *Backend) initStandalone() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return ErrNoBackend
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return ErrNoAdapter
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		for i := range adapters {
			if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = &adapters[i]
				break
			}
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("gpu: open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue

	fray.Logger().Info("gpu: device opened", "adapter", selected.Info.Name)
	return nil
}

// MaxTargetSize returns the largest allowed target dimension.
func (b *Backend) MaxTargetSize() int { return b.maxTextureSize }

// Destroy releases all backend resources. Shared devices are not destroyed;
// their owner keeps them. Safe to call multiple times.
func (b *Backend) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true

	b.destroyProbeTarget()
	b.destroyDisplayTarget()
	if b.display != nil {
		b.display.destroy(b.device)
		b.display = nil
	}
	if b.blit != nil {
		b.blit.destroy(b.device)
		b.blit = nil
	}

	if !b.externalDevice {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.instance = nil
	b.queue = nil
}

// submit encodes one command stream, submits it, and blocks until the
// submission completes. The HAL manages its own fences; completion is
// confirmed against the submission index.
func (b *Backend) submit(label string, record func(enc hal.CommandEncoder) error) error {
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	if err := record(encoder); err != nil {
		encoder.DiscardEncoding()
		return err
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	subIdx, err := b.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	if err := b.device.WaitIdle(); err != nil {
		return fmt.Errorf("gpu: wait for GPU: %w", err)
	}
	if completed := b.queue.PollCompleted(); completed < subIdx {
		return fmt.Errorf("gpu: submission %d not completed (last %d)", subIdx, completed)
	}
	return nil
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (b *Backend) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// readbackTexture copies a texture into a staging buffer and returns the
// tightly packed pixel rows. bytesPerPixel is 4 for RGBA8, 16 for RGBA32F.
// Rows come back in top-to-bottom order.
func (b *Backend) readbackTexture(tex hal.Texture, w, h, bytesPerPixel int) ([]byte, error) {
	bytesPerRow := uint32(w * bytesPerPixel)
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fray_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(stagingBuf)

	err = b.submit("fray_readback", func(enc hal.CommandEncoder) error {
		// After a render pass the texture sits in attachment layout;
		// CopyTextureToBuffer needs transfer-source. No-op off Vulkan/DX12.
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		enc.CopyTextureToBuffer(tex, stagingBuf, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: uint32(h)},
			TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
			Size:         hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		}})
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	mapping, err := b.device.MapBuffer(stagingBuf, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	readback := make([]byte, stagingSize)
	copy(readback, unsafe.Slice((*byte)(mapping.Ptr), stagingSize))
	if err := b.device.UnmapBuffer(stagingBuf); err != nil {
		return nil, fmt.Errorf("gpu: unmap staging buffer: %w", err)
	}

	if alignedBytesPerRow == bytesPerRow {
		return readback[:int(bytesPerRow)*h], nil
	}
	tight := make([]byte, int(bytesPerRow)*h)
	for row := 0; row < h; row++ {
		srcOff := row * int(alignedBytesPerRow)
		dstOff := row * int(bytesPerRow)
		copy(tight[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
	}
	return tight, nil
}
