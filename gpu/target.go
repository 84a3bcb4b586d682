// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/fray"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// accumFormat is the accumulation target format: RGB carries the running
// sample sum, alpha the sample count, so full float precision is required.
const accumFormat = gputypes.TextureFormatRGBA32Float

// target is one accumulation buffer: a float texture plus its view.
type target struct {
	dev    hal.Device
	tex    hal.Texture
	view   hal.TextureView
	width  int
	height int
}

var _ fray.Target = (*target)(nil)

func (t *target) Size() (int, int) { return t.width, t.height }

// Destroy releases the texture and view. Safe to call once per target;
// the renderer destroys targets in pairs.
func (t *target) Destroy() {
	if t.view != nil {
		t.dev.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.dev.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// CreateTarget allocates a float accumulation target.
func (b *Backend) CreateTarget(width, height int) (fray.Target, error) {
	if b.destroyed {
		return nil, ErrDestroyed
	}
	if width <= 0 || height <= 0 || width > b.maxTextureSize || height > b.maxTextureSize {
		return nil, fmt.Errorf("gpu: target size %dx%d out of range [1, %d]", width, height, b.maxTextureSize)
	}

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "fray_accum",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        accumFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create accumulation texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "fray_accum_view",
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, fmt.Errorf("gpu: create accumulation view: %w", err)
	}
	return &target{dev: b.device, tex: tex, view: view, width: width, height: height}, nil
}

// ClearTarget resets a target to transparent black: zero sum, zero sample
// count. A load-clear pass with no draws is enough.
func (b *Backend) ClearTarget(ft fray.Target) error {
	if b.destroyed {
		return ErrDestroyed
	}
	t, err := asTarget(ft)
	if err != nil {
		return err
	}
	return b.submit("fray_clear", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "fray_clear_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       t.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			}},
		})
		rp.End()
		return nil
	})
}

// CopyTarget copies src into dst via a fullscreen blit draw. A draw is used
// instead of a transfer copy so the float format needs no extra usage
// flags or layout juggling between accumulation passes.
func (b *Backend) CopyTarget(fdst, fsrc fray.Target) error {
	if b.destroyed {
		return ErrDestroyed
	}
	dst, err := asTarget(fdst)
	if err != nil {
		return err
	}
	src, err := asTarget(fsrc)
	if err != nil {
		return err
	}
	if dst.width != src.width || dst.height != src.height {
		return fmt.Errorf("gpu: blit size mismatch: %dx%d vs %dx%d", dst.width, dst.height, src.width, src.height)
	}
	if err := b.ensureBlit(); err != nil {
		return err
	}

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fray_blit_bind",
		Layout: b.blit.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: src.view.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create blit bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	return b.submit("fray_blit", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "fray_blit_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       dst.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			}},
		})
		rp.SetPipeline(b.blit.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.Draw(3, 1, 0, 0)
		rp.End()
		return nil
	})
}

// asTarget unwraps the fray.Target interface back to this backend's type.
func asTarget(ft fray.Target) (*target, error) {
	t, ok := ft.(*target)
	if !ok || t == nil {
		return nil, fmt.Errorf("gpu: foreign target %T", ft)
	}
	return t, nil
}
