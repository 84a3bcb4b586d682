// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/fray"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// displayParamsSize is the byte size of the DisplayParams uniform buffer.
// Two vec4 slots:
//
//	tonemap mode, exposure, gamma, brightness
//	contrast, saturation, display width, display height
const displayParamsSize = 32

// packDisplayParams serializes post-processing settings for the display
// shader. The tone-mapping mode travels as a float selector. The display
// size lets the shader rescale a reduced-resolution source.
func packDisplayParams(post fray.PostProcess, width, height int) []byte {
	buf := make([]byte, displayParamsSize)
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	put(float32(post.ToneMapping))
	put(float32(post.Exposure))
	put(float32(post.Gamma))
	put(float32(post.Brightness))
	put(float32(post.Contrast))
	put(float32(post.Saturation))
	put(float32(width))
	put(float32(height))
	return buf
}

// ensureDisplayTarget (re)creates the RGBA8 display texture at the given
// size. A size change drops the old texture first.
func (b *Backend) ensureDisplayTarget(w, h int) error {
	if b.displayTex != nil && b.displayW == w && b.displayH == h {
		return nil
	}
	b.destroyDisplayTarget()

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "fray_display",
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        displayFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("gpu: create display texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "fray_display_view",
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return fmt.Errorf("gpu: create display view: %w", err)
	}
	b.displayTex = tex
	b.displayView = view
	b.displayW = w
	b.displayH = h
	return nil
}

func (b *Backend) destroyDisplayTarget() {
	if b.displayView != nil {
		b.device.DestroyTextureView(b.displayView)
		b.displayView = nil
	}
	if b.displayTex != nil {
		b.device.DestroyTexture(b.displayTex)
		b.displayTex = nil
	}
	b.displayW = 0
	b.displayH = 0
}

// Display resolves the accumulation sum into the display texture: each
// pixel's RGB is divided by its sample count, then exposure, tone mapping,
// and color grading are applied. The source may be smaller than the
// display when rendering at a reduced interactive scale; the shader
// rescales by sampling in normalized coordinates.
func (b *Backend) Display(op fray.DisplayOp) error {
	if b.destroyed {
		return ErrDestroyed
	}
	src, err := asTarget(op.Source)
	if err != nil {
		return err
	}
	if op.Width <= 0 || op.Height <= 0 {
		return fmt.Errorf("gpu: display size %dx%d out of range", op.Width, op.Height)
	}
	if err := b.ensureDisplay(); err != nil {
		return err
	}
	if err := b.ensureDisplayTarget(op.Width, op.Height); err != nil {
		return err
	}

	params := packDisplayParams(op.Post, op.Width, op.Height)
	paramsBuf, err := b.createAndUploadBuffer("fray_display_params", params,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(paramsBuf)

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fray_display_bind",
		Layout: b.display.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: displayParamsSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: src.view.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create display bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	return b.submit("fray_display", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "fray_display_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       b.displayView,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
			}},
		})
		rp.SetPipeline(b.display.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.Draw(3, 1, 0, 0)
		rp.End()
		return nil
	})
}

// ReadDisplay reads back the current display texture as tightly packed
// RGBA8 rows, top to bottom.
func (b *Backend) ReadDisplay() ([]byte, int, int, error) {
	if b.destroyed {
		return nil, 0, 0, ErrDestroyed
	}
	if b.displayTex == nil {
		return nil, 0, 0, fmt.Errorf("gpu: no display rendered yet")
	}
	pix, err := b.readbackTexture(b.displayTex, b.displayW, b.displayH, 4)
	if err != nil {
		return nil, 0, 0, err
	}
	return pix, b.displayW, b.displayH, nil
}
