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

// ensureProbeTargets creates the 1x1 probe output plus the 1x1 dummy
// backbuffer bound in the scene layout's texture slot. Probe programs
// never read the backbuffer, but the bind group still needs a view.
func (b *Backend) ensureProbeTargets() error {
	if b.probeTex != nil {
		return nil
	}
	mk := func(label string, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
		tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
			Label:         label,
			Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        accumFormat,
			Usage:         usage,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gpu: create %s: %w", label, err)
		}
		view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label: label + "_view",
		})
		if err != nil {
			b.device.DestroyTexture(tex)
			return nil, nil, fmt.Errorf("gpu: create %s view: %w", label, err)
		}
		return tex, view, nil
	}

	tex, view, err := mk("fray_probe", gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	srcTex, srcView, err := mk("fray_probe_src", gputypes.TextureUsageTextureBinding|gputypes.TextureUsageRenderAttachment)
	if err != nil {
		b.device.DestroyTextureView(view)
		b.device.DestroyTexture(tex)
		return err
	}
	b.probeTex, b.probeView = tex, view
	b.probeSrcTex, b.probeSrcView = srcTex, srcView
	return nil
}

func (b *Backend) destroyProbeTarget() {
	if b.probeSrcView != nil {
		b.device.DestroyTextureView(b.probeSrcView)
		b.probeSrcView = nil
	}
	if b.probeSrcTex != nil {
		b.device.DestroyTexture(b.probeSrcTex)
		b.probeSrcTex = nil
	}
	if b.probeView != nil {
		b.device.DestroyTextureView(b.probeView)
		b.probeView = nil
	}
	if b.probeTex != nil {
		b.device.DestroyTexture(b.probeTex)
		b.probeTex = nil
	}
}

// Probe renders the probe program into a 1x1 target and reads back the red
// channel, the hit distance along the ray through (op.X, op.Y). The pass
// touches neither accumulation target, so probing never perturbs a
// converging image.
func (b *Backend) Probe(op fray.ProbeOp) (float32, error) {
	if b.destroyed {
		return 0, ErrDestroyed
	}
	prog, err := asProgram(op.Program)
	if err != nil {
		return 0, err
	}
	if err := b.ensureProbeTargets(); err != nil {
		return 0, err
	}

	// Ray setup in the probe shader needs the real viewport, not the 1x1
	// output. Fall back to 1x1 before the first display pass.
	w, h := b.displayW, b.displayH
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	params := packFrameParams(frameParams{
		camera: op.Camera,
		width:  w,
		height: h,
		time:   op.Time,
		probeX: op.X,
		probeY: op.Y,
	})
	paramsBuf, err := b.createAndUploadBuffer("fray_probe_params", params,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return 0, err
	}
	defer b.device.DestroyBuffer(paramsBuf)

	userData := packUserValues(op.Uniforms, op.Options)
	userBuf, err := b.createAndUploadBuffer("fray_probe_uniforms", userData,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return 0, err
	}
	defer b.device.DestroyBuffer(userBuf)

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fray_probe_bind",
		Layout: prog.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: frameParamsSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: b.probeSrcView.NativeHandle()}},
			{Binding: 2, Resource: gputypes.BufferBinding{
				Buffer: userBuf.NativeHandle(), Offset: 0, Size: uint64(len(userData)),
			}},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("gpu: create probe bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	err = b.submit("fray_probe", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "fray_probe_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       b.probeView,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			}},
		})
		rp.SetPipeline(prog.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.Draw(3, 1, 0, 0)
		rp.End()
		return nil
	})
	if err != nil {
		return 0, err
	}

	pix, err := b.readbackTexture(b.probeTex, 1, 1, 16)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(pix[:4])), nil
}
