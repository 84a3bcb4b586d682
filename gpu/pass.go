// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/gogpu/fray"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// frameParamsSize is the byte size of the FrameParams uniform buffer.
// Layout, vec4 slots in order:
//
//	eye.xyz,    fov (degrees)
//	target.xyz, 0
//	up.xyz,     0
//	resolution.xy, 0, 0
//	seed, subframe, time, 0
//	probe_coord.xy, 0, 0
//
// The seed stays below 1<<24, so the float32 representation is exact.
const frameParamsSize = 96

// frameParams collects the per-pass values packed into binding 0.
type frameParams struct {
	camera   fray.Camera
	width    int
	height   int
	seed     uint32
	subframe int
	time     float64
	probeX   float64
	probeY   float64
}

// packFrameParams serializes params into the 96-byte uniform layout.
func packFrameParams(p frameParams) []byte {
	buf := make([]byte, frameParamsSize)
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	putVec3 := func(v [3]float64, w float64) {
		put(float32(v[0]))
		put(float32(v[1]))
		put(float32(v[2]))
		put(float32(w))
	}
	putVec3(p.camera.Eye, p.camera.FOV)
	putVec3(p.camera.Target, 0)
	putVec3(p.camera.Up, 0)
	put(float32(p.width))
	put(float32(p.height))
	put(0)
	put(0)
	put(float32(p.seed))
	put(float32(p.subframe))
	put(float32(p.time))
	put(0)
	put(float32(p.probeX))
	put(float32(p.probeY))
	put(0)
	put(0)
	return buf
}

// packUserValues serializes uniform and integrator-option values into the
// binding 2 buffer: one vec4 slot per value, lexicographic name order,
// options after uniforms. Ints and bools pack as floats, matching the
// composed shader's all-f32 uniform struct. An empty table still yields
// one zero slot so the buffer is never empty.
func packUserValues(uniforms, options map[string]fray.Value) []byte {
	total := len(uniforms) + len(options)
	if total == 0 {
		return make([]byte, 16)
	}
	buf := make([]byte, 0, total*16)
	buf = appendSortedValues(buf, uniforms)
	buf = appendSortedValues(buf, options)
	return buf
}

func appendSortedValues(buf []byte, m map[string]fray.Value) []byte {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	var scratch [4]byte
	for _, name := range names {
		v := m[name]
		var slot [4]float32
		switch v.Kind() {
		case fray.KindInt:
			slot[0] = float32(v.Int())
		case fray.KindBool:
			if v.Bool() {
				slot[0] = 1
			}
		default:
			slot = v.Components()
		}
		for _, c := range slot {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(c))
			buf = append(buf, scratch[:]...)
		}
	}
	return buf
}

// Accumulate executes one accumulation pass: the scene program samples the
// source target as the previous sum and writes the new sum into the
// destination, scissored to op.Scissor when set.
func (b *Backend) Accumulate(op fray.AccumulateOp) error {
	if b.destroyed {
		return ErrDestroyed
	}
	dst, err := asTarget(op.Target)
	if err != nil {
		return err
	}
	src, err := asTarget(op.Source)
	if err != nil {
		return err
	}
	prog, err := asProgram(op.Program)
	if err != nil {
		return err
	}

	params := packFrameParams(frameParams{
		camera:   op.Camera,
		width:    dst.width,
		height:   dst.height,
		seed:     op.Seed,
		subframe: op.Subframe,
		time:     op.Time,
	})
	paramsBuf, err := b.createAndUploadBuffer("fray_frame_params", params,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(paramsBuf)

	userData := packUserValues(op.Uniforms, op.Options)
	userBuf, err := b.createAndUploadBuffer("fray_user_uniforms", userData,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(userBuf)

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fray_accum_bind",
		Layout: prog.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: frameParamsSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: src.view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.BufferBinding{
				Buffer: userBuf.NativeHandle(), Offset: 0, Size: uint64(len(userData)),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create accumulation bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	return b.submit("fray_accum", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "fray_accum_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    dst.view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(prog.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		if s := op.Scissor; s != nil {
			rp.SetScissorRect(uint32(s.X), uint32(s.Y), uint32(s.Width), uint32(s.Height))
		}
		rp.Draw(3, 1, 0, 0)
		rp.End()
		return nil
	})
}
