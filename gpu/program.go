// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/fray"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded fullscreen-triangle vertex stage, used when a scene supplies no
// vertex source of its own.
//
//go:embed shaders/fullscreen_vs.wgsl
var fullscreenVSSource string

// Scene program binding contract. Composed fragment sources must declare
// exactly these group 0 bindings:
//
//	@binding(0) var<uniform> frame: FrameParams;   // 96 bytes, see packFrameParams
//	@binding(1) var backbuffer: texture_2d<f32>;   // previous accumulation sum
//	@binding(2) var<uniform> user: UserUniforms;   // one vec4 per declared
//	                                               // uniform, lexicographic
//	                                               // name order
//
// The fragment entry point is fs_main; the vertex entry point is vs_main
// (supplied by fullscreen_vs.wgsl unless the scene brings its own).

// program is a compiled scene or probe program: one shader module and the
// render pipeline that draws a fullscreen triangle with it into a float
// accumulation target.
type program struct {
	dev        hal.Device
	module     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
}

var _ fray.Program = (*program)(nil)

// Destroy releases pipeline resources in reverse creation order.
func (p *program) Destroy() {
	if p.pipeline != nil {
		p.dev.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.dev.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.layout != nil {
		p.dev.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.module != nil {
		p.dev.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// BuildProgram validates the sources through naga, then compiles and links
// the pipeline. Compile failures return a *fray.BuildError carrying the
// failed stage and naga's raw log; fray maps the diagnostics to original
// source lines.
func (b *Backend) BuildProgram(src fray.ShaderSource) (fray.Program, error) {
	if b.destroyed {
		return nil, ErrDestroyed
	}
	vertex := src.VertexSource
	if vertex == "" {
		vertex = fullscreenVSSource
	} else if _, err := naga.Compile(vertex); err != nil {
		return nil, &fray.BuildError{Stage: fray.StageVertex, Log: err.Error()}
	}
	if _, err := naga.Compile(src.FragmentSource); err != nil {
		return nil, &fray.BuildError{Stage: fray.StageFragment, Log: err.Error()}
	}

	p := &program{dev: b.device}
	if err := b.linkProgram(p, vertex+"\n"+src.FragmentSource); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

// linkProgram creates the module, layouts, and pipeline. Failures here are
// link-stage build errors: both stages validated individually, so what is
// left is interface mismatches between them and the binding contract.
func (b *Backend) linkProgram(p *program, source string) error {
	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "fray_scene_shader",
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return &fray.BuildError{Stage: fray.StageLink, Log: err.Error()}
	}
	p.module = module

	layout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fray_scene_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create scene bind layout: %w", err)
	}
	p.layout = layout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "fray_scene_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create scene pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	pipeline, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "fray_scene_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    accumFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return &fray.BuildError{Stage: fray.StageLink, Log: err.Error()}
	}
	p.pipeline = pipeline
	return nil
}

// asProgram unwraps the fray.Program interface back to this backend's type.
func asProgram(fp fray.Program) (*program, error) {
	p, ok := fp.(*program)
	if !ok || p == nil {
		return nil, fmt.Errorf("gpu: foreign program %T", fp)
	}
	return p, nil
}
