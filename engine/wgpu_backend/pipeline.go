package wgpu_backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gfx/engine/wgpu_backend/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gg/text"
)

// pipelineCacheSize bounds the number of live render pipelines. Pipelines evicted from
// the cache stay owned by their program and are only rebuilt on the next miss.
const pipelineCacheSize = 1024

// shaderModule is a created WGSL module with its reflected interface.
type shaderModule struct {
	module *wgpu.ShaderModule
	refl   *shader.Reflection
}

// program is a linked program: the merged binding interface, the bind group layouts and
// every pipeline built for it.
type program struct {
	handle   gfx.ProgramHandle
	vertex   *shaderModule
	fragment *shaderModule
	compute  *shaderModule
	iface    shader.Program

	uniformLayout *wgpu.BindGroupLayout
	textureLayout *wgpu.BindGroupLayout
	layout        *wgpu.PipelineLayout

	// uniformGroup binds the shared uniform buffer at a dynamic offset. It is rebuilt
	// when the buffer is reallocated, tracked by uniformGen.
	uniformGroup *wgpu.BindGroup
	uniformGen   uint64

	computePipeline *wgpu.ComputePipeline
	pipelines       []*wgpu.RenderPipeline
}

// uniformSize returns the per-draw size of the uniform block, or 0 when the program
// declares none.
func (p *program) uniformSize() uint32 {
	if p.iface.Uniforms == nil {
		return 0
	}
	return alignTo(p.iface.Uniforms.Size, 16)
}

func (p *program) stages() wgpu.ShaderStage {
	if p.compute != nil {
		return wgpu.ShaderStageCompute
	}
	return wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
}

// depthStage reports whether the texture bound at stage samples depth.
func (p *program) depthStage(stage uint8) bool {
	for _, b := range p.iface.Bindings {
		if b.Kind == shader.BindingTexture && b.Binding == shader.TextureBinding(stage) {
			return b.SampleType == shader.SampleDepth
		}
	}
	return false
}

func (p *program) release() {
	for _, rp := range p.pipelines {
		rp.Release()
	}
	p.pipelines = nil
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.uniformGroup != nil {
		p.uniformGroup.Release()
		p.uniformGroup = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.textureLayout != nil {
		p.textureLayout.Release()
		p.textureLayout = nil
	}
	if p.uniformLayout != nil {
		p.uniformLayout.Release()
		p.uniformLayout = nil
	}
}

// pipelineKey identifies a render pipeline: everything in a draw and its target that
// WebGPU bakes into pipeline state.
type pipelineKey struct {
	program gfx.Handle
	state   gfx.StateFlags
	front   gfx.StencilFlags
	back    gfx.StencilFlags
	layouts [gfx.MaxVertexStreams]uint32
	index32 bool
	target  targetKey
}

// targetKey is the attachment signature of a render pass.
type targetKey struct {
	colors    [gfx.MaxFrameBufferAttachments]wgpu.TextureFormat
	numColors uint8
	depth     wgpu.TextureFormat
	samples   uint32
}

func newPipelineKey(it *gfx.RenderItem, target targetKey) pipelineKey {
	key := pipelineKey{
		program: it.Program.Handle,
		state:   it.State &^ gfx.StateAlphaRefMask,
		index32: it.Index.Index32,
		target:  target,
	}
	// The reference value is dynamic pass state, everything else is baked.
	if hasStencil(target.depth) {
		key.front = it.FrontStencil &^ gfx.StencilFuncRefMask
		key.back = it.BackStencil &^ gfx.StencilFuncRefMask
	}
	for i, s := range it.Streams {
		if i < len(key.layouts) && s.Layout != nil {
			key.layouts[i] = s.Layout.Hash()
		}
	}
	return key
}

// pipelineCache builds render pipelines on demand and keeps the most recently used.
type pipelineCache struct {
	device *wgpu.Device
	cache  *text.Cache[pipelineKey, *wgpu.RenderPipeline]
}

func newPipelineCache(device *wgpu.Device) *pipelineCache {
	return &pipelineCache{
		device: device,
		cache:  text.NewCache[pipelineKey, *wgpu.RenderPipeline](pipelineCacheSize),
	}
}

// get returns the pipeline for the draw it, building it on a miss.
//
// Parameters:
//   - p: the linked program of the draw
//   - it: the draw
//   - target: the attachment signature of the current pass
//
// Returns:
//   - *wgpu.RenderPipeline: the pipeline, owned by p
//   - error: error if the driver rejected the pipeline
func (c *pipelineCache) get(p *program, it *gfx.RenderItem, target targetKey) (*wgpu.RenderPipeline, error) {
	key := newPipelineKey(it, target)
	if rp, ok := c.cache.Get(key); ok {
		return rp, nil
	}
	rp, err := c.build(p, it, target)
	if err != nil {
		return nil, err
	}
	p.pipelines = append(p.pipelines, rp)
	c.cache.Set(key, rp)
	return rp, nil
}

// forget drops every cached pipeline. Programs still own and release them.
func (c *pipelineCache) forget() {
	c.cache.Clear()
}

func (c *pipelineCache) build(p *program, it *gfx.RenderItem, target targetKey) (*wgpu.RenderPipeline, error) {
	vsEntry, _ := p.vertex.refl.EntryPoint(shader.ShaderTypeVertex)
	fsEntry, _ := p.fragment.refl.EntryPoint(shader.ShaderTypeFragment)

	buffers := make([]wgpu.VertexBufferLayout, 0, len(it.Streams))
	for _, s := range it.Streams {
		buffers = append(buffers, vertexBufferLayout(s.Layout))
	}

	blend := blendState(it.State)
	mask := writeMask(it.State)
	targets := make([]wgpu.ColorTargetState, target.numColors)
	for i := range targets {
		targets[i] = wgpu.ColorTargetState{
			Format:    target.colors[i],
			Blend:     blend,
			WriteMask: mask,
		}
	}

	rp, err := c.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("gfx program %#x", uint32(it.Program.Handle)),
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.vertex.module,
			EntryPoint: vsEntry,
			Buffers:    buffers,
		},
		Primitive:    primitiveState(it.State, it.Index.Index32),
		DepthStencil: depthStencilState(target.depth, it.State, it.FrontStencil, it.BackStencil),
		Multisample: wgpu.MultisampleState{
			Count: max(target.samples, 1),
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragment.module,
			EntryPoint: fsEntry,
			Targets:    targets,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create render pipeline: %w", err)
	}
	return rp, nil
}

// linkProgram builds the bind group layouts and pipeline layout of a program. Compute
// programs also get their pipeline right away since it depends on nothing else.
func linkProgram(device *wgpu.Device, p *program) error {
	var modules []*shader.Reflection
	for _, m := range []*shaderModule{p.vertex, p.fragment, p.compute} {
		if m != nil {
			modules = append(modules, m.refl)
		}
	}
	iface, err := shader.Link(modules...)
	if err != nil {
		return err
	}
	p.iface = iface

	var uniformEntries []wgpu.BindGroupLayoutEntry
	if size := p.uniformSize(); size > 0 {
		uniformEntries = append(uniformEntries, wgpu.BindGroupLayoutEntry{
			Binding:    shader.UniformBinding,
			Visibility: p.stages(),
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   uint64(size),
			},
		})
	}
	p.uniformLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "gfx uniforms",
		Entries: uniformEntries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: uniform bind group layout: %w", err)
	}

	layouts := []*wgpu.BindGroupLayout{p.uniformLayout}
	if len(p.iface.Bindings) > 0 {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(p.iface.Bindings))
		for _, b := range p.iface.Bindings {
			entries = append(entries, p.textureLayoutEntry(b))
		}
		p.textureLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   "gfx textures",
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("wgpu: texture bind group layout: %w", err)
		}
		layouts = append(layouts, p.textureLayout)
	}

	p.layout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "gfx program",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("wgpu: pipeline layout: %w", err)
	}

	if p.compute != nil {
		entry, _ := p.compute.refl.EntryPoint(shader.ShaderTypeCompute)
		p.computePipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  "gfx compute",
			Layout: p.layout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     p.compute.module,
				EntryPoint: entry,
			},
		})
		if err != nil {
			return fmt.Errorf("wgpu: compute pipeline: %w", err)
		}
	}
	return nil
}

func (p *program) textureLayoutEntry(b shader.Binding) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: p.stages(),
	}
	switch b.Kind {
	case shader.BindingTexture:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    sampleTypes[b.SampleType],
			ViewDimension: viewDimensions[b.Dimension],
			Multisampled:  b.Multisampled,
		}
	case shader.BindingComparisonSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison}
	default:
		// Depth textures cannot be paired with a filtering sampler.
		kind := wgpu.SamplerBindingTypeFiltering
		if p.depthStage(shader.StageOf(b.Binding)) {
			kind = wgpu.SamplerBindingTypeNonFiltering
		}
		entry.Sampler = wgpu.SamplerBindingLayout{Type: kind}
	}
	return entry
}

var sampleTypes = [...]wgpu.TextureSampleType{
	shader.SampleFloat: wgpu.TextureSampleTypeFloat,
	shader.SampleDepth: wgpu.TextureSampleTypeDepth,
	shader.SampleSint:  wgpu.TextureSampleTypeSint,
	shader.SampleUint:  wgpu.TextureSampleTypeUint,
}

var viewDimensions = [...]wgpu.TextureViewDimension{
	shader.Dimension2D:      wgpu.TextureViewDimension2D,
	shader.Dimension2DArray: wgpu.TextureViewDimension2DArray,
	shader.DimensionCube:    wgpu.TextureViewDimensionCube,
	shader.Dimension3D:      wgpu.TextureViewDimension3D,
	shader.Dimension1D:      wgpu.TextureViewDimension1D,
}
