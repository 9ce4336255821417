package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/cogentcore/webgpu/wgpu"
)

func init() {
	gfx.RegisterBackend(gfx.RendererTypeWebGPU, func() gfx.Backend { return newBackend() })
}

type samplerKey struct {
	flags     gfx.SamplerFlags
	filtering bool
	compare   bool
}

type wgpuBackend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	caps       gfx.Caps
	resolution gfx.Resolution
	main       *swapChain

	vertexBuffers        map[gfx.Handle]*buffer
	indexBuffers         map[gfx.Handle]*buffer
	dynamicVertexBuffers map[gfx.Handle]*buffer
	dynamicIndexBuffers  map[gfx.Handle]*buffer
	shaders              map[gfx.Handle]*shaderModule
	programs             map[gfx.Handle]*program
	textures             map[gfx.Handle]*texture
	frameBuffers         map[gfx.Handle]*frameBuffer

	pipelines *pipelineCache
	samplers  map[samplerKey]*wgpu.Sampler
	white     *texture

	staging     uniformStaging
	uniforms    streamBuffer
	transientVB streamBuffer
	transientIB streamBuffer
	debug       debugOverlay

	// Per-frame state, cleared after submit.
	acquired    []*swapChain
	frameGroups map[textureGroupKey]*wgpu.BindGroup
}

func newBackend() *wgpuBackend {
	return &wgpuBackend{
		vertexBuffers:        make(map[gfx.Handle]*buffer),
		indexBuffers:         make(map[gfx.Handle]*buffer),
		dynamicVertexBuffers: make(map[gfx.Handle]*buffer),
		dynamicIndexBuffers:  make(map[gfx.Handle]*buffer),
		shaders:              make(map[gfx.Handle]*shaderModule),
		programs:             make(map[gfx.Handle]*program),
		textures:             make(map[gfx.Handle]*texture),
		frameBuffers:         make(map[gfx.Handle]*frameBuffer),
		samplers:             make(map[samplerKey]*wgpu.Sampler),
		frameGroups:          make(map[textureGroupKey]*wgpu.BindGroup),
		uniforms:             streamBuffer{label: "gfx uniforms", usage: wgpu.BufferUsageUniform},
		transientVB:          streamBuffer{label: "gfx transient vertices", usage: wgpu.BufferUsageVertex},
		transientIB:          streamBuffer{label: "gfx transient indices", usage: wgpu.BufferUsageIndex},
	}
}

func (b *wgpuBackend) Type() gfx.RendererType { return gfx.RendererTypeWebGPU }

func (b *wgpuBackend) Init(in gfx.Init) error {
	b.instance = wgpu.CreateInstance(nil)

	var surface *wgpu.Surface
	if nwh := in.Platform.NativeWindowHandle; nwh != nil {
		provider, ok := nwh.(surfaceProvider)
		if !ok {
			b.Shutdown()
			return fmt.Errorf("wgpu: native window handle %T does not provide a surface descriptor", nwh)
		}
		surface = b.instance.CreateSurface(provider.SurfaceDescriptor())
	}

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		if surface != nil {
			surface.Release()
		}
		b.Shutdown()
		return fmt.Errorf("wgpu: request adapter: %w", err)
	}
	b.adapter = adapter

	supported := adapter.GetLimits().Limits
	limits := wgpu.DefaultLimits()
	limits.MaxTextureDimension2D = max(limits.MaxTextureDimension2D, supported.MaxTextureDimension2D)
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "gfx device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		if surface != nil {
			surface.Release()
		}
		b.Shutdown()
		return fmt.Errorf("wgpu: request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()
	b.staging.align = device.GetLimits().Limits.MinUniformBufferOffsetAlignment
	b.pipelines = newPipelineCache(device)

	b.resolution = in.Resolution
	b.main = b.newMainSwapChain(surface, in.Resolution)
	if err := b.main.configure(b.adapter, b.device, in.Resolution.Width, in.Resolution.Height); err != nil {
		b.Shutdown()
		return err
	}

	if err := b.createWhiteTexture(); err != nil {
		b.Shutdown()
		return err
	}

	b.caps = buildCaps(in.Limits, limits.MaxTextureDimension2D)
	info := adapter.GetInfo()
	gfx.Logger().Info("gfx: wgpu backend initialized",
		"adapter", info.Name, "backend", info.BackendType.String(),
		"width", in.Resolution.Width, "height", in.Resolution.Height,
		"headless", surface == nil)
	return nil
}

func (b *wgpuBackend) newMainSwapChain(surface *wgpu.Surface, res gfx.Resolution) *swapChain {
	return &swapChain{
		surface:     surface,
		format:      textureFormat(res.Format, false, res.Reset&gfx.ResetSRGBBackbuffer != 0),
		depthFormat: wgpu.TextureFormatDepth24PlusStencil8,
		samples:     res.Reset.MSAASamples(),
		vsync:       res.Reset&gfx.ResetVSync != 0,
	}
}

// createWhiteTexture makes the 1x1 texture bound to stages a draw leaves empty.
func (b *wgpuBackend) createWhiteTexture() error {
	info := gfx.CalcTextureSize(1, 1, 1, false, false, 1, gfx.TextureFormatRGBA8)
	err := b.createTexture(&gfx.CreateTextureCommand{
		Info: info,
		Data: gfx.Copy([]byte{0xff, 0xff, 0xff, 0xff}),
	})
	if err != nil {
		return err
	}
	b.white = b.textures[0]
	delete(b.textures, 0)
	return nil
}

// buildCaps reports what WebGPU guarantees without optional features.
func buildCaps(limits gfx.Limits, maxTexture uint32) gfx.Caps {
	caps := gfx.Caps{
		RendererType: gfx.RendererTypeWebGPU,
		Supported: gfx.CapsCompute | gfx.CapsIndex32 | gfx.CapsInstancing | gfx.CapsDrawIndirect |
			gfx.CapsSwapChain | gfx.CapsTexture2DArray | gfx.CapsVertexAttribHalf,
		Limits:           limits,
		HomogeneousDepth: false,
		OriginBottomLeft: false,
		MaxTextureSize:   maxTexture,
	}
	color := gfx.FormatSupport2D | gfx.FormatSupportFrameBuffer | gfx.FormatSupportMSAA | gfx.FormatSupportMips
	for f := gfx.TextureFormatR8; f < gfx.TextureFormatCount; f++ {
		switch {
		case f.IsDepth():
			caps.Formats[f] = gfx.FormatSupport2D | gfx.FormatSupportFrameBuffer
		case !filterable(textureFormats[f]):
			// 32-bit float formats cannot be filtered, so they are render targets only.
			caps.Formats[f] = gfx.FormatSupportFrameBuffer | gfx.FormatSupportMips
		default:
			caps.Formats[f] = color
		}
	}
	return caps
}

func (b *wgpuBackend) Caps() gfx.Caps { return b.caps }

func (b *wgpuBackend) RenderFrame(f *gfx.Frame) error {
	var errs []error
	report := func(err error) {
		if err != nil {
			gfx.Logger().Warn("gfx: wgpu frame error", "frame", f.Number, "error", err)
			errs = append(errs, err)
		}
	}

	if f.Resolution != b.resolution {
		report(b.reset(f.Resolution))
	}
	for _, cmd := range f.PreCommands {
		report(b.execute(cmd))
	}

	report(b.transientVB.upload(b.device, b.queue, f.TransientVertices))
	report(b.transientIB.upload(b.device, b.queue, f.TransientIndices))
	offsets := b.packUniforms(f)
	report(b.uniforms.upload(b.device, b.queue, b.staging.data))

	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "gfx frame"})
	if err != nil {
		report(fmt.Errorf("wgpu: command encoder: %w", err))
	} else {
		for i := range f.Views {
			report(b.encodeView(encoder, f, &f.Views[i], offsets[i]))
		}
		report(b.encodeDebugText(encoder, f))
		report(b.submit(encoder))
	}

	for _, sc := range b.acquired {
		sc.present()
	}
	b.acquired = b.acquired[:0]
	for key, bg := range b.frameGroups {
		bg.Release()
		delete(b.frameGroups, key)
	}

	for _, cmd := range f.PostCommands {
		report(b.execute(cmd))
	}
	return errors.Join(errs...)
}

func (b *wgpuBackend) submit(encoder *wgpu.CommandEncoder) error {
	defer encoder.Release()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("wgpu: finish frame: %w", err)
	}
	defer cmd.Release()
	b.queue.Submit(cmd)
	return nil
}

// reset applies a new backbuffer configuration.
func (b *wgpuBackend) reset(res gfx.Resolution) error {
	surface := b.main.surface
	b.main.surface = nil
	b.main.release()
	b.main = b.newMainSwapChain(surface, res)
	b.resolution = res
	return b.main.configure(b.adapter, b.device, res.Width, res.Height)
}

func (b *wgpuBackend) Shutdown() {
	for key, bg := range b.frameGroups {
		bg.Release()
		delete(b.frameGroups, key)
	}
	for h := range b.frameBuffers {
		b.destroy(gfx.ResourceFrameBuffer, h)
	}
	for h := range b.programs {
		b.destroy(gfx.ResourceProgram, h)
	}
	for h := range b.shaders {
		b.destroy(gfx.ResourceShader, h)
	}
	for h := range b.textures {
		b.destroy(gfx.ResourceTexture, h)
	}
	for _, m := range []map[gfx.Handle]*buffer{b.vertexBuffers, b.indexBuffers, b.dynamicVertexBuffers, b.dynamicIndexBuffers} {
		for h, buf := range m {
			buf.release()
			delete(m, h)
		}
	}
	for key, s := range b.samplers {
		s.Release()
		delete(b.samplers, key)
	}
	if b.white != nil {
		b.white.release()
		b.white = nil
	}
	if b.pipelines != nil {
		b.pipelines.forget()
	}
	b.debug.release()
	b.uniforms.release()
	b.transientVB.release()
	b.transientIB.release()
	if b.main != nil {
		b.main.release()
		b.main = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
