package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gfx/engine/wgpu_backend/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// buffer is a vertex or index buffer. Dynamic buffers may be replaced by a larger one
// on update.
type buffer struct {
	buf     *wgpu.Buffer
	size    uint64
	usage   wgpu.BufferUsage
	layout  *gfx.VertexLayout
	index32 bool
}

func (b *buffer) release() {
	if b.buf != nil {
		b.buf.Destroy()
		b.buf.Release()
		b.buf = nil
	}
}

// texture is a sampled texture or render target.
type texture struct {
	tex    *wgpu.Texture
	view   *wgpu.TextureView
	format wgpu.TextureFormat
	info   gfx.TextureInfo
	flags  gfx.TextureFlags
}

func (t *texture) release() {
	t.view.Release()
	t.tex.Destroy()
	t.tex.Release()
}

// frameBuffer is either a set of texture attachments or a window swap chain.
type frameBuffer struct {
	colors []*wgpu.TextureView
	depth  *wgpu.TextureView
	key    targetKey
	width  uint32
	height uint32
	swap   *swapChain
}

func (fb *frameBuffer) release() {
	for _, v := range fb.colors {
		v.Release()
	}
	if fb.depth != nil {
		fb.depth.Release()
	}
	if fb.swap != nil {
		fb.swap.release()
	}
}

// surfaceProvider is implemented by window handles that can describe a WebGPU surface.
type surfaceProvider interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// errUnknownHandle is returned by commands that refer to a resource the backend never
// created, usually because its creation failed earlier.
var errUnknownHandle = errors.New("wgpu: unknown handle")

// execute runs one resource command.
func (b *wgpuBackend) execute(cmd gfx.Command) error {
	switch c := cmd.(type) {
	case *gfx.CreateVertexBufferCommand:
		buf, err := b.createBuffer("gfx vertex buffer", vertexUsage(c.Flags), uint64(c.Data.Size()), c.Data.Data())
		if err != nil {
			return err
		}
		buf.layout = c.Layout
		b.vertexBuffers[c.Handle.Handle] = buf

	case *gfx.CreateIndexBufferCommand:
		buf, err := b.createBuffer("gfx index buffer", indexUsage(c.Flags), uint64(c.Data.Size()), c.Data.Data())
		if err != nil {
			return err
		}
		buf.index32 = c.Flags&gfx.BufferIndex32 != 0
		b.indexBuffers[c.Handle.Handle] = buf

	case *gfx.CreateDynamicVertexBufferCommand:
		buf, err := b.createBuffer("gfx dynamic vertex buffer", vertexUsage(c.Flags)|wgpu.BufferUsageCopySrc, uint64(c.Size), nil)
		if err != nil {
			return err
		}
		buf.layout = c.Layout
		b.dynamicVertexBuffers[c.Handle.Handle] = buf

	case *gfx.UpdateDynamicVertexBufferCommand:
		buf, ok := b.dynamicVertexBuffers[c.Handle.Handle]
		if !ok {
			return fmt.Errorf("%w: dynamic vertex buffer %#x", errUnknownHandle, uint32(c.Handle.Handle))
		}
		return b.updateBuffer(buf, c.Offset, c.Size, c.Data.Data())

	case *gfx.CreateDynamicIndexBufferCommand:
		buf, err := b.createBuffer("gfx dynamic index buffer", indexUsage(c.Flags)|wgpu.BufferUsageCopySrc, uint64(c.Size), nil)
		if err != nil {
			return err
		}
		buf.index32 = c.Flags&gfx.BufferIndex32 != 0
		b.dynamicIndexBuffers[c.Handle.Handle] = buf

	case *gfx.UpdateDynamicIndexBufferCommand:
		buf, ok := b.dynamicIndexBuffers[c.Handle.Handle]
		if !ok {
			return fmt.Errorf("%w: dynamic index buffer %#x", errUnknownHandle, uint32(c.Handle.Handle))
		}
		return b.updateBuffer(buf, c.Offset, c.Size, c.Data.Data())

	case *gfx.CreateShaderCommand:
		return b.createShader(c)

	case *gfx.CreateProgramCommand:
		return b.createProgram(c)

	case *gfx.CreateUniformCommand:
		// Uniform values travel with each draw and are matched to block members by
		// name; the backend keeps no per-uniform object.

	case *gfx.CreateTextureCommand:
		return b.createTexture(c)

	case *gfx.UpdateTextureCommand:
		t, ok := b.textures[c.Handle.Handle]
		if !ok {
			return fmt.Errorf("%w: texture %#x", errUnknownHandle, uint32(c.Handle.Handle))
		}
		return b.writeTexture(t, uint32(c.Mip), uint32(c.Layer), uint32(c.X), uint32(c.Y),
			uint32(c.Width), uint32(c.Height), c.Pitch, c.Data.Data())

	case *gfx.CreateFrameBufferCommand:
		return b.createFrameBuffer(c)

	case *gfx.DestroyCommand:
		b.destroy(c.Kind, c.Handle)

	default:
		return fmt.Errorf("wgpu: unsupported command %T", cmd)
	}
	return nil
}

func vertexUsage(flags gfx.BufferFlags) wgpu.BufferUsage {
	return wgpu.BufferUsageVertex | computeUsage(flags)
}

func indexUsage(flags gfx.BufferFlags) wgpu.BufferUsage {
	return wgpu.BufferUsageIndex | computeUsage(flags)
}

func computeUsage(flags gfx.BufferFlags) wgpu.BufferUsage {
	var u wgpu.BufferUsage
	if flags&gfx.BufferComputeReadWrite != 0 {
		u |= wgpu.BufferUsageStorage
	}
	if flags&gfx.BufferDrawIndirect != 0 {
		u |= wgpu.BufferUsageIndirect
	}
	return u
}

// createBuffer creates a buffer of at least size bytes and uploads data to its start.
func (b *wgpuBackend) createBuffer(label string, usage wgpu.BufferUsage, size uint64, data []byte) (*buffer, error) {
	size = alignTo(max(size, uint64(len(data)), 4), 4)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Usage: usage | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	if len(data) > 0 {
		if err := b.queue.WriteBuffer(buf, 0, padded(data)); err != nil {
			buf.Release()
			return nil, fmt.Errorf("wgpu: upload %s: %w", label, err)
		}
	}
	return &buffer{buf: buf, size: size, usage: usage}, nil
}

// updateBuffer writes data at offset, first moving the contents into a larger buffer
// when size grew past the current allocation.
func (b *wgpuBackend) updateBuffer(buf *buffer, offset, size uint32, data []byte) error {
	if need := alignTo(uint64(size), 4); need > buf.size {
		grown, err := b.createBuffer("gfx dynamic buffer", buf.usage, need, nil)
		if err != nil {
			return err
		}
		if err := b.copyBuffer(buf.buf, grown.buf, buf.size); err != nil {
			grown.release()
			return err
		}
		buf.release()
		buf.buf, buf.size = grown.buf, grown.size
	}
	if len(data) == 0 {
		return nil
	}
	return b.queue.WriteBuffer(buf.buf, uint64(offset), padded(data))
}

func (b *wgpuBackend) copyBuffer(src, dst *wgpu.Buffer, size uint64) error {
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	if err := encoder.CopyBufferToBuffer(src, 0, dst, 0, size); err != nil {
		return err
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmd.Release()
	b.queue.Submit(cmd)
	return nil
}

func (b *wgpuBackend) createShader(c *gfx.CreateShaderCommand) error {
	source := shader.StripNul(c.Code)
	refl, err := shader.Reflect(source)
	if err != nil {
		return fmt.Errorf("wgpu: shader %#x: %w", uint32(c.Handle.Handle), err)
	}
	if len(refl.EntryPoints) == 0 {
		return fmt.Errorf("wgpu: shader %#x: %w", uint32(c.Handle.Handle), shader.ErrNoEntryPoint)
	}
	for _, issue := range refl.Issues {
		gfx.Logger().Warn("wgpu: shader validation", "handle", c.Handle.Handle, "issue", issue)
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          fmt.Sprintf("gfx shader %#x", uint32(c.Handle.Handle)),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create shader module: %w", err)
	}
	b.shaders[c.Handle.Handle] = &shaderModule{module: module, refl: refl}
	return nil
}

func (b *wgpuBackend) createProgram(c *gfx.CreateProgramCommand) error {
	p := &program{handle: c.Handle}
	lookup := func(h gfx.ShaderHandle, stage shader.ShaderType) (*shaderModule, error) {
		m, ok := b.shaders[h.Handle]
		if !ok {
			return nil, fmt.Errorf("%w: shader %#x", errUnknownHandle, uint32(h.Handle))
		}
		if !m.refl.Has(stage) {
			return nil, fmt.Errorf("shader %#x: %w for stage %s", uint32(h.Handle), shader.ErrNoEntryPoint, stage)
		}
		return m, nil
	}

	var err error
	if c.Compute.IsValid() {
		p.compute, err = lookup(c.Compute, shader.ShaderTypeCompute)
	} else {
		p.vertex, err = lookup(c.Vertex, shader.ShaderTypeVertex)
		if err == nil {
			p.fragment, err = lookup(c.Fragment, shader.ShaderTypeFragment)
		}
	}
	if err == nil {
		err = linkProgram(b.device, p)
	}
	if err != nil {
		p.release()
		return fmt.Errorf("wgpu: program %#x: %w", uint32(c.Handle.Handle), err)
	}
	b.programs[c.Handle.Handle] = p
	return nil
}

func textureUsage(flags gfx.TextureFlags, depth bool) wgpu.TextureUsage {
	usage := wgpu.TextureUsageTextureBinding
	if !depth {
		usage |= wgpu.TextureUsageCopyDst
	}
	if flags&(gfx.TextureRT|gfx.TextureRTWriteOnly) != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if flags&gfx.TextureComputeWrite != 0 {
		usage |= wgpu.TextureUsageStorageBinding
	}
	if flags&gfx.TextureReadBack != 0 {
		usage |= wgpu.TextureUsageCopySrc
	}
	return usage
}

func (b *wgpuBackend) createTexture(c *gfx.CreateTextureCommand) error {
	info := c.Info
	depth := info.Format.IsDepth()
	format := textureFormat(info.Format, depth, c.Flags&gfx.TextureSRGB != 0)
	layers := uint32(max(info.NumLayers, 1))
	if info.CubeMap {
		layers *= 6
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: fmt.Sprintf("gfx texture %#x", uint32(c.Handle.Handle)),
		Usage: textureUsage(c.Flags, depth),
		Size: wgpu.Extent3D{
			Width:              uint32(info.Width),
			Height:             uint32(info.Height),
			DepthOrArrayLayers: layers,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		MipLevelCount: uint32(max(info.NumMips, 1)),
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create texture: %w", err)
	}

	dim := wgpu.TextureViewDimension2D
	switch {
	case info.CubeMap && layers > 6:
		dim = wgpu.TextureViewDimensionCubeArray
	case info.CubeMap:
		dim = wgpu.TextureViewDimensionCube
	case layers > 1:
		dim = wgpu.TextureViewDimension2DArray
	}
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Format:          format,
		Dimension:       dim,
		BaseMipLevel:    0,
		MipLevelCount:   uint32(max(info.NumMips, 1)),
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return fmt.Errorf("wgpu: create texture view: %w", err)
	}

	t := &texture{tex: tex, view: view, format: format, info: info, flags: c.Flags}
	b.textures[c.Handle.Handle] = t

	if data := c.Data.Data(); len(data) > 0 && !depth {
		return b.uploadMipChain(t, layers, data)
	}
	return nil
}

// uploadMipChain writes initial contents stored layer by layer, each layer holding its
// mips from largest to smallest.
func (b *wgpuBackend) uploadMipChain(t *texture, layers uint32, data []byte) error {
	bpp := uint32(t.info.BitsPerPixel)
	var off uint32
	for layer := range layers {
		w, h := uint32(t.info.Width), uint32(t.info.Height)
		for mip := range uint32(max(t.info.NumMips, 1)) {
			pitch := w * bpp / 8
			size := pitch * h
			if off+size > uint32(len(data)) {
				return fmt.Errorf("wgpu: texture data ends at layer %d mip %d", layer, mip)
			}
			if err := b.writeTexture(t, mip, layer, 0, 0, w, h, pitch, data[off:off+size]); err != nil {
				return err
			}
			off += size
			w, h = max(w>>1, 1), max(h>>1, 1)
		}
	}
	return nil
}

func (b *wgpuBackend) writeTexture(t *texture, mip, layer, x, y, width, height, pitch uint32, data []byte) error {
	if pitch == 0 {
		pitch = width * uint32(t.info.BitsPerPixel) / 8
	}
	return b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: mip,
			Origin:   wgpu.Origin3D{X: x, Y: y, Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  pitch,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
}

func (b *wgpuBackend) createFrameBuffer(c *gfx.CreateFrameBufferCommand) error {
	if c.Window != nil {
		provider, ok := c.Window.(surfaceProvider)
		if !ok {
			return fmt.Errorf("wgpu: window handle %T does not provide a surface descriptor", c.Window)
		}
		srgb := b.resolution.Reset&gfx.ResetSRGBBackbuffer != 0
		sc := &swapChain{
			surface:     b.instance.CreateSurface(provider.SurfaceDescriptor()),
			format:      textureFormat(c.Format, false, srgb),
			depthFormat: textureFormat(c.DepthFormat, true, false),
			samples:     b.resolution.Reset.MSAASamples(),
			vsync:       b.resolution.Reset&gfx.ResetVSync != 0,
		}
		if err := sc.configure(b.adapter, b.device, c.Width, c.Height); err != nil {
			sc.release()
			return err
		}
		b.frameBuffers[c.Handle.Handle] = &frameBuffer{swap: sc, width: sc.width, height: sc.height}
		return nil
	}

	fb := &frameBuffer{width: c.Width, height: c.Height}
	fb.key.samples = 1
	for _, a := range c.Attachments {
		t, ok := b.textures[a.Texture.Handle]
		if !ok {
			fb.release()
			return fmt.Errorf("%w: attachment texture %#x", errUnknownHandle, uint32(a.Texture.Handle))
		}
		view, err := t.tex.CreateView(&wgpu.TextureViewDescriptor{
			Format:          t.format,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    uint32(a.Mip),
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(a.Layer),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			fb.release()
			return fmt.Errorf("wgpu: frame buffer attachment view: %w", err)
		}
		if isDepthFormat(t.format) {
			if fb.depth != nil {
				fb.depth.Release()
			}
			fb.depth, fb.key.depth = view, t.format
			continue
		}
		fb.key.colors[fb.key.numColors] = t.format
		fb.key.numColors++
		fb.colors = append(fb.colors, view)
	}
	b.frameBuffers[c.Handle.Handle] = fb
	return nil
}

// destroy releases the object behind h. Unknown handles are ignored; their creation
// already failed and was reported.
func (b *wgpuBackend) destroy(kind gfx.ResourceKind, h gfx.Handle) {
	switch kind {
	case gfx.ResourceVertexBuffer:
		releaseFrom(b.vertexBuffers, h)
	case gfx.ResourceIndexBuffer:
		releaseFrom(b.indexBuffers, h)
	case gfx.ResourceDynamicVertexBuffer:
		releaseFrom(b.dynamicVertexBuffers, h)
	case gfx.ResourceDynamicIndexBuffer:
		releaseFrom(b.dynamicIndexBuffers, h)
	case gfx.ResourceShader:
		if m, ok := b.shaders[h]; ok {
			m.module.Release()
			delete(b.shaders, h)
		}
	case gfx.ResourceProgram:
		releaseFrom(b.programs, h)
	case gfx.ResourceTexture:
		releaseFrom(b.textures, h)
	case gfx.ResourceFrameBuffer:
		releaseFrom(b.frameBuffers, h)
	}
}

type releaser interface{ release() }

func releaseFrom[T releaser](m map[gfx.Handle]T, h gfx.Handle) {
	if v, ok := m[h]; ok {
		v.release()
		delete(m, h)
	}
}
