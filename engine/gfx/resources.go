package gfx

import (
	"bytes"
	"math"
)

type vertexBufferRecord struct {
	layout *VertexLayout
	size   uint32
	flags  BufferFlags
}

type indexBufferRecord struct {
	size    uint32
	index32 bool
}

type dynamicBufferRecord struct {
	layout *VertexLayout
	size   uint32
	flags  BufferFlags
}

type shaderRecord struct {
	refs  int
	owned bool
	size  int
}

type programKey struct {
	vsh, fsh, csh Handle
}

type programRecord struct {
	key  programKey
	refs int
}

type uniformRecord struct {
	info UniformInfo
	refs int
}

type textureRecord struct {
	info  TextureInfo
	flags TextureFlags
	refs  int
	owned bool
}

type frameBufferRecord struct {
	attachments     []Attachment
	destroyTextures bool
	window          any
	width, height   uint32
}

// retire releases h in t and schedules the backend object for destruction after the
// current frame renders. The slot index is recycled once that frame completes.
func retire[T any](c *renderContext, kind ResourceKind, t *handleTable[T], h Handle) bool {
	if !t.release(h) {
		return false
	}
	c.recordPost(&DestroyCommand{Kind: kind, Handle: h}, retiredSlot{table: t, index: h.Index()})
	return true
}

// reject consumes mem without handing it to the backend.
func reject(mem *Memory, msg string, args ...any) {
	mem.finish()
	Logger().Warn("gfx: "+msg, args...)
}

func (c *renderContext) CreateVertexBuffer(mem *Memory, layout *VertexLayout, flags BufferFlags) VertexBufferHandle {
	if c.closed.Load() {
		reject(mem, "create vertex buffer after shutdown")
		return VertexBufferHandle{}
	}
	if mem.Size() == 0 {
		reject(mem, "create vertex buffer with empty memory")
		return VertexBufferHandle{}
	}
	if layout == nil || !layout.IsFinalized() || layout.Stride() == 0 {
		reject(mem, "create vertex buffer with unfinalized layout")
		return VertexBufferHandle{}
	}

	l := layout.clone()
	h := c.vertexBuffers.alloc(vertexBufferRecord{layout: l, size: mem.Size(), flags: flags})
	if !h.IsValid() {
		reject(mem, "vertex buffer limit reached", "max", c.init.Limits.MaxVertexBuffers)
		return VertexBufferHandle{}
	}
	vbh := VertexBufferHandle{h}
	c.recordPre(&CreateVertexBufferCommand{Handle: vbh, Layout: l, Data: mem, Flags: flags}, mem)
	return vbh
}

func (c *renderContext) DestroyVertexBuffer(h VertexBufferHandle) {
	if !retire(c, ResourceVertexBuffer, c.vertexBuffers, h.Handle) {
		Logger().Warn("gfx: destroy of invalid vertex buffer", "handle", h.Handle)
	}
}

func (c *renderContext) CreateIndexBuffer(mem *Memory, flags BufferFlags) IndexBufferHandle {
	if c.closed.Load() {
		reject(mem, "create index buffer after shutdown")
		return IndexBufferHandle{}
	}
	index32 := flags&BufferIndex32 != 0
	if mem.Size() == 0 || mem.Size()%indexSize(index32) != 0 {
		reject(mem, "create index buffer with empty or misaligned memory", "size", mem.Size())
		return IndexBufferHandle{}
	}

	h := c.indexBuffers.alloc(indexBufferRecord{size: mem.Size(), index32: index32})
	if !h.IsValid() {
		reject(mem, "index buffer limit reached", "max", c.init.Limits.MaxIndexBuffers)
		return IndexBufferHandle{}
	}
	ibh := IndexBufferHandle{h}
	c.recordPre(&CreateIndexBufferCommand{Handle: ibh, Data: mem, Flags: flags}, mem)
	return ibh
}

func (c *renderContext) DestroyIndexBuffer(h IndexBufferHandle) {
	if !retire(c, ResourceIndexBuffer, c.indexBuffers, h.Handle) {
		Logger().Warn("gfx: destroy of invalid index buffer", "handle", h.Handle)
	}
}

func indexSize(index32 bool) uint32 {
	if index32 {
		return 4
	}
	return 2
}

func (c *renderContext) CreateDynamicVertexBuffer(num uint32, layout *VertexLayout, flags BufferFlags) DynamicVertexBufferHandle {
	if c.closed.Load() || num == 0 || layout == nil || !layout.IsFinalized() || layout.Stride() == 0 {
		Logger().Warn("gfx: invalid dynamic vertex buffer request", "num", num)
		return DynamicVertexBufferHandle{}
	}
	l := layout.clone()
	size, ok := byteSize(num, uint32(l.Stride()))
	if !ok {
		Logger().Warn("gfx: dynamic vertex buffer too large", "num", num, "stride", l.Stride())
		return DynamicVertexBufferHandle{}
	}
	h := c.dynamicVertexBuffers.alloc(dynamicBufferRecord{layout: l, size: size, flags: flags})
	if !h.IsValid() {
		Logger().Warn("gfx: dynamic buffer limit reached", "max", c.init.Limits.MaxDynamicBuffers)
		return DynamicVertexBufferHandle{}
	}
	dvh := DynamicVertexBufferHandle{h}
	c.recordPre(&CreateDynamicVertexBufferCommand{Handle: dvh, Layout: l, Size: size, Flags: flags}, nil)
	return dvh
}

func (c *renderContext) UpdateDynamicVertexBuffer(h DynamicVertexBufferHandle, startVertex uint32, mem *Memory) {
	var (
		offset, size uint32
		ok           bool
	)
	c.dynamicVertexBuffers.update(h.Handle, func(r *dynamicBufferRecord) {
		if offset, ok = byteSize(startVertex, uint32(r.layout.Stride())); ok {
			offset, size, ok = growDynamic(r, offset, mem.Size())
		}
	})
	if !ok {
		reject(mem, "update of invalid or too small dynamic vertex buffer", "handle", h.Handle)
		return
	}
	c.recordPre(&UpdateDynamicVertexBufferCommand{Handle: h, Offset: offset, Size: size, Data: mem}, mem)
}

func (c *renderContext) DestroyDynamicVertexBuffer(h DynamicVertexBufferHandle) {
	if !retire(c, ResourceDynamicVertexBuffer, c.dynamicVertexBuffers, h.Handle) {
		Logger().Warn("gfx: destroy of invalid dynamic vertex buffer", "handle", h.Handle)
	}
}

func (c *renderContext) CreateDynamicIndexBuffer(num uint32, flags BufferFlags) DynamicIndexBufferHandle {
	if c.closed.Load() || num == 0 {
		Logger().Warn("gfx: invalid dynamic index buffer request", "num", num)
		return DynamicIndexBufferHandle{}
	}
	size, ok := byteSize(num, indexSize(flags&BufferIndex32 != 0))
	if !ok {
		Logger().Warn("gfx: dynamic index buffer too large", "num", num)
		return DynamicIndexBufferHandle{}
	}
	h := c.dynamicIndexBuffers.alloc(dynamicBufferRecord{size: size, flags: flags})
	if !h.IsValid() {
		Logger().Warn("gfx: dynamic buffer limit reached", "max", c.init.Limits.MaxDynamicBuffers)
		return DynamicIndexBufferHandle{}
	}
	dih := DynamicIndexBufferHandle{h}
	c.recordPre(&CreateDynamicIndexBufferCommand{Handle: dih, Size: size, Flags: flags}, nil)
	return dih
}

func (c *renderContext) UpdateDynamicIndexBuffer(h DynamicIndexBufferHandle, startIndex uint32, mem *Memory) {
	var (
		offset, size uint32
		ok           bool
	)
	c.dynamicIndexBuffers.update(h.Handle, func(r *dynamicBufferRecord) {
		if offset, ok = byteSize(startIndex, indexSize(r.flags&BufferIndex32 != 0)); ok {
			offset, size, ok = growDynamic(r, offset, mem.Size())
		}
	})
	if !ok {
		reject(mem, "update of invalid or too small dynamic index buffer", "handle", h.Handle)
		return
	}
	c.recordPre(&UpdateDynamicIndexBufferCommand{Handle: h, Offset: offset, Size: size, Data: mem}, mem)
}

func (c *renderContext) DestroyDynamicIndexBuffer(h DynamicIndexBufferHandle) {
	if !retire(c, ResourceDynamicIndexBuffer, c.dynamicIndexBuffers, h.Handle) {
		Logger().Warn("gfx: destroy of invalid dynamic index buffer", "handle", h.Handle)
	}
}

// growDynamic checks that a write of n bytes at offset fits the buffer, growing it
// when the buffer allows resizing.
func growDynamic(r *dynamicBufferRecord, offset, n uint32) (uint32, uint32, bool) {
	if n == 0 {
		return 0, 0, false
	}
	end := uint64(offset) + uint64(n)
	if end > math.MaxUint32 {
		return 0, 0, false
	}
	if uint32(end) > r.size {
		if r.flags&BufferAllowResize == 0 {
			return 0, 0, false
		}
		r.size = uint32(end)
	}
	return offset, r.size, true
}

// byteSize returns count elements of elem bytes in bytes, or false when the size does
// not fit a buffer.
func byteSize(count, elem uint32) (uint32, bool) {
	n := uint64(count) * uint64(elem)
	if n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

func (c *renderContext) CreateShader(mem *Memory) ShaderHandle {
	if c.closed.Load() {
		reject(mem, "create shader after shutdown")
		return ShaderHandle{}
	}
	code := bytes.TrimSuffix(mem.Data(), []byte{0})
	if len(code) == 0 {
		reject(mem, "create shader with empty code")
		return ShaderHandle{}
	}

	h := c.shaders.alloc(shaderRecord{refs: 1, owned: true, size: len(code)})
	if !h.IsValid() {
		reject(mem, "shader limit reached", "max", c.init.Limits.MaxShaders)
		return ShaderHandle{}
	}
	sh := ShaderHandle{h}
	c.recordPre(&CreateShaderCommand{Handle: sh, Code: code}, mem)
	return sh
}

func (c *renderContext) DestroyShader(h ShaderHandle) {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	owned := false
	c.shaders.update(h.Handle, func(r *shaderRecord) {
		owned = r.owned
		r.owned = false
	})
	if !owned {
		Logger().Warn("gfx: destroy of invalid shader", "handle", h.Handle)
		return
	}
	c.releaseShader(h)
}

// releaseShader drops one reference and destroys the shader when none remain.
// Callers hold resMu.
func (c *renderContext) releaseShader(h ShaderHandle) {
	refs := -1
	c.shaders.update(h.Handle, func(r *shaderRecord) {
		r.refs--
		refs = r.refs
	})
	if refs == 0 {
		retire(c, ResourceShader, c.shaders, h.Handle)
	}
}

func (c *renderContext) CreateProgram(vsh, fsh ShaderHandle, destroyShaders bool) ProgramHandle {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	var ph ProgramHandle
	if !c.closed.Load() && c.shaders.alive(vsh.Handle) && c.shaders.alive(fsh.Handle) {
		ph = c.linkProgram(programKey{vsh: vsh.Handle, fsh: fsh.Handle}, func(h ProgramHandle) Command {
			return &CreateProgramCommand{Handle: h, Vertex: vsh, Fragment: fsh}
		})
	} else {
		Logger().Warn("gfx: create program with invalid shaders", "vsh", vsh.Handle, "fsh", fsh.Handle)
	}

	if destroyShaders {
		c.dropOwnership(vsh)
		c.dropOwnership(fsh)
	}
	return ph
}

func (c *renderContext) CreateComputeProgram(csh ShaderHandle, destroyShader bool) ProgramHandle {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	var ph ProgramHandle
	switch {
	case !c.caps.Has(CapsCompute):
		Logger().Warn("gfx: compute is not supported by the backend", "renderer", c.caps.RendererType.String())
	case c.closed.Load() || !c.shaders.alive(csh.Handle):
		Logger().Warn("gfx: create compute program with invalid shader", "csh", csh.Handle)
	default:
		ph = c.linkProgram(programKey{csh: csh.Handle}, func(h ProgramHandle) Command {
			return &CreateProgramCommand{Handle: h, Compute: csh}
		})
	}

	if destroyShader {
		c.dropOwnership(csh)
	}
	return ph
}

// linkProgram returns the existing program for key with one more reference, or
// creates it. Callers hold resMu.
func (c *renderContext) linkProgram(key programKey, create func(ProgramHandle) Command) ProgramHandle {
	if existing, ok := c.programKeys[key]; ok {
		if c.programs.update(existing.Handle, func(r *programRecord) { r.refs++ }) {
			return existing
		}
		delete(c.programKeys, key)
	}

	h := c.programs.alloc(programRecord{key: key, refs: 1})
	if !h.IsValid() {
		Logger().Warn("gfx: program limit reached", "max", c.init.Limits.MaxPrograms)
		return ProgramHandle{}
	}
	ph := ProgramHandle{h}
	c.programKeys[key] = ph
	for _, sh := range []Handle{key.vsh, key.fsh, key.csh} {
		if sh.IsValid() {
			c.shaders.update(sh, func(r *shaderRecord) { r.refs++ })
		}
	}
	c.recordPre(create(ph), nil)
	return ph
}

// dropOwnership releases the caller's reference to a shader so that the programs
// using it decide its lifetime. Callers hold resMu.
func (c *renderContext) dropOwnership(h ShaderHandle) {
	owned := false
	c.shaders.update(h.Handle, func(r *shaderRecord) {
		owned = r.owned
		r.owned = false
	})
	if owned {
		c.releaseShader(h)
	}
}

func (c *renderContext) DestroyProgram(h ProgramHandle) {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	var rec programRecord
	if !c.programs.update(h.Handle, func(r *programRecord) {
		r.refs--
		rec = *r
	}) {
		Logger().Warn("gfx: destroy of invalid program", "handle", h.Handle)
		return
	}
	if rec.refs > 0 {
		return
	}

	delete(c.programKeys, rec.key)
	retire(c, ResourceProgram, c.programs, h.Handle)
	for _, sh := range []Handle{rec.key.vsh, rec.key.fsh, rec.key.csh} {
		if sh.IsValid() {
			c.releaseShader(ShaderHandle{sh})
		}
	}
}

func (c *renderContext) CreateUniform(name string, typ UniformType, num uint16) UniformHandle {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	if c.closed.Load() || name == "" || typ.Floats() == 0 {
		Logger().Warn("gfx: invalid uniform request", "name", name, "type", typ.String())
		return UniformHandle{}
	}
	num = max(num, 1)

	if existing, ok := c.uniformNames[name]; ok {
		var (
			found bool
			info  UniformInfo
		)
		c.uniforms.update(existing.Handle, func(r *uniformRecord) {
			info = r.info
			if r.info.Type != typ {
				return
			}
			found = true
			r.refs++
			r.info.Num = max(r.info.Num, num)
		})
		if !found {
			Logger().Warn("gfx: uniform redeclared with a different type",
				"name", name, "type", typ.String(), "existing", info.Type.String())
			return UniformHandle{}
		}
		return existing
	}

	info := UniformInfo{Name: name, Type: typ, Num: num}
	h := c.uniforms.alloc(uniformRecord{info: info, refs: 1})
	if !h.IsValid() {
		Logger().Warn("gfx: uniform limit reached", "max", c.init.Limits.MaxUniforms)
		return UniformHandle{}
	}
	uh := UniformHandle{h}
	c.uniformNames[name] = uh
	c.recordPre(&CreateUniformCommand{Handle: uh, Info: info}, nil)
	return uh
}

func (c *renderContext) DestroyUniform(h UniformHandle) {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	var rec uniformRecord
	if !c.uniforms.update(h.Handle, func(r *uniformRecord) {
		r.refs--
		rec = *r
	}) {
		Logger().Warn("gfx: destroy of invalid uniform", "handle", h.Handle)
		return
	}
	if rec.refs > 0 {
		return
	}
	delete(c.uniformNames, rec.info.Name)
	retire(c, ResourceUniform, c.uniforms, h.Handle)
}

func (c *renderContext) GetUniformInfo(h UniformHandle) (UniformInfo, bool) {
	r, ok := c.uniforms.get(h.Handle)
	return r.info, ok
}

func (c *renderContext) CalcTextureSize(width, height uint16, hasMips bool, numLayers uint16, format TextureFormat) TextureInfo {
	return CalcTextureSize(width, height, 1, false, hasMips, numLayers, format)
}

func (c *renderContext) CreateTexture2D(width, height uint16, hasMips bool, numLayers uint16, format TextureFormat, flags TextureFlags, mem *Memory) TextureHandle {
	if c.closed.Load() || width == 0 || height == 0 {
		reject(mem, "invalid texture request", "width", width, "height", height)
		return TextureHandle{}
	}
	depth := format.IsDepth()
	format = format.resolve(false)
	usage := FormatSupport2D
	if flags&TextureRT != 0 {
		usage = FormatSupportFrameBuffer
	}
	if !c.caps.SupportsFormat(format, usage) {
		reject(mem, "texture format not supported by the backend", "format", format.String(), "rt", flags&TextureRT != 0)
		return TextureHandle{}
	}
	if depth && flags&TextureRT == 0 {
		reject(mem, "depth texture must be a render target", "format", format.String())
		return TextureHandle{}
	}

	info := CalcTextureSize(width, height, 1, false, hasMips, numLayers, format)
	if mem != nil && mem.Size() != info.StorageSize {
		reject(mem, "texture memory size mismatch", "got", mem.Size(), "want", info.StorageSize)
		return TextureHandle{}
	}

	h := c.textures.alloc(textureRecord{info: info, flags: flags, refs: 1, owned: true})
	if !h.IsValid() {
		reject(mem, "texture limit reached", "max", c.init.Limits.MaxTextures)
		return TextureHandle{}
	}
	th := TextureHandle{h}
	c.recordPre(&CreateTextureCommand{Handle: th, Info: info, Flags: flags, Data: mem}, mem)
	return th
}

func (c *renderContext) UpdateTexture2D(h TextureHandle, layer uint16, mip uint8, x, y, width, height uint16, mem *Memory, pitch uint32) {
	rec, ok := c.textures.get(h.Handle)
	if !ok {
		reject(mem, "update of invalid texture", "handle", h.Handle)
		return
	}
	info := rec.info
	mw := max(uint32(info.Width)>>mip, 1)
	mh := max(uint32(info.Height)>>mip, 1)
	switch {
	case mip >= info.NumMips || layer >= info.NumLayers:
		reject(mem, "texture update outside mip chain", "mip", mip, "layer", layer)
		return
	case uint32(x)+uint32(width) > mw || uint32(y)+uint32(height) > mh || width == 0 || height == 0:
		reject(mem, "texture update rectangle out of bounds", "x", x, "y", y, "width", width, "height", height)
		return
	}
	if pitch == 0 {
		pitch = uint32(width) * uint32(info.BitsPerPixel) / 8
	}
	if mem.Size() < pitch*uint32(height) {
		reject(mem, "texture update memory too small", "got", mem.Size(), "want", pitch*uint32(height))
		return
	}
	c.recordPre(&UpdateTextureCommand{
		Handle: h, Layer: layer, Mip: mip,
		X: x, Y: y, Width: width, Height: height,
		Pitch: pitch, Data: mem,
	}, mem)
}

func (c *renderContext) IsTextureValid(depth uint16, cubeMap bool, numLayers uint16, format TextureFormat, flags TextureFlags) bool {
	if depth > 1 || cubeMap {
		return false
	}
	if numLayers > 1 && !c.caps.Has(CapsTexture2DArray) {
		return false
	}
	usage := FormatSupport2D
	if flags&TextureRT != 0 {
		usage = FormatSupportFrameBuffer
	}
	return c.caps.SupportsFormat(format.resolve(format.IsDepth()), usage)
}

func (c *renderContext) TextureInfo(h TextureHandle) (TextureInfo, bool) {
	r, ok := c.textures.get(h.Handle)
	return r.info, ok
}

func (c *renderContext) DestroyTexture(h TextureHandle) {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	owned := false
	c.textures.update(h.Handle, func(r *textureRecord) {
		owned = r.owned
		r.owned = false
	})
	if !owned {
		Logger().Warn("gfx: destroy of invalid texture", "handle", h.Handle)
		return
	}
	c.releaseTexture(h)
}

// releaseTexture drops one reference and destroys the texture when none remain.
// Callers hold resMu.
func (c *renderContext) releaseTexture(h TextureHandle) {
	refs := -1
	c.textures.update(h.Handle, func(r *textureRecord) {
		r.refs--
		refs = r.refs
	})
	if refs == 0 {
		retire(c, ResourceTexture, c.textures, h.Handle)
	}
}

func (c *renderContext) CreateFrameBuffer(width, height uint16, format TextureFormat, flags TextureFlags) FrameBufferHandle {
	th := c.CreateTexture2D(width, height, false, 1, format, flags|TextureRT, nil)
	if !th.IsValid() {
		return FrameBufferHandle{}
	}
	return c.CreateFrameBufferFromTextures([]TextureHandle{th}, true)
}

func (c *renderContext) CreateFrameBufferFromTextures(textures []TextureHandle, destroyTextures bool) FrameBufferHandle {
	attachments := make([]Attachment, len(textures))
	for i, th := range textures {
		attachments[i] = Attachment{Texture: th}
	}
	return c.CreateFrameBufferFromAttachments(attachments, destroyTextures)
}

func (c *renderContext) CreateFrameBufferFromAttachments(attachments []Attachment, destroyTextures bool) FrameBufferHandle {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	if c.closed.Load() || len(attachments) == 0 || len(attachments) > MaxFrameBufferAttachments {
		Logger().Warn("gfx: invalid frame buffer attachment count", "count", len(attachments))
		return FrameBufferHandle{}
	}

	var width, height uint32
	for i, a := range attachments {
		rec, ok := c.textures.get(a.Texture.Handle)
		if !ok || rec.flags&TextureRT == 0 {
			Logger().Warn("gfx: frame buffer attachment is not a live render target", "index", i)
			return FrameBufferHandle{}
		}
		w := max(uint32(rec.info.Width)>>a.Mip, 1)
		h := max(uint32(rec.info.Height)>>a.Mip, 1)
		if i == 0 {
			width, height = w, h
		} else if w != width || h != height {
			Logger().Warn("gfx: frame buffer attachments differ in size", "index", i)
			return FrameBufferHandle{}
		}
	}

	atts := append([]Attachment(nil), attachments...)
	h := c.frameBuffers.alloc(frameBufferRecord{
		attachments:     atts,
		destroyTextures: destroyTextures,
		width:           width,
		height:          height,
	})
	if !h.IsValid() {
		Logger().Warn("gfx: frame buffer limit reached", "max", c.init.Limits.MaxFrameBuffers)
		return FrameBufferHandle{}
	}
	for _, a := range atts {
		c.textures.update(a.Texture.Handle, func(r *textureRecord) { r.refs++ })
	}

	fbh := FrameBufferHandle{h}
	c.recordPre(&CreateFrameBufferCommand{Handle: fbh, Attachments: atts, Width: width, Height: height}, nil)
	return fbh
}

func (c *renderContext) CreateFrameBufferFromWindow(nwh any, width, height uint32, format, depthFormat TextureFormat) FrameBufferHandle {
	if c.closed.Load() || nwh == nil || width == 0 || height == 0 {
		Logger().Warn("gfx: invalid window frame buffer request", "width", width, "height", height)
		return FrameBufferHandle{}
	}
	if !c.caps.Has(CapsSwapChain) {
		Logger().Warn("gfx: backend does not support extra swap chains", "renderer", c.caps.RendererType.String())
		return FrameBufferHandle{}
	}

	h := c.frameBuffers.alloc(frameBufferRecord{window: nwh, width: width, height: height})
	if !h.IsValid() {
		Logger().Warn("gfx: frame buffer limit reached", "max", c.init.Limits.MaxFrameBuffers)
		return FrameBufferHandle{}
	}
	fbh := FrameBufferHandle{h}
	c.recordPre(&CreateFrameBufferCommand{
		Handle:      fbh,
		Window:      nwh,
		Width:       width,
		Height:      height,
		Format:      format.resolve(false),
		DepthFormat: depthFormat.resolve(true),
	}, nil)
	return fbh
}

func (c *renderContext) GetTexture(fb FrameBufferHandle, attachment uint8) TextureHandle {
	rec, ok := c.frameBuffers.get(fb.Handle)
	if !ok || int(attachment) >= len(rec.attachments) {
		return TextureHandle{}
	}
	return rec.attachments[attachment].Texture
}

func (c *renderContext) DestroyFrameBuffer(fb FrameBufferHandle) {
	c.resMu.Lock()
	defer c.resMu.Unlock()

	rec, ok := c.frameBuffers.get(fb.Handle)
	if !ok || !retire(c, ResourceFrameBuffer, c.frameBuffers, fb.Handle) {
		Logger().Warn("gfx: destroy of invalid frame buffer", "handle", fb.Handle)
		return
	}
	c.views.detachFrameBuffer(fb)

	for _, a := range rec.attachments {
		c.releaseTexture(a.Texture)
		if rec.destroyTextures {
			owned := false
			c.textures.update(a.Texture.Handle, func(r *textureRecord) {
				owned = r.owned
				r.owned = false
			})
			if owned {
				c.releaseTexture(a.Texture)
			}
		}
	}
}
