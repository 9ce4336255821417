package gfx

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Context is a rendering context: the resource factory, the per-view state, the main
// encoder and the frame sequencer behind one explicit object. Create it with
// NewContext and end it with Shutdown. The Encoder methods act on the main encoder,
// which belongs to the goroutine that calls Frame.
type Context interface {
	Encoder

	// Frame ends the current frame and hands it to the backend.
	// In ThreadingSingle it returns after the backend rendered the frame. Otherwise it
	// returns immediately unless MaxFrameLatency frames are already waiting, in which
	// case it blocks until the render side catches up.
	// Frame waits for every encoder obtained from EncoderBegin to be ended.
	//
	// Parameters:
	//   - capture: ask the backend to capture the frame
	//
	// Returns:
	//   - uint32: number of the submitted frame, starting at 1
	//   - RenderFrameStatus: RenderFrameRender, or RenderFrameExiting after Shutdown
	Frame(capture bool) (uint32, RenderFrameStatus)

	// RenderFrame renders one queued frame on the calling goroutine. Only meaningful
	// with ThreadingManual.
	//
	// Parameters:
	//   - timeout: how long to wait for a frame; negative waits indefinitely, zero polls
	//
	// Returns:
	//   - RenderFrameStatus: the outcome of the call
	RenderFrame(timeout time.Duration) RenderFrameStatus

	// Reset changes the backbuffer. The change is applied with the next frame. Every
	// view is detached from its frame buffer and falls back to the backbuffer; callers
	// re-issue SetViewRect for the new size.
	//
	// Parameters:
	//   - width, height: new backbuffer size in pixels
	//   - flags: reset flags (vsync, MSAA, ...)
	//   - format: backbuffer color format, TextureFormatCount to keep the current one
	Reset(width, height uint32, flags ResetFlags, format TextureFormat)

	// Shutdown renders pending frames, shuts the backend down and makes every later call
	// a no-op. It is terminal.
	Shutdown()

	// EncoderBegin returns an encoder for recording draws of the current frame.
	// With forThread false the main encoder is returned. With forThread true a separate
	// encoder is returned for use by one other goroutine, or nil when MaxEncoders are
	// already in use.
	//
	// Parameters:
	//   - forThread: true when the encoder is used off the API goroutine
	//
	// Returns:
	//   - Encoder: the encoder, or nil
	EncoderBegin(forThread bool) Encoder

	// EncoderEnd returns an encoder obtained from EncoderBegin. Its draws join the
	// current frame.
	//
	// Parameters:
	//   - enc: the encoder to end
	EncoderEnd(enc Encoder)

	// CreateVertexBuffer creates a static vertex buffer.
	//
	// Parameters:
	//   - mem: vertex data
	//   - layout: finalized vertex layout
	//   - flags: buffer flags
	//
	// Returns:
	//   - VertexBufferHandle: the buffer, invalid on malformed input
	CreateVertexBuffer(mem *Memory, layout *VertexLayout, flags BufferFlags) VertexBufferHandle
	DestroyVertexBuffer(h VertexBufferHandle)

	// CreateIndexBuffer creates a static index buffer of 16-bit indices, or 32-bit with
	// BufferIndex32.
	//
	// Parameters:
	//   - mem: index data
	//   - flags: buffer flags
	//
	// Returns:
	//   - IndexBufferHandle: the buffer, invalid on malformed input
	CreateIndexBuffer(mem *Memory, flags BufferFlags) IndexBufferHandle
	DestroyIndexBuffer(h IndexBufferHandle)

	CreateDynamicVertexBuffer(num uint32, layout *VertexLayout, flags BufferFlags) DynamicVertexBufferHandle
	UpdateDynamicVertexBuffer(h DynamicVertexBufferHandle, startVertex uint32, mem *Memory)
	DestroyDynamicVertexBuffer(h DynamicVertexBufferHandle)
	CreateDynamicIndexBuffer(num uint32, flags BufferFlags) DynamicIndexBufferHandle
	UpdateDynamicIndexBuffer(h DynamicIndexBufferHandle, startIndex uint32, mem *Memory)
	DestroyDynamicIndexBuffer(h DynamicIndexBufferHandle)

	// AllocTransientVertexBuffer reserves scratch vertex memory for the current frame.
	//
	// Parameters:
	//   - num: vertex count
	//   - layout: finalized vertex layout
	//
	// Returns:
	//   - *TransientVertexBuffer: the buffer, or nil when the frame's scratch memory is exhausted
	AllocTransientVertexBuffer(num uint32, layout *VertexLayout) *TransientVertexBuffer
	AllocTransientIndexBuffer(num uint32, index32 bool) *TransientIndexBuffer
	AvailTransientVertexBuffer(num uint32, layout *VertexLayout) uint32
	AvailTransientIndexBuffer(num uint32, index32 bool) uint32

	// CreateShader creates a shader from backend-specific code. A trailing NUL
	// terminator, as appended by LoadShaderFile, is stripped.
	//
	// Parameters:
	//   - mem: shader code
	//
	// Returns:
	//   - ShaderHandle: the shader, invalid for empty code
	CreateShader(mem *Memory) ShaderHandle
	DestroyShader(h ShaderHandle)

	// CreateProgram links a vertex and fragment shader. Linking the same pair again
	// returns the same handle with one more reference.
	//
	// Parameters:
	//   - vsh: vertex shader
	//   - fsh: fragment shader
	//   - destroyShaders: hand shader ownership to the program
	//
	// Returns:
	//   - ProgramHandle: the program, invalid if a shader is invalid
	CreateProgram(vsh, fsh ShaderHandle, destroyShaders bool) ProgramHandle
	CreateComputeProgram(csh ShaderHandle, destroyShader bool) ProgramHandle
	DestroyProgram(h ProgramHandle)

	// CreateUniform declares a uniform. Declaring the same name again returns the same
	// handle with one more reference; a different type returns an invalid handle.
	//
	// Parameters:
	//   - name: uniform name as used by shaders
	//   - typ: element type
	//   - num: array length
	//
	// Returns:
	//   - UniformHandle: the uniform
	CreateUniform(name string, typ UniformType, num uint16) UniformHandle
	DestroyUniform(h UniformHandle)
	GetUniformInfo(h UniformHandle) (UniformInfo, bool)

	// CreateTexture2D creates a 2D texture.
	//
	// Parameters:
	//   - width, height: size in pixels
	//   - hasMips: allocate a full mip chain
	//   - numLayers: array layers, 1 for a plain texture
	//   - format: pixel format, must be supported by the backend
	//   - flags: texture and default sampler flags
	//   - mem: initial contents of exactly CalcTextureSize bytes, or nil
	//
	// Returns:
	//   - TextureHandle: the texture, invalid on malformed input
	CreateTexture2D(width, height uint16, hasMips bool, numLayers uint16, format TextureFormat, flags TextureFlags, mem *Memory) TextureHandle
	UpdateTexture2D(h TextureHandle, layer uint16, mip uint8, x, y, width, height uint16, mem *Memory, pitch uint32)
	DestroyTexture(h TextureHandle)
	IsTextureValid(depth uint16, cubeMap bool, numLayers uint16, format TextureFormat, flags TextureFlags) bool
	CalcTextureSize(width, height uint16, hasMips bool, numLayers uint16, format TextureFormat) TextureInfo
	TextureInfo(h TextureHandle) (TextureInfo, bool)

	// CreateFrameBuffer creates a frame buffer with one new render target texture that
	// is destroyed with the frame buffer.
	CreateFrameBuffer(width, height uint16, format TextureFormat, flags TextureFlags) FrameBufferHandle

	// CreateFrameBufferFromTextures creates a frame buffer over existing render target
	// textures. The frame buffer keeps the textures alive until it is destroyed.
	CreateFrameBufferFromTextures(textures []TextureHandle, destroyTextures bool) FrameBufferHandle
	CreateFrameBufferFromAttachments(attachments []Attachment, destroyTextures bool) FrameBufferHandle

	// CreateFrameBufferFromWindow creates a frame buffer presenting to another window.
	//
	// Parameters:
	//   - nwh: native window handle, as in PlatformData.NativeWindowHandle
	//   - width, height: window framebuffer size in pixels
	//   - format: color format
	//   - depthFormat: depth format
	//
	// Returns:
	//   - FrameBufferHandle: the frame buffer, invalid if the backend has no swap chain support
	CreateFrameBufferFromWindow(nwh any, width, height uint32, format, depthFormat TextureFormat) FrameBufferHandle
	GetTexture(fb FrameBufferHandle, attachment uint8) TextureHandle
	DestroyFrameBuffer(fb FrameBufferHandle)

	SetViewName(id ViewID, name string)
	SetViewRect(id ViewID, x, y, width, height uint16)
	SetViewScissor(id ViewID, x, y, width, height uint16)
	SetViewClear(id ViewID, flags ClearFlags, rgba uint32, depth float32, stencil uint8)
	SetViewMode(id ViewID, mode ViewMode)
	SetViewFrameBuffer(id ViewID, fb FrameBufferHandle)

	// SetViewTransform sets the view and projection matrices of a view. A nil matrix
	// sets identity.
	SetViewTransform(id ViewID, view, proj []float32)

	// SetViewOrder places the views in remap at render positions start and onwards.
	// A nil remap restores ascending id order.
	SetViewOrder(start ViewID, remap []ViewID)
	ResetView(id ViewID)
	ViewState(id ViewID) (View, bool)

	SetDebug(flags DebugFlags)
	DebugTextClear()
	DebugTextPrintf(x, y uint16, attr uint8, format string, args ...any)

	// Stats returns the counters of the last rendered frame.
	Stats() Stats

	// Caps returns the capabilities of the active backend.
	Caps() Caps

	// RendererType returns the type of the active backend.
	RendererType() RendererType
}

// renderContext implements Context.
type renderContext struct {
	*encoder

	init    Init
	backend Backend
	caps    Caps
	seqr    *sequencer
	closed  atomic.Bool

	views *viewTable

	vertexBuffers        *handleTable[vertexBufferRecord]
	indexBuffers         *handleTable[indexBufferRecord]
	dynamicVertexBuffers *handleTable[dynamicBufferRecord]
	dynamicIndexBuffers  *handleTable[dynamicBufferRecord]
	shaders              *handleTable[shaderRecord]
	programs             *handleTable[programRecord]
	textures             *handleTable[textureRecord]
	uniforms             *handleTable[uniformRecord]
	frameBuffers         *handleTable[frameBufferRecord]

	resMu        sync.Mutex
	uniformNames map[string]UniformHandle
	programKeys  map[programKey]ProgramHandle

	frameMu    sync.Mutex
	submit     *Frame
	frameNum   atomic.Uint32
	seq        atomic.Uint32
	draws      atomic.Uint32
	resolution Resolution
	debug      DebugFlags
	debugText  []DebugTextLine
	tvbPool    *transientPool
	tibPool    *transientPool

	encMu        sync.Mutex
	encCond      *sync.Cond
	freeEncoders []*encoder
	activeEnc    int
	usedEnc      int
	endedItems   []RenderItem
	endedUsed    []bool

	statsMu sync.Mutex
	stats   Stats
}

// NewContext creates a context and initializes its backend. Options are applied on
// top of DefaultInit and the result is validated.
//
// Parameters:
//   - options: functional options for context configuration
//
// Returns:
//   - Context: the initialized context
//   - error: ErrInvalidConfig, ErrBackendNotAvailable or the backend's init error
func NewContext(options ...ContextBuilderOption) (Context, error) {
	in := DefaultInit()
	for _, opt := range options {
		opt(&in)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	backend, err := NewBackend(in.Type)
	if err != nil {
		return nil, err
	}

	l := in.Limits
	c := &renderContext{
		init:                 in,
		backend:              backend,
		views:                newViewTable(l.MaxViews),
		vertexBuffers:        newHandleTable[vertexBufferRecord](int(l.MaxVertexBuffers)),
		indexBuffers:         newHandleTable[indexBufferRecord](int(l.MaxIndexBuffers)),
		dynamicVertexBuffers: newHandleTable[dynamicBufferRecord](int(l.MaxDynamicBuffers)),
		dynamicIndexBuffers:  newHandleTable[dynamicBufferRecord](int(l.MaxDynamicBuffers)),
		shaders:              newHandleTable[shaderRecord](int(l.MaxShaders)),
		programs:             newHandleTable[programRecord](int(l.MaxPrograms)),
		textures:             newHandleTable[textureRecord](int(l.MaxTextures)),
		uniforms:             newHandleTable[uniformRecord](int(l.MaxUniforms)),
		frameBuffers:         newHandleTable[frameBufferRecord](int(l.MaxFrameBuffers)),
		uniformNames:         make(map[string]UniformHandle),
		programKeys:          make(map[programKey]ProgramHandle),
		submit:               newFrame(1),
		resolution:           in.Resolution,
		debug:                in.Debug,
		tvbPool:              newTransientPool(l.TransientVbSize),
		tibPool:              newTransientPool(l.TransientIbSize),
		endedUsed:            make([]bool, l.MaxViews),
	}
	c.frameNum.Store(1)
	c.encCond = sync.NewCond(&c.encMu)
	c.encoder = newEncoder(c, false)

	c.seqr = newSequencer(in.Threading, backend, in.Resolution.MaxFrameLatency, c.completeFrame)
	if err := c.seqr.start(in); err != nil {
		return nil, fmt.Errorf("gfx: init %s backend: %w", backend.Type(), err)
	}
	c.caps = backend.Caps()

	Logger().Info("gfx: context created",
		"renderer", backend.Type().String(),
		"threading", in.Threading.String(),
		"width", in.Resolution.Width,
		"height", in.Resolution.Height)
	return c, nil
}

func (c *renderContext) Caps() Caps { return c.caps }

func (c *renderContext) RendererType() RendererType { return c.backend.Type() }

func (c *renderContext) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	s := c.stats
	s.ViewStats = slices.Clone(s.ViewStats)
	return s
}

func (c *renderContext) SetDebug(flags DebugFlags) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.debug = flags
}

func (c *renderContext) DebugTextClear() {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.debugText = nil
}

func (c *renderContext) DebugTextPrintf(x, y uint16, attr uint8, format string, args ...any) {
	line := DebugTextLine{X: x, Y: y, Attr: attr, Text: fmt.Sprintf(format, args...)}
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	for i := range c.debugText {
		if c.debugText[i].X == x && c.debugText[i].Y == y {
			c.debugText[i] = line
			return
		}
	}
	c.debugText = append(c.debugText, line)
}

func (c *renderContext) Reset(width, height uint32, flags ResetFlags, format TextureFormat) {
	if width == 0 || height == 0 {
		Logger().Warn("gfx: reset to an empty backbuffer ignored", "width", width, "height", height)
		return
	}
	c.frameMu.Lock()
	c.resolution.Width = width
	c.resolution.Height = height
	c.resolution.Reset = flags
	if format < TextureFormatCount && !format.IsDepth() {
		c.resolution.Format = format.resolve(false)
	}
	c.frameMu.Unlock()

	c.views.detachFrameBuffers()
	Logger().Debug("gfx: reset", "width", width, "height", height, "flags", flags)
}

func (c *renderContext) EncoderBegin(forThread bool) Encoder {
	if !forThread {
		return c.encoder
	}
	c.encMu.Lock()
	defer c.encMu.Unlock()

	if c.closed.Load() || c.activeEnc >= int(c.init.Limits.MaxEncoders)-1 {
		return nil
	}
	var e *encoder
	if n := len(c.freeEncoders); n > 0 {
		e = c.freeEncoders[n-1]
		c.freeEncoders = c.freeEncoders[:n-1]
	} else {
		e = newEncoder(c, true)
	}
	e.live = true
	c.activeEnc++
	c.usedEnc++
	return e
}

func (c *renderContext) EncoderEnd(enc Encoder) {
	e, ok := enc.(*encoder)
	if !ok || e == nil || !e.extra {
		return
	}
	c.encMu.Lock()
	defer c.encMu.Unlock()

	if !e.live {
		Logger().Warn("gfx: encoder ended twice")
		return
	}
	c.endedItems = append(c.endedItems, e.items...)
	for i, u := range e.used {
		c.endedUsed[i] = c.endedUsed[i] || u
	}
	e.reset()
	e.live = false
	c.freeEncoders = append(c.freeEncoders, e)
	c.activeEnc--
	c.encCond.Broadcast()
}

// collect waits for every extra encoder to end and gathers all draws of the frame.
func (c *renderContext) collect() ([]RenderItem, []bool, uint16) {
	c.encMu.Lock()
	defer c.encMu.Unlock()

	for c.activeEnc > 0 {
		c.encCond.Wait()
	}

	items := append(c.encoder.items, c.endedItems...)
	used := make([]bool, len(c.endedUsed))
	for i := range used {
		used[i] = c.endedUsed[i] || c.encoder.used[i]
	}
	numEncoders := uint16(1 + c.usedEnc)

	c.encoder.reset()
	c.endedItems = nil
	clear(c.endedUsed)
	c.usedEnc = 0
	return items, used, numEncoders
}

func (c *renderContext) Frame(capture bool) (uint32, RenderFrameStatus) {
	if c.closed.Load() {
		return c.frameNum.Load(), RenderFrameExiting
	}
	start := time.Now()

	items, used, numEncoders := c.collect()

	c.frameMu.Lock()
	f := c.submit
	f.Capture = capture
	f.Resolution = c.resolution
	f.Debug = c.debug
	f.DebugText = slices.Clone(c.debugText)
	f.TransientVertices = f.TransientVertices[:f.tvbUsed]
	f.TransientIndices = f.TransientIndices[:f.tibUsed]
	c.submit = newFrame(f.Number + 1)
	c.frameNum.Store(f.Number + 1)
	c.draws.Store(0)
	c.frameMu.Unlock()

	f.NumEncoders = numEncoders
	f.finalize(items, used, c.views)
	f.buildTime = time.Since(start)

	status := c.seqr.submit(f)
	return f.Number, status
}

func (c *renderContext) RenderFrame(timeout time.Duration) RenderFrameStatus {
	if c.closed.Load() {
		return RenderFrameExiting
	}
	return c.seqr.pump(timeout)
}

// completeFrame runs on the render side after the backend is done with f.
func (c *renderContext) completeFrame(f *Frame, render, wait time.Duration) {
	f.release()
	f.recycle()
	if f.TransientVertices != nil {
		c.tvbPool.put(f.TransientVertices)
	}
	if f.TransientIndices != nil {
		c.tibPool.put(f.TransientIndices)
	}

	views := make([]ViewStats, 0, len(f.Views))
	for _, v := range f.Views {
		n := uint32(0)
		for i := range v.Items {
			if !v.Items[i].Compute {
				n++
			}
		}
		views = append(views, ViewStats{Name: v.Name, View: v.ID, NumDraw: n})
	}

	c.statsMu.Lock()
	c.stats = Stats{
		FrameNumber:     f.Number,
		NumDraw:         f.NumDraw,
		NumCompute:      f.NumCompute,
		NumPrims:        f.NumPrims,
		NumEncoders:     f.NumEncoders,
		NumViews:        uint16(len(f.Views)),
		ViewStats:       views,
		CPUTimeFrame:    f.buildTime + render,
		WaitSubmit:      f.waitSubmit,
		WaitRender:      wait,
		TransientVbUsed: f.tvbUsed,
		TransientIbUsed: f.tibUsed,
		Width:           f.Resolution.Width,
		Height:          f.Resolution.Height,
	}
	c.statsMu.Unlock()
}

func (c *renderContext) Shutdown() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.seqr.stop()

	c.frameMu.Lock()
	f := c.submit
	c.frameMu.Unlock()
	f.release()

	Logger().Info("gfx: context shut down", "frames", f.Number-1)
}

// currentFrameNumber returns the number of the frame being recorded.
func (c *renderContext) currentFrameNumber() uint32 { return c.frameNum.Load() }

// reserveDraw counts one draw against the per-frame limit.
func (c *renderContext) reserveDraw() bool {
	return c.draws.Add(1) <= c.init.Limits.MaxDrawCalls
}

func (c *renderContext) allocTransforms(mtx []float32) uint32 {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	f := c.submit
	index := uint32(len(f.Transforms))
	for i := 0; i+16 <= len(mtx); i += 16 {
		var m [16]float32
		copy(m[:], mtx[i:i+16])
		f.Transforms = append(f.Transforms, m)
	}
	return index
}

// recordPre queues a create or update command. mem, if any, is released once the
// frame has been rendered.
func (c *renderContext) recordPre(cmd Command, mem *Memory) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.submit.PreCommands = append(c.submit.PreCommands, cmd)
	if mem != nil {
		c.submit.memories = append(c.submit.memories, mem)
	}
}

// recordPost queues a destroy command and the slot it frees.
func (c *renderContext) recordPost(cmd Command, slot retiredSlot) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.submit.PostCommands = append(c.submit.PostCommands, cmd)
	c.submit.retired = append(c.submit.retired, slot)
}

func (c *renderContext) AvailTransientVertexBuffer(num uint32, layout *VertexLayout) uint32 {
	if layout == nil || layout.Stride() == 0 {
		return 0
	}
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	stride := uint32(layout.Stride())
	off := vertexOffset(c.submit.tvbUsed, stride)
	if off >= c.init.Limits.TransientVbSize {
		return 0
	}
	return min(num, (c.init.Limits.TransientVbSize-off)/stride)
}

func (c *renderContext) AvailTransientIndexBuffer(num uint32, index32 bool) uint32 {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	off := alignUp(c.submit.tibUsed, 4)
	if off >= c.init.Limits.TransientIbSize {
		return 0
	}
	return min(num, (c.init.Limits.TransientIbSize-off)/indexSize(index32))
}

func (c *renderContext) AllocTransientVertexBuffer(num uint32, layout *VertexLayout) *TransientVertexBuffer {
	if c.closed.Load() || num == 0 || layout == nil || !layout.IsFinalized() || layout.Stride() == 0 {
		return nil
	}
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	f := c.submit
	stride := uint32(layout.Stride())
	off := vertexOffset(f.tvbUsed, stride)
	want := uint64(num) * uint64(stride)
	if uint64(off)+want > uint64(c.init.Limits.TransientVbSize) {
		Logger().Warn("gfx: transient vertex memory exhausted", "want", want, "used", f.tvbUsed)
		return nil
	}
	end := off + uint32(want)
	if f.TransientVertices == nil {
		f.TransientVertices = c.tvbPool.get()
	}
	f.tvbUsed = end
	return &TransientVertexBuffer{
		Data:        f.TransientVertices[off:end:end],
		NumVertices: num,
		Layout:      layout.clone(),
		offset:      off,
		frame:       f.Number,
	}
}

func (c *renderContext) AllocTransientIndexBuffer(num uint32, index32 bool) *TransientIndexBuffer {
	if c.closed.Load() || num == 0 {
		return nil
	}
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	f := c.submit
	want := uint64(num) * uint64(indexSize(index32))
	off := alignUp(f.tibUsed, 4)
	if uint64(off)+want > uint64(c.init.Limits.TransientIbSize) {
		Logger().Warn("gfx: transient index memory exhausted", "want", want, "used", f.tibUsed)
		return nil
	}
	end := off + uint32(want)
	if f.TransientIndices == nil {
		f.TransientIndices = c.tibPool.get()
	}
	f.tibUsed = end
	return &TransientIndexBuffer{
		Data:       f.TransientIndices[off:end:end],
		NumIndices: num,
		Index32:    index32,
		offset:     off,
		frame:      f.Number,
	}
}
