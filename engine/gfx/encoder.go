package gfx

import (
	"fmt"
)

// Encoder records draw state and submits draws. The context embeds a main encoder
// for the API goroutine; additional encoders come from Context.EncoderBegin and let
// other goroutines record draws for the same frame. An encoder must only be used by
// one goroutine at a time.
type Encoder interface {
	// SetState sets the render state of the next draw.
	//
	// Parameters:
	//   - state: write mask, depth test, blend, cull and primitive bits (StateDefault if unset)
	//   - rgba: blend factor used by StateBlendFactor
	SetState(state StateFlags, rgba uint32)

	// SetStencil sets the stencil test of the next draw.
	//
	// Parameters:
	//   - front: stencil flags for front faces
	//   - back: stencil flags for back faces, StencilNone to reuse front
	SetStencil(front, back StencilFlags)

	// SetScissor restricts the next draw to a rectangle. A zero size disables it.
	//
	// Parameters:
	//   - x, y, width, height: the scissor rectangle in pixels
	SetScissor(x, y, width, height uint16)

	// SetTransform stores one or more model matrices in the frame's transform cache and
	// uses them for the next draw.
	//
	// Parameters:
	//   - mtx: column-major 4x4 matrices, 16 floats each
	//
	// Returns:
	//   - uint32: cache index usable with SetTransformCached for the rest of the frame
	SetTransform(mtx []float32) uint32

	// SetTransformCached uses matrices already in the frame's transform cache.
	//
	// Parameters:
	//   - cache: index returned by SetTransform
	//   - num: number of matrices
	SetTransformCached(cache uint32, num uint16)

	// SetUniform sets a uniform value for the next draw. Values are copied.
	//
	// Parameters:
	//   - h: the uniform
	//   - values: packed float32 values
	//   - num: element count, UseCreationNum for the count given at creation
	SetUniform(h UniformHandle, values []float32, num uint16)

	// SetVertexBuffer binds a static vertex buffer to a stream.
	//
	// Parameters:
	//   - stream: stream index below MaxVertexStreams
	//   - h: the buffer; an invalid handle unbinds the stream
	//   - start: first vertex
	//   - num: vertex count, or NumAll
	SetVertexBuffer(stream uint8, h VertexBufferHandle, start, num uint32)

	// SetDynamicVertexBuffer binds a dynamic vertex buffer to a stream.
	SetDynamicVertexBuffer(stream uint8, h DynamicVertexBufferHandle, start, num uint32)

	// SetTransientVertexBuffer binds a transient vertex buffer to a stream.
	SetTransientVertexBuffer(stream uint8, tvb *TransientVertexBuffer, start, num uint32)

	// SetVertexCount draws num vertices with no vertex buffer bound. The vertex shader
	// generates positions from the vertex index.
	SetVertexCount(num uint32)

	// SetIndexBuffer binds a static index buffer.
	//
	// Parameters:
	//   - h: the buffer; an invalid handle unbinds it
	//   - first: first index
	//   - num: index count, or NumAll
	SetIndexBuffer(h IndexBufferHandle, first, num uint32)

	// SetDynamicIndexBuffer binds a dynamic index buffer.
	SetDynamicIndexBuffer(h DynamicIndexBufferHandle, first, num uint32)

	// SetTransientIndexBuffer binds a transient index buffer.
	SetTransientIndexBuffer(tib *TransientIndexBuffer, first, num uint32)

	// SetTexture binds a texture to a sampler stage.
	//
	// Parameters:
	//   - stage: stage index below MaxTextureSamplers
	//   - sampler: the sampler uniform declared by the shader
	//   - h: the texture; an invalid handle unbinds the stage
	//   - flags: sampler flags, or SamplerInherit for the texture's own
	SetTexture(stage uint8, sampler UniformHandle, h TextureHandle, flags SamplerFlags)

	// SetInstanceCount draws num instances of the next draw.
	SetInstanceCount(num uint32)

	// Touch marks a view as used this frame so its clear is applied even without draws.
	//
	// Returns:
	//   - error: ErrInvalidView in strict mode, nil otherwise
	Touch(view ViewID) error

	// Submit records a draw with the pending state, then clears the state selected by
	// discard. An invalid or destroyed program makes the call behave like Touch. A draw
	// without vertex buffers is accepted and draws nothing.
	//
	// Parameters:
	//   - view: target view
	//   - program: render program
	//   - depth: sort depth for ViewModeDepthAscending and ViewModeDepthDescending
	//   - discard: which parts of the state to reset (DiscardAll for everything)
	//
	// Returns:
	//   - error: the first invalid or stale handle in strict mode, nil otherwise
	Submit(view ViewID, program ProgramHandle, depth uint32, discard DiscardFlags) error

	// Dispatch records a compute dispatch with the pending uniforms and textures.
	//
	// Parameters:
	//   - view: view whose order the dispatch follows
	//   - program: compute program
	//   - x, y, z: workgroup counts
	//   - discard: which parts of the state to reset
	//
	// Returns:
	//   - error: the first invalid or stale handle in strict mode, nil otherwise
	Dispatch(view ViewID, program ProgramHandle, x, y, z uint32, discard DiscardFlags) error

	// Discard resets the pending state without submitting.
	Discard(flags DiscardFlags)
}

// encoder is the Encoder implementation. Its items and used views are merged into
// the frame when Frame is called.
type encoder struct {
	ctx   *renderContext
	draw  drawState
	items []RenderItem
	used  []bool
	err   error
	extra bool
	live  bool
}

func newEncoder(c *renderContext, extra bool) *encoder {
	return &encoder{
		ctx:   c,
		draw:  newDrawState(),
		used:  make([]bool, c.init.Limits.MaxViews),
		extra: extra,
	}
}

// fail reports a misuse. It is logged always and returned only in strict mode.
func (e *encoder) fail(base error, format string, args ...any) error {
	err := fmt.Errorf("%w: "+format, append([]any{base}, args...)...)
	Logger().Warn(err.Error())
	if !e.ctx.init.Strict {
		return nil
	}
	return err
}

// note keeps the first error raised by a setter until the next Submit reports it.
func (e *encoder) note(err error) {
	if err != nil && e.err == nil {
		e.err = err
	}
}

func (e *encoder) takeErr() error {
	err := e.err
	e.err = nil
	return err
}

func (e *encoder) SetState(state StateFlags, rgba uint32) {
	e.draw.state = state
	e.draw.blendFactor = rgba
}

func (e *encoder) SetStencil(front, back StencilFlags) {
	if back == StencilNone {
		back = front
	}
	e.draw.frontStencil = front
	e.draw.backStencil = back
}

func (e *encoder) SetScissor(x, y, width, height uint16) {
	e.draw.scissor = Rect{X: x, Y: y, Width: width, Height: height}
}

func (e *encoder) SetTransform(mtx []float32) uint32 {
	num := len(mtx) / 16
	if num == 0 {
		e.note(e.fail(ErrInvalidArgument, "transform needs at least 16 floats, got %d", len(mtx)))
		return 0
	}
	index := e.ctx.allocTransforms(mtx[:num*16])
	e.draw.transform = index
	e.draw.numTransforms = uint16(num)
	return index
}

func (e *encoder) SetTransformCached(cache uint32, num uint16) {
	e.draw.transform = cache
	e.draw.numTransforms = max(num, 1)
}

func (e *encoder) SetUniform(h UniformHandle, values []float32, num uint16) {
	rec, ok := e.ctx.uniforms.get(h.Handle)
	if !ok {
		e.note(e.staleOrInvalid(h.Handle, "uniform"))
		return
	}
	info := rec.info
	per := info.Type.Floats()
	if num == UseCreationNum {
		num = info.Num
	}
	num = min(num, uint16(min(len(values)/int(per), 0xffff)))
	if num == 0 {
		e.note(e.fail(ErrInvalidArgument, "uniform %q needs %d floats per element, got %d", info.Name, per, len(values)))
		return
	}

	vals := make([]float32, int(num)*int(per))
	copy(vals, values)
	e.draw.setUniform(UniformValue{Handle: h, Name: info.Name, Type: info.Type, Num: num, Values: vals})
}

func (e *encoder) setStream(stream uint8, s VertexStream, frame uint32) {
	if stream >= MaxVertexStreams {
		e.note(e.fail(ErrInvalidArgument, "vertex stream %d out of range", stream))
		return
	}
	if !s.Handle.IsValid() && s.Source != SourceTransient {
		e.draw.streams[stream] = streamSlot{}
		return
	}
	e.draw.streams[stream] = streamSlot{set: true, stream: s, frame: frame}
}

func (e *encoder) SetVertexBuffer(stream uint8, h VertexBufferHandle, start, num uint32) {
	e.setStream(stream, VertexStream{Source: SourceStatic, Handle: h.Handle, StartVertex: start, NumVertices: num}, 0)
}

func (e *encoder) SetDynamicVertexBuffer(stream uint8, h DynamicVertexBufferHandle, start, num uint32) {
	e.setStream(stream, VertexStream{Source: SourceDynamic, Handle: h.Handle, StartVertex: start, NumVertices: num}, 0)
}

func (e *encoder) SetTransientVertexBuffer(stream uint8, tvb *TransientVertexBuffer, start, num uint32) {
	if tvb == nil || tvb.Layout == nil {
		if stream < MaxVertexStreams {
			e.draw.streams[stream] = streamSlot{}
		}
		return
	}
	e.setStream(stream, VertexStream{
		Source:      SourceTransient,
		Layout:      tvb.Layout,
		Offset:      tvb.offset,
		StartVertex: start,
		NumVertices: min(num, tvb.NumVertices-min(start, tvb.NumVertices)),
	}, tvb.frame)
}

func (e *encoder) SetVertexCount(num uint32) {
	e.draw.numVertices = num
	e.draw.hasVertices = true
}

func (e *encoder) SetIndexBuffer(h IndexBufferHandle, first, num uint32) {
	e.draw.index = IndexBinding{Source: SourceStatic, Handle: h.Handle, FirstIndex: first, NumIndices: num}
	if !h.IsValid() {
		e.draw.index = IndexBinding{}
	}
}

func (e *encoder) SetDynamicIndexBuffer(h DynamicIndexBufferHandle, first, num uint32) {
	e.draw.index = IndexBinding{Source: SourceDynamic, Handle: h.Handle, FirstIndex: first, NumIndices: num}
	if !h.IsValid() {
		e.draw.index = IndexBinding{}
	}
}

func (e *encoder) SetTransientIndexBuffer(tib *TransientIndexBuffer, first, num uint32) {
	if tib == nil {
		e.draw.index = IndexBinding{}
		return
	}
	e.draw.index = IndexBinding{
		Source:     SourceTransient,
		Offset:     tib.offset,
		Index32:    tib.Index32,
		FirstIndex: first,
		NumIndices: min(num, tib.NumIndices-min(first, tib.NumIndices)),
	}
	e.draw.indexFrame = tib.frame
}

func (e *encoder) SetTexture(stage uint8, sampler UniformHandle, h TextureHandle, flags SamplerFlags) {
	if stage >= MaxTextureSamplers {
		e.note(e.fail(ErrInvalidArgument, "texture stage %d out of range", stage))
		return
	}
	if !h.IsValid() {
		e.draw.textures[stage] = textureSlot{}
		return
	}
	e.draw.textures[stage] = textureSlot{
		set:     true,
		binding: TextureBinding{Stage: stage, Sampler: sampler, Texture: h, Flags: flags},
	}
}

func (e *encoder) SetInstanceCount(num uint32) {
	e.draw.instances = num
}

func (e *encoder) Discard(flags DiscardFlags) {
	e.draw.discard(flags)
	e.err = nil
}

func (e *encoder) Touch(view ViewID) error {
	if e.ctx.closed.Load() {
		return e.fail(ErrShutdown, "view %d", view)
	}
	if !e.ctx.views.valid(view) {
		return e.fail(ErrInvalidView, "view %d", view)
	}
	e.used[view] = true
	return nil
}

func (e *encoder) Submit(view ViewID, program ProgramHandle, depth uint32, discard DiscardFlags) error {
	defer e.draw.discard(discard)
	err := e.takeErr()

	if terr := e.Touch(view); terr != nil || e.ctx.closed.Load() || !e.ctx.views.valid(view) {
		return firstErr(err, terr)
	}

	rec, ok := e.ctx.programs.get(program.Handle)
	if !ok {
		if program.IsValid() {
			err = firstErr(err, e.fail(ErrStaleHandle, "program %#x", uint32(program.Handle)))
		}
		return err
	}
	if rec.key.csh.IsValid() {
		return firstErr(err, e.fail(ErrInvalidHandle, "compute program %#x submitted as draw", uint32(program.Handle)))
	}
	if !e.ctx.reserveDraw() {
		return firstErr(err, e.fail(ErrDrawLimit, "max %d", e.ctx.init.Limits.MaxDrawCalls))
	}

	item := e.baseItem(view, program, depth)
	err = firstErr(err, e.resolveStreams(&item))
	err = firstErr(err, e.resolveIndex(&item))
	err = firstErr(err, e.resolveBindings(&item))

	n := item.VertexCount()
	if item.Index.Source != SourceNone {
		n = item.Index.NumIndices
	}
	if len(item.Streams) == 0 && !e.draw.hasVertices {
		err = firstErr(err, e.fail(ErrMissingVertexBuffer, "view %d", view))
		// Without vertices the index binding has nothing to address.
		item.Index = IndexBinding{}
		n = 0
	}
	item.NumPrimitives = primitiveCount(item.State, n) * item.Instances

	e.items = append(e.items, item)
	return err
}

func (e *encoder) Dispatch(view ViewID, program ProgramHandle, x, y, z uint32, discard DiscardFlags) error {
	defer e.draw.discard(discard)
	err := e.takeErr()

	if terr := e.Touch(view); terr != nil || e.ctx.closed.Load() || !e.ctx.views.valid(view) {
		return firstErr(err, terr)
	}
	rec, ok := e.ctx.programs.get(program.Handle)
	if !ok || !rec.key.csh.IsValid() {
		return firstErr(err, e.staleOrInvalid(program.Handle, "compute program"))
	}
	if !e.ctx.reserveDraw() {
		return firstErr(err, e.fail(ErrDrawLimit, "max %d", e.ctx.init.Limits.MaxDrawCalls))
	}

	item := e.baseItem(view, program, 0)
	item.Compute = true
	item.Dispatch = [3]uint32{max(x, 1), max(y, 1), max(z, 1)}
	err = firstErr(err, e.resolveBindings(&item))
	e.items = append(e.items, item)
	return err
}

func (e *encoder) baseItem(view ViewID, program ProgramHandle, depth uint32) RenderItem {
	d := &e.draw
	return RenderItem{
		View:          view,
		Program:       program,
		State:         d.state,
		BlendFactor:   d.blendFactor,
		FrontStencil:  d.frontStencil,
		BackStencil:   d.backStencil,
		Scissor:       d.scissor,
		Transform:     d.transform,
		NumTransforms: d.numTransforms,
		NumVertices:   d.numVertices,
		Instances:     max(d.instances, 1),
		Depth:         depth,
		seq:           e.ctx.seq.Add(1),
	}
}

// resolveStreams copies the bound vertex streams into item, dropping any that refer
// to destroyed buffers or to transient memory from an earlier frame.
func (e *encoder) resolveStreams(item *RenderItem) error {
	var err error
	frame := e.ctx.currentFrameNumber()
	for i := range e.draw.streams {
		slot := e.draw.streams[i]
		if !slot.set {
			continue
		}
		s := slot.stream
		var size uint32
		switch s.Source {
		case SourceStatic:
			rec, ok := e.ctx.vertexBuffers.get(s.Handle)
			if !ok {
				err = firstErr(err, e.staleOrInvalid(s.Handle, "vertex buffer"))
				continue
			}
			s.Layout, size = rec.layout, rec.size
		case SourceDynamic:
			rec, ok := e.ctx.dynamicVertexBuffers.get(s.Handle)
			if !ok {
				err = firstErr(err, e.staleOrInvalid(s.Handle, "dynamic vertex buffer"))
				continue
			}
			s.Layout, size = rec.layout, rec.size
		case SourceTransient:
			if slot.frame != frame {
				err = firstErr(err, e.fail(ErrStaleHandle, "transient vertex buffer from frame %d", slot.frame))
				continue
			}
			size = (s.StartVertex + s.NumVertices) * uint32(s.Layout.Stride())
		}

		total := size / uint32(s.Layout.Stride())
		if s.NumVertices == NumAll || s.StartVertex+s.NumVertices > total {
			s.NumVertices = total - min(s.StartVertex, total)
		}
		item.Streams = append(item.Streams, s)
	}
	return err
}

func (e *encoder) resolveIndex(item *RenderItem) error {
	b := e.draw.index
	var size uint32
	switch b.Source {
	case SourceNone:
		return nil
	case SourceStatic:
		rec, ok := e.ctx.indexBuffers.get(b.Handle)
		if !ok {
			return e.staleOrInvalid(b.Handle, "index buffer")
		}
		b.Index32, size = rec.index32, rec.size
	case SourceDynamic:
		rec, ok := e.ctx.dynamicIndexBuffers.get(b.Handle)
		if !ok {
			return e.staleOrInvalid(b.Handle, "dynamic index buffer")
		}
		b.Index32, size = rec.flags&BufferIndex32 != 0, rec.size
	case SourceTransient:
		if e.draw.indexFrame != e.ctx.currentFrameNumber() {
			return e.fail(ErrStaleHandle, "transient index buffer from frame %d", e.draw.indexFrame)
		}
		size = (b.FirstIndex + b.NumIndices) * indexSize(b.Index32)
	}

	total := size / indexSize(b.Index32)
	if b.NumIndices == NumAll || b.FirstIndex+b.NumIndices > total {
		b.NumIndices = total - min(b.FirstIndex, total)
	}
	item.Index = b
	return nil
}

// resolveBindings copies live textures and uniforms into item.
func (e *encoder) resolveBindings(item *RenderItem) error {
	var err error
	for _, slot := range e.draw.textures {
		if !slot.set {
			continue
		}
		if !e.ctx.textures.alive(slot.binding.Texture.Handle) {
			err = firstErr(err, e.staleOrInvalid(slot.binding.Texture.Handle, "texture"))
			continue
		}
		item.Textures = append(item.Textures, slot.binding)
	}
	for _, u := range e.draw.uniforms {
		if !e.ctx.uniforms.alive(u.Handle.Handle) {
			err = firstErr(err, e.staleOrInvalid(u.Handle.Handle, "uniform"))
			continue
		}
		item.Uniforms = append(item.Uniforms, u)
	}
	return err
}

func (e *encoder) staleOrInvalid(h Handle, what string) error {
	if !h.IsValid() {
		return e.fail(ErrInvalidHandle, "%s", what)
	}
	return e.fail(ErrStaleHandle, "%s %#x", what, uint32(h))
}

// reset clears everything recorded so the encoder can be reused for the next frame.
func (e *encoder) reset() {
	e.draw = newDrawState()
	e.items = nil
	clear(e.used)
	e.err = nil
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}
