package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gfx/engine/wgpu_backend/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// noUniforms marks a draw whose program has no uniform block.
const noUniforms = ^uint32(0)

// bindGroupSetter is the part of render and compute passes that binds groups.
type bindGroupSetter interface {
	SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
}

type textureSlotKey struct {
	texture gfx.Handle
	flags   gfx.SamplerFlags
}

// textureGroupKey identifies a group 1 bind group: a program and what each stage binds.
type textureGroupKey struct {
	program gfx.Handle
	slots   [gfx.MaxTextureSamplers]textureSlotKey
}

// targetSize returns the pixel size of a view's target without acquiring it.
func (b *wgpuBackend) targetSize(h gfx.FrameBufferHandle) (uint32, uint32, bool) {
	if !h.IsValid() {
		return b.main.width, b.main.height, true
	}
	fb, ok := b.frameBuffers[h.Handle]
	if !ok {
		return 0, 0, false
	}
	if fb.swap != nil {
		return fb.swap.width, fb.swap.height, true
	}
	return fb.width, fb.height, true
}

// packUniforms writes the uniform block of every draw into the staging buffer and
// returns each draw's offset, indexed like f.Views and their Items.
func (b *wgpuBackend) packUniforms(f *gfx.Frame) [][]uint32 {
	b.staging.reset()
	offsets := make([][]uint32, len(f.Views))
	for vi := range f.Views {
		v := &f.Views[vi]
		offsets[vi] = make([]uint32, len(v.Items))
		width, height, ok := b.targetSize(v.FrameBuffer)
		x, y, w, h := clampRect(v.Rect, width, height)
		m := newDrawMatrices(v, x, y, w, h)
		for ii := range v.Items {
			it := &v.Items[ii]
			offsets[vi][ii] = noUniforms
			p, found := b.programs[it.Program.Handle]
			if !ok || !found || p.uniformSize() == 0 {
				continue
			}
			off, dst := b.staging.alloc(p.uniformSize())
			fillUniforms(dst, p.iface.Uniforms, &m, f, it)
			offsets[vi][ii] = off
		}
	}
	return offsets
}

// acquire returns the image a swap chain renders into this frame and remembers the
// swap chain for present.
func (b *wgpuBackend) acquire(sc *swapChain) (*wgpu.TextureView, error) {
	fresh := sc.surface != nil && sc.currentView == nil
	view, err := sc.acquire()
	if err != nil {
		return nil, fmt.Errorf("wgpu: acquire surface texture: %w", err)
	}
	if fresh {
		b.acquired = append(b.acquired, sc)
	}
	return view, nil
}

// viewTarget resolves the attachments a view renders into.
func (b *wgpuBackend) viewTarget(h gfx.FrameBufferHandle) (renderTarget, error) {
	sc := b.main
	if h.IsValid() {
		fb, ok := b.frameBuffers[h.Handle]
		if !ok {
			return renderTarget{}, fmt.Errorf("%w: frame buffer %#x", errUnknownHandle, uint32(h.Handle))
		}
		if fb.swap == nil {
			t := renderTarget{depth: fb.depth, key: fb.key, width: fb.width, height: fb.height}
			for _, c := range fb.colors {
				t.colors = append(t.colors, colorAttachment{view: c})
			}
			return t, nil
		}
		sc = fb.swap
	}
	view, err := b.acquire(sc)
	if err != nil {
		return renderTarget{}, err
	}
	return sc.target(view), nil
}

// encodeView records the passes of one view. Consecutive draws share a render pass and
// consecutive dispatches a compute pass. The first render pass applies the view's clear;
// a view with a clear but no draws still gets a pass that only clears.
func (b *wgpuBackend) encodeView(enc *wgpu.CommandEncoder, f *gfx.Frame, v *gfx.View, offsets []uint32) error {
	needsTarget := v.Clear.Flags != 0
	for i := range v.Items {
		if !v.Items[i].Compute {
			needsTarget = true
			break
		}
	}

	var (
		target renderTarget
		errs   []error
	)
	if needsTarget {
		var err error
		if target, err = b.viewTarget(v.FrameBuffer); err != nil {
			return fmt.Errorf("view %d: %w", v.ID, err)
		}
	}

	cleared := false
	for start := 0; start < len(v.Items); {
		end := start + 1
		for end < len(v.Items) && v.Items[end].Compute == v.Items[start].Compute {
			end++
		}
		if v.Items[start].Compute {
			errs = append(errs, b.encodeCompute(enc, v.Items[start:end], offsets[start:end]))
		} else {
			errs = append(errs, b.encodeRender(enc, f, v, target, !cleared, v.Items[start:end], offsets[start:end]))
			cleared = true
		}
		start = end
	}
	if !cleared && v.Clear.Flags != 0 {
		errs = append(errs, b.encodeRender(enc, f, v, target, true, nil, nil))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("view %d: %w", v.ID, err)
	}
	return nil
}

func beginRenderPass(enc *wgpu.CommandEncoder, label string, t renderTarget, clear gfx.ClearState, doClear bool) (*wgpu.RenderPassEncoder, error) {
	colors := make([]wgpu.RenderPassColorAttachment, len(t.colors))
	for i, c := range t.colors {
		colors[i] = wgpu.RenderPassColorAttachment{
			View:          c.view,
			ResolveTarget: c.resolve,
			LoadOp:        wgpu.LoadOpLoad,
			StoreOp:       wgpu.StoreOpStore,
		}
		if doClear && clear.Flags&gfx.ClearColor != 0 {
			colors[i].LoadOp = wgpu.LoadOpClear
			colors[i].ClearValue = unpackColor(clear.RGBA)
		}
	}

	var ds *wgpu.RenderPassDepthStencilAttachment
	if t.depth != nil {
		ds = &wgpu.RenderPassDepthStencilAttachment{
			View:            t.depth,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: clear.Depth,
			StencilLoadOp:   wgpu.LoadOpUndefined,
			StencilStoreOp:  wgpu.StoreOpUndefined,
		}
		if doClear && clear.Flags&gfx.ClearDepth != 0 {
			ds.DepthLoadOp = wgpu.LoadOpClear
		}
		if hasStencil(t.key.depth) {
			ds.StencilLoadOp, ds.StencilStoreOp = wgpu.LoadOpLoad, wgpu.StoreOpStore
			ds.StencilClearValue = uint32(clear.Stencil)
			if doClear && clear.Flags&gfx.ClearStencil != 0 {
				ds.StencilLoadOp = wgpu.LoadOpClear
			}
		}
	}

	pass := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:                  label,
		ColorAttachments:       colors,
		DepthStencilAttachment: ds,
	})
	if pass == nil {
		return nil, errors.New("wgpu: begin render pass")
	}
	return pass, nil
}

func (b *wgpuBackend) encodeRender(enc *wgpu.CommandEncoder, f *gfx.Frame, v *gfx.View, t renderTarget, doClear bool, items []gfx.RenderItem, offsets []uint32) error {
	label := v.Name
	if label == "" {
		label = fmt.Sprintf("view %d", v.ID)
	}
	pass, err := beginRenderPass(enc, label, t, v.Clear, doClear)
	if err != nil {
		return err
	}
	defer pass.Release()

	var errs []error
	vx, vy, vw, vh := clampRect(v.Rect, t.width, t.height)
	if vw > 0 && vh > 0 {
		pass.SetViewport(float32(vx), float32(vy), float32(vw), float32(vh), 0, 1)
		for i := range items {
			if err := b.draw(pass, v, t, &items[i], offsets[i], vx, vy, vw, vh); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := pass.End(); err != nil {
		errs = append(errs, fmt.Errorf("wgpu: end render pass: %w", err))
	}
	return errors.Join(errs...)
}

func (b *wgpuBackend) draw(pass *wgpu.RenderPassEncoder, v *gfx.View, t renderTarget, it *gfx.RenderItem, offset uint32, vx, vy, vw, vh uint32) error {
	p, ok := b.programs[it.Program.Handle]
	if !ok || p.vertex == nil || p.fragment == nil {
		return fmt.Errorf("%w: program %#x", errUnknownHandle, uint32(it.Program.Handle))
	}

	sx, sy, sw, sh := vx, vy, vw, vh
	switch {
	case !it.Scissor.IsZero():
		x, y, w, h := clampRect(it.Scissor, t.width, t.height)
		sx, sy, sw, sh = intersectRect(vx, vy, vw, vh, x, y, w, h)
	case !v.Scissor.IsZero():
		x, y, w, h := clampRect(v.Scissor, t.width, t.height)
		sx, sy, sw, sh = intersectRect(vx, vy, vw, vh, x, y, w, h)
	}
	if sw == 0 || sh == 0 {
		return nil
	}

	rp, err := b.pipelines.get(p, it, t.key)
	if err != nil {
		return err
	}
	pass.SetPipeline(rp)
	if err := b.bindGroups(pass, p, it, offset); err != nil {
		return err
	}

	for i, s := range it.Streams {
		buf, base, err := b.vertexSource(s)
		if err != nil {
			return err
		}
		if s.Layout != nil {
			base += uint64(s.StartVertex) * uint64(s.Layout.Stride())
		}
		pass.SetVertexBuffer(uint32(i), buf, base, wgpu.WholeSize)
	}

	pass.SetScissorRect(sx, sy, sw, sh)
	color := unpackColor(it.BlendFactor)
	pass.SetBlendConstant(&color)
	if hasStencil(t.key.depth) && it.FrontStencil != 0 {
		pass.SetStencilReference(stencilRef(it.FrontStencil))
	}

	instances := max(it.Instances, 1)
	if it.Index.Source != gfx.SourceNone {
		if it.Index.NumIndices == 0 {
			return nil
		}
		buf, base, err := b.indexSource(it.Index)
		if err != nil {
			return err
		}
		pass.SetIndexBuffer(buf, indexFormat(it.Index.Index32), base, wgpu.WholeSize)
		pass.DrawIndexed(it.Index.NumIndices, instances, it.Index.FirstIndex, 0, 0)
		return nil
	}
	if n := it.VertexCount(); n > 0 {
		pass.Draw(n, instances, 0, 0)
	}
	return nil
}

func (b *wgpuBackend) encodeCompute(enc *wgpu.CommandEncoder, items []gfx.RenderItem, offsets []uint32) error {
	pass := enc.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "gfx compute"})
	if pass == nil {
		return errors.New("wgpu: begin compute pass")
	}
	defer pass.Release()

	var errs []error
	for i := range items {
		it := &items[i]
		p, ok := b.programs[it.Program.Handle]
		if !ok || p.computePipeline == nil {
			errs = append(errs, fmt.Errorf("%w: compute program %#x", errUnknownHandle, uint32(it.Program.Handle)))
			continue
		}
		pass.SetPipeline(p.computePipeline)
		if err := b.bindGroups(pass, p, it, offsets[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		pass.DispatchWorkgroups(it.Dispatch[0], it.Dispatch[1], it.Dispatch[2])
	}
	if err := pass.End(); err != nil {
		errs = append(errs, fmt.Errorf("wgpu: end compute pass: %w", err))
	}
	return errors.Join(errs...)
}

func (b *wgpuBackend) bindGroups(pass bindGroupSetter, p *program, it *gfx.RenderItem, offset uint32) error {
	group, err := b.uniformGroup(p)
	if err != nil {
		return err
	}
	var dynamic []uint32
	if offset != noUniforms {
		dynamic = []uint32{offset}
	}
	pass.SetBindGroup(shader.UniformGroup, group, dynamic)

	if p.textureLayout == nil {
		return nil
	}
	textures, err := b.textureGroup(p, it)
	if err != nil {
		return err
	}
	pass.SetBindGroup(shader.TextureGroup, textures, nil)
	return nil
}

// uniformGroup returns the group 0 bind group of p, rebuilding it after the shared
// uniform buffer was reallocated.
func (b *wgpuBackend) uniformGroup(p *program) (*wgpu.BindGroup, error) {
	size := p.uniformSize()
	if p.uniformGroup != nil && (size == 0 || p.uniformGen == b.uniforms.gen) {
		return p.uniformGroup, nil
	}
	var entries []wgpu.BindGroupEntry
	if size > 0 {
		if b.uniforms.buf == nil {
			return nil, errors.New("wgpu: uniform buffer not allocated")
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: shader.UniformBinding,
			Buffer:  b.uniforms.buf,
			Size:    uint64(size),
		})
	}
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "gfx uniforms",
		Layout:  p.uniformLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: uniform bind group: %w", err)
	}
	if p.uniformGroup != nil {
		p.uniformGroup.Release()
	}
	p.uniformGroup, p.uniformGen = group, b.uniforms.gen
	return group, nil
}

// textureGroup returns the group 1 bind group for the textures of it. Groups are
// shared by every draw of the frame binding the same textures to the same program.
func (b *wgpuBackend) textureGroup(p *program, it *gfx.RenderItem) (*wgpu.BindGroup, error) {
	key := textureGroupKey{program: p.handle.Handle}
	for _, tb := range it.Textures {
		if int(tb.Stage) < len(key.slots) {
			key.slots[tb.Stage] = textureSlotKey{texture: tb.Texture.Handle, flags: tb.Flags}
		}
	}
	if group, ok := b.frameGroups[key]; ok {
		return group, nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(p.iface.Bindings))
	for _, binding := range p.iface.Bindings {
		stage := shader.StageOf(binding.Binding)
		t, flags := b.stageTexture(key, stage)
		entry := wgpu.BindGroupEntry{Binding: binding.Binding}
		switch binding.Kind {
		case shader.BindingTexture:
			entry.TextureView = t.view
		default:
			compare := binding.Kind == shader.BindingComparisonSampler
			filtering := !compare && filterable(t.format) && !p.depthStage(stage)
			sampler, err := b.sampler(flags, filtering, compare)
			if err != nil {
				return nil, err
			}
			entry.Sampler = sampler
		}
		entries = append(entries, entry)
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "gfx textures",
		Layout:  p.textureLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: texture bind group: %w", err)
	}
	b.frameGroups[key] = group
	return group, nil
}

// stageTexture returns the texture and sampler flags bound at stage, falling back to
// the white texture for stages the draw left empty.
func (b *wgpuBackend) stageTexture(key textureGroupKey, stage uint8) (*texture, gfx.SamplerFlags) {
	slot := key.slots[stage]
	t, ok := b.textures[slot.texture]
	if !ok {
		return b.white, 0
	}
	if slot.flags == gfx.SamplerInherit {
		return t, t.flags.Sampler()
	}
	return t, slot.flags
}

func (b *wgpuBackend) sampler(flags gfx.SamplerFlags, filtering, compare bool) (*wgpu.Sampler, error) {
	key := samplerKey{flags: flags, filtering: filtering, compare: compare}
	if s, ok := b.samplers[key]; ok {
		return s, nil
	}
	desc := samplerDescriptor(flags, filtering)
	if compare {
		desc.Compare = wgpu.CompareFunctionLessEqual
	}
	s, err := b.device.CreateSampler(desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: sampler %#x: %w", uint32(flags), err)
	}
	b.samplers[key] = s
	return s, nil
}

func (b *wgpuBackend) vertexSource(s gfx.VertexStream) (*wgpu.Buffer, uint64, error) {
	switch s.Source {
	case gfx.SourceTransient:
		if b.transientVB.buf == nil {
			return nil, 0, errors.New("wgpu: transient vertex buffer not allocated")
		}
		return b.transientVB.buf, uint64(s.Offset), nil
	case gfx.SourceDynamic:
		if buf, ok := b.dynamicVertexBuffers[s.Handle]; ok {
			return buf.buf, 0, nil
		}
	default:
		if buf, ok := b.vertexBuffers[s.Handle]; ok {
			return buf.buf, 0, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: vertex buffer %#x", errUnknownHandle, uint32(s.Handle))
}

func (b *wgpuBackend) indexSource(ib gfx.IndexBinding) (*wgpu.Buffer, uint64, error) {
	switch ib.Source {
	case gfx.SourceTransient:
		if b.transientIB.buf == nil {
			return nil, 0, errors.New("wgpu: transient index buffer not allocated")
		}
		return b.transientIB.buf, uint64(ib.Offset), nil
	case gfx.SourceDynamic:
		if buf, ok := b.dynamicIndexBuffers[ib.Handle]; ok {
			return buf.buf, uint64(ib.Offset), nil
		}
	default:
		if buf, ok := b.indexBuffers[ib.Handle]; ok {
			return buf.buf, uint64(ib.Offset), nil
		}
	}
	return nil, 0, fmt.Errorf("%w: index buffer %#x", errUnknownHandle, uint32(ib.Handle))
}
