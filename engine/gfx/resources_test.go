package gfx

import (
	"sync/atomic"
	"testing"
)

func TestCreateUniformSharesName(t *testing.T) {
	c, _ := newTestContext(t)

	a := c.CreateUniform("u_color", UniformVec4, 1)
	b := c.CreateUniform("u_color", UniformVec4, 1)
	if !a.IsValid() || a != b {
		t.Fatalf("handles = %v, %v; want one shared valid handle", a, b)
	}
	rec, _ := c.uniforms.get(a.Handle)
	if rec.refs != 2 {
		t.Errorf("refs = %d, want 2", rec.refs)
	}

	c.DestroyUniform(a)
	if info, ok := c.GetUniformInfo(b); !ok || info.Name != "u_color" {
		t.Error("uniform destroyed while a reference remains")
	}
	c.DestroyUniform(b)
	if _, ok := c.GetUniformInfo(b); ok {
		t.Error("uniform alive after the last reference was destroyed")
	}
}

func TestCreateUniformTypeMismatch(t *testing.T) {
	c, _ := newTestContext(t)

	if h := c.CreateUniform("u_mtx", UniformMat4, 1); !h.IsValid() {
		t.Fatal("CreateUniform() returned invalid handle")
	}
	if h := c.CreateUniform("u_mtx", UniformVec4, 1); h.IsValid() {
		t.Error("redeclaring with a different type returned a valid handle")
	}
	if h := c.CreateUniform("", UniformVec4, 1); h.IsValid() {
		t.Error("empty name returned a valid handle")
	}
}

func TestCreateUniformKeepsLargestCount(t *testing.T) {
	c, _ := newTestContext(t)
	h := c.CreateUniform("u_lights", UniformVec4, 2)
	c.CreateUniform("u_lights", UniformVec4, 8)

	info, _ := c.GetUniformInfo(h)
	if info.Num != 8 {
		t.Errorf("Num = %d, want 8", info.Num)
	}
}

func TestProgramDeduplication(t *testing.T) {
	c, _ := newTestContext(t)
	vsh := c.CreateShader(Copy([]byte("vs")))
	fsh := c.CreateShader(Copy([]byte("fs")))

	p1 := c.CreateProgram(vsh, fsh, false)
	p2 := c.CreateProgram(vsh, fsh, false)
	if !p1.IsValid() || p1 != p2 {
		t.Fatalf("programs = %v, %v; want one shared handle", p1, p2)
	}

	c.DestroyProgram(p1)
	if !c.programs.alive(p2.Handle) {
		t.Fatal("program destroyed while a reference remains")
	}
	c.DestroyProgram(p2)
	if c.programs.alive(p2.Handle) {
		t.Fatal("program alive after the last reference")
	}

	// The caller still owns the shaders.
	if !c.shaders.alive(vsh.Handle) || !c.shaders.alive(fsh.Handle) {
		t.Error("shaders destroyed without being handed to the program")
	}
}

func TestProgramOwnsShaders(t *testing.T) {
	c, _ := newTestContext(t)
	vsh := c.CreateShader(Copy([]byte("vs")))
	fsh := c.CreateShader(Copy([]byte("fs")))

	ph := c.CreateProgram(vsh, fsh, true)
	if !c.shaders.alive(vsh.Handle) {
		t.Fatal("shader destroyed while a program uses it")
	}
	c.DestroyShader(vsh)
	if !c.shaders.alive(vsh.Handle) {
		t.Fatal("DestroyShader after handing ownership destroyed the shader")
	}

	c.DestroyProgram(ph)
	if c.shaders.alive(vsh.Handle) || c.shaders.alive(fsh.Handle) {
		t.Error("owned shaders outlived their program")
	}
}

func TestCreateProgramInvalidShader(t *testing.T) {
	c, _ := newTestContext(t)
	fsh := c.CreateShader(Copy([]byte("fs")))
	if ph := c.CreateProgram(ShaderHandle{}, fsh, true); ph.IsValid() {
		t.Error("CreateProgram() with invalid vertex shader returned a valid handle")
	}
	if c.shaders.alive(fsh.Handle) {
		t.Error("destroyShaders did not release the fragment shader of a failed link")
	}
}

func TestCreateShaderStripsTerminator(t *testing.T) {
	c, b := newTestContext(t)
	if h := c.CreateShader(Copy([]byte{0})); h.IsValid() {
		t.Error("shader with only a terminator returned a valid handle")
	}
	c.CreateShader(Copy([]byte("code\x00")))
	c.Frame(false)

	var cmd *CreateShaderCommand
	for _, pc := range b.last(t).PreCommands {
		if sc, ok := pc.(*CreateShaderCommand); ok {
			cmd = sc
		}
	}
	if cmd == nil {
		t.Fatal("no CreateShaderCommand recorded")
	}
	if string(cmd.Code) != "code" {
		t.Errorf("Code = %q, want %q", cmd.Code, "code")
	}
}

func TestDestroyRecyclesSlotAfterFrame(t *testing.T) {
	c, b := newTestContext(t)
	layout := positionColorLayout()

	first := c.CreateVertexBuffer(Copy(make([]byte, 16)), layout, BufferNone)
	c.DestroyVertexBuffer(first)

	before := c.CreateVertexBuffer(Copy(make([]byte, 16)), layout, BufferNone)
	if before.Index() == first.Index() {
		t.Fatal("slot reused before the destroy reached the backend")
	}

	c.Frame(false)
	f := b.last(t)
	if len(f.PostCommands) != 1 {
		t.Fatalf("PostCommands = %d, want 1", len(f.PostCommands))
	}
	kind, h := f.PostCommands[0].Resource()
	if kind != ResourceVertexBuffer || h != first.Handle {
		t.Errorf("destroy = %v %v, want vertex buffer %v", kind, h, first.Handle)
	}

	after := c.CreateVertexBuffer(Copy(make([]byte, 16)), layout, BufferNone)
	if after.Index() != first.Index() {
		t.Errorf("slot %d not recycled after the frame, got %d", first.Index(), after.Index())
	}
	if after == first || c.vertexBuffers.alive(first.Handle) {
		t.Error("recycled slot resurrected the old handle")
	}
}

func TestCommandsRecordedInOrder(t *testing.T) {
	c, b := newTestContext(t)
	vbh, ph := testTriangle(t, c)
	c.DestroyVertexBuffer(vbh)
	c.Frame(false)

	f := b.last(t)
	if len(f.PreCommands) != 4 {
		t.Fatalf("PreCommands = %d, want 4", len(f.PreCommands))
	}
	if _, ok := f.PreCommands[0].(*CreateVertexBufferCommand); !ok {
		t.Errorf("first command = %T", f.PreCommands[0])
	}
	if pc, ok := f.PreCommands[3].(*CreateProgramCommand); !ok || pc.Handle != ph {
		t.Errorf("last command = %T", f.PreCommands[3])
	}
	if len(f.PostCommands) != 1 {
		t.Errorf("PostCommands = %d, want 1", len(f.PostCommands))
	}
}

func TestMemoryReleasedAfterRender(t *testing.T) {
	c, b := newTestContext(t, WithThreading(ThreadingMulti))

	var released atomic.Int32
	mem := MakeRef(make([]byte, 48), func() { released.Add(1) })
	c.CreateVertexBuffer(mem, positionColorLayout(), BufferNone)
	if released.Load() != 0 {
		t.Fatal("memory released before the frame was rendered")
	}

	n, _ := c.Frame(false)
	waitRendered(t, b, n)
	// completeFrame runs right after the backend returns.
	c.Shutdown()
	if got := released.Load(); got != 1 {
		t.Errorf("release called %d times, want 1", got)
	}
}

func TestRejectedMemoryIsReleased(t *testing.T) {
	c, _ := newTestContext(t)

	var released atomic.Int32
	mem := MakeRef(make([]byte, 10), func() { released.Add(1) })
	if h := c.CreateVertexBuffer(mem, &VertexLayout{}, BufferNone); h.IsValid() {
		t.Fatal("unfinalized layout accepted")
	}
	if released.Load() != 1 {
		t.Error("rejected memory was not released")
	}
}

func TestCreateIndexBufferValidation(t *testing.T) {
	c, _ := newTestContext(t)
	if h := c.CreateIndexBuffer(Copy(make([]byte, 3)), BufferNone); h.IsValid() {
		t.Error("odd byte count accepted for 16-bit indices")
	}
	if h := c.CreateIndexBuffer(Copy(make([]byte, 6)), BufferIndex32); h.IsValid() {
		t.Error("6 bytes accepted for 32-bit indices")
	}
	if h := c.CreateIndexBuffer(Copy(make([]byte, 8)), BufferIndex32); !h.IsValid() {
		t.Error("8 bytes rejected for 32-bit indices")
	}
}

func TestDynamicBufferUpdateBounds(t *testing.T) {
	c, b := newTestContext(t)
	layout := positionColorLayout()

	fixed := c.CreateDynamicVertexBuffer(4, layout, BufferNone)
	growing := c.CreateDynamicVertexBuffer(4, layout, BufferAllowResize)

	c.UpdateDynamicVertexBuffer(fixed, 3, Copy(make([]byte, 32)))
	c.UpdateDynamicVertexBuffer(growing, 3, Copy(make([]byte, 32)))
	c.UpdateDynamicVertexBuffer(fixed, 2, Copy(make([]byte, 32)))
	c.Frame(false)

	var updates []*UpdateDynamicVertexBufferCommand
	for _, pc := range b.last(t).PreCommands {
		if u, ok := pc.(*UpdateDynamicVertexBufferCommand); ok {
			updates = append(updates, u)
		}
	}
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if updates[0].Handle != growing || updates[0].Offset != 48 || updates[0].Size != 80 {
		t.Errorf("resize update = %+v", updates[0])
	}
	if updates[1].Handle != fixed || updates[1].Offset != 32 || updates[1].Size != 64 {
		t.Errorf("fixed update = %+v", updates[1])
	}
}

func TestDynamicBufferSizeOverflow(t *testing.T) {
	c, b := newTestContext(t)
	layout := positionColorLayout()

	// 1<<28 vertices of 16 bytes wrap a 32-bit size to zero.
	if h := c.CreateDynamicVertexBuffer(1<<28, layout, BufferNone); h.IsValid() {
		t.Error("vertex buffer larger than 4 GiB accepted")
	}
	if h := c.CreateDynamicIndexBuffer(1<<30, BufferIndex32); h.IsValid() {
		t.Error("index buffer larger than 4 GiB accepted")
	}

	growing := c.CreateDynamicVertexBuffer(4, layout, BufferAllowResize)
	if !growing.IsValid() {
		t.Fatal("CreateDynamicVertexBuffer() returned invalid handle")
	}
	c.UpdateDynamicVertexBuffer(growing, 1<<28, Copy(make([]byte, 16)))
	c.UpdateDynamicVertexBuffer(growing, (1<<32-16)/16, Copy(make([]byte, 32)))
	c.Frame(false)

	for _, pc := range b.last(t).PreCommands {
		if u, ok := pc.(*UpdateDynamicVertexBufferCommand); ok {
			t.Errorf("overflowing update recorded: offset %d size %d", u.Offset, u.Size)
		}
	}
	if ta := c.AllocTransientVertexBuffer(1<<28, layout); ta != nil {
		t.Errorf("transient buffer of %d bytes allocated", len(ta.Data))
	}
}

func TestTextureMemorySizeMismatch(t *testing.T) {
	c, _ := newTestContext(t)
	if h := c.CreateTexture2D(4, 4, false, 1, TextureFormatRGBA8, TextureNone, Copy(make([]byte, 63))); h.IsValid() {
		t.Error("short texture memory accepted")
	}
	h := c.CreateTexture2D(4, 4, true, 1, TextureFormatRGBA8, TextureNone, Copy(make([]byte, 84)))
	if !h.IsValid() {
		t.Fatal("exact texture memory rejected")
	}
	info, _ := c.TextureInfo(h)
	if info.NumMips != 3 {
		t.Errorf("NumMips = %d, want 3", info.NumMips)
	}
}

func TestDepthTextureNeedsRenderTarget(t *testing.T) {
	c, _ := newTestContext(t)
	if h := c.CreateTexture2D(16, 16, false, 1, TextureFormatD24S8, TextureNone, nil); h.IsValid() {
		t.Error("sampled depth texture accepted")
	}
	if h := c.CreateTexture2D(16, 16, false, 1, TextureFormatD24S8, TextureRT, nil); !h.IsValid() {
		t.Error("depth render target rejected")
	}
}

func TestUpdateTextureBounds(t *testing.T) {
	c, b := newTestContext(t)
	h := c.CreateTexture2D(8, 8, false, 1, TextureFormatRGBA8, TextureNone, nil)

	c.UpdateTexture2D(h, 0, 0, 6, 6, 4, 4, Copy(make([]byte, 64)), 0)
	c.UpdateTexture2D(h, 0, 1, 0, 0, 1, 1, Copy(make([]byte, 4)), 0)
	c.UpdateTexture2D(h, 0, 0, 4, 4, 4, 4, Copy(make([]byte, 64)), 0)
	c.Frame(false)

	n := 0
	for _, pc := range b.last(t).PreCommands {
		if u, ok := pc.(*UpdateTextureCommand); ok {
			n++
			if u.Pitch != 16 {
				t.Errorf("Pitch = %d, want 16", u.Pitch)
			}
		}
	}
	if n != 1 {
		t.Errorf("got %d texture updates, want 1", n)
	}
}

func TestFrameBufferKeepsTexturesAlive(t *testing.T) {
	c, _ := newTestContext(t)
	color := c.CreateTexture2D(32, 32, false, 1, TextureFormatBGRA8, TextureRT, nil)
	depth := c.CreateTexture2D(32, 32, false, 1, TextureFormatD24S8, TextureRT, nil)

	fb := c.CreateFrameBufferFromTextures([]TextureHandle{color, depth}, false)
	if !fb.IsValid() {
		t.Fatal("CreateFrameBufferFromTextures() returned invalid handle")
	}
	if got := c.GetTexture(fb, 1); got != depth {
		t.Errorf("GetTexture(1) = %v, want %v", got, depth)
	}

	c.DestroyTexture(color)
	if !c.textures.alive(color.Handle) {
		t.Fatal("texture destroyed while a frame buffer references it")
	}
	c.DestroyFrameBuffer(fb)
	if c.textures.alive(color.Handle) {
		t.Error("texture outlived both its owner and its frame buffer")
	}
	if !c.textures.alive(depth.Handle) {
		t.Error("frame buffer destroyed a texture it did not own")
	}
}

func TestFrameBufferDestroysOwnedTextures(t *testing.T) {
	c, _ := newTestContext(t)
	fb := c.CreateFrameBuffer(64, 64, TextureFormatRGBA8, TextureNone)
	tex := c.GetTexture(fb, 0)
	if !tex.IsValid() {
		t.Fatal("frame buffer has no color texture")
	}
	c.SetViewFrameBuffer(1, fb)

	c.DestroyFrameBuffer(fb)
	if c.textures.alive(tex.Handle) {
		t.Error("owned render target outlived its frame buffer")
	}
	if v, _ := c.ViewState(1); v.FrameBuffer.IsValid() {
		t.Error("view still points at the destroyed frame buffer")
	}
}

func TestFrameBufferRejectsMismatchedAttachments(t *testing.T) {
	c, _ := newTestContext(t)
	a := c.CreateTexture2D(32, 32, false, 1, TextureFormatRGBA8, TextureRT, nil)
	b := c.CreateTexture2D(16, 16, false, 1, TextureFormatRGBA8, TextureRT, nil)
	plain := c.CreateTexture2D(32, 32, false, 1, TextureFormatRGBA8, TextureNone, nil)

	if fb := c.CreateFrameBufferFromTextures([]TextureHandle{a, b}, false); fb.IsValid() {
		t.Error("attachments of different sizes accepted")
	}
	if fb := c.CreateFrameBufferFromTextures([]TextureHandle{a, plain}, false); fb.IsValid() {
		t.Error("non render target attachment accepted")
	}
	if fb := c.CreateFrameBufferFromAttachments([]Attachment{{Texture: a, Mip: 1}, {Texture: b}}, false); !fb.IsValid() {
		t.Error("attachments matching at the selected mip rejected")
	}
}

func TestFrameBufferFromWindow(t *testing.T) {
	c, b := newTestContext(t)
	fb := c.CreateFrameBufferFromWindow("window-2", 800, 600, TextureFormatCount, TextureFormatCount)
	if !fb.IsValid() {
		t.Fatal("CreateFrameBufferFromWindow() returned invalid handle")
	}
	if h := c.CreateFrameBufferFromWindow(nil, 800, 600, TextureFormatRGBA8, TextureFormatD24S8); h.IsValid() {
		t.Error("nil window accepted")
	}
	c.Frame(false)

	cmd, ok := b.last(t).PreCommands[0].(*CreateFrameBufferCommand)
	if !ok {
		t.Fatalf("command = %T", b.last(t).PreCommands[0])
	}
	if cmd.Window != "window-2" || cmd.Width != 800 || cmd.Format != TextureFormatRGBA8 || !cmd.DepthFormat.IsDepth() {
		t.Errorf("command = %+v", cmd)
	}
}

func TestCalcTextureSize(t *testing.T) {
	tests := []struct {
		name    string
		w, h    uint16
		mips    bool
		layers  uint16
		format  TextureFormat
		size    uint32
		numMips uint8
	}{
		{"rgba8", 4, 4, false, 1, TextureFormatRGBA8, 64, 1},
		{"rgba8 mips", 4, 4, true, 1, TextureFormatRGBA8, 84, 3},
		{"r8 layers", 8, 2, false, 3, TextureFormatR8, 48, 1},
		{"non square mips", 4, 1, true, 1, TextureFormatRGBA8, 28, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := CalcTextureSize(tt.w, tt.h, 1, false, tt.mips, tt.layers, tt.format)
			if info.StorageSize != tt.size || info.NumMips != tt.numMips {
				t.Errorf("size = %d mips = %d, want %d and %d", info.StorageSize, info.NumMips, tt.size, tt.numMips)
			}
		})
	}
}
