package wgpu_backend

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestTextureFormat(t *testing.T) {
	tests := []struct {
		name  string
		in    gfx.TextureFormat
		depth bool
		srgb  bool
		want  wgpu.TextureFormat
	}{
		{"rgba8", gfx.TextureFormatRGBA8, false, false, wgpu.TextureFormatRGBA8Unorm},
		{"rgba8 srgb", gfx.TextureFormatRGBA8, false, true, wgpu.TextureFormatRGBA8UnormSrgb},
		{"bgra8 srgb", gfx.TextureFormatBGRA8, false, true, wgpu.TextureFormatBGRA8UnormSrgb},
		{"float has no srgb", gfx.TextureFormatRGBA16F, false, true, wgpu.TextureFormatRGBA16Float},
		{"unknown color", gfx.TextureFormatUnknown, false, false, wgpu.TextureFormatRGBA8Unorm},
		{"unknown depth", gfx.TextureFormatUnknown, true, false, wgpu.TextureFormatDepth24PlusStencil8},
		{"d32f", gfx.TextureFormatD32F, true, false, wgpu.TextureFormatDepth32Float},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textureFormat(tt.in, tt.depth, tt.srgb); got != tt.want {
				t.Errorf("textureFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatTraits(t *testing.T) {
	if !hasStencil(wgpu.TextureFormatDepth24PlusStencil8) || hasStencil(wgpu.TextureFormatDepth32Float) {
		t.Error("hasStencil reports wrong formats")
	}
	if !isDepthFormat(wgpu.TextureFormatDepth16Unorm) || isDepthFormat(wgpu.TextureFormatR8Unorm) {
		t.Error("isDepthFormat reports wrong formats")
	}
	if filterable(wgpu.TextureFormatRGBA32Float) || filterable(wgpu.TextureFormatDepth24Plus) {
		t.Error("32-bit float and depth formats must not be filterable")
	}
	if !filterable(wgpu.TextureFormatRGBA16Float) {
		t.Error("RGBA16F must be filterable")
	}
}

func TestVertexFormat(t *testing.T) {
	tests := []struct {
		attr   gfx.VertexAttribute
		want   wgpu.VertexFormat
		wantOK bool
	}{
		{gfx.VertexAttribute{Num: 3, Type: gfx.AttribTypeFloat}, wgpu.VertexFormatFloat32x3, true},
		{gfx.VertexAttribute{Num: 2, Type: gfx.AttribTypeHalf}, wgpu.VertexFormatFloat16x2, true},
		{gfx.VertexAttribute{Num: 4, Type: gfx.AttribTypeUint8, Normalized: true}, wgpu.VertexFormatUnorm8x4, true},
		{gfx.VertexAttribute{Num: 4, Type: gfx.AttribTypeUint8}, wgpu.VertexFormatUint8x4, true},
		{gfx.VertexAttribute{Num: 2, Type: gfx.AttribTypeInt16, Normalized: true}, wgpu.VertexFormatSnorm16x2, true},
		{gfx.VertexAttribute{Num: 3, Type: gfx.AttribTypeUint8}, wgpu.VertexFormatUndefined, false},
		{gfx.VertexAttribute{Num: 3, Type: gfx.AttribTypeHalf}, wgpu.VertexFormatUndefined, false},
	}
	for _, tt := range tests {
		got, ok := vertexFormat(tt.attr)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("vertexFormat(%+v) = %v, %v, want %v, %v", tt.attr, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestVertexBufferLayout(t *testing.T) {
	var layout gfx.VertexLayout
	layout.Begin(gfx.RendererTypeWebGPU).
		Add(gfx.AttribPosition, 3, gfx.AttribTypeFloat, false, false).
		Add(gfx.AttribColor0, 4, gfx.AttribTypeUint8, true, false).
		Add(gfx.AttribTexCoord0, 2, gfx.AttribTypeFloat, false, false).
		End()

	out := vertexBufferLayout(&layout)
	if out.ArrayStride != 24 {
		t.Fatalf("ArrayStride = %d, want 24", out.ArrayStride)
	}
	if len(out.Attributes) != 3 {
		t.Fatalf("got %d attributes, want 3", len(out.Attributes))
	}
	want := []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: uint32(gfx.AttribPosition)},
		{Format: wgpu.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: uint32(gfx.AttribColor0)},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 16, ShaderLocation: uint32(gfx.AttribTexCoord0)},
	}
	for i, w := range want {
		if out.Attributes[i] != w {
			t.Errorf("attribute %d = %+v, want %+v", i, out.Attributes[i], w)
		}
	}
}

func TestBlendState(t *testing.T) {
	if blendState(gfx.StateDefault) != nil {
		t.Fatal("default state must not blend")
	}

	alpha := blendState(gfx.StateBlendAlpha)
	if alpha == nil {
		t.Fatal("alpha blending decoded as nil")
	}
	if alpha.Color.SrcFactor != wgpu.BlendFactorSrcAlpha || alpha.Color.DstFactor != wgpu.BlendFactorOneMinusSrcAlpha {
		t.Errorf("color factors = %v, %v", alpha.Color.SrcFactor, alpha.Color.DstFactor)
	}
	if alpha.Color.Operation != wgpu.BlendOperationAdd {
		t.Errorf("color operation = %v, want add", alpha.Color.Operation)
	}

	add := blendState(gfx.StateBlendFunc(gfx.StateBlendOne, gfx.StateBlendOne) | gfx.StateBlendEquationMax)
	if add.Color.Operation != wgpu.BlendOperationMax {
		t.Errorf("color operation = %v, want max", add.Color.Operation)
	}
	if add.Color.SrcFactor != wgpu.BlendFactorOne || add.Color.DstFactor != wgpu.BlendFactorOne {
		t.Errorf("max blending must use factor one, got %v, %v", add.Color.SrcFactor, add.Color.DstFactor)
	}

	constant := blendState(gfx.StateBlendFunc(gfx.StateBlendFactor, gfx.StateBlendInvFactor))
	if constant.Alpha.SrcFactor != wgpu.BlendFactorConstant || constant.Alpha.DstFactor != wgpu.BlendFactorOneMinusConstant {
		t.Errorf("alpha factors = %v, %v", constant.Alpha.SrcFactor, constant.Alpha.DstFactor)
	}
}

func TestWriteMask(t *testing.T) {
	if got := writeMask(gfx.StateWriteRGB); got != wgpu.ColorWriteMaskRed|wgpu.ColorWriteMaskGreen|wgpu.ColorWriteMaskBlue {
		t.Errorf("writeMask(RGB) = %v", got)
	}
	if got := writeMask(gfx.StateWriteZ); got != wgpu.ColorWriteMaskNone {
		t.Errorf("writeMask(Z) = %v, want none", got)
	}
}

func TestPrimitiveState(t *testing.T) {
	tests := []struct {
		name     string
		state    gfx.StateFlags
		index32  bool
		topology wgpu.PrimitiveTopology
		cull     wgpu.CullMode
		strip    wgpu.IndexFormat
	}{
		{"default", gfx.StateDefault, false, wgpu.PrimitiveTopologyTriangleList, wgpu.CullModeBack, wgpu.IndexFormatUndefined},
		{"cull ccw", gfx.StateCullCCW, false, wgpu.PrimitiveTopologyTriangleList, wgpu.CullModeFront, wgpu.IndexFormatUndefined},
		{"tristrip", gfx.StatePtTriStrip, true, wgpu.PrimitiveTopologyTriangleStrip, wgpu.CullModeNone, wgpu.IndexFormatUint32},
		{"lines", gfx.StatePtLines, false, wgpu.PrimitiveTopologyLineList, wgpu.CullModeNone, wgpu.IndexFormatUndefined},
		{"linestrip", gfx.StatePtLineStrip, false, wgpu.PrimitiveTopologyLineStrip, wgpu.CullModeNone, wgpu.IndexFormatUint16},
		{"points", gfx.StatePtPoints, false, wgpu.PrimitiveTopologyPointList, wgpu.CullModeNone, wgpu.IndexFormatUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := primitiveState(tt.state, tt.index32)
			if got.Topology != tt.topology || got.CullMode != tt.cull || got.StripIndexFormat != tt.strip {
				t.Errorf("primitiveState() = %+v", got)
			}
			if got.FrontFace != wgpu.FrontFaceCCW {
				t.Errorf("FrontFace = %v, want ccw", got.FrontFace)
			}
		})
	}
}

func TestDepthCompare(t *testing.T) {
	if got := depthCompare(gfx.StateDepthTestLess); got != wgpu.CompareFunctionLess {
		t.Errorf("depthCompare(less) = %v", got)
	}
	if got := depthCompare(gfx.StateDepthTestGEqual); got != wgpu.CompareFunctionGreaterEqual {
		t.Errorf("depthCompare(gequal) = %v", got)
	}
	if got := depthCompare(0); got != wgpu.CompareFunctionAlways {
		t.Errorf("depthCompare(none) = %v, want always", got)
	}
}

func TestDepthStencilState(t *testing.T) {
	if depthStencilState(wgpu.TextureFormatUndefined, gfx.StateDefault, 0, 0) != nil {
		t.Fatal("no depth attachment must give no depth state")
	}

	ds := depthStencilState(wgpu.TextureFormatDepth24Plus, gfx.StateDefault, 0, 0)
	if !ds.DepthWriteEnabled || ds.DepthCompare != wgpu.CompareFunctionLess {
		t.Errorf("depth state = %+v", ds)
	}

	front := gfx.StencilTestEqual | gfx.StencilFuncRef(1) | gfx.StencilFuncRMask(0xf0) | gfx.StencilOpPassZReplace
	ds = depthStencilState(wgpu.TextureFormatDepth24Plus, gfx.StateDefault, front, 0)
	if ds.StencilFront.Compare != wgpu.CompareFunctionAlways {
		t.Error("stencil must be ignored on formats without stencil")
	}

	ds = depthStencilState(wgpu.TextureFormatDepth24PlusStencil8, gfx.StateDefault, front, 0)
	if ds.StencilFront.Compare != wgpu.CompareFunctionEqual || ds.StencilFront.PassOp != wgpu.StencilOperationReplace {
		t.Errorf("front face = %+v", ds.StencilFront)
	}
	if ds.StencilBack != ds.StencilFront {
		t.Errorf("back face = %+v, want front settings", ds.StencilBack)
	}
	if ds.StencilReadMask != 0xf0 || ds.StencilWriteMask != 0xff {
		t.Errorf("masks = %#x, %#x", ds.StencilReadMask, ds.StencilWriteMask)
	}
	if stencilRef(front) != 1 {
		t.Errorf("stencilRef = %d, want 1", stencilRef(front))
	}
}

func TestSamplerDescriptor(t *testing.T) {
	d := samplerDescriptor(gfx.SamplerUClamp|gfx.SamplerVMirror|gfx.SamplerMinPoint|gfx.SamplerMagPoint, true)
	if d.AddressModeU != wgpu.AddressModeClampToEdge || d.AddressModeV != wgpu.AddressModeMirrorRepeat || d.AddressModeW != wgpu.AddressModeRepeat {
		t.Errorf("address modes = %v, %v, %v", d.AddressModeU, d.AddressModeV, d.AddressModeW)
	}
	if d.MinFilter != wgpu.FilterModeNearest || d.MagFilter != wgpu.FilterModeNearest || d.MipmapFilter != wgpu.MipmapFilterModeLinear {
		t.Errorf("filters = %v, %v, %v", d.MinFilter, d.MagFilter, d.MipmapFilter)
	}

	border := samplerDescriptor(gfx.SamplerUBorder, true)
	if border.AddressModeU != wgpu.AddressModeClampToEdge {
		t.Errorf("border = %v, want clamp", border.AddressModeU)
	}

	unfiltered := samplerDescriptor(gfx.SamplerNone, false)
	if unfiltered.MinFilter != wgpu.FilterModeNearest || unfiltered.MipmapFilter != wgpu.MipmapFilterModeNearest {
		t.Error("non-filtering sampler must use nearest filtering")
	}
}

func TestClampRect(t *testing.T) {
	tests := []struct {
		name       string
		r          gfx.Rect
		x, y, w, h uint32
	}{
		{"zero is whole target", gfx.Rect{}, 0, 0, 800, 600},
		{"inside", gfx.Rect{X: 10, Y: 20, Width: 100, Height: 50}, 10, 20, 100, 50},
		{"overhang", gfx.Rect{X: 700, Y: 500, Width: 200, Height: 200}, 700, 500, 100, 100},
		{"outside", gfx.Rect{X: 900, Y: 0, Width: 10, Height: 10}, 800, 0, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, w, h := clampRect(tt.r, 800, 600)
			if x != tt.x || y != tt.y || w != tt.w || h != tt.h {
				t.Errorf("clampRect() = %d,%d,%d,%d, want %d,%d,%d,%d", x, y, w, h, tt.x, tt.y, tt.w, tt.h)
			}
		})
	}
}

func TestIntersectRect(t *testing.T) {
	x, y, w, h := intersectRect(0, 0, 100, 100, 50, 25, 100, 100)
	if x != 50 || y != 25 || w != 50 || h != 75 {
		t.Errorf("overlap = %d,%d,%d,%d", x, y, w, h)
	}
	_, _, w, h = intersectRect(0, 0, 10, 10, 20, 20, 10, 10)
	if w != 0 || h != 0 {
		t.Errorf("disjoint rectangles overlap: %d x %d", w, h)
	}
}

func TestUnpackColor(t *testing.T) {
	c := unpackColor(0xff0080ff)
	if c.R != 1 || c.G != 0 || c.B != float64(0x80)/255 || c.A != 1 {
		t.Errorf("unpackColor() = %+v", c)
	}
}

func TestAlignment(t *testing.T) {
	if got := alignTo(uint32(17), 16); got != 32 {
		t.Errorf("alignTo(17, 16) = %d", got)
	}
	if got := alignTo(uint64(256), 256); got != 256 {
		t.Errorf("alignTo(256, 256) = %d", got)
	}
	if got := alignTo(uint32(5), 0); got != 5 {
		t.Errorf("alignTo(5, 0) = %d", got)
	}
	if got := padded([]byte{1, 2, 3, 4, 5}); len(got) != 8 || got[4] != 5 || got[7] != 0 {
		t.Errorf("padded() = %v", got)
	}
}

func TestUniformStagingAlloc(t *testing.T) {
	s := uniformStaging{align: 256}
	off, dst := s.alloc(64)
	if off != 0 || len(dst) != 64 {
		t.Fatalf("first alloc = %d, %d bytes", off, len(dst))
	}
	dst[0] = 0xaa

	off, dst = s.alloc(80)
	if off != 256 || len(dst) != 80 {
		t.Fatalf("second alloc = %d, %d bytes", off, len(dst))
	}
	if s.data[0] != 0xaa {
		t.Error("growing the staging buffer lost earlier data")
	}
	if len(s.data) != 336 {
		t.Errorf("staged %d bytes, want 336", len(s.data))
	}

	s.reset()
	off, dst = s.alloc(16)
	if off != 0 || dst[0] != 0 {
		t.Errorf("alloc after reset = %d, first byte %#x", off, dst[0])
	}
}

func TestBuildCaps(t *testing.T) {
	caps := buildCaps(gfx.Limits{}, 8192)
	if caps.MaxTextureSize != 8192 || caps.HomogeneousDepth {
		t.Errorf("caps = %+v", caps)
	}
	if !caps.SupportsFormat(gfx.TextureFormatRGBA8, gfx.FormatSupport2D) {
		t.Error("RGBA8 must be sampleable")
	}
	if caps.SupportsFormat(gfx.TextureFormatRGBA32F, gfx.FormatSupport2D) {
		t.Error("RGBA32F must not be sampleable")
	}
	if !caps.SupportsFormat(gfx.TextureFormatRGBA32F, gfx.FormatSupportFrameBuffer) {
		t.Error("RGBA32F must be renderable")
	}
	if !caps.SupportsFormat(gfx.TextureFormatD24S8, gfx.FormatSupportFrameBuffer) {
		t.Error("D24S8 must be renderable")
	}
}
