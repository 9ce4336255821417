package wgpu_backend

import (
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/cogentcore/webgpu/wgpu"
)

var textureFormats = [gfx.TextureFormatCount]wgpu.TextureFormat{
	gfx.TextureFormatUnknown: wgpu.TextureFormatUndefined,
	gfx.TextureFormatR8:      wgpu.TextureFormatR8Unorm,
	gfx.TextureFormatR16F:    wgpu.TextureFormatR16Float,
	gfx.TextureFormatR32F:    wgpu.TextureFormatR32Float,
	gfx.TextureFormatRG8:     wgpu.TextureFormatRG8Unorm,
	gfx.TextureFormatRG16F:   wgpu.TextureFormatRG16Float,
	gfx.TextureFormatRGBA8:   wgpu.TextureFormatRGBA8Unorm,
	gfx.TextureFormatBGRA8:   wgpu.TextureFormatBGRA8Unorm,
	gfx.TextureFormatRGBA16F: wgpu.TextureFormatRGBA16Float,
	gfx.TextureFormatRGBA32F: wgpu.TextureFormatRGBA32Float,
	gfx.TextureFormatD16:     wgpu.TextureFormatDepth16Unorm,
	gfx.TextureFormatD24:     wgpu.TextureFormatDepth24Plus,
	gfx.TextureFormatD24S8:   wgpu.TextureFormatDepth24PlusStencil8,
	gfx.TextureFormatD32F:    wgpu.TextureFormatDepth32Float,
}

// textureFormat maps a gfx format to its WebGPU equivalent. Unknown resolves to RGBA8
// for color and D24S8 for depth. srgb selects the sRGB variant where one exists.
func textureFormat(f gfx.TextureFormat, depth, srgb bool) wgpu.TextureFormat {
	if f == gfx.TextureFormatUnknown || f >= gfx.TextureFormatCount {
		f = gfx.TextureFormatRGBA8
		if depth {
			f = gfx.TextureFormatD24S8
		}
	}
	out := textureFormats[f]
	if srgb {
		switch out {
		case wgpu.TextureFormatRGBA8Unorm:
			out = wgpu.TextureFormatRGBA8UnormSrgb
		case wgpu.TextureFormatBGRA8Unorm:
			out = wgpu.TextureFormatBGRA8UnormSrgb
		}
	}
	return out
}

func isDepthFormat(f wgpu.TextureFormat) bool {
	switch f {
	case wgpu.TextureFormatDepth16Unorm, wgpu.TextureFormatDepth24Plus,
		wgpu.TextureFormatDepth24PlusStencil8, wgpu.TextureFormatDepth32Float:
		return true
	}
	return false
}

func hasStencil(f wgpu.TextureFormat) bool {
	return f == wgpu.TextureFormatDepth24PlusStencil8
}

// filterable reports whether textures of format f can be sampled with a filtering
// sampler without optional device features.
func filterable(f wgpu.TextureFormat) bool {
	return f != wgpu.TextureFormatR32Float && f != wgpu.TextureFormatRGBA32Float && !isDepthFormat(f)
}

// vertexFormat maps one layout attribute to a vertex format. WebGPU has no packed
// 10-bit or three-component 8/16-bit formats, so those report false.
func vertexFormat(a gfx.VertexAttribute) (wgpu.VertexFormat, bool) {
	switch a.Type {
	case gfx.AttribTypeFloat:
		switch a.Num {
		case 1:
			return wgpu.VertexFormatFloat32, true
		case 2:
			return wgpu.VertexFormatFloat32x2, true
		case 3:
			return wgpu.VertexFormatFloat32x3, true
		case 4:
			return wgpu.VertexFormatFloat32x4, true
		}
	case gfx.AttribTypeHalf:
		switch a.Num {
		case 2:
			return wgpu.VertexFormatFloat16x2, true
		case 4:
			return wgpu.VertexFormatFloat16x4, true
		}
	case gfx.AttribTypeUint8:
		switch {
		case a.Num == 2 && a.Normalized:
			return wgpu.VertexFormatUnorm8x2, true
		case a.Num == 4 && a.Normalized:
			return wgpu.VertexFormatUnorm8x4, true
		case a.Num == 2:
			return wgpu.VertexFormatUint8x2, true
		case a.Num == 4:
			return wgpu.VertexFormatUint8x4, true
		}
	case gfx.AttribTypeInt16:
		switch {
		case a.Num == 2 && a.Normalized:
			return wgpu.VertexFormatSnorm16x2, true
		case a.Num == 4 && a.Normalized:
			return wgpu.VertexFormatSnorm16x4, true
		case a.Num == 2:
			return wgpu.VertexFormatSint16x2, true
		case a.Num == 4:
			return wgpu.VertexFormatSint16x4, true
		}
	}
	return wgpu.VertexFormatUndefined, false
}

// vertexBufferLayout converts a gfx layout. Shader locations are the gfx attribute
// ids, so a_texcoord0 is always @location(10).
func vertexBufferLayout(l *gfx.VertexLayout) wgpu.VertexBufferLayout {
	out := wgpu.VertexBufferLayout{
		ArrayStride: uint64(l.Stride()),
		StepMode:    wgpu.VertexStepModeVertex,
	}
	for _, a := range l.Attributes() {
		format, ok := vertexFormat(a)
		if !ok {
			gfx.Logger().Warn("wgpu: unsupported vertex attribute", "attrib", a.Attrib.String(), "num", a.Num, "type", a.Type)
			continue
		}
		out.Attributes = append(out.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(a.Offset),
			ShaderLocation: uint32(a.Attrib),
		})
	}
	return out
}

var compareFunctions = [...]wgpu.CompareFunction{
	0: wgpu.CompareFunctionAlways,
	1: wgpu.CompareFunctionLess,
	2: wgpu.CompareFunctionLessEqual,
	3: wgpu.CompareFunctionEqual,
	4: wgpu.CompareFunctionGreaterEqual,
	5: wgpu.CompareFunctionGreater,
	6: wgpu.CompareFunctionNotEqual,
	7: wgpu.CompareFunctionNever,
	8: wgpu.CompareFunctionAlways,
}

func compareFunction(index uint64) wgpu.CompareFunction {
	if index < uint64(len(compareFunctions)) {
		return compareFunctions[index]
	}
	return wgpu.CompareFunctionAlways
}

// depthCompare returns the depth test encoded in state. No test means Always.
func depthCompare(state gfx.StateFlags) wgpu.CompareFunction {
	return compareFunction(uint64(state&gfx.StateDepthTestMask) >> gfx.StateDepthTestShift)
}

var blendFactors = [...]wgpu.BlendFactor{
	0:  wgpu.BlendFactorOne,
	1:  wgpu.BlendFactorZero,
	2:  wgpu.BlendFactorOne,
	3:  wgpu.BlendFactorSrc,
	4:  wgpu.BlendFactorOneMinusSrc,
	5:  wgpu.BlendFactorSrcAlpha,
	6:  wgpu.BlendFactorOneMinusSrcAlpha,
	7:  wgpu.BlendFactorDstAlpha,
	8:  wgpu.BlendFactorOneMinusDstAlpha,
	9:  wgpu.BlendFactorDst,
	10: wgpu.BlendFactorOneMinusDst,
	11: wgpu.BlendFactorSrcAlphaSaturated,
	12: wgpu.BlendFactorConstant,
	13: wgpu.BlendFactorOneMinusConstant,
}

func blendFactor(index uint64) wgpu.BlendFactor {
	if index < uint64(len(blendFactors)) {
		return blendFactors[index]
	}
	return wgpu.BlendFactorOne
}

var blendOperations = [...]wgpu.BlendOperation{
	wgpu.BlendOperationAdd,
	wgpu.BlendOperationSubtract,
	wgpu.BlendOperationReverseSubtract,
	wgpu.BlendOperationMin,
	wgpu.BlendOperationMax,
}

func blendOperation(index uint64) wgpu.BlendOperation {
	if index < uint64(len(blendOperations)) {
		return blendOperations[index]
	}
	return wgpu.BlendOperationAdd
}

// blendState decodes the blend function and equation of state, or nil when blending
// is off.
func blendState(state gfx.StateFlags) *wgpu.BlendState {
	bits := uint64(state&gfx.StateBlendMask) >> gfx.StateBlendShift
	if bits == 0 {
		return nil
	}
	eq := uint64(state&gfx.StateBlendEquationMask) >> gfx.StateBlendEquationShift

	color := wgpu.BlendComponent{
		SrcFactor: blendFactor(bits & 0xf),
		DstFactor: blendFactor(bits >> 4 & 0xf),
		Operation: blendOperation(eq & 0x7),
	}
	alpha := wgpu.BlendComponent{
		SrcFactor: blendFactor(bits >> 8 & 0xf),
		DstFactor: blendFactor(bits >> 12 & 0xf),
		Operation: blendOperation(eq >> 3 & 0x7),
	}
	// Min and Max ignore the factors but WebGPU requires them to be One.
	for _, c := range []*wgpu.BlendComponent{&color, &alpha} {
		if c.Operation == wgpu.BlendOperationMin || c.Operation == wgpu.BlendOperationMax {
			c.SrcFactor, c.DstFactor = wgpu.BlendFactorOne, wgpu.BlendFactorOne
		}
	}
	return &wgpu.BlendState{Color: color, Alpha: alpha}
}

// writeMask returns the color channels state writes to.
func writeMask(state gfx.StateFlags) wgpu.ColorWriteMask {
	mask := wgpu.ColorWriteMaskNone
	if state&gfx.StateWriteR != 0 {
		mask |= wgpu.ColorWriteMaskRed
	}
	if state&gfx.StateWriteG != 0 {
		mask |= wgpu.ColorWriteMaskGreen
	}
	if state&gfx.StateWriteB != 0 {
		mask |= wgpu.ColorWriteMaskBlue
	}
	if state&gfx.StateWriteA != 0 {
		mask |= wgpu.ColorWriteMaskAlpha
	}
	return mask
}

// primitiveState decodes topology and culling. Triangles are wound counter-clockwise,
// so culling clockwise faces culls the back.
func primitiveState(state gfx.StateFlags, index32 bool) wgpu.PrimitiveState {
	out := wgpu.PrimitiveState{
		Topology:  wgpu.PrimitiveTopologyTriangleList,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpu.CullModeNone,
	}
	strip := false
	switch state.PrimitiveType() {
	case gfx.StatePtTriStrip:
		out.Topology, strip = wgpu.PrimitiveTopologyTriangleStrip, true
	case gfx.StatePtLines:
		out.Topology = wgpu.PrimitiveTopologyLineList
	case gfx.StatePtLineStrip:
		out.Topology, strip = wgpu.PrimitiveTopologyLineStrip, true
	case gfx.StatePtPoints:
		out.Topology = wgpu.PrimitiveTopologyPointList
	}
	if strip {
		out.StripIndexFormat = indexFormat(index32)
	}
	switch state & gfx.StateCullMask {
	case gfx.StateCullCW:
		out.CullMode = wgpu.CullModeBack
	case gfx.StateCullCCW:
		out.CullMode = wgpu.CullModeFront
	}
	return out
}

func indexFormat(index32 bool) wgpu.IndexFormat {
	if index32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}

var stencilOperations = [...]wgpu.StencilOperation{
	wgpu.StencilOperationZero,
	wgpu.StencilOperationKeep,
	wgpu.StencilOperationReplace,
	wgpu.StencilOperationIncrementWrap,
	wgpu.StencilOperationIncrementClamp,
	wgpu.StencilOperationDecrementWrap,
	wgpu.StencilOperationDecrementClamp,
	wgpu.StencilOperationInvert,
}

func stencilOperation(index uint32) wgpu.StencilOperation {
	if int(index) < len(stencilOperations) {
		return stencilOperations[index]
	}
	return wgpu.StencilOperationKeep
}

// stencilFace decodes the test and operations of one face. A zero value keeps the
// stencil buffer untouched.
func stencilFace(s gfx.StencilFlags) wgpu.StencilFaceState {
	if s == gfx.StencilNone {
		return wgpu.StencilFaceState{
			Compare:     wgpu.CompareFunctionAlways,
			FailOp:      wgpu.StencilOperationKeep,
			DepthFailOp: wgpu.StencilOperationKeep,
			PassOp:      wgpu.StencilOperationKeep,
		}
	}
	return wgpu.StencilFaceState{
		Compare:     compareFunction(uint64(s&gfx.StencilTestMask) >> 16),
		FailOp:      stencilOperation(uint32(s) >> 20 & 0xf),
		DepthFailOp: stencilOperation(uint32(s) >> 24 & 0xf),
		PassOp:      stencilOperation(uint32(s) >> 28 & 0xf),
	}
}

func stencilReadMask(s gfx.StencilFlags) uint32 {
	return uint32(s&gfx.StencilRMaskMask) >> gfx.StencilRMaskShift
}

func stencilRef(s gfx.StencilFlags) uint32 {
	return uint32(s&gfx.StencilFuncRefMask) >> gfx.StencilFuncRefShift
}

// depthStencilState builds the depth and stencil state of a draw for an attachment of
// the given format.
func depthStencilState(format wgpu.TextureFormat, state gfx.StateFlags, front, back gfx.StencilFlags) *wgpu.DepthStencilState {
	if format == wgpu.TextureFormatUndefined {
		return nil
	}
	out := &wgpu.DepthStencilState{
		Format:            format,
		DepthWriteEnabled: state&gfx.StateWriteZ != 0,
		DepthCompare:      depthCompare(state),
		StencilFront:      stencilFace(gfx.StencilNone),
		StencilBack:       stencilFace(gfx.StencilNone),
	}
	if hasStencil(format) && front != gfx.StencilNone {
		// A zero back face uses the front face settings.
		if back == gfx.StencilNone {
			back = front
		}
		out.StencilFront = stencilFace(front)
		out.StencilBack = stencilFace(back)
		out.StencilReadMask = stencilReadMask(front)
		out.StencilWriteMask = 0xff
	}
	return out
}

var addressModes = [...]wgpu.AddressMode{
	wgpu.AddressModeRepeat,
	wgpu.AddressModeMirrorRepeat,
	wgpu.AddressModeClampToEdge,
	// WebGPU has no border mode.
	wgpu.AddressModeClampToEdge,
}

func filterMode(point bool) wgpu.FilterMode {
	if point {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

// samplerDescriptor decodes sampler flags. filtering is false for textures that
// cannot be sampled with linear filtering.
func samplerDescriptor(f gfx.SamplerFlags, filtering bool) *wgpu.SamplerDescriptor {
	mip := wgpu.MipmapFilterModeLinear
	if f&gfx.SamplerMipPoint != 0 || !filtering {
		mip = wgpu.MipmapFilterModeNearest
	}
	return &wgpu.SamplerDescriptor{
		Label:         "gfx sampler",
		AddressModeU:  addressModes[f&gfx.SamplerUMask],
		AddressModeV:  addressModes[(f&gfx.SamplerVMask)>>2],
		AddressModeW:  addressModes[(f&gfx.SamplerWMask)>>4],
		MagFilter:     filterMode(f&gfx.SamplerMagPoint != 0 || !filtering),
		MinFilter:     filterMode(f&gfx.SamplerMinPoint != 0 || !filtering),
		MipmapFilter:  mip,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// clampRect intersects r with a target of width by height pixels. A zero r means the
// whole target.
func clampRect(r gfx.Rect, width, height uint32) (x, y, w, h uint32) {
	if r.IsZero() {
		return 0, 0, width, height
	}
	x = min(uint32(r.X), width)
	y = min(uint32(r.Y), height)
	w = min(uint32(r.Width), width-x)
	h = min(uint32(r.Height), height-y)
	return x, y, w, h
}

// intersectRect returns the overlap of two rectangles given as x, y, w, h.
func intersectRect(ax, ay, aw, ah, bx, by, bw, bh uint32) (x, y, w, h uint32) {
	x, y = max(ax, bx), max(ay, by)
	right, bottom := min(ax+aw, bx+bw), min(ay+ah, by+bh)
	if right <= x || bottom <= y {
		return x, y, 0, 0
	}
	return x, y, right - x, bottom - y
}

// unpackColor converts a 0xRRGGBBAA value to a WebGPU color.
func unpackColor(rgba uint32) wgpu.Color {
	return wgpu.Color{
		R: float64(rgba>>24&0xff) / 255,
		G: float64(rgba>>16&0xff) / 255,
		B: float64(rgba>>8&0xff) / 255,
		A: float64(rgba&0xff) / 255,
	}
}

// alignTo rounds v up to a multiple of align.
func alignTo[T ~uint32 | ~uint64](v, align T) T {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// padded returns data extended with zeros to a multiple of 4 bytes, as required by
// queue writes.
func padded(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, alignTo(uint32(len(data)), 4))
	copy(out, data)
	return out
}
