package gfx

// StateFlags is the render state bitmask applied to a draw. The layout follows the
// widely used bgfx encoding so state values can be shared with existing tools.
type StateFlags uint64

const (
	StateWriteR   StateFlags = 0x0000000000000001
	StateWriteG   StateFlags = 0x0000000000000002
	StateWriteB   StateFlags = 0x0000000000000004
	StateWriteA   StateFlags = 0x0000000000000008
	StateWriteZ   StateFlags = 0x0000004000000000
	StateWriteRGB            = StateWriteR | StateWriteG | StateWriteB
	StateWriteMask           = StateWriteRGB | StateWriteA | StateWriteZ

	StateDepthTestLess     StateFlags = 0x0000000000000010
	StateDepthTestLEqual   StateFlags = 0x0000000000000020
	StateDepthTestEqual    StateFlags = 0x0000000000000030
	StateDepthTestGEqual   StateFlags = 0x0000000000000040
	StateDepthTestGreater  StateFlags = 0x0000000000000050
	StateDepthTestNotEqual StateFlags = 0x0000000000000060
	StateDepthTestNever    StateFlags = 0x0000000000000070
	StateDepthTestAlways   StateFlags = 0x0000000000000080
	StateDepthTestShift               = 4
	StateDepthTestMask     StateFlags = 0x00000000000000f0

	StateBlendZero        StateFlags = 0x0000000000001000
	StateBlendOne         StateFlags = 0x0000000000002000
	StateBlendSrcColor    StateFlags = 0x0000000000003000
	StateBlendInvSrcColor StateFlags = 0x0000000000004000
	StateBlendSrcAlpha    StateFlags = 0x0000000000005000
	StateBlendInvSrcAlpha StateFlags = 0x0000000000006000
	StateBlendDstAlpha    StateFlags = 0x0000000000007000
	StateBlendInvDstAlpha StateFlags = 0x0000000000008000
	StateBlendDstColor    StateFlags = 0x0000000000009000
	StateBlendInvDstColor StateFlags = 0x000000000000a000
	StateBlendSrcAlphaSat StateFlags = 0x000000000000b000
	StateBlendFactor      StateFlags = 0x000000000000c000
	StateBlendInvFactor   StateFlags = 0x000000000000d000
	StateBlendShift                  = 12
	StateBlendMask        StateFlags = 0x000000000ffff000

	StateBlendEquationAdd    StateFlags = 0x0000000000000000
	StateBlendEquationSub    StateFlags = 0x0000000010000000
	StateBlendEquationRevSub StateFlags = 0x0000000020000000
	StateBlendEquationMin    StateFlags = 0x0000000030000000
	StateBlendEquationMax    StateFlags = 0x0000000040000000
	StateBlendEquationShift             = 28
	StateBlendEquationMask   StateFlags = 0x00000003f0000000

	StateCullCW    StateFlags = 0x0000001000000000
	StateCullCCW   StateFlags = 0x0000002000000000
	StateCullShift            = 36
	StateCullMask  StateFlags = 0x0000003000000000

	StateAlphaRefShift            = 40
	StateAlphaRefMask  StateFlags = 0x0000ff0000000000

	StatePtTriStrip  StateFlags = 0x0001000000000000
	StatePtLines     StateFlags = 0x0002000000000000
	StatePtLineStrip StateFlags = 0x0003000000000000
	StatePtPoints    StateFlags = 0x0004000000000000
	StatePtShift                = 48
	StatePtMask      StateFlags = 0x0007000000000000

	StateMSAA StateFlags = 0x0100000000000000

	StateNone StateFlags = 0
	// StateDefault writes color and depth, tests depth with less, culls clockwise faces
	// and enables multisampling.
	StateDefault = StateWriteRGB | StateWriteA | StateWriteZ | StateDepthTestLess | StateCullCW | StateMSAA
)

// StateBlendFunc builds a blend state using the same factors for color and alpha.
func StateBlendFunc(src, dst StateFlags) StateFlags {
	return StateBlendFuncSeparate(src, dst, src, dst)
}

// StateBlendFuncSeparate builds a blend state with separate color and alpha factors.
// Factors are the StateBlend* constants.
func StateBlendFuncSeparate(srcRGB, dstRGB, srcA, dstA StateFlags) StateFlags {
	return (srcRGB | dstRGB<<4) | ((srcA | dstA<<4) << 8)
}

// StateAlphaRef encodes an alpha reference value.
func StateAlphaRef(ref uint8) StateFlags {
	return StateFlags(ref) << StateAlphaRefShift & StateAlphaRefMask
}

// StateBlendAlpha is straight (non-premultiplied) alpha blending.
var StateBlendAlpha = StateBlendFunc(StateBlendSrcAlpha, StateBlendInvSrcAlpha)

// PrimitiveType returns the primitive topology encoded in the state.
func (s StateFlags) PrimitiveType() StateFlags { return s & StatePtMask }

// ClearFlags selects which attachments a view clears.
type ClearFlags uint16

const (
	ClearNone    ClearFlags = 0
	ClearColor   ClearFlags = 0x0001
	ClearDepth   ClearFlags = 0x0002
	ClearStencil ClearFlags = 0x0004
)

// BufferFlags configures vertex and index buffers.
type BufferFlags uint16

const (
	BufferNone         BufferFlags = 0
	BufferComputeRead  BufferFlags = 0x0100
	BufferComputeWrite BufferFlags = 0x0200
	BufferDrawIndirect BufferFlags = 0x0400
	BufferAllowResize  BufferFlags = 0x0800
	BufferIndex32      BufferFlags = 0x1000

	BufferComputeReadWrite = BufferComputeRead | BufferComputeWrite
)

// ResetFlags configures the backbuffer on Init and Reset.
type ResetFlags uint32

const (
	ResetNone              ResetFlags = 0
	ResetFullscreen        ResetFlags = 0x00000001
	ResetMSAAX2            ResetFlags = 0x00000010
	ResetMSAAX4            ResetFlags = 0x00000020
	ResetMSAAX8            ResetFlags = 0x00000030
	ResetMSAAX16           ResetFlags = 0x00000040
	ResetMSAAShift                    = 4
	ResetMSAAMask          ResetFlags = 0x00000070
	ResetVSync             ResetFlags = 0x00000080
	ResetMaxAnisotropy     ResetFlags = 0x00000100
	ResetCapture           ResetFlags = 0x00000200
	ResetFlushAfterRender  ResetFlags = 0x00002000
	ResetFlipAfterRender   ResetFlags = 0x00004000
	ResetSRGBBackbuffer    ResetFlags = 0x00008000
	ResetTransparentWindow ResetFlags = 0x00040000
)

// MSAASamples returns the sample count selected by the MSAA bits (1 when off).
func (f ResetFlags) MSAASamples() uint32 {
	n := uint32((f & ResetMSAAMask) >> ResetMSAAShift)
	if n == 0 {
		return 1
	}
	return 1 << n
}

// DebugFlags toggles debug features of the backend.
type DebugFlags uint32

const (
	DebugNone      DebugFlags = 0
	DebugWireframe DebugFlags = 0x00000001
	DebugIFH       DebugFlags = 0x00000002
	DebugStats     DebugFlags = 0x00000004
	DebugText      DebugFlags = 0x00000008
	DebugProfiler  DebugFlags = 0x00000010
)

// DiscardFlags selects which parts of the draw state are reset after Submit.
type DiscardFlags uint8

const (
	DiscardNone          DiscardFlags = 0
	DiscardBindings      DiscardFlags = 0x01
	DiscardIndexBuffer   DiscardFlags = 0x02
	DiscardInstanceData  DiscardFlags = 0x04
	DiscardState         DiscardFlags = 0x08
	DiscardTransform     DiscardFlags = 0x10
	DiscardVertexStreams DiscardFlags = 0x20
	DiscardAll           DiscardFlags = 0xff
)

// StencilFlags encodes stencil test and operations for one face.
type StencilFlags uint32

const (
	StencilNone    StencilFlags = 0
	StencilDefault StencilFlags = 0

	StencilFuncRefShift              = 0
	StencilFuncRefMask  StencilFlags = 0x000000ff
	StencilRMaskShift                = 8
	StencilRMaskMask    StencilFlags = 0x0000ff00
	StencilTestLess     StencilFlags = 0x00010000
	StencilTestLEqual   StencilFlags = 0x00020000
	StencilTestEqual    StencilFlags = 0x00030000
	StencilTestGEqual   StencilFlags = 0x00040000
	StencilTestGreater  StencilFlags = 0x00050000
	StencilTestNotEqual StencilFlags = 0x00060000
	StencilTestNever    StencilFlags = 0x00070000
	StencilTestAlways   StencilFlags = 0x00080000
	StencilTestMask     StencilFlags = 0x000f0000

	StencilOpFailSReplace StencilFlags = 0x00200000
	StencilOpFailZReplace StencilFlags = 0x02000000
	StencilOpPassZReplace StencilFlags = 0x20000000
)

// StencilFuncRef encodes the stencil reference value.
func StencilFuncRef(ref uint8) StencilFlags {
	return StencilFlags(ref) << StencilFuncRefShift & StencilFuncRefMask
}

// StencilFuncRMask encodes the stencil read mask.
func StencilFuncRMask(mask uint8) StencilFlags {
	return StencilFlags(mask) << StencilRMaskShift & StencilRMaskMask
}

// TextureFlags configures textures at creation. The low 32 bits hold the default
// sampler flags of the texture.
type TextureFlags uint64

const (
	TextureNone         TextureFlags = 0
	TextureMSAASample   TextureFlags = 0x0000000800000000
	TextureRT           TextureFlags = 0x0000001000000000
	TextureComputeWrite TextureFlags = 0x0000100000000000
	TextureSRGB         TextureFlags = 0x0000200000000000
	TextureBlitDst      TextureFlags = 0x0000400000000000
	TextureReadBack     TextureFlags = 0x0000800000000000
	TextureRTWriteOnly  TextureFlags = 0x0000008000000000
)

// Sampler returns the sampler bits stored in the texture flags.
func (f TextureFlags) Sampler() SamplerFlags { return SamplerFlags(f & 0xffffffff) }

// SamplerFlags configures texture sampling.
type SamplerFlags uint32

const (
	SamplerNone     SamplerFlags = 0
	SamplerUMirror  SamplerFlags = 0x00000001
	SamplerUClamp   SamplerFlags = 0x00000002
	SamplerUBorder  SamplerFlags = 0x00000003
	SamplerUMask    SamplerFlags = 0x00000003
	SamplerVMirror  SamplerFlags = 0x00000004
	SamplerVClamp   SamplerFlags = 0x00000008
	SamplerVBorder  SamplerFlags = 0x0000000c
	SamplerVMask    SamplerFlags = 0x0000000c
	SamplerWMirror  SamplerFlags = 0x00000010
	SamplerWClamp   SamplerFlags = 0x00000020
	SamplerWMask    SamplerFlags = 0x00000030
	SamplerMinPoint SamplerFlags = 0x00000040
	SamplerMagPoint SamplerFlags = 0x00000100
	SamplerMipPoint SamplerFlags = 0x00000400

	SamplerUVWClamp = SamplerUClamp | SamplerVClamp | SamplerWClamp
	SamplerPoint    = SamplerMinPoint | SamplerMagPoint | SamplerMipPoint

	// SamplerInherit uses the sampler flags the texture was created with.
	SamplerInherit SamplerFlags = 0xffffffff
)
