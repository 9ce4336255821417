package gfx

import "time"

// CapsFlags lists optional backend features.
type CapsFlags uint64

const (
	CapsCompute               CapsFlags = 0x0001
	CapsIndex32               CapsFlags = 0x0002
	CapsInstancing            CapsFlags = 0x0004
	CapsDrawIndirect          CapsFlags = 0x0008
	CapsSwapChain             CapsFlags = 0x0010
	CapsTexture2DArray        CapsFlags = 0x0020
	CapsVertexAttribHalf      CapsFlags = 0x0040
	CapsRendererMultithreaded CapsFlags = 0x0080
)

// FormatSupport lists how a texture format may be used.
type FormatSupport uint16

const (
	FormatSupportNone        FormatSupport = 0
	FormatSupport2D          FormatSupport = 0x0001
	FormatSupportFrameBuffer FormatSupport = 0x0002
	FormatSupportMSAA        FormatSupport = 0x0004
	FormatSupportMips        FormatSupport = 0x0008
	FormatSupportImageWrite  FormatSupport = 0x0010
)

// Caps describes what the active backend supports.
type Caps struct {
	RendererType     RendererType
	Supported        CapsFlags
	Limits           Limits
	Formats          [TextureFormatCount]FormatSupport
	HomogeneousDepth bool
	OriginBottomLeft bool
	MaxTextureSize   uint32
}

// Has reports whether all of flags are supported.
func (c Caps) Has(flags CapsFlags) bool { return c.Supported&flags == flags }

// SupportsFormat reports whether format can be used with every usage in usage.
func (c Caps) SupportsFormat(format TextureFormat, usage FormatSupport) bool {
	if format >= TextureFormatCount {
		return false
	}
	return c.Formats[format]&usage == usage && c.Formats[format] != FormatSupportNone
}

// ViewStats are per-view counters of the last rendered frame.
type ViewStats struct {
	Name    string
	View    ViewID
	NumDraw uint32
}

// Stats are counters of the last rendered frame.
type Stats struct {
	FrameNumber     uint32
	NumDraw         uint32
	NumCompute      uint32
	NumPrims        uint64
	NumEncoders     uint16
	NumViews        uint16
	ViewStats       []ViewStats
	CPUTimeFrame    time.Duration
	WaitSubmit      time.Duration
	WaitRender      time.Duration
	TransientVbUsed uint32
	TransientIbUsed uint32
	Width           uint32
	Height          uint32
}
