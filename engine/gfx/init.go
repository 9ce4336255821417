package gfx

import (
	"fmt"
)

const (
	// MaxVertexStreams is the number of vertex buffers a single draw can bind.
	MaxVertexStreams = 4

	// MaxTextureSamplers is the number of texture stages a single draw can bind.
	MaxTextureSamplers = 16

	// MaxFrameBufferAttachments is the number of textures a frame buffer can hold.
	MaxFrameBufferAttachments = 8
)

// ThreadingMode selects how frames reach the backend. It is fixed at init.
type ThreadingMode uint8

const (
	// ThreadingSingle renders each frame inline inside Frame.
	ThreadingSingle ThreadingMode = iota

	// ThreadingMulti renders on a dedicated goroutine locked to its OS thread.
	// Frame returns without waiting for the backend unless MaxFrameLatency frames
	// are already in flight.
	ThreadingMulti

	// ThreadingManual renders on whichever thread calls RenderFrame. Use it when the
	// platform requires rendering on a specific thread the caller owns.
	ThreadingManual
)

func (m ThreadingMode) String() string {
	switch m {
	case ThreadingSingle:
		return "single"
	case ThreadingMulti:
		return "multi"
	case ThreadingManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Resolution describes the backbuffer.
type Resolution struct {
	Format          TextureFormat
	Width           uint32
	Height          uint32
	Reset           ResetFlags
	NumBackBuffers  uint8
	MaxFrameLatency uint8
}

// Limits bounds the resources and per-frame work a context accepts.
type Limits struct {
	MaxEncoders       uint16
	MaxViews          uint16
	MaxDrawCalls      uint32
	TransientVbSize   uint32
	TransientIbSize   uint32
	MaxVertexBuffers  uint16
	MaxIndexBuffers   uint16
	MaxDynamicBuffers uint16
	MaxShaders        uint16
	MaxPrograms       uint16
	MaxTextures       uint16
	MaxUniforms       uint16
	MaxFrameBuffers   uint16
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxEncoders:       8,
		MaxViews:          256,
		MaxDrawCalls:      65535,
		TransientVbSize:   6 << 20,
		TransientIbSize:   2 << 20,
		MaxVertexBuffers:  4096,
		MaxIndexBuffers:   4096,
		MaxDynamicBuffers: 4096,
		MaxShaders:        512,
		MaxPrograms:       512,
		MaxTextures:       4096,
		MaxUniforms:       512,
		MaxFrameBuffers:   128,
	}
}

// PlatformData carries the native handles a backend needs to present to a window.
// Values are passed through untouched; each backend documents what it expects.
// The wgpu backend expects NativeWindowHandle to provide a surface descriptor.
type PlatformData struct {
	NativeDisplayType  any
	NativeWindowHandle any
	Context            any
	BackBuffer         any
	BackBufferDS       any
}

// Init is the complete configuration of a context. Build one with DefaultInit and
// adjust it, or pass ContextBuilderOption values to NewContext.
type Init struct {
	Type       RendererType
	Resolution Resolution
	Limits     Limits
	Platform   PlatformData
	Threading  ThreadingMode
	Debug      DebugFlags

	// Strict makes draw submission return typed errors for invalid or stale handles
	// instead of silently dropping them.
	Strict bool
}

// DefaultInit returns an Init selecting the best available backend with a 1280x720
// RGBA8 backbuffer, vsync, single-threaded rendering and a frame latency of 2.
func DefaultInit() Init {
	return Init{
		Type: RendererTypeCount,
		Resolution: Resolution{
			Format:          TextureFormatRGBA8,
			Width:           1280,
			Height:          720,
			Reset:           ResetVSync,
			NumBackBuffers:  2,
			MaxFrameLatency: 2,
		},
		Limits:    DefaultLimits(),
		Threading: ThreadingSingle,
	}
}

// Validate reports the first out-of-range value in the configuration.
// The returned error wraps ErrInvalidConfig.
func (in *Init) Validate() error {
	switch {
	case in.Type > RendererTypeCount:
		return fmt.Errorf("%w: renderer type %d", ErrInvalidConfig, in.Type)
	case in.Threading > ThreadingManual:
		return fmt.Errorf("%w: threading mode %d", ErrInvalidConfig, in.Threading)
	case in.Resolution.Width == 0 || in.Resolution.Height == 0:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidConfig, in.Resolution.Width, in.Resolution.Height)
	case in.Resolution.Format >= TextureFormatCount || in.Resolution.Format.IsDepth():
		return fmt.Errorf("%w: backbuffer format %s", ErrInvalidConfig, in.Resolution.Format)
	case in.Resolution.MaxFrameLatency == 0 || in.Resolution.MaxFrameLatency > 3:
		return fmt.Errorf("%w: max frame latency %d (want 1..3)", ErrInvalidConfig, in.Resolution.MaxFrameLatency)
	case in.Limits.MaxEncoders == 0:
		return fmt.Errorf("%w: max encoders must be at least 1", ErrInvalidConfig)
	case in.Limits.MaxViews == 0 || in.Limits.MaxViews > 0x8000:
		return fmt.Errorf("%w: max views %d", ErrInvalidConfig, in.Limits.MaxViews)
	case in.Limits.MaxDrawCalls == 0:
		return fmt.Errorf("%w: max draw calls must be positive", ErrInvalidConfig)
	}
	return nil
}
