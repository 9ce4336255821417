package gfx

// ContextBuilderOption is a functional option for configuring a Context.
// Use the With* functions to create options; they are applied in order on top of
// DefaultInit before the configuration is validated.
type ContextBuilderOption func(in *Init)

// WithInit replaces the whole configuration. Options after it still apply.
//
// Parameters:
//   - init: the configuration to start from
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithInit(init Init) ContextBuilderOption {
	return func(in *Init) {
		*in = init
	}
}

// WithRendererType selects the backend. RendererTypeCount picks the best registered one.
//
// Parameters:
//   - t: the renderer type
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithRendererType(t RendererType) ContextBuilderOption {
	return func(in *Init) {
		in.Type = t
	}
}

// WithResolution sets the backbuffer size.
//
// Parameters:
//   - width: backbuffer width in pixels
//   - height: backbuffer height in pixels
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithResolution(width, height uint32) ContextBuilderOption {
	return func(in *Init) {
		in.Resolution.Width = width
		in.Resolution.Height = height
	}
}

// WithBackBufferFormat sets the backbuffer color format.
//
// Parameters:
//   - format: the color format
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithBackBufferFormat(format TextureFormat) ContextBuilderOption {
	return func(in *Init) {
		in.Resolution.Format = format
	}
}

// WithResetFlags sets the initial reset flags (vsync, MSAA, ...).
//
// Parameters:
//   - flags: the reset flags
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithResetFlags(flags ResetFlags) ContextBuilderOption {
	return func(in *Init) {
		in.Resolution.Reset = flags
	}
}

// WithPlatformData sets the native handles used to present.
//
// Parameters:
//   - pd: the platform data, usually obtained from a window
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithPlatformData(pd PlatformData) ContextBuilderOption {
	return func(in *Init) {
		in.Platform = pd
	}
}

// WithThreading selects the threading mode.
//
// Parameters:
//   - mode: ThreadingSingle, ThreadingMulti or ThreadingManual
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithThreading(mode ThreadingMode) ContextBuilderOption {
	return func(in *Init) {
		in.Threading = mode
	}
}

// WithMaxFrameLatency bounds how many frames may be queued ahead of the backend.
//
// Parameters:
//   - n: number of frames in flight (1 to 3)
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithMaxFrameLatency(n uint8) ContextBuilderOption {
	return func(in *Init) {
		in.Resolution.MaxFrameLatency = n
	}
}

// WithLimits replaces the resource and per-frame limits.
//
// Parameters:
//   - limits: the limits to apply
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithLimits(limits Limits) ContextBuilderOption {
	return func(in *Init) {
		in.Limits = limits
	}
}

// WithStrict enables typed errors from Submit, Dispatch and Touch.
//
// Parameters:
//   - strict: true to report invalid handles as errors
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithStrict(strict bool) ContextBuilderOption {
	return func(in *Init) {
		in.Strict = strict
	}
}

// WithDebug sets the initial debug flags.
//
// Parameters:
//   - flags: the debug flags
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithDebug(flags DebugFlags) ContextBuilderOption {
	return func(in *Init) {
		in.Debug = flags
	}
}
