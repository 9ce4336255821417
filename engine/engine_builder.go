package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/config"
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gfx/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfilerOptions passes options to the engine's profiler.
//
// Parameters:
//   - options: profiler options such as profiler.WithInterval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfilerOptions(options ...profiler.ProfilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.profilerOptions = append(e.profilerOptions, options...)
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally. The engine does not close a window it was given.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithWindowOptions configures the window the engine opens. Ignored with WithWindow.
//
// Parameters:
//   - options: window options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindowOptions(options ...window.WindowBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.windowOptions = append(e.windowOptions, options...)
	}
}

// WithContextOptions configures the gfx context. The platform data and resolution
// always come from the window.
//
// Parameters:
//   - options: gfx context options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithContextOptions(options ...gfx.ContextBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.contextOptions = append(e.contextOptions, options...)
	}
}

// WithWorkers sets the size of the pool running encoder jobs.
// Values <= 0 keep the default of one worker per CPU.
//
// Parameters:
//   - n: maximum number of workers
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.numWorkers = n
		}
	}
}

// WithConfig applies a loaded configuration file: window and context options, the
// worker count and, when profiler_interval is set, profiling.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if cfg == nil {
			return
		}
		e.windowOptions = append(e.windowOptions, cfg.WindowOptions()...)
		e.contextOptions = append(e.contextOptions, cfg.ContextOptions()...)
		if cfg.Workers > 0 {
			e.numWorkers = cfg.Workers
		}
		if interval := cfg.ProfilerInterval.Duration(); interval > 0 {
			e.profilingEnabled.Store(true)
			e.profilerOptions = append(e.profilerOptions, profiler.WithInterval(interval))
		}
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
