package engine

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gfx/engine/window"
)

// pumpTimeout bounds how long the main goroutine waits for a frame before it polls
// window events again.
const pumpTimeout = 4 * time.Millisecond

// EncoderJob records draws for one frame into its own encoder. Jobs of the same frame
// run in parallel on the engine worker pool.
type EncoderJob func(enc gfx.Encoder, deltaTime float32)

// engine implements the Engine interface.
// Coordinates the main (window and render) goroutine, the API goroutine and the tick goroutine.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	apiDone     chan struct{}

	window         window.Window
	ownsWindow     bool
	windowOptions  []window.WindowBuilderOption
	contextOptions []gfx.ContextBuilderOption
	ctx            gfx.Context
	threading      gfx.ThreadingMode
	resetFlags     gfx.ResetFlags

	pool       worker.DynamicWorkerPool
	numWorkers int
	jobsMu     sync.Mutex
	jobs       []EncoderJob

	profiler         *profiler.Profiler
	profilerOptions  []profiler.ProfilerBuilderOption
	profilingEnabled atomic.Bool

	tickMu         sync.Mutex // Guards engineTickRate and the running transition
	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(ctx gfx.Context, deltaTime float32)
	resizeCallback func(width, height uint32)

	resizeMu      sync.Mutex
	pendingResize *[2]uint32

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for applications.
// It owns the window and the gfx context and orchestrates the frame loop: the main
// goroutine pumps window events and renders, a separate API goroutine records and
// submits frames.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Context returns the gfx context. Resources may be created from any goroutine,
	// draws are recorded from the render callback or encoder jobs.
	//
	// Returns:
	//   - gfx.Context: the context
	Context() gfx.Context

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, input processing and animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called once per frame on the API goroutine,
	// before encoder jobs run. It records into the context's main encoder and sets up views.
	//
	// Parameters:
	//   - callback: function receiving the context and the delta time in seconds
	SetRenderCallback(callback func(ctx gfx.Context, deltaTime float32))

	// SetResizeCallback registers the function called on the API goroutine after the
	// backbuffer was reset to a new window size. Views must be re-sized from here.
	//
	// Parameters:
	//   - callback: function receiving the new backbuffer size
	SetResizeCallback(callback func(width, height uint32))

	// AddEncoderJob registers a job that records into its own encoder every frame.
	//
	// Parameters:
	//   - job: the job to add
	AddEncoderJob(job EncoderJob)

	// ClearEncoderJobs removes every registered encoder job.
	ClearEncoderJobs()

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the frame loop and blocks until the window closes or Quit is called.
	// It must be called from the main goroutine. The context is shut down and an owned
	// window is closed before Run returns.
	//
	// Returns:
	//   - error: error if the render goroutine panicked
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Opens the window unless one was given with WithWindow, then creates the gfx context
// for it. Must be called from the main goroutine.
//
// Parameters:
//   - options: functional options for engine configuration (window, context, profiling, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the window or the context could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	runtime.LockOSThread()

	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		apiDone:         make(chan struct{}),
		wg:              sync.WaitGroup{},
		engineTickRate:  time.Second / 60,
		numWorkers:      runtime.NumCPU(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		w, err := window.NewWindow(e.windowOptions...)
		if err != nil {
			return nil, err
		}
		e.window = w
		e.ownsWindow = true
	}

	// The engine pumps RenderFrame itself; explicit options may still pick another mode.
	ctxOptions := []gfx.ContextBuilderOption{
		gfx.WithThreading(gfx.ThreadingManual),
		gfx.WithPlatformData(e.window.PlatformData()),
	}
	ctxOptions = append(ctxOptions, e.contextOptions...)
	ctxOptions = append(ctxOptions, gfx.WithResolution(uint32(e.window.Width()), uint32(e.window.Height())))

	in := gfx.DefaultInit()
	for _, opt := range ctxOptions {
		opt(&in)
	}
	e.threading = in.Threading
	e.resetFlags = in.Resolution.Reset

	ctx, err := gfx.NewContext(ctxOptions...)
	if err != nil {
		if e.ownsWindow {
			_ = e.window.Close()
		}
		return nil, fmt.Errorf("failed to create gfx context: %w", err)
	}
	e.ctx = ctx

	e.pool = worker.NewDynamicWorkerPool(e.numWorkers, 256, time.Second)
	e.profiler = profiler.NewProfiler(e.profilerOptions...)

	e.window.SetResizeCallback(func(width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		e.resizeMu.Lock()
		e.pendingResize = &[2]uint32{uint32(width), uint32(height)}
		e.resizeMu.Unlock()
	})
	e.window.SetCloseCallback(e.signalQuit)

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Context() gfx.Context {
	return e.ctx
}

func (e *engine) Run() error {
	var renderErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				renderErr = fmt.Errorf("render loop panicked: %v", r)
				log.Printf("render loop recovered from panic: %v", r)
			}
		}()

		e.handle()
		for e.window.IsRunning() && !e.quitting() {
			window.PollEvents()
			e.pump()
		}
	}()

	e.signalQuit()
	// The API goroutine may be blocked in Frame waiting for a latency slot, keep rendering until it exits.
	for !e.apiExited() {
		e.pump()
	}
	e.wg.Wait()

	e.ctx.Shutdown()
	e.pool.Stop()
	if e.ownsWindow {
		_ = e.window.Close()
	}
	return renderErr
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

func (e *engine) apiExited() bool {
	select {
	case <-e.apiDone:
		return true
	default:
		return false
	}
}

func (e *engine) quitting() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

// pump renders one queued frame on the main goroutine when the context runs manual
// threading. Other modes render elsewhere, so it only yields.
func (e *engine) pump() {
	if e.threading == gfx.ThreadingManual {
		e.ctx.RenderFrame(pumpTimeout)
		return
	}
	time.Sleep(time.Millisecond)
}

// handle launches the API and tick goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.tickMu.Lock()
	e.running.Store(true)
	rate := e.engineTickRate
	e.tickMu.Unlock()

	e.wg.Add(2)
	go e.handleEngine(rate)
	go e.handleFrames()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine(rate time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.tickMu.Lock()
			e.engineTickRate = newRate
			e.tickMu.Unlock()
		}
	}
}

// handleFrames is the API goroutine. It records and submits one frame per iteration
// until quit is signalled or the context shuts down.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleFrames() {
	defer e.wg.Done()
	defer close(e.apiDone)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("frame goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastFrame := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now

		if status := e.frame(dt); status == gfx.RenderFrameExiting {
			e.signalQuit()
			return
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// frame records and submits a single frame.
func (e *engine) frame(dt float32) gfx.RenderFrameStatus {
	e.applyResize()

	if e.renderCallback != nil {
		e.renderCallback(e.ctx, dt)
	}
	e.runJobs(dt)

	_, status := e.ctx.Frame(false)

	if e.profilingEnabled.Load() && e.profiler != nil {
		e.profiler.Tick(e.ctx.Stats())
	}
	return status
}

// applyResize resets the backbuffer to the last size reported by the window.
func (e *engine) applyResize() {
	e.resizeMu.Lock()
	size := e.pendingResize
	e.pendingResize = nil
	e.resizeMu.Unlock()
	if size == nil {
		return
	}

	e.ctx.Reset(size[0], size[1], e.resetFlags, gfx.TextureFormatCount)
	if e.resizeCallback != nil {
		e.resizeCallback(size[0], size[1])
	}
}

// runJobs fans the encoder jobs out to the worker pool and waits for all of them.
// Jobs that get no encoder of their own run afterwards on the main encoder.
func (e *engine) runJobs(dt float32) {
	e.jobsMu.Lock()
	jobs := append([]EncoderJob(nil), e.jobs...)
	e.jobsMu.Unlock()
	if len(jobs) == 0 {
		return
	}

	// A WaitGroup is the per-frame barrier, pool.Wait() only returns once workers idle-exit.
	var wg sync.WaitGroup
	var leftover []EncoderJob
	for i, job := range jobs {
		enc := e.ctx.EncoderBegin(true)
		if enc == nil {
			leftover = append(leftover, job)
			continue
		}
		wg.Add(1)
		e.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				defer e.ctx.EncoderEnd(enc)
				job(enc, dt)
				return nil, nil
			},
		})
	}
	wg.Wait()

	if len(leftover) > 0 {
		mainEnc := e.ctx.EncoderBegin(false)
		for _, job := range leftover {
			job(mainEnc, dt)
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each frame.
func (e *engine) SetRenderCallback(callback func(ctx gfx.Context, deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetResizeCallback(callback func(width, height uint32)) {
	e.resizeCallback = callback
}

func (e *engine) AddEncoderJob(job EncoderJob) {
	if job == nil {
		return
	}
	e.jobsMu.Lock()
	e.jobs = append(e.jobs, job)
	e.jobsMu.Unlock()
}

func (e *engine) ClearEncoderJobs() {
	e.jobsMu.Lock()
	e.jobs = nil
	e.jobsMu.Unlock()
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the frame loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
