package profiler

import (
	"log"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
)

// Report is one interval's worth of frame and memory statistics.
type Report struct {
	FPS         float64
	Frames      int
	FrameNumber uint32

	// Draw counters of the most recent frame.
	NumDraw    uint32
	NumCompute uint32
	NumPrims   uint64

	// Averages over the interval.
	CPUTimeFrame time.Duration
	WaitSubmit   time.Duration
	WaitRender   time.Duration

	HeapMB      float64
	SysMB       float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate, gfx counters and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	cpuTime    time.Duration
	waitSubmit time.Duration
	waitRender time.Duration

	now    func() time.Time
	logf   func(format string, args ...any)
	onTick func(Report)
}

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(p *Profiler)

// WithInterval sets how often statistics are reported.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithReportCallback sets a function that receives every report in addition to the
// log line.
//
// Parameters:
//   - callback: function receiving each report
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithReportCallback(callback func(Report)) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.onTick = callback
	}
}

// WithLogger replaces log.Printf as the output of the report line. Pass a no-op to
// silence it.
//
// Parameters:
//   - logf: printf-style output function
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(logf func(format string, args ...any)) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logf = logf
	}
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
		logf:           log.Printf,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with the context statistics of the frame just
// submitted. Logs a report when the update interval has elapsed.
//
// Parameters:
//   - stats: the gfx statistics of the last frame
//
// Returns:
//   - Report: the report, valid only when the second result is true
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick(stats gfx.Stats) (Report, bool) {
	p.frameCount++
	p.cpuTime += stats.CPUTimeFrame
	p.waitSubmit += stats.WaitSubmit
	p.waitRender += stats.WaitRender

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Report{}, false
	}

	n := time.Duration(p.frameCount)
	r := Report{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		Frames:       p.frameCount,
		FrameNumber:  stats.FrameNumber,
		NumDraw:      stats.NumDraw,
		NumCompute:   stats.NumCompute,
		NumPrims:     stats.NumPrims,
		CPUTimeFrame: p.cpuTime / n,
		WaitSubmit:   p.waitSubmit / n,
		WaitRender:   p.waitRender / n,
	}
	p.readMemory(&r, elapsed)

	p.logf("[Profiler] FPS: %.2f | Frame: %d | Draws: %d | Dispatches: %d | Prims: %d | CPU: %v | Wait submit: %v | Wait render: %v | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		r.FPS, r.FrameNumber, r.NumDraw, r.NumCompute, r.NumPrims, r.CPUTimeFrame, r.WaitSubmit, r.WaitRender,
		r.HeapMB, r.AllocRateMB, r.GCCount, r.LastPauseUs, r.MaxPauseUs, r.SysMB)
	if p.onTick != nil {
		p.onTick(r)
	}

	p.frameCount = 0
	p.cpuTime, p.waitSubmit, p.waitRender = 0, 0, 0
	p.lastTime = currentTime
	return r, true
}

func (p *Profiler) readMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, TotalAlloc only grows and tracks churn, Sys is the process footprint.
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	r.GCCount = gcCount
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
