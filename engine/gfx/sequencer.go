package gfx

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// sequencer moves finished frames to the backend according to the threading mode.
//
// In ThreadingMulti and ThreadingManual a weighted semaphore with MaxFrameLatency
// slots bounds the frames in flight: Frame acquires a slot before queueing and the
// render side releases it after the backend is done with the frame.
type sequencer struct {
	mode     ThreadingMode
	backend  Backend
	latency  int64
	slots    *semaphore.Weighted
	queue    chan *Frame
	complete func(f *Frame, render, wait time.Duration)

	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}

	renderMu   sync.Mutex
	lastRender time.Time
	closeOnce  sync.Once
}

func newSequencer(mode ThreadingMode, backend Backend, latency uint8, complete func(*Frame, time.Duration, time.Duration)) *sequencer {
	ctx, cancel := context.WithCancel(context.Background())
	return &sequencer{
		mode:       mode,
		backend:    backend,
		latency:    int64(latency),
		slots:      semaphore.NewWeighted(int64(latency)),
		queue:      make(chan *Frame, latency),
		complete:   complete,
		ctx:        ctx,
		cancel:     cancel,
		exited:     make(chan struct{}),
		lastRender: time.Now(),
	}
}

// start initializes the backend on the render side. In ThreadingMulti that is a new
// goroutine locked to its OS thread; otherwise it is the calling goroutine.
func (s *sequencer) start(init Init) error {
	if s.mode != ThreadingMulti {
		close(s.exited)
		return s.backend.Init(init)
	}

	ready := make(chan error, 1)
	go s.loop(init, ready)
	if err := <-ready; err != nil {
		return err
	}
	return nil
}

func (s *sequencer) loop(init Init, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.exited)

	if err := s.backend.Init(init); err != nil {
		ready <- err
		return
	}
	ready <- nil

	for {
		select {
		case f := <-s.queue:
			s.render(f)
		case <-s.ctx.Done():
			s.drain()
			s.backend.Shutdown()
			return
		}
	}
}

// submit hands f to the render side and reports the resulting status.
func (s *sequencer) submit(f *Frame) RenderFrameStatus {
	if s.mode == ThreadingSingle {
		s.render(f)
		return RenderFrameRender
	}

	start := time.Now()
	if err := s.slots.Acquire(s.ctx, 1); err != nil {
		f.release()
		return RenderFrameExiting
	}
	f.waitSubmit = time.Since(start)
	if f.waitSubmit > time.Millisecond {
		Logger().Debug("gfx: frame waited for render side", "frame", f.Number, "wait", f.waitSubmit)
	}
	s.queue <- f
	return RenderFrameRender
}

// pump renders one queued frame on the caller's goroutine. A negative timeout waits
// until a frame arrives or the context shuts down; zero polls.
func (s *sequencer) pump(timeout time.Duration) RenderFrameStatus {
	if s.mode != ThreadingManual {
		return RenderFrameNoContext
	}
	if s.ctx.Err() != nil {
		return RenderFrameExiting
	}

	var timer <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case f := <-s.queue:
		s.render(f)
		return RenderFrameRender
	case <-timer:
		return RenderFrameTimeout
	case <-s.ctx.Done():
		return RenderFrameExiting
	}
}

func (s *sequencer) render(f *Frame) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	wait := time.Since(s.lastRender)
	start := time.Now()
	if err := s.backend.RenderFrame(f); err != nil {
		Logger().Warn("gfx: backend failed to render frame", "frame", f.Number, "err", err)
	}
	end := time.Now()
	s.lastRender = end
	s.complete(f, end.Sub(start), wait)

	if s.mode != ThreadingSingle {
		s.slots.Release(1)
	}
}

// drain renders every frame still queued.
func (s *sequencer) drain() {
	for {
		select {
		case f := <-s.queue:
			s.render(f)
		default:
			return
		}
	}
}

// stop is terminal. Pending frames are rendered, then the backend is shut down on the
// render side.
func (s *sequencer) stop() {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.mode == ThreadingMulti {
			<-s.exited
			return
		}
		s.drain()
		s.backend.Shutdown()
	})
}
