package gfx

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTouchAppliesViewClear(t *testing.T) {
	c, b := newTestContext(t)
	c.SetViewClear(0, ClearColor|ClearDepth, 0x303030ff, 1, 0)
	c.SetViewRect(0, 0, 0, 640, 480)

	if err := c.Touch(0); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	c.Frame(false)

	f := b.last(t)
	if len(f.Views) != 1 {
		t.Fatalf("got %d views, want 1", len(f.Views))
	}
	v := f.Views[0]
	if v.Clear.Flags != ClearColor|ClearDepth || v.Clear.RGBA != 0x303030ff {
		t.Errorf("clear = %+v", v.Clear)
	}
	if v.Rect.Width != 640 || v.Rect.Height != 480 {
		t.Errorf("rect = %+v", v.Rect)
	}
}

func TestUntouchedViewsAreNotRendered(t *testing.T) {
	c, b := newTestContext(t)
	c.SetViewClear(0, ClearColor, 0xffffffff, 1, 0)
	c.SetViewClear(1, ClearColor, 0xffffffff, 1, 0)
	c.Touch(1)
	c.Frame(false)

	f := b.last(t)
	if len(f.Views) != 1 || f.Views[0].ID != 1 {
		t.Errorf("views = %+v, want only view 1", f.Views)
	}
}

func TestFrameSingleThreadedRendersInline(t *testing.T) {
	c, b := newTestContext(t, WithThreading(ThreadingSingle))

	n, status := c.Frame(false)
	if status != RenderFrameRender {
		t.Errorf("status = %v, want render", status)
	}
	if n != 1 {
		t.Errorf("frame number = %d, want 1", n)
	}
	if b.count() != 1 {
		t.Fatalf("backend saw %d frames after Frame returned, want 1", b.count())
	}
	if got := c.Stats().FrameNumber; got != 1 {
		t.Errorf("Stats().FrameNumber = %d, want 1", got)
	}

	n, _ = c.Frame(false)
	if n != 2 || b.count() != 2 {
		t.Errorf("second frame number = %d with %d rendered, want 2 and 2", n, b.count())
	}
}

func TestFrameMultiThreadedBoundsLatency(t *testing.T) {
	b := newCaptureBackend()
	b.gate = make(chan struct{})
	c := newTestContextWith(t, b, WithThreading(ThreadingMulti), WithMaxFrameLatency(2))
	t.Cleanup(func() { close(b.gate) })

	// Two frames fit in flight: the render goroutine holds the first one at the gate
	// and the second one waits in the queue.
	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		go func() {
			c.Frame(false)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("frame %d blocked with free latency slots", i+1)
		}
	}

	var third atomic.Bool
	done := make(chan struct{})
	go func() {
		c.Frame(false)
		third.Store(true)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if third.Load() {
		t.Fatal("third frame returned while two frames were in flight")
	}

	b.gate <- struct{}{}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("third frame still blocked after the render side finished a frame")
	}
}

func TestFrameMultiThreadedRendersOnOtherGoroutine(t *testing.T) {
	c, b := newTestContext(t, WithThreading(ThreadingMulti))

	c.Touch(0)
	n, status := c.Frame(false)
	if status != RenderFrameRender {
		t.Fatalf("status = %v, want render", status)
	}
	waitRendered(t, b, n)
	if got := len(b.last(t).Views); got != 1 {
		t.Errorf("rendered frame has %d views, want 1", got)
	}
}

func TestRenderFrameManualMode(t *testing.T) {
	c, b := newTestContext(t, WithThreading(ThreadingManual))

	if got := c.RenderFrame(0); got != RenderFrameTimeout {
		t.Errorf("RenderFrame() with empty queue = %v, want timeout", got)
	}

	c.Frame(false)
	if b.count() != 0 {
		t.Fatal("manual mode rendered without RenderFrame")
	}
	if got := c.RenderFrame(time.Second); got != RenderFrameRender {
		t.Errorf("RenderFrame() = %v, want render", got)
	}
	if b.count() != 1 {
		t.Errorf("backend saw %d frames, want 1", b.count())
	}

	c.Shutdown()
	if got := c.RenderFrame(0); got != RenderFrameExiting {
		t.Errorf("RenderFrame() after Shutdown = %v, want exiting", got)
	}
}

func TestRenderFrameWithoutManualMode(t *testing.T) {
	c, _ := newTestContext(t)
	if got := c.RenderFrame(0); got != RenderFrameNoContext {
		t.Errorf("RenderFrame() in single mode = %v, want no-context", got)
	}
}

func TestShutdownIsTerminal(t *testing.T) {
	c, b := newTestContext(t, WithThreading(ThreadingMulti))
	c.Touch(0)
	c.Frame(false)
	c.Shutdown()

	b.mu.Lock()
	shut := b.shutdown
	b.mu.Unlock()
	if !shut {
		t.Error("backend not shut down")
	}
	if b.count() != 1 {
		t.Errorf("pending frame not drained: %d rendered", b.count())
	}
	if _, status := c.Frame(false); status != RenderFrameExiting {
		t.Errorf("Frame() after Shutdown status = %v, want exiting", status)
	}
	if h := c.CreateUniform("u_late", UniformVec4, 1); h.IsValid() {
		t.Error("CreateUniform after Shutdown returned a valid handle")
	}
	c.Shutdown()
}

func TestViewModeSorting(t *testing.T) {
	tests := []struct {
		mode      ViewMode
		wantDepth []uint32
	}{
		{ViewModeSequential, []uint32{20, 10, 30}},
		{ViewModeDepthAscending, []uint32{10, 20, 30}},
		{ViewModeDepthDescending, []uint32{30, 20, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			c, b := newTestContext(t)
			_, ph := testTriangle(t, c)
			c.SetViewMode(0, tt.mode)
			for _, d := range []uint32{20, 10, 30} {
				c.SetVertexCount(3)
				c.Submit(0, ph, d, DiscardAll)
			}
			c.Frame(false)

			items := b.last(t).Views[0].Items
			for i, it := range items {
				if it.Depth != tt.wantDepth[i] {
					t.Errorf("item %d depth = %d, want %d", i, it.Depth, tt.wantDepth[i])
				}
			}
		})
	}
}

func TestViewModeDefaultGroupsByProgram(t *testing.T) {
	c, b := newTestContext(t)
	_, p1 := testTriangle(t, c)
	p2 := c.CreateProgram(c.CreateShader(Copy([]byte("vs2"))), c.CreateShader(Copy([]byte("fs2"))), true)

	for _, p := range []ProgramHandle{p2, p1, p2, p1} {
		c.SetVertexCount(3)
		c.Submit(0, p, 0, DiscardAll)
	}
	c.Frame(false)

	items := b.last(t).Views[0].Items
	want := []ProgramHandle{p1, p1, p2, p2}
	if p2.Index() < p1.Index() {
		want = []ProgramHandle{p2, p2, p1, p1}
	}
	for i, it := range items {
		if it.Program != want[i] {
			t.Errorf("item %d program = %v, want %v", i, it.Program, want[i])
		}
	}
	if items[0].seq > items[1].seq {
		t.Error("draws of one program lost submission order")
	}
}

func TestViewOrderRemap(t *testing.T) {
	c, b := newTestContext(t)
	c.SetViewOrder(0, []ViewID{2, 0, 1})
	c.Touch(0)
	c.Touch(1)
	c.Touch(2)
	c.Frame(false)

	views := b.last(t).Views
	want := []ViewID{2, 0, 1}
	for i, v := range views {
		if v.ID != want[i] {
			t.Errorf("position %d = view %d, want %d", i, v.ID, want[i])
		}
	}

	c.SetViewOrder(0, nil)
	c.Touch(0)
	c.Touch(2)
	c.Frame(false)
	views = b.last(t).Views
	if views[0].ID != 0 || views[1].ID != 2 {
		t.Errorf("order after reset = %d, %d", views[0].ID, views[1].ID)
	}
}

func TestEncodersMergeIntoFrame(t *testing.T) {
	c, b := newTestContext(t, WithLimits(func() Limits {
		l := DefaultLimits()
		l.MaxEncoders = 3
		return l
	}()))
	_, ph := testTriangle(t, c)

	if enc := c.EncoderBegin(false); enc != Encoder(c.encoder) {
		t.Error("EncoderBegin(false) did not return the main encoder")
	}

	e1 := c.EncoderBegin(true)
	e2 := c.EncoderBegin(true)
	if e1 == nil || e2 == nil {
		t.Fatal("EncoderBegin(true) returned nil below the limit")
	}
	if e3 := c.EncoderBegin(true); e3 != nil {
		t.Error("EncoderBegin(true) beyond MaxEncoders returned an encoder")
	}

	var wg sync.WaitGroup
	for i, enc := range []Encoder{e1, e2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enc.SetVertexCount(3)
			enc.Submit(ViewID(i+1), ph, 0, DiscardAll)
		}()
	}
	wg.Wait()

	frameDone := make(chan struct{})
	go func() {
		c.Frame(false)
		close(frameDone)
	}()

	c.EncoderEnd(e1)
	select {
	case <-frameDone:
		t.Fatal("Frame returned while an encoder was still open")
	case <-time.After(50 * time.Millisecond):
	}
	c.EncoderEnd(e2)
	<-frameDone

	f := b.last(t)
	if f.NumDraw != 2 || len(f.Views) != 2 {
		t.Errorf("NumDraw = %d, views = %d; want 2, 2", f.NumDraw, len(f.Views))
	}
	if f.NumEncoders != 3 {
		t.Errorf("NumEncoders = %d, want 3", f.NumEncoders)
	}
}

func TestDrawLimitDropsExtraDraws(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDrawCalls = 2
	c, b := newTestContext(t, WithLimits(limits))
	_, ph := testTriangle(t, c)

	for range 3 {
		c.SetVertexCount(3)
		c.Submit(0, ph, 0, DiscardAll)
	}
	c.Frame(false)
	if got := b.last(t).NumDraw; got != 2 {
		t.Errorf("NumDraw = %d, want 2", got)
	}

	c.SetVertexCount(3)
	c.Submit(0, ph, 0, DiscardAll)
	c.Frame(false)
	if got := b.last(t).NumDraw; got != 1 {
		t.Errorf("NumDraw after new frame = %d, want 1", got)
	}
}

func TestResetAppliesWithNextFrame(t *testing.T) {
	c, b := newTestContext(t)
	fb := c.CreateFrameBuffer(64, 64, TextureFormatRGBA8, TextureNone)
	c.SetViewFrameBuffer(0, fb)

	c.Reset(1920, 1080, ResetVSync|ResetMSAAX4, TextureFormatCount)
	if v, _ := c.ViewState(0); v.FrameBuffer.IsValid() {
		t.Error("Reset did not detach the view frame buffer")
	}

	c.Touch(0)
	c.Frame(false)
	res := b.last(t).Resolution
	if res.Width != 1920 || res.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", res.Width, res.Height)
	}
	if res.Reset.MSAASamples() != 4 {
		t.Errorf("MSAA samples = %d, want 4", res.Reset.MSAASamples())
	}
	if res.Format != TextureFormatRGBA8 {
		t.Errorf("format = %v, want RGBA8", res.Format)
	}
}

func TestWindowFrameBufferSurvivesReattachAfterReset(t *testing.T) {
	c, b := newTestContext(t)
	fb := c.CreateFrameBufferFromWindow("window-2", 640, 480, TextureFormatBGRA8, TextureFormatD24S8)
	if !fb.IsValid() {
		t.Fatal("CreateFrameBufferFromWindow() returned invalid handle")
	}
	c.SetViewFrameBuffer(1, fb)

	// The main window was resized; the second window re-attaches its frame buffer.
	c.Reset(1024, 768, ResetVSync, TextureFormatCount)
	c.SetViewFrameBuffer(1, fb)
	c.Touch(0)
	c.Touch(1)
	c.Frame(false)

	views := b.last(t).Views
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}
	if views[0].FrameBuffer.IsValid() {
		t.Error("view 0 left the backbuffer")
	}
	if views[1].FrameBuffer != fb {
		t.Errorf("view 1 frame buffer = %v, want %v", views[1].FrameBuffer, fb)
	}
}

func TestTransientBuffers(t *testing.T) {
	c, b := newTestContext(t)
	_, ph := testTriangle(t, c)
	layout := positionColorLayout()

	if avail := c.AvailTransientVertexBuffer(3, layout); avail != 3 {
		t.Fatalf("AvailTransientVertexBuffer() = %d, want 3", avail)
	}
	tvb := c.AllocTransientVertexBuffer(3, layout)
	tib := c.AllocTransientIndexBuffer(3, false)
	if tvb == nil || tib == nil {
		t.Fatal("transient allocation failed")
	}
	if len(tvb.Data) != 48 || len(tib.Data) != 6 {
		t.Fatalf("transient sizes = %d, %d; want 48, 6", len(tvb.Data), len(tib.Data))
	}
	tvb.Data[0] = 0xab

	c.SetTransientVertexBuffer(0, tvb, 0, NumAll)
	c.SetTransientIndexBuffer(tib, 0, NumAll)
	c.Submit(0, ph, 0, DiscardAll)
	c.Frame(false)

	f := b.last(t)
	it := f.Views[0].Items[0]
	if it.Streams[0].Source != SourceTransient || it.Streams[0].NumVertices != 3 {
		t.Errorf("stream = %+v", it.Streams[0])
	}
	if it.Index.NumIndices != 3 || it.NumPrimitives != 1 {
		t.Errorf("index = %+v, prims = %d", it.Index, it.NumPrimitives)
	}
	if f.TransientVertices[it.Streams[0].Offset] != 0xab {
		t.Error("frame transient vertices do not hold the written data")
	}

	// Transient buffers expire with their frame.
	c.SetTransientVertexBuffer(0, tvb, 0, NumAll)
	c.Submit(0, ph, 0, DiscardAll)
	c.Frame(false)
	if got := len(b.last(t).Views[0].Items[0].Streams); got != 0 {
		t.Errorf("expired transient buffer still bound: %d streams", got)
	}
}

func TestTransientVertexBufferExhaustion(t *testing.T) {
	limits := DefaultLimits()
	limits.TransientVbSize = 64
	c, _ := newTestContext(t, WithLimits(limits))
	layout := positionColorLayout()

	if tvb := c.AllocTransientVertexBuffer(4, layout); tvb == nil {
		t.Fatal("allocation within the limit failed")
	}
	if tvb := c.AllocTransientVertexBuffer(1, layout); tvb != nil {
		t.Error("allocation beyond the limit succeeded")
	}
	c.Frame(false)
	if tvb := c.AllocTransientVertexBuffer(4, layout); tvb == nil {
		t.Error("allocation failed after the frame released its scratch memory")
	}
}

func TestStatsCountDraws(t *testing.T) {
	c, _ := newTestContext(t)
	vbh, ph := testTriangle(t, c)
	c.SetViewName(0, "scene")
	c.SetVertexBuffer(0, vbh, 0, NumAll)
	c.SetInstanceCount(4)
	c.Submit(0, ph, 0, DiscardAll)
	c.Frame(false)

	s := c.Stats()
	if s.NumDraw != 1 || s.NumPrims != 4 {
		t.Errorf("NumDraw = %d, NumPrims = %d; want 1, 4", s.NumDraw, s.NumPrims)
	}
	if len(s.ViewStats) != 1 || s.ViewStats[0].Name != "scene" || s.ViewStats[0].NumDraw != 1 {
		t.Errorf("ViewStats = %+v", s.ViewStats)
	}
}

func TestDebugTextRecordedIntoFrame(t *testing.T) {
	c, b := newTestContext(t)
	c.SetDebug(DebugText)
	c.DebugTextPrintf(1, 2, 0x0f, "frame %d", 7)
	c.DebugTextPrintf(1, 2, 0x0f, "frame %d", 8)
	c.Frame(false)

	f := b.last(t)
	if f.Debug != DebugText {
		t.Errorf("Debug = %#x, want DebugText", f.Debug)
	}
	if len(f.DebugText) != 1 || f.DebugText[0].Text != "frame 8" {
		t.Errorf("DebugText = %+v", f.DebugText)
	}

	c.DebugTextClear()
	c.Frame(false)
	if got := len(b.last(t).DebugText); got != 0 {
		t.Errorf("DebugText after clear has %d lines", got)
	}
}
