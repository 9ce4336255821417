package gfx

import (
	"sync"
	"testing"
	"time"
)

// captureType is the renderer slot the capture backend registers under in tests.
const captureType = RendererTypeMetal

// captureBackend records every frame it renders. When gate is set, RenderFrame blocks
// until a value is received from it.
type captureBackend struct {
	noopBackend

	mu       sync.Mutex
	frames   []*Frame
	gate     chan struct{}
	rendered chan uint32
	shutdown bool
}

func newCaptureBackend() *captureBackend {
	return &captureBackend{rendered: make(chan uint32, 64)}
}

func (b *captureBackend) Type() RendererType { return captureType }

func (b *captureBackend) RenderFrame(f *Frame) error {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	b.frames = append(b.frames, f)
	b.mu.Unlock()
	select {
	case b.rendered <- f.Number:
	default:
	}
	return nil
}

func (b *captureBackend) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown = true
}

func (b *captureBackend) last(t *testing.T) *Frame {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == 0 {
		t.Fatal("no frame rendered")
	}
	return b.frames[len(b.frames)-1]
}

func (b *captureBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// newTestContext creates a context on a fresh capture backend. The context is shut
// down and the backend unregistered when the test ends.
func newTestContext(t *testing.T, options ...ContextBuilderOption) (*renderContext, *captureBackend) {
	t.Helper()
	b := newCaptureBackend()
	return newTestContextWith(t, b, options...), b
}

func newTestContextWith(t *testing.T, b *captureBackend, options ...ContextBuilderOption) *renderContext {
	t.Helper()
	RegisterBackend(captureType, func() Backend { return b })
	t.Cleanup(func() { UnregisterBackend(captureType) })

	opts := append([]ContextBuilderOption{WithRendererType(captureType)}, options...)
	ctx, err := NewContext(opts...)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(ctx.Shutdown)
	return ctx.(*renderContext)
}

func positionColorLayout() *VertexLayout {
	var l VertexLayout
	l.Begin(RendererTypeNoop).
		Add(AttribPosition, 3, AttribTypeFloat, false, false).
		Add(AttribColor0, 4, AttribTypeUint8, true, false).
		End()
	return &l
}

// testTriangle creates a three-vertex buffer and a program from dummy shader code.
func testTriangle(t *testing.T, c *renderContext) (VertexBufferHandle, ProgramHandle) {
	t.Helper()
	vbh := c.CreateVertexBuffer(Copy(make([]byte, 3*16)), positionColorLayout(), BufferNone)
	if !vbh.IsValid() {
		t.Fatal("CreateVertexBuffer returned invalid handle")
	}
	vsh := c.CreateShader(Copy([]byte("vs\x00")))
	fsh := c.CreateShader(Copy([]byte("fs\x00")))
	ph := c.CreateProgram(vsh, fsh, true)
	if !ph.IsValid() {
		t.Fatal("CreateProgram returned invalid handle")
	}
	return vbh, ph
}

func waitRendered(t *testing.T, b *captureBackend, want uint32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-b.rendered:
			if n >= want {
				return
			}
		case <-deadline:
			t.Fatalf("frame %d was not rendered", want)
		}
	}
}
