package gfx

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// RenderFrameStatus reports the state of the render side after Frame or RenderFrame.
type RenderFrameStatus uint8

const (
	// RenderFrameNoContext means there is no render thread to pump, either because the
	// context does not use ThreadingManual or because it was never initialized.
	RenderFrameNoContext RenderFrameStatus = iota
	// RenderFrameRender means a frame was handed over or rendered.
	RenderFrameRender
	// RenderFrameTimeout means no frame arrived within the timeout.
	RenderFrameTimeout
	// RenderFrameExiting means the context is shut down.
	RenderFrameExiting
)

func (s RenderFrameStatus) String() string {
	switch s {
	case RenderFrameNoContext:
		return "no-context"
	case RenderFrameRender:
		return "render"
	case RenderFrameTimeout:
		return "timeout"
	case RenderFrameExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// DebugTextLine is one line of debug text placed on an 8x16 character grid.
type DebugTextLine struct {
	X    uint16
	Y    uint16
	Attr uint8
	Text string
}

// Frame is everything recorded between two Frame calls. Backends read it; only gfx
// writes it.
type Frame struct {
	Number     uint32
	Resolution Resolution
	Debug      DebugFlags
	Capture    bool

	// Views holds the views used this frame in render order, each with its draws
	// already sorted for its view mode.
	Views []View

	// Transforms is the model matrix cache. Index 0 is always identity.
	Transforms [][16]float32

	PreCommands  []Command
	PostCommands []Command

	TransientVertices []byte
	TransientIndices  []byte

	DebugText []DebugTextLine

	NumDraw     uint32
	NumCompute  uint32
	NumPrims    uint64
	NumEncoders uint16

	memories   []*Memory
	retired    []retiredSlot
	tvbUsed    uint32
	tibUsed    uint32
	buildTime  time.Duration
	waitSubmit time.Duration
}

// Transform returns the matrix at index i of the transform cache, or identity when i
// is out of range.
func (f *Frame) Transform(i uint32) [16]float32 {
	if int(i) < len(f.Transforms) {
		return f.Transforms[i]
	}
	return identityMatrix()
}

func newFrame(number uint32) *Frame {
	return &Frame{
		Number:     number,
		Transforms: [][16]float32{identityMatrix()},
	}
}

// finalize snapshots the used views and distributes items into them, sorted by each
// view's mode.
func (f *Frame) finalize(items []RenderItem, used []bool, views *viewTable) {
	for _, it := range items {
		used[it.View] = true
	}
	f.Views = views.snapshot(used)

	slot := make(map[ViewID]int, len(f.Views))
	for i, v := range f.Views {
		slot[v.ID] = i
	}
	for _, it := range items {
		i := slot[it.View]
		f.Views[i].Items = append(f.Views[i].Items, it)
		if it.Compute {
			f.NumCompute++
		} else {
			f.NumDraw++
			f.NumPrims += uint64(it.NumPrimitives)
		}
	}
	for i := range f.Views {
		sortItems(f.Views[i].Mode, f.Views[i].Items)
	}
}

// sortItems orders the draws of one view. Ties always fall back to submission order.
func sortItems(mode ViewMode, items []RenderItem) {
	var key func(a, b *RenderItem) int
	switch mode {
	case ViewModeSequential:
		key = func(a, b *RenderItem) int { return 0 }
	case ViewModeDepthAscending:
		key = func(a, b *RenderItem) int { return cmp.Compare(a.Depth, b.Depth) }
	case ViewModeDepthDescending:
		key = func(a, b *RenderItem) int { return cmp.Compare(b.Depth, a.Depth) }
	default:
		key = func(a, b *RenderItem) int { return cmp.Compare(a.Program.Index(), b.Program.Index()) }
	}
	slices.SortFunc(items, func(a, b RenderItem) int {
		if c := key(&a, &b); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
}

// release runs the release callbacks of every memory block the frame consumed.
func (f *Frame) release() {
	for _, m := range f.memories {
		m.finish()
	}
	f.memories = nil
}

// recycle returns the slot indices retired by this frame to their tables.
func (f *Frame) recycle() {
	for _, r := range f.retired {
		r.table.recycle(r.index)
	}
	f.retired = nil
}

// TransientVertexBuffer is per-frame scratch vertex memory. Write vertices into Data
// before calling Frame; the buffer is invalid afterwards.
type TransientVertexBuffer struct {
	Data        []byte
	NumVertices uint32
	Layout      *VertexLayout

	offset uint32
	frame  uint32
}

// TransientIndexBuffer is per-frame scratch index memory. Write indices into Data
// before calling Frame; the buffer is invalid afterwards.
type TransientIndexBuffer struct {
	Data       []byte
	NumIndices uint32
	Index32    bool

	offset uint32
	frame  uint32
}

// transientPool recycles the scratch arrays of completed frames.
type transientPool struct {
	size uint32
	pool sync.Pool
}

func newTransientPool(size uint32) *transientPool {
	p := &transientPool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

func (p *transientPool) get() []byte { return *(p.pool.Get().(*[]byte)) }

func (p *transientPool) put(b []byte) {
	if uint32(cap(b)) != p.size {
		return
	}
	b = b[:cap(b)]
	p.pool.Put(&b)
}

func alignUp(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// vertexOffset returns the first offset at or after used that is a multiple of both
// the stride and 4 bytes.
func vertexOffset(used uint32, stride uint32) uint32 {
	off := alignUp(used, stride)
	for off%4 != 0 {
		off += stride
	}
	return off
}
