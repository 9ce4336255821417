package gfx

import "sync"

// Handle is a packed resource reference. The low 16 bits hold the slot index and the
// high 16 bits hold the slot generation. Generations start at 1, so the zero Handle is
// never handed out and always reads as invalid.
type Handle uint32

func makeHandle(index, generation uint16) Handle {
	return Handle(uint32(generation)<<16 | uint32(index))
}

// Index returns the slot index encoded in the handle.
func (h Handle) Index() uint16 { return uint16(h) }

// Generation returns the slot generation encoded in the handle.
func (h Handle) Generation() uint16 { return uint16(h >> 16) }

// IsValid reports whether the handle was produced by a successful creation call.
// A valid handle may still be stale if the resource has since been destroyed.
func (h Handle) IsValid() bool { return h.Generation() != 0 }

// VertexBufferHandle identifies a static vertex buffer.
type VertexBufferHandle struct{ Handle }

// IndexBufferHandle identifies a static index buffer.
type IndexBufferHandle struct{ Handle }

// DynamicVertexBufferHandle identifies a vertex buffer that can be updated after creation.
type DynamicVertexBufferHandle struct{ Handle }

// DynamicIndexBufferHandle identifies an index buffer that can be updated after creation.
type DynamicIndexBufferHandle struct{ Handle }

// ShaderHandle identifies a shader module.
type ShaderHandle struct{ Handle }

// ProgramHandle identifies a linked render or compute program.
type ProgramHandle struct{ Handle }

// TextureHandle identifies a texture.
type TextureHandle struct{ Handle }

// UniformHandle identifies a named uniform.
type UniformHandle struct{ Handle }

// FrameBufferHandle identifies a frame buffer. The zero value selects the backbuffer.
type FrameBufferHandle struct{ Handle }

// ResourceKind names the kind of resource a handle refers to.
type ResourceKind uint8

const (
	ResourceVertexBuffer ResourceKind = iota
	ResourceIndexBuffer
	ResourceDynamicVertexBuffer
	ResourceDynamicIndexBuffer
	ResourceShader
	ResourceProgram
	ResourceTexture
	ResourceUniform
	ResourceFrameBuffer
)

var resourceKindNames = [...]string{
	ResourceVertexBuffer:        "vertex buffer",
	ResourceIndexBuffer:         "index buffer",
	ResourceDynamicVertexBuffer: "dynamic vertex buffer",
	ResourceDynamicIndexBuffer:  "dynamic index buffer",
	ResourceShader:              "shader",
	ResourceProgram:             "program",
	ResourceTexture:             "texture",
	ResourceUniform:             "uniform",
	ResourceFrameBuffer:         "frame buffer",
}

func (k ResourceKind) String() string {
	if int(k) < len(resourceKindNames) {
		return resourceKindNames[k]
	}
	return "unknown"
}

type handleSlot[T any] struct {
	generation uint16
	live       bool
	value      T
}

// handleTable is a generation-checked slot table. Released slots bump their
// generation immediately so every outstanding copy of the handle goes stale,
// but the slot index is only reused after recycle is called for it.
type handleTable[T any] struct {
	mu       sync.Mutex
	slots    []handleSlot[T]
	free     []uint16
	capacity int
	live     int
}

func newHandleTable[T any](capacity int) *handleTable[T] {
	if capacity > 0xFFFF {
		capacity = 0xFFFF
	}
	return &handleTable[T]{capacity: capacity}
}

// alloc stores v in a free slot and returns its handle, or the invalid handle when
// the table is full.
func (t *handleTable[T]) alloc(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	var index uint16
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		if len(t.slots) >= t.capacity {
			return 0
		}
		index = uint16(len(t.slots))
		t.slots = append(t.slots, handleSlot[T]{generation: 1})
	}

	s := &t.slots[index]
	s.live = true
	s.value = v
	t.live++
	return makeHandle(index, s.generation)
}

// lookup resolves h to its slot, checking both liveness and generation.
// Callers must hold t.mu.
func (t *handleTable[T]) lookup(h Handle) *handleSlot[T] {
	if !h.IsValid() || int(h.Index()) >= len(t.slots) {
		return nil
	}
	s := &t.slots[h.Index()]
	if !s.live || s.generation != h.Generation() {
		return nil
	}
	return s
}

// get returns a copy of the value stored for h.
func (t *handleTable[T]) get(h Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s := t.lookup(h); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// update applies fn to the value stored for h in place.
func (t *handleTable[T]) update(h Handle, fn func(*T)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.lookup(h)
	if s == nil {
		return false
	}
	fn(&s.value)
	return true
}

// alive reports whether h refers to a live slot of the current generation.
func (t *handleTable[T]) alive(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookup(h) != nil
}

// release retires h. The generation is bumped right away; the index is returned
// to the free list later by recycle.
func (t *handleTable[T]) release(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.lookup(h)
	if s == nil {
		return false
	}
	var zero T
	s.live = false
	s.value = zero
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	t.live--
	return true
}

// recycle makes a retired slot index available to alloc again.
func (t *handleTable[T]) recycle(index uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(index) >= len(t.slots) || t.slots[index].live {
		return
	}
	t.free = append(t.free, index)
}

// count returns the number of live slots.
func (t *handleTable[T]) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// recycler is the part of handleTable a frame needs to hand retired indices back.
type recycler interface {
	recycle(index uint16)
}

// retiredSlot is a slot index that becomes reusable once the frame carrying its
// destroy command has been rendered.
type retiredSlot struct {
	table recycler
	index uint16
}
