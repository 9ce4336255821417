package gfx

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
)

// ViewID indexes a view. Views render in ascending id unless reordered with SetViewOrder.
type ViewID uint16

// ViewMode controls the order of draws within one view.
type ViewMode uint8

const (
	// ViewModeDefault groups draws by program, keeping submission order within a program.
	ViewModeDefault ViewMode = iota
	// ViewModeSequential keeps submission order.
	ViewModeSequential
	// ViewModeDepthAscending sorts by the depth passed to Submit, front to back.
	ViewModeDepthAscending
	// ViewModeDepthDescending sorts by the depth passed to Submit, back to front.
	ViewModeDepthDescending
)

func (m ViewMode) String() string {
	switch m {
	case ViewModeDefault:
		return "default"
	case ViewModeSequential:
		return "sequential"
	case ViewModeDepthAscending:
		return "depth-ascending"
	case ViewModeDepthDescending:
		return "depth-descending"
	default:
		return "unknown"
	}
}

// Rect is a rectangle in pixels. A zero Rect means "whole target" where used as a scissor.
type Rect struct {
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
}

// IsZero reports whether the rectangle is empty.
func (r Rect) IsZero() bool { return r.Width == 0 || r.Height == 0 }

// ClearState is what a view clears its target to before its first draw.
type ClearState struct {
	Flags   ClearFlags
	RGBA    uint32
	Depth   float32
	Stencil uint8
}

// Color returns the clear color as normalized red, green, blue and alpha.
func (c ClearState) Color() (r, g, b, a float64) {
	return float64(c.RGBA>>24&0xff) / 255,
		float64(c.RGBA>>16&0xff) / 255,
		float64(c.RGBA>>8&0xff) / 255,
		float64(c.RGBA&0xff) / 255
}

// View is the state of one view as captured when a frame was submitted, plus the
// draws recorded for it in execution order.
type View struct {
	ID          ViewID
	Name        string
	Rect        Rect
	Scissor     Rect
	Clear       ClearState
	Mode        ViewMode
	FrameBuffer FrameBufferHandle
	ViewMatrix  [16]float32
	Projection  [16]float32
	Items       []RenderItem
}

func identityMatrix() [16]float32 {
	var m [16]float32
	common.Identity(m[:])
	return m
}

func defaultView(id ViewID) View {
	return View{
		ID:         id,
		Clear:      ClearState{RGBA: 0x000000ff, Depth: 1},
		ViewMatrix: identityMatrix(),
		Projection: identityMatrix(),
	}
}

// viewTable holds the persistent per-view configuration. Every setter touches only
// the view it names.
type viewTable struct {
	mu    sync.Mutex
	views []View
	order []ViewID // order[position] = view id
	rank  []uint16 // rank[view id] = position
}

func newViewTable(n uint16) *viewTable {
	t := &viewTable{
		views: make([]View, n),
		order: make([]ViewID, n),
		rank:  make([]uint16, n),
	}
	for i := range t.views {
		t.views[i] = defaultView(ViewID(i))
		t.order[i] = ViewID(i)
		t.rank[i] = uint16(i)
	}
	return t
}

func (t *viewTable) valid(id ViewID) bool { return int(id) < len(t.views) }

// with runs fn on view id under the table lock. Out of range ids are ignored.
func (t *viewTable) with(id ViewID, fn func(v *View)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(id) {
		Logger().Warn("gfx: view id out of range ignored", "view", id, "max", len(t.views))
		return false
	}
	fn(&t.views[id])
	return true
}

// setOrder places remap at positions start.. of the render order. The views that
// previously held those positions move to where the remapped views were, so the
// order stays a permutation. A nil remap restores the identity order.
func (t *viewTable) setOrder(start ViewID, remap []ViewID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if remap == nil {
		for i := range t.order {
			t.order[i] = ViewID(i)
			t.rank[i] = uint16(i)
		}
		return
	}
	for i, id := range remap {
		pos := int(start) + i
		if pos >= len(t.order) || !t.valid(id) {
			break
		}
		from := int(t.rank[id])
		displaced := t.order[pos]
		t.order[pos], t.order[from] = id, displaced
		t.rank[id], t.rank[displaced] = uint16(pos), uint16(from)
	}
}

// detachFrameBuffers points every view back at the backbuffer.
func (t *viewTable) detachFrameBuffers() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.views {
		t.views[i].FrameBuffer = FrameBufferHandle{}
	}
}

// detachFrameBuffer drops fb from every view it is attached to.
func (t *viewTable) detachFrameBuffer(fb FrameBufferHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.views {
		if t.views[i].FrameBuffer == fb {
			t.views[i].FrameBuffer = FrameBufferHandle{}
		}
	}
}

func (t *viewTable) get(id ViewID) (View, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(id) {
		return View{}, false
	}
	return t.views[id], true
}

// snapshot copies the state of the given views, returning them in render order.
func (t *viewTable) snapshot(used []bool) []View {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]View, 0, 8)
	for _, id := range t.order {
		if int(id) < len(used) && used[id] {
			v := t.views[id]
			v.Items = nil
			out = append(out, v)
		}
	}
	return out
}

func (c *renderContext) SetViewName(id ViewID, name string) {
	c.views.with(id, func(v *View) { v.Name = name })
}

func (c *renderContext) SetViewRect(id ViewID, x, y, width, height uint16) {
	c.views.with(id, func(v *View) { v.Rect = Rect{X: x, Y: y, Width: width, Height: height} })
}

func (c *renderContext) SetViewScissor(id ViewID, x, y, width, height uint16) {
	c.views.with(id, func(v *View) { v.Scissor = Rect{X: x, Y: y, Width: width, Height: height} })
}

func (c *renderContext) SetViewClear(id ViewID, flags ClearFlags, rgba uint32, depth float32, stencil uint8) {
	c.views.with(id, func(v *View) {
		v.Clear = ClearState{Flags: flags, RGBA: rgba, Depth: depth, Stencil: stencil}
	})
}

func (c *renderContext) SetViewMode(id ViewID, mode ViewMode) {
	c.views.with(id, func(v *View) { v.Mode = mode })
}

func (c *renderContext) SetViewFrameBuffer(id ViewID, fb FrameBufferHandle) {
	if fb.IsValid() && !c.frameBuffers.alive(fb.Handle) {
		Logger().Warn("gfx: stale frame buffer attached to view, using backbuffer", "view", id)
		fb = FrameBufferHandle{}
	}
	c.views.with(id, func(v *View) { v.FrameBuffer = fb })
}

func (c *renderContext) SetViewTransform(id ViewID, view, proj []float32) {
	c.views.with(id, func(v *View) {
		v.ViewMatrix = matrixOrIdentity(view)
		v.Projection = matrixOrIdentity(proj)
	})
}

func (c *renderContext) SetViewOrder(start ViewID, remap []ViewID) {
	c.views.setOrder(start, remap)
}

func (c *renderContext) ResetView(id ViewID) {
	c.views.with(id, func(v *View) { *v = defaultView(id) })
}

func (c *renderContext) ViewState(id ViewID) (View, bool) {
	return c.views.get(id)
}

func matrixOrIdentity(m []float32) [16]float32 {
	if len(m) < 16 {
		return identityMatrix()
	}
	var out [16]float32
	copy(out[:], m[:16])
	return out
}
