package window

import (
	"fmt"
	"image"
	"runtime"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// Several windows may be open at once; they share one GLFW instance and all must be
// created and pumped on the main goroutine.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetCloseCallback sets the function called once when the window is asked to close.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetCloseCallback(callback func())

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up, negative = down)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMouseButtonCallback sets the callback for mouse button presses and releases.
	//
	// Parameters:
	//   - callback: function receiving the button, whether it is pressed and the cursor position
	SetMouseButtonCallback(callback func(button MouseButton, pressed bool, x, y int32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// PlatformData returns the native handles a gfx context presents into. The window
	// itself is the native window handle, so backends can ask it for a surface.
	//
	// Returns:
	//   - gfx.PlatformData: the platform data for gfx.WithPlatformData
	PlatformData() gfx.PlatformData

	// NativeHandle returns the value passed to gfx CreateFrameBufferFromWindow.
	//
	// Returns:
	//   - any: the native window handle
	NativeHandle() any

	// Title returns the window title.
	//
	// Returns:
	//   - string: the title
	Title() string

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources. Closing twice is a no-op.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// maxWidth and maxHeight bound the window size during resize. Zero means unbounded.
	maxWidth  int
	maxHeight int

	// minWidth and minHeight are the smallest size a resize may produce.
	minWidth  int
	minHeight int

	// width and height are the current framebuffer size in pixels.
	width  int
	height int

	// resizable allows the user to resize the window.
	resizable bool

	// visible shows the window on creation.
	visible bool

	// escapeCloses closes the window when Escape is pressed.
	escapeCloses bool

	iconPath string
	icon     *image.RGBA

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate      func()
	onResize      func(width, height int)
	onClose       func()
	onScroll      func(delta float32)
	onKeyDown     func(keyCode uint32)
	onKeyUp       func(keyCode uint32)
	onMouseButton func(button MouseButton, pressed bool, x, y int32)
	onMouseMove   func(x, y int32)
}

var _ Window = &engineWindow{}

// newEngineWindow applies the defaults and then each option in order.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:        "oxy-gfx",
		minWidth:     200,
		minHeight:    150,
		width:        1280,
		height:       720,
		resizable:    true,
		visible:      true,
		escapeCloses: true,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// NewWindow creates and shows a new Window with the specified options.
// Must be called on the main goroutine.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: error if GLFW or the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if w.iconPath != "" {
		icon, err := common.LoadImage(w.iconPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load window icon: %w", err)
		}
		w.icon = icon
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

// PollEvents processes pending events of every open window without blocking.
func PollEvents() {
	platformPollEvents()
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetCloseCallback(callback func()) {
	w.onClose = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(button MouseButton, pressed bool, x, y int32)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) PlatformData() gfx.PlatformData {
	return gfx.PlatformData{NativeWindowHandle: w}
}

func (w *engineWindow) NativeHandle() any {
	return w
}

func (w *engineWindow) Title() string {
	return w.title
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// resized records a framebuffer size change and notifies the resize callback.
func (w *engineWindow) resized(width, height int) {
	if width == w.width && height == w.height {
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// keyEvent dispatches a key action. It reports whether the key asked to close the window.
func (w *engineWindow) keyEvent(keyCode uint32, pressed bool) bool {
	if pressed && w.escapeCloses && keyCode == common.KeyEsc {
		return true
	}
	switch {
	case pressed && w.onKeyDown != nil:
		w.onKeyDown(keyCode)
	case !pressed && w.onKeyUp != nil:
		w.onKeyUp(keyCode)
	}
	return false
}
