package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/window"
)

const (
	// keyPanStep is the pan and zoom distance of one key press.
	keyPanStep = 1.0
	// keyOrbitStep is the orbit angle of one arrow key press, in radians.
	keyOrbitStep = 0.05
)

type dragState struct {
	mu       sync.Mutex
	dragging bool
	lastX    int32
	lastY    int32
}

// BindInput drives a controller from window input. Left-drag and the arrow keys orbit.
// The scroll wheel and Q/E zoom. W/A/S/D pan. It replaces the scroll, key down, mouse
// button and mouse move callbacks of the window.
//
// Parameters:
//   - w: the window delivering input
//   - ctrl: the controller to drive
func BindInput(w window.Window, ctrl Controller) {
	d := &dragState{}

	w.SetMouseButtonCallback(func(button window.MouseButton, pressed bool, x, y int32) {
		if button != window.MouseButtonLeft {
			return
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		d.dragging = pressed
		d.lastX, d.lastY = x, y
	})

	w.SetMouseMoveCallback(func(x, y int32) {
		d.mu.Lock()
		if !d.dragging {
			d.mu.Unlock()
			return
		}
		dx, dy := x-d.lastX, y-d.lastY
		d.lastX, d.lastY = x, y
		d.mu.Unlock()
		ctrl.Drag(dx, dy)
	})

	w.SetScrollCallback(func(delta float32) {
		ctrl.Zoom(delta)
	})

	w.SetKeyDownCallback(func(keyCode uint32) {
		switch keyCode {
		case common.KeyW:
			ctrl.Pan(0, keyPanStep)
		case common.KeyS:
			ctrl.Pan(0, -keyPanStep)
		case common.KeyA:
			ctrl.Pan(-keyPanStep, 0)
		case common.KeyD:
			ctrl.Pan(keyPanStep, 0)
		case common.KeyQ:
			ctrl.Zoom(keyPanStep)
		case common.KeyE:
			ctrl.Zoom(-keyPanStep)
		case common.KeyLeft:
			ctrl.Orbit(-keyOrbitStep, 0)
		case common.KeyRight:
			ctrl.Orbit(keyOrbitStep, 0)
		case common.KeyUp:
			ctrl.Orbit(0, keyOrbitStep)
		case common.KeyDown:
			ctrl.Orbit(0, -keyOrbitStep)
		}
	})
}
