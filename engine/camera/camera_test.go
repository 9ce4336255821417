package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gfx/engine/window"
)

const eps = 1e-4

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < eps
}

func TestControllerDefaults(t *testing.T) {
	ctrl := NewController()
	x, y, z := ctrl.Position()
	if !near(x, 0) || !near(y, 0) || !near(z, 35) {
		t.Errorf("Position() = %v, %v, %v, want 0, 0, 35", x, y, z)
	}
}

func TestControllerOrbitClampsElevation(t *testing.T) {
	ctrl := NewController(WithElevationBounds(-0.5, 0.5))
	ctrl.Orbit(0, 10)
	if ctrl.Elevation() != 0.5 {
		t.Errorf("Elevation() = %v, want clamped to 0.5", ctrl.Elevation())
	}

	ctrl.Orbit(float32(math.Pi/2), -10)
	if ctrl.Elevation() != -0.5 {
		t.Errorf("Elevation() = %v, want clamped to -0.5", ctrl.Elevation())
	}
	// A quarter turn moves the camera onto +X.
	x, _, z := ctrl.Position()
	if x <= 0 || !near(z, 0) {
		t.Errorf("Position() x = %v, z = %v after a quarter turn", x, z)
	}
}

func TestControllerZoomClampsRadius(t *testing.T) {
	ctrl := NewController(WithRadius(10), WithRadiusBounds(2, 20), WithZoomSpeed(2))
	ctrl.Zoom(3)
	if ctrl.Radius() != 4 {
		t.Errorf("Radius() = %v, want 4", ctrl.Radius())
	}
	ctrl.Zoom(100)
	if ctrl.Radius() != 2 {
		t.Errorf("Radius() = %v, want the minimum 2", ctrl.Radius())
	}
	ctrl.Zoom(-100)
	if ctrl.Radius() != 20 {
		t.Errorf("Radius() = %v, want the maximum 20", ctrl.Radius())
	}
}

func TestControllerPanKeepsOrbit(t *testing.T) {
	ctrl := NewController(WithRadius(10))
	ctrl.Pan(3, 2)

	tx, ty, tz := ctrl.Target()
	if !near(tx, 3) || !near(ty, 2) || !near(tz, 0) {
		t.Errorf("Target() = %v, %v, %v, want 3, 2, 0", tx, ty, tz)
	}
	px, py, pz := ctrl.Position()
	if !near(px, 3) || !near(py, 2) || !near(pz, 10) {
		t.Errorf("Position() = %v, %v, %v, want 3, 2, 10", px, py, pz)
	}
}

func TestControllerDrag(t *testing.T) {
	ctrl := NewController(WithMouseSensitivity(0.01))
	ctrl.Drag(-50, 20)
	if !near(ctrl.Azimuth(), 0.5) || !near(ctrl.Elevation(), 0.2) {
		t.Errorf("angles = %v, %v, want 0.5, 0.2", ctrl.Azimuth(), ctrl.Elevation())
	}
}

func TestCameraFrustumFollowsController(t *testing.T) {
	cam := NewCamera(WithController(NewController(WithRadius(10))), WithClip(0.1, 50))

	f := cam.Frustum()
	if !f.IntersectsSphere(0, 0, 0, 1) {
		t.Error("target outside the frustum")
	}
	if f.IntersectsSphere(0, 0, 20, 1) {
		t.Error("point behind the camera inside the frustum")
	}

	// The target is projected to the centre of the screen.
	vp := cam.ViewProjectionMatrix()
	x, y, z := common.TransformPoint(vp[:], 0, 0, 0)
	if !near(x, 0) || !near(y, 0) || z < 0 || z > 1 {
		t.Errorf("target projects to %v, %v, %v", x, y, z)
	}
}

func TestCameraWithoutController(t *testing.T) {
	cam := NewCamera()
	view := cam.ViewMatrix()
	var identity [16]float32
	common.Identity(identity[:])
	if view != identity {
		t.Errorf("ViewMatrix() = %v, want identity", view)
	}
	if !cam.Frustum().IntersectsSphere(0, 0, -5, 0.5) {
		t.Error("point in front of the origin outside the frustum")
	}
}

func TestCameraSetters(t *testing.T) {
	cam := NewCamera(WithAspect(-1))
	if cam.Aspect() != 1 {
		t.Errorf("Aspect() = %v, want the default after a negative value", cam.Aspect())
	}
	cam.SetAspect(2)
	cam.SetFov(1)
	cam.SetClip(1, 10)
	if cam.Aspect() != 2 || cam.Fov() != 1 || cam.Near() != 1 || cam.Far() != 10 {
		t.Errorf("settings = %v, %v, %v, %v", cam.Aspect(), cam.Fov(), cam.Near(), cam.Far())
	}

	before := cam.ProjectionMatrix()
	cam.Update()
	if cam.ProjectionMatrix() == before {
		t.Error("Update() did not apply the new settings")
	}
}

func TestCameraApply(t *testing.T) {
	ctx, err := gfx.NewContext(
		gfx.WithRendererType(gfx.RendererTypeNoop),
		gfx.WithThreading(gfx.ThreadingSingle),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Shutdown()

	cam := NewCamera(WithHomogeneousDepth(true), WithController(NewController()))
	homogeneous := cam.ProjectionMatrix()
	cam.Apply(ctx, 0)
	if cam.ProjectionMatrix() == homogeneous {
		t.Error("Apply() kept the homogeneous depth range of a 0..1 backend")
	}
}

type inputWindow struct {
	window.Window

	onButton func(button window.MouseButton, pressed bool, x, y int32)
	onMove   func(x, y int32)
	onScroll func(delta float32)
	onKey    func(keyCode uint32)
}

func (w *inputWindow) SetMouseButtonCallback(cb func(window.MouseButton, bool, int32, int32)) {
	w.onButton = cb
}
func (w *inputWindow) SetMouseMoveCallback(cb func(x, y int32))  { w.onMove = cb }
func (w *inputWindow) SetScrollCallback(cb func(delta float32))  { w.onScroll = cb }
func (w *inputWindow) SetKeyDownCallback(cb func(keyCode uint32)) { w.onKey = cb }

func TestBindInput(t *testing.T) {
	w := &inputWindow{}
	ctrl := NewController(WithRadius(10), WithMouseSensitivity(0.01))
	BindInput(w, ctrl)

	w.onMove(100, 100)
	if ctrl.Azimuth() != 0 {
		t.Fatal("moving without a pressed button orbited")
	}
	w.onButton(window.MouseButtonLeft, true, 100, 100)
	w.onMove(90, 100)
	w.onButton(window.MouseButtonLeft, false, 90, 100)
	w.onMove(0, 0)
	if !near(ctrl.Azimuth(), 0.1) {
		t.Errorf("Azimuth() = %v, want 0.1", ctrl.Azimuth())
	}

	w.onScroll(2)
	if ctrl.Radius() != 8 {
		t.Errorf("Radius() = %v, want 8", ctrl.Radius())
	}

	w.onKey(common.KeyD)
	tx, _, _ := ctrl.Target()
	if tx == 0 {
		t.Error("D did not pan")
	}

	w.onKey(common.KeyUp)
	if !near(ctrl.Elevation(), keyOrbitStep) {
		t.Errorf("Elevation() = %v after the up arrow, want %v", ctrl.Elevation(), keyOrbitStep)
	}
}
