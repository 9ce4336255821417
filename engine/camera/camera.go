// Package camera computes view and projection matrices for a gfx view from an orbit
// controller, in the depth convention of the active backend.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
)

type cameraImpl struct {
	mu sync.Mutex

	up [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	homogeneousDepth bool

	view     [16]float32
	proj     [16]float32
	viewProj [16]float32
	frustum  common.Frustum

	controller Controller
}

// Camera holds perspective settings and turns the position of its Controller into
// the transform of a gfx view.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the view matrix of the last Update, column-major.
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the projection matrix of the last Update, column-major.
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view of the last Update.
	ViewProjectionMatrix() [16]float32

	// Frustum returns the world-space frustum of the last Update.
	//
	// Returns:
	//   - common.Frustum: a copy safe to read from encoder jobs
	Frustum() common.Frustum

	// Controller returns the attached controller, or nil.
	Controller() Controller

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetClip sets the near and far clipping plane distances.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetClip(near, far float32)

	// SetController attaches a controller.
	//
	// Parameters:
	//   - ctrl: the controller
	SetController(ctrl Controller)

	// Update recomputes the matrices from the controller. Without a controller the
	// camera sits at the origin looking down -Z.
	Update()

	// Apply updates the matrices in the depth convention of ctx and sets them as the
	// transform of a view.
	//
	// Parameters:
	//   - ctx: the gfx context
	//   - id: the view to configure
	Apply(ctx gfx.Context, id gfx.ViewID)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a perspective camera with a 60 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		up:     [3]float32{0, 1, 0},
		fov:    60.0 * (math.Pi / 180.0),
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proj
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frustum
}

func (c *cameraImpl) Controller() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) SetClip(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near, c.far = near, far
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) Apply(ctx gfx.Context, id gfx.ViewID) {
	c.mu.Lock()
	c.homogeneousDepth = ctx.Caps().HomogeneousDepth
	c.updateMatrices()
	view, proj := c.view, c.proj
	c.mu.Unlock()

	ctx.SetViewTransform(id, view[:], proj[:])
}

// updateMatrices recalculates the matrices and the frustum. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	px, py, pz := float32(0), float32(0), float32(0)
	tx, ty, tz := float32(0), float32(0), float32(-1)
	if c.controller != nil {
		px, py, pz = c.controller.Position()
		tx, ty, tz = c.controller.Target()
	}

	common.LookAt(c.view[:], px, py, pz, tx, ty, tz, c.up[0], c.up[1], c.up[2])
	common.Perspective(c.proj[:], c.fov, c.aspect, c.near, c.far, c.homogeneousDepth)
	common.Mul4(c.viewProj[:], c.proj[:], c.view[:])
	c.frustum = common.ExtractFrustumFromMatrix(c.viewProj[:], c.homogeneousDepth)
}
