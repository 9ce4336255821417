package camera

import (
	"math"
	"sync"
)

type controllerImpl struct {
	mu sync.Mutex

	position [3]float32
	target   [3]float32

	radius    float32
	azimuth   float32 // around Y, 0 looks from +Z
	elevation float32 // above the XZ plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

var _ Controller = &controllerImpl{}

// NewController creates an orbit controller looking at the origin from 35 units
// along +Z.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the newly created controller
func NewController(options ...ControllerOption) Controller {
	cc := &controllerImpl{
		radius: 35.0,

		minRadius:    1.0,
		maxRadius:    1000.0,
		minElevation: float32(-math.Pi/2 + 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),

		mouseSensitivity: 0.005,
		zoomSpeed:        1.0,
		panSpeed:         1.0,
	}
	for _, option := range options {
		option(cc)
	}
	cc.radius = clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}

// updatePosition recomputes the position from the spherical coordinates. Caller must
// hold the mutex.
func (cc *controllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(cc.elevation)))
	sinElev := float32(math.Sin(float64(cc.elevation)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	sinAzim := float32(math.Sin(float64(cc.azimuth)))

	cc.position[0] = cc.target[0] + cc.radius*cosElev*sinAzim
	cc.position[1] = cc.target[1] + cc.radius*sinElev
	cc.position[2] = cc.target[2] + cc.radius*cosElev*cosAzim
}

// localAxes returns the right and up axes of the LookAt basis. Both are zero when
// position and target coincide. Caller must hold the mutex.
func (cc *controllerImpl) localAxes() (right, up [3]float32) {
	bx := cc.position[0] - cc.target[0]
	by := cc.position[1] - cc.target[1]
	bz := cc.position[2] - cc.target[2]
	bLen := float32(math.Sqrt(float64(bx*bx + by*by + bz*bz)))
	if bLen < 1e-8 {
		return
	}
	bx, by, bz = bx/bLen, by/bLen, bz/bLen

	// cross((0,1,0), backward)
	rx, rz := bz, -bx
	rLen := float32(math.Sqrt(float64(rx*rx + rz*rz)))
	if rLen < 1e-8 {
		return
	}
	rx, rz = rx/rLen, rz/rLen

	right = [3]float32{rx, 0, rz}
	up = [3]float32{by * rz, bz*rx - bx*rz, -by * rx}
	return
}

func (cc *controllerImpl) Position() (x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position[0], cc.position[1], cc.position[2]
}

func (cc *controllerImpl) Target() (x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target[0], cc.target[1], cc.target[2]
}

func (cc *controllerImpl) SetTarget(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = [3]float32{x, y, z}
	cc.updatePosition()
}

func (cc *controllerImpl) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth
	cc.elevation = clamp(cc.elevation+dElevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *controllerImpl) Drag(dx, dy int32) {
	cc.mu.Lock()
	s := cc.mouseSensitivity
	cc.mu.Unlock()
	cc.Orbit(-float32(dx)*s, float32(dy)*s)
}

func (cc *controllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = clamp(cc.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *controllerImpl) Pan(right, up float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	r, u := cc.localAxes()
	for i := range 3 {
		offset := (r[i]*right + u[i]*up) * cc.panSpeed
		cc.target[i] += offset
		cc.position[i] += offset
	}
}

func (cc *controllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *controllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *controllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}
