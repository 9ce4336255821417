package camera

// ControllerOption is a functional option for configuring a Controller.
type ControllerOption func(*controllerImpl)

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - ControllerOption: functional option to set the radius
func WithRadius(radius float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.radius = radius
	}
}

// WithAngles sets the initial azimuth and elevation.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - ControllerOption: functional option to set the orbit angles
func WithAngles(azimuth, elevation float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.azimuth = azimuth
		cc.elevation = elevation
	}
}

// WithTarget sets the look-at/pivot point.
//
// Parameters:
//   - x, y, z: world-space coordinates of the target
//
// Returns:
//   - ControllerOption: functional option to set the target position
func WithTarget(x, y, z float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.target = [3]float32{x, y, z}
	}
}

// WithRadiusBounds sets the minimum and maximum orbit radius.
//
// Parameters:
//   - min: minimum zoom distance
//   - max: maximum zoom distance
//
// Returns:
//   - ControllerOption: functional option to set radius bounds
func WithRadiusBounds(min, max float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithElevationBounds sets the minimum and maximum elevation angles.
//
// Parameters:
//   - min: minimum vertical angle in radians
//   - max: maximum vertical angle in radians
//
// Returns:
//   - ControllerOption: functional option to set elevation bounds
func WithElevationBounds(min, max float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.minElevation = min
		cc.maxElevation = max
	}
}

// WithMouseSensitivity sets the radians per pixel of Drag.
//
// Parameters:
//   - sensitivity: multiplier for mouse movement
//
// Returns:
//   - ControllerOption: functional option to set mouse sensitivity
func WithMouseSensitivity(sensitivity float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the zoom speed multiplier.
//
// Parameters:
//   - speed: multiplier for zoom input
//
// Returns:
//   - ControllerOption: functional option to set zoom speed
func WithZoomSpeed(speed float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.zoomSpeed = speed
	}
}

// WithPanSpeed sets the pan speed multiplier.
//
// Parameters:
//   - speed: multiplier for pan input
//
// Returns:
//   - ControllerOption: functional option to set pan speed
func WithPanSpeed(speed float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.panSpeed = speed
	}
}
