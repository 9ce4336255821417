package camera

// Controller owns the position of a camera. It orbits a target point in spherical
// coordinates (radius, azimuth, elevation) and pans the target along the camera's
// local axes.
type Controller interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - x, y, z: world-space camera position
	Position() (x, y, z float32)

	// Target returns the look-at point.
	//
	// Returns:
	//   - x, y, z: world-space target position
	Target() (x, y, z float32)

	// SetTarget moves the pivot point, keeping the orbit angles and radius.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetTarget(x, y, z float32)

	// Orbit rotates around the target. Elevation is clamped to its bounds.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians
	Orbit(dAzimuth, dElevation float32)

	// Drag orbits by a mouse movement in pixels, scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx, dy: cursor movement in pixels
	Drag(dx, dy int32)

	// Zoom moves toward the target by delta times the zoom speed, clamped to the
	// radius bounds. Positive delta zooms in.
	//
	// Parameters:
	//   - delta: zoom amount
	Zoom(delta float32)

	// Pan translates position and target together along the local right and up axes.
	//
	// Parameters:
	//   - right: distance along the right axis, scaled by the pan speed
	//   - up: distance along the up axis, scaled by the pan speed
	Pan(right, up float32)

	// Radius returns the distance from the target.
	Radius() float32

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// Elevation returns the vertical angle from the horizontal plane in radians.
	Elevation() float32
}
