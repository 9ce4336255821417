package common

// Key codes delivered by window key callbacks. Printable keys use their ASCII value,
// the rest follow GLFW.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyA = 65
	KeyD = 68
	KeyE = 69
	KeyQ = 81
	KeyS = 83
	KeyW = 87

	KeyEsc = 256

	KeyRight = 262
	KeyLeft  = 263
	KeyDown  = 264
	KeyUp    = 265
)
