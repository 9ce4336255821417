package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial window size.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}

// WithMaxSize bounds how large the user can resize the window. Zero leaves a
// dimension unbounded.
//
// Parameters:
//   - maxWidth: maximum width in pixels
//   - maxHeight: maximum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth = maxWidth
		w.maxHeight = maxHeight
	}
}

// WithMinSize bounds how small the user can resize the window.
//
// Parameters:
//   - minWidth: minimum width in pixels
//   - minHeight: minimum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(minWidth, minHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = minWidth
		w.minHeight = minHeight
	}
}

// WithResizable allows or forbids user resizing.
//
// Parameters:
//   - resizable: true to allow resizing
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithResizable(resizable bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = resizable
	}
}

// WithVisible controls whether the window is shown when created.
//
// Parameters:
//   - visible: false to create the window hidden
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithVisible(visible bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.visible = visible
	}
}

// WithEscapeCloses controls whether pressing Escape closes the window.
//
// Parameters:
//   - enabled: true to close on Escape
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithEscapeCloses(enabled bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.escapeCloses = enabled
	}
}

// WithIconFile sets the window icon from a PNG, JPEG, BMP or WebP file. NewWindow
// fails if the file cannot be decoded.
//
// Parameters:
//   - path: the image file
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithIconFile(path string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.iconPath = path
	}
}
