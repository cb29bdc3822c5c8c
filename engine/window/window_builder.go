package window

// WindowBuilderOption configures a window before its platform window is opened.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSizeLimits bounds the framebuffer size the user can resize to. A zero or negative value
// keeps the corresponding default.
//
// Parameters:
//   - minWidth, minHeight: the smallest size in pixels
//   - maxWidth, maxHeight: the largest size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		if minWidth > 0 {
			w.minWidth = minWidth
		}
		if minHeight > 0 {
			w.minHeight = minHeight
		}
		if maxWidth > 0 {
			w.maxWidth = maxWidth
		}
		if maxHeight > 0 {
			w.maxHeight = maxHeight
		}
	}
}

// WithWidth sets the requested initial width in pixels.
func WithWidth(width int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width.Store(int32(width))
	}
}

// WithHeight sets the requested initial height in pixels.
func WithHeight(height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.height.Store(int32(height))
	}
}

// WithAPI selects the graphics API the window is created for. Defaults to APIWebGPU.
//
// Parameters:
//   - api: APIWebGPU for a surface-only window, APIOpenGL for a 3.3 core context
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithAPI(api API) WindowBuilderOption {
	return func(w *engineWindow) {
		w.api = api
	}
}

// WithVSync sets whether an OpenGL window waits for vertical sync when swapping buffers.
func WithVSync(vsync bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.vsync = vsync
	}
}
