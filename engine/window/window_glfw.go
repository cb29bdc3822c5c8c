package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var errNotInitialized = errors.New("window: platform window not initialized")

type glfwWindow struct {
	window  *glfw.Window
	running bool
}

// newPlatformWindow initializes GLFW, opens the window for w.api and installs the input callbacks.
// The calling goroutine stays locked to its OS thread, which becomes the window's main thread.
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	applyAPIHints(w.api)

	win, err := glfw.CreateWindow(w.Width(), w.Height(), w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("glfw create window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	if w.api == APIOpenGL {
		win.MakeContextCurrent()
		interval := 0
		if w.vsync {
			interval = 1
		}
		glfw.SwapInterval(interval)
		// released so the execution goroutine can claim it
		glfw.DetachCurrentContext()
	}

	gw := &glfwWindow{window: win, running: true}
	w.internalWindow = gw
	installCallbacks(w, gw)

	// framebuffer size differs from the requested size on high-DPI displays
	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width.Store(int32(fbWidth))
	w.height.Store(int32(fbHeight))
	return nil
}

func applyAPIHints(api API) {
	if api != APIOpenGL {
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
		return
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
}

func installCallbacks(w *engineWindow, gw *glfwWindow) {
	win := gw.window

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.running = false
			win.SetShouldClose(true)
			return
		}
		switch {
		case action == glfw.Release && w.onKeyUp != nil:
			w.onKeyUp(uint32(key))
		case action != glfw.Release && w.onKeyDown != nil:
			w.onKeyDown(uint32(key))
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonMiddle {
			return
		}
		cb := w.onMiddleMouseDown
		if action == glfw.Release {
			cb = w.onMiddleMouseUp
		}
		if cb != nil {
			x, y := win.GetCursorPos()
			cb(int32(x), int32(y))
		}
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(int32(x), int32(y))
		}
	})

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width.Store(int32(width))
		w.height.Store(int32(height))
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
}

func glfwOf(w *engineWindow) (*glfwWindow, bool) {
	gw, ok := w.internalWindow.(*glfwWindow)
	return gw, ok && gw != nil
}

func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := glfwOf(w)
	if !ok {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// *glfw.Window satisfies Context directly.
func platformGetGLContext(w *engineWindow) Context {
	gw, ok := glfwOf(w)
	if !ok || w.api != APIOpenGL {
		return nil
	}
	return gw.window
}

func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := glfwOf(w)
	return ok && gw.running && !gw.window.ShouldClose()
}

func platformRequestClose(w *engineWindow) {
	if gw, ok := glfwOf(w); ok {
		gw.running = false
		gw.window.SetShouldClose(true)
	}
}

func platformCloseWindow(w *engineWindow) error {
	gw, ok := glfwOf(w)
	if !ok {
		return errNotInitialized
	}
	gw.running = false
	gw.window.Destroy()
	w.internalWindow = nil
	glfw.Terminate()
	return nil
}

// platformProcessMessages polls pending events without blocking.
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
