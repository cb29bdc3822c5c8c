package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// API selects the graphics API the window is created for.
type API int

const (
	// APIWebGPU creates a window without a client API; the WebGPU surface is made from SurfaceDescriptor.
	APIWebGPU API = iota
	// APIOpenGL creates a window with an OpenGL 3.3 core context, exposed through GLContext.
	APIOpenGL
)

// Context is the window side of an OpenGL context. It is released from the creating thread so
// the render execution goroutine can make it current.
type Context interface {
	// MakeContextCurrent binds the context to the calling thread.
	MakeContextCurrent()

	// SwapBuffers presents the back buffer.
	SwapBuffers()
}

// Window is a GLFW-backed window that feeds input events to callbacks and hands its surface
// or GL context to a command processor.
//
// ProcessMessages, RequestClose and Close must run on the thread that created the window. Size
// may be read from any goroutine.
type Window interface {
	// SetUpdateCallback installs a function run once per message loop iteration. nil disables it.
	SetUpdateCallback(callback func())

	// SetResizeCallback installs a function receiving the new framebuffer size.
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback installs a function receiving vertical wheel deltas, positive when scrolling up.
	SetScrollCallback(callback func(delta float32))

	// Key callbacks receive GLFW key codes.
	SetKeyDownCallback(callback func(keyCode uint32))
	SetKeyUpCallback(callback func(keyCode uint32))

	// Mouse callbacks receive the cursor position in window pixels.
	SetMiddleMouseDownCallback(callback func(x, y int32))
	SetMiddleMouseUpCallback(callback func(x, y int32))
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor builds the platform surface descriptor for a WebGPU instance.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, nil before the platform window exists
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// GLContext returns the window's OpenGL context.
	//
	// Returns:
	//   - Context: the context, or nil unless the window was created with APIOpenGL
	GLContext() Context

	API() API

	IsRunning() bool

	// RequestClose makes ProcessMessages return after the current iteration without
	// destroying the window.
	RequestClose()

	// Close destroys the window. The GLFW library is terminated with it.
	//
	// Returns:
	//   - error: if the window was never created
	Close() error

	// ProcessMessages polls events until the window closes, running the update callback after each poll.
	ProcessMessages()

	Width() int
	Height() int

	// Size returns the framebuffer size as unsigned pixels.
	Size() (uint32, uint32)
}

type engineWindow struct {
	title string

	// size limits applied while the user resizes
	maxWidth, maxHeight int
	minWidth, minHeight int

	// written by the resize callback, read by the snapshot producer
	width  atomic.Int32
	height atomic.Int32

	api   API
	vsync bool // swap interval 1, OpenGL only

	// *glfwWindow once the platform window exists
	internalWindow any

	onUpdate          func()
	onResize          func(width, height int)
	onScroll          func(delta float32)
	onKeyDown         func(keyCode uint32)
	onKeyUp           func(keyCode uint32)
	onMiddleMouseDown func(x, y int32)
	onMiddleMouseUp   func(x, y int32)
	onMouseMove       func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow opens a GLFW window configured by options. It panics when the platform window
// cannot be created.
//
// Parameters:
//   - options: window options, applied over a 1280x720 WebGPU default
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	return w
}

// newEngineWindow applies defaults and options without touching the platform layer.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-render",
		maxWidth:  1600,
		maxHeight: 1200,
		minWidth:  600,
		minHeight: 200,
		api:       APIWebGPU,
		vsync:     true,
	}
	w.width.Store(1280)
	w.height.Store(720)
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMiddleMouseDownCallback(callback func(x, y int32)) {
	w.onMiddleMouseDown = callback
}

func (w *engineWindow) SetMiddleMouseUpCallback(callback func(x, y int32)) {
	w.onMiddleMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) GLContext() Context {
	return platformGetGLContext(w)
}

func (w *engineWindow) API() API {
	return w.api
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return int(w.width.Load())
}

func (w *engineWindow) Height() int {
	return int(w.height.Load())
}

func (w *engineWindow) Size() (uint32, uint32) {
	return uint32(max(w.width.Load(), 0)), uint32(max(w.height.Load(), 0))
}
