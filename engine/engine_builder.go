package engine

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
	"github.com/gogpu/gputypes"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithTickCallback sets the function called each tick before the snapshot is built.
//
// Parameters:
//   - callback: function receiving the delta time in seconds
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}

// WithWindow sets the window the engine pumps messages for and sizes snapshots from.
// Without a window the engine runs headless at the WithResolution size.
//
// Parameters:
//   - w: a created Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithResolution sets the snapshot resolution used when the engine has no window.
//
// Parameters:
//   - width, height: the resolution in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithResolution(width, height uint32) EngineBuilderOption {
	return func(e *engine) {
		e.resolution = [2]uint32{width, height}
	}
}

// WithListeners registers snapshot listeners in order.
//
// Parameters:
//   - listeners: the listeners, typically scenes and resource managers
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithListeners(listeners ...snapshot.Listener) EngineBuilderOption {
	return func(e *engine) {
		for _, l := range listeners {
			if l != nil {
				e.listeners = append(e.listeners, l)
			}
		}
	}
}

// WithClearColor sets the colour each snapshot's first pass clears to.
//
// Parameters:
//   - c: the clear colour
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClearColor(c gputypes.Color) EngineBuilderOption {
	return func(e *engine) {
		e.clearColor = c
	}
}

// WithRenderFrameLimit sets an optional cap on command buffers executed per second.
// Pass 0 to uncap the execution loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit.Store(int64(frameLimit(fps)))
	}
}
