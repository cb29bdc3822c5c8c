// Package processor defines the boundary between the render pipeline and a graphics backend.
package processor

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
)

// CommandProcessor executes command buffers on the execution goroutine.
//
// Implementations translate each command into backend calls strictly in buffer order:
// later commands rely on state (bound shader, bound mesh, resident resources) established
// by earlier ones. Process reports nothing back; a buffer is done when Process returns.
//
// A processor is owned by the execution goroutine. Backends with thread-affine contexts
// (OpenGL) must have Init, Process and Close called from the goroutine that owns the context.
type CommandProcessor interface {
	// Init prepares backend state. It is called once before the first Process.
	//
	// Returns:
	//   - error: an error if the backend could not be initialized
	Init() error

	// Process executes every command of the buffer in order.
	// Commands that fail are logged and skipped; processing continues with the next command.
	//
	// Parameters:
	//   - buf: the command buffer to execute
	Process(buf *command.Buffer)

	// Close releases every backend resource still held.
	//
	// Returns:
	//   - error: an error if releasing failed
	Close() error
}
