package processor

import "github.com/Carmen-Shannon/oxy-render/engine/renderer/command"

// RecorderBuilderOption is a function that configures a recorder during construction.
type RecorderBuilderOption func(*recorder)

// WithOnProcess is an option builder that sets a callback invoked after each buffer is processed.
// The callback runs on the execution goroutine, outside the recorder's lock.
//
// Parameters:
//   - fn: the callback receiving the processed buffer
//
// Returns:
//   - RecorderBuilderOption: a function that applies the callback option to a recorder
func WithOnProcess(fn func(*command.Buffer)) RecorderBuilderOption {
	return func(r *recorder) {
		r.onProcess = fn
	}
}
