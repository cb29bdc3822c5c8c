package renderer

import (
	"runtime"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_compiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pass"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipelineMode sets the pipeline mode passes are compiled for.
//
// Parameters:
//   - mode: the PipelineMode (forward or deferred)
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithPipelineMode(mode pass.PipelineMode) RendererBuilderOption {
	return func(r *renderer) {
		r.mode = mode
	}
}

// WithShadows sets whether the shadow pass is compiled ahead of the main passes.
//
// Parameters:
//   - enabled: true to enable the shadow pass
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithShadows(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.shadows = enabled
	}
}

// WithQueueCapacity sets how many completed command buffers may wait for the execution
// goroutine. 2 is double buffering, 3 triple buffering.
//
// Parameters:
//   - capacity: the queue capacity, at least 1
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithQueueCapacity(capacity int) RendererBuilderOption {
	return func(r *renderer) {
		r.queueCapacity = capacity
	}
}

// WithCompileWorkers sets the number of workers that compile passes and lower commands in parallel.
//
// Parameters:
//   - workers: the worker count, values below 1 use 1
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithCompileWorkers(workers int) RendererBuilderOption {
	return func(r *renderer) {
		r.compileWorkers = max(workers, 1)
	}
}

// WithFrameCompiler replaces the default frame compiler.
//
// Parameters:
//   - c: the frame compiler
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithFrameCompiler(c frame.Compiler) RendererBuilderOption {
	return func(r *renderer) {
		r.frameCompiler = c
	}
}

// WithPassCompiler replaces the default pass compiler. The compiler's own mode takes precedence
// over WithPipelineMode.
//
// Parameters:
//   - c: the pass compiler
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithPassCompiler(c pass.Compiler) RendererBuilderOption {
	return func(r *renderer) {
		r.passCompiler = c
	}
}

// WithCommandCompiler replaces the default command compiler.
//
// Parameters:
//   - c: the command compiler
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithCommandCompiler(c command_compiler.Compiler) RendererBuilderOption {
	return func(r *renderer) {
		r.commandCompiler = c
	}
}

func defaultCompileWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}
