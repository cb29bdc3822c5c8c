package pass

import "github.com/Carmen-Shannon/automation/tools/worker"

// CompilerBuilderOption is a function that configures the pass compiler during construction.
type CompilerBuilderOption func(*compiler)

// WithShadows is an option builder that sets whether the shadow pass is part of the sequence.
//
// Parameters:
//   - enabled: true to emit the shadow pass first
//
// Returns:
//   - CompilerBuilderOption: a function that applies the shadow option to a compiler
func WithShadows(enabled bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.shadows = enabled
	}
}

// WithWorkerPool is an option builder that compiles independent passes concurrently on the pool.
// The pool must not be the pool the compiler itself is running on.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - CompilerBuilderOption: a function that applies the pool option to a compiler
func WithWorkerPool(pool worker.DynamicWorkerPool) CompilerBuilderOption {
	return func(c *compiler) {
		c.pool = pool
	}
}
