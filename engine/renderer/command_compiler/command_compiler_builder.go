package command_compiler

import "github.com/Carmen-Shannon/automation/tools/worker"

// CompilerBuilderOption is a function that configures the command compiler during construction.
type CompilerBuilderOption func(*compiler)

// WithWorkerPool is an option builder that lowers passes concurrently on the pool. Each pass
// is lowered into its own slice and the slices are joined in pass order.
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
