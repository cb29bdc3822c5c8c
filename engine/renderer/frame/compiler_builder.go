package frame

import "github.com/Carmen-Shannon/automation/tools/worker"

// CompilerBuilderOption is a function that configures the frame compiler during construction.
type CompilerBuilderOption func(*compiler)

// WithWorkerPool is an option builder that resolves objects in parallel chunks on the given pool.
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

// WithLightCulling is an option builder that sets whether point and spot lights outside the
// camera frustum are dropped from the frame. Enabled by default.
//
// Parameters:
//   - enabled: true to cull lights
//
// Returns:
//   - CompilerBuilderOption: a function that applies the light culling option to a compiler
func WithLightCulling(enabled bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.cullLights = enabled
	}
}

// WithShadowHalfExtent is an option builder that sets the half-size in world units of the
// directional shadow frustum.
//
// Parameters:
//   - halfExtent: the orthographic half-extent
//
// Returns:
//   - CompilerBuilderOption: a function that applies the shadow extent option to a compiler
func WithShadowHalfExtent(halfExtent float32) CompilerBuilderOption {
	return func(c *compiler) {
		c.shadowHalfExtent = halfExtent
	}
}
