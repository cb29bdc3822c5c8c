package wgpu_backend

import "github.com/cogentcore/webgpu/wgpu"

// ProcessorBuilderOption is a function that configures the WebGPU processor during construction.
type ProcessorBuilderOption func(*wgpuProcessor)

// WithPresentMode is an option builder that sets the surface present mode. Defaults to FIFO.
//
// Parameters:
//   - mode: the wgpu present mode used when the surface is configured
//
// Returns:
//   - ProcessorBuilderOption: a function that applies the present mode to a processor
func WithPresentMode(mode wgpu.PresentMode) ProcessorBuilderOption {
	return func(p *wgpuProcessor) {
		p.presentMode = mode
	}
}

// WithForceFallbackAdapter is an option builder that requests the software fallback adapter.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - ProcessorBuilderOption: a function that applies the adapter option to a processor
func WithForceFallbackAdapter(force bool) ProcessorBuilderOption {
	return func(p *wgpuProcessor) {
		p.forceFallback = force
	}
}

// WithPresent is an option builder that sets whether the processor presents the surface after
// each command buffer. Enabled by default.
//
// Parameters:
//   - present: true to present after every buffer
//
// Returns:
//   - ProcessorBuilderOption: a function that applies the present option to a processor
func WithPresent(present bool) ProcessorBuilderOption {
	return func(p *wgpuProcessor) {
		p.present = present
	}
}
