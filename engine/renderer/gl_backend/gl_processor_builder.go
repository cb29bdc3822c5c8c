package gl_backend

// ProcessorBuilderOption is a function that configures the GL processor during construction.
type ProcessorBuilderOption func(*glProcessor)

// WithPresent is an option builder that sets whether the processor swaps the window's buffers
// after each command buffer. Enabled by default; disable it when the caller presents.
//
// Parameters:
//   - present: true to swap after every buffer
//
// Returns:
//   - ProcessorBuilderOption: a function that applies the present option to a processor
func WithPresent(present bool) ProcessorBuilderOption {
	return func(p *glProcessor) {
		p.present = present
	}
}
