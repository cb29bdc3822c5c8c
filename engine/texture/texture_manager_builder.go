package texture

// ManagerBuilderOption is a function that configures the texture manager during construction.
type ManagerBuilderOption func(*manager)

// WithInitialCapacity is an option builder that sets how many textures the manager reserves
// handle slots for before growing.
//
// Parameters:
//   - capacity: the initial slot count
//
// Returns:
//   - ManagerBuilderOption: a function that applies the capacity option to a manager
func WithInitialCapacity(capacity int) ManagerBuilderOption {
	return func(m *manager) {
		if capacity > 0 {
			m.capacity = capacity
		}
	}
}
