package mesh

// ManagerBuilderOption is a function that configures the mesh manager during construction.
type ManagerBuilderOption func(*manager)

// WithCapacity sets the default buffer capacity reserved per mesh.
// Descriptors can override it with their own VertexCapacity and IndexCapacity.
//
// Parameters:
//   - vertices: maximum vertex count
//   - indices: maximum index count
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithCapacity(vertices, indices int) ManagerBuilderOption {
	return func(m *manager) {
		if vertices > 0 {
			m.maxVertices = vertices
		}
		if indices > 0 {
			m.maxIndices = indices
		}
	}
}

// WithDefaultMesh replaces the placeholder returned when a build
// fails. The default is a unit cube.
//
// Parameters:
//   - desc: the placeholder geometry
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithDefaultMesh(desc Descriptor) ManagerBuilderOption {
	return func(m *manager) {
		validate(desc)
		m.defaultDesc = desc
	}
}
