package material

import (
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/gogpu/gputypes"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithType sets the semantic role of the material.
// Blended types (transparent, additive) do not cast shadows unless WithCastsShadows is applied afterwards.
//
// Parameters:
//   - t: the MaterialType
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithType(t MaterialType) MaterialBuilderOption {
	return func(m *material) {
		m.materialType = t
		if t.IsBlended() {
			m.castsShadows = false
		}
	}
}

// WithShader sets the shader program handle of the material.
//
// Parameters:
//   - shader: the handle returned by the shader manager
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithShader(shader resource.Handle) MaterialBuilderOption {
	return func(m *material) {
		m.shader = shader
	}
}

// WithTexture appends a texture handle to the material's texture units.
//
// Parameters:
//   - texture: the handle returned by the texture manager
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithTexture(texture resource.Handle) MaterialBuilderOption {
	return func(m *material) {
		m.textures = append(m.textures, texture)
	}
}

// WithBaseColor sets the albedo RGBA color of the material.
//
// Parameters:
//   - color: the base color
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithBaseColor(color gputypes.Color) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithCastsShadows sets whether the material is drawn into the shadow pass.
//
// Parameters:
//   - casts: true if objects using the material cast shadows
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithCastsShadows(casts bool) MaterialBuilderOption {
	return func(m *material) {
		m.castsShadows = casts
	}
}
