package material

import (
	"slices"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/gogpu/gputypes"
)

// materialCount is an atomic counter used to give every material a unique ID for batching.
var materialCount atomic.Uint64

// MaterialType identifies the semantic role of a material, which decides the render passes
// an object using it is compiled into.
type MaterialType int

const (
	// MaterialTypeOpaque writes depth and is drawn front-to-back in the opaque (or geometry-buffer) pass.
	MaterialTypeOpaque MaterialType = iota

	// MaterialTypeCutout is alpha-tested. It is drawn with the opaque objects.
	MaterialTypeCutout

	// MaterialTypeTransparent is alpha-blended and drawn back-to-front in the transparent pass.
	MaterialTypeTransparent

	// MaterialTypeAdditive is additively blended and drawn in the transparent pass.
	MaterialTypeAdditive
)

// String returns the name of the material type.
func (t MaterialType) String() string {
	switch t {
	case MaterialTypeOpaque:
		return "opaque"
	case MaterialTypeCutout:
		return "cutout"
	case MaterialTypeTransparent:
		return "transparent"
	case MaterialTypeAdditive:
		return "additive"
	}
	return "unknown"
}

// IsBlended reports whether the material type requires blending with the framebuffer.
func (t MaterialType) IsBlended() bool {
	return t == MaterialTypeTransparent || t == MaterialTypeAdditive
}

// material is the implementation of the Material interface.
type material struct {
	id           uint64
	name         string
	materialType MaterialType
	shader       resource.Handle
	textures     []resource.Handle
	baseColor    gputypes.Color
	metallic     float32
	roughness    float32
	castsShadows bool
}

// Material defines the interface for a render material: the surface properties, shader and
// texture handles needed to draw an object.
//
// Materials are immutable once built so the same Material can be referenced by snapshots that
// are being compiled on background goroutines while the producer builds the next frame.
type Material interface {
	// ID returns the unique identifier of this material. Two draws with the same ID share all
	// material state, which the command compiler uses to skip redundant bind commands.
	//
	// Returns:
	//   - uint64: the material ID
	ID() uint64

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Type retrieves the semantic role of the material.
	//
	// Returns:
	//   - MaterialType: the material type
	Type() MaterialType

	// Shader retrieves the handle of the shader program the material is drawn with.
	//
	// Returns:
	//   - resource.Handle: the shader handle
	Shader() resource.Handle

	// Textures retrieves a copy of the texture handles bound by the material, in texture unit order.
	//
	// Returns:
	//   - []resource.Handle: the texture handles
	Textures() []resource.Handle

	// BaseColor retrieves the albedo RGBA color of the material.
	//
	// Returns:
	//   - gputypes.Color: the base color
	BaseColor() gputypes.Color

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// CastsShadows reports whether objects using this material are drawn into the shadow pass.
	//
	// Returns:
	//   - bool: true if the material casts shadows
	CastsShadows() bool
}

var _ Material = &material{}

// NewMaterial creates a new immutable Material configured by the given options.
// Defaults to an opaque, white, shadow-casting material with roughness 1.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: the new material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		id:           materialCount.Add(1),
		materialType: MaterialTypeOpaque,
		baseColor:    gputypes.ColorWhite,
		roughness:    1,
		castsShadows: true,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uint64 {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Type() MaterialType {
	return m.materialType
}

func (m *material) Shader() resource.Handle {
	return m.shader
}

func (m *material) Textures() []resource.Handle {
	return slices.Clone(m.textures)
}

func (m *material) BaseColor() gputypes.Color {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) CastsShadows() bool {
	return m.castsShadows
}
