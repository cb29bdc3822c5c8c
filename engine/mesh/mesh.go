package mesh

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrCapacityExceeded is returned when mesh data does not fit the buffer capacity reserved for it.
// The manager still returns a usable mesh, the default placeholder.
var ErrCapacityExceeded = errors.New("mesh: data exceeds buffer capacity")

// Descriptor holds the CPU-side geometry of a mesh.
type Descriptor struct {
	Name     string
	Vertices []command.Vertex
	Indices  []uint32

	// VertexCapacity and IndexCapacity reserve buffer space. Zero uses the manager's limits.
	VertexCapacity int
	IndexCapacity  int
}

// Mesh is geometry owned by a Manager.
type Mesh struct {
	handle     resource.Handle
	name       string
	indexCount uint32
	radius     float32
	isDefault  bool
	state      resource.State
}

// Handle returns the handle commands use to reference the mesh.
func (m *Mesh) Handle() resource.Handle {
	return m.handle
}

// Name returns the mesh name.
func (m *Mesh) Name() string {
	return m.name
}

// IndexCount returns the number of indices drawn for the mesh.
func (m *Mesh) IndexCount() uint32 {
	return m.indexCount
}

// BoundingRadius returns the local-space radius around the origin enclosing every vertex.
func (m *Mesh) BoundingRadius() float32 {
	return m.radius
}

// IsDefault reports whether this is the manager's placeholder mesh.
func (m *Mesh) IsDefault() bool {
	return m.isDefault
}

// Ref returns the reference snapshots carry for the mesh.
func (m *Mesh) Ref() snapshot.MeshRef {
	return snapshot.MeshRef{
		Handle:         m.handle,
		IndexCount:     m.indexCount,
		BoundingRadius: m.radius,
	}
}

func boundingRadius(vertices []command.Vertex) float32 {
	var r float32
	for _, v := range vertices {
		if l := v.Position.Len(); l > r {
			r = l
		}
	}
	return r
}

// Cube builds an axis-aligned cube centred on the origin with per-face normals.
//
// Parameters:
//   - name: the mesh name
//   - size: the edge length
//
// Returns:
//   - Descriptor: 24 vertices and 36 indices
func Cube(name string, size float32) Descriptor {
	h := size / 2
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}

	d := Descriptor{Name: name}
	for _, f := range faces {
		base := uint32(len(d.Vertices))
		centre := f.normal.Mul(h)
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			pos := centre.Add(f.u.Mul(c[0] * h)).Add(f.v.Mul(c[1] * h))
			d.Vertices = append(d.Vertices, command.Vertex{
				Position: pos,
				Normal:   f.normal,
				UV:       mgl32.Vec2{(c[0] + 1) / 2, (1 - c[1]) / 2},
			})
		}
		d.Indices = append(d.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return d
}

// Plane builds a square in the XZ plane facing +Y.
//
// Parameters:
//   - name: the mesh name
//   - size: the edge length
//
// Returns:
//   - Descriptor: 4 vertices and 6 indices
func Plane(name string, size float32) Descriptor {
	h := size / 2
	up := mgl32.Vec3{0, 1, 0}
	return Descriptor{
		Name: name,
		Vertices: []command.Vertex{
			{Position: mgl32.Vec3{-h, 0, h}, Normal: up, UV: mgl32.Vec2{0, 1}},
			{Position: mgl32.Vec3{h, 0, h}, Normal: up, UV: mgl32.Vec2{1, 1}},
			{Position: mgl32.Vec3{h, 0, -h}, Normal: up, UV: mgl32.Vec2{1, 0}},
			{Position: mgl32.Vec3{-h, 0, -h}, Normal: up, UV: mgl32.Vec2{0, 0}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
