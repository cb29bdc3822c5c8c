// Package mesh owns render meshes and queues their GPU lifecycle.
//
// Mesh creation is validated against the buffer capacity reserved for it. Data that does not
// fit is a recoverable failure: the manager logs it, returns its default placeholder mesh and
// ErrCapacityExceeded, and the frame renders with degraded geometry.
package mesh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
)

// Manager creates and destroys render meshes. All methods are safe for concurrent use.
type Manager interface {
	snapshot.Listener

	// CreateMesh registers a mesh and queues its upload.
	// Panics if the index count is not a multiple of three or an index is out of range.
	//
	// Parameters:
	//   - desc: the mesh geometry
	//
	// Returns:
	//   - *Mesh: the new mesh, or the default mesh if the data exceeds its capacity
	//   - error: wraps ErrCapacityExceeded when the default mesh was returned
	CreateMesh(desc Descriptor) (*Mesh, error)

	// DestroyMesh queues the mesh's release. Destroying the default mesh is a no-op.
	// Panics if the mesh is unknown or already destroyed.
	//
	// Parameters:
	//   - m: the mesh to destroy
	DestroyMesh(m *Mesh)

	// DefaultMesh returns the placeholder mesh used when a build fails.
	DefaultMesh() *Mesh

	// State returns the lifecycle stage of the mesh.
	State(m *Mesh) resource.State

	// LiveCount returns the number of meshes created and not yet destroyed, excluding the default mesh.
	LiveCount() int

	// Close checks that every mesh was destroyed and queues the default mesh's release.
	// Panics if any meshes are still live.
	Close()
}

type pendingLoad struct {
	mesh *Mesh
	desc Descriptor
}

type manager struct {
	mu             *sync.Mutex
	meshes         *resource.Arena[Mesh]
	pendingLoads   []pendingLoad
	pendingUnloads []*Mesh
	defaultMesh    *Mesh
	live           int
	closed         bool

	maxVertices int
	maxIndices  int
	defaultDesc Descriptor
}

var _ Manager = &manager{}

// NewManager creates a mesh manager and queues the upload of its default mesh.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Manager: the new manager
func NewManager(options ...ManagerBuilderOption) Manager {
	m := &manager{
		mu:          &sync.Mutex{},
		meshes:      resource.NewArena[Mesh](64),
		maxVertices: 1 << 16,
		maxIndices:  3 << 16,
		defaultDesc: Cube("default", 1),
	}
	for _, opt := range options {
		opt(m)
	}

	m.defaultMesh = m.insert(m.defaultDesc)
	m.defaultMesh.isDefault = true
	return m
}

func (m *manager) CreateMesh(desc Descriptor) (*Mesh, error) {
	validate(desc)

	vertexCap, indexCap := m.maxVertices, m.maxIndices
	if desc.VertexCapacity > 0 {
		vertexCap = desc.VertexCapacity
	}
	if desc.IndexCapacity > 0 {
		indexCap = desc.IndexCapacity
	}
	if len(desc.Vertices) > vertexCap || len(desc.Indices) > indexCap {
		common.Logger().Error("mesh: data exceeds buffer capacity, using default mesh",
			"mesh", desc.Name,
			"vertices", len(desc.Vertices), "vertexCapacity", vertexCap,
			"indices", len(desc.Indices), "indexCapacity", indexCap)
		return m.defaultMesh, fmt.Errorf("mesh %q: %d vertices, %d indices: %w",
			desc.Name, len(desc.Vertices), len(desc.Indices), ErrCapacityExceeded)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	mesh := m.insert(desc)
	m.live++
	return mesh, nil
}

// insert must be called with mu held, or before the manager is shared.
func (m *manager) insert(desc Descriptor) *Mesh {
	mesh := &Mesh{
		name:       common.Coalesce(desc.Name, "mesh"),
		indexCount: uint32(len(desc.Indices)),
		radius:     boundingRadius(desc.Vertices),
	}
	mesh.handle = m.meshes.Insert(mesh)
	mesh.state = resource.StatePendingLoad
	m.pendingLoads = append(m.pendingLoads, pendingLoad{mesh: mesh, desc: desc})
	return mesh
}

func (m *manager) DestroyMesh(mesh *Mesh) {
	if mesh == nil {
		panic("mesh: DestroyMesh called with nil mesh")
	}
	if mesh.isDefault {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if owned, ok := m.meshes.Get(mesh.handle); !ok || owned != mesh {
		panic(fmt.Sprintf("mesh: DestroyMesh called with unknown handle %s", mesh.handle))
	}
	if mesh.state == resource.StatePendingUnload {
		panic(fmt.Sprintf("mesh: DestroyMesh called twice for %s", mesh.handle))
	}
	m.unload(mesh)
	m.live--
}

func (m *manager) unload(mesh *Mesh) {
	mesh.state = resource.StatePendingUnload
	m.pendingUnloads = append(m.pendingUnloads, mesh)
}

func (m *manager) DefaultMesh() *Mesh {
	return m.defaultMesh
}

func (m *manager) State(mesh *Mesh) resource.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mesh.state
}

func (m *manager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// OnRenderSnapshot drains pending loads into pre-render and pending unloads into post-render
// for main-target snapshots.
func (m *manager) OnRenderSnapshot(target snapshot.TargetType, snap *snapshot.RenderSnapshot) {
	if target != snapshot.TargetMain {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pendingLoads) == 0 && len(m.pendingUnloads) == 0 {
		return
	}

	for _, p := range m.pendingLoads {
		snap.PreRender.Add(command.LoadMeshCommand{
			Mesh:     p.mesh.handle,
			Vertices: p.desc.Vertices,
			Indices:  p.desc.Indices,
		})
		p.mesh.state = p.mesh.state.Loaded()
	}
	for _, mesh := range m.pendingUnloads {
		snap.PostRender.Add(command.UnloadMeshCommand{Mesh: mesh.handle})
		mesh.state = resource.StateDestroyed
		m.meshes.Remove(mesh.handle)
	}

	if log := common.Logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("mesh: drained pending transitions",
			"loads", len(m.pendingLoads), "unloads", len(m.pendingUnloads))
	}
	clear(m.pendingLoads)
	m.pendingLoads = m.pendingLoads[:0]
	m.pendingUnloads = m.pendingUnloads[:0]
}

func (m *manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live > 0 {
		panic(fmt.Sprintf("mesh: manager closed with %d live meshes", m.live))
	}
	if m.closed {
		return
	}
	m.closed = true
	m.unload(m.defaultMesh)
}

func validate(desc Descriptor) {
	if len(desc.Indices)%3 != 0 {
		panic(fmt.Sprintf("mesh: %q has %d indices, want a multiple of 3", desc.Name, len(desc.Indices)))
	}
	n := uint32(len(desc.Vertices))
	for i, idx := range desc.Indices {
		if idx >= n {
			panic(fmt.Sprintf("mesh: %q index %d is %d, out of range for %d vertices", desc.Name, i, idx, n))
		}
	}
}
