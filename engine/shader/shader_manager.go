// Package shader owns render shaders and queues their GPU lifecycle.
//
// Shader sources are backend specific. OpenGL backends compile Vertex and Fragment as separate
// GLSL stages; WebGPU backends take a single WGSL module in Vertex with vs_main and fs_main
// entry points and an empty Fragment.
package shader

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

// Shader is a shader program owned by a Manager.
type Shader struct {
	handle resource.Handle
	name   string
	state  resource.State
}

// Handle returns the handle materials use to reference the shader.
func (s *Shader) Handle() resource.Handle {
	return s.handle
}

// Name returns the shader name.
func (s *Shader) Name() string {
	return s.name
}

// Manager creates and destroys render shaders. All methods are safe for concurrent use.
type Manager interface {
	snapshot.Listener

	// CreateShader registers a shader and queues its compilation. Panics if vertex is empty.
	//
	// Parameters:
	//   - name: a label used in backend diagnostics
	//   - vertex: the vertex stage source, or the whole WGSL module
	//   - fragment: the fragment stage source, empty for WGSL
	//
	// Returns:
	//   - *Shader: the new shader
	CreateShader(name, vertex, fragment string) *Shader

	// DestroyShader queues the shader's release. Panics if the shader is unknown or already destroyed.
	//
	// Parameters:
	//   - s: the shader to destroy
	DestroyShader(s *Shader)

	// Lookup finds a live shader by name.
	//
	// Parameters:
	//   - name: the shader name
	//
	// Returns:
	//   - *Shader: the shader, or nil
	//   - bool: true if a live shader has that name
	Lookup(name string) (*Shader, bool)

	// State returns the lifecycle stage of the shader.
	State(s *Shader) resource.State

	// LiveCount returns the number of shaders created and not yet destroyed.
	LiveCount() int

	// Close checks that every shader was destroyed. Panics if any are still live.
	Close()
}

type manager struct {
	mu             *sync.Mutex
	shaders        *resource.Arena[Shader]
	byName         map[string]*Shader
	pendingLoads   []command.LoadShaderCommand
	pendingUnloads []*Shader
}

var _ Manager = &manager{}

// NewManager creates an empty shader manager.
func NewManager() Manager {
	return &manager{
		mu:      &sync.Mutex{},
		shaders: resource.NewArena[Shader](16),
		byName:  make(map[string]*Shader),
	}
}

func (m *manager) CreateShader(name, vertex, fragment string) *Shader {
	if vertex == "" {
		panic(fmt.Sprintf("shader: %q has no vertex source", name))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Shader{name: name}
	s.handle = m.shaders.Insert(s)
	s.state = resource.StatePendingLoad
	m.byName[name] = s
	m.pendingLoads = append(m.pendingLoads, command.LoadShaderCommand{
		Shader:   s.handle,
		Name:     name,
		Vertex:   vertex,
		Fragment: fragment,
	})
	return s
}

func (m *manager) DestroyShader(s *Shader) {
	if s == nil {
		panic("shader: DestroyShader called with nil shader")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if owned, ok := m.shaders.Get(s.handle); !ok || owned != s {
		panic(fmt.Sprintf("shader: DestroyShader called with unknown handle %s", s.handle))
	}
	if s.state == resource.StatePendingUnload {
		panic(fmt.Sprintf("shader: DestroyShader called twice for %s", s.handle))
	}
	s.state = resource.StatePendingUnload
	if m.byName[s.name] == s {
		delete(m.byName, s.name)
	}
	m.pendingUnloads = append(m.pendingUnloads, s)
}

func (m *manager) Lookup(name string) (*Shader, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byName[name]
	return s, ok
}

func (m *manager) State(s *Shader) resource.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.state
}

func (m *manager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shaders.Len() - len(m.pendingUnloads)
}

func (m *manager) OnRenderSnapshot(target snapshot.TargetType, snap *snapshot.RenderSnapshot) {
	if target != snapshot.TargetMain {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pendingLoads) == 0 && len(m.pendingUnloads) == 0 {
		return
	}

	for _, load := range m.pendingLoads {
		snap.PreRender.Add(load)
		if s, ok := m.shaders.Get(load.Shader); ok {
			s.state = s.state.Loaded()
		}
	}
	for _, s := range m.pendingUnloads {
		snap.PostRender.Add(command.UnloadShaderCommand{Shader: s.handle})
		s.state = resource.StateDestroyed
		m.shaders.Remove(s.handle)
	}

	if log := common.Logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("shader: drained pending transitions",
			"loads", len(m.pendingLoads), "unloads", len(m.pendingUnloads))
	}
	clear(m.pendingLoads)
	m.pendingLoads = m.pendingLoads[:0]
	m.pendingUnloads = m.pendingUnloads[:0]
}

func (m *manager) Close() {
	if n := m.LiveCount(); n > 0 {
		panic(fmt.Sprintf("shader: manager closed with %d live shaders", n))
	}
}
