// Package texture owns render textures and queues their GPU lifecycle.
//
// Creating or destroying a texture never touches the GPU. The manager records a pending load
// or unload, and when the next main-target snapshot is built it moves loads into the
// snapshot's pre-render list and unloads into its post-render list. A texture created and
// destroyed between two snapshots therefore still loads before and unloads after that frame.
package texture

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

// Manager creates and destroys render textures. All methods are safe for concurrent use.
type Manager interface {
	snapshot.Listener

	// CreateTexture2D registers a 2D texture and queues its upload.
	// Passing nil data allocates uninitialised storage.
	// Panics if the format cannot be uploaded or data is shorter than width*height*bpp.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//   - data: tightly packed texel rows, or nil
	//
	// Returns:
	//   - *RenderTexture: the new texture in resource.StatePendingLoad
	CreateTexture2D(desc Descriptor, data []byte) *RenderTexture

	// CreateCubemap registers a cubemap and queues its upload. Faces are ordered
	// +X, -X, +Y, -Y, +Z, -Z. Panics if the descriptor is not square or a face is too short.
	//
	// Parameters:
	//   - desc: the descriptor of a single face
	//   - faces: the six faces, each nil or tightly packed
	//
	// Returns:
	//   - *RenderTexture: the new cubemap in resource.StatePendingLoad
	CreateCubemap(desc Descriptor, faces [command.CubemapFaces][]byte) *RenderTexture

	// DestroyRenderTexture queues the texture's release. The texture must not be referenced by
	// snapshots built after this call. Panics if the texture is unknown or already destroyed.
	//
	// Parameters:
	//   - tex: the texture to destroy
	DestroyRenderTexture(tex *RenderTexture)

	// State returns the lifecycle stage of the texture.
	//
	// Parameters:
	//   - tex: the texture to query
	//
	// Returns:
	//   - resource.State: the current stage
	State(tex *RenderTexture) resource.State

	// LiveCount returns the number of textures created and not yet destroyed.
	LiveCount() int

	// PendingCount returns the number of queued loads and unloads.
	//
	// Returns:
	//   - int: pending loads
	//   - int: pending unloads
	PendingCount() (int, int)

	// Close checks that every texture was destroyed. Panics if any are still live.
	Close()
}

type pendingLoad struct {
	tex   *RenderTexture
	data  []byte
	faces [command.CubemapFaces][]byte
}

type manager struct {
	mu             *sync.Mutex
	textures       *resource.Arena[RenderTexture]
	pendingLoads   []pendingLoad
	pendingUnloads []*RenderTexture
	live           int
	capacity       int
}

var _ Manager = &manager{}

// NewManager creates an empty texture manager.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Manager: the new manager
func NewManager(options ...ManagerBuilderOption) Manager {
	m := &manager{
		mu:       &sync.Mutex{},
		capacity: 64,
	}
	for _, opt := range options {
		opt(m)
	}
	m.textures = resource.NewArena[RenderTexture](m.capacity)
	return m
}

func (m *manager) CreateTexture2D(desc Descriptor, data []byte) *RenderTexture {
	validate(desc, data)

	tex := &RenderTexture{desc: desc}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueLoad(tex, pendingLoad{tex: tex, data: data})
	return tex
}

func (m *manager) CreateCubemap(desc Descriptor, faces [command.CubemapFaces][]byte) *RenderTexture {
	if desc.Width != desc.Height {
		panic(fmt.Sprintf("texture: cubemap %q faces must be square, got %dx%d", desc.Label, desc.Width, desc.Height))
	}
	for _, face := range faces {
		validate(desc, face)
	}

	tex := &RenderTexture{desc: desc, cubemap: true}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueLoad(tex, pendingLoad{tex: tex, faces: faces})
	return tex
}

func (m *manager) queueLoad(tex *RenderTexture, p pendingLoad) {
	tex.handle = m.textures.Insert(tex)
	tex.state = resource.StatePendingLoad
	m.pendingLoads = append(m.pendingLoads, p)
	m.live++
}

func (m *manager) DestroyRenderTexture(tex *RenderTexture) {
	if tex == nil {
		panic("texture: DestroyRenderTexture called with nil texture")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if owned, ok := m.textures.Get(tex.handle); !ok || owned != tex {
		panic(fmt.Sprintf("texture: DestroyRenderTexture called with unknown handle %s", tex.handle))
	}
	if tex.state == resource.StatePendingUnload {
		panic(fmt.Sprintf("texture: DestroyRenderTexture called twice for %s", tex.handle))
	}
	tex.state = resource.StatePendingUnload
	m.pendingUnloads = append(m.pendingUnloads, tex)
	m.live--
}

func (m *manager) State(tex *RenderTexture) resource.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return tex.state
}

func (m *manager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

func (m *manager) PendingCount() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pendingLoads), len(m.pendingUnloads)
}

// OnRenderSnapshot drains the pending queues into a main-target snapshot: 2D loads then
// cubemap loads into pre-render, 2D unloads then cubemap unloads into post-render.
// Snapshots for other targets are left untouched.
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
		if p.tex.cubemap {
			continue
		}
		snap.PreRender.Add(command.LoadTextureCommand{
			Texture: p.tex.handle,
			Width:   p.tex.desc.Width,
			Height:  p.tex.desc.Height,
			Format:  p.tex.desc.Format,
			Data:    p.data,
			Mipmaps: p.tex.desc.Mipmaps,
		})
		p.tex.state = p.tex.state.Loaded()
	}
	for _, p := range m.pendingLoads {
		if !p.tex.cubemap {
			continue
		}
		snap.PreRender.Add(command.LoadCubemapCommand{
			Texture: p.tex.handle,
			Size:    p.tex.desc.Width,
			Format:  p.tex.desc.Format,
			Faces:   p.faces,
		})
		p.tex.state = p.tex.state.Loaded()
	}

	for _, cubemaps := range [2]bool{false, true} {
		for _, tex := range m.pendingUnloads {
			if tex.cubemap != cubemaps {
				continue
			}
			snap.PostRender.Add(command.UnloadTextureCommand{Texture: tex.handle, Cubemap: tex.cubemap})
			tex.state = resource.StateDestroyed
			m.textures.Remove(tex.handle)
		}
	}

	if log := common.Logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("texture: drained pending transitions",
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
		panic(fmt.Sprintf("texture: manager closed with %d live textures", m.live))
	}
}

func validate(desc Descriptor, data []byte) {
	if desc.Width == 0 || desc.Height == 0 {
		panic(fmt.Sprintf("texture: %q has zero size %dx%d", desc.Label, desc.Width, desc.Height))
	}
	bpp, ok := BytesPerPixel(desc.Format)
	if !ok {
		panic(fmt.Sprintf("texture: %q has unsupported format %s", desc.Label, desc.Format))
	}
	if data == nil {
		return
	}
	if want := int(desc.Width) * int(desc.Height) * bpp; len(data) < want {
		panic(fmt.Sprintf("texture: %q data is %d bytes, want at least %d", desc.Label, len(data), want))
	}
}
