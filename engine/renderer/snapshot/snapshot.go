// Package snapshot holds the per-frame input of the render pipeline.
//
// A RenderSnapshot captures everything the renderer needs for one frame: target resolution,
// clear color, camera, renderable objects, lights, UI draw items and the pre/post-render
// resource command lists. The producer goroutine builds it, then hands it to the renderer
// and never touches it again.
package snapshot

import (
	"math"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// TargetType designates which render output a snapshot is built for.
type TargetType int

const (
	// TargetMain is the window's backbuffer. Only main-target snapshots carry resource
	// lifecycle commands.
	TargetMain TargetType = iota

	// TargetOffscreen is any secondary output (reflection probes, minimaps, thumbnails).
	TargetOffscreen
)

// String returns the name of the target type.
func (t TargetType) String() string {
	switch t {
	case TargetMain:
		return "main"
	case TargetOffscreen:
		return "offscreen"
	}
	return "unknown"
}

// Camera holds the perspective camera parameters for a frame.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 // radians
	Near     float32
	Far      float32
}

// DefaultCamera returns a camera at (0, 0, 5) looking at the origin with a 45 degree field of view.
func DefaultCamera() Camera {
	return Camera{
		Position: mgl32.Vec3{0, 0, 5},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     45.0 * (math.Pi / 180.0),
		Near:     0.1,
		Far:      100.0,
	}
}

// MeshRef references a mesh owned by the mesh manager together with the data the
// pipeline needs without dereferencing it.
type MeshRef struct {
	Handle         resource.Handle
	IndexCount     uint32
	FirstIndex     uint32
	BoundingRadius float32 // local-space radius around the mesh origin, 0 disables culling
}

// RenderObject is one renderable entity captured for the frame.
type RenderObject struct {
	Transform mgl32.Mat4
	Mesh      MeshRef
	Material  material.Material
}

// UIDrawItem is one screen-space quad of the UI draw list.
type UIDrawItem struct {
	DrawOrder int32
	Material  material.Material
	Texture   resource.Handle
	Position  mgl32.Vec2 // pixels from the top-left corner
	Size      mgl32.Vec2 // pixels
	Color     gputypes.Color
	UV        mgl32.Vec4 // u0, v0, u1, v1
}

// BatchKey identifies the GPU state a UI item needs. Consecutive items with equal keys
// are drawn without rebinding.
type BatchKey struct {
	Material uint64
	Texture  resource.Handle
}

// Less orders batch keys by material then texture.
func (k BatchKey) Less(o BatchKey) bool {
	if k.Material != o.Material {
		return k.Material < o.Material
	}
	if k.Texture.Index != o.Texture.Index {
		return k.Texture.Index < o.Texture.Index
	}
	return k.Texture.Generation < o.Texture.Generation
}

// BatchKey returns the batching key of the item.
func (u UIDrawItem) BatchKey() BatchKey {
	var id uint64
	if u.Material != nil {
		id = u.Material.ID()
	}
	return BatchKey{Material: id, Texture: u.Texture}
}

// RenderSnapshot captures one frame's inputs.
type RenderSnapshot struct {
	Target     TargetType
	Resolution [2]uint32
	ClearColor gputypes.Color
	Ambient    gputypes.Color
	Camera     Camera
	Objects    []RenderObject
	Lights     []light.Data
	UI         []UIDrawItem

	// PreRender holds resource commands executed before any draw of the frame.
	PreRender *command.List
	// PostRender holds resource commands executed after every draw of the frame.
	PostRender *command.List

	claimed atomic.Bool
}

// New creates an empty snapshot for the given target.
//
// Parameters:
//   - target: the render output the snapshot is built for
//   - width, height: the target resolution in pixels
//   - clear: the color the first pass clears to
//
// Returns:
//   - *RenderSnapshot: the new snapshot with the default camera and empty command lists
func New(target TargetType, width, height uint32, clear gputypes.Color) *RenderSnapshot {
	return &RenderSnapshot{
		Target:     target,
		Resolution: [2]uint32{width, height},
		ClearColor: clear,
		Ambient:    gputypes.NewColorRGB(0.1, 0.1, 0.1),
		Camera:     DefaultCamera(),
		PreRender:  command.NewList(),
		PostRender: command.NewList(),
	}
}

// SetCamera sets the camera the frame is rendered from.
func (s *RenderSnapshot) SetCamera(c Camera) {
	s.Camera = c
}

// AddObject appends a renderable object. Objects keep their insertion order, which breaks
// ties when passes are sorted.
func (s *RenderSnapshot) AddObject(o RenderObject) {
	s.Objects = append(s.Objects, o)
}

// AddLight appends a light.
func (s *RenderSnapshot) AddLight(l light.Data) {
	s.Lights = append(s.Lights, l)
}

// AddUI appends a UI draw item.
func (s *RenderSnapshot) AddUI(item UIDrawItem) {
	s.UI = append(s.UI, item)
}

// Claim marks the snapshot as handed over to the renderer.
//
// Returns:
//   - bool: false if the snapshot was already claimed
func (s *RenderSnapshot) Claim() bool {
	return s.claimed.CompareAndSwap(false, true)
}

// Listener is implemented by systems that contribute to render snapshots
// (scenes, UI, resource managers). The engine calls OnRenderSnapshot once per frame
// for every render target, in registration order, before handing the snapshot over.
type Listener interface {
	// OnRenderSnapshot adds the listener's state to a snapshot being built.
	//
	// Parameters:
	//   - target: the render target the snapshot is for
	//   - snap: the snapshot under construction
	OnRenderSnapshot(target TargetType, snap *RenderSnapshot)
}
