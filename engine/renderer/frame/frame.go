// Package frame turns a render snapshot into a normalized RenderFrame: resolved camera
// matrices and frustum, world-space bounds and camera depth for every object, culled
// lights and the optional shadow camera.
package frame

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// Camera is a resolved camera: matrices, world position and view frustum.
type Camera struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	ViewProjection mgl32.Mat4
	Position       mgl32.Vec3
	Frustum        common.Frustum
}

// Object is one draw candidate derived from a snapshot object.
type Object struct {
	// Index is the position of the object in the snapshot. Sorts use it to break ties.
	Index    int
	World    mgl32.Mat4
	Mesh     snapshot.MeshRef
	Material material.Material
	Centre   mgl32.Vec3 // world-space bounding sphere centre
	Radius   float32    // world-space bounding sphere radius, 0 means never culled
	Depth    float32    // camera-space depth of Centre
}

// RenderFrame is the normalized, backend-agnostic description of one frame.
type RenderFrame struct {
	Target     snapshot.TargetType
	Resolution [2]uint32
	ClearColor gputypes.Color
	Ambient    gputypes.Color
	Camera     Camera

	// Shadow is the light camera of the shadow pass, nil when no light casts shadows.
	Shadow *Camera

	Objects []Object
	Lights  []light.Data
	UI      []snapshot.UIDrawItem

	PreRender  *command.List
	PostRender *command.List
}

// Compiler transforms a snapshot into a RenderFrame.
// Implementations must be pure with respect to the snapshot: same content, same frame.
type Compiler interface {
	// Compile builds the frame for a snapshot. The snapshot's command lists move into the frame.
	//
	// Parameters:
	//   - snap: the snapshot to compile
	//
	// Returns:
	//   - *RenderFrame: the compiled frame
	Compile(snap *snapshot.RenderSnapshot) *RenderFrame
}
