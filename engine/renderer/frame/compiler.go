package frame

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/go-gl/mathgl/mgl32"
)

// objectChunk is the number of objects resolved by one pool task.
const objectChunk = 256

type compiler struct {
	pool             worker.DynamicWorkerPool
	cullLights       bool
	shadowHalfExtent float32
}

var _ Compiler = &compiler{}

// NewCompiler creates the default frame compiler.
//
// Parameters:
//   - options: variadic list of CompilerBuilderOption functions to configure the compiler
//
// Returns:
//   - Compiler: the new frame compiler
func NewCompiler(options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		cullLights:       true,
		shadowHalfExtent: light.DefaultShadowHalfExtent,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) Compile(snap *snapshot.RenderSnapshot) *RenderFrame {
	cam := resolveCamera(snap.Camera, snap.Resolution)

	f := &RenderFrame{
		Target:     snap.Target,
		Resolution: snap.Resolution,
		ClearColor: snap.ClearColor,
		Ambient:    snap.Ambient,
		Camera:     cam,
		Objects:    make([]Object, len(snap.Objects)),
		UI:         snap.UI,
		PreRender:  snap.PreRender,
		PostRender: snap.PostRender,
	}

	chunks := (len(snap.Objects) + objectChunk - 1) / objectChunk
	common.ParallelFor(c.pool, chunks, func(chunk int) {
		start := chunk * objectChunk
		end := min(start+objectChunk, len(snap.Objects))
		for i := start; i < end; i++ {
			f.Objects[i] = resolveObject(i, snap.Objects[i], cam)
		}
	})

	if c.cullLights {
		f.Lights = light.Cull(snap.Lights, cam.Frustum)
	} else {
		f.Lights = append(f.Lights, snap.Lights...)
	}

	if caster, ok := light.ShadowCaster(snap.Lights); ok {
		view, proj := light.DirectionalShadowMatrices(caster, snap.Camera.Target, c.shadowHalfExtent)
		f.Shadow = newCamera(view, proj, caster.Position)
	}

	common.Logger().Debug("frame compiled",
		"objects", len(f.Objects),
		"lights", len(f.Lights),
		"ui", len(f.UI),
		"shadow", f.Shadow != nil,
	)
	return f
}

// resolveCamera builds the view and projection for a snapshot camera. The aspect ratio comes
// from the target resolution; a zero-sized target uses 1.
func resolveCamera(c snapshot.Camera, resolution [2]uint32) Camera {
	aspect := float32(1)
	if resolution[0] > 0 && resolution[1] > 0 {
		aspect = float32(resolution[0]) / float32(resolution[1])
	}
	up := c.Up
	if up.Len() == 0 {
		up = mgl32.Vec3{0, 1, 0}
	}
	view := mgl32.LookAtV(c.Position, c.Target, up)
	proj := mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
	return *newCamera(view, proj, c.Position)
}

func newCamera(view, proj mgl32.Mat4, position mgl32.Vec3) *Camera {
	vp := proj.Mul4(view)
	return &Camera{
		View:           view,
		Projection:     proj,
		ViewProjection: vp,
		Position:       position,
		Frustum:        common.ExtractFrustumFromMatrix(vp),
	}
}

func resolveObject(index int, o snapshot.RenderObject, cam Camera) Object {
	centre, radius := common.BoundingSphere(o.Transform, o.Mesh.BoundingRadius)
	return Object{
		Index:    index,
		World:    o.Transform,
		Mesh:     o.Mesh,
		Material: o.Material,
		Centre:   centre,
		Radius:   radius,
		Depth:    common.ViewDepth(cam.View, centre),
	}
}
