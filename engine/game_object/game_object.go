package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/go-gl/mathgl/mgl32"
)

// gameObjectCount hands out IDs to objects created without one.
var gameObjectCount atomic.Uint64

type gameObject struct {
	mu *sync.Mutex

	id      uint64
	enabled atomic.Bool

	mesh     snapshot.MeshRef
	material material.Material
	light    light.Light

	position      mgl32.Vec3
	rotation      mgl32.Vec3 // euler angles in radians, applied X then Y then Z
	rotationSpeed mgl32.Vec3 // radians per second
	scale         mgl32.Vec3
}

// GameObject is a renderable entity: a mesh and material placed by a transform, optionally
// carrying a light that follows it. Objects are updated on the tick goroutine and read by the
// producer goroutine when snapshots are built, so every method is safe for concurrent use.
type GameObject interface {
	// ID returns the object's identifier.
	//
	// Returns:
	//   - uint64: the identifier
	ID() uint64

	// Enabled reports whether the object is rendered.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled shows or hides the object.
	//
	// Parameters:
	//   - enabled: true to render the object
	SetEnabled(enabled bool)

	// Mesh returns the mesh the object draws.
	//
	// Returns:
	//   - snapshot.MeshRef: the mesh reference
	Mesh() snapshot.MeshRef

	// SetMesh sets the mesh the object draws.
	//
	// Parameters:
	//   - mesh: the mesh reference
	SetMesh(mesh snapshot.MeshRef)

	// Material returns the material the object is drawn with.
	//
	// Returns:
	//   - material.Material: the material, or nil
	Material() material.Material

	// SetMaterial sets the material the object is drawn with.
	//
	// Parameters:
	//   - m: the material
	SetMaterial(m material.Material)

	// Light returns the attached light, or nil.
	//
	// Returns:
	//   - light.Light: the attached light
	Light() light.Light

	// SetLight attaches a light that follows the object's position.
	//
	// Parameters:
	//   - l: the light, or nil to detach
	SetLight(l light.Light)

	// Position returns the world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// SetPosition moves the object.
	//
	// Parameters:
	//   - x, y, z: the world-space position
	SetPosition(x, y, z float32)

	// Rotation returns the euler rotation in radians.
	//
	// Returns:
	//   - mgl32.Vec3: rotation about X, Y and Z
	Rotation() mgl32.Vec3

	// SetRotation sets the euler rotation in radians.
	//
	// Parameters:
	//   - rx, ry, rz: rotation about X, Y and Z
	SetRotation(rx, ry, rz float32)

	// SetRotationSpeed sets the rotation applied per second by Update.
	//
	// Parameters:
	//   - rx, ry, rz: radians per second about X, Y and Z
	SetRotationSpeed(rx, ry, rz float32)

	// Scale returns the per-axis scale.
	//
	// Returns:
	//   - mgl32.Vec3: the scale
	Scale() mgl32.Vec3

	// SetScale sets the per-axis scale.
	//
	// Parameters:
	//   - sx, sy, sz: the scale factors
	SetScale(sx, sy, sz float32)

	// Transform returns the world matrix: translation * rotation * scale.
	//
	// Returns:
	//   - mgl32.Mat4: the world transform
	Transform() mgl32.Mat4

	// Update advances the object's rotation by its rotation speed.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// RenderObject returns the object as captured into a snapshot.
	//
	// Returns:
	//   - snapshot.RenderObject: the captured object
	//   - bool: false if the object is disabled or has no mesh
	RenderObject() (snapshot.RenderObject, bool)
}

var _ GameObject = &gameObject{}

// NewGameObject creates an enabled object at the origin with unit scale.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the new object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:    &sync.Mutex{},
		id:    gameObjectCount.Add(1),
		scale: mgl32.Vec3{1, 1, 1},
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Mesh() snapshot.MeshRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mesh
}

func (g *gameObject) SetMesh(mesh snapshot.MeshRef) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mesh = mesh
}

func (g *gameObject) Material() material.Material {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.material
}

func (g *gameObject) SetMaterial(m material.Material) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.material = m
}

func (g *gameObject) Light() light.Light {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.light
}

func (g *gameObject) SetLight(l light.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.light = l
	g.syncLight()
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = mgl32.Vec3{x, y, z}
	g.syncLight()
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = mgl32.Vec3{rx, ry, rz}
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = mgl32.Vec3{rx, ry, rz}
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = mgl32.Vec3{sx, sy, sz}
}

func (g *gameObject) Transform() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.transform()
}

// transform builds the world matrix. Caller must hold the mutex.
func (g *gameObject) transform() mgl32.Mat4 {
	rotation := mgl32.AnglesToQuat(g.rotation[0], g.rotation[1], g.rotation[2], mgl32.XYZ).Mat4()
	return mgl32.Translate3D(g.position[0], g.position[1], g.position[2]).
		Mul4(rotation).
		Mul4(mgl32.Scale3D(g.scale[0], g.scale[1], g.scale[2]))
}

func (g *gameObject) Update(dt float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = g.rotation.Add(g.rotationSpeed.Mul(dt))
}

func (g *gameObject) RenderObject() (snapshot.RenderObject, bool) {
	if !g.Enabled() {
		return snapshot.RenderObject{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mesh.Handle.IsZero() {
		return snapshot.RenderObject{}, false
	}
	return snapshot.RenderObject{
		Transform: g.transform(),
		Mesh:      g.mesh,
		Material:  g.material,
	}, true
}

// syncLight moves an attached positional light to the object. Caller must hold the mutex.
func (g *gameObject) syncLight() {
	if g.light != nil && g.light.Type() != light.LightTypeDirectional {
		g.light.SetPosition(g.position)
	}
}
