package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	fov  float32
	near float32
	far  float32

	position mgl32.Vec3
	target   mgl32.Vec3

	controller CameraController
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings and reads its position and target from an attached
// CameraController. It contributes itself to main-target render snapshots; the frame compiler
// derives the view and projection matrices from the snapshot's resolution.
type Camera interface {
	snapshot.Listener

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Position returns the camera's world-space position. With a controller attached this is
	// the controller's position.
	//
	// Returns:
	//   - mgl32.Vec3: the world-space position
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at point
	Target() mgl32.Vec3

	// Controller returns the attached CameraController.
	// Returns nil if no controller is attached.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - up: the up vector
	SetUp(up mgl32.Vec3)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetClip sets the near and far clipping plane distances.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetClip(near, far float32)

	// LookAt places a camera that has no controller.
	//
	// Parameters:
	//   - position: the world-space camera position
	//   - target: the world-space look-at point
	LookAt(position, target mgl32.Vec3)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach, or nil to detach
	SetController(ctrl CameraController)

	// Snapshot returns the camera state a render snapshot carries.
	//
	// Returns:
	//   - snapshot.Camera: the current camera parameters
	Snapshot() snapshot.Camera
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings: a 45 degree field of view
// and clip planes at 0.1 and 100, placed at (0, 0, 5) looking at the origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      45.0 * (math.Pi / 180.0), // radians
		near:     0.1,
		far:      100.0,
		position: mgl32.Vec3{0, 0, 5},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		return c.controller.Position()
	}
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		return c.controller.Target()
	}
	return c.target
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) SetClip(near, far float32) {
	if near <= 0 || far <= near {
		panic("camera: SetClip requires 0 < near < far")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near, c.far = near, far
}

func (c *cameraImpl) LookAt(position, target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position, c.target = position, target
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Snapshot() snapshot.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	position, target := c.position, c.target
	if c.controller != nil {
		position, target = c.controller.Position(), c.controller.Target()
	}
	return snapshot.Camera{
		Position: position,
		Target:   target,
		Up:       c.up,
		FovY:     c.fov,
		Near:     c.near,
		Far:      c.far,
	}
}

// OnRenderSnapshot sets the snapshot's camera. Offscreen targets keep the camera their own
// producer set.
func (c *cameraImpl) OnRenderSnapshot(target snapshot.TargetType, snap *snapshot.RenderSnapshot) {
	if target != snapshot.TargetMain {
		return
	}
	snap.SetCamera(c.Snapshot())
}
