package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController moves a camera in response to input. It owns the eye position and the
// look-at target, which the camera reads each time it contributes to a render snapshot.
//
// Input callbacks run on the window thread while snapshots are built on the producer goroutine,
// so implementations must be safe for concurrent use.
type CameraController interface {
	orbitCameraController
	planarCameraController

	Position() mgl32.Vec3
	Target() mgl32.Vec3

	// SetTarget moves the pivot and places the eye on the orbit around it.
	SetTarget(target mgl32.Vec3)

	// Zoom shrinks the orbit radius for positive deltas and grows it for negative ones.
	//
	// Parameters:
	//   - delta: scroll amount, multiplied by the zoom speed
	Zoom(delta float32)
}

// orbitCameraController places the eye on a sphere around the target, described by radius,
// azimuth about +Y and elevation above the XZ plane. Angles are radians.
type orbitCameraController interface {
	// Single steps of the orbit speed. Elevation steps are clamped.
	OrbitLeft()
	OrbitRight()
	OrbitUp()
	OrbitDown()

	// Drag orbits by a cursor movement.
	//
	// Parameters:
	//   - dx, dy: pixels moved since the previous event, multiplied by the mouse sensitivity
	Drag(dx, dy float32)

	Radius() float32
	// SetRadius clamps to the controller's radius bounds.
	SetRadius(radius float32)

	Azimuth() float32
	SetAzimuth(azimuth float32)

	Elevation() float32
	// SetElevation clamps to the controller's elevation bounds.
	SetElevation(elevation float32)
}

// planarCameraController translates eye and target together along the camera's local axes, so
// the orbit around the target is unchanged.
type planarCameraController interface {
	// PanRight moves along the local right axis.
	PanRight(delta float32)

	// PanUp moves along the local up axis.
	PanUp(delta float32)

	// PanForward dollies along the view direction. Positive deltas move toward the target.
	PanForward(delta float32)
}
