package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithOrbit sets the initial spherical coordinates around the target.
//
// Parameters:
//   - radius: distance from the orbit target
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - CameraControllerOption: functional option to set the orbit
func WithOrbit(radius, azimuth, elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
		cc.azimuth = azimuth
		cc.elevation = elevation
	}
}

// WithTarget sets the look-at/pivot point.
//
// Parameters:
//   - x, y, z: world-space coordinates of the target
//
// Returns:
//   - CameraControllerOption: functional option to set the target position
func WithTarget(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = mgl32.Vec3{x, y, z}
	}
}

// WithRadiusBounds sets the minimum and maximum orbit radius.
//
// Parameters:
//   - minRadius: minimum zoom distance
//   - maxRadius: maximum zoom distance
//
// Returns:
//   - CameraControllerOption: functional option to set radius bounds
func WithRadiusBounds(minRadius, maxRadius float32) CameraControllerOption {
	if minRadius <= 0 || maxRadius < minRadius {
		panic("camera: WithRadiusBounds requires 0 < min <= max")
	}
	return func(cc *cameraControllerImpl) {
		cc.minRadius = minRadius
		cc.maxRadius = maxRadius
	}
}

// WithElevationBounds sets the minimum and maximum elevation angles.
//
// Parameters:
//   - minElevation: minimum vertical angle in radians
//   - maxElevation: maximum vertical angle in radians
//
// Returns:
//   - CameraControllerOption: functional option to set elevation bounds
func WithElevationBounds(minElevation, maxElevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minElevation = minElevation
		cc.maxElevation = maxElevation
	}
}

// WithSpeeds sets the input speeds.
//
// Parameters:
//   - orbit: radians per orbit step
//   - mouse: radians per dragged pixel
//   - zoom: radius change per zoom unit
//   - pan: distance per pan unit
//
// Returns:
//   - CameraControllerOption: functional option to set the speeds
func WithSpeeds(orbit, mouse, zoom, pan float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbitSpeed = orbit
		cc.mouseSensitivity = mouse
		cc.zoomSpeed = zoom
		cc.panSpeed = pan
	}
}
