package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapResolution is the width and height in texels of the shadow depth target.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units)
// used for the directional light shadow frustum. Controls how much of the scene
// around the focus point is captured in the shadow map.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the default near plane for the directional light's
// orthographic shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane for the directional light's
// orthographic shadow projection.
const DefaultShadowFar float32 = 200.0

// ShadowCaster returns the first shadow-casting directional light in lights.
//
// Parameters:
//   - lights: the lights captured for the frame
//
// Returns:
//   - Data: the shadow-casting light
//   - bool: false if no light casts shadows
func ShadowCaster(lights []Data) (Data, bool) {
	for _, l := range lights {
		if l.CastsShadows && l.Type == LightTypeDirectional {
			return l, true
		}
	}
	return Data{}, false
}

// DirectionalShadowMatrices builds the view and orthographic projection used to render a
// directional light's shadow pass. The frustum is centred on focus (typically the camera
// position) and looks along the light's direction.
//
// Parameters:
//   - l: the directional light
//   - focus: world-space centre of the shadow frustum
//   - halfExtent: half-size of the orthographic frustum in world units
//
// Returns:
//   - view: the light view matrix
//   - projection: the light orthographic projection
func DirectionalShadowMatrices(l Data, focus mgl32.Vec3, halfExtent float32) (view, projection mgl32.Mat4) {
	dir := l.Direction
	if dir.Len() == 0 {
		dir = mgl32.Vec3{0, -1, 0}
	}
	eye := focus.Sub(dir.Mul(DefaultShadowFar * 0.5))

	// Up must not be parallel to the light direction.
	up := mgl32.Vec3{0, 1, 0}
	if math.Abs(float64(dir.Y())) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}

	view = mgl32.LookAtV(eye, focus, up)
	projection = mgl32.Ortho(-halfExtent, halfExtent, -halfExtent, halfExtent, DefaultShadowNear, DefaultShadowFar)
	return view, projection
}
