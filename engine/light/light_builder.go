package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LightBuilderOption configures a Light during NewLight.
type LightBuilderOption func(*lightImpl)

// WithPosition places a point or spot light. Directional lights ignore it.
//
// Parameters:
//   - x, y, z: the world-space position
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = mgl32.Vec3{x, y, z}
	}
}

// WithDirection sets the direction a directional or spot light shines in. It is normalized.
//
// Parameters:
//   - x, y, z: the direction
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalize(mgl32.Vec3{x, y, z})
	}
}

// WithColor sets the linear RGB colour.
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity sets the scalar the colour is multiplied by.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange sets the attenuation cutoff of a point or spot light. The range is also the radius
// used to cull the light against the camera frustum.
//
// Parameters:
//   - lightRange: the cutoff distance in world units, must not be negative
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithRange(lightRange float32) LightBuilderOption {
	if lightRange < 0 {
		panic("light: WithRange requires a non-negative range")
	}
	return func(l *lightImpl) {
		l.lightRange = lightRange
	}
}

// WithSpotCone sets a spot light's cone half-angles in degrees. They are stored as cosines.
//
// Parameters:
//   - innerDeg: half-angle of full intensity
//   - outerDeg: half-angle where the light fades to zero, at least innerDeg
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithSpotCone(innerDeg, outerDeg float32) LightBuilderOption {
	if innerDeg < 0 || outerDeg < innerDeg || outerDeg >= 90 {
		panic("light: WithSpotCone requires 0 <= inner <= outer < 90")
	}
	return func(l *lightImpl) {
		l.innerCone = cosDeg(innerDeg)
		l.outerCone = cosDeg(outerDeg)
	}
}

// WithEnabled sets whether the light is captured into snapshots.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// WithCastsShadows marks the light as a shadow caster. Only the first shadow-casting
// directional light of a frame gets a shadow pass.
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.castsShadows = castsShadows
	}
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}

func cosDeg(deg float32) float32 {
	return float32(math.Cos(float64(deg) * math.Pi / 180.0))
}
