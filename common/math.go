// package common contains common types and helpers that are used throughout this engine. They are not interface-wrapped structs,
// just plain functions and values shared by the render pipeline stages.
package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Translation returns the translation column of a homogeneous transform.
//
// Parameters:
//   - m: the world transform
//
// Returns:
//   - mgl32.Vec3: the world-space origin of the transform
func Translation(m mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{m[12], m[13], m[14]}
}

// TransformPoint transforms a point by an affine transform, applying translation.
//
// Parameters:
//   - m: the transform to apply
//   - p: the point to transform
//
// Returns:
//   - mgl32.Vec3: the transformed point
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// ViewDepth returns the camera-space depth of a world-space point: the distance in front of the
// camera along its viewing direction. Points behind the camera have negative depth.
// View matrices follow the right-handed convention where the camera looks down -Z.
//
// Parameters:
//   - view: the camera view matrix
//   - p: the world-space point
//
// Returns:
//   - float32: the depth along the view direction
func ViewDepth(view mgl32.Mat4, p mgl32.Vec3) float32 {
	return -TransformPoint(view, p).Z()
}

// BoundingSphere transforms a local-space bounding sphere (centred at the local origin) into world space.
// The radius is scaled by the largest axis scale of the transform so the sphere stays conservative.
//
// Parameters:
//   - world: the object's world transform
//   - radius: the local-space radius
//
// Returns:
//   - mgl32.Vec3: the world-space centre
//   - float32: the world-space radius
func BoundingSphere(world mgl32.Mat4, radius float32) (mgl32.Vec3, float32) {
	return Translation(world), radius * mgl32.ExtractMaxScale(world)
}

// SliceToBytes reinterprets a slice as raw bytes for GPU buffer uploads.
// The returned slice shares memory with data and must not be modified.
//
// Parameters:
//   - data: source slice of any fixed-size element type
//
// Returns:
//   - []byte: byte view of data, or nil if data is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}
