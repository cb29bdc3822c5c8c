package light

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULight is the GPU-aligned representation of a single light source.
// Size: 64 bytes (std140 / std430 / WGSL aligned).
type GPULight struct {
	Position     [3]float32 // offset  0: world-space position (point/spot) or unused (directional)
	LightType    uint32     // offset 12: 0 = directional, 1 = point, 2 = spot
	Color        [3]float32 // offset 16: RGB color
	Intensity    float32    // offset 28: scalar multiplier
	Direction    [3]float32 // offset 32: normalized direction (directional/spot) or unused (point)
	LightRange   float32    // offset 44: attenuation cutoff distance
	InnerCone    float32    // offset 48: cos(inner half-angle) for spot
	OuterCone    float32    // offset 52: cos(outer half-angle) for spot
	CastsShadows uint32     // offset 56: 1 = casts shadows, 0 = does not
	_pad         uint32     // offset 60: padding to 64-byte alignment
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 64)
	putVec3(buf[0:12], g.Position)
	binary.LittleEndian.PutUint32(buf[12:16], g.LightType)
	putVec3(buf[16:28], g.Color)
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
	putVec3(buf[32:44], g.Direction)
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.LightRange))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(g.InnerCone))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.OuterCone))
	binary.LittleEndian.PutUint32(buf[56:60], g.CastsShadows)
	binary.LittleEndian.PutUint32(buf[60:64], 0) // padding
	return buf
}

// GPULightHeader is the header prepended to the light uniform buffer.
// Contains the ambient color and the number of lights that follow.
// Size: 16 bytes (vec3 + u32).
type GPULightHeader struct {
	AmbientColor [3]float32 // offset 0: scene ambient RGB
	LightCount   uint32     // offset 12: number of active lights following the header
}

// Size returns the size of the GPULightHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (h *GPULightHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the GPULightHeader struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (h *GPULightHeader) Marshal() []byte {
	buf := make([]byte, 16)
	putVec3(buf[0:12], h.AmbientColor)
	binary.LittleEndian.PutUint32(buf[12:16], h.LightCount)
	return buf
}

// ToGPULight converts light Data into its GPU-aligned representation.
//
// Parameters:
//   - l: the light to convert
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Data) GPULight {
	shadowVal := uint32(0)
	if l.CastsShadows {
		shadowVal = 1
	}
	return GPULight{
		Position:     l.Position,
		LightType:    uint32(l.Type),
		Color:        l.Color,
		Intensity:    l.Intensity,
		Direction:    l.Direction,
		LightRange:   l.Range,
		InnerCone:    l.InnerCone,
		OuterCone:    l.OuterCone,
		CastsShadows: shadowVal,
	}
}

// MarshalLightBuffer marshals one batch of lights into a fixed-size byte buffer
// suitable for a uniform upload. The buffer layout is:
//
//	[GPULightHeader (16 bytes)] [GPULight × MaxLightsPerBatch (64 bytes each)]
//
// Lights beyond MaxLightsPerBatch are dropped; callers split with Batches first.
//
// Parameters:
//   - lights: the lights to marshal
//   - ambient: the scene ambient color as RGB
//
// Returns:
//   - []byte: the marshaled buffer ready for GPU upload
func MarshalLightBuffer(lights []Data, ambient [3]float32) []byte {
	count := min(len(lights), MaxLightsPerBatch)
	buf := make([]byte, LightBufferSize)

	header := GPULightHeader{AmbientColor: ambient, LightCount: uint32(count)}
	copy(buf, header.Marshal())

	offset := (&GPULightHeader{}).Size()
	lightSize := (&GPULight{}).Size()
	for _, l := range lights[:count] {
		gpu := ToGPULight(l)
		copy(buf[offset:offset+lightSize], gpu.Marshal())
		offset += lightSize
	}
	return buf
}

// LightBufferSize is the byte size of the buffer produced by MarshalLightBuffer.
const LightBufferSize = 16 + 64*MaxLightsPerBatch

func putVec3(dst []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v[2]))
}
