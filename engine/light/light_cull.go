package light

import (
	"github.com/Carmen-Shannon/oxy-render/common"
)

// MaxLightsPerBatch is the number of lights uploaded and shaded together by one
// ApplyLights command. Larger light lists are split into consecutive batches.
const MaxLightsPerBatch = 16

// Cull returns the lights that can affect anything inside the frustum, preserving order.
// Directional lights are always kept; point and spot lights are tested as a sphere of
// their attenuation range.
//
// Parameters:
//   - lights: the candidate lights
//   - frustum: the camera frustum
//
// Returns:
//   - []Data: the lights that may contribute to the frame
func Cull(lights []Data, frustum common.Frustum) []Data {
	out := make([]Data, 0, len(lights))
	for _, l := range lights {
		if l.Type == LightTypeDirectional || frustum.ContainsSphere(l.Position, l.Range) {
			out = append(out, l)
		}
	}
	return out
}

// Batches splits lights into consecutive groups of at most MaxLightsPerBatch.
// An empty input yields no batches.
//
// Parameters:
//   - lights: the lights to split
//
// Returns:
//   - [][]Data: the batches, in order
func Batches(lights []Data) [][]Data {
	var out [][]Data
	for start := 0; start < len(lights); start += MaxLightsPerBatch {
		end := min(start+MaxLightsPerBatch, len(lights))
		out = append(out, lights[start:end])
	}
	return out
}
