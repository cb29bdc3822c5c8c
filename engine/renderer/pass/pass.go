// Package pass splits a RenderFrame into the ordered render passes of a pipeline mode.
//
// Every frame of a given mode produces the same pass sequence, empty passes included.
// Within a pass, objects are filtered by material role and camera visibility, then stably
// sorted by the pass's ordering policy so identical frames compile to identical passes.
package pass

import (
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
)

// PipelineMode selects the fixed pass sequence.
type PipelineMode int

const (
	// PipelineForward shades objects as they are drawn.
	PipelineForward PipelineMode = iota

	// PipelineDeferred writes surface attributes into a geometry buffer and shades them in a
	// separate lighting pass.
	PipelineDeferred
)

// String returns the name of the pipeline mode.
func (m PipelineMode) String() string {
	switch m {
	case PipelineForward:
		return "forward"
	case PipelineDeferred:
		return "deferred"
	}
	return "unknown"
}

// PassType is the semantic role of a render pass.
type PassType int

const (
	PassShadow PassType = iota
	PassOpaque
	PassGBuffer
	PassLighting
	PassTransparent
	PassUI
)

var passTypeNames = [...]string{
	PassShadow:      "shadow",
	PassOpaque:      "opaque",
	PassGBuffer:     "gbuffer",
	PassLighting:    "lighting",
	PassTransparent: "transparent",
	PassUI:          "ui",
}

// String returns the name of the pass type.
func (t PassType) String() string {
	if int(t) >= 0 && int(t) < len(passTypeNames) {
		return passTypeNames[t]
	}
	return "unknown"
}

// Sequence returns the pass types a mode produces, in execution order.
//
// Parameters:
//   - mode: the pipeline mode
//   - shadows: whether the optional shadow pass runs first
//
// Returns:
//   - []PassType: the pass sequence
func Sequence(mode PipelineMode, shadows bool) []PassType {
	var seq []PassType
	if shadows {
		seq = append(seq, PassShadow)
	}
	switch mode {
	case PipelineDeferred:
		seq = append(seq, PassGBuffer, PassLighting, PassTransparent, PassUI)
	default:
		seq = append(seq, PassOpaque, PassTransparent, PassUI)
	}
	return seq
}

// RenderPass is one ordered, filtered and sorted stage of a frame.
type RenderPass struct {
	Type    PassType
	Objects []frame.Object
	UI      []snapshot.UIDrawItem
	Lights  []light.Data

	// Camera is the camera the pass renders from: the light camera for the shadow pass,
	// the frame camera otherwise.
	Camera frame.Camera
}

// Empty reports whether the pass has nothing to draw.
func (p *RenderPass) Empty() bool {
	return len(p.Objects) == 0 && len(p.UI) == 0 && len(p.Lights) == 0
}
