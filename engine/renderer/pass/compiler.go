package pass

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
)

// Compiler splits a frame into its ordered render passes.
type Compiler interface {
	// Compile produces the pass sequence of the compiler's mode for a frame.
	// The result always has one entry per pass type of Sequence, even when a pass is empty.
	//
	// Parameters:
	//   - f: the frame to split
	//
	// Returns:
	//   - []RenderPass: the passes in execution order
	Compile(f *frame.RenderFrame) []RenderPass

	// Mode returns the pipeline mode the compiler produces passes for.
	//
	// Returns:
	//   - PipelineMode: the pipeline mode
	Mode() PipelineMode
}

type compiler struct {
	mode    PipelineMode
	shadows bool
	pool    worker.DynamicWorkerPool
}

var _ Compiler = &compiler{}

// NewCompiler creates a pass compiler for a pipeline mode.
//
// Parameters:
//   - mode: the pipeline mode
//   - options: variadic list of CompilerBuilderOption functions to configure the compiler
//
// Returns:
//   - Compiler: the new pass compiler
func NewCompiler(mode PipelineMode, options ...CompilerBuilderOption) Compiler {
	c := &compiler{mode: mode}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) Mode() PipelineMode {
	return c.mode
}

func (c *compiler) Compile(f *frame.RenderFrame) []RenderPass {
	seq := Sequence(c.mode, c.shadows)
	passes := make([]RenderPass, len(seq))

	// Each task only writes its own slot and reads the frame.
	common.ParallelFor(c.pool, len(seq), func(i int) {
		passes[i] = compilePass(seq[i], f)
	})

	if log := common.Logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		for _, p := range passes {
			log.Debug("pass compiled", "pass", p.Type.String(), "objects", len(p.Objects), "ui", len(p.UI))
		}
	}
	return passes
}

func compilePass(t PassType, f *frame.RenderFrame) RenderPass {
	p := RenderPass{Type: t, Camera: f.Camera}

	switch t {
	case PassShadow:
		if f.Shadow == nil {
			return p
		}
		p.Camera = *f.Shadow
		p.Objects = filter(f.Objects, func(o frame.Object) bool {
			return isOpaque(o.Material) && o.Material.CastsShadows()
		})
		// The shadow camera decides visibility; depth is re-measured from the light.
		for i := range p.Objects {
			p.Objects[i].Depth = common.ViewDepth(p.Camera.View, p.Objects[i].Centre)
		}
		p.Objects = filter(p.Objects, func(o frame.Object) bool { return visible(p.Camera, o) })
		sortFrontToBack(p.Objects)

	case PassOpaque, PassGBuffer:
		p.Objects = filter(f.Objects, func(o frame.Object) bool {
			return isOpaque(o.Material) && visible(f.Camera, o)
		})
		sortFrontToBack(p.Objects)
		if t == PassOpaque {
			p.Lights = f.Lights
		}

	case PassLighting:
		p.Lights = f.Lights

	case PassTransparent:
		p.Objects = filter(f.Objects, func(o frame.Object) bool {
			return o.Material != nil && o.Material.Type().IsBlended() && visible(f.Camera, o)
		})
		sortBackToFront(p.Objects)
		p.Lights = f.Lights

	case PassUI:
		p.UI = slices.Clone(f.UI)
		sortUI(p.UI)
	}
	return p
}

func isOpaque(m material.Material) bool {
	return m != nil && !m.Type().IsBlended()
}

func visible(cam frame.Camera, o frame.Object) bool {
	if o.Radius <= 0 {
		return true
	}
	return cam.Frustum.ContainsSphere(o.Centre, o.Radius)
}

func filter(objects []frame.Object, keep func(frame.Object) bool) []frame.Object {
	out := make([]frame.Object, 0, len(objects))
	for _, o := range objects {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// sortFrontToBack orders objects nearest first. Equal depths keep snapshot order.
func sortFrontToBack(objects []frame.Object) {
	slices.SortStableFunc(objects, func(a, b frame.Object) int {
		return cmp.Compare(a.Depth, b.Depth)
	})
}

// sortBackToFront orders objects farthest first. Equal depths keep snapshot order.
func sortBackToFront(objects []frame.Object) {
	slices.SortStableFunc(objects, func(a, b frame.Object) int {
		return cmp.Compare(b.Depth, a.Depth)
	})
}

// sortUI orders UI items by draw order, then batch key. Equal keys keep snapshot order.
func sortUI(items []snapshot.UIDrawItem) {
	slices.SortStableFunc(items, func(a, b snapshot.UIDrawItem) int {
		if c := cmp.Compare(a.DrawOrder, b.DrawOrder); c != 0 {
			return c
		}
		ka, kb := a.BatchKey(), b.BatchKey()
		switch {
		case ka.Less(kb):
			return -1
		case kb.Less(ka):
			return 1
		}
		return 0
	})
}
