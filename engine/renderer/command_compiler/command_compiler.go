// Package command_compiler lowers the render passes of a frame into one flat command buffer.
//
// The buffer starts with the frame's pre-render resource commands and ends with its
// post-render resource commands; every pass's draw commands sit in between, in pass order
// and in the order the pass compiler sorted them. Nothing is reordered here.
package command_compiler

import (
	"slices"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// Compiler lowers render passes into a command buffer.
type Compiler interface {
	// Compile builds the command buffer of a frame.
	//
	// Parameters:
	//   - seq: the frame sequence number stamped on the buffer
	//   - f: the frame the passes were compiled from; supplies target state and resource lists
	//   - passes: the passes in execution order
	//
	// Returns:
	//   - *command.Buffer: the immutable command buffer
	Compile(seq uint64, f *frame.RenderFrame, passes []pass.RenderPass) *command.Buffer
}

type compiler struct {
	pool worker.DynamicWorkerPool
}

var _ Compiler = &compiler{}

// NewCompiler creates the default command compiler.
//
// Parameters:
//   - options: variadic list of CompilerBuilderOption functions to configure the compiler
//
// Returns:
//   - Compiler: the new command compiler
func NewCompiler(options ...CompilerBuilderOption) Compiler {
	c := &compiler{}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) Compile(seq uint64, f *frame.RenderFrame, passes []pass.RenderPass) *command.Buffer {
	lowered := make([][]command.Command, len(passes))
	firstMain := slices.IndexFunc(passes, func(p pass.RenderPass) bool { return p.Type != pass.PassShadow })

	shadowVP := mgl32.Ident4()
	if f.Shadow != nil {
		shadowVP = f.Shadow.ViewProjection
	}

	common.ParallelFor(c.pool, len(passes), func(i int) {
		lowered[i] = lowerPass(&passes[i], f, i == firstMain, shadowVP)
	})

	size := f.PreRender.Len() + f.PostRender.Len()
	for _, cmds := range lowered {
		size += len(cmds)
	}

	out := make([]command.Command, 0, size)
	out = append(out, f.PreRender.Commands()...)
	for _, cmds := range lowered {
		out = append(out, cmds...)
	}
	out = append(out, f.PostRender.Commands()...)

	common.Logger().Debug("command buffer compiled", "frame", seq, "commands", len(out), "passes", len(passes))
	return command.NewBuffer(seq, out)
}

// lowerPass emits the commands of one pass. Bind state is tracked per pass since a
// backend may reset state at BeginPass.
func lowerPass(p *pass.RenderPass, f *frame.RenderFrame, first bool, shadowVP mgl32.Mat4) []command.Command {
	cmds := make([]command.Command, 0, 4+3*len(p.Objects)+3*len(p.UI))

	begin := beginPass(p.Type, f, first)
	cmds = append(cmds, begin)

	if p.Type != pass.PassUI {
		cmds = append(cmds, command.ApplyCameraCommand{
			View:           p.Camera.View,
			Projection:     p.Camera.Projection,
			ViewProjection: p.Camera.ViewProjection,
			Position:       p.Camera.Position,
		})
	}

	switch p.Type {
	case pass.PassOpaque, pass.PassTransparent:
		// Forward shading evaluates one batch; lights beyond it are not drawn.
		var lights []light.Data
		if batches := light.Batches(p.Lights); len(batches) > 0 {
			lights = batches[0]
		}
		if dropped := len(p.Lights) - len(lights); dropped > 0 {
			common.Logger().Debug("forward pass light limit reached",
				"pass", p.Type.String(), "lights", len(p.Lights), "dropped", dropped)
		}
		cmds = append(cmds, command.ApplyLightsCommand{Ambient: f.Ambient, Lights: lights, ShadowVP: shadowVP})

	case pass.PassLighting:
		batches := light.Batches(p.Lights)
		if len(batches) == 0 {
			batches = [][]light.Data{nil}
		}
		for i, batch := range batches {
			ambient := f.Ambient
			if i > 0 {
				ambient = gputypes.Color{}
			}
			cmds = append(cmds,
				command.ApplyLightsCommand{Ambient: ambient, Lights: batch, ShadowVP: shadowVP},
				command.DrawFullscreenCommand{},
			)
		}
	}

	var boundMaterial uint64
	var boundMesh resource.Handle
	for _, o := range p.Objects {
		if id := o.Material.ID(); id != boundMaterial {
			cmds = append(cmds, command.BindMaterialCommand{Material: o.Material})
			boundMaterial = id
		}
		if o.Mesh.Handle != boundMesh {
			cmds = append(cmds, command.BindMeshCommand{Mesh: o.Mesh.Handle})
			boundMesh = o.Mesh.Handle
		}
		cmds = append(cmds, command.DrawIndexedCommand{
			World:      o.World,
			IndexCount: o.Mesh.IndexCount,
			FirstIndex: o.Mesh.FirstIndex,
		})
	}

	var boundTexture resource.Handle
	for i, item := range p.UI {
		if item.Material != nil {
			if id := item.Material.ID(); id != boundMaterial {
				cmds = append(cmds, command.BindMaterialCommand{Material: item.Material})
				boundMaterial = id
			}
		}
		if i == 0 || item.Texture != boundTexture {
			cmds = append(cmds, command.BindTextureCommand{Slot: 0, Texture: item.Texture})
			boundTexture = item.Texture
		}
		cmds = append(cmds, command.DrawQuadCommand{
			Position: item.Position,
			Size:     item.Size,
			Color:    item.Color,
			UV:       item.UV,
		})
	}

	cmds = append(cmds, command.EndPassCommand{Name: begin.Name})
	return cmds
}

// beginPass returns the fixed-function state of a pass. The first non-shadow pass clears
// the target; the shadow pass clears its own depth target.
func beginPass(t pass.PassType, f *frame.RenderFrame, first bool) command.BeginPassCommand {
	b := command.BeginPassCommand{
		Name:       t.String(),
		Width:      f.Resolution[0],
		Height:     f.Resolution[1],
		Clear:      first,
		ClearDepth: first,
		ClearColor: f.ClearColor,
	}

	switch t {
	case pass.PassShadow:
		b.Width, b.Height = light.ShadowMapResolution, light.ShadowMapResolution
		b.Clear = false
		b.ClearDepth = true
		b.DepthOnly = true
		b.Target = command.TargetShadowMap
		b.DepthTest, b.DepthWrite = true, true
	case pass.PassOpaque:
		b.DepthTest, b.DepthWrite = true, true
	case pass.PassGBuffer:
		b.Target = command.TargetGBuffer
		b.DepthTest, b.DepthWrite = true, true
	case pass.PassLighting:
		b.Blend = command.BlendAdditive
	case pass.PassTransparent:
		b.DepthTest = true
		b.Blend = command.BlendAlpha
	case pass.PassUI:
		b.Blend = command.BlendAlpha
	}
	return b
}
