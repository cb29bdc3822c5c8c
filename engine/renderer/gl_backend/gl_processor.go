// Package gl_backend executes command buffers with OpenGL 3.3 core.
//
// The processor owns every GL object. Init, Process and Close must be called from the same
// goroutine, the render execution goroutine; Init locks it to its OS thread and makes the
// window's context current there. Commands that cannot be executed (a draw with a mesh that
// never loaded, a shader that fails to compile) are logged at Warn and skipped, and the rest
// of the buffer still runs.
package gl_backend

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/processor"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// Context is the window side of a GL context. *glfw.Window satisfies it.
type Context interface {
	MakeContextCurrent()
	SwapBuffers()
}

type glProcessor struct {
	ctx     Context
	present bool

	textures map[resource.Handle]glTexture
	meshes   map[resource.Handle]glMesh
	programs map[resource.Handle]*glProgram

	forward, gbufferProg, depth, lighting, quad *glProgram
	emptyVAO                                    uint32

	cameraUBO, lightsUBO uniformBuffer
	shadow               *shadowTarget
	gbuffer              *gbufferTarget

	// per-buffer state
	pass          command.BeginPassCommand
	camera        command.ApplyCameraCommand
	shadowVP      mgl32.Mat4
	shadowReady   bool
	lightBatches  int
	material      material.Material
	materialDirty bool
	mesh          *glMesh
	current       *glProgram
	albedoBound   bool

	initialized bool
}

var _ processor.CommandProcessor = &glProcessor{}

// NewProcessor creates an OpenGL command processor presenting to ctx.
//
// Parameters:
//   - ctx: the window whose context the processor renders with
//   - options: variadic list of ProcessorBuilderOption functions to configure the processor
//
// Returns:
//   - processor.CommandProcessor: the new processor, uninitialised until Init
func NewProcessor(ctx Context, options ...ProcessorBuilderOption) processor.CommandProcessor {
	if ctx == nil {
		panic("gl_backend: NewProcessor called with nil context")
	}
	p := &glProcessor{
		ctx:      ctx,
		present:  true,
		textures: make(map[resource.Handle]glTexture),
		meshes:   make(map[resource.Handle]glMesh),
		programs: make(map[resource.Handle]*glProgram),
		shadowVP: mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *glProcessor) Init() error {
	runtime.LockOSThread()
	p.ctx.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl_backend: init: %w", err)
	}

	builtins := []struct {
		dst    **glProgram
		name   string
		vs, fs string
	}{
		{&p.forward, "forward", meshVertexGLSL, forwardFragmentGLSL},
		{&p.gbufferProg, "gbuffer", meshVertexGLSL, gbufferFragmentGLSL},
		{&p.depth, "depth", depthVertexGLSL, depthFragmentGLSL},
		{&p.lighting, "lighting", fullscreenVertexGLSL, lightingFragmentGLSL},
		{&p.quad, "quad", quadVertexGLSL, quadFragmentGLSL},
	}
	for _, b := range builtins {
		prog, err := newProgram(b.name, b.vs, b.fs)
		if err != nil {
			return fmt.Errorf("gl_backend: %w", err)
		}
		*b.dst = prog
	}

	gl.GenVertexArrays(1, &p.emptyVAO)
	p.cameraUBO = newUniformBuffer(cameraBinding, cameraBlockSize)
	p.lightsUBO = newUniformBuffer(lightsBinding, light.LightBufferSize)
	gl.DepthFunc(gl.LEQUAL)

	p.initialized = true
	common.Logger().Info("gl_backend: initialised",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))
	return nil
}

func (p *glProcessor) Process(buf *command.Buffer) {
	if !p.initialized {
		panic("gl_backend: Process called before Init")
	}

	p.shadowReady = false
	for i, cmd := range buf.All() {
		if err := p.execute(cmd); err != nil {
			common.Logger().Warn("gl_backend: command skipped",
				"frame", buf.Frame(), "index", i, "command", cmd.Type(), "error", err)
		}
	}
	if p.present {
		p.ctx.SwapBuffers()
	}
}

func (p *glProcessor) execute(cmd command.Command) error {
	switch c := cmd.(type) {
	case command.LoadTextureCommand:
		if _, ok := p.textures[c.Texture]; ok {
			return fmt.Errorf("texture %s already loaded", c.Texture)
		}
		tex, err := uploadTexture(c)
		if err != nil {
			return err
		}
		p.textures[c.Texture] = tex

	case command.LoadCubemapCommand:
		if _, ok := p.textures[c.Texture]; ok {
			return fmt.Errorf("cubemap %s already loaded", c.Texture)
		}
		tex, err := uploadCubemap(c)
		if err != nil {
			return err
		}
		p.textures[c.Texture] = tex

	case command.UnloadTextureCommand:
		tex, ok := p.textures[c.Texture]
		if !ok {
			return fmt.Errorf("texture %s not loaded", c.Texture)
		}
		tex.release()
		delete(p.textures, c.Texture)

	case command.LoadMeshCommand:
		if _, ok := p.meshes[c.Mesh]; ok {
			return fmt.Errorf("mesh %s already loaded", c.Mesh)
		}
		m, err := uploadMesh(c)
		if err != nil {
			return err
		}
		p.meshes[c.Mesh] = m

	case command.UnloadMeshCommand:
		m, ok := p.meshes[c.Mesh]
		if !ok {
			return fmt.Errorf("mesh %s not loaded", c.Mesh)
		}
		if p.mesh != nil && p.mesh.vao == m.vao {
			p.mesh = nil
		}
		m.release()
		delete(p.meshes, c.Mesh)

	case command.LoadShaderCommand:
		if _, ok := p.programs[c.Shader]; ok {
			return fmt.Errorf("shader %s already loaded", c.Shader)
		}
		prog, err := newProgram(c.Name, c.Vertex, c.Fragment)
		if err != nil {
			return err
		}
		p.programs[c.Shader] = prog

	case command.UnloadShaderCommand:
		prog, ok := p.programs[c.Shader]
		if !ok {
			return fmt.Errorf("shader %s not loaded", c.Shader)
		}
		if p.current == prog {
			p.current = nil
		}
		prog.release()
		delete(p.programs, c.Shader)

	case command.BeginPassCommand:
		return p.beginPass(c)

	case command.EndPassCommand:
		p.endPass()

	case command.ApplyCameraCommand:
		p.camera = c
		p.uploadCamera()

	case command.ApplyLightsCommand:
		p.shadowVP = c.ShadowVP
		p.uploadCamera()
		ambient := [3]float32{float32(c.Ambient.R), float32(c.Ambient.G), float32(c.Ambient.B)}
		p.lightsUBO.write(light.MarshalLightBuffer(c.Lights, ambient))

	case command.BindMaterialCommand:
		p.material = c.Material
		p.materialDirty = true
		return p.bindMaterialTextures()

	case command.BindMeshCommand:
		m, ok := p.meshes[c.Mesh]
		if !ok {
			p.mesh = nil
			return fmt.Errorf("mesh %s not loaded", c.Mesh)
		}
		p.mesh = &m
		gl.BindVertexArray(m.vao)

	case command.BindTextureCommand:
		return p.bindTexture(c.Slot, c.Texture)

	case command.DrawIndexedCommand:
		return p.drawIndexed(c)

	case command.DrawQuadCommand:
		p.drawQuad(c)

	case command.DrawFullscreenCommand:
		return p.drawFullscreen()

	default:
		return fmt.Errorf("unsupported command %s", cmd.Type())
	}
	return nil
}

func (p *glProcessor) beginPass(c command.BeginPassCommand) error {
	p.pass = c
	p.current = nil
	p.mesh = nil
	p.material = nil
	p.lightBatches = 0
	w, h := int32(c.Width), int32(c.Height)

	switch c.Target {
	case command.TargetShadowMap:
		if p.shadow == nil || p.shadow.size != w {
			if p.shadow != nil {
				p.shadow.release()
			}
			s, err := newShadowTarget(w)
			if err != nil {
				p.shadow = nil
				return err
			}
			p.shadow = s
		}
		gl.BindFramebuffer(gl.FRAMEBUFFER, p.shadow.fbo)
		gl.Enable(gl.POLYGON_OFFSET_FILL)
		gl.PolygonOffset(2, 4)

	case command.TargetGBuffer:
		if p.gbuffer == nil || p.gbuffer.width != w || p.gbuffer.height != h {
			if p.gbuffer != nil {
				p.gbuffer.release()
			}
			g, err := newGBufferTarget(w, h)
			if err != nil {
				p.gbuffer = nil
				return err
			}
			p.gbuffer = g
		}
		// The backbuffer still shows the clear colour wherever no geometry lands.
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, w, h)
		clearTarget(c.Clear, c.ClearDepth, c.ClearColor)
		gl.BindFramebuffer(gl.FRAMEBUFFER, p.gbuffer.fbo)
		c.Clear, c.ClearColor = true, gputypes.Color{}

	default:
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}

	gl.Viewport(0, 0, w, h)
	gl.ColorMask(!c.DepthOnly, !c.DepthOnly, !c.DepthOnly, !c.DepthOnly)
	clearTarget(c.Clear, c.ClearDepth, c.ClearColor)

	if c.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(c.DepthWrite)
	setBlend(c.Blend)
	return nil
}

func (p *glProcessor) endPass() {
	switch p.pass.Target {
	case command.TargetShadowMap:
		gl.Disable(gl.POLYGON_OFFSET_FILL)
		p.shadowReady = p.shadow != nil
	case command.TargetGBuffer:
		if p.gbuffer != nil {
			p.gbuffer.blitDepth()
		}
	}
	gl.ColorMask(true, true, true, true)
	gl.BindVertexArray(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	p.pass = command.BeginPassCommand{}
}

func clearTarget(color, depth bool, c gputypes.Color) {
	var mask uint32
	if color {
		gl.ClearColor(float32(c.R), float32(c.G), float32(c.B), float32(c.A))
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		gl.DepthMask(true)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}

func setColor(location int32, c gputypes.Color) {
	gl.Uniform4f(location, float32(c.R), float32(c.G), float32(c.B), float32(c.A))
}

func setBlend(mode command.BlendMode) {
	switch mode {
	case command.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	case command.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	default:
		gl.Disable(gl.BLEND)
	}
}

func (p *glProcessor) uploadCamera() {
	c := p.camera
	p.cameraUBO.writeFloats(cameraBlock(c.View, c.Projection, c.ViewProjection, p.shadowVP, c.Position))
}

func (p *glProcessor) bindMaterialTextures() error {
	p.albedoBound = false
	var missing error
	for slot, h := range p.material.Textures() {
		if err := p.bindTexture(uint32(slot), h); err != nil {
			missing = errors.Join(missing, err)
		}
	}
	return missing
}

func (p *glProcessor) bindTexture(slot uint32, h resource.Handle) error {
	gl.ActiveTexture(gl.TEXTURE0 + slot)
	if h.IsZero() {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		if slot == albedoUnit {
			p.albedoBound = false
			p.materialDirty = true
		}
		return nil
	}
	tex, ok := p.textures[h]
	if !ok {
		return fmt.Errorf("texture %s not loaded", h)
	}
	gl.BindTexture(tex.target, tex.id)
	if slot == albedoUnit {
		p.albedoBound = tex.target == gl.TEXTURE_2D
		p.materialDirty = true
	}
	return nil
}

// meshProgram picks the program for a mesh draw: the depth program in depth-only passes, the
// material's own shader when it has loaded, otherwise the built-in for the pass target.
func (p *glProcessor) meshProgram() *glProgram {
	if p.pass.DepthOnly {
		return p.depth
	}
	if p.material != nil {
		if prog, ok := p.programs[p.material.Shader()]; ok {
			return prog
		}
	}
	if p.pass.Target == command.TargetGBuffer {
		return p.gbufferProg
	}
	return p.forward
}

func (p *glProcessor) use(prog *glProgram) {
	if p.current == prog {
		return
	}
	gl.UseProgram(prog.id)
	p.current = prog
	p.materialDirty = true
	if p.shadowReady {
		gl.ActiveTexture(gl.TEXTURE0 + shadowUnit)
		gl.BindTexture(gl.TEXTURE_2D, p.shadow.depth)
		gl.Uniform1i(prog.hasShadow, 1)
	} else {
		gl.Uniform1i(prog.hasShadow, 0)
	}
}

func (p *glProcessor) applyMaterial() {
	if !p.materialDirty {
		return
	}
	p.materialDirty = false
	prog := p.current

	hasAlbedo := int32(0)
	if p.albedoBound {
		hasAlbedo = 1
	}
	gl.Uniform1i(prog.hasAlbedo, hasAlbedo)
	if p.material == nil {
		gl.Uniform4f(prog.baseColor, 1, 1, 1, 1)
		return
	}
	setColor(prog.baseColor, p.material.BaseColor())
	gl.Uniform1f(prog.metallic, p.material.Metallic())
	gl.Uniform1f(prog.roughness, p.material.Roughness())
	cutoff := float32(0)
	if p.material.Type() == material.MaterialTypeCutout {
		cutoff = 0.5
	}
	gl.Uniform1f(prog.cutoff, cutoff)
}

func (p *glProcessor) drawIndexed(c command.DrawIndexedCommand) error {
	if p.mesh == nil {
		return errors.New("draw without a loaded mesh")
	}
	count := int32(c.IndexCount)
	if count == 0 || int32(c.FirstIndex)+count > p.mesh.indexCount {
		count = p.mesh.indexCount - int32(c.FirstIndex)
	}

	p.use(p.meshProgram())
	p.applyMaterial()
	gl.UniformMatrix4fv(p.current.model, 1, false, &c.World[0])
	gl.BindVertexArray(p.mesh.vao)
	gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_INT, gl.PtrOffset(int(c.FirstIndex)*4))
	return nil
}

func (p *glProcessor) drawQuad(c command.DrawQuadCommand) {
	p.use(p.quad)
	hasAlbedo := int32(0)
	if p.albedoBound {
		hasAlbedo = 1
	}
	gl.Uniform1i(p.quad.hasAlbedo, hasAlbedo)
	gl.Uniform4f(p.quad.rect, c.Position[0], c.Position[1], c.Size[0], c.Size[1])
	gl.Uniform2f(p.quad.screen, float32(p.pass.Width), float32(p.pass.Height))
	gl.Uniform4f(p.quad.uv, c.UV[0], c.UV[1], c.UV[2], c.UV[3])
	setColor(p.quad.color, c.Color)
	gl.BindVertexArray(p.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
}

// drawFullscreen shades the geometry buffer with the current light batch. The first batch of
// a pass replaces the backbuffer where geometry was written; later batches add to it.
func (p *glProcessor) drawFullscreen() error {
	if p.gbuffer == nil {
		return errors.New("lighting without a geometry buffer")
	}
	if p.lightBatches == 0 {
		gl.Disable(gl.BLEND)
	} else {
		setBlend(command.BlendAdditive)
	}
	p.lightBatches++

	p.use(p.lighting)
	p.gbuffer.bindTextures()
	gl.BindVertexArray(p.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	return nil
}

func (p *glProcessor) Close() error {
	if !p.initialized {
		return nil
	}
	for h, tex := range p.textures {
		tex.release()
		delete(p.textures, h)
	}
	for h, m := range p.meshes {
		m.release()
		delete(p.meshes, h)
	}
	for h, prog := range p.programs {
		prog.release()
		delete(p.programs, h)
	}
	for _, prog := range []*glProgram{p.forward, p.gbufferProg, p.depth, p.lighting, p.quad} {
		prog.release()
	}
	if p.shadow != nil {
		p.shadow.release()
	}
	if p.gbuffer != nil {
		p.gbuffer.release()
	}
	p.cameraUBO.release()
	p.lightsUBO.release()
	gl.DeleteVertexArrays(1, &p.emptyVAO)

	p.initialized = false
	runtime.UnlockOSThread()
	return nil
}
