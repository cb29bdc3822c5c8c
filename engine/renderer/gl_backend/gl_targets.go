package gl_backend

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniform block binding points and texture units reserved by the processor.
const (
	cameraBinding = 0
	lightsBinding = 1

	albedoUnit  = 0
	gbufferUnit = 4
	shadowUnit  = 7
)

// cameraBlockSize is four mat4 and a vec4 in std140 layout.
const cameraBlockSize = 4*16*4 + 4*4

type uniformBuffer struct {
	id   uint32
	size int
}

func newUniformBuffer(binding uint32, size int) uniformBuffer {
	u := uniformBuffer{size: size}
	gl.GenBuffers(1, &u.id)
	gl.BindBuffer(gl.UNIFORM_BUFFER, u.id)
	gl.BufferData(gl.UNIFORM_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, binding, u.id)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return u
}

func (u uniformBuffer) write(data []byte) {
	gl.BindBuffer(gl.UNIFORM_BUFFER, u.id)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, min(len(data), u.size), gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
}

func (u uniformBuffer) writeFloats(data []float32) {
	gl.BindBuffer(gl.UNIFORM_BUFFER, u.id)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, min(len(data)*4, u.size), gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
}

func (u uniformBuffer) release() {
	gl.DeleteBuffers(1, &u.id)
}

// cameraBlock packs the Camera uniform block.
func cameraBlock(view, proj, viewProj, shadowVP mgl32.Mat4, pos mgl32.Vec3) []float32 {
	out := make([]float32, 0, cameraBlockSize/4)
	for _, m := range [4]mgl32.Mat4{view, proj, viewProj, shadowVP} {
		out = append(out, m[:]...)
	}
	return append(out, pos[0], pos[1], pos[2], 1)
}

// shadowTarget is a depth-only framebuffer sampled by the lit programs.
type shadowTarget struct {
	fbo   uint32
	depth uint32
	size  int32
}

func newShadowTarget(size int32) (*shadowTarget, error) {
	s := &shadowTarget{size: size}
	gl.GenTextures(1, &s.depth)
	gl.BindTexture(gl.TEXTURE_2D, s.depth)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, size, size, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.GenFramebuffers(1, &s.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, s.depth, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		s.release()
		return nil, fmt.Errorf("shadow framebuffer incomplete: 0x%x", status)
	}
	return s, nil
}

func (s *shadowTarget) release() {
	gl.DeleteFramebuffers(1, &s.fbo)
	gl.DeleteTextures(1, &s.depth)
}

// gbufferTarget holds albedo, normal+roughness and position+metallic attachments.
type gbufferTarget struct {
	fbo           uint32
	color         [3]uint32
	depth         uint32
	width, height int32
}

func newGBufferTarget(width, height int32) (*gbufferTarget, error) {
	g := &gbufferTarget{width: width, height: height}
	gl.GenFramebuffers(1, &g.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, g.fbo)

	gl.GenTextures(int32(len(g.color)), &g.color[0])
	attachments := make([]uint32, len(g.color))
	for i, tex := range g.color {
		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, width, height, 0, gl.RGBA, gl.HALF_FLOAT, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		attachments[i] = uint32(gl.COLOR_ATTACHMENT0 + i)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachments[i], gl.TEXTURE_2D, tex, 0)
	}
	gl.DrawBuffers(int32(len(attachments)), &attachments[0])

	gl.GenTextures(1, &g.depth)
	gl.BindTexture(gl.TEXTURE_2D, g.depth)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, width, height, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, g.depth, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		g.release()
		return nil, fmt.Errorf("geometry framebuffer incomplete: 0x%x", status)
	}
	return g, nil
}

// bindTextures binds the attachments to the units read by the lighting program.
func (g *gbufferTarget) bindTextures() {
	for i, tex := range g.color {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + gbufferUnit + i))
		gl.BindTexture(gl.TEXTURE_2D, tex)
	}
}

// blitDepth copies the geometry depth into the backbuffer so forward passes that follow
// are occluded by deferred geometry.
func (g *gbufferTarget) blitDepth() {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, g.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, g.width, g.height, 0, 0, g.width, g.height, gl.DEPTH_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (g *gbufferTarget) release() {
	gl.DeleteFramebuffers(1, &g.fbo)
	gl.DeleteTextures(int32(len(g.color)), &g.color[0])
	gl.DeleteTextures(1, &g.depth)
}
