package gl_backend

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/gogpu/gputypes"
)

type glTexture struct {
	id     uint32
	target uint32
}

type glMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

// glProgram caches the uniform locations the processor writes. Missing uniforms resolve to
// -1, which GL ignores on upload.
type glProgram struct {
	id   uint32
	name string

	model     int32
	baseColor int32
	metallic  int32
	roughness int32
	cutoff    int32
	hasAlbedo int32
	hasShadow int32

	rect   int32
	screen int32
	uv     int32
	color  int32
}

type pixelFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

// pixelFormatOf maps an upload format onto GL's internal format, pixel format and component type.
func pixelFormatOf(f gputypes.TextureFormat) (pixelFormat, bool) {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return pixelFormat{gl.R8, gl.RED, gl.UNSIGNED_BYTE}, true
	case gputypes.TextureFormatRG8Unorm:
		return pixelFormat{gl.RG8, gl.RG, gl.UNSIGNED_BYTE}, true
	case gputypes.TextureFormatRGBA8Unorm:
		return pixelFormat{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}, true
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return pixelFormat{gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE}, true
	case gputypes.TextureFormatBGRA8Unorm:
		return pixelFormat{gl.RGBA8, gl.BGRA, gl.UNSIGNED_BYTE}, true
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return pixelFormat{gl.SRGB8_ALPHA8, gl.BGRA, gl.UNSIGNED_BYTE}, true
	case gputypes.TextureFormatR32Float:
		return pixelFormat{gl.R32F, gl.RED, gl.FLOAT}, true
	case gputypes.TextureFormatRGBA16Float:
		return pixelFormat{gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT}, true
	case gputypes.TextureFormatRGBA32Float:
		return pixelFormat{gl.RGBA32F, gl.RGBA, gl.FLOAT}, true
	}
	return pixelFormat{}, false
}

func uploadTexture(cmd command.LoadTextureCommand) (glTexture, error) {
	pf, ok := pixelFormatOf(cmd.Format)
	if !ok {
		return glTexture{}, fmt.Errorf("unsupported texture format %s", cmd.Format)
	}

	tex := glTexture{target: gl.TEXTURE_2D}
	gl.GenTextures(1, &tex.id)
	gl.BindTexture(gl.TEXTURE_2D, tex.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, pf.internal, int32(cmd.Width), int32(cmd.Height), 0, pf.format, pf.xtype, bytePtr(cmd.Data))
	setSampling(gl.TEXTURE_2D, cmd.Mipmaps)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex, nil
}

func uploadCubemap(cmd command.LoadCubemapCommand) (glTexture, error) {
	pf, ok := pixelFormatOf(cmd.Format)
	if !ok {
		return glTexture{}, fmt.Errorf("unsupported cubemap format %s", cmd.Format)
	}

	tex := glTexture{target: gl.TEXTURE_CUBE_MAP}
	gl.GenTextures(1, &tex.id)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, tex.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	for i, face := range cmd.Faces {
		gl.TexImage2D(uint32(gl.TEXTURE_CUBE_MAP_POSITIVE_X+i), 0, pf.internal,
			int32(cmd.Size), int32(cmd.Size), 0, pf.format, pf.xtype, bytePtr(face))
	}
	setSampling(gl.TEXTURE_CUBE_MAP, false)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
	return tex, nil
}

func setSampling(target uint32, mipmaps bool) {
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	if mipmaps {
		gl.GenerateMipmap(target)
		gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		return
	}
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
}

func (t glTexture) release() {
	gl.DeleteTextures(1, &t.id)
}

func uploadMesh(cmd command.LoadMeshCommand) (glMesh, error) {
	if len(cmd.Vertices) == 0 || len(cmd.Indices) == 0 {
		return glMesh{}, fmt.Errorf("mesh has %d vertices and %d indices", len(cmd.Vertices), len(cmd.Indices))
	}

	m := glMesh{indexCount: int32(len(cmd.Indices))}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(cmd.Vertices)*command.VertexStride, gl.Ptr(cmd.Vertices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, command.VertexStride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, command.VertexStride, gl.PtrOffset(12))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, command.VertexStride, gl.PtrOffset(24))

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(cmd.Indices)*4, gl.Ptr(cmd.Indices), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return m, nil
}

func (m glMesh) release() {
	gl.DeleteBuffers(1, &m.ebo)
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteVertexArrays(1, &m.vao)
}

func newProgram(name, vsSrc, fsSrc string) (*glProgram, error) {
	id, err := makeProgram(vsSrc, fsSrc)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", name, err)
	}

	p := &glProgram{id: id, name: name}
	loc := func(uniform string) int32 {
		return gl.GetUniformLocation(id, gl.Str(uniform+"\x00"))
	}
	p.model = loc("uModel")
	p.baseColor = loc("uBaseColor")
	p.metallic = loc("uMetallic")
	p.roughness = loc("uRoughness")
	p.cutoff = loc("uCutoff")
	p.hasAlbedo = loc("uHasAlbedo")
	p.hasShadow = loc("uHasShadow")
	p.rect = loc("uRect")
	p.screen = loc("uScreen")
	p.uv = loc("uUV")
	p.color = loc("uColor")

	if idx := gl.GetUniformBlockIndex(id, gl.Str("Camera\x00")); idx != gl.INVALID_INDEX {
		gl.UniformBlockBinding(id, idx, cameraBinding)
	}
	if idx := gl.GetUniformBlockIndex(id, gl.Str("Lights\x00")); idx != gl.INVALID_INDEX {
		gl.UniformBlockBinding(id, idx, lightsBinding)
	}

	gl.UseProgram(id)
	gl.Uniform1i(loc("uAlbedo"), albedoUnit)
	gl.Uniform1i(loc("uShadowMap"), shadowUnit)
	gl.Uniform1i(loc("gAlbedo"), gbufferUnit)
	gl.Uniform1i(loc("gNormal"), gbufferUnit+1)
	gl.Uniform1i(loc("gPosition"), gbufferUnit+2)
	gl.UseProgram(0)
	return p, nil
}

func (p *glProgram) release() {
	gl.DeleteProgram(p.id)
}

func makeShader(src string, shaderType uint32) (uint32, error) {
	sh := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	defer free()
	gl.ShaderSource(sh, 1, csrc, nil)
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(sh, logLen, nil, gl.Str(log))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(log, "\x00"))
	}
	return sh, nil
}

func makeProgram(vsSrc, fsSrc string) (uint32, error) {
	vs, err := makeShader(vsSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex %w", err)
	}
	fs, err := makeShader(fsSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, fmt.Errorf("fragment %w", err)
	}
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(log, "\x00"))
	}
	return prog, nil
}

func bytePtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return gl.Ptr(b)
}
