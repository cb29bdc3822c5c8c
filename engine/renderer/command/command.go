// Package command defines the backend-agnostic render command set.
//
// A frame is lowered by the command compiler into a flat, ordered Buffer of typed
// commands. Resource lifecycle commands (texture, cubemap, mesh and shader loads and
// unloads) are collected into pre-render and post-render Lists while a snapshot is
// built, and carried into the Buffer around the draw commands so that a resource is
// always loaded before it is drawn with and unloaded after the last draw that uses it.
//
// Commands are plain values. Once a Buffer is built it is never mutated; command
// processors execute it strictly in order.
package command

import (
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// CommandType identifies the type of a command.
type CommandType uint8

const (
	// Resource commands
	CmdLoadTexture   CommandType = iota // Upload a 2D texture
	CmdLoadCubemap                      // Upload a six-face cubemap
	CmdUnloadTexture                    // Release a texture or cubemap
	CmdLoadMesh                         // Upload vertex and index data
	CmdUnloadMesh                       // Release mesh buffers
	CmdLoadShader                       // Compile and link a shader program
	CmdUnloadShader                     // Release a shader program

	// Pass commands
	CmdBeginPass   // Begin a render pass
	CmdEndPass     // End the current render pass
	CmdApplyCamera // Upload camera matrices
	CmdApplyLights // Upload a batch of lights

	// State commands
	CmdBindMaterial // Bind shader and material parameters
	CmdBindMesh     // Bind vertex and index buffers
	CmdBindTexture  // Bind a texture to a texture unit

	// Draw commands
	CmdDrawIndexed    // Draw the bound mesh
	CmdDrawQuad       // Draw a screen-space quad
	CmdDrawFullscreen // Draw a fullscreen triangle
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdLoadTexture:    "LoadTexture",
	CmdLoadCubemap:    "LoadCubemap",
	CmdUnloadTexture:  "UnloadTexture",
	CmdLoadMesh:       "LoadMesh",
	CmdUnloadMesh:     "UnloadMesh",
	CmdLoadShader:     "LoadShader",
	CmdUnloadShader:   "UnloadShader",
	CmdBeginPass:      "BeginPass",
	CmdEndPass:        "EndPass",
	CmdApplyCamera:    "ApplyCamera",
	CmdApplyLights:    "ApplyLights",
	CmdBindMaterial:   "BindMaterial",
	CmdBindMesh:       "BindMesh",
	CmdBindTexture:    "BindTexture",
	CmdDrawIndexed:    "DrawIndexed",
	CmdDrawQuad:       "DrawQuad",
	CmdDrawFullscreen: "DrawFullscreen",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// --------------------------------------------------------------------------
// Resource Commands
// --------------------------------------------------------------------------

// Vertex is the interleaved vertex layout shared by every mesh: position, normal, texcoord.
// Size: 32 bytes.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// VertexStride is the byte size of one Vertex.
const VertexStride = 32

// CubemapFaces is the number of faces of a cubemap, ordered +X, -X, +Y, -Y, +Z, -Z.
const CubemapFaces = 6

// LoadTextureCommand uploads pixel data for a 2D texture.
type LoadTextureCommand struct {
	Texture resource.Handle
	Width   uint32
	Height  uint32
	Format  gputypes.TextureFormat
	Data    []byte
	Mipmaps bool
}

// Type implements Command.
func (LoadTextureCommand) Type() CommandType { return CmdLoadTexture }

// LoadCubemapCommand uploads the six faces of a cubemap.
type LoadCubemapCommand struct {
	Texture resource.Handle
	Size    uint32
	Format  gputypes.TextureFormat
	Faces   [CubemapFaces][]byte
}

// Type implements Command.
func (LoadCubemapCommand) Type() CommandType { return CmdLoadCubemap }

// UnloadTextureCommand releases a texture or cubemap.
type UnloadTextureCommand struct {
	Texture resource.Handle
	Cubemap bool
}

// Type implements Command.
func (UnloadTextureCommand) Type() CommandType { return CmdUnloadTexture }

// LoadMeshCommand uploads interleaved vertices and 32-bit indices.
type LoadMeshCommand struct {
	Mesh     resource.Handle
	Vertices []Vertex
	Indices  []uint32
}

// Type implements Command.
func (LoadMeshCommand) Type() CommandType { return CmdLoadMesh }

// UnloadMeshCommand releases mesh buffers.
type UnloadMeshCommand struct {
	Mesh resource.Handle
}

// Type implements Command.
func (UnloadMeshCommand) Type() CommandType { return CmdUnloadMesh }

// LoadShaderCommand builds a shader program. GLSL backends compile Vertex and Fragment as
// separate stages; WGSL backends expect both entry points (vs_main, fs_main) in Vertex.
type LoadShaderCommand struct {
	Shader   resource.Handle
	Name     string
	Vertex   string
	Fragment string
}

// Type implements Command.
func (LoadShaderCommand) Type() CommandType { return CmdLoadShader }

// UnloadShaderCommand releases a shader program.
type UnloadShaderCommand struct {
	Shader resource.Handle
}

// Type implements Command.
func (UnloadShaderCommand) Type() CommandType { return CmdUnloadShader }

// --------------------------------------------------------------------------
// Pass Commands
// --------------------------------------------------------------------------

// BlendMode selects how a pass combines fragments with the target.
type BlendMode uint8

const (
	BlendNone     BlendMode = iota // Fragments replace the target
	BlendAlpha                     // Source-over alpha blending
	BlendAdditive                  // Fragments are added to the target
)

// RenderTarget selects the attachments a pass renders into.
type RenderTarget uint8

const (
	TargetBackbuffer RenderTarget = iota // the window surface
	TargetShadowMap                      // the directional shadow depth map
	TargetGBuffer                        // albedo, normal and position attachments plus depth
)

// BeginPassCommand begins a render pass and sets its fixed-function state.
type BeginPassCommand struct {
	Name       string
	Target     RenderTarget
	Width      uint32
	Height     uint32
	Clear      bool // clear the color target to ClearColor
	ClearDepth bool
	ClearColor gputypes.Color
	DepthTest  bool
	DepthWrite bool
	DepthOnly  bool // render into the shadow depth target with color writes disabled
	Blend      BlendMode
}

// Type implements Command.
func (BeginPassCommand) Type() CommandType { return CmdBeginPass }

// EndPassCommand ends the current render pass.
type EndPassCommand struct {
	Name string
}

// Type implements Command.
func (EndPassCommand) Type() CommandType { return CmdEndPass }

// ApplyCameraCommand uploads the camera used by the following draws.
type ApplyCameraCommand struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	ViewProjection mgl32.Mat4
	Position       mgl32.Vec3
}

// Type implements Command.
func (ApplyCameraCommand) Type() CommandType { return CmdApplyCamera }

// ApplyLightsCommand uploads one batch of at most light.MaxLightsPerBatch lights. Forward
// opaque and transparent passes get a single batch, so only their first
// light.MaxLightsPerBatch lights shade; the deferred lighting pass emits one per batch.
// Only the first batch of a pass carries the ambient color; later batches have it zeroed
// so additive lighting does not count it twice.
type ApplyLightsCommand struct {
	Ambient  gputypes.Color
	Lights   []light.Data
	ShadowVP mgl32.Mat4 // light view-projection when a shadow pass ran, identity otherwise
}

// Type implements Command.
func (ApplyLightsCommand) Type() CommandType { return CmdApplyLights }

// --------------------------------------------------------------------------
// State Commands
// --------------------------------------------------------------------------

// BindMaterialCommand binds a material's shader, textures and parameters.
type BindMaterialCommand struct {
	Material material.Material
}

// Type implements Command.
func (BindMaterialCommand) Type() CommandType { return CmdBindMaterial }

// BindMeshCommand binds a mesh's vertex and index buffers.
type BindMeshCommand struct {
	Mesh resource.Handle
}

// Type implements Command.
func (BindMeshCommand) Type() CommandType { return CmdBindMesh }

// BindTextureCommand binds a texture to a texture unit, overriding the material's texture.
type BindTextureCommand struct {
	Slot    uint32
	Texture resource.Handle
}

// Type implements Command.
func (BindTextureCommand) Type() CommandType { return CmdBindTexture }

// --------------------------------------------------------------------------
// Draw Commands
// --------------------------------------------------------------------------

// DrawIndexedCommand draws IndexCount indices of the bound mesh with a world transform.
type DrawIndexedCommand struct {
	World      mgl32.Mat4
	IndexCount uint32
	FirstIndex uint32
}

// Type implements Command.
func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }

// DrawQuadCommand draws a screen-space quad. Position and Size are in pixels with the
// origin at the top-left of the target.
type DrawQuadCommand struct {
	Position mgl32.Vec2
	Size     mgl32.Vec2
	Color    gputypes.Color
	UV       mgl32.Vec4 // u0, v0, u1, v1
}

// Type implements Command.
func (DrawQuadCommand) Type() CommandType { return CmdDrawQuad }

// DrawFullscreenCommand draws a triangle covering the whole target with the backend's lighting
// program, shading the geometry buffer with the lights of the preceding ApplyLights.
type DrawFullscreenCommand struct{}

// Type implements Command.
func (DrawFullscreenCommand) Type() CommandType { return CmdDrawFullscreen }
