package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// uniformAlignment is the WebGPU default minUniformBufferOffsetAlignment.
const uniformAlignment = 256

const (
	shadowFormat  = wgpu.TextureFormatDepth32Float
	depthFormat   = wgpu.TextureFormatDepth24Plus
	gbufferFormat = wgpu.TextureFormatRGBA16Float
)

var textureFormats = map[gputypes.TextureFormat]wgpu.TextureFormat{
	gputypes.TextureFormatR8Unorm:        wgpu.TextureFormatR8Unorm,
	gputypes.TextureFormatRG8Unorm:       wgpu.TextureFormatRG8Unorm,
	gputypes.TextureFormatR32Float:       wgpu.TextureFormatR32Float,
	gputypes.TextureFormatRGBA8Unorm:     wgpu.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb: wgpu.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatBGRA8Unorm:     wgpu.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatBGRA8UnormSrgb: wgpu.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatRGBA16Float:    wgpu.TextureFormatRGBA16Float,
	gputypes.TextureFormatRGBA32Float:    wgpu.TextureFormatRGBA32Float,
}

// textureFormatOf maps a texture format to its wgpu equivalent and byte size per pixel.
func textureFormatOf(f gputypes.TextureFormat) (wgpu.TextureFormat, uint32, error) {
	wf, ok := textureFormats[f]
	bpp, sized := texture.BytesPerPixel(f)
	if !ok || !sized {
		return 0, 0, fmt.Errorf("unsupported texture format %s", f)
	}
	return wf, uint32(bpp), nil
}

func alignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) / alignment * alignment
}

// uniformRing hands out dynamic-offset slots of one uniform buffer. Slots are staged on the
// CPU while a command buffer is encoded and written to the GPU once before submission, so
// every pass sees the values that were current when its draws were recorded.
type uniformRing struct {
	label    string
	size     uint64 // bytes bound per slot
	stride   uint64
	capacity int
	next     int
	staging  []byte
	buffer   *wgpu.Buffer
}

func newUniformRing(label string, size uint64) *uniformRing {
	return &uniformRing{label: label, size: size, stride: alignUp(size, uniformAlignment)}
}

// reset rewinds the ring and reports the slot count needed to hold slots entries.
func (r *uniformRing) reset(slots int) (grow bool) {
	r.next = 0
	slots = max(slots, 1)
	if slots <= r.capacity {
		return false
	}
	r.capacity = max(slots, 2*r.capacity)
	r.staging = make([]byte, uint64(r.capacity)*r.stride)
	return true
}

// allocate recreates the GPU buffer at the current capacity.
func (r *uniformRing) allocate(device *wgpu.Device) error {
	if r.buffer != nil {
		r.buffer.Release()
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: r.label,
		Size:  uint64(r.capacity) * r.stride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		r.buffer = nil
		return fmt.Errorf("create %s buffer: %w", r.label, err)
	}
	r.buffer = buf
	return nil
}

// push stages data in the next slot and returns its dynamic offset. Pushing past capacity
// reuses the last slot.
func (r *uniformRing) push(data []byte) uint32 {
	slot := min(r.next, r.capacity-1)
	offset := uint64(slot) * r.stride
	n := copy(r.staging[offset:offset+r.size], data)
	clear(r.staging[offset+uint64(n) : offset+r.size])
	if r.next < r.capacity {
		r.next++
	}
	return uint32(offset)
}

func (r *uniformRing) flush(queue *wgpu.Queue) {
	if r.next == 0 || r.buffer == nil {
		return
	}
	queue.WriteBuffer(r.buffer, 0, r.staging[:uint64(r.next)*r.stride])
}

func (r *uniformRing) release() {
	if r.buffer != nil {
		r.buffer.Release()
		r.buffer = nil
	}
}

// cameraSlot packs the Camera uniform: view, projection, view-projection and shadow
// view-projection matrices followed by the camera position with the shadow flag in w.
func cameraSlot(c command.ApplyCameraCommand, shadowVP mgl32.Mat4, shadowReady bool) []byte {
	data := make([]float32, 0, 68)
	data = append(data, c.View[:]...)
	data = append(data, c.Projection[:]...)
	data = append(data, c.ViewProjection[:]...)
	data = append(data, shadowVP[:]...)
	flag := float32(0)
	if shadowReady {
		flag = 1
	}
	data = append(data, c.Position[0], c.Position[1], c.Position[2], flag)
	return common.SliceToBytes(data)
}

// drawSlot packs the DrawData uniform of one mesh draw. A nil material draws white.
func drawSlot(world mgl32.Mat4, m material.Material) []byte {
	data := make([]float32, 0, 24)
	data = append(data, world[:]...)
	if m == nil {
		data = append(data, 1, 1, 1, 1, 0, 1, 0, 0)
		return common.SliceToBytes(data)
	}
	c := m.BaseColor()
	cutoff := float32(0)
	if m.Type() == material.MaterialTypeCutout {
		cutoff = 0.5
	}
	data = append(data,
		float32(c.R), float32(c.G), float32(c.B), float32(c.A),
		m.Metallic(), m.Roughness(), cutoff, 0)
	return common.SliceToBytes(data)
}

// quadSlot packs the Quad uniform of one screen-space quad.
func quadSlot(c command.DrawQuadCommand, width, height uint32) []byte {
	data := []float32{
		c.Position[0], c.Position[1], c.Size[0], c.Size[1],
		c.UV[0], c.UV[1], c.UV[2], c.UV[3],
		float32(c.Color.R), float32(c.Color.G), float32(c.Color.B), float32(c.Color.A),
		float32(width), float32(height), 0, 0,
	}
	return common.SliceToBytes(data)
}

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	cubemap bool
}

func (t wgpuTexture) release() {
	t.view.Release()
	t.texture.Release()
}

func (p *wgpuProcessor) createTexture(label string, width, height, layers uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, error) {
	return p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
}

func (p *wgpuProcessor) writeLayer(tex *wgpu.Texture, layer, width, height, bpp uint32, data []byte) {
	p.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * bpp,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)
}

// uploadTexture creates a sampled 2D texture. Mip chains are not generated; only level 0 exists.
func (p *wgpuProcessor) uploadTexture(c command.LoadTextureCommand) (wgpuTexture, error) {
	format, bpp, err := textureFormatOf(c.Format)
	if err != nil {
		return wgpuTexture{}, err
	}
	tex, err := p.createTexture(c.Texture.String(), c.Width, c.Height, 1, format,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return wgpuTexture{}, fmt.Errorf("create texture %s: %w", c.Texture, err)
	}
	if len(c.Data) > 0 {
		p.writeLayer(tex, 0, c.Width, c.Height, bpp, c.Data)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return wgpuTexture{}, fmt.Errorf("create texture view %s: %w", c.Texture, err)
	}
	return wgpuTexture{texture: tex, view: view}, nil
}

func (p *wgpuProcessor) uploadCubemap(c command.LoadCubemapCommand) (wgpuTexture, error) {
	format, bpp, err := textureFormatOf(c.Format)
	if err != nil {
		return wgpuTexture{}, err
	}
	tex, err := p.createTexture(c.Texture.String(), c.Size, c.Size, command.CubemapFaces, format,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return wgpuTexture{}, fmt.Errorf("create cubemap %s: %w", c.Texture, err)
	}
	for i, face := range c.Faces {
		if len(face) > 0 {
			p.writeLayer(tex, uint32(i), c.Size, c.Size, bpp, face)
		}
	}
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           c.Texture.String(),
		Format:          format,
		Dimension:       wgpu.TextureViewDimensionCube,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: command.CubemapFaces,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return wgpuTexture{}, fmt.Errorf("create cubemap view %s: %w", c.Texture, err)
	}
	return wgpuTexture{texture: tex, view: view, cubemap: true}, nil
}

type wgpuMesh struct {
	vertices   *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount uint32
}

func (m wgpuMesh) release() {
	m.vertices.Release()
	m.indices.Release()
}

func (p *wgpuProcessor) uploadMesh(c command.LoadMeshCommand) (wgpuMesh, error) {
	if len(c.Vertices) == 0 || len(c.Indices) == 0 {
		return wgpuMesh{}, errors.New("empty mesh")
	}
	label := c.Mesh.String()
	vb, err := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " vertices",
		Size:  uint64(len(c.Vertices) * command.VertexStride),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return wgpuMesh{}, fmt.Errorf("create vertex buffer %s: %w", label, err)
	}
	ib, err := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " indices",
		Size:  uint64(len(c.Indices) * 4),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return wgpuMesh{}, fmt.Errorf("create index buffer %s: %w", label, err)
	}
	p.queue.WriteBuffer(vb, 0, common.SliceToBytes(c.Vertices))
	p.queue.WriteBuffer(ib, 0, common.SliceToBytes(c.Indices))
	return wgpuMesh{vertices: vb, indices: ib, indexCount: uint32(len(c.Indices))}, nil
}

// renderTarget is a texture the backend renders into and later samples.
type renderTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (p *wgpuProcessor) newRenderTarget(label string, width, height uint32, format wgpu.TextureFormat, sampled bool) (renderTarget, error) {
	usage := wgpu.TextureUsageRenderAttachment
	if sampled {
		usage |= wgpu.TextureUsageTextureBinding
	}
	tex, err := p.createTexture(label, width, height, 1, format, usage)
	if err != nil {
		return renderTarget{}, fmt.Errorf("create %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return renderTarget{}, fmt.Errorf("create %s view: %w", label, err)
	}
	return renderTarget{texture: tex, view: view}, nil
}

func (t renderTarget) release() {
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}
