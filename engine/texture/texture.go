package texture

import (
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/gogpu/gputypes"
)

// Descriptor describes the storage of a texture.
type Descriptor struct {
	Width   uint32
	Height  uint32
	Format  gputypes.TextureFormat
	Mipmaps bool
	Label   string
}

// RenderTexture is a texture owned by a Manager. The pointer stays valid until the texture is
// destroyed; the renderer only ever sees its Handle.
type RenderTexture struct {
	handle  resource.Handle
	desc    Descriptor
	cubemap bool
	state   resource.State
}

// Handle returns the handle commands use to reference the texture.
func (t *RenderTexture) Handle() resource.Handle {
	return t.handle
}

// Descriptor returns the texture's descriptor.
func (t *RenderTexture) Descriptor() Descriptor {
	return t.desc
}

// IsCubemap reports whether the texture has six faces.
func (t *RenderTexture) IsCubemap() bool {
	return t.cubemap
}

// BytesPerPixel returns the size of one texel for the uncompressed color formats the
// backends can upload.
//
// Parameters:
//   - format: the texture format
//
// Returns:
//   - int: bytes per texel
//   - bool: false if the format is not supported for uploads
func BytesPerPixel(format gputypes.TextureFormat) (int, bool) {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1, true
	case gputypes.TextureFormatRG8Unorm:
		return 2, true
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatR32Float:
		return 4, true
	case gputypes.TextureFormatRGBA16Float:
		return 8, true
	case gputypes.TextureFormatRGBA32Float:
		return 16, true
	}
	return 0, false
}
