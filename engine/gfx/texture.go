package gfx

// TextureFormat is the pixel format of a texture or frame buffer attachment.
type TextureFormat uint8

const (
	// TextureFormatUnknown selects the backend default (RGBA8 for color, D24S8 for depth).
	TextureFormatUnknown TextureFormat = iota
	TextureFormatR8
	TextureFormatR16F
	TextureFormatR32F
	TextureFormatRG8
	TextureFormatRG16F
	TextureFormatRGBA8
	TextureFormatBGRA8
	TextureFormatRGBA16F
	TextureFormatRGBA32F
	TextureFormatD16
	TextureFormatD24
	TextureFormatD24S8
	TextureFormatD32F
	TextureFormatCount
)

var textureFormatInfo = [TextureFormatCount]struct {
	name  string
	bpp   uint32
	depth bool
}{
	TextureFormatUnknown: {"Unknown", 0, false},
	TextureFormatR8:      {"R8", 8, false},
	TextureFormatR16F:    {"R16F", 16, false},
	TextureFormatR32F:    {"R32F", 32, false},
	TextureFormatRG8:     {"RG8", 16, false},
	TextureFormatRG16F:   {"RG16F", 32, false},
	TextureFormatRGBA8:   {"RGBA8", 32, false},
	TextureFormatBGRA8:   {"BGRA8", 32, false},
	TextureFormatRGBA16F: {"RGBA16F", 64, false},
	TextureFormatRGBA32F: {"RGBA32F", 128, false},
	TextureFormatD16:     {"D16", 16, true},
	TextureFormatD24:     {"D24", 32, true},
	TextureFormatD24S8:   {"D24S8", 32, true},
	TextureFormatD32F:    {"D32F", 32, true},
}

func (f TextureFormat) String() string {
	if f < TextureFormatCount {
		return textureFormatInfo[f].name
	}
	return "Invalid"
}

// BitsPerPixel returns the storage size of one texel in bits.
func (f TextureFormat) BitsPerPixel() uint32 {
	if f < TextureFormatCount {
		return textureFormatInfo[f].bpp
	}
	return 0
}

// IsDepth reports whether the format is a depth or depth-stencil format.
func (f TextureFormat) IsDepth() bool {
	return f < TextureFormatCount && textureFormatInfo[f].depth
}

// resolve maps TextureFormatUnknown onto the concrete default for color or depth use.
func (f TextureFormat) resolve(depth bool) TextureFormat {
	if f != TextureFormatUnknown && f < TextureFormatCount {
		return f
	}
	if depth {
		return TextureFormatD24S8
	}
	return TextureFormatRGBA8
}

// TextureInfo describes the shape and storage size of a texture.
type TextureInfo struct {
	Format       TextureFormat
	StorageSize  uint32
	Width        uint16
	Height       uint16
	Depth        uint16
	NumLayers    uint16
	NumMips      uint8
	BitsPerPixel uint8
	CubeMap      bool
}

// CalcTextureSize computes the storage required for a texture including its full mip
// chain when hasMips is set. Unknown formats are resolved to RGBA8.
func CalcTextureSize(width, height, depth uint16, cubeMap, hasMips bool, numLayers uint16, format TextureFormat) TextureInfo {
	format = format.resolve(false)
	bpp := format.BitsPerPixel()

	w := max(uint32(width), 1)
	h := max(uint32(height), 1)
	d := max(uint32(depth), 1)
	layers := max(uint32(numLayers), 1)
	sides := uint32(1)
	if cubeMap {
		sides = 6
	}

	numMips := uint8(1)
	if hasMips {
		numMips = calcNumMips(w, h, d)
	}

	var size uint32
	mw, mh, md := w, h, d
	for range numMips {
		size += mw * mh * md * bpp / 8 * sides
		mw = max(mw>>1, 1)
		mh = max(mh>>1, 1)
		md = max(md>>1, 1)
	}

	return TextureInfo{
		Format:       format,
		StorageSize:  size * layers,
		Width:        uint16(w),
		Height:       uint16(h),
		Depth:        uint16(d),
		NumLayers:    uint16(layers),
		NumMips:      numMips,
		BitsPerPixel: uint8(bpp),
		CubeMap:      cubeMap,
	}
}

func calcNumMips(w, h, d uint32) uint8 {
	largest := max(w, h, d)
	n := uint8(1)
	for largest > 1 {
		largest >>= 1
		n++
	}
	return n
}

// Attachment binds one texture mip/layer to a frame buffer slot.
type Attachment struct {
	Texture TextureHandle
	Mip     uint16
	Layer   uint16
}
