package webgpubackend

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

// ktx2Identifier is the 12-byte magic every KTX2 file starts with.
var ktx2Identifier = []byte{0xAB, 'K', 'T', 'X', ' ', '2', '0', 0xBB, '\r', '\n', 0x1A, '\n'}

// ktx2Header is the fixed 68-byte header following the identifier, per the
// Khronos KTX2 container spec: a VkFormat, the base level's dimensions, and
// the level/supercompression-scheme metadata needed to find level 0's
// pixel data. No vendored KTX2 decoding library exists anywhere in the
// retrieved example pack, so this reads only what CreateTextureFromKTX2
// needs (the uncompressed, single-mip, single-layer case); multi-level
// mipmaps baked into the container and Basis/Zstd supercompression are not
// decoded — sceneio always hands the backend already-uncompressed assets.
type ktx2Header struct {
	vkFormat              uint32
	typeSize              uint32
	pixelWidth            uint32
	pixelHeight            uint32
	pixelDepth             uint32
	layerCount             uint32
	faceCount              uint32
	levelCount             uint32
	supercompressionScheme uint32
}

func parseKTX2Header(data []byte) (ktx2Header, error) {
	if len(data) < len(ktx2Identifier)+68 {
		return ktx2Header{}, fmt.Errorf("webgpubackend: KTX2 data too short (%d bytes)", len(data))
	}
	for i, b := range ktx2Identifier {
		if data[i] != b {
			return ktx2Header{}, fmt.Errorf("webgpubackend: missing KTX2 identifier")
		}
	}

	r := data[len(ktx2Identifier):]
	h := ktx2Header{
		vkFormat:               binary.LittleEndian.Uint32(r[0:4]),
		typeSize:                binary.LittleEndian.Uint32(r[4:8]),
		pixelWidth:              binary.LittleEndian.Uint32(r[8:12]),
		pixelHeight:             binary.LittleEndian.Uint32(r[12:16]),
		pixelDepth:              binary.LittleEndian.Uint32(r[16:20]),
		layerCount:              binary.LittleEndian.Uint32(r[20:24]),
		faceCount:               binary.LittleEndian.Uint32(r[24:28]),
		levelCount:              binary.LittleEndian.Uint32(r[28:32]),
		supercompressionScheme:  binary.LittleEndian.Uint32(r[32:36]),
	}
	if h.pixelWidth == 0 || h.pixelHeight == 0 {
		return ktx2Header{}, fmt.Errorf("webgpubackend: KTX2 has zero extent")
	}
	if h.supercompressionScheme != 0 {
		return ktx2Header{}, fmt.Errorf("webgpubackend: KTX2 supercompression scheme %d unsupported", h.supercompressionScheme)
	}
	return h, nil
}

// vkFormatToColorFormat covers the three VkFormat values this reader
// accepts: RGBA8 unorm, RGBA16 float and R32 float.
func vkFormatToColorFormat(vkFormat uint32) (gapi.ColorFormat, bool) {
	const (
		vkFormatR8G8B8A8Unorm   = 37
		vkFormatR16G16B16A16Sfloat = 97
		vkFormatR32Sfloat       = 100
	)
	switch vkFormat {
	case vkFormatR8G8B8A8Unorm:
		return gapi.FormatRGBA8UNorm, true
	case vkFormatR16G16B16A16Sfloat:
		return gapi.FormatRGBA16Float, true
	case vkFormatR32Sfloat:
		return gapi.FormatR32Float, true
	default:
		return gapi.FormatRGBA8UNorm, false
	}
}

// levelImageOffset locates level 0's byte range in a single-level KTX2
// file: the level index immediately follows the 68-byte header (24 bytes
// per entry: byteOffset, byteLength, uncompressedByteLength), then format
// descriptor / key-value / supercompression-global-data blocks which this
// minimal reader does not need to walk because level 0's byteOffset is
// absolute from the start of the file.
func levelImageOffset(data []byte) (offset, length uint64, err error) {
	base := len(ktx2Identifier) + 68
	if len(data) < base+24 {
		return 0, 0, fmt.Errorf("webgpubackend: KTX2 missing level index")
	}
	offset = binary.LittleEndian.Uint64(data[base : base+8])
	length = binary.LittleEndian.Uint64(data[base+8 : base+16])
	if offset+length > uint64(len(data)) {
		return 0, 0, fmt.Errorf("webgpubackend: KTX2 level 0 extends past end of file")
	}
	return offset, length, nil
}

func (d *Device) CreateTextureFromKTX2(data []byte) (gapi.Texture, error) {
	h, err := parseKTX2Header(data)
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedFormat, "CreateTextureFromKTX2", err)
	}
	format, ok := vkFormatToColorFormat(h.vkFormat)
	if !ok {
		return nil, gapi.NewError(gapi.UnsupportedFormat, "CreateTextureFromKTX2", fmt.Errorf("VkFormat %d not supported", h.vkFormat))
	}
	offset, length, err := levelImageOffset(data)
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedFormat, "CreateTextureFromKTX2", err)
	}

	resolution := gapi.Resolution{Width: h.pixelWidth, Height: h.pixelHeight}
	texIface, err := d.CreateTexture(format, resolution, gapi.TextureUsageSampled|gapi.TextureUsageTransferDst, gapi.TextureStateUndefined, 1, 1)
	if err != nil {
		return nil, err
	}
	tex := texIface.(*Texture)

	pixels := data[offset : offset+length]
	bytesPerPixel := wgpuBytesPerPixel(format)
	extent := wgpu.Extent3D{Width: resolution.Width, Height: resolution.Height, DepthOrArrayLayers: 1}
	if err := d.queue.WriteTexture(
		tex.tex.AsImageCopy(),
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  resolution.Width * bytesPerPixel,
			RowsPerImage: resolution.Height,
		},
		&extent,
	); err != nil {
		return nil, gapi.NewError(gapi.UnsupportedFormat, "CreateTextureFromKTX2", err)
	}
	return tex, nil
}

func wgpuBytesPerPixel(f gapi.ColorFormat) uint32 {
	switch f {
	case gapi.FormatRGBA16Float:
		return 8
	case gapi.FormatR32Float:
		return 4
	default:
		return 4
	}
}
