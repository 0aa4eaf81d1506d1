package sceneio

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"os"

	ximagedraw "golang.org/x/image/draw"

	"github.com/kestrelgfx/corerender/gapi"
)

// DecodedImage is a resized, RGBA8-converted image ready for a one-time
// upload via CopyBufferToTexture, plus the gapi.ColorFormat it was
// decoded into.
type DecodedImage struct {
	Pixels     []byte // tightly packed RGBA8, row-major
	Resolution gapi.Resolution
	Format     gapi.ColorFormat
}

// DecodeAndResizeRGBA8 decodes path (any format the stdlib image package
// has a registered decoder for — png is always available, jpeg/gif
// register themselves the same way a caller's main package imports them)
// and resizes it to target using golang.org/x/image/draw's bilinear
// scaler, the way gogpu-gg's Pixmap composes with the x/image ecosystem.
// This is sceneio's path for AO-noise and skybox fixture textures that
// are not distributed as KTX2 containers.
func DecodeAndResizeRGBA8(path string, target gapi.Resolution) (DecodedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return DecodedImage{}, fmt.Errorf("sceneio: opening %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return DecodedImage{}, fmt.Errorf("sceneio: decoding %s: %w", path, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(target.Width), int(target.Height)))
	ximagedraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), ximagedraw.Over, nil)

	return DecodedImage{
		Pixels:     dst.Pix,
		Resolution: target,
		Format:     gapi.FormatRGBA8UNorm,
	}, nil
}

// CopyIntoRGBA decodes path at its native resolution without resizing,
// converting any image.Image into a tightly packed RGBA8 buffer via
// stdlib image/draw — used for fixtures already baked at the size the
// caller needs.
func CopyIntoRGBA(path string) (DecodedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return DecodedImage{}, fmt.Errorf("sceneio: opening %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return DecodedImage{}, fmt.Errorf("sceneio: decoding %s: %w", path, err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	return DecodedImage{
		Pixels:     dst.Pix,
		Resolution: gapi.Resolution{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy())},
		Format:     gapi.FormatRGBA8UNorm,
	}, nil
}
