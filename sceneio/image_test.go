package sceneio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/gapi"
)

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "fixture.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestDecodeAndResizeRGBA8_ResizesToTarget(t *testing.T) {
	path := writeTestPNG(t, 4, 4)

	target := gapi.Resolution{Width: 16, Height: 16}
	decoded, err := DecodeAndResizeRGBA8(path, target)
	require.NoError(t, err)

	assert.Equal(t, target, decoded.Resolution)
	assert.Equal(t, gapi.FormatRGBA8UNorm, decoded.Format)
	assert.Len(t, decoded.Pixels, int(target.Width*target.Height*4))
}

func TestCopyIntoRGBA_PreservesNativeResolution(t *testing.T) {
	path := writeTestPNG(t, 8, 5)

	decoded, err := CopyIntoRGBA(path)
	require.NoError(t, err)

	assert.Equal(t, gapi.Resolution{Width: 8, Height: 5}, decoded.Resolution)
	assert.Len(t, decoded.Pixels, 8*5*4)
}
