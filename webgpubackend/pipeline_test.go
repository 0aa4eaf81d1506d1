package webgpubackend

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/gapi"
)

func TestBindGroupLayoutEntries_OneEntryPerBinding(t *testing.T) {
	bindings := []gapi.DescriptorType{
		gapi.DescriptorUniformBuffer,
		gapi.DescriptorStorageBuffer,
		gapi.DescriptorSampledTexture,
	}

	entries := bindGroupLayoutEntries(bindings, wgpu.ShaderStageFragment)
	require.Len(t, entries, 3)
	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, entries[1].Buffer.Type)
	assert.Equal(t, uint32(2), entries[2].Binding)
}

func TestToWGPUTextureFormat_MapsEveryCoreFormat(t *testing.T) {
	formats := []gapi.ColorFormat{
		gapi.FormatRGBA8UNorm, gapi.FormatRGBA16Float, gapi.FormatR32Float,
		gapi.FormatR16Float, gapi.FormatDepth32Float, gapi.FormatDepth24Stencil8,
		gapi.FormatBGRA8UNormSRGB, gapi.FormatRGB32Float, gapi.FormatRG32Float, gapi.FormatR32Uint,
	}
	seen := make(map[wgpu.TextureFormat]bool)
	for _, f := range formats {
		seen[toWGPUTextureFormat(f)] = true
	}
	assert.Greater(t, len(seen), 1)
}
