package webgpubackend

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildKTX2(vkFormat, width, height uint32, levelData []byte) []byte {
	header := make([]byte, 68)
	binary.LittleEndian.PutUint32(header[0:4], vkFormat)
	binary.LittleEndian.PutUint32(header[8:12], width)
	binary.LittleEndian.PutUint32(header[12:16], height)

	levelIndex := make([]byte, 24)
	base := uint64(len(ktx2Identifier) + len(header) + len(levelIndex))
	binary.LittleEndian.PutUint64(levelIndex[0:8], base)
	binary.LittleEndian.PutUint64(levelIndex[8:16], uint64(len(levelData)))

	out := append([]byte(nil), ktx2Identifier...)
	out = append(out, header...)
	out = append(out, levelIndex...)
	out = append(out, levelData...)
	return out
}

func TestParseKTX2Header_RejectsMissingIdentifier(t *testing.T) {
	_, err := parseKTX2Header([]byte("not a ktx2 file"))
	assert.Error(t, err)
}

func TestParseKTX2Header_ParsesDimensionsAndFormat(t *testing.T) {
	const vkFormatR8G8B8A8Unorm = 37
	data := buildKTX2(vkFormatR8G8B8A8Unorm, 4, 8, make([]byte, 4*8*4))

	h, err := parseKTX2Header(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), h.pixelWidth)
	assert.Equal(t, uint32(8), h.pixelHeight)

	format, ok := vkFormatToColorFormat(h.vkFormat)
	assert.True(t, ok)
	assert.Equal(t, uint32(37), h.vkFormat)
	_ = format
}

func TestLevelImageOffset_LocatesLevelZero(t *testing.T) {
	const vkFormatR8G8B8A8Unorm = 37
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	data := buildKTX2(vkFormatR8G8B8A8Unorm, 1, 2, payload)

	offset, length, err := levelImageOffset(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(payload)), length)
	assert.Equal(t, payload, data[offset:offset+length])
}

func TestVkFormatToColorFormat_RejectsUnknownFormat(t *testing.T) {
	_, ok := vkFormatToColorFormat(999999)
	assert.False(t, ok)
}
