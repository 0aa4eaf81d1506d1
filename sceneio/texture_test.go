package sceneio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/fakegapi"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadKTX2Texture_RejectsMissingIdentifier(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.ktx2", []byte("not a ktx2 file at all"))

	dev := fakegapi.New()
	_, err := LoadKTX2Texture(dev, path)
	assert.Error(t, err)
}

func TestLoadKTX2Texture_AcceptsValidIdentifier(t *testing.T) {
	dir := t.TempDir()
	data := append(append([]byte(nil), ktx2Identifier...), make([]byte, 64)...)
	path := writeFile(t, dir, "good.ktx2", data)

	dev := fakegapi.New()
	tex, err := LoadKTX2Texture(dev, path)
	require.NoError(t, err)
	assert.NotNil(t, tex)
}

func TestLoadKTX2Texture_MissingFile(t *testing.T) {
	dev := fakegapi.New()
	_, err := LoadKTX2Texture(dev, filepath.Join(t.TempDir(), "nonexistent.ktx2"))
	assert.Error(t, err)
}
