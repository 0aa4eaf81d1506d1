package sceneio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/bindless"
)

func TestLoadRenderable_ComputesBoundingSphereFromVertices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.obj")
	require.NoError(t, os.WriteFile(path, []byte(triangleOBJ), 0o644))

	material := bindless.Material{TemplateIndex: 0, PropertyStride: 4, Properties: make([]byte, 4)}
	renderable, err := LoadRenderable(path, material, mgl32.Ident4())
	require.NoError(t, err)

	assert.Len(t, renderable.Mesh.Vertices, 3)
	assert.Greater(t, renderable.BoundingSphere.W(), float32(0))
}

func TestLoadRenderable_RejectsMismatchedPropertyStride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.obj")
	require.NoError(t, os.WriteFile(path, []byte(triangleOBJ), 0o644))

	material := bindless.Material{TemplateIndex: 0, PropertyStride: 8, Properties: make([]byte, 4)}
	_, err := LoadRenderable(path, material, mgl32.Ident4())
	assert.Error(t, err)
}
