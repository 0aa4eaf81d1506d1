package stage

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/gapi"
)

func triangle(offset float32) bindless.Mesh {
	return bindless.Mesh{
		Vertices: []bindless.Vertex{
			{Position: mgl32.Vec3{offset, 0, 0}},
			{Position: mgl32.Vec3{offset + 1, 0, 0}},
			{Position: mgl32.Vec3{offset, 1, 0}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func buildTestScene(t *testing.T, dev gapi.Device, n int) *bindless.Scene {
	t.Helper()
	scene := bindless.NewScene(dev)
	renderables := make([]bindless.Renderable, 0, n)
	for i := 0; i < n; i++ {
		renderables = append(renderables, bindless.Renderable{
			Mesh:           triangle(float32(i)),
			Material:       bindless.Material{TemplateIndex: uint32(i % bindless.MaterialTemplateCount), PropertyStride: 16, Properties: make([]byte, 16)},
			Model:          mgl32.Ident4(),
			BoundingSphere: mgl32.Vec4{float32(i), 0, 0, 1},
		})
	}
	require.NoError(t, scene.Build(renderables, nil))
	return scene
}
