package sceneio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleOBJ = `
# a single triangle
v 0.0 0.0 0.0
v 1.0 0.0 0.0
v 0.0 1.0 0.0
vt 0.0 0.0
vt 1.0 0.0
vt 0.0 1.0
vn 0.0 0.0 1.0
f 1/1/1 2/2/1 3/3/1
`

func TestParseOBJ_SingleTriangle(t *testing.T) {
	mesh, err := parseOBJ(strings.NewReader(triangleOBJ))
	require.NoError(t, err)

	assert.Len(t, mesh.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	assert.Equal(t, float32(1.0), mesh.Vertices[1].Position.X())
	assert.Equal(t, float32(1.0), mesh.Vertices[2].UV.Y())
}

const quadOBJ = `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`

func TestParseOBJ_FanTriangulatesQuad(t *testing.T) {
	mesh, err := parseOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
}

func TestParseOBJ_NoFacesIsAnError(t *testing.T) {
	_, err := parseOBJ(strings.NewReader("v 0 0 0\n"))
	assert.Error(t, err)
}

func TestParseOBJ_PositionOnlyFaceDefaultsUVAndNormal(t *testing.T) {
	mesh, err := parseOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
	require.NoError(t, err)
	assert.Len(t, mesh.Vertices, 3)
	assert.Zero(t, mesh.Vertices[0].UV)
}
