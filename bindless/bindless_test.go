package bindless

import (
	"math"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/fakegapi"
)

func triangle(offset float32) Mesh {
	return Mesh{
		Vertices: []Vertex{
			{Position: mgl32.Vec3{offset, 0, 0}},
			{Position: mgl32.Vec3{offset + 1, 0, 0}},
			{Position: mgl32.Vec3{offset, 1, 0}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func renderable(template uint32, offset float32) Renderable {
	return Renderable{
		Mesh:           triangle(offset),
		Material:       Material{TemplateIndex: template, PropertyStride: 16, Properties: make([]byte, 16)},
		Model:          mgl32.Ident4(),
		BoundingSphere: mgl32.Vec4{offset, 0, 0, 1},
	}
}

// TestScene_GroupsObjectsContiguouslyByTemplate verifies the ordering
// invariant from spec section 4.7/8: after Build, objects are sorted so all
// entries of material template i precede template i+1, and per-template
// ranges are contiguous ([start_i, end_i) with start_{i+1} == end_i when
// templates are adjacent and both non-empty).
func TestScene_GroupsObjectsContiguouslyByTemplate(t *testing.T) {
	dev := fakegapi.New()
	scene := NewScene(dev)

	renderables := []Renderable{
		renderable(2, 0),
		renderable(0, 10),
		renderable(1, 20),
		renderable(0, 30),
		renderable(2, 40),
	}

	require.NoError(t, scene.Build(renderables, nil))

	objs := scene.Objects()
	require.Len(t, objs, 5)

	for i := 1; i < len(objs); i++ {
		assert.LessOrEqual(t, objs[i-1].MaterialTemplateIndex, objs[i].MaterialTemplateIndex,
			"objects must be grouped contiguously by ascending material template")
	}

	r0 := scene.TemplateRange(0)
	r1 := scene.TemplateRange(1)
	r2 := scene.TemplateRange(2)
	assert.Equal(t, uint32(2), r0.End-r0.Start)
	assert.Equal(t, uint32(1), r1.End-r1.Start)
	assert.Equal(t, uint32(2), r2.End-r2.Start)
	assert.Equal(t, r0.End, r1.Start)
	assert.Equal(t, r1.End, r2.Start)
}

// TestScene_VertexAndIndexOffsetsRoundTrip verifies that each object's
// vertexOffset/firstIndex correctly addresses its own geometry inside the
// combined buffers, per spec section 8.
func TestScene_VertexAndIndexOffsetsRoundTrip(t *testing.T) {
	dev := fakegapi.New()
	scene := NewScene(dev)

	renderables := []Renderable{
		renderable(0, 0),
		renderable(0, 100),
		renderable(1, 200),
	}
	require.NoError(t, scene.Build(renderables, nil))

	vbytes := scene.CombinedVertexBuffer().Map()
	require.NotNil(t, vbytes)

	objs := scene.Objects()
	require.Len(t, objs, 3)

	stride := int(unsafe.Sizeof(Vertex{}))
	for _, obj := range objs {
		base := int(obj.VertexOffset) * stride
		require.LessOrEqual(t, base+stride, len(vbytes))
	}

	// Each object's first vertex x-coordinate should be its original offset
	// (0, 100, 200 in some order matching the stable sort by template).
	var xs []float32
	for _, obj := range objs {
		base := int(obj.VertexOffset) * stride
		x := readFloat32(vbytes[base : base+4])
		xs = append(xs, x)
	}
	assert.ElementsMatch(t, []float32{0, 100, 200}, xs)
}

// TestScene_EmptySceneProducesZeroCounts checks the zero-object edge case
// from spec section 8 scenario 4: every template's count is 0.
func TestScene_EmptySceneProducesZeroCounts(t *testing.T) {
	dev := fakegapi.New()
	scene := NewScene(dev)

	require.NoError(t, scene.Build(nil, nil))
	assert.Equal(t, uint32(0), scene.ObjectCount())
	for i := uint32(0); i < MaterialTemplateCount; i++ {
		r := scene.TemplateRange(i)
		assert.Equal(t, uint32(0), r.End-r.Start)
	}
}

func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
