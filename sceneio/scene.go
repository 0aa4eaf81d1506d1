package sceneio

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrelgfx/corerender/bindless"
)

// LoadRenderable loads an OBJ mesh from path and assembles it into a
// bindless.Renderable, computing its bounding sphere from the mesh's own
// vertex positions so a caller does not have to author one by hand
// per asset.
func LoadRenderable(path string, material bindless.Material, model mgl32.Mat4) (bindless.Renderable, error) {
	mesh, err := LoadOBJMesh(path)
	if err != nil {
		return bindless.Renderable{}, err
	}
	if uint32(len(material.Properties)) != material.PropertyStride {
		return bindless.Renderable{}, fmt.Errorf("sceneio: material property length %d does not match PropertyStride %d", len(material.Properties), material.PropertyStride)
	}

	return bindless.Renderable{
		Mesh:           mesh,
		Material:       material,
		Model:          model,
		BoundingSphere: boundingSphere(mesh),
	}, nil
}

// boundingSphere computes a local-space bounding sphere that contains
// every vertex: center is the vertex centroid, radius is the farthest
// vertex distance from it. Not the minimal enclosing sphere, but a cheap
// and correct conservative bound, consistent with this engine's culling
// stage treating bounding spheres as conservative occlusion/frustum
// bounds rather than tight ones.
func boundingSphere(mesh bindless.Mesh) mgl32.Vec4 {
	if len(mesh.Vertices) == 0 {
		return mgl32.Vec4{}
	}

	var centroid mgl32.Vec3
	for _, v := range mesh.Vertices {
		centroid = centroid.Add(v.Position)
	}
	centroid = centroid.Mul(1.0 / float32(len(mesh.Vertices)))

	var radius float32
	for _, v := range mesh.Vertices {
		if d := v.Position.Sub(centroid).Len(); d > radius {
			radius = d
		}
	}

	return mgl32.Vec4{centroid.X(), centroid.Y(), centroid.Z(), radius}
}
