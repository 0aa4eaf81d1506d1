// Package sceneio is the host-side feeder that turns mesh/texture asset
// files into the bindless.Renderable/gapi.Texture values bindless.Scene.Build
// and the stage package consume, per spec.md section 6's "host loads via
// an external library and calls createTextureFromKtx" / "host parses,
// uploads via BindlessScene" resource-format note.
package sceneio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrelgfx/corerender/bindless"
)

// LoadOBJMesh parses a Wavefront OBJ file into a bindless.Mesh. Only v/
// vt/vn/f records are recognized (the vertex, face-group, material, and
// smoothing-group directives real exporters also emit are accepted and
// ignored); faces with more than 3 vertices are fan-triangulated around
// their first vertex. No pack repo or ecosystem-adjacent library was
// retrieved for OBJ parsing, so this is the stdlib-justified exception
// recorded in DESIGN.md alongside the KTX2 reader.
func LoadOBJMesh(path string) (bindless.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return bindless.Mesh{}, fmt.Errorf("sceneio: opening %s: %w", path, err)
	}
	defer f.Close()
	return parseOBJ(f)
}

type objVertexKey struct {
	v, vt, vn int
}

func parseOBJ(r io.Reader) (bindless.Mesh, error) {
	var positions []mgl32.Vec3
	var uvs []mgl32.Vec2
	var normals []mgl32.Vec3

	mesh := bindless.Mesh{}
	seen := make(map[objVertexKey]uint32)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return bindless.Mesh{}, fmt.Errorf("sceneio: line %d: %w", lineNo, err)
			}
			positions = append(positions, v)
		case "vt":
			if len(fields) < 3 {
				return bindless.Mesh{}, fmt.Errorf("sceneio: line %d: malformed vt record", lineNo)
			}
			u, err := strconv.ParseFloat(fields[1], 32)
			if err != nil {
				return bindless.Mesh{}, fmt.Errorf("sceneio: line %d: %w", lineNo, err)
			}
			v, err := strconv.ParseFloat(fields[2], 32)
			if err != nil {
				return bindless.Mesh{}, fmt.Errorf("sceneio: line %d: %w", lineNo, err)
			}
			uvs = append(uvs, mgl32.Vec2{float32(u), float32(v)})
		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return bindless.Mesh{}, fmt.Errorf("sceneio: line %d: %w", lineNo, err)
			}
			normals = append(normals, n)
		case "f":
			idxs := make([]uint32, 0, len(fields)-1)
			for _, field := range fields[1:] {
				key, err := parseFaceVertex(field)
				if err != nil {
					return bindless.Mesh{}, fmt.Errorf("sceneio: line %d: %w", lineNo, err)
				}
				idx, ok := seen[key]
				if !ok {
					vertex := bindless.Vertex{}
					if key.v > 0 && key.v <= len(positions) {
						vertex.Position = positions[key.v-1]
					}
					if key.vt > 0 && key.vt <= len(uvs) {
						vertex.UV = uvs[key.vt-1]
					}
					if key.vn > 0 && key.vn <= len(normals) {
						vertex.Normal = normals[key.vn-1]
					}
					idx = uint32(len(mesh.Vertices))
					mesh.Vertices = append(mesh.Vertices, vertex)
					seen[key] = idx
				}
				idxs = append(idxs, idx)
			}
			for i := 1; i < len(idxs)-1; i++ {
				mesh.Indices = append(mesh.Indices, idxs[0], idxs[i], idxs[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return bindless.Mesh{}, fmt.Errorf("sceneio: scanning obj: %w", err)
	}
	if len(mesh.Indices) == 0 {
		return bindless.Mesh{}, fmt.Errorf("sceneio: obj file contained no faces")
	}
	return mesh, nil
}

func parseVec3(fields []string) (mgl32.Vec3, error) {
	if len(fields) < 3 {
		return mgl32.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return mgl32.Vec3{}, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFaceVertex parses one "v", "v/vt", "v//vn", or "v/vt/vn" token.
// Negative (relative-to-end) indices are not supported since no retrieved
// fixture or spec scenario exercises them.
func parseFaceVertex(token string) (objVertexKey, error) {
	parts := strings.Split(token, "/")
	key := objVertexKey{}
	var err error
	key.v, err = atoiOrZero(parts[0])
	if err != nil {
		return objVertexKey{}, err
	}
	if len(parts) > 1 {
		if key.vt, err = atoiOrZero(parts[1]); err != nil {
			return objVertexKey{}, err
		}
	}
	if len(parts) > 2 {
		if key.vn, err = atoiOrZero(parts[2]); err != nil {
			return objVertexKey{}, err
		}
	}
	return key, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
