package rendercore

import (
	"fmt"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
)

// ResourceStorage maps (Name, frame-index) to owned GPU objects. It is
// mutated only during job build/rebuild on the host thread; per-frame
// reads and writes are confined to the owning job. Lookup keys are
// computed via name.Name.WithFrame, matching the original design's
// `hash(name) + frame-index * LARGE_PRIME` scheme.
type ResourceStorage struct {
	textures map[name.Name]gapi.Texture
	buffers  map[name.Name]gapi.Buffer
}

// NewResourceStorage creates an empty ResourceStorage.
func NewResourceStorage() *ResourceStorage {
	return &ResourceStorage{
		textures: make(map[name.Name]gapi.Texture),
		buffers:  make(map[name.Name]gapi.Buffer),
	}
}

// RegisterTexture stores a texture owned under (n, frameIndex).
func (s *ResourceStorage) RegisterTexture(n name.Name, frameIndex uint32, tex gapi.Texture) {
	s.textures[n.WithFrame(frameIndex)] = tex
}

// Texture looks up a previously registered texture. It panics on a miss —
// a missing (name, frame) pair indicates a BuildContext/JobGraph bug, the
// same "logical error" class the original design treats as undefined
// behavior in release builds and an assertion in debug builds.
func (s *ResourceStorage) Texture(n name.Name, frameIndex uint32) gapi.Texture {
	tex, ok := s.textures[n.WithFrame(frameIndex)]
	if !ok {
		panic(fmt.Sprintf("rendercore: no texture registered for %q at frame %d", n, frameIndex))
	}
	return tex
}

// HasTexture reports whether a texture is registered for (n, frameIndex)
// without panicking.
func (s *ResourceStorage) HasTexture(n name.Name, frameIndex uint32) bool {
	_, ok := s.textures[n.WithFrame(frameIndex)]
	return ok
}

// RegisterBuffer stores a buffer owned under (n, frameIndex).
func (s *ResourceStorage) RegisterBuffer(n name.Name, frameIndex uint32, buf gapi.Buffer) {
	s.buffers[n.WithFrame(frameIndex)] = buf
}

// Buffer looks up a previously registered buffer; panics on a miss, as Texture does.
func (s *ResourceStorage) Buffer(n name.Name, frameIndex uint32) gapi.Buffer {
	buf, ok := s.buffers[n.WithFrame(frameIndex)]
	if !ok {
		panic(fmt.Sprintf("rendercore: no buffer registered for %q at frame %d", n, frameIndex))
	}
	return buf
}

// HasBuffer reports whether a buffer is registered for (n, frameIndex)
// without panicking.
func (s *ResourceStorage) HasBuffer(n name.Name, frameIndex uint32) bool {
	_, ok := s.buffers[n.WithFrame(frameIndex)]
	return ok
}

// ReleaseFrame releases and forgets every resource registered at
// frameIndex for the given names. Nothing in this module calls it;
// rebuilding a job does not release the resources of the previous build.
func (s *ResourceStorage) ReleaseFrame(names []name.Name, frameIndex uint32) {
	for _, n := range names {
		key := n.WithFrame(frameIndex)
		if tex, ok := s.textures[key]; ok {
			tex.Release()
			delete(s.textures, key)
		}
		if buf, ok := s.buffers[key]; ok {
			buf.Release()
			delete(s.buffers, key)
		}
	}
}
