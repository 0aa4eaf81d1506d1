// Package rendercore is the render-graph engine: ResourceStorage,
// DescriptorStorage/Writer, PipelineCache, BuildContext, and the Job/
// JobGraph that declaratively builds per-frame command streams with
// automatic resource barriers and synchronization.
package rendercore

import "github.com/kestrelgfx/corerender/name"

// RefKind discriminates the tagged union a BufferRef/TextureRef is.
type RefKind int

const (
	// RefLocal names a resource declared by the current job, resolved
	// against ResourceStorage at (name, frame-index).
	RefLocal RefKind = iota
	// RefExternal names a resource declared by another job, imported by
	// name; it is still resolved against ResourceStorage at (name, frame-index).
	RefExternal
	// RefRaw wraps a handle borrowed from outside the job graph entirely
	// (e.g. a swapchain image, or a resource owned by the host).
	RefRaw
)

// TextureRef is {Name, ExternalName, RawHandle} as specified in the data
// model: a job-local name, an imported name from another job, or a
// borrowed raw handle.
type TextureRef struct {
	Kind RefKind
	Name name.Name
	Raw  any // gapi.Texture when Kind == RefRaw
}

// BufferRef mirrors TextureRef for buffers.
type BufferRef struct {
	Kind RefKind
	Name name.Name
	Raw  any // gapi.Buffer when Kind == RefRaw
}

// LocalTexture builds a TextureRef naming a resource declared by the
// current job.
func LocalTexture(n name.Name) TextureRef { return TextureRef{Kind: RefLocal, Name: n} }

// ExternalTexture builds a TextureRef importing a resource exported by
// another job.
func ExternalTexture(n name.Name) TextureRef { return TextureRef{Kind: RefExternal, Name: n} }

// RawTexture wraps an externally owned texture handle.
func RawTexture(handle any) TextureRef { return TextureRef{Kind: RefRaw, Raw: handle} }

// LocalBuffer builds a BufferRef naming a resource declared by the current job.
func LocalBuffer(n name.Name) BufferRef { return BufferRef{Kind: RefLocal, Name: n} }

// ExternalBuffer builds a BufferRef importing a resource exported by another job.
func ExternalBuffer(n name.Name) BufferRef { return BufferRef{Kind: RefExternal, Name: n} }

// RawBuffer wraps an externally owned buffer handle.
func RawBuffer(handle any) BufferRef { return BufferRef{Kind: RefRaw, Raw: handle} }
