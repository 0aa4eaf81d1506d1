package rendercore

import (
	"fmt"
	"strings"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
)

// PipelineCache compiles and caches Pipelines keyed by their full
// description, so a BuildContext recording the same draw/dispatch shape
// across frames never recompiles a pipeline it already built.
type PipelineCache struct {
	device   gapi.Device
	graphics map[string]gapi.Pipeline
	compute  map[string]gapi.Pipeline
	shaders  map[shaderKey]gapi.Shader
}

type shaderKey struct {
	stage gapi.ShaderStage
	name  string
}

// NewPipelineCache creates an empty PipelineCache over device.
func NewPipelineCache(device gapi.Device) *PipelineCache {
	return &PipelineCache{
		device:   device,
		graphics: make(map[string]gapi.Pipeline),
		compute:  make(map[string]gapi.Pipeline),
		shaders:  make(map[shaderKey]gapi.Shader),
	}
}

// Shader compiles and caches a shader stage, keyed by (stage, entrypoint).
func (c *PipelineCache) Shader(stage gapi.ShaderStage, entrypoint string, bytecode []byte) (gapi.Shader, error) {
	key := shaderKey{stage: stage, name: entrypoint}
	if s, ok := c.shaders[key]; ok {
		return s, nil
	}
	s, err := c.device.CreateShader(stage, entrypoint, bytecode)
	if err != nil {
		return nil, gapi.NewError(gapi.InvalidShaderStage, "PipelineCache.Shader", err)
	}
	c.shaders[key] = s
	return s, nil
}

// Graphics returns a cached graphics pipeline for desc, compiling it on a
// cache miss. shaders maps each shader's name (the names desc.VertexShader
// and desc.FragmentShader refer to) to its compiled module, as required by
// Device.CreateGraphicsPipeline.
func (c *PipelineCache) Graphics(desc gapi.GraphicsPipelineDesc, shaders map[name.Name]gapi.Shader) (gapi.Pipeline, error) {
	key := graphicsKey(desc)
	if p, ok := c.graphics[key]; ok {
		return p, nil
	}
	p, err := c.device.CreateGraphicsPipeline(desc, shaders)
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "PipelineCache.Graphics", err)
	}
	c.graphics[key] = p
	return p, nil
}

// Compute returns a cached compute pipeline for desc, compiling it on a
// cache miss.
func (c *PipelineCache) Compute(desc gapi.ComputePipelineDesc, shaders map[name.Name]gapi.Shader) (gapi.Pipeline, error) {
	key := computeKey(desc)
	if p, ok := c.compute[key]; ok {
		return p, nil
	}
	p, err := c.device.CreateComputePipeline(desc, shaders)
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "PipelineCache.Compute", err)
	}
	c.compute[key] = p
	return p, nil
}

// Release tears down every compiled pipeline, leaving compiled shaders
// intact since BuildContexts may still hold references to them across a
// rebuild.
func (c *PipelineCache) Release() {
	for _, p := range c.graphics {
		p.Release()
	}
	for _, p := range c.compute {
		p.Release()
	}
	c.graphics = make(map[string]gapi.Pipeline)
	c.compute = make(map[string]gapi.Pipeline)
}

func graphicsKey(d gapi.GraphicsPipelineDesc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "vs=%d/fs=%d/vl=%v/cf=%v/df=%d/hdf=%t/dt=%t/bl=%t/topo=%d/db=%v/pd=%t",
		d.VertexShader, d.FragmentShader, d.VertexLayout, d.ColorFormats, d.DepthFormat,
		d.HasDepthFormat, d.DepthTestEnabled, d.BlendingEnabled, d.Topology, d.DescriptorBindings, d.UsePushDescriptors)
	return b.String()
}

func computeKey(d gapi.ComputePipelineDesc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cs=%d/db=%v/pd=%t", d.ComputeShader, d.DescriptorBindings, d.UsePushDescriptors)
	return b.String()
}
