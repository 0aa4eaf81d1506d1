package webgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

// Shader wraps a compiled wgpu.ShaderModule. The core hands the backend
// raw bytecode; for this backend that bytecode is WGSL source text, the
// same way gpu_operations.go's createRenderPipeline compiles shaderCode
// via a ShaderModuleWGSLDescriptor.
type Shader struct {
	module *wgpu.ShaderModule
	stage  gapi.ShaderStage
	entry  string
}

func (s *Shader) Stage() gapi.ShaderStage { return s.stage }
func (s *Shader) Entrypoint() string      { return s.entry }

func (d *Device) CreateShader(stage gapi.ShaderStage, entrypoint string, bytecode []byte) (gapi.Shader, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          entrypoint,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(bytecode)},
	})
	if err != nil {
		return nil, gapi.NewError(gapi.InvalidShaderStage, "CreateShader", err)
	}
	return &Shader{module: module, stage: stage, entry: entrypoint}, nil
}

func shaderOf(s gapi.Shader) (*Shader, error) {
	ws, ok := s.(*Shader)
	if !ok {
		return nil, fmt.Errorf("webgpubackend: foreign gapi.Shader %T", s)
	}
	return ws, nil
}
