// Package shader loads precompiled SPIR-V and wraps it in shader modules.
package shader

import (
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

//go:generate glslc ../../shaders/scene.vert -o ../../shaders/scene.vert.spv
//go:generate glslc ../../shaders/instanced.vert -o ../../shaders/instanced.vert.spv
//go:generate glslc ../../shaders/scene.frag -o ../../shaders/scene.frag.spv
//go:generate glslc ../../shaders/skybox.vert -o ../../shaders/skybox.vert.spv
//go:generate glslc ../../shaders/skybox.frag -o ../../shaders/skybox.frag.spv
//go:generate glslc ../../shaders/post.comp -o ../../shaders/post.comp.spv

// EntryPoint is the entry point every stage is compiled with.
const EntryPoint = "main"

const spirvMagic = 0x07230203

// Bytecode reinterprets little-endian SPIR-V bytes as words.
func Bytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = uint32(b[byteIndex]) |
			uint32(b[byteIndex+1])<<8 |
			uint32(b[byteIndex+2])<<16 |
			uint32(b[byteIndex+3])<<24
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic %#x", byteCode[0])
	}
	return byteCode, nil
}

// Load reads and validates the SPIR-V file name from fsys.
func Load(fsys fs.FS, name string) ([]uint32, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", name)
	}

	code, err := Bytecode(b)
	return code, errors.Wrapf(err, "shader %s", name)
}

// Module is a shader module for one pipeline stage.
type Module struct {
	Handle core1_0.ShaderModule
	Stage  core1_0.ShaderStageFlags
	Name   string

	driver core1_0.DeviceDriver
}

func Create(driver core1_0.DeviceDriver, fsys fs.FS, name string, stage core1_0.ShaderStageFlags) (*Module, error) {
	code, err := Load(fsys, name)
	if err != nil {
		return nil, gpuerr.Resource(err, "load shader")
	}

	handle, _, err := driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create shader module %s", name)
	}

	return &Module{
		Handle: handle,
		Stage:  stage,
		Name:   name,
		driver: driver,
	}, nil
}

func (m *Module) StageInfo() core1_0.PipelineShaderStageCreateInfo {
	return core1_0.PipelineShaderStageCreateInfo{
		Stage:  m.Stage,
		Module: m.Handle,
		Name:   EntryPoint,
	}
}

// Destroy releases the module. Pipelines built from it stay valid.
func (m *Module) Destroy() {
	if m.Handle.Initialized() {
		m.driver.DestroyShaderModule(m.Handle, nil)
		m.Handle = core1_0.ShaderModule{}
	}
}
