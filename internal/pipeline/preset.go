package pipeline

import (
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Preset is the fixed-function state that varies between the scene's
// pipelines.
type Preset struct {
	CullMode     core1_0.CullModeFlags
	FrontFace    core1_0.FrontFace
	DepthCompare core1_0.CompareOp
	DepthWrite   bool
	// DepthBounds restricts drawing to fragments whose stored depth is
	// within [MinDepthBounds, MaxDepthBounds]. Needs the depthBounds device
	// feature.
	DepthBounds    bool
	MinDepthBounds float32
	MaxDepthBounds float32
	Instanced      bool
}

// Opaque is ordinary geometry: back faces culled, nearer fragments win.
var Opaque = Preset{
	CullMode:     core1_0.CullModeBack,
	FrontFace:    core1_0.FrontFaceCounterClockwise,
	DepthCompare: core1_0.CompareOpLess,
	DepthWrite:   true,
}

// Instanced is Opaque with a second, per-instance vertex binding.
var Instanced = Preset{
	CullMode:     core1_0.CullModeBack,
	FrontFace:    core1_0.FrontFaceCounterClockwise,
	DepthCompare: core1_0.CompareOpLess,
	DepthWrite:   true,
	Instanced:    true,
}

// Skybox draws the inside of a cube at the far plane, only where nothing
// else has been drawn.
var Skybox = Preset{
	CullMode:       core1_0.CullModeFront,
	FrontFace:      core1_0.FrontFaceCounterClockwise,
	DepthCompare:   core1_0.CompareOpEqual,
	DepthWrite:     false,
	DepthBounds:    true,
	MinDepthBounds: 1,
	MaxDepthBounds: 1,
}

func (p Preset) rasterization() *core1_0.PipelineRasterizationStateCreateInfo {
	return &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    p.CullMode,
		FrontFace:   p.FrontFace,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}
}

func (p Preset) depthStencil() *core1_0.PipelineDepthStencilStateCreateInfo {
	return &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:       true,
		DepthWriteEnable:      p.DepthWrite,
		DepthCompareOp:        p.DepthCompare,
		DepthBoundsTestEnable: p.DepthBounds,
		MinDepthBounds:        p.MinDepthBounds,
		MaxDepthBounds:        p.MaxDepthBounds,
	}
}

// WithoutDepthBounds is the fallback for devices lacking the depthBounds
// feature. Equal comparison alone still keeps the skybox at the far plane.
func (p Preset) WithoutDepthBounds() Preset {
	p.DepthBounds = false
	p.MinDepthBounds = 0
	p.MaxDepthBounds = 0
	return p
}

func dynamicState() *core1_0.PipelineDynamicStateCreateInfo {
	return &core1_0.PipelineDynamicStateCreateInfo{
		DynamicStates: []core1_0.DynamicState{
			core1_0.DynamicStateViewport,
			core1_0.DynamicStateScissor,
		},
	}
}

func colorBlend() *core1_0.PipelineColorBlendStateCreateInfo {
	return &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}
}
