// Package pipeline builds descriptor set layouts, pipeline layouts and the
// graphics and compute pipelines of the scene.
//
// Graphics pipelines target subpass 0 of the swapchain's render pass.
// Viewport and scissor are dynamic and set per frame.
package pipeline

import (
	"io/fs"
	"log/slog"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/geom"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/lifetime"
	"github.com/vkngwrapper/scenedemo/internal/resource"
	"github.com/vkngwrapper/scenedemo/internal/shader"
)

// Pipeline is an immutable pipeline with the layout it was created against.
type Pipeline struct {
	Name       string
	Handle     core1_0.Pipeline
	Layout     core1_0.PipelineLayout
	BindPoint  core1_0.PipelineBindPoint
	SetLayouts []resource.SetLayout
	// PushConstants is the single push constant range, or zero size.
	PushConstants core1_0.PushConstantRange
}

// Builder owns every layout and pipeline it creates.
type Builder struct {
	driver  core1_0.DeviceDriver
	shaders fs.FS
	logger  *slog.Logger
	owned   *lifetime.Stack
}

func NewBuilder(driver core1_0.DeviceDriver, shaders fs.FS, logger *slog.Logger) *Builder {
	return &Builder{
		driver:  driver,
		shaders: shaders,
		logger:  logger,
		owned:   lifetime.NewStack(logger),
	}
}

// CreateDescriptorSetLayout declares the bindings of one set. The returned
// layout carries the bindings so allocations and writes can be checked
// against them.
func (b *Builder) CreateDescriptorSetLayout(name string, bindings []core1_0.DescriptorSetLayoutBinding) (resource.SetLayout, error) {
	handle, _, err := b.driver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: bindings,
	})
	if err != nil {
		return resource.SetLayout{}, gpuerr.Resource(err, "create descriptor set layout %s", name)
	}
	b.owned.Push(name+" set layout", func() {
		b.driver.DestroyDescriptorSetLayout(handle, nil)
	})

	return resource.SetLayout{
		Handle:   handle,
		Bindings: append([]core1_0.DescriptorSetLayoutBinding(nil), bindings...),
	}, nil
}

// PushConstantRange is the range covering geom.PushConstants for stages.
func PushConstantRange(stages core1_0.ShaderStageFlags) core1_0.PushConstantRange {
	return core1_0.PushConstantRange{
		StageFlags: stages,
		Offset:     0,
		Size:       16,
	}
}

func (b *Builder) createLayout(name string, setLayouts []resource.SetLayout, pushConstants core1_0.PushConstantRange) (core1_0.PipelineLayout, error) {
	createInfo := core1_0.PipelineLayoutCreateInfo{}
	for _, setLayout := range setLayouts {
		createInfo.SetLayouts = append(createInfo.SetLayouts, setLayout.Handle)
	}
	if pushConstants.Size > 0 {
		createInfo.PushConstantRanges = []core1_0.PushConstantRange{pushConstants}
	}

	layout, _, err := b.driver.CreatePipelineLayout(nil, createInfo)
	if err != nil {
		return core1_0.PipelineLayout{}, gpuerr.Resource(err, "create pipeline layout for %s", name)
	}
	b.owned.Push(name+" pipeline layout", func() {
		b.driver.DestroyPipelineLayout(layout, nil)
	})
	return layout, nil
}

type GraphicsOptions struct {
	Name           string
	VertexShader   string
	FragmentShader string
	Preset         Preset
	SetLayouts     []resource.SetLayout
	PushConstants  core1_0.PushConstantRange
	// RenderPass is the pass the pipeline draws in. Only its attachment
	// formats matter, so any compatible pass may be used at draw time.
	RenderPass core1_0.RenderPass
}

func (b *Builder) CreateGraphicsPipeline(opts GraphicsOptions) (*Pipeline, error) {
	vertShader, err := shader.Create(b.driver, b.shaders, opts.VertexShader, core1_0.StageVertex)
	if err != nil {
		return nil, err
	}
	defer vertShader.Destroy()

	fragShader, err := shader.Create(b.driver, b.shaders, opts.FragmentShader, core1_0.StageFragment)
	if err != nil {
		return nil, err
	}
	defer fragShader.Destroy()

	layout, err := b.createLayout(opts.Name, opts.SetLayouts, opts.PushConstants)
	if err != nil {
		return nil, err
	}

	createInfo := core1_0.GraphicsPipelineCreateInfo{
		Stages: []core1_0.PipelineShaderStageCreateInfo{
			vertShader.StageInfo(),
			fragShader.StageInfo(),
		},
		VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
			VertexBindingDescriptions:   geom.VertexBindings(opts.Preset.Instanced),
			VertexAttributeDescriptions: geom.VertexAttributes(opts.Preset.Instanced),
		},
		InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
			Topology:               core1_0.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: false,
		},
		// Only the counts matter; both are set per frame.
		ViewportState: &core1_0.PipelineViewportStateCreateInfo{
			Viewports: []core1_0.Viewport{{}},
			Scissors:  []core1_0.Rect2D{{}},
		},
		RasterizationState: opts.Preset.rasterization(),
		MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
			SampleShadingEnable:  false,
			RasterizationSamples: core1_0.Samples1,
			MinSampleShading:     1.0,
		},
		DepthStencilState: opts.Preset.depthStencil(),
		ColorBlendState:   colorBlend(),
		DynamicState:      dynamicState(),
		Layout:            layout,
		RenderPass:        opts.RenderPass,
		Subpass:           0,
		BasePipelineIndex: -1,
	}

	pipelines, _, err := b.driver.CreateGraphicsPipelines(nil, nil, createInfo)
	if err != nil {
		return nil, gpuerr.Resource(err, "create graphics pipeline %s", opts.Name)
	}
	handle := pipelines[0]
	b.owned.Push(opts.Name+" pipeline", func() {
		b.driver.DestroyPipeline(handle, nil)
	})

	b.logger.Debug("graphics pipeline created", slog.String("name", opts.Name))
	return &Pipeline{
		Name:          opts.Name,
		Handle:        handle,
		Layout:        layout,
		BindPoint:     core1_0.PipelineBindPointGraphics,
		SetLayouts:    opts.SetLayouts,
		PushConstants: opts.PushConstants,
	}, nil
}

type ComputeOptions struct {
	Name   string
	Shader string
	// StorageImageBinding is the binding of the single storage image.
	StorageImageBinding int
}

// CreateComputePipeline builds a compute pipeline over one storage image
// with a push constant range for the compute stage.
func (b *Builder) CreateComputePipeline(opts ComputeOptions) (*Pipeline, error) {
	setLayout, err := b.CreateDescriptorSetLayout(opts.Name, []core1_0.DescriptorSetLayoutBinding{
		{
			Binding:         opts.StorageImageBinding,
			DescriptorType:  core1_0.DescriptorTypeStorageImage,
			DescriptorCount: 1,

			StageFlags: core1_0.StageCompute,
		},
	})
	if err != nil {
		return nil, err
	}

	compShader, err := shader.Create(b.driver, b.shaders, opts.Shader, core1_0.StageCompute)
	if err != nil {
		return nil, err
	}
	defer compShader.Destroy()

	pushConstants := PushConstantRange(core1_0.StageCompute)
	layout, err := b.createLayout(opts.Name, []resource.SetLayout{setLayout}, pushConstants)
	if err != nil {
		return nil, err
	}

	pipelines, _, err := b.driver.CreateComputePipelines(nil, nil, core1_0.ComputePipelineCreateInfo{
		Stage:             compShader.StageInfo(),
		Layout:            layout,
		BasePipelineIndex: -1,
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create compute pipeline %s", opts.Name)
	}
	handle := pipelines[0]
	b.owned.Push(opts.Name+" pipeline", func() {
		b.driver.DestroyPipeline(handle, nil)
	})

	b.logger.Debug("compute pipeline created", slog.String("name", opts.Name))
	return &Pipeline{
		Name:          opts.Name,
		Handle:        handle,
		Layout:        layout,
		BindPoint:     core1_0.PipelineBindPointCompute,
		SetLayouts:    []resource.SetLayout{setLayout},
		PushConstants: pushConstants,
	}, nil
}

// Destroy releases every pipeline and layout in reverse creation order.
func (b *Builder) Destroy() {
	b.owned.Release()
}
