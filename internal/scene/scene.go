// Package scene holds the fixed content the renderer draws each frame: a
// rotating model, a grid of instanced textured cubes, and a skybox, plus the
// optional post-process compute pass over the rendered image.
package scene

import (
	"log/slog"
	"time"
	"unsafe"

	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/asset"
	"github.com/vkngwrapper/scenedemo/internal/geom"
	"github.com/vkngwrapper/scenedemo/internal/lifetime"
	"github.com/vkngwrapper/scenedemo/internal/pipeline"
	"github.com/vkngwrapper/scenedemo/internal/resource"
)

const (
	uniformBinding = 0
	textureBinding = 1
	storageBinding = 0
)

type Options struct {
	// RenderPass is the pass every graphics pipeline is built against.
	RenderPass core1_0.RenderPass
	// DepthBounds enables the depth bounds test on the skybox pipeline.
	DepthBounds bool

	Model   asset.Model
	Texture asset.Pixels
	// Instances is the number of instanced cubes. Zero skips the draw.
	Instances int
	// Skybox faces in +X -X +Y -Y +Z -Z order. Nil skips the skybox.
	Skybox []asset.Pixels

	// Static keeps every transform at identity so vertex positions are
	// clip-space coordinates.
	Static bool
	// Transform replaces the identity of a static scene.
	Transform   *geom.UniformBufferObject
	DebugView   uint32
	PostProcess bool

	Budget *resource.Budget
}

// Draw is one indexed draw call.
type Draw struct {
	Name          string
	Pipeline      *pipeline.Pipeline
	Set           *resource.DescriptorSet
	Mesh          *resource.Mesh
	Instances     *resource.Buffer
	InstanceCount int
}

// PostProcess is a compute pass run over the off-screen target in the
// general layout.
type PostProcess struct {
	Pipeline *pipeline.Pipeline
	Set      *resource.DescriptorSet
}

type Scene struct {
	driver core1_0.DeviceDriver
	logger *slog.Logger
	owned  *lifetime.Stack

	pool        *resource.DescriptorPool
	uniforms    *resource.Buffer
	skyUniforms *resource.Buffer
	draws       []Draw
	post        *PostProcess

	// fixed is the constant transform of a static scene, nil when animated.
	fixed     *geom.UniformBufferObject
	debugView uint32
	start     time.Duration
}

func New(m *resource.Manager, b *pipeline.Builder, opts Options, logger *slog.Logger) (*Scene, error) {
	s := &Scene{
		driver:    m.Driver(),
		logger:    logger,
		owned:     lifetime.NewStack(logger),
		debugView: opts.DebugView,
		start:     hrtime.Now(),
	}

	if opts.Static {
		fixed := geom.Identity()
		if opts.Transform != nil {
			fixed = *opts.Transform
		}
		s.fixed = &fixed
	}

	err := s.build(m, b, opts)
	if err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *Scene) build(m *resource.Manager, b *pipeline.Builder, opts Options) error {
	setLayout, err := b.CreateDescriptorSetLayout("scene", []core1_0.DescriptorSetLayoutBinding{
		{
			Binding:         uniformBinding,
			DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,

			StageFlags: core1_0.StageVertex,
		},
		{
			Binding:         textureBinding,
			DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,

			StageFlags: core1_0.StageFragment,
		},
	})
	if err != nil {
		return err
	}

	s.pool, err = m.CreateDescriptorPool(opts.Budget)
	if err != nil {
		return err
	}
	s.owned.Push("descriptor pool", s.pool.Destroy)

	uboSize := int(unsafe.Sizeof(geom.UniformBufferObject{}))
	s.uniforms, err = m.CreateBuffer("scene uniforms", core1_0.BufferUsageUniformBuffer, uboSize, true)
	if err != nil {
		return err
	}
	s.owned.Push("scene uniforms", s.uniforms.Destroy)

	base := pipelineBase{
		builder:    b,
		setLayout:  setLayout,
		renderPass: opts.RenderPass,
	}

	err = s.addModel(m, base, opts)
	if err != nil {
		return err
	}

	if opts.Instances > 0 {
		err = s.addCubes(m, base, opts.Instances)
		if err != nil {
			return err
		}
	}

	if opts.Skybox != nil {
		err = s.addSkybox(m, base, opts)
		if err != nil {
			return err
		}
	}

	if opts.PostProcess {
		err = s.addPostProcess(b)
		if err != nil {
			return err
		}
	}

	return s.Update(core1_0.Extent2D{Width: 1, Height: 1})
}

type pipelineBase struct {
	builder    *pipeline.Builder
	setLayout  resource.SetLayout
	renderPass core1_0.RenderPass
}

func (p pipelineBase) create(name, vert, frag string, preset pipeline.Preset) (*pipeline.Pipeline, error) {
	return p.builder.CreateGraphicsPipeline(pipeline.GraphicsOptions{
		Name:           name,
		VertexShader:   vert,
		FragmentShader: frag,
		Preset:         preset,
		SetLayouts:     []resource.SetLayout{p.setLayout},
		PushConstants:  pipeline.PushConstantRange(core1_0.StageFragment),
		RenderPass:     p.renderPass,
	})
}

func (s *Scene) bindSet(layout resource.SetLayout, uniforms *resource.Buffer, texture *resource.Image) (*resource.DescriptorSet, error) {
	set, err := s.pool.Allocate(layout)
	if err != nil {
		return nil, err
	}

	err = s.pool.Update(set,
		resource.Write{Binding: uniformBinding, Buffer: uniforms},
		resource.Write{
			Binding:     textureBinding,
			Images:      []*resource.Image{texture},
			ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
		},
	)
	return set, err
}

func (s *Scene) addMesh(m *resource.Manager, name string, vertices []geom.Vertex, indices []uint32, texture *resource.Image) (*resource.Mesh, error) {
	vertexBytes, err := geom.Bytes(vertices)
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	mesh, err := m.CreateMesh(name, vertexBytes, indices, texture)
	if err != nil {
		texture.Destroy()
		return nil, err
	}
	s.owned.Push(name+" mesh", mesh.Destroy)
	return mesh, nil
}

func (s *Scene) addModel(m *resource.Manager, base pipelineBase, opts Options) error {
	opaque, err := base.create("opaque", "scene.vert.spv", "scene.frag.spv", pipeline.Opaque)
	if err != nil {
		return err
	}

	texture, err := m.CreateTexture("model texture", opts.Texture.Data, opts.Texture.Width, opts.Texture.Height)
	if err != nil {
		return err
	}

	mesh, err := s.addMesh(m, opts.Model.Name, opts.Model.Vertices, opts.Model.Indices, texture)
	if err != nil {
		return err
	}

	set, err := s.bindSet(base.setLayout, s.uniforms, mesh.Texture)
	if err != nil {
		return err
	}

	s.draws = append(s.draws, Draw{
		Name:          opts.Model.Name,
		Pipeline:      opaque,
		Set:           set,
		Mesh:          mesh,
		InstanceCount: 1,
	})
	return nil
}

func (s *Scene) addCubes(m *resource.Manager, base pipelineBase, count int) error {
	instanced, err := base.create("instanced", "instanced.vert.spv", "scene.frag.spv", pipeline.Instanced)
	if err != nil {
		return err
	}

	board := asset.Checkerboard(64, 8)
	texture, err := m.CreateTexture("cube texture", board.Data, board.Width, board.Height)
	if err != nil {
		return err
	}

	vertices, indices := geom.Cube(0.5)
	mesh, err := s.addMesh(m, "cube", vertices, indices, texture)
	if err != nil {
		return err
	}

	instanceBytes, err := geom.Bytes(geom.Grid(count, 1.5, 0.4))
	if err != nil {
		return err
	}
	instances, err := m.CreateDeviceBuffer("cube instances", core1_0.BufferUsageVertexBuffer, instanceBytes)
	if err != nil {
		return err
	}
	s.owned.Push("cube instances", instances.Destroy)

	set, err := s.bindSet(base.setLayout, s.uniforms, mesh.Texture)
	if err != nil {
		return err
	}

	s.draws = append(s.draws, Draw{
		Name:          "cubes",
		Pipeline:      instanced,
		Set:           set,
		Mesh:          mesh,
		Instances:     instances,
		InstanceCount: count,
	})
	return nil
}

func (s *Scene) addSkybox(m *resource.Manager, base pipelineBase, opts Options) error {
	preset := pipeline.Skybox
	if !opts.DepthBounds {
		preset = preset.WithoutDepthBounds()
	}
	sky, err := base.create("skybox", "skybox.vert.spv", "skybox.frag.spv", preset)
	if err != nil {
		return err
	}

	uboSize := int(unsafe.Sizeof(geom.UniformBufferObject{}))
	s.skyUniforms, err = m.CreateBuffer("skybox uniforms", core1_0.BufferUsageUniformBuffer, uboSize, true)
	if err != nil {
		return err
	}
	s.owned.Push("skybox uniforms", s.skyUniforms.Destroy)

	first := opts.Skybox[0]
	texture, err := m.CreateCubeTexture("skybox", asset.Layers(opts.Skybox), first.Width, first.Height)
	if err != nil {
		return err
	}

	vertices, indices := geom.Cube(1)
	mesh, err := s.addMesh(m, "skybox", vertices, indices, texture)
	if err != nil {
		return err
	}

	set, err := s.bindSet(base.setLayout, s.skyUniforms, mesh.Texture)
	if err != nil {
		return err
	}

	// Drawn last so the depth test discards it wherever geometry landed.
	s.draws = append(s.draws, Draw{
		Name:          "skybox",
		Pipeline:      sky,
		Set:           set,
		Mesh:          mesh,
		InstanceCount: 1,
	})
	return nil
}

func (s *Scene) addPostProcess(b *pipeline.Builder) error {
	compute, err := b.CreateComputePipeline(pipeline.ComputeOptions{
		Name:                "post",
		Shader:              "post.comp.spv",
		StorageImageBinding: storageBinding,
	})
	if err != nil {
		return err
	}

	set, err := s.pool.Allocate(compute.SetLayouts[0])
	if err != nil {
		return err
	}

	s.post = &PostProcess{Pipeline: compute, Set: set}
	return nil
}

// Post is the post-process pass, or nil when disabled.
func (s *Scene) Post() *PostProcess {
	return s.post
}

// BindTarget points the post-process pass at the off-screen target's view.
// It must be called again whenever the target is recreated.
func (s *Scene) BindTarget(view core1_0.ImageView) error {
	if s.post == nil {
		return nil
	}
	return s.pool.UpdateStorageImage(s.post.Set, storageBinding, view)
}

func (s *Scene) Draws() []Draw {
	return s.draws
}

func (s *Scene) elapsed() float32 {
	return float32((hrtime.Now() - s.start).Seconds())
}

// PushConstants is the per-frame push constant block.
func (s *Scene) PushConstants() geom.PushConstants {
	return geom.PushConstants{
		DebugView: s.debugView,
		Time:      s.elapsed(),
	}
}

// Update writes this frame's transforms into the mapped uniform buffers.
// It must only run once the previous frame's fence has signaled.
func (s *Scene) Update(extent core1_0.Extent2D) error {
	var ubo geom.UniformBufferObject
	if s.fixed != nil {
		ubo = *s.fixed
	} else {
		aspect := float32(extent.Width) / float32(max(extent.Height, 1))
		ubo = geom.Orbit(s.elapsed(), aspect)
	}

	data, err := geom.Bytes(ubo)
	if err != nil {
		return err
	}
	err = s.uniforms.Write(0, data)
	if err != nil {
		return err
	}

	if s.skyUniforms == nil {
		return nil
	}
	data, err = geom.Bytes(geom.SkyboxView(ubo))
	if err != nil {
		return err
	}
	return s.skyUniforms.Write(0, data)
}

// Destroy releases meshes, buffers and the descriptor pool. Pipelines and
// layouts belong to the builder.
func (s *Scene) Destroy() {
	s.owned.Release()
}
