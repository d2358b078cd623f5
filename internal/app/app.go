// Package app builds every renderer component in dependency order, runs the
// frame loop, and tears everything down in reverse.
package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/config"
	"github.com/vkngwrapper/scenedemo/internal/device"
	"github.com/vkngwrapper/scenedemo/internal/frame"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/lifetime"
	"github.com/vkngwrapper/scenedemo/internal/pipeline"
	"github.com/vkngwrapper/scenedemo/internal/present"
	"github.com/vkngwrapper/scenedemo/internal/resource"
	"github.com/vkngwrapper/scenedemo/internal/scene"
	"github.com/vkngwrapper/scenedemo/internal/window"
)

// PostProcessFormat is the off-screen target format when the compute pass
// is enabled. sRGB formats cannot be storage images on most hardware.
const PostProcessFormat = core1_0.FormatR8G8B8A8UnsignedNormalized

type Options struct {
	Config  config.Config
	Content Content
	// Prompt input and output for interactive GPU selection.
	In  io.Reader
	Out io.Writer
}

type App struct {
	cfg    config.Config
	logger *slog.Logger
	owned  *lifetime.Stack

	window    *window.Window
	instance  *device.Instance
	surface   *present.Surface
	device    *device.Context
	swapchain *present.Swapchain
	resources *resource.Manager
	builder   *pipeline.Builder
	scene     *scene.Scene
	sync      *resource.FrameSync
	loop      *frame.Loop
}

func New(opts Options, logger *slog.Logger) (*App, error) {
	a := &App{
		cfg:    opts.Config,
		logger: logger,
		owned:  lifetime.NewStack(logger),
	}

	err := a.init(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(opts Options) error {
	cfg := a.cfg

	var err error
	a.window, err = window.New(cfg.Window, a.logger)
	if err != nil {
		return err
	}
	a.owned.Push("window", a.window.Destroy)

	global, err := a.window.GlobalDriver()
	if err != nil {
		return err
	}

	a.instance, err = device.NewInstance(global, device.InstanceOptions{
		ApplicationName:  cfg.Window.Title,
		WindowExtensions: a.window.InstanceExtensions(),
		Validation:       cfg.Validation,
	}, a.logger)
	if err != nil {
		return err
	}
	a.owned.Push("instance", a.instance.Destroy)

	a.surface, err = present.CreateSurface(a.instance, a.window)
	if err != nil {
		return err
	}
	a.owned.Push("surface", a.surface.Destroy)

	a.device, err = device.New(a.instance, a.surface, device.Options{
		Policy:    Policy(cfg.GPU, opts.In, opts.Out),
		BlockSize: cfg.Memory.BlockSize,
	}, a.logger)
	if err != nil {
		return err
	}
	a.owned.Push("device", a.device.Destroy)

	err = a.createSwapchain()
	if err != nil {
		return err
	}

	var maxAnisotropy float32
	if a.device.Anisotropy {
		maxAnisotropy = a.device.MaxAnisotropy
	}
	a.resources, err = resource.NewManager(a.device.Driver, a.device.Queue, a.device.Allocator, resource.Options{
		QueueFamily:   a.device.QueueFamily,
		MaxAnisotropy: maxAnisotropy,
	}, a.logger)
	if err != nil {
		return err
	}
	a.owned.Push("resource manager", a.resources.Destroy)

	a.builder = pipeline.NewBuilder(a.device.Driver, os.DirFS(cfg.Assets.ShaderDir), a.logger)
	a.owned.Push("pipelines", a.builder.Destroy)

	err = a.createScene(opts.Content.withDefaults())
	if err != nil {
		return err
	}

	return a.createLoop()
}

func (a *App) createSwapchain() error {
	swapchainOpts := present.Options{
		PreferMailbox:      a.cfg.Swapchain.PreferMailbox,
		MinImageCountExtra: a.cfg.Swapchain.MinImageCountExtra,
		TargetWidth:        a.cfg.Render.OffscreenWidth,
		TargetHeight:       a.cfg.Render.OffscreenHeight,
	}
	if a.cfg.Render.PostProcess {
		if a.device.FormatFeatures(PostProcessFormat)&core1_0.FormatFeatureStorageImage == 0 {
			return errors.Wrapf(gpuerr.ErrInitialization, "format %v cannot be a storage image", PostProcessFormat)
		}
		swapchainOpts.TargetFormat = PostProcessFormat
		swapchainOpts.TargetUsage = core1_0.ImageUsageStorage
	}

	var err error
	a.swapchain, err = present.NewSwapchain(a.device, a.surface, swapchainOpts, a.logger)
	if err != nil {
		return err
	}
	a.owned.Push("swapchain", a.swapchain.Destroy)
	return nil
}

func (a *App) createScene(content Content) error {
	d := a.cfg.Descriptors
	budget := resource.NewBudget(d.MaxSets, map[core1_0.DescriptorType]int{
		core1_0.DescriptorTypeUniformBuffer:        d.UniformBuffers,
		core1_0.DescriptorTypeCombinedImageSampler: d.CombinedImageSamplers,
		core1_0.DescriptorTypeStorageImage:         d.StorageImages,
	})

	instances := a.cfg.Render.Instances
	if content.Static {
		instances = 0
	}

	var err error
	a.scene, err = scene.New(a.resources, a.builder, scene.Options{
		RenderPass:  a.swapchain.RenderPass,
		DepthBounds: a.device.DepthBounds,
		Model:       content.Model,
		Texture:     content.Texture,
		Instances:   instances,
		Skybox:      content.Skybox,
		Static:      content.Static,
		Transform:   content.Transform,
		DebugView:   a.cfg.Render.DebugView,
		PostProcess: a.cfg.Render.PostProcess,
		Budget:      budget,
	}, a.logger)
	if err != nil {
		return err
	}
	a.owned.Push("scene", a.scene.Destroy)

	return a.scene.BindTarget(a.swapchain.Target.View)
}

func (a *App) createLoop() error {
	var err error
	a.sync, err = a.resources.NewFrameSync()
	if err != nil {
		return err
	}
	a.owned.Push("frame sync", a.sync.Destroy)

	commandBuffer, err := a.resources.AllocateCommandBuffer()
	if err != nil {
		return err
	}
	a.owned.Push("frame command buffer", func() {
		a.resources.FreeCommandBuffer(commandBuffer)
	})

	recorder := frame.NewCommandRecorder(a.device.Driver, a.swapchain, a.scene, commandBuffer)
	a.loop = frame.NewLoop(a.swapchain, a.sync, recorder, a.device, a.logger)
	a.loop.OnRebuild = func() error {
		return a.scene.BindTarget(a.swapchain.Target.View)
	}

	period, err := a.cfg.StatsPeriod()
	if err != nil {
		return err
	}
	if period > 0 {
		a.loop.Stats = frame.NewStats(period)
	}

	a.window.SetResizeCallback(a.loop.NotifyResize)
	return nil
}

// Run draws frames until the window is closed. Drawing pauses while the
// window is minimized.
func (a *App) Run() error {
	for a.window.PollEvents() {
		width, height := a.window.FramebufferSize()
		if width == 0 || height == 0 {
			a.window.WaitEvents()
			continue
		}

		err := a.loop.DrawFrame()
		if err != nil {
			return err
		}
	}

	return a.device.WaitIdle()
}

// DrawFrame draws a single frame.
func (a *App) DrawFrame() error {
	return a.loop.DrawFrame()
}

// ReadTarget waits for the device to go idle and copies the off-screen
// target of the last frame into host memory as tightly packed 4-byte pixels.
func (a *App) ReadTarget() ([]byte, present.Attachment, error) {
	err := a.device.WaitIdle()
	if err != nil {
		return nil, present.Attachment{}, err
	}

	target := *a.swapchain.Target
	pixels, err := a.resources.ReadImage(target.Image, target.Extent.Width, target.Extent.Height, core1_0.ImageLayoutTransferSrcOptimal)
	return pixels, target, err
}

// Close waits for the device and releases everything in reverse creation
// order. Safe to call more than once.
func (a *App) Close() {
	if a.device != nil {
		err := a.device.WaitIdle()
		if err != nil {
			a.logger.Warn("wait for device idle before teardown", slog.Any("error", err))
		}
	}
	a.owned.Release()
}
