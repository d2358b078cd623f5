package present

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/scenedemo/internal/device"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/lifetime"
	"github.com/vkngwrapper/scenedemo/internal/memory"
)

type Options struct {
	PreferMailbox      bool
	MinImageCountExtra int
	// TargetWidth and TargetHeight fix the off-screen target size. Zero
	// follows the swapchain extent.
	TargetWidth  int
	TargetHeight int
	// TargetFormat overrides the off-screen target format. Zero uses the
	// swapchain format.
	TargetFormat core1_0.Format
	// TargetUsage is added to the target's color attachment and transfer
	// source usage.
	TargetUsage core1_0.ImageUsageFlags
}

// Attachment is a device-local image with a single view.
type Attachment struct {
	Image  core1_0.Image
	View   core1_0.ImageView
	Format core1_0.Format
	Extent core1_0.Extent2D
	alloc  *memory.Allocation
}

// Swapchain owns every object whose lifetime follows the swapchain, plus the
// render pass that draws into its off-screen target.
type Swapchain struct {
	driver    core1_0.DeviceDriver
	queue     core1_0.Queue
	physical  core1_0.PhysicalDevice
	allocator *memory.Allocator
	waitIdle  func() error
	surface   *Surface
	extension khr_swapchain.ExtensionDriver
	opts      Options
	logger    *slog.Logger

	handle      khr_swapchain.Swapchain
	Images      []core1_0.Image
	Views       []core1_0.ImageView
	Format      core1_0.Format
	ColorSpace  khr_surface.ColorSpace
	Extent      core1_0.Extent2D
	PresentMode khr_surface.PresentMode

	Target      *Attachment
	Depth       *Attachment
	DepthFormat core1_0.Format

	// RenderPass is created once against the target and depth formats and
	// outlives rebuilds. Framebuffer binds it to the current attachments.
	RenderPass   core1_0.RenderPass
	Framebuffer  core1_0.Framebuffer
	targetFormat core1_0.Format

	owned    *lifetime.Stack
	passes   *lifetime.Stack
	rebuilds int
}

func NewSwapchain(ctx *device.Context, surface *Surface, opts Options, logger *slog.Logger) (*Swapchain, error) {
	depthFormat, err := ChooseDepthFormat(ctx.FormatFeatures)
	if err != nil {
		return nil, err
	}

	s := &Swapchain{
		driver:      ctx.Driver,
		queue:       ctx.Queue,
		physical:    ctx.Physical,
		allocator:   ctx.Allocator,
		waitIdle:    ctx.WaitIdle,
		surface:     surface,
		extension:   khr_swapchain.CreateExtensionDriverFromCoreDriver(ctx.Driver),
		opts:        opts,
		logger:      logger,
		DepthFormat: depthFormat,
		owned:       lifetime.NewStack(logger),
		passes:      lifetime.NewStack(logger),
	}

	err = s.create()
	if err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

// TargetFormat is the format pipelines render into. It is fixed by the first
// swapchain so the render pass stays compatible across rebuilds.
func (s *Swapchain) TargetFormat() core1_0.Format {
	return s.targetFormat
}

func (s *Swapchain) Rebuilds() int {
	return s.rebuilds
}

func (s *Swapchain) create() error {
	err := s.createSwapchain()
	if err != nil {
		return err
	}

	err = s.createImageViews()
	if err != nil {
		return err
	}

	err = s.createTarget()
	if err != nil {
		return err
	}

	err = s.createDepth()
	if err != nil {
		return err
	}

	if !s.RenderPass.Initialized() {
		err = s.createRenderPass()
		if err != nil {
			return err
		}
	}

	return s.createFramebuffer()
}

func (s *Swapchain) createSwapchain() error {
	support, err := s.surface.Support(s.physical)
	if err != nil {
		return gpuerr.Resource(err, "query surface support")
	}
	if len(support.Formats) == 0 {
		return errors.Mark(errors.New("surface reports no formats"), gpuerr.ErrResourceCreation)
	}

	surfaceFormat := ChooseSurfaceFormat(support.Formats)
	presentMode := ChoosePresentMode(support.PresentModes, s.opts.PreferMailbox)
	width, height := s.surface.Window.FramebufferSize()
	extent := ChooseExtent(support.Capabilities, width, height)
	imageCount := ImageCount(support.Capabilities, s.opts.MinImageCountExtra)

	swapchain, _, err := s.extension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: s.surface.Handle,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment | core1_0.ImageUsageTransferDst,

		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return gpuerr.Resource(err, "create swapchain")
	}
	s.handle = swapchain
	s.owned.Push("swapchain", func() {
		s.extension.DestroySwapchain(s.handle, nil)
		s.handle = khr_swapchain.Swapchain{}
	})

	s.Format = surfaceFormat.Format
	if s.targetFormat == 0 {
		s.targetFormat = s.opts.TargetFormat
		if s.targetFormat == 0 {
			s.targetFormat = s.Format
		}
	}
	s.ColorSpace = surfaceFormat.ColorSpace
	s.Extent = extent
	s.PresentMode = presentMode

	s.logger.Info("swapchain created",
		slog.Int("width", extent.Width),
		slog.Int("height", extent.Height),
		slog.Int("min_images", imageCount),
		slog.Any("format", surfaceFormat.Format),
		slog.Any("present_mode", presentMode))
	return nil
}

func (s *Swapchain) createImageViews() error {
	images, _, err := s.extension.GetSwapchainImages(s.handle)
	if err != nil {
		return gpuerr.Resource(err, "get swapchain images")
	}
	s.Images = images

	s.owned.Push("swapchain image views", func() {
		for _, view := range s.Views {
			s.driver.DestroyImageView(view, nil)
		}
		s.Views = nil
		s.Images = nil
	})

	for i, image := range images {
		view, _, err := s.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   s.Format,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return gpuerr.Resource(err, "create view for swapchain image %d", i)
		}
		s.Views = append(s.Views, view)
	}
	return nil
}

func (s *Swapchain) targetExtent() core1_0.Extent2D {
	if s.opts.TargetWidth > 0 && s.opts.TargetHeight > 0 {
		return core1_0.Extent2D{Width: s.opts.TargetWidth, Height: s.opts.TargetHeight}
	}
	return s.Extent
}

func (s *Swapchain) createTarget() error {
	target, err := s.createAttachment("offscreen target",
		s.TargetFormat(),
		s.targetExtent(),
		core1_0.ImageUsageColorAttachment|core1_0.ImageUsageTransferSrc|s.opts.TargetUsage,
		core1_0.ImageAspectColor)
	if err != nil {
		return err
	}
	s.Target = target
	return nil
}

func (s *Swapchain) createDepth() error {
	depth, err := s.createAttachment("depth buffer",
		s.DepthFormat,
		s.targetExtent(),
		core1_0.ImageUsageDepthStencilAttachment,
		core1_0.ImageAspectDepth)
	if err != nil {
		return err
	}
	s.Depth = depth
	return nil
}

func (s *Swapchain) createAttachment(name string, format core1_0.Format, extent core1_0.Extent2D, usage core1_0.ImageUsageFlags, aspect core1_0.ImageAspectFlags) (*Attachment, error) {
	image, _, err := s.driver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create %s", name)
	}

	attachment := &Attachment{
		Image:  image,
		Format: format,
		Extent: extent,
	}
	s.owned.Push(name, func() {
		if attachment.View.Initialized() {
			s.driver.DestroyImageView(attachment.View, nil)
		}
		s.driver.DestroyImage(attachment.Image, nil)
		s.allocator.Free(attachment.alloc)
	})

	attachment.alloc, err = s.allocator.BindImage(name, image, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	attachment.View, _, err = s.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create view for %s", name)
	}
	return attachment, nil
}

// createRenderPass declares one subpass over the target and depth buffer.
// Both attachments enter and leave the pass in their attachment layouts; the
// frame recorder performs every other transition with explicit barriers.
func (s *Swapchain) createRenderPass() error {
	renderPass, _, err := s.driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         s.targetFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutColorAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
			{
				Format:         s.DepthFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	if err != nil {
		return gpuerr.Resource(err, "create render pass")
	}
	s.RenderPass = renderPass
	s.passes.Push("render pass", func() {
		s.driver.DestroyRenderPass(s.RenderPass, nil)
		s.RenderPass = core1_0.RenderPass{}
	})
	return nil
}

func (s *Swapchain) createFramebuffer() error {
	extent := s.Target.Extent
	framebuffer, _, err := s.driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass: s.RenderPass,
		Layers:     1,
		Attachments: []core1_0.ImageView{
			s.Target.View,
			s.Depth.View,
		},
		Width:  extent.Width,
		Height: extent.Height,
	})
	if err != nil {
		return gpuerr.Resource(err, "create framebuffer")
	}
	s.Framebuffer = framebuffer
	s.owned.Push("framebuffer", func() {
		s.driver.DestroyFramebuffer(s.Framebuffer, nil)
		s.Framebuffer = core1_0.Framebuffer{}
	})
	return nil
}

// Acquire requests the next presentable image, signalling signal when the
// presentation engine releases it. An out-of-date surface is reported as
// gpuerr.ErrSurfaceOutOfDate.
func (s *Swapchain) Acquire(signal core1_0.Semaphore) (int, error) {
	imageIndex, res, err := s.extension.AcquireNextImage(s.handle, common.NoTimeout, &signal, nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return 0, gpuerr.ErrSurfaceOutOfDate
	} else if err != nil {
		return 0, errors.Wrap(err, "acquire swapchain image")
	}
	return imageIndex, nil
}

// Present queues imageIndex for display once wait is signalled. Out-of-date
// and suboptimal results are reported as transient presentation errors.
func (s *Swapchain) Present(wait core1_0.Semaphore, imageIndex int) error {
	res, err := s.extension.QueuePresent(s.queue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait},
		Swapchains:     []khr_swapchain.Swapchain{s.handle},
		ImageIndices:   []int{imageIndex},
	})
	switch {
	case res == khr_swapchain.VKErrorOutOfDate:
		return gpuerr.ErrSurfaceOutOfDate
	case res == khr_swapchain.VKSuboptimal:
		return gpuerr.ErrSurfaceSuboptimal
	case err != nil:
		return errors.Wrap(err, "present swapchain image")
	}
	return nil
}

// Rebuild waits for the device to go idle, blocks until the window has a
// drawable area, then releases every swapchain-sized object in reverse
// creation order (framebuffer, depth, target, views, swapchain) and creates
// them again. If the window closes while waiting nothing is released and
// gpuerr.ErrWindowClosed is returned.
func (s *Swapchain) Rebuild() error {
	err := s.waitIdle()
	if err != nil {
		return err
	}

	for {
		width, height := s.surface.Window.FramebufferSize()
		if width > 0 && height > 0 {
			break
		}
		if s.surface.Window.ShouldClose() {
			return gpuerr.ErrWindowClosed
		}
		s.surface.Window.WaitEvents()
	}

	s.owned.Release()

	err = s.create()
	if err != nil {
		return errors.Wrap(err, "rebuild swapchain")
	}

	s.rebuilds++
	s.logger.Info("swapchain rebuilt", slog.Int("rebuilds", s.rebuilds))
	return nil
}

// Destroy releases every swapchain-sized object, then the render pass. Safe
// to call more than once.
func (s *Swapchain) Destroy() {
	s.owned.Release()
	s.passes.Release()
}
