package device

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/lifetime"
	"github.com/vkngwrapper/scenedemo/internal/memory"
)

// RequiredExtensions are the device extensions every candidate must expose.
var RequiredExtensions = []string{
	khr_swapchain.ExtensionName,
}

// Surface is what device selection needs to know about the target surface.
type Surface interface {
	PresentSupport(physical core1_0.PhysicalDevice, family int) (bool, error)
	Adequate(physical core1_0.PhysicalDevice) (bool, error)
}

type Options struct {
	Policy    Policy
	BlockSize int
}

// Context is the selected GPU and everything created directly on it.
type Context struct {
	Instance *Instance
	Physical core1_0.PhysicalDevice
	Name     string
	// MaxAnisotropy is the device limit for sampler anisotropy.
	MaxAnisotropy float32

	// Granularity is bufferImageGranularity: the page size buffers and
	// optimally tiled images must not share.
	Granularity int

	Driver      core1_0.CoreDeviceDriver
	Queue       core1_0.Queue
	QueueFamily int
	Anisotropy  bool
	DepthBounds bool
	Allocator   *memory.Allocator

	logger *slog.Logger
	owned  *lifetime.Stack
}

// New selects a physical device, creates the logical device and its queue,
// then the allocator bound to them.
func New(inst *Instance, surface Surface, opts Options, logger *slog.Logger) (*Context, error) {
	ctx := &Context{
		Instance: inst,
		logger:   logger,
		owned:    lifetime.NewStack(logger),
	}

	candidate, err := ctx.selectDevice(surface, opts.Policy)
	if err != nil {
		return nil, err
	}

	err = ctx.createLogicalDevice(candidate)
	if err != nil {
		return nil, err
	}

	err = ctx.createAllocator(opts.BlockSize)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}

	return ctx, nil
}

func (c *Context) selectDevice(surface Surface, policy Policy) (Candidate, error) {
	physicalDevices, _, err := c.Instance.Driver.EnumeratePhysicalDevices()
	if err != nil {
		return Candidate{}, gpuerr.Initialization(err, "enumerate physical devices")
	}

	if len(policy.Required) == 0 {
		policy.Required = RequiredExtensions
	}

	var candidates []Candidate
	for i, physical := range physicalDevices {
		candidate, err := c.probe(i, physical, surface)
		if err != nil {
			return Candidate{}, err
		}
		c.logger.Debug("physical device",
			slog.Int("index", i),
			slog.String("name", candidate.Name),
			slog.Bool("suitable", policy.Suitable(candidate)))
		candidates = append(candidates, candidate)
	}

	chosen, err := Select(candidates, policy)
	if err != nil {
		return Candidate{}, err
	}

	c.Physical = chosen.Device
	c.Name = chosen.Name
	c.QueueFamily = chosen.QueueFamily
	c.Anisotropy = chosen.SamplerAnisotropy
	c.DepthBounds = chosen.DepthBounds
	c.logger.Info("physical device selected",
		slog.String("name", chosen.Name),
		slog.Any("type", chosen.Type),
		slog.Int("queue_family", chosen.QueueFamily))
	return chosen, nil
}

func (c *Context) probe(index int, physical core1_0.PhysicalDevice, surface Surface) (Candidate, error) {
	properties, err := c.Instance.Driver.GetPhysicalDeviceProperties(physical)
	if err != nil {
		return Candidate{}, gpuerr.Initialization(err, "query properties of device %d", index)
	}

	candidate := Candidate{
		Index:       index,
		Name:        properties.DriverName,
		Type:        properties.DriverType,
		Extensions:  map[string]bool{},
		QueueFamily: -1,
		Device:      physical,
	}

	extensions, _, err := c.Instance.Driver.EnumerateDeviceExtensionProperties(physical)
	if err != nil {
		return Candidate{}, gpuerr.Initialization(err, "enumerate extensions of %s", candidate.Name)
	}
	for name := range extensions {
		candidate.Extensions[name] = true
	}

	var flags []core1_0.QueueFlags
	for _, family := range c.Instance.Driver.GetPhysicalDeviceQueueFamilyProperties(physical) {
		flags = append(flags, family.QueueFlags)
	}
	family, err := FindQueueFamily(flags, func(family int) (bool, error) {
		return surface.PresentSupport(physical, family)
	})
	if err == nil {
		candidate.QueueFamily = family
	} else if !errors.Is(err, gpuerr.ErrNoSuitableQueueFamily) {
		return Candidate{}, err
	}

	if candidate.Extensions[khr_swapchain.ExtensionName] {
		candidate.SurfaceAdequate, err = surface.Adequate(physical)
		if err != nil {
			return Candidate{}, gpuerr.Initialization(err, "query surface support of %s", candidate.Name)
		}
	}

	features := c.Instance.Driver.GetPhysicalDeviceFeatures(physical)
	candidate.SamplerAnisotropy = features.SamplerAnisotropy
	candidate.DepthBounds = features.DepthBounds

	return candidate, nil
}

func (c *Context) createLogicalDevice(candidate Candidate) error {
	if candidate.QueueFamily < 0 {
		return gpuerr.ErrNoSuitableQueueFamily
	}

	extensionNames := append([]string(nil), RequiredExtensions...)

	// Makes the renderer usable on portability drivers such as MoltenVK.
	if candidate.Extensions[khr_portability_subset.ExtensionName] {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	createInfo := core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: candidate.QueueFamily,
				QueuePriorities:  []float32{1.0},
			},
		},
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: candidate.SamplerAnisotropy,
			DepthBounds:       candidate.DepthBounds,
		},
		EnabledExtensionNames: extensionNames,
	}
	var err error
	c.Driver, _, err = c.Instance.Driver.CreateDevice(c.Physical, nil, createInfo)
	if err != nil {
		return gpuerr.Initialization(err, "create logical device on %s", candidate.Name)
	}
	c.owned.Push("device", func() { c.Driver.DestroyDevice(nil) })

	c.Queue = c.Driver.GetQueue(candidate.QueueFamily, 0)

	properties, err := c.Instance.Driver.GetPhysicalDeviceProperties(c.Physical)
	if err != nil {
		c.Destroy()
		return gpuerr.Initialization(err, "query device limits")
	}
	c.MaxAnisotropy = properties.Limits.MaxSamplerAnisotropy
	c.Granularity = properties.Limits.BufferImageGranularity

	return nil
}

func (c *Context) createAllocator(blockSize int) error {
	memProperties := c.Instance.Driver.GetPhysicalDeviceMemoryProperties(c.Physical)
	if len(memProperties.MemoryTypes) == 0 {
		return errors.Wrap(gpuerr.ErrNoSuitableMemoryType, "device reports no memory types")
	}

	c.Allocator = memory.New(c.Driver, memProperties.MemoryTypes, blockSize, c.Granularity, c.logger)
	c.owned.Push("allocator", c.Allocator.Destroy)
	return nil
}

// FormatFeatures reports the optimal-tiling features of format.
func (c *Context) FormatFeatures(format core1_0.Format) core1_0.FormatFeatureFlags {
	props := c.Instance.Driver.GetPhysicalDeviceFormatProperties(c.Physical, format)
	return props.OptimalTilingFeatures
}

// Submit queues one command buffer. It waits on wait at the color output
// stage, signals signal, and signals fence when the work completes.
func (c *Context) Submit(commandBuffer core1_0.CommandBuffer, wait, signal core1_0.Semaphore, fence core1_0.Fence) error {
	submit := core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{commandBuffer},
	}
	if wait.Initialized() {
		submit.WaitSemaphores = []core1_0.Semaphore{wait}
		submit.WaitDstStageMask = []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput}
	}
	if signal.Initialized() {
		submit.SignalSemaphores = []core1_0.Semaphore{signal}
	}

	var fencePtr *core1_0.Fence
	if fence.Initialized() {
		fencePtr = &fence
	}

	_, err := c.Driver.QueueSubmit(c.Queue, fencePtr, submit)
	return errors.Wrap(err, "queue submit")
}

func (c *Context) WaitIdle() error {
	_, err := c.Driver.DeviceWaitIdle()
	return errors.Wrap(err, "wait for device idle")
}

// Destroy releases the allocator then the logical device.
func (c *Context) Destroy() {
	c.owned.Release()
}
