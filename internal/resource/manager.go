// Package resource creates and owns the buffers, images, descriptors and
// command buffers the renderer feeds to its pipelines.
//
// Device-local data is uploaded through a transient staging buffer on a
// one-shot command buffer that is waited on before returning. That path
// blocks and is meant for load time only.
package resource

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/memory"
)

type Manager struct {
	driver    core1_0.DeviceDriver
	queue     core1_0.Queue
	allocator *memory.Allocator
	logger    *slog.Logger

	commandPool core1_0.CommandPool
	// maxAnisotropy is zero when anisotropic filtering is disabled.
	maxAnisotropy float32
}

type Options struct {
	QueueFamily   int
	MaxAnisotropy float32
}

func NewManager(driver core1_0.DeviceDriver, queue core1_0.Queue, allocator *memory.Allocator, opts Options, logger *slog.Logger) (*Manager, error) {
	pool, _, err := driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: opts.QueueFamily,
		Flags:            core1_0.CommandPoolCreateResetBuffer,
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create command pool")
	}

	return &Manager{
		driver:        driver,
		queue:         queue,
		allocator:     allocator,
		logger:        logger,
		commandPool:   pool,
		maxAnisotropy: opts.MaxAnisotropy,
	}, nil
}

func (m *Manager) Driver() core1_0.DeviceDriver {
	return m.driver
}

// AllocateCommandBuffer allocates a primary command buffer that can be reset
// and re-recorded every frame.
func (m *Manager) AllocateCommandBuffer() (core1_0.CommandBuffer, error) {
	buffers, _, err := m.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        m.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, gpuerr.Resource(err, "allocate command buffer")
	}
	return buffers[0], nil
}

func (m *Manager) FreeCommandBuffer(buffer core1_0.CommandBuffer) {
	if buffer.Initialized() {
		m.driver.FreeCommandBuffers(buffer)
	}
}

// OneShot records commands through record, submits them and blocks until
// the queue is idle.
func (m *Manager) OneShot(record func(core1_0.CommandBuffer) error) error {
	buffer, err := m.AllocateCommandBuffer()
	if err != nil {
		return err
	}
	defer m.driver.FreeCommandBuffers(buffer)

	_, err = m.driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "begin one-shot commands")
	}

	err = record(buffer)
	if err != nil {
		return err
	}

	_, err = m.driver.EndCommandBuffer(buffer)
	if err != nil {
		return errors.Wrap(err, "end one-shot commands")
	}

	_, err = m.driver.QueueSubmit(m.queue, nil, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{buffer},
	})
	if err != nil {
		return errors.Wrap(err, "submit one-shot commands")
	}

	_, err = m.driver.QueueWaitIdle(m.queue)
	return errors.Wrap(err, "wait for one-shot commands")
}

// Destroy releases the command pool and every command buffer allocated from
// it. Buffers, images and descriptor pools are owned by their callers.
func (m *Manager) Destroy() {
	if m.commandPool.Initialized() {
		m.driver.DestroyCommandPool(m.commandPool, nil)
		m.commandPool = core1_0.CommandPool{}
	}
}
