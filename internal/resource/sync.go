package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

// FrameSync is the synchronization for the single frame in flight: a fence
// the CPU waits on before reusing the frame's command buffer, and the two
// semaphores that order acquire, render and present on the GPU.
type FrameSync struct {
	driver core1_0.DeviceDriver

	fence          core1_0.Fence
	imageAvailable core1_0.Semaphore
	renderFinished core1_0.Semaphore
}

// NewFrameSync creates the fence already signaled so the first frame does
// not block.
func (m *Manager) NewFrameSync() (*FrameSync, error) {
	s := &FrameSync{driver: m.driver}

	var err error
	s.fence, _, err = m.driver.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: core1_0.FenceCreateSignaled,
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create in-flight fence")
	}

	err = s.createSemaphores()
	if err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *FrameSync) createSemaphores() error {
	var err error
	s.imageAvailable, _, err = s.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return gpuerr.Resource(err, "create image available semaphore")
	}

	s.renderFinished, _, err = s.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return gpuerr.Resource(err, "create render finished semaphore")
}

func (s *FrameSync) destroySemaphores() {
	if s.imageAvailable.Initialized() {
		s.driver.DestroySemaphore(s.imageAvailable, nil)
		s.imageAvailable = core1_0.Semaphore{}
	}
	if s.renderFinished.Initialized() {
		s.driver.DestroySemaphore(s.renderFinished, nil)
		s.renderFinished = core1_0.Semaphore{}
	}
}

// Wait blocks until the previous submission guarded by the fence completes.
func (s *FrameSync) Wait() error {
	_, err := s.driver.WaitForFences(true, common.NoTimeout, s.fence)
	return errors.Wrap(err, "wait for in-flight fence")
}

func (s *FrameSync) Reset() error {
	_, err := s.driver.ResetFences(s.fence)
	return errors.Wrap(err, "reset in-flight fence")
}

func (s *FrameSync) Fence() core1_0.Fence {
	return s.fence
}

func (s *FrameSync) ImageAvailable() core1_0.Semaphore {
	return s.imageAvailable
}

func (s *FrameSync) RenderFinished() core1_0.Semaphore {
	return s.renderFinished
}

// Renew replaces both semaphores. A failed acquire can leave the image
// available semaphore signaled with nothing to wait on it, so it is never
// reused after a swapchain rebuild. The device must be idle.
func (s *FrameSync) Renew() error {
	s.destroySemaphores()
	return s.createSemaphores()
}

// Destroy releases the fence and semaphores. The device must be idle.
func (s *FrameSync) Destroy() {
	s.destroySemaphores()
	if s.fence.Initialized() {
		s.driver.DestroyFence(s.fence, nil)
		s.fence = core1_0.Fence{}
	}
}
