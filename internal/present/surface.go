// Package present owns the window surface, the swapchain negotiated for it,
// and the swapchain-sized attachments the renderer draws into: an off-screen
// color target that is blitted to the acquired swapchain image, and a depth
// buffer.
package present

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/scenedemo/internal/device"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

// Window is the part of the windowing collaborator presentation depends on.
type Window interface {
	CreateSurface(instance core1_0.Instance, ext khr_surface.ExtensionDriver) (khr_surface.Surface, error)
	FramebufferSize() (width, height int)
	WaitEvents()
	ShouldClose() bool
}

type SupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// Surface binds a window to the instance.
type Surface struct {
	Handle    khr_surface.Surface
	Extension khr_surface.ExtensionDriver
	Window    Window
}

func CreateSurface(inst *device.Instance, window Window) (*Surface, error) {
	ext := khr_surface.CreateExtensionDriverFromCoreDriver(inst.Driver)
	handle, err := window.CreateSurface(inst.Driver.Instance(), ext)
	if err != nil {
		return nil, gpuerr.Initialization(err, "create surface")
	}

	return &Surface{
		Handle:    handle,
		Extension: ext,
		Window:    window,
	}, nil
}

func (s *Surface) PresentSupport(physical core1_0.PhysicalDevice, family int) (bool, error) {
	supported, _, err := s.Extension.GetPhysicalDeviceSurfaceSupport(s.Handle, physical, family)
	return supported, err
}

// Adequate reports whether physical can build a swapchain for the surface.
func (s *Surface) Adequate(physical core1_0.PhysicalDevice) (bool, error) {
	details, err := s.Support(physical)
	if err != nil {
		return false, err
	}
	return len(details.Formats) > 0 && len(details.PresentModes) > 0, nil
}

func (s *Surface) Support(physical core1_0.PhysicalDevice) (SupportDetails, error) {
	var details SupportDetails
	var err error

	details.Capabilities, _, err = s.Extension.GetPhysicalDeviceSurfaceCapabilities(s.Handle, physical)
	if err != nil {
		return details, err
	}

	details.Formats, _, err = s.Extension.GetPhysicalDeviceSurfaceFormats(s.Handle, physical)
	if err != nil {
		return details, err
	}

	details.PresentModes, _, err = s.Extension.GetPhysicalDeviceSurfacePresentModes(s.Handle, physical)
	return details, err
}

// Destroy releases the surface. The swapchain must be gone and the instance
// still alive.
func (s *Surface) Destroy() {
	if s.Handle.Initialized() {
		s.Extension.DestroySurface(s.Handle, nil)
		s.Handle = khr_surface.Surface{}
	}
}
