// Package window implements the windowing collaborator on SDL2.
//
// All methods must be called from the thread that created the window, which
// for SDL is the locked main OS thread.
package window

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
	"github.com/vkngwrapper/scenedemo/internal/config"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

type Window struct {
	window   *sdl.Window
	logger   *slog.Logger
	onResize func(width, height int)
	closed   bool
}

func New(cfg config.Window, logger *slog.Logger) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, gpuerr.Initialization(err, "init sdl video")
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN)
	if cfg.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}

	window, err := sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(cfg.Width), int32(cfg.Height), flags)
	if err != nil {
		sdl.Quit()
		return nil, gpuerr.Initialization(err, "create window")
	}

	return &Window{
		window: window,
		logger: logger,
	}, nil
}

// GlobalDriver loads Vulkan through SDL's loader.
func (w *Window) GlobalDriver() (core1_0.GlobalDriver, error) {
	driver, err := core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, gpuerr.Initialization(err, "load vulkan")
	}
	return driver, nil
}

func (w *Window) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

func (w *Window) CreateSurface(instance core1_0.Instance, ext khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	surface, err := vkng_sdl2.CreateSurface(instance, ext, w.window)
	if err != nil {
		return khr_surface.Surface{}, errors.Wrap(err, "create window surface")
	}
	return surface, nil
}

// FramebufferSize is the drawable size in pixels, which is zero while the
// window is minimized.
func (w *Window) FramebufferSize() (int, int) {
	if w.window.GetFlags()&sdl.WINDOW_MINIMIZED != 0 {
		return 0, 0
	}
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

// SetResizeCallback registers fn to run from PollEvents whenever the
// drawable size changes. fn must not touch GPU state.
func (w *Window) SetResizeCallback(fn func(width, height int)) {
	w.onResize = fn
}

// PollEvents drains pending events. It returns false once the user has asked
// to close the window.
func (w *Window) PollEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handle(event)
	}
	return !w.closed
}

// WaitEvents blocks until at least one event arrives, then drains the queue.
func (w *Window) WaitEvents() {
	if event := sdl.WaitEvent(); event != nil {
		w.handle(event)
	}
	w.PollEvents()
}

func (w *Window) ShouldClose() bool {
	return w.closed
}

func (w *Window) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.closed = true
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_RESTORED:
			width, height := w.FramebufferSize()
			w.logger.Debug("window resized", slog.Int("width", width), slog.Int("height", height))
			if w.onResize != nil {
				w.onResize(width, height)
			}
		case sdl.WINDOWEVENT_CLOSE:
			w.closed = true
		}
	}
}

func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}
