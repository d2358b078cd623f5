package present

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

// ChooseSurfaceFormat prefers 8-bit BGRA sRGB and falls back to the first
// format the surface reports.
func ChooseSurfaceFormat(available []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range available {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return available[0]
}

// ChoosePresentMode returns mailbox when allowed and available. FIFO is
// always supported.
func ChoosePresentMode(available []khr_surface.PresentMode, preferMailbox bool) khr_surface.PresentMode {
	if preferMailbox {
		for _, presentMode := range available {
			if presentMode == khr_surface.PresentModeMailbox {
				return presentMode
			}
		}
	}

	return khr_surface.PresentModeFIFO
}

func undefinedExtent(extent core1_0.Extent2D) bool {
	return uint32(extent.Width) == math.MaxUint32
}

// ChooseExtent uses the surface's current extent when it reports one and
// otherwise clamps the framebuffer size into the supported range.
func ChooseExtent(capabilities *khr_surface.SurfaceCapabilities, framebufferWidth, framebufferHeight int) core1_0.Extent2D {
	if !undefinedExtent(capabilities.CurrentExtent) {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(framebufferWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(framebufferHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}

// ImageCount asks for extra images beyond the surface minimum, capped by the
// surface maximum. A maximum of zero means unbounded.
func ImageCount(capabilities *khr_surface.SurfaceCapabilities, extra int) int {
	count := capabilities.MinImageCount + extra
	if count < capabilities.MinImageCount {
		count = capabilities.MinImageCount
	}
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

var depthCandidates = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

// ChooseDepthFormat returns the first depth format usable as an optimally
// tiled depth attachment.
func ChooseDepthFormat(features func(core1_0.Format) core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range depthCandidates {
		if features(format)&core1_0.FormatFeatureDepthStencilAttachment != 0 {
			return format, nil
		}
	}
	return 0, errors.Mark(errors.New("no supported depth attachment format"), gpuerr.ErrResourceCreation)
}
