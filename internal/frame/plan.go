package frame

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

type attachment int

const (
	offscreen attachment = iota
	depth
	swapchainImage
)

// transition is one layout change the recording path performs.
type transition struct {
	image attachment
	from  core1_0.ImageLayout
	to    core1_0.ImageLayout
}

// Layout changes before rendering begins. Both attachments are cleared, so
// their previous contents are discarded.
var beginTransitions = []transition{
	{offscreen, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutColorAttachmentOptimal},
	{depth, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal},
}

// Layout changes after rendering, before the blit.
func finishTransitions(postProcess bool) []transition {
	if postProcess {
		return []transition{
			{offscreen, core1_0.ImageLayoutColorAttachmentOptimal, core1_0.ImageLayoutGeneral},
			{offscreen, core1_0.ImageLayoutGeneral, core1_0.ImageLayoutTransferSrcOptimal},
		}
	}
	return []transition{
		{offscreen, core1_0.ImageLayoutColorAttachmentOptimal, core1_0.ImageLayoutTransferSrcOptimal},
	}
}

var blitTransitions = []transition{
	{swapchainImage, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal},
	{swapchainImage, core1_0.ImageLayoutTransferDstOptimal, khr_swapchain.ImageLayoutPresentSrc},
}

// blitRegion copies all of src onto all of dst, scaling if the extents
// differ.
func blitRegion(src, dst core1_0.Extent2D) core1_0.ImageBlit {
	layers := core1_0.ImageSubresourceLayers{
		AspectMask:     core1_0.ImageAspectColor,
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	return core1_0.ImageBlit{
		SrcSubresource: layers,
		SrcOffsets: [2]core1_0.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: src.Width, Y: src.Height, Z: 1},
		},
		DstSubresource: layers,
		DstOffsets: [2]core1_0.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: dst.Width, Y: dst.Height, Z: 1},
		},
	}
}

func viewport(extent core1_0.Extent2D) core1_0.Viewport {
	return core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func scissor(extent core1_0.Extent2D) core1_0.Rect2D {
	return core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
}

const workgroupSize = 16

func workgroups(extent core1_0.Extent2D) (int, int) {
	return (extent.Width + workgroupSize - 1) / workgroupSize, (extent.Height + workgroupSize - 1) / workgroupSize
}
