// Package layout maps image layout transitions to the access masks and
// pipeline stages of the barrier that performs them.
//
// The table is closed. It holds exactly the transitions the renderer
// performs; any other pair is rejected with
// gpuerr.ErrUnsupportedLayoutTransition.
package layout

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

// Transition is the synchronization scope of one layout change.
type Transition struct {
	SrcAccess core1_0.AccessFlags
	DstAccess core1_0.AccessFlags
	SrcStage  core1_0.PipelineStageFlags
	DstStage  core1_0.PipelineStageFlags
}

type key struct {
	from core1_0.ImageLayout
	to   core1_0.ImageLayout
}

var table = map[key]Transition{
	// Texture upload destination and swapchain blit destination.
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal}: {
		SrcAccess: 0,
		DstAccess: core1_0.AccessTransferWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageTransfer,
	},
	{core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal}: {
		SrcAccess: core1_0.AccessTransferWrite,
		DstAccess: core1_0.AccessShaderRead,
		SrcStage:  core1_0.PipelineStageTransfer,
		DstStage:  core1_0.PipelineStageFragmentShader,
	},
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutColorAttachmentOptimal}: {
		SrcAccess: 0,
		DstAccess: core1_0.AccessColorAttachmentWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageColorAttachmentOutput,
	},
	{core1_0.ImageLayoutColorAttachmentOptimal, core1_0.ImageLayoutTransferSrcOptimal}: {
		SrcAccess: core1_0.AccessColorAttachmentWrite,
		DstAccess: core1_0.AccessTransferRead,
		SrcStage:  core1_0.PipelineStageColorAttachmentOutput,
		DstStage:  core1_0.PipelineStageTransfer,
	},
	{core1_0.ImageLayoutTransferDstOptimal, khr_swapchain.ImageLayoutPresentSrc}: {
		SrcAccess: core1_0.AccessTransferWrite,
		DstAccess: 0,
		SrcStage:  core1_0.PipelineStageTransfer,
		DstStage:  core1_0.PipelineStageBottomOfPipe,
	},
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal}: {
		SrcAccess: 0,
		DstAccess: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests,
	},
	// Post-process compute pass over the off-screen target.
	{core1_0.ImageLayoutColorAttachmentOptimal, core1_0.ImageLayoutGeneral}: {
		SrcAccess: core1_0.AccessColorAttachmentWrite,
		DstAccess: core1_0.AccessShaderRead | core1_0.AccessShaderWrite,
		SrcStage:  core1_0.PipelineStageColorAttachmentOutput,
		DstStage:  core1_0.PipelineStageComputeShader,
	},
	{core1_0.ImageLayoutGeneral, core1_0.ImageLayoutTransferSrcOptimal}: {
		SrcAccess: core1_0.AccessShaderWrite,
		DstAccess: core1_0.AccessTransferRead,
		SrcStage:  core1_0.PipelineStageComputeShader,
		DstStage:  core1_0.PipelineStageTransfer,
	},
}

// Lookup returns the barrier scope for oldLayout -> newLayout.
func Lookup(oldLayout, newLayout core1_0.ImageLayout) (Transition, error) {
	t, ok := table[key{oldLayout, newLayout}]
	if !ok {
		return Transition{}, errors.Wrapf(gpuerr.ErrUnsupportedLayoutTransition, "%s -> %s", oldLayout, newLayout)
	}
	return t, nil
}

// Supported reports whether oldLayout -> newLayout is in the table.
func Supported(oldLayout, newLayout core1_0.ImageLayout) bool {
	_, ok := table[key{oldLayout, newLayout}]
	return ok
}

// Aspect is the image aspect a layout applies to.
func Aspect(l core1_0.ImageLayout) core1_0.ImageAspectFlags {
	if l == core1_0.ImageLayoutDepthStencilAttachmentOptimal {
		return core1_0.ImageAspectDepth
	}
	return core1_0.ImageAspectColor
}

// Barrier builds the image memory barrier for a transition.
func Barrier(image core1_0.Image, oldLayout, newLayout core1_0.ImageLayout, subresource core1_0.ImageSubresourceRange) (core1_0.ImageMemoryBarrier, Transition, error) {
	t, err := Lookup(oldLayout, newLayout)
	if err != nil {
		return core1_0.ImageMemoryBarrier{}, t, err
	}

	return core1_0.ImageMemoryBarrier{
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               image,
		SubresourceRange:    subresource,
		SrcAccessMask:       t.SrcAccess,
		DstAccessMask:       t.DstAccess,
	}, t, nil
}

// Record writes the barrier for oldLayout -> newLayout into commandBuffer.
func Record(driver core1_0.DeviceDriver, commandBuffer core1_0.CommandBuffer, image core1_0.Image, oldLayout, newLayout core1_0.ImageLayout, subresource core1_0.ImageSubresourceRange) error {
	barrier, t, err := Barrier(image, oldLayout, newLayout, subresource)
	if err != nil {
		return err
	}

	return driver.CmdPipelineBarrier(commandBuffer, t.SrcStage, t.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
}

// ColorRange covers one mip level of layers color layers.
func ColorRange(layers int) core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     layers,
	}
}
