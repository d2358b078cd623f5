package layout

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

func TestDocumentedTransitions(t *testing.T) {
	tr, err := Lookup(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.PipelineStageTopOfPipe, tr.SrcStage)
	assert.Equal(t, core1_0.PipelineStageTransfer, tr.DstStage)
	assert.Zero(t, tr.SrcAccess)
	assert.Equal(t, core1_0.AccessTransferWrite, tr.DstAccess)

	tr, err = Lookup(core1_0.ImageLayoutColorAttachmentOptimal, core1_0.ImageLayoutTransferSrcOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.PipelineStageColorAttachmentOutput, tr.SrcStage)
	assert.Equal(t, core1_0.PipelineStageTransfer, tr.DstStage)
	assert.Equal(t, core1_0.AccessColorAttachmentWrite, tr.SrcAccess)
	assert.Equal(t, core1_0.AccessTransferRead, tr.DstAccess)

	tr, err = Lookup(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.PipelineStageTopOfPipe, tr.SrcStage)
	assert.Equal(t, core1_0.PipelineStageEarlyFragmentTests|core1_0.PipelineStageLateFragmentTests, tr.DstStage)
}

func TestUnsupportedTransition(t *testing.T) {
	pairs := [][2]core1_0.ImageLayout{
		{core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutTransferDstOptimal},
		{khr_swapchain.ImageLayoutPresentSrc, core1_0.ImageLayoutTransferDstOptimal},
		{core1_0.ImageLayoutTransferSrcOptimal, core1_0.ImageLayoutColorAttachmentOptimal},
		{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutUndefined},
	}
	for _, pair := range pairs {
		_, err := Lookup(pair[0], pair[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, gpuerr.ErrUnsupportedLayoutTransition))
		assert.False(t, Supported(pair[0], pair[1]))
	}
}

func TestBarrier(t *testing.T) {
	barrier, tr, err := Barrier(core1_0.Image{}, core1_0.ImageLayoutTransferDstOptimal, khr_swapchain.ImageLayoutPresentSrc, ColorRange(1))
	require.NoError(t, err)
	assert.Equal(t, core1_0.ImageLayoutTransferDstOptimal, barrier.OldLayout)
	assert.Equal(t, khr_swapchain.ImageLayoutPresentSrc, barrier.NewLayout)
	assert.Equal(t, -1, barrier.SrcQueueFamilyIndex)
	assert.Equal(t, tr.SrcAccess, barrier.SrcAccessMask)
	assert.Equal(t, tr.DstAccess, barrier.DstAccessMask)
	assert.Equal(t, 1, barrier.SubresourceRange.LayerCount)

	_, _, err = Barrier(core1_0.Image{}, core1_0.ImageLayoutGeneral, core1_0.ImageLayoutUndefined, ColorRange(1))
	assert.True(t, errors.Is(err, gpuerr.ErrUnsupportedLayoutTransition))
}

func TestAspect(t *testing.T) {
	assert.Equal(t, core1_0.ImageAspectDepth, Aspect(core1_0.ImageLayoutDepthStencilAttachmentOptimal))
	assert.Equal(t, core1_0.ImageAspectColor, Aspect(core1_0.ImageLayoutTransferDstOptimal))
}

func TestCubeRange(t *testing.T) {
	r := ColorRange(6)
	assert.Equal(t, 6, r.LayerCount)
	assert.Equal(t, 1, r.LevelCount)
	assert.Equal(t, core1_0.ImageAspectColor, r.AspectMask)
}
