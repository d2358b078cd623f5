package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/scenedemo/internal/geom"
	"github.com/vkngwrapper/scenedemo/internal/layout"
	"github.com/vkngwrapper/scenedemo/internal/present"
	"github.com/vkngwrapper/scenedemo/internal/scene"
	"go.uber.org/mock/gomock"
)

// emptyContent draws nothing and remembers the extent it was updated for.
type emptyContent struct {
	updated []core1_0.Extent2D
}

func (c *emptyContent) Update(extent core1_0.Extent2D) error {
	c.updated = append(c.updated, extent)
	return nil
}

func (c *emptyContent) Draws() []scene.Draw               { return nil }
func (c *emptyContent) PushConstants() geom.PushConstants { return geom.PushConstants{} }
func (c *emptyContent) Post() *scene.PostProcess          { return nil }

type recorderFixture struct {
	driver        *mocks1_0.MockDeviceDriver
	swapchain     *present.Swapchain
	content       *emptyContent
	commandBuffer core1_0.CommandBuffer
	recorder      *CommandRecorder
}

func newRecorderFixture(t *testing.T) *recorderFixture {
	ctrl := gomock.NewController(t)
	device := mocks.NewDummyDevice(common.Vulkan1_0, nil)

	f := &recorderFixture{
		driver:        mocks1_0.NewMockDeviceDriver(ctrl),
		content:       &emptyContent{},
		commandBuffer: mocks.NewDummyCommandBuffer(mocks.NewDummyCommandPool(device), device),
		swapchain: &present.Swapchain{
			Images: []core1_0.Image{mocks.NewDummyImage(device), mocks.NewDummyImage(device)},
			Extent: core1_0.Extent2D{Width: 800, Height: 600},
			Target: &present.Attachment{
				Image:  mocks.NewDummyImage(device),
				View:   mocks.NewDummyImageView(device),
				Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
				Extent: core1_0.Extent2D{Width: 64, Height: 32},
			},
			Depth: &present.Attachment{
				Image:  mocks.NewDummyImage(device),
				View:   mocks.NewDummyImageView(device),
				Format: core1_0.FormatD32SignedFloat,
				Extent: core1_0.Extent2D{Width: 64, Height: 32},
			},
			RenderPass:  mocks.NewDummyRenderPass(device),
			Framebuffer: mocks.NewDummyFramebuffer(device),
		},
	}
	f.recorder = NewCommandRecorder(f.driver, f.swapchain, f.content, f.commandBuffer)
	return f
}

// expectBarrier expects the single image barrier for from -> to.
func (f *recorderFixture) expectBarrier(t *testing.T, image core1_0.Image, from, to core1_0.ImageLayout, subresource core1_0.ImageSubresourceRange) *gomock.Call {
	barrier, scope, err := layout.Barrier(image, from, to, subresource)
	require.NoError(t, err)
	return f.driver.EXPECT().CmdPipelineBarrier(f.commandBuffer,
		scope.SrcStage, scope.DstStage, core1_0.DependencyFlags(0),
		nil, nil, []core1_0.ImageMemoryBarrier{barrier}).Return(nil)
}

func TestRecordOrder(t *testing.T) {
	f := newRecorderFixture(t)
	cb := f.commandBuffer
	sc := f.swapchain
	target := sc.Target.Extent
	depthRange := core1_0.ImageSubresourceRange{
		AspectMask: core1_0.ImageAspectDepth,
		LevelCount: 1,
		LayerCount: 1,
	}

	gomock.InOrder(
		f.driver.EXPECT().BeginCommandBuffer(cb, core1_0.CommandBufferBeginInfo{}).Return(core1_0.VKSuccess, nil),

		f.expectBarrier(t, sc.Target.Image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutColorAttachmentOptimal, layout.ColorRange(1)),
		f.expectBarrier(t, sc.Depth.Image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal, depthRange),

		f.driver.EXPECT().CmdBeginRenderPass(cb, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
			RenderPass:  sc.RenderPass,
			Framebuffer: sc.Framebuffer,
			RenderArea:  core1_0.Rect2D{Extent: target},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 1},
				core1_0.ClearValueDepthStencil{Depth: 1.0},
			},
		}).Return(nil),
		f.driver.EXPECT().CmdSetViewport(cb, core1_0.Viewport{Width: 64, Height: 32, MaxDepth: 1}),
		f.driver.EXPECT().CmdSetScissor(cb, core1_0.Rect2D{Extent: target}),
		f.driver.EXPECT().CmdEndRenderPass(cb),

		f.expectBarrier(t, sc.Target.Image, core1_0.ImageLayoutColorAttachmentOptimal, core1_0.ImageLayoutTransferSrcOptimal, layout.ColorRange(1)),
		f.expectBarrier(t, sc.Images[1], core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, layout.ColorRange(1)),

		f.driver.EXPECT().CmdBlitImage(cb,
			sc.Target.Image, core1_0.ImageLayoutTransferSrcOptimal,
			sc.Images[1], core1_0.ImageLayoutTransferDstOptimal,
			[]core1_0.ImageBlit{blitRegion(target, sc.Extent)},
			core1_0.FilterLinear).Return(nil),

		f.expectBarrier(t, sc.Images[1], core1_0.ImageLayoutTransferDstOptimal, khr_swapchain.ImageLayoutPresentSrc, layout.ColorRange(1)),

		f.driver.EXPECT().EndCommandBuffer(cb).Return(core1_0.VKSuccess, nil),
	)

	recorded, err := f.recorder.Record(1)
	require.NoError(t, err)
	assert.Equal(t, cb, recorded)
}

func TestRecordUpdatesForTargetExtent(t *testing.T) {
	f := newRecorderFixture(t)
	f.driver.EXPECT().BeginCommandBuffer(gomock.Any(), gomock.Any()).Return(core1_0.VKSuccess, nil)
	f.driver.EXPECT().CmdPipelineBarrier(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.driver.EXPECT().CmdBeginRenderPass(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.driver.EXPECT().CmdSetViewport(gomock.Any(), gomock.Any())
	f.driver.EXPECT().CmdSetScissor(gomock.Any(), gomock.Any())
	f.driver.EXPECT().CmdEndRenderPass(gomock.Any())
	f.driver.EXPECT().CmdBlitImage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.driver.EXPECT().EndCommandBuffer(gomock.Any()).Return(core1_0.VKSuccess, nil)

	_, err := f.recorder.Record(0)
	require.NoError(t, err)
	assert.Equal(t, []core1_0.Extent2D{{Width: 64, Height: 32}}, f.content.updated,
		"the projection matches the viewport, not the window")
}
