package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/geom"
	"github.com/vkngwrapper/scenedemo/internal/layout"
	"github.com/vkngwrapper/scenedemo/internal/present"
	"github.com/vkngwrapper/scenedemo/internal/scene"
)

// Content is what gets drawn into the off-screen target.
type Content interface {
	Update(extent core1_0.Extent2D) error
	Draws() []scene.Draw
	PushConstants() geom.PushConstants
	Post() *scene.PostProcess
}

// CommandRecorder records the whole frame into one reusable command buffer:
// render the content into the off-screen target through the swapchain's
// render pass, optionally post-process it, then blit it into the acquired
// swapchain image.
type CommandRecorder struct {
	driver        core1_0.DeviceDriver
	swapchain     *present.Swapchain
	content       Content
	commandBuffer core1_0.CommandBuffer

	ClearColor [4]float32
}

func NewCommandRecorder(driver core1_0.DeviceDriver, swapchain *present.Swapchain, content Content, commandBuffer core1_0.CommandBuffer) *CommandRecorder {
	return &CommandRecorder{
		driver:        driver,
		swapchain:     swapchain,
		content:       content,
		commandBuffer: commandBuffer,
		ClearColor:    [4]float32{0, 0, 0, 1},
	}
}

func (r *CommandRecorder) Reset() error {
	_, err := r.driver.ResetCommandBuffer(r.commandBuffer, 0)
	return errors.Wrap(err, "reset frame command buffer")
}

func (r *CommandRecorder) image(a attachment, imageIndex int) (core1_0.Image, core1_0.ImageSubresourceRange) {
	switch a {
	case depth:
		return r.swapchain.Depth.Image, core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectDepth,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		}
	case swapchainImage:
		return r.swapchain.Images[imageIndex], layout.ColorRange(1)
	}
	return r.swapchain.Target.Image, layout.ColorRange(1)
}

func (r *CommandRecorder) transition(steps []transition, imageIndex int) error {
	for _, step := range steps {
		image, subresource := r.image(step.image, imageIndex)
		err := layout.Record(r.driver, r.commandBuffer, image, step.from, step.to, subresource)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *CommandRecorder) Record(imageIndex int) (core1_0.CommandBuffer, error) {
	cb := r.commandBuffer
	target := r.swapchain.Target

	// The projection follows the target, which is what the viewport covers.
	err := r.content.Update(target.Extent)
	if err != nil {
		return cb, errors.Wrap(err, "update uniforms")
	}

	_, err = r.driver.BeginCommandBuffer(cb, core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return cb, err
	}

	err = r.transition(beginTransitions, imageIndex)
	if err != nil {
		return cb, err
	}

	err = r.draw(target.Extent)
	if err != nil {
		return cb, err
	}

	post := r.content.Post()
	steps := finishTransitions(post != nil)
	if post != nil {
		err = r.transition(steps[:1], imageIndex)
		if err != nil {
			return cb, err
		}
		err = r.dispatch(post, target.Extent)
		if err != nil {
			return cb, err
		}
		steps = steps[1:]
	}
	err = r.transition(steps, imageIndex)
	if err != nil {
		return cb, err
	}

	err = r.transition(blitTransitions[:1], imageIndex)
	if err != nil {
		return cb, err
	}

	err = r.driver.CmdBlitImage(cb,
		target.Image, core1_0.ImageLayoutTransferSrcOptimal,
		r.swapchain.Images[imageIndex], core1_0.ImageLayoutTransferDstOptimal,
		[]core1_0.ImageBlit{blitRegion(target.Extent, r.swapchain.Extent)},
		core1_0.FilterLinear)
	if err != nil {
		return cb, errors.Wrap(err, "blit to swapchain")
	}

	err = r.transition(blitTransitions[1:], imageIndex)
	if err != nil {
		return cb, err
	}

	_, err = r.driver.EndCommandBuffer(cb)
	return cb, err
}

func (r *CommandRecorder) draw(extent core1_0.Extent2D) error {
	cb := r.commandBuffer

	err := r.driver.CmdBeginRenderPass(cb, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  r.swapchain.RenderPass,
		Framebuffer: r.swapchain.Framebuffer,
		RenderArea:  scissor(extent),
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat(r.ClearColor),
			core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
		},
	})
	if err != nil {
		return errors.Wrap(err, "begin render pass")
	}

	r.driver.CmdSetViewport(cb, viewport(extent))
	r.driver.CmdSetScissor(cb, scissor(extent))

	pushConstants, err := geom.Bytes(r.content.PushConstants())
	if err != nil {
		return err
	}

	for _, d := range r.content.Draws() {
		p := d.Pipeline
		r.driver.CmdBindPipeline(cb, p.BindPoint, p.Handle)
		r.driver.CmdBindDescriptorSets(cb, p.BindPoint, p.Layout, 0, []core1_0.DescriptorSet{d.Set.Handle}, nil)
		if p.PushConstants.Size > 0 {
			r.driver.CmdPushConstants(cb, p.Layout, p.PushConstants.StageFlags, 0, pushConstants)
		}

		buffers := []core1_0.Buffer{d.Mesh.Vertices.Handle}
		offsets := []int{0}
		if d.Instances != nil {
			buffers = append(buffers, d.Instances.Handle)
			offsets = append(offsets, 0)
		}
		r.driver.CmdBindVertexBuffers(cb, geom.VertexBinding, buffers, offsets)
		r.driver.CmdBindIndexBuffer(cb, d.Mesh.Indices.Handle, 0, core1_0.IndexTypeUInt32)
		r.driver.CmdDrawIndexed(cb, d.Mesh.IndexCount, d.InstanceCount, 0, 0, 0)
	}

	r.driver.CmdEndRenderPass(cb)
	return nil
}

func (r *CommandRecorder) dispatch(post *scene.PostProcess, extent core1_0.Extent2D) error {
	cb := r.commandBuffer
	p := post.Pipeline

	pushConstants, err := geom.Bytes(r.content.PushConstants())
	if err != nil {
		return err
	}

	r.driver.CmdBindPipeline(cb, p.BindPoint, p.Handle)
	r.driver.CmdBindDescriptorSets(cb, p.BindPoint, p.Layout, 0, []core1_0.DescriptorSet{post.Set.Handle}, nil)
	r.driver.CmdPushConstants(cb, p.Layout, p.PushConstants.StageFlags, 0, pushConstants)

	x, y := workgroups(extent)
	r.driver.CmdDispatch(cb, x, y, 1)
	return nil
}
