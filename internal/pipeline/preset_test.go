package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestOpaqueCullsBackFaces(t *testing.T) {
	r := Opaque.rasterization()
	assert.Equal(t, core1_0.CullModeBack, r.CullMode)
	assert.Equal(t, core1_0.FrontFaceCounterClockwise, r.FrontFace)

	d := Opaque.depthStencil()
	assert.True(t, d.DepthTestEnable)
	assert.True(t, d.DepthWriteEnable)
	assert.Equal(t, core1_0.CompareOpLess, d.DepthCompareOp)
	assert.False(t, d.DepthBoundsTestEnable)
}

func TestInstancedMatchesOpaque(t *testing.T) {
	assert.True(t, Instanced.Instanced)
	assert.False(t, Opaque.Instanced)

	plain := Instanced
	plain.Instanced = false
	assert.Equal(t, Opaque, plain)
}

func TestSkyboxDrawsAtFarPlane(t *testing.T) {
	r := Skybox.rasterization()
	assert.Equal(t, core1_0.CullModeFront, r.CullMode)

	d := Skybox.depthStencil()
	assert.True(t, d.DepthTestEnable)
	assert.False(t, d.DepthWriteEnable)
	assert.Equal(t, core1_0.CompareOpEqual, d.DepthCompareOp)
	assert.True(t, d.DepthBoundsTestEnable)
	assert.Equal(t, float32(1), d.MinDepthBounds)
	assert.Equal(t, float32(1), d.MaxDepthBounds)

	fallback := Skybox.WithoutDepthBounds().depthStencil()
	assert.False(t, fallback.DepthBoundsTestEnable)
	assert.Equal(t, core1_0.CompareOpEqual, fallback.DepthCompareOp)
}

func TestDynamicViewportAndScissor(t *testing.T) {
	assert.ElementsMatch(t, []core1_0.DynamicState{
		core1_0.DynamicStateViewport,
		core1_0.DynamicStateScissor,
	}, dynamicState().DynamicStates)
}

func TestSingleOpaqueBlendAttachment(t *testing.T) {
	blend := colorBlend()
	if assert.Len(t, blend.Attachments, 1) {
		assert.False(t, blend.Attachments[0].BlendEnabled)
	}
}

func TestPushConstantRangeCoversBlock(t *testing.T) {
	r := PushConstantRange(core1_0.StageFragment | core1_0.StageCompute)
	assert.Equal(t, 0, r.Offset)
	assert.Equal(t, 16, r.Size)
}
