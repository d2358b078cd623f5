package resource

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

var sceneBindings = []core1_0.DescriptorSetLayoutBinding{
	{
		Binding:         0,
		DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      core1_0.StageVertex,
	},
	{
		Binding:         1,
		DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 2,
		StageFlags:      core1_0.StageFragment,
	},
}

func TestBudgetReserve(t *testing.T) {
	budget := NewBudget(2, map[core1_0.DescriptorType]int{
		core1_0.DescriptorTypeUniformBuffer:        2,
		core1_0.DescriptorTypeCombinedImageSampler: 4,
	})

	require.NoError(t, budget.Reserve(sceneBindings))
	require.NoError(t, budget.Reserve(sceneBindings))
	assert.Equal(t, 2, budget.Sets())
	assert.Equal(t, 2, budget.Used(core1_0.DescriptorTypeUniformBuffer))
	assert.Equal(t, 4, budget.Used(core1_0.DescriptorTypeCombinedImageSampler))

	err := budget.Reserve(sceneBindings)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpuerr.ErrDescriptorBudgetExceeded))
	assert.True(t, errors.Is(err, gpuerr.ErrResourceCreation))
}

func TestBudgetRejectsWithoutReserving(t *testing.T) {
	budget := NewBudget(4, map[core1_0.DescriptorType]int{
		core1_0.DescriptorTypeUniformBuffer:        4,
		core1_0.DescriptorTypeCombinedImageSampler: 1,
	})

	err := budget.Reserve(sceneBindings)
	require.ErrorIs(t, err, gpuerr.ErrDescriptorBudgetExceeded)
	assert.Equal(t, 0, budget.Sets())
	assert.Equal(t, 0, budget.Used(core1_0.DescriptorTypeUniformBuffer))

	storage := []core1_0.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: core1_0.DescriptorTypeStorageImage, DescriptorCount: 1},
	}
	require.ErrorIs(t, budget.Reserve(storage), gpuerr.ErrDescriptorBudgetExceeded)
}

func TestBudgetPoolSizes(t *testing.T) {
	limits := map[core1_0.DescriptorType]int{
		core1_0.DescriptorTypeStorageImage:         1,
		core1_0.DescriptorTypeUniformBuffer:        3,
		core1_0.DescriptorTypeCombinedImageSampler: 0,
	}
	budget := NewBudget(3, limits)
	limits[core1_0.DescriptorTypeStorageImage] = 10

	assert.Equal(t, []core1_0.DescriptorPoolSize{
		{Type: core1_0.DescriptorTypeUniformBuffer, DescriptorCount: 3},
		{Type: core1_0.DescriptorTypeStorageImage, DescriptorCount: 1},
	}, budget.PoolSizes())
}

func TestUpdateChecksDeclaredBindings(t *testing.T) {
	pool := &DescriptorPool{}
	set := &DescriptorSet{Layout: SetLayout{Bindings: sceneBindings}}

	require.Error(t, pool.Update(set, Write{Binding: 3, Buffer: &Buffer{}}))
	require.Error(t, pool.Update(set, Write{Binding: 0}))
	require.Error(t, pool.Update(set, Write{Binding: 1, Images: []*Image{{}, {}, {}}}))
}

func TestIndexBytes(t *testing.T) {
	b := IndexBytes([]uint32{0, 1, 0x01020304})
	require.Len(t, b, 12)
	assert.Equal(t, uint32(0x01020304), common.ByteOrder.Uint32(b[8:]))
}
