package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

// Budget is the upper bound a descriptor pool is sized for, and the running
// count of what has been allocated from it.
type Budget struct {
	MaxSets int
	Limits  map[core1_0.DescriptorType]int

	sets int
	used map[core1_0.DescriptorType]int
}

func NewBudget(maxSets int, limits map[core1_0.DescriptorType]int) *Budget {
	copied := make(map[core1_0.DescriptorType]int, len(limits))
	for descriptorType, count := range limits {
		copied[descriptorType] = count
	}
	return &Budget{
		MaxSets: maxSets,
		Limits:  copied,
		used:    make(map[core1_0.DescriptorType]int),
	}
}

// PoolSizes lists the per-type counts in a stable order.
func (b *Budget) PoolSizes() []core1_0.DescriptorPoolSize {
	var sizes []core1_0.DescriptorPoolSize
	for _, descriptorType := range descriptorTypeOrder {
		if count := b.Limits[descriptorType]; count > 0 {
			sizes = append(sizes, core1_0.DescriptorPoolSize{
				Type:            descriptorType,
				DescriptorCount: count,
			})
		}
	}
	return sizes
}

var descriptorTypeOrder = []core1_0.DescriptorType{
	core1_0.DescriptorTypeUniformBuffer,
	core1_0.DescriptorTypeCombinedImageSampler,
	core1_0.DescriptorTypeStorageImage,
	core1_0.DescriptorTypeStorageBuffer,
	core1_0.DescriptorTypeSampledImage,
	core1_0.DescriptorTypeSampler,
}

// Reserve accounts for one set per layout in layouts. Nothing is reserved
// when any limit would be exceeded.
func (b *Budget) Reserve(layouts ...[]core1_0.DescriptorSetLayoutBinding) error {
	if b.sets+len(layouts) > b.MaxSets {
		return errors.Wrapf(gpuerr.ErrDescriptorBudgetExceeded, "%d sets requested, %d of %d in use", len(layouts), b.sets, b.MaxSets)
	}

	want := make(map[core1_0.DescriptorType]int)
	for _, bindings := range layouts {
		for _, binding := range bindings {
			want[binding.DescriptorType] += binding.DescriptorCount
		}
	}

	for descriptorType, count := range want {
		if b.used[descriptorType]+count > b.Limits[descriptorType] {
			return errors.Wrapf(gpuerr.ErrDescriptorBudgetExceeded, "%d descriptors of type %s requested, %d of %d in use",
				count, descriptorType, b.used[descriptorType], b.Limits[descriptorType])
		}
	}

	b.sets += len(layouts)
	for descriptorType, count := range want {
		b.used[descriptorType] += count
	}
	return nil
}

func (b *Budget) Sets() int {
	return b.sets
}

func (b *Budget) Used(descriptorType core1_0.DescriptorType) int {
	return b.used[descriptorType]
}
