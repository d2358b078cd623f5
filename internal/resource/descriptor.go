package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

// SetLayout pairs a descriptor set layout with the bindings it was created
// from, so allocations can be checked against the pool budget and writes
// against the declared slots.
type SetLayout struct {
	Handle   core1_0.DescriptorSetLayout
	Bindings []core1_0.DescriptorSetLayoutBinding
}

func (l SetLayout) binding(index int) (core1_0.DescriptorSetLayoutBinding, bool) {
	for _, b := range l.Bindings {
		if b.Binding == index {
			return b, true
		}
	}
	return core1_0.DescriptorSetLayoutBinding{}, false
}

// DescriptorPool is a descriptor pool with budget accounting. Sets are
// never freed individually; they go away with the pool.
type DescriptorPool struct {
	Handle core1_0.DescriptorPool
	Budget *Budget

	driver core1_0.DeviceDriver
}

func (m *Manager) CreateDescriptorPool(budget *Budget) (*DescriptorPool, error) {
	handle, _, err := m.driver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets:   budget.MaxSets,
		PoolSizes: budget.PoolSizes(),
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create descriptor pool")
	}

	return &DescriptorPool{
		Handle: handle,
		Budget: budget,
		driver: m.driver,
	}, nil
}

// DescriptorSet is an allocated set and the layout it was allocated with.
type DescriptorSet struct {
	Handle core1_0.DescriptorSet
	Layout SetLayout
}

// Allocate allocates one set for layout.
func (p *DescriptorPool) Allocate(layout SetLayout) (*DescriptorSet, error) {
	err := p.Budget.Reserve(layout.Bindings)
	if err != nil {
		return nil, err
	}

	sets, _, err := p.driver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: p.Handle,
		SetLayouts:     []core1_0.DescriptorSetLayout{layout.Handle},
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "allocate descriptor set")
	}

	return &DescriptorSet{Handle: sets[0], Layout: layout}, nil
}

// Write is one slot update. Exactly one of Buffer or Images is set.
type Write struct {
	Binding int
	Buffer  *Buffer
	Images  []*Image
	// ImageLayout is the layout the images are in when the set is used.
	ImageLayout core1_0.ImageLayout
}

// Update writes the given slots. Each write must name a declared binding
// with a matching descriptor type and count.
func (p *DescriptorPool) Update(set *DescriptorSet, writes ...Write) error {
	var updates []core1_0.WriteDescriptorSet
	for _, w := range writes {
		binding, ok := set.Layout.binding(w.Binding)
		if !ok {
			return errors.Newf("binding %d is not declared in the set layout", w.Binding)
		}

		update := core1_0.WriteDescriptorSet{
			DstSet:          set.Handle,
			DstBinding:      w.Binding,
			DstArrayElement: 0,
			DescriptorType:  binding.DescriptorType,
		}

		switch binding.DescriptorType {
		case core1_0.DescriptorTypeUniformBuffer, core1_0.DescriptorTypeStorageBuffer:
			if w.Buffer == nil {
				return errors.Newf("binding %d expects a buffer", w.Binding)
			}
			update.BufferInfo = []core1_0.DescriptorBufferInfo{
				{
					Buffer: w.Buffer.Handle,
					Offset: 0,
					Range:  w.Buffer.Size,
				},
			}
		default:
			if len(w.Images) == 0 || len(w.Images) > binding.DescriptorCount {
				return errors.Newf("binding %d expects 1 to %d images, got %d", w.Binding, binding.DescriptorCount, len(w.Images))
			}
			for _, image := range w.Images {
				update.ImageInfo = append(update.ImageInfo, core1_0.DescriptorImageInfo{
					ImageView:   image.View,
					Sampler:     image.Sampler,
					ImageLayout: w.ImageLayout,
				})
			}
		}

		updates = append(updates, update)
	}

	return errors.Wrap(p.driver.UpdateDescriptorSets(updates, nil), "update descriptor sets")
}

// UpdateStorageImage points a storage image binding at view.
func (p *DescriptorPool) UpdateStorageImage(set *DescriptorSet, binding int, view core1_0.ImageView) error {
	err := p.driver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          set.Handle,
			DstBinding:      binding,
			DstArrayElement: 0,
			DescriptorType:  core1_0.DescriptorTypeStorageImage,
			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					ImageView:   view,
					ImageLayout: core1_0.ImageLayoutGeneral,
				},
			},
		},
	}, nil)
	return errors.Wrap(err, "update storage image")
}

func (p *DescriptorPool) Destroy() {
	if p.Handle.Initialized() {
		p.driver.DestroyDescriptorPool(p.Handle, nil)
		p.Handle = core1_0.DescriptorPool{}
	}
}
