// Package memory sub-allocates device memory for buffers and images.
//
// Allocations are carved out of large per-memory-type blocks. Blocks in
// host-visible memory stay mapped for their whole life, so every host-visible
// allocation exposes its bytes directly.
package memory

import (
	"log/slog"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

const DefaultBlockSize = 32 << 20

type block struct {
	memory     core1_0.DeviceMemory
	memoryType int
	size       int
	dedicated  bool
	mapped     unsafe.Pointer
	spans      *freeList
}

// Allocation is a bound range inside a device memory block.
type Allocation struct {
	ID     uuid.UUID
	Offset int
	Size   int
	Name   string

	block *block
}

func (a *Allocation) Memory() core1_0.DeviceMemory {
	return a.block.memory
}

func (a *Allocation) MemoryType() int {
	return a.block.memoryType
}

// Mapped reports whether the allocation lives in persistently mapped memory.
func (a *Allocation) Mapped() bool {
	return a.block.mapped != nil
}

// Bytes returns the host view of a mapped allocation, or nil.
func (a *Allocation) Bytes() []byte {
	if a.block.mapped == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Add(a.block.mapped, a.Offset)), a.Size)
}

type Allocator struct {
	driver    core1_0.DeviceDriver
	types     []core1_0.MemoryType
	blockSize int
	// granularity is the device's bufferImageGranularity.
	granularity int
	logger      *slog.Logger

	blocks []*block
	live   map[uuid.UUID]*Allocation
}

// New builds an allocator over the device's memory types. granularity is
// the bufferImageGranularity limit: buffers and optimally tiled images never
// share a page of that size inside a block.
func New(driver core1_0.DeviceDriver, types []core1_0.MemoryType, blockSize, granularity int, logger *slog.Logger) *Allocator {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Allocator{
		driver:      driver,
		types:       types,
		blockSize:   blockSize,
		granularity: granularity,
		logger:      logger,
		live:        make(map[uuid.UUID]*Allocation),
	}
}

// MemoryTypes is the device memory type table the allocator searches.
func (a *Allocator) MemoryTypes() []core1_0.MemoryType {
	return a.types
}

func (a *Allocator) Live() int {
	return len(a.live)
}

// BindBuffer allocates memory that satisfies buffer's requirements and binds it.
func (a *Allocator) BindBuffer(name string, buffer core1_0.Buffer, properties core1_0.MemoryPropertyFlags) (*Allocation, error) {
	reqs := a.driver.GetBufferMemoryRequirements(buffer)

	alloc, err := a.allocate(name, Linear, reqs.Size, reqs.Alignment, reqs.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}

	_, err = a.driver.BindBufferMemory(buffer, alloc.Memory(), alloc.Offset)
	if err != nil {
		a.Free(alloc)
		return nil, gpuerr.Resource(err, "bind memory for %s", name)
	}
	return alloc, nil
}

// BindImage allocates memory that satisfies image's requirements and binds it.
func (a *Allocator) BindImage(name string, image core1_0.Image, properties core1_0.MemoryPropertyFlags) (*Allocation, error) {
	reqs := a.driver.GetImageMemoryRequirements(image)

	alloc, err := a.allocate(name, Optimal, reqs.Size, reqs.Alignment, reqs.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}

	_, err = a.driver.BindImageMemory(image, alloc.Memory(), alloc.Offset)
	if err != nil {
		a.Free(alloc)
		return nil, gpuerr.Resource(err, "bind memory for %s", name)
	}
	return alloc, nil
}

func (a *Allocator) allocate(name string, kind Kind, size, align int, typeBits uint32, properties core1_0.MemoryPropertyFlags) (*Allocation, error) {
	memoryType, err := FindMemoryType(a.types, typeBits, properties)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %s", name)
	}

	if size <= a.blockSize {
		for _, b := range a.blocks {
			if b.memoryType != memoryType || b.dedicated {
				continue
			}
			if offset, ok := b.spans.allocate(size, align, kind); ok {
				return a.track(name, b, offset, size), nil
			}
		}
	}

	blockSize := a.blockSize
	dedicated := size > a.blockSize
	if dedicated {
		blockSize = size
	}

	b, err := a.newBlock(memoryType, blockSize, dedicated)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %s", name)
	}

	offset, ok := b.spans.allocate(size, align, kind)
	if !ok {
		return nil, errors.Mark(errors.Newf("allocation of %d bytes does not fit a fresh block of %d", size, blockSize), gpuerr.ErrResourceCreation)
	}
	return a.track(name, b, offset, size), nil
}

func (a *Allocator) newBlock(memoryType, size int, dedicated bool) (*block, error) {
	memory, _, err := a.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryType,
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "allocate %d bytes of memory type %d", size, memoryType)
	}

	b := &block{
		memory:     memory,
		memoryType: memoryType,
		size:       size,
		dedicated:  dedicated,
		spans:      newFreeList(size, a.granularity),
	}

	if a.types[memoryType].PropertyFlags&core1_0.MemoryPropertyHostVisible != 0 {
		ptr, _, err := a.driver.MapMemory(memory, 0, size, 0)
		if err != nil {
			a.driver.FreeMemory(memory, nil)
			return nil, gpuerr.Resource(err, "map memory block")
		}
		b.mapped = ptr
	}

	a.blocks = append(a.blocks, b)
	a.logger.Debug("memory block allocated",
		slog.Int("type", memoryType),
		slog.Int("size", size),
		slog.Bool("dedicated", dedicated),
		slog.Bool("mapped", b.mapped != nil))
	return b, nil
}

func (a *Allocator) track(name string, b *block, offset, size int) *Allocation {
	alloc := &Allocation{
		ID:     uuid.New(),
		Offset: offset,
		Size:   size,
		Name:   name,
		block:  b,
	}
	a.live[alloc.ID] = alloc
	return alloc
}

// Free returns alloc to its block. Dedicated blocks are released immediately;
// shared blocks are kept for reuse until Destroy. Freeing twice is a no-op.
func (a *Allocator) Free(alloc *Allocation) {
	if alloc == nil {
		return
	}
	if _, ok := a.live[alloc.ID]; !ok {
		return
	}
	delete(a.live, alloc.ID)

	b := alloc.block
	b.spans.free(alloc.Offset)
	if b.dedicated && b.spans.empty() {
		a.releaseBlock(b)
		for i, candidate := range a.blocks {
			if candidate == b {
				a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
				break
			}
		}
	}
}

func (a *Allocator) releaseBlock(b *block) {
	if b.mapped != nil {
		a.driver.UnmapMemory(b.memory)
		b.mapped = nil
	}
	a.driver.FreeMemory(b.memory, nil)
}

// Destroy frees every block. Allocations still live are reported as leaks.
func (a *Allocator) Destroy() {
	for id, alloc := range a.live {
		a.logger.Warn("leaked allocation",
			slog.String("id", id.String()),
			slog.String("name", alloc.Name),
			slog.Int("size", alloc.Size))
	}
	a.live = make(map[uuid.UUID]*Allocation)

	for _, b := range a.blocks {
		a.releaseBlock(b)
	}
	a.blocks = nil
}
