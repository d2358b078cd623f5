package resource

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/memory"
)

// Buffer is a buffer handle with its bound memory.
type Buffer struct {
	Handle core1_0.Buffer
	Size   int
	Usage  core1_0.BufferUsageFlags
	Name   string

	alloc   *memory.Allocation
	manager *Manager
}

// Mapped reports whether the buffer's memory is host-visible.
func (b *Buffer) Mapped() bool {
	return b.alloc != nil && b.alloc.Mapped()
}

// Bytes is the host view of a host-visible buffer, or nil.
func (b *Buffer) Bytes() []byte {
	if b.alloc == nil {
		return nil
	}
	return b.alloc.Bytes()[:b.Size]
}

// Write copies data into a host-visible buffer at offset. The memory is
// host-coherent so no flush is needed before the next submission.
func (b *Buffer) Write(offset int, data []byte) error {
	if !b.Mapped() {
		return errors.Newf("buffer %s is not host visible", b.Name)
	}
	if offset < 0 || offset+len(data) > b.Size {
		return errors.Newf("write of %d bytes at %d overflows buffer %s of %d bytes", len(data), offset, b.Name, b.Size)
	}
	copy(b.Bytes()[offset:], data)
	return nil
}

// Destroy releases the buffer and its memory. Safe to call more than once.
func (b *Buffer) Destroy() {
	if b.Handle.Initialized() {
		b.manager.driver.DestroyBuffer(b.Handle, nil)
		b.Handle = core1_0.Buffer{}
	}
	if b.alloc != nil {
		b.manager.allocator.Free(b.alloc)
		b.alloc = nil
	}
}

// CreateBuffer creates a buffer of size bytes. Host-visible buffers are
// placed in host-visible, host-coherent memory and stay mapped; all others
// are device-local.
func (m *Manager) CreateBuffer(name string, usage core1_0.BufferUsageFlags, size int, hostVisible bool) (*Buffer, error) {
	if size <= 0 {
		return nil, errors.Mark(errors.Newf("buffer %s has size %d", name, size), gpuerr.ErrResourceCreation)
	}

	handle, _, err := m.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create buffer %s", name)
	}

	buffer := &Buffer{
		Handle:  handle,
		Size:    size,
		Usage:   usage,
		Name:    name,
		manager: m,
	}

	properties := core1_0.MemoryPropertyDeviceLocal
	if hostVisible {
		properties = core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent
	}

	buffer.alloc, err = m.allocator.BindBuffer(name, handle, properties)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	m.logger.Debug("buffer created",
		slog.String("name", name),
		slog.Int("size", size),
		slog.Bool("host_visible", hostVisible))
	return buffer, nil
}

// UploadViaStaging copies src into the device-local buffer dst through a
// transient staging buffer, blocking until the copy has completed.
func (m *Manager) UploadViaStaging(dst *Buffer, src []byte) error {
	if len(src) > dst.Size {
		return errors.Newf("upload of %d bytes overflows buffer %s of %d bytes", len(src), dst.Name, dst.Size)
	}

	staging, err := m.CreateBuffer(dst.Name+" staging", core1_0.BufferUsageTransferSrc, len(src), true)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	err = staging.Write(0, src)
	if err != nil {
		return err
	}

	return m.OneShot(func(cb core1_0.CommandBuffer) error {
		return m.driver.CmdCopyBuffer(cb, staging.Handle, dst.Handle, core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      len(src),
		})
	})
}

// CreateDeviceBuffer creates a device-local buffer holding data.
func (m *Manager) CreateDeviceBuffer(name string, usage core1_0.BufferUsageFlags, data []byte) (*Buffer, error) {
	buffer, err := m.CreateBuffer(name, usage|core1_0.BufferUsageTransferDst, len(data), false)
	if err != nil {
		return nil, err
	}

	err = m.UploadViaStaging(buffer, data)
	if err != nil {
		buffer.Destroy()
		return nil, gpuerr.Resource(err, "upload %s", name)
	}
	return buffer, nil
}
