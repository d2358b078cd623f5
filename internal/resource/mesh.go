package resource

import (
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Mesh owns a vertex buffer, an index buffer and the texture drawn on it.
// The three are destroyed together.
type Mesh struct {
	Name       string
	Vertices   *Buffer
	Indices    *Buffer
	IndexCount int
	Texture    *Image
}

// CreateMesh uploads vertex and index data into device-local buffers. The
// mesh takes ownership of texture.
func (m *Manager) CreateMesh(name string, vertices []byte, indices []uint32, texture *Image) (*Mesh, error) {
	mesh := &Mesh{
		Name:       name,
		IndexCount: len(indices),
		Texture:    texture,
	}

	var err error
	mesh.Vertices, err = m.CreateDeviceBuffer(name+" vertices", core1_0.BufferUsageVertexBuffer, vertices)
	if err != nil {
		mesh.Destroy()
		return nil, err
	}

	mesh.Indices, err = m.CreateDeviceBuffer(name+" indices", core1_0.BufferUsageIndexBuffer, IndexBytes(indices))
	if err != nil {
		mesh.Destroy()
		return nil, err
	}

	return mesh, nil
}

// Destroy releases the buffers and the texture. Safe to call more than once.
func (m *Mesh) Destroy() {
	if m.Indices != nil {
		m.Indices.Destroy()
	}
	if m.Vertices != nil {
		m.Vertices.Destroy()
	}
	if m.Texture != nil {
		m.Texture.Destroy()
	}
}

// IndexBytes encodes 32-bit indices in the device byte order.
func IndexBytes(indices []uint32) []byte {
	out := make([]byte, 4*len(indices))
	for i, index := range indices {
		common.ByteOrder.PutUint32(out[4*i:], index)
	}
	return out
}
