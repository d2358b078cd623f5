// Package geom defines the vertex, instance and uniform layouts shared by the
// host and the shaders, and the built-in geometry.
package geom

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const (
	VertexBinding   = 0
	InstanceBinding = 1
)

type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Instance is the per-instance data of an instanced draw.
type Instance struct {
	Offset mgl32.Vec3
	Scale  float32
}

// UniformBufferObject matches the uniform block at set 0, binding 0.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// PushConstants is the push constant block shared by the fragment and
// compute stages.
type PushConstants struct {
	DebugView uint32
	Time      float32
	_         [2]uint32
}

func VertexBindings(instanced bool) []core1_0.VertexInputBindingDescription {
	bindings := []core1_0.VertexInputBindingDescription{
		{
			Binding:   VertexBinding,
			Stride:    int(unsafe.Sizeof(Vertex{})),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
	if instanced {
		bindings = append(bindings, core1_0.VertexInputBindingDescription{
			Binding:   InstanceBinding,
			Stride:    int(unsafe.Sizeof(Instance{})),
			InputRate: core1_0.VertexInputRateInstance,
		})
	}
	return bindings
}

func VertexAttributes(instanced bool) []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	attributes := []core1_0.VertexInputAttributeDescription{
		{
			Binding:  VertexBinding,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  VertexBinding,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
		{
			Binding:  VertexBinding,
			Location: 2,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.TexCoord)),
		},
	}
	if instanced {
		i := Instance{}
		attributes = append(attributes,
			core1_0.VertexInputAttributeDescription{
				Binding:  InstanceBinding,
				Location: 3,
				Format:   core1_0.FormatR32G32B32SignedFloat,
				Offset:   int(unsafe.Offsetof(i.Offset)),
			},
			core1_0.VertexInputAttributeDescription{
				Binding:  InstanceBinding,
				Location: 4,
				Format:   core1_0.FormatR32SignedFloat,
				Offset:   int(unsafe.Offsetof(i.Scale)),
			},
		)
	}
	return attributes
}

// Bytes encodes data in the device byte order. data must be fixed size, as
// accepted by binary.Write.
func Bytes(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
