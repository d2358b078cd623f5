package geom

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, uintptr(32), unsafe.Sizeof(Vertex{}))
	assert.Equal(t, uintptr(16), unsafe.Sizeof(Instance{}))
	assert.Equal(t, uintptr(192), unsafe.Sizeof(UniformBufferObject{}))
	assert.Equal(t, uintptr(16), unsafe.Sizeof(PushConstants{}))
}

func TestBytesMatchesLayout(t *testing.T) {
	vertices, _ := Cube(1)
	b, err := Bytes(vertices)
	require.NoError(t, err)
	assert.Len(t, b, len(vertices)*int(unsafe.Sizeof(Vertex{})))

	b, err = Bytes(Identity())
	require.NoError(t, err)
	assert.Len(t, b, 192)
}

func TestVertexInput(t *testing.T) {
	assert.Len(t, VertexBindings(false), 1)
	assert.Len(t, VertexAttributes(false), 3)

	bindings := VertexBindings(true)
	require.Len(t, bindings, 2)
	assert.Equal(t, InstanceBinding, bindings[1].Binding)
	assert.Equal(t, 16, bindings[1].Stride)

	attributes := VertexAttributes(true)
	require.Len(t, attributes, 5)
	seen := map[int]bool{}
	for _, a := range attributes {
		assert.False(t, seen[a.Location], "duplicate location %d", a.Location)
		seen[a.Location] = true
	}
	assert.Equal(t, 12, attributes[1].Offset)
	assert.Equal(t, 24, attributes[2].Offset)
}

func TestCubeFacesPointOutward(t *testing.T) {
	vertices, indices := Cube(0.5)
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)

	for i := 0; i < len(indices); i += 3 {
		a := vertices[indices[i]].Position
		b := vertices[indices[i+1]].Position
		c := vertices[indices[i+2]].Position

		normal := b.Sub(a).Cross(c.Sub(a))
		centroid := a.Add(b).Add(c).Mul(1.0 / 3)
		assert.Greater(t, normal.Dot(centroid), float32(0), "triangle %d faces inward", i/3)
	}

	for _, v := range vertices {
		for _, c := range v.Position {
			assert.InDelta(t, 0.5, mgl32.Abs(c), 1e-6)
		}
	}
}

func TestTriangleIsCounterClockwiseInFramebuffer(t *testing.T) {
	vertices, indices := Triangle()
	require.Len(t, indices, 3)

	a, b, c := vertices[0].Position, vertices[1].Position, vertices[2].Position
	// Framebuffer y grows downward, so the signed area flips relative to
	// the usual math convention.
	area := (b.X()-a.X())*(c.Y()-a.Y()) - (c.X()-a.X())*(b.Y()-a.Y())
	assert.Less(t, area, float32(0))
}

func TestGrid(t *testing.T) {
	assert.Nil(t, Grid(0, 1, 1))

	instances := Grid(4, 2, 0.5)
	require.Len(t, instances, 4)
	assert.Equal(t, mgl32.Vec3{-1, 0, -1}, instances[0].Offset)
	assert.Equal(t, mgl32.Vec3{1, 0, 1}, instances[3].Offset)

	assert.Len(t, Grid(5, 1, 1), 5)
}

func TestOrbitFlipsY(t *testing.T) {
	ubo := Orbit(0, 1)
	assert.Less(t, ubo.Proj.At(1, 1), float32(0))
	assert.Equal(t, mgl32.Ident4(), ubo.Model)

	sky := SkyboxView(ubo)
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, sky.View.Col(3))
}
