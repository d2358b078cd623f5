package geom

import (
	"github.com/go-gl/mathgl/mgl32"
)

var faceColors = [6]mgl32.Vec3{
	{1, 0.3, 0.3},
	{0.3, 1, 0.3},
	{0.3, 0.3, 1},
	{1, 1, 0.3},
	{0.3, 1, 1},
	{1, 0.3, 1},
}

// cubeFaces lists each face's corners counter-clockwise as seen from
// outside the cube, in +X -X +Y -Y +Z -Z order.
var cubeFaces = [6][4]mgl32.Vec3{
	{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}},
	{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}},
	{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}},
	{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}},
	{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}},
	{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}},
}

var quadUVs = [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

// Cube is a cube of the given half extent centered on the origin, with
// outward-facing counter-clockwise triangles.
func Cube(halfExtent float32) ([]Vertex, []uint32) {
	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)

	for face, corners := range cubeFaces {
		base := uint32(len(vertices))
		for corner, position := range corners {
			vertices = append(vertices, Vertex{
				Position: position.Mul(halfExtent),
				Color:    faceColors[face],
				TexCoord: quadUVs[corner],
			})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}

	return vertices, indices
}

// Triangle is a single triangle in normalized device coordinates, counter-
// clockwise in framebuffer space, with red, green and blue corners.
func Triangle() ([]Vertex, []uint32) {
	return []Vertex{
		{Position: mgl32.Vec3{0, -0.5, 0.5}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{0.5, 0}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0.5}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{0.5, 0.5, 0.5}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{1, 1}},
	}, []uint32{0, 1, 2}
}

// Grid places count instances on a square grid in the XZ plane.
func Grid(count int, spacing, scale float32) []Instance {
	if count <= 0 {
		return nil
	}

	side := 1
	for side*side < count {
		side++
	}
	center := float32(side-1) * spacing / 2

	instances := make([]Instance, 0, count)
	for i := 0; i < count; i++ {
		row, col := i/side, i%side
		instances = append(instances, Instance{
			Offset: mgl32.Vec3{float32(col)*spacing - center, 0, float32(row)*spacing - center},
			Scale:  scale,
		})
	}
	return instances
}
