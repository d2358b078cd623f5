package geom

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Identity leaves positions in normalized device coordinates.
func Identity() UniformBufferObject {
	return UniformBufferObject{
		Model: mgl32.Ident4(),
		View:  mgl32.Ident4(),
		Proj:  mgl32.Ident4(),
	}
}

// Orbit is the scene transform at time seconds: the model spins around Y
// and the camera looks at the origin from a fixed point. The projection is
// flipped in Y for Vulkan clip space.
func Orbit(seconds float32, aspect float32) UniformBufferObject {
	proj := mgl32.Perspective(mgl32.DegToRad(45), aspect, 0.1, 100)
	proj.Set(1, 1, -proj.At(1, 1))

	return UniformBufferObject{
		Model: mgl32.HomogRotate3DY(seconds * mgl32.DegToRad(45)),
		View: mgl32.LookAtV(
			mgl32.Vec3{2, 2, 2},
			mgl32.Vec3{0, 0, 0},
			mgl32.Vec3{0, 1, 0},
		),
		Proj: proj,
	}
}

// SkyboxView drops the translation from view so the skybox stays centered
// on the camera.
func SkyboxView(ubo UniformBufferObject) UniformBufferObject {
	view := ubo.View.Mat3().Mat4()
	return UniformBufferObject{
		Model: mgl32.Ident4(),
		View:  view,
		Proj:  ubo.Proj,
	}
}
