package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	camSpeed         = 2.0
	mouseSensitivity = 0.01
	maxPitch         = math.Pi / 4
)

// CameraData is the matrix pair handed to the renderer each frame.
type CameraData struct {
	View mgl32.Mat4
	Proj mgl32.Mat4
}

// Camera is a fly camera: a position and a quaternion orientation.
// The view matrix is rotation * translate(-position).
type Camera struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Fov      float32
	Near     float32
	Far      float32
}

func NewCamera() *Camera {
	return &Camera{
		Position: mgl32.Vec3{0, 0, 1},
		Rotation: mgl32.QuatIdent(),
		Fov:      1.2,
		Near:     0.1,
		Far:      200,
	}
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(-c.Position.X(), -c.Position.Y(), -c.Position.Z())
	return c.Rotation.Mat4().Mul4(t)
}

func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(c.Fov, aspect, c.Near, c.Far)
}

func (c *Camera) Data(aspect float32) CameraData {
	return CameraData{
		View: c.ViewMatrix(),
		Proj: c.ProjectionMatrix(aspect),
	}
}

// BillboardBasis extracts the camera-aligned right and up axes from a view
// matrix, as the billboard vertex stages do.
func BillboardBasis(view mgl32.Mat4) (right, up mgl32.Vec3) {
	return view.Row(0).Vec3(), view.Row(1).Vec3()
}

func (c *Camera) rightVector() mgl32.Vec3 {
	return c.Rotation.Conjugate().Rotate(mgl32.Vec3{1, 0, 0})
}

// forwardVector is horizontal: the camera never flies along its pitched axis.
func (c *Camera) forwardVector() mgl32.Vec3 {
	return c.rightVector().Cross(mgl32.Vec3{0, -1, 0})
}

func (c *Camera) MoveForward(seconds float32) {
	c.Position = c.Position.Add(c.forwardVector().Mul(seconds * camSpeed))
}

func (c *Camera) MoveBack(seconds float32) {
	c.Position = c.Position.Sub(c.forwardVector().Mul(seconds * camSpeed))
}

func (c *Camera) MoveRight(seconds float32) {
	c.Position = c.Position.Add(c.rightVector().Mul(seconds * camSpeed))
}

func (c *Camera) MoveLeft(seconds float32) {
	c.Position = c.Position.Sub(c.rightVector().Mul(seconds * camSpeed))
}

func (c *Camera) MoveUp(seconds float32) {
	c.Position[1] += seconds * camSpeed
}

func (c *Camera) MoveDown(seconds float32) {
	c.Position[1] -= seconds * camSpeed
}

// Rotate applies a mouse delta: yaw around world Y, pitch around the local X
// axis, with pitch clamped to ±45 degrees.
func (c *Camera) Rotate(dx, dy float32) {
	oldPitch := float32(math.Atan(float64(c.Rotation.V.X() / c.Rotation.W)))
	deltaPitch := mgl32.Clamp(dy*mouseSensitivity, -maxPitch-oldPitch, maxPitch-oldPitch)

	pitch := mgl32.QuatRotate(deltaPitch, mgl32.Vec3{1, 0, 0})
	yaw := mgl32.QuatRotate(dx*mouseSensitivity, mgl32.Vec3{0, 1, 0})
	c.Rotation = pitch.Mul(c.Rotation).Mul(yaw)
}
