package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Cutoffs matching the fragment stages in the shaders package.
const (
	AlphaCutoff  = 0.05
	WeightCutoff = 0.001
)

// PointLight illuminates geometry within Radius of Position. Intensity scales
// the color before attenuation.
type PointLight struct {
	Color     mgl32.Vec3
	Intensity float32
	Position  mgl32.Vec3
	Radius    float32
}

// DirectionLight illuminates all geometry from a fixed direction. Direction
// must be normalized by the producer.
type DirectionLight struct {
	Color     mgl32.Vec3
	Intensity float32
	Direction mgl32.Vec3
}

// BoxRecord is one wireframe box of the overlay pass.
type BoxRecord struct {
	Min   mgl32.Vec3
	Max   mgl32.Vec3
	Color mgl32.Vec4
}

// At maps a unit-cube position into the box span, mirroring the overlay
// vertex stage.
func (b BoxRecord) At(unit mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		b.Min.X() + unit.X()*(b.Max.X()-b.Min.X()),
		b.Min.Y() + unit.Y()*(b.Max.Y()-b.Min.Y()),
		b.Min.Z() + unit.Z()*(b.Max.Z()-b.Min.Z()),
	}
}

// DirectionalWeight mirrors the directional fragment stage: the diffuse
// factor for a surface normal lit from direction.
func DirectionalWeight(direction, normal mgl32.Vec3) float32 {
	w := -direction.Normalize().Dot(normal)
	if w < 0 {
		return 0
	}
	return w
}

// PointLightWeight mirrors the point-light fragment stage: distance
// attenuation with falloff constant k times the diffuse factor. Fragments
// below WeightCutoff are discarded on the GPU.
func PointLightWeight(world, normal mgl32.Vec3, light PointLight, k float32) float32 {
	d := world.Sub(light.Position).Len() / light.Radius
	attenuation := light.Intensity / (k*d*d + 1)

	facing := -world.Sub(light.Position).Normalize().Dot(normal)
	if facing < 0 {
		facing = 0
	}
	return attenuation * facing
}

// AmbientContribution mirrors the ambient fragment stage: gbuffer diffuse
// modulated by the ambient color.
func AmbientContribution(diffuse, ambient mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{
		diffuse.X() * ambient.X(),
		diffuse.Y() * ambient.Y(),
		diffuse.Z() * ambient.Z(),
		diffuse.W() * ambient.W(),
	}
}

// PassesAlphaTest reports whether a fragment survives the alpha guard shared
// by the geometry and overlay stages.
func PassesAlphaTest(alpha float32) bool {
	return alpha >= AlphaCutoff
}

// HasGeometry reports whether a depth sample covers geometry. Cleared depth
// reads 1.0 and every lighting sub-draw discards there.
func HasGeometry(depth float32) bool {
	return depth < 1
}
