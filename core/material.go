package core

// MaterialKind selects the geometry-pass shader variant.
type MaterialKind uint8

const (
	MaterialSolidColor MaterialKind = iota
	MaterialTextured
	MaterialUV
	MaterialGradient
	MaterialBillboard
)

func (k MaterialKind) String() string {
	switch k {
	case MaterialSolidColor:
		return "solid"
	case MaterialTextured:
		return "textured"
	case MaterialUV:
		return "uv"
	case MaterialGradient:
		return "gradient"
	case MaterialBillboard:
		return "billboard"
	}
	return "unknown"
}

// Material describes how a mesh is shaded in the geometry pass. Texture and
// Sampler are set for MaterialTextured only; BaseColor feeds the solid and
// billboard variants.
type Material struct {
	Kind      MaterialKind
	BaseColor [4]uint8 // RGBA
	Texture   AssetID
	Sampler   AssetID
}

func NewColorMaterial(baseColor [4]uint8) Material {
	return Material{
		Kind:      MaterialSolidColor,
		BaseColor: baseColor,
	}
}

func NewTexturedMaterial(texture, sampler AssetID) Material {
	return Material{
		Kind:      MaterialTextured,
		BaseColor: [4]uint8{255, 255, 255, 255},
		Texture:   texture,
		Sampler:   sampler,
	}
}

func NewBillboardMaterial(baseColor [4]uint8) Material {
	return Material{
		Kind:      MaterialBillboard,
		BaseColor: baseColor,
	}
}

// Helper for default white
func DefaultMaterial() Material {
	return NewColorMaterial([4]uint8{255, 255, 255, 255})
}
