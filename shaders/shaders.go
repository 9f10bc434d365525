package shaders

import (
	_ "embed"
)

//go:embed geometry.wgsl
var GeometryWGSL string

//go:embed lighting.wgsl
var LightingWGSL string

//go:embed bbox.wgsl
var BoxWGSL string
