package gpu

import (
	"encoding/binary"
	"math"

	"github.com/Dolbhi/deferred-renderer/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Matches WGSL GlobalData
// struct GlobalData {
//    view : mat4x4<f32>; (64)
//    proj : mat4x4<f32>; (64)
//    view_proj : mat4x4<f32>; (64)
//    inv_view_proj : mat4x4<f32>; (64)
// }; -> 256 bytes

const GlobalDataSize = 256

type GlobalData struct {
	View        mgl32.Mat4
	Proj        mgl32.Mat4
	ViewProj    mgl32.Mat4
	InvViewProj mgl32.Mat4
}

func NewGlobalData(camera core.CameraData) GlobalData {
	viewProj := camera.Proj.Mul4(camera.View)
	return GlobalData{
		View:        camera.View,
		Proj:        camera.Proj,
		ViewProj:    viewProj,
		InvViewProj: viewProj.Inv(),
	}
}

func (g *GlobalData) ToBytes() []byte {
	buf := make([]byte, GlobalDataSize)
	putMat4(buf[0:64], g.View)
	putMat4(buf[64:128], g.Proj)
	putMat4(buf[128:192], g.ViewProj)
	putMat4(buf[192:256], g.InvViewProj)
	return buf
}

// Matches WGSL ObjectData
// struct ObjectData {
//    model : mat4x4<f32>; (64)
//    normal : mat4x4<f32>; (64)
// }; -> 128 bytes

const ObjectDataSize = 128

func PackInstances(instances []core.InstanceData) []byte {
	buf := make([]byte, len(instances)*ObjectDataSize)
	for i, inst := range instances {
		base := i * ObjectDataSize
		putMat4(buf[base:base+64], inst.Model)
		putMat4(buf[base+64:base+128], inst.Normal)
	}
	return buf
}

// Matches WGSL PointLight
// struct PointLight {
//    color : vec4<f32>; (16, rgb + intensity in w)
//    position : vec4<f32>; (16, xyz + radius in w)
// }; -> 32 bytes

const PointLightSize = 32

func PackPointLights(lights []core.PointLight) []byte {
	buf := make([]byte, len(lights)*PointLightSize)
	for i, l := range lights {
		base := i * PointLightSize
		putVec3w(buf[base:base+16], l.Color, l.Intensity)
		putVec3w(buf[base+16:base+32], l.Position, l.Radius)
	}
	return buf
}

// Matches WGSL DirectionLight
// struct DirectionLight {
//    color : vec4<f32>; (16, rgb + intensity in w)
//    direction : vec4<f32>; (16, xyz, w unused)
// }; -> 32 bytes

const DirectionLightSize = 32

func PackDirectionLights(lights []core.DirectionLight) []byte {
	buf := make([]byte, len(lights)*DirectionLightSize)
	for i, l := range lights {
		base := i * DirectionLightSize
		putVec3w(buf[base:base+16], l.Color, l.Intensity)
		putVec3w(buf[base+16:base+32], l.Direction, 0)
	}
	return buf
}

// Matches WGSL BoxRecord
// struct BoxRecord {
//    min : vec4<f32>; (16)
//    max : vec4<f32>; (16)
//    color : vec4<f32>; (16)
// }; -> 48 bytes

const BoxRecordSize = 48

func PackBoxes(boxes []core.BoxRecord) []byte {
	buf := make([]byte, len(boxes)*BoxRecordSize)
	for i, b := range boxes {
		base := i * BoxRecordSize
		putVec3w(buf[base:base+16], b.Min, 0)
		putVec3w(buf[base+16:base+32], b.Max, 0)
		putVec4(buf[base+32:base+48], b.Color)
	}
	return buf
}

// Matches WGSL LightingParams
// struct LightingParams {
//    ambient_color : vec4<f32>; (16)
//    attenuation_k : f32; (4)
//    padding : f32[3]; (12)
// }; -> 32 bytes

const LightingParamsSize = 32

func PackLightingParams(ambient mgl32.Vec4, attenuationK float32) []byte {
	buf := make([]byte, LightingParamsSize)
	putVec4(buf[0:16], ambient)
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(attenuationK))
	// Padding
	return buf
}

// Matches WGSL MaterialData
// struct MaterialData {
//    color : vec4<f32>; (16)
// }; -> 16 bytes

const MaterialDataSize = 16

func PackMaterialColor(color [4]uint8) []byte {
	buf := make([]byte, MaterialDataSize)
	for i, c := range color {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(float32(c)/255.0))
	}
	return buf
}

func putMat4(buf []byte, m mgl32.Mat4) {
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(m[i]))
	}
}

func putVec3w(buf []byte, v mgl32.Vec3, w float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.X()))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Y()))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Z()))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(w))
}

func putVec4(buf []byte, v mgl32.Vec4) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.X()))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Y()))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Z()))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.W()))
}
