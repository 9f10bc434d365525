package gpu

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/Dolbhi/deferred-renderer/core"
	"github.com/go-gl/mathgl/mgl32"
)

func readFloat(t *testing.T, buf []byte, offset int) float32 {
	t.Helper()
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}

func TestGlobalDataLayout(t *testing.T) {
	camera := core.CameraData{
		View: mgl32.Translate3D(0, 0, -5),
		Proj: mgl32.Perspective(1.2, 16.0/9.0, 0.1, 200),
	}
	global := NewGlobalData(camera)
	data := global.ToBytes()

	if len(data) != GlobalDataSize {
		t.Fatalf("GlobalData size = %d, want %d", len(data), GlobalDataSize)
	}

	// view at offset 0, column-major
	for i := 0; i < 16; i++ {
		if got := readFloat(t, data, i*4); got != camera.View[i] {
			t.Fatalf("view[%d] = %f, want %f", i, got, camera.View[i])
		}
	}

	// view_proj at offset 128 must be proj * view
	wantVP := camera.Proj.Mul4(camera.View)
	for i := 0; i < 16; i++ {
		if got := readFloat(t, data, 128+i*4); got != wantVP[i] {
			t.Fatalf("view_proj[%d] = %f, want %f", i, got, wantVP[i])
		}
	}
}

func TestGlobalDataInverseRoundTrip(t *testing.T) {
	camera := core.CameraData{
		View: mgl32.HomogRotate3DY(0.7).Mul4(mgl32.Translate3D(1, -2, 3)),
		Proj: mgl32.Perspective(1.2, 1.5, 0.1, 200),
	}
	global := NewGlobalData(camera)

	identity := global.ViewProj.Mul4(global.InvViewProj)
	want := mgl32.Ident4()
	for i := 0; i < 16; i++ {
		if diff := identity[i] - want[i]; diff < -1e-4 || diff > 1e-4 {
			t.Fatalf("view_proj * inv_view_proj not identity at %d: %f", i, identity[i])
		}
	}
}

func TestPackInstances(t *testing.T) {
	model := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 1, 1))
	instances := []core.InstanceData{
		{Model: mgl32.Ident4(), Normal: mgl32.Ident4()},
		{Model: model, Normal: core.NormalMatrix(model)},
	}

	data := PackInstances(instances)
	if len(data) != 2*ObjectDataSize {
		t.Fatalf("packed %d bytes, want %d", len(data), 2*ObjectDataSize)
	}

	// second instance's model starts at 128, translation column at +48
	base := ObjectDataSize
	if got := readFloat(t, data, base+48); got != 1 {
		t.Errorf("model translation x = %f, want 1", got)
	}
	if got := readFloat(t, data, base+52); got != 2 {
		t.Errorf("model translation y = %f, want 2", got)
	}

	// normal matrix at +64: inverse transpose of scale(2,1,1) has 0.5 at [0][0]
	if got := readFloat(t, data, base+64); got != 0.5 {
		t.Errorf("normal[0][0] = %f, want 0.5", got)
	}
}

func TestPackInstancesPrefixStable(t *testing.T) {
	instances := make([]core.InstanceData, 40)
	for i := range instances {
		m := mgl32.Translate3D(float32(i), 0, 0)
		instances[i] = core.InstanceData{Model: m, Normal: core.NormalMatrix(m)}
	}

	// A regrown buffer receives the full repack, so records packed while the
	// slice was shorter must come out byte-identical.
	few := PackInstances(instances[:3])
	all := PackInstances(instances)
	if len(all) != len(instances)*ObjectDataSize {
		t.Fatalf("packed %d bytes, want %d", len(all), len(instances)*ObjectDataSize)
	}
	if !bytes.Equal(all[:len(few)], few) {
		t.Error("leading records changed between pack sizes")
	}
}

func TestPackPointLights(t *testing.T) {
	lights := []core.PointLight{
		{Color: mgl32.Vec3{1, 0, 0}, Intensity: 3, Position: mgl32.Vec3{0, 5, -1}, Radius: 9},
		{Color: mgl32.Vec3{0, 0, 1}, Intensity: 2, Position: mgl32.Vec3{0, 6, -1}, Radius: 4},
	}

	data := PackPointLights(lights)
	if len(data) != 2*PointLightSize {
		t.Fatalf("packed %d bytes, want %d", len(data), 2*PointLightSize)
	}

	// intensity rides in color.w, radius in position.w
	if got := readFloat(t, data, 12); got != 3 {
		t.Errorf("light 0 intensity = %f, want 3", got)
	}
	if got := readFloat(t, data, 28); got != 9 {
		t.Errorf("light 0 radius = %f, want 9", got)
	}
	if got := readFloat(t, data, 32+8); got != 1 {
		t.Errorf("light 1 color b = %f, want 1", got)
	}
	if got := readFloat(t, data, 32+20); got != 6 {
		t.Errorf("light 1 position y = %f, want 6", got)
	}
}

func TestPackDirectionLights(t *testing.T) {
	lights := []core.DirectionLight{
		{Color: mgl32.Vec3{1, 1, 0}, Intensity: 1, Direction: mgl32.Vec3{0, -1, 0}},
	}

	data := PackDirectionLights(lights)
	if len(data) != DirectionLightSize {
		t.Fatalf("packed %d bytes, want %d", len(data), DirectionLightSize)
	}
	if got := readFloat(t, data, 20); got != -1 {
		t.Errorf("direction y = %f, want -1", got)
	}
	if got := readFloat(t, data, 28); got != 0 {
		t.Errorf("direction w = %f, want 0", got)
	}
}

func TestPackBoxes(t *testing.T) {
	boxes := []core.BoxRecord{
		{Min: mgl32.Vec3{-1, -2, -3}, Max: mgl32.Vec3{1, 2, 3}, Color: mgl32.Vec4{0, 1, 0, 1}},
	}

	data := PackBoxes(boxes)
	if len(data) != BoxRecordSize {
		t.Fatalf("packed %d bytes, want %d", len(data), BoxRecordSize)
	}
	if got := readFloat(t, data, 8); got != -3 {
		t.Errorf("min z = %f, want -3", got)
	}
	if got := readFloat(t, data, 16+4); got != 2 {
		t.Errorf("max y = %f, want 2", got)
	}
	if got := readFloat(t, data, 32+4); got != 1 {
		t.Errorf("color g = %f, want 1", got)
	}
	if got := readFloat(t, data, 32+12); got != 1 {
		t.Errorf("color a = %f, want 1", got)
	}
}

func TestPackLightingParams(t *testing.T) {
	data := PackLightingParams(mgl32.Vec4{0.2, 0.2, 0.2, 1}, 16)

	if len(data) != LightingParamsSize {
		t.Fatalf("packed %d bytes, want %d", len(data), LightingParamsSize)
	}
	if got := readFloat(t, data, 0); got != 0.2 {
		t.Errorf("ambient r = %f, want 0.2", got)
	}
	if got := readFloat(t, data, 16); got != 16 {
		t.Errorf("attenuation k = %f, want 16", got)
	}
	for offset := 20; offset < 32; offset += 4 {
		if got := readFloat(t, data, offset); got != 0 {
			t.Errorf("padding at %d = %f, want 0", offset, got)
		}
	}
}

func TestPackMaterialColor(t *testing.T) {
	data := PackMaterialColor([4]uint8{255, 0, 51, 255})

	if len(data) != MaterialDataSize {
		t.Fatalf("packed %d bytes, want %d", len(data), MaterialDataSize)
	}
	if got := readFloat(t, data, 0); got != 1 {
		t.Errorf("r = %f, want 1", got)
	}
	if got := readFloat(t, data, 4); got != 0 {
		t.Errorf("g = %f, want 0", got)
	}
	if got := readFloat(t, data, 8); got != 0.2 {
		t.Errorf("b = %f, want 0.2", got)
	}
}
