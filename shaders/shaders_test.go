package shaders

import (
	"strings"
	"testing"
)

// fragmentBody cuts the named function's body, opening brace to the next
// attribute block, so guards can be checked per entry point.
func fragmentBody(t *testing.T, source, name string) string {
	t.Helper()

	start := strings.Index(source, "fn "+name)
	if start < 0 {
		t.Fatalf("entry point %s not found", name)
	}
	body := source[start:]
	if open := strings.Index(body, "{"); open >= 0 {
		body = body[open:]
	}
	if end := strings.Index(body, "\n@"); end >= 0 {
		return body[:end]
	}
	return body
}

func TestGeometryEntryPoints(t *testing.T) {
	for _, name := range []string{"vs_main", "vs_billboard", "fs_textured", "fs_solid", "fs_uv", "fs_gradient"} {
		if !strings.Contains(GeometryWGSL, "fn "+name) {
			t.Errorf("geometry shader missing entry point %s", name)
		}
	}
}

func TestLightingEntryPoints(t *testing.T) {
	for _, name := range []string{"vs_fullscreen", "vs_point", "fs_ambient", "fs_directional", "fs_point"} {
		if !strings.Contains(LightingWGSL, "fn "+name) {
			t.Errorf("lighting shader missing entry point %s", name)
		}
	}
}

func TestBoxEntryPoints(t *testing.T) {
	for _, name := range []string{"vs_main", "fs_main"} {
		if !strings.Contains(BoxWGSL, "fn "+name) {
			t.Errorf("box shader missing entry point %s", name)
		}
	}
}

// Every lighting sub-draw must bail out on background pixels before doing any
// shading work.
func TestLightingFragmentsGuardDepth(t *testing.T) {
	for _, name := range []string{"fs_ambient", "fs_directional", "fs_point"} {
		body := fragmentBody(t, LightingWGSL, name)
		guard := strings.Index(body, "depth >= 1.0")
		if guard < 0 {
			t.Errorf("%s missing depth guard", name)
			continue
		}
		discard := strings.Index(body, "discard")
		if discard < guard {
			t.Errorf("%s discards before the depth guard", name)
		}
	}
}

func TestAlphaTestGuards(t *testing.T) {
	for _, name := range []string{"fs_textured", "fs_solid"} {
		body := fragmentBody(t, GeometryWGSL, name)
		if !strings.Contains(body, "0.05") || !strings.Contains(body, "discard") {
			t.Errorf("%s missing alpha cutoff discard", name)
		}
	}
	if body := fragmentBody(t, BoxWGSL, "fs_main"); !strings.Contains(body, "0.05") {
		t.Error("box fragment missing alpha cutoff")
	}
}

func TestPointFragmentWeightCutoff(t *testing.T) {
	body := fragmentBody(t, LightingWGSL, "fs_point")
	if !strings.Contains(body, "weight < 0.001") {
		t.Error("point fragment missing weight cutoff")
	}
}
