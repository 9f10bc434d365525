package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexFull is the geometry-pass vertex layout: position, normal, vertex
// color and uv, tightly packed as 11 floats.
type VertexFull struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec3
	UV       mgl32.Vec2
}

const VertexFullSize = 11 * 4

// MeshData is mesh geometry on the host side, before upload.
type MeshData struct {
	Name     string
	Vertices []VertexFull
	Indices  []uint32
}

// SquareMesh is a half-unit green square in the XY plane facing +Z.
func SquareMesh() MeshData {
	return MeshData{
		Name: "square",
		Vertices: []VertexFull{
			{Position: mgl32.Vec3{-0.25, -0.25, 0}, Normal: mgl32.Vec3{0, 0, 1}, Color: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{0, 0}},
			{Position: mgl32.Vec3{0.25, -0.25, 0}, Normal: mgl32.Vec3{0, 0, 1}, Color: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{1, 0}},
			{Position: mgl32.Vec3{-0.25, 0.25, 0}, Normal: mgl32.Vec3{0, 0, 1}, Color: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{0, 1}},
			{Position: mgl32.Vec3{0.25, 0.25, 0}, Normal: mgl32.Vec3{0, 0, 1}, Color: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{1, 1}},
		},
		Indices: []uint32{0, 1, 2, 2, 1, 3},
	}
}

// CubeMesh is a unit cube centered at the origin with per-face normals and
// per-face uvs.
func CubeMesh() MeshData {
	faces := []struct {
		normal mgl32.Vec3
		right  mgl32.Vec3
		up     mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}

	mesh := MeshData{Name: "cube"}
	for _, f := range faces {
		center := f.normal.Mul(0.5)
		base := uint32(len(mesh.Vertices))
		for _, corner := range [][2]float32{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
			pos := center.
				Add(f.right.Mul(0.5 * corner[0])).
				Add(f.up.Mul(0.5 * corner[1]))
			mesh.Vertices = append(mesh.Vertices, VertexFull{
				Position: pos,
				Normal:   f.normal,
				Color:    mgl32.Vec3{1, 1, 1},
				UV:       mgl32.Vec2{(corner[0] + 1) / 2, (corner[1] + 1) / 2},
			})
		}
		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base+2, base+1, base+3)
	}
	return mesh
}

// ParseOBJ reads a wavefront OBJ stream and returns one MeshData per object.
// Faces are triangulated fan-wise; position/uv/normal index triples are
// deduplicated into a single index stream. Vertex colors default to white and
// the uv v coordinate is flipped to top-left origin.
func ParseOBJ(r io.Reader) ([]MeshData, error) {
	var (
		positions []mgl32.Vec3
		normals   []mgl32.Vec3
		uvs       []mgl32.Vec2

		meshes  []MeshData
		current MeshData
		lookup  = map[[3]int]uint32{}
	)

	flush := func() {
		if len(current.Indices) > 0 {
			meshes = append(meshes, current)
		}
		current = MeshData{}
		lookup = map[[3]int]uint32{}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "o", "g":
			flush()
			if len(fields) > 1 {
				current.Name = fields[1]
			}

		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
			}
			positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})

		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
			}
			normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})

		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
			}
			uvs = append(uvs, mgl32.Vec2{v[0], v[1]})

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: face needs at least 3 vertices", lineNo)
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, spec := range fields[1:] {
				idx, err := objVertex(spec, positions, uvs, normals, &current, lookup)
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
				}
				face = append(face, idx)
			}
			for i := 2; i < len(face); i++ {
				current.Indices = append(current.Indices, face[0], face[i-1], face[i])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	if len(meshes) == 0 {
		return nil, fmt.Errorf("obj: no faces")
	}
	return meshes, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func objVertex(spec string, positions []mgl32.Vec3, uvs []mgl32.Vec2, normals []mgl32.Vec3, mesh *MeshData, lookup map[[3]int]uint32) (uint32, error) {
	parts := strings.Split(spec, "/")

	var key [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		if parts[i] == "" {
			continue
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("bad face index %q", spec)
		}
		key[i] = n
	}

	if idx, ok := lookup[key]; ok {
		return idx, nil
	}

	resolve := func(n, count int) (int, error) {
		if n < 0 {
			n = count + n + 1
		}
		if n < 1 || n > count {
			return 0, fmt.Errorf("face index %d out of range", n)
		}
		return n - 1, nil
	}

	pi, err := resolve(key[0], len(positions))
	if err != nil {
		return 0, err
	}
	vertex := VertexFull{
		Position: positions[pi],
		Color:    mgl32.Vec3{1, 1, 1},
	}
	if key[1] != 0 {
		ti, err := resolve(key[1], len(uvs))
		if err != nil {
			return 0, err
		}
		vertex.UV = mgl32.Vec2{uvs[ti].X(), 1 - uvs[ti].Y()}
	}
	if key[2] != 0 {
		ni, err := resolve(key[2], len(normals))
		if err != nil {
			return 0, err
		}
		vertex.Normal = normals[ni]
	}

	idx := uint32(len(mesh.Vertices))
	mesh.Vertices = append(mesh.Vertices, vertex)
	lookup[key] = idx
	return idx, nil
}
