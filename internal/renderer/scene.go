package renderer

import (
	"image"

	"GopherPBR/internal/ibl"

	"github.com/go-gl/mathgl/mgl32"
)

// SceneLoader parses model and environment files. It runs off the frame
// loop goroutine and must not touch GPU state.
type SceneLoader interface {
	LoadModel(path string) (*SceneSource, error)
	LoadEnvironment(path string) (*ibl.Panorama, error)
}

// TextureRef names a decoded material texture. Key is the identity used to
// share one GPU texture between meshes; two refs with the same Key must
// carry the same pixels.
type TextureRef struct {
	Key   string
	Image *image.RGBA
}

// MaterialSource holds the five optional texture slots plus the constant
// factors they are multiplied with.
type MaterialSource struct {
	Albedo    *TextureRef
	Normal    *TextureRef
	Metalness *TextureRef // sampled from the blue channel
	Roughness *TextureRef // sampled from the green channel
	AO        *TextureRef // sampled from the red channel

	AlbedoFactor    mgl32.Vec4
	MetalnessFactor float32
	RoughnessFactor float32
}

// DefaultMaterial is a white dielectric with medium roughness.
func DefaultMaterial() MaterialSource {
	return MaterialSource{
		AlbedoFactor:    mgl32.Vec4{1, 1, 1, 1},
		MetalnessFactor: 0,
		RoughnessFactor: 0.5,
	}
}

// MeshSource is one triangle mesh as delivered by the loader. Normals,
// tangents, UVs and indices are optional; a nil slice means the attribute
// is missing.
type MeshSource struct {
	Name        string
	Positions   []mgl32.Vec3
	Normals     []mgl32.Vec3
	Tangents    []mgl32.Vec4
	UVs         []mgl32.Vec2
	Indices     []uint32
	WorldMatrix mgl32.Mat4
	Material    MaterialSource
}

// SceneSource is a flattened scene graph: every mesh already carries its
// accumulated world transform.
type SceneSource struct {
	Name   string
	Meshes []MeshSource
}

// Bounds returns the world-space axis aligned bounding box of all meshes.
func (s *SceneSource) Bounds() (min, max mgl32.Vec3, ok bool) {
	for _, m := range s.Meshes {
		for _, p := range m.Positions {
			w := m.WorldMatrix.Mul4x1(p.Vec4(1)).Vec3()
			if !ok {
				min, max, ok = w, w, true
				continue
			}
			for i := 0; i < 3; i++ {
				if w[i] < min[i] {
					min[i] = w[i]
				}
				if w[i] > max[i] {
					max[i] = w[i]
				}
			}
		}
	}
	return min, max, ok
}

// VertexCount sums the vertices of every mesh.
func (s *SceneSource) VertexCount() int {
	n := 0
	for _, m := range s.Meshes {
		n += len(m.Positions)
	}
	return n
}

// TriangleCount sums the triangles of every mesh.
func (s *SceneSource) TriangleCount() int {
	n := 0
	for _, m := range s.Meshes {
		if m.Indices != nil {
			n += len(m.Indices) / 3
		} else {
			n += len(m.Positions) / 3
		}
	}
	return n
}
