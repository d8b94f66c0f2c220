package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexFloatCount is the interleaved layout: position(3), normal(3),
// tangent(4), uv(2).
const (
	VertexFloatCount = 12
	VertexStride     = VertexFloatCount * 4
)

// preparedMesh is a mesh ready for upload, with missing attributes derived.
type preparedMesh struct {
	vertices      []float32
	indices       []uint32
	vertexCount   int
	normalMapping bool
	computedNorm  bool
	computedTan   bool
	center        mgl32.Vec3
	radius        float32
}

// prepareMesh validates a source mesh and fills in what the loader left
// out. Missing normals are derived from faces. Missing tangents are derived
// from UVs; without UVs normal mapping is disabled for the mesh.
func prepareMesh(src *MeshSource) (*preparedMesh, error) {
	n := len(src.Positions)
	if n == 0 {
		return nil, fmt.Errorf("mesh %q: %w", src.Name, ErrNoGeometry)
	}

	indices := src.Indices
	if indices == nil {
		indices = make([]uint32, n-n%3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	indices = indices[:len(indices)-len(indices)%3]
	if len(indices) == 0 {
		return nil, fmt.Errorf("mesh %q has no triangles: %w", src.Name, ErrNoGeometry)
	}
	for _, idx := range indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("mesh %q: index %d out of range for %d vertices", src.Name, idx, n)
		}
	}

	p := &preparedMesh{indices: indices, vertexCount: n, normalMapping: true}

	normals := src.Normals
	if len(normals) != n {
		normals = computeNormals(src.Positions, indices)
		p.computedNorm = true
	}

	uvs := src.UVs
	hasUVs := len(uvs) == n
	if !hasUVs {
		uvs = make([]mgl32.Vec2, n)
	}

	tangents := src.Tangents
	if len(tangents) != n {
		if hasUVs {
			tangents = computeTangents(src.Positions, normals, uvs, indices)
			p.computedTan = true
		} else {
			tangents = fallbackTangents(normals)
			p.normalMapping = false
		}
	}

	p.vertices = make([]float32, 0, n*VertexFloatCount)
	for i := 0; i < n; i++ {
		pos, nor, tan, uv := src.Positions[i], normals[i], tangents[i], uvs[i]
		p.vertices = append(p.vertices,
			pos[0], pos[1], pos[2],
			nor[0], nor[1], nor[2],
			tan[0], tan[1], tan[2], tan[3],
			uv[0], uv[1])
	}

	p.center, p.radius = boundingSphere(src.Positions)
	return p, nil
}

// computeNormals returns area weighted vertex normals.
func computeNormals(positions []mgl32.Vec3, indices []uint32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		e1 := positions[i1].Sub(positions[i0])
		e2 := positions[i2].Sub(positions[i0])
		face := e1.Cross(e2) // length is twice the triangle area
		normals[i0] = normals[i0].Add(face)
		normals[i1] = normals[i1].Add(face)
		normals[i2] = normals[i2].Add(face)
	}
	for i, nor := range normals {
		if nor.Len() < 1e-12 {
			normals[i] = mgl32.Vec3{0, 1, 0}
			continue
		}
		normals[i] = nor.Normalize()
	}
	return normals
}

// computeTangents accumulates per-triangle tangents and bitangents from UV
// gradients, then Gram-Schmidt orthogonalizes against the normal. W holds
// the bitangent handedness.
func computeTangents(positions, normals []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint32) []mgl32.Vec4 {
	tan := make([]mgl32.Vec3, len(positions))
	bitan := make([]mgl32.Vec3, len(positions))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		e1 := positions[i1].Sub(positions[i0])
		e2 := positions[i2].Sub(positions[i0])
		du1 := uvs[i1][0] - uvs[i0][0]
		dv1 := uvs[i1][1] - uvs[i0][1]
		du2 := uvs[i2][0] - uvs[i0][0]
		dv2 := uvs[i2][1] - uvs[i0][1]

		denom := du1*dv2 - du2*dv1
		if denom == 0 {
			continue // degenerate UV triangle
		}
		r := 1 / denom
		t := e1.Mul(dv2 * r).Sub(e2.Mul(dv1 * r))
		b := e2.Mul(du1 * r).Sub(e1.Mul(du2 * r))

		for _, idx := range [3]uint32{i0, i1, i2} {
			tan[idx] = tan[idx].Add(t)
			bitan[idx] = bitan[idx].Add(b)
		}
	}

	out := make([]mgl32.Vec4, len(positions))
	for i := range positions {
		n := normals[i]
		t := tan[i].Sub(n.Mul(n.Dot(tan[i])))
		if t.Len() < 1e-6 {
			t = perpendicular(n)
		}
		t = t.Normalize()
		w := float32(1)
		if n.Cross(t).Dot(bitan[i]) < 0 {
			w = -1
		}
		out[i] = t.Vec4(w)
	}
	return out
}

func fallbackTangents(normals []mgl32.Vec3) []mgl32.Vec4 {
	out := make([]mgl32.Vec4, len(normals))
	for i, n := range normals {
		out[i] = perpendicular(n).Normalize().Vec4(1)
	}
	return out
}

// perpendicular returns some vector orthogonal to n.
func perpendicular(n mgl32.Vec3) mgl32.Vec3 {
	if abs32(n.X()) < 0.9 {
		return mgl32.Vec3{1, 0, 0}.Sub(n.Mul(n.X()))
	}
	return mgl32.Vec3{0, 1, 0}.Sub(n.Mul(n.Y()))
}

func boundingSphere(positions []mgl32.Vec3) (mgl32.Vec3, float32) {
	min, max := positions[0], positions[0]
	for _, p := range positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	center := min.Add(max).Mul(0.5)
	var radius float32
	for _, p := range positions {
		if d := p.Sub(center).Len(); d > radius {
			radius = d
		}
	}
	return center, radius
}

// indexWidthFor picks 16-bit indices whenever every index fits.
func indexWidthFor(vertexCount int) IndexWidth {
	if vertexCount <= 1<<16 {
		return Index16
	}
	return Index32
}
