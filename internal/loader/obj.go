package loader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"GopherPBR/internal/logger"
	"GopherPBR/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const defaultMaterialName = "default"

// objMaterial is one newmtl block. Texture fields hold absolute paths.
type objMaterial struct {
	name      string
	diffuse   mgl32.Vec3
	alpha     float32
	metallic  float32
	roughness float32

	albedoMap    string
	normalMap    string
	metallicMap  string
	roughnessMap string
	aoMap        string
}

func newObjMaterial(name string) *objMaterial {
	return &objMaterial{name: name, diffuse: mgl32.Vec3{1, 1, 1}, alpha: 1, roughness: 0.5}
}

type FaceVertex struct {
	VertexIdx   int32
	TexCoordIdx int32
	NormalIdx   int32
}

// objGroup collects the faces drawn with one material, in file order.
type objGroup struct {
	material string
	faces    []FaceVertex
}

// LoadOBJ reads a Wavefront OBJ file and its MTL library. Faces are split
// into one mesh per material; v/vt/vn triplets are unified into a single
// index buffer per mesh. OBJ texture coordinates have a bottom-left origin
// and are flipped to the top-left convention used for uploads.
func (l *Loader) LoadOBJ(path string) (*renderer.SceneSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var (
		positions []mgl32.Vec3
		normals   []mgl32.Vec3
		uvs       []mgl32.Vec2
		groups    []*objGroup
		materials = map[string]*objMaterial{}
		current   *objGroup
	)
	useMaterial := func(name string) {
		if current != nil && current.material == name {
			return
		}
		for _, g := range groups {
			if g.material == name {
				current = g
				return
			}
		}
		current = &objGroup{material: name}
		groups = append(groups, current)
	}

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "v":
			v, err := parseVec3(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: vertex: %w", path, line, err)
			}
			positions = append(positions, v)
		case "vn":
			n, err := parseVec3(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: normal: %w", path, line, err)
			}
			normals = append(normals, n)
		case "vt":
			uv, err := parseTextureCoordinate(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: texture coordinate: %w", path, line, err)
			}
			uvs = append(uvs, mgl32.Vec2{uv[0], 1 - uv[1]})
		case "f":
			face, err := parseFace(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: face: %w", path, line, err)
			}
			if current == nil {
				useMaterial(defaultMaterialName)
			}
			current.faces = append(current.faces, face...)
		case "mtllib":
			if len(parts) < 2 {
				continue
			}
			for name, mat := range loadMaterials(filepath.Join(filepath.Dir(path), strings.Join(parts[1:], " "))) {
				materials[name] = mat
			}
		case "usemtl":
			if len(parts) >= 2 {
				useMaterial(parts[1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if l.RecalculateNormals {
		normals = nil
	}

	textures := l.decodeImages(materialTextureJobs(materials))
	src := &renderer.SceneSource{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	for _, g := range groups {
		if len(g.faces) == 0 {
			continue
		}
		mesh := unifyFaces(g.faces, positions, normals, uvs)
		mesh.Name = g.material
		mesh.WorldMatrix = mgl32.Ident4()
		mat, ok := materials[g.material]
		if !ok {
			if g.material != defaultMaterialName {
				logger.Log.Warn("Material not found, using default", zap.String("material", g.material))
			}
			mat = newObjMaterial(g.material)
		}
		mesh.Material = mat.source(textures)
		src.Meshes = append(src.Meshes, *mesh)
	}
	if len(src.Meshes) == 0 {
		return nil, fmt.Errorf("obj %q: %w", path, renderer.ErrNoGeometry)
	}
	return src, nil
}

// unifyFaces builds one vertex per distinct v/vt/vn triplet. An attribute is
// kept only when every face vertex supplies it.
func unifyFaces(faces []FaceVertex, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2) *renderer.MeshSource {
	type vertexKey struct{ v, vt, vn int32 }

	hasUV, hasNormal := len(uvs) > 0, len(normals) > 0
	for _, fv := range faces {
		hasUV = hasUV && fv.TexCoordIdx >= 0 && int(fv.TexCoordIdx) < len(uvs)
		hasNormal = hasNormal && fv.NormalIdx >= 0 && int(fv.NormalIdx) < len(normals)
	}

	mesh := &renderer.MeshSource{Indices: make([]uint32, 0, len(faces))}
	seen := make(map[vertexKey]uint32)
	for _, fv := range faces {
		key := vertexKey{v: fv.VertexIdx}
		if hasUV {
			key.vt = fv.TexCoordIdx
		}
		if hasNormal {
			key.vn = fv.NormalIdx
		}
		if idx, ok := seen[key]; ok {
			mesh.Indices = append(mesh.Indices, idx)
			continue
		}
		idx := uint32(len(mesh.Positions))
		seen[key] = idx

		var p mgl32.Vec3
		if fv.VertexIdx >= 0 && int(fv.VertexIdx) < len(positions) {
			p = positions[fv.VertexIdx]
		} else {
			logger.Log.Warn("Vertex index out of bounds",
				zap.Int32("vertexIdx", fv.VertexIdx),
				zap.Int("vertices", len(positions)))
		}
		mesh.Positions = append(mesh.Positions, p)
		if hasUV {
			mesh.UVs = append(mesh.UVs, uvs[fv.TexCoordIdx])
		}
		if hasNormal {
			mesh.Normals = append(mesh.Normals, normals[fv.NormalIdx])
		}
		mesh.Indices = append(mesh.Indices, idx)
	}
	return mesh
}

func (m *objMaterial) source(textures map[string]*renderer.TextureRef) renderer.MaterialSource {
	src := renderer.DefaultMaterial()
	src.AlbedoFactor = m.diffuse.Vec4(m.alpha)
	src.MetalnessFactor = m.metallic
	src.RoughnessFactor = m.roughness
	src.Albedo = textures[m.albedoMap]
	src.Normal = textures[m.normalMap]
	src.Metalness = textures[m.metallicMap]
	src.Roughness = textures[m.roughnessMap]
	src.AO = textures[m.aoMap]
	return src
}

// materialTextureJobs lists every distinct texture file the materials use.
func materialTextureJobs(materials map[string]*objMaterial) []imageJob {
	seen := map[string]bool{"": true}
	var jobs []imageJob
	for _, m := range materials {
		for _, p := range []string{m.albedoMap, m.normalMap, m.metallicMap, m.roughnessMap, m.aoMap} {
			if !seen[p] {
				seen[p] = true
				jobs = append(jobs, fileJob(p))
			}
		}
	}
	return jobs
}

// loadMaterials loads material properties from a .mtl file. A missing or
// unreadable file yields no materials; faces then use the default.
func loadMaterials(filename string) map[string]*objMaterial {
	materials := make(map[string]*objMaterial)
	file, err := os.Open(filename)
	if err != nil {
		logger.Log.Error("Error opening material file", zap.Error(err))
		return materials
	}
	defer file.Close()

	dir := filepath.Dir(filename)
	texturePath := func(fields []string) string {
		// Options such as -bm 1.0 come first; the path is last.
		p := filepath.FromSlash(fields[len(fields)-1])
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	var current *objMaterial
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				logger.Log.Error("Malformed material line", zap.Strings("fields", fields))
				continue
			}
			current = newObjMaterial(fields[1])
			materials[current.name] = current
			continue
		}
		if current == nil || len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "Kd": // Diffuse color
			if len(fields) == 4 {
				current.diffuse = parseColor(fields[1:])
			}
		case "d": // Dissolve (alpha/opacity)
			current.alpha = parseFloat(fields[1])
		case "Tr": // Transparency, the inverse of d
			current.alpha = 1 - parseFloat(fields[1])
		case "Pm":
			current.metallic = parseFloat(fields[1])
		case "Pr":
			current.roughness = parseFloat(fields[1])
		case "map_Kd":
			current.albedoMap = texturePath(fields)
		case "map_Bump", "map_bump", "bump", "norm":
			current.normalMap = texturePath(fields)
		case "map_Pm":
			current.metallicMap = texturePath(fields)
		case "map_Pr":
			current.roughnessMap = texturePath(fields)
		case "map_Ka", "map_ao":
			current.aoMap = texturePath(fields)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Log.Error("Error reading material file", zap.String("file", filename), zap.Error(err))
	}
	return materials
}

// parseColor parses RGB color components.
func parseColor(fields []string) mgl32.Vec3 {
	var color mgl32.Vec3
	for i, field := range fields[:3] {
		color[i] = parseFloat(field)
	}
	return color
}

// parseFloat parses a single material value, 0 when malformed.
func parseFloat(s string) float32 {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		logger.Log.Error("Error parsing material value", zap.String("value", s), zap.Error(err))
		return 0
	}
	return float32(f)
}

func parseVec3(parts []string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	if len(parts) < 3 {
		return v, fmt.Errorf("want 3 components, got %d", len(parts))
	}
	for i, part := range parts[:3] {
		val, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return v, fmt.Errorf("invalid value %v: %w", part, err)
		}
		v[i] = float32(val)
	}
	return v, nil
}

func parseFace(parts []string) ([]FaceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("face needs at least 3 vertices, got %d", len(parts))
	}
	var face []FaceVertex
	for _, part := range parts {
		vals := strings.Split(part, "/")

		// Parse vertex index (required)
		vertexIdx, err := strconv.ParseInt(vals[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vertex index %v: %w", vals[0], err)
		}

		// Parse texture coordinate index (optional)
		var texCoordIdx int32 = -1
		if len(vals) > 1 && vals[1] != "" {
			texIdx, err := strconv.ParseInt(vals[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid texture coordinate index %v: %w", vals[1], err)
			}
			texCoordIdx = int32(texIdx - 1) // .obj indices start at 1, not 0
		}

		// Parse normal index (optional)
		var normalIdx int32 = -1
		if len(vals) > 2 && vals[2] != "" {
			normIdx, err := strconv.ParseInt(vals[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid normal index %v: %w", vals[2], err)
			}
			normalIdx = int32(normIdx - 1)
		}

		face = append(face, FaceVertex{
			VertexIdx:   int32(vertexIdx - 1),
			TexCoordIdx: texCoordIdx,
			NormalIdx:   normalIdx,
		})
	}

	// Polygons are triangulated as a fan from the first vertex.
	if len(face) > 4 {
		logger.Log.Debug("Face with more than 4 vertices, using fan triangulation", zap.Int("vertexCount", len(face)))
	}
	triangulated := make([]FaceVertex, 0, (len(face)-2)*3)
	for i := 1; i < len(face)-1; i++ {
		triangulated = append(triangulated, face[0], face[i], face[i+1])
	}
	return triangulated, nil
}

// for 2D textures; a third w component is ignored
func parseTextureCoordinate(parts []string) (mgl32.Vec2, error) {
	var uv mgl32.Vec2
	if len(parts) < 2 {
		return uv, fmt.Errorf("want 2 components, got %d", len(parts))
	}
	for i, part := range parts[:2] {
		val, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return uv, fmt.Errorf("invalid texture coordinate value %v: %w", part, err)
		}
		uv[i] = float32(val)
	}
	return uv, nil
}
