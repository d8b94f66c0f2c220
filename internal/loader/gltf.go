package loader

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"GopherPBR/internal/logger"
	"GopherPBR/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// LoadGLTF reads a .gltf or .glb file into a flattened scene. Every
// triangle primitive becomes one mesh carrying the accumulated transform
// of its node. glTF texture coordinates already use a top-left origin.
func (l *Loader) LoadGLTF(path string) (*renderer.SceneSource, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	textures := l.gltfTextures(doc, path)
	materials := make([]renderer.MaterialSource, len(doc.Materials))
	for i, gm := range doc.Materials {
		materials[i] = gltfMaterial(gm, textures)
	}

	src := &renderer.SceneSource{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	var visit func(node int, parent mgl32.Mat4, depth int)
	visit = func(node int, parent mgl32.Mat4, depth int) {
		if node < 0 || node >= len(doc.Nodes) || depth > len(doc.Nodes) {
			return
		}
		gn := doc.Nodes[node]
		world := parent.Mul4(nodeMatrix(gn))
		if gn.Mesh != nil && *gn.Mesh < len(doc.Meshes) {
			gm := doc.Meshes[*gn.Mesh]
			for pi, prim := range gm.Primitives {
				mesh, err := gltfPrimitive(doc, prim)
				if err != nil {
					logger.Log.Warn("Primitive skipped",
						zap.String("mesh", gm.Name),
						zap.Int("primitive", pi),
						zap.Error(err))
					continue
				}
				mesh.Name = primitiveName(gm.Name, node, pi)
				mesh.WorldMatrix = world
				mesh.Material = renderer.DefaultMaterial()
				if prim.Material != nil && *prim.Material < len(materials) {
					mesh.Material = materials[*prim.Material]
				}
				src.Meshes = append(src.Meshes, *mesh)
			}
		}
		for _, child := range gn.Children {
			visit(child, world, depth+1)
		}
	}
	for _, root := range sceneRoots(doc) {
		visit(root, mgl32.Ident4(), 0)
	}

	if len(src.Meshes) == 0 {
		return nil, fmt.Errorf("gltf %q: %w", path, renderer.ErrNoGeometry)
	}
	return src, nil
}

// gltfTextures decodes every texture the document references, keyed by
// texture index.
func (l *Loader) gltfTextures(doc *gltf.Document, path string) map[int]*renderer.TextureRef {
	dir := filepath.Dir(path)
	jobs := make([]imageJob, 0, len(doc.Images))
	jobForImage := make(map[int]string)
	for i, img := range doc.Images {
		i, img := i, img
		key := fmt.Sprintf("%s#image%d", path, i)
		var read func() ([]byte, error)
		switch {
		case img.BufferView != nil:
			read = func() ([]byte, error) {
				return modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
			}
		case img.IsEmbeddedResource():
			read = img.MarshalData
		case img.URI != "":
			uri, err := url.PathUnescape(img.URI)
			if err != nil {
				uri = img.URI
			}
			file := filepath.Join(dir, filepath.FromSlash(uri))
			key = file
			read = func() ([]byte, error) { return os.ReadFile(file) }
		default:
			continue
		}
		jobs = append(jobs, imageJob{key: key, read: read})
		jobForImage[i] = key
	}
	decoded := l.decodeImages(jobs)

	out := make(map[int]*renderer.TextureRef, len(doc.Textures))
	for ti, tex := range doc.Textures {
		if tex.Source == nil {
			continue
		}
		if ref, ok := decoded[jobForImage[*tex.Source]]; ok {
			out[ti] = ref
		}
	}
	return out
}

// gltfMaterial maps the metallic-roughness model onto the five material
// slots. The combined metallic-roughness texture fills both the metalness
// (blue) and roughness (green) slots; occlusion is read from red.
func gltfMaterial(gm *gltf.Material, textures map[int]*renderer.TextureRef) renderer.MaterialSource {
	mat := renderer.DefaultMaterial()
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		cf := pbr.BaseColorFactorOrDefault()
		mat.AlbedoFactor = mgl32.Vec4{float32(cf[0]), float32(cf[1]), float32(cf[2]), float32(cf[3])}
		mat.MetalnessFactor = float32(pbr.MetallicFactorOrDefault())
		mat.RoughnessFactor = float32(pbr.RoughnessFactorOrDefault())
		if pbr.BaseColorTexture != nil {
			mat.Albedo = textures[pbr.BaseColorTexture.Index]
		}
		if pbr.MetallicRoughnessTexture != nil {
			ref := textures[pbr.MetallicRoughnessTexture.Index]
			mat.Metalness, mat.Roughness = ref, ref
		}
	}
	if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
		mat.Normal = textures[*gm.NormalTexture.Index]
	}
	if gm.OcclusionTexture != nil && gm.OcclusionTexture.Index != nil {
		mat.AO = textures[*gm.OcclusionTexture.Index]
	}
	return mat
}

func gltfPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*renderer.MeshSource, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("primitive mode %v not supported", prim.Mode)
	}
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	mesh := &renderer.MeshSource{Positions: make([]mgl32.Vec3, len(positions))}
	for i, p := range positions {
		mesh.Positions[i] = p
	}
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil); err == nil && len(normals) == len(positions) {
			mesh.Normals = make([]mgl32.Vec3, len(normals))
			for i, n := range normals {
				mesh.Normals[i] = n
			}
		}
	}
	if idx, ok := prim.Attributes["TANGENT"]; ok {
		if tangents, err := modeler.ReadTangent(doc, doc.Accessors[idx], nil); err == nil && len(tangents) == len(positions) {
			mesh.Tangents = make([]mgl32.Vec4, len(tangents))
			for i, t := range tangents {
				mesh.Tangents[i] = t
			}
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err == nil && len(uvs) == len(positions) {
			mesh.UVs = make([]mgl32.Vec2, len(uvs))
			for i, uv := range uvs {
				mesh.UVs[i] = uv
			}
		}
	}
	if prim.Indices != nil {
		mesh.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}
	return mesh, nil
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// nodeMatrix is the node's local transform, from its matrix when set and
// from translation, rotation and scale otherwise.
func nodeMatrix(n *gltf.Node) mgl32.Mat4 {
	if m := n.MatrixOrDefault(); m != identityMatrix {
		var out mgl32.Mat4
		for i := range m {
			out[i] = float32(m[i])
		}
		return out
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	rot := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

// sceneRoots returns the root nodes of the default scene, or every
// parentless node when the document names no scene.
func sceneRoots(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func primitiveName(mesh string, node, prim int) string {
	if mesh == "" {
		mesh = fmt.Sprintf("node%d", node)
	}
	return fmt.Sprintf("%s_p%d", mesh, prim)
}
