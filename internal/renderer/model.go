package renderer

import (
	"GopherPBR/internal/logger"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// InitialModelSize is the length of the largest bounding box axis after a
// model is normalized on load.
const InitialModelSize = 2.0

// Material texture units. The shadow map and IBL maps use the units after
// these so binding a material never disturbs them.
const (
	AlbedoUnit uint32 = iota
	NormalUnit
	MetalnessUnit
	RoughnessUnit
	AOUnit
	ShadowMapUnit
	IrradianceUnit
	PrefilterUnit
	BRDFLUTUnit
)

type Mesh struct {
	// HOT DATA - Accessed every frame in the draw loop
	modelMatrix     mgl32.Mat4
	gpu             GPUMesh
	albedoMap       uint32
	normalMap       uint32
	metalnessMap    uint32
	roughnessMap    uint32
	aoMap           uint32
	albedoFactor    mgl32.Vec4
	metalnessFactor float32
	roughnessFactor float32

	// COLD DATA - Set once on load
	Name string
	// NormalMappingSupported is false when the source had no UVs, so no
	// tangent frame could be derived.
	NormalMappingSupported bool
	worldMatrix            mgl32.Mat4 // Source transform with the load normalization baked in
	boundsCenter           mgl32.Vec3 // Local-space bounding sphere
	boundsRadius           float32
	vertexCount            int
	indexCount             int
}

func (m *Mesh) ModelMatrix() mgl32.Mat4 { return m.modelMatrix }
func (m *Mesh) WorldMatrix() mgl32.Mat4 { return m.worldMatrix }
func (m *Mesh) GPU() GPUMesh            { return m.gpu }

func (m *Mesh) updateModelMatrix(scale float32) {
	m.modelMatrix = mgl32.Scale3D(scale, scale, scale).Mul4(m.worldMatrix)
}

// worldBounds transforms the local bounding sphere by the model matrix.
func (m *Mesh) worldBounds() (mgl32.Vec3, float32) {
	center := m.modelMatrix.Mul4x1(m.boundsCenter.Vec4(1)).Vec3()
	var maxScale float32
	for c := 0; c < 3; c++ {
		if l := m.modelMatrix.Col(c).Vec3().Len(); l > maxScale {
			maxScale = l
		}
	}
	return center, m.boundsRadius * maxScale
}

type preparedSource struct {
	source   *MeshSource
	prepared *preparedMesh
}

// Model is a drawable scene: meshes plus the textures they share.
type Model struct {
	Name     string
	source   *SceneSource
	options  *RenderingOptions
	textures *TextureCache
	meshes   []*Mesh
	scale    float32

	prepared   []preparedSource
	adjustment mgl32.Mat4
	isPrepared bool
	loaded     bool
}

// NewModel wraps a parsed scene. Nothing is computed or uploaded until
// Prepare and Load.
func NewModel(src *SceneSource, options *RenderingOptions) *Model {
	name := ""
	if src != nil {
		name = src.Name
	}
	return &Model{Name: name, source: src, options: options, scale: 1}
}

// Prepare does the CPU side of loading: attribute repair, interleaving and
// the centering/normalizing transform. It touches no GPU state and may run
// off the frame loop. Calling it again is a no-op.
func (m *Model) Prepare() error {
	if m.isPrepared {
		return nil
	}
	if m.source == nil || len(m.source.Meshes) == 0 {
		return ErrNoGeometry
	}

	for i := range m.source.Meshes {
		src := &m.source.Meshes[i]
		p, err := prepareMesh(src)
		if err != nil {
			logger.Log.Warn("Skipping mesh", zap.String("model", m.Name), zap.String("mesh", src.Name), zap.Error(err))
			continue
		}
		if p.computedNorm {
			logger.Log.Warn("Computed missing normals", zap.String("model", m.Name), zap.String("mesh", src.Name))
		}
		if p.computedTan {
			logger.Log.Debug("Computed missing tangents", zap.String("model", m.Name), zap.String("mesh", src.Name))
		}
		if !p.normalMapping {
			logger.Log.Warn("Mesh has no UVs, normal mapping disabled", zap.String("model", m.Name), zap.String("mesh", src.Name))
		}
		m.prepared = append(m.prepared, preparedSource{source: src, prepared: p})
	}
	if len(m.prepared) == 0 {
		return fmt.Errorf("model %q: %w", m.Name, ErrNoGeometry)
	}

	m.adjustment = normalizationMatrix(m.source)
	m.isPrepared = true
	return nil
}

// normalizationMatrix centers the scene's bounding box on the origin and
// scales its largest axis to InitialModelSize.
func normalizationMatrix(src *SceneSource) mgl32.Mat4 {
	min, max, ok := src.Bounds()
	if !ok {
		return mgl32.Ident4()
	}
	center := min.Add(max).Mul(0.5)
	size := max.Sub(min)
	largest := float32(math.Max(float64(size[0]), math.Max(float64(size[1]), float64(size[2]))))
	factor := float32(1)
	if largest > 0 {
		factor = InitialModelSize / largest
	}
	return mgl32.Scale3D(factor, factor, factor).Mul4(mgl32.Translate3D(-center[0], -center[1], -center[2]))
}

// Load uploads textures and meshes. On failure everything uploaded so far
// is released and the model stays unloaded.
func (m *Model) Load(device Device) error {
	if m.loaded {
		return nil
	}
	if err := m.Prepare(); err != nil {
		return err
	}

	m.textures = NewTextureCache(device)
	var undo Unwind
	undo.Add(m.textures.Clear)

	meshes := make([]*Mesh, 0, len(m.prepared))
	for _, ps := range m.prepared {
		mesh, err := m.uploadMesh(device, ps, &undo)
		if err != nil {
			undo.Unwind()
			m.textures = nil
			return fmt.Errorf("model %q mesh %q: %w", m.Name, ps.source.Name, err)
		}
		meshes = append(meshes, mesh)
	}
	undo.Discard()

	m.meshes = meshes
	m.prepared = nil
	m.loaded = true
	logger.Log.Info("Model loaded",
		zap.String("name", m.Name),
		zap.Int("meshes", len(m.meshes)),
		zap.Int("textures", m.textures.Len()))
	return nil
}

func (m *Model) uploadMesh(device Device, ps preparedSource, undo *Unwind) (*Mesh, error) {
	src, p := ps.source, ps.prepared
	mat := src.Material

	mesh := &Mesh{
		Name:                   src.Name,
		NormalMappingSupported: p.normalMapping,
		albedoFactor:           mat.AlbedoFactor,
		metalnessFactor:        mat.MetalnessFactor,
		roughnessFactor:        mat.RoughnessFactor,
		worldMatrix:            m.adjustment.Mul4(src.WorldMatrix),
		boundsCenter:           p.center,
		boundsRadius:           p.radius,
		vertexCount:            p.vertexCount,
		indexCount:             len(p.indices),
	}

	slots := []struct {
		ref *TextureRef
		dst *uint32
	}{
		{mat.Albedo, &mesh.albedoMap},
		{mat.Normal, &mesh.normalMap},
		{mat.Metalness, &mesh.metalnessMap},
		{mat.Roughness, &mesh.roughnessMap},
		{mat.AO, &mesh.aoMap},
	}
	for _, slot := range slots {
		id, err := m.textures.Acquire(slot.ref)
		if err != nil {
			return nil, err
		}
		*slot.dst = id
	}

	gpu, err := device.CreateMesh(p.vertices, p.indices, indexWidthFor(p.vertexCount))
	if err != nil {
		return nil, err
	}
	undo.Add(func() { device.DeleteMesh(gpu) })
	mesh.gpu = gpu
	mesh.updateModelMatrix(m.scale)
	return mesh, nil
}

// Scale sets the user scale applied on top of the normalized transform.
// Only the latest call matters.
func (m *Model) Scale(factor float32) {
	m.scale = factor
	for _, mesh := range m.meshes {
		mesh.updateModelMatrix(factor)
	}
}

func (m *Model) CurrentScale() float32 { return m.scale }

// Extent is the half size of the largest axis after scaling.
func (m *Model) Extent() float32 {
	return InitialModelSize / 2 * m.scale
}

// Draw binds each mesh's material and issues its draw call.
func (m *Model) Draw(u Uniforms, device Device) {
	m.DrawVisible(u, device, nil)
}

// DrawVisible is Draw restricted to meshes whose bounding sphere touches
// the frustum. A nil frustum draws everything.
func (m *Model) DrawVisible(u Uniforms, device Device, frustum *Frustum) {
	for _, mesh := range m.meshes {
		if frustum != nil {
			center, radius := mesh.worldBounds()
			if !frustum.IntersectsSphere(center, radius) {
				continue
			}
		}
		m.bindMaterial(u, device, mesh)
		u.SetMat4("M", mesh.modelMatrix)
		device.DrawIndexed(mesh.gpu)
	}
}

// DrawDepth draws geometry only, for the shadow pass.
func (m *Model) DrawDepth(u Uniforms, device Device) {
	for _, mesh := range m.meshes {
		u.SetMat4("M", mesh.modelMatrix)
		device.DrawIndexed(mesh.gpu)
	}
}

// bindMaterial binds up to five texture channels. A channel is used only
// when the mesh has the texture and, for normal and AO maps, the matching
// option is on.
func (m *Model) bindMaterial(u Uniforms, device Device, mesh *Mesh) {
	normalOn := m.options == nil || m.options.NormalMapping
	aoOn := m.options == nil || m.options.AmbientOcclusion

	bind := func(uniform, flag string, unit uint32, id uint32, enabled bool) {
		if id != 0 && enabled {
			device.BindTexture2D(unit, id)
			u.SetInt(uniform, int32(unit))
			u.SetBool(flag, true)
			return
		}
		u.SetBool(flag, false)
	}

	bind("albedo_map", "has_albedo_map", AlbedoUnit, mesh.albedoMap, true)
	bind("normal_map", "has_normal_map", NormalUnit, mesh.normalMap, normalOn && mesh.NormalMappingSupported)
	bind("metalness_map", "has_metalness_map", MetalnessUnit, mesh.metalnessMap, true)
	bind("roughness_map", "has_roughness_map", RoughnessUnit, mesh.roughnessMap, true)
	bind("ao_map", "has_ao_map", AOUnit, mesh.aoMap, aoOn)

	u.SetVec4("albedo_factor", mesh.albedoFactor)
	u.SetFloat("metalness_factor", mesh.metalnessFactor)
	u.SetFloat("roughness_factor", mesh.roughnessFactor)
}

// Delete releases every texture and buffer the model owns.
func (m *Model) Delete(device Device) {
	if !m.loaded {
		return
	}
	for _, mesh := range m.meshes {
		device.DeleteMesh(mesh.gpu)
		for _, id := range mesh.textureIDs() {
			m.textures.Release(id)
		}
	}
	if leaked := m.textures.Len(); leaked > 0 {
		logger.Log.Warn("Model textures still referenced after delete",
			zap.String("name", m.Name),
			zap.Int("textures", leaked))
		m.textures.Clear()
	}
	m.meshes = nil
	m.loaded = false
	logger.Log.Debug("Model deleted", zap.String("name", m.Name))
}

// textureIDs lists the five slot textures; 0 marks an empty slot.
func (m *Mesh) textureIDs() [5]uint32 {
	return [5]uint32{m.albedoMap, m.normalMap, m.metalnessMap, m.roughnessMap, m.aoMap}
}

func (m *Model) Meshes() []*Mesh { return m.meshes }
func (m *Model) Loaded() bool    { return m.loaded }

// TextureCount is the number of distinct GPU textures the model holds.
func (m *Model) TextureCount() int {
	if m.textures == nil {
		return 0
	}
	return m.textures.Len()
}

func (m *Model) TextureStats() TextureStats {
	if m.textures == nil {
		return TextureStats{}
	}
	return m.textures.GetStats()
}

func (m *Model) VertexCount() int {
	n := 0
	for _, mesh := range m.meshes {
		n += mesh.vertexCount
	}
	return n
}

func (m *Model) TriangleCount() int {
	n := 0
	for _, mesh := range m.meshes {
		n += mesh.indexCount / 3
	}
	return n
}
