package renderer

import (
	"errors"
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

var errFakeUpload = errors.New("fake upload failure")

// fakeDevice records GPU resource traffic without a GL context.
type fakeDevice struct {
	nextID          uint32
	liveTextures    map[uint32]bool
	liveMeshes      map[uint32]GPUMesh
	texturesCreated int
	texturesDeleted int
	meshesCreated   int
	bound           map[uint32]uint32
	boundCube       map[uint32]uint32
	draws           []GPUMesh
	failTexturesAt  int // fail the n-th CreateTexture2D call (1-based); 0 never
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		liveTextures: make(map[uint32]bool),
		liveMeshes:   make(map[uint32]GPUMesh),
		bound:        make(map[uint32]uint32),
		boundCube:    make(map[uint32]uint32),
	}
}

func (d *fakeDevice) CreateTexture2D(img *image.RGBA) (uint32, error) {
	d.texturesCreated++
	if d.failTexturesAt != 0 && d.texturesCreated == d.failTexturesAt {
		return 0, errFakeUpload
	}
	d.nextID++
	d.liveTextures[d.nextID] = true
	return d.nextID, nil
}

func (d *fakeDevice) DeleteTexture(id uint32) {
	if d.liveTextures[id] {
		d.texturesDeleted++
	}
	delete(d.liveTextures, id)
}

func (d *fakeDevice) CreateMesh(vertices []float32, indices []uint32, width IndexWidth) (GPUMesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return GPUMesh{}, ErrNoGeometry
	}
	d.meshesCreated++
	d.nextID++
	m := GPUMesh{VAO: d.nextID, VBO: d.nextID, EBO: d.nextID, IndexCount: int32(len(indices)), IndexWidth: width}
	d.liveMeshes[m.VAO] = m
	return m, nil
}

func (d *fakeDevice) DeleteMesh(m GPUMesh) {
	delete(d.liveMeshes, m.VAO)
}

func (d *fakeDevice) BindTexture2D(unit uint32, id uint32) {
	d.bound[unit] = id
}

func (d *fakeDevice) BindTextureCube(unit uint32, id uint32) {
	d.boundCube[unit] = id
}

func (d *fakeDevice) DrawIndexed(m GPUMesh) {
	d.draws = append(d.draws, m)
}

func (d *fakeDevice) live() int {
	return len(d.liveTextures) + len(d.liveMeshes)
}

// recordingUniforms keeps the last value written to every uniform.
type recordingUniforms struct {
	values map[string]interface{}
}

func newRecordingUniforms() *recordingUniforms {
	return &recordingUniforms{values: make(map[string]interface{})}
}

func (r *recordingUniforms) SetInt(name string, v int32)       { r.values[name] = v }
func (r *recordingUniforms) SetFloat(name string, v float32)   { r.values[name] = v }
func (r *recordingUniforms) SetBool(name string, v bool)       { r.values[name] = v }
func (r *recordingUniforms) SetVec2(name string, v mgl32.Vec2) { r.values[name] = v }
func (r *recordingUniforms) SetVec3(name string, v mgl32.Vec3) { r.values[name] = v }
func (r *recordingUniforms) SetVec4(name string, v mgl32.Vec4) { r.values[name] = v }
func (r *recordingUniforms) SetMat2(name string, v mgl32.Mat2) { r.values[name] = v }
func (r *recordingUniforms) SetMat3(name string, v mgl32.Mat3) { r.values[name] = v }
func (r *recordingUniforms) SetMat4(name string, v mgl32.Mat4) { r.values[name] = v }

func (r *recordingUniforms) bool(name string) bool {
	v, _ := r.values[name].(bool)
	return v
}

func solidImage(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// quadMesh is a unit quad in the XY plane with UVs and no normals.
func quadMesh(name string, offset mgl32.Vec3, mat MaterialSource) MeshSource {
	return MeshSource{
		Name: name,
		Positions: []mgl32.Vec3{
			offset.Add(mgl32.Vec3{0, 0, 0}),
			offset.Add(mgl32.Vec3{1, 0, 0}),
			offset.Add(mgl32.Vec3{1, 1, 0}),
			offset.Add(mgl32.Vec3{0, 1, 0}),
		},
		UVs:         []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		Indices:     []uint32{0, 1, 2, 0, 2, 3},
		WorldMatrix: mgl32.Ident4(),
		Material:    mat,
	}
}

// texturedScene has two meshes sharing an albedo texture, one with its own
// normal map.
func texturedScene(name string) *SceneSource {
	shared := &TextureRef{Key: name + "/albedo", Image: solidImage(color.RGBA{200, 100, 50, 255})}
	normal := &TextureRef{Key: name + "/normal", Image: solidImage(color.RGBA{128, 128, 255, 255})}

	first := DefaultMaterial()
	first.Albedo = shared
	first.Normal = normal
	second := DefaultMaterial()
	second.Albedo = shared

	return &SceneSource{
		Name: name,
		Meshes: []MeshSource{
			quadMesh("first", mgl32.Vec3{0, 0, 0}, first),
			quadMesh("second", mgl32.Vec3{2, 0, 0}, second),
		},
	}
}
