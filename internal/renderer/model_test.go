package renderer

import (
	"errors"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func loadedModel(t *testing.T, dev *fakeDevice, opts *RenderingOptions) *Model {
	t.Helper()
	model := NewModel(texturedScene("crate"), opts)
	require.NoError(t, model.Load(dev))
	return model
}

func TestModelLoadDeduplicatesTextures(t *testing.T) {
	dev := newFakeDevice()
	model := loadedModel(t, dev, DefaultRenderingOptions())

	// Two meshes share the albedo; only albedo and normal are distinct.
	assert.Equal(t, 2, model.TextureCount())
	assert.Equal(t, 2, dev.texturesCreated)
	assert.Len(t, model.Meshes(), 2)

	stats := model.TextureStats()
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 2, stats.CacheMisses)
}

func TestModelNormalizesToReferenceSize(t *testing.T) {
	src := texturedScene("crate")
	model := NewModel(src, DefaultRenderingOptions())
	require.NoError(t, model.Load(newFakeDevice()))

	// Source spans x in [0,3] and y in [0,1], so the largest axis is 3.
	min := mgl32.Vec3{1e9, 1e9, 1e9}
	max := mgl32.Vec3{-1e9, -1e9, -1e9}
	for i, mesh := range model.Meshes() {
		for _, pos := range src.Meshes[i].Positions {
			p := mesh.ModelMatrix().Mul4x1(pos.Vec4(1)).Vec3()
			for c := 0; c < 3; c++ {
				if p[c] < min[c] {
					min[c] = p[c]
				}
				if p[c] > max[c] {
					max[c] = p[c]
				}
			}
		}
	}
	assert.InDelta(t, -1, min.X(), 1e-5)
	assert.InDelta(t, 1, max.X(), 1e-5)
	assert.InDelta(t, -1.0/3.0, min.Y(), 1e-5)
	assert.InDelta(t, 1.0/3.0, max.Y(), 1e-5)
	assert.InDelta(t, 1, model.Extent(), 1e-6)
}

func TestModelScaleOnlyLatestMatters(t *testing.T) {
	a := loadedModel(t, newFakeDevice(), DefaultRenderingOptions())
	b := loadedModel(t, newFakeDevice(), DefaultRenderingOptions())

	a.Scale(3)
	a.Scale(0.5)
	b.Scale(0.5)

	for i := range a.Meshes() {
		assert.Equal(t, b.Meshes()[i].ModelMatrix(), a.Meshes()[i].ModelMatrix())
		assert.Equal(t, b.Meshes()[i].WorldMatrix(), a.Meshes()[i].WorldMatrix())
	}
	assert.InDelta(t, 0.5, a.Extent(), 1e-6)

	a.Scale(1)
	for _, mesh := range a.Meshes() {
		assert.Equal(t, mesh.WorldMatrix(), mesh.ModelMatrix())
	}
}

func TestModelScaleBeforeLoad(t *testing.T) {
	model := NewModel(texturedScene("early"), DefaultRenderingOptions())
	model.Scale(2)
	require.NoError(t, model.Load(newFakeDevice()))

	for _, mesh := range model.Meshes() {
		want := mgl32.Scale3D(2, 2, 2).Mul4(mesh.WorldMatrix())
		assert.Equal(t, want, mesh.ModelMatrix())
	}
}

func TestModelDrawGatesChannels(t *testing.T) {
	dev := newFakeDevice()
	opts := DefaultRenderingOptions()
	model := loadedModel(t, dev, opts)
	first := model.Meshes()[0]

	u := newRecordingUniforms()
	model.bindMaterial(u, dev, first)
	assert.True(t, u.bool("has_albedo_map"))
	assert.True(t, u.bool("has_normal_map"))
	assert.False(t, u.bool("has_metalness_map"))
	assert.False(t, u.bool("has_roughness_map"))
	assert.False(t, u.bool("has_ao_map"))
	assert.Equal(t, first.albedoMap, dev.bound[AlbedoUnit])
	assert.Equal(t, first.normalMap, dev.bound[NormalUnit])
	assert.Equal(t, int32(NormalUnit), u.values["normal_map"])

	opts.NormalMapping = false
	u = newRecordingUniforms()
	model.bindMaterial(u, dev, first)
	assert.False(t, u.bool("has_normal_map"))
	assert.True(t, u.bool("has_albedo_map"))
}

func TestModelDrawIssuesOneCallPerMesh(t *testing.T) {
	dev := newFakeDevice()
	model := loadedModel(t, dev, DefaultRenderingOptions())
	u := newRecordingUniforms()

	model.Draw(u, dev)

	require.Len(t, dev.draws, 2)
	assert.Equal(t, Index16, dev.draws[0].IndexWidth)
	assert.Equal(t, int32(6), dev.draws[0].IndexCount)
	assert.Equal(t, model.Meshes()[1].ModelMatrix(), u.values["M"])
}

func TestModelDrawVisibleCullsOutsideFrustum(t *testing.T) {
	dev := newFakeDevice()
	model := loadedModel(t, dev, DefaultRenderingOptions())
	cam := NewCamera(1)

	inside := cam.CalculateFrustum()
	model.DrawVisible(newRecordingUniforms(), dev, &inside)
	assert.Len(t, dev.draws, 2)

	// Pull the far plane in front of the model.
	cam.Far = 1
	cam.UpdateProjection()
	cam.Update(cam.Azimuth(), cam.Zenith(), cam.Distance())
	short := cam.CalculateFrustum()

	dev.draws = nil
	model.DrawVisible(newRecordingUniforms(), dev, &short)
	assert.Empty(t, dev.draws)
}

func TestModelDeleteReleasesEverything(t *testing.T) {
	dev := newFakeDevice()
	model := loadedModel(t, dev, DefaultRenderingOptions())
	require.NotZero(t, dev.live())

	model.Delete(dev)

	assert.Zero(t, dev.live())
	assert.Empty(t, model.Meshes())
	assert.Zero(t, model.TextureCount())

	// A second delete is harmless.
	model.Delete(dev)
}

func TestModelDeleteReleasesSharedTexturesOnce(t *testing.T) {
	dev := newFakeDevice()
	model := loadedModel(t, dev, DefaultRenderingOptions())

	logs := observeLogs(t)
	model.Delete(dev)

	assert.Equal(t, dev.texturesCreated, dev.texturesDeleted)
	for _, e := range logs.All() {
		assert.NotEqual(t, zapcore.WarnLevel, e.Level, e.Message)
	}
}

func TestModelLoadFailureUnwinds(t *testing.T) {
	dev := newFakeDevice()
	// Uploads go albedo then normal map of the first mesh.
	dev.failTexturesAt = 2

	model := NewModel(texturedScene("broken"), DefaultRenderingOptions())
	err := model.Load(dev)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errFakeUpload))
	assert.Zero(t, dev.live())
	assert.False(t, model.Loaded())
}

func TestModelWithoutGeometry(t *testing.T) {
	err := NewModel(&SceneSource{Name: "empty"}, nil).Load(newFakeDevice())
	assert.ErrorIs(t, err, ErrNoGeometry)

	err = NewModel(nil, nil).Load(newFakeDevice())
	assert.ErrorIs(t, err, ErrNoGeometry)

	bad := &SceneSource{Name: "bad", Meshes: []MeshSource{{Name: "nothing", WorldMatrix: mgl32.Ident4()}}}
	err = NewModel(bad, nil).Load(newFakeDevice())
	assert.ErrorIs(t, err, ErrNoGeometry)
}

func TestModelWithoutUVsDisablesNormalMapping(t *testing.T) {
	mat := DefaultMaterial()
	mat.Normal = &TextureRef{Key: "n", Image: solidImage(color.RGBA{128, 128, 255, 255})}
	mesh := quadMesh("plain", mgl32.Vec3{}, mat)
	mesh.UVs = nil

	dev := newFakeDevice()
	model := NewModel(&SceneSource{Name: "plain", Meshes: []MeshSource{mesh}}, DefaultRenderingOptions())
	require.NoError(t, model.Load(dev))
	require.False(t, model.Meshes()[0].NormalMappingSupported)

	u := newRecordingUniforms()
	model.bindMaterial(u, dev, model.Meshes()[0])
	assert.False(t, u.bool("has_normal_map"))
}

func TestModelCounts(t *testing.T) {
	model := loadedModel(t, newFakeDevice(), DefaultRenderingOptions())
	assert.Equal(t, 8, model.VertexCount())
	assert.Equal(t, 4, model.TriangleCount())
}
