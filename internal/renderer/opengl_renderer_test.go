package renderer

import (
	"errors"
	"fmt"
	"image/color"
	"sync"
	"testing"
	"time"

	"GopherPBR/internal/ibl"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

// fakeLoader serves scenes and panoramas from memory. A gated path blocks
// until its gate is closed.
type fakeLoader struct {
	models map[string]func() *SceneSource
	envs   map[string]*ibl.Panorama
	gates  map[string]chan struct{}
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		models: make(map[string]func() *SceneSource),
		envs:   make(map[string]*ibl.Panorama),
		gates:  make(map[string]chan struct{}),
	}
}

func (l *fakeLoader) gate(path string) chan struct{} {
	ch := make(chan struct{})
	l.gates[path] = ch
	return ch
}

func (l *fakeLoader) LoadModel(path string) (*SceneSource, error) {
	if gate, ok := l.gates[path]; ok {
		<-gate
	}
	build, ok := l.models[path]
	if !ok {
		return nil, errNotFound
	}
	return build(), nil
}

func (l *fakeLoader) LoadEnvironment(path string) (*ibl.Panorama, error) {
	if gate, ok := l.gates[path]; ok {
		<-gate
	}
	pano, ok := l.envs[path]
	if !ok {
		return nil, errNotFound
	}
	return pano, nil
}

// fakeBaker allocates four live textures per bake on the fake device.
type fakeBaker struct {
	device *fakeDevice
	bakes  int
	fail   error
}

func (b *fakeBaker) Bake(pano *ibl.Panorama) (*Environment, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	if err := pano.Validate(); err != nil {
		return nil, err
	}
	b.bakes++
	env := &Environment{FaceSize: 8, PrefilterLevels: 5}
	for _, id := range []*uint32{&env.EnvironmentMap, &env.IrradianceMap, &env.PrefilterMap, &env.BRDFLUT} {
		*id, _ = b.device.CreateTexture2D(solidImage(color.RGBA{}))
	}
	return env, nil
}

func (b *fakeBaker) Delete() {}

func newTestRenderer(t *testing.T, loader SceneLoader) (*OpenGLRenderer, *fakeDevice) {
	t.Helper()
	r := NewOpenGLRenderer(loader, DefaultRenderingOptions())
	dev := newFakeDevice()
	r.device = dev
	r.baker = &fakeBaker{device: dev}
	t.Cleanup(r.Cleanup)
	return r, dev
}

func constantPanorama(t *testing.T) *ibl.Panorama {
	t.Helper()
	pano, err := ibl.NewConstantPanorama(2, 1, mgl32.Vec3{1, 1, 1})
	require.NoError(t, err)
	return pano
}

func waitForLoads(t *testing.T, r *OpenGLRenderer, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.pendingLoads() >= n }, 2*time.Second, time.Millisecond)
}

func TestFramePlan(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(o *RenderingOptions)
		hasModel bool
		hasEnv   bool
		want     []passKind
	}{
		{"everything", nil, true, true, []passKind{passShadow, passForward, passSkybox, passPost}},
		{"no environment yet", nil, true, false, []passKind{passShadow, passForward, passPost}},
		{"no model", nil, false, true, []passKind{passForward, passSkybox, passPost}},
		{"shadows off", func(o *RenderingOptions) { o.Shadows = false }, true, true, []passKind{passForward, passSkybox, passPost}},
		{"skybox off", func(o *RenderingOptions) { o.EnvironmentMap = false }, true, true, []passKind{passShadow, passForward, passPost}},
		{"depth from light", func(o *RenderingOptions) { o.Mode = ModeDepthFromLight }, true, true, []passKind{passShadow, passDepthDebug}},
		{"depth from light ignores shadow toggle", func(o *RenderingOptions) {
			o.Mode = ModeDepthFromLight
			o.Shadows = false
		}, true, false, []passKind{passShadow, passDepthDebug}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultRenderingOptions()
			if tt.setup != nil {
				tt.setup(opts)
			}
			assert.Equal(t, tt.want, framePlan(opts, tt.hasModel, tt.hasEnv))
		})
	}
}

func TestDepthFromLightSkipsShading(t *testing.T) {
	opts := DefaultRenderingOptions()
	opts.Mode = ModeDepthFromLight
	plan := framePlan(opts, true, true)

	assert.False(t, planHas(plan, passForward))
	assert.False(t, planHas(plan, passPost))
	assert.Equal(t, "[shadow depth-debug]", fmt.Sprint(plan))
}

func TestSunOffZeroesLightColor(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())
	r.Options().SetSun(false)
	r.SetSunIntensity(100)

	u := newRecordingUniforms()
	r.setForwardUniforms(u, false)

	assert.Equal(t, mgl32.Vec3{}, u.values["sun_light_color"])
	assert.Equal(t, r.Light().Direction(), u.values["sun_light_direction"])

	r.Options().Sun = true
	r.setForwardUniforms(u, false)
	assert.Equal(t, r.Light().Radiance(), u.values["sun_light_color"])
	assert.NotEqual(t, mgl32.Vec3{}, u.values["sun_light_color"])
}

func TestForwardUniformsBindIBL(t *testing.T) {
	r, dev := newTestRenderer(t, newFakeLoader())
	require.NoError(t, r.LoadEnvironment("studio", constantPanorama(t)))
	env := r.Environment()

	u := newRecordingUniforms()
	r.setForwardUniforms(u, true)

	assert.True(t, u.bool("has_ibl"))
	// No shadow target exists without a GL context.
	assert.False(t, u.bool("has_shadow_map"))
	assert.Equal(t, env.IrradianceMap, dev.boundCube[IrradianceUnit])
	assert.Equal(t, env.PrefilterMap, dev.boundCube[PrefilterUnit])
	assert.Equal(t, env.BRDFLUT, dev.bound[BRDFLUTUnit])
	assert.Equal(t, float32(4), u.values["max_reflection_lod"])
	assert.Equal(t, r.Camera().ViewProjection(), u.values["VP"])
	assert.Equal(t, r.Camera().Position(), u.values["camera_position"])
	assert.Equal(t, r.LightSpaceMatrix(), u.values["light_space_matrix"])

	r.Options().IBL = false
	u = newRecordingUniforms()
	r.setForwardUniforms(u, true)
	assert.False(t, u.bool("has_ibl"))
}

func TestLoadModelReleasesPreviousModel(t *testing.T) {
	r, dev := newTestRenderer(t, newFakeLoader())

	require.NoError(t, r.LoadModel(texturedScene("first")))
	first := r.Model()
	afterFirst := dev.live()

	require.NoError(t, r.LoadModel(texturedScene("second")))

	assert.Equal(t, "second", r.Model().Name)
	assert.False(t, first.Loaded())
	assert.Empty(t, first.Meshes())
	// Only the second model's textures and buffers remain.
	assert.Equal(t, afterFirst, dev.live())
	assert.Equal(t, 2, r.Model().TextureCount())
}

func TestFailedLoadKeepsCurrentModel(t *testing.T) {
	r, dev := newTestRenderer(t, newFakeLoader())
	require.NoError(t, r.LoadModel(texturedScene("kept")))
	live := dev.live()

	dev.failTexturesAt = dev.texturesCreated + 1
	err := r.LoadModel(texturedScene("broken"))

	assert.ErrorIs(t, err, errFakeUpload)
	assert.Equal(t, "kept", r.Model().Name)
	assert.True(t, r.Model().Loaded())
	assert.Equal(t, live, dev.live())
}

func TestLoadModelByPathInstallsOnNextFrame(t *testing.T) {
	loader := newFakeLoader()
	loader.models["crate.gltf"] = func() *SceneSource { return texturedScene("crate") }
	r, _ := newTestRenderer(t, loader)

	r.LoadModelByPath("crate.gltf")
	waitForLoads(t, r, 1)
	// Nothing is uploaded until the frame loop installs it.
	assert.Nil(t, r.Model())

	r.installPending()
	require.NotNil(t, r.Model())
	assert.Equal(t, "crate", r.Model().Name)
	assert.True(t, r.Model().Loaded())
	assert.Zero(t, r.pendingLoads())
}

func TestLatestModelRequestWins(t *testing.T) {
	loader := newFakeLoader()
	loader.models["slow.gltf"] = func() *SceneSource { return texturedScene("slow") }
	loader.models["fast.gltf"] = func() *SceneSource { return texturedScene("fast") }
	slow := loader.gate("slow.gltf")
	r, dev := newTestRenderer(t, loader)

	r.LoadModelByPath("slow.gltf")
	r.LoadModelByPath("fast.gltf")
	waitForLoads(t, r, 1)
	r.installPending()
	require.Equal(t, "fast", r.Model().Name)
	live := dev.live()

	// The older request finishes last and must not replace the newer one.
	close(slow)
	waitForLoads(t, r, 1)
	r.installPending()

	assert.Equal(t, "fast", r.Model().Name)
	assert.Equal(t, live, dev.live())
}

func TestSynchronousLoadSupersedesPendingOne(t *testing.T) {
	loader := newFakeLoader()
	loader.models["late.gltf"] = func() *SceneSource { return texturedScene("late") }
	gate := loader.gate("late.gltf")
	r, _ := newTestRenderer(t, loader)

	r.LoadModelByPath("late.gltf")
	require.NoError(t, r.LoadModel(texturedScene("direct")))
	close(gate)
	waitForLoads(t, r, 1)
	r.installPending()

	assert.Equal(t, "direct", r.Model().Name)
}

func TestAsyncLoadErrorIsReported(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())
	require.NoError(t, r.LoadModel(texturedScene("current")))

	var mu sync.Mutex
	var failed []string
	r.OnLoadError = func(path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.ErrorIs(t, err, errNotFound)
		failed = append(failed, path)
	}

	r.LoadModelByPath("missing.gltf")
	r.LoadEnvironmentByPath("missing.hdr")
	waitForLoads(t, r, 2)
	r.installPending()

	assert.ElementsMatch(t, []string{"missing.gltf", "missing.hdr"}, failed)
	assert.Equal(t, "current", r.Model().Name)
	assert.Nil(t, r.Environment())
}

func TestEnvironmentSwapReleasesOld(t *testing.T) {
	loader := newFakeLoader()
	loader.envs["a.hdr"] = constantPanorama(t)
	loader.envs["b.hdr"] = constantPanorama(t)
	r, dev := newTestRenderer(t, loader)

	r.LoadEnvironmentByPath("a.hdr")
	waitForLoads(t, r, 1)
	r.installPending()
	require.NotNil(t, r.Environment())
	assert.Equal(t, "a.hdr", r.Environment().Name)
	assert.Equal(t, 4, dev.live())

	r.LoadEnvironmentByPath("b.hdr")
	waitForLoads(t, r, 1)
	r.installPending()
	assert.Equal(t, "b.hdr", r.Environment().Name)
	assert.Equal(t, 4, dev.live())
}

func TestEnvironmentBakeFailureKeepsCurrent(t *testing.T) {
	r, dev := newTestRenderer(t, newFakeLoader())
	require.NoError(t, r.LoadEnvironment("good", constantPanorama(t)))

	bakeErr := errors.New("capture failed")
	r.baker.(*fakeBaker).fail = bakeErr
	err := r.LoadEnvironment("bad", constantPanorama(t))

	assert.ErrorIs(t, err, bakeErr)
	assert.Equal(t, "good", r.Environment().Name)
	assert.Equal(t, 4, dev.live())
}

func TestLoadEnvironmentWithoutBaker(t *testing.T) {
	r := NewOpenGLRenderer(newFakeLoader(), nil)
	defer r.Cleanup()

	assert.Error(t, r.LoadEnvironment("sky", constantPanorama(t)))
}

func TestCleanupReleasesEverything(t *testing.T) {
	r, dev := newTestRenderer(t, newFakeLoader())
	require.NoError(t, r.LoadModel(texturedScene("model")))
	require.NoError(t, r.LoadEnvironment("env", constantPanorama(t)))
	require.NotZero(t, dev.live())

	r.Cleanup()

	assert.Zero(t, dev.live())
	assert.Nil(t, r.Model())
	assert.Nil(t, r.Environment())
}

func TestSetModelScaleRefitsShadowBox(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())
	require.NoError(t, r.LoadModel(texturedScene("scaled")))
	before := r.LightSpaceMatrix()

	r.SetModelScale(3)

	assert.NotEqual(t, before, r.LightSpaceMatrix())
	assert.Equal(t, r.Light().LightSpaceMatrix(3), r.LightSpaceMatrix())
	for _, mesh := range r.Model().Meshes() {
		assert.Equal(t, mgl32.Scale3D(3, 3, 3).Mul4(mesh.WorldMatrix()), mesh.ModelMatrix())
	}

	// Non-positive scales are ignored.
	r.SetModelScale(0)
	assert.Equal(t, float32(3), r.ModelScale())
}

func TestNewModelInheritsScale(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())
	r.SetModelScale(2)
	require.NoError(t, r.LoadModel(texturedScene("late")))

	assert.Equal(t, float32(2), r.Model().CurrentScale())
	assert.Equal(t, r.Light().LightSpaceMatrix(2), r.LightSpaceMatrix())
}

func TestSunDirectionFollowsCamera(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())
	before := r.LightSpaceMatrix()

	r.SetSunDirectionToCameraViewDirection()

	want := r.Camera().Direction().Mul(-1)
	got := r.Light().Direction()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], 1e-5)
	}
	assert.NotEqual(t, before, r.LightSpaceMatrix())
}

func TestSetViewportDimensions(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())

	require.NoError(t, r.SetViewportDimensions(800, 400))
	assert.Equal(t, float32(2), r.Camera().AspectRatio)
	w, h := r.Viewport()
	assert.Equal(t, int32(800), w)
	assert.Equal(t, int32(400), h)

	assert.ErrorIs(t, r.SetViewportDimensions(0, 400), ErrInvalidDimensions)
	assert.Equal(t, float32(2), r.Camera().AspectRatio)
}

func TestClearColor(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())
	bg := mgl32.Vec3{0.2, 0.3, 0.4}
	r.SetEnvironmentBackgroundColor(bg)
	assert.Equal(t, bg, r.clearColor())

	require.NoError(t, r.LoadEnvironment("env", constantPanorama(t)))
	assert.Equal(t, mgl32.Vec3{}, r.clearColor())

	r.Options().EnvironmentMap = false
	assert.Equal(t, bg, r.clearColor())
}

func TestSetExposure(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())
	assert.Equal(t, float32(DefaultExposure), r.Exposure())

	r.SetExposure(2.5)
	assert.Equal(t, float32(2.5), r.Exposure())
	r.SetExposure(-1)
	assert.Zero(t, r.Exposure())
}

func TestIndicatorSitsOppositeLightDirection(t *testing.T) {
	light := NewDirectionalLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1}, 1)
	m := indicatorMatrix(light)

	assert.Equal(t, mgl32.Vec3{0, IndicatorDistance, 0}, m.Col(3).Vec3())
}

func TestStopClearsContinueFlag(t *testing.T) {
	r, _ := newTestRenderer(t, newFakeLoader())
	assert.True(t, r.shouldRender)
	r.Stop()
	assert.False(t, r.shouldRender)
}
