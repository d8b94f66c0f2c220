package renderer

import (
	"GopherPBR/internal/ibl"
	"GopherPBR/internal/logger"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	DefaultShadowMapSize = 2048
	DefaultExposure      = 1.0
	// IndicatorDistance is how far from the origin the sun marker sits.
	IndicatorDistance = 5.0
	indicatorSize     = 0.1
	loadWorkers       = 2
)

var DefaultBackgroundColor = mgl32.Vec3{0.1, 0.1, 0.12}

// passKind is one step of a frame.
type passKind int

const (
	passShadow passKind = iota
	passForward
	passSkybox
	passPost
	passDepthDebug
)

func (p passKind) String() string {
	switch p {
	case passShadow:
		return "shadow"
	case passForward:
		return "forward"
	case passSkybox:
		return "skybox"
	case passPost:
		return "post"
	case passDepthDebug:
		return "depth-debug"
	}
	return fmt.Sprintf("pass(%d)", int(p))
}

// framePlan lists the passes of one frame in order. Options are read once
// here so a toggle takes effect on the next plan.
func framePlan(opts *RenderingOptions, hasModel, hasEnvironment bool) []passKind {
	if opts.Mode == ModeDepthFromLight {
		return []passKind{passShadow, passDepthDebug}
	}
	plan := make([]passKind, 0, 4)
	if opts.Shadows && hasModel {
		plan = append(plan, passShadow)
	}
	plan = append(plan, passForward)
	if opts.EnvironmentMap && hasEnvironment {
		plan = append(plan, passSkybox)
	}
	return append(plan, passPost)
}

func planHas(plan []passKind, p passKind) bool {
	for _, q := range plan {
		if q == p {
			return true
		}
	}
	return false
}

// sunUniforms returns the light direction and color the forward pass
// binds. A disabled sun keeps its direction but has zero radiance.
func sunUniforms(light *DirectionalLight, opts *RenderingOptions) (direction, color mgl32.Vec3) {
	if !opts.Sun {
		return light.Direction(), mgl32.Vec3{}
	}
	return light.Direction(), light.Radiance()
}

// environmentBaker turns a panorama into GPU lighting textures. It runs on
// the frame loop goroutine.
type environmentBaker interface {
	Bake(pano *ibl.Panorama) (*Environment, error)
	Delete()
}

type loadKind int

const (
	loadModel loadKind = iota
	loadEnvironment
)

// loadResult is a finished async load waiting for the frame loop.
type loadResult struct {
	kind   loadKind
	ticket uint64
	path   string
	model  *Model
	pano   *ibl.Panorama
	err    error
}

// OpenGLRenderer composes frames: an optional shadow pass, the forward PBR
// pass with skybox and a post processing pass, or the light depth debug
// view. All GPU work happens in RunFrame and the Load*/Set* calls, which
// must be made from the goroutine that owns the GL context.
type OpenGLRenderer struct {
	options     *RenderingOptions
	loader      SceneLoader
	device      Device
	camera      *Camera
	light       *DirectionalLight
	model       *Model
	environment *Environment
	baker       environmentBaker

	// EnvironmentConfig sizes the maps produced by environment loads. Set
	// before Init.
	EnvironmentConfig ibl.BakerConfig
	ShadowMapSize     int32
	// OnLoadError is called on the frame loop when an async load fails.
	OnLoadError func(path string, err error)

	width, height int32
	forwardTarget *ColorTarget
	shadowTarget  *DepthTarget

	pbrShader        *Shader
	shadowShader     *Shader
	postShader       *Shader
	depthDebugShader *Shader
	indicatorShader  *Shader
	skybox           *Skybox
	cube             *unitCube
	quad             *screenQuad

	lightSpaceMatrix mgl32.Mat4
	exposure         float32
	backgroundColor  mgl32.Vec3
	ambientColor     mgl32.Vec3
	modelScale       float32
	shouldRender     bool

	loads         pond.Pool
	mu            sync.Mutex
	inbox         []loadResult
	modelTicket   atomic.Uint64
	envTicket     atomic.Uint64
	initialized   bool
	closed        bool
	frameCount    uint64
	lastPlanLabel string
}

// NewOpenGLRenderer creates a renderer with a default camera and sun. No
// GL calls are made until Init.
func NewOpenGLRenderer(loader SceneLoader, options *RenderingOptions) *OpenGLRenderer {
	if options == nil {
		options = DefaultRenderingOptions()
	}
	r := &OpenGLRenderer{
		options:           options,
		loader:            loader,
		device:            NewGLDevice(),
		camera:            NewCamera(1),
		light:             CreateSunlight(),
		EnvironmentConfig: ibl.DefaultBakerConfig(),
		ShadowMapSize:     DefaultShadowMapSize,
		exposure:          DefaultExposure,
		backgroundColor:   DefaultBackgroundColor,
		ambientColor:      mgl32.Vec3{0.03, 0.03, 0.03},
		modelScale:        1,
		shouldRender:      true,
		loads:             pond.NewPool(loadWorkers),
	}
	r.updateLightSpaceMatrix()
	return r
}

// Init loads GL, compiles every shader and allocates the render targets.
// Any failure here is fatal for the renderer.
func (r *OpenGLRenderer) Init(width, height int32) error {
	if err := gl.Init(); err != nil {
		logger.Log.Error("OpenGL initialization failed", zap.Error(err))
		return err
	}
	logger.Log.Info("OpenGL context",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	var undo Unwind
	defer undo.Unwind()

	shaders := []struct {
		dst      **Shader
		name, vs string
		fs       string
	}{
		{&r.pbrShader, "pbr", pbrVertexShaderSource, pbrFragmentShaderSource},
		{&r.shadowShader, "shadow", shadowVertexShaderSource, shadowFragmentShaderSource},
		{&r.postShader, "post", quadVertexShaderSource, postFragmentShaderSource},
		{&r.depthDebugShader, "depth-debug", quadVertexShaderSource, depthDebugFragmentShaderSource},
		{&r.indicatorShader, "indicator", indicatorVertexShaderSource, indicatorFragmentShaderSource},
	}
	for _, s := range shaders {
		shader, err := NewShader(s.name, s.vs, s.fs)
		if err != nil {
			return err
		}
		undo.Add(shader.Delete)
		*s.dst = shader
	}

	formats := formatsFor(detectCapabilities())
	forward, err := NewColorTarget(width, height, formats.color)
	if err != nil {
		return err
	}
	undo.Add(forward.Delete)
	shadow, err := NewDepthTarget(r.ShadowMapSize, r.ShadowMapSize)
	if err != nil {
		return err
	}
	undo.Add(shadow.Delete)

	r.cube = newUnitCube()
	undo.Add(r.cube.delete)
	r.quad = newScreenQuad()
	undo.Add(r.quad.delete)

	skybox, err := NewSkybox(r.cube)
	if err != nil {
		return err
	}
	undo.Add(skybox.Delete)

	baker, err := NewEnvironmentBaker(r.EnvironmentConfig)
	if err != nil {
		return err
	}

	undo.Discard()
	r.forwardTarget, r.shadowTarget = forward, shadow
	r.skybox, r.baker = skybox, baker
	r.bindSamplerUnits()
	r.SetViewportDimensions(width, height)
	r.initialized = true
	logger.Log.Info("OpenGL renderer initialized",
		zap.Int32("width", width),
		zap.Int32("height", height),
		zap.Int32("shadowMapSize", r.ShadowMapSize))
	return nil
}

// bindSamplerUnits gives every sampler of the PBR program its own unit so
// 2D and cube samplers never alias, whether or not a texture is bound.
func (r *OpenGLRenderer) bindSamplerUnits() {
	r.pbrShader.Use()
	units := map[string]uint32{
		"albedo_map":     AlbedoUnit,
		"normal_map":     NormalUnit,
		"metalness_map":  MetalnessUnit,
		"roughness_map":  RoughnessUnit,
		"ao_map":         AOUnit,
		"shadow_map":     ShadowMapUnit,
		"irradiance_map": IrradianceUnit,
		"prefilter_map":  PrefilterUnit,
		"brdf_lut":       BRDFLUTUnit,
	}
	for name, unit := range units {
		r.pbrShader.SetInt(name, int32(unit))
	}
	r.postShader.Use()
	r.postShader.SetInt("color_map", 0)
	r.depthDebugShader.Use()
	r.depthDebugShader.SetInt("depth_map", 0)
	gl.UseProgram(0)
}

// RunFrame installs finished loads, renders one frame and reports whether
// the caller should schedule another.
func (r *OpenGLRenderer) RunFrame() bool {
	r.installPending()

	plan := framePlan(r.options, r.model != nil, r.environment != nil)
	r.logPlan(plan)
	for _, pass := range plan {
		switch pass {
		case passShadow:
			r.shadowPass()
		case passForward:
			r.forwardPass(planHas(plan, passShadow))
		case passSkybox:
			r.skybox.Render(r.camera.ViewRotation(), r.camera.Projection(), r.environment.EnvironmentMap)
		case passPost:
			r.postPass()
		case passDepthDebug:
			r.depthDebugPass()
		}
	}
	r.frameCount++
	return r.shouldRender
}

func (r *OpenGLRenderer) logPlan(plan []passKind) {
	label := fmt.Sprint(plan)
	if label == r.lastPlanLabel {
		return
	}
	r.lastPlanLabel = label
	logger.Log.Debug("Frame plan changed", zap.String("passes", label), zap.Uint64("frame", r.frameCount))
}

// shadowPass renders depth from the light with front face culling.
func (r *OpenGLRenderer) shadowPass() {
	r.shadowTarget.Enable()
	if r.model != nil {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
		r.shadowShader.Use()
		r.shadowShader.SetMat4("light_space_matrix", r.lightSpaceMatrix)
		r.model.DrawDepth(r.shadowShader, r.device)
		gl.CullFace(gl.BACK)
		gl.Disable(gl.CULL_FACE)
	}
	r.shadowTarget.Disable(r.width, r.height)
}

func (r *OpenGLRenderer) forwardPass(shadowed bool) {
	r.forwardTarget.Enable()
	bg := r.clearColor()
	gl.ClearColor(bg.X(), bg.Y(), bg.Z(), 1)
	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if r.model != nil {
		r.pbrShader.Use()
		r.setForwardUniforms(r.pbrShader, shadowed)
		var frustum *Frustum
		if r.options.FrustumCulling {
			f := r.camera.CalculateFrustum()
			frustum = &f
		}
		r.model.DrawVisible(r.pbrShader, r.device, frustum)
	}
	if r.options.Sun {
		r.indicatorShader.Use()
		r.indicatorShader.SetMat4("VP", r.camera.ViewProjection())
		r.indicatorShader.SetMat4("M", indicatorMatrix(r.light))
		r.indicatorShader.SetVec3("color", r.light.Color())
		r.cube.draw()
	}
}

// setForwardUniforms writes the per-frame state of the PBR program and
// binds the shadow and IBL textures to their reserved units.
func (r *OpenGLRenderer) setForwardUniforms(u Uniforms, shadowed bool) {
	u.SetMat4("VP", r.camera.ViewProjection())
	u.SetVec3("camera_position", r.camera.Position())
	direction, color := sunUniforms(r.light, r.options)
	u.SetVec3("sun_light_direction", direction)
	u.SetVec3("sun_light_color", color)
	u.SetMat4("light_space_matrix", r.lightSpaceMatrix)
	u.SetVec3("ambient_color", r.ambientColor)

	shadowed = shadowed && r.shadowTarget != nil
	u.SetBool("has_shadow_map", shadowed)
	if shadowed {
		r.device.BindTexture2D(ShadowMapUnit, r.shadowTarget.DepthTexture())
	}

	lit := r.options.IBL && r.environment != nil
	u.SetBool("has_ibl", lit)
	if lit {
		r.device.BindTextureCube(IrradianceUnit, r.environment.IrradianceMap)
		r.device.BindTextureCube(PrefilterUnit, r.environment.PrefilterMap)
		r.device.BindTexture2D(BRDFLUTUnit, r.environment.BRDFLUT)
		u.SetFloat("max_reflection_lod", r.environment.MaxReflectionLod())
	}
}

// clearColor is the forward pass background. The skybox covers it when an
// environment is shown.
func (r *OpenGLRenderer) clearColor() mgl32.Vec3 {
	if r.options.EnvironmentMap && r.environment != nil {
		return mgl32.Vec3{}
	}
	return r.backgroundColor
}

func indicatorMatrix(light *DirectionalLight) mgl32.Mat4 {
	p := light.Direction().Mul(-IndicatorDistance)
	return mgl32.Translate3D(p.X(), p.Y(), p.Z()).Mul4(mgl32.Scale3D(indicatorSize, indicatorSize, indicatorSize))
}

// postPass copies the forward target to the screen, applying tonemapping
// and gamma when enabled.
func (r *OpenGLRenderer) postPass() {
	r.forwardTarget.Disable()
	gl.Viewport(0, 0, r.width, r.height)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	r.postShader.Use()
	r.postShader.SetFloat("exposure", r.exposure)
	r.postShader.SetBool("tonemapping", r.options.Tonemapping)
	r.postShader.SetBool("gamma_correction", r.options.GammaCorrection)
	r.device.BindTexture2D(0, r.forwardTarget.ColorTexture())
	r.quad.draw()
}

// depthDebugPass shows the raw light depth texture, unshaded.
func (r *OpenGLRenderer) depthDebugPass() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, r.width, r.height)
	gl.Disable(gl.DEPTH_TEST)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	r.depthDebugShader.Use()
	r.device.BindTexture2D(0, r.shadowTarget.DepthTexture())
	r.quad.draw()
}

// SetViewportDimensions keeps the camera aspect and the forward target in
// step with the window.
func (r *OpenGLRenderer) SetViewportDimensions(width, height int32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("viewport %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	r.width, r.height = width, height
	r.camera.UpdateAspectRatio(float32(width) / float32(height))
	if r.forwardTarget == nil {
		return nil
	}
	if r.forwardTarget.Width() == width && r.forwardTarget.Height() == height {
		return nil
	}
	return r.forwardTarget.Resize(width, height)
}

// LoadModelByPath parses a model off the frame loop. The current model
// stays in use until the new one is installed by a later RunFrame. Only
// the most recent request is installed.
func (r *OpenGLRenderer) LoadModelByPath(path string) {
	ticket := r.modelTicket.Add(1)
	logger.Log.Info("Loading model", zap.String("path", path), zap.Uint64("ticket", ticket))
	r.loads.Submit(func() {
		res := loadResult{kind: loadModel, ticket: ticket, path: path}
		src, err := r.loader.LoadModel(path)
		if err == nil {
			model := NewModel(src, r.options)
			if err = model.Prepare(); err == nil {
				res.model = model
			}
		}
		res.err = err
		r.deliver(res)
	})
}

// LoadEnvironmentByPath decodes a panorama off the frame loop; the bake
// and swap happen in a later RunFrame.
func (r *OpenGLRenderer) LoadEnvironmentByPath(path string) {
	ticket := r.envTicket.Add(1)
	logger.Log.Info("Loading environment", zap.String("path", path), zap.Uint64("ticket", ticket))
	r.loads.Submit(func() {
		pano, err := r.loader.LoadEnvironment(path)
		r.deliver(loadResult{kind: loadEnvironment, ticket: ticket, path: path, pano: pano, err: err})
	})
}

func (r *OpenGLRenderer) deliver(res loadResult) {
	r.mu.Lock()
	r.inbox = append(r.inbox, res)
	r.mu.Unlock()
}

func (r *OpenGLRenderer) pendingLoads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inbox)
}

// installPending swaps in finished loads. A result whose ticket is older
// than the latest request of its kind is dropped.
func (r *OpenGLRenderer) installPending() {
	r.mu.Lock()
	results := r.inbox
	r.inbox = nil
	r.mu.Unlock()

	for _, res := range results {
		latest := r.modelTicket.Load()
		if res.kind == loadEnvironment {
			latest = r.envTicket.Load()
		}
		if res.ticket != latest {
			logger.Log.Debug("Discarding superseded load", zap.String("path", res.path), zap.Uint64("ticket", res.ticket))
			continue
		}
		if res.err != nil {
			r.reportLoadError(res.path, res.err)
			continue
		}

		var err error
		switch res.kind {
		case loadModel:
			err = r.installModel(res.model)
		case loadEnvironment:
			err = r.installEnvironment(res.path, res.pano)
		}
		if err != nil {
			r.reportLoadError(res.path, err)
		}
	}
}

func (r *OpenGLRenderer) reportLoadError(path string, err error) {
	logger.Log.Error("Load failed, keeping current resource", zap.String("path", path), zap.Error(err))
	if r.OnLoadError != nil {
		r.OnLoadError(path, err)
	}
}

// LoadModel uploads and installs a parsed scene immediately. It also
// supersedes any model load still in flight.
func (r *OpenGLRenderer) LoadModel(src *SceneSource) error {
	r.modelTicket.Add(1)
	return r.installModel(NewModel(src, r.options))
}

// LoadEnvironment bakes and installs a panorama immediately.
func (r *OpenGLRenderer) LoadEnvironment(name string, pano *ibl.Panorama) error {
	r.envTicket.Add(1)
	return r.installEnvironment(name, pano)
}

// installModel fully uploads the new model before swapping it in, then
// releases the old one.
func (r *OpenGLRenderer) installModel(model *Model) error {
	model.Scale(r.modelScale)
	if err := model.Load(r.device); err != nil {
		return err
	}
	old := r.model
	r.model = model
	r.updateLightSpaceMatrix()
	if old != nil {
		old.Delete(r.device)
	}
	logger.Log.Info("Model installed",
		zap.String("name", model.Name),
		zap.Int("vertices", model.VertexCount()),
		zap.Int("triangles", model.TriangleCount()))
	model.textures.LogStats()
	return nil
}

func (r *OpenGLRenderer) installEnvironment(name string, pano *ibl.Panorama) error {
	if r.baker == nil {
		return fmt.Errorf("environment %q: renderer not initialized", name)
	}
	env, err := r.baker.Bake(pano)
	if err != nil {
		return err
	}
	env.Name = name
	old := r.environment
	r.environment = env
	if old != nil {
		old.Delete(r.device)
	}
	logger.Log.Info("Environment installed", zap.String("name", name), zap.Int("faceSize", env.FaceSize))
	return nil
}

func (r *OpenGLRenderer) SetSunIntensity(intensity float32) {
	r.light.SetIntensity(intensity)
}

// SetSunDirectionToCameraViewDirection makes the sun shine along the
// current view direction, so the visible side of the model is lit.
func (r *OpenGLRenderer) SetSunDirectionToCameraViewDirection() {
	r.light.SetDirection(r.camera.Direction().Mul(-1))
	r.updateLightSpaceMatrix()
}

func (r *OpenGLRenderer) SetEnvironmentBackgroundColor(color mgl32.Vec3) {
	r.backgroundColor = color
}

func (r *OpenGLRenderer) SetExposure(exposure float32) {
	if exposure < 0 {
		exposure = 0
	}
	r.exposure = exposure
}

// SetModelScale rescales the model and refits the shadow box to it.
func (r *OpenGLRenderer) SetModelScale(scale float32) {
	if scale <= 0 {
		return
	}
	r.modelScale = scale
	if r.model != nil {
		r.model.Scale(scale)
	}
	r.updateLightSpaceMatrix()
}

func (r *OpenGLRenderer) updateLightSpaceMatrix() {
	extent := InitialModelSize / 2 * r.modelScale
	if r.model != nil {
		extent = r.model.Extent()
	}
	r.lightSpaceMatrix = r.light.LightSpaceMatrix(extent)
}

func (r *OpenGLRenderer) Camera() *Camera                 { return r.camera }
func (r *OpenGLRenderer) Light() *DirectionalLight        { return r.light }
func (r *OpenGLRenderer) Options() *RenderingOptions      { return r.options }
func (r *OpenGLRenderer) Model() *Model                   { return r.model }
func (r *OpenGLRenderer) Environment() *Environment       { return r.environment }
func (r *OpenGLRenderer) Exposure() float32               { return r.exposure }
func (r *OpenGLRenderer) ModelScale() float32             { return r.modelScale }
func (r *OpenGLRenderer) LightSpaceMatrix() mgl32.Mat4    { return r.lightSpaceMatrix }
func (r *OpenGLRenderer) BackgroundColor() mgl32.Vec3     { return r.backgroundColor }
func (r *OpenGLRenderer) Viewport() (width, height int32) { return r.width, r.height }

// Stop clears the continue flag; the current frame still completes.
func (r *OpenGLRenderer) Stop() { r.shouldRender = false }

// Cleanup waits for in-flight loads and releases every GPU resource. Safe
// to call twice.
func (r *OpenGLRenderer) Cleanup() {
	if !r.closed {
		r.closed = true
		r.loads.StopAndWait()
	}
	if r.model != nil {
		r.model.Delete(r.device)
		r.model = nil
	}
	if r.environment != nil {
		r.environment.Delete(r.device)
		r.environment = nil
	}
	if !r.initialized {
		return
	}
	r.baker.Delete()
	r.skybox.Delete()
	for _, shader := range []*Shader{r.pbrShader, r.shadowShader, r.postShader, r.depthDebugShader, r.indicatorShader} {
		shader.Delete()
	}
	r.forwardTarget.Delete()
	r.shadowTarget.Delete()
	r.cube.delete()
	r.quad.delete()
	r.initialized = false
	logger.Log.Info("OpenGL renderer cleaned up")
}
