package engine

import (
	"fmt"
	"runtime"

	"GopherPBR/internal/loader"
	"GopherPBR/internal/logger"
	"GopherPBR/internal/renderer"

	mgl "github.com/go-gl/mathgl/mgl32"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// exposureStep is the factor one +/- key press scales exposure by.
const exposureStep = 1.25

// Gopher owns the window and drives the renderer once per display refresh.
// Every method must run on the goroutine that called Render.
type Gopher struct {
	Config *Config
	Loader *loader.Loader

	rendererAPI renderer.Render
	window      *glfw.Window

	dragging     bool
	lastX, lastY float64
}

func NewGopher(cfg *Config) *Gopher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger.Log.Info("GopherPBR initializing...")
	return &Gopher{Config: cfg, Loader: loader.New()}
}

// Render opens the window, runs the frame loop until the window closes or
// the renderer stops, then releases everything.
func (gopher *Gopher) Render() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer gopher.Loader.Close()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("could not initialize glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	cfg := gopher.Config
	window, err := glfw.CreateWindow(int(cfg.WindowWidth), int(cfg.WindowHeight), cfg.WindowTitle, nil, nil)
	if err != nil {
		return fmt.Errorf("could not create glfw window: %w", err)
	}
	gopher.window = window
	window.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	SetDarkTitleBar(window)

	opts := cfg.Rendering
	r := renderer.NewOpenGLRenderer(gopher.Loader, &opts)
	r.ShadowMapSize = cfg.ShadowMapSize
	r.EnvironmentConfig = cfg.BakerConfig()
	r.OnLoadError = func(path string, err error) {
		window.SetTitle(fmt.Sprintf("%s - failed to load %s", cfg.WindowTitle, path))
	}
	defer r.Cleanup()

	// The framebuffer can be larger than the window on high DPI displays.
	fbWidth, fbHeight := window.GetFramebufferSize()
	if err := r.Init(int32(fbWidth), int32(fbHeight)); err != nil {
		return err
	}
	gopher.rendererAPI = r
	gopher.applyConfig()
	gopher.installCallbacks()

	if cfg.ModelPath != "" {
		r.LoadModelByPath(cfg.ModelPath)
	}
	if cfg.EnvironmentPath != "" {
		r.LoadEnvironmentByPath(cfg.EnvironmentPath)
	}

	gopher.RenderLoop()
	return nil
}

// RenderLoop runs frames until the window is closed or the renderer asks
// to stop.
func (gopher *Gopher) RenderLoop() {
	frames := 0
	lastReport := glfw.GetTime()
	for !gopher.window.ShouldClose() {
		if !gopher.rendererAPI.RunFrame() {
			break
		}
		gopher.window.SwapBuffers()
		glfw.PollEvents()

		frames++
		if now := glfw.GetTime(); now-lastReport >= 5 {
			logger.Log.Debug("Frame rate", zap.Float64("fps", float64(frames)/(now-lastReport)))
			frames, lastReport = 0, now
		}
	}
}

// applyConfig pushes the startup values the renderer does not take in its
// constructor.
func (gopher *Gopher) applyConfig() {
	cfg, r := gopher.Config, gopher.rendererAPI
	r.SetExposure(cfg.Exposure)
	r.SetSunIntensity(cfg.SunIntensity)
	r.SetEnvironmentBackgroundColor(mgl.Vec3(cfg.BackgroundColor))
	r.SetModelScale(cfg.ModelScale)
	if cfg.RotateSensitivity > 0 {
		r.Camera().RotateSensitivity = cfg.RotateSensitivity
	}
	if cfg.ZoomSensitivity > 0 {
		r.Camera().ZoomSensitivity = cfg.ZoomSensitivity
	}
}

func (gopher *Gopher) installCallbacks() {
	gopher.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		// A minimized window reports 0x0; keep the last size.
		if err := gopher.rendererAPI.SetViewportDimensions(int32(width), int32(height)); err != nil {
			logger.Log.Debug("Viewport unchanged", zap.Error(err))
		}
	})
	gopher.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		gopher.dragging = action == glfw.Press
		gopher.lastX, gopher.lastY = w.GetCursorPos()
	})
	gopher.window.SetCursorPosCallback(gopher.mouseCallback)
	gopher.window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		gopher.rendererAPI.Camera().OnWheel(float32(yoff))
	})
	gopher.window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		HandleKey(gopher.rendererAPI, key)
	})
	gopher.window.SetDropCallback(func(_ *glfw.Window, names []string) {
		for _, name := range names {
			LoadDropped(gopher.rendererAPI, name)
		}
	})
}

// Mouse callback function
func (gopher *Gopher) mouseCallback(_ *glfw.Window, xpos, ypos float64) {
	if !gopher.dragging {
		return
	}
	dx, dy := xpos-gopher.lastX, ypos-gopher.lastY
	gopher.lastX, gopher.lastY = xpos, ypos
	gopher.rendererAPI.Camera().OnPointerDrag(float32(dx), float32(dy))
}

// HandleKey applies the keyboard shortcuts:
//
//	1-9  toggle shadows, IBL, sun, AO, normal maps, environment,
//	     tonemapping, gamma and frustum culling
//	M    switch between the shaded view and the light depth view
//	L    point the sun along the camera view
//	+/-  raise or lower exposure
//	P/O  performance or full quality preset
//	Esc  stop rendering
//
// It reports whether the key was bound.
func HandleKey(r renderer.Render, key glfw.Key) bool {
	opts := r.Options()
	switch key {
	case glfw.KeyEscape:
		r.Stop()
		return true
	case glfw.Key1:
		opts.Shadows = !opts.Shadows
	case glfw.Key2:
		opts.IBL = !opts.IBL
	case glfw.Key3:
		opts.SetSun(!opts.Sun)
	case glfw.Key4:
		opts.AmbientOcclusion = !opts.AmbientOcclusion
	case glfw.Key5:
		opts.NormalMapping = !opts.NormalMapping
	case glfw.Key6:
		opts.SetEnvironmentMap(!opts.EnvironmentMap)
	case glfw.Key7:
		opts.Tonemapping = !opts.Tonemapping
	case glfw.Key8:
		opts.GammaCorrection = !opts.GammaCorrection
	case glfw.Key9:
		opts.FrustumCulling = !opts.FrustumCulling
	case glfw.KeyM:
		opts.ToggleMode()
	case glfw.KeyL:
		r.SetSunDirectionToCameraViewDirection()
	case glfw.KeyEqual, glfw.KeyKPAdd:
		r.SetExposure(r.Exposure() * exposureStep)
	case glfw.KeyMinus, glfw.KeyKPSubtract:
		r.SetExposure(r.Exposure() / exposureStep)
	case glfw.KeyP:
		mode := opts.Mode
		*opts = *renderer.PerformanceRenderingOptions()
		opts.Mode = mode
	case glfw.KeyO:
		mode := opts.Mode
		*opts = *renderer.DefaultRenderingOptions()
		opts.Mode = mode
	default:
		return false
	}
	logger.Log.Debug("Rendering options changed", zap.Any("options", *opts), zap.Float32("exposure", r.Exposure()))
	return true
}

// LoadDropped starts loading a file dropped onto the window, as a model or
// an environment depending on its type.
func LoadDropped(r renderer.Render, path string) {
	if loader.IsEnvironmentPath(path) {
		r.LoadEnvironmentByPath(path)
		return
	}
	r.LoadModelByPath(path)
}
