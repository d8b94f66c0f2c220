package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Render is the surface the window loop and UI drive. The loop calls
// RunFrame once per display refresh until it returns false.
type Render interface {
	Init(width, height int32) error
	RunFrame() bool
	SetViewportDimensions(width, height int32) error
	LoadModelByPath(path string)
	LoadEnvironmentByPath(path string)
	SetSunIntensity(intensity float32)
	SetSunDirectionToCameraViewDirection()
	SetEnvironmentBackgroundColor(color mgl32.Vec3)
	SetExposure(exposure float32)
	Exposure() float32
	SetModelScale(scale float32)
	Camera() *Camera
	Options() *RenderingOptions
	Stop()
	Cleanup()
}

var _ Render = (*OpenGLRenderer)(nil)
