package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DirectionalLight is the single sun light. Radiance is cached and rebuilt
// whenever color or intensity change.
type DirectionalLight struct {
	direction mgl32.Vec3 // Normalized, pointing from the light into the scene
	color     mgl32.Vec3
	intensity float32
	radiance  mgl32.Vec3
}

func NewDirectionalLight(direction, color mgl32.Vec3, intensity float32) *DirectionalLight {
	l := &DirectionalLight{color: color, intensity: intensity}
	l.SetDirection(direction)
	l.radiance = color.Mul(intensity)
	return l
}

// CreateSunlight returns the default warm sun shining diagonally down.
func CreateSunlight() *DirectionalLight {
	return NewDirectionalLight(mgl32.Vec3{-2, -2, -2}, mgl32.Vec3{1.0, 0.94, 0.84}, 5.0)
}

// SetDirection stores the normalized direction. A zero vector is ignored.
func (l *DirectionalLight) SetDirection(direction mgl32.Vec3) {
	if direction.Len() == 0 {
		return
	}
	l.direction = direction.Normalize()
}

func (l *DirectionalLight) SetColor(color mgl32.Vec3) {
	l.color = color
	l.radiance = l.color.Mul(l.intensity)
}

func (l *DirectionalLight) SetIntensity(intensity float32) {
	l.intensity = intensity
	l.radiance = l.color.Mul(l.intensity)
}

func (l *DirectionalLight) Direction() mgl32.Vec3 { return l.direction }
func (l *DirectionalLight) Color() mgl32.Vec3     { return l.color }
func (l *DirectionalLight) Intensity() float32    { return l.intensity }
func (l *DirectionalLight) Radiance() mgl32.Vec3  { return l.radiance }

// CalcViewMatrix places a virtual camera at -direction*distance looking at
// the origin.
func (l *DirectionalLight) CalcViewMatrix(distance float32) mgl32.Mat4 {
	eye := l.direction.Mul(-distance)
	return LookAtSafe(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}

// LightSpaceMatrix builds the orthographic shadow projection around a model
// whose largest half-extent is extent, times the light view. The box is sized
// to the bounding sphere so every rotation of the light still encloses it.
func (l *DirectionalLight) LightSpaceMatrix(extent float32) mgl32.Mat4 {
	if extent <= 0 {
		extent = 1
	}
	h := extent * float32(math.Sqrt(3))
	distance := h + 1
	near := distance - h
	if near < 0.01 {
		near = 0.01
	}
	projection := mgl32.Ortho(-h, h, -h, h, near, distance+h)
	return projection.Mul4(l.CalcViewMatrix(distance))
}

// LookAtSafe is mgl32.LookAtV with a substitute up vector when the view
// direction is parallel to up, where the regular look-at degenerates.
func LookAtSafe(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	forward := center.Sub(eye)
	if forward.Len() == 0 {
		forward = mgl32.Vec3{0, 0, -1}
		center = eye.Add(forward)
	}
	if forward.Normalize().Cross(up.Normalize()).Len() < 1e-4 {
		up = mgl32.Vec3{0, 0, 1}
		if abs32(forward.Normalize().Z()) > 0.9 {
			up = mgl32.Vec3{1, 0, 0}
		}
	}
	return mgl32.LookAtV(eye, center, up)
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
