// camera.go
package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ZenithEpsilon keeps the orbit away from the poles, where the view
	// direction would be parallel to the world up vector.
	ZenithEpsilon = 0.01

	DefaultFov               = 45.0
	DefaultNear              = 0.1
	DefaultFar               = 100.0
	DefaultMaxDistance       = 20.0
	DefaultRotateSensitivity = 0.01 // radians per pixel
	DefaultZoomSensitivity   = 0.25 // units per wheel tick
)

// Camera orbits a fixed target on a sphere parameterized by azimuth, zenith
// and distance. Derived vectors and matrices are rebuilt only by Update and
// UpdateAspectRatio.
type Camera struct {
	// HOT DATA - Read every frame by the passes
	position       mgl32.Vec3
	direction      mgl32.Vec3 // Unit vector from target towards the camera
	right          mgl32.Vec3
	up             mgl32.Vec3
	view           mgl32.Mat4
	projection     mgl32.Mat4
	viewProjection mgl32.Mat4

	// COLD DATA - Orbit parameters and input handling
	azimuth  float32
	zenith   float32
	distance float32

	Target            mgl32.Vec3
	WorldUp           mgl32.Vec3
	Fov               float32 // Vertical field of view in degrees
	Near              float32
	Far               float32
	AspectRatio       float32
	MaxDistance       float32
	RotateSensitivity float32
	ZoomSensitivity   float32
}

type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

type Frustum struct {
	Planes [6]Plane
}

// NewCamera returns a camera looking at the origin from +Z at distance 5.
func NewCamera(aspectRatio float32) *Camera {
	c := &Camera{
		Target:            mgl32.Vec3{0, 0, 0},
		WorldUp:           mgl32.Vec3{0, 1, 0},
		Fov:               DefaultFov,
		Near:              DefaultNear,
		Far:               DefaultFar,
		AspectRatio:       aspectRatio,
		MaxDistance:       DefaultMaxDistance,
		RotateSensitivity: DefaultRotateSensitivity,
		ZoomSensitivity:   DefaultZoomSensitivity,
	}
	c.UpdateProjection()
	c.Update(math.Pi/2, math.Pi/2, 5)
	return c
}

// Update stores the clamped orbit parameters and rebuilds every derived
// vector and matrix.
func (c *Camera) Update(azimuth, zenith, distance float32) {
	c.azimuth = azimuth
	c.zenith = mgl32.Clamp(zenith, ZenithEpsilon, math.Pi-ZenithEpsilon)
	c.distance = mgl32.Clamp(distance, 0, c.MaxDistance)

	sinZ, cosZ := math.Sincos(float64(c.zenith))
	sinA, cosA := math.Sincos(float64(c.azimuth))
	c.direction = mgl32.Vec3{
		float32(sinZ * cosA),
		float32(cosZ),
		float32(sinZ * sinA),
	}
	c.position = c.Target.Add(c.direction.Mul(c.distance))
	c.right = c.WorldUp.Cross(c.direction).Normalize()
	c.up = c.direction.Cross(c.right).Normalize()

	// Looking along -direction instead of at the target keeps the view
	// well defined when distance is 0.
	c.view = mgl32.LookAtV(c.position, c.position.Sub(c.direction), c.WorldUp)
	c.viewProjection = c.projection.Mul4(c.view)
}

// UpdateAspectRatio rebuilds the projection for a new viewport shape.
func (c *Camera) UpdateAspectRatio(aspectRatio float32) {
	if aspectRatio <= 0 {
		return
	}
	c.AspectRatio = aspectRatio
	c.UpdateProjection()
	c.viewProjection = c.projection.Mul4(c.view)
}

func (c *Camera) UpdateProjection() {
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

// OnPointerDrag orbits the camera by a pointer delta in pixels, with y
// growing downwards as in window coordinates. Dragging up raises the camera.
func (c *Camera) OnPointerDrag(dx, dy float32) {
	c.Update(c.azimuth+dx*c.RotateSensitivity, c.zenith+dy*c.RotateSensitivity, c.distance)
}

// OnWheel zooms by a number of wheel ticks; positive ticks move closer.
func (c *Camera) OnWheel(ticks float32) {
	c.Update(c.azimuth, c.zenith, c.distance-ticks*c.ZoomSensitivity)
}

func (c *Camera) Azimuth() float32  { return c.azimuth }
func (c *Camera) Zenith() float32   { return c.zenith }
func (c *Camera) Distance() float32 { return c.distance }

func (c *Camera) Position() mgl32.Vec3  { return c.position }
func (c *Camera) Direction() mgl32.Vec3 { return c.direction }
func (c *Camera) Right() mgl32.Vec3     { return c.right }
func (c *Camera) Up() mgl32.Vec3        { return c.up }

func (c *Camera) View() mgl32.Mat4           { return c.view }
func (c *Camera) Projection() mgl32.Mat4     { return c.projection }
func (c *Camera) ViewProjection() mgl32.Mat4 { return c.viewProjection }

// ViewRotation is the view matrix without translation, used by the skybox.
func (c *Camera) ViewRotation() mgl32.Mat4 {
	return c.view.Mat3().Mat4()
}

func (c *Camera) CalculateFrustum() Frustum {
	var frustum Frustum
	vp := c.viewProjection

	// Left Plane
	frustum.Planes[0] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[0], vp[7] + vp[4], vp[11] + vp[8]},
		Distance: vp[15] + vp[12],
	}

	// Right Plane
	frustum.Planes[1] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[0], vp[7] - vp[4], vp[11] - vp[8]},
		Distance: vp[15] - vp[12],
	}

	// Bottom Plane
	frustum.Planes[2] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[1], vp[7] + vp[5], vp[11] + vp[9]},
		Distance: vp[15] + vp[13],
	}

	// Top Plane
	frustum.Planes[3] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[1], vp[7] - vp[5], vp[11] - vp[9]},
		Distance: vp[15] - vp[13],
	}

	// Near Plane
	frustum.Planes[4] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[2], vp[7] + vp[6], vp[11] + vp[10]},
		Distance: vp[15] + vp[14],
	}

	// Far Plane
	frustum.Planes[5] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[2], vp[7] - vp[6], vp[11] - vp[10]},
		Distance: vp[15] - vp[14],
	}

	for i := 0; i < 6; i++ {
		length := frustum.Planes[i].Normal.Len()
		frustum.Planes[i].Normal = frustum.Planes[i].Normal.Mul(1.0 / length)
		frustum.Planes[i].Distance /= length
	}

	return frustum
}

func (p *Plane) DistanceToPoint(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

func (f *Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(center) < -radius {
			return false
		}
	}
	return true
}
