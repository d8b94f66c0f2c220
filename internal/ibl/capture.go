package ibl

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Cube faces in OpenGL order (TEXTURE_CUBE_MAP_POSITIVE_X + face).
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
	FaceCount
)

// Reference resolutions of the precomputed maps.
const (
	EnvironmentFaceSize = 1024
	IrradianceFaceSize  = 32
	PrefilterFaceSize   = 512
	PrefilterMipLevels  = 5
	BRDFLUTSize         = 512

	// PrefilterSampleCount and BRDFSampleCount are shared with the GLSL
	// kernels so both bakers converge to the same result.
	PrefilterSampleCount = 1024
	BRDFSampleCount      = 1024
	IrradianceSampleStep = 0.025
)

var faceNames = [FaceCount]string{"posx", "negx", "posy", "negy", "posz", "negz"}

// FaceName returns the conventional short name of a cube face.
func FaceName(face int) string {
	if face < 0 || face >= FaceCount {
		return "unknown"
	}
	return faceNames[face]
}

// CaptureViews returns the six 90 degree capture views from the origin.
// The +-Y faces use a +-Z up reference, every other face uses -Y, so that no
// view looks along its own up vector.
func CaptureViews() [FaceCount]mgl32.Mat4 {
	origin := mgl32.Vec3{}
	return [FaceCount]mgl32.Mat4{
		mgl32.LookAtV(origin, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}),
		mgl32.LookAtV(origin, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}),
		mgl32.LookAtV(origin, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}),
		mgl32.LookAtV(origin, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}),
		mgl32.LookAtV(origin, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}),
		mgl32.LookAtV(origin, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}),
	}
}

// CaptureProjection is the square 90 degree projection used with CaptureViews.
func CaptureProjection() mgl32.Mat4 {
	return mgl32.Perspective(math.Pi/2, 1.0, 0.1, 10.0)
}

// FaceDirection maps face-local coordinates sc, tc in [-1, 1] to the
// (unnormalized) direction addressed by a cubemap lookup. tc = -1 is the
// first row stored for the face.
func FaceDirection(face int, sc, tc float32) mgl32.Vec3 {
	switch face {
	case FacePosX:
		return mgl32.Vec3{1, -tc, -sc}
	case FaceNegX:
		return mgl32.Vec3{-1, -tc, sc}
	case FacePosY:
		return mgl32.Vec3{sc, 1, tc}
	case FaceNegY:
		return mgl32.Vec3{sc, -1, -tc}
	case FacePosZ:
		return mgl32.Vec3{sc, -tc, 1}
	default:
		return mgl32.Vec3{-sc, -tc, -1}
	}
}

// DirectionToFace is the inverse of FaceDirection.
func DirectionToFace(dir mgl32.Vec3) (face int, sc, tc float32) {
	ax, ay, az := abs32(dir[0]), abs32(dir[1]), abs32(dir[2])
	switch {
	case ax >= ay && ax >= az:
		if dir[0] > 0 {
			return FacePosX, -dir[2] / ax, -dir[1] / ax
		}
		return FaceNegX, dir[2] / ax, -dir[1] / ax
	case ay >= az:
		if dir[1] > 0 {
			return FacePosY, dir[0] / ay, dir[2] / ay
		}
		return FaceNegY, dir[0] / ay, -dir[2] / ay
	default:
		if dir[2] > 0 {
			return FacePosZ, dir[0] / az, -dir[1] / az
		}
		return FaceNegZ, -dir[0] / az, -dir[1] / az
	}
}

// TexelDirection returns the normalized direction through the center of
// texel (x, y) of a face with the given size.
func TexelDirection(face, x, y, size int) mgl32.Vec3 {
	sc := 2*(float32(x)+0.5)/float32(size) - 1
	tc := 2*(float32(y)+0.5)/float32(size) - 1
	return FaceDirection(face, sc, tc).Normalize()
}

// DirectionToEquirectUV maps a direction to equirectangular texture
// coordinates with v = 1 at the +Y pole.
func DirectionToEquirectUV(dir mgl32.Vec3) mgl32.Vec2 {
	d := dir.Normalize()
	u := float32(math.Atan2(float64(d[2]), float64(d[0])))/(2*math.Pi) + 0.5
	v := float32(math.Asin(float64(mgl32.Clamp(d[1], -1, 1))))/math.Pi + 0.5
	return mgl32.Vec2{u, v}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
