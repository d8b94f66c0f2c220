package loader

import (
	"math"

	"GopherPBR/internal/ibl"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultSkyWidth  = 512
	DefaultSkyHeight = 256
)

var (
	skyZenith  = mgl32.Vec3{0.18, 0.32, 0.75}
	skyHorizon = mgl32.Vec3{0.75, 0.85, 1.0}
	skyGround  = mgl32.Vec3{0.12, 0.10, 0.08}
	sunColor   = mgl32.Vec3{50, 47, 42}
	// Matches the default sun, which shines along (-1, -1, -1).
	sunDirection = mgl32.Vec3{1, 1, 1}.Normalize()
)

const sunCosRadius = 0.9995

// ProceduralSky generates an equirectangular HDR sky with perlin clouds, a
// bright sun disk and a dark ground. The same seed always gives the same
// panorama.
func ProceduralSky(width, height int, seed int64) (*ibl.Panorama, error) {
	pano, err := ibl.NewPanorama(width, height)
	if err != nil {
		return nil, err
	}
	noise := perlin.NewPerlin(2, 2, 3, seed)

	for y := 0; y < height; y++ {
		// Row 0 is the +Y pole.
		theta := math.Pi * (float64(y) + 0.5) / float64(height)
		for x := 0; x < width; x++ {
			phi := 2*math.Pi*(float64(x)+0.5)/float64(width) - math.Pi
			dir := mgl32.Vec3{
				float32(math.Sin(theta) * math.Cos(phi)),
				float32(math.Cos(theta)),
				float32(math.Sin(theta) * math.Sin(phi)),
			}
			pano.Set(x, y, skyRadiance(dir, noise))
		}
	}
	return pano, nil
}

func skyRadiance(dir mgl32.Vec3, noise *perlin.Perlin) mgl32.Vec3 {
	if dir.Y() < 0 {
		// Fade the horizon haze into the ground over a few degrees.
		t := mgl32.Clamp(-dir.Y()*8, 0, 1)
		return lerpVec3(skyHorizon.Mul(0.5), skyGround, t)
	}

	c := lerpVec3(skyHorizon, skyZenith, float32(math.Sqrt(float64(dir.Y()))))

	// Clouds are noise projected onto a plane above the viewer.
	h := float64(dir.Y()) + 0.1
	n := noise.Noise2D(float64(dir.X())/h*1.5, float64(dir.Z())/h*1.5)
	cover := mgl32.Clamp(float32(n)*2+0.1, 0, 1) * mgl32.Clamp(dir.Y()*4, 0, 1)
	c = lerpVec3(c, mgl32.Vec3{0.95, 0.95, 0.95}, cover*0.8)

	if dir.Dot(sunDirection) > sunCosRadius {
		c = c.Add(sunColor)
	}
	return c
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
