package renderer

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestDirectionalLightRadiance(t *testing.T) {
	l := NewDirectionalLight(mgl32.Vec3{0, -3, 0}, mgl32.Vec3{1, 0.5, 0.25}, 2)

	assert.Equal(t, mgl32.Vec3{0, -1, 0}, l.Direction())
	assert.Equal(t, mgl32.Vec3{2, 1, 0.5}, l.Radiance())

	l.SetIntensity(4)
	assert.Equal(t, mgl32.Vec3{4, 2, 1}, l.Radiance())

	l.SetColor(mgl32.Vec3{1, 1, 1})
	assert.Equal(t, mgl32.Vec3{4, 4, 4}, l.Radiance())

	l.SetIntensity(0)
	assert.Equal(t, mgl32.Vec3{}, l.Radiance())
}

func TestDirectionalLightIgnoresZeroDirection(t *testing.T) {
	l := CreateSunlight()
	before := l.Direction()

	l.SetDirection(mgl32.Vec3{})

	assert.Equal(t, before, l.Direction())
}

func TestCalcViewMatrixLooksAtOrigin(t *testing.T) {
	l := CreateSunlight()
	view := l.CalcViewMatrix(10)

	origin := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, origin.X(), 1e-4)
	assert.InDelta(t, 0, origin.Y(), 1e-4)
	assert.InDelta(t, -10, origin.Z(), 1e-4)
}

func TestCalcViewMatrixStraightDown(t *testing.T) {
	l := NewDirectionalLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1}, 1)
	view := l.CalcViewMatrix(5)

	for i := 0; i < 16; i++ {
		if math.IsNaN(float64(view[i])) {
			t.Fatalf("Light straight down must not produce NaN: %v", view)
		}
	}
	origin := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -5, origin.Z(), 1e-4)
}

func TestLightSpaceMatrixEnclosesModel(t *testing.T) {
	l := CreateSunlight()
	for _, scale := range []float32{0.5, 1, 3} {
		m := l.LightSpaceMatrix(scale)
		for _, x := range []float32{-scale, scale} {
			for _, y := range []float32{-scale, scale} {
				for _, z := range []float32{-scale, scale} {
					p := m.Mul4x1(mgl32.Vec4{x, y, z, 1})
					ndc := p.Vec3().Mul(1 / p.W())
					for i := 0; i < 3; i++ {
						if ndc[i] < -1.0001 || ndc[i] > 1.0001 {
							t.Errorf("corner (%v,%v,%v) outside light box at scale %v: %v", x, y, z, scale, ndc)
						}
					}
				}
			}
		}
	}
}

func TestLookAtSafeFallsBack(t *testing.T) {
	m := LookAtSafe(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	for i := 0; i < 16; i++ {
		if math.IsNaN(float64(m[i])) {
			t.Fatalf("LookAtSafe produced NaN: %v", m)
		}
	}

	regular := LookAtSafe(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	assert.True(t, regular.ApproxEqual(mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})))
}
