package renderer

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestNewCamera(t *testing.T) {
	cam := NewCamera(16.0 / 9.0)

	if cam == nil {
		t.Fatal("NewCamera returned nil")
	}

	// Azimuth and zenith of pi/2 at distance 5 puts the camera on +Z.
	assert.InDelta(t, 0, cam.Position().X(), 1e-5)
	assert.InDelta(t, 0, cam.Position().Y(), 1e-5)
	assert.InDelta(t, 5, cam.Position().Z(), 1e-5)

	if cam.Projection().At(3, 3) != 0.0 {
		t.Error("Perspective projection should have w=0 at (3,3)")
	}
}

func TestCameraUpdateProperties(t *testing.T) {
	cam := NewCamera(1)
	for _, zenith := range []float32{0.05, 0.7, math.Pi / 2, 2.5, math.Pi - 0.05} {
		for _, azimuth := range []float32{-3, 0, 1.2, 4.5, 10} {
			for _, distance := range []float32{0.5, 5, 19} {
				cam.Update(azimuth, zenith, distance)

				assert.InDelta(t, distance, cam.Position().Sub(cam.Target).Len(), 1e-4)
				assert.InDelta(t, 1, cam.Direction().Len(), 1e-5)
				assert.InDelta(t, 1, cam.Right().Len(), 1e-5)
				assert.InDelta(t, 1, cam.Up().Len(), 1e-5)
				assert.InDelta(t, 0, cam.Direction().Dot(cam.Right()), 1e-5)
				assert.InDelta(t, 0, cam.Direction().Dot(cam.Up()), 1e-5)
				assert.InDelta(t, 0, cam.Right().Dot(cam.Up()), 1e-5)
			}
		}
	}
}

func TestCameraViewProjectionIsProduct(t *testing.T) {
	cam := NewCamera(4.0 / 3.0)
	cam.Update(0.3, 1.1, 7)

	want := cam.Projection().Mul4(cam.View())
	if !cam.ViewProjection().ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("ViewProjection %v != Projection*View %v", cam.ViewProjection(), want)
	}

	// The target must land in the middle of the screen.
	clip := cam.ViewProjection().Mul4x1(cam.Target.Vec4(1))
	assert.InDelta(t, 0, clip.X()/clip.W(), 1e-5)
	assert.InDelta(t, 0, clip.Y()/clip.W(), 1e-5)
}

func TestCameraZenithClamp(t *testing.T) {
	cam := NewCamera(1)

	cam.OnPointerDrag(0, 100000)
	if cam.Zenith() > math.Pi-ZenithEpsilon+1e-6 {
		t.Errorf("Zenith should be clamped below pi-eps, got %v", cam.Zenith())
	}

	cam.OnPointerDrag(0, -100000)
	if cam.Zenith() < ZenithEpsilon-1e-6 {
		t.Errorf("Zenith should be clamped above eps, got %v", cam.Zenith())
	}
	assert.InDelta(t, ZenithEpsilon, cam.Zenith(), 1e-6)

	cam.Update(0, -1, 5)
	assert.InDelta(t, ZenithEpsilon, cam.Zenith(), 1e-6)
}

func TestCameraDragUpRaisesCamera(t *testing.T) {
	cam := NewCamera(1)
	startY := cam.Position().Y()

	cam.OnPointerDrag(0, -50)
	assert.Less(t, cam.Zenith(), float32(math.Pi/2))
	assert.Greater(t, cam.Position().Y(), startY)

	cam.OnPointerDrag(0, 100)
	assert.Less(t, cam.Position().Y(), startY)
}

func TestCameraDistanceClamp(t *testing.T) {
	cam := NewCamera(1)

	cam.OnWheel(1000)
	if cam.Distance() != 0 {
		t.Errorf("Expected distance clamped to 0, got %v", cam.Distance())
	}
	for i := 0; i < 16; i++ {
		if math.IsNaN(float64(cam.View()[i])) {
			t.Fatal("View matrix must stay finite at distance 0")
		}
	}

	cam.OnWheel(-1000)
	if cam.Distance() != cam.MaxDistance {
		t.Errorf("Expected distance clamped to %v, got %v", cam.MaxDistance, cam.Distance())
	}
}

func TestCameraDragMovesAzimuth(t *testing.T) {
	cam := NewCamera(1)
	before := cam.Azimuth()

	cam.OnPointerDrag(10, 0)

	assert.InDelta(t, before+10*cam.RotateSensitivity, cam.Azimuth(), 1e-6)
}

func TestCameraUpdateAspectRatioKeepsView(t *testing.T) {
	cam := NewCamera(1)
	view := cam.View()

	cam.UpdateAspectRatio(2)

	if cam.View() != view {
		t.Error("UpdateAspectRatio should only rebuild the projection")
	}
	assert.InDelta(t, 2, cam.AspectRatio, 1e-6)

	cam.UpdateAspectRatio(0)
	assert.InDelta(t, 2, cam.AspectRatio, 1e-6)
}

func TestFrustumContainsTarget(t *testing.T) {
	cam := NewCamera(1)
	frustum := cam.CalculateFrustum()

	if !frustum.IntersectsSphere(mgl32.Vec3{0, 0, 0}, 1) {
		t.Error("Target should be inside the frustum")
	}
	if frustum.IntersectsSphere(mgl32.Vec3{0, 0, 50}, 1) {
		t.Error("Point behind the camera should be culled")
	}
}

func TestCameraViewRotationHasNoTranslation(t *testing.T) {
	cam := NewCamera(1)
	rot := cam.ViewRotation()
	if rot.Col(3) != (mgl32.Vec4{0, 0, 0, 1}) {
		t.Errorf("Expected no translation, got %v", rot.Col(3))
	}
}
