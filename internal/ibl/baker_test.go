package ibl

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() BakerConfig {
	return BakerConfig{
		EnvironmentSize:      8,
		IrradianceSize:       4,
		PrefilterSize:        8,
		PrefilterLevels:      3,
		LUTSize:              8,
		PrefilterSamples:     64,
		BRDFSamples:          64,
		IrradianceSampleStep: 0.2,
		Workers:              4,
	}
}

func newTestBaker(t *testing.T) *Baker {
	t.Helper()
	b, err := NewBaker(smallConfig())
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func assertCubemapConstant(t *testing.T, c *Cubemap, want mgl32.Vec3) {
	t.Helper()
	for f := 0; f < FaceCount; f++ {
		for y := 0; y < c.Size; y++ {
			for x := 0; x < c.Size; x++ {
				got := c.At(f, x, y)
				for i := 0; i < 3; i++ {
					if !assert.InDelta(t, want[i], got[i], 1e-4, "face %s texel (%d,%d)", FaceName(f), x, y) {
						return
					}
				}
			}
		}
	}
}

func TestBakeConstantEnvironment(t *testing.T) {
	c := mgl32.Vec3{0.2, 0.5, 1.5}
	pano, err := NewConstantPanorama(16, 8, c)
	require.NoError(t, err)

	res, err := newTestBaker(t).Bake(context.Background(), pano)
	require.NoError(t, err)

	assertCubemapConstant(t, res.Environment[0], c)
	assertCubemapConstant(t, res.Irradiance, c)
	require.Len(t, res.Prefiltered, 3)
	for _, level := range res.Prefiltered {
		assertCubemapConstant(t, level, c)
	}
}

func TestBakeLevelSizes(t *testing.T) {
	pano, err := NewConstantPanorama(16, 8, mgl32.Vec3{1, 1, 1})
	require.NoError(t, err)

	res, err := newTestBaker(t).Bake(context.Background(), pano)
	require.NoError(t, err)

	assert.Equal(t, 8, res.Environment[0].Size)
	assert.Equal(t, 1, res.Environment[len(res.Environment)-1].Size)
	assert.Equal(t, 4, res.Irradiance.Size)
	assert.Equal(t, 8, res.Prefiltered[0].Size)
	assert.Equal(t, 4, res.Prefiltered[1].Size)
	assert.Equal(t, 2, res.Prefiltered[2].Size)
	assert.Equal(t, 8, res.BRDF.Size)
	assert.Len(t, res.BRDF.Pix, 8*8*2)
}

func TestBakeIsDeterministic(t *testing.T) {
	pano, err := NewPanorama(16, 8)
	require.NoError(t, err)
	for y := 0; y < pano.Height; y++ {
		for x := 0; x < pano.Width; x++ {
			pano.Set(x, y, mgl32.Vec3{float32(x) / 16, float32(y) / 8, 0.5})
		}
	}

	b := newTestBaker(t)
	first, err := b.Bake(context.Background(), pano)
	require.NoError(t, err)
	second, err := b.Bake(context.Background(), pano)
	require.NoError(t, err)

	assert.Equal(t, first.Irradiance.Faces, second.Irradiance.Faces)
	assert.Equal(t, first.Prefiltered[1].Faces, second.Prefiltered[1].Faces)
	assert.Equal(t, first.BRDF.Pix, second.BRDF.Pix)
}

func TestBakeBrightSkyLightsUpperHemisphere(t *testing.T) {
	pano, err := NewPanorama(32, 16)
	require.NoError(t, err)
	for y := 0; y < pano.Height/2; y++ {
		for x := 0; x < pano.Width; x++ {
			pano.Set(x, y, mgl32.Vec3{4, 4, 4})
		}
	}

	res, err := newTestBaker(t).Bake(context.Background(), pano)
	require.NoError(t, err)

	up := res.Irradiance.SampleDirection(mgl32.Vec3{0, 1, 0})
	down := res.Irradiance.SampleDirection(mgl32.Vec3{0, -1, 0})
	assert.Greater(t, up[0], down[0])
}

func TestBakeCanceled(t *testing.T) {
	pano, err := NewConstantPanorama(4, 2, mgl32.Vec3{1, 1, 1})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = newTestBaker(t).Bake(ctx, pano)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBakeRejectsBadPanorama(t *testing.T) {
	_, err := newTestBaker(t).Bake(context.Background(), &Panorama{Width: 4, Height: 2})
	assert.Error(t, err)
}

func TestBakerConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultBakerConfig().Validate())

	cfg := smallConfig()
	cfg.PrefilterLevels = 5
	cfg.PrefilterSize = 8
	assert.Error(t, cfg.Validate())

	cfg = smallConfig()
	cfg.IrradianceSampleStep = 0
	assert.Error(t, cfg.Validate())
}

func TestMipChainDownsamplesToOne(t *testing.T) {
	base, err := NewCubemap(8)
	require.NoError(t, err)
	chain := NewMipChain(base)
	assert.Len(t, chain, 4)
	assert.Equal(t, 1, chain[3].Size)
}
