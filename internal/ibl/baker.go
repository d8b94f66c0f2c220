package ibl

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"GopherPBR/internal/logger"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// BakerConfig sizes the CPU precomputation. The zero value is not usable;
// start from DefaultBakerConfig.
type BakerConfig struct {
	EnvironmentSize      int
	IrradianceSize       int
	PrefilterSize        int
	PrefilterLevels      int
	LUTSize              int
	PrefilterSamples     uint32
	BRDFSamples          uint32
	IrradianceSampleStep float64
	Workers              int
}

// DefaultBakerConfig matches the resolutions and sample counts used on the GPU.
func DefaultBakerConfig() BakerConfig {
	return BakerConfig{
		EnvironmentSize:      EnvironmentFaceSize,
		IrradianceSize:       IrradianceFaceSize,
		PrefilterSize:        PrefilterFaceSize,
		PrefilterLevels:      PrefilterMipLevels,
		LUTSize:              BRDFLUTSize,
		PrefilterSamples:     PrefilterSampleCount,
		BRDFSamples:          BRDFSampleCount,
		IrradianceSampleStep: IrradianceSampleStep,
		Workers:              runtime.NumCPU(),
	}
}

func (c BakerConfig) Validate() error {
	switch {
	case c.EnvironmentSize <= 0, c.IrradianceSize <= 0, c.PrefilterSize <= 0, c.LUTSize <= 0:
		return fmt.Errorf("baker sizes must be positive: %+v", c)
	case c.PrefilterLevels <= 0:
		return fmt.Errorf("prefilter levels must be positive, got %d", c.PrefilterLevels)
	case c.PrefilterSize>>(c.PrefilterLevels-1) < 1:
		return fmt.Errorf("prefilter size %d too small for %d levels", c.PrefilterSize, c.PrefilterLevels)
	case c.PrefilterSamples == 0, c.BRDFSamples == 0:
		return fmt.Errorf("sample counts must be positive")
	case c.IrradianceSampleStep <= 0 || c.IrradianceSampleStep > math.Pi/2:
		return fmt.Errorf("irradiance sample step %v out of range", c.IrradianceSampleStep)
	}
	return nil
}

// Result holds every precomputed map of one environment.
type Result struct {
	Environment MipChain
	Irradiance  *Cubemap
	Prefiltered MipChain
	BRDF        *LUT
}

// Baker runs the precomputation on the CPU, spreading faces and rows over a
// worker pool. It produces the same maps as the GPU pipeline and is used for
// offline baking and as a numeric reference.
type Baker struct {
	cfg  BakerConfig
	pool pond.Pool
}

func NewBaker(cfg BakerConfig) (*Baker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Baker{cfg: cfg, pool: pond.NewPool(workers)}, nil
}

// Close stops the worker pool after in-flight tasks drain.
func (b *Baker) Close() {
	b.pool.StopAndWait()
}

// Bake converts the panorama and derives all lighting maps from it.
func (b *Baker) Bake(ctx context.Context, pano *Panorama) (*Result, error) {
	if err := pano.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	env, err := b.Equirect(ctx, pano)
	if err != nil {
		return nil, err
	}
	chain := NewMipChain(env)

	irr, err := b.Irradiance(ctx, chain)
	if err != nil {
		return nil, err
	}
	pre, err := b.Prefilter(ctx, chain)
	if err != nil {
		return nil, err
	}
	lut, err := b.BRDF(ctx)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Baked environment",
		zap.Int("panoramaWidth", pano.Width),
		zap.Int("panoramaHeight", pano.Height),
		zap.Duration("took", time.Since(start)))
	return &Result{Environment: chain, Irradiance: irr, Prefiltered: pre, BRDF: lut}, nil
}

// Equirect resamples the panorama onto a cubemap.
func (b *Baker) Equirect(ctx context.Context, pano *Panorama) (*Cubemap, error) {
	out, err := NewCubemap(b.cfg.EnvironmentSize)
	if err != nil {
		return nil, err
	}
	err = b.eachTexel(ctx, out, func(dir mgl32.Vec3) mgl32.Vec3 {
		return pano.SampleDirection(dir)
	})
	return out, err
}

// Irradiance convolves the environment with a cosine lobe. The weights are
// normalized so a constant environment convolves to itself.
func (b *Baker) Irradiance(ctx context.Context, env MipChain) (*Cubemap, error) {
	out, err := NewCubemap(b.cfg.IrradianceSize)
	if err != nil {
		return nil, err
	}
	step := b.cfg.IrradianceSampleStep
	err = b.eachTexel(ctx, out, func(n mgl32.Vec3) mgl32.Vec3 {
		right, up := tangentFrame(n)
		var sum mgl32.Vec3
		var weight float32
		for phi := 0.0; phi < 2*math.Pi; phi += step {
			sinPhi, cosPhi := math.Sincos(phi)
			for theta := 0.0; theta < math.Pi/2; theta += step {
				sinTheta, cosTheta := math.Sincos(theta)
				t := mgl32.Vec3{float32(sinTheta * cosPhi), float32(sinTheta * sinPhi), float32(cosTheta)}
				dir := right.Mul(t[0]).Add(up.Mul(t[1])).Add(n.Mul(t[2]))
				w := float32(cosTheta * sinTheta)
				sum = sum.Add(env[0].SampleDirection(dir).Mul(w))
				weight += w
			}
		}
		if weight == 0 {
			return env[0].SampleDirection(n)
		}
		return sum.Mul(1 / weight)
	})
	return out, err
}

// Prefilter builds the specular mip chain. Level m is filtered with
// roughness m/(levels-1) and is half the size of level m-1.
func (b *Baker) Prefilter(ctx context.Context, env MipChain) (MipChain, error) {
	levels := make(MipChain, b.cfg.PrefilterLevels)
	envRes := float32(env[0].Size)
	saTexel := 4 * math.Pi / (6 * envRes * envRes)
	samples := b.cfg.PrefilterSamples

	for m := 0; m < b.cfg.PrefilterLevels; m++ {
		roughness := PrefilterRoughness(m, b.cfg.PrefilterLevels)
		level, err := NewCubemap(b.cfg.PrefilterSize >> m)
		if err != nil {
			return nil, err
		}
		err = b.eachTexel(ctx, level, func(n mgl32.Vec3) mgl32.Vec3 {
			var color mgl32.Vec3
			var total float32
			for i := uint32(0); i < samples; i++ {
				h := ImportanceSampleGGX(Hammersley(i, samples), n, roughness)
				l := h.Mul(2 * n.Dot(h)).Sub(n).Normalize()
				nDotL := n.Dot(l)
				if nDotL <= 0 {
					continue
				}
				var lod float32
				if roughness > 0 {
					nDotH := max32(n.Dot(h), 0)
					d := DistributionGGX(nDotH, roughness)
					pdf := d*nDotH/(4*nDotH) + 0.0001
					saSample := 1 / (float32(samples)*pdf + 0.0001)
					lod = 0.5 * float32(math.Log2(float64(saSample/saTexel)))
				}
				color = color.Add(env.SampleLod(l, lod).Mul(nDotL))
				total += nDotL
			}
			if total == 0 {
				return env[0].SampleDirection(n)
			}
			return color.Mul(1 / total)
		})
		if err != nil {
			return nil, err
		}
		levels[m] = level
	}
	return levels, nil
}

// BRDF integrates the split-sum lookup table.
func (b *Baker) BRDF(ctx context.Context) (*LUT, error) {
	size := b.cfg.LUTSize
	lut := &LUT{Size: size, Pix: make([]float32, size*size*2)}
	group := b.pool.NewGroup()
	for y := 0; y < size; y++ {
		y := y
		group.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			roughness := (float32(y) + 0.5) / float32(size)
			for x := 0; x < size; x++ {
				nDotV := (float32(x) + 0.5) / float32(size)
				v := IntegrateBRDF(nDotV, roughness, b.cfg.BRDFSamples)
				i := (y*size + x) * 2
				lut.Pix[i], lut.Pix[i+1] = v[0], v[1]
			}
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return lut, ctx.Err()
}

// PrefilterRoughness is the roughness assigned to a prefilter mip level.
func PrefilterRoughness(level, levels int) float32 {
	if levels <= 1 {
		return 0
	}
	return float32(level) / float32(levels-1)
}

// eachTexel evaluates fn for the direction through every texel of out, one
// task per face row.
func (b *Baker) eachTexel(ctx context.Context, out *Cubemap, fn func(dir mgl32.Vec3) mgl32.Vec3) error {
	group := b.pool.NewGroup()
	for f := 0; f < FaceCount; f++ {
		for y := 0; y < out.Size; y++ {
			f, y := f, y
			group.Submit(func() {
				if ctx.Err() != nil {
					return
				}
				for x := 0; x < out.Size; x++ {
					out.Set(f, x, y, fn(TexelDirection(f, x, y, out.Size)))
				}
			})
		}
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
