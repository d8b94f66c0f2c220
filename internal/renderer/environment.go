package renderer

import (
	"GopherPBR/internal/ibl"
	"GopherPBR/internal/logger"
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Environment holds the four textures image based lighting samples.
type Environment struct {
	Name            string
	EnvironmentMap  uint32 // base cubemap with a full mip chain
	IrradianceMap   uint32
	PrefilterMap    uint32 // one roughness per mip level
	BRDFLUT         uint32
	FaceSize        int
	PrefilterLevels int
}

// MaxReflectionLod is the prefilter mip level that holds roughness 1.
func (e *Environment) MaxReflectionLod() float32 {
	if e.PrefilterLevels <= 1 {
		return 0
	}
	return float32(e.PrefilterLevels - 1)
}

// Delete releases all four textures. Safe to call twice.
func (e *Environment) Delete(device Device) {
	for _, id := range []*uint32{&e.EnvironmentMap, &e.IrradianceMap, &e.PrefilterMap, &e.BRDFLUT} {
		if *id != 0 {
			device.DeleteTexture(*id)
			*id = 0
		}
	}
}

// EnvironmentBaker runs the precomputation on the GPU: equirect to cubemap,
// irradiance convolution, specular prefiltering and BRDF integration.
type EnvironmentBaker struct {
	cfg     ibl.BakerConfig
	formats textureFormats
	cube    *unitCube
	quad    *screenQuad
	capture *captureTarget

	equirectShader   *Shader
	irradianceShader *Shader
	prefilterShader  *Shader
	brdfShader       *Shader
}

// NewEnvironmentBaker compiles the capture shaders and allocates the shared
// capture framebuffer. Requires a current context.
func NewEnvironmentBaker(cfg ibl.BakerConfig) (*EnvironmentBaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &EnvironmentBaker{cfg: cfg, formats: formatsFor(detectCapabilities())}

	var undo Unwind
	defer undo.Unwind()

	sources := []struct {
		dst      **Shader
		name, vs string
		fs       string
	}{
		{&b.equirectShader, "equirect", captureVertexShaderSource, equirectFragmentShaderSource},
		{&b.irradianceShader, "irradiance", captureVertexShaderSource, irradianceFragmentShaderSource},
		{&b.prefilterShader, "prefilter", captureVertexShaderSource, prefilterFragmentShaderSource},
		{&b.brdfShader, "brdf", quadVertexShaderSource, brdfFragmentShaderSource},
	}
	for _, src := range sources {
		shader, err := NewShader(src.name, src.vs, src.fs)
		if err != nil {
			return nil, err
		}
		undo.Add(shader.Delete)
		*src.dst = shader
	}

	capture, err := newCaptureTarget(int32(cfg.EnvironmentSize))
	if err != nil {
		return nil, err
	}
	undo.Add(capture.delete)
	b.capture = capture
	b.cube = newUnitCube()
	b.quad = newScreenQuad()

	projection := ibl.CaptureProjection()
	for _, shader := range []*Shader{b.equirectShader, b.irradianceShader, b.prefilterShader} {
		shader.Use()
		shader.SetMat4("projection", projection)
	}
	b.equirectShader.Use()
	b.equirectShader.SetInt("equirect_map", 0)
	b.irradianceShader.Use()
	b.irradianceShader.SetInt("environment_map", 0)
	b.irradianceShader.SetFloat("sample_delta", float32(cfg.IrradianceSampleStep))
	b.prefilterShader.Use()
	b.prefilterShader.SetInt("environment_map", 0)
	b.prefilterShader.SetInt("sample_count", int32(cfg.PrefilterSamples))
	b.prefilterShader.SetFloat("resolution", float32(cfg.EnvironmentSize))
	b.brdfShader.Use()
	b.brdfShader.SetInt("sample_count", int32(cfg.BRDFSamples))
	gl.UseProgram(0)

	undo.Discard()
	return b, nil
}

// Bake builds an Environment from an equirectangular panorama. The stages
// run in order and share one capture framebuffer. On failure every texture
// created so far is released.
func (b *EnvironmentBaker) Bake(pano *ibl.Panorama) (*Environment, error) {
	if err := pano.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	var viewport [4]int32
	gl.GetIntegerv(gl.VIEWPORT, &viewport[0])
	defer func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(viewport[0], viewport[1], viewport[2], viewport[3])
		gl.DepthFunc(gl.LESS)
		gl.UseProgram(0)
	}()

	env := &Environment{FaceSize: b.cfg.EnvironmentSize, PrefilterLevels: b.cfg.PrefilterLevels}
	var undo Unwind
	defer undo.Unwind()
	track := func(id *uint32) {
		undo.Add(func() {
			gl.DeleteTextures(1, id)
			*id = 0
		})
	}

	equirect := uploadPanorama(pano, b.formats)
	defer gl.DeleteTextures(1, &equirect)

	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Disable(gl.CULL_FACE)

	views := ibl.CaptureViews()

	// Equirect to cubemap, then a full mip chain for roughness lookups.
	env.EnvironmentMap = b.allocCubemap(b.cfg.EnvironmentSize, 1, b.formats.mipFilter)
	track(&env.EnvironmentMap)
	if err := b.capture.resize(int32(b.cfg.EnvironmentSize)); err != nil {
		return nil, err
	}
	b.equirectShader.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, equirect)
	if err := b.renderFaces(b.equirectShader, views, env.EnvironmentMap, 0); err != nil {
		return nil, fmt.Errorf("environment cubemap: %w", err)
	}
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, env.EnvironmentMap)
	gl.GenerateMipmap(gl.TEXTURE_CUBE_MAP)

	// Irradiance convolution.
	env.IrradianceMap = b.allocCubemap(b.cfg.IrradianceSize, 1, b.formats.minFilter)
	track(&env.IrradianceMap)
	if err := b.capture.resize(int32(b.cfg.IrradianceSize)); err != nil {
		return nil, err
	}
	b.irradianceShader.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, env.EnvironmentMap)
	if err := b.renderFaces(b.irradianceShader, views, env.IrradianceMap, 0); err != nil {
		return nil, fmt.Errorf("irradiance map: %w", err)
	}

	// Specular prefilter, one roughness per mip level.
	env.PrefilterMap = b.allocCubemap(b.cfg.PrefilterSize, b.cfg.PrefilterLevels, b.formats.mipFilter)
	track(&env.PrefilterMap)
	b.prefilterShader.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, env.EnvironmentMap)
	for level := 0; level < b.cfg.PrefilterLevels; level++ {
		if err := b.capture.resize(int32(b.cfg.PrefilterSize >> level)); err != nil {
			return nil, err
		}
		b.prefilterShader.SetFloat("roughness", ibl.PrefilterRoughness(level, b.cfg.PrefilterLevels))
		if err := b.renderFaces(b.prefilterShader, views, env.PrefilterMap, level); err != nil {
			return nil, fmt.Errorf("prefilter level %d: %w", level, err)
		}
	}

	// BRDF integration table.
	env.BRDFLUT = b.allocLUT(b.cfg.LUTSize)
	track(&env.BRDFLUT)
	if err := b.capture.resize(int32(b.cfg.LUTSize)); err != nil {
		return nil, err
	}
	if err := b.capture.attach2D(env.BRDFLUT); err != nil {
		return nil, fmt.Errorf("brdf lut: %w", err)
	}
	b.brdfShader.Use()
	b.quad.draw()

	undo.Discard()
	logger.Log.Info("Environment baked on GPU",
		zap.Int("faceSize", b.cfg.EnvironmentSize),
		zap.Int("prefilterLevels", b.cfg.PrefilterLevels),
		zap.Duration("took", time.Since(start)))
	return env, nil
}

// renderFaces draws the unit cube once per face into the given mip level
// of cubemap using the bound shader.
func (b *EnvironmentBaker) renderFaces(shader *Shader, views [ibl.FaceCount]mgl32.Mat4, cubemap uint32, level int) error {
	for face := 0; face < ibl.FaceCount; face++ {
		shader.SetMat4("view", views[face])
		if err := b.capture.attachFace(cubemap, face, level); err != nil {
			return err
		}
		b.cube.draw()
	}
	return nil
}

// allocCubemap allocates storage for levels mip levels of a cubemap.
func (b *EnvironmentBaker) allocCubemap(size, levels int, minFilter int32) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, tex)
	for level := 0; level < levels; level++ {
		s := int32(size >> level)
		for face := 0; face < ibl.FaceCount; face++ {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(face), int32(level), b.formats.cube, s, s, 0, gl.RGBA, gl.FLOAT, nil)
		}
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, b.formats.magFilter)
	if levels > 1 {
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAX_LEVEL, int32(levels-1))
	}
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
	return tex
}

func (b *EnvironmentBaker) allocLUT(size int) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, b.formats.lut, int32(size), int32(size), 0, gl.RG, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, b.formats.minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, b.formats.magFilter)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

// Delete releases the shaders and capture resources. Baked environments
// are not affected.
func (b *EnvironmentBaker) Delete() {
	for _, shader := range []*Shader{b.equirectShader, b.irradianceShader, b.prefilterShader, b.brdfShader} {
		shader.Delete()
	}
	b.capture.delete()
	b.cube.delete()
	b.quad.delete()
}

// uploadPanorama creates the 2D float texture the equirect capture samples.
// Panorama rows run top to bottom while texture t runs bottom to top.
func uploadPanorama(pano *ibl.Panorama, formats textureFormats) uint32 {
	pix := flipRows(pano.Pix, pano.Width, pano.Height, 4)

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, formats.cube, int32(pano.Width), int32(pano.Height), 0, gl.RGBA, gl.FLOAT, gl.Ptr(pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, formats.minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, formats.magFilter)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

// flipRows returns a copy of an image buffer with its rows reversed.
func flipRows(pix []float32, width, height, channels int) []float32 {
	out := make([]float32, len(pix))
	row := width * channels
	for y := 0; y < height; y++ {
		copy(out[(height-1-y)*row:(height-y)*row], pix[y*row:(y+1)*row])
	}
	return out
}
