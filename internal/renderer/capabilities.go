package renderer

import (
	"GopherPBR/internal/logger"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// Capabilities lists the optional GPU features the forward target and the
// environment pipeline would like to have. Missing ones degrade quality but
// are never fatal.
type Capabilities struct {
	FloatColorBuffer  bool // half float textures are color renderable
	FloatLinearFilter bool // half float textures filter linearly
}

var degradedWarning sync.Once

// detectCapabilities tests float render targets by building a throwaway
// framebuffer. Requires a current context.
func detectCapabilities() Capabilities {
	var caps Capabilities

	var tex, fbo uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, 4, 4, 0, gl.RGBA, gl.FLOAT, nil)
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	caps.FloatColorBuffer = gl.CheckFramebufferStatus(gl.FRAMEBUFFER) == gl.FRAMEBUFFER_COMPLETE
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.DeleteFramebuffers(1, &fbo)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.DeleteTextures(1, &tex)

	// Linear filtering of float textures is core since 3.0.
	var major int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	caps.FloatLinearFilter = major >= 3

	return caps
}

// textureFormats are the internal formats and filters the HDR render
// targets and environment maps are allocated with.
type textureFormats struct {
	color     int32 // forward pass color attachment
	cube      int32 // RGBA cubemaps
	lut       int32 // two channel BRDF table
	minFilter int32 // non-mipmapped textures
	mipFilter int32 // mipmapped textures
	magFilter int32
}

// formatsFor picks float formats when the hardware renders to them and
// falls back to 8-bit otherwise, warning once per process.
func formatsFor(caps Capabilities) textureFormats {
	f := textureFormats{
		color:     gl.RGBA16F,
		cube:      gl.RGBA16F,
		lut:       gl.RG16F,
		minFilter: gl.LINEAR,
		mipFilter: gl.LINEAR_MIPMAP_LINEAR,
		magFilter: gl.LINEAR,
	}
	if !caps.FloatColorBuffer {
		f.color = gl.RGBA8
		f.cube = gl.RGBA8
		f.lut = gl.RG8
	} else if !caps.FloatLinearFilter {
		f.minFilter = gl.NEAREST
		f.mipFilter = gl.NEAREST_MIPMAP_NEAREST
		f.magFilter = gl.NEAREST
	}
	if !caps.FloatColorBuffer || !caps.FloatLinearFilter {
		degradedWarning.Do(func() {
			logger.Log.Warn("Falling back to low precision lighting, GPU lacks float render or filter support",
				zap.Bool("floatColorBuffer", caps.FloatColorBuffer),
				zap.Bool("floatLinearFilter", caps.FloatLinearFilter))
		})
	}
	return f
}
