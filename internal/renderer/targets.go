package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// framebufferAPI allocates and frees the GL objects behind ColorTarget and
// DepthTarget. The returned status is the framebuffer completeness status.
type framebufferAPI interface {
	newColorFramebuffer(width, height, format int32) (fbo, color, depthStencil, status uint32)
	newDepthFramebuffer(width, height int32) (fbo, depth, status uint32)
	deleteFramebuffer(fbo uint32)
	deleteTexture(texture uint32)
	deleteRenderbuffer(renderbuffer uint32)
}

// ColorTarget is an offscreen color+depth framebuffer. The color attachment
// is a filterable half-float texture so the post pass can tonemap HDR, or
// RGBA8 on hardware that cannot render to float textures.
type ColorTarget struct {
	api           framebufferAPI
	format        int32
	width, height int32
	fbo           uint32
	color         uint32
	depthStencil  uint32
}

// NewColorTarget allocates and validates a color+depth target with the
// given internal color format.
func NewColorTarget(width, height, format int32) (*ColorTarget, error) {
	return newColorTarget(glFramebuffers{}, width, height, format)
}

func newColorTarget(api framebufferAPI, width, height, format int32) (*ColorTarget, error) {
	t := &ColorTarget{api: api, format: format}
	if err := t.Resize(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// Enable binds the target for drawing and turns on depth testing.
func (t *ColorTarget) Enable() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, t.width, t.height)
	gl.Enable(gl.DEPTH_TEST)
}

// Disable rebinds the default framebuffer and turns off depth testing.
func (t *ColorTarget) Disable() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Disable(gl.DEPTH_TEST)
}

// Resize destroys both attachments and recreates them at the new size. The
// result is checked for completeness every time.
func (t *ColorTarget) Resize(width, height int32) error {
	if err := validateTargetSize(width, height); err != nil {
		return err
	}
	t.Delete()
	t.width, t.height = width, height

	var status uint32
	t.fbo, t.color, t.depthStencil, status = t.api.newColorFramebuffer(width, height, t.format)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Delete()
		return framebufferError(fmt.Sprintf("color target %dx%d", width, height), status)
	}
	return nil
}

func (t *ColorTarget) Delete() {
	if t.color != 0 {
		t.api.deleteTexture(t.color)
		t.color = 0
	}
	if t.depthStencil != 0 {
		t.api.deleteRenderbuffer(t.depthStencil)
		t.depthStencil = 0
	}
	if t.fbo != 0 {
		t.api.deleteFramebuffer(t.fbo)
		t.fbo = 0
	}
}

func (t *ColorTarget) ColorTexture() uint32 { return t.color }
func (t *ColorTarget) Format() int32        { return t.format }
func (t *ColorTarget) Width() int32         { return t.width }
func (t *ColorTarget) Height() int32        { return t.height }

// DepthTarget is a depth-only framebuffer whose depth texture is sampled by
// later passes. It has no color attachment and no draw buffers.
type DepthTarget struct {
	api           framebufferAPI
	width, height int32
	fbo           uint32
	depth         uint32
}

func NewDepthTarget(width, height int32) (*DepthTarget, error) {
	return newDepthTarget(glFramebuffers{}, width, height)
}

func newDepthTarget(api framebufferAPI, width, height int32) (*DepthTarget, error) {
	t := &DepthTarget{api: api}
	if err := t.Resize(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// Enable switches the viewport to the target's resolution, binds it and
// clears depth.
func (t *DepthTarget) Enable() {
	gl.Viewport(0, 0, t.width, t.height)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(true)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
}

// Disable restores the caller's viewport and unbinds the target.
func (t *DepthTarget) Disable(origWidth, origHeight int32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, origWidth, origHeight)
}

func (t *DepthTarget) Resize(width, height int32) error {
	if err := validateTargetSize(width, height); err != nil {
		return err
	}
	t.Delete()
	t.width, t.height = width, height

	var status uint32
	t.fbo, t.depth, status = t.api.newDepthFramebuffer(width, height)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Delete()
		return framebufferError(fmt.Sprintf("depth target %dx%d", width, height), status)
	}
	return nil
}

func (t *DepthTarget) Delete() {
	if t.depth != 0 {
		t.api.deleteTexture(t.depth)
		t.depth = 0
	}
	if t.fbo != 0 {
		t.api.deleteFramebuffer(t.fbo)
		t.fbo = 0
	}
}

func (t *DepthTarget) DepthTexture() uint32 { return t.depth }
func (t *DepthTarget) Width() int32         { return t.width }
func (t *DepthTarget) Height() int32        { return t.height }

// glFramebuffers is the OpenGL framebufferAPI.
type glFramebuffers struct{}

func (glFramebuffers) newColorFramebuffer(width, height, format int32) (fbo, color, depthStencil, status uint32) {
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)

	pixelType := uint32(gl.FLOAT)
	if format == gl.RGBA8 {
		pixelType = gl.UNSIGNED_BYTE
	}
	gl.GenTextures(1, &color)
	gl.BindTexture(gl.TEXTURE_2D, color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, format, width, height, 0, gl.RGBA, pixelType, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, color, 0)

	gl.GenRenderbuffers(1, &depthStencil)
	gl.BindRenderbuffer(gl.RENDERBUFFER, depthStencil)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, width, height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, depthStencil)

	status = gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return fbo, color, depthStencil, status
}

func (glFramebuffers) newDepthFramebuffer(width, height int32) (fbo, depth, status uint32) {
	gl.GenTextures(1, &depth)
	gl.BindTexture(gl.TEXTURE_2D, depth)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT32F, width, height, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	// Sampled as a plain float texture, so no compare mode.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.NONE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	border := []float32{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])

	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, depth, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	status = gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return fbo, depth, status
}

func (glFramebuffers) deleteFramebuffer(fbo uint32)           { gl.DeleteFramebuffers(1, &fbo) }
func (glFramebuffers) deleteTexture(texture uint32)           { gl.DeleteTextures(1, &texture) }
func (glFramebuffers) deleteRenderbuffer(renderbuffer uint32) { gl.DeleteRenderbuffers(1, &renderbuffer) }

// captureTarget is the single framebuffer reused by every environment
// capture phase. Each phase resizes its depth buffer and then attaches one
// destination face or texture at a time, so phases must not interleave.
type captureTarget struct {
	size  int32
	fbo   uint32
	depth uint32
}

func newCaptureTarget(size int32) (*captureTarget, error) {
	t := &captureTarget{}
	gl.GenFramebuffers(1, &t.fbo)
	gl.GenRenderbuffers(1, &t.depth)
	if err := t.resize(size); err != nil {
		t.delete()
		return nil, err
	}
	return t, nil
}

// resize reallocates the depth storage and sets the viewport. It leaves the
// framebuffer bound.
func (t *captureTarget) resize(size int32) error {
	if err := validateTargetSize(size, size); err != nil {
		return err
	}
	t.size = size
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, size, size)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	gl.Viewport(0, 0, size, size)
	return nil
}

// attachFace makes one mip level of a cubemap face the color attachment
// and clears it.
func (t *captureTarget) attachFace(cubemap uint32, face, level int) error {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0,
		gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(face), cubemap, int32(level))
	return t.check(fmt.Sprintf("capture face %d level %d", face, level))
}

func (t *captureTarget) attach2D(texture uint32) error {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, texture, 0)
	return t.check("capture texture")
}

func (t *captureTarget) check(what string) error {
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return framebufferError(what, status)
	}
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return nil
}

func (t *captureTarget) delete() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if t.depth != 0 {
		gl.DeleteRenderbuffers(1, &t.depth)
		t.depth = 0
	}
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
		t.fbo = 0
	}
}

func validateTargetSize(width, height int32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render target %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	return nil
}
