package renderer

import (
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFramebuffers hands out object names and tracks which are still alive.
type fakeFramebuffers struct {
	nextID  uint32
	live    map[uint32]string
	formats []int32
	status  uint32 // returned for every new framebuffer; 0 means complete
}

func newFakeFramebuffers() *fakeFramebuffers {
	return &fakeFramebuffers{live: make(map[uint32]string)}
}

func (f *fakeFramebuffers) alloc(kind string) uint32 {
	f.nextID++
	f.live[f.nextID] = kind
	return f.nextID
}

func (f *fakeFramebuffers) completeness() uint32 {
	if f.status != 0 {
		return f.status
	}
	return gl.FRAMEBUFFER_COMPLETE
}

func (f *fakeFramebuffers) newColorFramebuffer(width, height, format int32) (fbo, color, depthStencil, status uint32) {
	f.formats = append(f.formats, format)
	return f.alloc("framebuffer"), f.alloc("texture"), f.alloc("renderbuffer"), f.completeness()
}

func (f *fakeFramebuffers) newDepthFramebuffer(width, height int32) (fbo, depth, status uint32) {
	return f.alloc("framebuffer"), f.alloc("texture"), f.completeness()
}

func (f *fakeFramebuffers) free(id uint32, kind string) {
	if f.live[id] == kind {
		delete(f.live, id)
	}
}

func (f *fakeFramebuffers) deleteFramebuffer(fbo uint32)           { f.free(fbo, "framebuffer") }
func (f *fakeFramebuffers) deleteTexture(texture uint32)           { f.free(texture, "texture") }
func (f *fakeFramebuffers) deleteRenderbuffer(renderbuffer uint32) { f.free(renderbuffer, "renderbuffer") }

func TestColorTargetResizeIsIdempotent(t *testing.T) {
	api := newFakeFramebuffers()
	target, err := newColorTarget(api, 640, 480, gl.RGBA16F)
	require.NoError(t, err)
	first := target.ColorTexture()

	for i := 0; i < 2; i++ {
		require.NoError(t, target.Resize(800, 600))
		assert.Equal(t, int32(800), target.Width())
		assert.Equal(t, int32(600), target.Height())
		assert.Len(t, api.live, 3, "one framebuffer, texture and renderbuffer alive")
	}
	assert.NotEqual(t, first, target.ColorTexture(), "resize recreates the attachments")
	assert.Equal(t, []int32{gl.RGBA16F, gl.RGBA16F, gl.RGBA16F}, api.formats)

	target.Delete()
	target.Delete()
	assert.Empty(t, api.live)
}

func TestDepthTargetResizeIsIdempotent(t *testing.T) {
	api := newFakeFramebuffers()
	target, err := newDepthTarget(api, 1024, 1024)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, target.Resize(2048, 2048))
		assert.Equal(t, int32(2048), target.Width())
		assert.Equal(t, int32(2048), target.Height())
		assert.Len(t, api.live, 2)
	}

	target.Delete()
	assert.Empty(t, api.live)
}

func TestIncompleteTargetsFailAndRelease(t *testing.T) {
	api := newFakeFramebuffers()
	api.status = gl.FRAMEBUFFER_UNSUPPORTED

	_, err := newColorTarget(api, 64, 64, gl.RGBA8)
	assert.ErrorIs(t, err, ErrFramebufferIncomplete)
	_, err = newDepthTarget(api, 64, 64)
	assert.ErrorIs(t, err, ErrFramebufferIncomplete)
	assert.Empty(t, api.live)
}

func TestTargetResizeRejectsBadSize(t *testing.T) {
	api := newFakeFramebuffers()
	target, err := newColorTarget(api, 16, 16, gl.RGBA8)
	require.NoError(t, err)

	assert.ErrorIs(t, target.Resize(0, 16), ErrInvalidDimensions)
	assert.Equal(t, int32(16), target.Width(), "a rejected resize keeps the old target")
	assert.Len(t, api.live, 3)
}
