package renderer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// IndexWidth is the element size of an index buffer.
type IndexWidth int

const (
	Index16 IndexWidth = iota
	Index32
)

// GPUMesh identifies an uploaded vertex array.
type GPUMesh struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
	IndexWidth IndexWidth
}

// Device covers the GPU resource operations models and environments need.
// Every call must happen on the frame loop goroutine that owns the context.
type Device interface {
	CreateTexture2D(img *image.RGBA) (uint32, error)
	DeleteTexture(id uint32)
	CreateMesh(vertices []float32, indices []uint32, width IndexWidth) (GPUMesh, error)
	DeleteMesh(mesh GPUMesh)
	BindTexture2D(unit uint32, id uint32)
	BindTextureCube(unit uint32, id uint32)
	DrawIndexed(mesh GPUMesh)
}

type glDevice struct{}

// NewGLDevice returns the Device for the current OpenGL context.
func NewGLDevice() Device { return glDevice{} }

// CreateTexture2D uploads an 8-bit RGBA image with a full mip chain. Row 0
// of the image lands at t = 0, which matches top-left UV origins.
func (glDevice) CreateTexture2D(img *image.RGBA) (uint32, error) {
	if img == nil {
		return 0, fmt.Errorf("nil texture image")
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("texture %dx%d: %w", w, h, ErrInvalidDimensions)
	}
	if img.Stride != w*4 {
		return 0, fmt.Errorf("unsupported stride")
	}

	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return textureID, nil
}

func (glDevice) DeleteTexture(id uint32) {
	if id == 0 {
		return
	}
	gl.DeleteTextures(1, &id)
}

func (glDevice) CreateMesh(vertices []float32, indices []uint32, width IndexWidth) (GPUMesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return GPUMesh{}, ErrNoGeometry
	}
	if len(vertices)%VertexFloatCount != 0 {
		return GPUMesh{}, fmt.Errorf("vertex buffer of %d floats is not a multiple of %d", len(vertices), VertexFloatCount)
	}

	m := GPUMesh{IndexCount: int32(len(indices)), IndexWidth: width}
	gl.GenVertexArrays(1, &m.VAO)
	gl.BindVertexArray(m.VAO)

	gl.GenBuffers(1, &m.VBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.EBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.EBO)
	if width == Index16 {
		short := make([]uint16, len(indices))
		for i, idx := range indices {
			short[i] = uint16(idx)
		}
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(short)*2, gl.Ptr(short), gl.STATIC_DRAW)
	} else {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}

	// Positions
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, VertexStride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	// Normals
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, VertexStride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	// Tangents
	gl.VertexAttribPointer(2, 4, gl.FLOAT, false, VertexStride, gl.PtrOffset(6*4))
	gl.EnableVertexAttribArray(2)
	// UV coordinates
	gl.VertexAttribPointer(3, 2, gl.FLOAT, false, VertexStride, gl.PtrOffset(10*4))
	gl.EnableVertexAttribArray(3)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return m, nil
}

func (glDevice) DeleteMesh(m GPUMesh) {
	if m.VAO != 0 {
		gl.DeleteVertexArrays(1, &m.VAO)
	}
	if m.VBO != 0 {
		gl.DeleteBuffers(1, &m.VBO)
	}
	if m.EBO != 0 {
		gl.DeleteBuffers(1, &m.EBO)
	}
}

func (glDevice) BindTexture2D(unit uint32, id uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, id)
}

func (glDevice) BindTextureCube(unit uint32, id uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, id)
}

func (glDevice) DrawIndexed(m GPUMesh) {
	indexType := uint32(gl.UNSIGNED_INT)
	if m.IndexWidth == Index16 {
		indexType = gl.UNSIGNED_SHORT
	}
	gl.BindVertexArray(m.VAO)
	gl.DrawElements(gl.TRIANGLES, m.IndexCount, indexType, nil)
	gl.BindVertexArray(0)
}
