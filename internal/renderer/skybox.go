package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// unitCubeVertices is a cube of half size 1 centered at the origin, wound
// counter clockwise seen from outside.
var unitCubeVertices = []float32{
	// Back face
	-1, -1, -1, 1, 1, -1, 1, -1, -1,
	1, 1, -1, -1, -1, -1, -1, 1, -1,
	// Front face
	-1, -1, 1, 1, -1, 1, 1, 1, 1,
	1, 1, 1, -1, 1, 1, -1, -1, 1,
	// Left face
	-1, 1, 1, -1, 1, -1, -1, -1, -1,
	-1, -1, -1, -1, -1, 1, -1, 1, 1,
	// Right face
	1, 1, 1, 1, -1, -1, 1, 1, -1,
	1, -1, -1, 1, 1, 1, 1, -1, 1,
	// Bottom face
	-1, -1, -1, 1, -1, -1, 1, -1, 1,
	1, -1, 1, -1, -1, 1, -1, -1, -1,
	// Top face
	-1, 1, -1, 1, 1, 1, 1, 1, -1,
	1, 1, 1, -1, 1, -1, -1, 1, 1,
}

// unitCube is position-only cube geometry shared by the skybox, the
// environment captures and the light indicator.
type unitCube struct {
	vao uint32
	vbo uint32
}

func newUnitCube() *unitCube {
	c := &unitCube{}
	gl.GenVertexArrays(1, &c.vao)
	gl.GenBuffers(1, &c.vbo)

	gl.BindVertexArray(c.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(unitCubeVertices)*4, gl.Ptr(unitCubeVertices), gl.STATIC_DRAW)

	// Position attribute
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return c
}

func (c *unitCube) draw() {
	gl.BindVertexArray(c.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(unitCubeVertices)/3))
	gl.BindVertexArray(0)
}

func (c *unitCube) delete() {
	if c == nil {
		return
	}
	gl.DeleteVertexArrays(1, &c.vao)
	gl.DeleteBuffers(1, &c.vbo)
	c.vao, c.vbo = 0, 0
}

// Skybox draws the base environment cubemap behind everything else.
type Skybox struct {
	cube   *unitCube
	shader *Shader
}

func NewSkybox(cube *unitCube) (*Skybox, error) {
	shader, err := NewShader("skybox", skyboxVertexShaderSource, skyboxFragmentShaderSource)
	if err != nil {
		return nil, err
	}
	shader.Use()
	shader.SetInt("environment_map", 0)
	return &Skybox{cube: cube, shader: shader}, nil
}

// Render draws the cube at maximum depth: depth func LEQUAL, depth writes
// off and face culling off. State is restored afterwards.
func (s *Skybox) Render(view, projection mgl32.Mat4, environment uint32) {
	if environment == 0 {
		return
	}
	s.shader.Use()
	s.shader.SetMat4("view", view)
	s.shader.SetMat4("projection", projection)

	gl.DepthMask(false)
	gl.DepthFunc(gl.LEQUAL)
	gl.Disable(gl.CULL_FACE)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, environment)
	s.cube.draw()

	// Restore OpenGL state
	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
}

func (s *Skybox) Delete() {
	s.shader.Delete()
}
