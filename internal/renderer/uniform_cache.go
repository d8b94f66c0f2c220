package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniforms is the named-uniform setter surface every pass writes through.
// Shader implements it for OpenGL programs.
type Uniforms interface {
	SetInt(name string, value int32)
	SetFloat(name string, value float32)
	SetBool(name string, value bool)
	SetVec2(name string, value mgl32.Vec2)
	SetVec3(name string, value mgl32.Vec3)
	SetVec4(name string, value mgl32.Vec4)
	SetMat2(name string, value mgl32.Mat2)
	SetMat3(name string, value mgl32.Mat3)
	SetMat4(name string, value mgl32.Mat4)
}

// UniformCache caches uniform locations to avoid repeated gl.GetUniformLocation calls
type UniformCache struct {
	locations map[string]int32
	program   uint32
}

// NewUniformCache creates a new uniform cache for a shader program
func NewUniformCache(program uint32) *UniformCache {
	return &UniformCache{
		locations: make(map[string]int32),
		program:   program,
	}
}

// GetLocation returns the cached uniform location or fetches and caches it.
// Unknown names (including uniforms the GLSL compiler optimized away) cache -1.
func (uc *UniformCache) GetLocation(name string) int32 {
	if loc, exists := uc.locations[name]; exists {
		return loc
	}

	loc := gl.GetUniformLocation(uc.program, gl.Str(name+"\x00"))
	uc.locations[name] = loc
	return loc
}

func (uc *UniformCache) SetInt(name string, value int32) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform1i(loc, value)
	}
}

func (uc *UniformCache) SetFloat(name string, value float32) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform1f(loc, value)
	}
}

// SetBool uploads a bool as an int uniform, which is how GLSL expects it.
func (uc *UniformCache) SetBool(name string, value bool) {
	var v int32
	if value {
		v = 1
	}
	uc.SetInt(name, v)
}

func (uc *UniformCache) SetVec2(name string, value mgl32.Vec2) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform2f(loc, value[0], value[1])
	}
}

func (uc *UniformCache) SetVec3(name string, value mgl32.Vec3) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform3f(loc, value[0], value[1], value[2])
	}
}

func (uc *UniformCache) SetVec4(name string, value mgl32.Vec4) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform4f(loc, value[0], value[1], value[2], value[3])
	}
}

func (uc *UniformCache) SetMat2(name string, value mgl32.Mat2) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.UniformMatrix2fv(loc, 1, false, &value[0])
	}
}

func (uc *UniformCache) SetMat3(name string, value mgl32.Mat3) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.UniformMatrix3fv(loc, 1, false, &value[0])
	}
}

func (uc *UniformCache) SetMat4(name string, value mgl32.Mat4) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.UniformMatrix4fv(loc, 1, false, &value[0])
	}
}

// Clear clears the cache (call when shader program changes)
func (uc *UniformCache) Clear() {
	uc.locations = make(map[string]int32)
}
