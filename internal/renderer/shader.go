package renderer

import (
	"GopherPBR/internal/logger"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// =============================================================
//
//	Shaders
//
// =============================================================

// Shader is a linked GL program. Uniform setters come from the embedded
// UniformCache, so a *Shader satisfies Uniforms.
type Shader struct {
	*UniformCache
	name    string
	program uint32
}

// NewShader compiles and links a program from NUL-terminated GLSL sources.
// Failures are returned as *ShaderError carrying the driver's info log.
func NewShader(name, vertexSource, fragmentSource string) (*Shader, error) {
	vs, err := compileStage(name, "vertex", vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	fs, err := compileStage(name, "fragment", fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return nil, err
	}
	program, err := linkProgram(name, vs, fs)
	if err != nil {
		return nil, err
	}
	logger.Log.Debug("Shader program linked", zap.String("name", name), zap.Uint32("program", program))
	return &Shader{UniformCache: NewUniformCache(program), name: name, program: program}, nil
}

func (shader *Shader) Use() {
	gl.UseProgram(shader.program)
}

func (shader *Shader) Name() string { return shader.name }

func (shader *Shader) Delete() {
	if shader == nil || shader.program == 0 {
		return
	}
	gl.DeleteProgram(shader.program)
	shader.program = 0
	shader.Clear()
}

func compileStage(name, stage, source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		logger.Log.Error("Failed to compile", zap.String("shader", name), zap.String("stage", stage), zap.String("log", log))
		return 0, &ShaderError{Name: name, Stage: stage, Log: log, err: ErrShaderCompile}
	}
	return shader, nil
}

func linkProgram(name string, vertexShader, fragmentShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DetachShader(program, vertexShader)
	gl.DeleteShader(vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		logger.Log.Error("Failed to link program", zap.String("shader", name), zap.String("log", log))
		return 0, &ShaderError{Name: name, Stage: "program", Log: log, err: ErrShaderLink}
	}
	return program, nil
}
