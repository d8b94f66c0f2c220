package renderer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFramebufferIncomplete = errors.New("framebuffer incomplete")
	ErrShaderCompile         = errors.New("shader compilation failed")
	ErrShaderLink            = errors.New("shader program link failed")
	ErrNoGeometry            = errors.New("scene contains no drawable geometry")
	ErrInvalidDimensions     = errors.New("invalid dimensions")
)

// ShaderError carries the info log of a failed compile or link step.
type ShaderError struct {
	Name  string
	Stage string // "vertex", "fragment" or "program"
	Log   string
	err   error
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("%s (%s %s): %s", e.err, e.Name, e.Stage, strings.TrimRight(e.Log, "\x00\n "))
}

func (e *ShaderError) Unwrap() error { return e.err }

func framebufferError(what string, status uint32) error {
	return fmt.Errorf("%s: %w: status=0x%X", what, ErrFramebufferIncomplete, status)
}
