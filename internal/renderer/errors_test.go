package renderer

import (
	"errors"
	"strings"
	"testing"
)

func TestShaderErrorUnwraps(t *testing.T) {
	var err error = &ShaderError{Name: "pbr", Stage: "fragment", Log: "0:12: syntax error\x00", err: ErrShaderCompile}

	if !errors.Is(err, ErrShaderCompile) {
		t.Error("ShaderError should unwrap to ErrShaderCompile")
	}
	if errors.Is(err, ErrShaderLink) {
		t.Error("Compile error must not match ErrShaderLink")
	}

	var se *ShaderError
	if !errors.As(err, &se) || se.Stage != "fragment" {
		t.Fatalf("errors.As failed: %v", err)
	}
	if strings.Contains(err.Error(), "\x00") {
		t.Error("Error text should not carry the NUL padding of the info log")
	}
	if !strings.Contains(err.Error(), "syntax error") {
		t.Errorf("Error text should contain the info log, got %q", err.Error())
	}
}

func TestFramebufferErrorWrapsSentinel(t *testing.T) {
	err := framebufferError("forward target", 0x8CD6)
	if !errors.Is(err, ErrFramebufferIncomplete) {
		t.Error("framebufferError should wrap ErrFramebufferIncomplete")
	}
	if !strings.Contains(err.Error(), "0x8CD6") {
		t.Errorf("Expected status in message, got %q", err.Error())
	}
}
