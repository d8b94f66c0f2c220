//go:build !windows

package engine

import "github.com/go-gl/glfw/v3.3/glfw"

// SetDarkTitleBar is only implemented on Windows; other platforms follow
// the desktop theme.
func SetDarkTitleBar(window *glfw.Window) {}
