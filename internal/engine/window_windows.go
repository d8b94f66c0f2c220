//go:build windows

package engine

import (
	"syscall"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

var (
	dwmapi                    = syscall.NewLazyDLL("dwmapi.dll")
	procDwmSetWindowAttribute = dwmapi.NewProc("DwmSetWindowAttribute")
)

const (
	dwmwaUseImmersiveDarkMode = 20
	dwmwaBorderColor          = 34
	dwmwaCaptionColor         = 35
)

// SetDarkTitleBar matches the window frame to the dark viewer background.
func SetDarkTitleBar(window *glfw.Window) {
	hwnd := window.GetWin32Window()
	if hwnd == nil {
		return
	}

	var useDarkMode int32 = 1
	setWindowAttribute(uintptr(unsafe.Pointer(hwnd)), dwmwaUseImmersiveDarkMode, unsafe.Pointer(&useDarkMode), unsafe.Sizeof(useDarkMode))

	// COLORREF is 0x00BBGGRR.
	var frameColor uint32 = 0x001f1a1a
	setWindowAttribute(uintptr(unsafe.Pointer(hwnd)), dwmwaBorderColor, unsafe.Pointer(&frameColor), unsafe.Sizeof(frameColor))
	setWindowAttribute(uintptr(unsafe.Pointer(hwnd)), dwmwaCaptionColor, unsafe.Pointer(&frameColor), unsafe.Sizeof(frameColor))
}

func setWindowAttribute(hwnd uintptr, attr uintptr, value unsafe.Pointer, size uintptr) {
	procDwmSetWindowAttribute.Call(hwnd, attr, uintptr(value), size)
}
