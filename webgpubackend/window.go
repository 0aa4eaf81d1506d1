package webgpubackend

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window owns the platform window backing the device's presentation
// surface, the same single-shared-window pattern as Gekko3D-gekko's
// PlatformWindowModule/WindowState, minus the ECS resource plumbing: here
// NewWindow creates the window and NewDevice takes it and creates the wgpu
// surface from it.
type Window struct {
	glfw   *glfw.Window
	Width  int
	Height int
}

// NewWindow creates a GLFW window with no client API bound (wgpu owns the
// surface), matching mod_platform_window.go's createWindowState.
func NewWindow(width, height int, title string) (*Window, error) {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "corerender"
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("webgpubackend: glfw.Init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("webgpubackend: glfw.CreateWindow: %w", err)
	}

	return &Window{glfw: win, Width: width, Height: height}, nil
}

// ShouldClose reports whether the host has requested the window close
// (the close button, Alt+F4, etc.).
func (w *Window) ShouldClose() bool { return w.glfw.ShouldClose() }

// PollEvents pumps the GLFW event queue; callers drive this once per frame
// from the host render loop, the way mod_client.go's run loop does.
func (w *Window) PollEvents() { glfw.PollEvents() }

// FramebufferSize returns the current drawable size, which can differ from
// Width/Height on HiDPI displays; frame.RenderSurface.Resize should be
// driven from this rather than from the requested window size.
func (w *Window) FramebufferSize() (int, int) {
	return w.glfw.GetFramebufferSize()
}

func (w *Window) Release() {
	w.glfw.Destroy()
	glfw.Terminate()
}
