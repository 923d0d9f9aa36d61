package window

import (
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/platform"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

var _ platform.Platform = (*Window)(nil)

// Window is the desktop platform backed by a GLFW window.
type Window struct {
	window    *glfw.Window
	startTime float64
	onResize  platform.ResizeFunc
}

func New() *Window {
	return &Window{}
}

func (w *Window) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	w.window = window

	w.window.SetKeyCallback(w.keyCallback)
	w.window.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	w.window.SetPos(int(x), int(y))
	w.window.Show()

	w.startTime = glfw.GetTime()
	return nil
}

func (w *Window) PumpMessages() bool {
	glfw.PollEvents()
	return !w.window.ShouldClose()
}

func (w *Window) SetResizeCallback(fn platform.ResizeFunc) {
	w.onResize = fn
}

func (w *Window) Shutdown() error {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	glfw.Terminate()
	return nil
}

func (w *Window) AbsoluteTime() float64 {
	return glfw.GetTime() - w.startTime
}

func (w *Window) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

func (w *Window) keyCallback(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		win.SetShouldClose(true)
	}
}

func (w *Window) framebufferSizeCallback(win *glfw.Window, width, height int) {
	if w.onResize != nil {
		w.onResize(uint32(width), uint32(height))
	}
}
