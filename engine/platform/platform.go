package platform

import (
	"sync"
	"time"
)

// ResizeFunc receives the new framebuffer size. 0x0 means minimised.
type ResizeFunc func(width, height uint32)

// Platform owns the window and its event pump. Every method except Sleep and
// AbsoluteTime must be called from the update goroutine.
type Platform interface {
	Startup(applicationName string, x, y, width, height uint32) error
	// PumpMessages processes pending window events and reports false once the
	// user asked to close the application.
	PumpMessages() bool
	SetResizeCallback(fn ResizeFunc)
	Shutdown() error
	AbsoluteTime() float64
	Sleep(ms float64)
}

var _ Platform = (*Headless)(nil)

// Headless has no window. Quit and Resize simulate the matching events.
type Headless struct {
	start time.Time

	mu       sync.Mutex
	quit     bool
	onResize ResizeFunc
	resizes  [][2]uint32
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Startup(applicationName string, x, y, width, height uint32) error {
	h.start = time.Now()
	return nil
}

func (h *Headless) PumpMessages() bool {
	h.mu.Lock()
	resizes := h.resizes
	h.resizes = nil
	fn := h.onResize
	quit := h.quit
	h.mu.Unlock()

	if fn != nil {
		for _, r := range resizes {
			fn(r[0], r[1])
		}
	}
	return !quit
}

func (h *Headless) SetResizeCallback(fn ResizeFunc) {
	h.mu.Lock()
	h.onResize = fn
	h.mu.Unlock()
}

func (h *Headless) Shutdown() error {
	return nil
}

func (h *Headless) AbsoluteTime() float64 {
	return time.Since(h.start).Seconds()
}

func (h *Headless) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

// Quit makes the next PumpMessages report a close request.
func (h *Headless) Quit() {
	h.mu.Lock()
	h.quit = true
	h.mu.Unlock()
}

// Resize queues a resize event delivered by the next PumpMessages.
func (h *Headless) Resize(width, height uint32) {
	h.mu.Lock()
	h.resizes = append(h.resizes, [2]uint32{width, height})
	h.mu.Unlock()
}
