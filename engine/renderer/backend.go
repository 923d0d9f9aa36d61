package renderer

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// PlatformHandle identifies a backend object created for a resource.
type PlatformHandle uint64

// Backend is the graphics layer driven by the draw goroutine. Every method is
// called from the draw goroutine, from a pre-draw or begin-frame task, or from
// a backend task.
type Backend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint32) error
	// FrameWait blocks until the frame in flight is done with its resources.
	FrameWait() error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error
	CreatePlatformData(kind string, payload any) (PlatformHandle, error)
	DestroyPlatformData(kind string, handle PlatformHandle)
}

type RendererType uint8

const (
	Null RendererType = iota
	Vulkan
	Metal
	OpenGL
)

func ParseRendererType(name string) (RendererType, error) {
	switch name {
	case "", "null":
		return Null, nil
	case "vulkan":
		return Vulkan, nil
	case "metal":
		return Metal, nil
	case "opengl":
		return OpenGL, nil
	}
	return Null, fmt.Errorf("unknown renderer type %q", name)
}

// NewBackend returns the backend for t. Only the null backend ships.
func NewBackend(t RendererType) (Backend, error) {
	if t != Null {
		return nil, fmt.Errorf("renderer type %d is not available in this build", t)
	}
	return NewNullBackend(), nil
}

// NullBackend keeps track of the calls it receives and draws nothing.
type NullBackend struct {
	initialized atomic.Bool
	frames      atomic.Uint64
	lastHandle  atomic.Uint64
	width       atomic.Uint32
	height      atomic.Uint32

	mu   sync.Mutex
	live map[PlatformHandle]string
}

func NewNullBackend() *NullBackend {
	return &NullBackend{live: make(map[PlatformHandle]string)}
}

func (b *NullBackend) Initialize(appName string, appWidth, appHeight uint32) error {
	b.width.Store(appWidth)
	b.height.Store(appHeight)
	b.initialized.Store(true)
	return nil
}

func (b *NullBackend) Shutdown() error {
	b.initialized.Store(false)
	return nil
}

func (b *NullBackend) Resized(width, height uint32) error {
	b.width.Store(width)
	b.height.Store(height)
	return nil
}

func (b *NullBackend) FrameWait() error {
	return nil
}

func (b *NullBackend) BeginFrame(deltaTime float64) error {
	if !b.initialized.Load() {
		return fmt.Errorf("null backend not initialized")
	}
	return nil
}

func (b *NullBackend) EndFrame(deltaTime float64) error {
	b.frames.Add(1)
	return nil
}

func (b *NullBackend) CreatePlatformData(kind string, payload any) (PlatformHandle, error) {
	if payload == nil {
		return 0, fmt.Errorf("no payload for %s platform data", kind)
	}
	h := PlatformHandle(b.lastHandle.Add(1))
	b.mu.Lock()
	b.live[h] = kind
	b.mu.Unlock()
	return h, nil
}

func (b *NullBackend) DestroyPlatformData(kind string, handle PlatformHandle) {
	b.mu.Lock()
	delete(b.live, handle)
	b.mu.Unlock()
}

// Frames returns the number of presented frames.
func (b *NullBackend) Frames() uint64 {
	return b.frames.Load()
}

// Live returns how many platform objects of kind exist.
func (b *NullBackend) Live(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, k := range b.live {
		if k == kind {
			n++
		}
	}
	return n
}

func (b *NullBackend) Size() (uint32, uint32) {
	return b.width.Load(), b.height.Load()
}
