package resources

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

const renderTargetPrefix = "rendertarget/"

type Texture struct {
	Resource

	mu           sync.RWMutex
	width        uint32
	height       uint32
	transparent  bool
	renderTarget bool
	platform     renderer.PlatformHandle
}

func (t *Texture) Size() (uint32, uint32) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.width, t.height
}

func (t *Texture) HasTransparency() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.transparent
}

func (t *Texture) IsRenderTarget() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.renderTarget
}

// Platform returns the backend handle, 0 until finalized.
func (t *Texture) Platform() renderer.PlatformHandle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.platform
}

func (s *System) AcquireTexture(name string) *Texture {
	return s.Textures.Acquire(name)
}

func (s *System) ReleaseTexture(t *Texture) {
	s.Textures.Release(t)
}

// CreateRenderTarget creates an anonymous texture the backend renders into.
// It is not backed by any file and never reloads.
func (s *System) CreateRenderTarget(width, height uint32) *Texture {
	name := renderTargetPrefix + uuid.NewString()
	return s.Textures.acquire(name, func(t *Texture) {
		t.mu.Lock()
		t.renderTarget = true
		t.mu.Unlock()
		data := &loaders.TextureData{
			Width:  width,
			Height: height,
			Pixels: make([]byte, int(width)*int(height)*4),
		}
		s.render.AddPreDrawTask(func() { s.finalizeTexture(t, data) })
	})
}

func (s *System) loadTexture(t *Texture) {
	s.assets.DeliverAsync(loaders.TextureTypeName, t.Name(), nil, func(data assets.AssetData) {
		if !s.Textures.Live(t) {
			s.log.Debug("discarding payload of released texture", "name", t.Name())
			return
		}
		tex, ok := data.(*loaders.TextureData)
		if !ok || tex == nil {
			s.fail(t, "no texture data delivered")
			return
		}
		s.render.AddPreDrawTask(func() { s.finalizeTexture(t, tex) })
	})
}

// finalizeTexture runs on the draw goroutine.
func (s *System) finalizeTexture(t *Texture, data *loaders.TextureData) {
	if t.Released() {
		return
	}
	backend := s.render.Backend()
	handle, err := backend.CreatePlatformData(t.Kind(), data)
	if err != nil {
		s.fail(t, err.Error())
		return
	}

	t.mu.Lock()
	old := t.platform
	t.platform = handle
	t.width = data.Width
	t.height = data.Height
	t.transparent = data.HasTransparency
	t.mu.Unlock()

	if old != 0 {
		backend.DestroyPlatformData(t.Kind(), old)
	}
	s.finished(t)
}

func (s *System) destroyTexture(t *Texture) {
	s.render.AddPreDrawTask(func() {
		t.mu.Lock()
		handle := t.platform
		t.platform = 0
		t.mu.Unlock()
		if handle != 0 {
			s.render.Backend().DestroyPlatformData(t.Kind(), handle)
		}
	})
}
