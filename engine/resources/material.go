package resources

import (
	"sync"

	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

// Material is loaded once its description and every texture it names are.
type Material struct {
	Resource

	mu       sync.RWMutex
	data     *loaders.MaterialData
	textures []*Texture
	platform renderer.PlatformHandle
}

func (m *Material) Data() *loaders.MaterialData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}

// Textures returns the texture maps in diffuse, specular, normal order,
// skipping the ones the material does not use.
func (m *Material) Textures() []*Texture {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Texture(nil), m.textures...)
}

func (m *Material) Platform() renderer.PlatformHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.platform
}

func (s *System) AcquireMaterial(name string) *Material {
	return s.Materials.Acquire(name)
}

func (s *System) ReleaseMaterial(m *Material) {
	s.Materials.Release(m)
}

func (s *System) loadMaterial(m *Material) {
	s.assets.DeliverAsync(loaders.MaterialTypeName, m.Name(), nil, func(data assets.AssetData) {
		if !s.Materials.Live(m) {
			s.log.Debug("discarding payload of released material", "name", m.Name())
			return
		}
		desc, ok := data.(*loaders.MaterialData)
		if !ok || desc == nil {
			s.fail(m, "no material data delivered")
			return
		}

		names := desc.TextureNames()
		textures := make([]*Texture, len(names))
		deps := make([]Handle, len(names))
		for i, n := range names {
			textures[i] = s.Textures.Acquire(n)
			deps[i] = textures[i]
		}
		s.tracker.AddDependencyList(m, deps, func() {
			s.render.AddPreDrawTask(func() { s.finalizeMaterial(m, desc, textures) })
		})
	})
}

// finalizeMaterial runs on the draw goroutine once every texture finished.
func (s *System) finalizeMaterial(m *Material, desc *loaders.MaterialData, textures []*Texture) {
	if m.Released() {
		s.releaseTextures(textures)
		return
	}
	for _, t := range textures {
		if t.State() == StateFailed {
			s.log.Warn("material texture failed to load", "material", m.Name(), "texture", t.Name())
		}
	}

	backend := s.render.Backend()
	handle, err := backend.CreatePlatformData(m.Kind(), desc)
	if err != nil {
		s.releaseTextures(textures)
		s.fail(m, err.Error())
		return
	}

	m.mu.Lock()
	oldHandle, oldTextures := m.platform, m.textures
	m.platform = handle
	m.data = desc
	m.textures = textures
	m.mu.Unlock()

	if oldHandle != 0 {
		backend.DestroyPlatformData(m.Kind(), oldHandle)
	}
	s.releaseTextures(oldTextures)
	s.finished(m)
}

func (s *System) destroyMaterial(m *Material) {
	s.render.AddPreDrawTask(func() {
		m.mu.Lock()
		handle, textures := m.platform, m.textures
		m.platform = 0
		m.textures = nil
		m.mu.Unlock()
		if handle != 0 {
			s.render.Backend().DestroyPlatformData(m.Kind(), handle)
		}
		s.releaseTextures(textures)
	})
}

func (s *System) releaseTextures(textures []*Texture) {
	for _, t := range textures {
		s.Textures.Release(t)
	}
}
