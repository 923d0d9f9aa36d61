package resources

import (
	"sync"

	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
)

// Script is a Lua chunk. It has no backend data and completes as soon as it
// is delivered.
type Script struct {
	Resource

	mu   sync.RWMutex
	data *loaders.ScriptData
}

func (sc *Script) Data() *loaders.ScriptData {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.data
}

func (s *System) AcquireScript(name string) *Script {
	return s.Scripts.Acquire(name)
}

func (s *System) ReleaseScript(sc *Script) {
	s.Scripts.Release(sc)
}

func (s *System) loadScript(sc *Script) {
	s.assets.DeliverAsync(loaders.ScriptTypeName, sc.Name(), nil, func(data assets.AssetData) {
		if !s.Scripts.Live(sc) {
			return
		}
		chunk, ok := data.(*loaders.ScriptData)
		if !ok || chunk == nil {
			s.fail(sc, "no script data delivered")
			return
		}
		sc.mu.Lock()
		sc.data = chunk
		sc.mu.Unlock()
		s.finished(sc)
	})
}
