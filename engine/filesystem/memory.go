package filesystem

import (
	"fmt"
	"sync"
	"time"
)

type memFile struct {
	data    []byte
	modTime uint64
}

// MemFS keeps files in memory. Modification times can be set explicitly,
// which makes cache freshness decisions reproducible.
type MemFS struct {
	name     string
	readOnly bool
	now      func() uint64

	mu    sync.RWMutex
	files map[string]memFile
}

func NewMemFS(name string) *MemFS {
	return &MemFS{
		name:  name,
		files: make(map[string]memFile),
		now:   func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

func (m *MemFS) Name() string {
	return "mem:" + m.name
}

func (m *MemFS) ReadOnly() bool {
	return m.readOnly
}

func (m *MemFS) SetReadOnly(readOnly bool) {
	m.mu.Lock()
	m.readOnly = readOnly
	m.mu.Unlock()
}

func (m *MemFS) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[path]
	return ok
}

func (m *MemFS) ModTime(path string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files[path].modTime
}

func (m *MemFS) Read(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (m *MemFS) Write(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readOnly {
		return ErrReadOnly
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[path] = memFile{data: buf, modTime: m.now()}
	return nil
}

// Put stores a file with an explicit modification time, bypassing read-only.
func (m *MemFS) Put(path string, data []byte, modTime uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[path] = memFile{data: buf, modTime: modTime}
}

func (m *MemFS) SetModTime(path string, modTime uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[path]; ok {
		f.modTime = modTime
		m.files[path] = f
	}
}

func (m *MemFS) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// SetClock replaces the time source used by Write.
func (m *MemFS) SetClock(now func() uint64) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}
