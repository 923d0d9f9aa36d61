package filesystem

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/kiln/engine/core"
)

type mount struct {
	fs       FileSystem
	priority int
}

// Manager resolves "tag:path" names against the file systems mounted under
// each tag. Higher priority mounts are searched first; mounts with the same
// priority keep their mount order.
type Manager struct {
	log *log.Logger

	mu        sync.RWMutex
	mounts    map[string][]mount
	listeners []func(name string)
}

func NewManager() *Manager {
	return &Manager{
		log:    core.Logger("fs"),
		mounts: make(map[string][]mount),
	}
}

// SplitName splits "tag:path" into its parts.
func SplitName(name string) (tag, path string, err error) {
	tag, path, ok := strings.Cut(name, ":")
	if !ok || tag == "" || path == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return tag, path, nil
}

// Mount adds fs under tag. Watchable file systems start reporting changes to
// the listeners registered with OnChange.
func (m *Manager) Mount(tag string, fs FileSystem, priority int) error {
	if tag == "" || fs == nil {
		return core.ErrInvalidArgument
	}
	m.mu.Lock()
	list := append(m.mounts[tag], mount{fs: fs, priority: priority})
	slices.SortStableFunc(list, func(a, b mount) int {
		return b.priority - a.priority
	})
	m.mounts[tag] = list
	m.mu.Unlock()

	m.log.Info("mounted file system", "tag", tag, "fs", fs.Name(), "priority", priority)
	return nil
}

// Watch starts change notification on every watchable mount.
func (m *Manager) Watch() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for tag, list := range m.mounts {
		for _, mnt := range list {
			w, ok := mnt.fs.(Watchable)
			if !ok {
				continue
			}
			tag := tag
			if err := w.Watch(func(path string) { m.notify(tag + ":" + path) }); err != nil {
				return fmt.Errorf("failed to watch %s: %w", mnt.fs.Name(), err)
			}
		}
	}
	return nil
}

// OnChange registers a callback receiving the "tag:path" name of every
// changed file. Callbacks run on the watcher goroutine.
func (m *Manager) OnChange(cb func(name string)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, cb)
	m.mu.Unlock()
}

func (m *Manager) notify(name string) {
	m.mu.RLock()
	listeners := slices.Clone(m.listeners)
	m.mu.RUnlock()
	m.log.Debug("file changed", "name", name)
	for _, cb := range listeners {
		cb(name)
	}
}

// Close stops every watcher.
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var firstErr error
	for _, list := range m.mounts {
		for _, mnt := range list {
			if w, ok := mnt.fs.(Watchable); ok {
				if err := w.Close(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

func (m *Manager) find(name string) (FileSystem, string, error) {
	tag, path, err := SplitName(name)
	if err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list, ok := m.mounts[tag]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	for _, mnt := range list {
		if mnt.fs.Exists(path) {
			return mnt.fs, path, nil
		}
	}
	return nil, path, fmt.Errorf("%w: %s", ErrFileNotFound, name)
}

func (m *Manager) Exists(name string) bool {
	_, _, err := m.find(name)
	return err == nil
}

// ModTime returns the modification time in unix nanoseconds, 0 when missing.
func (m *Manager) ModTime(name string) uint64 {
	fs, path, err := m.find(name)
	if err != nil {
		return 0
	}
	return fs.ModTime(path)
}

func (m *Manager) Read(name string) ([]byte, error) {
	fs, path, err := m.find(name)
	if err != nil {
		return nil, err
	}
	return fs.Read(path)
}

// Write stores data in the highest priority writable mount of the tag.
func (m *Manager) Write(name string, data []byte) error {
	tag, path, err := SplitName(name)
	if err != nil {
		return err
	}
	m.mu.RLock()
	list, ok := m.mounts[tag]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	for _, mnt := range list {
		if !mnt.fs.ReadOnly() {
			return mnt.fs.Write(path, data)
		}
	}
	return fmt.Errorf("%w: %s", ErrReadOnly, tag)
}

// AbsPath returns the on-disk path of name when it resolves to a folder mount.
func (m *Manager) AbsPath(name string) (string, bool) {
	fs, path, err := m.find(name)
	if err != nil {
		return "", false
	}
	folder, ok := fs.(*FolderFS)
	if !ok {
		return "", false
	}
	return folder.Abs(path), true
}
