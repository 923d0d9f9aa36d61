package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FolderFS serves files from a directory on disk.
type FolderFS struct {
	root     string
	readOnly bool

	mu      sync.Mutex
	watcher *Watcher
}

func NewFolderFS(root string, readOnly bool) (*FolderFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FolderFS{root: abs, readOnly: readOnly}, nil
}

func (f *FolderFS) Name() string {
	return "folder:" + f.root
}

func (f *FolderFS) Root() string {
	return f.root
}

func (f *FolderFS) ReadOnly() bool {
	return f.readOnly
}

// Abs returns the absolute on-disk path of path.
func (f *FolderFS) Abs(path string) string {
	return filepath.Join(f.root, filepath.FromSlash(path))
}

func (f *FolderFS) Exists(path string) bool {
	s, err := os.Stat(f.Abs(path))
	return err == nil && !s.IsDir()
}

func (f *FolderFS) ModTime(path string) uint64 {
	s, err := os.Stat(f.Abs(path))
	if err != nil || s.IsDir() {
		return 0
	}
	return uint64(s.ModTime().UnixNano())
}

func (f *FolderFS) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(f.Abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return data, err
}

// Write replaces path atomically through a temporary file in the same folder.
func (f *FolderFS) Write(path string, data []byte) error {
	if f.readOnly {
		return ErrReadOnly
	}
	dst := f.Abs(path)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst))
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Watch reports created or modified files under the root as slash paths.
func (f *FolderFS) Watch(onChange func(path string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher != nil {
		return nil
	}
	w, err := NewWatcher(func(abs string) {
		rel, err := filepath.Rel(f.root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return
		}
		if strings.HasPrefix(filepath.Base(rel), ".tmp-") {
			return
		}
		onChange(filepath.ToSlash(rel))
	})
	if err != nil {
		return err
	}
	if err := w.AddRecursive(f.root); err != nil {
		w.Close()
		return err
	}
	f.watcher = w
	return nil
}

func (f *FolderFS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	f.watcher = nil
	return err
}
