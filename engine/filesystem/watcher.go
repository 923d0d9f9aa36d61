package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/kiln/engine/core"
)

// Watcher wraps fsnotify with recursive directory watching.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	onChange func(path string)

	mu       sync.Mutex
	isClosed bool
	done     chan struct{}
	exited   chan struct{}
}

func NewWatcher(onChange func(path string)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsnotify: fsWatch,
		onChange: onChange,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (w *Watcher) AddRecursive(name string) error {
	w.mu.Lock()
	closed := w.isClosed
	w.mu.Unlock()
	if closed {
		return errors.New("watcher already closed")
	}
	return w.watchRecursive(name)
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.isClosed {
		w.mu.Unlock()
		return nil
	}
	w.isClosed = true
	w.mu.Unlock()
	close(w.done)
	<-w.exited
	return nil
}

func (w *Watcher) start() {
	defer close(w.exited)
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := w.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err.Error())
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.onChange(e.Name)
			}
			// can't stat a deleted entry, so just try to drop it from the watch list
			if e.Op&fsnotify.Remove != 0 {
				w.fsnotify.Remove(e.Name)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (w *Watcher) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		return w.fsnotify.Add(walkPath)
	})
}
