package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name     string
		wantTag  string
		wantPath string
		wantErr  bool
	}{
		{name: "src:textures/wall.png", wantTag: "src", wantPath: "textures/wall.png"},
		{name: "data:a:b", wantTag: "data", wantPath: "a:b"},
		{name: "nocolon", wantErr: true},
		{name: ":path", wantErr: true},
		{name: "tag:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, path, err := SplitName(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Fatalf("SplitName() error = %v, want ErrInvalidName", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitName() error = %v", err)
			}
			if tag != tt.wantTag || path != tt.wantPath {
				t.Fatalf("SplitName() = (%q, %q), want (%q, %q)", tag, path, tt.wantTag, tt.wantPath)
			}
		})
	}
}

func TestManager_PriorityResolution(t *testing.T) {
	// Given: two memory mounts under the same tag
	low := NewMemFS("low")
	high := NewMemFS("high")
	low.Put("a.txt", []byte("low"), 10)
	low.Put("b.txt", []byte("only-low"), 11)
	high.Put("a.txt", []byte("high"), 20)

	m := NewManager()
	if err := m.Mount("src", low, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Mount("src", high, 10); err != nil {
		t.Fatal(err)
	}

	// Then: the higher priority mount wins, the lower one fills gaps
	data, err := m.Read("src:a.txt")
	if err != nil || string(data) != "high" {
		t.Fatalf("Read(a) = %q, %v; want high", data, err)
	}
	if got := m.ModTime("src:a.txt"); got != 20 {
		t.Fatalf("ModTime(a) = %d, want 20", got)
	}
	data, err = m.Read("src:b.txt")
	if err != nil || string(data) != "only-low" {
		t.Fatalf("Read(b) = %q, %v; want only-low", data, err)
	}
	if m.ModTime("src:missing.txt") != 0 {
		t.Fatal("ModTime of a missing file should be 0")
	}
	if _, err := m.Read("src:missing.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("Read(missing) error = %v, want ErrFileNotFound", err)
	}
	if _, err := m.Read("other:a.txt"); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("Read(other) error = %v, want ErrUnknownTag", err)
	}
}

func TestManager_WriteSkipsReadOnlyMounts(t *testing.T) {
	ro := NewMemFS("ro")
	ro.SetReadOnly(true)
	rw := NewMemFS("rw")

	m := NewManager()
	_ = m.Mount("data", ro, 10)
	_ = m.Mount("data", rw, 0)

	if err := m.Write("data:out.bin", []byte{1, 2}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !rw.Exists("out.bin") || ro.Exists("out.bin") {
		t.Fatal("Write should land in the writable mount only")
	}

	ro2 := NewMemFS("ro2")
	ro2.SetReadOnly(true)
	_ = m.Mount("locked", ro2, 0)
	if err := m.Write("locked:x", nil); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Write(locked) error = %v, want ErrReadOnly", err)
	}
}

func TestFolderFS_ReadWrite(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFolderFS(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.Write("nested/file.bin", []byte("payload")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !f.Exists("nested/file.bin") {
		t.Fatal("Exists() = false after Write")
	}
	if f.ModTime("nested/file.bin") == 0 {
		t.Fatal("ModTime() = 0 for an existing file")
	}
	if f.Exists("nested") {
		t.Fatal("directories must not count as files")
	}
	data, err := f.Read("nested/file.bin")
	if err != nil || string(data) != "payload" {
		t.Fatalf("Read() = %q, %v", data, err)
	}
	if _, err := f.Read("missing"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("Read(missing) error = %v, want ErrFileNotFound", err)
	}

	ro, _ := NewFolderFS(dir, true)
	if err := ro.Write("x", nil); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Write on read-only folder error = %v", err)
	}
}

func TestManager_WatchReportsChanges(t *testing.T) {
	// Given: a watched folder mount
	dir := t.TempDir()
	f, err := NewFolderFS(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager()
	_ = m.Mount("src", f, 0)

	var mu sync.Mutex
	seen := map[string]bool{}
	m.OnChange(func(name string) {
		mu.Lock()
		seen[name] = true
		mu.Unlock()
	})
	if err := m.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer m.Close()

	// When: a file is written on disk
	if err := os.WriteFile(filepath.Join(dir, "hero.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Then: the listener receives its tagged name
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := seen["src:hero.png"]
		mu.Unlock()
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("change notification for src:hero.png never arrived")
}
