package filesystem

import "errors"

var (
	ErrFileNotFound = errors.New("file not found")
	ErrReadOnly     = errors.New("file system is read only")
	ErrUnknownTag   = errors.New("no file system mounted for tag")
	ErrInvalidName  = errors.New("invalid file name, expected tag:path")
)

// FileSystem is one backing store mounted under a tag. Paths use forward
// slashes and are relative to the root of the store.
type FileSystem interface {
	Name() string
	Exists(path string) bool
	// ModTime returns the modification time in unix nanoseconds, 0 when missing.
	ModTime(path string) uint64
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	ReadOnly() bool
}

// Watchable file systems report changed paths to a callback until Close.
type Watchable interface {
	Watch(onChange func(path string)) error
	Close() error
}
