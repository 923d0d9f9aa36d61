package assets

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/kiln/engine/core"
)

// SourceGroup lists the candidate extensions of one source input. Candidates
// are tried in order and the first existing file wins.
type SourceGroup struct {
	Extensions []string
	Required   bool
}

// TypeInfo describes everything needed to deliver one asset type.
type TypeInfo struct {
	// Name is the tag the type is registered and requested under.
	Name string
	// ID is written in the cached binary header.
	ID uint16
	// Ext is the extension of the cached binary.
	Ext string
	// New allocates an empty payload.
	New     func() AssetData
	Sources []SourceGroup
}

// Registry maps type tags to their TypeInfo for the lifetime of the process.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeInfo
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*TypeInfo)}
}

// Register adds info under info.Name. Registering a tag again replaces the
// previous entry.
func (r *Registry) Register(info *TypeInfo) error {
	if info == nil || info.Name == "" || info.New == nil {
		return fmt.Errorf("%w: asset type needs a name and a factory", core.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[info.Name]; ok {
		core.LogDebug("asset type %s registered again, replacing it", info.Name)
	}
	r.types[info.Name] = info
	return nil
}

func (r *Registry) Lookup(tag string) (*TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.types[tag]
	return info, ok
}

// Tags returns the registered tags sorted by name.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.types))
	for tag := range r.types {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
