package resources

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/kiln/engine/core"
)

// Factory owns the live resources of one kind. Lookup, creation, reference
// counting and erasure all happen under one lock, so a resource whose count
// reached zero can never be handed out again.
type Factory[T Handle] struct {
	kind    string
	log     *log.Logger
	newFn   func() T
	load    func(T)
	destroy func(T)
	hash    func(string) uint64

	mu      sync.Mutex
	entries map[uint64]T

	// resources whose name hash was already taken by another name
	collided map[string]T
}

// NewFactory creates a factory. newFn allocates an empty resource, load starts
// its asynchronous delivery and destroy releases what it holds once the last
// reference is gone.
func NewFactory[T Handle](kind string, newFn func() T, load func(T), destroy func(T)) *Factory[T] {
	return &Factory[T]{
		kind:    kind,
		log:     core.Logger(kind),
		newFn:   newFn,
		load:    load,
		destroy: destroy,
		hash:    HashName,
		entries: make(map[uint64]T),
	}
}

func (f *Factory[T]) Kind() string {
	return f.kind
}

// Acquire returns the resource called name, creating it and starting its load
// on first use. Every Acquire must be paired with a Release.
func (f *Factory[T]) Acquire(name string) T {
	return f.acquire(name, f.load)
}

func (f *Factory[T]) acquire(name string, load func(T)) T {
	name = NormalizeName(name)
	hash := f.hash(name)

	f.mu.Lock()
	if res, ok := f.lookupLocked(name, hash); ok {
		res.resource().refCount.Add(1)
		f.mu.Unlock()
		return res
	}
	res := f.newFn()
	r := res.resource()
	r.init(f.kind, name, hash)
	r.refCount.Store(1)
	if other, taken := f.entries[hash]; taken {
		f.log.Error("name hash collision, keying by name", "name", name, "other", other.Name(), "hash", hash)
		if f.collided == nil {
			f.collided = make(map[string]T)
		}
		f.collided[name] = res
	} else {
		f.entries[hash] = res
	}
	f.mu.Unlock()

	f.log.Debug("created resource", "name", name, "id", r.id)
	if load != nil {
		load(res)
	}
	return res
}

// Release drops one reference. The last release erases the entry and destroys
// the resource.
func (f *Factory[T]) Release(res T) {
	r := res.resource()
	f.mu.Lock()
	if r.refCount.Load() <= 0 {
		f.mu.Unlock()
		core.Assert(false, "%s %q released more often than acquired", f.kind, r.name)
		return
	}
	if r.refCount.Add(-1) > 0 {
		f.mu.Unlock()
		return
	}
	if cur, ok := f.entries[r.hash]; ok && cur.resource() == r {
		delete(f.entries, r.hash)
	} else {
		delete(f.collided, r.name)
	}
	r.released.Store(true)
	f.mu.Unlock()

	f.log.Debug("destroying resource", "name", r.name, "id", r.id)
	if f.destroy != nil {
		f.destroy(res)
	}
}

// Find returns the live resource called name without taking a reference.
func (f *Factory[T]) Find(name string) (T, bool) {
	name = NormalizeName(name)
	hash := f.hash(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookupLocked(name, hash)
}

func (f *Factory[T]) lookupLocked(name string, hash uint64) (T, bool) {
	if res, ok := f.entries[hash]; ok && res.Name() == name {
		return res, true
	}
	res, ok := f.collided[name]
	return res, ok
}

// Live reports whether res is still registered. Delivery callbacks check it
// before handing a payload to a resource.
func (f *Factory[T]) Live(res T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !res.resource().released.Load()
}

// Reload delivers a live, fully loaded resource again. It reports false when
// no such resource exists or its first load is still in flight.
func (f *Factory[T]) Reload(name string) bool {
	res, ok := f.Find(name)
	if !ok || !res.resource().completed.Load() || f.load == nil {
		return false
	}
	f.log.Info("reloading resource", "name", res.Name())
	f.load(res)
	return true
}

func (f *Factory[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries) + len(f.collided)
}

// Names returns the names of every live resource.
func (f *Factory[T]) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.entries)+len(f.collided))
	for _, res := range f.entries {
		names = append(names, res.Name())
	}
	for name := range f.collided {
		names = append(names, name)
	}
	return names
}
