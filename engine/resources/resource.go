package resources

import (
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

type State int32

/** @brief Load states of a resource. */
const (
	/** @brief Delivery or finalize still in progress. */
	StateNotStarted State = iota
	/** @brief Payload delivered and finalized. */
	StateLoaded
	/** @brief Delivery failed, the resource must not be used. */
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "not-started"
	}
}

/**
 * @brief The common part of every resource kind. Kinds embed it and are
 * created, shared and destroyed by a Factory.
 */
type Resource struct {
	/** @brief The factory kind, e.g. "Texture". */
	kind string
	/** @brief The normalised name the resource was acquired with. */
	name string
	/** @brief FNV-64a hash of name, the factory key. */
	hash uint64
	/** @brief Unique per resource instance, never shared by two objects. */
	id      uuid.UUID
	created time.Time

	// mutated under the owning factory lock only
	refCount atomic.Int32
	released atomic.Bool

	// set once by the tracker
	completed atomic.Bool
	failed    atomic.Bool
	done      chan struct{}
}

// Handle is implemented by every resource kind through the embedded Resource.
type Handle interface {
	resource() *Resource
	Name() string
	State() State
}

func (r *Resource) init(kind, name string, hash uint64) {
	r.kind = kind
	r.name = name
	r.hash = hash
	r.id = uuid.New()
	r.created = time.Now()
	r.done = make(chan struct{})
}

func (r *Resource) resource() *Resource {
	return r
}

func (r *Resource) Kind() string {
	return r.kind
}

func (r *Resource) Name() string {
	return r.name
}

func (r *Resource) Hash() uint64 {
	return r.hash
}

func (r *Resource) ID() uuid.UUID {
	return r.id
}

func (r *Resource) CreatedAt() time.Time {
	return r.created
}

func (r *Resource) RefCount() int {
	return int(r.refCount.Load())
}

func (r *Resource) State() State {
	switch {
	case !r.completed.Load():
		return StateNotStarted
	case r.failed.Load():
		return StateFailed
	default:
		return StateLoaded
	}
}

// IsLoaded reports whether the resource finished loading successfully.
func (r *Resource) IsLoaded() bool {
	return r.State() == StateLoaded
}

// Done is closed when the resource finished loading, successfully or not.
func (r *Resource) Done() <-chan struct{} {
	return r.done
}

func (r *Resource) Released() bool {
	return r.released.Load()
}

// markCompleted flips the completed flag once and reports whether it did.
func (r *Resource) markCompleted() bool {
	if !r.completed.CompareAndSwap(false, true) {
		return false
	}
	close(r.done)
	return true
}

// NormalizeName returns the NFC form of name, so that visually identical
// names share one resource.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// HashName returns the factory key of an already normalised name.
func HashName(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}
