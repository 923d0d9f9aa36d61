package resources

import (
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/kiln/engine/core"
)

// Scheduler queues work for the draw goroutine ahead of the next frame.
type Scheduler interface {
	AddPreDrawTask(task func()) int
}

type dependencyInfo struct {
	owner         Handle
	dependencies  []*Resource
	completed     int
	onAllComplete func()
}

// Tracker fires a callback once every resource of a dependency list has
// finished loading.
type Tracker struct {
	log       *log.Logger
	scheduler Scheduler

	mu     sync.Mutex
	active []*dependencyInfo
}

func NewTracker(scheduler Scheduler) *Tracker {
	return &Tracker{
		log:       core.Logger("deps"),
		scheduler: scheduler,
	}
}

// AddDependencyList arranges for onAllComplete to run once every resource in
// deps has loaded. When they all have already, onAllComplete runs right now on
// the calling goroutine; otherwise it is queued as a pre-draw task when the
// last one signals.
func (t *Tracker) AddDependencyList(owner Handle, deps []Handle, onAllComplete func()) {
	info := &dependencyInfo{
		owner:         owner,
		dependencies:  make([]*Resource, len(deps)),
		onAllComplete: onAllComplete,
	}

	t.mu.Lock()
	for i, d := range deps {
		r := d.resource()
		info.dependencies[i] = r
		if r.completed.Load() {
			info.completed++
		}
	}
	if info.completed == len(info.dependencies) {
		t.mu.Unlock()
		onAllComplete()
		return
	}
	t.active = append(t.active, info)
	t.mu.Unlock()
}

// SignalResourceLoaded marks res as loaded and advances every dependency list
// waiting on it. Signalling the same resource twice is a programming error.
func (t *Tracker) SignalResourceLoaded(res Handle) {
	r := res.resource()
	var ready []*dependencyInfo

	t.mu.Lock()
	if !r.markCompleted() {
		t.mu.Unlock()
		core.Assert(false, "%s %q signalled as loaded twice", r.kind, r.name)
		return
	}
	t.active = slices.DeleteFunc(t.active, func(info *dependencyInfo) bool {
		for _, d := range info.dependencies {
			if d == r {
				info.completed++
			}
		}
		if info.completed == len(info.dependencies) {
			ready = append(ready, info)
			return true
		}
		return false
	})
	t.mu.Unlock()

	for _, info := range ready {
		t.log.Debug("dependencies complete", "owner", info.owner.Name())
		t.scheduler.AddPreDrawTask(info.onAllComplete)
	}
}

// Pending returns the number of dependency lists still waiting.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
