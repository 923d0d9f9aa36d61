package renderer

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/kiln/engine/core"
)

type taskEntry struct {
	handle   int
	priority int
	repeat   bool
	task     func()
}

// TaskList is an ordered list of callbacks drained once per frame. One-shot
// tasks are removed by the drain that runs them; repeating tasks stay until
// removed. Entries run by priority, then insertion order.
type TaskList struct {
	name    string
	mu      sync.Mutex
	entries []taskEntry
}

func NewTaskList(name string) *TaskList {
	return &TaskList{name: name}
}

// Add queues a one-shot task and returns its handle.
func (l *TaskList) Add(task func()) int {
	return l.add(task, 0, false)
}

// AddRepeating adds a task that runs on every drain until removed.
func (l *TaskList) AddRepeating(task func(), priority int) int {
	return l.add(task, priority, true)
}

func (l *TaskList) add(task func(), priority int, repeat bool) int {
	h := core.NextHandle()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, taskEntry{handle: h, priority: priority, repeat: repeat, task: task})
	slices.SortStableFunc(l.entries, func(a, b taskEntry) int { return a.priority - b.priority })
	return h
}

// Remove drops the task with handle. Unknown handles are ignored.
func (l *TaskList) Remove(handle int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.handle == handle {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *TaskList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Drain runs the tasks present when it is called. Tasks added while it runs
// wait for the next drain.
func (l *TaskList) Drain() {
	l.mu.Lock()
	run := make([]taskEntry, len(l.entries))
	copy(run, l.entries)
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.repeat {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(l.entries); i++ {
		l.entries[i] = taskEntry{}
	}
	l.entries = kept
	l.mu.Unlock()

	for _, e := range run {
		l.execute(e)
	}
}

func (l *TaskList) execute(e taskEntry) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError(fmt.Sprintf("%s task %d panicked: %v", l.name, e.handle, r))
		}
	}()
	e.task()
}
