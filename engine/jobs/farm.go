package jobs

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/kiln/engine/core"
)

var ErrNoWorkers = fmt.Errorf("attempting to create worker farm with less than 1 worker")

// Farm is a pool of workers fed from one pending queue. Work submitted before
// StartWork is held; barriers split the pending queue so that everything
// submitted before a barrier completes before anything after it starts.
type Farm struct {
	name string
	log  *log.Logger

	mu      sync.Mutex
	changed *sync.Cond

	workers  []*Worker
	pending  []job
	barriers []int

	started       bool
	barrierActive bool
	terminated    bool
	// dispatched tasks (barrier task included) that have not completed yet
	active int

	stats Stats
}

// Stats is a snapshot of farm counters.
type Stats struct {
	Submitted int64
	Completed int64
	Dropped   int64
	Barriers  int64
	Pending   int
	Active    int
}

/**
 * @brief Creates a farm with numWorkers running worker goroutines. No task is
 * dispatched until StartWork is called.
 */
func NewFarm(name string, numWorkers int) (*Farm, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	f := &Farm{
		name: name,
		log:  core.Logger(name),
	}
	f.changed = sync.NewCond(&f.mu)
	f.Grow(numWorkers)
	return f, nil
}

// Grow adds n workers to the farm.
func (f *Farm) Grow(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminated {
		return
	}
	for i := 0; i < n; i++ {
		w := NewWorker(fmt.Sprintf("%s-%d", f.name, len(f.workers)))
		w.Start()
		f.workers = append(f.workers, w)
	}
}

// Workers returns the number of workers.
func (f *Farm) Workers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.workers)
}

func (f *Farm) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stats
	s.Pending = len(f.pending)
	s.Active = f.active
	return s
}

// Submit queues task. It never blocks: the task is dispatched right away when
// work has started and no barrier is active, otherwise it waits in the
// pending queue.
func (f *Farm) Submit(task Task) {
	f.SubmitWithCompletion(task, nil)
}

// SubmitWithCompletion is Submit with a callback run on the same worker right
// after task, whether task succeeded or panicked.
func (f *Farm) SubmitWithCompletion(task Task, done Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminated {
		f.stats.Dropped++
		f.log.Warn("task submitted after the farm was killed, dropping it")
		return
	}
	f.stats.Submitted++
	j := job{task: task, done: done}
	if !f.started || f.barrierActive {
		f.pending = append(f.pending, j)
		return
	}
	f.dispatchLocked(j)
}

// AddBarrier makes every task submitted after it wait until every task
// submitted before it has completed.
func (f *Farm) AddBarrier() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminated {
		return
	}
	f.stats.Barriers++
	if !f.started || f.barrierActive {
		f.barriers = append(f.barriers, len(f.pending))
		return
	}
	if f.active == 0 {
		// nothing outstanding, the barrier is already satisfied
		return
	}
	f.launchBarrierLocked()
}

/**
 * @brief Dispatches pending work up to the first barrier point, or all of it
 * when no barrier is recorded. Safe to call more than once: while a barrier
 * is active the held work stays queued until the barrier releases it.
 */
func (f *Farm) StartWork() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminated {
		return
	}
	if f.barrierActive {
		f.started = true
		return
	}
	f.startWorkLocked()
}

func (f *Farm) startWorkLocked() {
	f.started = true
	for len(f.barriers) > 0 {
		point := f.barriers[0]
		f.barriers = f.barriers[1:]
		for _, j := range f.pending[:point] {
			f.dispatchLocked(j)
		}
		f.pending = f.pending[point:]
		for i := range f.barriers {
			f.barriers[i] -= point
		}
		if f.active > 0 {
			f.launchBarrierLocked()
			return
		}
	}
	for _, j := range f.pending {
		f.dispatchLocked(j)
	}
	f.pending = nil
	f.changed.Broadcast()
}

func (f *Farm) dispatchLocked(j job) {
	f.active++
	user := j.done
	f.bestWorkerLocked().AddTask(j.task, func() {
		if user != nil {
			defer f.taskDone()
			user()
			return
		}
		f.taskDone()
	})
}

func (f *Farm) taskDone() {
	f.mu.Lock()
	f.active--
	f.stats.Completed++
	f.changed.Broadcast()
	f.mu.Unlock()
}

func (f *Farm) launchBarrierLocked() {
	f.barrierActive = true
	f.active++
	f.bestWorkerLocked().AddTask(func() {}, f.releaseBarrier)
}

// releaseBarrier runs on a worker as the completion of the barrier task.
func (f *Farm) releaseBarrier() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	f.log.Debug("waiting on barrier", "active", f.active)
	for f.active > 0 && !f.terminated {
		f.changed.Wait()
	}
	f.barrierActive = false
	f.changed.Broadcast()
	if f.terminated {
		return
	}
	f.log.Debug("continuing after barrier", "pending", len(f.pending))
	f.startWorkLocked()
}

// bestWorkerLocked returns the first idle worker, otherwise the least loaded one.
func (f *Farm) bestWorkerLocked() *Worker {
	var best *Worker
	for _, w := range f.workers {
		load := w.Load()
		if load == 0 {
			return w
		}
		if best == nil || load < best.Load() {
			best = w
		}
	}
	return best
}

// WaitIdle blocks until nothing is pending, running or held by a barrier.
func (f *Farm) WaitIdle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started && len(f.pending) > 0 {
		return core.ErrNotStarted
	}
	for !f.terminated && (f.active > 0 || len(f.pending) > 0 || f.barrierActive) {
		f.changed.Wait()
	}
	if f.terminated {
		return core.ErrTerminated
	}
	return nil
}

/**
 * @brief Stops every worker and waits for them to exit. Queued work is
 * dropped and later submissions are ignored.
 */
func (f *Farm) KillWorkers() {
	f.mu.Lock()
	if f.terminated {
		f.mu.Unlock()
		return
	}
	f.terminated = true
	f.stats.Dropped += int64(len(f.pending))
	f.pending = nil
	f.barriers = nil
	workers := f.workers
	f.changed.Broadcast()
	f.mu.Unlock()

	for _, w := range workers {
		w.StopAndWait()
	}
	f.log.Info("worker farm stopped", "workers", len(workers))
}
