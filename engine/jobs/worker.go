package jobs

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/kiln/engine/containers"
	"github.com/spaghettifunk/kiln/engine/core"
)

// Task is a unit of work run on a worker goroutine.
type Task func()

type job struct {
	task Task
	done Task
}

// Worker owns one goroutine draining a FIFO of tasks. The goroutine sleeps on a
// counting semaphore while the queue is empty.
type Worker struct {
	name string
	log  *log.Logger

	mu    sync.Mutex
	queue *containers.RingQueue[job]

	signals   *core.Semaphore
	load      atomic.Int32
	terminate atomic.Bool
	panics    atomic.Int64

	started bool
	exited  chan struct{}
}

// NewWorker creates a stopped worker. Call Start to launch its goroutine.
func NewWorker(name string) *Worker {
	return &Worker{
		name:    name,
		log:     core.Logger(name),
		queue:   containers.NewRingQueue[job](0),
		signals: core.NewSemaphore(0),
		exited:  make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return w.name
}

/**
 * @brief Launches the worker goroutine. Calling Start twice is a no-op.
 */
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.run()
}

// AddTask queues task; done (optional) runs on the same goroutine right after
// task returns, even if task panicked.
func (w *Worker) AddTask(task Task, done Task) {
	if w.terminate.Load() {
		w.log.Warn("task dropped, worker is stopping")
		return
	}
	w.load.Add(1)
	w.mu.Lock()
	w.queue.Enqueue(job{task: task, done: done})
	w.mu.Unlock()
	w.signals.Signal()
}

// Load is the number of queued tasks plus the one currently running.
func (w *Worker) Load() int {
	return int(w.load.Load())
}

// Panics is the number of recovered task panics.
func (w *Worker) Panics() int64 {
	return w.panics.Load()
}

/**
 * @brief Stops the worker and waits for its goroutine to exit. Tasks still
 * queued are dropped.
 */
func (w *Worker) StopAndWait() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	w.terminate.Store(true)
	w.signals.Signal()
	if started {
		<-w.exited
	}
}

func (w *Worker) run() {
	defer close(w.exited)
	w.signals.Wait()
	for !w.terminate.Load() {
		w.mu.Lock()
		j, err := w.queue.Dequeue()
		w.mu.Unlock()
		if err == nil {
			w.execute(j.task)
			if j.done != nil {
				w.execute(j.done)
			}
			w.load.Add(-1)
		}
		w.signals.Wait()
	}
}

func (w *Worker) execute(t Task) {
	if t == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.panics.Add(1)
			w.log.Error(fmt.Sprintf("task panicked: %v", r), "stack", string(debug.Stack()))
		}
	}()
	t()
}
