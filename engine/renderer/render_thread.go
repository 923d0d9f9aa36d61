package renderer

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/jobs"
)

// Scene is executed by the draw goroutine between the begin-frame and the
// end-frame tasks.
type Scene interface {
	Execute(deltaTime float64)
}

type SceneFunc func(deltaTime float64)

func (f SceneFunc) Execute(deltaTime float64) { f(deltaTime) }

type Config struct {
	AppName string
	Width   uint32
	Height  uint32
}

/*
	Draw goroutine, one frame:

	WaitUpdateDone -> pre-draw tasks -> FrameWait -> SignalDrawStarted
	-> BeginFrame -> begin-frame tasks -> scene -> end-frame tasks -> EndFrame

	Update goroutine, one frame:

	update -> SignalUpdateDone -> WaitDrawStarted -> swap
*/
type RenderThread struct {
	cfg     Config
	backend Backend
	log     *log.Logger

	updateDone  *core.Semaphore
	drawStarted *core.Semaphore
	doStartup   *core.Semaphore
	startupDone *core.Semaphore

	preDrawTasks    *TaskList
	beginFrameTasks *TaskList
	endFrameTasks   *TaskList

	backendTasks *jobs.Worker

	mu           sync.Mutex
	startupHooks []func()
	latches      []Latcher
	scene        Scene

	terminate   atomic.Bool
	running     atomic.Bool
	frames      atomic.Uint64
	startupOnce sync.Once
	exited      chan struct{}
}

func NewRenderThread(backend Backend, cfg Config) *RenderThread {
	return &RenderThread{
		cfg:             cfg,
		backend:         backend,
		log:             core.Logger("render"),
		updateDone:      core.NewSemaphore(0),
		drawStarted:     core.NewSemaphore(0),
		doStartup:       core.NewSemaphore(0),
		startupDone:     core.NewSemaphore(0),
		preDrawTasks:    NewTaskList("pre-draw"),
		beginFrameTasks: NewTaskList("begin-frame"),
		endFrameTasks:   NewTaskList("end-frame"),
		backendTasks:    jobs.NewWorker("backend"),
		exited:          make(chan struct{}),
	}
}

func (r *RenderThread) Backend() Backend {
	return r.backend
}

// Frames returns the number of frames drawn so far.
func (r *RenderThread) Frames() uint64 {
	return r.frames.Load()
}

// AddStartupHook registers fn to run on the draw goroutine during the startup
// rendezvous, before the first pre-draw drain.
func (r *RenderThread) AddStartupHook(fn func()) {
	r.mu.Lock()
	r.startupHooks = append(r.startupHooks, fn)
	r.mu.Unlock()
}

// AddLatch registers a double buffer (or anything latching per frame) that
// is switched right after the update goroutine hands over a frame.
func (r *RenderThread) AddLatch(l Latcher) {
	r.mu.Lock()
	r.latches = append(r.latches, l)
	r.mu.Unlock()
}

func (r *RenderThread) SetScene(s Scene) {
	r.mu.Lock()
	r.scene = s
	r.mu.Unlock()
}

// tasks that run before the frame starts, after all previous frame work is complete
func (r *RenderThread) AddPreDrawTask(task func()) int { return r.preDrawTasks.Add(task) }
func (r *RenderThread) RemovePreDrawTask(handle int)   { r.preDrawTasks.Remove(handle) }

// tasks that run at the start of the frame, before the scene
func (r *RenderThread) AddBeginFrameTask(task func()) int { return r.beginFrameTasks.Add(task) }
func (r *RenderThread) RemoveBeginFrameTask(handle int)   { r.beginFrameTasks.Remove(handle) }

// tasks that run at the end of the frame, after the scene
func (r *RenderThread) AddEndFrameTask(task func()) int { return r.endFrameTasks.Add(task) }
func (r *RenderThread) RemoveEndFrameTask(handle int)   { r.endFrameTasks.Remove(handle) }

func (r *RenderThread) AddRepeatingBeginFrameTask(task func(), priority int) int {
	return r.beginFrameTasks.AddRepeating(task, priority)
}

func (r *RenderThread) AddRepeatingEndFrameTask(task func(), priority int) int {
	return r.endFrameTasks.AddRepeating(task, priority)
}

// AddBackendTask runs task on the backend worker, off the draw goroutine.
func (r *RenderThread) AddBackendTask(task func()) {
	r.backendTasks.AddTask(task, nil)
}

// RequestResize resizes the backend at the start of the next frame.
func (r *RenderThread) RequestResize(width, height uint32) {
	r.AddPreDrawTask(func() {
		if err := r.backend.Resized(width, height); err != nil {
			r.log.Error("backend resize failed", "width", width, "height", height, "err", err)
		}
	})
}

// synchronisation between the update and the draw goroutine
func (r *RenderThread) WaitUpdateDone()   { r.updateDone.Wait() }
func (r *RenderThread) SignalDrawStarted() { r.drawStarted.Signal() }
func (r *RenderThread) WaitDrawStarted()   { r.drawStarted.Wait() }
func (r *RenderThread) SignalUpdateDone()  { r.updateDone.Signal() }

// DoStartupTasks releases the draw goroutine into its startup work and waits
// until it is done. Call it once, after every module has started.
func (r *RenderThread) DoStartupTasks() error {
	r.doStartup.Signal()
	r.startupDone.Wait()
	if r.terminate.Load() {
		return core.ErrTerminated
	}
	return nil
}

// Terminate asks the draw goroutine to exit as soon as possible.
func (r *RenderThread) Terminate() {
	r.terminate.Store(true)
	r.updateDone.Signal()
	r.doStartup.Signal()
}

func (r *RenderThread) Terminated() bool {
	return r.terminate.Load()
}

// StopAndWait terminates the draw goroutine, waits for Run to return and
// stops the backend worker. Pre-draw tasks still queued run before the
// backend shuts down.
func (r *RenderThread) StopAndWait() {
	r.Terminate()
	if r.running.Load() {
		<-r.exited
	}
	r.backendTasks.StopAndWait()
}

// Run is the body of the draw goroutine. It locks itself to its OS thread and
// returns once Terminate is called.
func (r *RenderThread) Run() (err error) {
	if !r.running.CompareAndSwap(false, true) {
		return core.ErrAlreadyStarted
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.exited)
	defer r.finishStartup()
	// an update goroutine parked in WaitDrawStarted must not outlive us
	defer r.drawStarted.Signal()

	if err := r.backend.Initialize(r.cfg.AppName, r.cfg.Width, r.cfg.Height); err != nil {
		r.terminate.Store(true)
		return fmt.Errorf("failed to initialize renderer backend: %w", err)
	}
	defer func() {
		if serr := r.backend.Shutdown(); serr != nil && err == nil {
			err = serr
		}
	}()
	r.backendTasks.Start()

	// module startup tasks
	r.doStartup.Wait()
	if r.terminate.Load() {
		return nil
	}
	r.mu.Lock()
	hooks := append([]func(){}, r.startupHooks...)
	r.mu.Unlock()
	for _, hook := range hooks {
		hook()
	}
	r.preDrawTasks.Drain()
	r.finishStartup()

	clock := core.NewClock()
	clock.Start()
	last := 0.0

	for !r.terminate.Load() {
		r.WaitUpdateDone()
		if r.terminate.Load() {
			break
		}
		r.latch()

		// clear out any queued pre draw tasks before we wait
		r.preDrawTasks.Drain()

		if err := r.backend.FrameWait(); err != nil {
			r.log.Error("frame wait failed", "err", err)
		}

		// signalling draw started allows the next update frame to begin
		r.SignalDrawStarted()

		clock.Update()
		now := clock.Elapsed()
		delta := now - last
		last = now

		if err := r.backend.BeginFrame(delta); err != nil {
			r.log.Error("begin frame failed", "err", err)
			continue
		}
		r.beginFrameTasks.Drain()
		if s := r.currentScene(); s != nil {
			s.Execute(delta)
		}
		r.endFrameTasks.Drain()
		if err := r.backend.EndFrame(delta); err != nil {
			r.log.Error("end frame failed", "err", err)
		}
		r.frames.Add(1)
	}

	// destroy tasks queued during shutdown, a drain may queue more
	for r.preDrawTasks.Len() > 0 {
		r.preDrawTasks.Drain()
	}
	r.log.Info("render thread terminate..", "frames", r.frames.Load())
	return nil
}

func (r *RenderThread) finishStartup() {
	r.startupOnce.Do(r.startupDone.Signal)
}

func (r *RenderThread) latch() {
	r.mu.Lock()
	latches := r.latches
	r.mu.Unlock()
	for _, l := range latches {
		l.Latch()
	}
}

func (r *RenderThread) currentScene() Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene
}
