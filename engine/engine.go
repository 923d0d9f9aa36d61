package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/kiln/engine/config"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/platform"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine shut down, it cannot be restarted
	EngineStageShutdown
)

type Option func(e *Engine)

// WithBackend replaces the backend selected by the configuration.
func WithBackend(b renderer.Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// WithMaxFrames stops the update loop after n frames, 0 runs until quit.
func WithMaxFrames(n uint64) Option {
	return func(e *Engine) { e.maxFrames = n }
}

// WithModules adds modules next to the built-in ones.
func WithModules(m ...Module) Option {
	return func(e *Engine) { e.modules = append(e.modules, m...) }
}

type Engine struct {
	log          *log.Logger
	currentStage Stage
	cfg          *config.Config
	gameInstance *Game
	ctx          *Context
	backend      renderer.Backend
	render       *renderer.RenderThread
	group        *errgroup.Group
	modules      []Module
	initialized  []Module
	clock        *core.Clock
	metrics      *core.FrameMetrics
	maxFrames    uint64

	mu          sync.Mutex
	swappers    []Swapper
	width       uint32
	height      uint32
	isSuspended bool

	frames atomic.Uint64
	quit   atomic.Bool
}

func New(cfg *config.Config, g *Game, p platform.Platform, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if g == nil || g.FnUpdate == nil {
		return nil, fmt.Errorf("%w: game needs an update function", core.ErrInvalidArgument)
	}
	if err := core.ConfigureLogging(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, err
	}

	e := &Engine{
		log:          core.Logger("engine"),
		currentStage: EngineStageUninitialized,
		cfg:          cfg,
		gameInstance: g,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.backend == nil {
		t, err := renderer.ParseRendererType(cfg.Renderer.Backend)
		if err != nil {
			return nil, err
		}
		if e.backend, err = renderer.NewBackend(t); err != nil {
			return nil, err
		}
	}
	e.render = renderer.NewRenderThread(e.backend, renderer.Config{
		AppName: cfg.App.Name,
		Width:   cfg.Window.Width,
		Height:  cfg.Window.Height,
	})
	e.ctx = &Context{
		Config:   cfg,
		Platform: p,
		Render:   e.render,
		engine:   e,
	}

	e.modules = append(e.modules,
		fileSystemModule(),
		assetsModule(),
		resourcesModule(),
		platformModule(e),
		gameModule(g),
	)
	slices.SortStableFunc(e.modules, func(a, b Module) int { return a.Priority() - b.Priority() })
	return e, nil
}

func (e *Engine) Context() *Context {
	return e.ctx
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Initialize runs every module in priority order. On failure the modules
// already initialized are shut down again.
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return core.ErrAlreadyStarted
	}
	e.currentStage = EngineStageInitializing
	for _, m := range e.modules {
		e.log.Debug("initializing module", "name", m.Name(), "priority", m.Priority())
		if err := m.Initialize(e.ctx); err != nil {
			e.log.Error("module failed to initialize", "name", m.Name(), "err", err)
			e.shutdownModules()
			e.currentStage = EngineStageShutdown
			return fmt.Errorf("module %s: %w", m.Name(), err)
		}
		e.initialized = append(e.initialized, m)
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run starts the draw goroutine and runs the update loop on the caller until
// ctx is done, the platform asks to close, the game quits or the frame limit
// is reached. The draw goroutine stays parked until Shutdown so that module
// shutdown can still destroy platform data on it.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return core.ErrNotStarted
	}
	e.currentStage = EngineStageRunning

	group, gctx := errgroup.WithContext(ctx)
	group.Go(e.render.Run)
	e.group = group

	var err error
	if err = e.render.DoStartupTasks(); err == nil {
		e.log.Info("engine running", "app", e.cfg.App.Name)
		err = e.loop(gctx)
	}

	if errors.Is(err, core.ErrTerminated) {
		// the draw goroutine is gone, report why
		e.render.StopAndWait()
		return e.waitRender()
	}
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	e.clock.Start()
	e.clock.Update()
	lastTime := e.clock.Elapsed()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if e.quit.Load() || !e.ctx.Platform.PumpMessages() {
			return nil
		}

		if e.suspended() {
			e.ctx.Platform.Sleep(100)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - lastTime
		frameStartTime := e.ctx.Platform.AbsoluteTime()

		if err := e.gameInstance.FnUpdate(e.ctx, delta); err != nil {
			return fmt.Errorf("game update failed: %w", err)
		}
		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(e.ctx, delta); err != nil {
				return fmt.Errorf("game render failed: %w", err)
			}
		}

		// hand the frame to the draw goroutine and wait for it to pick it up
		e.render.SignalUpdateDone()
		e.render.WaitDrawStarted()
		// let the farm workers in, the two loop goroutines can hold every P
		runtime.Gosched()
		if e.render.Terminated() {
			return core.ErrTerminated
		}
		e.mu.Lock()
		for _, s := range e.swappers {
			s.Swap()
		}
		e.mu.Unlock()

		frameElapsedTime := e.ctx.Platform.AbsoluteTime() - frameStartTime
		if e.cfg.App.FrameCap > 0 {
			remainingSeconds := 1.0/float64(e.cfg.App.FrameCap) - frameElapsedTime
			if remainingSeconds > 0 {
				// If there is time left, give it back to the OS.
				e.ctx.Platform.Sleep(remainingSeconds * 1000)
			}
		}
		if e.metrics.Update(frameElapsedTime) && e.cfg.App.LogMetrics {
			e.log.Info("frame metrics", "fps", e.metrics.FPS(), "frame_ms", e.metrics.FrameTime())
		}

		lastTime = currentTime
		if n := e.frames.Add(1); e.maxFrames > 0 && n >= e.maxFrames {
			return nil
		}
	}
}

// Shutdown shuts the modules down in reverse order, then stops the draw
// goroutine once it has run the destroy tasks they queued.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	err := e.shutdownModules()
	e.render.StopAndWait()
	if rerr := e.waitRender(); rerr != nil {
		err = errors.Join(err, rerr)
	}
	e.currentStage = EngineStageShutdown
	return err
}

func (e *Engine) waitRender() error {
	if e.group == nil {
		return nil
	}
	group := e.group
	e.group = nil
	return group.Wait()
}

func (e *Engine) shutdownModules() error {
	var errs []error
	for i := len(e.initialized) - 1; i >= 0; i-- {
		m := e.initialized[i]
		if err := m.Shutdown(e.ctx); err != nil {
			e.log.Error("module failed to shut down", "name", m.Name(), "err", err)
			errs = append(errs, fmt.Errorf("module %s: %w", m.Name(), err))
		}
	}
	e.initialized = nil
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height
}

func (e *Engine) suspended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSuspended
}

func (e *Engine) onResized(width, height uint32) {
	e.mu.Lock()
	if width == e.width && height == e.height {
		e.mu.Unlock()
		return
	}
	e.width = width
	e.height = height
	e.log.Debug("window resize", "width", width, "height", height)

	// Handle minimization
	if width == 0 || height == 0 {
		e.log.Info("window minimized, suspending application")
		e.isSuspended = true
		e.mu.Unlock()
		return
	}
	if e.isSuspended {
		e.log.Info("window restored, resuming application")
		e.isSuspended = false
	}
	e.mu.Unlock()

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			e.log.Error("game resize failed", "err", err)
		}
	}
	e.render.RequestResize(width, height)
}
