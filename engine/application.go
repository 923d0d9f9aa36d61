package engine

import (
	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/config"
	"github.com/spaghettifunk/kiln/engine/filesystem"
	"github.com/spaghettifunk/kiln/engine/platform"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/resources"
)

// Context is the application context shared by the engine modules and the
// game. Fields are filled in by the modules in priority order, so a module
// may only rely on the ones set by modules initialized before it.
type Context struct {
	Config    *config.Config
	Platform  platform.Platform
	Render    *renderer.RenderThread
	Files     *filesystem.Manager
	Assets    *assets.Manager
	Resources *resources.System

	engine *Engine
}

// Quit ends the update loop after the current frame.
func (c *Context) Quit() {
	c.engine.quit.Store(true)
}

// Frames returns the number of frames the update loop completed.
func (c *Context) Frames() uint64 {
	return c.engine.frames.Load()
}

// Swapper is a per-frame buffer latched by the draw goroutine and swapped by
// the update goroutine, see renderer.DoubleBuffer.
type Swapper interface {
	renderer.Latcher
	Swap()
}

// AddDoubleBuffer hooks b into the frame handshake.
func (c *Context) AddDoubleBuffer(b Swapper) {
	c.Render.AddLatch(b)
	c.engine.mu.Lock()
	c.engine.swappers = append(c.engine.swappers, b)
	c.engine.mu.Unlock()
}

// Module is one engine subsystem. Modules are initialized by ascending
// priority and shut down in reverse.
type Module interface {
	Name() string
	Priority() int
	Initialize(ctx *Context) error
	Shutdown(ctx *Context) error
}

type moduleFunc struct {
	name     string
	priority int
	init     func(ctx *Context) error
	shutdown func(ctx *Context) error
}

// NewModule builds a Module out of two functions, either may be nil.
func NewModule(name string, priority int, init, shutdown func(ctx *Context) error) Module {
	return &moduleFunc{name: name, priority: priority, init: init, shutdown: shutdown}
}

func (m *moduleFunc) Name() string  { return m.name }
func (m *moduleFunc) Priority() int { return m.priority }

func (m *moduleFunc) Initialize(ctx *Context) error {
	if m.init == nil {
		return nil
	}
	return m.init(ctx)
}

func (m *moduleFunc) Shutdown(ctx *Context) error {
	if m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}
