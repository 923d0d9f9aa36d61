package engine

type Game struct {
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func(ctx *Context) error
type Update func(ctx *Context, deltaTime float64) error

// Render fills the update side of the game's double buffers for the frame
// about to be handed to the draw goroutine.
type Render func(ctx *Context, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func(ctx *Context) error
