package testbed

import (
	"fmt"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/spaghettifunk/kiln/engine"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/resources"
)

const (
	materialName = "materials/crate"
	fontName     = "fonts/ui"
	scriptName   = "scripts/main"
)

type TestGame struct {
	*engine.Game
}

// frameData is written by the update goroutine and read by the scene.
type frameData struct {
	frame   uint64
	caption string
}

type gameState struct {
	log *log.Logger

	material *resources.Material
	font     *resources.BitmapFont
	script   *resources.Script
	target   *resources.Texture

	// vm runs on the update goroutine only
	vm        *lua.LState
	scriptRun bool

	frame *renderer.DoubleBuffer[frameData]
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{
				log:   core.Logger("testbed"),
				frame: renderer.NewDoubleBuffer[frameData](nil),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(ctx *engine.Context) error {
	state := g.state()
	state.log.Info("booting testbed...")

	state.material = ctx.Resources.AcquireMaterial(materialName)
	state.font = ctx.Resources.AcquireFont(fontName)
	state.script = ctx.Resources.AcquireScript(scriptName)
	state.target = ctx.Resources.CreateRenderTarget(ctx.Config.Window.Width, ctx.Config.Window.Height)

	state.vm = lua.NewState()
	state.vm.SetGlobal("API_VERSION", lua.LNumber(1))
	state.vm.SetGlobal("log", state.vm.NewFunction(func(L *lua.LState) int {
		state.log.Info(L.CheckString(1), "source", "lua")
		return 0
	}))
	state.vm.SetGlobal("quit", state.vm.NewFunction(func(L *lua.LState) int {
		ctx.Quit()
		return 0
	}))
	state.vm.SetGlobal("ready", state.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(state.ready()))
		return 1
	}))

	ctx.AddDoubleBuffer(state.frame)
	ctx.Render.SetScene(renderer.SceneFunc(func(deltaTime float64) {
		d := state.frame.Draw()
		if d.frame > 0 && d.frame%600 == 0 {
			state.log.Debug("drawing", "frame", d.frame, "caption", d.caption)
		}
	}))
	return nil
}

// ready reports whether every resource the testbed asked for settled.
func (s *gameState) ready() bool {
	for _, h := range []resources.Handle{s.material, s.font, s.script, s.target} {
		if h.State() == resources.StateNotStarted {
			return false
		}
	}
	return true
}

func (g *TestGame) Update(ctx *engine.Context, deltaTime float64) error {
	state := g.state()

	if !state.scriptRun && state.script.State() != resources.StateNotStarted {
		state.scriptRun = true
		if !state.script.IsLoaded() {
			state.log.Warn("script failed to load, running without it", "name", scriptName)
		} else if err := state.vm.DoString(state.script.Data().Source); err != nil {
			return fmt.Errorf("failed to run %s: %w", scriptName, err)
		}
	}
	if !state.scriptRun || !state.script.IsLoaded() {
		return nil
	}

	fn := state.vm.GetGlobal("update")
	if fn.Type() != lua.LTFunction {
		return nil
	}
	return state.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LNumber(deltaTime))
}

func (g *TestGame) Render(ctx *engine.Context, deltaTime float64) error {
	state := g.state()
	data := state.frame.Update()
	data.frame = ctx.Frames()
	data.caption = "loading..."
	if state.material.IsLoaded() && state.font.IsLoaded() {
		data.caption = fmt.Sprintf("%s / %s", state.material.Data().Name, state.font.Data().Face)
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	g.state().log.Debug("testbed resized", "width", width, "height", height)
	return nil
}

func (g *TestGame) Shutdown(ctx *engine.Context) error {
	state := g.state()
	ctx.Resources.ReleaseMaterial(state.material)
	ctx.Resources.ReleaseFont(state.font)
	ctx.Resources.ReleaseScript(state.script)
	ctx.Resources.ReleaseTexture(state.target)
	state.vm.Close()
	state.log.Info("testbed shut down", "frames", ctx.Frames())
	return nil
}
