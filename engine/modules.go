package engine

import (
	"fmt"

	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/spaghettifunk/kiln/engine/filesystem"
	"github.com/spaghettifunk/kiln/engine/resources"
)

/** @brief Initialization priorities of the built-in modules. */
const (
	PriorityFileSystem = 0
	PriorityAssets     = 10
	PriorityResources  = 20
	PriorityPlatform   = 30
	PriorityGame       = 100
)

func fileSystemModule() Module {
	return NewModule("filesystem", PriorityFileSystem,
		func(ctx *Context) error {
			files := filesystem.NewManager()
			for _, m := range ctx.Config.Assets.Mounts {
				fs, err := filesystem.NewFolderFS(m.Path, m.ReadOnly)
				if err != nil {
					return fmt.Errorf("failed to mount %s: %w", m.Path, err)
				}
				if err := files.Mount(m.Tag, fs, m.Priority); err != nil {
					return err
				}
			}
			ctx.Files = files
			return nil
		},
		func(ctx *Context) error {
			if ctx.Files == nil {
				return nil
			}
			return ctx.Files.Close()
		})
}

func assetsModule() Module {
	return NewModule("assets", PriorityAssets,
		func(ctx *Context) error {
			registry := assets.NewRegistry()
			if err := loaders.RegisterAll(registry); err != nil {
				return err
			}
			am, err := assets.NewManager(registry, ctx.Files, assets.Config{
				Workers:   ctx.Config.Jobs.Workers,
				CacheTag:  ctx.Config.Assets.CacheTag,
				SourceTag: ctx.Config.Assets.SourceTag,
			})
			if err != nil {
				return err
			}
			ctx.Assets = am
			// deliveries requested before the first frame are held until the
			// draw goroutine is up
			ctx.Render.AddStartupHook(am.StartWork)
			return nil
		},
		func(ctx *Context) error {
			if ctx.Assets != nil {
				ctx.Assets.KillWorkerFarm()
			}
			return nil
		})
}

func resourcesModule() Module {
	return NewModule("resources", PriorityResources,
		func(ctx *Context) error {
			sys := resources.NewSystem(ctx.Assets, ctx.Render, ctx.Config.Assets.SourceTag)
			ctx.Resources = sys
			if ctx.Config.Assets.Watch {
				ctx.Files.OnChange(sys.OnFileChanged)
				if err := ctx.Files.Watch(); err != nil {
					return err
				}
			}
			return nil
		}, nil)
}

func platformModule(e *Engine) Module {
	return NewModule("platform", PriorityPlatform,
		func(ctx *Context) error {
			w := ctx.Config.Window
			if err := ctx.Platform.Startup(ctx.Config.App.Name, w.PosX, w.PosY, w.Width, w.Height); err != nil {
				return err
			}
			ctx.Platform.SetResizeCallback(e.onResized)
			return nil
		},
		func(ctx *Context) error {
			return ctx.Platform.Shutdown()
		})
}

func gameModule(g *Game) Module {
	return NewModule("game", PriorityGame,
		func(ctx *Context) error {
			if g.FnInitialize == nil {
				return nil
			}
			return g.FnInitialize(ctx)
		},
		func(ctx *Context) error {
			if g.FnShutdown == nil {
				return nil
			}
			return g.FnShutdown(ctx)
		})
}
