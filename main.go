/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/kiln/engine"
	"github.com/spaghettifunk/kiln/engine/config"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/platform"
	"github.com/spaghettifunk/kiln/engine/platform/window"
	"github.com/spaghettifunk/kiln/testbed"
)

func main() {
	configPath := flag.String("config", "kiln.toml", "path to the engine configuration")
	headless := flag.Bool("headless", false, "run without a window")
	frames := flag.Uint64("frames", 0, "stop after this many frames, 0 runs until quit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}
	if *headless {
		cfg.Window.Headless = true
	}

	var p platform.Platform = window.New()
	if cfg.Window.Headless {
		p = platform.NewHeadless()
	}

	tb := testbed.NewTestGame()
	e, err := engine.New(cfg, tb.Game, p, engine.WithMaxFrames(*frames))
	if err != nil {
		core.LogFatal("failed to create engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal("failed to initialize engine: %s", err)
	}

	// capture sigterm and other system calls to stop the update loop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("engine shutdown failed: %s", err)
	}
	if runErr != nil {
		core.LogError("engine stopped: %s", runErr)
		os.Exit(1)
	}
}
