package testbed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/kiln/engine"
	"github.com/spaghettifunk/kiln/engine/config"
	"github.com/spaghettifunk/kiln/engine/platform"
	"github.com/spaghettifunk/kiln/engine/resources"
)

func TestTestGame_RunsUntilScriptQuits(t *testing.T) {
	// Given: the testbed assets and an empty cache
	cfg := config.Default()
	cfg.App.FrameCap = 0
	cfg.App.LogMetrics = false
	cfg.Window.Headless = true
	cfg.Logging.Level = "warn"
	cfg.Assets.Mounts = []config.MountConfig{
		{Tag: "src", Path: "assets", ReadOnly: true},
		{Tag: "data", Path: filepath.Join(t.TempDir(), "cache")},
	}
	game := NewTestGame()

	e, err := engine.New(cfg, game.Game, platform.NewHeadless(), engine.WithMaxFrames(1_000_000))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer e.Shutdown()

	// When: the engine runs
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Then: the lua script saw every resource settle and quit
	state := game.state()
	if !state.ready() {
		t.Fatal("engine stopped before the resources settled")
	}
	checks := []struct {
		name string
		got  resources.State
	}{
		{"material", state.material.State()},
		{"font", state.font.State()},
		{"script", state.script.State()},
		{"render target", state.target.State()},
	}
	for _, c := range checks {
		if c.got != resources.StateLoaded {
			t.Errorf("%s state = %v, want loaded", c.name, c.got)
		}
	}
	if got := state.font.Measure("Ki"); got != 13 {
		t.Errorf("Measure(Ki) = %d, want 13", got)
	}
	if len(state.material.Textures()) != 2 {
		t.Errorf("material textures = %d, want 2", len(state.material.Textures()))
	}
}
