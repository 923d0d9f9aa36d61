package resources

import (
	"path"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

// Renderer is the part of the frame scheduler resources finalize through.
type Renderer interface {
	Scheduler
	Backend() renderer.Backend
}

// System wires the resource factories to the asset manager, the dependency
// tracker and the draw goroutine.
type System struct {
	log       *log.Logger
	assets    *assets.Manager
	render    Renderer
	tracker   *Tracker
	sourceTag string

	Textures  *Factory[*Texture]
	Materials *Factory[*Material]
	Fonts     *Factory[*BitmapFont]
	Scripts   *Factory[*Script]
}

func NewSystem(am *assets.Manager, render Renderer, sourceTag string) *System {
	if sourceTag == "" {
		sourceTag = assets.DefaultSourceTag
	}
	s := &System{
		log:       core.Logger("resources"),
		assets:    am,
		render:    render,
		tracker:   NewTracker(render),
		sourceTag: sourceTag,
	}
	s.Textures = NewFactory("Texture", func() *Texture { return &Texture{} }, s.loadTexture, s.destroyTexture)
	s.Materials = NewFactory("Material", func() *Material { return &Material{} }, s.loadMaterial, s.destroyMaterial)
	s.Fonts = NewFactory("BitmapFont", func() *BitmapFont { return &BitmapFont{} }, s.loadFont, s.destroyFont)
	s.Scripts = NewFactory("Script", func() *Script { return &Script{} }, s.loadScript, nil)
	return s
}

func (s *System) Tracker() *Tracker {
	return s.tracker
}

// fail records a failed delivery. A failed reload keeps the previous payload.
func (s *System) fail(res Handle, reason string) {
	r := res.resource()
	if r.completed.Load() {
		s.log.Warn("reload failed, keeping the previous version", "kind", r.kind, "name", r.name, "reason", reason)
		return
	}
	s.log.Error("resource failed to load", "kind", r.kind, "name", r.name, "reason", reason)
	r.failed.Store(true)
	s.tracker.SignalResourceLoaded(res)
}

// finished signals the first successful finalize of res.
func (s *System) finished(res Handle) {
	r := res.resource()
	if r.completed.Load() {
		r.failed.Store(false)
		s.log.Info("resource reloaded", "kind", r.kind, "name", r.name)
		return
	}
	s.tracker.SignalResourceLoaded(res)
}

// OnFileChanged reloads every live resource built from the changed source
// file. name has the form "tag:path".
func (s *System) OnFileChanged(name string) {
	tag, p, ok := strings.Cut(name, ":")
	if !ok || tag != s.sourceTag {
		return
	}
	base := strings.TrimSuffix(p, path.Ext(p))
	reloaded := false
	for _, reload := range []func(string) bool{
		s.Textures.Reload,
		s.Materials.Reload,
		s.Fonts.Reload,
		s.Scripts.Reload,
	} {
		if reload(base) {
			reloaded = true
		}
	}
	if reloaded {
		s.log.Debug("source changed", "file", name)
	}
}
