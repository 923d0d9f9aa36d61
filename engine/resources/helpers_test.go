package resources

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/spaghettifunk/kiln/engine/filesystem"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

// fakeRenderer stands in for the draw goroutine: tests drain its pre-draw
// list by hand.
type fakeRenderer struct {
	tasks   *renderer.TaskList
	backend *renderer.NullBackend
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		tasks:   renderer.NewTaskList("pre-draw"),
		backend: renderer.NewNullBackend(),
	}
}

func (r *fakeRenderer) AddPreDrawTask(task func()) int { return r.tasks.Add(task) }
func (r *fakeRenderer) Backend() renderer.Backend     { return r.backend }

// pump drains pre-draw tasks until cond holds.
func (r *fakeRenderer) pump(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.tasks.Drain()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

type systemFixture struct {
	src    *filesystem.MemFS
	render *fakeRenderer
	assets *assets.Manager
	sys    *System
}

func newSystemFixture(t *testing.T) *systemFixture {
	t.Helper()
	src := filesystem.NewMemFS("src")
	cache := filesystem.NewMemFS("data")
	clock := uint64(1000)
	cache.SetClock(func() uint64 {
		clock++
		return clock
	})
	files := filesystem.NewManager()
	if err := files.Mount("src", src, 0); err != nil {
		t.Fatal(err)
	}
	if err := files.Mount("data", cache, 0); err != nil {
		t.Fatal(err)
	}

	reg := assets.NewRegistry()
	if err := loaders.RegisterAll(reg); err != nil {
		t.Fatal(err)
	}
	am, err := assets.NewManager(reg, files, assets.Config{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(am.KillWorkerFarm)
	am.StartWork()

	render := newFakeRenderer()
	return &systemFixture{
		src:    src,
		render: render,
		assets: am,
		sys:    NewSystem(am, render, ""),
	}
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func settled(h Handle) func() bool {
	return func() bool { return h.State() != StateNotStarted }
}
