package resources

import (
	"path"
	"strings"
	"sync"

	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
)

// BitmapFont holds the glyph table of a font and one texture per atlas page.
type BitmapFont struct {
	Resource

	mu    sync.RWMutex
	data  *loaders.BitmapFontData
	pages []*Texture
}

func (f *BitmapFont) Data() *loaders.BitmapFontData {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.data
}

// Pages returns the atlas textures ordered by page id.
func (f *BitmapFont) Pages() []*Texture {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*Texture(nil), f.pages...)
}

// Measure returns the width in pixels of text set in this font.
func (f *BitmapFont) Measure(text string) int {
	data := f.Data()
	if data == nil {
		return 0
	}
	width := 0
	var prev rune = -1
	for _, c := range text {
		g, ok := data.Glyph(c)
		if !ok {
			prev = -1
			continue
		}
		width += int(g.XAdvance)
		if prev >= 0 {
			width += int(kerning(data, prev, c))
		}
		prev = c
	}
	return width
}

func kerning(data *loaders.BitmapFontData, first, second rune) int16 {
	for _, k := range data.Kernings {
		if k.Codepoint0 == int32(first) && k.Codepoint1 == int32(second) {
			return k.Amount
		}
	}
	return 0
}

func (s *System) AcquireFont(name string) *BitmapFont {
	return s.Fonts.Acquire(name)
}

func (s *System) ReleaseFont(f *BitmapFont) {
	s.Fonts.Release(f)
}

// pageTextureName resolves an atlas page file next to the font itself.
func pageTextureName(font, file string) string {
	return path.Join(path.Dir(font), strings.TrimSuffix(file, path.Ext(file)))
}

func (s *System) loadFont(f *BitmapFont) {
	s.assets.DeliverAsync(loaders.BitmapFontTypeName, f.Name(), nil, func(data assets.AssetData) {
		if !s.Fonts.Live(f) {
			s.log.Debug("discarding payload of released font", "name", f.Name())
			return
		}
		font, ok := data.(*loaders.BitmapFontData)
		if !ok || font == nil {
			s.fail(f, "no font data delivered")
			return
		}

		pages := make([]*Texture, len(font.Pages))
		deps := make([]Handle, len(font.Pages))
		for i, p := range font.Pages {
			pages[i] = s.Textures.Acquire(pageTextureName(f.Name(), p.File))
			deps[i] = pages[i]
		}
		s.tracker.AddDependencyList(f, deps, func() {
			s.render.AddPreDrawTask(func() { s.finalizeFont(f, font, pages) })
		})
	})
}

func (s *System) finalizeFont(f *BitmapFont, font *loaders.BitmapFontData, pages []*Texture) {
	if f.Released() {
		s.releaseTextures(pages)
		return
	}
	f.mu.Lock()
	old := f.pages
	f.data = font
	f.pages = pages
	f.mu.Unlock()

	s.releaseTextures(old)
	s.finished(f)
}

func (s *System) destroyFont(f *BitmapFont) {
	s.render.AddPreDrawTask(func() {
		f.mu.Lock()
		pages := f.pages
		f.pages = nil
		f.mu.Unlock()
		s.releaseTextures(pages)
	})
}
