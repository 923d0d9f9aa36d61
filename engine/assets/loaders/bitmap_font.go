package loaders

import (
	"fmt"

	"github.com/fzipp/bmfont"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/kiln/engine/assets"
)

const (
	BitmapFontTypeName        = "BitmapFont"
	BitmapFontTypeID   uint16 = 3
	bitmapFontVersion  uint16 = 1
)

type FontPage struct {
	ID   int32
	File string
}

type FontGlyph struct {
	Codepoint int32
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 int32
	Codepoint1 int32
	Amount     int16
}

// BitmapFontData is an AngelCode bitmap font descriptor. Glyphs are sorted by
// codepoint and kernings by pair so the cached binary is stable.
type BitmapFontData struct {
	Face       string
	Size       int32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Pages      []FontPage
	Glyphs     []FontGlyph
	Kernings   []FontKerning
}

func BitmapFontType() *assets.TypeInfo {
	return &assets.TypeInfo{
		Name: BitmapFontTypeName,
		ID:   BitmapFontTypeID,
		Ext:  ".bfnt",
		New:  func() assets.AssetData { return &BitmapFontData{} },
		Sources: []assets.SourceGroup{
			{Extensions: []string{".fnt"}, Required: true},
		},
	}
}

// Glyph returns the glyph of codepoint.
func (f *BitmapFontData) Glyph(codepoint rune) (FontGlyph, bool) {
	if i, ok := slices.BinarySearchFunc(f.Glyphs, int32(codepoint), func(g FontGlyph, c int32) int {
		return cmpInt32(g.Codepoint, c)
	}); ok {
		return f.Glyphs[i], true
	}
	return FontGlyph{}, false
}

func (f *BitmapFontData) Version() uint16 {
	return bitmapFontVersion
}

func (f *BitmapFontData) MarshalBinary() ([]byte, error) {
	enc := assets.NewEncoder()
	enc.Str(f.Face)
	enc.I32(f.Size)
	enc.I32(f.LineHeight)
	enc.I32(f.Baseline)
	enc.I32(f.AtlasSizeX)
	enc.I32(f.AtlasSizeY)

	enc.U32(uint32(len(f.Pages)))
	for _, p := range f.Pages {
		enc.I32(p.ID)
		enc.Str(p.File)
	}

	enc.U32(uint32(len(f.Glyphs)))
	for _, g := range f.Glyphs {
		enc.I32(g.Codepoint)
		enc.U16(g.X)
		enc.U16(g.Y)
		enc.U16(g.Width)
		enc.U16(g.Height)
		enc.U16(uint16(g.XOffset))
		enc.U16(uint16(g.YOffset))
		enc.U16(uint16(g.XAdvance))
		enc.U8(g.PageID)
	}

	enc.U32(uint32(len(f.Kernings)))
	for _, k := range f.Kernings {
		enc.I32(k.Codepoint0)
		enc.I32(k.Codepoint1)
		enc.U16(uint16(k.Amount))
	}
	return enc.Bytes(), nil
}

func (f *BitmapFontData) UnmarshalBinary(data []byte) error {
	dec := assets.NewDecoder(data)
	f.Face = dec.Str()
	f.Size = dec.I32()
	f.LineHeight = dec.I32()
	f.Baseline = dec.I32()
	f.AtlasSizeX = dec.I32()
	f.AtlasSizeY = dec.I32()

	n := int(dec.U32())
	f.Pages = nil
	for i := 0; i < n && dec.Err() == nil; i++ {
		f.Pages = append(f.Pages, FontPage{ID: dec.I32(), File: dec.Str()})
	}

	n = int(dec.U32())
	f.Glyphs = nil
	for i := 0; i < n && dec.Err() == nil; i++ {
		var g FontGlyph
		g.Codepoint = dec.I32()
		g.X = dec.U16()
		g.Y = dec.U16()
		g.Width = dec.U16()
		g.Height = dec.U16()
		g.XOffset = int16(dec.U16())
		g.YOffset = int16(dec.U16())
		g.XAdvance = int16(dec.U16())
		g.PageID = dec.U8()
		f.Glyphs = append(f.Glyphs, g)
	}

	n = int(dec.U32())
	f.Kernings = nil
	for i := 0; i < n && dec.Err() == nil; i++ {
		var k FontKerning
		k.Codepoint0 = dec.I32()
		k.Codepoint1 = dec.I32()
		k.Amount = int16(dec.U16())
		f.Kernings = append(f.Kernings, k)
	}
	return dec.Finish()
}

// BuildFromSource parses a text or binary .fnt descriptor. The descriptor is
// loaded from disk together with its page sheets, so the source must come
// from a folder mount.
func (f *BitmapFontData) BuildFromSource(src []assets.SourceFile, params assets.CreateParams) error {
	if len(src) == 0 || src[0].Missing() {
		return fmt.Errorf("bitmap font descriptor missing")
	}
	if src[0].Path == "" {
		return fmt.Errorf("bitmap font %s is not on disk", src[0].Name)
	}
	font, err := bmfont.Load(src[0].Path)
	if err != nil {
		return err
	}

	f.Face = font.Descriptor.Info.Face
	f.Size = int32(font.Descriptor.Info.Size)
	f.LineHeight = int32(font.Descriptor.Common.LineHeight)
	f.Baseline = int32(font.Descriptor.Common.Base)
	f.AtlasSizeX = int32(font.Descriptor.Common.ScaleW)
	f.AtlasSizeY = int32(font.Descriptor.Common.ScaleH)

	f.Pages = make([]FontPage, 0, len(font.Descriptor.Pages))
	for _, p := range font.Descriptor.Pages {
		f.Pages = append(f.Pages, FontPage{ID: int32(p.ID), File: p.File})
	}
	slices.SortFunc(f.Pages, func(a, b FontPage) int { return cmpInt32(a.ID, b.ID) })

	f.Glyphs = make([]FontGlyph, 0, len(font.Descriptor.Chars))
	for _, g := range font.Descriptor.Chars {
		f.Glyphs = append(f.Glyphs, FontGlyph{
			Codepoint: int32(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}
	slices.SortFunc(f.Glyphs, func(a, b FontGlyph) int { return cmpInt32(a.Codepoint, b.Codepoint) })

	f.Kernings = make([]FontKerning, 0, len(font.Descriptor.Kerning))
	for p, k := range font.Descriptor.Kerning {
		f.Kernings = append(f.Kernings, FontKerning{
			Codepoint0: int32(p.First),
			Codepoint1: int32(p.Second),
			Amount:     int16(k.Amount),
		})
	}
	slices.SortFunc(f.Kernings, func(a, b FontKerning) int {
		if c := cmpInt32(a.Codepoint0, b.Codepoint0); c != 0 {
			return c
		}
		return cmpInt32(a.Codepoint1, b.Codepoint1)
	})
	return nil
}

func cmpInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
