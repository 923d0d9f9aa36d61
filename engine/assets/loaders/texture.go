package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/kiln/engine/assets"
)

const (
	TextureTypeName        = "Texture"
	TextureTypeID   uint16 = 1
	textureVersion  uint16 = 2
)

// TextureParams tune how a source image is converted.
type TextureParams struct {
	FlipY bool
}

// TextureData holds tightly packed 8-bit RGBA pixels.
type TextureData struct {
	Width  uint32
	Height uint32
	// HasTransparency is set when at least one pixel is not fully opaque.
	HasTransparency bool
	Pixels          []byte
}

func TextureType() *assets.TypeInfo {
	return &assets.TypeInfo{
		Name: TextureTypeName,
		ID:   TextureTypeID,
		Ext:  ".tex",
		New:  func() assets.AssetData { return &TextureData{} },
		Sources: []assets.SourceGroup{
			{Extensions: []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}, Required: true},
		},
	}
}

func (t *TextureData) Version() uint16 {
	return textureVersion
}

func (t *TextureData) MarshalBinary() ([]byte, error) {
	enc := assets.NewEncoder()
	enc.U32(t.Width)
	enc.U32(t.Height)
	enc.Bool(t.HasTransparency)
	enc.Blob(t.Pixels)
	return enc.Bytes(), nil
}

func (t *TextureData) UnmarshalBinary(data []byte) error {
	dec := assets.NewDecoder(data)
	t.Width = dec.U32()
	t.Height = dec.U32()
	t.HasTransparency = dec.Bool()
	t.Pixels = dec.Blob()
	if err := dec.Finish(); err != nil {
		return err
	}
	if uint64(len(t.Pixels)) != uint64(t.Width)*uint64(t.Height)*4 {
		return fmt.Errorf("texture pixel data is %d bytes, want %dx%dx4", len(t.Pixels), t.Width, t.Height)
	}
	return nil
}

func (t *TextureData) BuildFromSource(src []assets.SourceFile, params assets.CreateParams) error {
	if len(src) == 0 || src[0].Missing() {
		return fmt.Errorf("texture source image missing")
	}
	img, _, err := image.Decode(bytes.NewReader(src[0].Data))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", src[0].Name, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	if p, ok := params.(*TextureParams); ok && p.FlipY {
		flipRows(rgba.Pix, rgba.Stride, bounds.Dy())
	}

	t.Width = uint32(bounds.Dx())
	t.Height = uint32(bounds.Dy())
	t.Pixels = rgba.Pix
	t.HasTransparency = false
	for i := 3; i < len(t.Pixels); i += 4 {
		if t.Pixels[i] != 0xff {
			t.HasTransparency = true
			break
		}
	}
	return nil
}

func flipRows(pix []byte, stride, rows int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
