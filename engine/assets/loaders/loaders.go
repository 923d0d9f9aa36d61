package loaders

import "github.com/spaghettifunk/kiln/engine/assets"

// RegisterAll registers every built-in asset type.
func RegisterAll(reg *assets.Registry) error {
	for _, info := range []*assets.TypeInfo{
		TextureType(),
		MaterialType(),
		BitmapFontType(),
		ScriptType(),
	} {
		if err := reg.Register(info); err != nil {
			return err
		}
	}
	return nil
}
