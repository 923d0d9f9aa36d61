package loaders

import (
	"bytes"
	"fmt"

	"github.com/yuin/gopher-lua/parse"

	"github.com/spaghettifunk/kiln/engine/assets"
)

const (
	ScriptTypeName        = "Script"
	ScriptTypeID   uint16 = 4
	scriptVersion  uint16 = 1
)

// ScriptData is a Lua chunk that parsed cleanly at build time.
type ScriptData struct {
	Chunk      string
	Source     string
	Statements uint32
}

func ScriptType() *assets.TypeInfo {
	return &assets.TypeInfo{
		Name: ScriptTypeName,
		ID:   ScriptTypeID,
		Ext:  ".luac",
		New:  func() assets.AssetData { return &ScriptData{} },
		Sources: []assets.SourceGroup{
			{Extensions: []string{".lua"}, Required: true},
		},
	}
}

func (s *ScriptData) Version() uint16 {
	return scriptVersion
}

func (s *ScriptData) MarshalBinary() ([]byte, error) {
	enc := assets.NewEncoder()
	enc.Str(s.Chunk)
	enc.Str(s.Source)
	enc.U32(s.Statements)
	return enc.Bytes(), nil
}

func (s *ScriptData) UnmarshalBinary(data []byte) error {
	dec := assets.NewDecoder(data)
	s.Chunk = dec.Str()
	s.Source = dec.Str()
	s.Statements = dec.U32()
	return dec.Finish()
}

func (s *ScriptData) BuildFromSource(src []assets.SourceFile, params assets.CreateParams) error {
	if len(src) == 0 || src[0].Missing() {
		return fmt.Errorf("script source missing")
	}
	stmts, err := parse.Parse(bytes.NewReader(src[0].Data), src[0].Name)
	if err != nil {
		return fmt.Errorf("syntax error in %s: %w", src[0].Name, err)
	}
	s.Chunk = src[0].Name
	s.Source = string(src[0].Data)
	s.Statements = uint32(len(stmts))
	return nil
}
