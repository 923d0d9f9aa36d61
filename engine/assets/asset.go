package assets

// AssetData is the payload delivered for one asset. Version is the version the
// running code writes; cached binaries with any other version are rebuilt.
type AssetData interface {
	Version() uint16
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// SourceFile is the content of one source group. Name is empty when an
// optional group had no matching file.
type SourceFile struct {
	Name string
	// Path is the on-disk location when the file came from a folder mount.
	Path string
	Data []byte
}

func (s SourceFile) Missing() bool {
	return s.Name == ""
}

// CreateParams carries type specific build options.
type CreateParams any

// SourceBuilder is implemented by payloads that can be built from their
// source files. src has one entry per registered source group.
type SourceBuilder interface {
	BuildFromSource(src []SourceFile, params CreateParams) error
}
