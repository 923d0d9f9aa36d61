package loaders

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/core"
)

const (
	MaterialTypeName        = "Material"
	MaterialTypeID   uint16 = 2
	materialVersion  uint16 = 1
)

// MaterialData is a material description. Map fields name textures that the
// material resource loads as dependencies.
type MaterialData struct {
	Name          string     `yaml:"name"`
	Shader        string     `yaml:"shader"`
	DiffuseColour [4]float32 `yaml:"diffuse_colour"`
	Shininess     float32    `yaml:"shininess"`
	DiffuseMap    string     `yaml:"diffuse_map"`
	SpecularMap   string     `yaml:"specular_map"`
	NormalMap     string     `yaml:"normal_map"`
}

func MaterialType() *assets.TypeInfo {
	return &assets.TypeInfo{
		Name: MaterialTypeName,
		ID:   MaterialTypeID,
		Ext:  ".mtl",
		New:  func() assets.AssetData { return &MaterialData{} },
		Sources: []assets.SourceGroup{
			{Extensions: []string{".mat", ".yaml", ".yml"}, Required: true},
		},
	}
}

// TextureNames returns the non-empty texture maps in diffuse, specular, normal order.
func (m *MaterialData) TextureNames() []string {
	var names []string
	for _, n := range []string{m.DiffuseMap, m.SpecularMap, m.NormalMap} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (m *MaterialData) Version() uint16 {
	return materialVersion
}

func (m *MaterialData) MarshalBinary() ([]byte, error) {
	enc := assets.NewEncoder()
	enc.Str(m.Name)
	enc.Str(m.Shader)
	for _, c := range m.DiffuseColour {
		enc.F32(c)
	}
	enc.F32(m.Shininess)
	enc.Str(m.DiffuseMap)
	enc.Str(m.SpecularMap)
	enc.Str(m.NormalMap)
	return enc.Bytes(), nil
}

func (m *MaterialData) UnmarshalBinary(data []byte) error {
	dec := assets.NewDecoder(data)
	m.Name = dec.Str()
	m.Shader = dec.Str()
	for i := range m.DiffuseColour {
		m.DiffuseColour[i] = dec.F32()
	}
	m.Shininess = dec.F32()
	m.DiffuseMap = dec.Str()
	m.SpecularMap = dec.Str()
	m.NormalMap = dec.Str()
	return dec.Finish()
}

func (m *MaterialData) BuildFromSource(src []assets.SourceFile, params assets.CreateParams) error {
	if len(src) == 0 || src[0].Missing() {
		return fmt.Errorf("material source missing")
	}
	*m = MaterialData{DiffuseColour: [4]float32{1, 1, 1, 1}}
	if err := yaml.Unmarshal(src[0].Data, m); err != nil {
		return fmt.Errorf("failed to parse %s: %w", src[0].Name, err)
	}
	return validateMaterial(m)
}

func validateMaterial(material *MaterialData) error {
	if material.Name == "" {
		return fmt.Errorf("material name is required")
	}

	if material.Shader == "" {
		return fmt.Errorf("shader name is required")
	}

	for _, c := range material.DiffuseColour {
		if !inRange(c) {
			return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
		}
	}

	if material.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value")
	}

	if material.Shader == "builtin.ui" && material.NormalMap != "" {
		core.LogWarn("material %s: normal map is ignored by the ui shader", material.Name)
	}
	return nil
}

// Check if a float32 value is within [0.0, 1.0]
func inRange(value float32) bool {
	return value >= 0.0 && value <= 1.0
}
