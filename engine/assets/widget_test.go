package assets

import (
	"errors"
	"strings"
	"sync/atomic"
)

const widgetVersion = 3

// widget is a small payload used by the tests: the concatenation of its source files.
type widget struct {
	version uint16
	Body    string
}

type widgetParams struct {
	builds atomic.Int32
	fail   bool
	panic  bool
}

func newWidget() AssetData {
	return &widget{version: widgetVersion}
}

func (w *widget) Version() uint16 {
	return w.version
}

func (w *widget) MarshalBinary() ([]byte, error) {
	enc := NewEncoder()
	enc.Str(w.Body)
	return enc.Bytes(), nil
}

func (w *widget) UnmarshalBinary(data []byte) error {
	dec := NewDecoder(data)
	w.Body = dec.Str()
	return dec.Finish()
}

func (w *widget) BuildFromSource(src []SourceFile, params CreateParams) error {
	p, _ := params.(*widgetParams)
	if p != nil {
		p.builds.Add(1)
		if p.fail {
			return errors.New("cannot parse widget")
		}
		if p.panic {
			panic("widget builder exploded")
		}
	}
	parts := make([]string, 0, len(src))
	for _, f := range src {
		if f.Missing() {
			parts = append(parts, "<none>")
			continue
		}
		parts = append(parts, string(f.Data))
	}
	w.Body = strings.Join(parts, "|")
	return nil
}

func widgetType() *TypeInfo {
	return &TypeInfo{
		Name: "Widget",
		ID:   7,
		Ext:  ".wbin",
		New:  newWidget,
		Sources: []SourceGroup{
			{Extensions: []string{".wsrc", ".wtxt"}, Required: true},
			{Extensions: []string{".wopt"}, Required: false},
		},
	}
}
