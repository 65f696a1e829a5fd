package rustdoc

import (
	"encoding/json"
	"strings"
)

// Path is a reference to a named item, as used for impl traits and resolved
// types. Format versions before 42 spell the written path as "name".
type Path struct {
	Path string          `json:"path"`
	Name string          `json:"name"`
	ID   ID              `json:"id"`
	Args json.RawMessage `json:"args"`
}

// Written returns the path as written in the source, e.g. "fmt::Debug".
func (p *Path) Written() string {
	if p.Path != "" {
		return p.Path
	}
	return p.Name
}

// LastSegment returns the final segment of the written path.
func (p *Path) LastSegment() string {
	w := p.Written()
	if i := strings.LastIndex(w, "::"); i >= 0 {
		return w[i+2:]
	}
	return w
}

// Type is a rustdoc type expression. Only resolved paths are modelled; the
// raw JSON is kept for everything else.
type Type struct {
	Raw json.RawMessage
}

func (t *Type) UnmarshalJSON(data []byte) error {
	t.Raw = append(t.Raw[:0], data...)
	return nil
}

func (t Type) MarshalJSON() ([]byte, error) {
	if len(t.Raw) == 0 {
		return []byte("null"), nil
	}
	return t.Raw, nil
}

// ResolvedPath returns the referenced path when the type is a resolved path
// such as `Vec<T>` or `MyEnum`.
func (t Type) ResolvedPath() (*Path, bool) {
	if len(t.Raw) == 0 || t.Raw[0] != '{' {
		return nil, false
	}
	var outer struct {
		ResolvedPath *Path `json:"resolved_path"`
	}
	if err := json.Unmarshal(t.Raw, &outer); err != nil || outer.ResolvedPath == nil {
		return nil, false
	}
	return outer.ResolvedPath, true
}
