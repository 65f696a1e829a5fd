package rustdoc

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ID identifies an item within one rustdoc crate. Older format versions encode
// IDs as strings ("0:123:456"), newer ones as integers; both decode to the
// same opaque key.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding item id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// CompareIDs orders numeric IDs numerically and everything else lexically,
// numeric IDs first.
func CompareIDs(a, b ID) int {
	na, errA := strconv.ParseUint(string(a), 10, 64)
	nb, errB := strconv.ParseUint(string(b), 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

// Crate is the top-level structure of rustdoc JSON output.
type Crate struct {
	Root            ID                       `json:"root"`
	CrateVersion    *string                  `json:"crate_version"`
	IncludesPrivate bool                     `json:"includes_private"`
	Index           map[ID]Item              `json:"index"`
	Paths           map[ID]Summary           `json:"paths"`
	ExternalCrates  map[string]ExternalCrate `json:"external_crates"`
	FormatVersion   int                      `json:"format_version"`
}

// Version returns the crate version, or "" when rustdoc did not record one.
func (c *Crate) Version() string {
	if c.CrateVersion == nil {
		return ""
	}
	return *c.CrateVersion
}

// Name returns the name of the root module.
func (c *Crate) Name() string {
	if root, ok := c.Index[c.Root]; ok && root.Name != nil {
		return *root.Name
	}
	if s, ok := c.Paths[c.Root]; ok && len(s.Path) > 0 {
		return s.Path[0]
	}
	return ""
}

// ExternalCrate identifies a dependency crate by name.
type ExternalCrate struct {
	Name        string `json:"name"`
	HTMLRootURL string `json:"html_root_url"`
}

// docsRsCrateRe extracts the package name from a docs.rs html_root_url such as
// "https://docs.rs/tracing-core/0.1.36/x86_64-unknown-linux-gnu/".
var docsRsCrateRe = regexp.MustCompile(`^https?://docs\.rs/([^/]+)/`)

// ExternalCrateName returns the package name of a dependency. The lib name
// rustdoc records uses underscores where the package name may use hyphens, so
// a docs.rs html_root_url is preferred when present.
func (c *Crate) ExternalCrateName(crateID uint32) string {
	ext, ok := c.ExternalCrates[strconv.FormatUint(uint64(crateID), 10)]
	if !ok {
		return ""
	}
	if m := docsRsCrateRe.FindStringSubmatch(ext.HTMLRootURL); len(m) == 2 {
		return m[1]
	}
	return ext.Name
}

// Summary is the precomputed public path and kind of an item.
type Summary struct {
	CrateID uint32   `json:"crate_id"`
	Path    []string `json:"path"`
	Kind    Kind     `json:"kind"`
}

// Local reports whether the summary describes an item of the documented crate
// rather than one of its dependencies.
func (s Summary) Local() bool { return s.CrateID == 0 }

// Item is a single node in the rustdoc index.
type Item struct {
	ID          ID              `json:"id"`
	CrateID     uint32          `json:"crate_id"`
	Name        *string         `json:"name"`
	Span        *Span           `json:"span"`
	Visibility  Visibility      `json:"visibility"`
	Docs        *string         `json:"docs"`
	Links       map[string]ID   `json:"links"` // markdown text → item ID
	Attrs       []Attribute     `json:"attrs"`
	Deprecation *Deprecation    `json:"deprecation"`
	Inner       Inner           `json:"-"`
	RawInner    json.RawMessage `json:"inner"`
}

func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	inner, err := DecodeInner(p.RawInner)
	if err != nil {
		return fmt.Errorf("item %s: %w", p.ID, err)
	}
	p.Inner = inner
	*it = Item(p)
	return nil
}

// DeclaredName returns the item's name, or "" if it has none.
func (it *Item) DeclaredName() string {
	if it.Name == nil {
		return ""
	}
	return *it.Name
}

// Span locates an item in its source file.
type Span struct {
	Filename string `json:"filename"`
	Begin    [2]int `json:"begin"`
	End      [2]int `json:"end"`
}

// Deprecation holds the #[deprecated] attribute arguments.
type Deprecation struct {
	Since *string `json:"since"`
	Note  *string `json:"note"`
}

// Visibility is "public", "default", "crate" or a restricted path.
type Visibility struct {
	Kind   string `json:"kind"`
	Parent ID     `json:"parent,omitempty"`
	Path   string `json:"path,omitempty"`
}

func (v *Visibility) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &v.Kind)
	}
	var r struct {
		Restricted struct {
			Parent ID     `json:"parent"`
			Path   string `json:"path"`
		} `json:"restricted"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("decoding visibility: %w", err)
	}
	*v = Visibility{Kind: "restricted", Parent: r.Restricted.Parent, Path: r.Restricted.Path}
	return nil
}

func (v Visibility) String() string {
	if v.Kind == "restricted" {
		return "pub(in " + v.Path + ")"
	}
	return v.Kind
}

// Attribute is one attribute applied to an item. Older format versions emit
// plain strings such as "#[must_use]"; newer ones emit tagged objects.
type Attribute struct {
	Raw json.RawMessage
}

func (a *Attribute) UnmarshalJSON(data []byte) error {
	a.Raw = append(a.Raw[:0], data...)
	return nil
}

func (a Attribute) MarshalJSON() ([]byte, error) {
	if len(a.Raw) == 0 {
		return []byte("null"), nil
	}
	return a.Raw, nil
}

func (a Attribute) String() string {
	var s string
	if err := json.Unmarshal(a.Raw, &s); err == nil {
		return s
	}
	return string(a.Raw)
}
