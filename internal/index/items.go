package index

import (
	"maps"
	"slices"
	"strings"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// Item is a flattened, self-contained view of one indexed rustdoc item.
type Item struct {
	ID           rustdoc.ID
	CrateID      uint32
	CrateName    string
	CrateVersion string
	Path         []string
	Kind         rustdoc.Kind
	Visibility   rustdoc.Visibility
	Span         *rustdoc.Span
	Name         string
	Docs         string
	Links        map[string]rustdoc.ID
	LinkURLs     map[string]string
	Attributes   []rustdoc.Attribute
	Deprecation  *rustdoc.Deprecation
	Signature    string
	Reexport     *Reexport
	Inner        rustdoc.Inner
}

// Reexport names the item a re-export points at when that item lives in a
// dependency rather than in this crate.
type Reexport struct {
	Crate string
	Path  []string
}

// QualifiedName returns the item path joined with "::".
func (it *Item) QualifiedName() string {
	return strings.Join(it.Path, PathSeparator)
}

// Deprecated reports whether the item carries a #[deprecated] attribute.
func (it *Item) Deprecated() bool { return it.Deprecation != nil }

// buildItems materializes one record per distinct key ID. Keys whose item is
// missing from the index are dropped. The first key seen for an ID decides its
// path when the item has no summary entry.
func buildItems(crate *rustdoc.Crate, keys []SearchKey, baseURL string) map[rustdoc.ID]*Item {
	items := make(map[rustdoc.ID]*Item, len(keys))
	crateName, version := crate.Name(), crate.Version()
	for _, k := range keys {
		if _, done := items[k.ID]; done {
			continue
		}
		src, ok := crate.Index[k.ID]
		if !ok {
			continue
		}

		var path []string
		if s, ok := crate.Paths[k.ID]; ok && len(s.Path) > 0 {
			path = append(path, s.Path...)
		} else {
			path = strings.Split(k.Path, PathSeparator)
		}

		name := src.DeclaredName()
		if use, ok := src.Inner.(*rustdoc.Use); ok && name == "" {
			name = use.Name
		}

		items[k.ID] = &Item{
			ID:           k.ID,
			CrateID:      src.CrateID,
			CrateName:    crateName,
			CrateVersion: version,
			Path:         path,
			Kind:         inferKind(crate, k.ID),
			Visibility:   src.Visibility,
			Span:         src.Span,
			Name:         name,
			Docs:         derefOr(src.Docs),
			Links:        maps.Clone(src.Links),
			LinkURLs:     resolveLinks(crate, src.Links, baseURL),
			Attributes:   src.Attrs,
			Deprecation:  src.Deprecation,
			Signature:    rustdoc.Signature(crate, &src),
			Reexport:     externalTarget(crate, src.Inner),
			Inner:        src.Inner,
		}
	}
	return items
}

// inferKind prefers the summary kind. Otherwise the item's own payload decides,
// except that a re-export takes the kind of its target, one level deep.
func inferKind(crate *rustdoc.Crate, id rustdoc.ID) rustdoc.Kind {
	if s, ok := crate.Paths[id]; ok && s.Kind != rustdoc.KindUnknown {
		return s.Kind
	}
	item, ok := crate.Index[id]
	if !ok || item.Inner == nil {
		return rustdoc.KindUnknown
	}
	use, ok := item.Inner.(*rustdoc.Use)
	if !ok {
		return item.Inner.Kind()
	}
	if use.IsGlob || use.ID == nil {
		return rustdoc.KindUnknown
	}
	if s, ok := crate.Paths[*use.ID]; ok && s.Kind != rustdoc.KindUnknown {
		return s.Kind
	}
	target, ok := crate.Index[*use.ID]
	if !ok || target.Inner == nil {
		return rustdoc.KindUnknown
	}
	if k := target.Inner.Kind(); k != rustdoc.KindUse {
		return k
	}
	return rustdoc.KindUnknown
}

// externalTarget reports where a re-export of a dependency item points.
func externalTarget(crate *rustdoc.Crate, inner rustdoc.Inner) *Reexport {
	use, ok := inner.(*rustdoc.Use)
	if !ok || use.IsGlob || use.ID == nil {
		return nil
	}
	s, ok := crate.Paths[*use.ID]
	if !ok || s.Local() || len(s.Path) == 0 {
		return nil
	}
	name := crate.ExternalCrateName(s.CrateID)
	if name == "" {
		return nil
	}
	return &Reexport{Crate: name, Path: slices.Clone(s.Path)}
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
