// Package index builds a fuzzy-searchable index over a decoded rustdoc crate.
//
// Building an index walks the crate once: a parent map of module ownership
// feeds a memoizing path resolver, which the key generator uses to emit one
// search key per reachable path. The resulting Index is immutable and safe for
// concurrent use.
package index

import (
	"strings"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// Index is the searchable form of one crate.
type Index struct {
	name    string
	version string
	keys    []SearchKey
	lower   []string
	items   map[rustdoc.ID]*Item
	scorer  Scorer
	baseURL string
}

// Option configures Build.
type Option func(*Index)

// WithScorer replaces the default fuzzy scorer.
func WithScorer(s Scorer) Option {
	return func(ix *Index) { ix.scorer = s }
}

// WithDocsBaseURL sets the documentation host used for intra-doc link URLs.
func WithDocsBaseURL(base string) Option {
	return func(ix *Index) {
		if base != "" {
			ix.baseURL = base
		}
	}
}

// Build indexes crate. Items that cannot be traced to a module with a known
// path are left out; Build itself never fails.
func Build(crate *rustdoc.Crate, opts ...Option) *Index {
	ix := &Index{
		name:    crate.Name(),
		version: crate.Version(),
		scorer:  FuzzyScorer{},
		baseURL: DefaultDocsBaseURL,
	}
	for _, opt := range opts {
		opt(ix)
	}

	resolver := NewResolver(crate, BuildParentMap(crate))
	keys := GenerateKeys(crate, resolver)
	ix.items = buildItems(crate, keys, ix.baseURL)

	// Every key must have a record.
	for _, k := range keys {
		if _, ok := ix.items[k.ID]; ok {
			ix.keys = append(ix.keys, k)
			ix.lower = append(ix.lower, toLower(k.Path))
		}
	}
	return ix
}

// DocsBaseURL returns the documentation host the index links to.
func (ix *Index) DocsBaseURL() string { return ix.baseURL }

// Name returns the crate name.
func (ix *Index) Name() string { return ix.name }

// Version returns the crate version recorded by rustdoc.
func (ix *Index) Version() string { return ix.version }

// Keys returns the search keys in discovery order.
func (ix *Index) Keys() []SearchKey {
	if ix == nil {
		return nil
	}
	out := make([]SearchKey, len(ix.keys))
	copy(out, ix.keys)
	return out
}

// Len returns the number of search keys.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.keys)
}

// ItemCount returns the number of distinct indexed items.
func (ix *Index) ItemCount() int {
	if ix == nil {
		return 0
	}
	return len(ix.items)
}

// Item returns the record for id.
func (ix *Index) Item(id rustdoc.ID) (*Item, bool) {
	if ix == nil {
		return nil, false
	}
	it, ok := ix.items[id]
	return it, ok
}

// Lookup finds an item by its exact path, ignoring case. Paths written with
// "::" or "/" separators are both accepted.
func (ix *Index) Lookup(path string) (*Item, bool) {
	if ix == nil {
		return nil, false
	}
	want := toLower(normalizePath(path))
	for i, l := range ix.lower {
		if l == want {
			return ix.items[ix.keys[i].ID], true
		}
	}
	return nil, false
}

// Children returns the keys exactly one segment below path, such as the
// methods and variants of a type or the items of a module, in discovery order.
func (ix *Index) Children(path string) []Result {
	if ix == nil {
		return nil
	}
	prefix := toLower(normalizePath(path)) + PathSeparator
	var out []Result
	seen := make(map[string]bool)
	for i, l := range ix.lower {
		rest, ok := strings.CutPrefix(l, prefix)
		if !ok || rest == "" || strings.Contains(rest, PathSeparator) || seen[l] {
			continue
		}
		seen[l] = true
		k := ix.keys[i]
		out = append(out, Result{Item: ix.items[k.ID], Path: k.Path})
	}
	return out
}
