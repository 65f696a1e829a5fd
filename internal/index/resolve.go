package index

import (
	"slices"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// Resolver computes the visible path of an item by walking its chain of owning
// modules. Results, including failures, are memoized for the lifetime of the
// resolver, which must not outlive the crate it was built from.
type Resolver struct {
	crate   *rustdoc.Crate
	parents ParentMap
	cache   map[rustdoc.ID][]string
	failed  map[rustdoc.ID]struct{}
}

func NewResolver(crate *rustdoc.Crate, parents ParentMap) *Resolver {
	return &Resolver{
		crate:   crate,
		parents: parents,
		cache:   make(map[rustdoc.ID][]string),
		failed:  make(map[rustdoc.ID]struct{}),
	}
}

// Resolve returns the path segments of id. Items with a summary path use it
// directly; other items take their parent's path plus their own name, or the
// alias for a re-export. Resolution fails for items with no route to a module
// that has a summary path, items without a name, and cyclic parent chains.
func (r *Resolver) Resolve(id rustdoc.ID) ([]string, bool) {
	path, ok := r.resolve(id)
	if !ok {
		return nil, false
	}
	return slices.Clone(path), true
}

func (r *Resolver) resolve(id rustdoc.ID) ([]string, bool) {
	var chain []rustdoc.ID
	onChain := make(map[rustdoc.ID]bool)

	var base []string
	cur := id
	for {
		if p, ok := r.cache[cur]; ok {
			base = p
			break
		}
		if _, ok := r.failed[cur]; ok {
			r.fail(chain)
			return nil, false
		}
		if s, ok := r.crate.Paths[cur]; ok && len(s.Path) > 0 {
			base = slices.Clone(s.Path)
			r.cache[cur] = base
			break
		}
		if onChain[cur] {
			r.fail(chain)
			return nil, false
		}
		parent, ok := r.parents[cur]
		if !ok {
			r.fail(append(chain, cur))
			return nil, false
		}
		onChain[cur] = true
		chain = append(chain, cur)
		cur = parent
	}

	path := base
	for i := len(chain) - 1; i >= 0; i-- {
		seg, ok := r.segment(chain[i])
		if !ok {
			r.fail(chain[:i+1])
			return nil, false
		}
		next := make([]string, len(path)+1)
		copy(next, path)
		next[len(path)] = seg
		path = next
		r.cache[chain[i]] = path
	}
	return path, true
}

// segment is the name an item contributes to its children's paths.
func (r *Resolver) segment(id rustdoc.ID) (string, bool) {
	item, ok := r.crate.Index[id]
	if !ok {
		return "", false
	}
	name := item.DeclaredName()
	if use, ok := item.Inner.(*rustdoc.Use); ok {
		name = use.Name
	}
	return name, name != ""
}

func (r *Resolver) fail(ids []rustdoc.ID) {
	for _, id := range ids {
		r.failed[id] = struct{}{}
	}
}
