package index

import (
	"strings"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// PathSeparator joins path segments in search keys.
const PathSeparator = "::"

// SearchKey is a searchable path pointing at one item. The same item may be
// reachable through several keys.
type SearchKey struct {
	ID   rustdoc.ID
	Path string
}

type keyGenerator struct {
	crate    *rustdoc.Crate
	resolver *Resolver
	keys     []SearchKey
	seen     map[SearchKey]struct{}

	// implsFor maps a type ID to the impl blocks whose `for` type resolves to
	// it. Built on first use.
	implsFor map[rustdoc.ID][]rustdoc.ID
}

func newKeyGenerator(crate *rustdoc.Crate, resolver *Resolver) *keyGenerator {
	return &keyGenerator{
		crate:    crate,
		resolver: resolver,
		seen:     make(map[SearchKey]struct{}),
	}
}

// GenerateKeys emits the search keys for every local item with a summary path,
// plus keys for re-exports the summary table does not cover.
func GenerateKeys(crate *rustdoc.Crate, resolver *Resolver) []SearchKey {
	g := newKeyGenerator(crate, resolver)
	for _, id := range sortedIDs(crate.Paths) {
		g.summaryKeys(id, crate.Paths[id])
	}
	for _, id := range sortedIDs(crate.Index) {
		g.reexportKey(id)
	}
	return g.keys
}

func (g *keyGenerator) emit(id rustdoc.ID, path string) {
	k := SearchKey{ID: id, Path: path}
	if _, dup := g.seen[k]; dup {
		return
	}
	g.seen[k] = struct{}{}
	g.keys = append(g.keys, k)
}

func (g *keyGenerator) summaryKeys(id rustdoc.ID, summary rustdoc.Summary) {
	if !summary.Local() || len(summary.Path) == 0 {
		return
	}
	base := strings.Join(summary.Path, PathSeparator)
	g.emit(id, base)

	item, ok := g.crate.Index[id]
	if !ok {
		return
	}

	switch summary.Kind {
	case rustdoc.KindStruct:
		if s, ok := item.Inner.(*rustdoc.Struct); ok {
			g.implKeys(s.Impls, base)
		}
	case rustdoc.KindUnion:
		if u, ok := item.Inner.(*rustdoc.Union); ok {
			g.implKeys(u.Impls, base)
		}
	case rustdoc.KindEnum:
		g.implKeys(g.implsTargeting(id), base)
		if e, ok := item.Inner.(*rustdoc.Enum); ok {
			g.memberKeys(e.Variants, base)
		}
	case rustdoc.KindTrait:
		if t, ok := item.Inner.(*rustdoc.Trait); ok {
			g.memberKeys(t.Items, base)
		}
	}
}

// implKeys emits a key for every named member of the given impl blocks. Trait
// impl members are filed under the trait's path rather than the type's; when
// the trait path cannot be resolved the block is skipped.
func (g *keyGenerator) implKeys(implIDs []rustdoc.ID, typePath string) {
	for _, implID := range implIDs {
		item, ok := g.crate.Index[implID]
		if !ok {
			continue
		}
		impl, ok := item.Inner.(*rustdoc.Impl)
		if !ok {
			continue
		}
		prefix := typePath
		if impl.Trait != nil {
			traitPath, ok := g.resolver.resolve(impl.Trait.ID)
			if !ok {
				continue
			}
			prefix = strings.Join(traitPath, PathSeparator)
		}
		g.memberKeys(impl.Items, prefix)
	}
}

func (g *keyGenerator) memberKeys(ids []rustdoc.ID, prefix string) {
	for _, id := range ids {
		item, ok := g.crate.Index[id]
		if !ok || item.Name == nil {
			continue
		}
		g.emit(id, prefix+PathSeparator+*item.Name)
	}
}

// implsTargeting returns the impl blocks implemented for the type with the
// given ID, in ID order.
func (g *keyGenerator) implsTargeting(typeID rustdoc.ID) []rustdoc.ID {
	if g.implsFor == nil {
		g.implsFor = make(map[rustdoc.ID][]rustdoc.ID)
		for _, id := range sortedIDs(g.crate.Index) {
			impl, ok := g.crate.Index[id].Inner.(*rustdoc.Impl)
			if !ok {
				continue
			}
			if target, ok := impl.For.ResolvedPath(); ok {
				g.implsFor[target.ID] = append(g.implsFor[target.ID], id)
			}
		}
	}
	return g.implsFor[typeID]
}

// reexportKey makes a re-export searchable under the path it is visible at.
// The key points at the re-exported item when it is part of this crate's index
// and at the use item otherwise.
func (g *keyGenerator) reexportKey(id rustdoc.ID) {
	if _, ok := g.crate.Paths[id]; ok {
		return
	}
	item := g.crate.Index[id]
	use, ok := item.Inner.(*rustdoc.Use)
	if !ok || use.IsGlob || item.CrateID != 0 {
		return
	}
	path, ok := g.resolver.resolve(id)
	if !ok {
		return
	}
	target := id
	if use.ID != nil {
		if _, ok := g.crate.Index[*use.ID]; ok {
			target = *use.ID
		}
	}
	g.emit(target, strings.Join(path, PathSeparator))
}
