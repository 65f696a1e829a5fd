package index

import (
	"slices"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// ParentMap maps an item to the module that structurally owns it.
type ParentMap map[rustdoc.ID]rustdoc.ID

// BuildParentMap scans every module in the crate and records the owning module
// of each child. When a child is listed by more than one module the owner is
// chosen deterministically: modules with a summary path beat modules without
// one, then the shorter summary path wins, then the lower ID.
func BuildParentMap(crate *rustdoc.Crate) ParentMap {
	parents := make(ParentMap)
	for _, id := range sortedIDs(crate.Index) {
		item := crate.Index[id]
		mod, ok := item.Inner.(*rustdoc.Module)
		if !ok {
			continue
		}
		for _, child := range mod.Items {
			current, claimed := parents[child]
			if !claimed || betterOwner(crate, id, current) {
				parents[child] = id
			}
		}
	}
	return parents
}

// betterOwner reports whether module a should own a shared child instead of b.
func betterOwner(crate *rustdoc.Crate, a, b rustdoc.ID) bool {
	sa, okA := crate.Paths[a]
	sb, okB := crate.Paths[b]
	if okA != okB {
		return okA
	}
	if okA && len(sa.Path) != len(sb.Path) {
		return len(sa.Path) < len(sb.Path)
	}
	return rustdoc.CompareIDs(a, b) < 0
}

func sortedIDs[V any](m map[rustdoc.ID]V) []rustdoc.ID {
	ids := make([]rustdoc.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, rustdoc.CompareIDs)
	return ids
}
