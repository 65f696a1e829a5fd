package index

import (
	"cmp"
	"slices"
	"strings"
)

// NoLimit asks Search for every match.
const NoLimit = -1

// Search ranks items by how well one of their paths fuzzy-matches query.
// Results are ordered by descending score, then by shorter path. A path equal
// to the query, ignoring case, short-circuits to that single item whatever the
// limit. Otherwise a limit of NoLimit returns all matches and 0 returns none.
func (ix *Index) Search(query string, limit int) []*Item {
	if ix == nil {
		return nil
	}
	q := toLower(query)
	matches := ix.rank(q)

	for _, m := range matches {
		if ix.lower[m.Index] == q {
			if it := ix.items[ix.keys[m.Index].ID]; it.Name != "" {
				return []*Item{it}
			}
		}
	}

	if limit == 0 {
		return nil
	}
	var out []*Item
	for _, m := range matches {
		if limit != NoLimit && len(out) >= limit {
			break
		}
		it := ix.items[ix.keys[m.Index].ID]
		if it.Name == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Result pairs a ranked item with the key path that matched.
type Result struct {
	Item  *Item
	Path  string
	Score int
}

// SearchKeys is like Search but returns one result per matching key, so an
// item reachable through several paths may appear more than once. There is no
// exact-match short-circuit and unnamed items are kept.
func (ix *Index) SearchKeys(query string, limit int) []Result {
	if ix == nil || limit == 0 {
		return nil
	}
	var out []Result
	for _, m := range ix.rank(toLower(query)) {
		if limit != NoLimit && len(out) >= limit {
			break
		}
		k := ix.keys[m.Index]
		out = append(out, Result{Item: ix.items[k.ID], Path: k.Path, Score: m.Score})
	}
	return out
}

// rank scores every key against the lowercase query and sorts the matches by
// score, then path length, then discovery order.
func (ix *Index) rank(q string) []Match {
	if len(ix.keys) == 0 {
		return nil
	}
	matches := ix.scorer.Score(q, ix.lower)
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(len(ix.lower[a.Index]), len(ix.lower[b.Index])); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return matches
}

func toLower(s string) string { return strings.ToLower(s) }

// normalizePath accepts docs.rs style "a/b/c" paths as well as "a::b::c".
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if strings.Contains(p, "/") && !strings.Contains(p, PathSeparator) {
		return strings.ReplaceAll(p, "/", PathSeparator)
	}
	return p
}
