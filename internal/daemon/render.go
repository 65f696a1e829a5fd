package daemon

import (
	"fmt"
	"maps"
	"strings"

	"github.com/jcdickinson/rsfind/internal/docs"
	"github.com/jcdickinson/rsfind/internal/index"
	md "github.com/jcdickinson/rsfind/internal/markdown"
	"github.com/jcdickinson/rsfind/internal/rpc"
)

type frontMatter struct {
	URI        string `yaml:"uri"`
	URL        string `yaml:"url,omitempty"`
	Kind       string `yaml:"kind"`
	Crate      string `yaml:"crate"`
	Version    string `yaml:"version"`
	Deprecated bool   `yaml:"deprecated,omitempty"`
	Via        string `yaml:"reexported_as,omitempty"`
}

// itemURI returns the rsdoc:// URI of an item in ix.
func itemURI(ix *index.Index, it *index.Item) string {
	return docs.RsdocURI(ix.Name(), ix.Version(), it.Path)
}

// docResult flattens an item for search responses.
func docResult(ix *index.Index, it *index.Item) rpc.DocResult {
	url, _ := it.URLWithBase(ix.DocsBaseURL())
	return rpc.DocResult{
		URI:        itemURI(ix, it),
		URL:        url,
		Path:       it.QualifiedName(),
		Kind:       it.Kind.String(),
		Signature:  it.Signature,
		Summary:    summary(it.Docs),
		Deprecated: it.Deprecated(),
	}
}

// summary is the first paragraph of a doc comment, on one line.
func summary(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	}
	return strings.Join(strings.Fields(text), " ")
}

// linkMap maps the link destinations in an item's docs to rsdoc:// URIs for
// targets inside ix, and to documentation URLs for everything else.
func linkMap(ix *index.Index, it *index.Item) map[string]string {
	links := make(map[string]string, len(it.LinkURLs))
	maps.Copy(links, it.LinkURLs)
	for text, id := range it.Links {
		if target, ok := ix.Item(id); ok {
			links[text] = itemURI(ix, target)
		}
	}
	maps.Copy(links, docs.ResolveDocsRsURLs(it.Docs))
	return links
}

// renderItem renders an item page. via, when set, is the path the item was
// requested under before a re-export was followed.
func renderItem(ix *index.Index, it *index.Item, via string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", it.QualifiedName())
	fmt.Fprintf(&b, "**Kind:** %s\n\n", it.Kind)

	if dep := it.Deprecation; dep != nil {
		b.WriteString("> **Deprecated**")
		if dep.Since != nil && *dep.Since != "" {
			fmt.Fprintf(&b, " since %s", *dep.Since)
		}
		if dep.Note != nil && *dep.Note != "" {
			fmt.Fprintf(&b, ": %s", *dep.Note)
		}
		b.WriteString("\n\n")
	}
	if via != "" {
		fmt.Fprintf(&b, "Re-exported as `%s`.\n\n", via)
	}

	if it.Signature != "" {
		fmt.Fprintf(&b, "```rust\n%s\n```\n\n", it.Signature)
	}
	if it.Docs != "" {
		b.WriteString(md.RewriteLinks(it.Docs, linkMap(ix, it)))
		b.WriteString("\n")
	}

	if members := ix.Children(it.QualifiedName()); len(members) > 0 {
		b.WriteString("\n## Members\n\n")
		for _, m := range members {
			if m.Item == nil {
				continue
			}
			name := m.Path[strings.LastIndex(m.Path, index.PathSeparator)+len(index.PathSeparator):]
			fmt.Fprintf(&b, "- [`%s`](%s) (%s)", name, itemURI(ix, m.Item), m.Item.Kind)
			if s := summary(m.Item.Docs); s != "" {
				fmt.Fprintf(&b, ": %s", s)
			}
			b.WriteString("\n")
		}
	}

	url, _ := it.URLWithBase(ix.DocsBaseURL())
	return md.AddFrontMatter(b.String(), frontMatter{
		URI:        itemURI(ix, it),
		URL:        url,
		Kind:       it.Kind.String(),
		Crate:      ix.Name(),
		Version:    ix.Version(),
		Deprecated: it.Deprecated(),
		Via:        via,
	})
}
