package index

import (
	"net/url"
	"strings"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// DefaultDocsBaseURL is where rendered crate documentation is hosted.
const DefaultDocsBaseURL = "https://docs.rs"

// pagePrefix maps a kind to the prefix of its rendered page, e.g. struct.Foo.html.
var pagePrefix = map[rustdoc.Kind]string{
	rustdoc.KindStruct:    "struct",
	rustdoc.KindUnion:     "union",
	rustdoc.KindEnum:      "enum",
	rustdoc.KindTrait:     "trait",
	rustdoc.KindFunction:  "fn",
	rustdoc.KindConstant:  "constant",
	rustdoc.KindStatic:    "static",
	rustdoc.KindMacro:     "macro",
	rustdoc.KindTypeAlias: "type",
}

// URL returns the item's page on docs.rs.
func (it *Item) URL() (string, bool) {
	return it.URLWithBase(DefaultDocsBaseURL)
}

// URLWithBase returns the item's documentation page under base. Items without
// a path, with an unknown kind, or of a kind that has no page of its own (such
// as methods and fields) have no URL.
func (it *Item) URLWithBase(base string) (string, bool) {
	if it == nil || len(it.Path) == 0 {
		return "", false
	}
	version := it.CrateVersion
	if version == "" {
		version = "latest"
	}
	root := joinURL(strings.TrimRight(base, "/"), it.Path[0], version)
	return pageURL(root, it.Path, it.Kind, it.Name)
}

// pageURL builds the page for an item at path under a crate's documentation
// root. The first path segment names the crate and is not repeated.
func pageURL(root string, path []string, kind rustdoc.Kind, name string) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	if kind == rustdoc.KindModule {
		return joinURL(root, append(path[1:len(path):len(path)], "index.html")...), true
	}
	prefix, ok := pagePrefix[kind]
	if !ok || name == "" || len(path) < 2 {
		return "", false
	}
	dirs := path[1 : len(path)-1 : len(path)-1]
	return joinURL(root, append(dirs, prefix+"."+name+".html")...), true
}

func joinURL(root string, segs ...string) string {
	var b strings.Builder
	b.WriteString(root)
	for _, seg := range segs {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}
