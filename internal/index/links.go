package index

import (
	"strconv"
	"strings"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// resolveLinks maps the intra-doc link targets of an item (markdown target text
// such as "Value::as_str") to documentation URLs. Targets in dependencies point
// at the dependency's html_root_url when rustdoc recorded one.
func resolveLinks(crate *rustdoc.Crate, links map[string]rustdoc.ID, base string) map[string]string {
	if len(links) == 0 {
		return nil
	}
	resolved := make(map[string]string, len(links))
	for target, id := range links {
		if u, ok := linkURL(crate, id, base); ok {
			resolved[target] = u
		}
	}
	if len(resolved) == 0 {
		return nil
	}
	return resolved
}

func linkURL(crate *rustdoc.Crate, id rustdoc.ID, base string) (string, bool) {
	summary, ok := crate.Paths[id]
	if !ok || len(summary.Path) == 0 {
		return "", false
	}
	path := summary.Path
	name := path[len(path)-1]

	var root string
	if summary.Local() {
		version := crate.Version()
		if version == "" {
			version = "latest"
		}
		root = joinURL(strings.TrimRight(base, "/"), path[0], version)
	} else {
		ext, ok := crate.ExternalCrates[strconv.FormatUint(uint64(summary.CrateID), 10)]
		if !ok {
			return "", false
		}
		if ext.HTMLRootURL != "" {
			root = joinURL(strings.TrimRight(ext.HTMLRootURL, "/"), path[0])
		} else {
			root = joinURL(strings.TrimRight(base, "/"), ext.Name, "latest")
		}
	}
	return pageURL(root, path, summary.Kind, name)
}
