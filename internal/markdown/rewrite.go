package markdown

import (
	"fmt"
	"slices"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

// RewriteLinks rewrites markdown link destinations using the provided link map.
// It parses the markdown to AST to find all link destinations, then performs
// targeted string replacements to preserve original formatting.
//
// Rustdoc intra-doc links are often written as bare shortcuts ([`Vec`]) that
// only resolve through the crate's link table. Map keys used that way get a
// reference definition appended so they become real links.
func RewriteLinks(src string, linkMap map[string]string) string {
	if len(linkMap) == 0 {
		return src
	}

	doc := gm.Parse([]byte(src), gmparser.NewWithExtensions(
		gmparser.CommonExtensions|gmparser.Autolink,
	))

	// Collect unique destinations that need replacement
	seen := make(map[string]bool)
	type replacement struct {
		oldDest string
		newDest string
	}
	var replacements []replacement

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if link, ok := node.(*ast.Link); ok {
			dest := string(link.Destination)
			if newDest, ok := linkMap[dest]; ok && !seen[dest] {
				seen[dest] = true
				replacements = append(replacements, replacement{dest, newDest})
			}
		}
		return ast.GoToNext
	})

	result := src

	// Inline links: [text](destination), one pass per replacement
	for _, r := range replacements {
		result = strings.ReplaceAll(result, "]("+r.oldDest+")", "]("+r.newDest+")")
	}

	// Reference-style definitions: [ref]: destination, single pass over lines
	if len(replacements) > 0 {
		refMap := make(map[string]string, len(replacements))
		for _, r := range replacements {
			refMap["]: "+r.oldDest] = "]: " + r.newDest
		}
		lines := strings.Split(result, "\n")
		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			for oldSuffix, newSuffix := range refMap {
				if strings.HasSuffix(trimmed, oldSuffix) {
					lines[i] = strings.Replace(line, oldSuffix, newSuffix, 1)
					break
				}
			}
		}
		result = strings.Join(lines, "\n")
	}

	return appendShortcutDefinitions(result, linkMap, seen)
}

// appendShortcutDefinitions adds "[label]: dest" lines for map keys that
// appear in src as a bare [label] and were not already rewritten.
func appendShortcutDefinitions(src string, linkMap map[string]string, done map[string]bool) string {
	var labels []string
	for label := range linkMap {
		if done[label] || !hasShortcut(src, label) || strings.Contains(src, "["+label+"]:") {
			continue
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return src
	}
	slices.Sort(labels)

	var b strings.Builder
	b.WriteString(strings.TrimRight(src, "\n"))
	b.WriteString("\n\n")
	for _, label := range labels {
		fmt.Fprintf(&b, "[%s]: %s\n", label, linkMap[label])
	}
	return b.String()
}

// hasShortcut reports whether [label] occurs without being followed by a
// destination or another label.
func hasShortcut(src, label string) bool {
	needle := "[" + label + "]"
	for rest := src; ; {
		i := strings.Index(rest, needle)
		if i < 0 {
			return false
		}
		rest = rest[i+len(needle):]
		if rest == "" || (rest[0] != '(' && rest[0] != '[' && rest[0] != ':') {
			return true
		}
	}
}

// AddFrontMatter prepends v, marshaled as YAML, as a front-matter block.
// A nil v leaves src unchanged.
func AddFrontMatter(src string, v any) (string, error) {
	if v == nil {
		return src, nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling front matter: %w", err)
	}
	if s := strings.TrimSpace(string(data)); s == "{}" || s == "" {
		return src, nil
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
	b.WriteString(src)
	return b.String(), nil
}
