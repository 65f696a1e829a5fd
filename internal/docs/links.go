package docs

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// URIScheme prefixes the item URIs handed to MCP clients.
const URIScheme = "rsdoc://"

// RsdocURI builds rsdoc://crate/version/path for an item path.
func RsdocURI(crateName, version string, path []string) string {
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("%s%s/%s/%s", URIScheme, crateName, version, strings.Join(path, "::"))
}

// ParseRsdocURI splits an rsdoc:// URI into crate, version and item path.
// "rsdoc://serde" and "rsdoc://serde/1.0.0" address the crate root.
func ParseRsdocURI(uri string) (crateName, version, path string, err error) {
	rest, ok := strings.CutPrefix(uri, URIScheme)
	if !ok {
		return "", "", "", fmt.Errorf("not an rsdoc URI: %q", uri)
	}
	parts := strings.SplitN(rest, "/", 3)
	crateName = parts[0]
	if crateName == "" {
		return "", "", "", fmt.Errorf("rsdoc URI has no crate: %q", uri)
	}
	version = "latest"
	if len(parts) > 1 && parts[1] != "" {
		version = parts[1]
	}
	path = crateName
	if len(parts) > 2 && parts[2] != "" {
		path = parts[2]
	}
	return crateName, version, path, nil
}

// docsRsRe matches docs.rs documentation URLs in markdown text.
// Captures everything up to whitespace or markdown link delimiters.
var docsRsRe = regexp.MustCompile(`https?://docs\.rs/[^\s)\]>]+`)

// ResolveDocsRsURLs scans doc text for docs.rs URLs and returns a mapping
// from each URL to its equivalent rsdoc:// URI.
func ResolveDocsRsURLs(docs string) map[string]string {
	matches := docsRsRe.FindAllString(docs, -1)
	if len(matches) == 0 {
		return nil
	}

	resolved := make(map[string]string)
	for _, fullURL := range matches {
		if uri := docsRsToRsdoc(fullURL); uri != "" {
			resolved[fullURL] = uri
		}
	}

	if len(resolved) == 0 {
		return nil
	}
	return resolved
}

// docsRsToRsdoc converts a single docs.rs URL to an rsdoc:// URI.
// Returns "" if the URL can't be converted (e.g. crate info pages).
func docsRsToRsdoc(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, "/")

	// Skip /crate/ info pages
	if strings.HasPrefix(path, "crate/") {
		return ""
	}

	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 3 {
		return ""
	}

	crateName := parts[0]
	version := parts[1]

	segments := strings.Split(parts[2], "/")
	for len(segments) > 0 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return ""
	}

	// index.html names a module, {kind}.{Name}.html an item.
	last := segments[len(segments)-1]
	if strings.HasSuffix(last, ".html") {
		if last == "index.html" {
			segments = segments[:len(segments)-1]
		} else {
			base := strings.TrimSuffix(last, ".html")
			if dot := strings.Index(base, "."); dot >= 0 {
				segments[len(segments)-1] = base[dot+1:]
			}
		}
	}

	if len(segments) == 0 {
		return ""
	}
	return RsdocURI(crateName, version, segments)
}
