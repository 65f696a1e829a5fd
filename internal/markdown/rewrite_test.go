package markdown

import (
	"strings"
	"testing"
)

func TestRewriteLinks_InlineLinks(t *testing.T) {
	t.Parallel()
	src := "See [Foo](old/path) for details."
	got := RewriteLinks(src, map[string]string{"old/path": "rsdoc://crate/1.0/Foo"})
	want := "See [Foo](rsdoc://crate/1.0/Foo) for details."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteLinks_ReferenceStyleLinks(t *testing.T) {
	t.Parallel()
	src := "See [Foo][ref] for details.\n\n[ref]: old/path"
	got := RewriteLinks(src, map[string]string{"old/path": "rsdoc://new"})
	if !strings.Contains(got, "[ref]: rsdoc://new") {
		t.Errorf("reference link not rewritten: %q", got)
	}
}

func TestRewriteLinks_EmptyMap(t *testing.T) {
	t.Parallel()
	src := "Hello [world](url)."
	got := RewriteLinks(src, nil)
	if got != src {
		t.Errorf("expected unchanged, got %q", got)
	}
	got = RewriteLinks(src, map[string]string{})
	if got != src {
		t.Errorf("expected unchanged for empty map, got %q", got)
	}
}

func TestRewriteLinks_NoMatchingLinks(t *testing.T) {
	t.Parallel()
	src := "Check [this](keep-me) out."
	got := RewriteLinks(src, map[string]string{"other": "rsdoc://x"})
	if got != src {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestRewriteLinks_MultipleLinks(t *testing.T) {
	t.Parallel()
	src := "[A](a-dest) and [B](b-dest) together."
	got := RewriteLinks(src, map[string]string{
		"a-dest": "rsdoc://a",
		"b-dest": "rsdoc://b",
	})
	if !strings.Contains(got, "(rsdoc://a)") {
		t.Error("link A not rewritten")
	}
	if !strings.Contains(got, "(rsdoc://b)") {
		t.Error("link B not rewritten")
	}
}

func TestRewriteLinks_Shortcuts(t *testing.T) {
	t.Parallel()
	src := "Wraps a [`Vec`] and a [Bar][b].\n\n[b]: elsewhere"
	got := RewriteLinks(src, map[string]string{
		"`Vec`": "https://docs.rs/alloc/latest/alloc/vec/struct.Vec.html",
		"b":     "https://example.com/b",
		"Nope":  "https://example.com/nope",
	})
	if !strings.HasPrefix(got, src) {
		t.Errorf("body changed: %q", got)
	}
	if !strings.Contains(got, "\n[`Vec`]: https://docs.rs/alloc/latest/alloc/vec/struct.Vec.html\n") {
		t.Errorf("shortcut definition not appended: %q", got)
	}
	if strings.Contains(got, "[b]: https://example.com/b") {
		t.Errorf("defined label got a second definition: %q", got)
	}
	if strings.Contains(got, "Nope") {
		t.Errorf("unused label appended: %q", got)
	}
}

func TestAddFrontMatter(t *testing.T) {
	t.Parallel()

	type meta struct {
		URL     string `yaml:"url"`
		Kind    string `yaml:"kind"`
		Version string `yaml:"version,omitempty"`
	}

	t.Run("struct", func(t *testing.T) {
		got, err := AddFrontMatter("# Doc", meta{URL: "https://docs.rs/x", Kind: "struct"})
		if err != nil {
			t.Fatal(err)
		}
		want := "---\nurl: https://docs.rs/x\nkind: struct\n---\n\n# Doc"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("sorted_map_keys", func(t *testing.T) {
		got, err := AddFrontMatter("body", map[string]string{
			"z-frag": "rsdoc://z",
			"a-frag": "rsdoc://a",
		})
		if err != nil {
			t.Fatal(err)
		}
		if strings.Index(got, "a-frag") > strings.Index(got, "z-frag") {
			t.Error("keys not sorted alphabetically")
		}
	})

	t.Run("empty", func(t *testing.T) {
		for _, v := range []any{nil, map[string]string{}} {
			got, err := AddFrontMatter("body", v)
			if err != nil {
				t.Fatal(err)
			}
			if got != "body" {
				t.Errorf("expected unchanged for %v, got %q", v, got)
			}
		}
	})
}
