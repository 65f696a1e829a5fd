package index

import (
	"testing"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

func TestItemURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		item Item
		want string
	}{
		{
			name: "crate root",
			item: Item{Path: []string{"serde"}, Kind: rustdoc.KindModule, Name: "serde", CrateVersion: "1.0.0"},
			want: "https://docs.rs/serde/1.0.0/index.html",
		},
		{
			name: "module",
			item: Item{Path: []string{"serde", "de", "value"}, Kind: rustdoc.KindModule, Name: "value"},
			want: "https://docs.rs/serde/latest/de/value/index.html",
		},
		{
			name: "struct",
			item: Item{Path: []string{"std", "fs", "File"}, Kind: rustdoc.KindStruct, Name: "File", CrateVersion: "1.0.0"},
			want: "https://docs.rs/std/1.0.0/fs/struct.File.html",
		},
		{
			name: "trait at root",
			item: Item{Path: []string{"serde", "Serialize"}, Kind: rustdoc.KindTrait, Name: "Serialize"},
			want: "https://docs.rs/serde/latest/trait.Serialize.html",
		},
		{
			name: "function",
			item: Item{Path: []string{"tokio", "task", "spawn"}, Kind: rustdoc.KindFunction, Name: "spawn"},
			want: "https://docs.rs/tokio/latest/task/fn.spawn.html",
		},
		{
			name: "constant",
			item: Item{Path: []string{"std", "f64", "EPSILON"}, Kind: rustdoc.KindConstant, Name: "EPSILON"},
			want: "https://docs.rs/std/latest/f64/constant.EPSILON.html",
		},
		{
			name: "type alias",
			item: Item{Path: []string{"std", "io", "Result"}, Kind: rustdoc.KindTypeAlias, Name: "Result"},
			want: "https://docs.rs/std/latest/io/type.Result.html",
		},
		{
			name: "macro",
			item: Item{Path: []string{"anyhow", "bail"}, Kind: rustdoc.KindMacro, Name: "bail"},
			want: "https://docs.rs/anyhow/latest/macro.bail.html",
		},
		{
			name: "escaped segment",
			item: Item{Path: []string{"odd", "a b"}, Kind: rustdoc.KindModule, Name: "a b"},
			want: "https://docs.rs/odd/latest/a%20b/index.html",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.item.URL()
			if !ok {
				t.Fatalf("URL() returned no url")
			}
			if got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestItemURL_None(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		item Item
	}{
		{"no path", Item{Kind: rustdoc.KindStruct, Name: "X"}},
		{"unknown kind", Item{Path: []string{"a", "b"}, Name: "b"}},
		{"variant", Item{Path: []string{"a", "E", "V"}, Kind: rustdoc.KindVariant, Name: "V"}},
		{"unnamed", Item{Path: []string{"a", "b"}, Kind: rustdoc.KindStruct}},
		{"single segment struct", Item{Path: []string{"a"}, Kind: rustdoc.KindStruct, Name: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := tt.item.URL(); ok {
				t.Errorf("URL() = %q, want none", got)
			}
		})
	}
}

func TestItemURLWithBase(t *testing.T) {
	t.Parallel()

	it := Item{Path: []string{"std", "fs", "File"}, Kind: rustdoc.KindStruct, Name: "File"}
	got, ok := it.URLWithBase("http://mirror.local/docs/")
	if !ok || got != "http://mirror.local/docs/std/latest/fs/struct.File.html" {
		t.Errorf("URLWithBase() = %q, %v", got, ok)
	}
}
