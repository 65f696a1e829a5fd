package index

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

func loadCrate(t *testing.T) *rustdoc.Crate {
	t.Helper()
	data, err := os.ReadFile("testdata/std.json")
	require.NoError(t, err)
	var crate rustdoc.Crate
	require.NoError(t, json.Unmarshal(data, &crate))
	return &crate
}

func keyPaths(keys []SearchKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Path
	}
	return out
}

func TestGenerateKeys(t *testing.T) {
	t.Parallel()

	ix := Build(loadCrate(t))
	want := []SearchKey{
		{"0", "std"},
		{"1", "std::fs"},
		{"2", "std::fs::File"},
		{"10", "std::fs::File::open"},
		{"11", "std::io::Read::read"},
		{"5", "std::foo"},
		{"6", "std::foo::Bar"},
		{"20", "std::io"},
		{"30", "std::io::Read"},
		{"12", "std::io::Read::read"},
		{"50", "std::Mode"},
		{"54", "std::Mode::is_read"},
		{"51", "std::Mode::Read"},
		{"52", "std::Mode::Write"},
		{"6", "std::Baz"},
	}
	assert.Equal(t, want, ix.Keys())
	assert.Equal(t, len(want), ix.Len())
	assert.Equal(t, 14, ix.ItemCount())
}

func TestGenerateKeys_Idempotent(t *testing.T) {
	t.Parallel()

	crate := loadCrate(t)
	first := Build(crate).Keys()
	for range 5 {
		assert.Equal(t, first, Build(crate).Keys())
	}
}

func TestGenerateKeys_TraitPrefix(t *testing.T) {
	t.Parallel()

	paths := keyPaths(Build(loadCrate(t)).Keys())
	assert.Contains(t, paths, "std::fs::File::open")
	assert.Contains(t, paths, "std::io::Read::read")
	assert.NotContains(t, paths, "std::fs::File::read")
	// The impl of an unresolvable trait is skipped entirely.
	assert.NotContains(t, paths, "std::fs::File::fmt")
	for _, p := range paths {
		assert.False(t, strings.HasSuffix(p, "::fmt"), p)
	}
}

func TestGenerateKeys_UnionImpls(t *testing.T) {
	t.Parallel()

	crate := loadCrate(t)
	name := func(s string) *string { return &s }
	pub := rustdoc.Visibility{Kind: "public"}
	crate.Index["90"] = rustdoc.Item{ID: "90", Name: name("U"), Visibility: pub,
		Inner: &rustdoc.Union{Impls: []rustdoc.ID{"91", "92"}}}
	crate.Index["91"] = rustdoc.Item{ID: "91", Visibility: rustdoc.Visibility{Kind: "default"},
		Inner: &rustdoc.Impl{Items: []rustdoc.ID{"93"}}}
	crate.Index["92"] = rustdoc.Item{ID: "92", Visibility: rustdoc.Visibility{Kind: "default"},
		Inner: &rustdoc.Impl{Trait: &rustdoc.Path{Path: "io::Read", ID: "30"}, Items: []rustdoc.ID{"94"}}}
	crate.Index["93"] = rustdoc.Item{ID: "93", Name: name("m"), Visibility: pub, Inner: &rustdoc.Function{}}
	crate.Index["94"] = rustdoc.Item{ID: "94", Name: name("n"), Visibility: rustdoc.Visibility{Kind: "default"},
		Inner: &rustdoc.Function{}}
	crate.Paths["90"] = rustdoc.Summary{Path: []string{"std", "U"}, Kind: rustdoc.KindUnion}
	root := crate.Index["0"].Inner.(*rustdoc.Module)
	root.Items = append(root.Items, "90")

	ix := Build(crate)
	assert.Subset(t, ix.Keys(), []SearchKey{
		{"90", "std::U"},
		{"93", "std::U::m"},
		{"94", "std::io::Read::n"},
	})
	assert.NotContains(t, keyPaths(ix.Keys()), "std::U::n")

	it, ok := ix.Lookup("std::U::m")
	require.True(t, ok)
	assert.Equal(t, rustdoc.ID("93"), it.ID)
}

func TestGenerateKeys_ReexportAlias(t *testing.T) {
	t.Parallel()

	ix := Build(loadCrate(t))
	var viaAlias, viaDecl []rustdoc.ID
	for _, k := range ix.Keys() {
		switch k.Path {
		case "std::Baz":
			viaAlias = append(viaAlias, k.ID)
		case "std::foo::Bar":
			viaDecl = append(viaDecl, k.ID)
		}
	}
	require.Len(t, viaAlias, 1)
	require.Len(t, viaDecl, 1)
	assert.Equal(t, viaDecl[0], viaAlias[0])

	// Glob re-exports are never keyed.
	for _, k := range ix.Keys() {
		assert.NotEqual(t, rustdoc.ID("70"), k.ID)
	}
}

func TestGenerateKeys_SkipsExternalSummaries(t *testing.T) {
	t.Parallel()

	for _, p := range keyPaths(Build(loadCrate(t)).Keys()) {
		assert.False(t, strings.HasPrefix(p, "core::"), p)
	}
}

func TestGenerateKeys_DropsMissingItems(t *testing.T) {
	t.Parallel()

	crate := loadCrate(t)
	crate.Paths["77"] = rustdoc.Summary{Path: []string{"std", "Ghost"}, Kind: rustdoc.KindStruct}
	ix := Build(crate)
	assert.NotContains(t, keyPaths(ix.Keys()), "std::Ghost")
	_, ok := ix.Item("77")
	assert.False(t, ok)
}

func TestItems(t *testing.T) {
	t.Parallel()

	ix := Build(loadCrate(t))

	file, ok := ix.Item("2")
	require.True(t, ok)
	assert.Equal(t, "File", file.Name)
	assert.Equal(t, []string{"std", "fs", "File"}, file.Path)
	assert.Equal(t, rustdoc.KindStruct, file.Kind)
	assert.Equal(t, "1.0.0", file.CrateVersion)
	assert.Equal(t, "std", file.CrateName)
	assert.Equal(t, "std::fs::File", file.QualifiedName())
	assert.Equal(t, map[string]rustdoc.ID{"`Read`": "30", "`Thing`": "99"}, file.Links)
	assert.Equal(t, map[string]string{
		"`Read`":  "https://docs.rs/std/1.0.0/io/trait.Read.html",
		"`Thing`": "https://doc.rust-lang.org/nightly/core/struct.Thing.html",
	}, file.LinkURLs)

	open, ok := ix.Item("10")
	require.True(t, ok)
	assert.Equal(t, []string{"std", "fs", "File", "open"}, open.Path)
	assert.Equal(t, rustdoc.KindFunction, open.Kind)
	assert.Equal(t, "Opens a file in read-only mode.", open.Docs)

	variant, ok := ix.Item("51")
	require.True(t, ok)
	assert.Equal(t, rustdoc.KindVariant, variant.Kind)

	mode, ok := ix.Item("50")
	require.True(t, ok)
	assert.True(t, mode.Deprecated())

	// First key wins: the summary path, not the alias.
	bar, ok := ix.Item("6")
	require.True(t, ok)
	assert.Equal(t, []string{"std", "foo", "Bar"}, bar.Path)
}

func TestInferKind(t *testing.T) {
	t.Parallel()

	crate := loadCrate(t)
	tests := []struct {
		id   rustdoc.ID
		want rustdoc.Kind
	}{
		{"2", rustdoc.KindStruct},
		{"10", rustdoc.KindFunction},
		{"3", rustdoc.KindImpl},
		{"60", rustdoc.KindStruct},
		{"70", rustdoc.KindUnknown},
		{"404", rustdoc.KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferKind(crate, tt.id), "id %s", tt.id)
	}

	// Without a target summary the target's payload decides.
	delete(crate.Paths, "6")
	assert.Equal(t, rustdoc.KindStruct, inferKind(crate, "60"))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	ix := Build(loadCrate(t))

	it, ok := ix.Lookup("STD::fs::file")
	require.True(t, ok)
	assert.Equal(t, rustdoc.ID("2"), it.ID)

	it, ok = ix.Lookup("std/Baz")
	require.True(t, ok)
	assert.Equal(t, rustdoc.ID("6"), it.ID)

	_, ok = ix.Lookup("std::nope")
	assert.False(t, ok)
}

func TestWriteKeys(t *testing.T) {
	t.Parallel()

	ix := Build(loadCrate(t))
	var buf bytes.Buffer
	require.NoError(t, ix.WriteKeys(&buf))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, keyPaths(ix.Keys()), lines)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestWriteKeys_Error(t *testing.T) {
	t.Parallel()

	err := Build(loadCrate(t)).WriteKeys(failingWriter{})
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestNilIndex(t *testing.T) {
	t.Parallel()

	var ix *Index
	assert.Nil(t, ix.Search("anything", NoLimit))
	assert.Nil(t, ix.Keys())
	assert.Zero(t, ix.Len())
	_, ok := ix.Item("0")
	assert.False(t, ok)
}

func TestChildren(t *testing.T) {
	t.Parallel()

	ix := Build(loadCrate(t))
	childPaths := func(path string) []string {
		var out []string
		for _, r := range ix.Children(path) {
			out = append(out, r.Path)
		}
		return out
	}

	assert.Equal(t, []string{"std::Mode::is_read", "std::Mode::Read", "std::Mode::Write"}, childPaths("std::Mode"))
	assert.Equal(t, []string{"std::fs::File::open"}, childPaths("std/fs/File"))
	assert.Equal(t, []string{"std::fs", "std::foo", "std::io", "std::Mode", "std::Baz"}, childPaths("std"))
	assert.Empty(t, childPaths("std::foo::Bar"))
}

func TestItems_Signature(t *testing.T) {
	t.Parallel()

	ix := Build(loadCrate(t))
	file, _ := ix.Item("2")
	assert.Equal(t, "pub struct File { .. }", file.Signature)
	open, _ := ix.Item("10")
	assert.Equal(t, "pub fn open()", open.Signature)
	bar, _ := ix.Item("6")
	assert.Equal(t, "pub struct Bar;", bar.Signature)
}

func TestItems_ExternalReexport(t *testing.T) {
	t.Parallel()

	crate := loadCrate(t)
	target := rustdoc.ID("99")
	crate.Index["80"] = rustdoc.Item{
		ID:         "80",
		Visibility: rustdoc.Visibility{Kind: "public"},
		Inner:      &rustdoc.Use{Source: "core::Thing", Name: "Thing", ID: &target},
	}
	root := crate.Index["0"].Inner.(*rustdoc.Module)
	root.Items = append(root.Items, "80")

	ix := Build(crate)
	it, ok := ix.Lookup("std::Thing")
	require.True(t, ok)
	assert.Equal(t, rustdoc.ID("80"), it.ID)
	assert.Equal(t, "Thing", it.Name)
	assert.Equal(t, rustdoc.KindStruct, it.Kind)
	require.NotNil(t, it.Reexport)
	assert.Equal(t, "core", it.Reexport.Crate)
	assert.Equal(t, []string{"core", "Thing"}, it.Reexport.Path)
	assert.Equal(t, "pub use core::Thing;", it.Signature)

	file, _ := ix.Item("2")
	assert.Nil(t, file.Reexport)
}
