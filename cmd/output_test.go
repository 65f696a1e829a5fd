package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcdickinson/rsfind/internal/rpc"
)

func TestParseSpecs(t *testing.T) {
	specs, err := parseSpecs([]string{"serde", "tokio@1.40.0"}, []string{"doc.json"})
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, rpc.CrateSpec{Name: "serde"}, specs[0])
	assert.Equal(t, rpc.CrateSpec{Name: "tokio", Version: "1.40.0"}, specs[1])
	assert.True(t, filepath.IsAbs(specs[2].File))

	_, err = parseSpecs([]string{"@1.0.0"}, nil)
	assert.Error(t, err)

	_, err = parseSpecs(nil, nil)
	assert.Error(t, err)
}

func TestWriteSearch(t *testing.T) {
	styled = false

	var buf bytes.Buffer
	writeSearch(&buf, &rpc.SearchResponse{
		Crate:   "std",
		Version: "1.0.0",
		Results: []rpc.DocResult{{
			URI:       "rsdoc://std/1.0.0/std::fs::File",
			Path:      "std::fs::File",
			Kind:      "struct",
			Signature: "pub struct File",
			Summary:   "An open file.",
		}},
	})
	assert.Equal(t, "std::fs::File (struct)\n    pub struct File\n    An open file.\n    rsdoc://std/1.0.0/std::fs::File\n", buf.String())

	buf.Reset()
	writeSearch(&buf, &rpc.SearchResponse{Crate: "std", Version: "1.0.0"})
	assert.Equal(t, "no results in std@1.0.0\n", buf.String())
}

func TestWriteKeys(t *testing.T) {
	styled = false

	var buf bytes.Buffer
	writeKeys(&buf, &rpc.KeysResponse{
		Crate:   "std",
		Version: "1.0.0",
		Results: []rpc.KeyResult{{Path: "std::Baz", ID: "6", Score: 42}},
	})
	assert.Equal(t, "   42  std::Baz #6\n", buf.String())
}

func TestPrintStructured(t *testing.T) {
	defer func(f string) { format = f }(format)
	resp := &rpc.KeysResponse{Crate: "std", Version: "1.0.0"}

	format = "text"
	var buf bytes.Buffer
	assert.False(t, printStructured(&buf, resp))
	assert.Empty(t, buf.String())

	format = "json"
	require.True(t, printStructured(&buf, resp))
	assert.Contains(t, buf.String(), `"crate": "std"`)

	buf.Reset()
	format = "yaml"
	require.True(t, printStructured(&buf, resp))
	assert.Contains(t, buf.String(), "crate: std\n")
}
