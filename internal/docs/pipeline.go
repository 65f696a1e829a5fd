package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// The pipeline moves a crate's documentation through a fixed sequence of
// stages. Each stage is a distinct type, so a stage can only be reached from
// the one before it:
//
//	Remote -> Compressed -> RawJSON -> *rustdoc.Crate

// zstdMagic is the little-endian zstd frame magic number 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// maxLayers bounds how many nested zstd frames Decompress will unwrap.
const maxLayers = 8

var decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
})

// Remote names a crate's rustdoc JSON archive on docs.rs.
type Remote struct {
	Name    string
	Version string
	URL     string
}

// NewRemote builds the archive URL for name at version. An empty version
// means "latest".
func NewRemote(baseURL, name, version string) (Remote, error) {
	if name == "" {
		return Remote{}, fmt.Errorf("crate name is required")
	}
	if version == "" {
		version = "latest"
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return Remote{}, fmt.Errorf("invalid docs base url %q", baseURL)
	}
	u := base.JoinPath("crate", name, version, "json.zst")
	return Remote{Name: name, Version: version, URL: u.String()}, nil
}

// Fetch downloads the archive.
func (r Remote) Fetch(ctx context.Context, f *Fetcher) (Compressed, error) {
	data, err := f.get(ctx, r.URL)
	if err != nil {
		return Compressed{}, fmt.Errorf("fetching docs for %s@%s: %w", r.Name, r.Version, err)
	}
	return Compressed{data: data}, nil
}

// Compressed holds an archive as downloaded, usually zstd.
type Compressed struct {
	data []byte
}

func NewCompressed(data []byte) Compressed { return Compressed{data: data} }

// LoadCompressed reads a .json.zst file.
func LoadCompressed(path string) (Compressed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Compressed{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Compressed{data: data}, nil
}

func (c Compressed) Bytes() []byte { return c.data }

// Decompress unwraps zstd frames for as long as the data still starts with
// the zstd magic. docs.rs sometimes serves archives compressed twice; data
// that is not compressed at all passes through unchanged.
func (c Compressed) Decompress() (RawJSON, error) {
	data := c.data
	for layer := 0; isCompressed(data); layer++ {
		if layer == maxLayers {
			return RawJSON{}, fmt.Errorf("more than %d zstd layers", maxLayers)
		}
		dec, err := decoder()
		if err != nil {
			return RawJSON{}, fmt.Errorf("creating zstd decoder: %w", err)
		}
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return RawJSON{}, fmt.Errorf("decompressing rustdoc JSON: %w", err)
		}
		data = out
	}
	return RawJSON{data: data}, nil
}

func isCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// RawJSON is an uncompressed rustdoc JSON document.
type RawJSON struct {
	data []byte
}

func NewRawJSON(data []byte) RawJSON { return RawJSON{data: data} }

// LoadRawJSON reads a .json file.
func LoadRawJSON(path string) (RawJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RawJSON{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return RawJSON{data: data}, nil
}

func (r RawJSON) Bytes() []byte { return r.data }

// Parse decodes the document.
func (r RawJSON) Parse() (*rustdoc.Crate, error) {
	var crate rustdoc.Crate
	if err := json.Unmarshal(r.data, &crate); err != nil {
		return nil, fmt.Errorf("unmarshaling rustdoc JSON: %w", err)
	}
	if crate.Index == nil {
		return nil, fmt.Errorf("unmarshaling rustdoc JSON: document has no index")
	}
	return &crate, nil
}

// Open reads a local rustdoc file, compressed or not. The format is detected
// from the content rather than the extension.
func Open(path string) (RawJSON, error) {
	c, err := LoadCompressed(path)
	if err != nil {
		return RawJSON{}, err
	}
	raw, err := c.Decompress()
	if err != nil {
		return RawJSON{}, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}
