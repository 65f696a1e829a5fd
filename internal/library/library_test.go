package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcdickinson/rsfind/internal/cas"
	"github.com/jcdickinson/rsfind/internal/config"
	"github.com/jcdickinson/rsfind/internal/db"
	"github.com/jcdickinson/rsfind/internal/docs"
)

const tinyCrate = `{"root":0,"crate_version":"0.3.1","format_version":43,
	"index":{
		"0":{"id":0,"crate_id":0,"name":"tiny","visibility":"public",
			"inner":{"module":{"is_crate":true,"items":[1],"is_stripped":false}}},
		"1":{"id":1,"crate_id":0,"name":"Widget","visibility":"public","docs":"A widget.",
			"inner":{"struct":{"kind":"unit","generics":{"params":[],"where_predicates":[]},"impls":[]}}}},
	"paths":{
		"0":{"crate_id":0,"path":["tiny"],"kind":"module"},
		"1":{"crate_id":0,"path":["tiny","Widget"],"kind":"struct"}},
	"external_crates":{}}`

// docsServer serves tiny at 0.3.1 (also as "latest") and 404s everything
// else. It counts requests.
func docsServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	archive := enc.EncodeAll([]byte(tinyCrate), nil)
	enc.Close()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/crate/tiny/latest/json.zst", "/crate/tiny/0.3.1/json.zst":
			w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Docs: config.DocsConfig{
			BaseURL:           baseURL,
			PageURL:           "https://docs.rs",
			Timeout:           5 * time.Second,
			UserAgent:         "rsfind-test",
			RequestsPerSecond: 1000,
		},
		Cache: config.CacheConfig{LatestTTL: time.Hour},
	}
}

func newLibrary(t *testing.T, withDB bool) (*Library, *atomic.Int32, *db.DB) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	srv, hits := docsServer(t)
	cfg := testConfig(srv.URL)

	var database *db.DB
	if withDB {
		var err error
		database, err = db.New(config.DBPath())
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
	}
	return New(cfg, database, docs.NewFetcher(cfg.Docs), nil), hits, database
}

func TestGet_LatestResolvesAndCaches(t *testing.T) {
	lib, hits, _ := newLibrary(t, false)
	ctx := context.Background()

	var progress []string
	e, err := lib.Get(ctx, "tiny", "", func(msg string) { progress = append(progress, msg) })
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", e.Version)
	assert.Equal(t, SourceRemote, e.Source)
	assert.NotEmpty(t, progress)

	item, ok := e.Index.Lookup("tiny::Widget")
	require.True(t, ok)
	assert.Equal(t, "A widget.", item.Docs)

	// Both "latest" and the concrete version are now served from memory.
	again, err := lib.Get(ctx, "tiny", Latest, nil)
	require.NoError(t, err)
	assert.Same(t, e, again)
	again, err = lib.Get(ctx, "tiny", "0.3.1", nil)
	require.NoError(t, err)
	assert.Same(t, e, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_ConcurrentCallersShareFetch(t *testing.T) {
	lib, hits, _ := newLibrary(t, false)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lib.Get(context.Background(), "tiny", "0.3.1", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_NotFoundIsCached(t *testing.T) {
	lib, hits, _ := newLibrary(t, false)
	ctx := context.Background()

	_, err := lib.Get(ctx, "nope", "", nil)
	require.ErrorIs(t, err, docs.ErrNotFound)
	_, err = lib.Get(ctx, "nope", "", nil)
	require.ErrorIs(t, err, docs.ErrNotFound)
	assert.Equal(t, int32(1), hits.Load())

	lib.ClearVersions()
	_, err = lib.Get(ctx, "nope", "", nil)
	require.ErrorIs(t, err, docs.ErrNotFound)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGet_RequiresName(t *testing.T) {
	lib, _, _ := newLibrary(t, false)
	_, err := lib.Get(context.Background(), "", "1.0.0", nil)
	assert.Error(t, err)
}

func TestGet_RebuildsFromLedger(t *testing.T) {
	lib, hits, database := newLibrary(t, true)
	ctx := context.Background()

	e, err := lib.Get(ctx, "tiny", "", nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	row, err := database.GetCrate("tiny", "0.3.1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, Latest, row.Requested)
	assert.Equal(t, e.Index.Len(), row.KeyCount)
	assert.Equal(t, e.Index.ItemCount(), row.ItemCount)
	assert.True(t, cas.Has(row.ContentHash))

	// A fresh library over the same ledger needs no network at all.
	fresh := New(lib.cfg, database, lib.fetcher, nil)
	cached, err := fresh.Get(ctx, "tiny", "", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, cached.Source)
	assert.Equal(t, "0.3.1", cached.Version)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_StaleLatestRefetches(t *testing.T) {
	lib, hits, database := newLibrary(t, true)
	ctx := context.Background()

	_, err := lib.Get(ctx, "tiny", "", nil)
	require.NoError(t, err)

	fresh := New(lib.cfg, database, lib.fetcher, nil)
	fresh.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = fresh.Get(ctx, "tiny", "", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestPurge(t *testing.T) {
	lib, _, database := newLibrary(t, true)
	ctx := context.Background()

	_, err := lib.Get(ctx, "tiny", "0.3.1", nil)
	require.NoError(t, err)
	row, err := database.GetCrate("tiny", "0.3.1")
	require.NoError(t, err)
	require.NotNil(t, row)

	require.NoError(t, lib.Purge())
	assert.Empty(t, lib.Loaded())
	assert.False(t, cas.Has(row.ContentHash))
	rows, err := lib.Ledger()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadFileAndEvict(t *testing.T) {
	lib, hits, _ := newLibrary(t, false)

	path := filepath.Join(t.TempDir(), "tiny.json")
	require.NoError(t, os.WriteFile(path, []byte(tinyCrate), 0o644))

	e, err := lib.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", e.Name)
	assert.Equal(t, SourceFile, e.Source)

	got, err := lib.Get(context.Background(), "tiny", "0.3.1", nil)
	require.NoError(t, err)
	assert.Same(t, e, got)
	assert.Zero(t, hits.Load())

	loaded := lib.Loaded()
	require.Len(t, loaded, 1)
	assert.Equal(t, "0.3.1", loaded[0].Version)

	assert.Equal(t, 1, lib.Evict("tiny"))
	assert.Empty(t, lib.Loaded())
	assert.Zero(t, lib.Evict("tiny"))
}
