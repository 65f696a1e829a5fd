// Package library keeps built crate indexes in memory and knows how to obtain
// missing ones: from the archive store when the ledger has seen the crate
// before, otherwise from docs.rs.
package library

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jcdickinson/rsfind/internal/cas"
	"github.com/jcdickinson/rsfind/internal/config"
	"github.com/jcdickinson/rsfind/internal/db"
	"github.com/jcdickinson/rsfind/internal/docs"
	"github.com/jcdickinson/rsfind/internal/index"
	"github.com/jcdickinson/rsfind/internal/rustdoc"
)

// Latest asks for whatever version docs.rs currently serves.
const Latest = "latest"

// Source says where an entry's documentation came from.
type Source string

const (
	SourceRemote Source = "docs.rs"
	SourceCache  Source = "cache"
	SourceFile   Source = "file"
)

// Entry is a built index together with where it came from.
type Entry struct {
	Name     string
	Version  string
	Source   Source
	LoadedAt time.Time
	Index    *index.Index
}

type versionEntry struct {
	version  string // resolved real version; empty for 404s
	notFound bool
	expiry   time.Time
}

type Library struct {
	cfg     *config.Config
	db      *db.DB
	fetcher *docs.Fetcher
	log     *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry

	versionMu sync.RWMutex
	versions  map[string]versionEntry

	group singleflight.Group
	now   func() time.Time
}

// New creates a library. database may be nil, in which case nothing is
// remembered across restarts and every crate is fetched again.
func New(cfg *config.Config, database *db.DB, fetcher *docs.Fetcher, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		cfg:      cfg,
		db:       database,
		fetcher:  fetcher,
		log:      logger,
		entries:  make(map[string]*Entry),
		versions: make(map[string]versionEntry),
		now:      time.Now,
	}
}

func key(name, version string) string { return name + "@" + version }

// Get returns the index for name at version, loading it if needed. An empty
// version means Latest. progress, if non-nil, receives human-readable status
// lines while a crate is fetched or rebuilt.
func (l *Library) Get(ctx context.Context, name, version string, progress func(string)) (*Entry, error) {
	if name == "" {
		return nil, errors.New("crate name is required")
	}
	if version == "" {
		version = Latest
	}
	if progress == nil {
		progress = func(string) {}
	}

	if version == Latest {
		resolved, err := l.resolveLatest(name)
		if err != nil {
			return nil, err
		}
		if resolved != "" {
			version = resolved
		}
	}

	if e := l.lookup(name, version); e != nil {
		l.touch(name, version)
		return e, nil
	}

	v, err, _ := l.group.Do(key(name, version), func() (interface{}, error) {
		return l.load(ctx, name, version, progress)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// resolveLatest maps Latest to a concrete version without touching the
// network: first the version cache, then a recent enough ledger row. It
// returns "" when the crate has to be fetched.
func (l *Library) resolveLatest(name string) (string, error) {
	if entry, ok := l.cachedVersion(name); ok {
		if entry.notFound {
			return "", fmt.Errorf("crate %s not found on docs.rs (cached): %w", name, docs.ErrNotFound)
		}
		return entry.version, nil
	}
	if l.db == nil {
		return "", nil
	}
	row, err := l.db.GetLatestCrate(name)
	if err != nil {
		return "", fmt.Errorf("looking up %s in ledger: %w", name, err)
	}
	if row == nil || row.FetchedAt == nil || l.now().Sub(*row.FetchedAt) > l.cfg.Cache.LatestTTL {
		return "", nil
	}
	l.setCachedVersion(name, row.Version, false)
	return row.Version, nil
}

func (l *Library) lookup(name, version string) *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[key(name, version)]
}

func (l *Library) store(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key(e.Name, e.Version)] = e
}

func (l *Library) touch(name, version string) {
	if l.db == nil {
		return
	}
	row, err := l.db.GetCrate(name, version)
	if err != nil || row == nil {
		return
	}
	if err := l.db.TouchCrate(row.ID); err != nil {
		l.log.Warn("touching crate", "crate", name, "version", version, "error", err)
	}
}

func (l *Library) load(ctx context.Context, name, version string, progress func(string)) (*Entry, error) {
	if version != Latest {
		if e, err := l.loadCached(name, version, progress); err != nil {
			l.log.Warn("cached archive unusable, fetching again", "crate", name, "version", version, "error", err)
		} else if e != nil {
			return e, nil
		}
	}
	return l.fetch(ctx, name, version, progress)
}

// loadCached rebuilds an index from the archive the ledger recorded for
// name@version. It returns nil, nil when there is nothing to rebuild from.
func (l *Library) loadCached(name, version string, progress func(string)) (*Entry, error) {
	if l.db == nil {
		return nil, nil
	}
	row, err := l.db.GetCrate(name, version)
	if err != nil {
		return nil, fmt.Errorf("looking up %s@%s in ledger: %w", name, version, err)
	}
	if row == nil || row.ContentHash == "" || !cas.Has(row.ContentHash) {
		return nil, nil
	}

	progress(fmt.Sprintf("loading cached rustdoc for %s@%s", name, version))
	data, err := cas.Read(row.ContentHash)
	if err != nil {
		return nil, err
	}
	crate, err := docs.NewRawJSON(data).Parse()
	if err != nil {
		return nil, err
	}
	e := l.build(name, version, SourceCache, crate, progress)
	l.record(row.ID, e)
	return e, nil
}

func (l *Library) fetch(ctx context.Context, name, version string, progress func(string)) (*Entry, error) {
	remote, err := docs.NewRemote(l.fetcher.BaseURL(), name, version)
	if err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("fetching rustdoc for %s@%s", name, version))
	compressed, err := remote.Fetch(ctx, l.fetcher)
	if err != nil {
		if version == Latest && errors.Is(err, docs.ErrNotFound) {
			l.setCachedVersion(name, "", true)
		}
		return nil, err
	}

	raw, err := compressed.Decompress()
	if err != nil {
		return nil, fmt.Errorf("%s@%s: %w", name, version, err)
	}

	progress(fmt.Sprintf("parsing rustdoc for %s@%s", name, version))
	crate, err := raw.Parse()
	if err != nil {
		return nil, fmt.Errorf("%s@%s: %w", name, version, err)
	}

	realVersion := version
	if v := crate.Version(); v != "" {
		realVersion = v
	}
	if version == Latest {
		l.setCachedVersion(name, realVersion, false)
		if e := l.lookup(name, realVersion); e != nil {
			return e, nil
		}
	}

	e := l.build(name, realVersion, SourceRemote, crate, progress)

	if l.db != nil {
		hash, err := cas.Write(raw.Bytes())
		if err != nil {
			l.log.Warn("storing archive", "crate", name, "version", realVersion, "error", err)
			return e, nil
		}
		row, err := l.db.UpsertCrate(name, realVersion, version, hash)
		if err != nil {
			l.log.Warn("recording crate in ledger", "crate", name, "version", realVersion, "error", err)
			return e, nil
		}
		l.record(row.ID, e)
	}
	return e, nil
}

func (l *Library) build(name, version string, source Source, crate *rustdoc.Crate, progress func(string)) *Entry {
	start := l.now()
	ix := index.Build(crate, index.WithDocsBaseURL(l.cfg.Docs.PageURL))
	e := &Entry{Name: name, Version: version, Source: source, LoadedAt: l.now(), Index: ix}
	l.store(e)

	l.log.Info("indexed crate",
		"crate", name, "version", version, "source", source,
		"keys", ix.Len(), "items", ix.ItemCount(), "elapsed", l.now().Sub(start))
	progress(fmt.Sprintf("indexed %s@%s (%d keys, %d items)", name, version, ix.Len(), ix.ItemCount()))
	return e
}

func (l *Library) record(crateID int, e *Entry) {
	if err := l.db.SetCounts(crateID, e.Index.Len(), e.Index.ItemCount()); err != nil {
		l.log.Warn("recording index size", "crate", e.Name, "version", e.Version, "error", err)
	}
}

// LoadFile indexes a local rustdoc JSON file, compressed or not, and makes it
// available under its crate name and version. Files never enter the ledger.
func (l *Library) LoadFile(path string) (*Entry, error) {
	raw, err := docs.Open(path)
	if err != nil {
		return nil, err
	}
	crate, err := raw.Parse()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	version := crate.Version()
	if version == "" {
		version = Latest
	}
	return l.build(crate.Name(), version, SourceFile, crate, func(string) {}), nil
}

// Loaded lists the indexes currently in memory, by name then version.
func (l *Library) Loaded() []Entry {
	l.mu.RLock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Version, b.Version)
	})
	return out
}

// Ledger lists every crate the ledger knows about.
func (l *Library) Ledger() ([]db.Crate, error) {
	if l.db == nil {
		return nil, nil
	}
	return l.db.ListCrates()
}

// Evict drops every in-memory index for name and returns how many there were.
func (l *Library) Evict(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.entries {
		if e.Name == name {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Purge forgets everything: in-memory indexes, resolved versions, the ledger
// and the archives it points at.
func (l *Library) Purge() error {
	l.mu.Lock()
	l.entries = make(map[string]*Entry)
	l.mu.Unlock()
	l.ClearVersions()

	if l.db == nil {
		return nil
	}
	rows, err := l.db.ListCrates()
	if err != nil {
		return fmt.Errorf("listing ledger: %w", err)
	}
	var errs []error
	for _, row := range rows {
		if row.ContentHash == "" {
			continue
		}
		if err := cas.Remove(row.ContentHash); err != nil {
			errs = append(errs, err)
		}
	}
	if err := l.db.ClearCrates(); err != nil {
		errs = append(errs, fmt.Errorf("clearing ledger: %w", err))
	}
	return errors.Join(errs...)
}

func (l *Library) cachedVersion(name string) (versionEntry, bool) {
	l.versionMu.RLock()
	defer l.versionMu.RUnlock()
	entry, ok := l.versions[name]
	if !ok || l.now().After(entry.expiry) {
		return versionEntry{}, false
	}
	return entry, true
}

func (l *Library) setCachedVersion(name, version string, notFound bool) {
	l.versionMu.Lock()
	defer l.versionMu.Unlock()
	l.versions[name] = versionEntry{
		version:  version,
		notFound: notFound,
		expiry:   l.now().Add(l.cfg.Cache.LatestTTL),
	}
}

// ClearVersions forgets which version "latest" resolved to.
func (l *Library) ClearVersions() {
	l.versionMu.Lock()
	defer l.versionMu.Unlock()
	l.versions = make(map[string]versionEntry)
}
