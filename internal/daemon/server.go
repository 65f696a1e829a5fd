package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jcdickinson/rsfind/internal/config"
	"github.com/jcdickinson/rsfind/internal/db"
	"github.com/jcdickinson/rsfind/internal/docs"
	"github.com/jcdickinson/rsfind/internal/index"
	"github.com/jcdickinson/rsfind/internal/library"
	"github.com/jcdickinson/rsfind/internal/rpc"
)

type Server struct {
	cfg        *config.Config
	lib        *library.Library
	db         *db.DB
	fetcher    *docs.Fetcher
	log        *slog.Logger
	socketPath string
	httpServer *http.Server
	listener   net.Listener
	started    time.Time
	exit       func(int)

	mu         sync.Mutex
	expTimer   *time.Timer
	expiration time.Duration
}

// NewServer wires a server around an open ledger. The server owns database
// and closes it on Stop; database may be nil.
func NewServer(cfg *config.Config, database *db.DB, socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := docs.NewFetcher(cfg.Docs)

	expiration := cfg.Daemon.IdleTimeout
	if expiration <= 0 {
		expiration = 10 * time.Minute
	}

	return &Server{
		cfg:        cfg,
		lib:        library.New(cfg, database, fetcher, logger),
		db:         database,
		fetcher:    fetcher,
		log:        logger,
		socketPath: socketPath,
		started:    time.Now(),
		exit:       os.Exit,
		expiration: expiration,
	}
}

// Library exposes the server's crate indexes, mainly for in-process use.
func (s *Server) Library() *library.Library { return s.lib }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /add-crates", s.withExpReset(s.handleAddCrates))
	mux.HandleFunc("POST /search", s.withExpReset(s.handleSearch))
	mux.HandleFunc("POST /keys", s.withExpReset(s.handleKeys))
	mux.HandleFunc("POST /get-doc", s.withExpReset(s.handleGetDoc))
	mux.HandleFunc("POST /dump", s.withExpReset(s.handleDump))
	mux.HandleFunc("GET /status", s.withExpReset(s.handleStatus))
	mux.HandleFunc("POST /search-crates", s.withExpReset(s.handleSearchCrates))
	mux.HandleFunc("POST /clear-cache", s.withExpReset(s.handleClearCache))
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	srv := &http.Server{
		Handler:     s.routes(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = srv
	s.expTimer = time.AfterFunc(s.expiration, s.expire)
	s.mu.Unlock()

	s.log.Info("daemon listening", "socket", s.socketPath, "idle_timeout", s.expiration)

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.expTimer != nil {
		s.expTimer.Stop()
	}
	srv, listener := s.httpServer, s.listener
	s.mu.Unlock()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.log.Error("shutting down http server", "error", err)
			errs = append(errs, err)
		}
	}
	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Error("closing listener", "error", err)
			errs = append(errs, err)
		}
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.log.Error("removing socket", "error", err)
		errs = append(errs, err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Error("closing ledger", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) expire() {
	s.log.Info("expiring due to inactivity")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
	s.exit(0)
}

func (s *Server) resetExpiration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expTimer != nil {
		s.expTimer.Stop()
		s.expTimer.Reset(s.expiration)
	}
}

func (s *Server) withExpReset(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.resetExpiration()
		handler(w, r)
	}
}

func (s *Server) handleAddCrates(w http.ResponseWriter, r *http.Request) {
	var req rpc.AddCratesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	send := func(line rpc.ProgressLine) bool {
		if line.Message != "" {
			s.log.Debug(line.Message)
		}
		if err := enc.Encode(line); err != nil {
			s.log.Warn("client disconnected", "error", err)
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	for _, spec := range req.Crates {
		progress := func(msg string) {
			send(rpc.ProgressLine{Type: "progress", Message: msg})
		}
		result := s.addCrate(r.Context(), spec, progress)
		if !send(rpc.ProgressLine{Type: "result", Result: &result}) {
			return
		}
	}
}

func (s *Server) addCrate(ctx context.Context, spec rpc.CrateSpec, progress func(string)) rpc.CrateResult {
	result := rpc.CrateResult{Name: spec.Name, Version: spec.Version}

	var (
		e   *library.Entry
		err error
	)
	if spec.File != "" {
		progress(fmt.Sprintf("loading %s", spec.File))
		e, err = s.lib.LoadFile(spec.File)
	} else {
		e, err = s.lib.Get(ctx, spec.Name, spec.Version, progress)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Name = e.Name
	result.Version = e.Version
	result.Source = string(e.Source)
	result.Keys = e.Index.Len()
	result.Items = e.Index.ItemCount()
	return result
}

func (s *Server) limit(n int) int {
	switch {
	case n < 0:
		return index.NoLimit
	case n == 0:
		return s.cfg.Search.Limit
	default:
		return n
	}
}

// entry loads a crate for a request, mapping not-found to a 404.
func (s *Server) entry(w http.ResponseWriter, r *http.Request, name, version string) (*library.Entry, bool) {
	e, err := s.lib.Get(r.Context(), name, version, func(msg string) {
		s.log.Debug("auto-fetch", "message", msg)
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, docs.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return nil, false
	}
	return e, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req rpc.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Crate == "" {
		writeError(w, http.StatusBadRequest, "missing crate")
		return
	}

	e, ok := s.entry(w, r, req.Crate, req.Version)
	if !ok {
		return
	}

	items := e.Index.Search(req.Query, s.limit(req.Limit))
	resp := rpc.SearchResponse{Crate: e.Name, Version: e.Version, Results: make([]rpc.DocResult, 0, len(items))}
	for _, it := range items {
		resp.Results = append(resp.Results, docResult(e.Index, it))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	var req rpc.KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Crate == "" {
		writeError(w, http.StatusBadRequest, "missing crate")
		return
	}

	e, ok := s.entry(w, r, req.Crate, req.Version)
	if !ok {
		return
	}

	results := e.Index.SearchKeys(req.Query, s.limit(req.Limit))
	resp := rpc.KeysResponse{Crate: e.Name, Version: e.Version, Results: make([]rpc.KeyResult, 0, len(results))}
	for _, res := range results {
		kr := rpc.KeyResult{Path: res.Path, Score: res.Score}
		if res.Item != nil {
			kr.ID = res.Item.ID.String()
		}
		resp.Results = append(resp.Results, kr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	var req rpc.GetDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URI != "" {
		crateName, version, path, err := docs.ParseRsdocURI(req.URI)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Crate, req.Version, req.Path = crateName, version, path
	}
	if req.Crate == "" {
		writeError(w, http.StatusBadRequest, "missing crate")
		return
	}
	if req.Path == "" {
		req.Path = req.Crate
	}

	e, ok := s.entry(w, r, req.Crate, req.Version)
	if !ok {
		return
	}

	ix := e.Index
	item, found := ix.Lookup(req.Path)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("item %s not found in %s@%s", req.Path, e.Name, e.Version))
		return
	}

	// Follow re-exports of dependency items into the dependency's own docs.
	var via string
	if re := item.Reexport; re != nil {
		target := strings.Join(re.Path, index.PathSeparator)
		dep, err := s.lib.Get(r.Context(), re.Crate, library.Latest, nil)
		if err != nil {
			s.log.Warn("following re-export", "from", item.QualifiedName(), "crate", re.Crate, "error", err)
		} else if depItem, ok := dep.Index.Lookup(target); ok {
			via = item.QualifiedName()
			ix, item = dep.Index, depItem
		} else {
			s.log.Warn("re-export target missing", "from", item.QualifiedName(), "target", target)
		}
	}

	text, err := renderItem(ix, item, via)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rpc.GetDocResponse{URI: itemURI(ix, item), Markdown: text})
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	var req rpc.DumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Crate == "" {
		writeError(w, http.StatusBadRequest, "missing crate")
		return
	}
	e, ok := s.entry(w, r, req.Crate, req.Version)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := e.Index.WriteKeys(w); err != nil {
		s.log.Warn("writing key dump", "crate", e.Name, "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := s.lib.Ledger()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	loaded := make(map[string]library.Entry)
	for _, e := range s.lib.Loaded() {
		loaded[e.Name+"@"+e.Version] = e
	}

	resp := rpc.StatusResponse{
		PID:    os.Getpid(),
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Crates: []rpc.CrateStatus{},
	}
	for _, c := range rows {
		st := rpc.CrateStatus{
			Name:      c.Name,
			Version:   c.Version,
			Requested: c.Requested,
			Keys:      c.KeyCount,
			Items:     c.ItemCount,
			LastUsed:  c.LastUsedAt.Format(time.RFC3339),
		}
		if e, ok := loaded[c.Name+"@"+c.Version]; ok {
			st.Loaded = true
			st.Source = string(e.Source)
			delete(loaded, c.Name+"@"+c.Version)
		}
		resp.Crates = append(resp.Crates, st)
	}
	// Local files and anything loaded without a ledger.
	for _, e := range s.lib.Loaded() {
		if _, ok := loaded[e.Name+"@"+e.Version]; !ok {
			continue
		}
		resp.Crates = append(resp.Crates, rpc.CrateStatus{
			Name:    e.Name,
			Version: e.Version,
			Loaded:  true,
			Source:  string(e.Source),
			Keys:    e.Index.Len(),
			Items:   e.Index.ItemCount(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchCrates(w http.ResponseWriter, r *http.Request) {
	var req rpc.SearchCratesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	cratesIO, err := docs.SearchCratesIO(r.Context(), s.fetcher, req.Query, req.Limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	indexed := make(map[string]string)
	rows, err := s.lib.Ledger()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, c := range rows {
		indexed[c.Name] = c.Version
	}
	for _, e := range s.lib.Loaded() {
		indexed[e.Name] = e.Version
	}

	results := make([]rpc.CrateSearchResult, len(cratesIO))
	for i, c := range cratesIO {
		results[i] = rpc.CrateSearchResult{
			Name:           c.Name,
			Description:    c.Description,
			MaxVersion:     c.MaxVersion,
			Downloads:      c.Downloads,
			IndexedVersion: indexed[c.Name],
		}
	}

	writeJSON(w, http.StatusOK, rpc.SearchCratesResponse{Results: results})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	var req rpc.ClearCacheRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if !req.All {
		s.lib.ClearVersions()
		s.log.Info("version cache cleared")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if err := s.lib.Purge(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Info("cache purged")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
		s.exit(0)
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
