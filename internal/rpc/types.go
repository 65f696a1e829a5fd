package rpc

// AddCratesRequest is the request body for POST /add-crates.
type AddCratesRequest struct {
	Crates []CrateSpec `json:"crates"`
}

// CrateSpec names a crate to index. File, when set, is a local rustdoc JSON
// file on the daemon's filesystem and Name/Version are taken from it.
type CrateSpec struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	File    string `json:"file,omitempty"`
}

// AddCratesResponse is the response body for POST /add-crates.
type AddCratesResponse struct {
	Results []CrateResult `json:"results"`
}

type CrateResult struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	Keys    int    `json:"keys" yaml:"keys"`
	Items   int    `json:"items" yaml:"items"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProgressLine is a single line of NDJSON streamed from the add-crates endpoint.
type ProgressLine struct {
	Type    string       `json:"type"` // "progress" or "result"
	Message string       `json:"message,omitempty"`
	Result  *CrateResult `json:"result,omitempty"`
}

// SearchRequest is the request body for POST /search.
type SearchRequest struct {
	Crate   string `json:"crate"`
	Version string `json:"version,omitempty"`
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
}

// SearchResponse is the response body for POST /search.
type SearchResponse struct {
	Crate   string      `json:"crate" yaml:"crate"`
	Version string      `json:"version" yaml:"version"`
	Results []DocResult `json:"results" yaml:"results"`
}

type DocResult struct {
	URI        string `json:"uri" yaml:"uri"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Path       string `json:"path" yaml:"path"`
	Kind       string `json:"kind" yaml:"kind"`
	Signature  string `json:"signature,omitempty" yaml:"signature,omitempty"`
	Summary    string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Deprecated bool   `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// KeysRequest is the request body for POST /keys.
type KeysRequest struct {
	Crate   string `json:"crate"`
	Version string `json:"version,omitempty"`
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
}

// KeysResponse is the response body for POST /keys.
type KeysResponse struct {
	Crate   string      `json:"crate" yaml:"crate"`
	Version string      `json:"version" yaml:"version"`
	Results []KeyResult `json:"results" yaml:"results"`
}

type KeyResult struct {
	Path  string `json:"path" yaml:"path"`
	ID    string `json:"id" yaml:"id"`
	Score int    `json:"score" yaml:"score"`
}

// GetDocRequest is the request body for POST /get-doc. URI takes precedence
// over Crate/Version/Path when set.
type GetDocRequest struct {
	URI     string `json:"uri,omitempty"`
	Crate   string `json:"crate,omitempty"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path,omitempty"`
}

// GetDocResponse is the response body for POST /get-doc.
type GetDocResponse struct {
	URI      string `json:"uri"`
	Markdown string `json:"markdown"`
}

// DumpRequest is the request body for POST /dump.
type DumpRequest struct {
	Crate   string `json:"crate"`
	Version string `json:"version,omitempty"`
}

// SearchCratesRequest is the request body for POST /search-crates.
type SearchCratesRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchCratesResponse is the response body for POST /search-crates.
type SearchCratesResponse struct {
	Results []CrateSearchResult `json:"results" yaml:"results"`
}

type CrateSearchResult struct {
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	MaxVersion     string `json:"max_version" yaml:"max_version"`
	Downloads      int    `json:"downloads" yaml:"downloads"`
	IndexedVersion string `json:"indexed_version,omitempty" yaml:"indexed_version,omitempty"`
}

// ClearCacheRequest is the request body for POST /clear-cache. Without All
// only the resolved "latest" versions are forgotten.
type ClearCacheRequest struct {
	All bool `json:"all,omitempty"`
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	PID    int           `json:"pid" yaml:"pid"`
	Uptime string        `json:"uptime" yaml:"uptime"`
	Crates []CrateStatus `json:"crates" yaml:"crates"`
}

type CrateStatus struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	Requested string `json:"requested,omitempty" yaml:"requested,omitempty"`
	Loaded    bool   `json:"loaded" yaml:"loaded"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	Keys      int    `json:"keys" yaml:"keys"`
	Items     int    `json:"items" yaml:"items"`
	LastUsed  string `json:"last_used,omitempty" yaml:"last_used,omitempty"`
}
