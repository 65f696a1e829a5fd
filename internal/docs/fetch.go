package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jcdickinson/rsfind/internal/config"
)

// ErrNotFound matches an *HTTPError for a 404 response.
var ErrNotFound = errors.New("not found")

// HTTPError is a non-200 response from docs.rs or crates.io.
type HTTPError struct {
	Status int
	URL    string
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned %d", e.URL, e.Status)
	}
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.Status, e.Body)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Fetcher issues rate-limited GET requests on behalf of the pipeline and the
// crates.io search.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	limiter     *rate.Limiter
	baseURL     string
	cratesIOURL string
}

func NewFetcher(cfg config.DocsConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		userAgent:   cfg.UserAgent,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:     cfg.BaseURL,
		cratesIOURL: cfg.CratesIOURL,
	}
}

// BaseURL is the docs.rs host archives are fetched from.
func (f *Fetcher) BaseURL() string { return f.baseURL }

// get performs a GET and returns the body of a 200 response. Other statuses
// become an *HTTPError carrying the start of the body.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPError{Status: resp.StatusCode, URL: url, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}
