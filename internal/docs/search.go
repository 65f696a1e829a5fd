package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type CratesIOResult struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	MaxVersion  string `json:"max_version" yaml:"max_version"`
	Downloads   int    `json:"downloads" yaml:"downloads"`
}

// SearchCratesIO searches crates.io for crates matching the query.
func SearchCratesIO(ctx context.Context, f *Fetcher, query string, limit int) ([]CratesIOResult, error) {
	if limit <= 0 {
		limit = 20
	}

	base := f.cratesIOURL
	if base == "" {
		base = "https://crates.io"
	}
	u := fmt.Sprintf("%s/api/v1/crates?q=%s&per_page=%s",
		strings.TrimRight(base, "/"), url.QueryEscape(query), strconv.Itoa(limit))

	data, err := f.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("searching crates.io: %w", err)
	}

	var payload struct {
		Crates []CratesIOResult `json:"crates"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding crates.io response: %w", err)
	}
	return payload.Crates, nil
}
