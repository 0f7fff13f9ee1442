package scripts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// DefaultCatalogURL is the GreasyFork base used when none is configured.
const DefaultCatalogURL = "https://greasyfork.org/en"

// ScriptSummary is one catalog search result.
type ScriptSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	CreatedAt   string `json:"created_at"`
	CodeURL     string `json:"code_url"`
	Author      string `json:"author"`
}

// catalogEntry mirrors the catalog's JSON. Every field is optional; entries
// without an id are dropped.
type catalogEntry struct {
	ID          *int64  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Version     *string `json:"version"`
	CreatedAt   *string `json:"created_at"`
	CodeURL     *string `json:"code_url"`
	Users       []struct {
		Name *string `json:"name"`
	} `json:"users"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (c catalogEntry) summary() (ScriptSummary, bool) {
	if c.ID == nil {
		return ScriptSummary{}, false
	}
	s := ScriptSummary{
		ID:          *c.ID,
		Name:        deref(c.Name),
		Description: deref(c.Description),
		Version:     deref(c.Version),
		CreatedAt:   deref(c.CreatedAt),
		CodeURL:     deref(c.CodeURL),
	}
	if len(c.Users) > 0 {
		s.Author = deref(c.Users[0].Name)
	}
	return s, true
}

// decodeSummaries reads a JSON array of catalog entries. Anything other than
// an array yields nil; entries that fail to decode are skipped.
func decodeSummaries(body []byte) []ScriptSummary {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	out := make([]ScriptSummary, 0, len(raw))
	for _, r := range raw {
		var e catalogEntry
		if err := json.Unmarshal(r, &e); err != nil {
			continue
		}
		if s, ok := e.summary(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Catalog queries a GreasyFork-compatible script catalog.
type Catalog struct {
	baseURL string
	fetcher Fetcher
}

// NewCatalog returns a catalog client rooted at baseURL.
func NewCatalog(baseURL string, fetcher Fetcher) *Catalog {
	if baseURL == "" {
		baseURL = DefaultCatalogURL
	}
	return &Catalog{baseURL: strings.TrimRight(baseURL, "/"), fetcher: fetcher}
}

// BySite lists scripts the catalog files under host.
func (c *Catalog) BySite(ctx context.Context, host string) ([]ScriptSummary, error) {
	body, err := c.fetcher.Fetch(ctx, fmt.Sprintf("%s/scripts/by-site/%s.json", c.baseURL, url.PathEscape(host)))
	if err != nil {
		return nil, err
	}
	return decodeSummaries(body), nil
}

// Search runs a keyword search.
func (c *Catalog) Search(ctx context.Context, query string) ([]ScriptSummary, error) {
	body, err := c.fetcher.Fetch(ctx, c.baseURL+"/scripts.json?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	return decodeSummaries(body), nil
}
