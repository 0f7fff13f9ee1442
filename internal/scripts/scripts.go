// Package scripts matches installed userscripts to pages and searches a
// remote script catalog for new ones.
package scripts

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/bryan-buckman/newsreader/internal/logging"
	"github.com/bryan-buckman/newsreader/internal/model"
	"github.com/charmbracelet/log"
)

// ErrNoCodeURL is returned by FetchCode for a summary without a code URL.
var ErrNoCodeURL = errors.New("script has no code url")

// Fetcher retrieves a remote body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Store is the persistence the engine needs.
type Store interface {
	UpsertScript(script *model.Script) (int64, error)
	GetScripts() ([]model.Script, error)
	GetScriptsForURL(url string) ([]model.Script, error)
	SetScriptEnabled(id int64, enabled bool) error
	DeleteScript(id int64) error
}

// Engine owns installed scripts and catalog lookups.
type Engine struct {
	store   Store
	catalog *Catalog
	fetcher Fetcher
	logger  *log.Logger
}

// NewEngine wires the engine to its store and a catalog client.
func NewEngine(store Store, catalog *Catalog, fetcher Fetcher, logger *log.Logger) *Engine {
	return &Engine{store: store, catalog: catalog, fetcher: fetcher, logger: logging.OrDiscard(logger).WithPrefix("scripts")}
}

// ScriptsForURL returns enabled scripts whose domain pattern is a substring
// of pageURL. The match is plain containment: "a.com" also matches
// "notreallya.com".
func (e *Engine) ScriptsForURL(pageURL string) ([]model.Script, error) {
	return e.store.GetScriptsForURL(pageURL)
}

// Install stores a new enabled script.
func (e *Engine) Install(domain, code string) (*model.Script, error) {
	s := &model.Script{DomainMatch: strings.TrimSpace(domain), Code: code, Enabled: true}
	if s.DomainMatch == "" {
		return nil, errors.New("domain match is required")
	}
	if _, err := e.store.UpsertScript(s); err != nil {
		return nil, err
	}
	e.logger.Info("script installed", "id", s.ID, "domain", s.DomainMatch)
	return s, nil
}

// Update replaces an installed script.
func (e *Engine) Update(s model.Script) error {
	_, err := e.store.UpsertScript(&s)
	return err
}

// SetEnabled turns an installed script on or off.
func (e *Engine) SetEnabled(id int64, enabled bool) error { return e.store.SetScriptEnabled(id, enabled) }

// Delete uninstalls a script.
func (e *Engine) Delete(id int64) error { return e.store.DeleteScript(id) }

// List returns every installed script.
func (e *Engine) List() ([]model.Script, error) { return e.store.GetScripts() }

// CandidateHosts returns the hosts searched for domain, most specific first:
// the domain itself, its parent when it has three or more labels, and the
// domain without a leading "www.".
func CandidateHosts(domain string) []string {
	host := normalizeHost(domain)
	if host == "" {
		return nil
	}
	candidates := []string{host}
	if labels := strings.Split(host, "."); len(labels) >= 3 {
		candidates = append(candidates, strings.Join(labels[1:], "."))
	}
	candidates = append(candidates, strings.TrimPrefix(host, "www."))

	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// normalizeHost accepts a bare domain or a full URL.
func normalizeHost(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if strings.Contains(d, "://") {
		if u, err := url.Parse(d); err == nil {
			d = u.Hostname()
		}
	}
	return strings.Trim(d, "./")
}

// SearchRemoteForDomain looks up catalog scripts for domain. Site listings
// for every candidate host are tried first and, if any return results, their
// union is the answer. Otherwise a keyword search for the most specific host
// runs and only results that mention the host are kept. Catalog failures
// count as no results.
func (e *Engine) SearchRemoteForDomain(ctx context.Context, domain string) []ScriptSummary {
	hosts := CandidateHosts(domain)
	if len(hosts) == 0 {
		return nil
	}

	var found []ScriptSummary
	seen := make(map[int64]struct{})
	for _, h := range hosts {
		res, err := e.catalog.BySite(ctx, h)
		if err != nil {
			e.logger.Debug("site lookup failed", "host", h, "err", err)
			continue
		}
		for _, s := range res {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			found = append(found, s)
		}
	}
	if len(found) > 0 {
		return found
	}

	host := hosts[0]
	res, err := e.catalog.Search(ctx, host)
	if err != nil {
		e.logger.Debug("catalog search failed", "host", host, "err", err)
		return nil
	}
	for _, s := range res {
		if _, ok := seen[s.ID]; ok || !mentions(s, host) {
			continue
		}
		seen[s.ID] = struct{}{}
		found = append(found, s)
	}
	return found
}

func mentions(s ScriptSummary, host string) bool {
	h := strings.ToLower(host)
	return strings.Contains(strings.ToLower(s.Name), h) ||
		strings.Contains(strings.ToLower(s.Description), h) ||
		strings.Contains(strings.ToLower(s.CodeURL), h)
}

// FetchCode downloads the source of a catalog script.
func (e *Engine) FetchCode(ctx context.Context, s ScriptSummary) (string, error) {
	if s.CodeURL == "" {
		return "", ErrNoCodeURL
	}
	body, err := e.fetcher.Fetch(ctx, s.CodeURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
