// Package rss provides feed fetching and parsing.
package rss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bryan-buckman/newsreader/internal/logging"
	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxBodyBytes    = 10 << 20
	DefaultUserAgent       = "newsreader/1.0 (+https://github.com/bryan-buckman/newsreader)"
	DefaultPerHostInterval = 500 * time.Millisecond
)

// Options configures a Fetcher.
type Options struct {
	Timeout         time.Duration // connect and read bound, each
	MaxBodyBytes    int64
	UserAgent       string
	PerHostInterval time.Duration // minimum spacing between requests to one host
	Client          *http.Client  // overrides the built client when set
	Logger          *log.Logger
}

// hostLimiter spaces out requests to the same host so a sync pass over many
// subscriptions on one site does not hammer it.
type hostLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// wait blocks until the host may be contacted again.
func (h *hostLimiter) wait(ctx context.Context, host string) error {
	if h.interval <= 0 || host == "" {
		return nil
	}
	h.mu.RLock()
	l, ok := h.limiters[host]
	h.mu.RUnlock()
	if !ok {
		h.mu.Lock()
		if l, ok = h.limiters[host]; !ok {
			l = rate.NewLimiter(rate.Every(h.interval), 1)
			h.limiters[host] = l
		}
		h.mu.Unlock()
	}
	return l.Wait(ctx)
}

// extractHost gets the host from a URL.
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// Fetcher performs plain HTTP GETs for feeds, block lists and scripts.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	limiter      *hostLimiter
	logger       *log.Logger
}

// NewFetcher creates a fetcher with bounded timeouts.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.PerHostInterval < 0 {
		opts.PerHostInterval = 0
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			// Connect and read are bounded separately; the overall
			// deadline covers both plus the body transfer.
			Timeout: 2 * opts.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: opts.Timeout,
				}).DialContext,
				TLSHandshakeTimeout:   opts.Timeout,
				ResponseHeaderTimeout: opts.Timeout,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}
	return &Fetcher{
		client:       client,
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		limiter:      newHostLimiter(opts.PerHostInterval),
		logger:       logging.OrDiscard(opts.Logger).WithPrefix("fetch"),
	}
}

// Fetch retrieves the body at rawURL. Every failure is a *NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.wait(ctx, extractHost(rawURL)); err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBodyBytes)}
	}
	f.logger.Debug("fetched", "url", rawURL, "bytes", len(body), "took", time.Since(start))
	return body, nil
}

// FetchFeed fetches and parses a feed. A body that is not a feed document
// surfaces as a *ParseError, so "valid but empty" stays distinguishable from
// "broken".
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) ([]Draft, []byte, error) {
	body, err := f.Fetch(ctx, feedURL)
	if err != nil {
		return nil, nil, err
	}
	drafts, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, body, fmt.Errorf("%s: %w", feedURL, err)
	}
	return drafts, body, nil
}

// FeedMeta is channel-level information about a feed.
type FeedMeta struct {
	Title       string
	Description string
	Link        string
}

// ProbeMetadata reads the channel title and description from a fetched feed
// body. It is best effort; a body gofeed cannot read yields an empty FeedMeta.
func ProbeMetadata(body []byte) FeedMeta {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil || feed == nil {
		return FeedMeta{}
	}
	return FeedMeta{
		Title:       strings.TrimSpace(feed.Title),
		Description: CleanText(feed.Description),
		Link:        strings.TrimSpace(feed.Link),
	}
}
