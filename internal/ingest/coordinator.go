// Package ingest fetches subscribed feeds and stores the articles they add.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bryan-buckman/newsreader/internal/database"
	"github.com/bryan-buckman/newsreader/internal/filter"
	"github.com/bryan-buckman/newsreader/internal/logging"
	"github.com/bryan-buckman/newsreader/internal/model"
	"github.com/bryan-buckman/newsreader/internal/rss"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyFeed rejects a subscription whose feed parsed but had no items.
var ErrEmptyFeed = errors.New("feed parsed but contains no items")

// DefaultConcurrency bounds parallel syncs on stores that allow it.
const DefaultConcurrency = 8

// DefaultPassTimeout bounds one shared sync pass.
const DefaultPassTimeout = 10 * time.Minute

// FeedFetcher retrieves and parses one feed. The raw body is returned for
// metadata probing.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) ([]rss.Draft, []byte, error)
}

// Notifier is told about each newly stored article whose title matches an
// interest keyword.
type Notifier interface {
	ArticleMatched(title string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title string)

func (f NotifierFunc) ArticleMatched(title string) { f(title) }

// Options configures a Coordinator.
type Options struct {
	// Concurrency caps parallel feed syncs. Stores without high write
	// concurrency always sync one feed at a time.
	Concurrency int
	Notifier    Notifier
	Logger      *log.Logger
	// Now is the clock used for last-sync bookkeeping.
	Now func() time.Time
	// PassTimeout bounds a SyncAll pass. Zero uses DefaultPassTimeout.
	PassTimeout time.Duration
}

// Coordinator runs subscription validation and sync passes.
type Coordinator struct {
	store    database.Store
	fetcher  FeedFetcher
	notifier Notifier
	logger   *log.Logger
	limit    int
	now      func() time.Time
	timeout  time.Duration

	flight   singleflight.Group
	brokenMu sync.Mutex
}

// New creates a coordinator.
func New(store database.Store, fetcher FeedFetcher, opts Options) *Coordinator {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if !store.SupportsHighConcurrency() {
		limit = 1
	}
	timeout := opts.PassTimeout
	if timeout <= 0 {
		timeout = DefaultPassTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	return &Coordinator{
		store:    store,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logging.OrDiscard(opts.Logger).WithPrefix("sync"),
		limit:    limit,
		now:      now,
		timeout:  timeout,
	}
}

// AddRequest describes a subscription the user wants to add.
type AddRequest struct {
	URL           string
	Title         string
	Description   string
	Categories    []string
	Country       string
	EditorialLine string
}

// AddSubscription validates the feed at req.URL and, if it yields at least
// one article, stores the subscription and its articles. A fetch or parse
// failure records the URL as broken and is returned unchanged. A feed with no
// items returns ErrEmptyFeed. Nothing is stored in either case.
func (c *Coordinator) AddSubscription(ctx context.Context, req AddRequest) (*model.Subscription, error) {
	feedURL := strings.TrimSpace(req.URL)
	if feedURL == "" {
		return nil, errors.New("feed url is required")
	}

	drafts, body, err := c.fetcher.FetchFeed(ctx, feedURL)
	if err != nil {
		if !interrupted(ctx, err) {
			c.markBroken(feedURL)
		}
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, ErrEmptyFeed
	}

	meta := rss.ProbeMetadata(body)
	sub := &model.Subscription{
		URL:           feedURL,
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Categories:    model.ParseCategories(req.Categories),
		Country:       strings.TrimSpace(req.Country),
		EditorialLine: model.ParseEditorialLine(req.EditorialLine),
	}
	if sub.Title == "" {
		sub.Title = meta.Title
	}
	if sub.Title == "" {
		sub.Title = hostOf(feedURL)
	}
	if sub.Description == "" {
		sub.Description = meta.Description
	}
	if sub.Country == "" {
		sub.Country = model.DefaultCountry
	}
	if _, err := c.store.UpsertSubscription(sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	c.logger.Info("subscription added", "url", feedURL, "title", sub.Title)

	links, err := c.store.GetArticleLinks()
	if err != nil {
		return sub, fmt.Errorf("load links: %w", err)
	}
	whitelist, err := database.GetStringSet(c.store, model.SettingKeywordWhitelist)
	if err != nil {
		return sub, fmt.Errorf("load whitelist: %w", err)
	}
	if _, err := c.storeDrafts(*sub, drafts, links, whitelist); err != nil {
		return sub, err
	}
	return sub, nil
}

func hostOf(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	return raw
}

// DeleteSubscription removes a subscription and every article it owns.
func (c *Coordinator) DeleteSubscription(id int64) error {
	return c.store.DeleteSubscription(id)
}

// SyncFailure records one subscription that could not be synced.
type SyncFailure struct {
	URL string
	Err error
}

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Subscriptions int
	NewArticles   int
	Failures      []SyncFailure
	Started       time.Time
	Finished      time.Time
}

// SyncAll syncs every subscription. Concurrent callers share a single pass.
// The pass is detached from ctx and bounded by the pass timeout instead, so a
// caller that gives up returns ctx.Err() while the pass runs to completion.
func (c *Coordinator) SyncAll(ctx context.Context) (SyncReport, error) {
	ch := c.flight.DoChan("all", func() (any, error) {
		passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.syncAll(passCtx)
	})
	select {
	case <-ctx.Done():
		return SyncReport{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return SyncReport{}, res.Err
		}
		return res.Val.(SyncReport), nil
	}
}

// Refresh is a manual sync that ignores the refresh interval.
func (c *Coordinator) Refresh(ctx context.Context) (SyncReport, error) {
	return c.SyncAll(ctx)
}

// CheckSync runs SyncAll only when more than the configured refresh interval
// has passed since the last completed sync. ran reports whether it did.
func (c *Coordinator) CheckSync(ctx context.Context, now time.Time) (report SyncReport, ran bool, err error) {
	due, err := c.SyncDue(now)
	if err != nil || !due {
		return SyncReport{}, false, err
	}
	report, err = c.SyncAll(ctx)
	return report, true, err
}

// SyncDue reports whether the refresh interval has elapsed at now.
func (c *Coordinator) SyncDue(now time.Time) (bool, error) {
	last, err := database.GetLastSync(c.store)
	if err != nil {
		return false, err
	}
	interval, err := database.GetRefreshInterval(c.store)
	if err != nil {
		return false, err
	}
	return now.Sub(last) > interval.Duration(), nil
}

func (c *Coordinator) syncAll(ctx context.Context) (SyncReport, error) {
	report := SyncReport{Started: c.now()}
	subs, err := c.store.GetSubscriptions()
	if err != nil {
		return report, fmt.Errorf("load subscriptions: %w", err)
	}
	whitelist, err := database.GetStringSet(c.store, model.SettingKeywordWhitelist)
	if err != nil {
		return report, fmt.Errorf("load whitelist: %w", err)
	}
	// Read once per pass. A link stored by a sibling after this point is
	// caught by the store's unique constraint instead.
	links, err := c.store.GetArticleLinks()
	if err != nil {
		return report, fmt.Errorf("load links: %w", err)
	}
	report.Subscriptions = len(subs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			n, err := c.syncOne(gctx, sub, links, whitelist)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, SyncFailure{URL: sub.URL, Err: err})
				return nil
			}
			report.NewArticles += n
			return nil
		})
	}
	_ = g.Wait()

	report.Finished = c.now()
	if err := ctx.Err(); err != nil {
		c.logger.Warn("sync interrupted", "feeds", report.Subscriptions, "failed", len(report.Failures), "err", err)
		return report, fmt.Errorf("sync interrupted: %w", err)
	}
	if err := database.SetLastSync(c.store, report.Finished); err != nil {
		return report, fmt.Errorf("record last sync: %w", err)
	}
	c.logger.Info("sync complete",
		"feeds", report.Subscriptions,
		"new", report.NewArticles,
		"failed", len(report.Failures),
		"took", report.Finished.Sub(report.Started).Round(time.Millisecond))
	return report, nil
}

// SyncSubscription syncs a single subscription outside the normal pass.
func (c *Coordinator) SyncSubscription(ctx context.Context, id int64) (int, error) {
	sub, err := c.store.GetSubscriptionByID(id)
	if err != nil {
		return 0, err
	}
	links, err := c.store.GetArticleLinks()
	if err != nil {
		return 0, fmt.Errorf("load links: %w", err)
	}
	whitelist, err := database.GetStringSet(c.store, model.SettingKeywordWhitelist)
	if err != nil {
		return 0, fmt.Errorf("load whitelist: %w", err)
	}
	return c.syncOne(ctx, *sub, links, whitelist)
}

// syncOne fetches one subscription and stores its unseen articles. links is
// shared between goroutines and only read.
func (c *Coordinator) syncOne(ctx context.Context, sub model.Subscription, links map[string]struct{}, whitelist []string) (int, error) {
	drafts, _, err := c.fetcher.FetchFeed(ctx, sub.URL)
	if err != nil {
		if interrupted(ctx, err) {
			return 0, err
		}
		c.logger.Warn("feed sync failed", "url", sub.URL, "err", err)
		c.markBroken(sub.URL)
		return 0, err
	}
	return c.storeDrafts(sub, drafts, links, whitelist)
}

func (c *Coordinator) storeDrafts(sub model.Subscription, drafts []rss.Draft, links map[string]struct{}, whitelist []string) (int, error) {
	category := sub.PrimaryCategory()
	seen := make(map[string]struct{}, len(drafts))
	fresh := make([]model.Article, 0, len(drafts))
	for _, d := range drafts {
		if _, ok := links[d.Link]; ok {
			continue
		}
		if _, ok := seen[d.Link]; ok {
			continue
		}
		seen[d.Link] = struct{}{}
		fresh = append(fresh, model.Article{
			FeedID:      sub.ID,
			Title:       d.Title,
			Link:        d.Link,
			Description: d.Description,
			ImageURL:    d.ImageURL,
			PubDate:     d.PubDate,
			PublishedAt: rss.ParseDate(d.PubDate),
			Category:    category,
		})
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	n, err := c.store.InsertArticles(fresh)
	if err != nil {
		c.logger.Error("store articles failed", "url", sub.URL, "err", err)
		return 0, fmt.Errorf("store articles for %s: %w", sub.URL, err)
	}
	c.logger.Debug("feed synced", "url", sub.URL, "new", n)

	if len(whitelist) > 0 {
		for _, a := range fresh {
			if filter.MatchesAny(a.Title, whitelist) {
				c.notifier.ArticleMatched(a.Title)
			}
		}
	}
	return n, nil
}

// interrupted reports whether err comes from the caller giving up rather
// than from the feed itself.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Coordinator) markBroken(feedURL string) {
	c.brokenMu.Lock()
	defer c.brokenMu.Unlock()
	if err := database.AddToStringSet(c.store, model.SettingBrokenFeeds, feedURL); err != nil {
		c.logger.Error("record broken feed failed", "url", feedURL, "err", err)
	}
}

// BrokenFeeds returns every URL recorded as broken.
func (c *Coordinator) BrokenFeeds() ([]string, error) {
	return database.GetStringSet(c.store, model.SettingBrokenFeeds)
}
