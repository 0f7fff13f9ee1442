// Package model defines shared data structures.
package model

import "time"

// Subscription represents an RSS/Atom feed the user added.
type Subscription struct {
	ID            int64         `json:"id"`
	URL           string        `json:"url"` // unique
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Categories    []Category    `json:"categories"` // never empty once persisted
	Country       string        `json:"country"`
	EditorialLine EditorialLine `json:"editorial_line"`
}

// PrimaryCategory is the category copied onto articles at ingestion time.
func (s Subscription) PrimaryCategory() string {
	if len(s.Categories) == 0 {
		return string(CategoryGeneral)
	}
	return string(s.Categories[0])
}

// Article is a single normalized story. Everything except Saved and Hidden is
// fixed at insert time.
type Article struct {
	ID          int64     `json:"id"`
	FeedID      int64     `json:"feed_id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`        // globally unique
	Description *string   `json:"description"` // sanitized plain text, nil when the feed had none
	ImageURL    *string   `json:"image_url"`
	PubDate     *string   `json:"pub_date"` // raw date string from the feed
	PublishedAt time.Time `json:"published_at"`
	Saved       bool      `json:"saved"`
	Hidden      bool      `json:"hidden"`
	Category    string    `json:"category"`
}

// Script is an installed userscript.
type Script struct {
	ID          int64  `json:"id"`
	DomainMatch string `json:"domain_match"` // substring matched against page URLs, e.g. "nytimes.com"
	Code        string `json:"code"`
	Enabled     bool   `json:"enabled"`
}

// SearchEntry is one submitted search query.
type SearchEntry struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentSearchLimit bounds the search history view.
const RecentSearchLimit = 10

// Settings key constants.
const (
	SettingRefreshInterval  = "refresh_interval"
	SettingLastSync         = "last_sync"
	SettingKeywordWhitelist = "keyword_whitelist"
	SettingKeywordBlacklist = "keyword_blacklist"
	SettingBrokenFeeds      = "broken_feeds"
	SettingBlockListEnabled = "blocklists_enabled"
	SettingBlockListCustom  = "blocklists_custom"
)

// Default values for new subscriptions.
const (
	DefaultCountry = "Global"
)
