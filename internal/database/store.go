// Package database provides storage backends for the news reader.
package database

import (
	"errors"

	"github.com/bryan-buckman/newsreader/internal/model"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// SupportsHighConcurrency returns true if the database can handle
	// many concurrent write operations (e.g., PostgreSQL).
	// SQLite returns false due to write locking limitations.
	SupportsHighConcurrency() bool

	// Subscription operations
	UpsertSubscription(sub *model.Subscription) (int64, error)
	GetSubscriptions() ([]model.Subscription, error)
	GetSubscriptionByID(id int64) (*model.Subscription, error)
	GetSubscriptionByURL(url string) (*model.Subscription, error)
	DeleteSubscription(id int64) error
	CountSubscriptions() (int, error)

	// Article operations
	InsertArticles(articles []model.Article) (int, error)
	GetArticleLinks() (map[string]struct{}, error)
	GetArticles() ([]model.Article, error)
	GetArticlesByCategory(category string) ([]model.Article, error)
	GetArticlesBySubscription(feedID int64) ([]model.Article, error)
	SearchArticles(query string) ([]model.Article, error)
	SetArticleSaved(id int64, saved bool) error
	SetArticleHidden(id int64, hidden bool) error
	ClearUnsavedArticles() (int64, error)

	// Script operations
	UpsertScript(script *model.Script) (int64, error)
	GetScripts() ([]model.Script, error)
	GetScriptsForURL(url string) ([]model.Script, error)
	SetScriptEnabled(id int64, enabled bool) error
	DeleteScript(id int64) error

	// Search history operations
	AddSearch(query string) (int64, error)
	RecentSearches(limit int) ([]model.SearchEntry, error)
	DeleteSearch(id int64) error
	ClearSearchHistory() error

	// Settings operations
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}
