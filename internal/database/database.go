// Package database provides SQLite storage for the news reader.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryan-buckman/newsreader/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	// Foreign keys are per connection in SQLite, so they go in the DSN
	// rather than a one-off PRAGMA.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

// SupportsHighConcurrency returns false for SQLite.
func (db *DB) SupportsHighConcurrency() bool {
	return false
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		categories TEXT NOT NULL DEFAULT 'GENERAL',
		country TEXT NOT NULL DEFAULT 'Global',
		editorial_line TEXT NOT NULL DEFAULT 'UNKNOWN'
	);
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed_id INTEGER NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		link TEXT NOT NULL UNIQUE,
		description TEXT,
		image_url TEXT,
		pub_date TEXT,
		published_at INTEGER NOT NULL DEFAULT 0,
		is_saved INTEGER NOT NULL DEFAULT 0,
		is_hidden INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT 'GENERAL'
	);
	CREATE INDEX IF NOT EXISTS idx_articles_feed_id ON articles(feed_id);
	CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC);
	CREATE TABLE IF NOT EXISTS scripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain_match TEXT NOT NULL,
		code TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1
	);
	CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	INSERT OR IGNORE INTO settings (key, value) VALUES ('refresh_interval', '30_min');
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- Subscription Methods ---

const subscriptionColumns = "id, url, title, description, categories, country, editorial_line"

// UpsertSubscription inserts a subscription or replaces the metadata of the
// one with the same URL. The row id, and so its articles, survive a replace.
func (db *DB) UpsertSubscription(sub *model.Subscription) (int64, error) {
	_, err := db.conn.Exec(`
		INSERT INTO subscriptions (url, title, description, categories, country, editorial_line)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			categories = excluded.categories,
			country = excluded.country,
			editorial_line = excluded.editorial_line`,
		sub.URL, sub.Title, sub.Description, joinCategories(sub.Categories), sub.Country, string(sub.EditorialLine))
	if err != nil {
		return 0, err
	}
	var id int64
	if err := db.conn.QueryRow("SELECT id FROM subscriptions WHERE url = ?", sub.URL).Scan(&id); err != nil {
		return 0, err
	}
	sub.ID = id
	return id, nil
}

// GetSubscriptions returns all subscriptions ordered by title.
func (db *DB) GetSubscriptions() ([]model.Subscription, error) {
	rows, err := db.conn.Query("SELECT " + subscriptionColumns + " FROM subscriptions ORDER BY title COLLATE NOCASE")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

// GetSubscriptionByID returns a subscription or ErrNotFound.
func (db *DB) GetSubscriptionByID(id int64) (*model.Subscription, error) {
	s, err := scanSubscription(db.conn.QueryRow("SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// GetSubscriptionByURL returns a subscription or ErrNotFound.
func (db *DB) GetSubscriptionByURL(url string) (*model.Subscription, error) {
	s, err := scanSubscription(db.conn.QueryRow("SELECT "+subscriptionColumns+" FROM subscriptions WHERE url = ?", url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// DeleteSubscription removes a subscription and all of its articles.
func (db *DB) DeleteSubscription(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM articles WHERE feed_id = ?", id); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM subscriptions WHERE id = ?", id); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CountSubscriptions returns the number of subscriptions.
func (db *DB) CountSubscriptions() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM subscriptions").Scan(&n)
	return n, err
}

// --- Article Methods ---

const articleColumns = "id, feed_id, title, link, description, image_url, pub_date, published_at, is_saved, is_hidden, category"

// InsertArticles inserts articles in one transaction, silently skipping any
// whose link already exists. Returns how many rows were actually inserted.
func (db *DB) InsertArticles(articles []model.Article) (int, error) {
	articles = dedupeByLink(articles)
	if len(articles) == 0 {
		return 0, nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO articles (feed_id, title, link, description, image_url, pub_date, published_at, is_saved, is_hidden, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range articles {
		res, err := stmt.Exec(a.FeedID, a.Title, a.Link, nullString(a.Description), nullString(a.ImageURL),
			nullString(a.PubDate), toMillis(a.PublishedAt), a.Saved, a.Hidden, a.Category)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetArticleLinks returns the set of every stored article link.
func (db *DB) GetArticleLinks() (map[string]struct{}, error) {
	rows, err := db.conn.Query("SELECT link FROM articles")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	links := make(map[string]struct{})
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, err
		}
		links[link] = struct{}{}
	}
	return links, rows.Err()
}

func (db *DB) queryArticles(where string, args ...any) ([]model.Article, error) {
	query := "SELECT " + articleColumns + " FROM articles"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY published_at DESC, id DESC"
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// GetArticles returns all articles, newest first.
func (db *DB) GetArticles() ([]model.Article, error) {
	return db.queryArticles("")
}

// GetArticlesByCategory returns articles whose category matches, ignoring case.
func (db *DB) GetArticlesByCategory(category string) ([]model.Article, error) {
	return db.queryArticles("category = ? COLLATE NOCASE", category)
}

// GetArticlesBySubscription returns the articles of one subscription.
func (db *DB) GetArticlesBySubscription(feedID int64) ([]model.Article, error) {
	return db.queryArticles("feed_id = ?", feedID)
}

// SearchArticles matches query as a substring of title or description.
func (db *DB) SearchArticles(query string) ([]model.Article, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	return db.queryArticles("title LIKE '%' || ? || '%' OR description LIKE '%' || ? || '%'", q, q)
}

// SetArticleSaved sets the saved flag.
func (db *DB) SetArticleSaved(id int64, saved bool) error {
	return db.execAffecting("UPDATE articles SET is_saved = ? WHERE id = ?", saved, id)
}

// SetArticleHidden sets the hidden flag.
func (db *DB) SetArticleHidden(id int64, hidden bool) error {
	return db.execAffecting("UPDATE articles SET is_hidden = ? WHERE id = ?", hidden, id)
}

// ClearUnsavedArticles deletes every article not marked saved.
func (db *DB) ClearUnsavedArticles() (int64, error) {
	res, err := db.conn.Exec("DELETE FROM articles WHERE is_saved = 0")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Script Methods ---

// UpsertScript inserts a script, or replaces the one with the same id.
func (db *DB) UpsertScript(script *model.Script) (int64, error) {
	if script.ID != 0 {
		if err := db.execAffecting("UPDATE scripts SET domain_match = ?, code = ?, enabled = ? WHERE id = ?",
			script.DomainMatch, script.Code, script.Enabled, script.ID); err != nil {
			return 0, err
		}
		return script.ID, nil
	}
	res, err := db.conn.Exec("INSERT INTO scripts (domain_match, code, enabled) VALUES (?, ?, ?)",
		script.DomainMatch, script.Code, script.Enabled)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	script.ID = id
	return id, nil
}

// GetScripts returns all installed scripts.
func (db *DB) GetScripts() ([]model.Script, error) {
	rows, err := db.conn.Query("SELECT id, domain_match, code, enabled FROM scripts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScripts(rows)
}

// GetScriptsForURL returns enabled scripts whose domain pattern occurs in url.
func (db *DB) GetScriptsForURL(url string) ([]model.Script, error) {
	rows, err := db.conn.Query(`
		SELECT id, domain_match, code, enabled FROM scripts
		WHERE enabled = 1 AND domain_match != '' AND instr(?, domain_match) > 0
		ORDER BY id`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScripts(rows)
}

// SetScriptEnabled toggles a script.
func (db *DB) SetScriptEnabled(id int64, enabled bool) error {
	return db.execAffecting("UPDATE scripts SET enabled = ? WHERE id = ?", enabled, id)
}

// DeleteScript removes a script.
func (db *DB) DeleteScript(id int64) error {
	_, err := db.conn.Exec("DELETE FROM scripts WHERE id = ?", id)
	return err
}

// --- Search History Methods ---

// AddSearch records a submitted query.
func (db *DB) AddSearch(query string) (int64, error) {
	res, err := db.conn.Exec("INSERT INTO search_history (query, created_at) VALUES (?, ?)", query, toMillis(time.Now()))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentSearches returns the newest entries first.
func (db *DB) RecentSearches(limit int) ([]model.SearchEntry, error) {
	if limit <= 0 {
		limit = model.RecentSearchLimit
	}
	rows, err := db.conn.Query("SELECT id, query, created_at FROM search_history ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSearches(rows)
}

// DeleteSearch removes one history entry.
func (db *DB) DeleteSearch(id int64) error {
	_, err := db.conn.Exec("DELETE FROM search_history WHERE id = ?", id)
	return err
}

// ClearSearchHistory removes all history entries.
func (db *DB) ClearSearchHistory() error {
	_, err := db.conn.Exec("DELETE FROM search_history")
	return err
}

// --- Settings Methods ---

// GetSetting retrieves a setting value, or ErrNotFound.
func (db *DB) GetSetting(key string) (string, error) {
	var val string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return val, err
}

// SetSetting saves a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", key, value)
	return err
}

func (db *DB) execAffecting(query string, args ...any) error {
	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
