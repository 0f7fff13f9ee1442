package database

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/bryan-buckman/newsreader/internal/model"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func joinCategories(cats []model.Category) string {
	if len(cats) == 0 {
		return string(model.CategoryGeneral)
	}
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func splitCategories(s string) []model.Category {
	var out []model.Category
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, model.Category(p))
		}
	}
	if len(out) == 0 {
		out = append(out, model.CategoryGeneral)
	}
	return out
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	var s model.Subscription
	var cats, editorial string
	if err := row.Scan(&s.ID, &s.URL, &s.Title, &s.Description, &cats, &s.Country, &editorial); err != nil {
		return nil, err
	}
	s.Categories = splitCategories(cats)
	s.EditorialLine = model.ParseEditorialLine(editorial)
	return &s, nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	var subs []model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

func scanArticles(rows *sql.Rows) ([]model.Article, error) {
	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var desc, image, pubDate sql.NullString
		var published int64
		if err := rows.Scan(&a.ID, &a.FeedID, &a.Title, &a.Link, &desc, &image, &pubDate,
			&published, &a.Saved, &a.Hidden, &a.Category); err != nil {
			return nil, err
		}
		a.Description = stringPtr(desc)
		a.ImageURL = stringPtr(image)
		a.PubDate = stringPtr(pubDate)
		a.PublishedAt = fromMillis(published)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanScripts(rows *sql.Rows) ([]model.Script, error) {
	var scripts []model.Script
	for rows.Next() {
		var s model.Script
		if err := rows.Scan(&s.ID, &s.DomainMatch, &s.Code, &s.Enabled); err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, rows.Err()
}

func scanSearches(rows *sql.Rows) ([]model.SearchEntry, error) {
	var entries []model.SearchEntry
	for rows.Next() {
		var e model.SearchEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.Query, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = fromMillis(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// dedupeByLink keeps the first article for each link.
func dedupeByLink(articles []model.Article) []model.Article {
	seen := make(map[string]struct{}, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		if _, ok := seen[a.Link]; ok {
			continue
		}
		seen[a.Link] = struct{}{}
		out = append(out, a)
	}
	return out
}

// sortedSet renders a set setting deterministically.
func sortedSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
