package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryan-buckman/newsreader/internal/adblock"
	"github.com/bryan-buckman/newsreader/internal/database"
	"github.com/bryan-buckman/newsreader/internal/ingest"
	"github.com/bryan-buckman/newsreader/internal/model"
	"github.com/bryan-buckman/newsreader/internal/rss"
	"github.com/bryan-buckman/newsreader/internal/scripts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Daily Tech</title>
<item><title>Go release notes</title><link>http://news.example/go</link><pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate></item>
<item><title>Election night</title><link>http://news.example/vote</link><pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate></item>
</channel></rss>`

type env struct {
	api   *httptest.Server
	feeds *httptest.Server
	db    *database.DB
}

func newEnv(t *testing.T) *env {
	t.Helper()
	feeds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.xml":
			w.Write([]byte(feedXML))
		case "/empty.xml":
			w.Write([]byte(`<rss><channel><title>x</title></channel></rss>`))
		case "/hosts.txt":
			w.Write([]byte("0.0.0.0 tracker.example\n"))
		case "/script.user.js":
			w.Write([]byte("console.log('hi')"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(feeds.Close)

	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := rss.NewFetcher(rss.Options{Timeout: 2 * time.Second})
	srv := New(Deps{
		Store:       db,
		Coordinator: ingest.New(db, f, ingest.Options{}),
		Blocker:     adblock.New(f, nil),
		Scripts:     scripts.NewEngine(db, scripts.NewCatalog(feeds.URL, f), f, nil),
	})
	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)
	return &env{api: api, feeds: feeds, db: db}
}

func (e *env) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.api.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestSubscriptionAndArticleFlow(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/subscriptions", map[string]any{
		"url":        e.feeds.URL + "/feed.xml",
		"categories": []string{"Technology"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sub model.Subscription
	require.NoError(t, json.Unmarshal(body, &sub))
	assert.Equal(t, "Daily Tech", sub.Title)

	_, body = e.do(t, http.MethodGet, "/api/articles?view=all&category=technology", nil)
	var articles []model.Article
	require.NoError(t, json.Unmarshal(body, &articles))
	require.Len(t, articles, 2)
	assert.Equal(t, "Go release notes", articles[0].Title)

	// For-you is empty until interests exist.
	_, body = e.do(t, http.MethodGet, "/api/articles?view=foryou", nil)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = e.do(t, http.MethodPost, "/api/settings", map[string]any{
		"keyword_whitelist": []string{"go"},
		"keyword_blacklist": []string{"election"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = e.do(t, http.MethodGet, "/api/articles?view=foryou", nil)
	require.NoError(t, json.Unmarshal(body, &articles))
	require.Len(t, articles, 1)

	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/articles/%d/save", articles[0].ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, "/api/articles/999/hide", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = e.do(t, http.MethodPost, "/api/articles/clear-unsaved", nil)
	assert.JSONEq(t, `{"status":"ok","deleted":1}`, string(body))

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/subscriptions/%d", sub.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all, err := e.db.GetArticles()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAddEmptyFeedRejected(t *testing.T) {
	e := newEnv(t)
	resp, body := e.do(t, http.MethodPost, "/api/subscriptions", map[string]any{"url": e.feeds.URL + "/empty.xml"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), `"reason":"empty_feed"`)

	_, body = e.do(t, http.MethodGet, "/api/subscriptions", nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestSearchRecordsHistory(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(t, http.MethodPost, "/api/subscriptions", map[string]any{"url": e.feeds.URL + "/feed.xml"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, body := e.do(t, http.MethodGet, "/api/search?q=release", nil)
	var found []model.Article
	require.NoError(t, json.Unmarshal(body, &found))
	assert.Len(t, found, 1)

	_, body = e.do(t, http.MethodGet, "/api/search/history", nil)
	var history []model.SearchEntry
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "release", history[0].Query)

	e.do(t, http.MethodDelete, "/api/search/history", nil)
	_, body = e.do(t, http.MethodGet, "/api/search/history", nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestSettingsValidation(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(t, http.MethodPost, "/api/settings", map[string]any{"refresh_interval": "hourly"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body := e.do(t, http.MethodPost, "/api/settings", map[string]any{"refresh_interval": "1_hour"})
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "1_hour", got["refresh_interval"])
}

func TestBlockListReloadAndCheck(t *testing.T) {
	e := newEnv(t)
	check := func(u string) bool {
		_, body := e.do(t, http.MethodGet, "/api/blocklist/check?url="+u, nil)
		var out struct {
			Blocked bool `json:"blocked"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		return out.Blocked
	}
	assert.False(t, check("https://cdn.tracker.example/p.gif"))
	assert.True(t, check("https://ad.doubleclick.net/x"))

	e.do(t, http.MethodPost, "/api/settings", map[string]any{"blocklists_custom": []string{e.feeds.URL + "/hosts.txt"}})
	resp, _ := e.do(t, http.MethodPost, "/api/blocklist/reload", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, check("https://cdn.tracker.example/p.gif"))
}

func TestScriptsInstallAndMatch(t *testing.T) {
	e := newEnv(t)
	resp, body := e.do(t, http.MethodPost, "/api/scripts", map[string]any{
		"domain_match": "nytimes.com",
		"code_url":     e.feeds.URL + "/script.user.js",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var s model.Script
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Equal(t, "console.log('hi')", s.Code)

	_, body = e.do(t, http.MethodGet, "/api/scripts/match?url=https://www.nytimes.com/section/world", nil)
	var matched []model.Script
	require.NoError(t, json.Unmarshal(body, &matched))
	assert.Len(t, matched, 1)

	_, body = e.do(t, http.MethodGet, "/api/scripts/match?url=https://example.com", nil)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/scripts/%d/enabled", s.ID), map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = e.do(t, http.MethodGet, "/api/scripts/match?url=https://www.nytimes.com/", nil)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = e.do(t, http.MethodGet, "/api/scripts/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOPMLImportExport(t *testing.T) {
	e := newEnv(t)
	doc := fmt.Sprintf(`<opml version="2.0"><body>
<outline text="Tech"><outline text="Daily" type="rss" xmlUrl="%s/feed.xml"/></outline>
<outline text="Dead" type="rss" xmlUrl="%s/missing.xml"/>
</body></opml>`, e.feeds.URL, e.feeds.URL)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("opml", "subs.opml")
	require.NoError(t, err)
	fw.Write([]byte(doc))
	require.NoError(t, mw.Close())

	resp, err := http.Post(e.api.URL+"/api/import-opml", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out struct {
		Imported int               `json:"imported"`
		Total    int               `json:"total"`
		Failed   map[string]string `json:"failed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Imported)
	assert.Equal(t, 2, out.Total)
	assert.Len(t, out.Failed, 1)

	subs, err := e.db.GetSubscriptions()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, []model.Category{model.CategoryTechnology}, subs[0].Categories)

	_, body := e.do(t, http.MethodGet, "/api/export-opml", nil)
	assert.True(t, strings.Contains(string(body), `category="TECHNOLOGY"`))
}
