package scripts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bryan-buckman/newsreader/internal/database"
	"github.com/bryan-buckman/newsreader/internal/rss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, handler http.Handler) (*Engine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	db, err := database.New(filepath.Join(t.TempDir(), "scripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	f := rss.NewFetcher(rss.Options{})
	return NewEngine(db, NewCatalog(srv.URL, f), f, nil), srv
}

func TestCandidateHosts(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"www.nytimes.com", []string{"www.nytimes.com", "nytimes.com"}},
		{"news.bbc.co.uk", []string{"news.bbc.co.uk", "bbc.co.uk"}},
		{"example.com", []string{"example.com"}},
		{"https://WWW.Example.com/path", []string{"www.example.com", "example.com"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CandidateHosts(tt.in), tt.in)
	}
}

func TestDecodeSummaries(t *testing.T) {
	body := []byte(`[
		{"id": 1, "name": "Dark mode", "users": [{"name": "alice"}, {"name": "bob"}]},
		{"name": "no id"},
		{"id": "not-a-number"},
		{"id": 2, "code_url": "https://x/2.user.js", "users": []}
	]`)
	got := decodeSummaries(body)
	require.Len(t, got, 2)
	assert.Equal(t, ScriptSummary{ID: 1, Name: "Dark mode", Author: "alice"}, got[0])
	assert.Equal(t, int64(2), got[1].ID)
	assert.Empty(t, got[1].Author)

	assert.Nil(t, decodeSummaries([]byte(`{"error": "rate limited"}`)))
	assert.Nil(t, decodeSummaries([]byte(`<html>`)))
}

func TestScriptsForURL(t *testing.T) {
	e, _ := newEngine(t, http.NotFoundHandler())
	s, err := e.Install("nytimes.com", "document.body.classList.add('x')")
	require.NoError(t, err)
	assert.True(t, s.Enabled)

	got, err := e.ScriptsForURL("https://www.nytimes.com/section/world")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, s.ID, got[0].ID)

	got, err = e.ScriptsForURL("https://example.com")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, e.SetEnabled(s.ID, false))
	got, err = e.ScriptsForURL("https://www.nytimes.com/")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, e.Delete(s.ID))
	all, err := e.List()
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = e.Install("  ", "x")
	assert.Error(t, err)
}

func TestSearchPrefersSiteListings(t *testing.T) {
	var generic bool
	mux := http.NewServeMux()
	mux.HandleFunc("/scripts/by-site/www.example.com.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "name": "A"}, {"id": 2, "name": "B"}]`))
	})
	mux.HandleFunc("/scripts/by-site/example.com.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 2, "name": "B"}, {"id": 3, "name": "C"}]`))
	})
	mux.HandleFunc("/scripts.json", func(w http.ResponseWriter, r *http.Request) {
		generic = true
		w.Write([]byte(`[]`))
	})
	e, _ := newEngine(t, mux)

	got := e.SearchRemoteForDomain(context.Background(), "www.example.com")
	var ids []int64
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.False(t, generic)
}

func TestSearchFallsBackToFilteredKeywordSearch(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("/scripts/by-site/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/scripts.json", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Write([]byte(`[
			{"id": 10, "name": "Cleaner for Example.com"},
			{"id": 11, "name": "Unrelated", "description": "general tweaks"},
			{"id": 12, "name": "x", "code_url": "https://cdn/example.com.user.js"},
			{"id": 13, "description": "works on example.com too"}
		]`))
	})
	e, _ := newEngine(t, mux)

	got := e.SearchRemoteForDomain(context.Background(), "example.com")
	var ids []int64
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, "example.com", query)
	assert.Equal(t, []int64{10, 12, 13}, ids)
}

func TestSearchCatalogFailuresAreEmpty(t *testing.T) {
	e, _ := newEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	assert.Empty(t, e.SearchRemoteForDomain(context.Background(), "example.com"))

	e, _ = newEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	assert.Empty(t, e.SearchRemoteForDomain(context.Background(), "example.com"))
}

func TestFetchCode(t *testing.T) {
	e, srv := newEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("// ==UserScript==\nalert(1)"))
	}))
	code, err := e.FetchCode(context.Background(), ScriptSummary{ID: 1, CodeURL: srv.URL + "/1.user.js"})
	require.NoError(t, err)
	assert.Contains(t, code, "alert(1)")

	_, err = e.FetchCode(context.Background(), ScriptSummary{ID: 2})
	assert.ErrorIs(t, err, ErrNoCodeURL)
}
