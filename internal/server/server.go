// Package server provides the JSON API consumed by the app shell.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/newsreader/internal/adblock"
	"github.com/bryan-buckman/newsreader/internal/database"
	"github.com/bryan-buckman/newsreader/internal/filter"
	"github.com/bryan-buckman/newsreader/internal/ingest"
	"github.com/bryan-buckman/newsreader/internal/logging"
	"github.com/bryan-buckman/newsreader/internal/model"
	"github.com/bryan-buckman/newsreader/internal/opml"
	"github.com/bryan-buckman/newsreader/internal/rss"
	"github.com/bryan-buckman/newsreader/internal/scripts"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the main HTTP server.
type Server struct {
	db      database.Store
	coord   *ingest.Coordinator
	poller  *ingest.Poller
	blocker *adblock.Engine
	scripts *scripts.Engine
	logger  *log.Logger
	router  chi.Router
	srv     *http.Server
}

// Deps are the components the server exposes.
type Deps struct {
	Store       database.Store
	Coordinator *ingest.Coordinator
	Poller      *ingest.Poller // optional; started by Start
	Blocker     *adblock.Engine
	Scripts     *scripts.Engine
	Logger      *log.Logger
}

// New creates a new server.
func New(d Deps) *Server {
	logger := logging.OrDiscard(d.Logger)
	s := &Server{
		db:      d.Store,
		coord:   d.Coordinator,
		poller:  d.Poller,
		blocker: d.Blocker,
		scripts: d.Scripts,
		logger:  logger.WithPrefix("http"),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Route("/api", func(r chi.Router) {
		r.Get("/subscriptions", s.handleListSubscriptions)
		r.Post("/subscriptions", s.handleAddSubscription)
		r.Delete("/subscriptions/{id}", s.handleDeleteSubscription)
		r.Post("/subscriptions/{id}/sync", s.handleSyncSubscription)

		r.Get("/articles", s.handleArticles)
		r.Post("/articles/{id}/save", s.handleSaveArticle)
		r.Post("/articles/{id}/hide", s.handleHideArticle)
		r.Post("/articles/clear-unsaved", s.handleClearUnsaved)

		r.Get("/search", s.handleSearch)
		r.Get("/search/history", s.handleSearchHistory)
		r.Delete("/search/history", s.handleClearSearchHistory)
		r.Delete("/search/history/{id}", s.handleDeleteSearch)

		r.Post("/refresh", s.handleRefresh)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
		r.Get("/suggestions", s.handleSuggestions)

		r.Get("/blocklist/lists", s.handleBlockLists)
		r.Post("/blocklist/reload", s.handleReloadBlockList)
		r.Get("/blocklist/check", s.handleCheckBlocked)

		r.Get("/scripts", s.handleListScripts)
		r.Post("/scripts", s.handleInstallScript)
		r.Get("/scripts/match", s.handleMatchScripts)
		r.Get("/scripts/search", s.handleSearchScripts)
		r.Put("/scripts/{id}", s.handleUpdateScript)
		r.Post("/scripts/{id}/enabled", s.handleSetScriptEnabled)
		r.Delete("/scripts/{id}", s.handleDeleteScript)

		r.Post("/import-opml", s.handleImportOPML)
		r.Get("/export-opml", s.handleExportOPML)
	})

	s.router = r
}

// Start starts the poller and serves until Stop is called.
func (s *Server) Start(addr string) error {
	if s.poller != nil {
		s.poller.Start()
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server starting", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the poller and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.poller != nil {
		s.poller.Stop()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// ReloadBlockLists rebuilds the block-set from the stored list settings.
func (s *Server) ReloadBlockLists(ctx context.Context) error {
	enabled, err := database.GetStringSet(s.db, model.SettingBlockListEnabled)
	if err != nil {
		return err
	}
	custom, err := database.GetStringSet(s.db, model.SettingBlockListCustom)
	if err != nil {
		return err
	}
	s.blocker.Reload(ctx, enabled, custom)
	return nil
}

// --- Subscription Handlers ---

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.db.GetSubscriptions()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to load subscriptions", err)
		return
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleAddSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL           string   `json:"url"`
		Title         string   `json:"title"`
		Description   string   `json:"description"`
		Categories    []string `json:"categories"`
		Country       string   `json:"country"`
		EditorialLine string   `json:"editorial_line"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	sub, err := s.coord.AddSubscription(ctx, ingest.AddRequest{
		URL:           req.URL,
		Title:         req.Title,
		Description:   req.Description,
		Categories:    req.Categories,
		Country:       req.Country,
		EditorialLine: req.EditorialLine,
	})
	if err != nil {
		// Validation failures go back to the user as a reason.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  err.Error(),
			"reason": errorReason(err),
		})
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.coord.DeleteSubscription(id); err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSyncSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()
	n, err := s.coord.SyncSubscription(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "new_articles": n})
}

// --- Article Handlers ---

func (s *Server) filterSet(view filter.View, category string) (filter.FilterSet, error) {
	whitelist, err := database.GetStringSet(s.db, model.SettingKeywordWhitelist)
	if err != nil {
		return filter.FilterSet{}, err
	}
	blacklist, err := database.GetStringSet(s.db, model.SettingKeywordBlacklist)
	if err != nil {
		return filter.FilterSet{}, err
	}
	if view == "" {
		view = filter.ViewAll
	}
	return filter.FilterSet{View: view, Category: category, Whitelist: whitelist, Blacklist: blacklist}, nil
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fs, err := s.filterSet(filter.View(q.Get("view")), q.Get("category"))
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to load filters", err)
		return
	}

	var articles []model.Article
	if feed := q.Get("feed"); feed != "" {
		id, perr := strconv.ParseInt(feed, 10, 64)
		if perr != nil {
			http.Error(w, "Invalid feed", http.StatusBadRequest)
			return
		}
		articles, err = s.db.GetArticlesBySubscription(id)
	} else {
		articles, err = s.db.GetArticles()
	}
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to load articles", err)
		return
	}
	writeJSON(w, http.StatusOK, filter.Apply(articles, fs))
}

func (s *Server) handleSaveArticle(w http.ResponseWriter, r *http.Request) {
	s.setArticleFlag(w, r, s.db.SetArticleSaved)
}

func (s *Server) handleHideArticle(w http.ResponseWriter, r *http.Request) {
	s.setArticleFlag(w, r, s.db.SetArticleHidden)
}

// setArticleFlag reads an optional {"value": bool} body; no body means true.
func (s *Server) setArticleFlag(w http.ResponseWriter, r *http.Request, set func(int64, bool) error) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req := struct {
		Value *bool `json:"value"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	value := req.Value == nil || *req.Value
	if err := set(id, value); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		s.fail(w, http.StatusInternalServerError, "Failed to update article", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "value": value})
}

func (s *Server) handleClearUnsaved(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.db.ClearUnsavedArticles()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Cleanup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "deleted": deleted})
}

// --- Search Handlers ---

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, []model.Article{})
		return
	}
	if _, err := s.db.AddSearch(query); err != nil {
		s.logger.Warn("record search failed", "err", err)
	}
	found, err := s.db.SearchArticles(query)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Search failed", err)
		return
	}
	fs, err := s.filterSet(filter.ViewAll, "")
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to load filters", err)
		return
	}
	writeJSON(w, http.StatusOK, filter.Apply(found, fs))
}

func (s *Server) handleSearchHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.RecentSearches(model.RecentSearchLimit)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	if entries == nil {
		entries = []model.SearchEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearSearchHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.db.ClearSearchHistory(); err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to clear history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteSearch(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteSearch(id); err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Sync & Settings Handlers ---

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	report, err := s.coord.Refresh(ctx)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Sprintf("Fetch error: %v", err), err)
		return
	}
	failed := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failed = append(failed, f.URL)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"new_articles": report.NewArticles,
		"feeds":        report.Subscriptions,
		"failed":       failed,
	})
}

type settingsPayload struct {
	RefreshInterval   *string   `json:"refresh_interval,omitempty"`
	Whitelist         *[]string `json:"keyword_whitelist,omitempty"`
	Blacklist         *[]string `json:"keyword_blacklist,omitempty"`
	BlockListsEnabled *[]string `json:"blocklists_enabled,omitempty"`
	BlockListsCustom  *[]string `json:"blocklists_custom,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	interval, err := database.GetRefreshInterval(s.db)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	lastSync, _ := database.GetLastSync(s.db)
	out := map[string]any{
		"refresh_interval": interval,
		"last_sync":        lastSync,
	}
	for _, key := range []string{
		model.SettingKeywordWhitelist,
		model.SettingKeywordBlacklist,
		model.SettingBlockListEnabled,
		model.SettingBlockListCustom,
		model.SettingBrokenFeeds,
	} {
		set, err := database.GetStringSet(s.db, key)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, "Failed to load settings", err)
			return
		}
		if set == nil {
			set = []string{}
		}
		out[key] = set
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.RefreshInterval != nil {
		switch model.RefreshInterval(*req.RefreshInterval) {
		case model.Refresh15Min, model.Refresh30Min, model.Refresh1Hour, model.RefreshDaily:
		default:
			http.Error(w, "Unknown refresh interval", http.StatusBadRequest)
			return
		}
		if err := s.db.SetSetting(model.SettingRefreshInterval, *req.RefreshInterval); err != nil {
			s.fail(w, http.StatusInternalServerError, "Failed to save", err)
			return
		}
	}
	sets := []struct {
		key string
		val *[]string
	}{
		{model.SettingKeywordWhitelist, req.Whitelist},
		{model.SettingKeywordBlacklist, req.Blacklist},
		{model.SettingBlockListEnabled, req.BlockListsEnabled},
		{model.SettingBlockListCustom, req.BlockListsCustom},
	}
	for _, kv := range sets {
		if kv.val == nil {
			continue
		}
		if err := database.SetStringSet(s.db, kv.key, *kv.val); err != nil {
			s.fail(w, http.StatusInternalServerError, "Failed to save", err)
			return
		}
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	sugg, err := s.coord.Suggestions()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to load suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, sugg)
}

// --- Block List Handlers ---

func (s *Server) handleBlockLists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"predefined": adblock.PredefinedLists,
		"domains":    s.blocker.Size(),
	})
}

func (s *Server) handleReloadBlockList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	if err := s.ReloadBlockLists(ctx); err != nil {
		s.fail(w, http.StatusInternalServerError, "Reload failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "domains": s.blocker.Size()})
}

func (s *Server) handleCheckBlocked(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	writeJSON(w, http.StatusOK, map[string]any{"url": u, "blocked": s.blocker.IsBlocked(u)})
}

// --- Script Handlers ---

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	list, err := s.scripts.List()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to load scripts", err)
		return
	}
	if list == nil {
		list = []model.Script{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleInstallScript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DomainMatch string `json:"domain_match"`
		Code        string `json:"code"`
		CodeURL     string `json:"code_url"` // fetched when code is empty
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	code := req.Code
	if code == "" && req.CodeURL != "" {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		fetched, err := s.scripts.FetchCode(ctx, scripts.ScriptSummary{CodeURL: req.CodeURL})
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		code = fetched
	}
	script, err := s.scripts.Install(req.DomainMatch, code)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, script)
}

func (s *Server) handleUpdateScript(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var script model.Script
	if err := json.NewDecoder(r.Body).Decode(&script); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	script.ID = id
	if err := s.scripts.Update(script); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		s.fail(w, http.StatusInternalServerError, "Failed to update script", err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

func (s *Server) handleSetScriptEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := s.scripts.SetEnabled(id, req.Enabled); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		s.fail(w, http.StatusInternalServerError, "Failed to update script", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "enabled": req.Enabled})
}

func (s *Server) handleDeleteScript(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.scripts.Delete(id); err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to delete script", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMatchScripts(w http.ResponseWriter, r *http.Request) {
	matched, err := s.scripts.ScriptsForURL(r.URL.Query().Get("url"))
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to match scripts", err)
		return
	}
	if matched == nil {
		matched = []model.Script{}
	}
	writeJSON(w, http.StatusOK, matched)
}

func (s *Server) handleSearchScripts(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if strings.TrimSpace(domain) == "" {
		http.Error(w, "domain is required", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()
	found := s.scripts.SearchRemoteForDomain(ctx, domain)
	if found == nil {
		found = []scripts.ScriptSummary{}
	}
	writeJSON(w, http.StatusOK, found)
}

// --- OPML Handlers ---

func (s *Server) handleImportOPML(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("opml")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	entries, err := opml.Parse(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse OPML: %v", err), http.StatusBadRequest)
		return
	}

	imported := 0
	failed := map[string]string{}
	for _, entry := range entries {
		if _, err := s.db.GetSubscriptionByURL(entry.URL); err == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
		_, err := s.coord.AddSubscription(ctx, ingest.AddRequest{
			URL:         entry.URL,
			Title:       entry.Title,
			Description: entry.Description,
			Categories:  entry.Categories,
			Country:     entry.Country,
		})
		cancel()
		if err != nil {
			s.logger.Warn("opml entry rejected", "url", entry.URL, "err", err)
			failed[entry.URL] = err.Error()
			continue
		}
		imported++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"imported": imported,
		"total":    len(entries),
		"failed":   failed,
	})
}

func (s *Server) handleExportOPML(w http.ResponseWriter, r *http.Request) {
	subs, err := s.db.GetSubscriptions()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to get subscriptions", err)
		return
	}
	data, err := opml.Export("News Reader Subscriptions", subs)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Failed to export", err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename=newsreader-subscriptions.opml")
	w.Write(data)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	s.logger.Error(msg, "err", err)
	http.Error(w, msg, status)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}

// errorReason maps add-subscription failures to a short machine-readable kind.
func errorReason(err error) string {
	var ne *rss.NetworkError
	switch {
	case errors.Is(err, ingest.ErrEmptyFeed):
		return "empty_feed"
	case errors.Is(err, rss.ErrNotAFeed):
		return "not_a_feed"
	case errors.As(err, &ne):
		return "network"
	default:
		return "invalid"
	}
}
