// Package api exposes the admin HTTP surface: store management, one-shot
// crawls, and manual notification dispatch. Credentials and session
// cookies never leave the process through this API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scriptnet/manuwatch/crawl"
	"github.com/scriptnet/manuwatch/notify"
	"github.com/scriptnet/manuwatch/scheduler"
	"github.com/scriptnet/manuwatch/storage"
	"github.com/scriptnet/manuwatch/tracker"
)

// Server handles the admin API.
type Server struct {
	db       *storage.DB
	crawler  scheduler.Crawler
	notifier scheduler.Notifier
	logger   *slog.Logger
}

// New creates the admin API server.
func New(db *storage.DB, crawler scheduler.Crawler, notifier scheduler.Notifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{db: db, crawler: crawler, notifier: notifier, logger: logger}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/stores", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/crawl", s.handleCrawl)
			r.Post("/notify", s.handleNotify)
		})
	})

	return r
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	stores, err := s.db.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]*tracker.Store, 0, len(stores))
	for _, st := range stores {
		out = append(out, redact(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var store tracker.Store
	if err := json.NewDecoder(r.Body).Decode(&store); err != nil {
		http.Error(w, "invalid store payload", http.StatusBadRequest)
		return
	}
	if store.Tracker == "" || store.Login == "" || store.SubmissionID == "" {
		http.Error(w, "tracker, login, and submissionId are required", http.StatusBadRequest)
		return
	}
	if _, err := crawl.ForPortal(store.Portal); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.db.Put(r.Context(), &store); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, redact(&store))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	store, err := s.db.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(store))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	store, err := s.db.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	// One-shot crawls are detached from the request deadline: an HTTP
	// client timing out must not orphan a half-finished login flow.
	state, err := s.crawler.Crawl(context.WithoutCancel(r.Context()), store)

	if cerr := s.db.SaveCookies(r.Context(), store.ID, store.Cookies); cerr != nil {
		s.logger.Warn("api: save cookies", "store", store.ID, "error", cerr)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.db.SaveState(r.Context(), store.ID, &state); err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	store, err := s.db.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.notifier.Notify(r.Context(), store); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, notify.ErrNoState), errors.Is(err, crawl.ErrStoreDisabled),
		errors.Is(err, crawl.ErrUnknownPortal):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.logger.Error("api: request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// redact strips secrets and session material before a store leaves the API.
func redact(s *tracker.Store) *tracker.Store {
	out := *s
	out.Credentials = tracker.Credentials{Username: s.Credentials.Username}
	out.Cookies = nil
	return &out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
