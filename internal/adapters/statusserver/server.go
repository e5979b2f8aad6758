// Package statusserver is the ops surface of the pipeline: health, metrics
// and run status. It deliberately serves no review data; reporting goes
// through the reporter CLI against the store.
package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"bank_reviews/internal/domain"
)

// LastRunKey is where the ingestor parks its run summary in the cache.
const LastRunKey = "ingest:last_run"

type Server struct{ mux *chi.Mux }

func New() *Server {
	m := chi.NewRouter()

	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(15 * time.Second))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler (e.g. /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

type Handlers struct {
	Cache domain.Cache
	Repo  domain.ReviewRepository
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Get("/v1/status", h.lastRun)
	s.mux.Get("/v1/summary", h.summary)
}

// lastRun reports the most recent pipeline run, if the cache still has it.
func (h *Handlers) lastRun(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		writeProblem(w, http.StatusServiceUnavailable, "no cache", "run status is kept in the cache, which is not configured")
		return
	}
	var summary domain.RunSummary
	ok, err := h.Cache.Get(r.Context(), LastRunKey, &summary)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "cache read failed", err.Error())
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "no run recorded", "")
		return
	}
	writeJSON(w, summary)
}

// summary projects the store's current counts; no caching layer between
// here and the tables.
func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Repo.SummaryStats(ctx)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store query failed", err.Error())
		return
	}
	banks, err := h.Repo.BankStats(ctx)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store query failed", err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"totals": stats,
		"banks":  banks,
	})
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}
