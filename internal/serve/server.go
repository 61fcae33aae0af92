package serve

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mkoenig/vplan-tracker/internal/scrape"
	"github.com/mkoenig/vplan-tracker/models"
	"github.com/mkoenig/vplan-tracker/pkg/alert"
	"github.com/mkoenig/vplan-tracker/pkg/scraper"
	"github.com/mkoenig/vplan-tracker/pkg/store"
)

type Server struct {
	cfg      *models.Config
	store    store.Store
	notifier *alert.Notifier
	logger   *slog.Logger
}

func NewServer(cfg *models.Config, st store.Store, notifier *alert.Notifier, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, store: st, notifier: notifier, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Get("/api/entries", s.handleEntries)
	r.Get("/api/fetch-log", s.handleFetchLog)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/classes", s.handleClasses)
	r.Get("/health", s.handleHealth)
	r.Post("/api/scrape", s.handleScrape)
	return r
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.EntryFilter{
		Day:    q.Get("day"),
		Class:  q.Get("class"),
		Limit:  intParam(q.Get("limit")),
		Offset: intParam(q.Get("offset")),
		Sort:   models.SortAsc,
	}
	if q.Get("sort") == models.SortDesc {
		filter.Sort = models.SortDesc
	}

	page, err := s.store.Entries(filter)
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleFetchLog(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"))
	log, err := s.store.FetchLog(limit)
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"log": log})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClasses(w http.ResponseWriter, _ *http.Request) {
	classes, err := s.store.Classes()
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"classes": classes})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	last, err := s.store.LastSuccessfulFetch()
	if err != nil {
		s.serverError(w, err)
		return
	}

	resp := map[string]any{
		"ok":       true,
		"stale":    true,
		"maxPages": s.cfg.MaxPages,
	}
	if last != nil {
		ageHours := time.Since(last.Timestamp).Hours()
		resp["lastSuccessfulFetch"] = last.Timestamp
		resp["ageHours"] = ageHours
		resp["stale"] = ageHours > float64(s.cfg.StaleAfterHours)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleScrape triggers one ingestion run. When an alert token is
// configured the caller must present it as a bearer token or token param.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AlertToken != "" && !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid token"})
		return
	}

	q := r.URL.Query()
	rng := scraper.PageRange{From: intParam(q.Get("from")), To: intParam(q.Get("to"))}

	outcome, err := scrape.Run(s.logger, s.cfg, s.store, s.notifier, rng)
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"parsed":       outcome.Parsed,
		"inserted":     outcome.Inserted,
		"pagesFetched": outcome.PagesFetched,
		"durationMs":   outcome.Duration.Milliseconds(),
	})
}

func (s *Server) authorized(r *http.Request) bool {
	if token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "); token == s.cfg.AlertToken {
		return true
	}
	return r.URL.Query().Get("token") == s.cfg.AlertToken
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
