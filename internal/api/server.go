// Package api exposes the read-side HTTP surface of coinrank: aggregate
// stats per asset and globally, a normalized-price ranking, and the per-date
// best-performer lookup.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"coinrank/internal/domain"
	"coinrank/internal/stats"
)

// Server serves the coinrank HTTP API over the in-memory stats store and
// the best-performer query.
type Server struct {
	mem  *stats.Store
	best *stats.BestPerformerQuery
	log  *slog.Logger
}

// NewServer creates a Server reading from the given store and query.
func NewServer(mem *stats.Store, best *stats.BestPerformerQuery, log *slog.Logger) *Server {
	return &Server{
		mem:  mem,
		best: best,
		log:  log.With("component", "api"),
	}
}

// Handler returns the routed HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stats", s.handleAllStats)
	mux.HandleFunc("GET /api/stats/{asset}", s.handleAssetStats)
	mux.HandleFunc("GET /api/sorted", s.handleSorted)
	mux.HandleFunc("GET /api/best", s.handleBestPerformer)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// handleAllStats returns the aggregate stats of every asset. Keys serialize
// in ascending lexicographic order.
func (s *Server) handleAllStats(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]*domain.AggregateStats)
	for _, e := range s.mem.Snapshot() {
		out[e.ID] = e.Stats
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleAssetStats returns the aggregate stats of a single asset.
func (s *Server) handleAssetStats(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("asset"))
	st, ok := s.mem.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unsupported asset: "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// handleSorted returns the assets ordered by normalized price. The order
// query parameter accepts "asc" and "desc"; the default is descending.
func (s *Server) handleSorted(w http.ResponseWriter, r *http.Request) {
	order := stats.Descending
	switch strings.ToLower(r.URL.Query().Get("order")) {
	case "", "desc":
	case "asc":
		order = stats.Ascending
	default:
		s.writeError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}
	s.writeJSON(w, http.StatusOK, s.mem.SortedByNormalizedPrice(order))
}

// handleBestPerformer validates the date parameter and runs the per-date
// ranking query. The no-data sentinel maps to 404.
func (s *Server) handleBestPerformer(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	day, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "date must be formatted as "+domain.DateLayout)
		return
	}

	best, err := s.best.Run(r.Context(), day)
	if err != nil {
		if errors.Is(err, stats.ErrNoDataForDate) {
			s.writeError(w, http.StatusNotFound, "no price data for "+raw)
			return
		}
		s.log.Error("best-performer query failed", "date", raw, "error", err)
		s.writeError(w, http.StatusInternalServerError, "querying best performer failed")
		return
	}
	s.writeJSON(w, http.StatusOK, best)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
