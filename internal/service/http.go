package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/recallq/recallq/internal/recall"
)

// HTTPServer exposes an Index over the recall HTTP contract consumed by
// recall.Client: POST /api/search plus a /healthz probe.
type HTTPServer struct {
	index  *Index
	logger *slog.Logger
}

// NewHTTPServer wraps an index with HTTP handlers.
func NewHTTPServer(index *Index, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{index: index, logger: logger}
}

type httpSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type httpSearchResponse struct {
	Results recall.Results `json:"results"`
}

// Handler returns the routing handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req httpSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	results, err := s.index.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.logger.Error("search failed",
			slog.String("query", req.Query),
			slog.String("error", err.Error()))
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("search served",
		slog.String("query", req.Query),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(httpSearchResponse{Results: results}); err != nil {
		s.logger.Error("failed to write response", slog.String("error", err.Error()))
	}
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"items":  s.index.Count(),
	})
}
