// Package server exposes the search service as a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Micdiane/arxiv-helper/internal/paper"
	"github.com/Micdiane/arxiv-helper/internal/search"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

// Query parameter bounds.
const (
	defaultLimit = 50
	maxLimit     = 100
	defaultK     = 10
	maxK         = 50
)

// Server wraps the search service with HTTP handlers.
type Server struct {
	svc    *search.Service
	logger *log.Logger
}

// New creates a server. A nil logger falls back to the standard logger.
func New(svc *search.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{svc: svc, logger: logger}
}

// Handler returns the API route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/papers", s.handleListPapers)
	mux.HandleFunc("GET /api/papers/{id}", s.handleGetPaper)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/semantic-search", s.handleSemanticSearch)
	mux.HandleFunc("GET /api/similar/{id}", s.handleSimilar)
	mux.HandleFunc("GET /api/library", s.handleLibrary)
	mux.HandleFunc("POST /api/library/{id}/toggle", s.handleToggleFavorite)
	return mux
}

// ListenAndServe runs the API server on addr until it fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Printf("serving API on http://%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// paperList is the response shape for paginated paper collections.
type paperList struct {
	Papers []paper.Paper `json:"papers"`
	Total  int           `json:"total"`
	Skip   int           `json:"skip"`
	Limit  int           `json:"limit"`
}

// scoredPaper is a paper annotated with its similarity score.
type scoredPaper struct {
	paper.Paper
	Score float32 `json:"score"`
}

// searchResult is the response shape for keyword and semantic queries.
type searchResult struct {
	Papers any    `json:"papers"`
	Query  string `json:"query"`
	Total  int    `json:"total"`
}

// similarResult is the response shape for similar-paper lookups.
type similarResult struct {
	Papers  []scoredPaper `json:"papers"`
	QueryID string        `json:"query_id"`
	Total   int           `json:"total"`
}

// toggleResult is the response shape for favorite toggles.
type toggleResult struct {
	ArxivID    string `json:"arxiv_id"`
	IsFavorite bool   `json:"is_favorite"`
}

// errorResult is the response shape for failures.
type errorResult struct {
	Error string `json:"error"`
}

func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	sortBy := r.URL.Query().Get("sort")
	if sortBy == "" {
		sortBy = store.SortDate
	}

	papers, total, err := s.svc.List(skip, limit, sortBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, paperList{Papers: emptyIfNil(papers), Total: total, Skip: skip, Limit: limit})
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResult{Error: "missing query parameter q"})
		return
	}
	skip, limit := pageParams(r)
	sortBy := r.URL.Query().Get("sort")
	if sortBy == "" {
		sortBy = store.SortDate
	}

	papers, total, err := s.svc.Keyword(q, skip, limit, sortBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, searchResult{Papers: emptyIfNil(papers), Query: q, Total: total})
}

func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResult{Error: "missing query parameter q"})
		return
	}
	k := kParam(r)

	results, err := s.svc.Semantic(r.Context(), q, k)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, searchResult{Papers: scorePapers(results), Query: q, Total: len(results)})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	k := kParam(r)

	results, err := s.svc.Similar(r.Context(), id, k)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, similarResult{Papers: scorePapers(results), QueryID: id, Total: len(results)})
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)

	papers, total, err := s.svc.Favorites(skip, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, paperList{Papers: emptyIfNil(papers), Total: total, Skip: skip, Limit: limit})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	fav, err := s.svc.ToggleFavorite(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toggleResult{ArxivID: id, IsFavorite: fav})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("encoding response: %v", err)
	}
}

// writeError maps the service error taxonomy to HTTP statuses. NotFound and
// NotVectorized are expected client-facing conditions; a timed-out
// embedding is retryable.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, search.ErrNotVectorized):
		status = http.StatusBadRequest
	case errors.Is(err, search.ErrEmbeddingTimeout):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Printf("request failed: %v", err)
	}
	s.writeJSON(w, status, errorResult{Error: err.Error()})
}

func scorePapers(results []search.Result) []scoredPaper {
	scored := make([]scoredPaper, len(results))
	for i, r := range results {
		scored[i] = scoredPaper{Paper: r.Paper, Score: r.Score}
	}
	return scored
}

func emptyIfNil(papers []paper.Paper) []paper.Paper {
	if papers == nil {
		return []paper.Paper{}
	}
	return papers
}

func pageParams(r *http.Request) (skip, limit int) {
	skip = intParam(r, "skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit = intParam(r, "limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

func kParam(r *http.Request) int {
	k := intParam(r, "k", defaultK)
	if k < 1 {
		k = defaultK
	}
	if k > maxK {
		k = maxK
	}
	return k
}

func intParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
