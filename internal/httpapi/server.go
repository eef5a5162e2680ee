// Package httpapi exposes the three-endpoint HTTP surface of §6.1: search,
// single-drug detail, and alternatives. Grounded on the teacher's
// internal/httpapi/server.go (Go 1.22 method+path ServeMux patterns,
// Server/registerRoutes shape) generalized from the playground API's dozen
// CRUD routes down to this spec's three.
package httpapi

import (
	"net/http"

	"fdbsearch/internal/catalogstore"
	"fdbsearch/internal/config"
	"fdbsearch/internal/queryunderstanding"
	"fdbsearch/internal/search"
)

// Server exposes the search engine's HTTP surface.
type Server struct {
	orchestrator *search.Orchestrator
	parser       *queryunderstanding.Parser
	catalog      catalogstore.Reader
	cfg          config.SearchConfig
	mux          *http.ServeMux
}

// NewServer wires a Server to its collaborators and registers routes.
func NewServer(orchestrator *search.Orchestrator, parser *queryunderstanding.Parser, catalog catalogstore.Reader, cfg config.SearchConfig) *Server {
	s := &Server{orchestrator: orchestrator, parser: parser, catalog: catalog, cfg: cfg, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler, wrapping every request in CORS,
// request-id, and telemetry/logging middleware.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withMiddleware(s.mux).ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("GET /drugs/{ndc}", s.handleGetDrug)
	s.mux.HandleFunc("GET /drugs/{ndc}/alternatives", s.handleGetAlternatives)
}
