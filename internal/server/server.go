package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/michaelbrown/plotbox/internal/config"
	"github.com/michaelbrown/plotbox/internal/sandbox"
	"github.com/michaelbrown/plotbox/internal/storage"
)

// Server is the HTTP server for the plotbox web API.
type Server struct {
	cfg    *config.Config
	store  storage.Store
	exec   *sandbox.Executor
	conns  *ConnTracker
	router chi.Router
	http   *http.Server
}

// New creates a new Server. store may be nil when history is disabled.
func New(cfg *config.Config, store storage.Store, exec *sandbox.Executor) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		exec:   exec,
		conns:  NewConnTracker(),
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		// Execution
		r.Post("/execute", s.handleExecute)

		// Catalog
		r.Get("/functions", s.handleListFunctions)
		r.Get("/sample", s.handleSampleData)

		// Run history
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)

		// Plot bytes (no JSON content-type on the response)
		r.Get("/runs/{id}/plot", s.handleGetPlot)

		// WebSocket (no JSON content-type)
		r.Get("/ws", s.handleWebSocket)
	})
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("plotbox server starting on http://localhost%s", addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	s.conns.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
