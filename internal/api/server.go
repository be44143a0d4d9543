// Package api exposes the flight search service over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/flysearch/internal/engine"
	"github.com/seantiz/flysearch/internal/flight"
	"github.com/seantiz/flysearch/internal/store"
)

const (
	shutdownTimeout     = 10 * time.Second
	readHeaderTimeout   = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// FlightSearcher serves the synchronous search path. *search.Service
// satisfies it.
type FlightSearcher interface {
	GetFlights(ctx context.Context, pid string) (*flight.Response, bool, error)
}

// Server wraps the chi router and application dependencies.
type Server struct {
	router       *chi.Mux
	flights      FlightSearcher
	engine       *engine.Engine
	store        store.Store
	logger       *slog.Logger
	addr         string
	writeTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithWriteTimeout sets the HTTP server's write timeout. It must exceed the
// longest synchronous search.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// NewServer creates and configures a new HTTP server.
func NewServer(addr string, flights FlightSearcher, eng *engine.Engine, st store.Store, logger *slog.Logger, opts ...Option) *Server {
	srv := &Server{
		router:       chi.NewRouter(),
		flights:      flights,
		engine:       eng,
		store:        st,
		logger:       logger,
		addr:         addr,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Get("/get_flights", s.handleGetFlights)
	s.router.Post("/start_search", s.handleStartSearch)
	s.router.Get("/get_result", s.handleGetResult)
	s.router.Get("/tasks/{id}/events", s.handleTaskEvents)

	s.router.Get("/stats", s.handleGetStats)
	s.router.Get("/searches", s.handleListSearches)
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received
// and in-flight requests have drained.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
