// Package server provides the HTTP server and routing for the engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/database"
	"github.com/stavrou/ballast/internal/events"
	"github.com/stavrou/ballast/internal/modules/allocation"
	allocationhandlers "github.com/stavrou/ballast/internal/modules/allocation/handlers"
	"github.com/stavrou/ballast/internal/modules/forecast"
	forecasthandlers "github.com/stavrou/ballast/internal/modules/forecast/handlers"
	metricshandlers "github.com/stavrou/ballast/internal/modules/metrics/handlers"
	"github.com/stavrou/ballast/internal/modules/optimization"
	optimizationhandlers "github.com/stavrou/ballast/internal/modules/optimization/handlers"
	"github.com/stavrou/ballast/internal/modules/rebalancing"
	rebalancinghandlers "github.com/stavrou/ballast/internal/modules/rebalancing/handlers"
	"github.com/stavrou/ballast/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Port    int
	DevMode bool

	RiskFreeRate float64

	Forecasts    *forecast.Service
	Optimization *optimization.Service
	Rebalancing  *rebalancing.Service
	Allocation   *allocation.Repository

	Databases []*database.DB
	Scheduler *scheduler.Scheduler
	Bus       *events.Bus

	Log zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router returns the underlying router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	systemHandlers := NewSystemHandlers(cfg.Databases, cfg.Scheduler, s.log)

	// Health check
	s.router.Get("/health", systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Optimizer runs can take a while on large iteration counts; the
		// timeout applies per request, the websocket route sits outside it.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			if cfg.Forecasts != nil {
				forecasthandlers.NewHandler(cfg.Forecasts, s.log).RegisterRoutes(r)
				metricshandlers.NewHandler(cfg.Forecasts, cfg.RiskFreeRate, s.log).RegisterRoutes(r)
			}
			if cfg.Optimization != nil {
				optimizationhandlers.NewHandler(cfg.Optimization, s.log).RegisterRoutes(r)
			}
			if cfg.Rebalancing != nil {
				rebalancinghandlers.NewHandler(cfg.Rebalancing, s.log).RegisterRoutes(r)
			}
			if cfg.Allocation != nil {
				allocationhandlers.NewHandler(cfg.Allocation, cfg.Bus, s.log).RegisterRoutes(r)
			}

			systemHandlers.RegisterRoutes(r)
		})

		if cfg.Bus != nil {
			wsHandler := NewEventsWSHandler(cfg.Bus, s.log)
			r.Get("/events/ws", wsHandler.ServeHTTP)
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
