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

	"github.com/gzimm88/StockLensesV2/internal/modules/etl"
	"github.com/gzimm88/StockLensesV2/internal/modules/financials"
	"github.com/gzimm88/StockLensesV2/internal/modules/metrics"
	"github.com/gzimm88/StockLensesV2/internal/modules/prices"
	"github.com/gzimm88/StockLensesV2/internal/modules/scoring"
	"github.com/gzimm88/StockLensesV2/internal/modules/tickers"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DevMode bool

	Tickers    *tickers.Repository
	Financials *financials.Repository
	Prices     *prices.Repository
	Metrics    *metrics.Repository
	Scoring    *scoring.Repository
	ETL        *etl.Service
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	port    int
	started time.Time

	tickers    *tickers.Repository
	financials *financials.Repository
	prices     *prices.Repository
	metrics    *metrics.Repository
	scoring    *scoring.Repository
	etl        *etl.Service
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		port:       cfg.Port,
		started:    time.Now(),
		tickers:    cfg.Tickers,
		financials: cfg.Financials,
		prices:     cfg.Prices,
		metrics:    cfg.Metrics,
		scoring:    cfg.Scoring,
		etl:        cfg.ETL,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Refresh runs the full vendor pipeline inline, so the request
	// timeout has to cover the rate-limited Finnhub calls.
	s.router.Use(middleware.Timeout(5 * time.Minute))

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
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/tickers", func(r chi.Router) {
			r.Get("/", s.handleListTickers)
			r.Route("/{symbol}", func(r chi.Router) {
				r.Get("/", s.handleGetTicker)
				r.Post("/refresh", s.handleRefresh)
				r.Get("/metrics", s.handleGetMetrics)
				r.Get("/financials", s.handleGetFinancials)
				r.Get("/prices", s.handleGetPrices)
				r.Get("/snapshots", s.handleGetSnapshots)
				r.Get("/confidence", s.handleGetConfidence)
			})
		})

		r.Route("/lenses", func(r chi.Router) {
			r.Get("/", s.handleListLenses)
			r.Get("/{id}", s.handleGetLens)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
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
