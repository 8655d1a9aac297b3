// Package api serves the analysis engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/metalyz/backend/analyzer"
	"github.com/metalyz/backend/history"
	"github.com/metalyz/backend/metrics"
	"github.com/metalyz/backend/middleware"
	"github.com/metalyz/backend/stats"
)

// HistoryLister lists stored analyses for a URL, newest first.
type HistoryLister interface {
	List(ctx context.Context, url string, limit int) ([]history.Record, error)
}

// Config contains server configuration
type Config struct {
	Addr       string
	DevMode    bool
	CORSOrigin string
	RateLimit  float64
	RateBurst  int
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:       ":8082",
		CORSOrigin: "*",
		RateLimit:  2,
		RateBurst:  5,
	}
}

// Server is the HTTP API.
type Server struct {
	analyzer *analyzer.Analyzer
	requests *stats.Requests
	storage  *stats.Storage
	history  HistoryLister
	gatherer prometheus.Gatherer
	logger   *log.Logger
	devMode  bool

	engine *gin.Engine
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithRequests tracks request statistics in r and serves them.
func WithRequests(r *stats.Requests) Option {
	return func(s *Server) { s.requests = r }
}

// WithStorage serves monthly cache statistics from st.
func WithStorage(st *stats.Storage) Option {
	return func(s *Server) { s.storage = st }
}

// WithHistory enables GET /api/history.
func WithHistory(h HistoryLister) Option {
	return func(s *Server) { s.history = h }
}

// WithGatherer enables GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates the API server around a.
func NewServer(cfg Config, a *analyzer.Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer: a,
		logger:   log.Default(),
		devMode:  cfg.DevMode,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(middleware.ErrorHandler(s.logger))
	s.engine.Use(middleware.RequestLogger(s.logger))
	s.engine.Use(middleware.CORS(cfg.CORSOrigin))
	if s.requests != nil {
		s.engine.Use(middleware.Stats(s.requests, s.logger,
			"/api/analyze", "/api/analyze-url", "/api/meta-tags"))
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	s.registerRoutes(rateLimiter.RateLimit())

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(limit gin.HandlerFunc) {
	if s.gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}

	api := s.engine.Group("/api", limit)
	{
		api.GET("/health", s.handleHealth)
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/analyze-url", s.handleAnalyzeURL)
		api.POST("/score", s.handleScore)
		api.POST("/meta-tags", s.handleMetaTags)
		api.GET("/history", s.handleHistory)
		api.GET("/statistics", s.handleStatistics)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.server.Shutdown(ctx)
}
