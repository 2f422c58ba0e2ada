package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
	"github.com/veridian-labs/ttpmap-core/internal/observability/metrics"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService     driving.AuthService
	jobService      driving.JobService
	reportService   driving.ReportService
	catalogService  driving.CatalogService
	trainingService driving.TrainingService

	// Infrastructure
	taskQueue driven.TaskQueue
	db        Pinger // PostgreSQL health check
	metrics   *metrics.Metrics

	maxUploadBytes int64
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 50 << 20,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	logger *slog.Logger,
	authService driving.AuthService,
	jobService driving.JobService,
	reportService driving.ReportService,
	catalogService driving.CatalogService,
	trainingService driving.TrainingService,
	taskQueue driven.TaskQueue,
	db Pinger,
	m *metrics.Metrics, // can be nil
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 50 << 20
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		authService:     authService,
		jobService:      jobService,
		reportService:   reportService,
		catalogService:  catalogService,
		trainingService: trainingService,
		taskQueue:       taskQueue,
		db:              db,
		metrics:         m,
		maxUploadBytes:  maxUpload,
	}

	obs := NewObservabilityMiddleware(logger, m)
	recovery := NewRecoveryMiddleware(logger)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(obs.Handler(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the full middleware-wrapped handler (used in tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.Handler())
	}

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// Document submission and job tracking
	s.router.Handle("POST /api/v1/documents",
		authMiddleware.Authenticate(
			authMiddleware.RequireSubmitter(http.HandlerFunc(s.handleSubmitDocument))))
	s.router.Handle("POST /api/v1/documents/{id}/jobs",
		authMiddleware.Authenticate(
			authMiddleware.RequireSubmitter(http.HandlerFunc(s.handleResubmitDocument))))
	s.router.Handle("GET /api/v1/jobs",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListJobs)))
	s.router.Handle("GET /api/v1/jobs/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetJob)))
	s.router.Handle("DELETE /api/v1/jobs/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireSubmitter(http.HandlerFunc(s.handleCancelJob))))

	// Reports and review
	s.router.Handle("GET /api/v1/reports",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListReports)))
	s.router.Handle("POST /api/v1/reports",
		authMiddleware.Authenticate(
			authMiddleware.RequireSubmitter(http.HandlerFunc(s.handleCreateReport))))
	s.router.Handle("GET /api/v1/reports/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetReport)))
	s.router.Handle("DELETE /api/v1/reports/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDeleteReport))))
	s.router.Handle("PATCH /api/v1/sentences/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireSubmitter(http.HandlerFunc(s.handleSetDisposition))))

	// Catalog
	s.router.Handle("GET /api/v1/attack-objects",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListAttackObjects)))

	// Admin: catalog, corpus and model management
	s.router.Handle("POST /api/v1/admin/attack-data",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleLoadAttackData))))
	s.router.Handle("POST /api/v1/admin/training-data",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleLoadTrainingData))))
	s.router.Handle("POST /api/v1/admin/model/train",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTrainModel))))
	s.router.Handle("GET /api/v1/admin/model",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetModel)))
}

// Start starts the HTTP server. It blocks until the listener fails or
// Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
