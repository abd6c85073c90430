package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/internal/application/capabilities"
	"github.com/aescanero/datafabric/internal/application/intents"
	"github.com/aescanero/datafabric/internal/application/lifecycle"
	"github.com/aescanero/datafabric/internal/application/signals"
	"github.com/aescanero/datafabric/internal/application/workers"
	"github.com/aescanero/datafabric/pkg/ports"
)

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	server       *http.Server
	lifecycle    *lifecycle.Manager
	capabilities *capabilities.Registry
	provider     *capabilities.Provider
	intents      *intents.Engine
	signals      *signals.Registry
	emitter      *signals.Emitter
	workers      *workers.Pool
	eventBus     ports.EventBus
	logger       *zap.Logger
}

// Config holds HTTP server configuration. Workers and EventBus are
// optional; Metrics defaults to the default Prometheus registry.
type Config struct {
	Port         int
	Lifecycle    *lifecycle.Manager
	Capabilities *capabilities.Registry
	Provider     *capabilities.Provider
	Intents      *intents.Engine
	Signals      *signals.Registry
	Emitter      *signals.Emitter
	Workers      *workers.Pool
	EventBus     ports.EventBus
	Metrics      http.Handler
	Logger       *zap.Logger
}

// SignalStreamer serves the live signal stream
type SignalStreamer interface {
	HandleSignalStream(*gin.Context)
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:       router,
		lifecycle:    cfg.Lifecycle,
		capabilities: cfg.Capabilities,
		provider:     cfg.Provider,
		intents:      cfg.Intents,
		signals:      cfg.Signals,
		emitter:      cfg.Emitter,
		workers:      cfg.Workers,
		eventBus:     cfg.EventBus,
		logger:       logger,
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	s.setupRoutes(metrics)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(metrics http.Handler) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)
	s.router.GET("/metrics", gin.WrapH(metrics))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.handleStatus)

		v1.GET("/capabilities", s.handleListCapabilities)
		v1.GET("/capabilities/:name", s.handleGetCapability)

		v1.GET("/units", s.handleListUnits)
		v1.GET("/units/:name", s.handleGetUnit)
		v1.GET("/units/:name/signals", s.handleUnitSignals)
		v1.POST("/units/:name/completions", s.handleCompletion)

		v1.GET("/intents", s.handleListIntents)
		v1.GET("/intents/:type", s.handleGetIntent)
		v1.POST("/intents/:type/decompose", s.handleDecompose)

		v1.POST("/locality", s.handleLocality)

		v1.GET("/signals", s.handleListSignals)
		v1.GET("/signals/:name", s.handleGetSignal)

		v1.GET("/emissions", s.handleListEmissions)
		v1.DELETE("/emissions", s.handleClearEmissions)

		v1.GET("/workers", s.handleWorkers)
	}
}

// SetupWebSocket adds the signal stream handler to the server
func (s *Server) SetupWebSocket(handler SignalStreamer) {
	s.router.GET("/api/v1/ws/signals", handler.HandleSignalStream)
}

// Handler returns the router, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
