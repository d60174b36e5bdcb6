// Package api serves the dashboard: JSON state endpoints, a snapshot stream and health probes.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/pkg/logger"
	"github.com/selivandex/forex-analyzer/pkg/models"
)

// Coordinator is the refresh pipeline as seen by the dashboard
type Coordinator interface {
	Snapshot() models.Snapshot
	Trigger() bool
	Settled() bool
	Subscribe() (<-chan models.Snapshot, func())
}

// SettingsStore reads and applies user settings
type SettingsStore interface {
	Get() models.Settings
	Update(ctx context.Context, updated models.Settings) error
}

// HealthCheck reports a dependency problem as error
type HealthCheck func() error

// Server is the dashboard HTTP server
type Server struct {
	server      *http.Server
	engine      *gin.Engine
	coordinator Coordinator
	settings    SettingsStore
	checks      map[string]HealthCheck
	ready       bool
	readyMu     sync.RWMutex
	startTime   time.Time
}

// NewServer creates dashboard server, checks are reported by readiness probes
func NewServer(port string, coordinator Coordinator, settings SettingsStore, checks map[string]HealthCheck) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		engine:      engine,
		coordinator: coordinator,
		settings:    settings,
		checks:      checks,
		startTime:   time.Now(),
	}
	s.server = &http.Server{
		Addr:        ":" + port,
		Handler:     engine,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
		// no WriteTimeout, it would cut long-lived websocket streams
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/state", s.handleState)
	api.GET("/news", s.handleNews)
	api.GET("/correlations", s.handleCorrelations)
	api.GET("/cost", s.handleCost)
	api.POST("/refresh", s.handleRefresh)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)
	api.GET("/ws", s.handleStream)

	// Probes
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/ready", s.handleReadiness)
	s.engine.GET("/readyz", s.handleReadiness)
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called
func (s *Server) Start() error {
	logger.Info("dashboard server starting",
		zap.String("addr", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping dashboard server...")
	return s.server.Shutdown(ctx)
}

// SetReady marks startup as complete
func (s *Server) SetReady(ready bool) {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	s.ready = ready

	if ready {
		logger.Info("✅ service marked as READY")
	} else {
		logger.Warn("⚠️ service marked as NOT READY")
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
