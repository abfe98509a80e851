// Package http provides the inspection HTTP server, its middleware and routes.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/workforce-sync/internal/config"
	deadLetterHTTP "github.com/allisson/workforce-sync/internal/deadletter/http"
	"github.com/allisson/workforce-sync/internal/metrics"
	personHTTP "github.com/allisson/workforce-sync/internal/person/http"
	validationHTTP "github.com/allisson/workforce-sync/internal/validation/http"
)

// Server serves the read-only inspection API and the health probes.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: newHTTPServer(host, port, nil),
	}
}

// SetupRouter registers middleware and every route of the inspection API.
func (s *Server) SetupRouter(
	cfg *config.Config,
	findingHandler *validationHTTP.FindingHandler,
	deadLetterHandler *deadLetterHTTP.DeadLetterHandler,
	personHandler *personHTTP.PersonHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cors := corsMiddleware(cfg, s.logger); cors != nil {
		router.Use(cors)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	{
		findings := v1.Group("/findings")
		{
			findings.GET("", findingHandler.ListHandler)
			findings.GET("/stats", findingHandler.StatsHandler)
		}

		deadLetters := v1.Group("/dead-letters")
		{
			deadLetters.GET("", deadLetterHandler.ListHandler)
			deadLetters.GET("/:id", deadLetterHandler.GetHandler)
			deadLetters.POST("/:id/reprocess", deadLetterHandler.ReprocessHandler)
		}

		v1.GET("/people/:source_id/history", personHandler.HistoryHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start blocks until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured: call SetupRouter first")
	}
	s.server.Handler = s.router
	return listen(s.server, s.logger, "http server")
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the target database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
