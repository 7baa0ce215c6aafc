// Package server provides the HTTP surface of the storyfeed API. It
// includes Gin-based routing, middleware setup, the GraphQL endpoint
// with its websocket subscription transport, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-transport-ws/graphqlws"
	"go.uber.org/zap"

	"github.com/piwi3910/storyfeed/internal/auth"
	"github.com/piwi3910/storyfeed/internal/config"
	"github.com/piwi3910/storyfeed/internal/storage"
)

// Server is the HTTP server for the storyfeed API.
//
// It provides:
//   - The GraphQL endpoint (/api/v1/stories) over HTTP and websocket
//   - GraphiQL for browser requests
//   - Health check endpoint (/health)
//   - Prometheus metrics endpoint (/metrics)
//   - Request logging and recovery middleware
//   - Graceful shutdown support
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	router     *gin.Engine
	httpServer *http.Server
	store      storage.Store
	authMw     *auth.Middleware
	schema     *graphqlgo.Schema

	// wsHandler upgrades graphql-ws requests and falls back to plain
	// HTTP execution for everything else.
	wsHandler http.HandlerFunc

	shutdownOnce sync.Once
}

// New creates a Server with the given configuration, logger, schema and
// dependencies. It initializes the Gin router, sets up middleware, and
// configures routes.
//
// The function will panic if essential dependencies are missing.
func New(cfg *config.Config, logger *zap.Logger, schema *graphqlgo.Schema, store storage.Store, authMw *auth.Middleware) *Server {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if schema == nil {
		panic("schema cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if authMw == nil {
		panic("auth middleware cannot be nil")
	}

	gin.SetMode(cfg.Server.GinMode)

	srv := &Server{
		config: cfg,
		logger: logger,
		router: gin.New(),
		store:  store,
		authMw: authMw,
		schema: schema,
	}
	srv.wsHandler = graphqlws.NewHandlerFunc(schema, http.HandlerFunc(srv.serveGraphQL))

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

// setupMiddleware configures middleware for the Gin router.
// Middleware is executed in the order they are added.
func (s *Server) setupMiddleware() {
	// Recovery must be first to catch panics from everything below.
	s.router.Use(s.recoveryMiddleware())

	s.router.Use(s.loggingMiddleware())

	if s.config.Observability.Metrics.Enabled {
		s.router.Use(s.metricsMiddleware())
	}

	if s.config.Security.EnableCORS {
		s.router.Use(s.corsMiddleware())
	}
}

// Start starts the HTTP server and blocks until it is shut down.
// It supports graceful shutdown on SIGINT and SIGTERM signals.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.config.Server.ReadTimeout,
		// WriteTimeout stays at the configured value; the default of
		// zero keeps long-lived subscription connections alive.
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting HTTP server",
			zap.String("address", addr),
			zap.String("mode", s.config.Server.GinMode),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the HTTP server, waiting for active
// requests to complete or until the shutdown timeout expires. Safe to
// call multiple times.
func (s *Server) Shutdown() error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info("initiating graceful shutdown",
			zap.Duration("timeout", s.config.Server.ShutdownTimeout),
		)

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("error during shutdown", zap.Error(err))
				shutdownErr = fmt.Errorf("server shutdown failed: %w", err)
				return
			}
		}

		if err := s.store.Close(); err != nil {
			s.logger.Warn("error closing store", zap.Error(err))
		}

		s.logger.Info("server shutdown complete")
	})

	return shutdownErr
}

// Router returns the underlying Gin router.
// This is useful for testing and adding custom routes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// recoveryMiddleware recovers from panics and logs the error.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests and responses.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Info("HTTP request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("body_size", c.Writer.Size()),
			zap.String("request_id", auth.RequestIDFromContext(c.Request.Context())),
		)

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				s.logger.Error("request error", zap.Error(e.Err))
			}
		}
	}
}

// metricsMiddleware collects Prometheus metrics for HTTP requests.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		activeRequests.Inc()
		defer activeRequests.Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		status := fmt.Sprintf("%d", c.Writer.Status())

		requestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
	}
}

// corsMiddleware adds CORS headers to responses.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := len(s.config.Security.AllowedOrigins) == 0
		for _, allowedOrigin := range s.config.Security.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Writer.Header().Set("Access-Control-Allow-Methods",
				strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", "))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
