package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Wikid82/geogate/internal/api/middleware"
	"github.com/Wikid82/geogate/internal/api/routes"
	"github.com/Wikid82/geogate/internal/app"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/metrics"
)

// Server wraps the HTTP engine and the wired services.
type Server struct {
	Engine *gin.Engine
	app    *app.App
}

// New builds the router: request bookkeeping first, then the gate and the
// routes.
func New(a *app.App) *Server {
	gin.SetMode(gin.ReleaseMode)
	if a.Config.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger("/api/v1/health", "/metrics"),
		middleware.Recovery(a.Config.Debug),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{IsDevelopment: a.Config.Environment != "production"}),
	)
	routes.Register(router, a, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return &Server{Engine: router, app: a}
}

// Run serves until ctx is cancelled, running the maintenance schedule for
// the lifetime of the listener.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.app.Config.HTTPPort),
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.app.Maintenance.Start(); err != nil {
		return fmt.Errorf("start maintenance: %w", err)
	}
	defer s.app.Maintenance.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Log().WithField("addr", srv.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
