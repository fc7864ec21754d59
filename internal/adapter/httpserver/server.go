package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/platform/config"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config

	configs       domain.ConfigStore
	subscriptions domain.EventSubService

	webhookHandler http.Handler
	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the HTTP surface. subscriptions, metricsHandler and
// httpMetrics may be nil; the matching routes are then not registered.
func NewServer(cfg *config.Config, webhookHandler http.Handler, configs domain.ConfigStore, subscriptions domain.EventSubService, healthChecks []HealthCheck, metricsHandler http.Handler, httpMetrics *metrics.HTTPMetrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		configs:        configs,
		subscriptions:  subscriptions,
		webhookHandler: webhookHandler,
		metricsHandler: metricsHandler,
		httpMetrics:    httpMetrics,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
