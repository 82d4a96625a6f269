// Package server exposes workflow runs over HTTP: an SSE chat stream, run
// cancellation, health and metrics, and a connect streaming procedure.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/workflow"
)

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetricsHandler replaces the default promhttp handler behind /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

type Server struct {
	cfg     Config
	runner  *workflow.Runner
	echo    *echo.Echo
	limiter *Limiter
	logger  *slog.Logger
	metrics http.Handler
}

func New(runner *workflow.Runner, cfg Config, opts ...Option) *Server {
	defaults := DefaultConfig()
	defaults.Merge(&cfg)

	s := &Server{
		cfg:     defaults,
		runner:  runner,
		limiter: NewLimiter(defaults.RateLimit.RPS, defaults.RateLimit.Burst),
		logger:  slog.Default(),
		metrics: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(s.metrics))

	api := e.Group("/api", s.limiter.Middleware())
	api.POST("/chat/stream", s.chatStream)
	api.POST("/runs/:id/cancel", s.cancelRun)

	path, handler := s.connectHandler()
	e.Any(path, echo.WrapHandler(handler), s.limiter.Middleware())

	s.echo = e
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Addr() string {
	return s.cfg.Addr()
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.Addr())
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight streams,
// bounded by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.ShutdownTimeout))
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				s.logger.Error("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			s.logger.Debug("request", attrs...)
			return nil
		},
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"active_runs": len(s.runner.Runs().Active()),
	})
}

func (s *Server) cancelRun(c echo.Context) error {
	id := c.Param("id")
	if !s.runner.Runs().Cancel(id) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"workflow_id": id, "status": "cancelling"})
}

// chatStream writes each event of a new run as an SSE frame. A client
// disconnect cancels the run; the handler returns once it has cleaned up.
func (s *Server) chatStream(c echo.Context) error {
	var req workflow.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	stream, err := s.runner.Run(ctx, req)
	if errors.Is(err, workflow.ErrEmptyMessages) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer func() { <-stream.Done() }()

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			return nil
		}
		if err := writeEvent(w, ev); err != nil {
			stream.Cancel()
			s.logger.Warn("sse write failed", "workflow_id", stream.ID(), "error", err)
			return nil
		}
	}
}

func writeEvent(w *echo.Response, ev protocol.Event) error {
	data, err := ev.JSON()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
