package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"metals-dashboard/internal/config"
	"metals-dashboard/internal/logging"
)

// Metrics is the slice of the Prometheus recorder the server needs.
type Metrics interface {
	HTTPStarted() func(route, method string, status int)
	Handler() http.Handler
}

// Server wraps the echo instance and its http.Server.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	logger zerolog.Logger
}

// New builds the HTTP server. metrics may be nil.
func New(cfg config.ServerConfig, handler *Handler, metrics Metrics, logger zerolog.Logger) *Server {
	logger = logging.Component(logger, "server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(recoverer(logger))
	e.Use(requestLogging(logger))
	if metrics != nil {
		e.Use(instrument(metrics))
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	handler.RegisterRoutes(e)

	return &Server{echo: e, cfg: cfg, logger: logger}
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.echo,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}

func recoverer(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					panicErr, ok := r.(error)
					if !ok {
						panicErr = fmt.Errorf("%v", r)
					}
					logger.Error().Err(panicErr).Bytes("stack", debug.Stack()).Msg("panic recovered")
					err = AppErrorResponse(c, panicErr)
				}
			}()
			return next(c)
		}
	}
}

func requestLogging(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote", c.RealIP()).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}

// instrument labels by route template so ids in paths do not explode cardinality.
func instrument(m Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			done := m.HTTPStarted()
			if err := next(c); err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			done(route, c.Request().Method, c.Response().Status)
			return nil
		}
	}
}
