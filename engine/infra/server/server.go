package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/catalog/engine/catalog"
	"github.com/compozy/catalog/engine/infra/monitoring"
	"github.com/compozy/catalog/engine/processor"
	"github.com/compozy/catalog/pkg/config"
	"github.com/compozy/catalog/pkg/logger"
)

const (
	httpReadTimeout       = 15 * time.Second
	httpWriteTimeout      = 15 * time.Second
	httpIdleTimeout       = 60 * time.Second
	defaultShutdownPeriod = 10 * time.Second
	maxEntityBodyBytes    = 1 << 20
)

// Server exposes the entity pipeline and store over HTTP.
type Server struct {
	cfg        *config.ServerConfig
	store      catalog.Store
	pipeline   *processor.Pipeline
	monitoring *monitoring.Service
	router     *gin.Engine
}

// NewServer wires the router. A nil monitoring service disables /metrics.
func NewServer(
	ctx context.Context,
	cfg *config.ServerConfig,
	store catalog.Store,
	pipeline *processor.Pipeline,
	mon *monitoring.Service,
) *Server {
	if pipeline == nil {
		pipeline = processor.DefaultPipeline()
	}
	s := &Server{cfg: cfg, store: store, pipeline: pipeline, monitoring: mon}
	s.router = s.buildRouter(ctx)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run serves until ctx is canceled, then drains in-flight requests within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	httpServer := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  httpReadTimeout,
		WriteTimeout: httpWriteTimeout,
		IdleTimeout:  httpIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Catalog server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownPeriod
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	log.Info("Shutting down server", "timeout", timeout)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.monitoring != nil {
		if err := s.monitoring.Shutdown(shutdownCtx); err != nil {
			log.Warn("Monitoring shutdown failed", "error", err)
		}
	}
	return <-errCh
}
