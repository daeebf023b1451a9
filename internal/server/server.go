// Package server exposes the imported geography and the cost calculator
// over HTTP and schedules the background sync pipeline.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kskby/dpd/internal/config"
	"github.com/kskby/dpd/internal/store"
	"github.com/kskby/dpd/internal/telemetry"
	"github.com/kskby/dpd/pkg/dpd/calc"
	dpdsync "github.com/kskby/dpd/pkg/dpd/sync"
)

// Server is the HTTP server for the DPD integration service.
type Server struct {
	cfg          *config.Config
	store        *store.Store
	orchestrator *dpdsync.Orchestrator
	calculator   *calc.Calculator
	converter    calc.Converter
	normalizer   *dpdsync.Normalizer
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics

	// syncGroup serializes pipeline invocations: the scheduler tick and a
	// manual trigger arriving together share one run.
	syncGroup singleflight.Group
}

// New creates a new server instance.
func New(cfg *config.Config, st *store.Store, orchestrator *dpdsync.Orchestrator,
	calculator *calc.Calculator, converter calc.Converter, normalizer *dpdsync.Normalizer,
	logger *otelzap.Logger) *Server {
	return &Server{
		cfg:          cfg,
		store:        st,
		orchestrator: orchestrator,
		calculator:   calculator,
		converter:    converter,
		normalizer:   normalizer,
		logger:       logger,
		metrics:      telemetry.NewMetrics(),
	}
}

// Run starts the HTTP server and the sync scheduler and blocks until the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go s.runScheduler(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/locations/search", s.handleLocationSearch)
		r.Get("/terminals", s.handleTerminals)
		r.Post("/quote", s.handleQuote)

		r.Get("/sync", s.handleSyncStatus)
		r.Post("/sync", s.handleSyncTrigger)
		r.Post("/sync/reset", s.handleSyncReset)
	})

	return r
}
