// Package server реализует HTTP API сервиса.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowmesh/mincostflow/internal/service"
	"github.com/flowmesh/mincostflow/pkg/config"
	"github.com/flowmesh/mincostflow/pkg/logger"
	"github.com/flowmesh/mincostflow/pkg/metrics"
	"github.com/flowmesh/mincostflow/pkg/ratelimit"
	"github.com/flowmesh/mincostflow/pkg/swagger"
	"github.com/flowmesh/mincostflow/pkg/telemetry"
)

// HealthFunc проверка готовности зависимости
type HealthFunc func(ctx context.Context) error

// Server HTTP сервер сервиса
type Server struct {
	cfg     *config.Config
	solver  *service.SolverService
	limiter ratelimit.Limiter
	http    *http.Server

	healthChecks map[string]HealthFunc
}

// Option настраивает сервер при создании
type Option func(*Server)

// WithRateLimiter включает ограничение частоты запросов к API
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// New создаёт сервер
func New(cfg *config.Config, solver *service.SolverService, opts ...Option) *Server {
	s := &Server{
		cfg:          cfg,
		solver:       solver,
		healthChecks: make(map[string]HealthFunc),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.http = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// AddHealthCheck регистрирует проверку зависимости для /healthz.
// Вызывать до Start.
func (s *Server) AddHealthCheck(name string, fn HealthFunc) {
	s.healthChecks[name] = fn
}

// Handler строит маршрутизатор
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(telemetry.Middleware())
	r.Use(metricsMiddleware)
	r.Use(loggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimitMiddleware)
		}
		r.Post("/solve", s.handleSolve)
		r.Get("/strategies", s.handleStrategies)
		r.Get("/solves", s.handleListSolves)
		r.Get("/solves/{id}", s.handleGetSolve)
		r.Delete("/solves/{id}", s.handleDeleteSolve)
	})

	r.Get("/healthz", s.handleHealth)

	docs := swagger.NewHandler(nil, openAPISpec)
	r.Handle("/swagger", docs)
	r.Handle("/swagger/*", docs)

	if s.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	return r
}

// Start запускает сервер и блокируется до остановки
func (s *Server) Start() error {
	logger.Log.Info("HTTP server listening", "addr", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
