// Package main is the entry point for solverd, the minimum-cost flow
// service.
//
// solverd exposes the cycle-cancelling solver over an HTTP API:
//
//	POST   /api/v1/solve          - solve a min-cost flow problem
//	GET    /api/v1/strategies     - list negative-cycle detector strategies
//	GET    /api/v1/solves         - list stored solve records
//	GET    /api/v1/solves/{id}    - fetch a stored solve record
//	DELETE /api/v1/solves/{id}    - delete a stored solve record
//	GET    /healthz               - readiness probe
//	GET    /metrics               - Prometheus metrics
//	GET    /swagger               - interactive API documentation
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: MCF_)
//  2. Config files (config.yaml, config/config.yaml, /etc/mincostflow/config.yaml)
//  3. Default values
//
// Key options (environment variable format):
//
//	# Application
//	MCF_APP_NAME             - Service name (default: mincostflow)
//	MCF_APP_ENVIRONMENT      - Environment: development, staging, production
//
//	# HTTP server
//	MCF_SERVER_HOST          - Bind address (default: 0.0.0.0)
//	MCF_SERVER_PORT          - HTTP port (default: 8080)
//
//	# Solver
//	MCF_SOLVER_DEFAULT_STRATEGY    - bellman-ford or karp (default: bellman-ford)
//	MCF_SOLVER_TIMEOUT             - Per-solve timeout (default: 30s)
//	MCF_SOLVER_MAX_CONCURRENT      - Concurrent solve limit (default: 10)
//	MCF_SOLVER_SELF_CHECK          - Verify flow invariants per cancellation
//	MCF_SOLVER_ALLOW_NEGATIVE_COSTS - Accept negative-cost arcs
//
//	# Solve history (optional, disabled when host is empty)
//	MCF_DATABASE_HOST        - PostgreSQL host
//	MCF_DATABASE_DATABASE    - Database name (default: mincostflow)
//	MCF_DATABASE_AUTO_MIGRATE - Apply embedded migrations on startup
//
//	# Result cache (optional)
//	MCF_CACHE_ENABLED        - Enable result caching (default: false)
//	MCF_CACHE_DRIVER         - memory or redis (default: memory)
//
//	# Rate limiting (optional)
//	MCF_RATE_LIMIT_ENABLED   - Per-client API rate limiting (default: false)
//	MCF_RATE_LIMIT_REQUESTS  - Requests per window (default: 100)
//	MCF_RATE_LIMIT_WINDOW    - Window size (default: 1m)
//
//	# Observability
//	MCF_LOG_LEVEL            - debug, info, warn, error (default: info)
//	MCF_METRICS_ENABLED      - Prometheus metrics endpoint (default: true)
//	MCF_TRACING_ENABLED      - OpenTelemetry traces via OTLP (default: false)
//
// # Graceful shutdown
//
// The service handles SIGINT and SIGTERM: it stops accepting connections,
// waits for in-flight requests up to server.shutdown_timeout, then flushes
// telemetry and closes the database pool.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowmesh/mincostflow/internal/history"
	"github.com/flowmesh/mincostflow/internal/server"
	"github.com/flowmesh/mincostflow/internal/service"
	"github.com/flowmesh/mincostflow/pkg/cache"
	"github.com/flowmesh/mincostflow/pkg/config"
	"github.com/flowmesh/mincostflow/pkg/database"
	"github.com/flowmesh/mincostflow/pkg/logger"
	"github.com/flowmesh/mincostflow/pkg/metrics"
	"github.com/flowmesh/mincostflow/pkg/ratelimit"
	"github.com/flowmesh/mincostflow/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// Телеметрия
	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("Failed to shutdown telemetry", "error", err)
				}
			}()
			logger.Log.Info("Telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	// Метрики
	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
	prometheus.MustRegister(metrics.NewRuntimeCollector(cfg.Metrics.Namespace, cfg.Metrics.Subsystem))

	// Кэш результатов
	var solverCache *cache.SolverCache
	if cfg.Cache.Enabled {
		baseCache, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create cache, continuing without cache", "error", err)
		} else {
			defer baseCache.Close()
			solverCache = cache.NewSolverCache(baseCache, cfg.Cache.DefaultTTL)
			logger.Log.Info("Solver cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	// История решений: PostgreSQL когда настроен, иначе in-memory
	var repo history.Repository = history.NewMemoryRepository()
	var db *database.PostgresDB
	if cfg.Database.Enabled() {
		db, err = database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db.Pool(), &cfg.Database, history.Migrations, history.MigrationsDir); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}

		repo = history.NewPostgresRepository(db)
	}

	solverService := service.NewSolverService(&cfg.Solver, solverCache, repo)
	prometheus.MustRegister(metrics.NewPoolCollector(cfg.Metrics.Namespace, cfg.Metrics.Subsystem, solverService.PoolStats))

	// Ограничение частоты запросов
	var serverOpts []server.Option
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(ratelimit.FromConfig(&cfg.RateLimit))
		if err != nil {
			logger.Log.Warn("Failed to create rate limiter, continuing without rate limiting", "error", err)
		} else {
			defer limiter.Close()
			serverOpts = append(serverOpts, server.WithRateLimiter(limiter))
			logger.Log.Info("Rate limiting enabled",
				"requests", cfg.RateLimit.Requests,
				"window", cfg.RateLimit.Window,
				"backend", cfg.RateLimit.Backend,
			)
		}
	}

	srv := server.New(cfg, solverService, serverOpts...)
	if db != nil {
		srv.AddHealthCheck("database", db.HealthCheck)
	}

	logger.Log.Info("Starting mincostflow service",
		"addr", cfg.Server.Address(),
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"default_strategy", cfg.Solver.DefaultStrategy,
		"cache_enabled", solverCache != nil,
		"history_backend", historyBackend(db),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", "error", err)
		}
	case sig := <-sigCh:
		logger.Log.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Graceful shutdown failed", "error", err)
		}
	}
}

func historyBackend(db *database.PostgresDB) string {
	if db != nil {
		return "postgres"
	}
	return "memory"
}
