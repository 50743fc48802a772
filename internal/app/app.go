// Package app wires configuration, storage backends, services and the HTTP
// server into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/as10896/saga-demo/internal/config"
	"github.com/as10896/saga-demo/internal/event"
	handlerhttp "github.com/as10896/saga-demo/internal/handler/http"
	"github.com/as10896/saga-demo/internal/repository"
	memoryrepo "github.com/as10896/saga-demo/internal/repository/memory"
	postgresrepo "github.com/as10896/saga-demo/internal/repository/postgres"
	redisrepo "github.com/as10896/saga-demo/internal/repository/redis"
	"github.com/as10896/saga-demo/internal/service"
	"github.com/as10896/saga-demo/migrations"
	"github.com/as10896/saga-demo/pkg/database"
	"github.com/as10896/saga-demo/pkg/health"
	"github.com/as10896/saga-demo/pkg/kafka"
	"github.com/as10896/saga-demo/pkg/tracing"
)

// App is the assembled application.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server

	// cleanups run in reverse order on Shutdown.
	cleanups []func(context.Context) error
}

// New builds the application from configuration: tracing, the selected
// session backend, the optional Kafka producer, the saga services, and the
// HTTP server.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "saga-demo",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.cleanups = append(a.cleanups, shutdownTracer)

	healthHandler := health.NewHandler()

	repo, err := a.buildSessionRepository(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	store := service.NewSessionStore(repo, cfg.Session.Timeout, logger)

	var events service.SagaEventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.Kafka.Brokers), logger)
		a.cleanups = append(a.cleanups, func(context.Context) error { return producer.Close() })
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		events = event.NewProducer(producer, logger)
	}

	stepCfg := service.StepConfig{
		FaultUser: cfg.Saga.ShippingFaultUser,
		Delay:     cfg.Saga.StepDelay,
	}
	orchestrator := service.NewSagaOrchestrator(
		service.NewValidationService(stepCfg, logger),
		service.NewInventoryService(stepCfg, logger),
		service.NewPaymentService(stepCfg, logger),
		service.NewShippingService(stepCfg, logger),
		store,
		events,
		logger,
	)

	router := handlerhttp.NewRouter(handlerhttp.RouterConfig{
		SessionStore:   store,
		Orchestrator:   orchestrator,
		Health:         healthHandler,
		Logger:         logger,
		CookieName:     cfg.Session.CookieName,
		SessionTimeout: cfg.Session.Timeout,
		CookieSecure:   cfg.Session.CookieSecure,
	})

	a.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

func (a *App) buildSessionRepository(ctx context.Context, h *health.Handler) (repository.SessionRepository, error) {
	switch a.cfg.Session.Backend {
	case config.BackendRedis:
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:     a.cfg.Redis.Host,
			Port:     a.cfg.Redis.Port,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.cleanups = append(a.cleanups, func(context.Context) error { return client.Close() })
		h.RegisterCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		a.logger.Info("using redis session backend", slog.String("addr", client.Options().Addr))
		return redisrepo.NewSessionRepository(client, a.cfg.Session.Timeout, a.logger), nil

	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
			Host:     a.cfg.Postgres.Host,
			Port:     a.cfg.Postgres.Port,
			User:     a.cfg.Postgres.User,
			Password: a.cfg.Postgres.Password,
			DBName:   a.cfg.Postgres.Database,
			SSLMode:  a.cfg.Postgres.SSLMode,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.cleanups = append(a.cleanups, func(context.Context) error {
			pool.Close()
			return nil
		})
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		h.RegisterCritical("postgres", pool.Ping)
		a.logger.Info("using postgres session backend", slog.String("database", a.cfg.Postgres.Database))
		return postgresrepo.NewSessionRepository(pool, a.logger), nil

	case config.BackendMemory:
		a.logger.Info("using in-memory session backend")
		return memoryrepo.NewSessionRepository(a.logger), nil

	default:
		return nil, fmt.Errorf("unknown session backend %q", a.cfg.Session.Backend)
	}
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails. Shutdown is handled gracefully within the configured
// timeout.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown", slog.String("error", err.Error()))
	}

	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](shutdownCtx); err != nil {
			a.logger.Error("cleanup failed", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
