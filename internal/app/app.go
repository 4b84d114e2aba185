// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/internal/bootstrap"
	"github.com/gymkeeper/retention-engine/internal/config"
	"github.com/gymkeeper/retention-engine/internal/server"
	"github.com/gymkeeper/retention-engine/internal/store/redisstate"
	"github.com/gymkeeper/retention-engine/internal/store/sqlite"
	"github.com/gymkeeper/retention-engine/pkg/webhook"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	httpServer        *server.HTTPServer
	metricsServer     *server.MetricsServer
	redisClient       *redis.Client
	store             *sqlite.Store
	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance.
//
// Components are initialized in dependency order: storage first (SQLite,
// Redis), then the engine pipeline, then servers, telemetry last.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	app.store = store

	if err := app.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	stores := bootstrap.Stores{
		Tenants:       store.Tenants(),
		Members:       store.Members(),
		Plays:         store.Plays(),
		Interventions: store.Interventions(),
		Runs:          redisstate.NewRunStore(app.redisClient),
	}

	if err := bootstrap.SeedPlays(ctx, cfg.PlaysConfigPath, stores.Tenants, stores.Plays); err != nil {
		return nil, fmt.Errorf("failed to seed plays: %w", err)
	}

	senders := bootstrap.InitChannelRegistry(cfg)

	engine, err := bootstrap.InitEngine(cfg, stores, senders)
	if err != nil {
		return nil, fmt.Errorf("failed to init engine: %w", err)
	}

	reconciler := webhook.NewReconciler(stores.Interventions, nil)

	app.httpServer = server.NewHTTPServer(cfg.HTTPPort, server.Deps{
		Plays:         stores.Plays,
		Interventions: stores.Interventions,
		Lifecycle:     engine.Lifecycle,
		Scheduler:     engine.Scheduler,
		Tenants:       stores.Tenants,
		Members:       stores.Members,
		Reconciler:    reconciler,
		Adapters: []webhook.Adapter{
			webhook.NewTwilioAdapter(),
			webhook.NewSendGridAdapter(),
		},
		CronSecret: cfg.CronSecret,
		HealthChecks: map[string]func(context.Context) error{
			"sqlite": store.Ping,
			"redis":  app.pingRedis,
		},
	})
	if err := app.httpServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup HTTP server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics")
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.OtelServiceName, cfg.Environment, cfg.OtelEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// initRedis initializes the Redis client with exponential-backoff retries.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisHost + ":" + a.cfg.RedisPort,
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	maxRetries := backoff.WithMaxRetries(b, uint64(a.cfg.RedisMaxRetries))

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		maxRetries,
	)

	if err != nil {
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}

func (a *App) pingRedis(ctx context.Context) error {
	return a.redisClient.Ping(ctx).Err()
}
