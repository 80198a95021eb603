package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/vintrack/vintrack/internal/config"
	"github.com/vintrack/vintrack/internal/platform/logger"
	"github.com/vintrack/vintrack/internal/platform/postgres"
	"github.com/vintrack/vintrack/internal/platform/rediscache"
	"github.com/vintrack/vintrack/internal/service/auth"
	"github.com/vintrack/vintrack/internal/store"
	"github.com/vintrack/vintrack/internal/task"
)

// application holds the assembled dependencies of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	redisClient *redis.Client

	userStore store.UserStore
	postStore store.PostStore
	taskStore store.TaskStore

	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier

	taskRunner    *task.Runner
	dispatcher    *task.Dispatcher
	progressCache *rediscache.Cache
}

// initializeApp loads configuration and wires every component: logging,
// database (with migrations), Redis, stores, auth services, and the task
// runner. Pending tasks from a previous run are re-dispatched before the
// server accepts traffic.
func initializeApp(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server.LogLevel)
	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupAppDatabase(ctx, cfg, appLogger)
	if err != nil {
		return nil, err
	}

	if err := postgres.MigrateUp(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app := &application{
		config: cfg,
		logger: appLogger,
		db:     db,
	}

	app.userStore = postgres.NewPostgresUserStore(db, appLogger)
	app.postStore = postgres.NewPostgresPostStore(db, appLogger)
	app.taskStore = postgres.NewPostgresTaskStore(db, appLogger)

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	bcryptVerifier := auth.NewBcryptVerifier()
	app.passwordHasher = bcryptVerifier
	app.passwordVerifier = bcryptVerifier

	// Redis is optional; without it progress reads always hit the database.
	if cfg.Redis.Addr != "" {
		app.redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := app.redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Warn("redis unreachable, progress cache disabled", "error", err)
			_ = app.redisClient.Close()
			app.redisClient = nil
		} else {
			ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
			app.progressCache = rediscache.New(app.redisClient, ttl)
			appLogger.Info("progress cache enabled", "ttl", ttl)
		}
	}

	app.taskRunner = task.NewRunner(task.RunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
	}, appLogger)
	app.taskRunner.Start()

	var cache task.ProgressCache
	if app.progressCache != nil {
		cache = app.progressCache
	}
	charDelay := time.Duration(cfg.Task.CharDelayMS) * time.Millisecond
	app.dispatcher, err = task.NewDispatcher(app.taskRunner, app.taskStore, cache, charDelay, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	if err := app.dispatcher.Resume(ctx); err != nil {
		return nil, fmt.Errorf("failed to resume pending tasks: %w", err)
	}

	return app, nil
}

// cleanup releases resources during shutdown: the runner drains first so
// in-flight drivers stop writing before the database handle closes.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
