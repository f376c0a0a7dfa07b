// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/config"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/database"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/handler"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/lock"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/monitoring"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/notifier"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/repository"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is empty; every authenticated request will be rejected")
	}

	// ── 1. Storage ──────────────────────────────────────────────────────────
	var (
		events        repository.EventStore
		registrations repository.RegistrationStore
		pool          *pgxpool.Pool
	)
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		pool, err = database.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		events = repository.NewPostgresEventStore(pool)
		registrations = repository.NewPostgresRegistrationStore(pool)
		slog.Info("connected to PostgreSQL", "host", cfg.DBHost, "db", cfg.DBName)

	case config.StorageDriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		if err := repository.MigrateGorm(db); err != nil {
			return err
		}
		events = repository.NewGormEventStore(db)
		registrations = repository.NewGormRegistrationStore(db)
		slog.Info("opened SQLite database", "path", cfg.SQLitePath)
	}

	// ── 2. Per-event lock ───────────────────────────────────────────────────
	var locker lock.Locker
	switch cfg.LockBackend {
	case config.LockBackendLocal:
		locker = lock.NewLocal()
	case config.LockBackendRedis:
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedis(client, cfg.LockTTL)
	case config.LockBackendPostgres:
		locker = lock.NewPostgres(pool)
	}
	slog.Info("event lock configured", "backend", cfg.LockBackend)

	// ── 3. Services ─────────────────────────────────────────────────────────
	opts := []service.Option{service.WithObserver(monitoring.NewMonitor(cfg.LockBackend))}
	if cfg.DiscordBotToken != "" {
		discord, err := notifier.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID)
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		opts = append(opts, service.WithNotifier(discord))
		slog.Info("discord notifications enabled", "channel_id", cfg.DiscordChannelID)
	}

	eventSvc := service.NewEventService(events, registrations, locker, opts...)
	registrationMgr := service.NewRegistrationManager(events, registrations, locker, opts...)

	if cfg.SeedSampleEvents {
		n, err := eventSvc.SeedSampleEvents(ctx)
		if err != nil {
			return fmt.Errorf("seed sample events: %w", err)
		}
		slog.Info("sample events seeded", "count", n)
	}

	// ── 4. Router ───────────────────────────────────────────────────────────
	router := handler.NewRouter(handler.New(eventSvc, registrationMgr), handler.RouterOptions{
		JWTSecret:     cfg.JWTSecret,
		EnableCORS:    cfg.EnableCORS,
		EnableMetrics: cfg.EnableMetrics,
	})

	// ── 5. Start server with graceful shutdown ──────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
