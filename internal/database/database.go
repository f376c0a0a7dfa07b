// Package database provides connection management for the two storage
// backends: PostgreSQL through pgx and SQLite through gorm.
package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/config"
)

//go:embed schema.sql
var schema string

const connectAttempts = 5

// NewPool creates and validates a pgxpool connection pool.
// It retries a few times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return newPool(ctx, cfg.DSN(), cfg.DBMaxConns)
}

// NewPoolFromDSN is NewPool for an explicit connection string.
func NewPoolFromDSN(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return newPool(ctx, dsn, 20)
}

func newPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		slog.Warn("db connect failed", "attempt", attempt, "max_attempts", connectAttempts, "error", err)
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return pool, nil
}

// Migrate creates the events and registrations tables if they are missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// OpenSQLite opens a gorm database backed by SQLite. The in-memory path
// ":memory:" gets a single connection, since every new connection would see
// its own empty database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}
