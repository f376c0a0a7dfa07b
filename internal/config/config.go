// Package config loads service configuration from the environment using viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"

	LockBackendLocal    = "local"
	LockBackendRedis    = "redis"
	LockBackendPostgres = "postgres"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`

	LockBackend string        `mapstructure:"LOCK_BACKEND"`
	RedisURL    string        `mapstructure:"REDIS_URL"`
	LockTTL     time.Duration `mapstructure:"LOCK_TTL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	DiscordBotToken  string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordChannelID string `mapstructure:"DISCORD_CHANNEL_ID"`

	EnableCORS       bool `mapstructure:"ENABLE_CORS"`
	EnableMetrics    bool `mapstructure:"ENABLE_METRICS"`
	SeedSampleEvents bool `mapstructure:"SEED_SAMPLE_EVENTS"`
}

// Load reads configuration from environment variables, falling back to
// local-development defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "eventbooking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("SQLITE_PATH", "events.db")
	v.SetDefault("LOCK_BACKEND", LockBackendLocal)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("DISCORD_BOT_TOKEN", "")
	v.SetDefault("DISCORD_CHANNEL_ID", "")
	v.SetDefault("ENABLE_CORS", true)
	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("SEED_SAMPLE_EVENTS", false)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backends and unusable values.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverSQLite:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.LockBackend {
	case LockBackendLocal, LockBackendRedis:
	case LockBackendPostgres:
		if c.StorageDriver != StorageDriverPostgres {
			return fmt.Errorf("LOCK_BACKEND=postgres requires STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

// DSN builds a libpq-compatible connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
