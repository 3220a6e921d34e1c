package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Kerhoff/WishboT/internal/models"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	TelegramToken   string        `envconfig:"TELEGRAM_TOKEN" required:"true"`
	DatabaseDriver  string        `envconfig:"DATABASE_DRIVER" default:"postgres"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	RedisURL        string        `envconfig:"REDIS_URL"`
	DraftTTL        time.Duration `envconfig:"DRAFT_TTL" default:"24h"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text"`
	Port            string        `envconfig:"PORT" default:"8080"`
	PrometheusPort  string        `envconfig:"PROMETHEUS_PORT" default:"9090"`
	MigrationsPath  string        `envconfig:"MIGRATIONS_PATH" default:"migrations"`
	AdminIDs        []int64       `envconfig:"ADMIN_IDS"`
	DefaultLanguage string        `envconfig:"DEFAULT_LANGUAGE" default:"en"`

	DatabaseMaxOpenConns    int           `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"25"`
	DatabaseMaxIdleConns    int           `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"5m"`
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for the %s driver", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %s or %s, got %q", DriverPostgres, DriverMemory, c.DatabaseDriver)
	}

	if c.DatabaseMaxOpenConns <= 0 || c.DatabaseMaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes must be positive, got open=%d idle=%d", c.DatabaseMaxOpenConns, c.DatabaseMaxIdleConns)
	}

	if c.DraftTTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive, got %s", c.DraftTTL)
	}

	c.DefaultLanguage = strings.ToLower(c.DefaultLanguage)
	if !models.IsSupportedLanguage(c.DefaultLanguage) {
		return fmt.Errorf("DEFAULT_LANGUAGE %q is not supported", c.DefaultLanguage)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}
