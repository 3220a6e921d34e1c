package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_TOKEN", "DATABASE_DRIVER", "DATABASE_URL", "REDIS_URL", "DRAFT_TTL",
		"LOG_LEVEL", "LOG_FORMAT", "PORT", "PROMETHEUS_PORT", "MIGRATIONS_PATH",
		"ADMIN_IDS", "DEFAULT_LANGUAGE", "DATABASE_MAX_OPEN_CONNS", "DATABASE_MAX_IDLE_CONNS",
		"DATABASE_CONN_MAX_LIFETIME",
	} {
		value, ok := env[key]
		t.Setenv(key, value)
		if !ok {
			os.Unsetenv(key)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_TOKEN": "token",
		"DATABASE_URL":   "postgres://localhost/wishbot",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, cfg.DraftTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "9090", cfg.PrometheusPort)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Empty(t, cfg.AdminIDs)
	assert.Equal(t, 25, cfg.DatabaseMaxOpenConns)
	assert.Equal(t, 5, cfg.DatabaseMaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.DatabaseConnMaxLifetime)
}

func TestLoadMemoryDriver(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_TOKEN":   "token",
		"DATABASE_DRIVER":  "Memory",
		"REDIS_URL":        "redis://localhost:6379/0",
		"DRAFT_TTL":        "30m",
		"ADMIN_IDS":        "42,7",
		"DEFAULT_LANGUAGE": "RU",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.DatabaseDriver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 30*time.Minute, cfg.DraftTTL)
	assert.Equal(t, []int64{42, 7}, cfg.AdminIDs)
	assert.Equal(t, "ru", cfg.DefaultLanguage)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := map[string]map[string]string{
		"missing token":        {"DATABASE_DRIVER": "memory"},
		"postgres without url": {"TELEGRAM_TOKEN": "token"},
		"unknown driver":       {"TELEGRAM_TOKEN": "token", "DATABASE_DRIVER": "sqlite"},
		"bad ttl":              {"TELEGRAM_TOKEN": "token", "DATABASE_DRIVER": "memory", "DRAFT_TTL": "soon"},
		"zero ttl":             {"TELEGRAM_TOKEN": "token", "DATABASE_DRIVER": "memory", "DRAFT_TTL": "0s"},
		"bad language":         {"TELEGRAM_TOKEN": "token", "DATABASE_DRIVER": "memory", "DEFAULT_LANGUAGE": "de"},
		"bad log format":       {"TELEGRAM_TOKEN": "token", "DATABASE_DRIVER": "memory", "LOG_FORMAT": "xml"},
		"empty pool":           {"TELEGRAM_TOKEN": "token", "DATABASE_DRIVER": "memory", "DATABASE_MAX_OPEN_CONNS": "0"},
		"bad admin ids":        {"TELEGRAM_TOKEN": "token", "DATABASE_DRIVER": "memory", "ADMIN_IDS": "1,two"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			setEnv(t, env)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
