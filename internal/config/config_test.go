package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "local")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "logstore.db", cfg.StoreDBName)
	assert.Equal(t, 0, cfg.StoreRetryAttempts)
	assert.Equal(t, 30*time.Second, cfg.StoreInitTimeout)
	assert.Equal(t, 30, cfg.LogRetentionDays)
	assert.Equal(t, 10000, cfg.LogMaxEntries)
	assert.Equal(t, 3, cfg.AdminMaxAttempts)
	assert.Equal(t, defaultAdminPIN, cfg.AdminPIN)
	assert.Equal(t, "*", cfg.CORSAllowOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("STORE_DRIVER", "DuckDB")
	t.Setenv("STORE_RETRY_ATTEMPTS", "2")
	t.Setenv("STORE_RETRY_DELAY_MS", "250")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("RECORD_LOG_LEVEL", "warn")
	t.Setenv("ADMIN_PIN", "9876")
	t.Setenv("JWT_EXPIRES_MINUTES", "5")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.StoreDriver)
	assert.Equal(t, 2, cfg.StoreRetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreRetryDelay)
	assert.Equal(t, "info", cfg.LogLevel, "invalid level falls back to info")
	assert.Equal(t, "warn", cfg.RecordLogLevel)
	assert.Equal(t, "9876", cfg.AdminPIN)
	assert.Equal(t, 5*time.Minute, cfg.JWTExpires)
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"APP_ENV": "local", "STORE_DRIVER": "postgres"}},
		{"zero attempts", map[string]string{"APP_ENV": "local", "ADMIN_MAX_ATTEMPTS": "0"}},
		{"production without pin", map[string]string{"APP_ENV": "production", "CORS_ALLOW_ORIGINS": "https://example.com"}},
		{"production wildcard cors", map[string]string{"APP_ENV": "production", "ADMIN_PIN": "1111", "CORS_ALLOW_ORIGINS": "*"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(nil)
			assert.Error(t, err)
		})
	}
}
