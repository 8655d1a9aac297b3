package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalyz/backend/config"
)

func parse(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var cfg config.Config
	parser, err := kong.New(&cfg, kong.Exit(func(int) {}))
	require.NoError(t, err)

	if _, err := parser.Parse(args); err != nil {
		return &cfg, err
	}
	return &cfg, cfg.Validate()
}

func TestConfig_Defaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, ":8082", cfg.Addr())
	assert.Equal(t, "release", cfg.GinMode)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.CacheMemory, cfg.CacheBackend)
	assert.Equal(t, 24*time.Hour, cfg.CacheExpiry())
	assert.Equal(t, 50, cfg.CacheMaxEntries)
	assert.Equal(t, "metalyz_url_analysis_cache", cfg.CacheKey)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "pattern", cfg.Extractor)
	assert.Equal(t, 2.0, cfg.RateLimit)
	assert.Equal(t, 5, cfg.RateBurst)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Empty(t, cfg.HistoryDriver)
}

func TestConfig_Environment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_EXPIRY_HOURS", "1")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("HISTORY_DRIVER", "sqlite3")
	t.Setenv("HISTORY_DSN", ":memory:")

	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, config.CacheRedis, cfg.CacheBackend)
	assert.Equal(t, time.Hour, cfg.CacheExpiry())
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "sqlite3", cfg.HistoryDriver)
}

func TestConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")

	cfg, err := parse(t, "--port", "9100")
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"CACHE_BACKEND": "memcached"}},
		{"s3 without bucket", map[string]string{"CACHE_BACKEND": "s3"}},
		{"zero expiry", map[string]string{"CACHE_EXPIRY_HOURS": "0"}},
		{"zero capacity", map[string]string{"CACHE_MAX_ENTRIES": "0"}},
		{"history without dsn", map[string]string{"HISTORY_DRIVER": "postgres"}},
		{"unknown history driver", map[string]string{"HISTORY_DRIVER": "mysql", "HISTORY_DSN": "x"}},
		{"unknown extractor", map[string]string{"EXTRACTOR": "browser"}},
		{"zero fetch timeout", map[string]string{"FETCH_TIMEOUT": "0s"}},
		{"negative fetch timeout", map[string]string{"FETCH_TIMEOUT": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := parse(t)
			assert.Error(t, err)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("METALYZ_TEST_VALUE=from-dotenv\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("METALYZ_TEST_VALUE", "")
	os.Unsetenv("METALYZ_TEST_VALUE")

	assert.True(t, config.LoadEnv())
	assert.Equal(t, "from-dotenv", os.Getenv("METALYZ_TEST_VALUE"))
}
