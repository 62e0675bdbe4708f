package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Store.CacheTimeout)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
  read_timeout: 3s
store:
  backend: redis
  cache_timeout: 1m
  redis:
    addr: "redis:6379"
    db: 2
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, time.Minute, cfg.Store.CacheTimeout)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "hosting-emissions:", cfg.Store.Redis.Prefix)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), zerolog.Nop())
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "server: [unclosed"), zerolog.Nop())
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("invalid backend", func(t *testing.T) {
		_, err := Load(writeFile(t, "store:\n  backend: s3\n"), zerolog.Nop())
		assert.ErrorContains(t, err, "must be one of memory, redis, gcs")
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOSTING_EMISSIONS_ADDR", ":7000")
	t.Setenv("HOSTING_EMISSIONS_STORE_BACKEND", "gcs")
	t.Setenv("HOSTING_EMISSIONS_GCS_BUCKET", "emissions")
	t.Setenv("HOSTING_EMISSIONS_CACHE_TIMEOUT", "90s")
	t.Setenv("HOSTING_EMISSIONS_LOG_LEVEL", "warn")

	path := writeFile(t, "server:\n  addr: \":9000\"\n")
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, BackendGCS, cfg.Store.Backend)
	assert.Equal(t, "emissions", cfg.Store.GCS.Bucket)
	assert.Equal(t, 90*time.Second, cfg.Store.CacheTimeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		expectedError string
		validate      func(t *testing.T, cfg Config)
	}{
		{
			name: "CORS origins trimmed and split",
			env: map[string]string{
				"HOSTING_EMISSIONS_CORS_ALLOWED_ORIGINS": " a.com , b.com ,",
			},
			validate: func(t *testing.T, cfg Config) {
				assert.Equal(t, []string{"a.com", "b.com"}, cfg.Server.CORS.AllowedOrigins)
			},
		},
		{
			name: "CORS credentials",
			env: map[string]string{
				"HOSTING_EMISSIONS_CORS_ALLOW_CREDENTIALS": "TRUE",
			},
			validate: func(t *testing.T, cfg Config) {
				assert.True(t, cfg.Server.CORS.AllowCredentials)
			},
		},
		{
			name: "redis db",
			env: map[string]string{
				"HOSTING_EMISSIONS_REDIS_DB":       "3",
				"HOSTING_EMISSIONS_REDIS_PASSWORD": "secret",
			},
			validate: func(t *testing.T, cfg Config) {
				assert.Equal(t, 3, cfg.Store.Redis.DB)
				assert.Equal(t, "secret", cfg.Store.Redis.Password)
			},
		},
		{
			name: "invalid duration",
			env: map[string]string{
				"HOSTING_EMISSIONS_DURABLE_TIMEOUT": "soon",
			},
			expectedError: "invalid HOSTING_EMISSIONS_DURABLE_TIMEOUT",
		},
		{
			name: "invalid integer",
			env: map[string]string{
				"HOSTING_EMISSIONS_CORS_MAX_AGE": "forever",
			},
			expectedError: "invalid HOSTING_EMISSIONS_CORS_MAX_AGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := applyEnv(&cfg, func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			})

			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(c *Config)
		expectedError string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr is required"},
		{"redis without addr", func(c *Config) {
			c.Store.Backend = BackendRedis
			c.Store.Redis.Addr = ""
		}, "store.redis.addr is required"},
		{"gcs without bucket", func(c *Config) { c.Store.Backend = BackendGCS }, "store.gcs.bucket is required"},
		{"zero cache timeout", func(c *Config) { c.Store.CacheTimeout = 0 }, "store.cache_timeout must be positive"},
		{"negative durable timeout", func(c *Config) { c.Store.DurableTimeout = -time.Second }, "store.durable_timeout"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"wildcard with credentials", func(c *Config) {
			c.Server.CORS.AllowedOrigins = []string{"https://a.example", "*"}
			c.Server.CORS.AllowCredentials = true
		}, "cannot enable credentials with wildcard origin"},
		{"negative max age", func(c *Config) { c.Server.CORS.MaxAge = -1 }, "max_age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.expectedError)
		})
	}
}

func TestLoad_WildcardWarns(t *testing.T) {
	t.Setenv("HOSTING_EMISSIONS_CORS_ALLOWED_ORIGINS", "*")

	var buf bytes.Buffer
	_, err := Load("", zerolog.New(&buf))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "CORS wildcard origin")
}

func TestConfig_Logger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}
