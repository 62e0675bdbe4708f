// Package config loads service configuration from an optional YAML file and
// HOSTING_EMISSIONS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "HOSTING_EMISSIONS_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendGCS    = "gcs"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORS         CORSConfig    `yaml:"cors"`
}

// CORSConfig controls cross-origin access to the API. CORS is disabled when
// AllowedOrigins is empty.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// StoreConfig selects and configures the durable backend.
type StoreConfig struct {
	Backend        string        `yaml:"backend"`
	CacheTimeout   time.Duration `yaml:"cache_timeout"`
	DurableTimeout time.Duration `yaml:"durable_timeout"`
	Redis          RedisConfig   `yaml:"redis"`
	GCS            GCSConfig     `yaml:"gcs"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// GCSConfig configures the Cloud Storage backend.
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORS:         CORSConfig{MaxAge: 86400},
		},
		Store: StoreConfig{
			Backend:        BackendMemory,
			CacheTimeout:   5 * time.Minute,
			DurableTimeout: 10 * time.Second,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "hosting-emissions:",
			},
			GCS: GCSConfig{
				Prefix: "emissions-data/",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string, logger zerolog.Logger) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	for _, origin := range cfg.Server.CORS.AllowedOrigins {
		if origin == "*" {
			logger.Warn().Msg("CORS wildcard origin (*) is insecure; use specific origins in production")
			break
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logger.Debug().
		Str("addr", cfg.Server.Addr).
		Str("backend", cfg.Store.Backend).
		Strs("allowed_origins", cfg.Server.CORS.AllowedOrigins).
		Msg("configuration loaded")

	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.CORS.MaxAge < 0 {
		errs = append(errs, errors.New("server.cors.max_age must be non-negative"))
	}
	for _, origin := range c.Server.CORS.AllowedOrigins {
		if origin == "*" && c.Server.CORS.AllowCredentials {
			errs = append(errs, errors.New("cannot enable credentials with wildcard origin (*); security risk"))
			break
		}
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	case BackendGCS:
		if c.Store.GCS.Bucket == "" {
			errs = append(errs, errors.New("store.gcs.bucket is required for the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q must be one of memory, redis, gcs", c.Store.Backend))
	}

	if c.Store.CacheTimeout <= 0 {
		errs = append(errs, errors.New("store.cache_timeout must be positive"))
	}
	if c.Store.DurableTimeout < 0 {
		errs = append(errs, errors.New("store.durable_timeout must be non-negative"))
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Logger builds the process logger described by the logging section.
// Validate must have accepted the configuration.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Logging.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	str("ADDR", &cfg.Server.Addr)
	dur("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)

	if v, ok := lookup(EnvPrefix + "CORS_ALLOWED_ORIGINS"); ok {
		cfg.Server.CORS.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "CORS_ALLOW_CREDENTIALS"); ok {
		cfg.Server.CORS.AllowCredentials = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	integer("CORS_MAX_AGE", &cfg.Server.CORS.MaxAge)

	str("STORE_BACKEND", &cfg.Store.Backend)
	dur("CACHE_TIMEOUT", &cfg.Store.CacheTimeout)
	dur("DURABLE_TIMEOUT", &cfg.Store.DurableTimeout)
	str("REDIS_ADDR", &cfg.Store.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Store.Redis.Password)
	integer("REDIS_DB", &cfg.Store.Redis.DB)
	str("REDIS_PREFIX", &cfg.Store.Redis.Prefix)
	str("GCS_BUCKET", &cfg.Store.GCS.Bucket)
	str("GCS_PREFIX", &cfg.Store.GCS.Prefix)
	str("GCS_CREDENTIALS_FILE", &cfg.Store.GCS.CredentialsFile)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
