package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/hosting-emissions/internal/config"
	"github.com/rshade/hosting-emissions/internal/store"
)

// app carries what every subcommand needs after flag parsing.
type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "hosting-emissions",
		Short: "Estimate hosting emissions per tenant and reporting period",
		Long: `hosting-emissions turns monthly usage figures (bandwidth, storage,
build minutes, serverless execution) into low, mid and high CO2e estimates,
alongside vendor-reported Scope 1+2 figures, and keeps one saved run per
tenant and period.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")

	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newCalculateCmd())
	root.AddCommand(a.newRunsCmd())
	root.AddCommand(a.newFleetStatusCmd())
	return root
}

// load reads the configuration and builds the process logger.
func (a *app) load() (config.Config, zerolog.Logger, error) {
	bootstrap := zerolog.New(a.stderr).With().Timestamp().Logger()
	cfg, err := config.Load(a.configPath, bootstrap)
	if err != nil {
		return config.Config{}, bootstrap, err
	}
	return cfg, cfg.Logger(a.stderr), nil
}

// openStore opens the configured backend. Metrics are registered on reg
// when it is non-nil.
func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger, reg prometheus.Registerer) *store.Store {
	opts := []store.Option{
		store.WithLogger(logger),
		store.WithCacheTimeout(cfg.CacheTimeout),
		store.WithDurableTimeout(cfg.DurableTimeout),
	}
	if reg != nil {
		opts = append(opts, store.WithMetrics(store.NewMetrics(reg)))
	}
	return store.Open(ctx, backendOpener(cfg), opts...)
}

func backendOpener(cfg config.StoreConfig) store.Opener {
	switch cfg.Backend {
	case config.BackendRedis:
		return func(ctx context.Context) (store.Backend, error) {
			return store.NewRedisBackend(ctx, store.RedisOptions{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				Prefix:   cfg.Redis.Prefix,
			})
		}
	case config.BackendGCS:
		return func(ctx context.Context) (store.Backend, error) {
			return store.NewGCSBackend(ctx, store.GCSOptions{
				Bucket:          cfg.GCS.Bucket,
				Prefix:          cfg.GCS.Prefix,
				CredentialsFile: cfg.GCS.CredentialsFile,
			})
		}
	case config.BackendMemory:
		return func(context.Context) (store.Backend, error) {
			return store.NewVolatileBackend(), nil
		}
	default:
		return func(context.Context) (store.Backend, error) {
			return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
		}
	}
}

func readJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
