package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rshade/hosting-emissions/internal/api"
	"github.com/rshade/hosting-emissions/internal/runs"
)

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve the calculator, run history, reports, tenant factors, /healthz
and /metrics over HTTP. SIGINT or SIGTERM shuts the server down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st := openStore(ctx, cfg.Store, logger, prometheus.DefaultRegisterer)
			defer func() {
				if err := st.Close(); err != nil {
					logger.Warn().Err(err).Msg("failed to close store")
				}
			}()

			repo := runs.NewRepository(st, runs.WithLogger(logger))
			srv := api.NewServer(cfg.Server, repo, st, logger)
			return srv.Run(ctx)
		},
	}
}
