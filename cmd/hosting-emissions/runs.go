package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/hosting-emissions/internal/report"
	"github.com/rshade/hosting-emissions/internal/runs"
)

func (a *app) newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved runs",
	}
	cmd.AddCommand(a.newRunsListCmd())
	cmd.AddCommand(a.newRunsGetCmd())
	return cmd
}

func (a *app) newRunsListCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's saved periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.load()
			if err != nil {
				return err
			}
			st := openStore(cmd.Context(), cfg.Store, logger, nil)
			defer st.Close()

			repo := runs.NewRepository(st, runs.WithLogger(logger))
			for _, period := range repo.ListRuns(cmd.Context(), tenantID) {
				fmt.Fprintln(a.stdout, period)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func (a *app) newRunsGetCmd() *cobra.Command {
	var (
		tenantID   string
		period     string
		textReport bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a saved run as JSON or as a text report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st := openStore(ctx, cfg.Store, logger, nil)
			defer st.Close()

			repo := runs.NewRepository(st, runs.WithLogger(logger))
			run, found, err := repo.GetRun(ctx, tenantID, period)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("run not found: tenant %s, period %s", tenantID, period)
			}

			if !textReport {
				return writeJSON(a.stdout, run)
			}
			tenant, _, err := repo.GetTenant(ctx, tenantID)
			if err != nil {
				logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("rendering report without tenant record")
				tenant = nil
			}
			return report.Render(a.stdout, *run, tenant)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id")
	cmd.Flags().StringVar(&period, "period", "", "Reporting period (YYYY-MM)")
	cmd.Flags().BoolVar(&textReport, "report", false, "Render the text report instead of JSON")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}
