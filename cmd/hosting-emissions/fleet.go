package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rshade/hosting-emissions/internal/api"
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// instanceStatus is one row of fleet-status output.
type instanceStatus struct {
	Target string
	Health api.HealthResponse
	Err    error
}

func (s instanceStatus) healthy() bool {
	return s.Err == nil && s.Health.Status == "ok"
}

func (a *app) newFleetStatusCmd() *cobra.Command {
	var (
		targets []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fleet-status",
		Short: "Report the store mode of several running instances",
		Long: `Query /healthz on every target and print its persistence mode and cache
size. Each instance keeps its own cache, so an instance that fell back to
memory-only holds saves the others cannot see. The command fails when any
target is unreachable or degraded.`,
		Example: `  hosting-emissions fleet-status --targets http://10.0.0.5:8080,http://10.0.0.6:8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses := fetchFleet(cmd.Context(), targets, timeout)
			if err := writeFleet(a.stdout, statuses); err != nil {
				return err
			}

			unhealthy := 0
			for _, s := range statuses {
				if !s.healthy() {
					unhealthy++
				}
			}
			if unhealthy > 0 {
				return fmt.Errorf("%d of %d instances unhealthy", unhealthy, len(statuses))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&targets, "targets", nil, "Comma-separated instance base URLs")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Timeout for each target")
	_ = cmd.MarkFlagRequired("targets")
	return cmd
}

func fetchFleet(ctx context.Context, targets []string, timeout time.Duration) []instanceStatus {
	statuses := make([]instanceStatus, len(targets))
	for i, target := range targets {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		health, err := fetchHealth(reqCtx, target)
		cancel()
		statuses[i] = instanceStatus{Target: target, Health: health, Err: err}
	}
	return statuses
}

func fetchHealth(ctx context.Context, target string) (api.HealthResponse, error) {
	var health api.HealthResponse
	url := strings.TrimSuffix(target, "/") + "/healthz"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return health, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return health, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return health, fmt.Errorf("bad status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return health, err
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return health, fmt.Errorf("decode health: %w", err)
	}
	return health, nil
}

func writeFleet(w io.Writer, statuses []instanceStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tSTATUS\tMODE\tCACHE\tDETAIL")
	for _, s := range statuses {
		if s.Err != nil {
			fmt.Fprintf(tw, "%s\tunreachable\t-\t-\t%v\n", s.Target, s.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.Target, s.Health.Status, s.Health.Mode, s.Health.CacheSize, s.Health.Reason)
	}
	return tw.Flush()
}
