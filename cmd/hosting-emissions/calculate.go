package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/hosting-emissions/internal/carbon"
	"github.com/rshade/hosting-emissions/internal/runs"
)

// calculateOutput mirrors the API's calculate response.
type calculateOutput struct {
	Results      carbon.CalculationResults `json:"results"`
	Inputs       carbon.Inputs             `json:"inputs"`
	Factors      carbon.Factors            `json:"factors"`
	CalculatedAt time.Time                 `json:"calculated_at"`
	Warnings     []string                  `json:"warnings,omitempty"`
	Persisted    *bool                     `json:"persisted,omitempty"`
}

var errValidation = errors.New("validation failed")

func (a *app) newCalculateCmd() *cobra.Command {
	var (
		inputsPath  string
		factorsPath string
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate emissions for one tenant-period",
		Long: `Validate a usage JSON file, calculate low, mid and high estimates and
print the result as JSON. Factors resolve from --factors, then the tenant's
saved custom factors, then the built-in defaults.`,
		Example: `  hosting-emissions calculate --inputs usage.json
  hosting-emissions calculate --inputs usage.json --factors factors.json --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var draft carbon.PartialInputs
			if err := readJSONFile(inputsPath, &draft); err != nil {
				return err
			}
			var overrides carbon.FactorOverrides
			if factorsPath != "" {
				if err := readJSONFile(factorsPath, &overrides); err != nil {
					return err
				}
			}

			issues := carbon.ValidateInputs(draft)
			errs, warnings := carbon.SplitIssues(issues)
			for _, w := range warnings {
				fmt.Fprintln(a.stderr, w)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%w: %s", errValidation, strings.Join(errs, "; "))
			}

			cfg, logger, err := a.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st := openStore(ctx, cfg.Store, logger, nil)
			defer st.Close()
			repo := runs.NewRepository(st, runs.WithLogger(logger))

			inputs := draft.Inputs()
			factors := repo.EffectiveFactors(ctx, inputs.TenantID, overrides)
			factorErrs, factorWarnings := carbon.SplitIssues(carbon.ValidateFactors(factors))
			for _, w := range factorWarnings {
				fmt.Fprintln(a.stderr, w)
			}
			if len(factorErrs) > 0 {
				return fmt.Errorf("%w: %s", errValidation, strings.Join(factorErrs, "; "))
			}

			run := runs.NewEmissionRun(inputs, factors, time.Now().UTC())
			out := calculateOutput{
				Results:      run.Results,
				Inputs:       inputs,
				Factors:      factors,
				CalculatedAt: run.CreatedAt,
				Warnings:     append(warnings, factorWarnings...),
			}

			if save {
				_, res, err := repo.SaveRun(ctx, run)
				if err != nil {
					return err
				}
				out.Persisted = &res.Persisted
			}

			return writeJSON(a.stdout, out)
		},
	}

	cmd.Flags().StringVar(&inputsPath, "inputs", "", "Path to the usage JSON file")
	cmd.Flags().StringVar(&factorsPath, "factors", "", "Path to a factor overrides JSON file")
	cmd.Flags().BoolVar(&save, "save", false, "Save the run to the configured store")
	_ = cmd.MarkFlagRequired("inputs")
	return cmd
}
