package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/senso-geo/internal/app"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/services"
)

func newProbeCmd() *cobra.Command {
	var (
		queriesFile string
		brandName   string
		brandDomain string
		platforms   []string
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe AI platforms for a brand's visibility",
		Long:  "Asks every enabled (or selected) platform every query and prints the VisibilityReport as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var queries []models.Query
			if err := readJSON(queriesFile, &queries); err != nil {
				return err
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			a, err := app.Build(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Visibility.Probe(cmd.Context(), services.ProbeRequest{
				Brand:     models.BrandIdentity{Name: brandName, Domain: brandDomain},
				Queries:   queries,
				Platforms: platforms,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&queriesFile, "queries", "q", "", "Path to a JSON array of queries (required)")
	cmd.Flags().StringVar(&brandName, "brand-name", "", "Brand name to look for (required)")
	cmd.Flags().StringVar(&brandDomain, "brand-domain", "", "Brand domain to look for (required)")
	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "Platforms to probe (default: every enabled platform)")
	markRequired(cmd, "queries", "brand-name", "brand-domain")
	return cmd
}
