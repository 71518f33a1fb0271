package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/services"
)

func newScoreCmd() *cobra.Command {
	var (
		reportFile      string
		signalsFile     string
		competitorsFile string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the GEO power score and competitive insights",
		Long:  "Combines a VisibilityReport, the brand's content signals and a DiscoveryResult into the GEO power score, gap table, competitor scores and insights.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report models.VisibilityReport
			if err := readJSON(reportFile, &report); err != nil {
				return err
			}
			var signals models.ContentSignals
			if signalsFile != "" {
				if err := readJSON(signalsFile, &signals); err != nil {
					return err
				}
			}
			found := &models.DiscoveryResult{}
			if competitorsFile != "" {
				if err := readJSON(competitorsFile, found); err != nil {
					return err
				}
			}

			analysis := services.NewAnalysisService(nil, nil, zerolog.Nop())
			result := analysis.Compete(services.AnalysisRequest{Brand: report.Brand, Signals: &signals}, &report, found)
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&reportFile, "report", "r", "", "Path to a VisibilityReport JSON (required)")
	cmd.Flags().StringVarP(&signalsFile, "signals", "s", "", "Path to the brand's ContentSignals JSON")
	cmd.Flags().StringVarP(&competitorsFile, "competitors", "c", "", "Path to a DiscoveryResult JSON")
	markRequired(cmd, "report")
	return cmd
}
