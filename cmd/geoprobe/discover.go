package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/senso-geo/internal/app"
	"github.com/AI-Template-SDK/senso-geo/internal/cache"
	"github.com/AI-Template-SDK/senso-geo/internal/discovery"
	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/services"
)

func newDiscoverCmd() *cobra.Command {
	var (
		profileFile string
		domain      string
		textFiles   []string
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover and validate a brand's competitors",
		Long:  "Mines the given answer texts for candidate URLs, searches the web from the semantic profile, validates every candidate and prints the ranked DiscoveryResult as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var profile models.SemanticProfile
			if err := readJSON(profileFile, &profile); err != nil {
				return err
			}
			texts := make([]string, 0, len(textFiles))
			for _, path := range textFiles {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				texts = append(texts, string(data))
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			m := metrics.Nop()
			var store *cache.Store
			if cfg.Cache.Enabled {
				if store, err = cache.NewStore(cfg.Cache.Dir, cfg.Cache.TTL, logger, m); err != nil {
					return err
				}
			}

			svc := services.NewDiscoveryService(app.NewPipeline(cfg, m, logger), store, logger)
			result, err := svc.Discover(cmd.Context(), discovery.Request{
				Texts:     texts,
				Profile:   profile,
				OwnDomain: domain,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&profileFile, "profile", "p", "", "Path to the semantic profile JSON (required)")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "The brand's own domain, excluded from results (required)")
	cmd.Flags().StringSliceVarP(&textFiles, "text", "t", nil, "Answer text files to mine for candidates")
	markRequired(cmd, "profile", "domain")
	return cmd
}
