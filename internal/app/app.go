// Package app wires configuration into the running services. The HTTP
// service and the operator CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/cache"
	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/discovery"
	"github.com/AI-Template-SDK/senso-geo/internal/heuristics"
	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/internal/providers"
	"github.com/AI-Template-SDK/senso-geo/internal/visibility"
	"github.com/AI-Template-SDK/senso-geo/services"
)

type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Cache    *cache.Store // nil when caching is disabled
	Registry *providers.Registry

	Costs      services.CostService
	Visibility services.VisibilityService
	Discovery  services.DiscoveryService
	Analysis   services.AnalysisService
}

// Build constructs every long-lived client. Callers must Close the App.
// reg may be nil to leave the collectors unregistered.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(reg),
		Costs:   services.NewCostService(),
	}

	deps := providers.Dependencies{
		Costs:     a.Costs,
		Sentiment: heuristics.DefaultLexicon(),
		Detector:  heuristics.NewCompetitorPatterns(),
		Metrics:   a.Metrics,
		Logger:    logger,
	}
	if cfg.Extraction.Enabled {
		deps.Extractor = services.NewCompetitorExtractionService(cfg.OpenAIAPIKey, cfg.Extraction.Model, a.Costs, logger)
	}

	registry, err := providers.NewRegistry(ctx, cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	a.Registry = registry

	if cfg.Cache.Enabled {
		store, err := cache.NewStore(cfg.Cache.Dir, cfg.Cache.TTL, logger, a.Metrics)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		a.Cache = store
	}

	a.Visibility = services.NewVisibilityService(visibility.New(registry, logger), cfg.Visibility.BatchTimeout, a.Cache, logger)
	a.Discovery = services.NewDiscoveryService(NewPipeline(cfg, a.Metrics, logger), a.Cache, logger)
	a.Analysis = services.NewAnalysisService(a.Visibility, a.Discovery, logger)
	return a, nil
}

// NewPipeline wires the three discovery stages from configuration
func NewPipeline(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) *discovery.Pipeline {
	dc := cfg.Discovery
	exclusions := discovery.NewExclusions(dc.ExcludedDomains...)

	var search discovery.SearchProvider
	switch dc.SearchProvider {
	case "linkup":
		search = discovery.NewLinkupSearch(cfg.LinkupAPIKey, "", dc.SearchTimeout)
	default:
		search = discovery.NewHTMLSearch(dc.UserAgent, dc.SearchTimeout, logger)
	}

	return discovery.NewPipeline(dc,
		discovery.NewCandidateExtractor(exclusions),
		discovery.NewWebDiscovery(search, exclusions, dc.SearchDelay, m, logger),
		discovery.NewValidator(dc, discovery.WithLogger(logger), discovery.WithMetrics(m)),
		m,
		logger,
	)
}

// Close tears down every platform client
func (a *App) Close() error {
	if a.Registry == nil {
		return nil
	}
	return a.Registry.Close()
}
