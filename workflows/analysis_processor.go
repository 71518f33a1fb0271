// workflows/analysis_processor.go
package workflows

import (
	"context"
	"fmt"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/discovery"
	"github.com/AI-Template-SDK/senso-geo/internal/logging"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/services"
)

const (
	EventAnalysisRun        = "geo.analysis.run"
	EventCompetitorDiscover = "geo.competitors.discover"
)

type AnalysisProcessor struct {
	visibility services.VisibilityService
	discovery  services.DiscoveryService
	analysis   services.AnalysisService
	alerts     *SlackAlerter
	client     inngestgo.Client
	logger     zerolog.Logger
}

func NewAnalysisProcessor(
	visibility services.VisibilityService,
	discovery services.DiscoveryService,
	analysis services.AnalysisService,
	alerts *SlackAlerter,
	logger zerolog.Logger,
) *AnalysisProcessor {
	return &AnalysisProcessor{
		visibility: visibility,
		discovery:  discovery,
		analysis:   analysis,
		alerts:     alerts,
		logger:     logging.Component(logger, "AnalysisProcessor"),
	}
}

func (p *AnalysisProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// AnalysisEvent represents the event data for a full GEO analysis
type AnalysisEvent struct {
	services.AnalysisRequest
	TriggeredBy string `json:"triggered_by,omitempty"`
}

// DiscoveryEvent represents the event data for a standalone discovery run
type DiscoveryEvent struct {
	discovery.Request
	TriggeredBy string `json:"triggered_by,omitempty"`
}

// RunAnalysis probes visibility, discovers competitors and scores the brand
// against them. Each stage is a durable step so a retry resumes after the
// last completed one.
func (p *AnalysisProcessor) RunAnalysis() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "run-geo-analysis",
			Name:    "Run GEO Analysis - Visibility, Competitors and Score",
			Retries: inngestgo.IntPtr(2),
		},
		inngestgo.EventTrigger(EventAnalysisRun, nil),
		func(ctx context.Context, input inngestgo.Input[AnalysisEvent]) (any, error) {
			req := input.Event.Data.AnalysisRequest
			log := p.logger.With().Str("brand", req.Brand.Domain).Str("triggered_by", input.Event.Data.TriggeredBy).Logger()
			log.Info().Int("queries", len(req.Queries)).Msg("Starting GEO analysis")

			report, err := step.Run(ctx, "probe-visibility", func(ctx context.Context) (*models.VisibilityReport, error) {
				return p.visibility.Probe(ctx, req.Probe())
			})
			if err != nil {
				return nil, p.fail(ctx, "geo-analysis", req.Brand.Domain, "probe-visibility", err)
			}
			log.Info().
				Str("run_id", report.RunID.String()).
				Float64("overall_visibility", report.Summary.OverallVisibility).
				Msg("Step 1 complete")

			found, err := step.Run(ctx, "discover-competitors", func(ctx context.Context) (*models.DiscoveryResult, error) {
				return p.discovery.Discover(ctx, p.analysis.DiscoveryRequest(req, report))
			})
			if err != nil {
				return nil, p.fail(ctx, "geo-analysis", req.Brand.Domain, "discover-competitors", err)
			}
			log.Info().Int("competitors", len(found.Competitors)).Msg("Step 2 complete")

			result, err := step.Run(ctx, "score-competitiveness", func(ctx context.Context) (*models.AnalysisResult, error) {
				return p.analysis.Compete(req, report, found), nil
			})
			if err != nil {
				return nil, p.fail(ctx, "geo-analysis", req.Brand.Domain, "score-competitiveness", err)
			}

			log.Info().Float64("geo_power_score", result.Score.Value).Msg("GEO analysis complete")
			return result, nil
		},
	)

	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to create analysis function")
	}

	return fn
}

// DiscoverCompetitors runs only the three-stage discovery pipeline
func (p *AnalysisProcessor) DiscoverCompetitors() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "discover-competitors",
			Name:    "Discover Competitors - Three Stage Pipeline",
			Retries: inngestgo.IntPtr(2),
		},
		inngestgo.EventTrigger(EventCompetitorDiscover, nil),
		func(ctx context.Context, input inngestgo.Input[DiscoveryEvent]) (any, error) {
			req := input.Event.Data.Request

			found, err := step.Run(ctx, "discover-competitors", func(ctx context.Context) (*models.DiscoveryResult, error) {
				return p.discovery.Discover(ctx, req)
			})
			if err != nil {
				return nil, p.fail(ctx, "competitor-discovery", req.OwnDomain, "discover-competitors", err)
			}

			p.logger.Info().
				Str("brand", req.OwnDomain).
				Int("competitors", len(found.Competitors)).
				Msg("Competitor discovery complete")
			return found, nil
		},
	)

	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to create discovery function")
	}

	return fn
}

func (p *AnalysisProcessor) fail(ctx context.Context, pipeline, brand, stepName string, err error) error {
	if alertErr := p.alerts.ReportPipelineFailure(ctx, pipeline, brand, stepName, err); alertErr != nil {
		p.logger.Warn().Err(alertErr).Msg("Failed to report pipeline failure")
	}
	return fmt.Errorf("%s failed: %w", stepName, err)
}
