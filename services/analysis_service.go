// services/analysis_service.go
package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/discovery"
	"github.com/AI-Template-SDK/senso-geo/internal/geoscore"
	"github.com/AI-Template-SDK/senso-geo/internal/logging"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

type analysisService struct {
	visibility VisibilityService
	discovery  DiscoveryService
	scorer     *geoscore.Scorer
	logger     zerolog.Logger
}

func NewAnalysisService(visibility VisibilityService, discovery DiscoveryService, logger zerolog.Logger) AnalysisService {
	return &analysisService{
		visibility: visibility,
		discovery:  discovery,
		scorer:     geoscore.NewScorer(),
		logger:     logging.Component(logger, "AnalysisService"),
	}
}

func (s *analysisService) Analyze(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	report, err := s.visibility.Probe(ctx, req.Probe())
	if err != nil {
		return nil, fmt.Errorf("visibility probe failed: %w", err)
	}

	found, err := s.discovery.Discover(ctx, s.DiscoveryRequest(req, report))
	if err != nil {
		return nil, fmt.Errorf("competitor discovery failed: %w", err)
	}

	return s.Compete(req, report, found), nil
}

// DiscoveryRequest feeds every retrieved answer and every extracted
// competitor mention of the report into Stage 1.
func (s *analysisService) DiscoveryRequest(req AnalysisRequest, report *models.VisibilityReport) discovery.Request {
	out := discovery.Request{
		Texts:      []string{},
		Profile:    req.Profile,
		OwnDomain:  req.Brand.Domain,
		Thresholds: req.Thresholds,
	}
	if report == nil {
		return out
	}
	for _, q := range report.Queries {
		for _, r := range q.PlatformResults {
			if r == nil || r.FullResponse == "" {
				continue
			}
			out.Texts = append(out.Texts, r.FullResponse)
			out.Mentions = append(out.Mentions, r.CompetitorsMentioned...)
		}
	}
	return out
}

// Compete scores the subject against the discovered competitors
func (s *analysisService) Compete(req AnalysisRequest, report *models.VisibilityReport, found *models.DiscoveryResult) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Visibility:           report,
		Discovery:            found,
		CompetitorScores:     map[string]float64{},
		CompetitorVisibility: []models.CompetitorVisibility{},
	}
	var summary models.VisibilitySummary
	if report != nil {
		result.RunID = report.RunID
		summary = report.Summary
	}

	var competitors []models.ValidatedCompetitor
	if found != nil {
		competitors = found.Competitors
	}
	result.CompetitorVisibility = geoscore.CompetitorVisibility(report, competitors)

	profiles := make([]geoscore.CompetitorProfile, 0, len(competitors))
	for i, c := range competitors {
		p := geoscore.CompetitorProfile{Domain: c.Domain}
		if i < len(result.CompetitorVisibility) {
			p.Visibility = result.CompetitorVisibility[i].Overall
		}
		if c.Signals != nil {
			p.Signals = *c.Signals
		}
		profiles = append(profiles, p)
	}

	result.Score = s.scorer.Score(summary, ownSignals(req), profiles)
	result.CompetitorScores = s.scorer.CompetitorScores(profiles)
	result.Insights = geoscore.Insights(result.Score.GapTable)

	s.logger.Info().
		Str("run_id", result.RunID.String()).
		Float64("geo_power_score", result.Score.Value).
		Int("competitors", len(competitors)).
		Int("insights", len(result.Insights)).
		Msg("Competitive analysis complete")

	return result
}

// ownSignals prefers explicit signals and otherwise measures the supplied pages
func ownSignals(req AnalysisRequest) models.ContentSignals {
	if req.Signals != nil {
		return *req.Signals
	}
	pages := make([]models.ContentSignals, 0, len(req.Pages))
	for _, html := range req.Pages {
		pages = append(pages, geoscore.SignalsFromHTML(html))
	}
	return geoscore.AggregateSignals(pages)
}
