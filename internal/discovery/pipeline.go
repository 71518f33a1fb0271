package discovery

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

const (
	stageLLM = "stage1"
	stageWeb = "stage2"
)

// Request is the input of one discovery run
type Request struct {
	Texts      []string                   `json:"texts"`
	Mentions   []models.CompetitorMention `json:"mentions,omitempty"`
	Profile    models.SemanticProfile     `json:"profile" validate:"required"`
	OwnDomain  string                     `json:"own_domain" validate:"required"`
	Thresholds *models.Thresholds         `json:"thresholds,omitempty"`
}

// Pipeline runs Stage 1 and Stage 2 side by side, merges their candidates
// by domain and hands the merged set to Stage 3.
type Pipeline struct {
	extractor     *CandidateExtractor
	web           *WebDiscovery
	validator     *Validator
	maxCandidates int
	maxQueries    int
	thresholds    models.Thresholds
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewPipeline wires the three stages. web may be nil, in which case only
// answer text is mined.
func NewPipeline(cfg config.DiscoveryConfig, extractor *CandidateExtractor, web *WebDiscovery, validator *Validator, m *metrics.Metrics, logger zerolog.Logger) *Pipeline {
	if m == nil {
		m = metrics.Nop()
	}
	return &Pipeline{
		extractor:     extractor,
		web:           web,
		validator:     validator,
		maxCandidates: cfg.MaxCandidates,
		maxQueries:    cfg.MaxQueries,
		thresholds:    cfg.Thresholds,
		metrics:       m,
		logger:        logger.With().Str("component", "DiscoveryPipeline").Logger(),
	}
}

// Run never fails because of a provider or candidate. It returns an error
// only when ctx is already done before any stage starts.
func (p *Pipeline) Run(ctx context.Context, req Request) (*models.DiscoveryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var llm, web []string
	failedSearches := 0
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		llm = p.extractor.Extract(req.Texts, req.Mentions, req.OwnDomain, p.maxCandidates)
		return nil
	})
	g.Go(func() error {
		if p.web == nil {
			web = []string{}
			return nil
		}
		web, failedSearches = p.web.Discover(gctx, req.Profile, req.OwnDomain, p.maxQueries, p.maxCandidates)
		return nil
	})
	_ = g.Wait()

	if llm == nil {
		llm = []string{}
	}
	p.metrics.DiscoveryCandidates.WithLabelValues(string(models.SourceLLM)).Add(float64(len(llm)))
	p.metrics.DiscoveryCandidates.WithLabelValues(string(models.SourceWebSearch)).Add(float64(len(web)))

	thresholds := p.thresholds
	if req.Thresholds != nil {
		thresholds = *req.Thresholds
	}

	candidates := Merge(llm, web)
	competitors, transientDrops := p.validator.ValidateAndScore(ctx, candidates, req.Profile, thresholds)
	p.metrics.DiscoveryCandidates.WithLabelValues("validated").Add(float64(len(competitors)))

	p.logger.Info().
		Int("llm_candidates", len(llm)).
		Int("web_candidates", len(web)).
		Int("merged", len(candidates)).
		Int("competitors", len(competitors)).
		Int("failed_searches", failedSearches).
		Int("transient_drops", transientDrops).
		Msg("Competitor discovery complete")

	return &models.DiscoveryResult{
		LLMCandidates:       llm,
		WebSearchCandidates: web,
		Competitors:         competitors,
		FailedSearches:      failedSearches,
		TransientDrops:      transientDrops,
	}, nil
}

// Merge combines both stages' URLs into one candidate per domain. A domain
// found by both stages is tagged SourceBoth; order is Stage 1 first.
func Merge(llm, web []string) []models.CompetitorCandidate {
	index := make(map[string]int, len(llm)+len(web))
	out := make([]models.CompetitorCandidate, 0, len(llm)+len(web))

	add := func(u string, source models.CandidateSource, stage string) {
		d := Domain(u)
		if d == "" {
			return
		}
		if i, ok := index[d]; ok {
			if out[i].Source != source {
				out[i].Source = models.SourceBoth
			}
			return
		}
		index[d] = len(out)
		out = append(out, models.CompetitorCandidate{URL: u, Source: source, Stage: stage})
	}
	for _, u := range llm {
		add(u, models.SourceLLM, stageLLM)
	}
	for _, u := range web {
		add(u, models.SourceWebSearch, stageWeb)
	}
	return out
}
