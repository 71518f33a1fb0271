package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/heuristics"
	"github.com/AI-Template-SDK/senso-geo/internal/mention"
	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
	"github.com/AI-Template-SDK/senso-geo/internal/retry"
)

const defaultProbeTimeout = 30 * time.Second

// Dependencies are the collaborators shared by every adapter of a registry
type Dependencies struct {
	Costs     common.CostCalculator
	Extractor CompetitorExtractor
	Sentiment heuristics.Sentiment
	Detector  heuristics.CompetitorDetector
	Location  *models.Location
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// Adapter is the PlatformAdapter shared by every platform. The platform
// specific part is the AnswerClient; rate limiting, circuit breaking,
// retries and mention analysis are the same everywhere.
type Adapter struct {
	client      common.AnswerClient
	platform    string
	concurrency int
	timeout     time.Duration
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	policy      retry.Policy
	analyzer    *mention.Analyzer
	extractor   CompetitorExtractor
	detector    heuristics.CompetitorDetector
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewAdapter(client common.AnswerClient, pc config.PlatformConfig, vc config.VisibilityConfig, deps Dependencies) *Adapter {
	concurrency := pc.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := pc.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	limit := rate.Inf
	if pc.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(pc.RequestsPerMinute) / 60)
	}

	maxFailures := vc.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        pc.Name,
		MaxRequests: 1,
		Timeout:     vc.Breaker.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// a cancelled batch says nothing about the platform's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	detector := deps.Detector
	if detector == nil {
		detector = heuristics.NewCompetitorPatterns()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop()
	}

	return &Adapter{
		client:      client,
		platform:    pc.Name,
		concurrency: concurrency,
		timeout:     timeout,
		limiter:     rate.NewLimiter(limit, concurrency),
		breaker:     breaker,
		policy:      retry.FromConfig(vc.Retry, common.IsRetryable),
		analyzer:    mention.NewAnalyzer(deps.Sentiment, vc.ContextChars),
		extractor:   deps.Extractor,
		detector:    detector,
		metrics:     m,
		logger:      deps.Logger.With().Str("component", "adapter").Str("platform", pc.Name).Logger(),
	}
}

func (a *Adapter) Platform() string {
	return a.platform
}

func (a *Adapter) Concurrency() int {
	return a.concurrency
}

func (a *Adapter) Close() error {
	return a.client.Close()
}

// Probe asks the platform one query and analyses the answer for the brand.
// timeout bounds each attempt; zero uses the platform default.
func (a *Adapter) Probe(ctx context.Context, query models.Query, brand models.BrandIdentity, timeout time.Duration) *models.PlatformResult {
	start := time.Now()
	if timeout <= 0 {
		timeout = a.timeout
	}

	res := &models.PlatformResult{
		Platform:             a.platform,
		Query:                query,
		Sentiment:            models.SentimentNeutral,
		CompetitorsMentioned: []models.CompetitorMention{},
	}
	defer func() {
		res.DurationMS = time.Since(start).Milliseconds()
		a.metrics.ProbeDuration.WithLabelValues(a.platform).Observe(time.Since(start).Seconds())
		a.metrics.ProbesTotal.WithLabelValues(a.platform, outcome(res)).Inc()
	}()

	policy := a.policy
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		a.metrics.ProbeRetries.WithLabelValues(a.platform).Inc()
		a.logger.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Str("query", query.Text).Msg("Retrying probe")
	}

	answer, attempts, err := retry.Do(ctx, policy, func(ctx context.Context) (*common.AIResponse, error) {
		return a.ask(ctx, query.Text, timeout)
	})
	res.Attempts = attempts
	if err != nil {
		kind := common.Classify(err)
		if ctx.Err() != nil {
			kind = models.ErrUpstreamTimeout
		}
		res.Error = kind.Ptr()
		res.ErrorDetail = err.Error()
		a.logger.Error().Err(err).Str("kind", string(kind)).Int("attempts", attempts).Str("query", query.Text).Msg("Probe failed")
		return res
	}

	res.Cost = answer.Cost
	text := withSources(answer.Response, answer.Citations)
	res.FullResponse = text

	competitors, extractCost, extractErr := a.competitors(ctx, text, brand, timeout)
	res.Cost += extractCost
	res.CompetitorsMentioned = competitors

	analysis := a.analyzer.Analyze(text, brand, competitors)
	res.Mentioned = analysis.Mentioned
	res.Position = analysis.Position
	res.ContextSnippet = analysis.Snippet
	res.Sentiment = analysis.Sentiment
	res.ShareOfVoice = analysis.ShareOfVoice
	if !analysis.Mentioned {
		res.InvisibilityReasons = mention.Diagnose(query.Text, competitors)
	}

	if extractErr != nil {
		res.Error = models.ErrStructuredExtractionFailure.Ptr()
		res.ErrorDetail = extractErr.Error()
		a.logger.Warn().Err(extractErr).Str("query", query.Text).Msg("Structured extraction failed, used pattern fallback")
	}
	return res
}

// ask runs one attempt: wait for a rate slot, then call through the breaker
// under the per-attempt timeout.
func (a *Adapter) ask(ctx context.Context, prompt string, timeout time.Duration) (*common.AIResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// the next slot is past the deadline
		return nil, common.NewUpstreamError(a.platform, models.ErrUpstreamTimeout, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := a.breaker.Execute(func() (interface{}, error) {
		return a.client.Ask(callCtx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, common.NewUpstreamError(a.platform, models.ErrUpstreamError, err)
	}
	if err != nil {
		return nil, err
	}
	resp, ok := v.(*common.AIResponse)
	if !ok || resp == nil {
		return nil, common.NewUpstreamError(a.platform, models.ErrUpstreamError, fmt.Errorf("client returned no response"))
	}
	return resp, nil
}

// competitors prefers the structured extractor and falls back to the
// pattern detector. The returned error is only set when the structured
// call was attempted and failed; the cost is that call's cost.
func (a *Adapter) competitors(ctx context.Context, text string, brand models.BrandIdentity, timeout time.Duration) ([]models.CompetitorMention, float64, error) {
	if strings.TrimSpace(text) == "" {
		return []models.CompetitorMention{}, 0, nil
	}
	if a.extractor == nil {
		return nonNil(a.detector.Detect(text, brand)), 0, nil
	}

	extractCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	found, cost, err := a.extractor.ExtractCompetitors(extractCtx, text, brand)
	if err != nil {
		return nonNil(a.detector.Detect(text, brand)), cost, err
	}
	return nonNil(found), cost, nil
}

// withSources appends citation URLs so domain mentions in sources count
func withSources(text string, citations []string) string {
	var missing []string
	for _, c := range citations {
		if c != "" && !strings.Contains(text, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	if text != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Sources:\n")
	for _, c := range missing {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

func nonNil(c []models.CompetitorMention) []models.CompetitorMention {
	if c == nil {
		return []models.CompetitorMention{}
	}
	return c
}

func outcome(r *models.PlatformResult) string {
	switch {
	case r.Failed():
		return "failed"
	case r.Error != nil:
		return "degraded"
	case r.Mentioned:
		return "mentioned"
	default:
		return "not_mentioned"
	}
}
